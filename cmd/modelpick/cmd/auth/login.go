package auth

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/agentstation/modelpick/internal/appcontext"
	"github.com/agentstation/modelpick/internal/cmd/completion"
	"github.com/agentstation/modelpick/internal/cmd/output"
	"github.com/agentstation/modelpick/pkg/catalogs"
	"github.com/agentstation/modelpick/pkg/errors"
	"github.com/agentstation/modelpick/pkg/events"
)

// NewLoginCommand creates the auth login subcommand.
func NewLoginCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:   "login <provider>",
		Short: "Validate and store a credential for a provider",
		Long: `Prompt for an API key, validate it against the provider and store it.

On a terminal the key is read without echo. Otherwise the first line of
standard input is used, so keys can be piped in:

  pass show openai | modelpick auth login openai`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completion.Providers(app, false),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, catalogs.ProviderID(args[0]), app)
		},
	}
}

func runLogin(cmd *cobra.Command, providerID catalogs.ProviderID, app appcontext.Interface) error {
	engine, err := app.Engine(cmd.Context())
	if err != nil {
		return err
	}
	provider, err := engine.Catalog().Provider(providerID)
	if err != nil {
		return err
	}

	var hint string
	if provider.APIKey != nil && provider.APIKey.Name != "" {
		hint = " (" + provider.APIKey.Name + ")"
	}
	secret, err := readSecret(app.Stdin(), cmd.ErrOrStderr(), fmt.Sprintf("%s API key%s: ", provider.DisplayName(), hint))
	if err != nil {
		return err
	}

	success, err := engine.Login(cmd.Context(), providerID, secret)
	if err != nil {
		var f events.AuthFailure
		if errors.As(err, &f) {
			fmt.Fprintln(cmd.ErrOrStderr(), output.Guidance(f))
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s unlocked: %d models available\n", provider.DisplayName(), success.ModelCount)
	return nil
}

// readSecret reads one line without echo when in is a terminal.
func readSecret(in io.Reader, prompt io.Writer, label string) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, label)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", errors.WrapIO("read", "terminal", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", errors.WrapIO("read", "stdin", err)
	}
	return strings.TrimSpace(line), nil
}
