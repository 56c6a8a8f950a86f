package auth

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/modelpick/internal/appcontext"
	"github.com/agentstation/modelpick/internal/cmd/output"
	"github.com/agentstation/modelpick/pkg/events"
)

// NewDetectCommand creates the auth detect subcommand.
func NewDetectCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "Import credentials from the environment, .env files and OpenCode",
		Long: `Scan provider environment variables, .env and .env.local in the current
directory, and OpenCode's auth.json for API keys. Keys for providers without
a stored credential are stored; nothing is overwritten.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := app.Engine(cmd.Context())
			if err != nil {
				return err
			}

			for _, ev := range engine.Detect(cmd.Context()) {
				switch ev := ev.(type) {
				case events.NoCredentialsFound:
					fmt.Fprintln(cmd.OutOrStdout(), "No new credentials found")
				case events.CredentialsDetected:
					for _, id := range ev.ProviderIDs {
						fmt.Fprintf(cmd.OutOrStdout(), "Stored credential for %s\n", id)
					}
				case events.AuthFailure:
					fmt.Fprintln(cmd.ErrOrStderr(), output.Guidance(ev))
					return ev
				}
			}
			return nil
		},
	}
}
