package models

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/modelpick/internal/appcontext"
	"github.com/agentstation/modelpick/internal/cmd/output"
)

// NewListCommand creates the models list subcommand.
func NewListCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:   "list [query]",
		Short: "List models, or fuzzy search them",
		Long: `Without a query, list recently used models followed by every provider's
models, providers alphabetically. Locked providers are listed but their
models cannot be selected until a credential is added.

With a query, list the models whose provider and model names match,
best match first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := app.Engine(cmd.Context())
			if err != nil {
				return err
			}
			engine.Probe(cmd.Context())

			view := engine.View(strings.Join(args, " "))
			formatter := output.NewFormatter(output.DetectFormat(app.OutputFormat()))
			return formatter.Format(cmd.OutOrStdout(), output.Models{View: view})
		},
	}
}
