package auth

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/modelpick/internal/appcontext"
	"github.com/agentstation/modelpick/internal/cmd/completion"
	"github.com/agentstation/modelpick/internal/cmd/output"
	"github.com/agentstation/modelpick/pkg/catalogs"
)

// NewStatusCommand creates the auth status subcommand.
func NewStatusCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:   "status [provider...]",
		Short: "Show authentication and health status for providers",
		Long: `Check every provider (or the ones named) in parallel and print whether
a credential is available, where it came from and the provider's health.

Providers that do not answer in time are shown with an unknown health.`,
		ValidArgsFunction: completion.Providers(app, true),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, args, app)
		},
	}
}

func runStatus(cmd *cobra.Command, args []string, app appcontext.Interface) error {
	engine, err := app.Engine(cmd.Context())
	if err != nil {
		return err
	}

	ids := make([]catalogs.ProviderID, 0, len(args))
	for _, arg := range args {
		p, err := engine.Catalog().Provider(catalogs.ProviderID(arg))
		if err != nil {
			return err
		}
		ids = append(ids, p.ID)
	}
	if len(ids) == 0 {
		ids = engine.Catalog().ProviderIDs()
	}

	results := engine.Probe(cmd.Context(), ids...)

	rows := make(output.Statuses, 0, len(ids))
	for _, id := range ids {
		p, _ := engine.Catalog().Provider(id)
		r := results[id]
		row := output.StatusRow{
			ProviderID:    id,
			Name:          p.DisplayName(),
			Authenticated: r.Status.Authenticated,
			Health:        r.Status.Health,
			ModelCount:    r.Status.ModelCount,
			Source:        r.Status.Source,
		}
		switch {
		case r.TimedOut:
			row.Error = "timed out"
		case r.Err != nil:
			row.Error = r.Err.Error()
		}
		rows = append(rows, row)
	}

	formatter := output.NewFormatter(output.DetectFormat(app.OutputFormat()))
	return formatter.Format(cmd.OutOrStdout(), rows)
}
