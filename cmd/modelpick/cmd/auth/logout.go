package auth

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/modelpick/internal/appcontext"
	"github.com/agentstation/modelpick/internal/cmd/completion"
	"github.com/agentstation/modelpick/pkg/catalogs"
)

// NewLogoutCommand creates the auth logout subcommand.
func NewLogoutCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:   "logout <provider>",
		Short: "Remove the stored credential for a provider",
		Long: `Remove the stored credential for a provider.

Environment variables are left alone, so a provider whose key is also
exported in the shell stays authenticated.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completion.Providers(app, false),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := app.Engine(cmd.Context())
			if err != nil {
				return err
			}
			providerID := catalogs.ProviderID(args[0])
			if err := engine.Logout(cmd.Context(), providerID); err != nil {
				return err
			}

			status, err := engine.Status(cmd.Context(), providerID)
			if err == nil && status.Authenticated {
				fmt.Fprintf(cmd.OutOrStdout(), "Stored credential removed; %s is still authenticated via %s\n", providerID, status.Source)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored credential removed for %s\n", providerID)
			return nil
		},
	}
}
