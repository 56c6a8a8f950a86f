package models

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/modelpick/internal/appcontext"
	"github.com/agentstation/modelpick/internal/cmd/completion"
)

// NewUseCommand creates the models use subcommand.
func NewUseCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:   "use <provider>[/<model>]",
		Short: "Select a model and record it as recently used",
		Long: `Select a model and print its reference. Only models of authenticated
providers can be selected. With just a provider, its default model is used:
the first configured default_models entry present in the catalog, else the
first model in list order.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completion.ModelRefs(app),
		RunE: func(cmd *cobra.Command, args []string) error {
			providerID, modelID, err := parseRef(args[0])
			if err != nil {
				return err
			}

			engine, err := app.Engine(cmd.Context())
			if err != nil {
				return err
			}
			if modelID == "" {
				m, err := engine.DefaultModel(providerID)
				if err != nil {
					return err
				}
				modelID = m.ID
			}

			item, err := engine.Select(cmd.Context(), providerID, modelID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s/%s\n", item.ProviderID, item.ModelID)
			return nil
		},
	}
}
