// Package pick provides the interactive model picker command.
package pick

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/modelpick/internal/appcontext"
	"github.com/agentstation/modelpick/internal/tui"
)

// NewCommand creates the pick command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:     "pick",
		GroupID: "core",
		Short:   "Choose a model interactively",
		Long: `Open the model picker. Type to search, enter to choose. Choosing a model
of a locked provider asks for its API key; ctrl+d looks for keys in the
environment, .env files and other tools' credential stores.

The chosen model is printed as provider/model.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := app.Engine(cmd.Context())
			if err != nil {
				return err
			}

			item, err := tui.Run(cmd.Context(), engine, app.Stdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if item == nil {
				app.Logger().Debug().Msg("picker closed without a selection")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s/%s\n", item.ProviderID, item.ModelID)
			return nil
		},
	}
}
