package models

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/modelpick/internal/appcontext"
	"github.com/agentstation/modelpick/internal/cmd/completion"
	"github.com/agentstation/modelpick/internal/cmd/output"
)

// NewRecentCommand creates the models recent subcommand.
func NewRecentCommand(app appcontext.Interface) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List recently used models, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := app.Engine(cmd.Context())
			if err != nil {
				return err
			}
			formatter := output.NewFormatter(output.DetectFormat(app.OutputFormat()))
			return formatter.Format(cmd.OutOrStdout(), output.Recent(engine.Recent(limit)))
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of models (0 lists all)")
	return cmd
}

// NewForgetCommand creates the models forget subcommand.
func NewForgetCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:               "forget <provider>/<model>",
		Short:             "Remove a model from the recently used list",
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
			if err := engine.Forget(providerID, modelID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Forgot %s/%s\n", providerID, modelID)
			return nil
		},
	}
}
