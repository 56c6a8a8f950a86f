// Package models provides the model listing and selection commands.
package models

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/modelpick/internal/appcontext"
	"github.com/agentstation/modelpick/pkg/catalogs"
	"github.com/agentstation/modelpick/pkg/errors"
)

// NewCommand creates the models command with its subcommands.
func NewCommand(app appcontext.Interface) *cobra.Command {
	list := NewListCommand(app)
	cmd := &cobra.Command{
		Use:     "models",
		GroupID: "core",
		Short:   "List, select and forget models",
		Long: `List models grouped by provider, pick one, and manage the recently used list.

Examples:
  modelpick models                       # Grouped list, recent first
  modelpick models list sonnet           # Fuzzy search
  modelpick models use anthropic/claude-sonnet-4-5
  modelpick models use openai            # The provider's default model
  modelpick models recent
  modelpick models forget openai/gpt-4o`,
		Args: list.Args,
		RunE: list.RunE,
	}
	cmd.AddCommand(list, NewUseCommand(app), NewRecentCommand(app), NewForgetCommand(app))
	return cmd
}

// parseRef splits "provider/model". The model part may itself contain
// slashes, as OpenRouter ids do.
func parseRef(ref string) (catalogs.ProviderID, string, error) {
	provider, model, _ := strings.Cut(ref, "/")
	if provider == "" {
		return "", "", errors.NewValidationError("model", ref, "expected provider or provider/model")
	}
	return catalogs.ProviderID(provider), model, nil
}
