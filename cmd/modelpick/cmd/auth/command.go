// Package auth provides the credential management commands.
package auth

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/modelpick/internal/appcontext"
)

// NewCommand creates the auth command with its subcommands.
func NewCommand(app appcontext.Interface) *cobra.Command {
	status := NewStatusCommand(app)
	cmd := &cobra.Command{
		Use:     "auth",
		GroupID: "management",
		Short:   "Manage provider credentials",
		Long: `Check, add, remove and discover provider credentials.

Examples:
  modelpick auth                  # Show authentication status
  modelpick auth login openai     # Validate and store an OpenAI key
  modelpick auth logout openai    # Remove the stored key
  modelpick auth detect           # Import keys from env, .env and OpenCode`,
		RunE: status.RunE,
	}
	cmd.AddCommand(status, NewLoginCommand(app), NewLogoutCommand(app), NewDetectCommand(app))
	return cmd
}
