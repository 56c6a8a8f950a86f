package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/modelpick/cmd/modelpick/cmd/auth"
	"github.com/agentstation/modelpick/cmd/modelpick/cmd/models"
	"github.com/agentstation/modelpick/cmd/modelpick/cmd/pick"
	"github.com/agentstation/modelpick/cmd/modelpick/cmd/version"
	"github.com/agentstation/modelpick/internal/metrics"
)

// Execute runs the modelpick CLI with the given arguments.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command with all subcommands.
func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "modelpick",
		Short:   "Pick an AI model from the providers you can use",
		Version: a.version,
		Long: `modelpick lists AI models grouped by provider, shows which providers
you hold credentials for and whether they are healthy, and remembers the
models you use most recently.

Credentials are validated against the provider before they are stored in
the OS keyring (or a file, see credential_store).`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.AddGroup(&cobra.Group{ID: "core", Title: "Core Commands:"})
	rootCmd.AddGroup(&cobra.Group{ID: "management", Title: "Management Commands:"})

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.config.ConfigFile, "config", a.config.ConfigFile, "config file (default is $XDG_CONFIG_HOME/modelpick/modelpick.yaml)")
	flags.BoolP("verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	flags.BoolP("quiet", "q", false, "minimal output (shortcut for --log-level=error)")
	flags.Bool("no-color", false, "disable colored output")
	flags.StringP("format", "o", "", "output format: table, json, yaml")
	flags.String("log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address while the command runs")

	rootCmd.SetVersionTemplate("modelpick {{.Version}}\n")

	a.registerCommands(rootCmd)
	return rootCmd
}

// setupCommand is called before any command runs.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	a.config.UpdateFromFlags(
		mustGetBool(cmd, "verbose"),
		mustGetBool(cmd, "quiet"),
		mustGetBool(cmd, "no-color"),
		mustGetString(cmd, "format"),
		mustGetString(cmd, "log-level"),
		mustGetString(cmd, "metrics-addr"),
	)

	logger := NewLogger(a.config)
	a.logger = &logger

	if addr := a.config.MetricsAddr; addr != "" && a.stopMetrics == nil {
		ctx, cancel := context.WithCancel(cmd.Context())
		a.stopMetrics = cancel
		go func() {
			if err := metrics.Serve(ctx, addr); err != nil {
				a.logger.Warn().Err(err).Str("addr", addr).Msg("metrics endpoint stopped")
			}
		}()
	}
	return nil
}

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(pick.NewCommand(a))
	rootCmd.AddCommand(models.NewCommand(a))
	rootCmd.AddCommand(auth.NewCommand(a))
	rootCmd.AddCommand(version.NewCommand(a))
}

// ExitOnError prints err and exits with status 1. A nil error is a no-op.
func ExitOnError(err error) {
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

// mustGetBool retrieves a boolean flag value or panics if the flag doesn't exist.
func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}

// mustGetString retrieves a string flag value or panics if the flag doesn't exist.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}
