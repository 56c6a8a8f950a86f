// Package app provides the application context and dependency management
// for the modelpick CLI: configuration, logging and the lazily created
// engine live here, and commands reach them through appcontext.Interface.
package app

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/modelpick"
	"github.com/agentstation/modelpick/internal/appcontext"
	"github.com/agentstation/modelpick/pkg/catalogs"
	"github.com/agentstation/modelpick/pkg/credentials"
	"github.com/agentstation/modelpick/pkg/errors"
	"github.com/agentstation/modelpick/pkg/recent"
)

// App represents the modelpick application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger
	stdin  io.Reader

	// Engine instance (lazy-initialized, singleton)
	mu     sync.Mutex
	engine modelpick.Engine

	stopMetrics context.CancelFunc
}

var _ appcontext.Interface = (*App)(nil)

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		stdin:   os.Stdin,
	}

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	if app.config == nil {
		config, err := LoadConfig(configFlag(os.Args[1:]))
		if err != nil {
			return nil, err
		}
		app.config = config
	}

	if app.logger == nil {
		logger := NewLogger(app.config)
		app.logger = &logger
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string { return a.version }

// Commit returns the git commit hash.
func (a *App) Commit() string { return a.commit }

// Date returns the build date.
func (a *App) Date() string { return a.date }

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string { return a.builtBy }

// Config returns the application configuration.
func (a *App) Config() *Config { return a.config }

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger { return a.logger }

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string { return a.config.Format }

// Stdin returns the reader for interactive input.
func (a *App) Stdin() io.Reader { return a.stdin }

// Engine returns the engine, creating it on first use.
func (a *App) Engine(_ context.Context) (modelpick.Engine, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.engine != nil {
		return a.engine, nil
	}

	opts, err := a.engineOptions()
	if err != nil {
		return nil, err
	}
	engine, err := modelpick.New(opts...)
	if err != nil {
		return nil, err
	}
	a.engine = engine
	return engine, nil
}

// Shutdown stops background work started by commands.
func (a *App) Shutdown(_ context.Context) error {
	if a.stopMetrics != nil {
		a.stopMetrics()
	}
	return nil
}

// engineOptions translates the configuration into engine options.
func (a *App) engineOptions() ([]modelpick.Option, error) {
	c := a.config

	store, err := credentials.Open(credentials.Kind(c.CredentialStore), c.CredentialFile)
	if err != nil {
		return nil, err
	}

	recentFile := c.RecentFile
	if recentFile == "" {
		if recentFile, err = recent.DefaultPath(); err != nil {
			a.logger.Warn().Err(err).Msg("recent models will not be saved")
		}
	}

	opts := []modelpick.Option{
		modelpick.WithLogger(a.logger),
		modelpick.WithCredentialStore(store),
		modelpick.WithRecentFile(recentFile),
		modelpick.WithRecentLimit(c.RecentLimit),
		modelpick.WithAuthStatusTTL(c.AuthStatusTTL),
		modelpick.WithTimeouts(c.HealthTimeout, c.AuthTimeout, c.DetectTimeout),
		modelpick.WithProbe(c.ProbeTimeout, c.ProbeProviderTimeout, c.ProbeConcurrency),
	}
	if c.CatalogFile != "" {
		opts = append(opts, modelpick.WithCatalogFile(c.CatalogFile))
	}
	if len(c.DefaultModels) > 0 {
		prefs := make(map[catalogs.ProviderID][]string, len(c.DefaultModels))
		for pid, ids := range c.DefaultModels {
			prefs[catalogs.ProviderID(pid)] = ids
		}
		opts = append(opts, modelpick.WithDefaultModels(prefs))
	}
	return opts, nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		if config == nil {
			return errors.NewValidationError("config", nil, "config must not be nil")
		}
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithEngine sets a prebuilt engine (useful for testing).
func WithEngine(engine modelpick.Engine) Option {
	return func(a *App) error {
		a.engine = engine
		return nil
	}
}

// WithStdin sets the reader for interactive input.
func WithStdin(r io.Reader) Option {
	return func(a *App) error {
		a.stdin = r
		return nil
	}
}

// configFlag extracts --config before cobra parses flags, since the config
// file has to be read before the command tree is built.
func configFlag(args []string) string {
	for i, arg := range args {
		if arg == "--config" && i+1 < len(args) {
			return args[i+1]
		}
		if path, ok := strings.CutPrefix(arg, "--config="); ok {
			return path
		}
	}
	return ""
}
