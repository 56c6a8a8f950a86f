package modelpick

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/modelpick/pkg/catalogs"
	"github.com/agentstation/modelpick/pkg/constants"
	"github.com/agentstation/modelpick/pkg/credentials"
	"github.com/agentstation/modelpick/pkg/errors"
)

// Option is a function that configures an Engine.
type Option func(*config) error

// config holds the engine's construction-time settings.
type config struct {
	catalog     *catalogs.Catalog
	catalogFile string
	store       credentials.Store
	httpClient  *http.Client
	logger      *zerolog.Logger

	recentPath  string
	recentLimit int
	preferences map[catalogs.ProviderID][]string

	authStatusTTL        time.Duration
	healthTimeout        time.Duration
	authTimeout          time.Duration
	detectTimeout        time.Duration
	probeTimeout         time.Duration
	probeProviderTimeout time.Duration
	probeConcurrency     int

	lookupEnv    func(string) (string, bool)
	dotEnvFiles  []string
	openCodePath *string
	now          func() time.Time
}

func defaultConfig() *config {
	return &config{
		recentLimit:          constants.RecentLimit,
		authStatusTTL:        constants.AuthStatusTTL,
		healthTimeout:        constants.HealthCheckTimeout,
		authTimeout:          constants.AuthenticateTimeout,
		detectTimeout:        constants.AutoDetectTimeout,
		probeTimeout:         constants.ProbeTimeout,
		probeProviderTimeout: constants.ProbeProviderTimeout,
		probeConcurrency:     constants.ProbeConcurrency,
		now:                  time.Now,
	}
}

// WithCatalog uses catalog instead of the embedded provider catalog.
func WithCatalog(catalog *catalogs.Catalog) Option {
	return func(c *config) error {
		if catalog == nil {
			return errors.NewValidationError("catalog", nil, "catalog must not be nil")
		}
		c.catalog = catalog
		return nil
	}
}

// WithCatalogFile loads the provider catalog from a YAML file.
func WithCatalogFile(path string) Option {
	return func(c *config) error {
		c.catalogFile = path
		return nil
	}
}

// WithCredentialStore sets where credentials are persisted. The default is
// the OS keyring.
func WithCredentialStore(store credentials.Store) Option {
	return func(c *config) error {
		if store == nil {
			return errors.NewValidationError("store", nil, "credential store must not be nil")
		}
		c.store = store
		return nil
	}
}

// WithHTTPClient sets the client used for credential validation and health probes.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) error {
		c.httpClient = client
		return nil
	}
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *config) error {
		c.logger = logger
		return nil
	}
}

// WithRecentFile persists recently used models to path. Empty keeps them in memory.
func WithRecentFile(path string) Option {
	return func(c *config) error {
		c.recentPath = path
		return nil
	}
}

// WithRecentLimit caps the Recent section.
func WithRecentLimit(n int) Option {
	return func(c *config) error {
		if n <= 0 {
			return errors.NewValidationError("recent_limit", n, "must be positive")
		}
		c.recentLimit = n
		return nil
	}
}

// WithDefaultModels sets per-provider ordered default model preferences.
func WithDefaultModels(prefs map[catalogs.ProviderID][]string) Option {
	return func(c *config) error {
		c.preferences = prefs
		return nil
	}
}

// WithAuthStatusTTL sets how long a cached auth status stays fresh.
func WithAuthStatusTTL(ttl time.Duration) Option {
	return func(c *config) error {
		if ttl <= 0 {
			return errors.NewValidationError("auth_status_ttl", ttl, "must be positive")
		}
		c.authStatusTTL = ttl
		return nil
	}
}

// WithTimeouts overrides operation timeouts. Zero values keep the defaults.
func WithTimeouts(health, authenticate, detect time.Duration) Option {
	return func(c *config) error {
		if health > 0 {
			c.healthTimeout = health
		}
		if authenticate > 0 {
			c.authTimeout = authenticate
		}
		if detect > 0 {
			c.detectTimeout = detect
		}
		return nil
	}
}

// WithProbe configures the startup probe: the aggregate and per-provider
// deadlines and the worker pool size. Zero values keep the defaults.
func WithProbe(timeout, providerTimeout time.Duration, concurrency int) Option {
	return func(c *config) error {
		if timeout > 0 {
			c.probeTimeout = timeout
		}
		if providerTimeout > 0 {
			c.probeProviderTimeout = providerTimeout
		}
		if concurrency > 0 {
			c.probeConcurrency = concurrency
		}
		return nil
	}
}

// WithEnv replaces environment variable lookup.
func WithEnv(lookup func(string) (string, bool)) Option {
	return func(c *config) error {
		c.lookupEnv = lookup
		return nil
	}
}

// WithDotEnvFiles sets the dotenv files scanned by auto-detect.
func WithDotEnvFiles(paths ...string) Option {
	return func(c *config) error {
		c.dotEnvFiles = paths
		if c.dotEnvFiles == nil {
			c.dotEnvFiles = []string{}
		}
		return nil
	}
}

// WithOpenCodePath sets the OpenCode auth.json scanned by auto-detect. Empty disables it.
func WithOpenCodePath(path string) Option {
	return func(c *config) error {
		c.openCodePath = &path
		return nil
	}
}

// WithClock replaces time.Now for the cache and the recent tracker.
func WithClock(now func() time.Time) Option {
	return func(c *config) error {
		c.now = now
		return nil
	}
}
