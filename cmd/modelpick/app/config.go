package app

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/modelpick/pkg/constants"
	"github.com/agentstation/modelpick/pkg/credentials"
	"github.com/agentstation/modelpick/pkg/errors"
)

// envPrefix namespaces configuration environment variables, e.g.
// MODELPICK_LOG_LEVEL.
const envPrefix = "MODELPICK"

// Config holds the application configuration loaded from config files,
// environment variables and .env files. Flags are applied afterwards.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string

	// Engine configuration
	CatalogFile          string
	CredentialStore      string
	CredentialFile       string
	RecentFile           string
	RecentLimit          int
	AuthStatusTTL        time.Duration
	HealthTimeout        time.Duration
	AuthTimeout          time.Duration
	DetectTimeout        time.Duration
	ProbeTimeout         time.Duration
	ProbeProviderTimeout time.Duration
	ProbeConcurrency     int
	DefaultModels        map[string][]string

	// MetricsAddr, when set, serves Prometheus metrics while a command runs.
	MetricsAddr string
}

// LoadConfig loads configuration in order of precedence:
//  1. Command-line flags (applied later by cobra)
//  2. MODELPICK_* environment variables
//  3. .env and .env.local in the working directory
//  4. Config file (explicit, else $XDG_CONFIG_HOME/modelpick/modelpick.yaml,
//     else ~/.modelpick.yaml)
//  5. Defaults
func LoadConfig(configFile string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile == "" {
		configFile = findConfigFile()
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewConfigError("config", "reading "+configFile, err)
		}
	}

	config := &Config{
		Format:     v.GetString("format"),
		ConfigFile: v.ConfigFileUsed(),

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
		LogOutput: v.GetString("log_output"),

		CatalogFile:          v.GetString("catalog_file"),
		CredentialStore:      v.GetString("credential_store"),
		CredentialFile:       v.GetString("credential_file"),
		RecentFile:           v.GetString("recent_file"),
		RecentLimit:          v.GetInt("recent_limit"),
		AuthStatusTTL:        v.GetDuration("auth_status_ttl"),
		HealthTimeout:        v.GetDuration("health_timeout"),
		AuthTimeout:          v.GetDuration("auth_timeout"),
		DetectTimeout:        v.GetDuration("detect_timeout"),
		ProbeTimeout:         v.GetDuration("probe_timeout"),
		ProbeProviderTimeout: v.GetDuration("probe_provider_timeout"),
		ProbeConcurrency:     v.GetInt("probe_concurrency"),
		DefaultModels:        v.GetStringMapStringSlice("default_models"),

		MetricsAddr: v.GetString("metrics_addr"),
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_format", "auto")
	v.SetDefault("log_output", "stderr")
	v.SetDefault("credential_store", string(credentials.KindKeyring))
	v.SetDefault("recent_limit", constants.RecentLimit)
	v.SetDefault("auth_status_ttl", constants.AuthStatusTTL)
	v.SetDefault("health_timeout", constants.HealthCheckTimeout)
	v.SetDefault("auth_timeout", constants.AuthenticateTimeout)
	v.SetDefault("detect_timeout", constants.AutoDetectTimeout)
	v.SetDefault("probe_timeout", constants.ProbeTimeout)
	v.SetDefault("probe_provider_timeout", constants.ProbeProviderTimeout)
	v.SetDefault("probe_concurrency", constants.ProbeConcurrency)
}

func (c *Config) validate() error {
	switch credentials.Kind(c.CredentialStore) {
	case credentials.KindKeyring, credentials.KindFile, credentials.KindMemory:
	default:
		return errors.NewConfigError("credential_store", "must be keyring, file or memory, got "+c.CredentialStore, nil)
	}
	if c.RecentLimit <= 0 {
		return errors.NewConfigError("recent_limit", "must be positive", nil)
	}
	if c.AuthStatusTTL <= 0 {
		return errors.NewConfigError("auth_status_ttl", "must be positive", nil)
	}
	return nil
}

// findConfigFile returns the first existing default config file, or "".
func findConfigFile() string {
	if path, err := xdg.SearchConfigFile(filepath.Join(constants.AppName, constants.AppName+".yaml")); err == nil {
		return path
	}
	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, "."+constants.AppName+".yaml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// loadEnvFiles loads environment variables from .env files. Variables
// already set are kept.
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}

// UpdateFromFlags applies parsed flag values over the loaded configuration.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel, metricsAddr string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	if metricsAddr != "" {
		c.MetricsAddr = metricsAddr
	}
}
