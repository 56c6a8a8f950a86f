// Package constants provides shared constants used throughout the modelpick codebase.
// This includes timeouts, limits, file permissions, and other defaults
// that should be consistent across the application.
package constants

import "time"

// Timeout constants define the deadlines applied to credential gateway calls
const (
	// HealthCheckTimeout bounds a single auth status check or status-page probe
	HealthCheckTimeout = 1 * time.Second

	// AuthenticateTimeout bounds remote validation of a freshly supplied credential
	AuthenticateTimeout = 5 * time.Second

	// AutoDetectTimeout bounds a full scan of well-known credential sources
	AutoDetectTimeout = 5 * time.Second

	// ProbeTimeout is the aggregate deadline for probing every provider
	ProbeTimeout = 10 * time.Second

	// ProbeProviderTimeout bounds a single provider inside a probe
	ProbeProviderTimeout = 3 * time.Second

	// DefaultHTTPTimeout is the fallback timeout for HTTP clients without a context deadline
	DefaultHTTPTimeout = 30 * time.Second
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644

	// SecureDirPermissions is for directories holding secrets (rwx------)
	SecureDirPermissions = 0700

	// SecureFilePermissions is for sensitive files like API keys (rw-------)
	SecureFilePermissions = 0600
)

// Limit constants define various limits and capacities
const (
	// RecentLimit is the number of recently used models surfaced by default
	RecentLimit = 5

	// ProbeConcurrency is the maximum number of providers probed at once
	ProbeConcurrency = 8

	// MaxSecretLength guards against pasting whole files into the prompt
	MaxSecretLength = 4096
)

// Cache constants
const (
	// AuthStatusTTL is how long a cached auth status may be trusted
	AuthStatusTTL = 30 * time.Second

	// CacheCleanupInterval is how often to clean expired cache entries
	CacheCleanupInterval = 5 * time.Minute
)

// Credential storage constants
const (
	// KeyringService is the service name credentials are stored under in the OS keyring
	KeyringService = "modelpick"

	// KeyringIndexUser is the keyring entry that lists the provider ids with stored secrets
	KeyringIndexUser = "_providers"

	// AppName is used for XDG directory names
	AppName = "modelpick"
)
