// Package auth is the credential gateway: it checks, stores and discovers
// credentials for catalog providers and probes their public health. It
// keeps no cache of its own; see package authcache.
package auth

import (
	"github.com/agentstation/utc"

	"github.com/agentstation/modelpick/pkg/catalogs"
)

// Health is the liveness of a provider, independent of credential validity.
type Health int

const (
	// HealthUnknown means the provider was not probed or the probe failed.
	HealthUnknown Health = iota
	// HealthHealthy means the provider reports no incidents.
	HealthHealthy
	// HealthDegraded means the provider reports a minor incident.
	HealthDegraded
	// HealthDown means the provider reports a major outage.
	HealthDown
)

// String returns the string representation of a Health.
func (h Health) String() string {
	switch h {
	case HealthHealthy:
		return "healthy"
	case HealthDegraded:
		return "degraded"
	case HealthDown:
		return "down"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (h Health) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// Status is the auth verdict for one provider. Values are replaced, never mutated.
type Status struct {
	Authenticated bool     `json:"authenticated" yaml:"authenticated"`
	ModelCount    int      `json:"model_count" yaml:"model_count"`
	Health        Health   `json:"health" yaml:"health"`
	LastChecked   utc.Time `json:"last_checked" yaml:"last_checked"`
	Source        Source   `json:"source,omitempty" yaml:"source,omitempty"`
}

// Source names where a credential was found.
type Source string

// Credential sources.
const (
	SourceStore    Source = "store"
	SourceEnv      Source = "env"
	SourceDotEnv   Source = "dotenv"
	SourceOpenCode Source = "opencode"
	SourceNone     Source = ""
)

// AuthResult is returned by a successful Authenticate.
type AuthResult struct {
	ProviderID catalogs.ProviderID `json:"provider_id" yaml:"provider_id"`
	ModelCount int                 `json:"model_count" yaml:"model_count"`
}

// DetectResult is returned by AutoDetect. A zero FoundCount is not an error.
type DetectResult struct {
	FoundCount  int                            `json:"found_count" yaml:"found_count"`
	ProviderIDs []catalogs.ProviderID          `json:"provider_ids" yaml:"provider_ids"`
	Sources     map[catalogs.ProviderID]Source `json:"sources,omitempty" yaml:"sources,omitempty"`
}

// HealthResult is returned by GetProviderHealth.
type HealthResult struct {
	ProviderID  catalogs.ProviderID `json:"provider_id" yaml:"provider_id"`
	Health      Health              `json:"health" yaml:"health"`
	Description string              `json:"description,omitempty" yaml:"description,omitempty"`
}

// ProviderModels lists the model ids a provider exposes.
type ProviderModels struct {
	ProviderID catalogs.ProviderID `json:"provider_id" yaml:"provider_id"`
	ModelIDs   []string            `json:"model_ids" yaml:"model_ids"`
}
