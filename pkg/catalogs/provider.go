package catalogs

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Provider represents a provider configuration.
type Provider struct {
	// Core identification
	ID   ProviderID `json:"id" yaml:"id"`     // Unique provider identifier
	Name string     `json:"name" yaml:"name"` // Display name

	// API key configuration
	APIKey *ProviderAPIKey `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Models endpoint used to validate credentials
	Catalog *ProviderCatalog `json:"catalog,omitempty" yaml:"catalog,omitempty"`

	// Status page used for liveness probes
	Health *ProviderHealth `json:"health,omitempty" yaml:"health,omitempty"`

	// Available models indexed by model ID
	Models map[string]*Model `json:"-" yaml:"-"`
}

// ProviderCatalog describes where a provider lists its models.
type ProviderCatalog struct {
	APIURL  string `json:"api_url,omitempty" yaml:"api_url,omitempty"`   // Models API endpoint URL
	DocsURL string `json:"docs_url,omitempty" yaml:"docs_url,omitempty"` // Models API documentation URL
}

// ProviderAPIKey represents configuration for an API key to access a provider.
type ProviderAPIKey struct {
	Name       string               `json:"name" yaml:"name"`                                   // Environment variable holding the key
	Aliases    []string             `json:"aliases,omitempty" yaml:"aliases,omitempty"`         // Other documented environment variable names
	Pattern    string               `json:"pattern,omitempty" yaml:"pattern,omitempty"`         // Regular expression the key must match
	Header     string               `json:"header,omitempty" yaml:"header,omitempty"`           // Header name to send the API key in
	Scheme     ProviderAPIKeyScheme `json:"scheme,omitempty" yaml:"scheme,omitempty"`           // Authentication scheme
	QueryParam string               `json:"query_param,omitempty" yaml:"query_param,omitempty"` // Query parameter name to send the API key in

	// Headers are sent verbatim with every authenticated request, e.g. an
	// API version the provider requires.
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// ProviderHealth points at an Atlassian Statuspage style status API.
type ProviderHealth struct {
	APIURL     string   `json:"api_url" yaml:"api_url"`                           // e.g. https://status.example.com/api/v2/status.json
	Components []string `json:"components,omitempty" yaml:"components,omitempty"` // Component names to watch; empty means the page indicator
}

// ProviderAPIKeyScheme represents different authentication schemes for API keys.
type ProviderAPIKeyScheme string

// String returns the string representation of a ProviderAPIKeyScheme.
func (paks ProviderAPIKeyScheme) String() string {
	return string(paks)
}

// API key authentication schemes.
const (
	ProviderAPIKeySchemeBearer ProviderAPIKeyScheme = "Bearer" // Bearer token authentication (OAuth 2.0 style)
	ProviderAPIKeySchemeBasic  ProviderAPIKeyScheme = "Basic"  // Basic authentication
	ProviderAPIKeySchemeDirect ProviderAPIKeyScheme = ""       // Direct value (no scheme prefix)
)

// ProviderID represents a provider identifier type for compile-time safety.
type ProviderID string

// String returns the string representation of a ProviderID.
func (pid ProviderID) String() string {
	return string(pid)
}

// EnvVar returns the conventional <PROVIDER>_API_KEY variable name for the id.
func (pid ProviderID) EnvVar() string {
	name := strings.ToUpper(string(pid))
	name = strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(name)
	return name + "_API_KEY"
}

// DisplayName returns the provider name, falling back to a title-cased id.
func (p *Provider) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return cases.Title(language.English).String(strings.ReplaceAll(string(p.ID), "-", " "))
}

// EnvVars lists every environment variable that may carry the provider's key,
// in lookup order and without duplicates.
func (p *Provider) EnvVars() []string {
	var names []string
	seen := make(map[string]bool)
	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		names = append(names, name)
	}
	if p.APIKey != nil {
		add(p.APIKey.Name)
		for _, alias := range p.APIKey.Aliases {
			add(alias)
		}
	}
	add(p.ID.EnvVar())
	return names
}

// Model returns a model by id.
func (p *Provider) Model(id string) (*Model, bool) {
	m, ok := p.Models[id]
	return m, ok
}

// ModelList returns the provider's models sorted by id.
func (p *Provider) ModelList() []*Model {
	models := make([]*Model, 0, len(p.Models))
	for _, m := range p.Models {
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool {
		return models[i].ID < models[j].ID
	})
	return models
}

// ModelIDs returns the provider's model ids sorted.
func (p *Provider) ModelIDs() []string {
	ids := make([]string, 0, len(p.Models))
	for id := range p.Models {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
