package transport

import (
	"net/http"

	"github.com/agentstation/modelpick/pkg/catalogs"
)

// Authenticator applies a secret to an outgoing request.
type Authenticator interface {
	Apply(req *http.Request, secret string)
}

// NoAuth sends requests unauthenticated, as for public status pages.
type NoAuth struct{}

// Apply implements Authenticator.
func (NoAuth) Apply(_ *http.Request, _ string) {}

// ProviderAuth applies a secret the way the provider's catalog entry describes:
// as a query parameter, or as a header with an optional scheme prefix.
type ProviderAuth struct {
	Key *catalogs.ProviderAPIKey
}

// Apply implements Authenticator.
func (a ProviderAuth) Apply(req *http.Request, secret string) {
	if a.Key == nil {
		req.Header.Set("Authorization", "Bearer "+secret)
		return
	}

	if a.Key.QueryParam != "" {
		if req.URL != nil {
			query := req.URL.Query()
			query.Set(a.Key.QueryParam, secret)
			req.URL.RawQuery = query.Encode()
		}
		return
	}

	header := a.Key.Header
	if header == "" {
		header = "Authorization"
	}

	switch a.Key.Scheme {
	case catalogs.ProviderAPIKeySchemeBearer, catalogs.ProviderAPIKeySchemeBasic:
		req.Header.Set(header, a.Key.Scheme.String()+" "+secret)
	default:
		req.Header.Set(header, secret)
	}
}

// ForProvider returns the Authenticator for a provider.
func ForProvider(provider *catalogs.Provider) Authenticator {
	if provider == nil {
		return NoAuth{}
	}
	return ProviderAuth{Key: provider.APIKey}
}
