// Package transport performs the HTTP calls behind credential validation and
// provider health probes.
package transport

import (
	"context"
	"net/http"

	"github.com/agentstation/modelpick/pkg/catalogs"
	"github.com/agentstation/modelpick/pkg/constants"
	"github.com/agentstation/modelpick/pkg/errors"
)

// Client provides HTTP client functionality with authentication.
type Client struct {
	http *http.Client
}

// New creates a transport client. A nil http.Client gets a default with
// constants.DefaultHTTPTimeout; per-call deadlines come from the context.
func New(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: constants.DefaultHTTPTimeout}
	}
	return &Client{http: httpClient}
}

// Get performs an authenticated GET request. Transport failures, including
// context deadlines, come back as a NetworkError.
func (c *Client) Get(ctx context.Context, url string, provider *catalogs.Provider, secret string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.NewValidationError("url", url, err.Error())
	}

	req.Header.Set("Accept", "application/json")
	if secret != "" {
		ForProvider(provider).Apply(req, secret)
		addProviderHeaders(req, provider)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		id := ""
		if provider != nil {
			id = string(provider.ID)
		}
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, errors.NewNetworkError(id, "GET "+req.URL.Host, err)
	}
	return resp, nil
}

// addProviderHeaders sets the extra headers the catalog lists for provider.
func addProviderHeaders(req *http.Request, provider *catalogs.Provider) {
	if provider == nil || provider.APIKey == nil {
		return
	}
	for name, value := range provider.APIKey.Headers {
		req.Header.Set(name, value)
	}
}
