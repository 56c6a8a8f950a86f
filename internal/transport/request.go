package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/agentstation/modelpick/pkg/catalogs"
	"github.com/agentstation/modelpick/pkg/errors"
)

// maxBody caps how much of a response is read.
const maxBody = 8 << 20

// modelsResponse covers the list shapes used by OpenAI-compatible APIs
// ("data") and Google ("models").
type modelsResponse struct {
	Data   []json.RawMessage `json:"data"`
	Models []json.RawMessage `json:"models"`
}

// CountModels validates secret against the provider's models endpoint and
// returns how many models it lists. A 401 or 403 is an AuthenticationError.
func (c *Client) CountModels(ctx context.Context, provider *catalogs.Provider, secret string) (int, error) {
	if provider.Catalog == nil || provider.Catalog.APIURL == "" {
		return 0, errors.NewConfigError(string(provider.ID), "no models endpoint configured", nil)
	}

	resp, err := c.Get(ctx, provider.Catalog.APIURL, provider, secret)
	if err != nil {
		return 0, err
	}

	var body modelsResponse
	if err := decodeResponse(resp, string(provider.ID), &body); err != nil {
		return 0, err
	}
	return len(body.Data) + len(body.Models), nil
}

// StatusPage is the subset of an Atlassian Statuspage summary the probe reads.
type StatusPage struct {
	Status struct {
		Indicator   string `json:"indicator"`
		Description string `json:"description"`
	} `json:"status"`
	Components []struct {
		Name   string `json:"name"`
		Status string `json:"status"`
	} `json:"components"`
}

// FetchStatusPage fetches a provider's public status page.
func (c *Client) FetchStatusPage(ctx context.Context, provider *catalogs.Provider) (*StatusPage, error) {
	if provider.Health == nil || provider.Health.APIURL == "" {
		return nil, errors.NewConfigError(string(provider.ID), "no status page configured", nil)
	}
	resp, err := c.Get(ctx, provider.Health.APIURL, provider, "")
	if err != nil {
		return nil, err
	}
	var page StatusPage
	if err := decodeResponse(resp, string(provider.ID), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func decodeResponse(resp *http.Response, providerID string, target any) error {
	defer resp.Body.Close() //nolint:errcheck // read-only body

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return errors.WrapNetwork(providerID, "read response", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errors.NewAuthenticationError(providerID, "api_key", "credential rejected by provider", nil)
	case resp.StatusCode != http.StatusOK:
		apiErr := errors.NewAPIError(providerID, resp.StatusCode, http.StatusText(resp.StatusCode))
		apiErr.Endpoint = resp.Request.URL.Path
		return apiErr
	}

	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", "response", err)
	}
	return nil
}
