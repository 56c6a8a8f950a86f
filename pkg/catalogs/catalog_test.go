package catalogs_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/modelpick/pkg/catalogs"
	"github.com/agentstation/modelpick/pkg/errors"
)

const testYAML = `
- id: openai
  name: OpenAI
  api_key:
    name: OPENAI_API_KEY
    pattern: ^sk-
    header: Authorization
    scheme: Bearer
  catalog:
    api_url: https://api.openai.com/v1/models
  models:
    - id: gpt-5
      name: GPT-5
      release_date: "2025-08-07"
    - id: o3
      name: o3
- id: anthropic
  name: Anthropic
  api_key:
    name: ANTHROPIC_API_KEY
    aliases: [CLAUDE_API_KEY]
  health:
    api_url: https://status.anthropic.com/api/v2/status.json
  models:
    - id: claude-sonnet-4-5
      name: Claude Sonnet 4.5
`

func TestParse(t *testing.T) {
	cat, err := catalogs.Parse([]byte(testYAML))
	require.NoError(t, err)

	assert.Equal(t, []catalogs.ProviderID{"anthropic", "openai"}, cat.ProviderIDs())
	assert.Equal(t, 3, cat.ModelCount())

	openai, err := cat.Provider("openai")
	require.NoError(t, err)
	assert.Equal(t, catalogs.ProviderAPIKeySchemeBearer, openai.APIKey.Scheme)
	assert.Equal(t, "https://api.openai.com/v1/models", openai.Catalog.APIURL)
	assert.Equal(t, []string{"gpt-5", "o3"}, openai.ModelIDs())

	anthropic, err := cat.Provider("anthropic")
	require.NoError(t, err)
	require.NotNil(t, anthropic.Health)
	assert.Equal(t, "https://status.anthropic.com/api/v2/status.json", anthropic.Health.APIURL)

	m, err := cat.Model("anthropic", "claude-sonnet-4-5")
	require.NoError(t, err)
	assert.Equal(t, "Claude Sonnet 4.5", m.Name)
	assert.True(t, cat.Has("openai", "o3"))
	assert.False(t, cat.Has("openai", "gpt-2"))
}

func TestCatalogNotFound(t *testing.T) {
	cat, err := catalogs.Parse([]byte(testYAML))
	require.NoError(t, err)

	_, err = cat.Provider("nope")
	assert.True(t, errors.IsNotFound(err))

	_, err = cat.Model("openai", "nope")
	assert.True(t, errors.IsNotFound(err))
}

func TestNewRejectsDuplicates(t *testing.T) {
	_, err := catalogs.New(&catalogs.Provider{ID: "a"}, &catalogs.Provider{ID: "a"})
	assert.True(t, errors.IsValidationError(err))

	_, err = catalogs.New(&catalogs.Provider{})
	assert.True(t, errors.IsValidationError(err))
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := catalogs.Parse([]byte("- id: [unterminated"))
	var parseErr *errors.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestLoadFileAndMarshal(t *testing.T) {
	cat, err := catalogs.Parse([]byte(testYAML))
	require.NoError(t, err)

	data, err := cat.Marshal()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "providers.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	again, err := catalogs.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, cat.ProviderIDs(), again.ProviderIDs())
	assert.Equal(t, cat.ModelCount(), again.ModelCount())

	_, err = catalogs.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	var ioErr *errors.IOError
	assert.ErrorAs(t, err, &ioErr)
}

func TestEmbedded(t *testing.T) {
	cat, err := catalogs.Embedded()
	require.NoError(t, err)
	assert.Greater(t, cat.Len(), 0)

	for _, p := range cat.Providers() {
		assert.NotEmpty(t, p.DisplayName(), p.ID)
		assert.NotEmpty(t, p.Models, "provider %s has no models", p.ID)
	}

	anthropic, err := cat.Provider("anthropic")
	require.NoError(t, err)
	require.NotNil(t, anthropic.APIKey)
	assert.Equal(t, "2023-06-01", anthropic.APIKey.Headers["anthropic-version"])
}

func TestProviderEnvVars(t *testing.T) {
	tests := []struct {
		name     string
		provider catalogs.Provider
		want     []string
	}{
		{
			name:     "conventional name only",
			provider: catalogs.Provider{ID: "google-ai-studio"},
			want:     []string{"GOOGLE_AI_STUDIO_API_KEY"},
		},
		{
			name: "configured name with aliases",
			provider: catalogs.Provider{ID: "xai", APIKey: &catalogs.ProviderAPIKey{
				Name:    "XAI_API_KEY",
				Aliases: []string{"GROK_API_KEY", "XAI_API_KEY"},
			}},
			want: []string{"XAI_API_KEY", "GROK_API_KEY"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.provider.EnvVars())
		})
	}
}

func TestProviderDisplayName(t *testing.T) {
	assert.Equal(t, "OpenAI", (&catalogs.Provider{ID: "openai", Name: "OpenAI"}).DisplayName())
	assert.Equal(t, "Google Ai Studio", (&catalogs.Provider{ID: "google-ai-studio"}).DisplayName())
}

func TestModelReleased(t *testing.T) {
	tests := []struct {
		date string
		want time.Time
		ok   bool
	}{
		{"2025-08-07", time.Date(2025, 8, 7, 0, 0, 0, 0, time.UTC), true},
		{"2025-02", time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), true},
		{"2024", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"last tuesday", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			m := &catalogs.Model{ID: "m", ReleaseDate: tt.date}
			got, ok := m.Released()
			assert.Equal(t, tt.ok, ok)
			assert.True(t, tt.want.Equal(got))
		})
	}
}
