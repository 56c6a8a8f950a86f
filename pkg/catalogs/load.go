package catalogs

import (
	"os"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/modelpick/internal/embedded"
	"github.com/agentstation/modelpick/pkg/errors"
)

// providerYAML is the on-disk shape of a provider: models are a list.
type providerYAML struct {
	Provider `yaml:",inline"`
	Models   []*Model `yaml:"models"`
}

// Parse builds a catalog from providers.yaml content.
func Parse(data []byte) (*Catalog, error) {
	var raw []providerYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.WrapParse("yaml", "providers.yaml", err)
	}

	providers := make([]*Provider, 0, len(raw))
	for i := range raw {
		p := raw[i].Provider
		p.Models = make(map[string]*Model, len(raw[i].Models))
		for _, m := range raw[i].Models {
			if m == nil || m.ID == "" {
				return nil, errors.NewValidationError("models", p.ID, "model id must not be empty")
			}
			p.Models[m.ID] = m
		}
		providers = append(providers, &p)
	}
	return New(providers...)
}

// LoadFile reads a providers.yaml file from disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	return Parse(data)
}

// Embedded returns the catalog compiled into the binary.
func Embedded() (*Catalog, error) {
	data, err := embedded.FS.ReadFile("catalog/providers.yaml")
	if err != nil {
		return nil, errors.WrapIO("read", "catalog/providers.yaml", err)
	}
	return Parse(data)
}

// Marshal renders the catalog back to providers.yaml form.
func (c *Catalog) Marshal() ([]byte, error) {
	out := make([]providerYAML, 0, c.Len())
	for _, p := range c.Providers() {
		out = append(out, providerYAML{Provider: *p, Models: p.ModelList()})
	}
	return yaml.Marshal(out)
}
