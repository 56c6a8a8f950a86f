// Package catalogs holds the provider catalog: the providers the engine knows
// about and the models each of them exposes. A Catalog is read-only once
// built and safe to share between goroutines.
package catalogs

import (
	"sort"

	"github.com/agentstation/modelpick/pkg/errors"
)

// Catalog is an immutable set of providers.
type Catalog struct {
	providers map[ProviderID]*Provider
	ids       []ProviderID
}

// New builds a catalog from providers. Duplicate or empty ids are rejected.
func New(providers ...*Provider) (*Catalog, error) {
	cat := &Catalog{providers: make(map[ProviderID]*Provider, len(providers))}
	for _, p := range providers {
		if p == nil || p.ID == "" {
			return nil, errors.NewValidationError("id", "", "provider id must not be empty")
		}
		if _, dup := cat.providers[p.ID]; dup {
			return nil, errors.NewValidationError("id", p.ID, "duplicate provider")
		}
		if p.Models == nil {
			p.Models = make(map[string]*Model)
		}
		cat.providers[p.ID] = p
		cat.ids = append(cat.ids, p.ID)
	}
	sort.Slice(cat.ids, func(i, j int) bool { return cat.ids[i] < cat.ids[j] })
	return cat, nil
}

// Provider returns a provider by id.
func (c *Catalog) Provider(id ProviderID) (*Provider, error) {
	p, ok := c.providers[id]
	if !ok {
		return nil, errors.NewNotFoundError("provider", string(id))
	}
	return p, nil
}

// Model returns a model by provider and model id.
func (c *Catalog) Model(providerID ProviderID, modelID string) (*Model, error) {
	p, err := c.Provider(providerID)
	if err != nil {
		return nil, err
	}
	m, ok := p.Models[modelID]
	if !ok {
		return nil, errors.NewNotFoundError("model", string(providerID)+"/"+modelID)
	}
	return m, nil
}

// Has reports whether the catalog contains the given model.
func (c *Catalog) Has(providerID ProviderID, modelID string) bool {
	_, err := c.Model(providerID, modelID)
	return err == nil
}

// ProviderIDs returns all provider ids, sorted.
func (c *Catalog) ProviderIDs() []ProviderID {
	return append([]ProviderID(nil), c.ids...)
}

// Providers returns all providers sorted by id.
func (c *Catalog) Providers() []*Provider {
	out := make([]*Provider, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, c.providers[id])
	}
	return out
}

// Len returns the number of providers.
func (c *Catalog) Len() int {
	return len(c.ids)
}

// ModelCount returns the total number of models across providers.
func (c *Catalog) ModelCount() int {
	n := 0
	for _, p := range c.providers {
		n += len(p.Models)
	}
	return n
}
