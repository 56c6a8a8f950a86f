package picker

import (
	"sort"
	"strings"

	"github.com/agentstation/modelpick/pkg/catalogs"
	"github.com/agentstation/modelpick/pkg/recent"
)

// orderModels sorts a provider's models: recently used first (most recent
// first), then by release date (newest first), then by display name, then
// by id. The order is total, so output never depends on map iteration.
func orderModels(p *catalogs.Provider, rank map[recent.Key]int) []*catalogs.Model {
	models := p.ModelList()
	sort.SliceStable(models, func(i, j int) bool {
		return less(p.ID, models[i], models[j], rank)
	})
	return models
}

func less(pid catalogs.ProviderID, a, b *catalogs.Model, rank map[recent.Key]int) bool {
	ra, usedA := rank[recent.Key{ProviderID: pid, ModelID: a.ID}]
	rb, usedB := rank[recent.Key{ProviderID: pid, ModelID: b.ID}]
	if usedA != usedB {
		return usedA
	}
	if usedA && ra != rb {
		return ra < rb
	}

	ta, datedA := a.Released()
	tb, datedB := b.Released()
	if datedA != datedB {
		return datedA
	}
	if datedA && !ta.Equal(tb) {
		return ta.After(tb)
	}

	na, nb := strings.ToLower(a.DisplayName()), strings.ToLower(b.DisplayName())
	if na != nb {
		return na < nb
	}
	if a.DisplayName() != b.DisplayName() {
		return a.DisplayName() < b.DisplayName()
	}
	return a.ID < b.ID
}
