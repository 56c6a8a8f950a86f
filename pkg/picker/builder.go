// Package picker builds the model list the user picks from: a grouped view
// with recently used models on top, or a fuzzy-ranked flat view when a query
// is present. Selectability always comes from the cached auth status.
package picker

import (
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sahilm/fuzzy"

	"github.com/agentstation/modelpick/pkg/authcache"
	"github.com/agentstation/modelpick/pkg/catalogs"
	"github.com/agentstation/modelpick/pkg/errors"
	"github.com/agentstation/modelpick/pkg/logging"
	"github.com/agentstation/modelpick/pkg/recent"
)

// StatusSource reads cached auth statuses without refreshing them.
type StatusSource interface {
	Peek(providerID catalogs.ProviderID) (authcache.Entry, bool)
}

// Builder produces views over a catalog.
type Builder struct {
	catalog     *catalogs.Catalog
	statuses    StatusSource
	tracker     *recent.Tracker
	recentLimit int
	preferences map[catalogs.ProviderID][]string
	logger      *zerolog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithRecentLimit caps the Recent section. Defaults to the tracker's limit.
func WithRecentLimit(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.recentLimit = n
		}
	}
}

// WithPreferences sets per-provider ordered default model ids.
func WithPreferences(prefs map[catalogs.ProviderID][]string) Option {
	return func(b *Builder) {
		b.preferences = prefs
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// New creates a builder.
func New(catalog *catalogs.Catalog, statuses StatusSource, tracker *recent.Tracker, opts ...Option) *Builder {
	b := &Builder{
		catalog:     catalog,
		statuses:    statuses,
		tracker:     tracker,
		recentLimit: tracker.Limit(),
		logger:      logging.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build returns the grouped view for an empty query, the search view otherwise.
func (b *Builder) Build(query string) View {
	if strings.TrimSpace(query) == "" {
		return b.Grouped()
	}
	return b.Search(query)
}

// Grouped builds the Recent section followed by one group per provider.
// Models shown in Recent are not repeated in their provider's group.
func (b *Builder) Grouped() View {
	rank := b.tracker.Rank()
	view := View{Recent: []Item{}, Groups: []Group{}}

	shown := make(map[recent.Key]bool)
	for _, r := range b.tracker.List(0) {
		if len(view.Recent) >= b.recentLimit {
			break
		}
		p, err := b.catalog.Provider(r.ProviderID)
		if err != nil {
			b.logSkipped(r)
			continue
		}
		m, ok := p.Model(r.ModelID)
		if !ok {
			b.logSkipped(r)
			continue
		}
		item := b.item(p, m)
		item.Recent = true
		view.Recent = append(view.Recent, item)
		shown[r.Key()] = true
	}

	for _, p := range b.providersByName() {
		entry, ok := b.statuses.Peek(p.ID)
		group := Group{
			ProviderID:    p.ID,
			ProviderName:  p.DisplayName(),
			Marker:        markerFor(entry.Status, ok),
			Authenticated: ok && entry.Status.Authenticated,
		}
		for _, m := range orderModels(p, rank) {
			if shown[recent.Key{ProviderID: p.ID, ModelID: m.ID}] {
				continue
			}
			group.Items = append(group.Items, b.item(p, m))
		}
		if len(group.Items) > 0 {
			view.Groups = append(view.Groups, group)
		}
	}
	return view
}

// Search ranks every model against query. Each model is matched twice, as
// "Model Provider" and "Provider Model", and keeps its best match.
func (b *Builder) Search(query string) View {
	query = strings.TrimSpace(query)
	items := b.catalogOrder()

	targets := make([]string, 0, 2*len(items))
	for _, it := range items {
		targets = append(targets,
			it.ModelName+" "+it.ProviderName,
			it.ProviderName+" "+it.ModelName)
	}

	matches := fuzzy.Find(query, targets)
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Index < matches[j].Index
	})

	view := View{Query: query, Results: []Item{}}
	seen := make(map[itemKey]bool)
	for _, match := range matches {
		it := items[match.Index/2]
		if seen[it.key()] {
			continue
		}
		seen[it.key()] = true
		it.Score = match.Score
		view.Results = append(view.Results, it)
	}
	return view
}

// Select validates a pick. Locked providers fail with an AuthenticationError
// and models missing from the catalog with an InconsistencyError. A status
// older than the cache TTL is never trusted: the pick fails with a retryable
// TimeoutError until the status is refreshed.
func (b *Builder) Select(providerID catalogs.ProviderID, modelID string) (Item, error) {
	p, err := b.catalog.Provider(providerID)
	if err != nil {
		return Item{}, errors.NewInconsistencyError(string(providerID), modelID, "provider not in catalog")
	}
	m, ok := p.Model(modelID)
	if !ok {
		return Item{}, errors.NewInconsistencyError(string(providerID), modelID, "model not in catalog")
	}
	item := b.item(p, m)
	if entry, ok := b.statuses.Peek(p.ID); ok && !entry.Fresh {
		item.Selectable = false
		return item, errors.NewTimeoutError("auth_status", "", p.DisplayName()+" status has expired; refresh before selecting")
	}
	if !item.Selectable {
		return item, errors.NewAuthenticationError(string(providerID), "api_key", p.DisplayName()+" is locked; add a credential first", nil)
	}
	return item, nil
}

// DefaultModel picks a provider's default: the first configured preference
// present in the catalog, else the first model in group order.
func (b *Builder) DefaultModel(providerID catalogs.ProviderID) (*catalogs.Model, error) {
	p, err := b.catalog.Provider(providerID)
	if err != nil {
		return nil, err
	}
	for _, id := range b.preferences[providerID] {
		if m, ok := p.Model(id); ok {
			return m, nil
		}
	}
	ordered := orderModels(p, b.tracker.Rank())
	if len(ordered) == 0 {
		return nil, errors.NewNotFoundError("model", string(providerID)+"/*")
	}
	return ordered[0], nil
}

// catalogOrder lists every model in grouped order without a Recent section.
// It is the tie-breaking order for search results.
func (b *Builder) catalogOrder() []Item {
	rank := b.tracker.Rank()
	var items []Item
	for _, p := range b.providersByName() {
		for _, m := range orderModels(p, rank) {
			items = append(items, b.item(p, m))
		}
	}
	return items
}

func (b *Builder) item(p *catalogs.Provider, m *catalogs.Model) Item {
	entry, ok := b.statuses.Peek(p.ID)
	return Item{
		ProviderID:   p.ID,
		ProviderName: p.DisplayName(),
		ModelID:      m.ID,
		ModelName:    m.DisplayName(),
		ReleaseDate:  m.ReleaseDate,
		Selectable:   ok && entry.Status.Authenticated,
	}
}

// providersByName orders providers by display name, then id.
func (b *Builder) providersByName() []*catalogs.Provider {
	providers := b.catalog.Providers()
	sort.SliceStable(providers, func(i, j int) bool {
		a, c := strings.ToLower(providers[i].DisplayName()), strings.ToLower(providers[j].DisplayName())
		if a != c {
			return a < c
		}
		return providers[i].ID < providers[j].ID
	})
	return providers
}

func (b *Builder) logSkipped(r recent.Record) {
	err := errors.NewInconsistencyError(string(r.ProviderID), r.ModelID, "recently used model not in catalog")
	b.logger.Debug().Err(err).Msg("skipping recent entry")
}
