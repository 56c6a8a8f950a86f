// Package recent tracks which models the user actually selected, newest first.
//
// A Tracker is owned by a single event loop and is not synchronized.
package recent

import (
	"sort"
	"time"

	"github.com/agentstation/utc"

	"github.com/agentstation/modelpick/pkg/catalogs"
	"github.com/agentstation/modelpick/pkg/constants"
)

// Key identifies a model across providers.
type Key struct {
	ProviderID catalogs.ProviderID `json:"provider_id" yaml:"provider_id"`
	ModelID    string              `json:"model_id" yaml:"model_id"`
}

// Record is one selected model and when it was last selected.
type Record struct {
	ProviderID catalogs.ProviderID `json:"provider_id" yaml:"provider_id"`
	ModelID    string              `json:"model_id" yaml:"model_id"`
	LastUsed   utc.Time            `json:"last_used" yaml:"last_used"`

	// seq breaks ties between records stamped in the same clock tick.
	seq uint64
}

// Key returns the record's identity.
func (r Record) Key() Key {
	return Key{ProviderID: r.ProviderID, ModelID: r.ModelID}
}

// Tracker holds usage records keyed by (provider, model).
type Tracker struct {
	records map[Key]Record
	seq     uint64
	limit   int
	now     func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// WithLimit sets the default List size.
func WithLimit(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.limit = n
		}
	}
}

// New creates an empty tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		records: make(map[Key]Record),
		limit:   constants.RecentLimit,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Limit returns the default number of surfaced records.
func (t *Tracker) Limit() int {
	return t.limit
}

// RecordUse marks a model as just selected.
func (t *Tracker) RecordUse(providerID catalogs.ProviderID, modelID string) {
	t.seq++
	k := Key{ProviderID: providerID, ModelID: modelID}
	t.records[k] = Record{
		ProviderID: providerID,
		ModelID:    modelID,
		LastUsed:   utc.New(t.now()),
		seq:        t.seq,
	}
}

// Remove forgets a model. Removing an unknown model is a no-op.
func (t *Tracker) Remove(providerID catalogs.ProviderID, modelID string) {
	delete(t.records, Key{ProviderID: providerID, ModelID: modelID})
}

// Get returns the record for a model.
func (t *Tracker) Get(providerID catalogs.ProviderID, modelID string) (Record, bool) {
	r, ok := t.records[Key{ProviderID: providerID, ModelID: modelID}]
	return r, ok
}

// Len returns the number of stored records.
func (t *Tracker) Len() int {
	return len(t.records)
}

// List returns up to limit records, most recently used first. A limit of
// zero or less returns every record.
func (t *Tracker) List(limit int) []Record {
	all := t.sorted()
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all
}

// Rank returns each model's position in usage order, 0 being most recent.
func (t *Tracker) Rank() map[Key]int {
	all := t.sorted()
	rank := make(map[Key]int, len(all))
	for i, r := range all {
		rank[r.Key()] = i
	}
	return rank
}

func (t *Tracker) sorted() []Record {
	all := make([]Record, 0, len(t.records))
	for _, r := range t.records {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if !a.LastUsed.Time.Equal(b.LastUsed.Time) {
			return a.LastUsed.Time.After(b.LastUsed.Time)
		}
		return a.seq > b.seq
	})
	return all
}
