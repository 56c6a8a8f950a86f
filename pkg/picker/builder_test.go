package picker_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/modelpick/pkg/auth"
	"github.com/agentstation/modelpick/pkg/authcache"
	"github.com/agentstation/modelpick/pkg/catalogs"
	"github.com/agentstation/modelpick/pkg/errors"
	"github.com/agentstation/modelpick/pkg/logging"
	"github.com/agentstation/modelpick/pkg/picker"
	"github.com/agentstation/modelpick/pkg/recent"
)

type statuses map[catalogs.ProviderID]auth.Status

func (s statuses) Peek(id catalogs.ProviderID) (authcache.Entry, bool) {
	st, ok := s[id]
	return authcache.Entry{Status: st, Fresh: true}, ok
}

// expired reports every status as older than the TTL.
type expired map[catalogs.ProviderID]auth.Status

func (s expired) Peek(id catalogs.ProviderID) (authcache.Entry, bool) {
	st, ok := s[id]
	return authcache.Entry{Status: st}, ok
}

func models(ms ...*catalogs.Model) map[string]*catalogs.Model {
	out := make(map[string]*catalogs.Model, len(ms))
	for _, m := range ms {
		out[m.ID] = m
	}
	return out
}

func testCatalog(t *testing.T) *catalogs.Catalog {
	t.Helper()
	cat, err := catalogs.New(
		&catalogs.Provider{ID: "openai", Name: "OpenAI", Models: models(
			&catalogs.Model{ID: "gpt-4o", Name: "GPT-4o", ReleaseDate: "2024-05-13"},
			&catalogs.Model{ID: "gpt-5", Name: "GPT-5", ReleaseDate: "2025-08-07"},
			&catalogs.Model{ID: "o3", Name: "o3", ReleaseDate: "2025-04"},
			&catalogs.Model{ID: "codex-mini", Name: "Codex mini"},
			&catalogs.Model{ID: "babbage", Name: "Babbage"},
		)},
		&catalogs.Provider{ID: "anthropic", Name: "Anthropic", Models: models(
			&catalogs.Model{ID: "claude-sonnet-4-5", Name: "Claude Sonnet 4.5", ReleaseDate: "2025-09-29"},
			&catalogs.Model{ID: "claude-opus-4-1", Name: "Claude Opus 4.1", ReleaseDate: "2025-08-05"},
		)},
		&catalogs.Provider{ID: "zeta", Name: "Acme Labs", Models: models(
			&catalogs.Model{ID: "sonic", Name: "Sonic Model"},
		)},
		&catalogs.Provider{ID: "empty", Name: "Empty"},
	)
	require.NoError(t, err)
	return cat
}

func newTracker() *recent.Tracker {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return recent.New(recent.WithClock(func() time.Time {
		now = now.Add(time.Second)
		return now
	}))
}

func newBuilder(t *testing.T, st statuses, tr *recent.Tracker, opts ...picker.Option) *picker.Builder {
	t.Helper()
	opts = append([]picker.Option{picker.WithLogger(logging.NewNopLogger())}, opts...)
	return picker.New(testCatalog(t), st, tr, opts...)
}

func ids(items []picker.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = string(it.ProviderID) + "/" + it.ModelID
	}
	return out
}

func TestGroupedOrdering(t *testing.T) {
	tr := newTracker()
	tr.RecordUse("openai", "gpt-4o")
	tr.RecordUse("openai", "babbage")

	b := newBuilder(t, statuses{"openai": {Authenticated: true, Health: auth.HealthHealthy}}, tr, picker.WithRecentLimit(1))
	view := b.Grouped()

	assert.False(t, view.Searching())
	assert.Equal(t, []string{"openai/babbage"}, ids(view.Recent))
	assert.True(t, view.Recent[0].Recent)

	var groups []string
	for _, g := range view.Groups {
		groups = append(groups, g.ProviderName)
	}
	// Alphabetical by display name; the provider with no models is omitted.
	assert.Equal(t, []string{"Acme Labs", "Anthropic", "OpenAI"}, groups)

	openai := view.Groups[2]
	want := []string{
		"openai/gpt-4o",     // used, but beyond the Recent cap
		"openai/gpt-5",      // newest release
		"openai/o3",         // older release, month precision
		"openai/codex-mini", // undated, by name
	}
	if diff := cmp.Diff(want, ids(openai.Items)); diff != "" {
		t.Errorf("openai group order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, picker.MarkerHealthy, openai.Marker)
	assert.Equal(t, picker.MarkerLocked, view.Groups[1].Marker)
	assert.Equal(t, 8, view.Len())
	assert.Len(t, view.Items(), 8)
}

func TestGroupedOrderingIsDeterministic(t *testing.T) {
	tr := newTracker()
	tr.RecordUse("anthropic", "claude-opus-4-1")
	st := statuses{"anthropic": {Authenticated: true}}

	first := newBuilder(t, st, tr).Grouped()
	for i := 0; i < 50; i++ {
		again := newBuilder(t, st, tr).Grouped()
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("run %d differs (-first +again):\n%s", i, diff)
		}
	}
}

func TestGroupMarkers(t *testing.T) {
	tests := []struct {
		status *auth.Status
		want   picker.Marker
	}{
		{nil, picker.MarkerLocked},
		{&auth.Status{Authenticated: false, Health: auth.HealthHealthy}, picker.MarkerLocked},
		{&auth.Status{Authenticated: true, Health: auth.HealthHealthy}, picker.MarkerHealthy},
		{&auth.Status{Authenticated: true, Health: auth.HealthDegraded}, picker.MarkerDegraded},
		{&auth.Status{Authenticated: true, Health: auth.HealthDown}, picker.MarkerDown},
		{&auth.Status{Authenticated: true}, picker.MarkerUnknown},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			st := statuses{}
			if tt.status != nil {
				st["anthropic"] = *tt.status
			}
			view := newBuilder(t, st, newTracker()).Grouped()
			assert.Equal(t, tt.want, view.Groups[1].Marker)
		})
	}
}

func TestRecentSkipsMissingModels(t *testing.T) {
	tr := newTracker()
	tr.RecordUse("openai", "gpt-5")
	tr.RecordUse("openai", "retired")
	tr.RecordUse("gone", "model")

	view := newBuilder(t, statuses{}, tr).Grouped()
	assert.Equal(t, []string{"openai/gpt-5"}, ids(view.Recent))
	// Stale records are skipped, not deleted.
	assert.Equal(t, 3, tr.Len())
}

func TestSelectabilityFollowsCachedStatus(t *testing.T) {
	st := statuses{
		"openai":    {Authenticated: true},
		"anthropic": {Authenticated: false},
	}
	b := newBuilder(t, st, newTracker())

	for _, view := range []picker.View{b.Grouped(), b.Search("o")} {
		for _, it := range view.Items() {
			assert.Equal(t, st[it.ProviderID].Authenticated, it.Selectable, "%s/%s", it.ProviderID, it.ModelID)
			assert.NotEmpty(t, it.ModelName)
			assert.NotEmpty(t, it.ProviderName)
		}
	}
}

func TestSearchRanksSonnet(t *testing.T) {
	b := newBuilder(t, statuses{"anthropic": {Authenticated: true}}, newTracker())
	view := b.Build("sonnet")

	require.True(t, view.Searching())
	require.NotEmpty(t, view.Results)
	assert.Equal(t, "claude-sonnet-4-5", view.Results[0].ModelID)
	assert.True(t, view.Results[0].Selectable)

	for i, it := range view.Results {
		if it.ModelID == "sonic" {
			assert.Greater(t, view.Results[0].Score, it.Score)
			assert.Greater(t, i, 0)
		}
	}
}

func TestSearchMatchesEitherOrder(t *testing.T) {
	b := newBuilder(t, statuses{}, newTracker())

	byModel := b.Search("opus anthropic")
	byProvider := b.Search("anthropic opus")
	require.NotEmpty(t, byModel.Results)
	require.NotEmpty(t, byProvider.Results)
	assert.Equal(t, "claude-opus-4-1", byModel.Results[0].ModelID)
	assert.Equal(t, "claude-opus-4-1", byProvider.Results[0].ModelID)
}

func TestSearchDeduplicates(t *testing.T) {
	b := newBuilder(t, statuses{}, newTracker())
	view := b.Search("gpt")

	seen := map[string]bool{}
	for _, id := range ids(view.Results) {
		assert.False(t, seen[id], "duplicate %s", id)
		seen[id] = true
	}
	assert.True(t, seen["openai/gpt-5"])
	assert.True(t, seen["openai/gpt-4o"])
}

func TestSearchTiesKeepCatalogOrder(t *testing.T) {
	var ms []*catalogs.Model
	for i := 0; i < 5; i++ {
		ms = append(ms, &catalogs.Model{ID: fmt.Sprintf("m%d", i), Name: fmt.Sprintf("Twin %d", i)})
	}
	cat, err := catalogs.New(&catalogs.Provider{ID: "p", Name: "P", Models: models(ms...)})
	require.NoError(t, err)

	b := picker.New(cat, statuses{}, newTracker(), picker.WithLogger(logging.NewNopLogger()))
	view := b.Search("twin")
	assert.Equal(t, []string{"p/m0", "p/m1", "p/m2", "p/m3", "p/m4"}, ids(view.Results))
}

func TestSelect(t *testing.T) {
	b := newBuilder(t, statuses{"openai": {Authenticated: true}}, newTracker())

	item, err := b.Select("openai", "gpt-5")
	require.NoError(t, err)
	assert.True(t, item.Selectable)

	item, err = b.Select("anthropic", "claude-opus-4-1")
	assert.ErrorIs(t, err, errors.ErrAPIKeyInvalid)
	assert.Equal(t, "Claude Opus 4.1", item.ModelName, "locked item is still fully specified")

	_, err = b.Select("openai", "gpt-2")
	assert.True(t, errors.IsInconsistent(err))
	assert.Equal(t, errors.KindInternal, errors.KindOf(err))
}

func TestSelectRefusesExpiredStatus(t *testing.T) {
	b := picker.New(testCatalog(t), expired{"openai": {Authenticated: true}}, newTracker(),
		picker.WithLogger(logging.NewNopLogger()))

	item, err := b.Select("openai", "gpt-5")
	require.Error(t, err)
	assert.True(t, errors.IsTimeout(err))
	assert.True(t, errors.KindOf(err).Retryable())
	assert.False(t, item.Selectable)
	assert.Equal(t, "GPT-5", item.ModelName)
}

func TestDefaultModel(t *testing.T) {
	prefs := map[catalogs.ProviderID][]string{
		"openai": {"gpt-9-preview", "o3", "gpt-5"},
	}
	b := newBuilder(t, statuses{}, newTracker(), picker.WithPreferences(prefs))

	m, err := b.DefaultModel("openai")
	require.NoError(t, err)
	assert.Equal(t, "o3", m.ID, "first preference present in the catalog wins")

	m, err = b.DefaultModel("anthropic")
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-5", m.ID, "falls back to the newest release")

	_, err = b.DefaultModel("empty")
	assert.True(t, errors.IsNotFound(err))

	_, err = b.DefaultModel("nope")
	assert.True(t, errors.IsNotFound(err))
}
