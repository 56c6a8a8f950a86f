package authflow_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/modelpick/pkg/auth"
	"github.com/agentstation/modelpick/pkg/authcache"
	"github.com/agentstation/modelpick/pkg/authflow"
	"github.com/agentstation/modelpick/pkg/catalogs"
	"github.com/agentstation/modelpick/pkg/credentials"
	"github.com/agentstation/modelpick/pkg/errors"
	"github.com/agentstation/modelpick/pkg/events"
	"github.com/agentstation/modelpick/pkg/logging"
	"github.com/agentstation/modelpick/pkg/picker"
	"github.com/agentstation/modelpick/pkg/recent"
)

// fakeGateway answers from fixed results. gate, when set, holds calls until
// closed or the context ends.
type fakeGateway struct {
	authResult   auth.AuthResult
	authErr      error
	detectResult auth.DetectResult
	detectErr    error
	gate         chan struct{}
	calls        atomic.Int32
	requestID    atomic.Value
}

func (f *fakeGateway) wait(ctx context.Context) error {
	if f.gate == nil {
		return nil
	}
	select {
	case <-f.gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeGateway) Authenticate(ctx context.Context, id catalogs.ProviderID, _ string, _ time.Duration) (auth.AuthResult, error) {
	f.calls.Add(1)
	f.requestID.Store(logging.RequestID(ctx))
	if err := f.wait(ctx); err != nil {
		return auth.AuthResult{}, err
	}
	if f.authErr != nil {
		return auth.AuthResult{}, f.authErr
	}
	r := f.authResult
	r.ProviderID = id
	return r, nil
}

func (f *fakeGateway) AutoDetect(ctx context.Context, _ time.Duration) (auth.DetectResult, error) {
	f.calls.Add(1)
	if err := f.wait(ctx); err != nil {
		return auth.DetectResult{}, err
	}
	return f.detectResult, f.detectErr
}

type fakeInvalidator struct {
	invalidated []catalogs.ProviderID
	all         int
}

func (f *fakeInvalidator) Invalidate(id catalogs.ProviderID) { f.invalidated = append(f.invalidated, id) }
func (f *fakeInvalidator) InvalidateAll()                    { f.all++ }

// run executes cmd and returns the messages it produced, flattening batches.
func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, run(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

// settle feeds cmd's messages back into m until only events remain.
func settle(m *authflow.Machine, cmd tea.Cmd) []events.Event {
	var out []events.Event
	for _, msg := range run(cmd) {
		if ev, ok := msg.(events.Event); ok {
			out = append(out, ev)
			continue
		}
		out = append(out, settle(m, m.Update(msg))...)
	}
	return out
}

func openAIModels(n int) map[string]*catalogs.Model {
	out := make(map[string]*catalogs.Model, n)
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("gpt-test-%d", i)
		out[id] = &catalogs.Model{ID: id, Name: fmt.Sprintf("GPT Test %d", i)}
	}
	return out
}

func testCatalog(t *testing.T) *catalogs.Catalog {
	t.Helper()
	cat, err := catalogs.New(
		&catalogs.Provider{
			ID:      "openai",
			Name:    "OpenAI",
			APIKey:  &catalogs.ProviderAPIKey{Name: "OPENAI_API_KEY", Pattern: "^sk-"},
			Catalog: &catalogs.ProviderCatalog{APIURL: "https://api.openai.test/v1/models"},
			Models:  openAIModels(8),
		},
		&catalogs.Provider{ID: "groq", Name: "Groq", Models: openAIModels(1)},
	)
	require.NoError(t, err)
	return cat
}

func newMachine(t *testing.T, gw authflow.Gateway, inv authflow.Invalidator) *authflow.Machine {
	t.Helper()
	return authflow.New(gw, inv, testCatalog(t), authflow.WithLogger(logging.NewNopLogger()))
}

func TestOpenPrompt(t *testing.T) {
	m := newMachine(t, &fakeGateway{}, &fakeInvalidator{})
	assert.Equal(t, authflow.Browsing{}, m.State())

	assert.Nil(t, m.Update(authflow.OpenPrompt{ProviderID: "openai"}))
	assert.Equal(t, authflow.Prompting{ProviderID: "openai", ProviderName: "OpenAI"}, m.State())

	m.Update(authflow.EditDraft{Draft: "sk-abc"})
	assert.Equal(t, "sk-abc", m.State().(authflow.Prompting).Draft)
}

func TestOpenPromptUnknownProvider(t *testing.T) {
	m := newMachine(t, &fakeGateway{}, &fakeInvalidator{})
	evs := settle(m, m.Update(authflow.OpenPrompt{ProviderID: "nope"}))

	require.Len(t, evs, 1)
	failure := evs[0].(events.AuthFailure)
	assert.Equal(t, errors.KindNotFound, failure.Kind)
	assert.Equal(t, authflow.Browsing{}, m.State())
}

func TestSubmitSuccess(t *testing.T) {
	gw := &fakeGateway{authResult: auth.AuthResult{ModelCount: 8}}
	inv := &fakeInvalidator{}
	m := newMachine(t, gw, inv)

	m.Update(authflow.OpenPrompt{ProviderID: "openai"})
	m.Update(authflow.EditDraft{Draft: "  sk-abc  "})
	cmd := m.Update(authflow.Submit{})
	require.NotNil(t, cmd)
	assert.True(t, m.State().(authflow.Prompting).Submitting)
	assert.True(t, authflow.Busy(m.State()))

	evs := settle(m, cmd)
	assert.Equal(t, []events.Event{events.AuthSuccess{ProviderID: "openai", ModelCount: 8}}, evs)
	assert.Equal(t, []catalogs.ProviderID{"openai"}, inv.invalidated)
	assert.Equal(t, authflow.Browsing{}, m.State())
}

func TestSubmitTagsRequestLogs(t *testing.T) {
	tl := logging.NewTestLogger(t)
	gw := &fakeGateway{authResult: auth.AuthResult{ModelCount: 1}}
	m := authflow.New(gw, &fakeInvalidator{}, testCatalog(t), authflow.WithLogger(tl.Logger))

	m.Update(authflow.OpenPrompt{ProviderID: "openai"})
	m.Update(authflow.EditDraft{Draft: "sk-secret-value"})
	settle(m, m.Update(authflow.Submit{}))

	id, _ := gw.requestID.Load().(string)
	require.NotEmpty(t, id)
	tl.AssertContains(t, `"request_id":"`+id+`"`)
	tl.AssertContains(t, `"operation":"authenticate"`)
	tl.AssertContains(t, `"provider_id":"openai"`)
	tl.AssertNotContains(t, "sk-secret-value")
}

func TestSubmitFailureKeepsDraft(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		kind      errors.Kind
		retryable bool
	}{
		{"rejected", errors.NewAuthenticationError("openai", "api_key", "invalid key", nil), errors.KindInvalidCredential, false},
		{"network", errors.NewNetworkError("openai", "authenticate", context.DeadlineExceeded), errors.KindNetwork, true},
		{"format", errors.NewValidationError("secret", nil, "does not match"), errors.KindInvalidFormat, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &fakeInvalidator{}
			m := newMachine(t, &fakeGateway{authErr: tt.err}, inv)
			m.Update(authflow.OpenPrompt{ProviderID: "openai"})
			m.Update(authflow.EditDraft{Draft: "sk-bad"})

			evs := settle(m, m.Update(authflow.Submit{}))
			require.Len(t, evs, 1)
			failure := evs[0].(events.AuthFailure)
			assert.Equal(t, tt.kind, failure.Kind)
			assert.Equal(t, tt.retryable, failure.Retryable)

			p, ok := m.State().(authflow.Prompting)
			require.True(t, ok)
			assert.Equal(t, "sk-bad", p.Draft)
			assert.False(t, p.Submitting)
			require.NotNil(t, p.Failure)
			assert.Equal(t, failure, *p.Failure)
			assert.Empty(t, inv.invalidated)
		})
	}
}

func TestSubmitEmptyDraft(t *testing.T) {
	gw := &fakeGateway{}
	m := newMachine(t, gw, &fakeInvalidator{})
	m.Update(authflow.OpenPrompt{ProviderID: "openai"})
	m.Update(authflow.EditDraft{Draft: "   "})

	evs := settle(m, m.Update(authflow.Submit{}))
	require.Len(t, evs, 1)
	assert.Equal(t, errors.KindInvalidFormat, evs[0].(events.AuthFailure).Kind)
	assert.NotNil(t, m.State().(authflow.Prompting).Failure)
	assert.Zero(t, gw.calls.Load())
}

func TestSubmitIgnoredWhileSubmitting(t *testing.T) {
	gw := &fakeGateway{gate: make(chan struct{})}
	m := newMachine(t, gw, &fakeInvalidator{})
	m.Update(authflow.OpenPrompt{ProviderID: "openai"})
	m.Update(authflow.EditDraft{Draft: "sk-abc"})
	require.NotNil(t, m.Update(authflow.Submit{}))

	assert.Nil(t, m.Update(authflow.Submit{}))
	m.Update(authflow.EditDraft{Draft: "changed"})
	assert.Equal(t, "sk-abc", m.State().(authflow.Prompting).Draft)
}

func TestCancelDiscardsLateResult(t *testing.T) {
	gw := &fakeGateway{authResult: auth.AuthResult{ModelCount: 8}, gate: make(chan struct{})}
	inv := &fakeInvalidator{}
	m := newMachine(t, gw, inv)
	m.Update(authflow.OpenPrompt{ProviderID: "openai"})
	m.Update(authflow.EditDraft{Draft: "sk-abc"})
	cmd := m.Update(authflow.Submit{})

	assert.Nil(t, m.Update(authflow.Cancel{}))
	assert.Equal(t, authflow.Browsing{}, m.State())

	// The request context is canceled, so the command returns promptly.
	evs := settle(m, cmd)
	assert.Empty(t, evs)
	assert.Empty(t, inv.invalidated)
	assert.Equal(t, authflow.Browsing{}, m.State())
}

func TestReopenedPromptIgnoresEarlierRequest(t *testing.T) {
	gw := &fakeGateway{authResult: auth.AuthResult{ModelCount: 8}, gate: make(chan struct{})}
	inv := &fakeInvalidator{}
	m := newMachine(t, gw, inv)
	m.Update(authflow.OpenPrompt{ProviderID: "openai"})
	m.Update(authflow.EditDraft{Draft: "sk-abc"})
	stale := m.Update(authflow.Submit{})

	m.Update(authflow.OpenPrompt{ProviderID: "groq"})
	assert.Empty(t, settle(m, stale))
	assert.Equal(t, authflow.Prompting{ProviderID: "groq", ProviderName: "Groq"}, m.State())
}

func TestAutoDetectNothingFound(t *testing.T) {
	gw := &fakeGateway{detectResult: auth.DetectResult{}}
	inv := &fakeInvalidator{}
	m := newMachine(t, gw, inv)

	cmd := m.Update(authflow.AutoDetect{})
	assert.Equal(t, authflow.Browsing{Detecting: true}, m.State())

	evs := settle(m, cmd)
	assert.Equal(t, []events.Event{events.NoCredentialsFound{}}, evs)
	assert.Zero(t, inv.all)
	assert.Empty(t, inv.invalidated)
	assert.Equal(t, authflow.Browsing{}, m.State())
}

func TestAutoDetectFromPrompt(t *testing.T) {
	gw := &fakeGateway{detectResult: auth.DetectResult{FoundCount: 2, ProviderIDs: []catalogs.ProviderID{"groq", "openai"}}}
	inv := &fakeInvalidator{}
	m := newMachine(t, gw, inv)
	m.Update(authflow.OpenPrompt{ProviderID: "openai"})

	evs := settle(m, m.Update(authflow.AutoDetect{}))
	assert.ElementsMatch(t, []events.Event{
		events.CredentialsDetected{ProviderIDs: []catalogs.ProviderID{"groq", "openai"}},
		events.AuthStatusRefreshed{},
	}, evs)
	assert.Equal(t, 1, inv.all)
	assert.Equal(t, authflow.Browsing{}, m.State())
}

func TestAutoDetectNothingFoundKeepsPrompt(t *testing.T) {
	m := newMachine(t, &fakeGateway{}, &fakeInvalidator{})
	m.Update(authflow.OpenPrompt{ProviderID: "openai"})
	m.Update(authflow.EditDraft{Draft: "sk-partial"})

	evs := settle(m, m.Update(authflow.AutoDetect{}))
	assert.Equal(t, []events.Event{events.NoCredentialsFound{}}, evs)
	p := m.State().(authflow.Prompting)
	assert.Equal(t, "sk-partial", p.Draft)
	assert.False(t, p.Detecting)
}

func TestAutoDetectFailure(t *testing.T) {
	m := newMachine(t, &fakeGateway{detectErr: errors.NewNetworkError("", "auto_detect", context.DeadlineExceeded)}, &fakeInvalidator{})
	evs := settle(m, m.Update(authflow.AutoDetect{}))
	require.Len(t, evs, 1)
	failure := evs[0].(events.AuthFailure)
	assert.Equal(t, "auto_detect", failure.Operation)
	assert.True(t, failure.Retryable)
}

// An unauthenticated provider becomes selectable after a successful prompt,
// end to end through the gateway, cache and builder.
func TestUnlockFlow(t *testing.T) {
	cat := testCatalog(t)
	gw := auth.New(cat, credentials.NewMemory(),
		auth.WithValidator(countValidator(8)),
		auth.WithEnv(func(string) (string, bool) { return "", false }),
		auth.WithDotEnvFiles(),
		auth.WithOpenCodePath(""),
		auth.WithLogger(logging.NewNopLogger()),
	)
	cache := authcache.New(gw, authcache.WithLogger(logging.NewNopLogger()))
	builder := picker.New(cat, cache, recent.New(), picker.WithLogger(logging.NewNopLogger()))
	m := authflow.New(gw, cache, cat, authflow.WithLogger(logging.NewNopLogger()))

	ctx := context.Background()
	status, err := cache.Get(ctx, "openai")
	require.NoError(t, err)
	require.False(t, status.Authenticated)
	for _, it := range builder.Grouped().Items() {
		if it.ProviderID == "openai" {
			assert.False(t, it.Selectable, it.ModelID)
		}
	}

	m.Update(authflow.OpenPrompt{ProviderID: "openai"})
	m.Update(authflow.EditDraft{Draft: "sk-test-valid"})
	evs := settle(m, m.Update(authflow.Submit{}))
	assert.Equal(t, []events.Event{events.AuthSuccess{ProviderID: "openai", ModelCount: 8}}, evs)

	_, cached := cache.Peek("openai")
	assert.False(t, cached, "authenticate invalidates the cached status")

	status, err = cache.Get(ctx, "openai")
	require.NoError(t, err)
	assert.True(t, status.Authenticated)

	selectable := 0
	for _, it := range builder.Grouped().Items() {
		if it.ProviderID == "openai" && it.Selectable {
			selectable++
		}
	}
	assert.Equal(t, 8, selectable)
}

type countValidator int

func (c countValidator) CountModels(context.Context, *catalogs.Provider, string) (int, error) {
	return int(c), nil
}
