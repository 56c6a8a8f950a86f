package authcache_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/modelpick/pkg/auth"
	"github.com/agentstation/modelpick/pkg/authcache"
	"github.com/agentstation/modelpick/pkg/catalogs"
	"github.com/agentstation/modelpick/pkg/credentials"
	"github.com/agentstation/modelpick/pkg/errors"
	"github.com/agentstation/modelpick/pkg/logging"
)

// fakeChecker counts gateway calls. gate, when set, blocks checks until closed.
type fakeChecker struct {
	mu     sync.Mutex
	authed map[catalogs.ProviderID]bool
	health auth.Health
	err    error
	gate   chan struct{}

	checks  atomic.Int32
	healths atomic.Int32
}

func newFakeChecker() *fakeChecker {
	return &fakeChecker{authed: make(map[catalogs.ProviderID]bool), health: auth.HealthHealthy}
}

func (f *fakeChecker) setAuthed(id catalogs.ProviderID, v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authed[id] = v
}

func (f *fakeChecker) CheckAuthStatus(ctx context.Context, id catalogs.ProviderID, _ time.Duration) (auth.Status, error) {
	f.checks.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return auth.Status{}, f.err
	}
	return auth.Status{Authenticated: f.authed[id], ModelCount: 3}, nil
}

func (f *fakeChecker) GetProviderHealth(_ context.Context, id catalogs.ProviderID, _ time.Duration) (auth.HealthResult, error) {
	f.healths.Add(1)
	return auth.HealthResult{ProviderID: id, Health: f.health}, nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newCache(checker authcache.Checker, clk *clock) *authcache.Cache {
	return authcache.New(checker,
		authcache.WithClock(clk.Now),
		authcache.WithLogger(logging.NewNopLogger()))
}

func TestGetWithinTTLDoesNotRecheck(t *testing.T) {
	checker := newFakeChecker()
	checker.setAuthed("openai", true)
	clk := &clock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	cache := newCache(checker, clk)
	ctx := context.Background()

	first, err := cache.Get(ctx, "openai")
	require.NoError(t, err)
	assert.True(t, first.Authenticated)
	assert.Equal(t, auth.HealthHealthy, first.Health)
	assert.Equal(t, int32(1), checker.checks.Load())

	clk.Advance(29 * time.Second)
	second, err := cache.Get(ctx, "openai")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), checker.checks.Load())
	assert.Equal(t, int32(1), checker.healths.Load())

	clk.Advance(time.Second)
	_, err = cache.Get(ctx, "openai")
	require.NoError(t, err)
	assert.Equal(t, int32(2), checker.checks.Load(), "entry at the TTL boundary is stale")
}

func TestHealthOnlyProbedWhenAuthenticated(t *testing.T) {
	checker := newFakeChecker()
	cache := newCache(checker, &clock{now: time.Now()})

	st, err := cache.Get(context.Background(), "openai")
	require.NoError(t, err)
	assert.False(t, st.Authenticated)
	assert.Equal(t, auth.HealthUnknown, st.Health)
	assert.Equal(t, int32(0), checker.healths.Load())
}

func TestInvalidateForcesRecheck(t *testing.T) {
	checker := newFakeChecker()
	cache := newCache(checker, &clock{now: time.Now()})
	ctx := context.Background()

	st, err := cache.Get(ctx, "openai")
	require.NoError(t, err)
	assert.False(t, st.Authenticated)

	checker.setAuthed("openai", true)
	cache.Invalidate("openai")
	_, ok := cache.Peek("openai")
	assert.False(t, ok)

	st, err = cache.Get(ctx, "openai")
	require.NoError(t, err)
	assert.True(t, st.Authenticated)
	assert.Equal(t, int32(2), checker.checks.Load())
}

func TestInvalidationAfterAuthenticate(t *testing.T) {
	cat, err := catalogs.New(&catalogs.Provider{
		ID:     "openai",
		Models: map[string]*catalogs.Model{"gpt-5": {ID: "gpt-5"}},
	})
	require.NoError(t, err)
	gw := auth.New(cat, credentials.NewMemory(),
		auth.WithEnv(func(string) (string, bool) { return "", false }),
		auth.WithLogger(logging.NewNopLogger()))
	cache := authcache.New(gw, authcache.WithLogger(logging.NewNopLogger()))
	ctx := context.Background()

	st, err := cache.Get(ctx, "openai")
	require.NoError(t, err)
	require.False(t, st.Authenticated)

	_, err = gw.Authenticate(ctx, "openai", "sk-valid", 0)
	require.NoError(t, err)
	cache.Invalidate("openai")

	st, err = cache.Get(ctx, "openai")
	require.NoError(t, err)
	assert.True(t, st.Authenticated)
}

func TestErroredCheckIsNotCached(t *testing.T) {
	checker := newFakeChecker()
	checker.err = errors.NewTimeoutError("check_auth_status", "1s", "store hung")
	cache := newCache(checker, &clock{now: time.Now()})

	st, err := cache.Get(context.Background(), "openai")
	assert.True(t, errors.IsTimeout(err))
	assert.Equal(t, auth.HealthUnknown, st.Health)
	_, ok := cache.Peek("openai")
	assert.False(t, ok)

	checker.mu.Lock()
	checker.err = nil
	checker.mu.Unlock()
	_, err = cache.Get(context.Background(), "openai")
	require.NoError(t, err)
	assert.Equal(t, int32(2), checker.checks.Load())
}

func TestConcurrentGetsShareOneRefresh(t *testing.T) {
	checker := newFakeChecker()
	checker.gate = make(chan struct{})
	cache := newCache(checker, &clock{now: time.Now()})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.Get(context.Background(), "openai")
			assert.NoError(t, err)
		}()
	}

	require.Eventually(t, func() bool { return checker.checks.Load() >= 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(checker.gate)
	wg.Wait()

	assert.Equal(t, int32(1), checker.checks.Load())
}

func TestSlowProviderDoesNotBlockOthers(t *testing.T) {
	slow := newFakeChecker()
	slow.gate = make(chan struct{})
	defer close(slow.gate)

	// Route only "slow" through the gated checker.
	mux := &muxChecker{slow: slow, fast: newFakeChecker()}
	cache := newCache(mux, &clock{now: time.Now()})

	go func() { _, _ = cache.Get(context.Background(), "slow") }()
	require.Eventually(t, func() bool { return slow.checks.Load() == 1 }, time.Second, time.Millisecond)

	done := make(chan struct{})
	go func() {
		_, _ = cache.Get(context.Background(), "fast")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("read for another provider blocked behind a slow refresh")
	}
}

type muxChecker struct {
	slow, fast *fakeChecker
}

func (m *muxChecker) pick(id catalogs.ProviderID) *fakeChecker {
	if id == "slow" {
		return m.slow
	}
	return m.fast
}

func (m *muxChecker) CheckAuthStatus(ctx context.Context, id catalogs.ProviderID, d time.Duration) (auth.Status, error) {
	return m.pick(id).CheckAuthStatus(ctx, id, d)
}

func (m *muxChecker) GetProviderHealth(ctx context.Context, id catalogs.ProviderID, d time.Duration) (auth.HealthResult, error) {
	return m.pick(id).GetProviderHealth(ctx, id, d)
}

func TestInvalidateDiscardsInFlightResult(t *testing.T) {
	checker := newFakeChecker()
	checker.gate = make(chan struct{})
	cache := newCache(checker, &clock{now: time.Now()})

	done := make(chan auth.Status)
	go func() {
		st, _ := cache.Get(context.Background(), "openai")
		done <- st
	}()
	require.Eventually(t, func() bool { return checker.checks.Load() == 1 }, time.Second, time.Millisecond)

	cache.Invalidate("openai")
	close(checker.gate)
	<-done

	_, ok := cache.Peek("openai")
	assert.False(t, ok, "result computed before the invalidation must not be stored")
}

func TestInvalidateAllDiscardsInFlightResult(t *testing.T) {
	checker := newFakeChecker()
	checker.gate = make(chan struct{})
	cache := newCache(checker, &clock{now: time.Now()})

	done := make(chan struct{})
	go func() {
		_, _ = cache.Get(context.Background(), "openai")
		close(done)
	}()
	require.Eventually(t, func() bool { return checker.checks.Load() == 1 }, time.Second, time.Millisecond)

	cache.InvalidateAll()
	close(checker.gate)
	<-done

	assert.Empty(t, cache.Snapshot())
}

func TestCanceledCallerStillPopulatesCache(t *testing.T) {
	checker := newFakeChecker()
	checker.gate = make(chan struct{})
	checker.setAuthed("openai", true)
	cache := newCache(checker, &clock{now: time.Now()})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := cache.Get(ctx, "openai")
	assert.True(t, errors.IsNetwork(err))

	close(checker.gate)
	require.Eventually(t, func() bool {
		e, ok := cache.Peek("openai")
		return ok && e.Status.Authenticated
	}, time.Second, time.Millisecond)
	assert.True(t, cache.Authenticated("openai"))
}

func TestSnapshotAndPeekFreshness(t *testing.T) {
	checker := newFakeChecker()
	clk := &clock{now: time.Now()}
	cache := newCache(checker, clk)

	_, err := cache.Get(context.Background(), "openai")
	require.NoError(t, err)
	_, err = cache.Get(context.Background(), "anthropic")
	require.NoError(t, err)

	snap := cache.Snapshot()
	require.Len(t, snap, 2)
	assert.True(t, snap["openai"].Fresh)

	clk.Advance(cache.TTL())
	e, ok := cache.Peek("openai")
	require.True(t, ok)
	assert.False(t, e.Fresh)
}
