// Package authcache keeps a time-bounded auth status per provider on top of
// the credential gateway, so UI refreshes do not round-trip to the gateway.
//
// Entries are replaced whole. Refreshes for the same provider are shared
// between concurrent callers and no lock is held across gateway I/O, so a slow
// provider never blocks reads for the others.
package authcache

import (
	"context"
	"strconv"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/agentstation/utc"

	"github.com/agentstation/modelpick/internal/metrics"
	"github.com/agentstation/modelpick/pkg/auth"
	"github.com/agentstation/modelpick/pkg/catalogs"
	"github.com/agentstation/modelpick/pkg/constants"
	"github.com/agentstation/modelpick/pkg/errors"
	"github.com/agentstation/modelpick/pkg/logging"
)

// Checker is the part of auth.Gateway the cache needs.
type Checker interface {
	CheckAuthStatus(ctx context.Context, providerID catalogs.ProviderID, timeout time.Duration) (auth.Status, error)
	GetProviderHealth(ctx context.Context, providerID catalogs.ProviderID, timeout time.Duration) (auth.HealthResult, error)
}

// Entry is a cached status and when it was fetched.
type Entry struct {
	Status    auth.Status `json:"status" yaml:"status"`
	FetchedAt time.Time   `json:"fetched_at" yaml:"fetched_at"`
	Fresh     bool        `json:"fresh" yaml:"fresh"`
}

// Cache maps provider id to its latest auth status.
type Cache struct {
	checker Checker
	store   *gocache.Cache
	group   singleflight.Group

	ttl           time.Duration
	checkTimeout  time.Duration
	healthTimeout time.Duration
	now           func() time.Time
	logger        *zerolog.Logger

	mu          sync.Mutex // guards epoch, generations and generation-checked writes
	epoch       uint64
	generations map[catalogs.ProviderID]uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets how long an entry is trusted.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithTimeouts sets the per-call timeouts passed to the gateway.
func WithTimeouts(check, health time.Duration) Option {
	return func(c *Cache) {
		c.checkTimeout = check
		c.healthTimeout = health
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// New creates a cache in front of checker.
func New(checker Checker, opts ...Option) *Cache {
	c := &Cache{
		checker:       checker,
		store:         gocache.New(gocache.NoExpiration, constants.CacheCleanupInterval),
		ttl:           constants.AuthStatusTTL,
		checkTimeout:  constants.HealthCheckTimeout,
		healthTimeout: constants.HealthCheckTimeout,
		now:           time.Now,
		logger:        logging.Default(),
		generations:   make(map[catalogs.ProviderID]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the freshness window.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns a fresh status for the provider, recomputing it when the cached
// entry is missing or older than the TTL. Failed checks are returned but not
// cached. If ctx ends first the refresh keeps running and still populates the
// cache for later readers.
func (c *Cache) Get(ctx context.Context, providerID catalogs.ProviderID) (auth.Status, error) {
	if e, ok := c.lookup(providerID); ok && c.isFresh(e.FetchedAt) {
		metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
		return e.Status, nil
	}

	gen := c.generation(providerID)
	key := string(providerID) + "#" + strconv.FormatUint(gen, 10)
	detached := context.WithoutCancel(ctx)

	ch := c.group.DoChan(key, func() (any, error) {
		return c.refresh(detached, providerID, gen)
	})

	select {
	case r := <-ch:
		if r.Shared {
			metrics.CacheLookupsTotal.WithLabelValues("shared").Inc()
		} else {
			metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
		}
		if r.Err != nil {
			st, _ := r.Val.(auth.Status)
			return st, r.Err
		}
		return r.Val.(auth.Status), nil
	case <-ctx.Done():
		return auth.Status{Health: auth.HealthUnknown}, errors.NewNetworkError(string(providerID), "auth_status", ctx.Err())
	}
}

// refresh recomputes a provider's status and stores it unless the provider
// was invalidated after gen was read.
func (c *Cache) refresh(ctx context.Context, providerID catalogs.ProviderID, gen uint64) (auth.Status, error) {
	start := time.Now()
	defer func() {
		metrics.CacheRefreshDuration.Observe(time.Since(start).Seconds())
	}()

	status, err := c.checker.CheckAuthStatus(ctx, providerID, c.checkTimeout)
	if err != nil {
		c.logger.Debug().Err(err).Str("provider_id", string(providerID)).Msg("auth status check failed")
		status.Health = auth.HealthUnknown
		return status, err
	}

	if status.Authenticated {
		h, herr := c.checker.GetProviderHealth(ctx, providerID, c.healthTimeout)
		if herr != nil {
			c.logger.Debug().Err(herr).Str("provider_id", string(providerID)).Msg("health probe failed")
		}
		status.Health = h.Health
	} else {
		status.Health = auth.HealthUnknown
	}

	fetched := c.now()
	status.LastChecked = utc.New(fetched)

	c.mu.Lock()
	if c.generationLocked(providerID) == gen {
		c.store.Set(string(providerID), Entry{Status: status, FetchedAt: fetched}, gocache.NoExpiration)
	}
	c.mu.Unlock()
	return status, nil
}

// Peek returns the cached entry without refreshing it.
func (c *Cache) Peek(providerID catalogs.ProviderID) (Entry, bool) {
	e, ok := c.lookup(providerID)
	if !ok {
		return Entry{}, false
	}
	e.Fresh = c.isFresh(e.FetchedAt)
	return e, true
}

// Authenticated reports the cached authenticated flag, false when absent.
func (c *Cache) Authenticated(providerID catalogs.ProviderID) bool {
	e, ok := c.lookup(providerID)
	return ok && e.Status.Authenticated
}

// Snapshot returns every cached entry.
func (c *Cache) Snapshot() map[catalogs.ProviderID]Entry {
	items := c.store.Items()
	out := make(map[catalogs.ProviderID]Entry, len(items))
	for id, item := range items {
		e, ok := item.Object.(Entry)
		if !ok {
			continue
		}
		e.Fresh = c.isFresh(e.FetchedAt)
		out[catalogs.ProviderID(id)] = e
	}
	return out
}

// Invalidate drops a provider's entry. In-flight refreshes that started
// before the call will not write their result.
func (c *Cache) Invalidate(providerID catalogs.ProviderID) {
	metrics.CacheInvalidationsTotal.Inc()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[providerID]++
	c.store.Delete(string(providerID))
}

// InvalidateAll drops every entry.
func (c *Cache) InvalidateAll() {
	metrics.CacheInvalidationsTotal.Inc()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.store.Flush()
}

func (c *Cache) lookup(providerID catalogs.ProviderID) (Entry, bool) {
	v, ok := c.store.Get(string(providerID))
	if !ok {
		return Entry{}, false
	}
	e, ok := v.(Entry)
	return e, ok
}

func (c *Cache) generation(providerID catalogs.ProviderID) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generationLocked(providerID)
}

// generationLocked changes whenever the provider or the whole cache is invalidated.
func (c *Cache) generationLocked(providerID catalogs.ProviderID) uint64 {
	return c.epoch + c.generations[providerID]
}

func (c *Cache) isFresh(fetchedAt time.Time) bool {
	return c.now().Sub(fetchedAt) < c.ttl
}
