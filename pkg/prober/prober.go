// Package prober checks every provider's auth status in parallel through the
// auth status cache, bounding each provider and the whole pass by a timeout.
package prober

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/agentstation/modelpick/internal/metrics"
	"github.com/agentstation/modelpick/pkg/auth"
	"github.com/agentstation/modelpick/pkg/catalogs"
	"github.com/agentstation/modelpick/pkg/constants"
	"github.com/agentstation/modelpick/pkg/errors"
	"github.com/agentstation/modelpick/pkg/logging"
)

// Source is the status lookup probed per provider; *authcache.Cache satisfies it.
type Source interface {
	Get(ctx context.Context, providerID catalogs.ProviderID) (auth.Status, error)
}

// Result is one provider's outcome in a probe pass.
type Result struct {
	ProviderID catalogs.ProviderID `json:"provider_id" yaml:"provider_id"`
	Status     auth.Status         `json:"status" yaml:"status"`
	Err        error               `json:"-" yaml:"-"`
	TimedOut   bool                `json:"timed_out" yaml:"timed_out"`
}

// Results is an unordered set of outcomes keyed by provider id.
type Results map[catalogs.ProviderID]Result

// Authenticated returns the ids of authenticated providers.
func (r Results) Authenticated() []catalogs.ProviderID {
	var ids []catalogs.ProviderID
	for id, res := range r {
		if res.Status.Authenticated {
			ids = append(ids, id)
		}
	}
	return ids
}

// Prober fans status lookups out over a bounded worker pool.
type Prober struct {
	source          Source
	timeout         time.Duration
	providerTimeout time.Duration
	concurrency     int
	logger          *zerolog.Logger
}

// Option configures a Prober.
type Option func(*Prober)

// WithTimeout sets the aggregate deadline for a pass.
func WithTimeout(d time.Duration) Option {
	return func(p *Prober) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithProviderTimeout sets the per-provider deadline.
func WithProviderTimeout(d time.Duration) Option {
	return func(p *Prober) {
		if d > 0 {
			p.providerTimeout = d
		}
	}
}

// WithConcurrency caps how many providers are checked at once.
func WithConcurrency(n int) Option {
	return func(p *Prober) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(p *Prober) {
		p.logger = logger
	}
}

// New creates a prober over source.
func New(source Source, opts ...Option) *Prober {
	p := &Prober{
		source:          source,
		timeout:         constants.ProbeTimeout,
		providerTimeout: constants.ProbeProviderTimeout,
		concurrency:     constants.ProbeConcurrency,
		logger:          logging.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe looks up every provider and returns once all have answered or the
// aggregate timeout passes. Providers without an answer in time are reported
// unauthenticated with Health unknown and TimedOut set. One provider's
// failure never affects another's result.
func (p *Prober) Probe(ctx context.Context, providerIDs []catalogs.ProviderID) Results {
	start := time.Now()
	defer func() {
		metrics.ProbeDuration.Observe(time.Since(start).Seconds())
	}()

	providerIDs = dedupe(providerIDs)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	// Buffered so workers never block once the pass has been abandoned.
	out := make(chan Result, len(providerIDs))

	var g errgroup.Group
	g.SetLimit(p.concurrency)

	go func() {
		for _, id := range providerIDs {
			if ctx.Err() != nil {
				return
			}
			g.Go(func() error {
				out <- p.probeOne(ctx, id)
				return nil
			})
		}
	}()

	results := make(Results, len(providerIDs))
	for len(results) < len(providerIDs) {
		select {
		case r := <-out:
			results[r.ProviderID] = r
		case <-ctx.Done():
			p.fillTimedOut(results, providerIDs)
			return results
		}
	}
	return results
}

func (p *Prober) probeOne(ctx context.Context, id catalogs.ProviderID) Result {
	ctx, cancel := context.WithTimeout(ctx, p.providerTimeout)
	defer cancel()

	status, err := p.source.Get(logging.WithProvider(ctx, string(id)), id)
	res := Result{ProviderID: id, Status: status, Err: err}
	if err != nil {
		res.Status.Authenticated = false
		res.Status.Health = auth.HealthUnknown
		res.TimedOut = ctx.Err() != nil || errors.IsTimeout(err)
	}

	switch {
	case res.TimedOut:
		metrics.ProbeResultsTotal.WithLabelValues("timeout").Inc()
	case err != nil:
		metrics.ProbeResultsTotal.WithLabelValues("error").Inc()
	default:
		metrics.ProbeResultsTotal.WithLabelValues("ok").Inc()
	}
	if err != nil {
		p.logger.Debug().Err(err).Str("provider_id", string(id)).Bool("timed_out", res.TimedOut).Msg("probe failed")
	}
	return res
}

func (p *Prober) fillTimedOut(results Results, ids []catalogs.ProviderID) {
	answered := len(results)
	for _, id := range ids {
		if _, ok := results[id]; ok {
			continue
		}
		results[id] = Result{
			ProviderID: id,
			Status:     auth.Status{Health: auth.HealthUnknown},
			Err:        errors.NewTimeoutError("probe", p.timeout.String(), "no answer from "+string(id)),
			TimedOut:   true,
		}
		metrics.ProbeResultsTotal.WithLabelValues("timeout").Inc()
	}
	p.logger.Warn().Int("answered", answered).Int("providers", len(ids)).Dur("timeout", p.timeout).Msg("probe pass timed out")
}

func dedupe(ids []catalogs.ProviderID) []catalogs.ProviderID {
	seen := make(map[catalogs.ProviderID]bool, len(ids))
	out := make([]catalogs.ProviderID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
