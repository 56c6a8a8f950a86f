package auth

import (
	"context"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/modelpick/internal/transport"
	"github.com/agentstation/modelpick/pkg/catalogs"
	"github.com/agentstation/modelpick/pkg/credentials"
	"github.com/agentstation/modelpick/pkg/logging"
)

// Gateway is the uniform interface to check, set and discover credentials.
// A timeout of zero selects the package default for that operation.
type Gateway interface {
	CheckAuthStatus(ctx context.Context, providerID catalogs.ProviderID, timeout time.Duration) (Status, error)
	Authenticate(ctx context.Context, providerID catalogs.ProviderID, secret string, timeout time.Duration) (AuthResult, error)
	AutoDetect(ctx context.Context, timeout time.Duration) (DetectResult, error)
	GetProviderHealth(ctx context.Context, providerID catalogs.ProviderID, timeout time.Duration) (HealthResult, error)
	CLIProviders(ctx context.Context) ([]ProviderModels, error)
	Revoke(ctx context.Context, providerID catalogs.ProviderID) error
}

// Validator checks a secret against a provider and reports its model count.
type Validator interface {
	CountModels(ctx context.Context, provider *catalogs.Provider, secret string) (int, error)
}

// HealthSource fetches a provider's public status page.
type HealthSource interface {
	FetchStatusPage(ctx context.Context, provider *catalogs.Provider) (*transport.StatusPage, error)
}

// Service implements Gateway on top of a credentials.Store and a catalog.
type Service struct {
	catalog   *catalogs.Catalog
	store     credentials.Store
	validator Validator
	health    HealthSource
	logger    *zerolog.Logger
	writes    sync.Mutex // serializes credential store writes

	lookupEnv    func(string) (string, bool)
	dotEnvFiles  []string
	openCodePath string
}

var _ Gateway = (*Service)(nil)

// Option configures a Service.
type Option func(*Service)

// WithHTTPClient routes validation and health calls through httpClient.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(s *Service) {
		c := transport.New(httpClient)
		s.validator = c
		s.health = c
	}
}

// WithValidator replaces the remote credential validator.
func WithValidator(v Validator) Option {
	return func(s *Service) {
		s.validator = v
	}
}

// WithHealthSource replaces the status page client.
func WithHealthSource(h HealthSource) Option {
	return func(s *Service) {
		s.health = h
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithEnv replaces environment lookup, mainly for tests.
func WithEnv(lookup func(string) (string, bool)) Option {
	return func(s *Service) {
		s.lookupEnv = lookup
	}
}

// WithDotEnvFiles sets the dotenv files scanned by AutoDetect.
func WithDotEnvFiles(paths ...string) Option {
	return func(s *Service) {
		s.dotEnvFiles = paths
	}
}

// WithOpenCodePath sets the location of OpenCode's auth.json. Empty disables it.
func WithOpenCodePath(path string) Option {
	return func(s *Service) {
		s.openCodePath = path
	}
}

// New creates a gateway over catalog and store.
func New(catalog *catalogs.Catalog, store credentials.Store, opts ...Option) *Service {
	c := transport.New(nil)
	s := &Service{
		catalog:      catalog,
		store:        store,
		validator:    c,
		health:       c,
		logger:       logging.Default(),
		lookupEnv:    os.LookupEnv,
		dotEnvFiles:  []string{".env", ".env.local"},
		openCodePath: defaultOpenCodePath(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CLIProviders returns each provider's model ids, sorted by provider id.
func (s *Service) CLIProviders(_ context.Context) ([]ProviderModels, error) {
	providers := s.catalog.Providers()
	out := make([]ProviderModels, 0, len(providers))
	for _, p := range providers {
		out = append(out, ProviderModels{ProviderID: p.ID, ModelIDs: p.ModelIDs()})
	}
	return out, nil
}

// withTimeout derives a context bounded by timeout, or by def when timeout is zero.
func withTimeout(ctx context.Context, timeout, def time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = def
	}
	return context.WithTimeout(ctx, timeout)
}

// await runs fn in its own goroutine so a hung backend cannot outlive ctx.
func await[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()
	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// commit is await for operations that write to the credential store. Writes
// are serialized. If ctx ends before fn returns the caller gets ctx's error,
// and undo reverts fn's result should fn still succeed afterwards.
func commit[T any](ctx context.Context, mu *sync.Mutex, fn func() (T, error), undo func(T)) (T, error) {
	const (
		pending int32 = iota
		finished
		abandoned
	)
	type result struct {
		v   T
		err error
	}

	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	var state atomic.Int32
	ch := make(chan result, 1)
	go func() {
		mu.Lock()
		defer mu.Unlock()
		v, err := fn()
		if err == nil && !state.CompareAndSwap(pending, finished) {
			undo(v)
		}
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		if !state.CompareAndSwap(pending, abandoned) {
			// fn finished first and its result stands.
			r := <-ch
			return r.v, r.err
		}
		return zero, ctx.Err()
	}
}

// discard removes credentials written by an operation that was reported as
// failed.
func (s *Service) discard(providerIDs ...catalogs.ProviderID) {
	for _, id := range providerIDs {
		if err := s.store.Delete(string(id)); err != nil {
			s.logger.Error().Err(err).Str("provider_id", string(id)).Msg("could not roll back credential write")
			continue
		}
		s.logger.Warn().Str("provider_id", string(id)).Msg("rolled back credential write")
	}
}
