// Package modelpick wires the credential gateway, auth status cache, health
// prober, catalog builder, recently-used tracker and auth prompt into one
// engine that a TUI or CLI host drives.
package modelpick

import (
	"context"
	"fmt"
	"sort"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/agentstation/modelpick/pkg/auth"
	"github.com/agentstation/modelpick/pkg/authcache"
	"github.com/agentstation/modelpick/pkg/authflow"
	"github.com/agentstation/modelpick/pkg/catalogs"
	"github.com/agentstation/modelpick/pkg/credentials"
	"github.com/agentstation/modelpick/pkg/errors"
	"github.com/agentstation/modelpick/pkg/events"
	"github.com/agentstation/modelpick/pkg/logging"
	"github.com/agentstation/modelpick/pkg/picker"
	"github.com/agentstation/modelpick/pkg/prober"
	"github.com/agentstation/modelpick/pkg/recent"
)

// Engine drives provider authentication and model selection.
//
// An Engine is owned by one goroutine, the host's event loop. Only the
// auth status cache behind it is safe for concurrent use.
type Engine interface {
	// Catalog returns the provider catalog
	Catalog() *catalogs.Catalog

	// Gateway returns the credential gateway
	Gateway() auth.Gateway

	// Cache returns the auth status cache
	Cache() *authcache.Cache

	// Builder returns the model list builder
	Builder() *picker.Builder

	// Machine returns the auth prompt state machine
	Machine() *authflow.Machine

	// Probe refreshes auth statuses for the given providers, or all of them,
	// and emits AuthStatusRefreshed and CatalogUpdated
	Probe(ctx context.Context, providerIDs ...catalogs.ProviderID) prober.Results

	// Refresh runs the prober without emitting anything. It touches only the
	// auth status cache, so a host may call it off its event loop
	Refresh(ctx context.Context, providerIDs ...catalogs.ProviderID) prober.Results

	// Refreshed emits AuthStatusRefreshed and CatalogUpdated for the results
	// of a Refresh. It reads the recently used list and belongs on the loop
	Refreshed(results prober.Results) []events.Event

	// Status returns a provider's auth status, refreshing it when stale
	Status(ctx context.Context, providerID catalogs.ProviderID) (auth.Status, error)

	// View builds the model list for query; an empty query groups by provider
	View(query string) picker.View

	// Select validates a pick and records it as recently used
	Select(ctx context.Context, providerID catalogs.ProviderID, modelID string) (picker.Item, error)

	// DefaultModel returns the provider's preferred model
	DefaultModel(providerID catalogs.ProviderID) (*catalogs.Model, error)

	// Recent lists recently used models, newest first
	Recent(limit int) []recent.Record

	// Forget removes a model from the recently used list
	Forget(providerID catalogs.ProviderID, modelID string) error

	// Login authenticates a provider through the auth prompt
	Login(ctx context.Context, providerID catalogs.ProviderID, secret string) (events.AuthSuccess, error)

	// Logout removes a provider's stored credential
	Logout(ctx context.Context, providerID catalogs.ProviderID) error

	// Detect runs credential auto-detection through the auth prompt
	Detect(ctx context.Context) []events.Event

	// Dispatch feeds msg to the auth prompt and runs the resulting commands
	// to completion, returning every event emitted on the way
	Dispatch(ctx context.Context, msg tea.Msg) []events.Event

	// OnEvent registers a callback for every event
	OnEvent(EventHook)

	// OnAuthSuccess registers a callback for unlocked providers
	OnAuthSuccess(AuthSuccessHook)

	// OnAuthFailure registers a callback for failed auth operations
	OnAuthFailure(AuthFailureHook)

	// OnCatalogUpdated registers a callback for rebuilt views
	OnCatalogUpdated(CatalogUpdatedHook)
}

// engine is the internal implementation of the Engine interface
type engine struct {
	*hooks

	config  *config
	logger  *zerolog.Logger
	catalog *catalogs.Catalog
	gateway *auth.Service
	cache   *authcache.Cache
	prober  *prober.Prober
	tracker *recent.Tracker
	builder *picker.Builder
	machine *authflow.Machine
}

// New creates an Engine with the given options.
func New(opts ...Option) (Engine, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("applying options: %w", err)
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = logging.Default()
	}

	catalog, err := loadCatalog(cfg)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	store := cfg.store
	if store == nil {
		store = credentials.NewKeyring()
	}

	e := &engine{
		hooks:   newHooks(),
		config:  cfg,
		logger:  logger,
		catalog: catalog,
	}

	e.gateway = auth.New(catalog, store, gatewayOptions(cfg, logger)...)
	e.cache = authcache.New(e.gateway,
		authcache.WithTTL(cfg.authStatusTTL),
		authcache.WithClock(cfg.now),
		authcache.WithTimeouts(cfg.healthTimeout, cfg.healthTimeout),
		authcache.WithLogger(logger),
	)
	e.prober = prober.New(e.cache,
		prober.WithTimeout(cfg.probeTimeout),
		prober.WithProviderTimeout(cfg.probeProviderTimeout),
		prober.WithConcurrency(cfg.probeConcurrency),
		prober.WithLogger(logger),
	)

	e.tracker = recent.New(recent.WithClock(cfg.now), recent.WithLimit(cfg.recentLimit))
	if cfg.recentPath != "" {
		if err := e.tracker.Load(cfg.recentPath); err != nil {
			logger.Warn().Err(err).Str("path", cfg.recentPath).Msg("ignoring unreadable recent file")
		}
	}
	e.checkPreferences()

	e.builder = picker.New(catalog, e.cache, e.tracker,
		picker.WithRecentLimit(cfg.recentLimit),
		picker.WithPreferences(cfg.preferences),
		picker.WithLogger(logger),
	)
	e.machine = authflow.New(e.gateway, e.cache, catalog,
		authflow.WithTimeouts(cfg.authTimeout, cfg.detectTimeout),
		authflow.WithLogger(logger),
	)

	logger.Debug().
		Int("providers", catalog.Len()).
		Int("models", catalog.ModelCount()).
		Int("recent", e.tracker.Len()).
		Msg("engine ready")
	return e, nil
}

func loadCatalog(cfg *config) (*catalogs.Catalog, error) {
	switch {
	case cfg.catalog != nil:
		return cfg.catalog, nil
	case cfg.catalogFile != "":
		return catalogs.LoadFile(cfg.catalogFile)
	default:
		return catalogs.Embedded()
	}
}

func gatewayOptions(cfg *config, logger *zerolog.Logger) []auth.Option {
	opts := []auth.Option{auth.WithLogger(logger)}
	if cfg.httpClient != nil {
		opts = append(opts, auth.WithHTTPClient(cfg.httpClient))
	}
	if cfg.lookupEnv != nil {
		opts = append(opts, auth.WithEnv(cfg.lookupEnv))
	}
	if cfg.dotEnvFiles != nil {
		opts = append(opts, auth.WithDotEnvFiles(cfg.dotEnvFiles...))
	}
	if cfg.openCodePath != nil {
		opts = append(opts, auth.WithOpenCodePath(*cfg.openCodePath))
	}
	return opts
}

// checkPreferences logs default-model preferences naming unknown models.
func (e *engine) checkPreferences() {
	for pid, ids := range e.config.preferences {
		for _, id := range ids {
			if !e.catalog.Has(pid, id) {
				err := errors.NewInconsistencyError(string(pid), id, "preferred model not in catalog")
				e.logger.Warn().Err(err).Msg("skipping default model preference")
			}
		}
	}
}

func (e *engine) Catalog() *catalogs.Catalog { return e.catalog }
func (e *engine) Gateway() auth.Gateway      { return e.gateway }
func (e *engine) Cache() *authcache.Cache    { return e.cache }
func (e *engine) Builder() *picker.Builder   { return e.builder }
func (e *engine) Machine() *authflow.Machine { return e.machine }

// Probe refreshes statuses through the prober. Providers that time out keep
// whatever the cache held and are left out of the refreshed set.
func (e *engine) Probe(ctx context.Context, providerIDs ...catalogs.ProviderID) prober.Results {
	results, _ := e.probe(ctx, providerIDs)
	return results
}

func (e *engine) probe(ctx context.Context, providerIDs []catalogs.ProviderID) (prober.Results, []events.Event) {
	results := e.Refresh(ctx, providerIDs...)
	return results, e.Refreshed(results)
}

func (e *engine) Refresh(ctx context.Context, providerIDs ...catalogs.ProviderID) prober.Results {
	if len(providerIDs) == 0 {
		providerIDs = e.catalog.ProviderIDs()
	}
	return e.prober.Probe(ctx, providerIDs)
}

func (e *engine) Refreshed(results prober.Results) []events.Event {
	refreshed := make([]catalogs.ProviderID, 0, len(results))
	for id, r := range results {
		if !r.TimedOut {
			refreshed = append(refreshed, id)
		}
	}
	sort.Slice(refreshed, func(i, j int) bool { return refreshed[i] < refreshed[j] })

	return []events.Event{
		e.publish(events.AuthStatusRefreshed{ProviderIDs: refreshed}),
		e.publish(events.CatalogUpdated{View: e.builder.Grouped()}),
	}
}

// publish delivers ev to the registered hooks.
func (e *engine) publish(ev events.Event) events.Event {
	e.trigger(ev)
	return ev
}

func (e *engine) Status(ctx context.Context, providerID catalogs.ProviderID) (auth.Status, error) {
	if _, err := e.catalog.Provider(providerID); err != nil {
		return auth.Status{}, err
	}
	return e.cache.Get(ctx, providerID)
}

func (e *engine) View(query string) picker.View {
	return e.builder.Build(query)
}

// Select refreshes the provider's status if stale so a pick is never
// validated against an expired verdict.
func (e *engine) Select(ctx context.Context, providerID catalogs.ProviderID, modelID string) (picker.Item, error) {
	ctx = logging.WithOperation(logging.WithLogger(ctx, e.logger), "select")
	ctx = logging.WithModel(logging.WithProvider(ctx, string(providerID)), modelID)
	log := logging.FromContext(ctx)

	if _, err := e.catalog.Provider(providerID); err == nil {
		if _, err := e.cache.Get(ctx, providerID); err != nil {
			log.Warn().Err(err).Msg("auth status unavailable")
		}
	}

	item, err := e.builder.Select(providerID, modelID)
	if err != nil {
		if errors.IsInconsistent(err) {
			log.Warn().Err(err).Msg("selection skipped")
		}
		return item, err
	}

	e.tracker.RecordUse(providerID, modelID)
	if err := e.saveRecent(); err != nil {
		return item, err
	}
	log.Info().Msg("model selected")
	return item, nil
}

func (e *engine) DefaultModel(providerID catalogs.ProviderID) (*catalogs.Model, error) {
	return e.builder.DefaultModel(providerID)
}

func (e *engine) Recent(limit int) []recent.Record {
	return e.tracker.List(limit)
}

func (e *engine) Forget(providerID catalogs.ProviderID, modelID string) error {
	e.tracker.Remove(providerID, modelID)
	return e.saveRecent()
}

func (e *engine) saveRecent() error {
	if e.config.recentPath == "" {
		return nil
	}
	return e.tracker.Save(e.config.recentPath)
}

// Login drives the prompt: open, fill, submit. The prompt is closed again
// on failure so the next Login starts clean.
func (e *engine) Login(ctx context.Context, providerID catalogs.ProviderID, secret string) (events.AuthSuccess, error) {
	if f, ok := failure(e.Dispatch(ctx, authflow.OpenPrompt{ProviderID: providerID})); ok {
		return events.AuthSuccess{}, f
	}
	e.Dispatch(ctx, authflow.EditDraft{Draft: secret})

	evs := e.Dispatch(ctx, authflow.Submit{})
	for _, ev := range evs {
		if s, ok := ev.(events.AuthSuccess); ok {
			return s, nil
		}
	}
	e.machine.Update(authflow.Cancel{})
	if f, ok := failure(evs); ok {
		return events.AuthSuccess{}, f
	}
	return events.AuthSuccess{}, errors.NewInconsistencyError(string(providerID), "", "authentication finished without an outcome")
}

func (e *engine) Logout(ctx context.Context, providerID catalogs.ProviderID) error {
	if err := e.gateway.Revoke(ctx, providerID); err != nil {
		e.publish(events.Failure(providerID, "revoke", err))
		return err
	}
	e.cache.Invalidate(providerID)
	e.probe(ctx, []catalogs.ProviderID{providerID})
	return nil
}

func (e *engine) Detect(ctx context.Context) []events.Event {
	return e.Dispatch(ctx, authflow.AutoDetect{})
}

// Dispatch is the synchronous event loop for hosts without a bubbletea
// program. Commands run one at a time; batches are queued in order. If ctx
// ends first the prompt is canceled and a canceled AuthFailure is emitted.
func (e *engine) Dispatch(ctx context.Context, msg tea.Msg) []events.Event {
	var out []events.Event
	queue := []tea.Cmd{e.machine.Update(msg)}
	for len(queue) > 0 {
		cmd := queue[0]
		queue = queue[1:]
		if cmd == nil {
			continue
		}

		msg, ok := runCmd(ctx, cmd)
		if !ok {
			e.machine.Update(authflow.Cancel{})
			cause := ctx.Err()
			if !errors.IsCanceled(cause) {
				cause = errors.NewNetworkError("", "dispatch", cause)
			}
			return append(out, e.publish(events.Failure("", "dispatch", cause)))
		}

		switch msg := msg.(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case events.Event:
			out = append(out, e.emit(ctx, msg)...)
		default:
			queue = append(queue, e.machine.Update(msg))
		}
	}
	return out
}

// emit delivers a prompt event. Status changes trigger a probe, whose
// refreshed set replaces the prompt's generic AuthStatusRefreshed.
func (e *engine) emit(ctx context.Context, ev events.Event) []events.Event {
	switch ev := ev.(type) {
	case events.AuthSuccess:
		out := []events.Event{e.publish(ev)}
		_, refreshed := e.probe(ctx, []catalogs.ProviderID{ev.ProviderID})
		return append(out, refreshed...)
	case events.AuthStatusRefreshed:
		_, refreshed := e.probe(ctx, ev.ProviderIDs)
		return refreshed
	default:
		return []events.Event{e.publish(ev)}
	}
}

func runCmd(ctx context.Context, cmd tea.Cmd) (tea.Msg, bool) {
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		return msg, true
	case <-ctx.Done():
		return nil, false
	}
}

func failure(evs []events.Event) (events.AuthFailure, bool) {
	for _, ev := range evs {
		if f, ok := ev.(events.AuthFailure); ok {
			return f, true
		}
	}
	return events.AuthFailure{}, false
}
