package authflow

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/agentstation/modelpick/pkg/auth"
	"github.com/agentstation/modelpick/pkg/catalogs"
	"github.com/agentstation/modelpick/pkg/constants"
	"github.com/agentstation/modelpick/pkg/errors"
	"github.com/agentstation/modelpick/pkg/events"
	"github.com/agentstation/modelpick/pkg/logging"
)

// Gateway is the part of auth.Gateway the flow calls.
type Gateway interface {
	Authenticate(ctx context.Context, providerID catalogs.ProviderID, secret string, timeout time.Duration) (auth.AuthResult, error)
	AutoDetect(ctx context.Context, timeout time.Duration) (auth.DetectResult, error)
}

// Invalidator is the part of the auth status cache the flow writes to.
type Invalidator interface {
	Invalidate(providerID catalogs.ProviderID)
	InvalidateAll()
}

// Machine holds the prompt state. It is owned by one event loop.
type Machine struct {
	gateway Gateway
	cache   Invalidator
	catalog *catalogs.Catalog

	authTimeout   time.Duration
	detectTimeout time.Duration
	logger        *zerolog.Logger

	state  State
	token  string
	cancel context.CancelFunc
}

// Option configures a Machine.
type Option func(*Machine)

// WithTimeouts sets the authenticate and auto-detect timeouts.
func WithTimeouts(authenticate, detect time.Duration) Option {
	return func(m *Machine) {
		if authenticate > 0 {
			m.authTimeout = authenticate
		}
		if detect > 0 {
			m.detectTimeout = detect
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(m *Machine) {
		m.logger = logger
	}
}

// New creates a machine in the Browsing state.
func New(gateway Gateway, cache Invalidator, catalog *catalogs.Catalog, opts ...Option) *Machine {
	m := &Machine{
		gateway:       gateway,
		cache:         cache,
		catalog:       catalog,
		authTimeout:   constants.AuthenticateTimeout,
		detectTimeout: constants.AutoDetectTimeout,
		logger:        logging.Default(),
		state:         Browsing{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Update applies msg and returns the follow-up command, if any. Events are
// delivered as messages from the returned command.
func (m *Machine) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case OpenPrompt:
		return m.open(msg.ProviderID)
	case EditDraft:
		if p, ok := m.state.(Prompting); ok && !p.Submitting {
			p.Draft = msg.Draft
			m.state = p
		}
	case Submit:
		return m.submit()
	case Cancel:
		m.abandon()
		m.state = Browsing{}
	case AutoDetect:
		return m.autoDetect()
	case authenticated:
		return m.authenticated(msg)
	case detected:
		return m.detected(msg)
	}
	return nil
}

func (m *Machine) open(providerID catalogs.ProviderID) tea.Cmd {
	provider, err := m.catalog.Provider(providerID)
	if err != nil {
		return emit(events.Failure(providerID, "open_prompt", err))
	}
	m.abandon()
	m.state = Prompting{ProviderID: provider.ID, ProviderName: provider.DisplayName()}
	return nil
}

func (m *Machine) submit() tea.Cmd {
	p, ok := m.state.(Prompting)
	if !ok || p.Submitting || p.Detecting {
		return nil
	}

	secret := strings.TrimSpace(p.Draft)
	if secret == "" {
		f := events.Failure(p.ProviderID, "authenticate", errors.NewValidationError("secret", nil, "credential must not be empty"))
		p.Failure = &f
		m.state = p
		return emit(f)
	}

	ctx, token := m.begin("authenticate")
	ctx = logging.WithProvider(ctx, string(p.ProviderID))
	p.Submitting = true
	p.Failure = nil
	m.state = p

	logging.FromContext(ctx).Debug().Msg("submitting credential")

	gateway, timeout, providerID := m.gateway, m.authTimeout, p.ProviderID
	return func() tea.Msg {
		result, err := gateway.Authenticate(ctx, providerID, secret, timeout)
		return authenticated{token: token, providerID: providerID, result: result, err: err}
	}
}

func (m *Machine) authenticated(msg authenticated) tea.Cmd {
	if msg.token != m.token {
		m.logger.Debug().Str("request_id", msg.token).Msg("dropping stale authenticate result")
		return nil
	}
	m.finish()

	p, _ := m.state.(Prompting)
	if msg.err != nil {
		f := events.Failure(msg.providerID, "authenticate", msg.err)
		p.Submitting = false
		p.Failure = &f
		m.state = p
		return emit(f)
	}

	m.cache.Invalidate(msg.providerID)
	m.state = Browsing{}
	return emit(events.AuthSuccess{ProviderID: msg.providerID, ModelCount: msg.result.ModelCount})
}

func (m *Machine) autoDetect() tea.Cmd {
	if Busy(m.state) {
		return nil
	}
	switch s := m.state.(type) {
	case Browsing:
		s.Detecting = true
		m.state = s
	case Prompting:
		s.Detecting = true
		m.state = s
	}

	ctx, token := m.begin("auto_detect")
	logging.FromContext(ctx).Debug().Msg("looking for credentials")

	gateway, timeout := m.gateway, m.detectTimeout
	return func() tea.Msg {
		result, err := gateway.AutoDetect(ctx, timeout)
		return detected{token: token, result: result, err: err}
	}
}

func (m *Machine) detected(msg detected) tea.Cmd {
	if msg.token != m.token {
		m.logger.Debug().Str("request_id", msg.token).Msg("dropping stale auto-detect result")
		return nil
	}
	m.finish()

	switch s := m.state.(type) {
	case Browsing:
		s.Detecting = false
		m.state = s
	case Prompting:
		s.Detecting = false
		m.state = s
	}

	switch {
	case msg.err != nil:
		f := events.Failure("", "auto_detect", msg.err)
		if p, ok := m.state.(Prompting); ok {
			p.Failure = &f
			m.state = p
		}
		return emit(f)
	case msg.result.FoundCount == 0:
		return emit(events.NoCredentialsFound{})
	default:
		m.cache.InvalidateAll()
		m.state = Browsing{}
		ids := append([]catalogs.ProviderID(nil), msg.result.ProviderIDs...)
		return emit(events.CredentialsDetected{ProviderIDs: ids}, events.AuthStatusRefreshed{})
	}
}

// begin starts a new request, abandoning any previous one. The returned
// context carries a logger tagged with the operation and request token.
func (m *Machine) begin(operation string) (context.Context, string) {
	m.abandon()
	ctx, cancel := context.WithCancel(logging.WithLogger(context.Background(), m.logger))
	m.cancel = cancel
	m.token = xid.New().String()
	ctx = logging.WithRequestID(logging.WithOperation(ctx, operation), m.token)
	return ctx, m.token
}

// finish releases the current request after its result arrived.
func (m *Machine) finish() {
	if m.cancel != nil {
		m.cancel()
	}
	m.cancel = nil
	m.token = ""
}

// abandon cancels the current request so its result is ignored.
func (m *Machine) abandon() {
	if m.cancel != nil {
		m.cancel()
		m.logger.Debug().Str("request_id", m.token).Msg("request abandoned")
	}
	m.cancel = nil
	m.token = ""
}

// emit delivers events in order as one command.
func emit(evs ...events.Event) tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(evs))
	for _, ev := range evs {
		ev := ev
		cmds = append(cmds, func() tea.Msg { return ev })
	}
	return tea.Batch(cmds...)
}
