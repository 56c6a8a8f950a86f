package modelpick

import (
	"sync"

	"github.com/agentstation/modelpick/pkg/events"
)

// Hook function types for engine events
type (
	// EventHook is called for every emitted event
	EventHook func(ev events.Event)

	// AuthSuccessHook is called when a provider is unlocked
	AuthSuccessHook func(ev events.AuthSuccess)

	// AuthFailureHook is called when an auth operation fails
	AuthFailureHook func(ev events.AuthFailure)

	// CatalogUpdatedHook is called with each rebuilt view
	CatalogUpdatedHook func(ev events.CatalogUpdated)
)

// hooks manages event callbacks
type hooks struct {
	mu               sync.RWMutex
	onEvent          []EventHook
	onAuthSuccess    []AuthSuccessHook
	onAuthFailure    []AuthFailureHook
	onCatalogUpdated []CatalogUpdatedHook
}

func newHooks() *hooks {
	return &hooks{}
}

// OnEvent registers a callback for every event
func (h *hooks) OnEvent(fn EventHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onEvent = append(h.onEvent, fn)
}

// OnAuthSuccess registers a callback for unlocked providers
func (h *hooks) OnAuthSuccess(fn AuthSuccessHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onAuthSuccess = append(h.onAuthSuccess, fn)
}

// OnAuthFailure registers a callback for failed auth operations
func (h *hooks) OnAuthFailure(fn AuthFailureHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onAuthFailure = append(h.onAuthFailure, fn)
}

// OnCatalogUpdated registers a callback for rebuilt views
func (h *hooks) OnCatalogUpdated(fn CatalogUpdatedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onCatalogUpdated = append(h.onCatalogUpdated, fn)
}

// trigger delivers ev to the generic hooks, then to the typed ones.
func (h *hooks) trigger(ev events.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, hook := range h.onEvent {
		hook(ev)
	}

	switch ev := ev.(type) {
	case events.AuthSuccess:
		for _, hook := range h.onAuthSuccess {
			hook(ev)
		}
	case events.AuthFailure:
		for _, hook := range h.onAuthFailure {
			hook(ev)
		}
	case events.CatalogUpdated:
		for _, hook := range h.onCatalogUpdated {
			hook(ev)
		}
	}
}
