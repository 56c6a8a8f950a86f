// Package credentials persists per-provider secrets. Secrets are opaque
// strings keyed by provider id; the package never inspects or logs them.
package credentials

import (
	"sort"
	"sync"

	"github.com/agentstation/modelpick/pkg/errors"
)

// Store persists secrets keyed by provider id. Implementations must survive
// process restarts (except Memory) and be safe for concurrent use.
type Store interface {
	// List returns the provider ids that have a stored secret, sorted.
	List() ([]string, error)
	// Get returns the secret for a provider or a NotFoundError.
	Get(providerID string) (string, error)
	// Set inserts or replaces the secret for a provider.
	Set(providerID, secret string) error
	// Delete removes the secret for a provider. Deleting a missing entry is not an error.
	Delete(providerID string) error
}

// Kind names a Store implementation in configuration.
type Kind string

// Store kinds.
const (
	KindKeyring Kind = "keyring"
	KindFile    Kind = "file"
	KindMemory  Kind = "memory"
)

// Open returns the store named by kind. path is only used by KindFile and
// falls back to DefaultFilePath when empty.
func Open(kind Kind, path string) (Store, error) {
	switch kind {
	case KindKeyring, "":
		return NewKeyring(), nil
	case KindFile:
		if path == "" {
			p, err := DefaultFilePath()
			if err != nil {
				return nil, err
			}
			path = p
		}
		return NewFile(path), nil
	case KindMemory:
		return NewMemory(), nil
	default:
		return nil, errors.NewConfigError("credential_store", "unknown store kind "+string(kind), nil)
	}
}

// Memory is an in-process Store, mainly for tests.
type Memory struct {
	mu      sync.RWMutex
	secrets map[string]string
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{secrets: make(map[string]string)}
}

// List implements Store.
func (m *Memory) List() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.secrets))
	for id := range m.secrets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Get implements Store.
func (m *Memory) Get(providerID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	secret, ok := m.secrets[providerID]
	if !ok {
		return "", errors.NewNotFoundError("credential", providerID)
	}
	return secret, nil
}

// Set implements Store.
func (m *Memory) Set(providerID, secret string) error {
	if providerID == "" {
		return errors.NewValidationError("provider_id", "", "must not be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[providerID] = secret
	return nil
}

// Delete implements Store.
func (m *Memory) Delete(providerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.secrets, providerID)
	return nil
}
