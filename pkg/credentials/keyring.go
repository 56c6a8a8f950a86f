package credentials

import (
	stderrors "errors"
	"sort"
	"strings"
	"sync"

	gokeyring "github.com/zalando/go-keyring"

	"github.com/agentstation/modelpick/pkg/constants"
	"github.com/agentstation/modelpick/pkg/errors"
)

// Keyring stores secrets in the OS keyring. The keyring has no portable
// enumeration API, so the set of stored provider ids is kept in a separate
// index entry.
type Keyring struct {
	service string
	mu      sync.Mutex // serializes index updates
}

// NewKeyring creates a keyring store under the default service name.
func NewKeyring() *Keyring {
	return NewKeyringService(constants.KeyringService)
}

// NewKeyringService creates a keyring store under a custom service name.
func NewKeyringService(service string) *Keyring {
	return &Keyring{service: service}
}

// List implements Store.
func (k *Keyring) List() ([]string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.readIndex()
}

// Get implements Store.
func (k *Keyring) Get(providerID string) (string, error) {
	secret, err := gokeyring.Get(k.service, providerID)
	if stderrors.Is(err, gokeyring.ErrNotFound) {
		return "", errors.NewNotFoundError("credential", providerID)
	}
	if err != nil {
		return "", errors.WrapIO("read", "keyring:"+providerID, err)
	}
	return secret, nil
}

// Set implements Store.
func (k *Keyring) Set(providerID, secret string) error {
	if providerID == "" || providerID == constants.KeyringIndexUser {
		return errors.NewValidationError("provider_id", providerID, "invalid provider id")
	}
	if err := gokeyring.Set(k.service, providerID, secret); err != nil {
		return errors.WrapIO("write", "keyring:"+providerID, err)
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	ids, err := k.readIndex()
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id == providerID {
			return nil
		}
	}
	return k.writeIndex(append(ids, providerID))
}

// Delete implements Store.
func (k *Keyring) Delete(providerID string) error {
	err := gokeyring.Delete(k.service, providerID)
	if err != nil && !stderrors.Is(err, gokeyring.ErrNotFound) {
		return errors.WrapIO("delete", "keyring:"+providerID, err)
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	ids, err := k.readIndex()
	if err != nil {
		return err
	}
	kept := ids[:0]
	for _, id := range ids {
		if id != providerID {
			kept = append(kept, id)
		}
	}
	return k.writeIndex(kept)
}

func (k *Keyring) readIndex() ([]string, error) {
	raw, err := gokeyring.Get(k.service, constants.KeyringIndexUser)
	if stderrors.Is(err, gokeyring.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, errors.WrapIO("read", "keyring:"+constants.KeyringIndexUser, err)
	}
	ids := []string{}
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (k *Keyring) writeIndex(ids []string) error {
	if len(ids) == 0 {
		err := gokeyring.Delete(k.service, constants.KeyringIndexUser)
		if err != nil && !stderrors.Is(err, gokeyring.ErrNotFound) {
			return errors.WrapIO("delete", "keyring:"+constants.KeyringIndexUser, err)
		}
		return nil
	}
	sort.Strings(ids)
	if err := gokeyring.Set(k.service, constants.KeyringIndexUser, strings.Join(ids, ",")); err != nil {
		return errors.WrapIO("write", "keyring:"+constants.KeyringIndexUser, err)
	}
	return nil
}
