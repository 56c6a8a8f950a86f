// Package events defines the structured messages the engine emits to the
// presentation layer. Events carry data, never formatted prose, and double
// as bubbletea messages.
package events

import (
	"fmt"

	"github.com/agentstation/modelpick/pkg/catalogs"
	"github.com/agentstation/modelpick/pkg/errors"
	"github.com/agentstation/modelpick/pkg/picker"
)

// Event is implemented by every engine event.
type Event interface {
	EventName() string
}

// Event names.
const (
	NameAuthSuccess         = "auth_success"
	NameAuthFailure         = "auth_failure"
	NameAuthStatusRefreshed = "auth_status_refreshed"
	NameCatalogUpdated      = "catalog_updated"
	NameNoCredentialsFound  = "no_credentials_found"
	NameCredentialsDetected = "credentials_detected"
)

// AuthSuccess reports a provider unlocked by a new credential.
type AuthSuccess struct {
	ProviderID catalogs.ProviderID `json:"provider_id"`
	ModelCount int                 `json:"model_count"`
}

// EventName implements Event.
func (AuthSuccess) EventName() string { return NameAuthSuccess }

// AuthFailure reports a failed gateway operation with enough context to
// render guidance. ProviderID is empty for auto-detect.
type AuthFailure struct {
	ProviderID catalogs.ProviderID `json:"provider_id,omitempty"`
	Operation  string              `json:"operation"`
	Kind       errors.Kind         `json:"kind"`
	Message    string              `json:"message"`
	Retryable  bool                `json:"retryable"`
}

// EventName implements Event.
func (AuthFailure) EventName() string { return NameAuthFailure }

// Error lets a failure be returned where an error is expected.
func (f AuthFailure) Error() string {
	if f.ProviderID != "" {
		return fmt.Sprintf("%s %s: %s", f.Operation, f.ProviderID, f.Message)
	}
	return fmt.Sprintf("%s: %s", f.Operation, f.Message)
}

// Failure builds an AuthFailure from err.
func Failure(providerID catalogs.ProviderID, operation string, err error) AuthFailure {
	kind := errors.KindOf(err)
	return AuthFailure{
		ProviderID: providerID,
		Operation:  operation,
		Kind:       kind,
		Message:    err.Error(),
		Retryable:  kind.Retryable(),
	}
}

// AuthStatusRefreshed reports that cached statuses changed. An empty
// ProviderIDs means every provider.
type AuthStatusRefreshed struct {
	ProviderIDs []catalogs.ProviderID `json:"provider_ids,omitempty"`
}

// EventName implements Event.
func (AuthStatusRefreshed) EventName() string { return NameAuthStatusRefreshed }

// CatalogUpdated carries a freshly built view.
type CatalogUpdated struct {
	View picker.View `json:"view"`
}

// EventName implements Event.
func (CatalogUpdated) EventName() string { return NameCatalogUpdated }

// NoCredentialsFound is the neutral outcome of an auto-detect that found nothing.
type NoCredentialsFound struct{}

// EventName implements Event.
func (NoCredentialsFound) EventName() string { return NameNoCredentialsFound }

// CredentialsDetected reports providers whose credentials auto-detect persisted.
type CredentialsDetected struct {
	ProviderIDs []catalogs.ProviderID `json:"provider_ids"`
}

// EventName implements Event.
func (CredentialsDetected) EventName() string { return NameCredentialsDetected }
