package authflow

import (
	"github.com/agentstation/modelpick/pkg/auth"
	"github.com/agentstation/modelpick/pkg/catalogs"
)

// OpenPrompt targets a provider, from a shortcut or a locked model.
type OpenPrompt struct {
	ProviderID catalogs.ProviderID
}

// EditDraft replaces the prompt's draft secret.
type EditDraft struct {
	Draft string
}

// Submit validates and stores the draft.
type Submit struct{}

// Cancel returns to browsing and abandons any request in flight.
type Cancel struct{}

// AutoDetect scans well-known locations for credentials.
type AutoDetect struct{}

type authenticated struct {
	token      string
	providerID catalogs.ProviderID
	result     auth.AuthResult
	err        error
}

type detected struct {
	token  string
	result auth.DetectResult
	err    error
}
