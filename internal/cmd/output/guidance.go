package output

import (
	"fmt"

	"github.com/agentstation/modelpick/pkg/errors"
	"github.com/agentstation/modelpick/pkg/events"
)

// Guidance turns a failure event into the line shown to the user.
func Guidance(f events.AuthFailure) string {
	switch f.Kind {
	case errors.KindInvalidCredential:
		return fmt.Sprintf("%s rejected the credential. Check the key and try again.", name(f))
	case errors.KindInvalidFormat:
		return fmt.Sprintf("That does not look like a %s key: %s", name(f), f.Message)
	case errors.KindNetwork:
		return fmt.Sprintf("Could not reach %s. Check your connection and retry.", name(f))
	case errors.KindNotFound:
		return fmt.Sprintf("Unknown provider %q.", f.ProviderID)
	case errors.KindCanceled:
		return "Canceled."
	default:
		return f.Message
	}
}

func name(f events.AuthFailure) string {
	if f.ProviderID == "" {
		return "the provider"
	}
	return string(f.ProviderID)
}
