package errors

import "errors"

// Kind is the coarse classification attached to failure events.
type Kind string

// Error kinds, in the order KindOf checks them.
const (
	KindNetwork           Kind = "network"
	KindInvalidCredential Kind = "invalid_credential"
	KindInvalidFormat     Kind = "invalid_format"
	KindNotFound          Kind = "not_found"
	KindInternal          Kind = "internal"
	KindCanceled          Kind = "canceled"
	KindUnknown           Kind = "unknown"
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	return string(k)
}

// Retryable reports whether retrying the same operation may succeed.
func (k Kind) Retryable() bool {
	return k == KindNetwork
}

// KindOf classifies err. A nil error has no kind.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case IsCanceled(err):
		return KindCanceled
	case IsNetwork(err), errors.Is(err, ErrProviderUnavailable), errors.Is(err, ErrRateLimited):
		return KindNetwork
	case errors.Is(err, ErrAPIKeyInvalid):
		return KindInvalidCredential
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrAPIKeyRequired):
		return KindInvalidFormat
	case IsInconsistent(err):
		return KindInternal
	case IsNotFound(err):
		return KindNotFound
	default:
		return KindUnknown
	}
}
