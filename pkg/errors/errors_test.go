package errors_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	pkgerrors "github.com/agentstation/modelpick/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestNotFoundError(t *testing.T) {
	t.Run("basic error", func(t *testing.T) {
		err := pkgerrors.NewNotFoundError("provider", "openai")
		assert.Equal(t, "provider with ID openai not found", err.Error())
		assert.True(t, pkgerrors.IsNotFound(err))
	})

	t.Run("wrapped error", func(t *testing.T) {
		wrapped := fmt.Errorf("lookup: %w", pkgerrors.NewNotFoundError("model", "gpt-x"))
		assert.True(t, pkgerrors.IsNotFound(wrapped))
		assert.Equal(t, pkgerrors.KindNotFound, pkgerrors.KindOf(wrapped))
	})
}

func TestValidationError(t *testing.T) {
	t.Run("with field", func(t *testing.T) {
		err := pkgerrors.NewValidationError("secret", nil, "cannot be empty")
		assert.Equal(t, "validation failed for field secret: cannot be empty", err.Error())
		assert.True(t, pkgerrors.IsValidationError(err))
	})

	t.Run("without field", func(t *testing.T) {
		err := &pkgerrors.ValidationError{Message: "bad input"}
		assert.Equal(t, "validation failed: bad input", err.Error())
	})
}

func TestAPIError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		target error
		want   bool
	}{
		{"rate limited", 429, pkgerrors.ErrRateLimited, true},
		{"server error", 503, pkgerrors.ErrProviderUnavailable, true},
		{"bad request", 400, pkgerrors.ErrProviderUnavailable, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := pkgerrors.NewAPIError("groq", tt.status, "boom")
			assert.Equal(t, tt.want, errors.Is(err, tt.target))
			assert.Contains(t, err.Error(), "groq")
		})
	}
}

func TestNetworkError(t *testing.T) {
	t.Run("deadline is a timeout", func(t *testing.T) {
		err := pkgerrors.NewNetworkError("openai", "authenticate", context.DeadlineExceeded)
		assert.True(t, pkgerrors.IsNetwork(err))
		assert.True(t, pkgerrors.IsTimeout(err))
		assert.Contains(t, err.Error(), "authenticate")
		assert.Contains(t, err.Error(), "openai")
	})

	t.Run("refused is not a timeout", func(t *testing.T) {
		err := pkgerrors.NewNetworkError("openai", "health", errors.New("connection refused"))
		assert.True(t, pkgerrors.IsNetwork(err))
		assert.False(t, pkgerrors.IsTimeout(err))
	})

	t.Run("wrap nil", func(t *testing.T) {
		assert.NoError(t, pkgerrors.WrapNetwork("openai", "health", nil))
	})
}

func TestTimeoutError(t *testing.T) {
	err := pkgerrors.NewTimeoutError("check_auth_status", "1s", "credential store did not answer")
	assert.Equal(t, "operation check_auth_status timed out after 1s: credential store did not answer", err.Error())
	assert.True(t, pkgerrors.IsTimeout(err))
	assert.True(t, pkgerrors.IsNetwork(err))
}

func TestInconsistencyError(t *testing.T) {
	err := pkgerrors.NewInconsistencyError("anthropic", "claude-old", "model no longer in catalog")
	assert.True(t, pkgerrors.IsInconsistent(err))
	assert.Equal(t, pkgerrors.KindInternal, pkgerrors.KindOf(err))
	assert.Contains(t, err.Error(), "anthropic/claude-old")
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want pkgerrors.Kind
	}{
		{"nil", nil, ""},
		{"canceled", context.Canceled, pkgerrors.KindCanceled},
		{"network", pkgerrors.NewNetworkError("x", "op", errors.New("eof")), pkgerrors.KindNetwork},
		{"timeout", pkgerrors.NewTimeoutError("op", "", ""), pkgerrors.KindNetwork},
		{"unavailable", pkgerrors.NewAPIError("x", 502, "bad gateway"), pkgerrors.KindNetwork},
		{"rejected", pkgerrors.NewAuthenticationError("x", "api_key", "invalid key", nil), pkgerrors.KindInvalidCredential},
		{"format", pkgerrors.NewValidationError("secret", nil, "empty"), pkgerrors.KindInvalidFormat},
		{"not found", pkgerrors.NewNotFoundError("provider", "x"), pkgerrors.KindNotFound},
		{"plain", errors.New("mystery"), pkgerrors.KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pkgerrors.KindOf(tt.err))
		})
	}
	assert.True(t, pkgerrors.KindNetwork.Retryable())
	assert.False(t, pkgerrors.KindInvalidCredential.Retryable())
}

func TestWrapHelpers(t *testing.T) {
	base := errors.New("disk full")

	ioErr := pkgerrors.WrapIO("write", "/tmp/recent.yaml", base)
	assert.ErrorIs(t, ioErr, base)
	assert.Contains(t, ioErr.Error(), "/tmp/recent.yaml")

	parseErr := pkgerrors.WrapParse("yaml", "providers.yaml", base)
	assert.ErrorIs(t, parseErr, base)
	assert.Contains(t, parseErr.Error(), "providers.yaml")

	assert.NoError(t, pkgerrors.WrapIO("write", "x", nil))
	assert.NoError(t, pkgerrors.WrapParse("yaml", "x", nil))
}
