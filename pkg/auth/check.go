package auth

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/agentstation/utc"

	"github.com/agentstation/modelpick/pkg/catalogs"
	"github.com/agentstation/modelpick/pkg/constants"
	"github.com/agentstation/modelpick/pkg/errors"
	"github.com/agentstation/modelpick/pkg/logging"
)

// CheckAuthStatus reports whether a usable credential exists for the provider.
// It performs local checks only: the credential store, then the provider's
// environment variables. A hung store yields Health unknown and a TimeoutError.
func (s *Service) CheckAuthStatus(ctx context.Context, providerID catalogs.ProviderID, timeout time.Duration) (Status, error) {
	provider, err := s.catalog.Provider(providerID)
	if err != nil {
		return Status{}, err
	}

	ctx, cancel := withTimeout(ctx, timeout, constants.HealthCheckTimeout)
	defer cancel()

	secret, source, err := s.resolve(ctx, provider)
	if err != nil {
		if ctx.Err() != nil {
			return Status{Health: HealthUnknown, LastChecked: utc.Now()},
				errors.NewTimeoutError("check_auth_status", timeoutString(timeout, constants.HealthCheckTimeout), "credential store did not answer for "+string(providerID))
		}
		return Status{}, err
	}

	status := Status{
		ModelCount:  len(provider.Models),
		Health:      HealthUnknown,
		LastChecked: utc.Now(),
	}
	if secret == "" {
		return status, nil
	}
	if err := checkFormat(provider, secret); err != nil {
		s.logger.Debug().
			Str("provider_id", string(providerID)).
			Str("source", string(source)).
			Msg("stored credential does not match key pattern")
		return status, nil
	}

	status.Authenticated = true
	status.Source = source
	return status, nil
}

// resolve returns the first credential for provider: store, then env.
func (s *Service) resolve(ctx context.Context, provider *catalogs.Provider) (string, Source, error) {
	secret, err := await(ctx, func() (string, error) {
		return s.store.Get(string(provider.ID))
	})
	switch {
	case err == nil && secret != "":
		return secret, SourceStore, nil
	case err != nil && !errors.IsNotFound(err):
		logging.FromContext(ctx).Debug().Err(err).Str("provider_id", string(provider.ID)).Msg("credential store lookup failed")
		return "", SourceNone, err
	}

	for _, name := range provider.EnvVars() {
		if v, ok := s.lookupEnv(name); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), SourceEnv, nil
		}
	}
	return "", SourceNone, nil
}

// checkFormat validates secret locally against the provider's key pattern.
func checkFormat(provider *catalogs.Provider, secret string) error {
	if secret == "" {
		return errors.NewValidationError("secret", nil, "credential must not be empty")
	}
	if len(secret) > constants.MaxSecretLength {
		return errors.NewValidationError("secret", nil, "credential is too long")
	}
	if strings.ContainsAny(secret, " \t\r\n") {
		return errors.NewValidationError("secret", nil, "credential must not contain whitespace")
	}
	if provider.APIKey == nil || provider.APIKey.Pattern == "" || provider.APIKey.Pattern == ".*" {
		return nil
	}
	matched, err := regexp.MatchString(provider.APIKey.Pattern, secret)
	if err != nil {
		return errors.NewConfigError(string(provider.ID), "invalid key pattern", err)
	}
	if !matched {
		return errors.NewValidationError("secret", nil, "credential does not match the expected format for "+provider.DisplayName())
	}
	return nil
}

func timeoutString(timeout, def time.Duration) string {
	if timeout <= 0 {
		timeout = def
	}
	return timeout.String()
}
