package auth

import (
	"context"
	"strings"
	"time"

	"github.com/agentstation/modelpick/internal/metrics"
	"github.com/agentstation/modelpick/pkg/catalogs"
	"github.com/agentstation/modelpick/pkg/constants"
	"github.com/agentstation/modelpick/pkg/errors"
	"github.com/agentstation/modelpick/pkg/logging"
)

// Authenticate validates a freshly supplied secret and persists it on success.
// Malformed secrets fail with a ValidationError, rejected ones with an
// AuthenticationError, unreachable providers with a NetworkError. Nothing is
// persisted on failure, including a store write that lands after the
// deadline.
func (s *Service) Authenticate(ctx context.Context, providerID catalogs.ProviderID, secret string, timeout time.Duration) (result AuthResult, err error) {
	defer func() {
		metrics.AuthAttemptsTotal.WithLabelValues(string(providerID), errors.KindOf(err).String()).Inc()
	}()

	provider, err := s.catalog.Provider(providerID)
	if err != nil {
		return AuthResult{}, err
	}

	secret = strings.TrimSpace(secret)
	if err := checkFormat(provider, secret); err != nil {
		return AuthResult{}, err
	}

	ctx, cancel := withTimeout(ctx, timeout, constants.AuthenticateTimeout)
	defer cancel()

	count := len(provider.Models)
	if provider.Catalog != nil && provider.Catalog.APIURL != "" {
		remote, err := s.validator.CountModels(ctx, provider, secret)
		if err != nil {
			if ctx.Err() != nil && !errors.IsNetwork(err) {
				err = errors.NewNetworkError(string(providerID), "authenticate", ctx.Err())
			}
			return AuthResult{}, err
		}
		if count == 0 {
			count = remote
		}
	}

	if _, err := commit(ctx, &s.writes, func() (struct{}, error) {
		return struct{}{}, s.store.Set(string(providerID), secret)
	}, func(struct{}) {
		s.discard(providerID)
	}); err != nil {
		if ctx.Err() != nil {
			return AuthResult{}, errors.NewNetworkError(string(providerID), "store credential", ctx.Err())
		}
		return AuthResult{}, err
	}

	event := s.logger.Info().
		Str("provider_id", string(providerID)).
		Int("model_count", count)
	if id := logging.RequestID(ctx); id != "" {
		event = event.Str("request_id", id)
	}
	event.Msg("credential stored")
	return AuthResult{ProviderID: providerID, ModelCount: count}, nil
}

// Revoke deletes the stored credential for a provider. Environment variables
// are not touched, so the provider may still report authenticated.
func (s *Service) Revoke(ctx context.Context, providerID catalogs.ProviderID) error {
	if _, err := s.catalog.Provider(providerID); err != nil {
		return err
	}
	ctx, cancel := withTimeout(ctx, 0, constants.AuthenticateTimeout)
	defer cancel()

	_, err := await(ctx, func() (struct{}, error) {
		return struct{}{}, s.store.Delete(string(providerID))
	})
	if err != nil {
		return err
	}
	s.logger.Info().Str("provider_id", string(providerID)).Msg("credential removed")
	return nil
}
