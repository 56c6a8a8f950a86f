package auth

import (
	"context"
	"strings"
	"time"

	"github.com/agentstation/modelpick/pkg/catalogs"
	"github.com/agentstation/modelpick/pkg/constants"
)

// GetProviderHealth probes the provider's status page. Providers without one
// report healthy; a failed probe reports unknown together with the error.
func (s *Service) GetProviderHealth(ctx context.Context, providerID catalogs.ProviderID, timeout time.Duration) (HealthResult, error) {
	provider, err := s.catalog.Provider(providerID)
	if err != nil {
		return HealthResult{ProviderID: providerID}, err
	}
	if provider.Health == nil || provider.Health.APIURL == "" {
		return HealthResult{ProviderID: providerID, Health: HealthHealthy}, nil
	}

	ctx, cancel := withTimeout(ctx, timeout, constants.HealthCheckTimeout)
	defer cancel()

	page, err := s.health.FetchStatusPage(ctx, provider)
	if err != nil {
		s.logger.Debug().Err(err).Str("provider_id", string(providerID)).Msg("health probe failed")
		return HealthResult{ProviderID: providerID, Health: HealthUnknown}, err
	}

	result := HealthResult{
		ProviderID:  providerID,
		Health:      indicatorHealth(page.Status.Indicator),
		Description: page.Status.Description,
	}

	if watched := provider.Health.Components; len(watched) > 0 {
		worst := HealthUnknown
		for _, c := range page.Components {
			if !contains(watched, c.Name) {
				continue
			}
			if h := componentHealth(c.Status); worse(h, worst) {
				worst = h
			}
		}
		if worst != HealthUnknown {
			result.Health = worst
		}
	}
	return result, nil
}

// indicatorHealth maps a Statuspage page indicator.
func indicatorHealth(indicator string) Health {
	switch strings.ToLower(indicator) {
	case "none":
		return HealthHealthy
	case "minor", "maintenance":
		return HealthDegraded
	case "major", "critical":
		return HealthDown
	default:
		return HealthUnknown
	}
}

// componentHealth maps a Statuspage component status.
func componentHealth(status string) Health {
	switch strings.ToLower(status) {
	case "operational":
		return HealthHealthy
	case "degraded_performance", "partial_outage", "under_maintenance":
		return HealthDegraded
	case "major_outage":
		return HealthDown
	default:
		return HealthUnknown
	}
}

// worse orders healthy < degraded < down, with unknown below all of them.
func worse(a, b Health) bool {
	return a > b
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}
