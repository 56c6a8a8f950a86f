package auth

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"

	"github.com/agentstation/modelpick/internal/metrics"
	"github.com/agentstation/modelpick/pkg/catalogs"
	"github.com/agentstation/modelpick/pkg/constants"
	"github.com/agentstation/modelpick/pkg/errors"
)

// candidate is a credential found in a well-known location.
type candidate struct {
	secret string
	source Source
}

// AutoDetect scans environment variables, dotenv files and OpenCode's
// auth.json for usable credentials and persists those not already stored.
// Finding nothing is a normal outcome. A scan that fails or runs out of time
// leaves nothing behind.
func (s *Service) AutoDetect(ctx context.Context, timeout time.Duration) (DetectResult, error) {
	ctx, cancel := withTimeout(ctx, timeout, constants.AutoDetectTimeout)
	defer cancel()

	result, err := commit(ctx, &s.writes, func() (DetectResult, error) {
		return s.detect(ctx)
	}, func(r DetectResult) {
		s.discard(r.ProviderIDs...)
	})
	if err != nil && ctx.Err() != nil {
		return DetectResult{}, errors.NewNetworkError("", "auto_detect", ctx.Err())
	}
	return result, err
}

func (s *Service) detect(ctx context.Context) (DetectResult, error) {
	dotenv := s.readDotEnv()
	opencode := s.readOpenCode()

	result := DetectResult{
		ProviderIDs: []catalogs.ProviderID{},
		Sources:     make(map[catalogs.ProviderID]Source),
	}

	for _, provider := range s.catalog.Providers() {
		if err := ctx.Err(); err != nil {
			s.discard(result.ProviderIDs...)
			return DetectResult{}, err
		}

		if existing, err := s.store.Get(string(provider.ID)); err == nil && existing != "" {
			continue
		} else if err != nil && !errors.IsNotFound(err) {
			s.logger.Warn().Err(err).Str("provider_id", string(provider.ID)).Msg("skipping provider, credential store unreadable")
			continue
		}

		for _, c := range s.candidates(provider, dotenv, opencode) {
			if checkFormat(provider, c.secret) != nil {
				continue
			}
			if err := s.store.Set(string(provider.ID), c.secret); err != nil {
				s.discard(result.ProviderIDs...)
				return DetectResult{}, err
			}
			result.ProviderIDs = append(result.ProviderIDs, provider.ID)
			result.Sources[provider.ID] = c.source
			metrics.DetectedCredentialsTotal.WithLabelValues(string(c.source)).Inc()
			s.logger.Info().
				Str("provider_id", string(provider.ID)).
				Str("source", string(c.source)).
				Msg("credential detected")
			break
		}
	}

	result.FoundCount = len(result.ProviderIDs)
	return result, nil
}

// candidates lists every credential for provider in lookup order.
func (s *Service) candidates(provider *catalogs.Provider, dotenv, opencode map[string]string) []candidate {
	var out []candidate
	for _, name := range provider.EnvVars() {
		if v, ok := s.lookupEnv(name); ok && strings.TrimSpace(v) != "" {
			out = append(out, candidate{strings.TrimSpace(v), SourceEnv})
		}
	}
	for _, name := range provider.EnvVars() {
		if v := strings.TrimSpace(dotenv[name]); v != "" {
			out = append(out, candidate{v, SourceDotEnv})
		}
	}
	if v := strings.TrimSpace(opencode[string(provider.ID)]); v != "" {
		out = append(out, candidate{v, SourceOpenCode})
	}
	return out
}

// readDotEnv merges the configured dotenv files; later files win.
func (s *Service) readDotEnv() map[string]string {
	merged := make(map[string]string)
	for _, path := range s.dotEnvFiles {
		values, err := godotenv.Read(path)
		if err != nil {
			if !os.IsNotExist(err) {
				s.logger.Debug().Err(err).Str("path", path).Msg("skipping dotenv file")
			}
			continue
		}
		for k, v := range values {
			merged[k] = v
		}
	}
	return merged
}

// openCodeAuth represents an entry in OpenCode's auth.json.
type openCodeAuth struct {
	Type string `json:"type"`
	Key  string `json:"key"`
}

// readOpenCode returns provider id to API key from OpenCode's auth.json.
// OAuth entries are ignored.
func (s *Service) readOpenCode() map[string]string {
	keys := make(map[string]string)
	if s.openCodePath == "" {
		return keys
	}
	data, err := os.ReadFile(s.openCodePath)
	if err != nil {
		return keys
	}
	var entries map[string]openCodeAuth
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Debug().Err(err).Str("path", s.openCodePath).Msg("unreadable opencode auth file")
		return keys
	}
	for id, entry := range entries {
		if entry.Type == "api" && entry.Key != "" {
			keys[id] = entry.Key
		}
	}
	return keys
}

func defaultOpenCodePath() string {
	return filepath.Join(xdg.DataHome, "opencode", "auth.json")
}
