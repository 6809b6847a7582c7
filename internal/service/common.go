// Package service implements the gateway operations on top of the OLI
// client, the chain resolver and the storage layer.
package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/Aghostraa/oli-frontend/internal/chains"
	"github.com/Aghostraa/oli-frontend/internal/errors"
	"github.com/Aghostraa/oli-frontend/internal/logging"
	"github.com/Aghostraa/oli-frontend/internal/models"
	"github.com/Aghostraa/oli-frontend/internal/oli"
	"github.com/Aghostraa/oli-frontend/internal/storage"
)

// OLIClient is the subset of the backend client the services use
type OLIClient interface {
	SearchAddressesByTag(ctx context.Context, params oli.SearchParams) (*oli.SearchResponse, error)
	GetLabels(ctx context.Context, params oli.LabelsParams) (*oli.LabelsResponse, error)
	GetAttestations(ctx context.Context, params oli.AttestationParams) (*oli.AttestationsResponse, error)
	GetAttesterAnalytics(ctx context.Context, params oli.AnalyticsParams) (json.RawMessage, error)
	HasAPIKey() bool
}

// SearchEventRecorder stores executed searches
type SearchEventRecorder interface {
	Record(ctx context.Context, event *models.SearchEvent) error
}

// Limits bounds the limit parameters accepted from callers
type Limits struct {
	DefaultTagLimit     int
	DefaultAddressLimit int
	MaxLimit            int
}

// DefaultLimits mirrors the defaults of the site's API routes
func DefaultLimits() Limits {
	return Limits{
		DefaultTagLimit:     100,
		DefaultAddressLimit: 10,
		MaxLimit:            100,
	}
}

// clampLimit returns def for non-positive values and caps at max
func clampLimit(value, def, max int) int {
	if value <= 0 {
		value = def
	}
	if max > 0 && value > max {
		value = max
	}
	if value < 1 {
		value = 1
	}
	return value
}

// resolveChainStrict normalizes a non-empty chain token and fails on unknown chains
func resolveChainStrict(resolver *chains.Resolver, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", nil
	}
	caip2, ok := resolver.NormalizeChainToken(token)
	if !ok {
		return "", errors.NewInvalidChainError(token)
	}
	return caip2, nil
}

// resolveChainLoose normalizes a chain token when possible and passes it
// through unchanged otherwise, leaving the decision to the backend
func resolveChainLoose(resolver *chains.Resolver, token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return ""
	}
	if caip2, ok := resolver.NormalizeChainToken(token); ok {
		return caip2
	}
	return token
}

// cachedFetch reads key from cache and falls back to load, storing the
// result. Cache failures are logged and never fail the request.
func cachedFetch[T any](ctx context.Context, cache *storage.CacheService, key string, load func(ctx context.Context) (T, error)) (value T, cached bool, err error) {
	start := time.Now()
	defer func() {
		defaultMonitor.RecordFetch(time.Since(start), cached, err)
	}()

	return readThrough(ctx, cache, key, load)
}

func readThrough[T any](ctx context.Context, cache *storage.CacheService, key string, load func(ctx context.Context) (T, error)) (T, bool, error) {
	logger := logging.FromContext(ctx).WithField("cacheKey", key)

	if cache != nil {
		var cached T
		found, err := cache.Get(ctx, key, &cached)
		if err != nil {
			logger.WithError(err).Warn("Cache read failed")
		} else if found {
			return cached, true, nil
		}
	}

	value, err := load(ctx)
	if err != nil {
		return value, false, err
	}

	if cache != nil {
		if err := cache.Set(ctx, key, value); err != nil {
			logger.WithError(err).Warn("Cache write failed")
		}
	}
	return value, false, nil
}

// recordEvent stores a search event; failures are logged only
func recordEvent(ctx context.Context, recorder SearchEventRecorder, event *models.SearchEvent) {
	if recorder == nil {
		return
	}
	if err := recorder.Record(ctx, event); err != nil {
		logging.FromContext(ctx).WithError(err).WithField("kind", event.Kind).Warn("Failed to record search event")
	}
}
