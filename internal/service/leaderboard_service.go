package service

import (
	"context"
	"encoding/json"

	"github.com/Aghostraa/oli-frontend/internal/chains"
	"github.com/Aghostraa/oli-frontend/internal/errors"
	"github.com/Aghostraa/oli-frontend/internal/oli"
	"github.com/Aghostraa/oli-frontend/internal/storage"
	"github.com/Aghostraa/oli-frontend/internal/types"
)

const (
	defaultLeaderboardLimit = 20
	maxLeaderboardLimit     = 100
)

// LeaderboardService serves the attester leaderboard
type LeaderboardService struct {
	client   OLIClient
	resolver *chains.Resolver
	cache    *storage.CacheService
}

// NewLeaderboardService creates a new leaderboard service
func NewLeaderboardService(client OLIClient, resolver *chains.Resolver, cache *storage.CacheService) *LeaderboardService {
	return &LeaderboardService{client: client, resolver: resolver, cache: cache}
}

// Attesters ranks attesters by order. A nil limit uses the default of 20; any
// given limit is clamped to [1,100].
func (s *LeaderboardService) Attesters(ctx context.Context, requested *int, order types.LeaderboardOrder, chainToken string) (json.RawMessage, error) {
	if !s.client.HasAPIKey() {
		return nil, errors.NewNotConfiguredError("OLI_API_KEY",
			"Set OLI_API_KEY (or NEXT_PUBLIC_OLI_API_KEY) to enable analytics.")
	}

	limit := defaultLeaderboardLimit
	if requested != nil {
		limit = min(max(*requested, 1), maxLeaderboardLimit)
	}
	if order != types.LeaderboardByAttestations {
		order = types.LeaderboardByTags
	}
	chainID := resolveChainLoose(s.resolver, chainToken)

	key := ""
	if s.cache != nil {
		key = s.cache.LeaderboardKey(string(order), chainID, limit)
	}

	resp, _, err := cachedFetch(ctx, s.cache, key, func(ctx context.Context) (json.RawMessage, error) {
		return s.client.GetAttesterAnalytics(ctx, oli.AnalyticsParams{
			Limit:   limit,
			OrderBy: order,
			ChainID: chainID,
		})
	})
	return resp, err
}
