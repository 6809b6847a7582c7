package service

import (
	"context"
	"strings"
	"time"

	"github.com/Aghostraa/oli-frontend/internal/chains"
	"github.com/Aghostraa/oli-frontend/internal/errors"
	"github.com/Aghostraa/oli-frontend/internal/logging"
	"github.com/Aghostraa/oli-frontend/internal/models"
	"github.com/Aghostraa/oli-frontend/internal/oli"
	"github.com/Aghostraa/oli-frontend/internal/search"
	"github.com/Aghostraa/oli-frontend/internal/storage"
	"github.com/Aghostraa/oli-frontend/internal/types"
)

// SearchService runs tag searches against the backend
type SearchService struct {
	client     OLIClient
	resolver   *chains.Resolver
	aggregator *search.Aggregator
	cache      *storage.CacheService
	events     SearchEventRecorder
	limits     Limits
}

// NewSearchService creates a new search service. cache and events may be nil.
func NewSearchService(
	client OLIClient,
	resolver *chains.Resolver,
	aggregator *search.Aggregator,
	cache *storage.CacheService,
	events SearchEventRecorder,
	limits Limits,
) *SearchService {
	if aggregator == nil {
		aggregator = search.NewAggregator()
	}
	return &SearchService{
		client:     client,
		resolver:   resolver,
		aggregator: aggregator,
		cache:      cache,
		events:     events,
		limits:     limits,
	}
}

// SearchInput defines the parameters of a tag search
type SearchInput struct {
	TagID    string `json:"tag_id"`
	TagValue string `json:"tag_value,omitempty"`
	ChainID  string `json:"chain_id,omitempty"` // any chain token; normalized to CAIP-2
	Limit    int    `json:"limit,omitempty"`
}

// GroupedSearchResult is a tag search grouped per address
type GroupedSearchResult struct {
	TagID        string         `json:"tag_id"`
	TagValue     *string        `json:"tag_value"`
	ChainID      string         `json:"chain_id,omitempty"`
	Count        int            `json:"count"`
	AddressCount int            `json:"address_count"`
	Groups       []search.Group `json:"groups"`
	Cached       bool           `json:"cached"`
}

// normalizedSearch is a validated SearchInput
type normalizedSearch struct {
	tagID    string
	tagValue string
	chainID  string
	limit    int
}

func (s *SearchService) normalize(input SearchInput) (normalizedSearch, error) {
	tagID := strings.TrimSpace(input.TagID)
	if tagID == "" {
		return normalizedSearch{}, errors.NewMissingParameterError("tag_id")
	}

	chainID, err := resolveChainStrict(s.resolver, input.ChainID)
	if err != nil {
		return normalizedSearch{}, err
	}

	return normalizedSearch{
		tagID:    tagID,
		tagValue: strings.TrimSpace(input.TagValue),
		chainID:  chainID,
		limit:    clampLimit(input.Limit, s.limits.DefaultTagLimit, s.limits.MaxLimit),
	}, nil
}

func (s *SearchService) fetch(ctx context.Context, q normalizedSearch) (*oli.SearchResponse, bool, error) {
	key := ""
	if s.cache != nil {
		key = s.cache.SearchKey(q.tagID, q.tagValue, q.chainID, q.limit)
	}

	return cachedFetch(ctx, s.cache, key, func(ctx context.Context) (*oli.SearchResponse, error) {
		return s.client.SearchAddressesByTag(ctx, oli.SearchParams{
			TagID:    q.tagID,
			TagValue: q.tagValue,
			ChainID:  q.chainID,
			Limit:    q.limit,
		})
	})
}

// SearchByTag returns the backend answer for a tag search unchanged
func (s *SearchService) SearchByTag(ctx context.Context, input SearchInput) (*oli.SearchResponse, error) {
	start := time.Now()

	q, err := s.normalize(input)
	if err != nil {
		return nil, err
	}

	resp, cached, err := s.fetch(ctx, q)
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"tagId":   q.tagID,
		"chainId": q.chainID,
		"results": len(resp.Results),
		"cached":  cached,
	}).Debug("Tag search completed")

	recordEvent(ctx, s.events, &models.SearchEvent{
		Kind:        types.SearchKindTag,
		TagID:       q.tagID,
		TagValue:    q.tagValue,
		ChainID:     q.chainID,
		ResultCount: uint32(len(resp.Results)), // #nosec G115 - bounded by limit
		DurationMs:  durationMs(start),
	})

	return resp, nil
}

// SearchGroups runs a tag search and groups the hits per address, newest first
func (s *SearchService) SearchGroups(ctx context.Context, input SearchInput) (*GroupedSearchResult, error) {
	start := time.Now()

	q, err := s.normalize(input)
	if err != nil {
		return nil, err
	}

	resp, cached, err := s.fetch(ctx, q)
	if err != nil {
		return nil, err
	}

	filter := search.Filter{TagID: q.tagID}
	if q.tagValue != "" {
		value := q.tagValue
		filter.TagValue = &value
	}
	groups := s.aggregator.GroupAndSort(resp.Results, filter)

	recordEvent(ctx, s.events, &models.SearchEvent{
		Kind:        types.SearchKindTag,
		TagID:       q.tagID,
		TagValue:    q.tagValue,
		ChainID:     q.chainID,
		ResultCount: uint32(len(resp.Results)), // #nosec G115 - bounded by limit
		GroupCount:  uint32(len(groups)),       // #nosec G115 - bounded by limit
		DurationMs:  durationMs(start),
	})

	return &GroupedSearchResult{
		TagID:        q.tagID,
		TagValue:     filter.TagValue,
		ChainID:      q.chainID,
		Count:        search.CountAttestations(groups),
		AddressCount: len(groups),
		Groups:       groups,
		Cached:       cached,
	}, nil
}

func durationMs(start time.Time) uint32 {
	ms := time.Since(start).Milliseconds()
	if ms < 0 {
		return 0
	}
	if ms > int64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(ms)
}
