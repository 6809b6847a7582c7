package service

import (
	"context"
	"time"

	"github.com/Aghostraa/oli-frontend/internal/errors"
	"github.com/Aghostraa/oli-frontend/internal/models"
	"github.com/Aghostraa/oli-frontend/internal/types"
)

const (
	defaultTopTagsHours = 24
	maxTopTagsHours     = 24 * 180
	defaultTopTagsLimit = 10
	maxTopTagsLimit     = 100
)

// SearchEventStats reads aggregated search events
type SearchEventStats interface {
	TopTags(ctx context.Context, since time.Time, limit int) ([]models.TagSearchCount, error)
	CountSince(ctx context.Context, kind string, since time.Time) (uint64, error)
}

// AnalyticsService reports what users search for
type AnalyticsService struct {
	stats SearchEventStats
	now   func() time.Time
}

// NewAnalyticsService creates a new analytics service. stats may be nil when
// ClickHouse is not configured.
func NewAnalyticsService(stats SearchEventStats) *AnalyticsService {
	return &AnalyticsService{stats: stats, now: time.Now}
}

// TopTagsReport is the answer to a top tags query
type TopTagsReport struct {
	Hours          int                     `json:"hours"`
	Since          time.Time               `json:"since"`
	TagSearches    uint64                  `json:"tag_searches"`
	AddressLookups uint64                  `json:"address_lookups"`
	Tags           []models.TagSearchCount `json:"tags"`
}

// TopTags returns the most searched tags of the last hours
func (s *AnalyticsService) TopTags(ctx context.Context, hours, limit int) (*TopTagsReport, error) {
	if s.stats == nil {
		return nil, errors.NewServiceUnavailableError("clickhouse")
	}

	hours = clampLimit(hours, defaultTopTagsHours, maxTopTagsHours)
	limit = clampLimit(limit, defaultTopTagsLimit, maxTopTagsLimit)
	since := s.now().Add(-time.Duration(hours) * time.Hour).UTC()

	tags, err := s.stats.TopTags(ctx, since, limit)
	if err != nil {
		return nil, errors.NewDatabaseError("top_tags", err)
	}
	if tags == nil {
		tags = []models.TagSearchCount{}
	}

	tagSearches, err := s.stats.CountSince(ctx, string(types.SearchKindTag), since)
	if err != nil {
		return nil, errors.NewDatabaseError("count_searches", err)
	}
	lookups, err := s.stats.CountSince(ctx, string(types.SearchKindAddress), since)
	if err != nil {
		return nil, errors.NewDatabaseError("count_lookups", err)
	}

	return &TopTagsReport{
		Hours:          hours,
		Since:          since,
		TagSearches:    tagSearches,
		AddressLookups: lookups,
		Tags:           tags,
	}, nil
}
