package models

import (
	"time"

	"github.com/Aghostraa/oli-frontend/internal/types"
)

// SearchEvent is one executed search, stored for analytics
type SearchEvent struct {
	ID          string           `json:"id" db:"id"`
	Kind        types.SearchKind `json:"kind" db:"kind"`
	TagID       string           `json:"tagId" db:"tag_id"`
	TagValue    string           `json:"tagValue" db:"tag_value"`
	ChainID     string           `json:"chainId" db:"chain_id"`
	Address     string           `json:"address" db:"address"`
	ResultCount uint32           `json:"resultCount" db:"result_count"`
	GroupCount  uint32           `json:"groupCount" db:"group_count"`
	DurationMs  uint32           `json:"durationMs" db:"duration_ms"`
	CreatedAt   time.Time        `json:"createdAt" db:"created_at"`
}

// TagSearchCount is an aggregated count of searches for one tag
type TagSearchCount struct {
	TagID    string `json:"tagId" ch:"tag_id"`
	Searches uint64 `json:"searches" ch:"searches"`
}
