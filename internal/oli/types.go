package oli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Aghostraa/oli-frontend/internal/search"
	"github.com/Aghostraa/oli-frontend/internal/types"
)

// SearchParams filters GET /addresses/search
type SearchParams struct {
	TagID    string
	TagValue string
	ChainID  string
	Limit    int
}

// SearchResponse is the backend answer to a tag search
type SearchResponse struct {
	TagID    string       `json:"tag_id"`
	TagValue *string      `json:"tag_value"`
	Count    int          `json:"count"`
	Results  []search.Hit `json:"results"`
}

// LabelsParams filters GET /labels
type LabelsParams struct {
	Address    string
	ChainID    string
	Limit      int
	IncludeAll bool
}

// Label is one tag attached to an address
type Label struct {
	TagID    string          `json:"tag_id"`
	TagValue json.RawMessage `json:"tag_value"`
	ChainID  string          `json:"chain_id"`
	Time     string          `json:"time"`
	Attester *string         `json:"attester"`
}

// LabelsResponse is the backend answer to a labels lookup
type LabelsResponse struct {
	Address string  `json:"address"`
	Count   int     `json:"count"`
	Labels  []Label `json:"labels"`
}

// AttestationParams filters GET /attestations
type AttestationParams struct {
	Recipient    string
	Attester     string
	DataContains string
	ChainID      string
	Limit        int
	Order        types.SortOrder
}

// AttestationsResponse keeps attestation rows undecoded; the gateway passes
// them through to clients unchanged
type AttestationsResponse struct {
	Count        int               `json:"count"`
	Attestations []json.RawMessage `json:"attestations"`
}

// AnalyticsParams filters GET /analytics/attesters
type AnalyticsParams struct {
	Limit   int
	OrderBy types.LeaderboardOrder
	ChainID string
}

// APIError is a non-2xx answer from the backend
type APIError struct {
	StatusCode int
	Body       interface{}
	Wait       time.Duration // from Retry-After, 0 when absent
}

// RetryAfter lets the retry loop wait as long as the backend asked
func (e *APIError) RetryAfter() time.Duration {
	return e.Wait
}

func (e *APIError) Error() string {
	return fmt.Sprintf("OLI API error: status=%d", e.StatusCode)
}
