// Package types provides common type definitions for the label search gateway.
package types

// SortOrder is the ordering requested for attestation listings
type SortOrder string

const (
	// OrderDesc returns the newest records first
	OrderDesc SortOrder = "desc"
	// OrderAsc returns the oldest records first
	OrderAsc SortOrder = "asc"
)

// ParseSortOrder maps a query value to a SortOrder; anything but "asc" is descending
func ParseSortOrder(value string) SortOrder {
	if value == string(OrderAsc) {
		return OrderAsc
	}
	return OrderDesc
}

// LeaderboardOrder is the ranking column for attester analytics
type LeaderboardOrder string

const (
	// LeaderboardByTags ranks attesters by number of tags written
	LeaderboardByTags LeaderboardOrder = "tags"
	// LeaderboardByAttestations ranks attesters by number of attestations
	LeaderboardByAttestations LeaderboardOrder = "attestations"
)

// ParseLeaderboardOrder maps a query value to a LeaderboardOrder, defaulting to tags
func ParseLeaderboardOrder(value string) LeaderboardOrder {
	if value == string(LeaderboardByAttestations) {
		return LeaderboardByAttestations
	}
	return LeaderboardByTags
}

// SearchKind identifies which lookup produced a search event
type SearchKind string

const (
	// SearchKindTag is a search for addresses carrying a tag
	SearchKindTag SearchKind = "tag"
	// SearchKindAddress is a lookup of labels and attestations for one address
	SearchKindAddress SearchKind = "address"
)

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}
