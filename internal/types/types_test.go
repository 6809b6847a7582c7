package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSortOrder(t *testing.T) {
	assert.Equal(t, OrderAsc, ParseSortOrder("asc"))
	assert.Equal(t, OrderDesc, ParseSortOrder("desc"))
	assert.Equal(t, OrderDesc, ParseSortOrder(""))
	assert.Equal(t, OrderDesc, ParseSortOrder("ASC"))
}

func TestParseLeaderboardOrder(t *testing.T) {
	assert.Equal(t, LeaderboardByAttestations, ParseLeaderboardOrder("attestations"))
	assert.Equal(t, LeaderboardByTags, ParseLeaderboardOrder("tags"))
	assert.Equal(t, LeaderboardByTags, ParseLeaderboardOrder("bogus"))
}

func TestServiceError_Error(t *testing.T) {
	err := &ServiceError{Code: "INVALID_CHAIN", Message: "unknown chain: foo"}
	assert.EqualError(t, err, "unknown chain: foo")
}
