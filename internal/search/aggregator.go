// Package search turns flat tag-search hits into per-address groups of
// display attestations.
package search

import (
	"sort"
	"strings"
	"time"
)

const (
	// ZeroAddress stands in for a missing attester
	ZeroAddress = "0x0000000000000000000000000000000000000000"
	// AnyTagValue is shown when a tag was searched without a value
	AnyTagValue = "(any)"

	txIDPrefix      = "search"
	unknownAttester = "unknown"
)

// Hit is one row returned by the backend "search addresses by tag" endpoint
type Hit struct {
	Address  string  `json:"address"`
	ChainID  string  `json:"chain_id"`
	Time     string  `json:"time"`
	Attester *string `json:"attester"`
}

// Filter is the tag the user searched for. TagID empty means no tag.
type Filter struct {
	TagID    string
	TagValue *string
}

// Attestation is the display record synthesized from a Hit
type Attestation struct {
	Attester    string            `json:"attester"`
	TimeCreated int64             `json:"timeCreated"`
	TxID        string            `json:"txid"`
	IsOffchain  bool              `json:"isOffchain"`
	Revoked     bool              `json:"revoked"`
	ChainID     string            `json:"chain_id"`
	TagsJSON    map[string]string `json:"tags_json"`
	Recipient   string            `json:"recipient"`
	// TimeParsed is false when Time could not be parsed and TimeCreated is the
	// synthesis time instead
	TimeParsed bool `json:"timeParsed"`
}

// Group collects the attestations of one address
type Group struct {
	Address      string        `json:"address"`
	Attestations []Attestation `json:"attestations"`
}

// LatestTime returns the newest TimeCreated in the group, or 0 when empty
func (g Group) LatestTime() int64 {
	var latest int64
	for i, a := range g.Attestations {
		if i == 0 || a.TimeCreated > latest {
			latest = a.TimeCreated
		}
	}
	return latest
}

// Aggregator synthesizes attestations and groups hits. It holds no state
// besides its clock and is safe for concurrent use.
type Aggregator struct {
	now func() time.Time
}

// NewAggregator creates an aggregator using the wall clock
func NewAggregator() *Aggregator {
	return &Aggregator{now: time.Now}
}

// NewAggregatorWithClock creates an aggregator that reads "now" from clock
func NewAggregatorWithClock(clock func() time.Time) *Aggregator {
	if clock == nil {
		clock = time.Now
	}
	return &Aggregator{now: clock}
}

// timeLayouts are the timestamp shapes the backend has been seen to emit
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime parses value as UTC unless it carries an offset
func parseTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// TxID is the synthetic id of a hit. Hits equal in address, chain, time and
// attester share an id.
func TxID(hit Hit) string {
	attester := unknownAttester
	if hit.Attester != nil {
		attester = *hit.Attester
	}
	return strings.Join([]string{txIDPrefix, hit.Address, hit.ChainID, hit.Time, attester}, "-")
}

// Synthesize builds the display attestation for hit. An unparseable time is
// replaced by the current time, so such hits sort as the most recent.
func (a *Aggregator) Synthesize(hit Hit, filter Filter) Attestation {
	var created int64
	parsed, ok := parseTime(hit.Time)
	if ok {
		created = parsed.Unix()
	} else {
		created = a.now().Unix()
	}

	var tags map[string]string
	if filter.TagID != "" {
		value := AnyTagValue
		if filter.TagValue != nil {
			value = *filter.TagValue
		}
		tags = map[string]string{filter.TagID: value}
	}

	attester := ZeroAddress
	if hit.Attester != nil {
		attester = *hit.Attester
	}

	return Attestation{
		Attester:    attester,
		TimeCreated: created,
		TxID:        TxID(hit),
		IsOffchain:  false,
		Revoked:     false,
		ChainID:     hit.ChainID,
		TagsJSON:    tags,
		Recipient:   hit.Address,
		TimeParsed:  ok,
	}
}

// GroupAndSort groups hits by case-insensitive address, drops attestations
// whose synthetic id repeats within a group, and orders attestations and
// groups newest first. Ties keep input order. hits is not modified.
func (a *Aggregator) GroupAndSort(hits []Hit, filter Filter) []Group {
	groups := make([]Group, 0)
	index := make(map[string]int)
	seen := make(map[string]map[string]struct{})

	for _, hit := range hits {
		key := strings.ToLower(hit.Address)
		pos, ok := index[key]
		if !ok {
			pos = len(groups)
			index[key] = pos
			seen[key] = make(map[string]struct{})
			groups = append(groups, Group{Address: hit.Address, Attestations: []Attestation{}})
		}

		attestation := a.Synthesize(hit, filter)
		if _, dup := seen[key][attestation.TxID]; dup {
			continue
		}
		seen[key][attestation.TxID] = struct{}{}
		groups[pos].Attestations = append(groups[pos].Attestations, attestation)
	}

	for i := range groups {
		list := groups[i].Attestations
		sort.SliceStable(list, func(x, y int) bool {
			return list[x].TimeCreated > list[y].TimeCreated
		})
	}

	latest := make([]int64, len(groups))
	order := make([]int, len(groups))
	for i := range groups {
		latest[i] = groups[i].LatestTime()
		order[i] = i
	}
	sort.SliceStable(order, func(x, y int) bool {
		return latest[order[x]] > latest[order[y]]
	})

	sorted := make([]Group, len(groups))
	for i, pos := range order {
		sorted[i] = groups[pos]
	}
	return sorted
}

// CountAttestations returns the total number of attestations across groups
func CountAttestations(groups []Group) int {
	total := 0
	for _, g := range groups {
		total += len(g.Attestations)
	}
	return total
}
