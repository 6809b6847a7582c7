package search

import (
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// genHit draws from a small address/attester pool so that groups and
// duplicate ids actually occur
func genHit() gopter.Gen {
	addresses := []string{"0xAbC", "0xabc", "0xDEF", "0x123", "0x456"}
	attesters := []string{"", "0x111", "0x222"}

	return gopter.CombineGens(
		gen.IntRange(0, len(addresses)-1),
		gen.IntRange(1, 3),
		gen.Int64Range(1_600_000_000, 1_600_000_100),
		gen.IntRange(0, len(attesters)-1),
	).Map(func(values []interface{}) Hit {
		hit := Hit{
			Address: addresses[values[0].(int)],
			ChainID: "eip155:" + strings.Repeat("1", values[1].(int)),
			Time:    time.Unix(values[2].(int64), 0).UTC().Format(time.RFC3339),
		}
		if a := attesters[values[3].(int)]; a != "" {
			hit.Attester = &a
		}
		return hit
	})
}

func TestGroupAndSortProperties(t *testing.T) {
	agg := NewAggregatorWithClock(func() time.Time { return fixedNow })

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	hitsGen := gen.SliceOf(genHit())

	properties.Property("one group per lower-cased address", prop.ForAll(
		func(hits []Hit) bool {
			want := make(map[string]struct{})
			for _, h := range hits {
				want[strings.ToLower(h.Address)] = struct{}{}
			}
			groups := agg.GroupAndSort(hits, Filter{})
			if len(groups) != len(want) {
				return false
			}
			for _, g := range groups {
				if _, ok := want[strings.ToLower(g.Address)]; !ok {
					return false
				}
			}
			return true
		},
		hitsGen,
	))

	properties.Property("attestations are unique and newest first", prop.ForAll(
		func(hits []Hit) bool {
			for _, g := range agg.GroupAndSort(hits, Filter{}) {
				ids := make(map[string]struct{})
				for i, a := range g.Attestations {
					if _, dup := ids[a.TxID]; dup {
						return false
					}
					ids[a.TxID] = struct{}{}
					if i > 0 && g.Attestations[i-1].TimeCreated < a.TimeCreated {
						return false
					}
				}
			}
			return true
		},
		hitsGen,
	))

	properties.Property("groups are ordered by their latest attestation", prop.ForAll(
		func(hits []Hit) bool {
			groups := agg.GroupAndSort(hits, Filter{})
			for i := 1; i < len(groups); i++ {
				if groups[i-1].LatestTime() < groups[i].LatestTime() {
					return false
				}
			}
			return true
		},
		hitsGen,
	))

	properties.Property("every distinct synthetic id survives", prop.ForAll(
		func(hits []Hit) bool {
			ids := make(map[string]struct{})
			for _, h := range hits {
				ids[strings.ToLower(h.Address)+"|"+TxID(h)] = struct{}{}
			}
			return CountAttestations(agg.GroupAndSort(hits, Filter{})) == len(ids)
		},
		hitsGen,
	))

	properties.Property("grouping is deterministic", prop.ForAll(
		func(hits []Hit) bool {
			first := agg.GroupAndSort(hits, Filter{TagID: "owner_project"})
			second := agg.GroupAndSort(hits, Filter{TagID: "owner_project"})
			if len(first) != len(second) {
				return false
			}
			for i := range first {
				if first[i].Address != second[i].Address || len(first[i].Attestations) != len(second[i].Attestations) {
					return false
				}
				for j := range first[i].Attestations {
					if first[i].Attestations[j].TxID != second[i].Attestations[j].TxID {
						return false
					}
				}
			}
			return true
		},
		hitsGen,
	))

	properties.TestingRun(t)
}
