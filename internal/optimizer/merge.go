package optimizer

import (
	"math"
	"sort"

	"github.com/kimera-swm/go-core/internal/scar"
)

// AngleMergePolicy merges scars that share at least one geoid and sit
// within MaxAngleGap degrees of each other on the CLS axis. The
// heaviest scar of each cluster survives. Quarantined scars never
// participate.
type AngleMergePolicy struct {
	MaxAngleGap float64
}

func (p AngleMergePolicy) SelectGroups(scars []*scar.ScarRecord) []MergeGroup {
	candidates := make([]*scar.ScarRecord, 0, len(scars))
	for _, s := range scars {
		if !s.Quarantined {
			candidates = append(candidates, s)
		}
	}
	// Heaviest first so each cluster forms around its survivor.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Weight != candidates[j].Weight {
			return candidates[i].Weight > candidates[j].Weight
		}
		return candidates[i].ScarID < candidates[j].ScarID
	})

	var groups []MergeGroup
	taken := make(map[string]bool, len(candidates))
	for i, keep := range candidates {
		if taken[keep.ScarID] {
			continue
		}
		var absorb []*scar.ScarRecord
		for _, other := range candidates[i+1:] {
			if taken[other.ScarID] {
				continue
			}
			if math.Abs(keep.CLSAngle-other.CLSAngle) > p.MaxAngleGap {
				continue
			}
			if !keep.SharesGeoid(other) {
				continue
			}
			taken[other.ScarID] = true
			absorb = append(absorb, other)
		}
		if len(absorb) > 0 {
			taken[keep.ScarID] = true
			groups = append(groups, MergeGroup{Keep: keep, Absorb: absorb})
		}
	}
	return groups
}
