package vault

import (
	"sort"

	"github.com/kimera-swm/go-core/internal/scar"
)

// #region eviction-policy

// EvictionPolicy selects fracture-eviction candidates from an over-stressed
// vault, in eviction order. Quarantined scars must not be selected.
type EvictionPolicy interface {
	Select(scars []*scar.ScarRecord) []*scar.ScarRecord
}

// #endregion eviction-policy

// #region least-weight-first

// LeastWeightFirst orders candidates by ascending weight, breaking ties by
// timestamp then ID so eviction is deterministic.
type LeastWeightFirst struct{}

func (LeastWeightFirst) Select(scars []*scar.ScarRecord) []*scar.ScarRecord {
	candidates := make([]*scar.ScarRecord, 0, len(scars))
	for _, s := range scars {
		if s.Quarantined {
			continue
		}
		candidates = append(candidates, s)
	}
	sortByWeight(candidates)
	return candidates
}

// #endregion least-weight-first

// #region helpers

// sortByWeight orders scars by (weight, timestamp, id) ascending.
func sortByWeight(scars []*scar.ScarRecord) {
	sort.SliceStable(scars, func(i, j int) bool {
		if scars[i].Weight != scars[j].Weight {
			return scars[i].Weight < scars[j].Weight
		}
		if !scars[i].Timestamp.Equal(scars[j].Timestamp) {
			return scars[i].Timestamp.Before(scars[j].Timestamp)
		}
		return scars[i].ScarID < scars[j].ScarID
	})
}

// #endregion helpers
