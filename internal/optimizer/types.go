package optimizer

import "github.com/kimera-swm/go-core/internal/scar"

// Config controls the vault maintenance cycle.
type Config struct {
	// DecayLambda is the exponential decay rate per day of scar age.
	DecayLambda float64
	// PruneThreshold drops scars whose decayed weight falls below it.
	PruneThreshold float64
}

func DefaultConfig() Config {
	return Config{
		DecayLambda:    0.01,
		PruneThreshold: 0.1,
	}
}

// MergeGroup names one surviving scar and the scars it absorbs.
type MergeGroup struct {
	Keep   *scar.ScarRecord
	Absorb []*scar.ScarRecord
}

// MergePolicy selects groups of redundant scars to collapse. Policies
// only select; the optimizer applies the weight transfer and deletes.
type MergePolicy interface {
	SelectGroups(scars []*scar.ScarRecord) []MergeGroup
}

// NoMergePolicy never merges. It is the default.
type NoMergePolicy struct{}

func (NoMergePolicy) SelectGroups([]*scar.ScarRecord) []MergeGroup { return nil }

// CycleReport summarizes one maintenance cycle.
type CycleReport struct {
	Decayed int `json:"decayed"`
	Pruned  int `json:"pruned"`
	Merged  int `json:"merged"`
}
