package optimizer

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/kimera-swm/go-core/internal/scar"
	"github.com/kimera-swm/go-core/internal/store"
	"github.com/kimera-swm/go-core/internal/vault"
)

// weightEpsilon suppresses store writes for sub-microscopic decay steps.
const weightEpsilon = 1e-9

// Optimizer runs the scar maintenance cycle over both vaults: decay
// weights by age, prune what decayed away, then merge redundant scars.
type Optimizer struct {
	config  Config
	manager *vault.Manager
	store   store.ScarStore
	merge   MergePolicy
}

// New builds an Optimizer. A nil merge policy means no merging. The
// store may be nil when the vaults are memory-only.
func New(config Config, m *vault.Manager, st store.ScarStore, merge MergePolicy) *Optimizer {
	if merge == nil {
		merge = NoMergePolicy{}
	}
	return &Optimizer{
		config:  config,
		manager: m,
		store:   st,
		merge:   merge,
	}
}

// #region decay

// DecayWeights recomputes every scar's weight from its initial weight
// and age: weight = initial * exp(-lambda * days). Scars stamped in the
// future count as age zero. Returns the number of scars whose weight
// changed.
func (o *Optimizer) DecayWeights(now time.Time) (int, error) {
	decayed := 0
	for _, vaultID := range []scar.VaultID{scar.VaultA, scar.VaultB} {
		for _, s := range o.manager.Snapshot(vaultID) {
			days := now.Sub(s.Timestamp).Hours() / 24
			if days < 0 {
				days = 0
			}
			next := s.InitialWeight * math.Exp(-o.config.DecayLambda*days)
			if math.Abs(next-s.Weight) < weightEpsilon {
				continue
			}
			o.manager.UpdateWeight(s.ScarID, next)
			if o.store != nil {
				s.Weight = next
				if err := o.store.Update(s); err != nil {
					return decayed, fmt.Errorf("decay %s: %w", s.ScarID, err)
				}
			}
			decayed++
		}
	}
	return decayed, nil
}

// #endregion decay

// #region prune

// PruneScars removes every scar whose weight has fallen below the prune
// threshold. Quarantine does not protect a scar from pruning.
func (o *Optimizer) PruneScars() (int, error) {
	pruned := 0
	for _, vaultID := range []scar.VaultID{scar.VaultA, scar.VaultB} {
		for _, s := range o.manager.Snapshot(vaultID) {
			if s.Weight >= o.config.PruneThreshold {
				continue
			}
			if _, ok := o.manager.Remove(s.ScarID); !ok {
				continue
			}
			if o.store != nil {
				if err := o.store.Delete(s.ScarID); err != nil {
					return pruned, fmt.Errorf("prune %s: %w", s.ScarID, err)
				}
			}
			pruned++
		}
	}
	return pruned, nil
}

// #endregion prune

// #region merge

// MergeScars asks the policy for merge groups per vault and applies
// them: the keeper absorbs the group's weight, the rest are deleted.
// Returns the number of scars absorbed.
func (o *Optimizer) MergeScars() (int, error) {
	merged := 0
	for _, vaultID := range []scar.VaultID{scar.VaultA, scar.VaultB} {
		groups := o.merge.SelectGroups(o.manager.Snapshot(vaultID))
		for _, g := range groups {
			if g.Keep == nil || len(g.Absorb) == 0 {
				continue
			}
			weight := g.Keep.Weight
			initial := g.Keep.InitialWeight
			for _, a := range g.Absorb {
				if _, ok := o.manager.Remove(a.ScarID); !ok {
					continue
				}
				weight += a.Weight
				initial += a.InitialWeight
				if o.store != nil {
					if err := o.store.Delete(a.ScarID); err != nil {
						return merged, fmt.Errorf("merge absorb %s: %w", a.ScarID, err)
					}
				}
				merged++
			}
			g.Keep.Weight = weight
			g.Keep.InitialWeight = initial
			o.manager.AbsorbWeight(g.Keep.ScarID, weight, initial)
			if o.store != nil {
				if err := o.store.Update(g.Keep); err != nil {
					return merged, fmt.Errorf("merge keep %s: %w", g.Keep.ScarID, err)
				}
			}
		}
	}
	return merged, nil
}

// #endregion merge

// RunCycle performs decay, prune, and merge in that order.
func (o *Optimizer) RunCycle(now time.Time) (CycleReport, error) {
	var report CycleReport
	var err error

	if report.Decayed, err = o.DecayWeights(now); err != nil {
		return report, err
	}
	if report.Pruned, err = o.PruneScars(); err != nil {
		return report, err
	}
	if report.Merged, err = o.MergeScars(); err != nil {
		return report, err
	}
	log.Printf("[OPT] cycle: decayed=%d pruned=%d merged=%d",
		report.Decayed, report.Pruned, report.Merged)
	return report, nil
}
