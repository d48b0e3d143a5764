package vault

import (
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/kimera-swm/go-core/internal/scar"
	"github.com/kimera-swm/go-core/internal/store"
)

// #region manager

// Manager owns the two scar vaults and the fallback queue. All mutation goes
// through its methods; a single mutex guards the pair because fracture and
// rebalance read-then-write aggregate state across both vaults.
type Manager struct {
	config   Config
	eviction EvictionPolicy
	store    store.ScarStore // optional; nil means in-memory only

	mu       sync.Mutex // guards both vaults and the fallback queue together
	vaults   map[scar.VaultID]map[string]*scar.ScarRecord
	fallback []*scar.ScarRecord
}

// NewManager creates a manager with empty vaults. eviction may be nil
// (LeastWeightFirst is used); st may be nil for store-less operation.
func NewManager(config Config, eviction EvictionPolicy, st store.ScarStore) *Manager {
	if eviction == nil {
		eviction = LeastWeightFirst{}
	}
	return &Manager{
		config:   config,
		eviction: eviction,
		store:    st,
		vaults: map[scar.VaultID]map[string]*scar.ScarRecord{
			scar.VaultA: {},
			scar.VaultB: {},
		},
	}
}

// #endregion manager

// #region hydrate

// Hydrate loads both vaults and the fallback queue from the attached store,
// replacing in-memory contents. No-op without a store.
func (m *Manager) Hydrate() error {
	if m.store == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range []scar.VaultID{scar.VaultA, scar.VaultB} {
		records, err := m.store.QueryByVault(id, 0)
		if err != nil {
			return fmt.Errorf("hydrate %s: %w", id, err)
		}
		m.vaults[id] = make(map[string]*scar.ScarRecord, len(records))
		for _, rec := range records {
			m.vaults[id][rec.ScarID] = rec
		}
	}

	queue, err := m.store.QueryByVault(scar.VaultFallback, 0)
	if err != nil {
		return fmt.Errorf("hydrate %s: %w", scar.VaultFallback, err)
	}
	m.fallback = queue
	return nil
}

// #endregion hydrate

// #region routing

// RouteScar applies the three-stage routing rule, first match wins:
// high mutation frequency pins to A, strong polarity routes by sign, and the
// remainder goes to the vault whose average cls angle is closest. Ties and
// the empty-pair case favor A.
func (m *Manager) RouteScar(s *scar.ScarRecord) scar.VaultID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.routeLocked(s)
}

func (m *Manager) routeLocked(s *scar.ScarRecord) scar.VaultID {
	if s.MutationFrequency > 0.75 {
		return scar.VaultA
	}
	if math.Abs(s.SemanticPolarity) >= 0.5 {
		if s.SemanticPolarity > 0 {
			return scar.VaultA
		}
		return scar.VaultB
	}

	distA := angleDistance(m.vaults[scar.VaultA], s.CLSAngle)
	distB := angleDistance(m.vaults[scar.VaultB], s.CLSAngle)
	if distB < distA {
		return scar.VaultB
	}
	return scar.VaultA
}

// angleDistance is the distance from angle to the vault's average cls angle.
// An empty vault is never "closer": it reads as infinitely far.
func angleDistance(vault map[string]*scar.ScarRecord, angle float64) float64 {
	if len(vault) == 0 {
		return math.Inf(1)
	}
	var sum float64
	for _, s := range vault {
		sum += s.CLSAngle
	}
	return math.Abs(angle - sum/float64(len(vault)))
}

// #endregion routing

// #region insert

// InsertScar routes and stores a new scar. When the target vault's stress
// index exceeds the fracture threshold, fracture handling evicts low-priority
// scars to the fallback queue first; the incoming scar is never the one
// evicted, but it is diverted to the fallback queue when eviction cannot
// free enough room. Persistence failures surface after the in-memory insert
// succeeds.
func (m *Manager) InsertScar(s *scar.ScarRecord) (InsertResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	target := m.routeLocked(s)
	s.VaultID = target
	vault := m.vaults[target]

	result := InsertResult{Outcome: OutcomeInserted, VaultID: target}

	vsi := float64(len(vault)) / float64(m.config.Capacity)
	if vsi > m.config.FractureThreshold {
		evicted := m.fractureLocked(target)
		result.Outcome = OutcomeInsertedAfterFracture
		result.Evicted = evicted
		log.Printf("[VAULT] fracture on %s: vsi=%.2f evicted=%d", target, vsi, evicted)

		// Eviction comes up short when the vault is mostly quarantined.
		// The incoming scar goes to the fallback queue rather than push
		// the vault to capacity or past it.
		if len(vault)+1 >= m.config.Capacity {
			s.VaultID = scar.VaultFallback
			m.fallback = append(m.fallback, s)
			result.Outcome = OutcomeDivertedToFallback
			result.VaultID = scar.VaultFallback
			log.Printf("[VAULT] divert to fallback: %s eviction short on %s", s.ScarID, target)
			if m.store != nil {
				if err := m.store.Save(s); err != nil {
					return result, fmt.Errorf("persist scar %s: %w", s.ScarID, err)
				}
			}
			return result, nil
		}
	}

	vault[s.ScarID] = s

	if m.store != nil {
		if err := m.store.Save(s); err != nil {
			return result, fmt.Errorf("persist scar %s: %w", s.ScarID, err)
		}
	}
	return result, nil
}

// fractureLocked moves roughly 20% of the eviction candidates to the
// fallback queue — more when needed to leave the post-insert size strictly
// below capacity.
func (m *Manager) fractureLocked(vaultID scar.VaultID) int {
	vault := m.vaults[vaultID]
	candidates := m.eviction.Select(scarsOf(vault))
	if len(candidates) == 0 {
		return 0
	}

	evictN := len(candidates) / 5
	if evictN < 1 {
		evictN = 1
	}
	// Post-fracture size including the incoming scar must stay below capacity.
	if need := len(vault) + 2 - m.config.Capacity; need > evictN {
		evictN = need
	}
	if evictN > len(candidates) {
		evictN = len(candidates)
	}

	for _, victim := range candidates[:evictN] {
		delete(vault, victim.ScarID)
		victim.VaultID = scar.VaultFallback
		m.fallback = append(m.fallback, victim)
		if m.store != nil {
			if err := m.store.UpdateVaultAssignment(victim.ScarID, scar.VaultFallback); err != nil {
				log.Printf("[VAULT] fallback reassign %s: %v", victim.ScarID, err)
			}
		}
	}
	return evictN
}

// #endregion insert

// #region queries

// TotalScarCount returns the number of scars in one vault.
func (m *Manager) TotalScarCount(vaultID scar.VaultID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.vaults[vaultID])
}

// TotalScarWeight returns the summed weight of one vault.
func (m *Manager) TotalScarWeight(vaultID scar.VaultID) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total float64
	for _, s := range m.vaults[vaultID] {
		total += s.Weight
	}
	return total
}

// Snapshot returns copies of one vault's scars.
func (m *Manager) Snapshot(vaultID scar.VaultID) []*scar.ScarRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*scar.ScarRecord, 0, len(m.vaults[vaultID]))
	for _, s := range m.vaults[vaultID] {
		c := *s
		out = append(out, &c)
	}
	sortByWeight(out)
	return out
}

// FallbackQueue returns a copy of the fallback queue.
func (m *Manager) FallbackQueue() []*scar.ScarRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*scar.ScarRecord, len(m.fallback))
	copy(out, m.fallback)
	return out
}

// #endregion queries

// #region mutation

// UpdateWeight sets a scar's weight wherever it lives. Returns false if the
// scar is in neither vault.
func (m *Manager) UpdateWeight(scarID string, weight float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, vault := range m.vaults {
		if s, ok := vault[scarID]; ok {
			s.Weight = weight
			return true
		}
	}
	return false
}

// AbsorbWeight sets both the current and initial weight of a scar, so
// later decay passes start from the combined mass. Returns false if the
// scar is in neither vault.
func (m *Manager) AbsorbWeight(scarID string, weight, initialWeight float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, vault := range m.vaults {
		if s, ok := vault[scarID]; ok {
			s.Weight = weight
			s.InitialWeight = initialWeight
			return true
		}
	}
	return false
}

// Remove deletes a scar from whichever vault holds it.
func (m *Manager) Remove(scarID string) (*scar.ScarRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, vault := range m.vaults {
		if s, ok := vault[scarID]; ok {
			delete(vault, scarID)
			return s, true
		}
	}
	return nil, false
}

// #endregion mutation

// #region imbalance

// DetectImbalance reports whether one vault's count (or total weight)
// exceeds threshold times the other's. Two empty vaults are balanced.
func (m *Manager) DetectImbalance(byWeight bool, threshold float64) (bool, scar.VaultID, scar.VaultID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.detectImbalanceLocked(byWeight, threshold)
}

func (m *Manager) detectImbalanceLocked(byWeight bool, threshold float64) (bool, scar.VaultID, scar.VaultID) {
	a := m.totalLocked(scar.VaultA, byWeight)
	b := m.totalLocked(scar.VaultB, byWeight)

	if a == 0 && b == 0 {
		return false, "", ""
	}

	heavier, lighter := scar.VaultA, scar.VaultB
	heavy, light := a, b
	if b > a {
		heavier, lighter = scar.VaultB, scar.VaultA
		heavy, light = b, a
	}

	if heavy > threshold*light {
		return true, heavier, lighter
	}
	return false, "", ""
}

func (m *Manager) totalLocked(vaultID scar.VaultID, byWeight bool) float64 {
	if !byWeight {
		return float64(len(m.vaults[vaultID]))
	}
	var total float64
	for _, s := range m.vaults[vaultID] {
		total += s.Weight
	}
	return total
}

// #endregion imbalance

// #region rebalance

// Rebalance moves the lightest non-quarantined scars from the heavier vault
// to the lighter until half the difference is covered. Returns the number of
// scars moved; zero when the pair is already balanced.
func (m *Manager) Rebalance(byWeight bool, threshold float64) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	imbalanced, heavier, lighter := m.detectImbalanceLocked(byWeight, threshold)
	if !imbalanced {
		return 0
	}

	movable := make([]*scar.ScarRecord, 0, len(m.vaults[heavier]))
	for _, s := range m.vaults[heavier] {
		if !s.Quarantined {
			movable = append(movable, s)
		}
	}
	sortByWeight(movable)

	diff := m.totalLocked(heavier, byWeight) - m.totalLocked(lighter, byWeight)
	target := diff / 2

	moved := 0
	var movedWeight float64
	for _, s := range movable {
		if byWeight {
			if movedWeight >= target {
				break
			}
			// Never overshoot the target once something has moved; chasing
			// the exact half-difference can flip the imbalance instead.
			if moved > 0 && movedWeight+s.Weight > target {
				break
			}
		} else {
			if float64(moved) >= math.Ceil(target) {
				break
			}
		}

		delete(m.vaults[heavier], s.ScarID)
		s.VaultID = lighter
		m.vaults[lighter][s.ScarID] = s
		moved++
		movedWeight += s.Weight

		if m.store != nil {
			if err := m.store.UpdateVaultAssignment(s.ScarID, lighter); err != nil {
				log.Printf("[VAULT] rebalance reassign %s: %v", s.ScarID, err)
			}
		}
	}

	if moved > 0 {
		log.Printf("[VAULT] rebalance: moved %d scars %s -> %s", moved, heavier, lighter)
	}
	return moved
}

// #endregion rebalance

// #region helpers

func scarsOf(vault map[string]*scar.ScarRecord) []*scar.ScarRecord {
	out := make([]*scar.ScarRecord, 0, len(vault))
	for _, s := range vault {
		out = append(out, s)
	}
	return out
}

// #endregion helpers
