package optimizer

import (
	"math"
	"testing"
	"time"

	"github.com/kimera-swm/go-core/internal/scar"
	"github.com/kimera-swm/go-core/internal/store"
	"github.com/kimera-swm/go-core/internal/vault"
)

var baseTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func seedScar(t *testing.T, m *vault.Manager, id string, ageDays float64, weight float64) *scar.ScarRecord {
	t.Helper()
	s := &scar.ScarRecord{
		ScarID:            id,
		Geoids:            []string{"g-" + id},
		Reason:            "test",
		Timestamp:         baseTime.Add(-time.Duration(ageDays * 24 * float64(time.Hour))),
		MutationFrequency: 0.9, // routes to vault A
		InitialWeight:     weight,
		Weight:            weight,
	}
	if _, err := m.InsertScar(s); err != nil {
		t.Fatalf("insert %s: %v", id, err)
	}
	return s
}

// #region decay

func TestDecayWeightsExponential(t *testing.T) {
	m := vault.NewManager(vault.DefaultConfig(), nil, nil)
	seedScar(t, m, "old", 100, 1.0)

	o := New(DefaultConfig(), m, nil, nil)
	decayed, err := o.DecayWeights(baseTime)
	if err != nil {
		t.Fatalf("decay: %v", err)
	}
	if decayed != 1 {
		t.Fatalf("expected 1 decayed, got %d", decayed)
	}

	want := math.Exp(-0.01 * 100)
	got := m.TotalScarWeight(scar.VaultA)
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("weight = %f, want %f", got, want)
	}
}

func TestDecayWeightsIdempotentAtSameInstant(t *testing.T) {
	m := vault.NewManager(vault.DefaultConfig(), nil, nil)
	seedScar(t, m, "s1", 10, 1.0)

	o := New(DefaultConfig(), m, nil, nil)
	if _, err := o.DecayWeights(baseTime); err != nil {
		t.Fatalf("decay: %v", err)
	}
	decayed, err := o.DecayWeights(baseTime)
	if err != nil {
		t.Fatalf("second decay: %v", err)
	}
	if decayed != 0 {
		t.Fatalf("second pass at the same instant changed %d scars", decayed)
	}
}

func TestDecayMonotonicOverTime(t *testing.T) {
	m := vault.NewManager(vault.DefaultConfig(), nil, nil)
	seedScar(t, m, "s1", 0, 1.0)

	o := New(DefaultConfig(), m, nil, nil)
	prev := m.TotalScarWeight(scar.VaultA)
	for days := 50; days <= 500; days += 50 {
		now := baseTime.Add(time.Duration(days) * 24 * time.Hour)
		if _, err := o.DecayWeights(now); err != nil {
			t.Fatalf("decay at +%dd: %v", days, err)
		}
		got := m.TotalScarWeight(scar.VaultA)
		if got >= prev {
			t.Fatalf("weight did not decrease at +%dd: %f -> %f", days, prev, got)
		}
		prev = got
	}
	// After ~500 days the weight is a tiny fraction of the initial mass.
	if prev > 0.01 {
		t.Fatalf("weight %f still large after 500 days", prev)
	}
}

func TestDecayFutureTimestampAgeZero(t *testing.T) {
	m := vault.NewManager(vault.DefaultConfig(), nil, nil)
	seedScar(t, m, "future", -5, 1.0)

	o := New(DefaultConfig(), m, nil, nil)
	decayed, err := o.DecayWeights(baseTime)
	if err != nil {
		t.Fatalf("decay: %v", err)
	}
	if decayed != 0 {
		t.Fatal("future-stamped scar must not decay")
	}
	if got := m.TotalScarWeight(scar.VaultA); got != 1.0 {
		t.Fatalf("weight = %f, want 1.0", got)
	}
}

func TestDecayPersistsToStore(t *testing.T) {
	st := store.NewMemoryStore()
	m := vault.NewManager(vault.DefaultConfig(), nil, st)
	seedScar(t, m, "old", 100, 1.0)

	o := New(DefaultConfig(), m, st, nil)
	if _, err := o.DecayWeights(baseTime); err != nil {
		t.Fatalf("decay: %v", err)
	}
	agg, err := st.Aggregate(scar.VaultA)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	want := math.Exp(-0.01 * 100)
	if math.Abs(agg.TotalWeight-want) > 1e-12 {
		t.Fatalf("store weight = %f, want %f", agg.TotalWeight, want)
	}
}

// #endregion decay

// #region prune

func TestPruneRemovesBelowThreshold(t *testing.T) {
	st := store.NewMemoryStore()
	m := vault.NewManager(vault.DefaultConfig(), nil, st)
	seedScar(t, m, "keep", 0, 0.5)
	seedScar(t, m, "drop", 0, 0.05)

	o := New(DefaultConfig(), m, st, nil)
	pruned, err := o.PruneScars()
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if pruned != 1 {
		t.Fatalf("expected 1 pruned, got %d", pruned)
	}
	if m.TotalScarCount(scar.VaultA) != 1 {
		t.Fatal("surviving scar missing")
	}
	agg, _ := st.Aggregate(scar.VaultA)
	if agg.Count != 1 {
		t.Fatalf("store still holds %d scars", agg.Count)
	}
}

func TestPruneIgnoresQuarantineFlag(t *testing.T) {
	m := vault.NewManager(vault.DefaultConfig(), nil, nil)
	s := seedScar(t, m, "q", 0, 0.05)
	_ = s
	snap := m.Snapshot(scar.VaultA)
	if len(snap) != 1 {
		t.Fatal("seed missing")
	}
	m.Remove(snap[0].ScarID)
	snap[0].Quarantined = true
	snap[0].VaultID = ""
	if _, err := m.InsertScar(snap[0]); err != nil {
		t.Fatalf("reinsert: %v", err)
	}

	o := New(DefaultConfig(), m, nil, nil)
	pruned, err := o.PruneScars()
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if pruned != 1 {
		t.Fatal("quarantine must not protect from pruning")
	}
}

// #endregion prune

// #region merge

func TestNoMergePolicyDefault(t *testing.T) {
	m := vault.NewManager(vault.DefaultConfig(), nil, nil)
	seedScar(t, m, "s1", 0, 1.0)
	seedScar(t, m, "s2", 0, 1.0)

	o := New(DefaultConfig(), m, nil, nil)
	merged, err := o.MergeScars()
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if merged != 0 {
		t.Fatalf("default policy merged %d scars", merged)
	}
}

func TestAngleMergeAbsorbsIntoHeaviest(t *testing.T) {
	st := store.NewMemoryStore()
	m := vault.NewManager(vault.DefaultConfig(), nil, st)

	heavy := seedScar(t, m, "heavy", 0, 3.0)
	light := seedScar(t, m, "light", 0, 1.0)
	heavy.CLSAngle = 10
	light.CLSAngle = 12
	light.Geoids = heavy.Geoids // shared geoid
	// Refresh the live records with the adjusted fields.
	m.Remove(heavy.ScarID)
	m.Remove(light.ScarID)
	heavy.VaultID = ""
	light.VaultID = ""
	m.InsertScar(heavy)
	m.InsertScar(light)

	o := New(DefaultConfig(), m, st, AngleMergePolicy{MaxAngleGap: 5})
	merged, err := o.MergeScars()
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if merged != 1 {
		t.Fatalf("expected 1 absorbed, got %d", merged)
	}
	if m.TotalScarCount(scar.VaultA) != 1 {
		t.Fatal("expected a single surviving scar")
	}
	if got := m.TotalScarWeight(scar.VaultA); got != 4.0 {
		t.Fatalf("combined weight = %f, want 4.0", got)
	}
	agg, _ := st.Aggregate(scar.VaultA)
	if agg.Count != 1 || agg.TotalWeight != 4.0 {
		t.Fatalf("store aggregate %+v, want 1 scar at weight 4", agg)
	}
}

func TestAngleMergeRespectsGapAndGeoids(t *testing.T) {
	m := vault.NewManager(vault.DefaultConfig(), nil, nil)

	a := seedScar(t, m, "a", 0, 2.0)
	farAngle := seedScar(t, m, "far", 0, 1.0)
	noShare := seedScar(t, m, "alien", 0, 1.0)
	a.CLSAngle = 10
	farAngle.CLSAngle = 60
	farAngle.Geoids = a.Geoids
	noShare.CLSAngle = 11

	policy := AngleMergePolicy{MaxAngleGap: 5}
	groups := policy.SelectGroups([]*scar.ScarRecord{a, farAngle, noShare})
	if len(groups) != 0 {
		t.Fatalf("expected no merge groups, got %d", len(groups))
	}
}

func TestAngleMergeSkipsQuarantined(t *testing.T) {
	a := &scar.ScarRecord{ScarID: "a", Geoids: []string{"g"}, CLSAngle: 10, Weight: 2}
	q := &scar.ScarRecord{ScarID: "q", Geoids: []string{"g"}, CLSAngle: 11, Weight: 1, Quarantined: true}

	groups := AngleMergePolicy{MaxAngleGap: 5}.SelectGroups([]*scar.ScarRecord{a, q})
	if len(groups) != 0 {
		t.Fatal("quarantined scar must not be merged")
	}
}

// #endregion merge

func TestRunCycleOrder(t *testing.T) {
	m := vault.NewManager(vault.DefaultConfig(), nil, nil)
	// 300 days at lambda 0.01 decays weight 1.0 to ~0.0498, below 0.1.
	seedScar(t, m, "stale", 300, 1.0)
	seedScar(t, m, "fresh", 0, 1.0)

	o := New(DefaultConfig(), m, nil, nil)
	report, err := o.RunCycle(baseTime)
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if report.Decayed != 1 {
		t.Fatalf("decayed = %d, want 1", report.Decayed)
	}
	if report.Pruned != 1 {
		t.Fatalf("pruned = %d, want 1", report.Pruned)
	}
	if m.TotalScarCount(scar.VaultA) != 1 {
		t.Fatal("expected only the fresh scar to survive")
	}
}
