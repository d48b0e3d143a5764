package replay

import (
	"testing"

	"github.com/kimera-swm/go-core/internal/contradiction"
	"github.com/kimera-swm/go-core/internal/geoid"
	"github.com/kimera-swm/go-core/internal/scar"
	"github.com/kimera-swm/go-core/internal/vault"
)

// maxScorer drives the layer and symbolic terms to 1, which pushes any
// misaligned pair past the default detection threshold.
type maxScorer struct{}

func (maxScorer) LayerConflict(a, b *geoid.GeoidState) float64      { return 1 }
func (maxScorer) SymbolicOpposition(a, b *geoid.GeoidState) float64 { return 1 }

func opposedFixture() *Fixture {
	return &Fixture{
		Geoids: []FixtureGeoid{
			{GeoidID: "g-a", SemanticState: map[string]float64{"x": 0.9, "y": 0.1}},
			{GeoidID: "g-b", SemanticState: map[string]float64{"x": 0.1, "y": 0.9}},
		},
		Stability: map[string]float64{
			"axis_convergence":                0.9,
			"vault_resonance":                 0.7,
			"contradiction_lineage_ambiguity": 0.2,
		},
	}
}

// #region replay-tests

func TestReplay_NoGeoidsNoGradients(t *testing.T) {
	results, summary := Replay(&Fixture{})
	if len(results) != 0 || summary.Gradients != 0 {
		t.Fatalf("empty fixture produced %d results", len(results))
	}
}

func TestReplay_SurgeOnWeakPulse(t *testing.T) {
	f := opposedFixture()
	f.Config.TensionThreshold = 0.3

	results, summary := Replay(f)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Decision != contradiction.DecisionSurge {
		t.Fatalf("decision = %s, want surge", results[0].Decision)
	}
	if results[0].ScarID != "" {
		t.Fatal("surge must not form a scar")
	}
	if summary.Surges != 1 || summary.Collapses != 0 {
		t.Fatalf("summary %+v", summary)
	}
}

func TestReplayWith_CollapseFormsScar(t *testing.T) {
	f := opposedFixture()

	engine := contradiction.NewEngine(contradiction.DefaultEngineConfig(), maxScorer{}, nil)
	manager := vault.NewManager(vault.DefaultConfig(), nil, nil)

	results, summary := ReplayWith(f, engine, manager)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	if r.Decision != contradiction.DecisionCollapse {
		t.Fatalf("decision = %s, want collapse", r.Decision)
	}
	if r.ScarID == "" {
		t.Fatal("collapse must form a scar")
	}
	if r.VaultID != scar.VaultA {
		t.Fatalf("scar routed to %s, want vault A on an empty pair", r.VaultID)
	}
	if summary.Collapses != 1 || summary.VaultA != 1 {
		t.Fatalf("summary %+v", summary)
	}
	if manager.TotalScarCount(scar.VaultA) != 1 {
		t.Fatal("scar not inserted into vault")
	}
}

// #endregion replay-tests

// #region verify-tests

func TestVerify_PairOrderInsensitive(t *testing.T) {
	f := &Fixture{
		Expected: []ExpectedDecision{
			{GeoidA: "g-b", GeoidB: "g-a", Decision: "surge"},
		},
	}
	results := []Result{
		{GeoidA: "g-a", GeoidB: "g-b", Decision: contradiction.DecisionSurge},
	}
	if mismatches := Verify(f, results); len(mismatches) != 0 {
		t.Fatalf("unexpected mismatches: %v", mismatches)
	}
}

func TestVerify_ReportsWrongDecision(t *testing.T) {
	f := &Fixture{
		Expected: []ExpectedDecision{
			{GeoidA: "g-a", GeoidB: "g-b", Decision: "collapse"},
		},
	}
	results := []Result{
		{GeoidA: "g-a", GeoidB: "g-b", Decision: contradiction.DecisionBuffer},
	}
	mismatches := Verify(f, results)
	if len(mismatches) != 1 || mismatches[0].Field != "decision" {
		t.Fatalf("mismatches = %v", mismatches)
	}
}

func TestVerify_ReportsMissingPair(t *testing.T) {
	f := &Fixture{
		Expected: []ExpectedDecision{
			{GeoidA: "g-a", GeoidB: "g-b", Decision: "surge"},
		},
	}
	mismatches := Verify(f, nil)
	if len(mismatches) != 1 || mismatches[0].Field != "missing" {
		t.Fatalf("mismatches = %v", mismatches)
	}
}

func TestVerify_ReportsWrongVault(t *testing.T) {
	f := &Fixture{
		Expected: []ExpectedDecision{
			{GeoidA: "g-a", GeoidB: "g-b", Decision: "collapse", Vault: "vault_b"},
		},
	}
	results := []Result{
		{GeoidA: "g-a", GeoidB: "g-b", Decision: contradiction.DecisionCollapse, VaultID: scar.VaultA},
	}
	mismatches := Verify(f, results)
	if len(mismatches) != 1 || mismatches[0].Field != "vault" {
		t.Fatalf("mismatches = %v", mismatches)
	}
}

// #endregion verify-tests
