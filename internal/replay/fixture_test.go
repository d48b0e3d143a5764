package replay

import (
	"os"
	"path/filepath"
	"testing"
)

// #region fixture-tests

// TestFixture_TensionSession loads the tension_session fixture, runs
// Replay(), and compares each pair's decision against the expected
// verdict. This is the primary regression test: if detection weights or
// decision thresholds change, this catches drift.
func TestFixture_TensionSession(t *testing.T) {
	f, err := LoadFixture(filepath.Join("testdata", "tension_session.json"))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}

	results, summary := Replay(f)
	if mismatches := Verify(f, results); len(mismatches) != 0 {
		for _, m := range mismatches {
			t.Errorf("mismatch: %s", m)
		}
	}
	if summary.Gradients != 1 {
		t.Errorf("expected 1 gradient, got %d", summary.Gradients)
	}
	if summary.Surges != 1 {
		t.Errorf("expected 1 surge, got %d", summary.Surges)
	}
}

func TestLoadFixture_MissingFile(t *testing.T) {
	if _, err := LoadFixture(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing fixture")
	}
}

func TestLoadFixture_MalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadFixture(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestFixtureGeoid_ToGeoidNormalizes(t *testing.T) {
	fg := FixtureGeoid{
		GeoidID:       "g-1",
		SemanticState: map[string]float64{"a": 2, "b": 2},
	}
	g := fg.ToGeoid()
	if g.GeoidID != "g-1" {
		t.Fatalf("geoid id = %s", g.GeoidID)
	}
	if g.SemanticState["a"] != 0.5 || g.SemanticState["b"] != 0.5 {
		t.Fatalf("semantic state not normalized: %v", g.SemanticState)
	}
}

func TestFixtureConfig_ZeroValuesFallBack(t *testing.T) {
	var fc FixtureConfig
	if got := fc.EngineConfig().TensionThreshold; got != 0.75 {
		t.Fatalf("tension threshold = %f", got)
	}
	vc := fc.VaultConfig()
	if vc.Capacity != 10000 || vc.FractureThreshold != 0.8 || vc.ImbalanceThreshold != 1.5 {
		t.Fatalf("vault config defaults not applied: %+v", vc)
	}
}

// #endregion fixture-tests
