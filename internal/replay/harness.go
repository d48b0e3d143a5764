package replay

import (
	"fmt"

	"github.com/kimera-swm/go-core/internal/contradiction"
	"github.com/kimera-swm/go-core/internal/geoid"
	"github.com/kimera-swm/go-core/internal/scar"
	"github.com/kimera-swm/go-core/internal/vault"
)

// #region types
// Result captures one geoid pair's trip through the detection pipeline.
type Result struct {
	GeoidA        string
	GeoidB        string
	TensionScore  float64
	GradientType  contradiction.GradientType
	PulseStrength float64
	Decision      contradiction.Decision

	// Set only when the decision was collapse and a scar was formed.
	ScarID  string
	VaultID scar.VaultID
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	Geoids    int
	Gradients int
	Collapses int
	Surges    int
	Buffers   int
	VaultA    int
	VaultB    int
}

// Mismatch describes one divergence between a run and its expectations.
type Mismatch struct {
	GeoidA string
	GeoidB string
	Field  string // "decision" | "vault" | "missing"
	Want   string
	Got    string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s/%s: %s want %q got %q", m.GeoidA, m.GeoidB, m.Field, m.Want, m.Got)
}

// #endregion types

// #region replay
// Replay runs one detection cycle over the fixture's geoids: detect
// tension gradients, compute pulse strength per gradient, decide, and
// on collapse form a scar and route it through a fresh vault pair.
// Operates entirely in-memory.
func Replay(f *Fixture) ([]Result, Summary) {
	engine := contradiction.NewEngine(f.Config.EngineConfig(), nil, nil)
	manager := vault.NewManager(f.Config.VaultConfig(), nil, nil)
	return ReplayWith(f, engine, manager)
}

// ReplayWith runs the cycle with a caller-supplied engine and vault
// pair, for runs that need custom tension scorers or pulse factors.
func ReplayWith(f *Fixture, engine *contradiction.Engine, manager *vault.Manager) ([]Result, Summary) {
	geoids := make([]*geoid.GeoidState, 0, len(f.Geoids))
	byID := make(map[string]*geoid.GeoidState, len(f.Geoids))
	for i := range f.Geoids {
		g := f.Geoids[i].ToGeoid()
		geoids = append(geoids, g)
		byID[g.GeoidID] = g
	}

	gradients := engine.DetectTensionGradients(geoids)
	results := make([]Result, 0, len(gradients))
	summary := Summary{Geoids: len(geoids), Gradients: len(gradients)}

	for _, t := range gradients {
		pulse := engine.CalculatePulseStrength(t, byID)
		decision := contradiction.DecideCollapseOrSurge(pulse, f.Stability)

		r := Result{
			GeoidA:        t.GeoidA,
			GeoidB:        t.GeoidB,
			TensionScore:  t.TensionScore,
			GradientType:  t.GradientType,
			PulseStrength: pulse,
			Decision:      decision,
		}

		switch decision {
		case contradiction.DecisionCollapse:
			summary.Collapses++
			s := scar.New([]string{t.GeoidA, t.GeoidB}, string(t.GradientType), pulse)
			s.PreEntropy = byID[t.GeoidA].Entropy() + byID[t.GeoidB].Entropy()
			s.PostEntropy = s.PreEntropy
			if res, err := manager.InsertScar(s); err == nil {
				r.ScarID = s.ScarID
				r.VaultID = res.VaultID
				switch res.VaultID {
				case scar.VaultA:
					summary.VaultA++
				case scar.VaultB:
					summary.VaultB++
				}
			}
		case contradiction.DecisionSurge:
			summary.Surges++
		case contradiction.DecisionBuffer:
			summary.Buffers++
		}
		results = append(results, r)
	}

	return results, summary
}

// Verify compares a run's results against the fixture's expectations.
// Expected pairs match in either order. An empty return means the run
// conformed.
func Verify(f *Fixture, results []Result) []Mismatch {
	indexed := make(map[string]Result, len(results))
	for _, r := range results {
		indexed[pairKey(r.GeoidA, r.GeoidB)] = r
	}

	var mismatches []Mismatch
	for _, want := range f.Expected {
		got, ok := indexed[pairKey(want.GeoidA, want.GeoidB)]
		if !ok {
			mismatches = append(mismatches, Mismatch{
				GeoidA: want.GeoidA, GeoidB: want.GeoidB,
				Field: "missing", Want: want.Decision, Got: "",
			})
			continue
		}
		if string(got.Decision) != want.Decision {
			mismatches = append(mismatches, Mismatch{
				GeoidA: want.GeoidA, GeoidB: want.GeoidB,
				Field: "decision", Want: want.Decision, Got: string(got.Decision),
			})
		}
		if want.Vault != "" && string(got.VaultID) != want.Vault {
			mismatches = append(mismatches, Mismatch{
				GeoidA: want.GeoidA, GeoidB: want.GeoidB,
				Field: "vault", Want: want.Vault, Got: string(got.VaultID),
			})
		}
	}
	return mismatches
}

func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

// #endregion replay
