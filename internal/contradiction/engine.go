package contradiction

import (
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/kimera-swm/go-core/internal/geoid"
)

// Composite tension weights. Misalignment carries the bulk; the two pluggable
// terms split the remainder.
const (
	weightMisalignment = 0.4
	weightLayer        = 0.3
	weightSymbolic     = 0.3
)

// #region engine

// Engine detects pairwise tension between geoids and decides a response.
type Engine struct {
	config EngineConfig
	scorer TensionScorer
	pulse  PulseFactors
}

// NewEngine creates an engine. scorer and pulse may be nil; the no-op scorer
// and unit pulse factors are used in their place.
func NewEngine(config EngineConfig, scorer TensionScorer, pulse PulseFactors) *Engine {
	if scorer == nil {
		scorer = NoopScorer{}
	}
	if pulse == nil {
		pulse = UnitPulseFactors{}
	}
	return &Engine{config: config, scorer: scorer, pulse: pulse}
}

// #endregion engine

// #region detect

// DetectTensionGradients scores every unordered geoid pair and returns those
// whose composite tension exceeds the threshold. Fewer than two geoids yields
// an empty result, not an error.
func (e *Engine) DetectTensionGradients(geoids []*geoid.GeoidState) []TensionGradient {
	if len(geoids) < 2 {
		return nil
	}

	var gradients []TensionGradient
	for i := 0; i < len(geoids); i++ {
		for j := i + 1; j < len(geoids); j++ {
			a, b := geoids[i], geoids[j]

			misalignment := vectorMisalignment(a, b)
			layer := e.scorer.LayerConflict(a, b)
			symbolic := e.scorer.SymbolicOpposition(a, b)

			score := clamp(weightMisalignment*misalignment +
				weightLayer*layer +
				weightSymbolic*symbolic)

			if score <= e.config.TensionThreshold {
				continue
			}

			gradients = append(gradients, TensionGradient{
				GeoidA:       a.GeoidID,
				GeoidB:       b.GeoidID,
				TensionScore: score,
				GradientType: dominantType(misalignment, layer, symbolic),
			})
		}
	}
	return gradients
}

// #endregion detect

// #region pulse

// CalculatePulseStrength combines the tension score with the axis and
// mutation pulse factors, capped at 1.0. Missing geoids leave the factors at
// their neutral value of 1.
func (e *Engine) CalculatePulseStrength(t TensionGradient, geoidsByID map[string]*geoid.GeoidState) float64 {
	a := geoidsByID[t.GeoidA]
	b := geoidsByID[t.GeoidB]

	axis := 1.0
	coherence := 1.0
	if a != nil && b != nil {
		axis = e.pulse.AxisMisalignment(t, a, b)
		coherence = e.pulse.MutationCoherence(t, a, b)
	}

	pulse := t.TensionScore * axis * coherence
	if pulse > 1.0 {
		pulse = 1.0
	}
	return pulse
}

// #endregion pulse

// #region decide

// DecideCollapseOrSurge is a pure function of pulse strength and stability
// metrics. Collapse needs strong pulse plus converged stability; surge fires
// on weak pulse or ambiguous lineage; everything else buffers to next cycle.
func DecideCollapseOrSurge(pulseStrength float64, stability map[string]float64) Decision {
	if pulseStrength > 0.8 &&
		stability["axis_convergence"] > 0.75 &&
		stability["vault_resonance"] > 0.6 {
		return DecisionCollapse
	}
	if pulseStrength < 0.5 || stability["contradiction_lineage_ambiguity"] > 0.7 {
		return DecisionSurge
	}
	return DecisionBuffer
}

// #endregion decide

// #region helpers

// vectorMisalignment is the cosine distance between two semantic states over
// the union of their feature keys. An all-zero vector contributes no tension.
func vectorMisalignment(a, b *geoid.GeoidState) float64 {
	keys := unionKeys(a.SemanticState, b.SemanticState)
	if len(keys) == 0 {
		return 0
	}

	va := a.VectorOver(keys)
	vb := b.VectorOver(keys)

	normA := floats.Norm(va, 2)
	normB := floats.Norm(vb, 2)
	if normA == 0 || normB == 0 {
		return 0
	}

	cos := floats.Dot(va, vb) / (normA * normB)
	return 1 - cos
}

// unionKeys returns the sorted union of feature keys for deterministic
// vector alignment.
func unionKeys(a, b map[string]float64) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// dominantType picks the gradient tag from the largest weighted term.
// Ties favor embedding.
func dominantType(misalignment, layer, symbolic float64) GradientType {
	wm := weightMisalignment * misalignment
	wl := weightLayer * layer
	ws := weightSymbolic * symbolic

	if wl > wm && wl >= ws {
		return GradientLayer
	}
	if ws > wm && ws > wl {
		return GradientSymbolic
	}
	return GradientEmbedding
}

// clamp restricts v to [0, 1].
func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion helpers
