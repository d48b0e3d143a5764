package contradiction

import "github.com/kimera-swm/go-core/internal/geoid"

// #region gradient-type

// GradientType classifies which tension term dominated a gradient.
type GradientType string

const (
	GradientEmbedding GradientType = "embedding"
	GradientSymbolic  GradientType = "symbolic"
	GradientLayer     GradientType = "layer"
)

// #endregion gradient-type

// #region tension-gradient

// TensionGradient is a pairwise tension score between two geoids. Transient:
// gradients are consumed the cycle they are produced and never persisted.
type TensionGradient struct {
	GeoidA       string
	GeoidB       string
	TensionScore float64 // [0, 1]
	GradientType GradientType
}

// #endregion tension-gradient

// #region decision

// Decision is the system response chosen for a detected tension.
type Decision string

const (
	DecisionCollapse Decision = "collapse"
	DecisionSurge    Decision = "surge"
	DecisionBuffer   Decision = "buffer"
)

// #endregion decision

// #region scorer-interfaces

// TensionScorer supplies the non-embedding tension terms. The default
// implementation scores both as 0, leaving the composite driven entirely by
// vector misalignment.
type TensionScorer interface {
	LayerConflict(a, b *geoid.GeoidState) float64
	SymbolicOpposition(a, b *geoid.GeoidState) float64
}

// PulseFactors supplies the multiplicative pulse terms. The default
// implementation returns 1 for both, so pulse reduces to the tension score.
type PulseFactors interface {
	AxisMisalignment(t TensionGradient, a, b *geoid.GeoidState) float64
	MutationCoherence(t TensionGradient, a, b *geoid.GeoidState) float64
}

// NoopScorer scores layer conflict and symbolic opposition as 0.
type NoopScorer struct{}

func (NoopScorer) LayerConflict(a, b *geoid.GeoidState) float64      { return 0 }
func (NoopScorer) SymbolicOpposition(a, b *geoid.GeoidState) float64 { return 0 }

// UnitPulseFactors returns 1 for both pulse terms.
type UnitPulseFactors struct{}

func (UnitPulseFactors) AxisMisalignment(t TensionGradient, a, b *geoid.GeoidState) float64 {
	return 1
}

func (UnitPulseFactors) MutationCoherence(t TensionGradient, a, b *geoid.GeoidState) float64 {
	return 1
}

// #endregion scorer-interfaces

// #region engine-config

// EngineConfig holds thresholds for tension detection.
type EngineConfig struct {
	TensionThreshold float64 // pairs scoring at or below are discarded
}

// DefaultEngineConfig returns the standard detection threshold.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{TensionThreshold: 0.75}
}

// #endregion engine-config
