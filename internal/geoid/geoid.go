package geoid

import (
	"math"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"
)

// #region constructor

// New creates a GeoidState with a fresh ID and a normalized semantic state.
// symbolic and metadata may be nil.
func New(features map[string]float64, symbolic, metadata map[string]any) *GeoidState {
	g := &GeoidState{
		GeoidID:       uuid.New().String(),
		SemanticState: make(map[string]float64, len(features)),
		SymbolicState: symbolic,
		Metadata:      metadata,
	}
	for k, v := range features {
		g.SemanticState[k] = v
	}
	g.Normalize()
	return g
}

// #endregion constructor

// #region normalize

// Normalize clamps negative weights to zero and rescales the semantic state
// to sum to 1. An empty or all-zero state is left untouched.
func (g *GeoidState) Normalize() {
	var sum float64
	for k, v := range g.SemanticState {
		if v < 0 {
			v = 0
			g.SemanticState[k] = 0
		}
		sum += v
	}
	if sum == 0 {
		return
	}
	for k, v := range g.SemanticState {
		g.SemanticState[k] = v / sum
	}
}

// #endregion normalize

// #region entropy

// Entropy returns the Shannon entropy of the semantic state in bits.
// An empty or all-zero state has entropy 0.
func (g *GeoidState) Entropy() float64 {
	if len(g.SemanticState) == 0 {
		return 0
	}
	p := make([]float64, 0, len(g.SemanticState))
	for _, v := range g.SemanticState {
		p = append(p, v)
	}
	return stat.Entropy(p) / math.Ln2
}

// #endregion entropy

// #region update

// UpdateSemanticState merges new feature weights into the semantic state and
// renormalizes. Existing features are overwritten.
func (g *GeoidState) UpdateSemanticState(features map[string]float64) {
	if g.SemanticState == nil {
		g.SemanticState = make(map[string]float64, len(features))
	}
	for k, v := range features {
		g.SemanticState[k] = v
	}
	g.Normalize()
}

// #endregion update

// #region vector

// VectorOver projects the semantic state onto an ordered feature list.
// Missing features read as 0.
func (g *GeoidState) VectorOver(features []string) []float64 {
	vec := make([]float64, len(features))
	for i, f := range features {
		vec[i] = g.SemanticState[f]
	}
	return vec
}

// #endregion vector
