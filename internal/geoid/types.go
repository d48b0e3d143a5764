package geoid

// #region geoid-state
// GeoidState is a semantic entity under analysis: a feature-weight
// distribution plus opaque symbolic and metadata payloads.
type GeoidState struct {
	GeoidID       string
	SemanticState map[string]float64
	SymbolicState map[string]any
	Metadata      map[string]any
}

// #endregion geoid-state
