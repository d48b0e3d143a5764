package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/kimera-swm/go-core/internal/contradiction"
	"github.com/kimera-swm/go-core/internal/geoid"
	"github.com/kimera-swm/go-core/internal/vault"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description string             `json:"description"`
	Geoids      []FixtureGeoid     `json:"geoids"`
	Stability   map[string]float64 `json:"stability"`
	Config      FixtureConfig      `json:"config"`
	Expected    []ExpectedDecision `json:"expected_decisions"`
}

// FixtureGeoid is the JSON-serializable form of a geoid.
type FixtureGeoid struct {
	GeoidID       string             `json:"geoid_id"`
	SemanticState map[string]float64 `json:"semantic_state"`
	SymbolicState map[string]any     `json:"symbolic_state,omitempty"`
	Metadata      map[string]any     `json:"metadata,omitempty"`
}

// FixtureConfig bundles the engine and vault knobs for a replay run.
type FixtureConfig struct {
	TensionThreshold   float64 `json:"tension_threshold"`
	VaultCapacity      int     `json:"vault_capacity"`
	FractureThreshold  float64 `json:"fracture_threshold"`
	ImbalanceThreshold float64 `json:"imbalance_threshold"`
}

// ExpectedDecision captures the expected verdict for one geoid pair.
// Vault, when set, is the vault the resulting scar must land in.
type ExpectedDecision struct {
	GeoidA   string `json:"geoid_a"`
	GeoidB   string `json:"geoid_b"`
	Decision string `json:"decision"`
	Vault    string `json:"vault,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToGeoid converts a FixtureGeoid to a domain GeoidState. The semantic
// state is normalized the same way live ingestion normalizes it.
func (fg *FixtureGeoid) ToGeoid() *geoid.GeoidState {
	g := geoid.New(fg.SemanticState, fg.SymbolicState, fg.Metadata)
	if fg.GeoidID != "" {
		g.GeoidID = fg.GeoidID
	}
	return g
}

// EngineConfig converts the fixture knobs to an engine config. Zero
// values fall back to the defaults.
func (fc *FixtureConfig) EngineConfig() contradiction.EngineConfig {
	cfg := contradiction.DefaultEngineConfig()
	if fc.TensionThreshold > 0 {
		cfg.TensionThreshold = fc.TensionThreshold
	}
	return cfg
}

// VaultConfig converts the fixture knobs to a vault config. Zero values
// fall back to the defaults.
func (fc *FixtureConfig) VaultConfig() vault.Config {
	cfg := vault.DefaultConfig()
	if fc.VaultCapacity > 0 {
		cfg.Capacity = fc.VaultCapacity
	}
	if fc.FractureThreshold > 0 {
		cfg.FractureThreshold = fc.FractureThreshold
	}
	if fc.ImbalanceThreshold > 0 {
		cfg.ImbalanceThreshold = fc.ImbalanceThreshold
	}
	return cfg
}

// #endregion fixture-loader
