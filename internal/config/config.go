package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config bundles every tunable of the engine, vaults, optimizer, and
// store. Zero values are filled from Default before use.
type Config struct {
	Engine    EngineConfig    `yaml:"engine"`
	Vault     VaultConfig     `yaml:"vault"`
	Optimizer OptimizerConfig `yaml:"optimizer"`
	Store     StoreConfig     `yaml:"store"`
}

type EngineConfig struct {
	TensionThreshold float64 `yaml:"tension_threshold"`
}

type VaultConfig struct {
	Capacity           int     `yaml:"capacity"`
	FractureThreshold  float64 `yaml:"fracture_threshold"`
	ImbalanceThreshold float64 `yaml:"imbalance_threshold"`
}

type OptimizerConfig struct {
	DecayLambda    float64 `yaml:"decay_lambda"`
	PruneThreshold float64 `yaml:"prune_threshold"`
	MergeAngleGap  float64 `yaml:"merge_angle_gap"`
}

type StoreConfig struct {
	Path              string `yaml:"path"`
	Cached            bool   `yaml:"cached"`
	StatsTTLSecs      int    `yaml:"stats_ttl_secs"`
	StatsRefreshSecs  int    `yaml:"stats_refresh_secs"`
	BatchSize         int    `yaml:"batch_size"`
	BatchIntervalSecs int    `yaml:"batch_interval_secs"`
}

// StatsTTL returns the stats staleness bound as a duration.
func (s StoreConfig) StatsTTL() time.Duration {
	return time.Duration(s.StatsTTLSecs) * time.Second
}

// StatsRefresh returns the normal stats refetch interval.
func (s StoreConfig) StatsRefresh() time.Duration {
	return time.Duration(s.StatsRefreshSecs) * time.Second
}

// BatchInterval returns the write batch flush interval.
func (s StoreConfig) BatchInterval() time.Duration {
	return time.Duration(s.BatchIntervalSecs) * time.Second
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Engine: EngineConfig{
			TensionThreshold: 0.75,
		},
		Vault: VaultConfig{
			Capacity:           10000,
			FractureThreshold:  0.8,
			ImbalanceThreshold: 1.5,
		},
		Optimizer: OptimizerConfig{
			DecayLambda:    0.01,
			PruneThreshold: 0.1,
			MergeAngleGap:  0,
		},
		Store: StoreConfig{
			Path:              "kimera.db",
			Cached:            false,
			StatsTTLSecs:      300,
			StatsRefreshSecs:  30,
			BatchSize:         100,
			BatchIntervalSecs: 5,
		},
	}
}

// Load reads a YAML config file and overlays it on the defaults. A
// missing file is not an error: defaults are returned. KIMERA_DB, when
// set, overrides the store path last.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if db := os.Getenv("KIMERA_DB"); db != "" {
		cfg.Store.Path = db
	}
	return cfg, nil
}
