package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := Default()
	if cfg != want {
		t.Fatalf("missing file must yield defaults, got %+v", cfg)
	}
}

func TestLoadOverlaysFileOnDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kimera.yaml")
	body := []byte("engine:\n  tension_threshold: 0.6\nvault:\n  capacity: 500\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Engine.TensionThreshold != 0.6 {
		t.Fatalf("tension_threshold = %f", cfg.Engine.TensionThreshold)
	}
	if cfg.Vault.Capacity != 500 {
		t.Fatalf("capacity = %d", cfg.Vault.Capacity)
	}
	// Untouched keys keep their defaults.
	if cfg.Vault.FractureThreshold != 0.8 {
		t.Fatalf("fracture_threshold = %f", cfg.Vault.FractureThreshold)
	}
	if cfg.Optimizer.DecayLambda != 0.01 {
		t.Fatalf("decay_lambda = %f", cfg.Optimizer.DecayLambda)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("vault: [unclosed"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnvOverridesStorePath(t *testing.T) {
	t.Setenv("KIMERA_DB", "/tmp/override.db")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Path != "/tmp/override.db" {
		t.Fatalf("store path = %s", cfg.Store.Path)
	}
}

func TestStoreDurations(t *testing.T) {
	s := Default().Store
	if s.StatsTTL() != 300*time.Second {
		t.Fatalf("stats ttl = %s", s.StatsTTL())
	}
	if s.StatsRefresh() != 30*time.Second {
		t.Fatalf("stats refresh = %s", s.StatsRefresh())
	}
	if s.BatchInterval() != 5*time.Second {
		t.Fatalf("batch interval = %s", s.BatchInterval())
	}
}
