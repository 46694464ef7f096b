package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if got := cfg.NodeBudget(); got != 1600 {
		t.Errorf("NodeBudget() = %d, want 1600", got)
	}
	if got := cfg.UnitSize(); got != 4 {
		t.Errorf("UnitSize() = %f, want 4", got)
	}
	if got := cfg.CellSize(); got != cfg.MaxInfluenceRadius {
		t.Errorf("CellSize() = %f, want %f", got, cfg.MaxInfluenceRadius)
	}
	if cfg.WorkerCount() < 1 {
		t.Errorf("WorkerCount() = %d", cfg.WorkerCount())
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NodeSpacing = 0
	cfg.CaveRadius = 80
	cfg.SurfaceLevel = 1.5
	cfg.Normals = "smooth"
	cfg.LogLevel = "loud"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"node_spacing", "max_influence_radius", "surface_level", "normals", "log level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestValidateBounds(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"radii equal", func(c *Config) { c.CaveRadius = c.MaxInfluenceRadius }, "max_influence_radius"},
		{"influence just above radius", func(c *Config) { c.CaveRadius = 59.5 }, ""},
		{"grid cell below spacing", func(c *Config) { c.GridCellSize = 0.01 }, "grid_cell_size"},
		{"grid cell at spacing", func(c *Config) { c.GridCellSize = c.NodeSpacing }, ""},
		{"grid cell negative", func(c *Config) { c.GridCellSize = -1 }, "grid_cell_size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate = %v, want error mentioning %s", err, tt.wantErr)
			}
		})
	}
}

func TestLoadKeepsDefaultsForMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cave.yaml")
	data := "seed: 7\ncave_radius: 30\nnormals: face\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Seed != 7 || cfg.CaveRadius != 30 || cfg.Normals != "face" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.MaxInfluenceRadius != 60 || cfg.ChunkSize != 16 {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("seed: [1, 2"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestMergeExplicitFlagsWin(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 1
	cfg.Workers = 3
	cfg.CaveRadius = 25

	fromFile := DefaultConfig()
	fromFile.Seed = 99
	fromFile.Workers = 8
	fromFile.CaveRadius = 35
	fromFile.NoiseFactor = 0.1

	Merge(cfg, fromFile, map[string]bool{"seed": true, "workers": true})

	if cfg.Seed != 1 || cfg.Workers != 3 {
		t.Errorf("explicit flags overwritten: seed=%d workers=%d", cfg.Seed, cfg.Workers)
	}
	if cfg.CaveRadius != 35 || cfg.NoiseFactor != 0.1 {
		t.Errorf("file values not applied: radius=%f noise=%f", cfg.CaveRadius, cfg.NoiseFactor)
	}
}

func TestLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "debug"
	lvl, err := cfg.Level()
	if err != nil || lvl != slog.LevelDebug {
		t.Errorf("Level() = %v, %v, want debug", lvl, err)
	}
}
