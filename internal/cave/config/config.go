package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config holds the cave generation parameters. It is fixed for the lifetime
// of a generation run.
type Config struct {
	Seed int64 `yaml:"seed" json:"seed"`

	// Path walk.
	CaveLength      float64 `yaml:"cave_length" json:"cave_length"` // world units; node budget = length / spacing
	NodeSpacing     float64 `yaml:"node_spacing" json:"node_spacing"`
	BranchChance    float64 `yaml:"branch_chance" json:"branch_chance"`
	MaxTips         int     `yaml:"max_tips" json:"max_tips"`
	MaxTurnDegrees  float64 `yaml:"max_turn_degrees" json:"max_turn_degrees"`
	MaxPitchDegrees float64 `yaml:"max_pitch_degrees" json:"max_pitch_degrees"`

	// Density field.
	CaveRadius         float64 `yaml:"cave_radius" json:"cave_radius"`
	MaxInfluenceRadius float64 `yaml:"max_influence_radius" json:"max_influence_radius"`
	FloorFlatness      float64 `yaml:"floor_flatness" json:"floor_flatness"`
	NoiseScale         float64 `yaml:"noise_scale" json:"noise_scale"`
	NoiseOctaves       int     `yaml:"noise_octaves" json:"noise_octaves"`
	NoiseFactor        float64 `yaml:"noise_factor" json:"noise_factor"`

	// Sampling and meshing.
	SamplesPerUnit float64 `yaml:"samples_per_unit" json:"samples_per_unit"`
	SurfaceLevel   float64 `yaml:"surface_level" json:"surface_level"`
	ChunkSize      int     `yaml:"chunk_size" json:"chunk_size"`
	GridCellSize   float64 `yaml:"grid_cell_size" json:"grid_cell_size"` // 0 = max influence radius, else >= node spacing
	Workers        int     `yaml:"workers" json:"workers"`               // 0 = number of CPUs
	Normals        string  `yaml:"normals" json:"normals"`               // "gradient" or "face"

	LogLevel string `yaml:"log_level" json:"log_level"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Seed:               420,
		CaveLength:         16000,
		NodeSpacing:        10,
		BranchChance:       0.01,
		MaxTips:            4,
		MaxTurnDegrees:     25,
		MaxPitchDegrees:    20,
		CaveRadius:         40,
		MaxInfluenceRadius: 60,
		FloorFlatness:      0.8,
		NoiseScale:         0.05,
		NoiseOctaves:       2,
		NoiseFactor:        0.35,
		SamplesPerUnit:     0.25,
		SurfaceLevel:       0.5,
		ChunkSize:          16,
		Normals:            "gradient",
		LogLevel:           "info",
	}
}

// Load reads a YAML config file on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := LoadInto(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadInto reads a YAML config file into cfg. Fields absent from the file
// keep their current values.
func LoadInto(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// Merge applies file-loaded config values into cfg, but only for fields
// that were NOT explicitly set via CLI flags. explicitFlags contains the
// flag names that were explicitly provided on the command line.
func Merge(cfg *Config, fromFile *Config, explicitFlags map[string]bool) {
	keep := *cfg
	*cfg = *fromFile

	if explicitFlags["seed"] {
		cfg.Seed = keep.Seed
	}
	if explicitFlags["length"] {
		cfg.CaveLength = keep.CaveLength
	}
	if explicitFlags["spacing"] {
		cfg.NodeSpacing = keep.NodeSpacing
	}
	if explicitFlags["radius"] {
		cfg.CaveRadius = keep.CaveRadius
	}
	if explicitFlags["influence"] {
		cfg.MaxInfluenceRadius = keep.MaxInfluenceRadius
	}
	if explicitFlags["resolution"] {
		cfg.SamplesPerUnit = keep.SamplesPerUnit
	}
	if explicitFlags["chunk-size"] {
		cfg.ChunkSize = keep.ChunkSize
	}
	if explicitFlags["workers"] {
		cfg.Workers = keep.Workers
	}
	if explicitFlags["normals"] {
		cfg.Normals = keep.Normals
	}
	if explicitFlags["log-level"] {
		cfg.LogLevel = keep.LogLevel
	}
}

// NodeBudget returns the number of path nodes, root included.
func (c *Config) NodeBudget() int {
	return int(c.CaveLength / c.NodeSpacing)
}

// UnitSize returns the world distance between lattice samples.
func (c *Config) UnitSize() float64 {
	return 1 / c.SamplesPerUnit
}

// CellSize returns the path grid cell size.
func (c *Config) CellSize() float64 {
	if c.GridCellSize > 0 {
		return c.GridCellSize
	}
	return c.MaxInfluenceRadius
}

// WorkerCount returns the number of meshing workers.
func (c *Config) WorkerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

// MaxTurn returns the per-step yaw limit in radians.
func (c *Config) MaxTurn() float64 { return c.MaxTurnDegrees * math.Pi / 180 }

// MaxPitch returns the heading pitch clamp in radians.
func (c *Config) MaxPitch() float64 { return c.MaxPitchDegrees * math.Pi / 180 }

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level: %w", err)
	}
	return lvl, nil
}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	var errs []error
	positive := func(name string, v float64) {
		if !(v > 0) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", name, v))
		}
	}
	positive("node_spacing", c.NodeSpacing)
	positive("cave_length", c.CaveLength)
	positive("cave_radius", c.CaveRadius)
	positive("max_influence_radius", c.MaxInfluenceRadius)
	positive("samples_per_unit", c.SamplesPerUnit)

	if c.NodeSpacing > 0 && c.NodeBudget() < 1 {
		errs = append(errs, fmt.Errorf("cave_length %v is shorter than node_spacing %v", c.CaveLength, c.NodeSpacing))
	}
	if c.MaxInfluenceRadius <= c.CaveRadius {
		errs = append(errs, fmt.Errorf("max_influence_radius %v must exceed cave_radius %v", c.MaxInfluenceRadius, c.CaveRadius))
	}
	if c.BranchChance < 0 || c.BranchChance > 1 {
		errs = append(errs, fmt.Errorf("branch_chance %v outside [0,1]", c.BranchChance))
	}
	if c.MaxTips < 1 {
		errs = append(errs, fmt.Errorf("max_tips must be at least 1, got %d", c.MaxTips))
	}
	if c.MaxPitchDegrees < 0 || c.MaxPitchDegrees >= 90 {
		errs = append(errs, fmt.Errorf("max_pitch_degrees %v outside [0,90)", c.MaxPitchDegrees))
	}
	if c.FloorFlatness < 0 || c.FloorFlatness > 1 {
		errs = append(errs, fmt.Errorf("floor_flatness %v outside [0,1]", c.FloorFlatness))
	}
	if c.NoiseOctaves < 1 {
		errs = append(errs, fmt.Errorf("noise_octaves must be at least 1, got %d", c.NoiseOctaves))
	}
	if c.SurfaceLevel <= 0 || c.SurfaceLevel >= 1 {
		errs = append(errs, fmt.Errorf("surface_level %v outside (0,1)", c.SurfaceLevel))
	}
	if c.ChunkSize < 1 || c.ChunkSize > 256 {
		errs = append(errs, fmt.Errorf("chunk_size %d outside [1,256]", c.ChunkSize))
	}
	if c.GridCellSize < 0 {
		errs = append(errs, fmt.Errorf("grid_cell_size must not be negative, got %v", c.GridCellSize))
	}
	// Neighborhood queries scan ceil(radius/cell)^3 buckets.
	if c.GridCellSize > 0 && c.GridCellSize < c.NodeSpacing {
		errs = append(errs, fmt.Errorf("grid_cell_size %v must be 0 or at least node_spacing %v", c.GridCellSize, c.NodeSpacing))
	}
	if c.Normals != "gradient" && c.Normals != "face" {
		errs = append(errs, fmt.Errorf("normals must be \"gradient\" or \"face\", got %q", c.Normals))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
