// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package config

import (
	"fmt"
	"os"

	"github.com/2dChan/r2voronoi/arena"
	"gopkg.in/yaml.v3"
)

const (
	Version = "1.0"

	DefaultRadius      = 150.0
	DefaultInnerRadius = 50.0
	DefaultOuterRadius = 150.0
	DefaultSegments    = 64
	DefaultOutputDir   = "simulationAnalysis"
)

// Config is the dispersion analysis configuration file.
type Config struct {
	Version  string         `yaml:"version"`
	Input    InputConfig    `yaml:"input"`
	Arena    ArenaConfig    `yaml:"arena"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Output   OutputConfig   `yaml:"output"`
}

type InputConfig struct {
	States     string `yaml:"states"`
	Simulation string `yaml:"simulation,omitempty"` // optional simulation.json
}

// ArenaConfig describes the arena in millimetres. An empty kind is inferred
// from the arena file name recorded in simulation.json.
type ArenaConfig struct {
	Kind          string  `yaml:"kind,omitempty"`
	RadiusMM      float64 `yaml:"radius_mm,omitempty"`
	InnerRadiusMM float64 `yaml:"inner_radius_mm,omitempty"`
	OuterRadiusMM float64 `yaml:"outer_radius_mm,omitempty"`
	Segments      int     `yaml:"segments,omitempty"`
}

type AnalysisConfig struct {
	Workers        int  `yaml:"workers,omitempty"`
	Strict         bool `yaml:"strict"`
	AllowCollinear bool `yaml:"allow_collinear"`
}

type OutputConfig struct {
	Dir           string `yaml:"dir,omitempty"`
	Plots         *bool  `yaml:"plots,omitempty"` // default true
	GeoJSON       bool   `yaml:"geojson"`
	LegacyAreaRef bool   `yaml:"legacy_area_ref"`
}

// PlotsEnabled reports whether SVG plots are written.
func (o OutputConfig) PlotsEnabled() bool {
	return o.Plots == nil || *o.Plots
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{Version: Version}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills every unset field with its default value.
func (c *Config) ApplyDefaults() {
	if c.Arena.RadiusMM == 0 {
		c.Arena.RadiusMM = DefaultRadius
	}
	if c.Arena.InnerRadiusMM == 0 {
		c.Arena.InnerRadiusMM = DefaultInnerRadius
	}
	if c.Arena.OuterRadiusMM == 0 {
		c.Arena.OuterRadiusMM = DefaultOuterRadius
	}
	if c.Arena.Segments == 0 {
		c.Arena.Segments = DefaultSegments
	}
	if c.Analysis.Workers == 0 {
		c.Analysis.Workers = 1
	}
	if c.Output.Dir == "" {
		c.Output.Dir = DefaultOutputDir
	}
	if c.Output.Plots == nil {
		plots := true
		c.Output.Plots = &plots
	}
}

// Validate performs strict validation on the configuration.
func (c *Config) Validate() error {
	if c.Version != Version {
		return fmt.Errorf("unsupported version: %s (expected: %s)", c.Version, Version)
	}
	if c.Input.States == "" {
		return fmt.Errorf("input.states is required")
	}

	var kind arena.Kind
	if c.Arena.Kind != "" {
		k, err := arena.ParseKind(c.Arena.Kind)
		if err != nil {
			return fmt.Errorf("%w: invalid arena.kind: %s (must be 'disk' or 'annulus')",
				arena.ErrInvalidConfiguration, c.Arena.Kind)
		}
		kind = k
	}
	// An unset kind is resolved later, so both shapes must be valid.
	if kind != arena.Annulus {
		if c.Arena.RadiusMM <= 0 {
			return fmt.Errorf("%w: arena.radius_mm must be > 0, got %g",
				arena.ErrInvalidConfiguration, c.Arena.RadiusMM)
		}
	}
	if kind != arena.Disk {
		if c.Arena.InnerRadiusMM <= 0 {
			return fmt.Errorf("%w: arena.inner_radius_mm must be > 0, got %g",
				arena.ErrInvalidConfiguration, c.Arena.InnerRadiusMM)
		}
		if c.Arena.OuterRadiusMM <= c.Arena.InnerRadiusMM {
			return fmt.Errorf("%w: arena.outer_radius_mm (%g) must be greater than arena.inner_radius_mm (%g)",
				arena.ErrInvalidConfiguration, c.Arena.OuterRadiusMM, c.Arena.InnerRadiusMM)
		}
	}
	if c.Arena.Segments < 8 {
		return fmt.Errorf("%w: arena.segments must be >= 8, got %d",
			arena.ErrInvalidConfiguration, c.Arena.Segments)
	}

	if c.Analysis.Workers < 1 {
		return fmt.Errorf("analysis.workers must be >= 1, got %d", c.Analysis.Workers)
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir is required")
	}
	return nil
}

// ResolveKind returns the configured arena kind or, when none is set,
// infers it from arenaFileName.
func (c *Config) ResolveKind(arenaFileName string) (arena.Kind, error) {
	if c.Arena.Kind != "" {
		return arena.ParseKind(c.Arena.Kind)
	}
	if arenaFileName == "" {
		return 0, fmt.Errorf("%w: arena.kind is not set and no arena file name to infer it from",
			arena.ErrInvalidConfiguration)
	}
	return arena.InferKind(arenaFileName)
}

// BuildArena builds the arena of the given kind from the configured radii.
func (c *Config) BuildArena(kind arena.Kind) (*arena.Shape, error) {
	p := arena.Params{
		Radius:      c.Arena.RadiusMM,
		InnerRadius: c.Arena.InnerRadiusMM,
		OuterRadius: c.Arena.OuterRadiusMM,
	}
	return arena.Build(kind, p, arena.WithSegments(c.Arena.Segments))
}

// Load reads, defaults and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}
