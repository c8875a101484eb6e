// Package config loads the matcher's tuning parameters from a JSON defaults
// file, merging partial overrides the same way the original tuning loader
// does: every field is a pointer so omission means "use the built-in
// default" rather than the Go zero value.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the canonical tuning defaults file, the single
// source of truth for default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// MatchTuning is the root configuration for the matcher's tuning
// parameters. The schema is shared between startup configuration and any
// runtime override endpoint a caller builds on top of this package.
type MatchTuning struct {
	// Search budget and heuristic
	RelaxationBudget *int     `json:"relaxation_budget,omitempty"`
	GreedyFactor     *float64 `json:"greedy_factor,omitempty"`

	// Projection quantiles
	InitialProjectionQuantile *float64 `json:"initial_projection_quantile,omitempty"`
	DefaultProjectionQuantile *float64 `json:"default_projection_quantile,omitempty"`
	ContinuationQuantile      *float64 `json:"continuation_quantile,omitempty"`
	MaxCandidatesPerState     *int     `json:"max_candidates_per_state,omitempty"`

	// Off-network costs
	FallbackDistanceCost *float64 `json:"fallback_distance_cost,omitempty"`
	OffNetworkStateCost  *float64 `json:"off_network_state_cost,omitempty"`

	// Segment geometry
	MaxAlongSegmentSpeed *float64 `json:"max_along_segment_speed,omitempty"`
	DefaultHalfWidth     *float64 `json:"default_half_width,omitempty"`
}

// EmptyMatchTuning returns a MatchTuning with all fields nil. Use
// LoadMatchTuning to load actual values from a defaults file.
func EmptyMatchTuning() *MatchTuning {
	return &MatchTuning{}
}

// LoadMatchTuning loads a MatchTuning from a JSON file. The file is
// validated to ensure it has a .json extension and is under the max file
// size. Fields omitted from the JSON retain their default values, so
// partial configs are safe.
func LoadMatchTuning(path string) (*MatchTuning, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyMatchTuning()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from
// DefaultConfigPath, searching from the current directory up through
// common parent directories. Panics if the file cannot be loaded; intended
// for test setup.
func MustLoadDefaultConfig() *MatchTuning {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadMatchTuning(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that set fields hold plausible values.
func (c *MatchTuning) Validate() error {
	if c.RelaxationBudget != nil && *c.RelaxationBudget <= 0 {
		return fmt.Errorf("relaxation_budget must be positive, got %d", *c.RelaxationBudget)
	}
	if c.GreedyFactor != nil && *c.GreedyFactor < 0 {
		return fmt.Errorf("greedy_factor must be non-negative, got %f", *c.GreedyFactor)
	}
	if c.MaxCandidatesPerState != nil && *c.MaxCandidatesPerState <= 0 {
		return fmt.Errorf("max_candidates_per_state must be positive, got %d", *c.MaxCandidatesPerState)
	}
	if c.FallbackDistanceCost != nil && *c.FallbackDistanceCost < 0 {
		return fmt.Errorf("fallback_distance_cost must be non-negative, got %f", *c.FallbackDistanceCost)
	}
	if c.MaxAlongSegmentSpeed != nil && *c.MaxAlongSegmentSpeed <= 0 {
		return fmt.Errorf("max_along_segment_speed must be positive, got %f", *c.MaxAlongSegmentSpeed)
	}
	return nil
}

// GetRelaxationBudget returns the relaxation_budget value or the default.
func (c *MatchTuning) GetRelaxationBudget() int {
	if c.RelaxationBudget == nil {
		return 300000
	}
	return *c.RelaxationBudget
}

// GetGreedyFactor returns the greedy_factor value or the default.
func (c *MatchTuning) GetGreedyFactor() float64 {
	if c.GreedyFactor == nil {
		return 1.0
	}
	return *c.GreedyFactor
}

// GetInitialProjectionQuantile returns the initial_projection_quantile
// value or the default.
func (c *MatchTuning) GetInitialProjectionQuantile() float64 {
	if c.InitialProjectionQuantile == nil {
		return 50.0
	}
	return *c.InitialProjectionQuantile
}

// GetDefaultProjectionQuantile returns the default_projection_quantile
// value or the default.
func (c *MatchTuning) GetDefaultProjectionQuantile() float64 {
	if c.DefaultProjectionQuantile == nil {
		return 5.0
	}
	return *c.DefaultProjectionQuantile
}

// GetContinuationQuantile returns the continuation_quantile value or the
// default.
func (c *MatchTuning) GetContinuationQuantile() float64 {
	if c.ContinuationQuantile == nil {
		return 25.0
	}
	return *c.ContinuationQuantile
}

// GetMaxCandidatesPerState returns the max_candidates_per_state value or
// the default.
func (c *MatchTuning) GetMaxCandidatesPerState() int {
	if c.MaxCandidatesPerState == nil {
		return 5
	}
	return *c.MaxCandidatesPerState
}

// GetFallbackDistanceCost returns the fallback_distance_cost value or the
// default.
func (c *MatchTuning) GetFallbackDistanceCost() float64 {
	if c.FallbackDistanceCost == nil {
		return 300.0
	}
	return *c.FallbackDistanceCost
}

// GetOffNetworkStateCost returns the off_network_state_cost value or the
// default.
func (c *MatchTuning) GetOffNetworkStateCost() float64 {
	if c.OffNetworkStateCost == nil {
		return 20.0
	}
	return *c.OffNetworkStateCost
}

// GetMaxAlongSegmentSpeed returns the max_along_segment_speed value or the
// default.
func (c *MatchTuning) GetMaxAlongSegmentSpeed() float64 {
	if c.MaxAlongSegmentSpeed == nil {
		return 50.0
	}
	return *c.MaxAlongSegmentSpeed
}

// GetDefaultHalfWidth returns the default_half_width value or the default.
func (c *MatchTuning) GetDefaultHalfWidth() float64 {
	if c.DefaultHalfWidth == nil {
		return 4.0
	}
	return *c.DefaultHalfWidth
}
