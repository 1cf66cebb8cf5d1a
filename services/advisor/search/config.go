// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package search

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the search tuning knobs.
//
// Every knob has a documented range; Normalize clamps out-of-range
// values into it instead of rejecting, so a sloppy host payload degrades
// the search rather than failing it.
//
// Thread Safety: Safe to read concurrently. Not safe to modify after
// creation.
type Config struct {
	// Depth is the maximum lookahead depth in turns. Range 1-96.
	Depth int `json:"depth" yaml:"depth"`

	// TimeBudgetMs is the wall-clock budget per search invocation.
	// Range 50-5000.
	TimeBudgetMs int `json:"time_budget_ms" yaml:"time_budget_ms"`

	// MaxNodes is the node-count budget. Range 1000-400000.
	MaxNodes int `json:"max_nodes" yaml:"max_nodes"`

	// BeamWidth is the number of ordered actions explored per node.
	// Range 3-15.
	BeamWidth int `json:"beam_width" yaml:"beam_width"`

	// ConditionBranchLimit caps the weighted future-condition branches
	// explored past the forecast window. Range 1-4.
	ConditionBranchLimit int `json:"condition_branch_limit" yaml:"condition_branch_limit"`

	// ConditionBranchMinProbability drops branches below this weight.
	// Range 0.01-0.9.
	ConditionBranchMinProbability float64 `json:"condition_branch_min_probability" yaml:"condition_branch_min_probability"`

	// IterativeDeepening reruns the search at increasing depths from
	// MinDepth to Depth, keeping the deepest completed result.
	IterativeDeepening bool `json:"iterative_deepening" yaml:"iterative_deepening"`

	// MinDepth is the first iterative-deepening depth. Range 1-Depth.
	MinDepth int `json:"min_depth" yaml:"min_depth"`

	// LowStability is the threshold under which the craft counts as
	// critically unstable for move ordering and the scorer's
	// survivability penalty.
	LowStability float64 `json:"low_stability" yaml:"low_stability"`

	// ProgressBucket is the memo-key bucket size for large progress
	// values; BucketThreshold is where bucketing starts.
	ProgressBucket  float64 `json:"progress_bucket" yaml:"progress_bucket"`
	BucketThreshold float64 `json:"bucket_threshold" yaml:"bucket_threshold"`

	// Tracing enables the otel span instrumentation.
	Tracing bool `json:"tracing" yaml:"tracing"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		Depth:                         30,
		TimeBudgetMs:                  250,
		MaxNodes:                      60000,
		BeamWidth:                     8,
		ConditionBranchLimit:          2,
		ConditionBranchMinProbability: 0.15,
		IterativeDeepening:            true,
		MinDepth:                      6,
		LowStability:                  15,
		ProgressBucket:                25,
		BucketThreshold:               1000,
	}
}

// Normalize clamps every knob into its documented range.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Depth <= 0 {
		c.Depth = def.Depth
	}
	c.Depth = clampInt(c.Depth, 1, 96)

	if c.TimeBudgetMs <= 0 {
		c.TimeBudgetMs = def.TimeBudgetMs
	}
	c.TimeBudgetMs = clampInt(c.TimeBudgetMs, 50, 5000)

	if c.MaxNodes <= 0 {
		c.MaxNodes = def.MaxNodes
	}
	c.MaxNodes = clampInt(c.MaxNodes, 1000, 400000)

	if c.BeamWidth <= 0 {
		c.BeamWidth = def.BeamWidth
	}
	c.BeamWidth = clampInt(c.BeamWidth, 3, 15)

	if c.ConditionBranchLimit <= 0 {
		c.ConditionBranchLimit = def.ConditionBranchLimit
	}
	c.ConditionBranchLimit = clampInt(c.ConditionBranchLimit, 1, 4)

	if c.ConditionBranchMinProbability <= 0 {
		c.ConditionBranchMinProbability = def.ConditionBranchMinProbability
	}
	if c.ConditionBranchMinProbability < 0.01 {
		c.ConditionBranchMinProbability = 0.01
	}
	if c.ConditionBranchMinProbability > 0.9 {
		c.ConditionBranchMinProbability = 0.9
	}

	if c.MinDepth <= 0 {
		c.MinDepth = def.MinDepth
	}
	c.MinDepth = clampInt(c.MinDepth, 1, c.Depth)

	if c.LowStability <= 0 {
		c.LowStability = def.LowStability
	}
	if c.ProgressBucket < 1 {
		c.ProgressBucket = def.ProgressBucket
	}
	if c.BucketThreshold <= 0 {
		c.BucketThreshold = def.BucketThreshold
	}
}

// TimeBudget returns the wall-clock budget as a duration.
func (c Config) TimeBudget() time.Duration {
	return time.Duration(c.TimeBudgetMs) * time.Millisecond
}

// Load reads configuration with priority: env > file > defaults.
//
// Inputs:
//   - configPath: Path to a YAML/JSON config file (optional, can be empty)
//
// Outputs:
//   - Config: Merged and normalized configuration
//   - error: Non-nil if the file exists but cannot be parsed
func Load(configPath string) (Config, error) {
	config := DefaultConfig()

	if configPath != "" {
		if err := loadConfigFile(configPath, &config); err != nil {
			return config, fmt.Errorf("load config file: %w", err)
		}
	}

	loadConfigFromEnv(&config)
	config.Normalize()
	return config, nil
}

func loadConfigFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	// Try YAML first, then JSON.
	if err := yaml.Unmarshal(data, config); err != nil {
		if jsonErr := json.Unmarshal(data, config); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return nil
}

func loadConfigFromEnv(config *Config) {
	if v := os.Getenv("CAULDRON_SEARCH_DEPTH"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.Depth = i
		}
	}
	if v := os.Getenv("CAULDRON_SEARCH_TIME_BUDGET_MS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.TimeBudgetMs = i
		}
	}
	if v := os.Getenv("CAULDRON_SEARCH_MAX_NODES"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.MaxNodes = i
		}
	}
	if v := os.Getenv("CAULDRON_SEARCH_BEAM_WIDTH"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.BeamWidth = i
		}
	}
	if v := os.Getenv("CAULDRON_SEARCH_CONDITION_BRANCH_LIMIT"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.ConditionBranchLimit = i
		}
	}
	if v := os.Getenv("CAULDRON_SEARCH_CONDITION_BRANCH_MIN_PROBABILITY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.ConditionBranchMinProbability = f
		}
	}
	if v := os.Getenv("CAULDRON_SEARCH_ITERATIVE_DEEPENING"); v != "" {
		config.IterativeDeepening = v == "true" || v == "1"
	}
	if v := os.Getenv("CAULDRON_SEARCH_MIN_DEPTH"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.MinDepth = i
		}
	}
	if v := os.Getenv("CAULDRON_SEARCH_LOW_STABILITY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.LowStability = f
		}
	}
	if v := os.Getenv("CAULDRON_SEARCH_TRACING"); v != "" {
		config.Tracing = v == "true" || v == "1"
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
