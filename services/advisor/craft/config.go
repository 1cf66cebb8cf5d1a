// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package craft

import "github.com/alchemancy/cauldron/services/advisor/formula"

// Config is the per-craft recipe configuration: caps, base stats,
// targets, condition data, and the optional harmony/mastery extensions.
// The adapter builds it once per craft; the engine reads it read-only.
type Config struct {
	// TargetCompletion and TargetPerfection are the two goals the
	// search optimizes toward. A zero target means "maximize".
	TargetCompletion float64 `json:"target_completion" validate:"gte=0"`
	TargetPerfection float64 `json:"target_perfection" validate:"gte=0"`

	// MaxCompletion and MaxPerfection cap progress; 0 means uncapped.
	// Completion overflowing its cap converts to bonus stacks.
	MaxCompletion float64 `json:"max_completion,omitempty" validate:"gte=0"`
	MaxPerfection float64 `json:"max_perfection,omitempty" validate:"gte=0"`

	// Control and Intensity are the crafter's base stats (around 100).
	// Control scales completion gains, intensity scales perfection.
	Control   float64 `json:"control" validate:"gte=0"`
	Intensity float64 `json:"intensity" validate:"gte=0"`

	// ControlBonusPct and IntensityBonusPct are mastery-derived
	// percentage bonuses folded into the effective stats.
	ControlBonusPct   float64 `json:"control_bonus_pct,omitempty" validate:"gte=0"`
	IntensityBonusPct float64 `json:"intensity_bonus_pct,omitempty" validate:"gte=0"`

	// MinStability is the floor under which the craft counts as
	// critically unstable for move ordering.
	MinStability float64 `json:"min_stability,omitempty" validate:"gte=0"`

	// ConditionProfile selects the fallback condition archetype;
	// ConditionEffects, when non-nil, supplies the real per-tier table
	// and takes full precedence.
	ConditionProfile formula.Profile                    `json:"condition_profile,omitempty" validate:"omitempty,oneof=control intensity balanced qi_cost stability_cost success"`
	ConditionEffects map[string]formula.ConditionEffect `json:"condition_effects,omitempty"`

	// Harmony overlay settings. HarmonyTargetMult scales the craft
	// targets for harmony crafts (1 when unset); Sublime marks the
	// high-difficulty recipe flavor.
	HarmonyEnabled    bool           `json:"harmony_enabled,omitempty"`
	HarmonyVariant    HarmonyVariant `json:"harmony_variant,omitempty" validate:"omitempty,oneof=heat charge pattern resonance"`
	HarmonyTargetMult float64        `json:"harmony_target_mult,omitempty" validate:"gte=0"`
	Sublime           bool           `json:"sublime,omitempty"`

	// Mastery upgrades applied to every action's scaling trees (the
	// catalog may carry additional per-action entries).
	Mastery []MasteryUpgrade `json:"mastery,omitempty" validate:"omitempty,dive"`

	// PillsPerRound limits item actions between turn-consuming actions.
	PillsPerRound int `json:"pills_per_round,omitempty" validate:"gte=0"`

	// Alchemy enables the toxicity rules.
	Alchemy bool `json:"alchemy,omitempty"`

	// BonusTierTarget is the first bonus-tier threshold for completion
	// overflow (defaults to 100).
	BonusTierTarget float64 `json:"bonus_tier_target,omitempty" validate:"gte=0"`
}

// Normalize fills zero-valued knobs with their documented defaults.
func (c *Config) Normalize() {
	if c.HarmonyTargetMult <= 0 {
		c.HarmonyTargetMult = 1
	}
	if c.BonusTierTarget <= 0 {
		c.BonusTierTarget = 100
	}
	if c.PillsPerRound <= 0 {
		c.PillsPerRound = 1
	}
	if c.HarmonyVariant != HarmonyNone && c.HarmonyVariant.Valid() {
		c.HarmonyEnabled = true
	}
}

// TargetsMet reports whether the state satisfies both targets. When both
// targets are zero the craft is open-ended and never counts as met.
func (c *Config) TargetsMet(s *State) bool {
	if c.TargetCompletion <= 0 && c.TargetPerfection <= 0 {
		return false
	}
	return s.Completion >= c.TargetCompletion && s.Perfection >= c.TargetPerfection
}

// CompletionMet reports whether the completion target alone is met.
// A zero target counts as met so the other target drives scoring.
func (c *Config) CompletionMet(s *State) bool {
	return c.TargetCompletion <= 0 || s.Completion >= c.TargetCompletion
}

// PerfectionMet reports whether the perfection target alone is met.
func (c *Config) PerfectionMet(s *State) bool {
	return c.TargetPerfection <= 0 || s.Perfection >= c.TargetPerfection
}
