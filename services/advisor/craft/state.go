// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package craft defines the immutable data model of the crafting engine:
// the state snapshot, the action catalog types, craft configuration,
// condition tiers, and the search result value objects.
//
// A State is never mutated in place. The transition engine clones it,
// edits the clone, and returns the clone; everything downstream can hold
// a *State without defensive copying. The action catalog and craft
// configuration are loaded once per craft and treated as read-only.
package craft

import (
	"math"

	"github.com/alchemancy/cauldron/services/advisor/formula"
)

// BuffTimer is one of the two timed stat buffs (control or intensity).
// A zero timer is inactive.
type BuffTimer struct {
	// Turns remaining; the buff applies while Turns > 0.
	Turns int `json:"turns" validate:"gte=0"`

	// Multiplier applied to the corresponding stat while active.
	Multiplier float64 `json:"multiplier" validate:"gte=0"`
}

// Active reports whether the buff currently applies.
func (b BuffTimer) Active() bool { return b.Turns > 0 }

// BuffInstance is an active arbitrary buff: a stack count plus the
// definition describing its per-turn and per-category effects.
type BuffInstance struct {
	Stacks int      `json:"stacks" validate:"gte=0"`
	Def    *BuffDef `json:"def,omitempty"`
}

// State is one immutable snapshot of a craft in progress.
//
// Every transition produces a new State via Clone plus field edits; the
// original is never touched. Map and slice fields are deep-copied by
// Clone so hypothetical search branches cannot leak writes into their
// parent.
//
// Invariants (enforced by Sanitize after every transition):
//   - 0 <= Stability <= MaxStability()
//   - MaxStability() >= 0
//   - every numeric field is finite
type State struct {
	// Qi is the spendable resource pool.
	Qi float64 `json:"qi" validate:"gte=0"`

	// Stability is the craft's health; the craft fails at 0.
	Stability float64 `json:"stability" validate:"gte=0"`

	// InitialMaxStability is the stability cap at craft start.
	InitialMaxStability float64 `json:"initial_max_stability" validate:"gte=0"`

	// StabilityPenalty is accumulated soft cap loss. The current cap is
	// InitialMaxStability - StabilityPenalty, floored at 0.
	StabilityPenalty float64 `json:"stability_penalty" validate:"gte=0"`

	// Completion and Perfection are the two progress totals.
	Completion float64 `json:"completion" validate:"gte=0"`
	Perfection float64 `json:"perfection" validate:"gte=0"`

	// CritChance and CritMultiplier are percentages feeding the
	// expected-value crit formula. SuccessBonus is a fraction added to
	// action success chance (0.03 = +3%).
	CritChance     float64 `json:"crit_chance" validate:"gte=0"`
	CritMultiplier float64 `json:"crit_multiplier" validate:"gte=0"`
	SuccessBonus   float64 `json:"success_bonus"`

	// QiCostPct and StabilityCostPct are percentage cost modifiers;
	// 100 leaves costs unchanged.
	QiCostPct        float64 `json:"qi_cost_pct" validate:"gte=0"`
	StabilityCostPct float64 `json:"stability_cost_pct" validate:"gte=0"`

	// ControlBuff and IntensityBuff are the two timed stat buffs.
	ControlBuff   BuffTimer `json:"control_buff"`
	IntensityBuff BuffTimer `json:"intensity_buff"`

	// Toxicity accrues from alchemy actions; exceeding MaxToxicity
	// blocks further toxic actions.
	Toxicity    float64 `json:"toxicity" validate:"gte=0"`
	MaxToxicity float64 `json:"max_toxicity" validate:"gte=0"`

	// Cooldowns maps action key to turns remaining before reuse.
	Cooldowns map[string]int `json:"cooldowns,omitempty" validate:"omitempty,dive,gte=0"`

	// Buffs maps buff name to its active instance.
	Buffs map[string]BuffInstance `json:"buffs,omitempty" validate:"omitempty,dive"`

	// Harmony is the overlay score; HarmonyData is the active sub-game
	// state (nil when the craft has no harmony overlay).
	Harmony     float64      `json:"harmony"`
	HarmonyData *HarmonyData `json:"harmony_data,omitempty"`

	// Step counts consumed turns. Item actions do not advance it.
	Step int `json:"step" validate:"gte=0"`

	// CompletionBonus is the earned bonus stack count; each stack
	// uplifts effective control by 10%.
	CompletionBonus int `json:"completion_bonus" validate:"gte=0"`

	// PillsThisRound counts item actions used since the last turn-
	// consuming action.
	PillsThisRound int `json:"pills_this_round" validate:"gte=0"`

	// History holds the names of all applied actions, oldest first.
	History []string `json:"history,omitempty"`
}

// MaxStability returns the current stability cap: the initial cap minus
// the accumulated penalty, floored at 0.
func (s *State) MaxStability() float64 {
	m := s.InitialMaxStability - s.StabilityPenalty
	if m < 0 {
		return 0
	}
	return m
}

// Clone returns a deep copy of the state. Maps, slices, and the harmony
// sub-state are copied; buff definitions are shared (catalog data, never
// mutated).
func (s *State) Clone() *State {
	out := *s
	if s.Cooldowns != nil {
		out.Cooldowns = make(map[string]int, len(s.Cooldowns))
		for k, v := range s.Cooldowns {
			out.Cooldowns[k] = v
		}
	}
	if s.Buffs != nil {
		out.Buffs = make(map[string]BuffInstance, len(s.Buffs))
		for k, v := range s.Buffs {
			out.Buffs[k] = v
		}
	}
	out.HarmonyData = s.HarmonyData.Clone()
	if s.History != nil {
		out.History = make([]string, len(s.History))
		copy(out.History, s.History)
	}
	return &out
}

// OnCooldown reports whether the action key is still cooling down.
func (s *State) OnCooldown(key string) bool {
	return s.Cooldowns[key] > 0
}

// Sanitize enforces the state invariants in place. It is called by the
// transition engine on freshly cloned states before they are returned;
// callers holding a shared *State must not call it.
//
// Non-finite numerics are clamped to the engine's safe range, resource
// totals are floored at 0, stability is clamped into [0, MaxStability()],
// and zero cost percentages normalize to 100 (nothing legitimately sets
// a 0% cost modifier).
func (s *State) Sanitize() {
	s.Qi = clampNonNegative(s.Qi)
	s.Completion = clampNonNegative(s.Completion)
	s.Perfection = clampNonNegative(s.Perfection)
	s.InitialMaxStability = clampNonNegative(s.InitialMaxStability)
	s.StabilityPenalty = clampNonNegative(s.StabilityPenalty)
	s.CritChance = clampNonNegative(s.CritChance)
	s.CritMultiplier = clampNonNegative(s.CritMultiplier)
	s.SuccessBonus = formula.ClampFinite(s.SuccessBonus)
	s.Harmony = formula.ClampFinite(s.Harmony)
	s.MaxToxicity = clampNonNegative(s.MaxToxicity)

	s.QiCostPct = formula.ClampFinite(s.QiCostPct)
	if s.QiCostPct <= 0 {
		s.QiCostPct = 100
	}
	s.StabilityCostPct = formula.ClampFinite(s.StabilityCostPct)
	if s.StabilityCostPct <= 0 {
		s.StabilityCostPct = 100
	}

	s.Toxicity = clampNonNegative(s.Toxicity)
	if s.MaxToxicity > 0 && s.Toxicity > s.MaxToxicity {
		s.Toxicity = s.MaxToxicity
	}

	s.Stability = formula.ClampFinite(s.Stability)
	if max := s.MaxStability(); s.Stability > max {
		s.Stability = max
	}
	if s.Stability < 0 {
		s.Stability = 0
	}

	if s.CompletionBonus < 0 {
		s.CompletionBonus = 0
	}
	if s.PillsThisRound < 0 {
		s.PillsThisRound = 0
	}
}

func clampNonNegative(v float64) float64 {
	v = formula.ClampFinite(v)
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}
