// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package harmony implements the four harmony sub-games layered over a
// craft: heat gauge, charge combo, pattern block, and resonance streak.
//
// Each variant is a pure state machine. Step consumes the current
// sub-game state and an action category and returns the successor state
// plus a Transition describing the harmony delta, the stat modifiers now
// in force, and any side effects the transition engine must apply. The
// input state is never mutated.
//
// CurrentModifiers answers "what modifiers apply right now" without
// stepping, for the scorer and any UI surface.
package harmony

import "github.com/alchemancy/cauldron/services/advisor/craft"

// Modifiers is the stat-modifier bundle a harmony state exerts on the
// craft. Control and Intensity multiply the effective stats (a negative
// product is clamped to 0 by the consumer); CritChance is additive
// percentage points; SuccessChance is an additive fraction; the cost
// percentages replace the 100 baseline.
type Modifiers struct {
	Control          float64 `json:"control"`
	Intensity        float64 `json:"intensity"`
	CritChance       float64 `json:"crit_chance"`
	SuccessChance    float64 `json:"success_chance"`
	QiCostPct        float64 `json:"qi_cost_pct"`
	StabilityCostPct float64 `json:"stability_cost_pct"`
}

// Defaults returns the identity modifier bundle.
func Defaults() Modifiers {
	return Modifiers{
		Control:          1,
		Intensity:        1,
		CritChance:       0,
		SuccessChance:    0,
		QiCostPct:        100,
		StabilityCostPct: 100,
	}
}

// SideEffects are the immediate state costs a harmony transition
// inflicts beyond the harmony delta itself.
type SideEffects struct {
	// StabilityDamage is subtracted from current stability.
	StabilityDamage float64 `json:"stability_damage,omitempty"`

	// MaxStabilityPenalty is added to the soft cap penalty.
	MaxStabilityPenalty float64 `json:"max_stability_penalty,omitempty"`

	// QiDelta adjusts the pool (negative drains it).
	QiDelta float64 `json:"qi_delta,omitempty"`
}

// Transition is the full outcome of one harmony step.
type Transition struct {
	// HarmonyDelta is added to the craft's harmony score.
	HarmonyDelta float64 `json:"harmony_delta"`

	// Modifiers now in force, already reflecting the new state.
	Modifiers Modifiers `json:"modifiers"`

	SideEffects SideEffects `json:"side_effects"`

	// Recommended lists the categories the sub-game currently favors.
	Recommended []craft.Category `json:"recommended,omitempty"`
}

// Step advances the harmony sub-game by one action.
//
// The input state is never mutated; the successor is a fresh copy. A nil
// state or the HarmonyNone variant passes through unchanged with
// identity modifiers.
//
// Inputs:
//   - data: Current sub-game state
//   - cat: Category of the action being applied
//
// Outputs:
//   - *craft.HarmonyData: Successor state
//   - Transition: Delta, modifiers, side effects, recommendations
func Step(data *craft.HarmonyData, cat craft.Category) (*craft.HarmonyData, Transition) {
	if data == nil || data.Variant == craft.HarmonyNone {
		return data, Transition{Modifiers: Defaults()}
	}
	next := data.Clone()
	var tr Transition
	switch data.Variant {
	case craft.HarmonyHeat:
		tr = stepHeat(next, cat)
	case craft.HarmonyCharge:
		tr = stepCharge(next, cat)
	case craft.HarmonyPattern:
		tr = stepPattern(next, cat)
	case craft.HarmonyResonance:
		tr = stepResonance(next, cat)
	default:
		tr = Transition{Modifiers: Defaults()}
	}
	next.Recommended = tr.Recommended
	return next, tr
}

// CurrentModifiers returns the modifiers the state exerts right now,
// without stepping. This is the read-only query the scorer uses; it must
// agree with what Step would report for the same state.
func CurrentModifiers(data *craft.HarmonyData) Modifiers {
	if data == nil {
		return Defaults()
	}
	switch data.Variant {
	case craft.HarmonyHeat:
		return heatModifiers(data.Heat)
	case craft.HarmonyCharge:
		return chargeModifiers(data)
	case craft.HarmonyPattern:
		return patternModifiers(data.Stacks)
	case craft.HarmonyResonance:
		return resonanceModifiers(data.Strength)
	}
	return Defaults()
}
