// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package formula

// Canonical condition tier labels, worst to best. The state layer defines
// its ConditionTier type over these same labels; they are the keys of
// every condition-effect table.
const (
	TierVeryNegative = "very_negative"
	TierNegative     = "negative"
	TierNeutral      = "neutral"
	TierPositive     = "positive"
	TierVeryPositive = "very_positive"
)

// Profile selects which recipe archetype the fallback condition table
// applies. A recipe's condition affects exactly one axis: one of the two
// gain stats, both at half rate, one of the two costs, or success chance.
type Profile string

const (
	// ProfileControl scales effective control only.
	ProfileControl Profile = "control"

	// ProfileIntensity scales effective intensity only.
	ProfileIntensity Profile = "intensity"

	// ProfileBalanced scales control and intensity together at half rate.
	ProfileBalanced Profile = "balanced"

	// ProfileQiCost scales qi costs (good conditions make actions cheaper).
	ProfileQiCost Profile = "qi_cost"

	// ProfileStabilityCost scales stability costs.
	ProfileStabilityCost Profile = "stability_cost"

	// ProfileSuccess shifts success chance.
	ProfileSuccess Profile = "success"
)

// ConditionEffect is the resolved per-tier modifier bundle the transition
// engine folds into gains and costs.
//
// ControlMult and IntensityMult multiply the effective stats. The cost
// deltas enter the cost formula as (1 + delta); a delta of -0.3 makes an
// action 30% cheaper. SuccessBonus is in percentage points.
type ConditionEffect struct {
	ControlMult        float64 `json:"control_mult" yaml:"control_mult"`
	IntensityMult      float64 `json:"intensity_mult" yaml:"intensity_mult"`
	QiCostDelta        float64 `json:"qi_cost_delta" yaml:"qi_cost_delta"`
	StabilityCostDelta float64 `json:"stability_cost_delta" yaml:"stability_cost_delta"`
	SuccessBonus       float64 `json:"success_bonus" yaml:"success_bonus"`
}

// NeutralEffect returns the identity effect: stats unchanged, costs
// unchanged, no success shift.
func NeutralEffect() ConditionEffect {
	return ConditionEffect{ControlMult: 1, IntensityMult: 1}
}

// fallbackEffects is the hardcoded archetype table used when the caller
// supplies no real condition data. Stat archetypes swing +/-50% and
// +/-100%; the balanced archetype swings both stats at half rate; cost
// archetypes swing -/+30% and -/+60% (good conditions reduce cost);
// success swings +/-25 and +/-50 points. The neutral tier is always the
// identity and is omitted.
var fallbackEffects = map[Profile]map[string]ConditionEffect{
	ProfileControl: {
		TierVeryNegative: {ControlMult: 0, IntensityMult: 1},
		TierNegative:     {ControlMult: 0.5, IntensityMult: 1},
		TierPositive:     {ControlMult: 1.5, IntensityMult: 1},
		TierVeryPositive: {ControlMult: 2, IntensityMult: 1},
	},
	ProfileIntensity: {
		TierVeryNegative: {ControlMult: 1, IntensityMult: 0},
		TierNegative:     {ControlMult: 1, IntensityMult: 0.5},
		TierPositive:     {ControlMult: 1, IntensityMult: 1.5},
		TierVeryPositive: {ControlMult: 1, IntensityMult: 2},
	},
	ProfileBalanced: {
		TierVeryNegative: {ControlMult: 0.5, IntensityMult: 0.5},
		TierNegative:     {ControlMult: 0.75, IntensityMult: 0.75},
		TierPositive:     {ControlMult: 1.25, IntensityMult: 1.25},
		TierVeryPositive: {ControlMult: 1.5, IntensityMult: 1.5},
	},
	ProfileQiCost: {
		TierVeryNegative: {ControlMult: 1, IntensityMult: 1, QiCostDelta: 0.6},
		TierNegative:     {ControlMult: 1, IntensityMult: 1, QiCostDelta: 0.3},
		TierPositive:     {ControlMult: 1, IntensityMult: 1, QiCostDelta: -0.3},
		TierVeryPositive: {ControlMult: 1, IntensityMult: 1, QiCostDelta: -0.6},
	},
	ProfileStabilityCost: {
		TierVeryNegative: {ControlMult: 1, IntensityMult: 1, StabilityCostDelta: 0.6},
		TierNegative:     {ControlMult: 1, IntensityMult: 1, StabilityCostDelta: 0.3},
		TierPositive:     {ControlMult: 1, IntensityMult: 1, StabilityCostDelta: -0.3},
		TierVeryPositive: {ControlMult: 1, IntensityMult: 1, StabilityCostDelta: -0.6},
	},
	ProfileSuccess: {
		TierVeryNegative: {ControlMult: 1, IntensityMult: 1, SuccessBonus: -50},
		TierNegative:     {ControlMult: 1, IntensityMult: 1, SuccessBonus: -25},
		TierPositive:     {ControlMult: 1, IntensityMult: 1, SuccessBonus: 25},
		TierVeryPositive: {ControlMult: 1, IntensityMult: 1, SuccessBonus: 50},
	},
}

// EffectsFor resolves the condition effect for a tier.
//
// A caller-supplied override table takes full precedence: when non-nil it
// is the only table consulted, and tiers absent from it resolve to the
// neutral effect. Without an override the hardcoded archetype table for
// profile applies. Unknown tiers and unknown profiles resolve to the
// neutral effect.
//
// Inputs:
//   - tier: Canonical condition tier label
//   - profile: Recipe archetype for the fallback table
//   - override: Optional real per-tier effect table
//
// Outputs:
//   - ConditionEffect: The resolved effect, never a zero value
func EffectsFor(tier string, profile Profile, override map[string]ConditionEffect) ConditionEffect {
	if override != nil {
		if effect, ok := override[tier]; ok {
			return effect
		}
		return NeutralEffect()
	}
	tiers, ok := fallbackEffects[profile]
	if !ok {
		return NeutralEffect()
	}
	effect, ok := tiers[tier]
	if !ok {
		return NeutralEffect()
	}
	return effect
}
