// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package transition

import (
	"github.com/alchemancy/cauldron/services/advisor/craft"
	"github.com/alchemancy/cauldron/services/advisor/formula"
	"github.com/alchemancy/cauldron/services/advisor/harmony"
)

// Each completion-bonus stack uplifts effective control by 10%.
const completionBonusUplift = 0.10

// EffectiveControl returns the control stat after every modifier layer:
// completion-bonus uplift, active control buff, mastery percentage
// bonus, harmony multiplier (a negative product clamps to 0), and the
// condition multiplier.
func EffectiveControl(s *craft.State, cfg *craft.Config, effect formula.ConditionEffect) float64 {
	return effectiveControl(s, cfg, harmony.CurrentModifiers(s.HarmonyData), effect)
}

// EffectiveIntensity is the intensity analogue of EffectiveControl. The
// completion-bonus uplift applies to control only.
func EffectiveIntensity(s *craft.State, cfg *craft.Config, effect formula.ConditionEffect) float64 {
	return effectiveIntensity(s, cfg, harmony.CurrentModifiers(s.HarmonyData), effect)
}

func effectiveControl(s *craft.State, cfg *craft.Config, mods harmony.Modifiers, effect formula.ConditionEffect) float64 {
	v := cfg.Control
	v *= 1 + completionBonusUplift*float64(s.CompletionBonus)
	if s.ControlBuff.Active() {
		v *= s.ControlBuff.Multiplier
	}
	v *= 1 + cfg.ControlBonusPct/100
	v *= mods.Control
	if v < 0 {
		v = 0
	}
	v *= effect.ControlMult
	return formula.ClampFinite(v)
}

func effectiveIntensity(s *craft.State, cfg *craft.Config, mods harmony.Modifiers, effect formula.ConditionEffect) float64 {
	v := cfg.Intensity
	if s.IntensityBuff.Active() {
		v *= s.IntensityBuff.Multiplier
	}
	v *= 1 + cfg.IntensityBonusPct/100
	v *= mods.Intensity
	if v < 0 {
		v = 0
	}
	v *= effect.IntensityMult
	return formula.ClampFinite(v)
}

// successFraction combines the action's base chance (percent), the
// state's success bonus (fraction), the harmony success bonus
// (fraction), and the condition bonus (percentage points), clamped into
// [0, 1].
func successFraction(s *craft.State, a *craft.Action, mods harmony.Modifiers, effect formula.ConditionEffect) float64 {
	p := a.EffectiveSuccessChance()/100 + s.SuccessBonus + mods.SuccessChance + effect.SuccessBonus/100
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// gainVars builds the variable table scaling trees and buff effect
// lists resolve against. Stats are published both raw and as /100
// ratios.
func gainVars(s *craft.State, control, intensity float64) formula.Vars {
	return formula.Vars{
		"control":         control,
		"intensity":       intensity,
		"control_ratio":   control / 100,
		"intensity_ratio": intensity / 100,
		"qi":              s.Qi,
		"stability":       s.Stability,
		"max_stability":   s.MaxStability(),
		"completion":      s.Completion,
		"perfection":      s.Perfection,
		"harmony":         s.Harmony,
		"toxicity":        s.Toxicity,
		"step":            float64(s.Step),
	}
}

// masteryFor merges the craft-wide upgrade list with the action's own.
func masteryFor(a *craft.Action, cfg *craft.Config) []craft.MasteryUpgrade {
	if len(cfg.Mastery) == 0 {
		return a.Mastery
	}
	if len(a.Mastery) == 0 {
		return cfg.Mastery
	}
	out := make([]craft.MasteryUpgrade, 0, len(cfg.Mastery)+len(a.Mastery))
	out = append(out, cfg.Mastery...)
	out = append(out, a.Mastery...)
	return out
}

// masteryEligible checks an upgrade's progress gate. A zero target makes
// the gate vacuous.
func masteryEligible(e *craft.Eligibility, s *craft.State, cfg *craft.Config) bool {
	if e == nil {
		return true
	}
	switch e.Metric {
	case "perfection":
		if cfg.TargetPerfection <= 0 {
			return true
		}
		return s.Perfection >= e.MinFraction*cfg.TargetPerfection
	default:
		if cfg.TargetCompletion <= 0 {
			return true
		}
		return s.Completion >= e.MinFraction*cfg.TargetCompletion
	}
}

// upgradedScaling applies every eligible mastery upgrade whose key
// appears in the tree. The catalog tree is immutable; the first matching
// upgrade forces a clone and later upgrades edit the clone. Additive
// upgrades add Change to the node's base value, multiplicative ones
// replace it.
func upgradedScaling(spec *formula.Scaling, ups []craft.MasteryUpgrade, s *craft.State, cfg *craft.Config) *formula.Scaling {
	if spec == nil || len(ups) == 0 {
		return spec
	}
	out := spec
	for _, up := range ups {
		if up.UpgradeKey == "" || !masteryEligible(up.Eligibility, s, cfg) {
			continue
		}
		if formula.FindUpgradeNode(out, up.UpgradeKey) == nil {
			continue
		}
		if out == spec {
			out = spec.Clone()
		}
		node := formula.FindUpgradeNode(out, up.UpgradeKey)
		if up.Multiplicative {
			node.Value = up.Change
		} else {
			node.Value += up.Change
		}
	}
	return out
}

// resolvedGains is the full gain computation: the expected-value deltas
// plus the pieces Apply needs beyond them.
type resolvedGains struct {
	gains craft.ExpectedGains

	// overshoot is completion gain beyond the cap; it feeds the
	// bonus-tier conversion instead of raw progress.
	overshoot float64

	// maxStability is the summed max-stability delta from the action's
	// effect list.
	maxStability float64

	// vars is the table the gains resolved against, reused for buff
	// effect lists.
	vars formula.Vars
}

// Gains computes the expected-value deltas the action produces against
// the state under the given condition effect.
//
// The general effect list takes precedence over the legacy scalar trees
// when non-empty. Progress amounts are scaled by the crit expected value
// and the success fraction; resource amounts apply as written. Predicted
// completion and perfection are clamped to the remaining headroom under
// the configured caps.
//
// Inputs:
//   - s: Current state (read-only)
//   - a: Action under consideration
//   - cfg: Craft configuration
//   - effect: Resolved condition effect for the current tier
//
// Outputs:
//   - craft.ExpectedGains: Expected deltas, all finite
func Gains(s *craft.State, a *craft.Action, cfg *craft.Config, effect formula.ConditionEffect) craft.ExpectedGains {
	return computeGains(s, a, cfg, effect).gains
}

func computeGains(s *craft.State, a *craft.Action, cfg *craft.Config, effect formula.ConditionEffect) resolvedGains {
	mods := harmony.CurrentModifiers(s.HarmonyData)
	control := effectiveControl(s, cfg, mods, effect)
	intensity := effectiveIntensity(s, cfg, mods, effect)
	critEV := formula.CritEV(s.CritChance+mods.CritChance, s.CritMultiplier)
	success := successFraction(s, a, mods, effect)
	ups := masteryFor(a, cfg)

	r := resolvedGains{vars: gainVars(s, control, intensity)}

	if len(a.Effects) > 0 {
		for _, e := range a.Effects {
			amount := formula.Evaluate(upgradedScaling(e.Amount, ups, s, cfg), r.vars, 0)
			switch e.Kind {
			case craft.EffectCompletion:
				r.gains.Completion += amount * critEV * success
			case craft.EffectPerfection:
				r.gains.Perfection += amount * critEV * success
			case craft.EffectStability:
				r.gains.Stability += amount
			case craft.EffectQi:
				r.gains.Qi += amount
			case craft.EffectToxicity:
				r.gains.Toxicity += amount
			case craft.EffectMaxStability:
				r.maxStability += amount
			case craft.EffectHarmony:
				r.gains.Harmony += amount
			}
		}
	} else {
		r.gains.Completion = formula.Evaluate(upgradedScaling(a.CompletionScale, ups, s, cfg), r.vars, 0) *
			control / 100 * critEV * success
		r.gains.Perfection = formula.Evaluate(upgradedScaling(a.PerfectionScale, ups, s, cfg), r.vars, 0) *
			intensity / 100 * critEV * success
		r.gains.Stability = formula.Evaluate(upgradedScaling(a.StabilityGain, ups, s, cfg), r.vars, 0)
	}

	if cfg.MaxCompletion > 0 {
		headroom := cfg.MaxCompletion - s.Completion
		if headroom < 0 {
			headroom = 0
		}
		if r.gains.Completion > headroom {
			r.overshoot = r.gains.Completion - headroom
			r.gains.Completion = headroom
		}
	}
	if cfg.MaxPerfection > 0 {
		headroom := cfg.MaxPerfection - s.Perfection
		if headroom < 0 {
			headroom = 0
		}
		if r.gains.Perfection > headroom {
			r.gains.Perfection = headroom
		}
	}

	r.gains.Completion = formula.ClampFinite(r.gains.Completion)
	r.gains.Perfection = formula.ClampFinite(r.gains.Perfection)
	r.gains.Stability = formula.ClampFinite(r.gains.Stability)
	r.gains.Qi = formula.ClampFinite(r.gains.Qi)
	r.gains.Toxicity = formula.ClampFinite(r.gains.Toxicity)
	r.gains.Harmony = formula.ClampFinite(r.gains.Harmony)
	r.overshoot = formula.ClampFinite(r.overshoot)
	r.maxStability = formula.ClampFinite(r.maxStability)
	return r
}
