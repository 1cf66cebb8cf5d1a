// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package transition

import (
	"math"

	"github.com/alchemancy/cauldron/services/advisor/craft"
	"github.com/alchemancy/cauldron/services/advisor/formula"
	"github.com/alchemancy/cauldron/services/advisor/harmony"
)

// EffectiveCost resolves a base cost through the two modifier stages in
// their contractual order: the percentage modifier first with ceiling
// rounding, then the condition delta with floor rounding. Base 10 at 80%
// under a -0.3 condition delta costs 5, not 6.
//
// A non-positive base is free. A non-positive percentage is treated as
// the 100 baseline. The result is never negative.
func EffectiveCost(base, pct, condDelta float64) float64 {
	if base <= 0 {
		return 0
	}
	if pct <= 0 {
		pct = 100
	}
	c := math.Ceil(base * pct / 100)
	c = math.Floor(c * (1 + condDelta))
	c = formula.ClampFinite(c)
	if c < 0 {
		return 0
	}
	return c
}

// QiCost returns the action's effective qi cost against the state: the
// state's cost percentage composed with the harmony cost percentage,
// then the condition delta.
func QiCost(s *craft.State, a *craft.Action, effect formula.ConditionEffect) float64 {
	return qiCostWith(s, a, harmony.CurrentModifiers(s.HarmonyData), effect)
}

// StabilityCost returns the action's effective stability cost against
// the state.
func StabilityCost(s *craft.State, a *craft.Action, effect formula.ConditionEffect) float64 {
	return stabilityCostWith(s, a, harmony.CurrentModifiers(s.HarmonyData), effect)
}

func qiCostWith(s *craft.State, a *craft.Action, mods harmony.Modifiers, effect formula.ConditionEffect) float64 {
	return EffectiveCost(a.QiCost, s.QiCostPct*mods.QiCostPct/100, effect.QiCostDelta)
}

func stabilityCostWith(s *craft.State, a *craft.Action, mods harmony.Modifiers, effect formula.ConditionEffect) float64 {
	return EffectiveCost(a.StabilityCost, s.StabilityCostPct*mods.StabilityCostPct/100, effect.StabilityCostDelta)
}
