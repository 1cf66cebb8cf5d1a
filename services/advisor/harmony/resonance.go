// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package harmony

import "github.com/alchemancy/cauldron/services/advisor/craft"

// Per-strength persistent bonuses.
const (
	resonanceCritPerStrength    = 3
	resonanceSuccessPerStrength = 0.03
)

// Switch penalty: harmony loss and direct stability damage on a
// non-confirming category change.
const (
	resonanceSwitchHarmony   = -9
	resonanceSwitchStability = 3
)

// stepResonance advances the resonance streak.
//
// The first action locks resonance at strength 1 with no delta.
// Repeating the locked category deepens it: strength +1 and harmony
// worth 3x the new strength. A different category starts a switch: the
// first occurrence pays the switch penalty and is remembered as pending;
// a second consecutive occurrence of that same category confirms the
// switch at zero penalty, relocking resonance there at strength 1.
func stepResonance(data *craft.HarmonyData, cat craft.Category) Transition {
	var tr Transition

	switch {
	case data.Resonance == "":
		data.Resonance = cat
		data.Strength = 1
		data.Pending = ""

	case cat == data.Resonance:
		data.Strength++
		data.Pending = ""
		tr.HarmonyDelta = 3 * float64(data.Strength)

	case cat == data.Pending:
		// Second consecutive action of the new category: the switch
		// completes cleanly.
		data.Resonance = cat
		data.Strength = 1
		data.Pending = ""

	default:
		data.Pending = cat
		data.Strength--
		if data.Strength < 0 {
			data.Strength = 0
		}
		tr.HarmonyDelta = resonanceSwitchHarmony
		tr.SideEffects = SideEffects{StabilityDamage: resonanceSwitchStability}
	}

	tr.Modifiers = resonanceModifiers(data.Strength)
	tr.Recommended = resonanceRecommended(data)
	return tr
}

// resonanceModifiers grants +3 crit chance and +0.03 success bonus per
// strength point.
func resonanceModifiers(strength int) Modifiers {
	m := Defaults()
	m.CritChance = resonanceCritPerStrength * float64(strength)
	m.SuccessChance = resonanceSuccessPerStrength * float64(strength)
	return m
}

// resonanceRecommended favors confirming a pending switch, otherwise
// deepening the locked resonance.
func resonanceRecommended(data *craft.HarmonyData) []craft.Category {
	if data.Pending != "" {
		return []craft.Category{data.Pending}
	}
	if data.Resonance != "" {
		return []craft.Category{data.Resonance}
	}
	return nil
}
