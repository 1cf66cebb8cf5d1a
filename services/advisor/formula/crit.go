// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package formula

import "math"

// CritEV returns the expected-value multiplier for a crit roll.
//
// Both arguments are percentages: critChance 50 means a 50% roll,
// critMultiplier 150 means a crit deals 1.5x. Chance above 100 converts
// to bonus multiplier at a 1:3 ratio, so overcapped crit chance is never
// wasted.
//
//	CritEV(50, 150)  = 1.25
//	CritEV(100, 200) = 2.0
//	CritEV(150, 150) = 3.0
//
// Inputs:
//   - critChance: Crit chance in percent (may exceed 100)
//   - critMultiplier: Crit damage multiplier in percent
//
// Outputs:
//   - float64: Deterministic average outcome multiplier
func CritEV(critChance, critMultiplier float64) float64 {
	excess := math.Max(0, critChance-100)
	bonus := excess * 3
	effectiveMult := critMultiplier + bonus
	chance := math.Min(critChance, 100) / 100
	if chance < 0 {
		chance = 0
	}
	return ClampFinite((1 - chance) + chance*(effectiveMult/100))
}

// BonusTiers converts overflow progress into bonus stacks.
//
// Starting from threshold target, each earned stack consumes the current
// threshold and grows the next one by a factor of 1.3 (floored), so
// stacking gets progressively harder. The leftover below the final
// threshold becomes a fractional chance at one more stack.
//
//	BonusTiers(100, 100) = (1, 0)
//	BonusTiers(230, 100) = (2, 0)
//	BonusTiers(399, 100) = (3, 0)
//
// Inputs:
//   - value: Accumulated overflow progress
//   - target: First tier threshold; non-positive targets yield (0, 0)
//
// Outputs:
//   - guaranteed: Number of fully earned stacks
//   - bonusChance: Fraction of the next threshold reached, in [0, 1)
func BonusTiers(value, target float64) (guaranteed int, bonusChance float64) {
	if target <= 0 || value <= 0 {
		return 0, 0
	}
	threshold := target
	for threshold > 0 && value >= threshold {
		value -= threshold
		guaranteed++
		threshold = math.Floor(threshold * 1.3)
	}
	if threshold <= 0 {
		return guaranteed, 0
	}
	return guaranteed, value / threshold
}
