// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package harmony

import "github.com/alchemancy/cauldron/services/advisor/craft"

// Per-stack bonus to both stat multipliers.
const patternStackBonus = 0.02

// stepPattern consumes one slot of the pattern block. A matching
// category removes its slot, earns a stack, and grants +10 harmony;
// emptying the block completes it and deals a fresh one. A category the
// block does not hold breaks the pattern: stacks halve, -20 harmony, and
// the craft takes a max-stability penalty and a qi drain.
func stepPattern(data *craft.HarmonyData, cat craft.Category) Transition {
	idx := -1
	for i, c := range data.Block {
		if c == cat {
			idx = i
			break
		}
	}

	var tr Transition
	if idx >= 0 {
		data.Block = append(data.Block[:idx], data.Block[idx+1:]...)
		data.Stacks++
		tr.HarmonyDelta = 10
		if len(data.Block) == 0 {
			data.BlocksDone++
			data.Block = craft.PatternBlockSet()
		}
	} else {
		data.Stacks /= 2
		tr.HarmonyDelta = -20
		tr.SideEffects = SideEffects{MaxStabilityPenalty: 1, QiDelta: -25}
	}

	tr.Modifiers = patternModifiers(data.Stacks)
	tr.Recommended = patternRecommended(data.Block)
	return tr
}

// patternModifiers grants both stats 2% per earned stack.
func patternModifiers(stacks int) Modifiers {
	m := Defaults()
	m.Control = 1 + patternStackBonus*float64(stacks)
	m.Intensity = m.Control
	return m
}

// patternRecommended lists the distinct categories still in the block.
func patternRecommended(block []craft.Category) []craft.Category {
	seen := map[craft.Category]bool{}
	var out []craft.Category
	for _, c := range block {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
