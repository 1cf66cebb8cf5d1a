// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package harmony

import (
	"sort"
	"strings"

	"github.com/alchemancy/cauldron/services/advisor/craft"
)

// Reaction side-channel keys. The charge combo stores its earned bundle
// under these keys in HarmonyData.Reaction; chargeModifiers reads them
// back.
const (
	reactionControlMult      = "control_mult"
	reactionIntensityMult    = "intensity_mult"
	reactionCritBonus        = "crit_bonus"
	reactionSuccessBonus     = "success_bonus"
	reactionQiCostPct        = "qi_cost_pct"
	reactionStabilityCostPct = "stability_cost_pct"
)

// chargeCombo is one known three-charge combination and the persistent
// bundle it grants.
type chargeCombo struct {
	name   string
	triple [3]craft.Category
	bundle Modifiers
}

// chargeCombos is the fixed combo table. Triples are sorted; the lookup
// key is the sorted charge list. Anything outside this table fizzles.
var chargeCombos = []chargeCombo{
	{
		name:   "crucible surge",
		triple: [3]craft.Category{craft.CategoryFusion, craft.CategoryFusion, craft.CategoryRefine},
		bundle: Modifiers{Control: 1.3, Intensity: 1, QiCostPct: 100, StabilityCostPct: 100},
	},
	{
		name:   "tempered flow",
		triple: [3]craft.Category{craft.CategoryFusion, craft.CategoryRefine, craft.CategoryRefine},
		bundle: Modifiers{Control: 1, Intensity: 1.3, QiCostPct: 100, StabilityCostPct: 100},
	},
	{
		name:   "triune balance",
		triple: [3]craft.Category{craft.CategoryFusion, craft.CategoryRefine, craft.CategoryStabilize},
		bundle: Modifiers{Control: 1.15, Intensity: 1.15, QiCostPct: 100, StabilityCostPct: 100},
	},
	{
		name:   "still water",
		triple: [3]craft.Category{craft.CategoryRefine, craft.CategoryStabilize, craft.CategorySupport},
		bundle: Modifiers{Control: 1, Intensity: 1, QiCostPct: 100, StabilityCostPct: 75},
	},
	{
		name:   "banked embers",
		triple: [3]craft.Category{craft.CategoryFusion, craft.CategoryStabilize, craft.CategorySupport},
		bundle: Modifiers{Control: 1, Intensity: 1, QiCostPct: 75, StabilityCostPct: 100},
	},
	{
		name:   "resonant polish",
		triple: [3]craft.Category{craft.CategoryRefine, craft.CategoryRefine, craft.CategorySupport},
		bundle: Modifiers{Control: 1, Intensity: 1, CritChance: 10, QiCostPct: 100, StabilityCostPct: 100},
	},
}

// fizzleBundle is the persistent penalty for an unmatched third charge.
var fizzleBundle = Modifiers{Control: 0.75, Intensity: 1, QiCostPct: 100, StabilityCostPct: 100}

// stepCharge appends the category to the charge list. The third charge
// resolves: a known triple grants its bundle and +20 harmony, anything
// else fizzles for -20 harmony and a lingering control penalty. The
// charge list always resets after the third charge.
func stepCharge(data *craft.HarmonyData, cat craft.Category) Transition {
	data.Charges = append(data.Charges, cat)
	sortCategories(data.Charges)

	if len(data.Charges) < 3 {
		return Transition{
			Modifiers:   chargeModifiers(data),
			Recommended: chargeRecommended(data.Charges),
		}
	}

	delta := -20.0
	bundle := fizzleBundle
	if combo := matchCombo(data.Charges); combo != nil {
		delta = 20
		bundle = combo.bundle
	}
	writeReaction(data, bundle)
	data.Charges = nil

	return Transition{
		HarmonyDelta: delta,
		Modifiers:    bundle,
		Recommended:  chargeRecommended(nil),
	}
}

// chargeModifiers reads the persistent bundle out of the reaction side
// channel. An empty channel means no combo has resolved yet.
func chargeModifiers(data *craft.HarmonyData) Modifiers {
	if len(data.Reaction) == 0 {
		return Defaults()
	}
	return Modifiers{
		Control:          data.Reaction[reactionControlMult],
		Intensity:        data.Reaction[reactionIntensityMult],
		CritChance:       data.Reaction[reactionCritBonus],
		SuccessChance:    data.Reaction[reactionSuccessBonus],
		QiCostPct:        data.Reaction[reactionQiCostPct],
		StabilityCostPct: data.Reaction[reactionStabilityCostPct],
	}
}

func writeReaction(data *craft.HarmonyData, m Modifiers) {
	data.Reaction = map[string]float64{
		reactionControlMult:      m.Control,
		reactionIntensityMult:    m.Intensity,
		reactionCritBonus:        m.CritChance,
		reactionSuccessBonus:     m.SuccessChance,
		reactionQiCostPct:        m.QiCostPct,
		reactionStabilityCostPct: m.StabilityCostPct,
	}
}

// matchCombo returns the combo whose sorted triple equals the charge
// list, or nil.
func matchCombo(charges []craft.Category) *chargeCombo {
	if len(charges) != 3 {
		return nil
	}
	for i := range chargeCombos {
		c := &chargeCombos[i]
		if c.triple[0] == charges[0] && c.triple[1] == charges[1] && c.triple[2] == charges[2] {
			return c
		}
	}
	return nil
}

// chargeRecommended lists the categories that could still complete a
// known combo given the charges held so far.
func chargeRecommended(charges []craft.Category) []craft.Category {
	seen := map[craft.Category]bool{}
	var out []craft.Category
	for i := range chargeCombos {
		missing, ok := comboRemainder(&chargeCombos[i], charges)
		if !ok {
			continue
		}
		for _, cat := range missing {
			if !seen[cat] {
				seen[cat] = true
				out = append(out, cat)
			}
		}
	}
	sortCategories(out)
	return out
}

// comboRemainder reports whether charges is a sub-multiset of the combo
// triple, and if so which categories remain.
func comboRemainder(combo *chargeCombo, charges []craft.Category) ([]craft.Category, bool) {
	remaining := []craft.Category{combo.triple[0], combo.triple[1], combo.triple[2]}
	for _, held := range charges {
		idx := -1
		for i, r := range remaining {
			if r == held {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, false
		}
		remaining = append(remaining[:idx], remaining[idx+1:]...)
	}
	return remaining, true
}

func sortCategories(cats []craft.Category) {
	sort.Slice(cats, func(i, j int) bool {
		return strings.Compare(string(cats[i]), string(cats[j])) < 0
	})
}
