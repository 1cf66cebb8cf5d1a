// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package adapter

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/alchemancy/cauldron/services/advisor/craft"
	"github.com/alchemancy/cauldron/services/advisor/formula"
)

// The parse functions walk the payload field by field instead of
// unmarshaling into the craft structs directly. gjson coerces
// stringified numbers for free, unknown host fields are skipped
// without ceremony, and absent optional sections yield their defaults
// rather than decode errors. Nothing here rejects input; strictness
// lives in Validate.

func parseState(v gjson.Result) *craft.State {
	s := &craft.State{
		Qi:                  v.Get("qi").Float(),
		Stability:           v.Get("stability").Float(),
		InitialMaxStability: v.Get("initial_max_stability").Float(),
		StabilityPenalty:    v.Get("stability_penalty").Float(),
		Completion:          v.Get("completion").Float(),
		Perfection:          v.Get("perfection").Float(),
		CritChance:          v.Get("crit_chance").Float(),
		CritMultiplier:      v.Get("crit_multiplier").Float(),
		SuccessBonus:        v.Get("success_bonus").Float(),
		QiCostPct:           v.Get("qi_cost_pct").Float(),
		StabilityCostPct:    v.Get("stability_cost_pct").Float(),
		ControlBuff:         parseBuffTimer(v.Get("control_buff")),
		IntensityBuff:       parseBuffTimer(v.Get("intensity_buff")),
		Toxicity:            v.Get("toxicity").Float(),
		MaxToxicity:         v.Get("max_toxicity").Float(),
		Harmony:             v.Get("harmony").Float(),
		HarmonyData:         parseHarmonyData(v.Get("harmony_data")),
		Step:                int(v.Get("step").Int()),
		CompletionBonus:     int(v.Get("completion_bonus").Int()),
		PillsThisRound:      int(v.Get("pills_this_round").Int()),
	}
	if cd := v.Get("cooldowns"); cd.IsObject() {
		s.Cooldowns = make(map[string]int)
		cd.ForEach(func(key, turns gjson.Result) bool {
			s.Cooldowns[key.String()] = int(turns.Int())
			return true
		})
	}
	if bf := v.Get("buffs"); bf.IsObject() {
		s.Buffs = make(map[string]craft.BuffInstance)
		bf.ForEach(func(name, inst gjson.Result) bool {
			def := parseBuffDef(inst.Get("def"))
			if def != nil && def.Name == "" {
				// Hosts key buffs by name and often omit it inside
				// the definition.
				def.Name = name.String()
			}
			s.Buffs[name.String()] = craft.BuffInstance{
				Stacks: int(inst.Get("stacks").Int()),
				Def:    def,
			}
			return true
		})
	}
	if hist := v.Get("history"); hist.IsArray() {
		hist.ForEach(func(_, name gjson.Result) bool {
			s.History = append(s.History, name.String())
			return true
		})
	}
	return s
}

func parseBuffTimer(v gjson.Result) craft.BuffTimer {
	return craft.BuffTimer{
		Turns:      int(v.Get("turns").Int()),
		Multiplier: v.Get("multiplier").Float(),
	}
}

func parseHarmonyData(v gjson.Result) *craft.HarmonyData {
	if !v.IsObject() {
		return nil
	}
	h := &craft.HarmonyData{
		Variant:     craft.HarmonyVariant(strings.ToLower(v.Get("variant").String())),
		Heat:        int(v.Get("heat").Int()),
		Charges:     parseCategories(v.Get("charges")),
		Block:       parseCategories(v.Get("block")),
		Stacks:      int(v.Get("stacks").Int()),
		BlocksDone:  int(v.Get("blocks_done").Int()),
		Resonance:   parseCategory(v.Get("resonance")),
		Strength:    int(v.Get("strength").Int()),
		Pending:     parseCategory(v.Get("pending")),
		Recommended: parseCategories(v.Get("recommended")),
	}
	if re := v.Get("reaction"); re.IsObject() {
		h.Reaction = make(map[string]float64)
		re.ForEach(func(key, val gjson.Result) bool {
			h.Reaction[key.String()] = val.Float()
			return true
		})
	}
	return h
}

func parseConfig(v gjson.Result) *craft.Config {
	cfg := &craft.Config{
		TargetCompletion:  v.Get("target_completion").Float(),
		TargetPerfection:  v.Get("target_perfection").Float(),
		MaxCompletion:     v.Get("max_completion").Float(),
		MaxPerfection:     v.Get("max_perfection").Float(),
		Control:           v.Get("control").Float(),
		Intensity:         v.Get("intensity").Float(),
		ControlBonusPct:   v.Get("control_bonus_pct").Float(),
		IntensityBonusPct: v.Get("intensity_bonus_pct").Float(),
		MinStability:      v.Get("min_stability").Float(),
		ConditionProfile:  formula.Profile(strings.ToLower(v.Get("condition_profile").String())),
		HarmonyEnabled:    toBool(v.Get("harmony_enabled")),
		HarmonyVariant:    craft.HarmonyVariant(strings.ToLower(v.Get("harmony_variant").String())),
		HarmonyTargetMult: v.Get("harmony_target_mult").Float(),
		Sublime:           toBool(v.Get("sublime")),
		Mastery:           parseMastery(v.Get("mastery")),
		PillsPerRound:     int(v.Get("pills_per_round").Int()),
		Alchemy:           toBool(v.Get("alchemy")),
		BonusTierTarget:   v.Get("bonus_tier_target").Float(),
	}
	if ce := v.Get("condition_effects"); ce.IsObject() {
		cfg.ConditionEffects = make(map[string]formula.ConditionEffect, 5)
		ce.ForEach(func(key, val gjson.Result) bool {
			// Tier keys fold onto the canonical labels so flavor
			// spellings hit the lookup; absent stat multipliers
			// default to the identity, not zero.
			tier := string(craft.NormalizeCondition(key.String()))
			cfg.ConditionEffects[tier] = formula.ConditionEffect{
				ControlMult:        floatOr(val.Get("control_mult"), 1),
				IntensityMult:      floatOr(val.Get("intensity_mult"), 1),
				QiCostDelta:        val.Get("qi_cost_delta").Float(),
				StabilityCostDelta: val.Get("stability_cost_delta").Float(),
				SuccessBonus:       val.Get("success_bonus").Float(),
			}
			return true
		})
	}
	return cfg
}

func parseCatalog(v gjson.Result) []*craft.Action {
	var out []*craft.Action
	v.ForEach(func(_, a gjson.Result) bool {
		out = append(out, parseAction(a))
		return true
	})
	return out
}

func parseAction(v gjson.Result) *craft.Action {
	a := &craft.Action{
		Key:               v.Get("key").String(),
		Name:              v.Get("name").String(),
		Category:          parseCategory(v.Get("category")),
		QiCost:            v.Get("qi_cost").Float(),
		StabilityCost:     v.Get("stability_cost").Float(),
		ToxicityCost:      v.Get("toxicity_cost").Float(),
		SuccessChance:     v.Get("success_chance").Float(),
		CompletionScale:   parseScaling(v.Get("completion_scale")),
		PerfectionScale:   parseScaling(v.Get("perfection_scale")),
		StabilityGain:     parseScaling(v.Get("stability_gain")),
		Effects:           parseEffects(v.Get("effects")),
		RequiresCondition: v.Get("requires_condition").String(),
		Cooldown:          int(v.Get("cooldown").Int()),
		Mastery:           parseMastery(v.Get("mastery")),
		IsItem:            toBool(v.Get("is_item")),
		PreventDecay:      toBool(v.Get("prevent_decay")),
		MaxStabilityDelta: v.Get("max_stability_delta").Float(),
		ToxicityCleanse:   v.Get("toxicity_cleanse").Float(),
	}
	if b := v.Get("buff"); b.IsObject() {
		a.Buff = &craft.BuffGrant{
			Type:       craft.BuffType(strings.ToLower(b.Get("type").String())),
			Turns:      int(b.Get("turns").Int()),
			Multiplier: b.Get("multiplier").Float(),
		}
	}
	if g := v.Get("grant_buff"); g.IsObject() {
		a.GrantBuff = &craft.NamedBuffGrant{
			Def:    parseBuffDef(g.Get("def")),
			Stacks: intOr(g.Get("stacks"), 1),
		}
	}
	return a
}

// parseScaling decodes a scaling-expression tree, recursing into the
// additive and cap sub-trees.
func parseScaling(v gjson.Result) *formula.Scaling {
	if !v.IsObject() {
		return nil
	}
	sc := &formula.Scaling{
		Value:      v.Get("value").Float(),
		Stat:       v.Get("stat").String(),
		Variable:   v.Get("variable").String(),
		Equation:   v.Get("equation").String(),
		UpgradeKey: v.Get("upgrade_key").String(),
	}
	if c := v.Get("custom"); c.IsObject() {
		sc.Custom = &formula.CustomScaling{
			Variable:   c.Get("variable").String(),
			Multiplier: c.Get("multiplier").Float(),
		}
	}
	sc.Additive = parseScaling(v.Get("additive"))
	sc.Max = parseScaling(v.Get("max"))
	return sc
}

func parseEffects(v gjson.Result) []craft.Effect {
	if !v.IsArray() {
		return nil
	}
	var out []craft.Effect
	v.ForEach(func(_, e gjson.Result) bool {
		out = append(out, craft.Effect{
			Kind:   craft.EffectKind(strings.ToLower(e.Get("kind").String())),
			Amount: parseScaling(e.Get("amount")),
		})
		return true
	})
	return out
}

func parseBuffDef(v gjson.Result) *craft.BuffDef {
	if !v.IsObject() {
		return nil
	}
	def := &craft.BuffDef{
		Name:     v.Get("name").String(),
		EachTurn: parseEffects(v.Get("each_turn")),
	}
	if oc := v.Get("on_category"); oc.IsObject() {
		def.OnCategory = make(map[craft.Category][]craft.Effect)
		oc.ForEach(func(key, effects gjson.Result) bool {
			cat := craft.Category(strings.ToLower(strings.TrimSpace(key.String())))
			def.OnCategory[cat] = parseEffects(effects)
			return true
		})
	}
	return def
}

func parseMastery(v gjson.Result) []craft.MasteryUpgrade {
	if !v.IsArray() {
		return nil
	}
	var out []craft.MasteryUpgrade
	v.ForEach(func(_, m gjson.Result) bool {
		up := craft.MasteryUpgrade{
			UpgradeKey:     m.Get("upgrade_key").String(),
			Change:         m.Get("change").Float(),
			Multiplicative: toBool(m.Get("multiplicative")),
		}
		if el := m.Get("eligibility"); el.IsObject() {
			up.Eligibility = &craft.Eligibility{
				Metric:      strings.ToLower(el.Get("metric").String()),
				MinFraction: el.Get("min_fraction").Float(),
			}
		}
		out = append(out, up)
		return true
	})
	return out
}

func parseCategory(v gjson.Result) craft.Category {
	return craft.Category(strings.ToLower(strings.TrimSpace(v.String())))
}

func parseCategories(v gjson.Result) []craft.Category {
	if !v.IsArray() {
		return nil
	}
	var out []craft.Category
	v.ForEach(func(_, c gjson.Result) bool {
		out = append(out, parseCategory(c))
		return true
	})
	return out
}

func parseForecast(v gjson.Result) []string {
	if !v.IsArray() {
		return nil
	}
	var out []string
	v.ForEach(func(_, label gjson.Result) bool {
		if len(out) == craft.ForecastWindow {
			return false
		}
		out = append(out, label.String())
		return true
	})
	return out
}

// floatOr returns the numeric value of v, or def when the field is
// absent entirely.
func floatOr(v gjson.Result, def float64) float64 {
	if !v.Exists() {
		return def
	}
	return v.Float()
}

func intOr(v gjson.Result, def int) int {
	if !v.Exists() {
		return def
	}
	return int(v.Int())
}

// toBool accepts the boolean spellings hosts emit: true, 1, "1",
// "true".
func toBool(v gjson.Result) bool {
	switch v.Type {
	case gjson.True:
		return true
	case gjson.Number:
		return v.Float() != 0
	case gjson.String:
		b, err := strconv.ParseBool(strings.TrimSpace(v.String()))
		return err == nil && b
	}
	return false
}
