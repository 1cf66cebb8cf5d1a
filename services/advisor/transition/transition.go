// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package transition is the pure action engine: it validates whether an
// action is applicable, computes its expected gains, and applies it to
// produce a successor state.
//
// All failure is value-returning. An inapplicable action yields
// (nil, false) from Apply, never an error or panic; the worst outcome of
// bad input is a zero gain. States are never mutated: Apply clones its
// input and returns the edited clone, so search branches can share
// parents freely.
package transition

import (
	"sort"

	"github.com/alchemancy/cauldron/services/advisor/craft"
	"github.com/alchemancy/cauldron/services/advisor/formula"
	"github.com/alchemancy/cauldron/services/advisor/harmony"
)

// CanApply reports whether the action is currently applicable.
//
// The checks, in order: not on cooldown; condition gating (the action's
// required tier, normalized, must equal the current tier); the per-round
// item limit; affordability of the effective qi cost, deferred to the
// external authority when one answers; the toxicity cap (alchemy crafts
// only, on the action's net toxicity); and attemptability under
// stability: an action with a nonzero stability cost needs stability
// above 0, but an unpayable cost never rejects, it clamps in Apply.
func CanApply(s *craft.State, a *craft.Action, cfg *craft.Config, tier craft.ConditionTier, effect formula.ConditionEffect, auth Authority) bool {
	if s == nil || a == nil || cfg == nil {
		return false
	}
	if s.OnCooldown(a.Key) {
		return false
	}
	if a.RequiresCondition != "" && craft.NormalizeCondition(a.RequiresCondition) != tier {
		return false
	}
	if a.IsItem && cfg.PillsPerRound > 0 && s.PillsThisRound >= cfg.PillsPerRound {
		return false
	}

	mods := harmony.CurrentModifiers(s.HarmonyData)
	qc := qiCostWith(s, a, mods, effect)
	sc := stabilityCostWith(s, a, mods, effect)
	if allowed, ok := consultAuthority(auth, s, a, qc, sc); ok {
		if !allowed {
			return false
		}
	} else if qc > s.Qi {
		return false
	}

	if cfg.Alchemy && s.MaxToxicity > 0 {
		net := a.ToxicityCost - a.ToxicityCleanse
		if net > 0 && s.Toxicity+net > s.MaxToxicity {
			return false
		}
	}

	if a.StabilityCost > 0 && s.Stability <= 0 {
		return false
	}
	return true
}

// Apply executes the action against the state and returns the successor.
//
// Sequence: re-validate; compute gains; pay qi and stability costs;
// credit the gains; tick the timed buffs down; grant the action's buffs;
// decay the soft stability cap by 1 (turn actions without PreventDecay)
// and apply explicit cap deltas; toxicity cost and cleanse; run the
// active named buffs' per-turn and per-category effect lists scaled by
// stacks; step the harmony sub-game and apply its side effects; tick
// cooldowns down and arm the action's own; convert completion overshoot
// to bonus stacks; clamp progress to caps; record history; advance the
// step counter.
//
// Item actions skip all turn bookkeeping (buff ticks, cap decay, named
// buff effect runs, harmony step, cooldown ticks, step counter) and
// instead count against the per-round pill limit; a turn action resets
// that count.
//
// Outputs:
//   - *craft.State: The successor state, sanitized; nil on rejection
//   - bool: false when the action was not applicable
func Apply(s *craft.State, a *craft.Action, cfg *craft.Config, tier craft.ConditionTier, effect formula.ConditionEffect, auth Authority) (*craft.State, bool) {
	if !CanApply(s, a, cfg, tier, effect, auth) {
		return nil, false
	}

	mods := harmony.CurrentModifiers(s.HarmonyData)
	res := computeGains(s, a, cfg, effect)
	next := s.Clone()

	next.Qi -= qiCostWith(s, a, mods, effect)
	next.Stability -= stabilityCostWith(s, a, mods, effect)

	next.Completion += res.gains.Completion
	next.Perfection += res.gains.Perfection
	next.Stability += res.gains.Stability
	next.Qi += res.gains.Qi
	next.Toxicity += res.gains.Toxicity
	next.Harmony += res.gains.Harmony

	if !a.IsItem {
		tickBuff(&next.ControlBuff)
		tickBuff(&next.IntensityBuff)
	}
	grantBuffs(next, a)

	if !a.IsItem && !a.PreventDecay {
		next.StabilityPenalty++
	}
	if delta := a.MaxStabilityDelta + res.maxStability; delta != 0 {
		next.StabilityPenalty -= delta
		if next.StabilityPenalty < 0 {
			next.StabilityPenalty = 0
		}
	}
	if max := next.MaxStability(); next.Stability > max {
		next.Stability = max
	}

	if a.ToxicityCost != 0 {
		next.Toxicity += a.ToxicityCost
	}
	if a.ToxicityCleanse > 0 {
		next.Toxicity -= a.ToxicityCleanse
		if next.Toxicity < 0 {
			next.Toxicity = 0
		}
	}

	if !a.IsItem {
		runNamedBuffs(next, a.Category, res.vars)
	}

	if cfg.HarmonyEnabled && next.HarmonyData != nil && !a.IsItem {
		hd, tr := harmony.Step(next.HarmonyData, a.Category)
		next.HarmonyData = hd
		next.Harmony += tr.HarmonyDelta
		next.Stability -= tr.SideEffects.StabilityDamage
		next.StabilityPenalty += tr.SideEffects.MaxStabilityPenalty
		next.Qi += tr.SideEffects.QiDelta
	}

	if !a.IsItem {
		for k, v := range next.Cooldowns {
			if v > 0 {
				next.Cooldowns[k] = v - 1
			}
		}
	}
	if a.Cooldown > 0 {
		if next.Cooldowns == nil {
			next.Cooldowns = make(map[string]int)
		}
		next.Cooldowns[a.Key] = a.Cooldown
	}

	if res.overshoot > 0 && cfg.BonusTierTarget > 0 {
		guaranteed, _ := formula.BonusTiers(res.overshoot, cfg.BonusTierTarget)
		next.CompletionBonus += guaranteed
	}

	if cfg.MaxCompletion > 0 && next.Completion > cfg.MaxCompletion {
		next.Completion = cfg.MaxCompletion
	}
	if cfg.MaxPerfection > 0 && next.Perfection > cfg.MaxPerfection {
		next.Perfection = cfg.MaxPerfection
	}

	next.History = append(next.History, a.DisplayName())
	if a.IsItem {
		next.PillsThisRound++
	} else {
		next.Step++
		next.PillsThisRound = 0
	}

	next.Sanitize()
	return next, true
}

// tickBuff counts one timed buff down by a turn.
func tickBuff(b *craft.BuffTimer) {
	if b.Turns > 0 {
		b.Turns--
		if b.Turns == 0 {
			b.Multiplier = 0
		}
	}
}

// grantBuffs attaches the action's timed buff and named buff stacks.
func grantBuffs(next *craft.State, a *craft.Action) {
	if a.Buff != nil {
		t := craft.BuffTimer{Turns: a.Buff.Turns, Multiplier: a.Buff.Multiplier}
		switch a.Buff.Type {
		case craft.BuffIntensity:
			next.IntensityBuff = t
		default:
			next.ControlBuff = t
		}
	}
	if a.GrantBuff != nil && a.GrantBuff.Def != nil && a.GrantBuff.Def.Name != "" {
		if next.Buffs == nil {
			next.Buffs = make(map[string]craft.BuffInstance)
		}
		inst := next.Buffs[a.GrantBuff.Def.Name]
		inst.Def = a.GrantBuff.Def
		stacks := a.GrantBuff.Stacks
		if stacks <= 0 {
			stacks = 1
		}
		inst.Stacks += stacks
		next.Buffs[a.GrantBuff.Def.Name] = inst
	}
}

// runNamedBuffs executes every active named buff's per-turn effects and
// its effects for the applied category, each amount scaled by the stack
// count. Buff effects are deterministic; they take no crit or success
// scaling. Buffs run in name order so identical states always produce
// identical successors.
func runNamedBuffs(next *craft.State, cat craft.Category, vars formula.Vars) {
	if len(next.Buffs) == 0 {
		return
	}
	names := make([]string, 0, len(next.Buffs))
	for name := range next.Buffs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		inst := next.Buffs[name]
		if inst.Def == nil || inst.Stacks <= 0 {
			continue
		}
		scale := float64(inst.Stacks)
		for _, e := range inst.Def.EachTurn {
			applyEffectAmount(next, e.Kind, formula.Evaluate(e.Amount, vars, 0)*scale)
		}
		for _, e := range inst.Def.OnCategory[cat] {
			applyEffectAmount(next, e.Kind, formula.Evaluate(e.Amount, vars, 0)*scale)
		}
	}
}

// applyEffectAmount adds one resolved effect amount to its target field.
func applyEffectAmount(next *craft.State, kind craft.EffectKind, amount float64) {
	switch kind {
	case craft.EffectCompletion:
		next.Completion += amount
	case craft.EffectPerfection:
		next.Perfection += amount
	case craft.EffectStability:
		next.Stability += amount
	case craft.EffectQi:
		next.Qi += amount
	case craft.EffectToxicity:
		next.Toxicity += amount
	case craft.EffectMaxStability:
		next.StabilityPenalty -= amount
		if next.StabilityPenalty < 0 {
			next.StabilityPenalty = 0
		}
	case craft.EffectHarmony:
		next.Harmony += amount
	}
}
