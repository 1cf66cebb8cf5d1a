// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package search

import (
	"sort"

	"github.com/alchemancy/cauldron/services/advisor/craft"
	"github.com/alchemancy/cauldron/services/advisor/formula"
	"github.com/alchemancy/cauldron/services/advisor/transition"
)

// orderedMove is one applicable action with its ordering metadata.
type orderedMove struct {
	action   *craft.Action
	gains    craft.ExpectedGains
	priority int
	metric   float64
}

// Move ordering priorities. Higher explores first; within a priority,
// moves order by raw gain toward the unmet target, then by key so the
// order is total and the search deterministic.
const (
	priorityStabilize   = 3
	priorityConsumeBuff = 2
	priorityGrantBuff   = 1
)

// orderMoves filters the catalog to applicable actions and sorts them
// for exploration: stabilize first when stability is critically low,
// then buff consumers while their buff is live, then buff granters while
// the buff is absent and its target unmet, then everything else by gain.
func orderMoves(s *craft.State, catalog []*craft.Action, cfg *craft.Config, tier craft.ConditionTier, effect formula.ConditionEffect, auth transition.Authority, opts Config) []orderedMove {
	moves := make([]orderedMove, 0, len(catalog))
	for _, a := range catalog {
		if !transition.CanApply(s, a, cfg, tier, effect, auth) {
			continue
		}
		gains := transition.Gains(s, a, cfg, effect)
		moves = append(moves, orderedMove{
			action:   a,
			gains:    gains,
			priority: movePriority(s, a, cfg, opts),
			metric:   gainTowardUnmet(gains, s, cfg),
		})
	}

	sort.SliceStable(moves, func(i, j int) bool {
		if moves[i].priority != moves[j].priority {
			return moves[i].priority > moves[j].priority
		}
		if moves[i].metric != moves[j].metric {
			return moves[i].metric > moves[j].metric
		}
		return moves[i].action.Key < moves[j].action.Key
	})
	return moves
}

func movePriority(s *craft.State, a *craft.Action, cfg *craft.Config, opts Config) int {
	switch {
	case a.Category == craft.CategoryStabilize && s.Stability < lowStabilityThreshold(cfg, opts):
		return priorityStabilize
	case consumesActiveBuff(s, a):
		return priorityConsumeBuff
	case grantsNeededBuff(s, a, cfg):
		return priorityGrantBuff
	}
	return 0
}

// consumesActiveBuff reports whether the action cashes in a live timed
// buff: fusion rides the control buff, refine the intensity buff.
func consumesActiveBuff(s *craft.State, a *craft.Action) bool {
	switch a.Category {
	case craft.CategoryFusion:
		return s.ControlBuff.Active()
	case craft.CategoryRefine:
		return s.IntensityBuff.Active()
	}
	return false
}

// grantsNeededBuff reports whether the action grants a timed buff that
// is currently absent and whose target still needs progress.
func grantsNeededBuff(s *craft.State, a *craft.Action, cfg *craft.Config) bool {
	if a.Buff == nil {
		return false
	}
	switch a.Buff.Type {
	case craft.BuffIntensity:
		return !s.IntensityBuff.Active() && !cfg.PerfectionMet(s)
	default:
		return !s.ControlBuff.Active() && !cfg.CompletionMet(s)
	}
}

// gainTowardUnmet sums the expected progress on axes the state has not
// met yet. Open-ended crafts count all progress.
func gainTowardUnmet(gains craft.ExpectedGains, s *craft.State, cfg *craft.Config) float64 {
	if cfg.TargetCompletion <= 0 && cfg.TargetPerfection <= 0 {
		return gains.Completion + gains.Perfection
	}
	var m float64
	if !cfg.CompletionMet(s) {
		m += gains.Completion
	}
	if !cfg.PerfectionMet(s) {
		m += gains.Perfection
	}
	return m
}
