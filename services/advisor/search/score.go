// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package search

import (
	"math"

	"github.com/alchemancy/cauldron/services/advisor/craft"
)

// Scoring weights. The layer order is fixed; tuning happens here, never
// by reordering.
const (
	targetMetBonus            = 10000.0
	metQiWeight               = 2.0
	metStabilityWeight        = 5.0
	buffTurnWeight            = 3.0
	resourceQiWeight          = 0.05
	resourceStabilityWeight   = 0.3
	overshootPenaltyWeight    = 0.5
	lowStabilityPenaltyWeight = 2.0
	toxicityDangerFraction    = 0.8
	toxicityDangerPenalty     = 200.0
	harmonyWeight             = 1.0
)

// Score rates a state. Pure: same state, config, and options always
// produce the same score.
//
// Layers, evaluated in this order:
//  1. progress toward targets (capped at each target)
//  2. target-met bonus plus leftover qi/stability credit
//  3. buff-turns credit weighted by remaining need (unmet only)
//  4. linear qi/stability capacity credit (unmet only)
//  5. linear overshoot penalty
//  6. quadratic low-stability penalty (skipped once met)
//  7. toxicity danger band penalty (alchemy only)
//
// Harmony credit rides on top when the overlay is enabled.
func Score(s *craft.State, cfg *craft.Config, opts Config) float64 {
	var score float64

	// (1) Progress. Open-ended crafts (both targets zero) score the
	// weaker of the two totals so the search balances them.
	if cfg.TargetCompletion <= 0 && cfg.TargetPerfection <= 0 {
		score += math.Min(s.Completion, s.Perfection)
	} else {
		score += math.Min(s.Completion, cfg.TargetCompletion)
		score += math.Min(s.Perfection, cfg.TargetPerfection)
	}

	met := cfg.TargetsMet(s)

	// (2) Done is done: a met craft outranks any unmet one, and leftover
	// resources break ties between winning lines.
	if met {
		score += targetMetBonus
		score += s.Qi * metQiWeight
		score += s.Stability * metStabilityWeight
	}

	if !met {
		// (3) Active buff turns are future progress; their worth decays
		// as the matching target closes.
		if s.ControlBuff.Active() && !cfg.CompletionMet(s) {
			need := remainingNeed(s.Completion, cfg.TargetCompletion)
			score += float64(s.ControlBuff.Turns) * s.ControlBuff.Multiplier * need * buffTurnWeight
		}
		if s.IntensityBuff.Active() && !cfg.PerfectionMet(s) {
			need := remainingNeed(s.Perfection, cfg.TargetPerfection)
			score += float64(s.IntensityBuff.Turns) * s.IntensityBuff.Multiplier * need * buffTurnWeight
		}

		// (4) Remaining resources enable future turns.
		score += s.Qi * resourceQiWeight
		score += s.Stability * resourceStabilityWeight
	}

	// (5) Progress past a target is wasted effort.
	if cfg.TargetCompletion > 0 && s.Completion > cfg.TargetCompletion {
		score -= (s.Completion - cfg.TargetCompletion) * overshootPenaltyWeight
	}
	if cfg.TargetPerfection > 0 && s.Perfection > cfg.TargetPerfection {
		score -= (s.Perfection - cfg.TargetPerfection) * overshootPenaltyWeight
	}

	// (6) Quadratic so the penalty dominates near failure but barely
	// registers just under the threshold.
	if !met {
		threshold := lowStabilityThreshold(cfg, opts)
		if s.Stability < threshold {
			deficit := threshold - s.Stability
			score -= deficit * deficit * lowStabilityPenaltyWeight
		}
	}

	// (7) Toxicity danger band.
	if cfg.Alchemy && s.MaxToxicity > 0 && s.Toxicity >= s.MaxToxicity*toxicityDangerFraction {
		score -= toxicityDangerPenalty
	}

	if cfg.HarmonyEnabled {
		score += s.Harmony * harmonyWeight
	}

	return score
}

// remainingNeed is the unmet fraction of one progress axis, in [0, 1].
func remainingNeed(progress, target float64) float64 {
	if target <= 0 {
		return 1
	}
	need := 1 - progress/target
	if need < 0 {
		return 0
	}
	if need > 1 {
		return 1
	}
	return need
}

// lowStabilityThreshold picks the survivability threshold: the recipe's
// own floor when set, otherwise the search default.
func lowStabilityThreshold(cfg *craft.Config, opts Config) float64 {
	if cfg.MinStability > 0 {
		return cfg.MinStability
	}
	return opts.LowStability
}

// candidate pairs an action with its simulated outcome during ranking.
type candidate struct {
	action *craft.Action
	next   *craft.State
	gains  craft.ExpectedGains
	score  float64
}

// applySurvivabilityGate reorders ranked candidates so a stabilize
// action never outranks a non-stabilize alternative that both keeps the
// craft alive and advances an unmet target. Candidates must already be
// sorted best first; relative order is otherwise preserved.
func applySurvivabilityGate(cands []*candidate, base *craft.State, cfg *craft.Config) {
	if len(cands) < 2 || cands[0].action.Category != craft.CategoryStabilize {
		return
	}
	for idx := 1; idx < len(cands); idx++ {
		c := cands[idx]
		if c.action.Category == craft.CategoryStabilize {
			continue
		}
		if c.next.Stability > 0 && advancesUnmet(c.gains, base, cfg) {
			copy(cands[1:idx+1], cands[0:idx])
			cands[0] = c
			return
		}
	}
}

// advancesUnmet reports whether the gains push a target the base state
// has not met yet.
func advancesUnmet(gains craft.ExpectedGains, base *craft.State, cfg *craft.Config) bool {
	if gains.Completion > 0 && !cfg.CompletionMet(base) {
		return true
	}
	if gains.Perfection > 0 && !cfg.PerfectionMet(base) {
		return true
	}
	// Open-ended crafts treat any progress as advancing.
	if cfg.TargetCompletion <= 0 && cfg.TargetPerfection <= 0 {
		return gains.Completion > 0 || gains.Perfection > 0
	}
	return false
}
