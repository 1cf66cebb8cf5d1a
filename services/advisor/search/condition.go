// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package search

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/alchemancy/cauldron/services/advisor/craft"
)

// ConditionBranch is one weighted possibility for the next turn's
// condition tier.
type ConditionBranch struct {
	Tier        craft.ConditionTier
	Probability float64
}

// ConditionModel projects the condition one turn past the visible
// forecast. Implementations may be stateful on the host side but must
// be deterministic for identical inputs, or the search's determinism
// guarantee is lost.
type ConditionModel interface {
	// Next returns the weighted next-condition branches given the
	// current tier and the original forecast window.
	Next(current craft.ConditionTier, forecast []craft.ConditionTier) ([]ConditionBranch, error)
}

// ConditionModelFunc adapts a plain function to ConditionModel.
type ConditionModelFunc func(current craft.ConditionTier, forecast []craft.ConditionTier) ([]ConditionBranch, error)

// Next implements ConditionModel.
func (f ConditionModelFunc) Next(current craft.ConditionTier, forecast []craft.ConditionTier) ([]ConditionBranch, error) {
	return f(current, forecast)
}

// tierLadder orders the tiers from worst to best for the drift model.
var tierLadder = []craft.ConditionTier{
	craft.TierVeryNegative,
	craft.TierNegative,
	craft.TierNeutral,
	craft.TierPositive,
	craft.TierVeryPositive,
}

const neutralTierIndex = 2

// harmonicDrift is the built-in fallback model: tiers mean-revert
// toward neutral, with a slight skew toward the harmonious side when
// already neutral. It never fails.
func harmonicDrift(current craft.ConditionTier) []ConditionBranch {
	idx := tierIndex(current)

	if idx == neutralTierIndex {
		return []ConditionBranch{
			{Tier: tierLadder[idx], Probability: 0.6},
			{Tier: tierLadder[idx+1], Probability: 0.25},
			{Tier: tierLadder[idx-1], Probability: 0.15},
		}
	}

	toward := idx + 1
	away := idx - 1
	if idx > neutralTierIndex {
		toward = idx - 1
		away = idx + 1
	}

	branches := []ConditionBranch{
		{Tier: tierLadder[idx], Probability: 0.5},
		{Tier: tierLadder[toward], Probability: 0.35},
	}
	if away >= 0 && away < len(tierLadder) {
		branches = append(branches, ConditionBranch{Tier: tierLadder[away], Probability: 0.15})
	} else {
		// At a ladder edge the away step does not exist; its mass
		// stays on the current tier.
		branches[0].Probability += 0.15
	}
	return branches
}

func tierIndex(tier craft.ConditionTier) int {
	for i, t := range tierLadder {
		if t == tier {
			return i
		}
	}
	// Unknown labels drift as if neutral.
	return neutralTierIndex
}

// callModel invokes the injected model with a recover guard so a
// panicking host hook degrades to the built-in drift instead of
// killing the search.
func callModel(model ConditionModel, current craft.ConditionTier, forecast []craft.ConditionTier) (branches []ConditionBranch, err error) {
	defer func() {
		if r := recover(); r != nil {
			branches = nil
			err = fmt.Errorf("condition model panicked: %v", r)
		}
	}()
	return model.Next(current, forecast)
}

// resolveBranches produces the branch set explored past the forecast
// window: top `limit` branches by probability, each at least `minProb`,
// renormalized to sum 1. A nil model holds the current tier
// deterministically; a failing model falls back to harmonicDrift.
func resolveBranches(model ConditionModel, logger *slog.Logger, current craft.ConditionTier, forecast []craft.ConditionTier, limit int, minProb float64) []ConditionBranch {
	if model == nil {
		return []ConditionBranch{{Tier: current, Probability: 1}}
	}

	branches, err := callModel(model, current, forecast)
	if err != nil || len(branches) == 0 {
		if err != nil && logger != nil {
			logger.Warn("condition model failed, using drift fallback",
				slog.String("current", string(current)),
				slog.String("error", err.Error()))
		}
		branches = harmonicDrift(current)
	}

	kept := make([]ConditionBranch, 0, len(branches))
	for _, br := range branches {
		if br.Probability > 0 {
			kept = append(kept, br)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Probability != kept[j].Probability {
			return kept[i].Probability > kept[j].Probability
		}
		return kept[i].Tier < kept[j].Tier
	})

	if limit > 0 && len(kept) > limit {
		kept = kept[:limit]
	}

	filtered := kept[:0]
	for _, br := range kept {
		if br.Probability >= minProb {
			filtered = append(filtered, br)
		}
	}

	if len(filtered) == 0 {
		return []ConditionBranch{{Tier: current, Probability: 1}}
	}

	var total float64
	for _, br := range filtered {
		total += br.Probability
	}
	for i := range filtered {
		filtered[i].Probability /= total
	}
	return filtered
}
