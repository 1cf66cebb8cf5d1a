// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package search

import (
	"context"
	"log/slog"
	"math"

	"github.com/alchemancy/cauldron/services/advisor/craft"
	"github.com/alchemancy/cauldron/services/advisor/transition"
)

// optimismFactor pads the per-ply gain estimate so the pruning bound
// stays above any line a buffed, critting, very-positive turn could
// actually produce.
const optimismFactor = 3.0

// searchContext carries the per-invocation search state: the budget,
// the transposition table, the normalized forecast, and the cached
// condition branch sets. One is created per entry-point call and never
// shared.
type searchContext struct {
	e        *Engine
	budget   *Budget
	memo     *memoTable
	root     craft.ConditionTier
	forecast []craft.ConditionTier
	branches map[craft.ConditionTier][]ConditionBranch
	perPly   float64
}

// Lookahead runs the bounded depth-first search and returns the ranked
// root moves plus the projected rotation.
//
// Each ply consumes one forecast entry; past the window the condition
// either holds (nil model) or branches by probability. Item actions do
// not consume depth. Iterative deepening reruns the search at
// increasing depths and keeps the deepest completed ranking; running
// out of budget mid-iteration keeps the previous one.
//
// Outputs:
//   - *craft.SearchResult: Ranked recommendations; nil on error
//   - error: ErrTargetsMet, ErrNoLegalActions, a validation sentinel,
//     or the context's error when canceled before any iteration ran
func (e *Engine) Lookahead(ctx context.Context, s *craft.State, condition string, forecast []string) (res *craft.SearchResult, err error) {
	if err = e.validate(s); err != nil {
		return nil, err
	}
	if e.Config.TargetsMet(s) {
		return nil, ErrTargetsMet
	}

	tier := craft.NormalizeCondition(condition)
	budget := NewBudget(BudgetConfig{MaxNodes: e.Opts.MaxNodes, TimeLimit: e.Opts.TimeBudget()})
	ctx, span := e.tracer().StartRun(ctx, "lookahead", e.Opts)
	depthReached := 0
	defer func() { e.tracer().EndRun(span, budget, depthReached, err) }()

	sc := &searchContext{
		e:        e,
		budget:   budget,
		memo:     newMemoTable(),
		root:     tier,
		forecast: craft.NormalizeForecast(forecast, tier),
		branches: make(map[craft.ConditionTier][]ConditionBranch),
	}
	sc.perPly = e.optimisticPerPly(s, tier)

	var ranked []*candidate
	for _, depth := range e.deepeningSchedule() {
		if ctx.Err() != nil || budget.Exhausted() {
			break
		}
		_, iterSpan := e.tracer().TraceDeepening(ctx, depth)
		cands := sc.rankRoot(s, depth)
		iterSpan.End()

		if len(cands) == 0 {
			break
		}
		completed := !budget.Exhausted()
		if completed || ranked == nil {
			ranked = cands
			depthReached = depth
		}
		if !completed {
			e.tracer().TraceBudgetExhaustion(ctx, budget)
			break
		}
	}

	if len(ranked) == 0 {
		if cerr := ctx.Err(); cerr != nil {
			return nil, cerr
		}
		return nil, ErrNoLegalActions
	}
	return e.assemble(sc, s, ranked, depthReached), nil
}

// deepeningSchedule lists the depths to search, ending exactly at the
// configured maximum.
func (e *Engine) deepeningSchedule() []int {
	var depths []int
	if e.Opts.IterativeDeepening && e.Opts.MinDepth < e.Opts.Depth {
		for d := e.Opts.MinDepth; d < e.Opts.Depth; d += 2 {
			depths = append(depths, d)
		}
	}
	return append(depths, e.Opts.Depth)
}

// rankRoot evaluates the root moves to the given depth and returns them
// ranked with the survivability gate applied.
func (sc *searchContext) rankRoot(s *craft.State, depth int) []*candidate {
	effect := sc.e.effectFor(sc.root)
	moves := orderMoves(s, sc.e.Catalog, sc.e.Config, sc.root, effect, sc.e.Authority, sc.e.Opts)
	if len(moves) > sc.e.Opts.BeamWidth {
		moves = moves[:sc.e.Opts.BeamWidth]
	}

	cands := make([]*candidate, 0, len(moves))
	best := math.Inf(-1)
	for _, mv := range moves {
		next, ok := transition.Apply(s, mv.action, sc.e.Config, sc.root, effect, sc.e.Authority)
		if !ok {
			continue
		}
		value := sc.childValue(next, mv.action, depth, 0, sc.root, best)
		cands = append(cands, &candidate{action: mv.action, next: next, gains: mv.gains, score: value})
		if value > best {
			best = value
		}
	}

	rankCandidates(cands)
	applySurvivabilityGate(cands, s, sc.e.Config)
	return cands
}

// explore returns the best achievable score from s with `depth` turns
// remaining, current condition `tier`, at forecast position `ply`.
//
// Degradations all collapse to the static score: depth out, targets
// met, craft dead, budget exhausted, bound proves the subtree useless,
// or no move applies.
func (sc *searchContext) explore(s *craft.State, depth, ply int, tier craft.ConditionTier, bound float64) float64 {
	static := Score(s, sc.e.Config, sc.e.Opts)
	if depth <= 0 || sc.e.Config.TargetsMet(s) || s.Stability <= 0 {
		return static
	}

	sc.budget.RecordNode()
	if sc.budget.Exhausted() {
		return static
	}

	key := stateKey(s, sc.e.Config, sc.e.Opts, depth, tier)
	if v, ok := sc.memo.get(key); ok {
		sc.budget.RecordCacheHit()
		return v
	}

	// Even a perfect remaining line cannot beat the caller's running
	// best: give up without storing (the static is not this node's
	// true value).
	if sc.optimisticValue(s, static, depth) <= bound {
		sc.budget.RecordPruned()
		return static
	}

	effect := sc.e.effectFor(tier)
	moves := orderMoves(s, sc.e.Catalog, sc.e.Config, tier, effect, sc.e.Authority, sc.e.Opts)
	if len(moves) > sc.e.Opts.BeamWidth {
		moves = moves[:sc.e.Opts.BeamWidth]
	}

	best := math.Inf(-1)
	applied := false
	for _, mv := range moves {
		next, ok := transition.Apply(s, mv.action, sc.e.Config, tier, effect, sc.e.Authority)
		if !ok {
			continue
		}
		applied = true
		if value := sc.childValue(next, mv.action, depth, ply, tier, best); value > best {
			best = value
		}
	}
	if !applied {
		return static
	}

	sc.memo.put(key, best)
	return best
}

// childValue recurses into a successor. Items replay the same ply and
// depth (the turn has not advanced); turn actions move to the next ply,
// whose condition comes from the forecast window or, past it, from the
// weighted branch set seeded by the parent's tier.
func (sc *searchContext) childValue(next *craft.State, a *craft.Action, depth, ply int, tier craft.ConditionTier, bound float64) float64 {
	if a.IsItem {
		return sc.explore(next, depth, ply, tier, bound)
	}

	nextPly := ply + 1
	if nextPly <= len(sc.forecast) {
		return sc.explore(next, depth-1, nextPly, sc.forecast[nextPly-1], bound)
	}

	branches := sc.branchesFor(tier)
	if len(branches) == 1 {
		return sc.explore(next, depth-1, nextPly, branches[0].Tier, bound)
	}
	// Expected value over branches; no bound inside, each branch must
	// be evaluated fully for the weighting to mean anything.
	var expected float64
	for _, br := range branches {
		expected += br.Probability * sc.explore(next, depth-1, nextPly, br.Tier, math.Inf(-1))
	}
	return expected
}

// branchesFor caches the resolved branch set per seed tier, so a
// misbehaving host model is consulted (and warned about) at most once
// per tier per invocation.
func (sc *searchContext) branchesFor(tier craft.ConditionTier) []ConditionBranch {
	if br, ok := sc.branches[tier]; ok {
		return br
	}
	br := resolveBranches(sc.e.Model, sc.e.logger(), tier, sc.forecast,
		sc.e.Opts.ConditionBranchLimit, sc.e.Opts.ConditionBranchMinProbability)
	sc.branches[tier] = br
	return br
}

// optimisticValue is the pruning upper bound: the static score plus the
// padded best-case per-ply gain, plus the met bonus still on the table.
func (sc *searchContext) optimisticValue(s *craft.State, static float64, depth int) float64 {
	v := static + float64(depth)*sc.perPly
	if !sc.e.Config.TargetsMet(s) {
		v += targetMetBonus + s.Qi*metQiWeight + s.MaxStability()*metStabilityWeight
	}
	return v
}

// optimisticPerPly estimates the largest single-turn score swing any
// catalog action can produce from the root state under the best
// condition, padded by optimismFactor.
func (e *Engine) optimisticPerPly(s *craft.State, tier craft.ConditionTier) float64 {
	effect := e.effectFor(craft.TierVeryPositive)
	var best float64
	for _, a := range e.Catalog {
		g := transition.Gains(s, a, e.Config, effect)
		v := g.Completion + g.Perfection
		if g.Stability > 0 {
			v += g.Stability
		}
		if g.Harmony > 0 {
			v += g.Harmony
		}
		if v > best {
			best = v
		}
	}
	if best < 1 {
		best = 1
	}
	e.logger().Debug("per-ply optimistic gain estimated",
		slog.Float64("gain", best),
		slog.String("tier", string(tier)))
	return best * optimismFactor
}

// buildRotation projects the full plan: the chosen first move, then
// greedy one-ply picks forward until the targets are met, the craft is
// stuck or dead, or the depth cap is reached. Past the forecast window
// each turn plays the most probable branch tier.
func (sc *searchContext) buildRotation(first *candidate) ([]string, *craft.State) {
	rotation := []string{first.action.Key}
	cur := first.next
	prevTier := sc.root
	ply := 0
	if !first.action.IsItem {
		ply = 1
	}

	for len(rotation) < sc.e.Opts.Depth {
		if sc.e.Config.TargetsMet(cur) || cur.Stability <= 0 || sc.budget.Exhausted() {
			break
		}

		tier := prevTier
		if ply > 0 {
			if ply-1 < len(sc.forecast) {
				tier = sc.forecast[ply-1]
			} else {
				tier = sc.branchesFor(prevTier)[0].Tier
			}
		}

		effect := sc.e.effectFor(tier)
		moves := orderMoves(cur, sc.e.Catalog, sc.e.Config, tier, effect, sc.e.Authority, sc.e.Opts)
		if len(moves) > sc.e.Opts.BeamWidth {
			moves = moves[:sc.e.Opts.BeamWidth]
		}

		cands := make([]*candidate, 0, len(moves))
		for _, mv := range moves {
			next, ok := transition.Apply(cur, mv.action, sc.e.Config, tier, effect, sc.e.Authority)
			if !ok {
				continue
			}
			sc.budget.RecordNode()
			cands = append(cands, &candidate{
				action: mv.action,
				next:   next,
				gains:  mv.gains,
				score:  Score(next, sc.e.Config, sc.e.Opts),
			})
		}
		if len(cands) == 0 {
			break
		}
		rankCandidates(cands)
		applySurvivabilityGate(cands, cur, sc.e.Config)

		pick := cands[0]
		rotation = append(rotation, pick.action.Key)
		cur = pick.next
		if !pick.action.IsItem {
			ply++
			prevTier = tier
		}
	}

	return rotation, cur
}
