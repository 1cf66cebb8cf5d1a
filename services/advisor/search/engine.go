// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package search ranks craft actions by simulating them forward.
//
// Two entry points share one scoring model: Greedy ranks every
// applicable action by its immediate outcome, Lookahead runs a bounded
// depth-first search with beam ordering, alpha pruning, a
// per-invocation transposition table, and iterative deepening.
//
// The engine is single threaded per invocation and owns no shared
// mutable state; callers parallelize by running independent invocations.
// Budget exhaustion degrades the result (best ranking so far, flagged
// in Metrics) and is never an error.
package search

import (
	"context"
	"log/slog"
	"sort"

	"github.com/alchemancy/cauldron/services/advisor/craft"
	"github.com/alchemancy/cauldron/services/advisor/formula"
	"github.com/alchemancy/cauldron/services/advisor/transition"
)

// Engine evaluates actions for one craft. Build it with New; the
// catalog and config are read-only and may be shared across engines.
//
// Model and Authority are optional collaborator hooks. A nil Model
// holds the condition steady past the forecast window; a nil Authority
// leaves affordability checks local. Both hooks fail soft.
type Engine struct {
	Catalog   []*craft.Action
	Config    *craft.Config
	Opts      Config
	Model     ConditionModel
	Authority transition.Authority
	Tracer    *Tracer
	Logger    *slog.Logger
}

// New builds an engine with normalized options and default
// observability wiring.
func New(catalog []*craft.Action, cfg *craft.Config, opts Config) *Engine {
	opts.Normalize()
	logger := slog.Default()
	return &Engine{
		Catalog: catalog,
		Config:  cfg,
		Opts:    opts,
		Tracer:  NewTracer(logger, opts.Tracing),
		Logger:  logger,
	}
}

func (e *Engine) validate(s *craft.State) error {
	if s == nil {
		return ErrNilState
	}
	if e.Config == nil {
		return ErrNilConfig
	}
	if len(e.Catalog) == 0 {
		return ErrEmptyCatalog
	}
	return nil
}

func (e *Engine) effectFor(tier craft.ConditionTier) formula.ConditionEffect {
	return formula.EffectsFor(string(tier), e.Config.ConditionProfile, e.Config.ConditionEffects)
}

var disabledTracer = &Tracer{}

func (e *Engine) tracer() *Tracer {
	if e.Tracer != nil {
		return e.Tracer
	}
	return disabledTracer
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// Greedy ranks every applicable action by the score of its immediate
// successor state. No recursion; the rotation is still projected
// forward so the caller gets a full plan.
//
// Outputs:
//   - *craft.SearchResult: Ranked recommendations; nil on error
//   - error: ErrTargetsMet when there is nothing left to do,
//     ErrNoLegalActions when the craft is stuck, or a validation
//     sentinel
func (e *Engine) Greedy(ctx context.Context, s *craft.State, condition string, forecast []string) (res *craft.SearchResult, err error) {
	if err = e.validate(s); err != nil {
		return nil, err
	}
	if e.Config.TargetsMet(s) {
		return nil, ErrTargetsMet
	}

	tier := craft.NormalizeCondition(condition)
	budget := NewBudget(BudgetConfig{MaxNodes: e.Opts.MaxNodes, TimeLimit: e.Opts.TimeBudget()})
	ctx, span := e.tracer().StartRun(ctx, "greedy", e.Opts)
	defer func() { e.tracer().EndRun(span, budget, 1, err) }()

	sc := &searchContext{
		e:        e,
		budget:   budget,
		memo:     newMemoTable(),
		root:     tier,
		forecast: craft.NormalizeForecast(forecast, tier),
		branches: make(map[craft.ConditionTier][]ConditionBranch),
	}

	effect := e.effectFor(tier)
	moves := orderMoves(s, e.Catalog, e.Config, tier, effect, e.Authority, e.Opts)
	cands := make([]*candidate, 0, len(moves))
	for _, mv := range moves {
		next, ok := transition.Apply(s, mv.action, e.Config, tier, effect, e.Authority)
		if !ok {
			continue
		}
		budget.RecordNode()
		cands = append(cands, &candidate{
			action: mv.action,
			next:   next,
			gains:  mv.gains,
			score:  Score(next, e.Config, e.Opts),
		})
	}
	if len(cands) == 0 {
		return nil, ErrNoLegalActions
	}

	rankCandidates(cands)
	applySurvivabilityGate(cands, s, e.Config)
	return e.assemble(sc, s, cands, 1), nil
}

// rankCandidates sorts best first, breaking score ties by key so equal
// inputs always rank identically.
func rankCandidates(cands []*candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		return cands[i].action.Key < cands[j].action.Key
	})
}

// assemble converts a ranked candidate list into the result value
// object: recommendations with normalized quality, the projected
// rotation, and the budget metrics.
func (e *Engine) assemble(sc *searchContext, base *craft.State, cands []*candidate, depthReached int) *craft.SearchResult {
	minScore, maxScore := cands[0].score, cands[0].score
	for _, c := range cands[1:] {
		if c.score < minScore {
			minScore = c.score
		}
		if c.score > maxScore {
			maxScore = c.score
		}
	}

	recs := make([]*craft.Recommendation, len(cands))
	for i, c := range cands {
		quality := 100.0
		if maxScore > minScore {
			quality = (c.score - minScore) / (maxScore - minScore) * 100
		}
		recs[i] = &craft.Recommendation{
			Action:       c.action,
			Gains:        c.gains,
			Score:        c.score,
			Rationale:    e.rationale(base, c),
			Quality:      quality,
			ConsumesBuff: consumesActiveBuff(base, c.action),
		}
	}

	rotation, final := sc.buildRotation(cands[0])
	if len(rotation) > 1 {
		recs[0].FollowUp = e.actionByKey(rotation[1])
	}

	exhaustedBy := sc.budget.ExhaustedBy()
	return &craft.SearchResult{
		Best:         recs[0],
		Alternatives: recs[1:],
		Rotation:     rotation,
		FinalState:   final,
		Metrics: craft.Metrics{
			NodesExplored: sc.budget.NodesExplored(),
			CacheHits:     sc.budget.CacheHits(),
			ElapsedMs:     sc.budget.Elapsed().Milliseconds(),
			DepthReached:  depthReached,
			Pruned:        sc.budget.Pruned(),
			Exhausted:     exhaustedBy != "",
			ExhaustedBy:   exhaustedBy,
		},
	}
}

// rationale explains a recommendation in one short clause.
func (e *Engine) rationale(base *craft.State, c *candidate) string {
	switch {
	case e.Config.TargetsMet(c.next):
		return "finishes the craft"
	case c.action.Category == craft.CategoryStabilize && base.Stability < lowStabilityThreshold(e.Config, e.Opts):
		return "stabilize before the craft fails"
	case c.action.Category == craft.CategoryStabilize:
		return "rebuilds stability for the turns ahead"
	case consumesActiveBuff(base, c.action):
		if c.action.Category == craft.CategoryFusion {
			return "spends the active control buff on completion"
		}
		return "spends the active intensity buff on perfection"
	case grantsNeededBuff(base, c.action, e.Config):
		return "sets up a buff for the coming turns"
	case c.gains.Completion > 0 && !e.Config.CompletionMet(base):
		return "advances completion toward its target"
	case c.gains.Perfection > 0 && !e.Config.PerfectionMet(base):
		return "advances perfection toward its target"
	case c.action.IsItem:
		return "item use, costs no turn"
	default:
		return "best value available this turn"
	}
}

func (e *Engine) actionByKey(key string) *craft.Action {
	for _, a := range e.Catalog {
		if a.Key == key {
			return a
		}
	}
	return nil
}
