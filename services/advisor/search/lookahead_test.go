// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/alchemancy/cauldron/services/advisor/craft"
	"github.com/alchemancy/cauldron/services/advisor/formula"
	"github.com/alchemancy/cauldron/services/advisor/transition"
)

func lookaheadOpts() Config {
	return Config{
		Depth:              14,
		MinDepth:           6,
		IterativeDeepening: true,
		TimeBudgetMs:       5000,
		MaxNodes:           200000,
		BeamWidth:          8,
	}
}

// replayRotation re-applies a rotation of action keys under a steady
// neutral condition, failing if any step is inapplicable or drops
// stability to zero.
func replayRotation(t *testing.T, catalog []*craft.Action, cfg *craft.Config, start *craft.State, rotation []string) *craft.State {
	t.Helper()
	byKey := make(map[string]*craft.Action, len(catalog))
	for _, a := range catalog {
		byKey[a.Key] = a
	}

	cur := start
	for i, key := range rotation {
		a := byKey[key]
		if a == nil {
			t.Fatalf("rotation[%d] references unknown action %q", i, key)
		}
		next, ok := transition.Apply(cur, a, cfg, craft.TierNeutral, formula.NeutralEffect(), nil)
		if !ok {
			t.Fatalf("rotation[%d] = %q is not applicable (qi %v, stability %v)", i, key, cur.Qi, cur.Stability)
		}
		if next.Stability <= 0 {
			t.Fatalf("rotation[%d] = %q drops stability to %v", i, key, next.Stability)
		}
		cur = next
	}
	return cur
}

func TestLookahead_BeginnerCraftCompletes(t *testing.T) {
	catalog := beginnerCatalog()
	cfg := beginnerConfig()
	e := New(catalog, cfg, lookaheadOpts())

	res, err := e.Lookahead(context.Background(), beginnerState(), "neutral", nil)
	if err != nil {
		t.Fatalf("Lookahead returned error: %v", err)
	}

	if res.Metrics.Exhausted {
		t.Fatalf("budget exhausted on a three-action craft: %+v", res.Metrics)
	}
	if len(res.Rotation) == 0 || len(res.Rotation) > e.Opts.Depth {
		t.Fatalf("rotation length = %d, want 1..%d", len(res.Rotation), e.Opts.Depth)
	}

	// Full stability is the wrong moment to stabilize.
	if res.Rotation[0] == "steady_hand" {
		t.Errorf("rotation opens with steady_hand at full stability: %v", res.Rotation)
	}

	final := replayRotation(t, catalog, cfg, beginnerState(), res.Rotation)
	if !cfg.TargetsMet(final) {
		t.Errorf("replayed rotation %v ends unmet: completion %v, perfection %v",
			res.Rotation, final.Completion, final.Perfection)
	}
	if !cfg.TargetsMet(res.FinalState) {
		t.Errorf("projected final state unmet: completion %v, perfection %v",
			res.FinalState.Completion, res.FinalState.Perfection)
	}
}

func TestLookahead_Deterministic(t *testing.T) {
	run := func() *craft.SearchResult {
		e := New(beginnerCatalog(), beginnerConfig(), lookaheadOpts())
		res, err := e.Lookahead(context.Background(), beginnerState(), "neutral", nil)
		if err != nil {
			t.Fatalf("Lookahead returned error: %v", err)
		}
		return res
	}

	first := run()
	second := run()

	if first.Best.Action.Key != second.Best.Action.Key {
		t.Errorf("best differs between runs: %q vs %q", first.Best.Action.Key, second.Best.Action.Key)
	}
	if first.Best.Score != second.Best.Score {
		t.Errorf("best score differs between runs: %v vs %v", first.Best.Score, second.Best.Score)
	}
	if len(first.Rotation) != len(second.Rotation) {
		t.Fatalf("rotation lengths differ: %v vs %v", first.Rotation, second.Rotation)
	}
	for i := range first.Rotation {
		if first.Rotation[i] != second.Rotation[i] {
			t.Errorf("rotation[%d] differs: %q vs %q", i, first.Rotation[i], second.Rotation[i])
		}
	}
}

func TestLookahead_ReusesTranspositions(t *testing.T) {
	e := New(beginnerCatalog(), beginnerConfig(), lookaheadOpts())

	res, err := e.Lookahead(context.Background(), beginnerState(), "neutral", nil)
	if err != nil {
		t.Fatalf("Lookahead returned error: %v", err)
	}
	// strike-then-polish and polish-then-strike converge on the same
	// state, so the table must see hits.
	if res.Metrics.CacheHits == 0 {
		t.Errorf("cache hits = 0 over %d nodes, want > 0", res.Metrics.NodesExplored)
	}
}

func TestLookahead_StabilizesWhenCritical(t *testing.T) {
	e := New(beginnerCatalog(), beginnerConfig(), lookaheadOpts())
	s := beginnerState()
	s.Qi = 100
	s.Stability = 10

	res, err := e.Lookahead(context.Background(), s, "neutral", nil)
	if err != nil {
		t.Fatalf("Lookahead returned error: %v", err)
	}
	if res.Best.Action.Key != "steady_hand" {
		t.Errorf("best = %q, want steady_hand", res.Best.Action.Key)
	}
	if res.Best.Rationale != "stabilize before the craft fails" {
		t.Errorf("rationale = %q", res.Best.Rationale)
	}
}

func TestLookahead_PrefersBuffSetupOverGreedyLine(t *testing.T) {
	catalog := []*craft.Action{
		{
			Key:             "strike",
			Category:        craft.CategoryFusion,
			QiCost:          18,
			StabilityCost:   10,
			CompletionScale: &formula.Scaling{Value: 30},
		},
		{
			Key:      "focus_chant",
			Category: craft.CategorySupport,
			QiCost:   10,
			Buff:     &craft.BuffGrant{Type: craft.BuffControl, Turns: 3, Multiplier: 2},
		},
	}
	cfg := &craft.Config{TargetCompletion: 100, Control: 100, Intensity: 100}
	cfg.Normalize()
	s := &craft.State{
		Qi:                  200,
		Stability:           60,
		InitialMaxStability: 60,
		QiCostPct:           100,
		StabilityCostPct:    100,
	}

	opts := lookaheadOpts()
	opts.Depth = 6
	opts.MinDepth = 6
	e := New(catalog, cfg, opts)

	// One ply out the chant looks like a wasted turn.
	greedy, err := e.Greedy(context.Background(), s.Clone(), "neutral", nil)
	if err != nil {
		t.Fatalf("Greedy returned error: %v", err)
	}
	if greedy.Best.Action.Key != "strike" {
		t.Errorf("greedy best = %q, want strike", greedy.Best.Action.Key)
	}

	// Six plies out the doubled strikes pay for it.
	deep, err := e.Lookahead(context.Background(), s.Clone(), "neutral", nil)
	if err != nil {
		t.Fatalf("Lookahead returned error: %v", err)
	}
	if deep.Best.Action.Key != "focus_chant" {
		t.Errorf("lookahead best = %q, want focus_chant (rotation %v)", deep.Best.Action.Key, deep.Rotation)
	}
}

func TestLookahead_ForecastUnlocksGatedAction(t *testing.T) {
	catalog := append(beginnerCatalog(), &craft.Action{
		Key:               "meridian_burst",
		Category:          craft.CategoryFusion,
		QiCost:            20,
		StabilityCost:     10,
		CompletionScale:   &formula.Scaling{Value: 60},
		RequiresCondition: "brilliant",
	})
	cfg := &craft.Config{TargetCompletion: 100, Control: 100, Intensity: 100}
	cfg.Normalize()

	opts := lookaheadOpts()
	opts.Depth = 8
	opts.MinDepth = 8
	e := New(catalog, cfg, opts)

	s := beginnerState()
	res, err := e.Lookahead(context.Background(), s, "neutral", []string{"brilliant", "neutral", "neutral"})
	if err != nil {
		t.Fatalf("Lookahead returned error: %v", err)
	}

	if len(res.Rotation) < 2 {
		t.Fatalf("rotation too short: %v", res.Rotation)
	}
	if res.Rotation[0] == "meridian_burst" {
		t.Errorf("rotation opens with the gated action before its condition: %v", res.Rotation)
	}
	if res.Rotation[1] != "meridian_burst" {
		t.Errorf("rotation[1] = %q, want meridian_burst (rotation %v)", res.Rotation[1], res.Rotation)
	}
}

func TestLookahead_ItemDoesNotConsumeTurn(t *testing.T) {
	catalog := []*craft.Action{
		{
			Key:             "strike",
			Category:        craft.CategoryFusion,
			QiCost:          18,
			StabilityCost:   10,
			CompletionScale: &formula.Scaling{Value: 30},
		},
		{
			Key:      "qi_pill",
			Category: craft.CategorySupport,
			IsItem:   true,
			Effects: []craft.Effect{
				{Kind: craft.EffectQi, Amount: &formula.Scaling{Value: 40}},
			},
		},
	}
	cfg := &craft.Config{TargetCompletion: 60, Control: 100, Intensity: 100}
	cfg.Normalize()
	s := &craft.State{
		Qi:                  10, // strike costs 18; only the pill opens the craft
		Stability:           60,
		InitialMaxStability: 60,
		QiCostPct:           100,
		StabilityCostPct:    100,
	}

	opts := lookaheadOpts()
	opts.Depth = 6
	opts.MinDepth = 6
	e := New(catalog, cfg, opts)

	res, err := e.Lookahead(context.Background(), s, "neutral", nil)
	if err != nil {
		t.Fatalf("Lookahead returned error: %v", err)
	}

	if res.Best.Action.Key != "qi_pill" {
		t.Fatalf("best = %q, want qi_pill", res.Best.Action.Key)
	}
	if len(res.Rotation) < 2 || res.Rotation[0] != "qi_pill" || res.Rotation[1] != "strike" {
		t.Fatalf("rotation = %v, want [qi_pill strike ...]", res.Rotation)
	}
	if !cfg.TargetsMet(res.FinalState) {
		t.Errorf("projected final state unmet: completion %v", res.FinalState.Completion)
	}
}

func TestLookahead_BudgetExhaustionDegrades(t *testing.T) {
	catalog := make([]*craft.Action, 10)
	for i := range catalog {
		catalog[i] = &craft.Action{
			Key:             fmt.Sprintf("op_%c", 'a'+i),
			Category:        craft.CategoryFusion,
			QiCost:          1,
			StabilityCost:   1,
			CompletionScale: &formula.Scaling{Value: float64(10 + 7*i)},
		}
	}
	cfg := &craft.Config{TargetCompletion: 1e9, TargetPerfection: 1e9, Control: 100, Intensity: 100}
	cfg.Normalize()
	s := &craft.State{
		Qi:                  1e6,
		Stability:           1e6,
		InitialMaxStability: 1e6,
		QiCostPct:           100,
		StabilityCostPct:    100,
	}

	opts := lookaheadOpts()
	opts.Depth = 96
	opts.MaxNodes = 1000
	e := New(catalog, cfg, opts)

	res, err := e.Lookahead(context.Background(), s, "neutral", nil)
	if err != nil {
		t.Fatalf("exhaustion surfaced as an error: %v", err)
	}
	if res.Best == nil {
		t.Fatal("no best recommendation despite a legal catalog")
	}
	if !res.Metrics.Exhausted || res.Metrics.ExhaustedBy != "nodes" {
		t.Errorf("metrics = %+v, want exhausted by nodes", res.Metrics)
	}
	if res.Metrics.NodesExplored < 1000 {
		t.Errorf("nodes explored = %d, want >= 1000", res.Metrics.NodesExplored)
	}
	if res.Metrics.DepthReached < 1 || res.Metrics.DepthReached > opts.Depth {
		t.Errorf("depth reached = %d, want 1..%d", res.Metrics.DepthReached, opts.Depth)
	}
}

func TestLookahead_TargetsMet(t *testing.T) {
	e := New(beginnerCatalog(), beginnerConfig(), lookaheadOpts())
	s := beginnerState()
	s.Completion = 100
	s.Perfection = 100

	if _, err := e.Lookahead(context.Background(), s, "neutral", nil); !errors.Is(err, ErrTargetsMet) {
		t.Errorf("err = %v, want ErrTargetsMet", err)
	}
}

func TestLookahead_NoLegalActions(t *testing.T) {
	e := New(beginnerCatalog(), beginnerConfig(), lookaheadOpts())
	s := beginnerState()
	s.Qi = 5

	if _, err := e.Lookahead(context.Background(), s, "neutral", nil); !errors.Is(err, ErrNoLegalActions) {
		t.Errorf("err = %v, want ErrNoLegalActions", err)
	}
}

func TestLookahead_CanceledContext(t *testing.T) {
	e := New(beginnerCatalog(), beginnerConfig(), lookaheadOpts())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := e.Lookahead(ctx, beginnerState(), "neutral", nil); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestDeepeningSchedule(t *testing.T) {
	tests := []struct {
		name string
		opts Config
		want []int
	}{
		{
			name: "even span",
			opts: Config{Depth: 14, MinDepth: 6, IterativeDeepening: true},
			want: []int{6, 8, 10, 12, 14},
		},
		{
			name: "odd gap still ends at max",
			opts: Config{Depth: 7, MinDepth: 6, IterativeDeepening: true},
			want: []int{6, 7},
		},
		{
			name: "min equals max",
			opts: Config{Depth: 6, MinDepth: 6, IterativeDeepening: true},
			want: []int{6},
		},
		{
			name: "deepening disabled",
			opts: Config{Depth: 14, MinDepth: 6},
			want: []int{14},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Engine{Opts: tt.opts}
			got := e.deepeningSchedule()
			if len(got) != len(tt.want) {
				t.Fatalf("schedule = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("schedule[%d] = %d, want %d", i, got[i], tt.want[i])
				}
			}
		})
	}
}
