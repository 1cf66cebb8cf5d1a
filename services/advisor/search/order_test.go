// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package search

import (
	"testing"

	"github.com/alchemancy/cauldron/services/advisor/craft"
	"github.com/alchemancy/cauldron/services/advisor/formula"
)

func orderConfig() *craft.Config {
	cfg := &craft.Config{
		TargetCompletion: 100,
		TargetPerfection: 100,
		Control:          100,
		Intensity:        100,
	}
	cfg.Normalize()
	return cfg
}

func orderState() *craft.State {
	return &craft.State{
		Qi:                  200,
		Stability:           50,
		InitialMaxStability: 60,
		QiCostPct:           100,
		StabilityCostPct:    100,
	}
}

func orderCatalog() []*craft.Action {
	return []*craft.Action{
		{
			Key:             "strike",
			Category:        craft.CategoryFusion,
			QiCost:          18,
			StabilityCost:   10,
			CompletionScale: &formula.Scaling{Value: 30},
		},
		{
			Key:             "polish",
			Category:        craft.CategoryRefine,
			QiCost:          15,
			StabilityCost:   10,
			PerfectionScale: &formula.Scaling{Value: 25},
		},
		{
			Key:           "steady_hand",
			Category:      craft.CategoryStabilize,
			QiCost:        12,
			StabilityGain: &formula.Scaling{Value: 30},
		},
		{
			Key:      "focus_chant",
			Category: craft.CategorySupport,
			QiCost:   10,
			Buff:     &craft.BuffGrant{Type: craft.BuffControl, Turns: 3, Multiplier: 2},
		},
	}
}

func moveKeys(moves []orderedMove) []string {
	keys := make([]string, len(moves))
	for i, m := range moves {
		keys[i] = m.action.Key
	}
	return keys
}

func TestOrderMoves_GainLeadsAtNormalStability(t *testing.T) {
	cfg := orderConfig()
	s := orderState()
	opts := DefaultConfig()

	moves := orderMoves(s, orderCatalog(), cfg, craft.TierNeutral, formula.NeutralEffect(), nil, opts)

	got := moveKeys(moves)
	// focus_chant grants an absent control buff (priority 1); the rest
	// order by unmet-target gain: strike 30 over polish 25 over the
	// stabilize's zero.
	want := []string{"focus_chant", "strike", "polish", "steady_hand"}
	if len(got) != len(want) {
		t.Fatalf("ordered %d moves %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("moves[%d] = %q, want %q (full order %v)", i, got[i], want[i], got)
		}
	}
}

func TestOrderMoves_StabilizeFirstWhenCritical(t *testing.T) {
	cfg := orderConfig()
	s := orderState()
	s.Stability = 10 // under the default threshold of 15
	opts := DefaultConfig()

	moves := orderMoves(s, orderCatalog(), cfg, craft.TierNeutral, formula.NeutralEffect(), nil, opts)
	if len(moves) == 0 {
		t.Fatal("no moves ordered")
	}
	if moves[0].action.Key != "steady_hand" {
		t.Errorf("moves[0] = %q, want steady_hand (order %v)", moves[0].action.Key, moveKeys(moves))
	}
}

func TestOrderMoves_RecipeFloorRaisesCriticalLine(t *testing.T) {
	cfg := orderConfig()
	cfg.MinStability = 40
	s := orderState()
	s.Stability = 35 // safe by default, critical under the recipe floor
	opts := DefaultConfig()

	moves := orderMoves(s, orderCatalog(), cfg, craft.TierNeutral, formula.NeutralEffect(), nil, opts)
	if len(moves) == 0 {
		t.Fatal("no moves ordered")
	}
	if moves[0].action.Key != "steady_hand" {
		t.Errorf("moves[0] = %q, want steady_hand (order %v)", moves[0].action.Key, moveKeys(moves))
	}
}

func TestOrderMoves_ConsumerLeadsWhileBuffLive(t *testing.T) {
	cfg := orderConfig()
	s := orderState()
	s.ControlBuff = craft.BuffTimer{Turns: 2, Multiplier: 2}
	opts := DefaultConfig()

	moves := orderMoves(s, orderCatalog(), cfg, craft.TierNeutral, formula.NeutralEffect(), nil, opts)
	if len(moves) == 0 {
		t.Fatal("no moves ordered")
	}
	// strike consumes the live control buff (priority 2) and outranks
	// focus_chant, which no longer grants anything new.
	if moves[0].action.Key != "strike" {
		t.Errorf("moves[0] = %q, want strike (order %v)", moves[0].action.Key, moveKeys(moves))
	}
	for _, m := range moves {
		if m.action.Key == "focus_chant" && m.priority != 0 {
			t.Errorf("focus_chant priority = %d while its buff is live, want 0", m.priority)
		}
	}
}

func TestOrderMoves_GranterDemotedOnceTargetMet(t *testing.T) {
	cfg := orderConfig()
	s := orderState()
	s.Completion = 100 // control buff's target already met
	opts := DefaultConfig()

	moves := orderMoves(s, orderCatalog(), cfg, craft.TierNeutral, formula.NeutralEffect(), nil, opts)
	for _, m := range moves {
		if m.action.Key == "focus_chant" && m.priority != 0 {
			t.Errorf("focus_chant priority = %d after completion met, want 0", m.priority)
		}
	}
	// With completion met, polish's perfection gain is the only metric
	// that counts, so it leads.
	if len(moves) == 0 || moves[0].action.Key != "polish" {
		t.Errorf("moves[0] = %v, want polish", moveKeys(moves))
	}
}

func TestOrderMoves_IntensityGranterTracksPerfection(t *testing.T) {
	cfg := orderConfig()
	s := orderState()
	opts := DefaultConfig()

	catalog := append(orderCatalog(), &craft.Action{
		Key:      "tempering_hymn",
		Category: craft.CategorySupport,
		QiCost:   10,
		Buff:     &craft.BuffGrant{Type: craft.BuffIntensity, Turns: 3, Multiplier: 2},
	})

	moves := orderMoves(s, catalog, cfg, craft.TierNeutral, formula.NeutralEffect(), nil, opts)
	var granted []string
	for _, m := range moves {
		if m.priority == priorityGrantBuff {
			granted = append(granted, m.action.Key)
		}
	}
	// Both granters matter while both targets are open; within the
	// priority they tie on zero gain and fall back to key order.
	if len(granted) != 2 || granted[0] != "focus_chant" || granted[1] != "tempering_hymn" {
		t.Errorf("granters = %v, want [focus_chant tempering_hymn]", granted)
	}

	s.Perfection = 100
	moves = orderMoves(s, catalog, cfg, craft.TierNeutral, formula.NeutralEffect(), nil, opts)
	for _, m := range moves {
		if m.action.Key == "tempering_hymn" && m.priority != 0 {
			t.Errorf("tempering_hymn priority = %d after perfection met, want 0", m.priority)
		}
	}
}

func TestOrderMoves_FiltersInapplicable(t *testing.T) {
	cfg := orderConfig()
	s := orderState()
	s.Cooldowns = map[string]int{"strike": 2}
	opts := DefaultConfig()

	moves := orderMoves(s, orderCatalog(), cfg, craft.TierNeutral, formula.NeutralEffect(), nil, opts)
	for _, m := range moves {
		if m.action.Key == "strike" {
			t.Error("strike ordered while on cooldown")
		}
	}

	s = orderState()
	s.Qi = 11 // only focus_chant is affordable
	moves = orderMoves(s, orderCatalog(), cfg, craft.TierNeutral, formula.NeutralEffect(), nil, opts)
	if got := moveKeys(moves); len(got) != 1 || got[0] != "focus_chant" {
		t.Errorf("affordable moves = %v, want [focus_chant]", got)
	}
}

func TestOrderMoves_TieBreaksByKey(t *testing.T) {
	cfg := orderConfig()
	s := orderState()
	opts := DefaultConfig()

	catalog := []*craft.Action{
		{Key: "zeta", Category: craft.CategoryFusion, QiCost: 10, CompletionScale: &formula.Scaling{Value: 20}},
		{Key: "alpha", Category: craft.CategoryFusion, QiCost: 10, CompletionScale: &formula.Scaling{Value: 20}},
	}

	for i := 0; i < 10; i++ {
		moves := orderMoves(s, catalog, cfg, craft.TierNeutral, formula.NeutralEffect(), nil, opts)
		if got := moveKeys(moves); len(got) != 2 || got[0] != "alpha" || got[1] != "zeta" {
			t.Fatalf("tie order = %v, want [alpha zeta]", got)
		}
	}
}
