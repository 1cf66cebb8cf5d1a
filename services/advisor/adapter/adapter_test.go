// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package adapter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alchemancy/cauldron/services/advisor/craft"
	"github.com/alchemancy/cauldron/services/advisor/formula"
)

// Well-formed payload sections the tests override one at a time.
const (
	stateOK   = `{"qi": 194, "stability": 60, "initial_max_stability": 70}`
	configOK  = `{"target_completion": 100, "target_perfection": 100, "control": 100, "intensity": 100}`
	catalogOK = `[{"key": "strike", "category": "fusion", "qi_cost": 18, "stability_cost": 10, "completion_scale": {"value": 30}}]`
)

func payload(state, config, catalog string) []byte {
	return []byte(`{"state": ` + state + `, "config": ` + config + `, "catalog": ` + catalog + `}`)
}

// TestDecode_CompletePayload verifies a full host export decodes into a
// normalized snapshot.
func TestDecode_CompletePayload(t *testing.T) {
	raw := []byte(`{
		"ui_version": "3.2.1",
		"state": {
			"qi": 194,
			"stability": 60,
			"initial_max_stability": 70,
			"crit_chance": 5,
			"crit_multiplier": 150,
			"hud": {"blink": true}
		},
		"config": {
			"target_completion": 100,
			"target_perfection": 100,
			"control": 100,
			"intensity": 100,
			"min_stability": 20
		},
		"catalog": [
			{"key": "strike", "name": "Cauldron Strike", "category": "fusion",
			 "qi_cost": 18, "stability_cost": 10, "completion_scale": {"value": 30}},
			{"key": "polish", "category": "refine",
			 "qi_cost": 15, "stability_cost": 10, "perfection_scale": {"value": 25}},
			{"key": "meridian_burst", "category": "fusion", "qi_cost": 20,
			 "completion_scale": {"value": 60}, "requires_condition": "brilliant"}
		],
		"condition": "neutral",
		"forecast": ["positive", "neutral", "negative"]
	}`)

	snap, err := Decode(raw)
	require.NoError(t, err)
	require.NotNil(t, snap)

	assert.Equal(t, 194.0, snap.State.Qi)
	assert.Equal(t, 60.0, snap.State.Stability)
	assert.Equal(t, 70.0, snap.State.InitialMaxStability)
	assert.Equal(t, 5.0, snap.State.CritChance)
	assert.Equal(t, 100.0, snap.Config.TargetCompletion)
	assert.Equal(t, 20.0, snap.Config.MinStability)

	require.Len(t, snap.Catalog, 3)
	assert.Equal(t, "strike", snap.Catalog[0].Key)
	assert.Equal(t, "Cauldron Strike", snap.Catalog[0].Name)
	assert.Equal(t, craft.CategoryFusion, snap.Catalog[0].Category)
	assert.Equal(t, 30.0, snap.Catalog[0].CompletionScale.Value)
	assert.Equal(t, "brilliant", snap.Catalog[2].RequiresCondition)

	assert.Equal(t, "neutral", snap.Condition)
	assert.Equal(t, []string{"positive", "neutral", "negative"}, snap.Forecast)
	assert.Equal(t, craft.TierNeutral, snap.Tier())
}

// TestDecode_AppliesDefaults verifies the normalization pass fills the
// documented defaults after validation.
func TestDecode_AppliesDefaults(t *testing.T) {
	snap, err := Decode(payload(stateOK, configOK, catalogOK))
	require.NoError(t, err)

	assert.Equal(t, 100.0, snap.State.QiCostPct, "zero qi cost pct should normalize to 100")
	assert.Equal(t, 100.0, snap.State.StabilityCostPct)
	assert.Equal(t, 1, snap.Config.PillsPerRound)
	assert.Equal(t, 1.0, snap.Config.HarmonyTargetMult)
	assert.Equal(t, 100.0, snap.Config.BonusTierTarget)
}

// TestDecode_TolerantCoercions verifies host payload noise decodes
// cleanly: stringified numbers, numeric and string booleans, mixed-case
// labels.
func TestDecode_TolerantCoercions(t *testing.T) {
	raw := []byte(`{
		"ui_skin": "jade",
		"state": {"qi": "194", "stability": 60, "initial_max_stability": 70, "free_slots": [1, 2]},
		"config": {"target_completion": "100", "control": 100, "intensity": 100,
		           "alchemy": "true", "sublime": 1},
		"catalog": [
			{"key": "strike", "category": " Fusion ", "qi_cost": "18",
			 "completion_scale": {"value": "30"}},
			{"key": "qi_pill", "category": "support", "is_item": 1,
			 "effects": [{"kind": "Qi", "amount": {"value": 40}}]}
		],
		"condition": "Brilliant"
	}`)

	snap, err := Decode(raw)
	require.NoError(t, err)

	assert.Equal(t, 194.0, snap.State.Qi)
	assert.Equal(t, 100.0, snap.Config.TargetCompletion)
	assert.True(t, snap.Config.Alchemy)
	assert.True(t, snap.Config.Sublime)
	assert.Equal(t, craft.CategoryFusion, snap.Catalog[0].Category)
	assert.Equal(t, 18.0, snap.Catalog[0].QiCost)
	assert.Equal(t, 30.0, snap.Catalog[0].CompletionScale.Value)
	assert.True(t, snap.Catalog[1].IsItem)
	require.Len(t, snap.Catalog[1].Effects, 1)
	assert.Equal(t, craft.EffectQi, snap.Catalog[1].Effects[0].Kind)
	assert.Equal(t, craft.TierVeryPositive, snap.Tier())
}

// TestDecode_RejectsBadPayloads verifies syntactic failures return
// ErrInvalidPayload and no snapshot.
func TestDecode_RejectsBadPayloads(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"truncated json", `{"state": `},
		{"top level array", `[1, 2, 3]`},
		{"state not an object", `{"state": 42, "config": ` + configOK + `, "catalog": ` + catalogOK + `}`},
		{"missing config", `{"state": ` + stateOK + `, "catalog": ` + catalogOK + `}`},
		{"catalog not an array", `{"state": ` + stateOK + `, "config": ` + configOK + `, "catalog": {"a": 1}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := Decode([]byte(tt.raw))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidPayload)
			assert.Nil(t, snap, "payload errors must never yield a snapshot")
		})
	}
}

// TestDecode_RejectsInvalidSnapshots verifies semantic failures return
// ErrInvalidSnapshot and no snapshot.
func TestDecode_RejectsInvalidSnapshots(t *testing.T) {
	tests := []struct {
		name    string
		raw     []byte
		wantMsg string
	}{
		{
			name:    "empty catalog",
			raw:     payload(stateOK, configOK, `[]`),
			wantMsg: "Catalog",
		},
		{
			name:    "duplicate action keys",
			raw:     payload(stateOK, configOK, `[{"key": "strike", "category": "fusion"}, {"key": "strike", "category": "refine"}]`),
			wantMsg: "duplicate action key",
		},
		{
			name:    "unknown category",
			raw:     payload(stateOK, configOK, `[{"key": "strike", "category": "brew"}]`),
			wantMsg: "Category",
		},
		{
			name:    "missing action key",
			raw:     payload(stateOK, configOK, `[{"category": "fusion"}]`),
			wantMsg: "Key",
		},
		{
			name:    "negative qi",
			raw:     payload(`{"qi": -5, "stability": 60, "initial_max_stability": 70}`, configOK, catalogOK),
			wantMsg: "Qi",
		},
		{
			name:    "negative cooldown",
			raw:     payload(`{"qi": 194, "stability": 60, "initial_max_stability": 70, "cooldowns": {"strike": -1}}`, configOK, catalogOK),
			wantMsg: "Cooldowns",
		},
		{
			name:    "unknown harmony variant",
			raw:     payload(stateOK, `{"target_completion": 100, "control": 100, "intensity": 100, "harmony_variant": "moonlight"}`, catalogOK),
			wantMsg: "HarmonyVariant",
		},
		{
			name:    "target beyond cap",
			raw:     payload(stateOK, `{"target_completion": 150, "max_completion": 100, "control": 100, "intensity": 100}`, catalogOK),
			wantMsg: "reachable",
		},
		{
			name:    "unknown gate label",
			raw:     payload(stateOK, configOK, `[{"key": "strike", "category": "fusion", "requires_condition": "sideways"}]`),
			wantMsg: "RequiresCondition",
		},
		{
			name:    "success chance above 100",
			raw:     payload(stateOK, configOK, `[{"key": "strike", "category": "fusion", "success_chance": 150}]`),
			wantMsg: "SuccessChance",
		},
		{
			name:    "zero-turn buff grant",
			raw:     payload(stateOK, configOK, `[{"key": "chant", "category": "support", "buff": {"type": "control", "turns": 0, "multiplier": 2}}]`),
			wantMsg: "Turns",
		},
		{
			name:    "heat gauge out of range",
			raw:     payload(`{"qi": 194, "stability": 60, "initial_max_stability": 70, "harmony_data": {"variant": "heat", "heat": 11}}`, `{"target_completion": 100, "control": 100, "intensity": 100, "harmony_variant": "heat"}`, catalogOK),
			wantMsg: "Heat",
		},
		{
			name:    "harmony variant mismatch",
			raw:     payload(`{"qi": 194, "stability": 60, "initial_max_stability": 70, "harmony_data": {"variant": "charge"}}`, `{"target_completion": 100, "control": 100, "intensity": 100, "harmony_variant": "heat"}`, catalogOK),
			wantMsg: "mismatch",
		},
		{
			name:    "unknown tier in effect table",
			raw:     payload(stateOK, `{"target_completion": 100, "control": 100, "intensity": 100, "condition_effects": {"sideways": {"control_mult": 2}}}`, catalogOK),
			wantMsg: "unknown condition tier",
		},
		{
			name:    "unknown category in buff trigger",
			raw:     payload(stateOK, configOK, `[{"key": "chant", "category": "support", "grant_buff": {"def": {"name": "ember", "on_category": {"brew": []}}, "stacks": 1}}]`),
			wantMsg: "buff trigger",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := Decode(tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidSnapshot)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.Nil(t, snap, "semantic errors must never yield a snapshot")
		})
	}
}

// TestDecode_ForecastTruncatedToWindow verifies long host forecast
// queues keep only the visible window.
func TestDecode_ForecastTruncatedToWindow(t *testing.T) {
	raw := []byte(`{"state": ` + stateOK + `, "config": ` + configOK + `, "catalog": ` + catalogOK + `,
		"forecast": ["positive", "neutral", "negative", "brilliant", "terrible"]}`)

	snap, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"positive", "neutral", "negative"}, snap.Forecast)
}

// TestDecode_SeedsHarmonyData verifies harmony crafts that ship no
// sub-state get the variant's initial sub-state.
func TestDecode_SeedsHarmonyData(t *testing.T) {
	tests := []struct {
		variant string
		check   func(t *testing.T, hd *craft.HarmonyData)
	}{
		{"heat", func(t *testing.T, hd *craft.HarmonyData) {
			assert.Equal(t, 0, hd.Heat)
		}},
		{"pattern", func(t *testing.T, hd *craft.HarmonyData) {
			assert.Len(t, hd.Block, 5, "pattern crafts start with a full block")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.variant, func(t *testing.T) {
			config := `{"target_completion": 100, "control": 100, "intensity": 100, "harmony_variant": "` + tt.variant + `"}`
			snap, err := Decode(payload(stateOK, config, catalogOK))
			require.NoError(t, err)

			assert.True(t, snap.Config.HarmonyEnabled, "a valid variant implies the overlay is on")
			require.NotNil(t, snap.State.HarmonyData)
			assert.Equal(t, craft.HarmonyVariant(tt.variant), snap.State.HarmonyData.Variant)
			tt.check(t, snap.State.HarmonyData)
		})
	}
}

// TestDecode_ConditionEffectTable verifies tier keys fold onto canonical
// labels and absent stat multipliers default to the identity.
func TestDecode_ConditionEffectTable(t *testing.T) {
	config := `{"target_completion": 100, "control": 100, "intensity": 100,
		"condition_effects": {
			"brilliant": {"control_mult": 2},
			"positive": {"qi_cost_delta": -0.3}
		}}`
	snap, err := Decode(payload(stateOK, config, catalogOK))
	require.NoError(t, err)

	effects := snap.Config.ConditionEffects
	require.Contains(t, effects, formula.TierVeryPositive, "synonym keys fold onto canonical tiers")
	assert.Equal(t, 2.0, effects[formula.TierVeryPositive].ControlMult)
	assert.Equal(t, 1.0, effects[formula.TierVeryPositive].IntensityMult, "absent multiplier defaults to identity")

	require.Contains(t, effects, formula.TierPositive)
	assert.Equal(t, 1.0, effects[formula.TierPositive].ControlMult)
	assert.Equal(t, -0.3, effects[formula.TierPositive].QiCostDelta)
}

// TestDecode_ScalingTree verifies nested scaling expressions decode
// through every clause.
func TestDecode_ScalingTree(t *testing.T) {
	catalog := `[{"key": "strike", "category": "fusion",
		"completion_scale": {
			"value": 30, "stat": "control_ratio", "upgrade_key": "strike_power",
			"custom": {"variable": "bonus", "multiplier": 0.1},
			"additive": {"value": 5},
			"max": {"value": 90}
		}}]`
	snap, err := Decode(payload(stateOK, configOK, catalog))
	require.NoError(t, err)

	sc := snap.Catalog[0].CompletionScale
	require.NotNil(t, sc)
	assert.Equal(t, 30.0, sc.Value)
	assert.Equal(t, "control_ratio", sc.Stat)
	assert.Equal(t, "strike_power", sc.UpgradeKey)
	require.NotNil(t, sc.Custom)
	assert.Equal(t, "bonus", sc.Custom.Variable)
	assert.Equal(t, 0.1, sc.Custom.Multiplier)
	require.NotNil(t, sc.Additive)
	assert.Equal(t, 5.0, sc.Additive.Value)
	require.NotNil(t, sc.Max)
	assert.Equal(t, 90.0, sc.Max.Value)
}

// TestDecode_BuffGrants verifies timed and named buff grants decode
// with their definitions.
func TestDecode_BuffGrants(t *testing.T) {
	catalog := `[
		{"key": "focus_chant", "category": "support",
		 "buff": {"type": "Control", "turns": 3, "multiplier": 2}},
		{"key": "ember_seal", "category": "support",
		 "grant_buff": {"def": {"name": "ember",
			"each_turn": [{"kind": "stability", "amount": {"value": -2}}],
			"on_category": {"fusion": [{"kind": "completion", "amount": {"value": 4}}]}}}}
	]`
	snap, err := Decode(payload(stateOK, configOK, catalog))
	require.NoError(t, err)

	chant := snap.Catalog[0]
	require.NotNil(t, chant.Buff)
	assert.Equal(t, craft.BuffControl, chant.Buff.Type, "buff type is case folded")
	assert.Equal(t, 3, chant.Buff.Turns)
	assert.Equal(t, 2.0, chant.Buff.Multiplier)

	seal := snap.Catalog[1]
	require.NotNil(t, seal.GrantBuff)
	assert.Equal(t, 1, seal.GrantBuff.Stacks, "absent stacks default to 1")
	require.NotNil(t, seal.GrantBuff.Def)
	assert.Equal(t, "ember", seal.GrantBuff.Def.Name)
	require.Len(t, seal.GrantBuff.Def.EachTurn, 1)
	assert.Equal(t, craft.EffectStability, seal.GrantBuff.Def.EachTurn[0].Kind)
	require.Contains(t, seal.GrantBuff.Def.OnCategory, craft.CategoryFusion)
}

// TestDecode_MidCraftState verifies cooldowns, active buffs, and
// history survive the round trip.
func TestDecode_MidCraftState(t *testing.T) {
	state := `{"qi": 120, "stability": 40, "initial_max_stability": 70, "stability_penalty": 4,
		"completion": 55, "perfection": 30, "step": 4,
		"cooldowns": {"meridian_burst": 2},
		"buffs": {"ember": {"stacks": 2, "def": {"each_turn": [{"kind": "stability", "amount": {"value": -2}}]}}},
		"control_buff": {"turns": 2, "multiplier": 1.5},
		"history": ["Cauldron Strike", "Polish"]}`
	snap, err := Decode(payload(state, configOK, catalogOK))
	require.NoError(t, err)

	s := snap.State
	assert.Equal(t, 2, s.Cooldowns["meridian_burst"])
	assert.True(t, s.OnCooldown("meridian_burst"))
	require.Contains(t, s.Buffs, "ember")
	assert.Equal(t, 2, s.Buffs["ember"].Stacks)
	require.NotNil(t, s.Buffs["ember"].Def)
	assert.Equal(t, "ember", s.Buffs["ember"].Def.Name, "definition name defaults to the map key")
	assert.True(t, s.ControlBuff.Active())
	assert.Equal(t, 1.5, s.ControlBuff.Multiplier)
	assert.Equal(t, []string{"Cauldron Strike", "Polish"}, s.History)
	assert.Equal(t, 66.0, s.MaxStability())
}

// TestDecodeFile verifies the file entry point and its error wrapping.
func TestDecodeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.json")
	require.NoError(t, os.WriteFile(path, payload(stateOK, configOK, catalogOK), 0o644))

	snap, err := DecodeFile(path)
	require.NoError(t, err)
	assert.Equal(t, 194.0, snap.State.Qi)

	missing := filepath.Join(dir, "absent.json")
	_, err = DecodeFile(missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), missing)
}

// TestValidate_Programmatic verifies snapshots assembled in code pass
// through the same checks as decoded ones.
func TestValidate_Programmatic(t *testing.T) {
	valid := func() *craft.Snapshot {
		return &craft.Snapshot{
			State: &craft.State{Qi: 100, Stability: 50, InitialMaxStability: 60},
			Catalog: []*craft.Action{
				{Key: "strike", Category: craft.CategoryFusion, CompletionScale: &formula.Scaling{Value: 30}},
			},
			Config: &craft.Config{TargetCompletion: 100, Control: 100, Intensity: 100},
		}
	}

	require.NoError(t, Validate(valid()))

	err := Validate(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidSnapshot)

	noState := valid()
	noState.State = nil
	assert.Error(t, Validate(noState))

	longForecast := valid()
	longForecast.Forecast = []string{"neutral", "neutral", "neutral", "neutral"}
	assert.Error(t, Validate(longForecast), "forecast beyond the window is rejected")

	nilEntry := valid()
	nilEntry.Catalog = append(nilEntry.Catalog, nil)
	assert.Error(t, Validate(nilEntry), "nil catalog entries are rejected")
}
