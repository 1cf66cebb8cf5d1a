// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package craft

import "github.com/alchemancy/cauldron/services/advisor/formula"

// Category classifies what an action does to the craft. The harmony
// sub-games and the move-ordering heuristics key off it.
type Category string

const (
	// CategoryFusion actions push raw completion progress.
	CategoryFusion Category = "fusion"

	// CategoryRefine actions push perfection progress.
	CategoryRefine Category = "refine"

	// CategoryStabilize actions restore stability.
	CategoryStabilize Category = "stabilize"

	// CategorySupport actions grant buffs or utility effects.
	CategorySupport Category = "support"
)

// Categories lists all valid action categories in a stable order.
var Categories = []Category{CategoryFusion, CategoryRefine, CategoryStabilize, CategorySupport}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryFusion, CategoryRefine, CategoryStabilize, CategorySupport:
		return true
	}
	return false
}

// Progress reports whether the category advances a progress total.
func (c Category) Progress() bool {
	return c == CategoryFusion || c == CategoryRefine
}

// EffectKind names the state field an Effect targets.
type EffectKind string

const (
	EffectCompletion   EffectKind = "completion"
	EffectPerfection   EffectKind = "perfection"
	EffectStability    EffectKind = "stability"
	EffectQi           EffectKind = "qi"
	EffectToxicity     EffectKind = "toxicity"
	EffectMaxStability EffectKind = "max_stability"
	EffectHarmony      EffectKind = "harmony"
)

// Effect is one entry of a general effect list: a target field and a
// scaling expression producing the delta. Effect amounts resolve against
// the transition engine's variable table, so an effect can reference
// effective stats ("control_ratio"), current progress, or any other
// published variable.
type Effect struct {
	Kind   EffectKind       `json:"kind" validate:"required,oneof=completion perfection stability qi toxicity max_stability harmony"`
	Amount *formula.Scaling `json:"amount" validate:"required"`
}

// BuffType selects which timed stat buff a grant targets.
type BuffType string

const (
	BuffControl   BuffType = "control"
	BuffIntensity BuffType = "intensity"
)

// BuffGrant is an action's timed stat buff: which stat, for how many
// turns, at what multiplier.
type BuffGrant struct {
	Type       BuffType `json:"type" validate:"required,oneof=control intensity"`
	Turns      int      `json:"turns" validate:"gte=1"`
	Multiplier float64  `json:"multiplier" validate:"gt=0"`
}

// BuffDef defines an arbitrary named buff: effects applied every turn
// while active, and effects applied when an action of a matching
// category is used. Both lists scale by the instance's stack count.
type BuffDef struct {
	Name       string                `json:"name" validate:"required"`
	EachTurn   []Effect              `json:"each_turn,omitempty" validate:"omitempty,dive"`
	OnCategory map[Category][]Effect `json:"on_category,omitempty" validate:"omitempty,dive,dive"`
}

// NamedBuffGrant attaches stacks of an arbitrary buff when the action is
// applied.
type NamedBuffGrant struct {
	Def    *BuffDef `json:"def" validate:"required"`
	Stacks int      `json:"stacks" validate:"gte=1"`
}

// Eligibility gates a mastery upgrade on craft progress, e.g. "only once
// completion reaches 80% of its target".
type Eligibility struct {
	// Metric is "completion" or "perfection".
	Metric string `json:"metric" validate:"required,oneof=completion perfection"`

	// MinFraction is the fraction of the corresponding target that must
	// be reached before the upgrade applies.
	MinFraction float64 `json:"min_fraction" validate:"gte=0,lte=1"`
}

// MasteryUpgrade adjusts one node of a scaling tree, located by its
// UpgradeKey. Additive upgrades add Change to the node's base value;
// multiplicative upgrades replace the base value with Change.
type MasteryUpgrade struct {
	UpgradeKey     string       `json:"upgrade_key" validate:"required"`
	Change         float64      `json:"change"`
	Multiplicative bool         `json:"multiplicative,omitempty"`
	Eligibility    *Eligibility `json:"eligibility,omitempty"`
}

// Action is one static catalog entry. The adapter builds the catalog
// once per craft; the engine never mutates it.
//
// Gains resolve from Effects when the list is non-empty, otherwise from
// the legacy scalar trees (CompletionScale scaled by effective control,
// PerfectionScale by effective intensity, StabilityGain unscaled).
type Action struct {
	// Key uniquely identifies the action (cooldown and memo keys).
	Key string `json:"key" validate:"required"`

	// Name is the display name; falls back to Key when empty.
	Name string `json:"name,omitempty"`

	Category Category `json:"category" validate:"required,oneof=fusion refine stabilize support"`

	// Cost fields. Qi and stability costs pass through the effective
	// cost formula (percentage modifier, then condition modifier);
	// toxicity is a flat delta.
	QiCost        float64 `json:"qi_cost,omitempty" validate:"gte=0"`
	StabilityCost float64 `json:"stability_cost,omitempty" validate:"gte=0"`
	ToxicityCost  float64 `json:"toxicity_cost,omitempty" validate:"gte=0"`

	// SuccessChance in percent; 0 means 100.
	SuccessChance float64 `json:"success_chance,omitempty" validate:"gte=0,lte=100"`

	// Legacy scalar gain trees.
	CompletionScale *formula.Scaling `json:"completion_scale,omitempty"`
	PerfectionScale *formula.Scaling `json:"perfection_scale,omitempty"`
	StabilityGain   *formula.Scaling `json:"stability_gain,omitempty"`

	// Effects is the general effect list; takes precedence over the
	// legacy trees when non-empty.
	Effects []Effect `json:"effects,omitempty" validate:"omitempty,dive"`

	// Buff is an optional timed stat buff grant.
	Buff *BuffGrant `json:"buff,omitempty"`

	// GrantBuff attaches stacks of an arbitrary named buff.
	GrantBuff *NamedBuffGrant `json:"grant_buff,omitempty"`

	// RequiresCondition restricts the action to one condition tier
	// (any synonym of the tier is accepted).
	RequiresCondition string `json:"requires_condition,omitempty" validate:"omitempty,condlabel"`

	// Cooldown in turns after use; 0 means none.
	Cooldown int `json:"cooldown,omitempty" validate:"gte=0"`

	// Mastery upgrades scoped to this action's scaling trees.
	Mastery []MasteryUpgrade `json:"mastery,omitempty" validate:"omitempty,dive"`

	// IsItem marks consumable actions that do not consume a turn and
	// are limited per round.
	IsItem bool `json:"is_item,omitempty"`

	// PreventDecay suppresses the per-turn soft max-stability decay.
	PreventDecay bool `json:"prevent_decay,omitempty"`

	// MaxStabilityDelta restores (positive) or erodes (negative) the
	// stability cap.
	MaxStabilityDelta float64 `json:"max_stability_delta,omitempty"`

	// ToxicityCleanse removes toxicity after the cost is applied.
	ToxicityCleanse float64 `json:"toxicity_cleanse,omitempty" validate:"gte=0"`
}

// DisplayName returns Name, or Key when no display name is set.
func (a *Action) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Key
}

// EffectiveSuccessChance returns the action's base success chance in
// percent, treating the zero value as 100.
func (a *Action) EffectiveSuccessChance() float64 {
	if a.SuccessChance <= 0 {
		return 100
	}
	return a.SuccessChance
}
