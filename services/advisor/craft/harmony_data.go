// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package craft

// HarmonyVariant names which harmony sub-game a craft runs. At most one
// is active per craft.
type HarmonyVariant string

const (
	HarmonyNone      HarmonyVariant = ""
	HarmonyHeat      HarmonyVariant = "heat"
	HarmonyCharge    HarmonyVariant = "charge"
	HarmonyPattern   HarmonyVariant = "pattern"
	HarmonyResonance HarmonyVariant = "resonance"
)

// Valid reports whether v names a known variant (HarmonyNone included).
func (v HarmonyVariant) Valid() bool {
	switch v {
	case HarmonyNone, HarmonyHeat, HarmonyCharge, HarmonyPattern, HarmonyResonance:
		return true
	}
	return false
}

// HarmonyData is the active sub-game state. Only the fields of the
// selected Variant are meaningful; the rest stay at their zero values.
// It is mutated exclusively through the harmony package's pure Step
// function, which returns a fresh copy.
type HarmonyData struct {
	Variant HarmonyVariant `json:"variant" validate:"required,oneof=heat charge pattern resonance"`

	// Heat gauge (HarmonyHeat): position in [0, 10].
	Heat int `json:"heat,omitempty" validate:"gte=0,lte=10"`

	// Charge combo (HarmonyCharge): accumulated charges, kept sorted,
	// reset after every third.
	Charges []Category `json:"charges,omitempty" validate:"omitempty,dive,oneof=fusion refine stabilize support"`

	// Pattern block (HarmonyPattern): the categories remaining in the
	// current block, earned stacks, and completed block count.
	Block      []Category `json:"block,omitempty" validate:"omitempty,dive,oneof=fusion refine stabilize support"`
	Stacks     int        `json:"stacks,omitempty" validate:"gte=0"`
	BlocksDone int        `json:"blocks_done,omitempty" validate:"gte=0"`

	// Resonance streak (HarmonyResonance): the locked category, its
	// strength, and a pending switch candidate awaiting confirmation.
	Resonance Category `json:"resonance,omitempty" validate:"omitempty,oneof=fusion refine stabilize support"`
	Strength  int      `json:"strength,omitempty" validate:"gte=0"`
	Pending   Category `json:"pending,omitempty" validate:"omitempty,oneof=fusion refine stabilize support"`

	// Recommended lists the categories the active sub-game currently
	// favors. Advisory only; the scorer reads it for rationale text.
	Recommended []Category `json:"recommended,omitempty"`

	// Reaction is the free-form side channel for persistent reaction
	// modifiers (the charge combo writes its earned bundle here).
	Reaction map[string]float64 `json:"reaction,omitempty"`
}

// patternBlockSet is the full five-slot block: one stabilize, one
// support, one fusion, two refines.
var patternBlockSet = []Category{
	CategoryStabilize, CategorySupport, CategoryFusion, CategoryRefine, CategoryRefine,
}

// PatternBlockSet returns a fresh copy of the full pattern block.
func PatternBlockSet() []Category {
	out := make([]Category, len(patternBlockSet))
	copy(out, patternBlockSet)
	return out
}

// NewHarmonyData returns the initial sub-game state for a variant:
// heat at 0, no charges, a full pattern block, or no resonance. The
// HarmonyNone variant yields nil.
func NewHarmonyData(v HarmonyVariant) *HarmonyData {
	switch v {
	case HarmonyHeat:
		return &HarmonyData{Variant: HarmonyHeat}
	case HarmonyCharge:
		return &HarmonyData{Variant: HarmonyCharge}
	case HarmonyPattern:
		return &HarmonyData{Variant: HarmonyPattern, Block: PatternBlockSet()}
	case HarmonyResonance:
		return &HarmonyData{Variant: HarmonyResonance}
	default:
		return nil
	}
}

// Clone returns a deep copy. A nil receiver clones to nil.
func (h *HarmonyData) Clone() *HarmonyData {
	if h == nil {
		return nil
	}
	out := *h
	if h.Charges != nil {
		out.Charges = make([]Category, len(h.Charges))
		copy(out.Charges, h.Charges)
	}
	if h.Block != nil {
		out.Block = make([]Category, len(h.Block))
		copy(out.Block, h.Block)
	}
	if h.Recommended != nil {
		out.Recommended = make([]Category, len(h.Recommended))
		copy(out.Recommended, h.Recommended)
	}
	if h.Reaction != nil {
		out.Reaction = make(map[string]float64, len(h.Reaction))
		for k, v := range h.Reaction {
			out.Reaction[k] = v
		}
	}
	return &out
}
