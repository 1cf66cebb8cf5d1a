// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package adapter

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/alchemancy/cauldron/services/advisor/craft"
)

// snapValidate is the validator instance for snapshot validation.
// Initialized in init() with the custom validators the craft struct
// tags reference.
var snapValidate *validator.Validate

func init() {
	snapValidate = validator.New()
	_ = snapValidate.RegisterValidation("condlabel", validateConditionLabel)
	snapValidate.RegisterStructValidation(validateTargetBounds, craft.Config{})
}

// validateConditionLabel accepts any label that folds onto a canonical
// condition tier, in any of the host's flavor spellings.
func validateConditionLabel(fl validator.FieldLevel) bool {
	return canonicalTier(craft.NormalizeCondition(fl.Field().String()))
}

func canonicalTier(t craft.ConditionTier) bool {
	switch t {
	case craft.TierVeryNegative, craft.TierNegative, craft.TierNeutral,
		craft.TierPositive, craft.TierVeryPositive:
		return true
	}
	return false
}

// validateTargetBounds rejects configs whose targets sit beyond their
// progress caps; the search could never meet them.
func validateTargetBounds(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(craft.Config)
	if cfg.MaxCompletion > 0 && cfg.TargetCompletion > cfg.MaxCompletion {
		sl.ReportError(cfg.TargetCompletion, "TargetCompletion", "target_completion", "reachable", "")
	}
	if cfg.MaxPerfection > 0 && cfg.TargetPerfection > cfg.MaxPerfection {
		sl.ReportError(cfg.TargetPerfection, "TargetPerfection", "target_perfection", "reachable", "")
	}
}

// Validate checks a snapshot against the craft validate tags plus the
// semantic rules tags cannot express: unique catalog keys, canonical
// tier keys in the condition-effect table, known categories in buff
// triggers, and harmony variant agreement between state and config.
//
// Exported for callers that assemble snapshots programmatically instead
// of through Decode. All failures wrap ErrInvalidSnapshot.
func Validate(snap *craft.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: nil snapshot", ErrInvalidSnapshot)
	}
	if err := snapValidate.Struct(snap); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSnapshot, err)
	}

	seen := make(map[string]struct{}, len(snap.Catalog))
	for _, a := range snap.Catalog {
		if _, dup := seen[a.Key]; dup {
			return fmt.Errorf("%w: duplicate action key %q", ErrInvalidSnapshot, a.Key)
		}
		seen[a.Key] = struct{}{}
		if a.GrantBuff != nil {
			where := fmt.Sprintf("action %q", a.Key)
			if err := checkBuffDef(a.GrantBuff.Def, where); err != nil {
				return err
			}
		}
	}

	for name, inst := range snap.State.Buffs {
		where := fmt.Sprintf("buff %q", name)
		if err := checkBuffDef(inst.Def, where); err != nil {
			return err
		}
	}

	for tier := range snap.Config.ConditionEffects {
		if !canonicalTier(craft.ConditionTier(tier)) {
			return fmt.Errorf("%w: unknown condition tier %q in effect table", ErrInvalidSnapshot, tier)
		}
	}

	if hd := snap.State.HarmonyData; hd != nil &&
		snap.Config.HarmonyVariant != craft.HarmonyNone &&
		hd.Variant != snap.Config.HarmonyVariant {
		return fmt.Errorf("%w: harmony variant mismatch: state %q, config %q",
			ErrInvalidSnapshot, hd.Variant, snap.Config.HarmonyVariant)
	}
	return nil
}

func checkBuffDef(def *craft.BuffDef, where string) error {
	if def == nil {
		return nil
	}
	for cat := range def.OnCategory {
		if !cat.Valid() {
			return fmt.Errorf("%w: %s: unknown category %q in buff trigger",
				ErrInvalidSnapshot, where, cat)
		}
	}
	return nil
}
