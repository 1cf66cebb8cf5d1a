// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package craft

// Snapshot is the complete input of one advisory call: the live state,
// the action catalog, the craft configuration, and the current condition
// with its forecast window.
//
// The adapter package decodes host export payloads into Snapshots and
// enforces the validate tags below plus its own semantic checks; a
// Snapshot assembled programmatically should pass through
// adapter.Validate before reaching the engine.
type Snapshot struct {
	State   *State    `json:"state" validate:"required"`
	Catalog []*Action `json:"catalog" validate:"required,min=1,dive,required"`
	Config  *Config   `json:"config" validate:"required"`

	// Condition is the current condition label. Any synonym of a
	// canonical tier is accepted; empty means neutral.
	Condition string `json:"condition,omitempty" validate:"omitempty,condlabel"`

	// Forecast holds up to ForecastWindow upcoming condition labels.
	Forecast []string `json:"forecast,omitempty" validate:"max=3,dive,condlabel"`
}

// Tier returns the canonical tier of the current condition label.
func (s *Snapshot) Tier() ConditionTier {
	return NormalizeCondition(s.Condition)
}

// Normalize fills derived defaults on a decoded snapshot: config
// defaults, state invariants, the harmony seed for harmony crafts that
// shipped no sub-state, and the forecast window cap. Safe on partially
// built snapshots; nil sections are skipped.
func (s *Snapshot) Normalize() {
	if s.Config != nil {
		s.Config.Normalize()
	}
	if s.State != nil {
		s.State.Sanitize()
	}
	if s.Config != nil && s.State != nil &&
		s.Config.HarmonyEnabled && s.State.HarmonyData == nil {
		s.State.HarmonyData = NewHarmonyData(s.Config.HarmonyVariant)
	}
	if len(s.Forecast) > ForecastWindow {
		s.Forecast = s.Forecast[:ForecastWindow]
	}
}
