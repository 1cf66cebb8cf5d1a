// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package craft

import (
	"strings"

	"github.com/alchemancy/cauldron/services/advisor/formula"
)

// ConditionTier is a canonical per-turn condition label. The host game
// surfaces conditions under several flavor names; NormalizeCondition
// folds them onto this canonical set so gating and memoization compare
// stably.
type ConditionTier string

// Canonical tiers, worst to best.
const (
	TierVeryNegative ConditionTier = formula.TierVeryNegative
	TierNegative     ConditionTier = formula.TierNegative
	TierNeutral      ConditionTier = formula.TierNeutral
	TierPositive     ConditionTier = formula.TierPositive
	TierVeryPositive ConditionTier = formula.TierVeryPositive
)

// ForecastWindow is the number of upcoming conditions the host UI makes
// visible. Forecast queues are normalized to exactly this length.
const ForecastWindow = 3

// conditionSynonyms maps host flavor labels onto canonical tiers. The
// host surfaces the same tier under different names depending on craft
// flavor ("brilliant" and "resplendent" are both the top tier).
var conditionSynonyms = map[string]ConditionTier{
	"very_negative": TierVeryNegative,
	"very negative": TierVeryNegative,
	"verynegative":  TierVeryNegative,
	"terrible":      TierVeryNegative,
	"disastrous":    TierVeryNegative,
	"chaotic":       TierVeryNegative,

	"negative":    TierNegative,
	"poor":        TierNegative,
	"unfavorable": TierNegative,
	"turbid":      TierNegative,

	"neutral": TierNeutral,
	"normal":  TierNeutral,
	"steady":  TierNeutral,
	"":        TierNeutral,

	"positive":  TierPositive,
	"good":      TierPositive,
	"favorable": TierPositive,
	"clear":     TierPositive,

	"very_positive": TierVeryPositive,
	"very positive": TierVeryPositive,
	"verypositive":  TierVeryPositive,
	"excellent":     TierVeryPositive,
	"brilliant":     TierVeryPositive,
	"resplendent":   TierVeryPositive,
}

// NormalizeCondition maps a host condition label onto its canonical
// tier. Unknown labels pass through lowercased so they still compare
// stably in gating and cache keys.
func NormalizeCondition(label string) ConditionTier {
	key := strings.ToLower(strings.TrimSpace(label))
	if tier, ok := conditionSynonyms[key]; ok {
		return tier
	}
	return ConditionTier(key)
}

// NormalizeForecast converts raw forecast labels into exactly
// ForecastWindow canonical tiers. Entries beyond the window are ignored;
// missing entries pad with fill.
func NormalizeForecast(labels []string, fill ConditionTier) []ConditionTier {
	out := make([]ConditionTier, ForecastWindow)
	for i := 0; i < ForecastWindow; i++ {
		if i < len(labels) {
			out[i] = NormalizeCondition(labels[i])
		} else {
			out[i] = fill
		}
	}
	return out
}
