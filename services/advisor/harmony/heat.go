// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package harmony

import "github.com/alchemancy/cauldron/services/advisor/craft"

// Heat gauge bands. The gauge lives in [0, 10]; the sweet spot is the
// middle, the extremes zero out a stat.
const (
	heatMin       = 0
	heatMax       = 10
	heatSweetLow  = 4
	heatSweetHigh = 6
)

// stepHeat advances the heat gauge: fusion actions heat by 2, everything
// else cools by 1. Both the harmony delta and the modifiers read the
// updated gauge.
func stepHeat(data *craft.HarmonyData, cat craft.Category) Transition {
	if cat == craft.CategoryFusion {
		data.Heat += 2
	} else {
		data.Heat--
	}
	if data.Heat < heatMin {
		data.Heat = heatMin
	}
	if data.Heat > heatMax {
		data.Heat = heatMax
	}

	return Transition{
		HarmonyDelta: heatDelta(data.Heat),
		Modifiers:    heatModifiers(data.Heat),
		Recommended:  heatRecommended(data.Heat),
	}
}

// heatDelta maps a gauge position to its harmony delta: the sweet spot
// rewards, the shoulder bands punish mildly, the extremes punish hard.
func heatDelta(heat int) float64 {
	switch {
	case heat >= heatSweetLow && heat <= heatSweetHigh:
		return 10
	case heat == heatMin || heat == heatMax:
		return -20
	case heat >= 2 && heat <= 3, heat >= 7 && heat <= 9:
		return -10
	default:
		return 0
	}
}

// heatModifiers maps a gauge position to the stat modifiers in force.
// The -9 multiplier at the extremes drives the effective stat negative;
// consumers clamp it at 0, so the stat is zeroed rather than inverted.
func heatModifiers(heat int) Modifiers {
	m := Defaults()
	switch {
	case heat == heatMin:
		m.Control = -9
	case heat == heatMax:
		m.Intensity = -9
	case heat >= heatSweetLow && heat <= heatSweetHigh:
		m.Control = 1.5
		m.Intensity = 1.5
	case heat >= 1 && heat <= 3:
		m.Control = 0.5
	case heat >= 7 && heat <= 9:
		m.Intensity = 0.5
	}
	return m
}

// heatRecommended favors heating while the gauge sits at or below the
// sweet spot's lower edge, cooling otherwise.
func heatRecommended(heat int) []craft.Category {
	if heat <= heatSweetLow {
		return []craft.Category{craft.CategoryFusion}
	}
	return []craft.Category{craft.CategoryRefine, craft.CategoryStabilize, craft.CategorySupport}
}
