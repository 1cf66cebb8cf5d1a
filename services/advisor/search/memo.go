// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package search

import (
	"sort"
	"strconv"
	"strings"

	"github.com/alchemancy/cauldron/services/advisor/craft"
)

// memoTable caches evaluated positions within a single search
// invocation. It never outlives one Lookahead call, so state fields the
// simulator cannot change (crit stats, cost percentages, the config)
// stay out of the key.
//
// Thread Safety: Not safe for concurrent use. The search is single
// threaded per invocation.
type memoTable struct {
	entries map[string]float64
}

func newMemoTable() *memoTable {
	return &memoTable{entries: make(map[string]float64)}
}

func (m *memoTable) get(key string) (float64, bool) {
	v, ok := m.entries[key]
	return v, ok
}

func (m *memoTable) put(key string, value float64) {
	m.entries[key] = value
}

func (m *memoTable) size() int {
	return len(m.entries)
}

// stateKey builds the transposition key for a state at a given remaining
// depth and condition tier.
//
// Progress dimensions collapse once their target is met: any two states
// that have both met completion look identical on that axis, which lets
// endgame lines transpose. Above BucketThreshold unmet progress is
// bucketed so huge-number crafts do not defeat the cache.
func stateKey(s *craft.State, cfg *craft.Config, opts Config, depth int, tier craft.ConditionTier) string {
	var b strings.Builder
	b.Grow(160)

	b.WriteString("d:")
	b.WriteString(strconv.Itoa(depth))
	b.WriteString("|t:")
	b.WriteString(string(tier))

	b.WriteString("|c:")
	b.WriteString(progressKey(s.Completion, cfg.TargetCompletion, opts))
	b.WriteString("|p:")
	b.WriteString(progressKey(s.Perfection, cfg.TargetPerfection, opts))

	b.WriteString("|q:")
	b.WriteString(formatCoarse(s.Qi))
	b.WriteString("|s:")
	b.WriteString(formatCoarse(s.Stability))
	b.WriteString("|sp:")
	b.WriteString(formatCoarse(s.StabilityPenalty))
	b.WriteString("|x:")
	b.WriteString(formatCoarse(s.Toxicity))
	b.WriteString("|cb:")
	b.WriteString(strconv.Itoa(s.CompletionBonus))
	b.WriteString("|pl:")
	b.WriteString(strconv.Itoa(s.PillsThisRound))

	b.WriteString("|bc:")
	writeBuffTimer(&b, s.ControlBuff)
	b.WriteString("|bi:")
	writeBuffTimer(&b, s.IntensityBuff)

	if len(s.Buffs) > 0 {
		names := make([]string, 0, len(s.Buffs))
		for name := range s.Buffs {
			names = append(names, name)
		}
		sort.Strings(names)
		b.WriteString("|nb:")
		for _, name := range names {
			b.WriteString(name)
			b.WriteByte('=')
			b.WriteString(strconv.Itoa(s.Buffs[name].Stacks))
			b.WriteByte(',')
		}
	}

	if len(s.Cooldowns) > 0 {
		keys := make([]string, 0, len(s.Cooldowns))
		for k, turns := range s.Cooldowns {
			if turns > 0 {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		if len(keys) > 0 {
			b.WriteString("|cd:")
			for _, k := range keys {
				b.WriteString(k)
				b.WriteByte('=')
				b.WriteString(strconv.Itoa(s.Cooldowns[k]))
				b.WriteByte(',')
			}
		}
	}

	b.WriteString("|h:")
	b.WriteString(formatCoarse(s.Harmony))
	writeHarmonyData(&b, s.HarmonyData)

	return b.String()
}

// progressKey canonicalizes one progress axis.
func progressKey(value, target float64, opts Config) string {
	if target > 0 && value >= target {
		return "M"
	}
	if value >= opts.BucketThreshold && opts.ProgressBucket >= 1 {
		return "b" + strconv.Itoa(int(value/opts.ProgressBucket))
	}
	return formatCoarse(value)
}

// formatCoarse renders a float at one decimal of precision, enough to
// keep distinct game values apart without letting float noise split
// identical positions.
func formatCoarse(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func writeBuffTimer(b *strings.Builder, t craft.BuffTimer) {
	if !t.Active() {
		b.WriteByte('-')
		return
	}
	b.WriteString(strconv.Itoa(t.Turns))
	b.WriteByte('@')
	b.WriteString(strconv.FormatFloat(t.Multiplier, 'f', 2, 64))
}

func writeHarmonyData(b *strings.Builder, h *craft.HarmonyData) {
	if h == nil {
		b.WriteString("/-")
		return
	}
	b.WriteByte('/')
	b.WriteString(string(h.Variant))
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(h.Heat))
	b.WriteByte(':')
	for _, c := range h.Charges {
		b.WriteString(string(c))
		b.WriteByte(',')
	}
	b.WriteByte(':')
	for _, c := range h.Block {
		b.WriteString(string(c))
		b.WriteByte(',')
	}
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(h.Stacks))
	b.WriteByte(':')
	b.WriteString(string(h.Resonance))
	b.WriteByte('@')
	b.WriteString(strconv.Itoa(h.Strength))
	b.WriteByte('>')
	b.WriteString(string(h.Pending))

	if len(h.Reaction) > 0 {
		keys := make([]string, 0, len(h.Reaction))
		for k := range h.Reaction {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte(':')
		for _, k := range keys {
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(strconv.FormatFloat(h.Reaction[k], 'f', 2, 64))
			b.WriteByte(',')
		}
	}
}
