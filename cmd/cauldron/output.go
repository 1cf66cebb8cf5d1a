// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/alchemancy/cauldron/services/advisor/craft"
)

// Exit codes for CLI commands.
const (
	CLIExitSuccess = 0 // Advice produced or listing completed
	CLIExitStuck   = 1 // Craft cannot proceed: no legal action remained
	CLIExitError   = 2 // Operation failed
)

var (
	headerColor = color.New(color.FgCyan, color.Bold).SprintFunc()
	goodColor   = color.New(color.FgGreen).SprintFunc()
	warnColor   = color.New(color.FgYellow).SprintFunc()
	badColor    = color.New(color.FgRed).SprintFunc()
	boldColor   = color.New(color.Bold).SprintFunc()
	dimColor    = color.New(color.Faint).SprintFunc()
)

// initColor disables ANSI output when stdout is not a terminal or
// --no-color was passed.
func initColor() {
	if noColor || (!isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd())) {
		color.NoColor = true
	}
}

// fail prints an error with its cause and exits.
func fail(msg string, err error) {
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	os.Exit(CLIExitError)
}

// failMsg prints a bare error message and exits.
func failMsg(msg string) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	os.Exit(CLIExitError)
}

// formatGains renders the nonzero expected deltas in a fixed order.
// Gains are green and losses red, except toxicity where more is worse.
func formatGains(g craft.ExpectedGains) string {
	type delta struct {
		name     string
		value    float64
		inverted bool
	}
	deltas := []delta{
		{"completion", g.Completion, false},
		{"perfection", g.Perfection, false},
		{"stability", g.Stability, false},
		{"qi", g.Qi, false},
		{"toxicity", g.Toxicity, true},
		{"harmony", g.Harmony, false},
	}

	var parts []string
	for _, d := range deltas {
		if d.value == 0 {
			continue
		}
		text := fmt.Sprintf("%+.1f %s", d.value, d.name)
		positive := d.value > 0
		if d.inverted {
			positive = !positive
		}
		if positive {
			parts = append(parts, goodColor(text))
		} else {
			parts = append(parts, badColor(text))
		}
	}
	return strings.Join(parts, ", ")
}

// formatQuality colors the 0-100 quality rating.
func formatQuality(q float64) string {
	text := fmt.Sprintf("%.0f/100", q)
	switch {
	case q >= 75:
		return goodColor(text)
	case q >= 40:
		return warnColor(text)
	default:
		return badColor(text)
	}
}

// printRecommendation renders one ranked advisory.
func printRecommendation(rec *craft.Recommendation) {
	fmt.Printf("%s %s  %s\n",
		headerColor("Recommended:"),
		boldColor(rec.Action.DisplayName()),
		dimColor(fmt.Sprintf("(score %.2f, quality %s)", rec.Score, formatQuality(rec.Quality))))

	if gains := formatGains(rec.Gains); gains != "" {
		fmt.Printf("  expected: %s\n", gains)
	}
	if rec.Rationale != "" {
		fmt.Printf("  %s\n", rec.Rationale)
	}
	if rec.ConsumesBuff {
		fmt.Printf("  %s\n", warnColor("consumes an active buff"))
	}
	if rec.FollowUp != nil {
		fmt.Printf("  follow up: %s\n", rec.FollowUp.DisplayName())
	}
}

// printAlternatives renders the runner-up actions, capped to keep the
// output scannable.
func printAlternatives(alts []*craft.Recommendation) {
	if len(alts) == 0 {
		return
	}

	const maxShown = 4
	fmt.Println(headerColor("Alternatives:"))
	for i, alt := range alts {
		if i >= maxShown {
			fmt.Printf("  %s\n", dimColor(fmt.Sprintf("(+%d more)", len(alts)-maxShown)))
			break
		}
		fmt.Printf("  %d. %-24s score %8.2f  quality %s\n",
			i+2, alt.Action.DisplayName(), alt.Score, formatQuality(alt.Quality))
	}
}

// printRotation renders the projected sequence and the simulated state
// it ends in.
func printRotation(rotation []string, final *craft.State, cfg *craft.Config) {
	if len(rotation) == 0 {
		return
	}

	fmt.Println(headerColor("Rotation:"))
	for i, key := range rotation {
		fmt.Printf("  %2d. %s\n", i+1, key)
	}
	if final != nil {
		fmt.Printf("  final: %s\n", formatState(final, cfg))
		if cfg != nil {
			if cfg.TargetsMet(final) {
				fmt.Printf("  %s\n", goodColor("targets met"))
			} else {
				fmt.Printf("  %s\n", warnColor("targets not reached within the projection"))
			}
		}
	}
}

// formatState renders the stats that decide a craft on one line.
func formatState(s *craft.State, cfg *craft.Config) string {
	var b strings.Builder
	if cfg != nil {
		fmt.Fprintf(&b, "completion %.1f/%.0f, perfection %.1f/%.0f",
			s.Completion, cfg.TargetCompletion, s.Perfection, cfg.TargetPerfection)
	} else {
		fmt.Fprintf(&b, "completion %.1f, perfection %.1f", s.Completion, s.Perfection)
	}
	fmt.Fprintf(&b, ", stability %.1f/%.0f, qi %.1f", s.Stability, s.MaxStability(), s.Qi)
	if s.Toxicity > 0 {
		fmt.Fprintf(&b, ", toxicity %.1f", s.Toxicity)
	}
	return b.String()
}

// printMetrics renders the search diagnostics line and flags budget
// exhaustion, which degrades advice quality without failing the call.
func printMetrics(m craft.Metrics) {
	fmt.Printf("%s\n", dimColor(fmt.Sprintf(
		"search: %d nodes, depth %d, %d cache hits, %d pruned, %dms",
		m.NodesExplored, m.DepthReached, m.CacheHits, m.Pruned, m.ElapsedMs)))
	if m.Exhausted {
		fmt.Printf("%s\n", warnColor(fmt.Sprintf(
			"search budget exhausted (%s); advice may be shallow", m.ExhaustedBy)))
	}
}
