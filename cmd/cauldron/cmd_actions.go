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
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/spf13/cobra"

	"github.com/alchemancy/cauldron/services/advisor/adapter"
	"github.com/alchemancy/cauldron/services/advisor/craft"
	"github.com/alchemancy/cauldron/services/advisor/formula"
)

// loadCatalog reads the recipe named by --recipe, exiting on failure.
func loadCatalog() ([]*craft.Action, *craft.Config) {
	requireFlag(recipeFile, "recipe")

	catalog, cfg, err := adapter.DecodeRecipeFile(recipeFile)
	if err != nil {
		fail("cannot load recipe", err)
	}
	return catalog, cfg
}

// findAction resolves a name against keys first, display names second,
// both case-insensitive.
func findAction(catalog []*craft.Action, name string) *craft.Action {
	lower := strings.ToLower(name)
	for _, act := range catalog {
		if strings.ToLower(act.Key) == lower {
			return act
		}
	}
	for _, act := range catalog {
		if strings.ToLower(act.DisplayName()) == lower {
			return act
		}
	}
	return nil
}

// suggestActions returns up to three catalog keys close to the
// misspelled name, nearest first.
func suggestActions(catalog []*craft.Action, name string) []string {
	const maxDistance = 3

	lower := strings.ToLower(name)
	type candidate struct {
		key  string
		dist int
	}
	var candidates []candidate

	for _, act := range catalog {
		dist := levenshtein.ComputeDistance(lower, strings.ToLower(act.Key))
		if d := levenshtein.ComputeDistance(lower, strings.ToLower(act.DisplayName())); d < dist {
			dist = d
		}
		if dist <= maxDistance || strings.HasPrefix(strings.ToLower(act.Key), lower) {
			candidates = append(candidates, candidate{key: act.Key, dist: dist})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		return candidates[i].key < candidates[j].key
	})

	keys := make([]string, 0, 3)
	for _, c := range candidates {
		if len(keys) == 3 {
			break
		}
		keys = append(keys, c.key)
	}
	return keys
}

// describeScaling renders a scaling tree compactly for terminal output.
func describeScaling(s *formula.Scaling) string {
	if s == nil {
		return "-"
	}

	parts := []string{fmt.Sprintf("%g", s.Value)}
	if s.Stat != "" {
		parts = append(parts, "x "+s.Stat)
	}
	if s.Variable != "" {
		parts = append(parts, "x "+s.Variable)
	}
	if s.Equation != "" {
		parts = append(parts, "x ("+s.Equation+")")
	}
	if s.Custom != nil {
		parts = append(parts, fmt.Sprintf("x (1 + %g*%s)", s.Custom.Multiplier, s.Custom.Variable))
	}
	if s.Additive != nil {
		parts = append(parts, "+ "+describeScaling(s.Additive))
	}
	if s.Max != nil {
		parts = append(parts, "capped "+describeScaling(s.Max))
	}
	return strings.Join(parts, " ")
}

// runActionsList is the CLI handler for "cauldron actions list".
func runActionsList(cmd *cobra.Command, args []string) {
	catalog, _ := loadCatalog()

	fmt.Printf("%-16s %-24s %-10s %8s %8s %8s %8s  %s\n",
		"KEY", "NAME", "CATEGORY", "QI", "STAB", "TOX", "SUCCESS", "GATE")
	for _, act := range catalog {
		gate := "-"
		if act.RequiresCondition != "" {
			gate = string(craft.NormalizeCondition(act.RequiresCondition))
		}
		fmt.Printf("%-16s %-24s %-10s %8.1f %8.1f %8.1f %7.0f%%  %s\n",
			act.Key, act.DisplayName(), act.Category,
			act.QiCost, act.StabilityCost, act.ToxicityCost,
			act.EffectiveSuccessChance(), gate)
	}
	fmt.Printf("%s\n", dimColor(fmt.Sprintf("%d actions", len(catalog))))
}

// runActionsExplain is the CLI handler for "cauldron actions explain".
// Unknown names get nearest-match suggestions instead of a bare error.
func runActionsExplain(cmd *cobra.Command, args []string) {
	catalog, _ := loadCatalog()

	name := args[0]
	act := findAction(catalog, name)
	if act == nil {
		fmt.Fprintf(os.Stderr, "Error: unknown action %q\n", name)
		for _, key := range suggestActions(catalog, name) {
			fmt.Fprintf(os.Stderr, "  did you mean %s?\n", boldColor(key))
		}
		os.Exit(CLIExitError)
	}

	fmt.Printf("%s %s\n", headerColor(act.DisplayName()), dimColor("("+act.Key+")"))
	fmt.Printf("  category:    %s\n", act.Category)
	fmt.Printf("  qi cost:     %.1f\n", act.QiCost)
	if act.StabilityCost > 0 {
		fmt.Printf("  stability:   -%.1f\n", act.StabilityCost)
	}
	if act.ToxicityCost > 0 {
		fmt.Printf("  toxicity:    +%.1f\n", act.ToxicityCost)
	}
	fmt.Printf("  success:     %.0f%%\n", act.EffectiveSuccessChance())
	if act.CompletionScale != nil {
		fmt.Printf("  completion:  %s\n", describeScaling(act.CompletionScale))
	}
	if act.PerfectionScale != nil {
		fmt.Printf("  perfection:  %s\n", describeScaling(act.PerfectionScale))
	}
	if act.StabilityGain != nil {
		fmt.Printf("  stab. gain:  %s\n", describeScaling(act.StabilityGain))
	}
	if act.RequiresCondition != "" {
		fmt.Printf("  requires:    %s condition\n", craft.NormalizeCondition(act.RequiresCondition))
	}
	if act.Cooldown > 0 {
		fmt.Printf("  cooldown:    %d turns\n", act.Cooldown)
	}
	if act.Buff != nil {
		fmt.Printf("  buff:        %s x%g for %d turns\n", act.Buff.Type, act.Buff.Multiplier, act.Buff.Turns)
	}
	if act.IsItem {
		fmt.Printf("  %s\n", warnColor("item: does not consume the turn, limited per round"))
	}
	if act.PreventDecay {
		fmt.Println("  prevents stability cap decay this turn")
	}
}
