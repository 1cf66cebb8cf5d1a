//go:build ignore

// generate_catalog_docs renders a markdown reference for a recipe's
// action catalog.
//
// Usage:
//
//	go run scripts/generate_catalog_docs.go recipe.json > docs/actions.md
//
// The generated reference includes:
//   - Recipe targets and caster stats
//   - Actions grouped by category, with costs and scaling
//   - Gating notes (conditions, cooldowns, items)
//   - Summary statistics
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alchemancy/cauldron/services/advisor/adapter"
	"github.com/alchemancy/cauldron/services/advisor/craft"
	"github.com/alchemancy/cauldron/services/advisor/formula"
)

var categoryOrder = []craft.Category{
	craft.CategoryFusion,
	craft.CategoryRefine,
	craft.CategoryStabilize,
	craft.CategorySupport,
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: go run scripts/generate_catalog_docs.go <recipe.json>")
		os.Exit(2)
	}

	catalog, cfg, err := adapter.DecodeRecipeFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load recipe: %v\n", err)
		os.Exit(1)
	}

	byCategory := make(map[craft.Category][]*craft.Action)
	for _, act := range catalog {
		byCategory[act.Category] = append(byCategory[act.Category], act)
	}

	fmt.Println("# Action Catalog Reference")
	fmt.Println()
	fmt.Printf("Generated on %s from `%s`.\n", time.Now().Format("2006-01-02"), os.Args[1])
	fmt.Println()
	fmt.Printf("Targets: completion %.0f, perfection %.0f. Caster: control %.0f, intensity %.0f.\n",
		cfg.TargetCompletion, cfg.TargetPerfection, cfg.Control, cfg.Intensity)
	fmt.Println()

	for _, cat := range categoryOrder {
		actions := byCategory[cat]
		if len(actions) == 0 {
			continue
		}

		fmt.Printf("## %s\n", title(string(cat)))
		fmt.Println()
		fmt.Println("| Key | Name | Qi | Stability | Success | Scaling | Notes |")
		fmt.Println("|-----|------|----|-----------|---------|---------|-------|")
		for _, act := range actions {
			fmt.Printf("| `%s` | %s | %s | %s | %.0f%% | %s | %s |\n",
				act.Key,
				act.DisplayName(),
				formatCost(act.QiCost),
				formatStability(act),
				act.EffectiveSuccessChance(),
				scalingSummary(act),
				notes(act),
			)
		}
		fmt.Println()
	}

	fmt.Println("## Summary")
	fmt.Println()
	fmt.Printf("- Total actions: %d\n", len(catalog))
	for _, cat := range categoryOrder {
		if n := len(byCategory[cat]); n > 0 {
			fmt.Printf("- %s: %d\n", title(string(cat)), n)
		}
	}
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func formatCost(cost float64) string {
	if cost == 0 {
		return "-"
	}
	return fmt.Sprintf("%.0f", cost)
}

func formatStability(act *craft.Action) string {
	if act.StabilityCost > 0 {
		return fmt.Sprintf("-%.0f", act.StabilityCost)
	}
	if act.StabilityGain != nil {
		return "restores"
	}
	return "-"
}

func scalingSummary(act *craft.Action) string {
	var parts []string
	if s := describe(act.CompletionScale); s != "" {
		parts = append(parts, "completion "+s)
	}
	if s := describe(act.PerfectionScale); s != "" {
		parts = append(parts, "perfection "+s)
	}
	if s := describe(act.StabilityGain); s != "" {
		parts = append(parts, "stability "+s)
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func describe(s *formula.Scaling) string {
	if s == nil {
		return ""
	}
	out := fmt.Sprintf("%g", s.Value)
	switch {
	case s.Stat != "":
		out += " x " + s.Stat
	case s.Variable != "":
		out += " x " + s.Variable
	case s.Equation != "":
		out += " x eq"
	}
	if s.Max != nil {
		out += fmt.Sprintf(" (max %g)", s.Max.Value)
	}
	return out
}

func notes(act *craft.Action) string {
	var parts []string
	if act.RequiresCondition != "" {
		parts = append(parts, "requires "+string(craft.NormalizeCondition(act.RequiresCondition)))
	}
	if act.Cooldown > 0 {
		parts = append(parts, fmt.Sprintf("cooldown %d", act.Cooldown))
	}
	if act.IsItem {
		parts = append(parts, "item")
	}
	if act.PreventDecay {
		parts = append(parts, "prevents decay")
	}
	if act.Buff != nil {
		parts = append(parts, fmt.Sprintf("%s buff x%.2g for %d turns",
			act.Buff.Type, act.Buff.Multiplier, act.Buff.Turns))
	}
	if net := act.ToxicityCost - act.ToxicityCleanse; net > 0 {
		parts = append(parts, fmt.Sprintf("toxicity +%.0f", net))
	} else if net < 0 {
		parts = append(parts, fmt.Sprintf("cleanses %.0f", -net))
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, "; ")
}
