//go:build ignore

// Smoke script for the advisory search pipeline.
// Run with: go run scripts/search_smoke.go
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/alchemancy/cauldron/services/advisor/craft"
	"github.com/alchemancy/cauldron/services/advisor/formula"
	"github.com/alchemancy/cauldron/services/advisor/search"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Println("==============================================================")
	fmt.Println("              ADVISORY SEARCH PIPELINE SMOKE RUN              ")
	fmt.Println("==============================================================")

	catalog := []*craft.Action{
		{
			Key:             "strike",
			Name:            "Cauldron Strike",
			Category:        craft.CategoryFusion,
			QiCost:          18,
			StabilityCost:   10,
			CompletionScale: &formula.Scaling{Value: 30},
		},
		{
			Key:             "polish",
			Name:            "Meridian Polish",
			Category:        craft.CategoryRefine,
			QiCost:          15,
			StabilityCost:   10,
			PerfectionScale: &formula.Scaling{Value: 25},
		},
		{
			Key:           "steady_hand",
			Name:          "Steady Hand",
			Category:      craft.CategoryStabilize,
			QiCost:        12,
			StabilityGain: &formula.Scaling{Value: 30},
		},
	}
	cfg := &craft.Config{
		TargetCompletion: 100,
		TargetPerfection: 100,
		Control:          100,
		Intensity:        100,
	}
	cfg.Normalize()
	state := &craft.State{
		Qi:                  194,
		Stability:           60,
		InitialMaxStability: 60,
		QiCostPct:           100,
		StabilityCostPct:    100,
		CritMultiplier:      150,
	}

	fmt.Println("\n--- Step 1: engine construction ---")
	engine := search.New(catalog, cfg, search.DefaultConfig())
	fmt.Printf("  engine ready: %d actions, targets %.0f/%.0f\n",
		len(catalog), cfg.TargetCompletion, cfg.TargetPerfection)

	fmt.Println("\n--- Step 2: greedy ranking ---")
	start := time.Now()
	res, err := engine.Greedy(ctx, state, "neutral", nil)
	if err != nil {
		log.Fatalf("greedy failed: %v", err)
	}
	fmt.Printf("  best: %s (score %.2f) in %s\n",
		res.Best.Action.DisplayName(), res.Best.Score, time.Since(start))
	for _, alt := range res.Alternatives {
		fmt.Printf("  alt:  %s (score %.2f)\n", alt.Action.DisplayName(), alt.Score)
	}

	fmt.Println("\n--- Step 3: bounded lookahead ---")
	start = time.Now()
	res, err = engine.Lookahead(ctx, state, "neutral", nil)
	if err != nil {
		log.Fatalf("lookahead failed: %v", err)
	}
	fmt.Printf("  best: %s (score %.2f, quality %.0f) in %s\n",
		res.Best.Action.DisplayName(), res.Best.Score, res.Best.Quality, time.Since(start))
	fmt.Printf("  rotation (%d steps):", len(res.Rotation))
	for _, key := range res.Rotation {
		fmt.Printf(" %s", key)
	}
	fmt.Println()
	if res.FinalState != nil {
		fmt.Printf("  projected end: completion %.1f, perfection %.1f, stability %.1f, qi %.1f\n",
			res.FinalState.Completion, res.FinalState.Perfection,
			res.FinalState.Stability, res.FinalState.Qi)
	}
	fmt.Printf("  metrics: %d nodes, depth %d, %d cache hits, %d pruned, %dms\n",
		res.Metrics.NodesExplored, res.Metrics.DepthReached,
		res.Metrics.CacheHits, res.Metrics.Pruned, res.Metrics.ElapsedMs)

	fmt.Println("\n--- Step 4: lookahead with a condition forecast ---")
	start = time.Now()
	res, err = engine.Lookahead(ctx, state, "neutral", []string{"favorable", "neutral", "unfavorable"})
	if err != nil {
		log.Fatalf("forecast lookahead failed: %v", err)
	}
	fmt.Printf("  best: %s (score %.2f) in %s\n",
		res.Best.Action.DisplayName(), res.Best.Score, time.Since(start))
	if res.Metrics.Exhausted {
		fmt.Printf("  budget exhausted by %s\n", res.Metrics.ExhaustedBy)
	}

	fmt.Println("\nSmoke run complete.")
}
