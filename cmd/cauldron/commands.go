// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"github.com/spf13/cobra"

	"github.com/alchemancy/cauldron/services/advisor/search"
)

// --- Global Command Variables ---
var (
	cfgFile string
	noColor bool

	optDepth    int // lookahead depth override, 0 keeps config
	optBudgetMs int // time budget override, 0 keeps config

	adviseRotation bool
	adviseGreedy   bool
	adviseJournal  string
	adviseSession  string

	recipeFile string

	batchWorkers int

	journalDir string

	// searchOpts is the merged search configuration, loaded by the
	// root PersistentPreRun before any command runs.
	searchOpts search.Config

	rootCmd = &cobra.Command{
		Use:   "cauldron",
		Short: "Deterministic crafting advisor for the cauldron minigame",
		Long: `Cauldron simulates crafting snapshots and searches for the action
sequence that reaches the completion and perfection targets before
qi or stability run out. The same engine backs the advisor server;
this CLI runs it against snapshot files exported from the host.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initColor()

			opts, err := search.Load(cfgFile)
			if err != nil {
				fail("cannot load search config", err)
			}
			searchOpts = opts
		},
	}

	adviseCmd = &cobra.Command{
		Use:   "advise [snapshot.json]",
		Short: "Recommend the best next action for a crafting snapshot",
		Args:  cobra.ExactArgs(1),
		Run:   runAdvise, // Defined in cmd_advise.go
	}

	rotationCmd = &cobra.Command{
		Use:   "rotation [snapshot.json]",
		Short: "Project the full action sequence for a crafting snapshot",
		Args:  cobra.ExactArgs(1),
		Run:   runRotation, // Defined in cmd_advise.go
	}

	// --- Catalog ---
	actionsCmd = &cobra.Command{
		Use:   "actions",
		Short: "Inspect the action catalog of a recipe document",
	}
	actionsListCmd = &cobra.Command{
		Use:   "list",
		Short: "List every action in the recipe with costs and gates",
		Run:   runActionsList, // Defined in cmd_actions.go
	}
	actionsExplainCmd = &cobra.Command{
		Use:   "explain [action]",
		Short: "Show the full definition of one action",
		Args:  cobra.ExactArgs(1),
		Run:   runActionsExplain, // Defined in cmd_actions.go
	}

	// --- Batch ---
	batchCmd = &cobra.Command{
		Use:   "batch [directory]",
		Short: "Advise every snapshot file in a directory in parallel",
		Args:  cobra.ExactArgs(1),
		Run:   runBatch, // Defined in cmd_batch.go
	}

	// --- Journal ---
	journalCmd = &cobra.Command{
		Use:   "journal",
		Short: "Inspect recorded advisory decisions",
	}
	journalListCmd = &cobra.Command{
		Use:   "list",
		Short: "List all recorded sessions",
		Run:   runJournalList, // Defined in cmd_journal.go
	}
	journalShowCmd = &cobra.Command{
		Use:   "show [session-id]",
		Short: "Replay the decisions of one session in order",
		Args:  cobra.ExactArgs(1),
		Run:   runJournalShow, // Defined in cmd_journal.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "cauldron.yaml",
		"Search tuning file (YAML or JSON); CAULDRON_SEARCH_* env vars override it")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"Disable colored output")

	rootCmd.AddCommand(adviseCmd)
	adviseCmd.Flags().BoolVar(&adviseRotation, "rotation", false,
		"Also print the projected rotation to the targets")
	adviseCmd.Flags().BoolVar(&adviseGreedy, "greedy", false,
		"Rank by immediate gain only, no lookahead")
	adviseCmd.Flags().IntVar(&optDepth, "depth", 0, "Lookahead depth override")
	adviseCmd.Flags().IntVar(&optBudgetMs, "budget-ms", 0, "Search time budget override (ms)")
	adviseCmd.Flags().StringVar(&adviseJournal, "journal", "",
		"Journal directory; records the decision when set")
	adviseCmd.Flags().StringVar(&adviseSession, "session", "",
		"Session id to record under (default: a new one per call)")

	rootCmd.AddCommand(rotationCmd)
	rotationCmd.Flags().IntVar(&optDepth, "depth", 0, "Lookahead depth override")
	rotationCmd.Flags().IntVar(&optBudgetMs, "budget-ms", 0, "Search time budget override (ms)")

	rootCmd.AddCommand(actionsCmd)
	actionsCmd.PersistentFlags().StringVar(&recipeFile, "recipe", "",
		"Recipe document with the catalog (a snapshot file also works)")
	actionsCmd.AddCommand(actionsListCmd)
	actionsCmd.AddCommand(actionsExplainCmd)

	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 4, "Parallel searches")
	batchCmd.Flags().IntVar(&optDepth, "depth", 0, "Lookahead depth override")
	batchCmd.Flags().IntVar(&optBudgetMs, "budget-ms", 0, "Search time budget override (ms)")

	rootCmd.AddCommand(journalCmd)
	journalCmd.PersistentFlags().StringVar(&journalDir, "path", "",
		"Journal directory (required)")
	journalCmd.AddCommand(journalListCmd)
	journalCmd.AddCommand(journalShowCmd)
}

// cliOptions folds the flag overrides into the loaded configuration.
// Normalize inside search.New clamps whatever the flags carry.
func cliOptions() search.Config {
	opts := searchOpts
	if optDepth > 0 {
		opts.Depth = optDepth
	}
	if optBudgetMs > 0 {
		opts.TimeBudgetMs = optBudgetMs
	}
	return opts
}

// requireFlag exits with a usage error when a mandatory flag is empty.
func requireFlag(value, name string) {
	if value == "" {
		failMsg("--" + name + " is required")
	}
}
