// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alchemancy/cauldron/services/advisor/adapter"
	"github.com/alchemancy/cauldron/services/advisor/craft"
	"github.com/alchemancy/cauldron/services/advisor/journal"
	"github.com/alchemancy/cauldron/services/advisor/search"
)

// loadSnapshot reads and decodes a snapshot file, exiting on failure.
func loadSnapshot(path string) *craft.Snapshot {
	data, err := os.ReadFile(path)
	if err != nil {
		fail("cannot read snapshot", err)
	}

	snap, err := adapter.Decode(data)
	if err != nil {
		fail("cannot decode snapshot", err)
	}
	return snap
}

// runSearch executes one search over a snapshot and handles the two
// clean non-advice outcomes. Returns nil after printing when the craft
// is already finished or stuck.
func runSearch(snap *craft.Snapshot, greedy bool) *craft.SearchResult {
	eng := search.New(snap.Catalog, snap.Config, cliOptions())

	var res *craft.SearchResult
	var err error
	if greedy {
		res, err = eng.Greedy(context.Background(), snap.State, snap.Condition, snap.Forecast)
	} else {
		res, err = eng.Lookahead(context.Background(), snap.State, snap.Condition, snap.Forecast)
	}

	switch {
	case errors.Is(err, search.ErrTargetsMet):
		fmt.Println(goodColor("Craft complete: both targets are already met."))
		os.Exit(CLIExitSuccess)
	case errors.Is(err, search.ErrNoLegalActions):
		fmt.Println(badColor("Craft stuck: no legal action remains from this state."))
		fmt.Printf("  state: %s\n", formatState(snap.State, snap.Config))
		os.Exit(CLIExitStuck)
	case err != nil:
		fail("advisory search failed", err)
	}

	return res
}

// recordDecision appends the committed choice to the journal directory
// given by --journal. Failure to record does not discard the advice.
func recordDecision(snap *craft.Snapshot, res *craft.SearchResult) {
	if adviseJournal == "" {
		return
	}

	jour, err := journal.Open(journal.DefaultConfig(adviseJournal))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", warnColor(fmt.Sprintf("journal open failed: %v", err)))
		return
	}
	defer jour.Close()

	sessionID := adviseSession
	if sessionID == "" {
		sessionID = journal.NewSessionID()
	}

	entry := journal.Entry{
		SessionID:   sessionID,
		Step:        snap.State.Step,
		Condition:   string(snap.Tier()),
		ActionKey:   res.Best.Action.Key,
		Score:       res.Best.Score,
		Metrics:     res.Metrics,
		StateDigest: journal.StateDigest(snap.State),
	}
	if err := jour.Record(context.Background(), entry); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", warnColor(fmt.Sprintf("journal record failed: %v", err)))
		return
	}

	fmt.Printf("%s\n", dimColor(fmt.Sprintf("recorded to session %s (step %d)", sessionID, entry.Step)))
}

// runAdvise is the CLI handler for "cauldron advise".
//
// # Exit Codes
//
//   - 0: Advice produced, or targets already met
//   - 1: No legal action remains
//   - 2: Snapshot unreadable or search failed
func runAdvise(cmd *cobra.Command, args []string) {
	snap := loadSnapshot(args[0])
	res := runSearch(snap, adviseGreedy)

	fmt.Printf("%s step %d, condition %s\n",
		dimColor("snapshot:"), snap.State.Step, snap.Tier())
	printRecommendation(res.Best)
	printAlternatives(res.Alternatives)
	if adviseRotation {
		printRotation(res.Rotation, res.FinalState, snap.Config)
	}
	printMetrics(res.Metrics)

	recordDecision(snap, res)
}

// runRotation is the CLI handler for "cauldron rotation". Rotations
// are projections, not decisions, so they are never journaled.
func runRotation(cmd *cobra.Command, args []string) {
	snap := loadSnapshot(args[0])
	res := runSearch(snap, false)

	fmt.Printf("%s step %d, condition %s\n",
		dimColor("snapshot:"), snap.State.Step, snap.Tier())
	printRotation(res.Rotation, res.FinalState, snap.Config)
	printMetrics(res.Metrics)
}
