// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alchemancy/cauldron/services/advisor/journal"
)

// openJournal opens the directory named by --path, exiting on failure.
func openJournal() *journal.Journal {
	requireFlag(journalDir, "path")

	jour, err := journal.Open(journal.DefaultConfig(journalDir))
	if err != nil {
		fail("cannot open journal", err)
	}
	return jour
}

// runJournalList is the CLI handler for "cauldron journal list".
func runJournalList(cmd *cobra.Command, args []string) {
	jour := openJournal()
	defer jour.Close()

	ids, err := jour.Sessions(context.Background())
	if err != nil {
		fail("cannot list sessions", err)
	}

	if len(ids) == 0 {
		fmt.Println("No sessions recorded.")
		return
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	fmt.Printf("%s\n", dimColor(fmt.Sprintf("%d sessions", len(ids))))
}

// runJournalShow is the CLI handler for "cauldron journal show". It
// replays one session's decisions in step order.
func runJournalShow(cmd *cobra.Command, args []string) {
	jour := openJournal()
	defer jour.Close()

	entries, err := jour.Session(context.Background(), args[0])
	if err != nil {
		fail("cannot replay session", err)
	}

	if len(entries) == 0 {
		fmt.Printf("No entries for session %s.\n", args[0])
		return
	}

	fmt.Printf("%s %s\n", headerColor("Session"), args[0])
	fmt.Printf("%5s %-14s %-16s %10s %10s %8s  %s\n",
		"STEP", "CONDITION", "ACTION", "SCORE", "NODES", "TIME", "DIGEST")
	for _, e := range entries {
		fmt.Printf("%5d %-14s %-16s %10.2f %10d %6dms  %s\n",
			e.Step, e.Condition, e.ActionKey, e.Score,
			e.Metrics.NodesExplored, e.Metrics.ElapsedMs,
			dimColor(shortDigest(e.StateDigest)))
	}
	fmt.Printf("%s\n", dimColor(fmt.Sprintf("%d decisions", len(entries))))
}

// shortDigest truncates a state digest for table display.
func shortDigest(digest string) string {
	if len(digest) <= 12 {
		return digest
	}
	return digest[:12]
}
