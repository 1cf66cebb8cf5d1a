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
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/alchemancy/cauldron/services/advisor/adapter"
	"github.com/alchemancy/cauldron/services/advisor/search"
)

// batchResult is the outcome for one snapshot file.
type batchResult struct {
	File    string
	Action  string
	Score   float64
	Steps   int
	Nodes   int64
	Elapsed int64
	Status  string
	Err     error
}

// adviseFile runs one isolated search over a snapshot file. Each call
// builds its own engine, so parallel workers never share a memo cache.
func adviseFile(ctx context.Context, path string, opts search.Config) batchResult {
	res := batchResult{File: filepath.Base(path)}

	data, err := os.ReadFile(path)
	if err != nil {
		res.Status = "unreadable"
		res.Err = err
		return res
	}

	snap, err := adapter.Decode(data)
	if err != nil {
		res.Status = "invalid"
		res.Err = err
		return res
	}

	eng := search.New(snap.Catalog, snap.Config, opts)
	out, err := eng.Lookahead(ctx, snap.State, snap.Condition, snap.Forecast)
	switch {
	case errors.Is(err, search.ErrTargetsMet):
		res.Status = "targets met"
		return res
	case errors.Is(err, search.ErrNoLegalActions):
		res.Status = "stuck"
		return res
	case err != nil:
		res.Status = "failed"
		res.Err = err
		return res
	}

	res.Status = "ok"
	res.Action = out.Best.Action.Key
	res.Score = out.Best.Score
	res.Steps = len(out.Rotation)
	res.Nodes = out.Metrics.NodesExplored
	res.Elapsed = out.Metrics.ElapsedMs
	return res
}

// adviseDir searches every *.json snapshot under dir with a bounded
// worker pool. Per-file failures land in the result row instead of
// aborting the batch.
func adviseDir(ctx context.Context, dir string, opts search.Config, workers int) ([]batchResult, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no *.json snapshots in %s", dir)
	}
	sort.Strings(files)

	if workers < 1 {
		workers = 1
	}

	results := make([]batchResult, len(files))
	var g errgroup.Group
	g.SetLimit(workers)
	for i := range files {
		i := i
		g.Go(func() error {
			results[i] = adviseFile(ctx, files[i], opts)
			return nil
		})
	}
	// Workers report failures per file, never through the group.
	_ = g.Wait()

	return results, nil
}

// runBatch is the CLI handler for "cauldron batch".
//
// # Exit Codes
//
//   - 0: Every snapshot produced advice or a clean outcome
//   - 2: Directory empty, or at least one snapshot failed
func runBatch(cmd *cobra.Command, args []string) {
	results, err := adviseDir(context.Background(), args[0], cliOptions(), batchWorkers)
	if err != nil {
		fail("batch failed", err)
	}

	failures := 0
	fmt.Printf("%-28s %-12s %-16s %10s %6s %10s %8s\n",
		"FILE", "STATUS", "ACTION", "SCORE", "STEPS", "NODES", "TIME")
	for _, r := range results {
		// Pad before coloring: ANSI escapes would count against the
		// column width otherwise.
		padded := fmt.Sprintf("%-12s", r.Status)
		var status string
		switch r.Status {
		case "ok", "targets met":
			status = goodColor(padded)
		case "stuck":
			status = warnColor(padded)
		default:
			status = badColor(padded)
			failures++
		}

		if r.Err != nil {
			fmt.Printf("%-28s %s %s\n", r.File, status, dimColor(r.Err.Error()))
			continue
		}
		if r.Action == "" {
			fmt.Printf("%-28s %s\n", r.File, status)
			continue
		}
		fmt.Printf("%-28s %s %-16s %10.2f %6d %10d %6dms\n",
			r.File, status, r.Action, r.Score, r.Steps, r.Nodes, r.Elapsed)
	}
	fmt.Printf("%s\n", dimColor(fmt.Sprintf("%d snapshots, %d failed", len(results), failures)))

	if failures > 0 {
		os.Exit(CLIExitError)
	}
}
