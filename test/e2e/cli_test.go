// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package e2e

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// advisableSnapshot finishes in two strikes; searches resolve fast.
const advisableSnapshot = `{
	"state": {"qi": 200, "stability": 60, "initial_max_stability": 70},
	"config": {"target_completion": 60, "target_perfection": 0, "control": 100, "intensity": 100},
	"catalog": [
		{"key": "strike", "category": "fusion", "qi_cost": 18, "stability_cost": 10, "completion_scale": {"value": 30}},
		{"key": "calm", "category": "stabilize", "qi_cost": 10, "stability_gain": {"value": 25}}
	],
	"condition": "neutral"
}`

const finishedSnapshot = `{
	"state": {"qi": 200, "stability": 60, "initial_max_stability": 70, "completion": 100},
	"config": {"target_completion": 60, "target_perfection": 0, "control": 100, "intensity": 100},
	"catalog": [
		{"key": "strike", "category": "fusion", "qi_cost": 18, "completion_scale": {"value": 30}}
	]
}`

// stuckSnapshot has no qi left and every action costs qi.
const stuckSnapshot = `{
	"state": {"qi": 0, "stability": 60, "initial_max_stability": 70},
	"config": {"target_completion": 60, "target_perfection": 0, "control": 100, "intensity": 100},
	"catalog": [
		{"key": "strike", "category": "fusion", "qi_cost": 18, "stability_cost": 10, "completion_scale": {"value": 30}},
		{"key": "calm", "category": "stabilize", "qi_cost": 10, "stability_gain": {"value": 25}}
	]
}`

const recipeDoc = `{
	"config": {"target_completion": 60, "target_perfection": 0, "control": 100, "intensity": 100},
	"catalog": [
		{"key": "strike", "name": "Cauldron Strike", "category": "fusion", "qi_cost": 18, "completion_scale": {"value": 30}},
		{"key": "calm", "category": "stabilize", "qi_cost": 10, "stability_gain": {"value": 25}}
	]
}`

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
	return path
}

// runCLI executes the built binary and returns combined output plus the
// exit code.
func runCLI(t *testing.T, args ...string) (string, int) {
	t.Helper()
	cmd := exec.Command(cliBinary, args...)
	outBytes, err := cmd.CombinedOutput()
	output := string(outBytes)

	if err == nil {
		return output, 0
	}
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		t.Fatalf("CLI did not run: %v\nOutput: %s", err, output)
	}
	return output, exitErr.ExitCode()
}

func TestAdvise_RecommendsAction(t *testing.T) {
	snap := writeFixture(t, "snap.json", advisableSnapshot)

	output, code := runCLI(t, "advise", snap)

	if code != 0 {
		t.Fatalf("Exit code = %d, want 0\nOutput: %s", code, output)
	}
	if !strings.Contains(output, "Recommended:") {
		t.Errorf("Output missing recommendation header:\n%s", output)
	}
	if !strings.Contains(output, "strike") {
		t.Errorf("Output should recommend strike:\n%s", output)
	}
	if !strings.Contains(output, "search:") {
		t.Errorf("Output missing metrics line:\n%s", output)
	}
}

func TestAdvise_TargetsMet(t *testing.T) {
	snap := writeFixture(t, "done.json", finishedSnapshot)

	output, code := runCLI(t, "advise", snap)

	if code != 0 {
		t.Fatalf("Exit code = %d, want 0\nOutput: %s", code, output)
	}
	if !strings.Contains(output, "Craft complete") {
		t.Errorf("Output should report completion:\n%s", output)
	}
}

func TestAdvise_StuckExitCode(t *testing.T) {
	snap := writeFixture(t, "stuck.json", stuckSnapshot)

	output, code := runCLI(t, "advise", snap)

	if code != 1 {
		t.Fatalf("Exit code = %d, want 1\nOutput: %s", code, output)
	}
	if !strings.Contains(output, "Craft stuck") {
		t.Errorf("Output should report the stuck craft:\n%s", output)
	}
}

func TestAdvise_MissingSnapshot(t *testing.T) {
	output, code := runCLI(t, "advise", filepath.Join(t.TempDir(), "missing.json"))

	if code != 2 {
		t.Fatalf("Exit code = %d, want 2\nOutput: %s", code, output)
	}
	if !strings.Contains(output, "cannot read snapshot") {
		t.Errorf("Output should name the failure:\n%s", output)
	}
}

func TestAdvise_JournalRoundTrip(t *testing.T) {
	snap := writeFixture(t, "snap.json", advisableSnapshot)
	journalDir := filepath.Join(t.TempDir(), "journal")
	sessionID := "3b241101-e2bb-4255-8caf-4136c566a962"

	output, code := runCLI(t, "advise", snap, "--journal", journalDir, "--session", sessionID)
	if code != 0 {
		t.Fatalf("advise exit code = %d, want 0\nOutput: %s", code, output)
	}
	if !strings.Contains(output, "recorded to session "+sessionID) {
		t.Errorf("advise should confirm the journal write:\n%s", output)
	}

	output, code = runCLI(t, "journal", "list", "--path", journalDir)
	if code != 0 {
		t.Fatalf("journal list exit code = %d, want 0\nOutput: %s", code, output)
	}
	if !strings.Contains(output, sessionID) {
		t.Errorf("journal list should name the session:\n%s", output)
	}

	output, code = runCLI(t, "journal", "show", sessionID, "--path", journalDir)
	if code != 0 {
		t.Fatalf("journal show exit code = %d, want 0\nOutput: %s", code, output)
	}
	if !strings.Contains(output, "strike") {
		t.Errorf("journal show should list the recorded action:\n%s", output)
	}
}

func TestRotation_ProjectsLine(t *testing.T) {
	snap := writeFixture(t, "snap.json", advisableSnapshot)

	output, code := runCLI(t, "rotation", snap)

	if code != 0 {
		t.Fatalf("Exit code = %d, want 0\nOutput: %s", code, output)
	}
	if !strings.Contains(output, "Rotation:") {
		t.Errorf("Output missing rotation header:\n%s", output)
	}
	if !strings.Contains(output, "final:") {
		t.Errorf("Output missing projected final state:\n%s", output)
	}
	if !strings.Contains(output, "targets met") {
		t.Errorf("Two strikes should reach the targets:\n%s", output)
	}
}

func TestActionsList(t *testing.T) {
	recipe := writeFixture(t, "recipe.json", recipeDoc)

	output, code := runCLI(t, "actions", "list", "--recipe", recipe)

	if code != 0 {
		t.Fatalf("Exit code = %d, want 0\nOutput: %s", code, output)
	}
	if !strings.Contains(output, "KEY") {
		t.Errorf("Output missing table header:\n%s", output)
	}
	if !strings.Contains(output, "Cauldron Strike") || !strings.Contains(output, "calm") {
		t.Errorf("Output should list both actions:\n%s", output)
	}
	if !strings.Contains(output, "2 actions") {
		t.Errorf("Output missing count footer:\n%s", output)
	}
}

func TestActionsExplain_Known(t *testing.T) {
	recipe := writeFixture(t, "recipe.json", recipeDoc)

	output, code := runCLI(t, "actions", "explain", "strike", "--recipe", recipe)

	if code != 0 {
		t.Fatalf("Exit code = %d, want 0\nOutput: %s", code, output)
	}
	if !strings.Contains(output, "Cauldron Strike") {
		t.Errorf("Output missing display name:\n%s", output)
	}
	if !strings.Contains(output, "fusion") {
		t.Errorf("Output missing category:\n%s", output)
	}
}

func TestActionsExplain_UnknownSuggests(t *testing.T) {
	recipe := writeFixture(t, "recipe.json", recipeDoc)

	output, code := runCLI(t, "actions", "explain", "strkie", "--recipe", recipe)

	if code != 2 {
		t.Fatalf("Exit code = %d, want 2\nOutput: %s", code, output)
	}
	if !strings.Contains(output, "unknown action") {
		t.Errorf("Output should name the unknown action:\n%s", output)
	}
	if !strings.Contains(output, "did you mean strike?") {
		t.Errorf("Output should suggest the close key:\n%s", output)
	}
}

func TestBatch_Directory(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"a-ok.json":   advisableSnapshot,
		"b-done.json": finishedSnapshot,
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatalf("Failed to write fixture: %v", err)
		}
	}

	output, code := runCLI(t, "batch", dir)

	if code != 0 {
		t.Fatalf("Exit code = %d, want 0\nOutput: %s", code, output)
	}
	if !strings.Contains(output, "targets met") {
		t.Errorf("Output should mark the finished craft:\n%s", output)
	}
	if !strings.Contains(output, "2 snapshots, 0 failed") {
		t.Errorf("Output missing summary footer:\n%s", output)
	}
}
