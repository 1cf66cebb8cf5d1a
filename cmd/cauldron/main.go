// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command cauldron runs the crafting advisor against snapshot files
// exported from the host game.
//
// # Usage
//
//	cauldron advise snapshot.json --rotation
//	cauldron rotation snapshot.json --depth 40
//	cauldron actions list --recipe recipe.json
//	cauldron actions explain strike --recipe recipe.json
//	cauldron batch ./snapshots --workers 8
//	cauldron journal list --path ./journal
//	cauldron journal show 5f1c... --path ./journal
//
// Search tuning comes from cauldron.yaml (or --config), overridden by
// the CAULDRON_SEARCH_* environment variables and per-command flags.
package main

import (
	"os"
)

func main() {
	// Cobra prints usage errors itself; only the exit code is ours.
	if err := rootCmd.Execute(); err != nil {
		os.Exit(CLIExitError)
	}
}
