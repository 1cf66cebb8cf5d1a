// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package adapter

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"

	"github.com/alchemancy/cauldron/services/advisor/craft"
)

// DecodeRecipe parses a recipe document: the craft configuration plus
// the action catalog, with no craft in progress. Recipes back the
// server's configured catalog and CLI recipe files, so they share the
// snapshot payload format minus the state and condition sections.
func DecodeRecipe(data []byte) ([]*craft.Action, *craft.Config, error) {
	if !gjson.ValidBytes(data) {
		return nil, nil, fmt.Errorf("%w: not valid JSON", ErrInvalidPayload)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, nil, fmt.Errorf("%w: top level is not an object", ErrInvalidPayload)
	}
	config := root.Get("config")
	if !config.IsObject() {
		return nil, nil, fmt.Errorf("%w: config section missing or not an object", ErrInvalidPayload)
	}
	catalog := root.Get("catalog")
	if !catalog.IsArray() {
		return nil, nil, fmt.Errorf("%w: catalog section missing or not an array", ErrInvalidPayload)
	}

	// Validating through a probe snapshot with a zero state reuses the
	// full snapshot rule set; the zero state itself always passes.
	snap := &craft.Snapshot{
		State:   &craft.State{},
		Catalog: parseCatalog(catalog),
		Config:  parseConfig(config),
	}
	if err := Validate(snap); err != nil {
		return nil, nil, err
	}
	snap.Normalize()
	return snap.Catalog, snap.Config, nil
}

// DecodeRecipeFile reads and decodes a recipe document from disk.
func DecodeRecipeFile(path string) ([]*craft.Action, *craft.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	return DecodeRecipe(data)
}
