// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package adapter decodes host export payloads into engine inputs.
//
// Host exports are JSON but not under our control: they carry extra UI
// fields, occasionally stringify numbers and booleans, and spell
// condition tiers in whatever flavor the active craft skin uses.
// Decoding is therefore tolerant (field-by-field gjson access with
// sensible defaults) while validation is strict (validate tags plus the
// semantic checks tags cannot express). A payload either yields a
// complete, normalized craft.Snapshot or an error, never a partial one.
package adapter

import (
	"errors"
	"fmt"
	"os"

	"github.com/tidwall/gjson"

	"github.com/alchemancy/cauldron/services/advisor/craft"
)

// Sentinel errors. ErrInvalidPayload covers syntactic failures (the
// bytes are not a usable JSON document); ErrInvalidSnapshot covers
// semantic ones (the document decodes but describes an unusable craft).
// The server maps them to 400 and 422 respectively.
var (
	ErrInvalidPayload  = errors.New("invalid snapshot payload")
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

// Decode parses a host export payload into a validated, normalized
// snapshot. On any error the returned snapshot is nil.
func Decode(data []byte) (*craft.Snapshot, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrInvalidPayload)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: top level is not an object", ErrInvalidPayload)
	}
	state := root.Get("state")
	if !state.IsObject() {
		return nil, fmt.Errorf("%w: state section missing or not an object", ErrInvalidPayload)
	}
	config := root.Get("config")
	if !config.IsObject() {
		return nil, fmt.Errorf("%w: config section missing or not an object", ErrInvalidPayload)
	}
	catalog := root.Get("catalog")
	if !catalog.IsArray() {
		return nil, fmt.Errorf("%w: catalog section missing or not an array", ErrInvalidPayload)
	}

	snap := &craft.Snapshot{
		State:     parseState(state),
		Catalog:   parseCatalog(catalog),
		Config:    parseConfig(config),
		Condition: root.Get("condition").String(),
		Forecast:  parseForecast(root.Get("forecast")),
	}
	if err := Validate(snap); err != nil {
		return nil, err
	}
	snap.Normalize()
	return snap, nil
}

// DecodeFile reads and decodes a snapshot payload from disk.
func DecodeFile(path string) (*craft.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Decode(data)
}
