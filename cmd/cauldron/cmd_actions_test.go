// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alchemancy/cauldron/services/advisor/craft"
	"github.com/alchemancy/cauldron/services/advisor/formula"
)

func testCatalog() []*craft.Action {
	return []*craft.Action{
		{Key: "strike", Name: "Cauldron Strike", Category: craft.CategoryFusion},
		{Key: "calm", Category: craft.CategoryStabilize},
		{Key: "purify", Name: "Purifying Breath", Category: craft.CategorySupport},
	}
}

func TestFindAction_ByKeyCaseInsensitive(t *testing.T) {
	act := findAction(testCatalog(), "STRIKE")
	require.NotNil(t, act)
	assert.Equal(t, "strike", act.Key)
}

func TestFindAction_ByDisplayName(t *testing.T) {
	act := findAction(testCatalog(), "purifying breath")
	require.NotNil(t, act)
	assert.Equal(t, "purify", act.Key)
}

func TestFindAction_Unknown(t *testing.T) {
	assert.Nil(t, findAction(testCatalog(), "transmute"))
}

func TestSuggestActions_Typo(t *testing.T) {
	got := suggestActions(testCatalog(), "strkie")
	require.NotEmpty(t, got)
	assert.Equal(t, "strike", got[0])
}

func TestSuggestActions_Prefix(t *testing.T) {
	assert.Contains(t, suggestActions(testCatalog(), "pur"), "purify")
}

func TestSuggestActions_CapsAtThree(t *testing.T) {
	catalog := []*craft.Action{
		{Key: "brew1"}, {Key: "brew2"}, {Key: "brew3"}, {Key: "brew4"},
	}
	assert.Len(t, suggestActions(catalog, "brew"), 3)
}

func TestSuggestActions_NothingClose(t *testing.T) {
	assert.Empty(t, suggestActions(testCatalog(), "transmutation"))
}

func TestDescribeScaling(t *testing.T) {
	assert.Equal(t, "-", describeScaling(nil))
	assert.Equal(t, "30", describeScaling(&formula.Scaling{Value: 30}))
	assert.Equal(t, "2 x control", describeScaling(&formula.Scaling{Value: 2, Stat: "control"}))

	nested := &formula.Scaling{
		Value:    1.5,
		Stat:     "intensity",
		Additive: &formula.Scaling{Value: 10},
	}
	assert.Equal(t, "1.5 x intensity + 10", describeScaling(nested))
}
