// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package search

import "errors"

// Sentinel errors for the search package.
var (
	// Budget errors. Exhaustion mid-search never surfaces as an error;
	// these are returned by the budget tracker itself.
	ErrBudgetExhausted   = errors.New("search budget exhausted")
	ErrTimeLimitExceeded = errors.New("search time limit exceeded")
	ErrNodeLimitExceeded = errors.New("search node limit exceeded")

	// Input errors
	ErrNilState     = errors.New("nil crafting state")
	ErrEmptyCatalog = errors.New("empty action catalog")
	ErrNilConfig    = errors.New("nil craft config")

	// Terminal outcomes. Callers distinguish "nothing to advise" from
	// a real failure with errors.Is.
	ErrNoLegalActions = errors.New("no legal actions available")
	ErrTargetsMet     = errors.New("both targets already met")
)
