// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package transition

import (
	"log/slog"

	"github.com/alchemancy/cauldron/services/advisor/craft"
)

// Authority is an optional external affordability arbiter, for hosts
// whose resource bookkeeping lives outside the engine (shared pools,
// reserves the snapshot cannot see). When present and answering, its
// verdict replaces the local qi check. A nil Authority, an error, or a
// panic all fall back to the local check.
type Authority interface {
	// CanAfford reports whether the state can pay the action's
	// effective costs.
	CanAfford(s *craft.State, a *craft.Action, qiCost, stabilityCost float64) (bool, error)
}

// consultAuthority asks the external authority for a verdict. The
// second return reports whether the verdict is usable; false means the
// caller must decide locally.
func consultAuthority(auth Authority, s *craft.State, a *craft.Action, qiCost, stabilityCost float64) (allowed, ok bool) {
	if auth == nil {
		return false, false
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("affordability authority panicked, using local check",
				"action", a.Key, "panic", r)
			allowed, ok = false, false
		}
	}()
	verdict, err := auth.CanAfford(s, a, qiCost, stabilityCost)
	if err != nil {
		slog.Warn("affordability authority failed, using local check",
			"action", a.Key, "error", err)
		return false, false
	}
	return verdict, true
}
