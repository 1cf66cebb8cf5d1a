// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package craft

// ExpectedGains holds the expected-value deltas an action produces
// against a specific state and condition.
type ExpectedGains struct {
	Completion float64 `json:"completion"`
	Perfection float64 `json:"perfection"`
	Stability  float64 `json:"stability"`
	Qi         float64 `json:"qi"`
	Toxicity   float64 `json:"toxicity"`
	Harmony    float64 `json:"harmony"`
}

// Recommendation is one ranked advisory: an action, its expected gains,
// its score, and presentation metadata.
type Recommendation struct {
	Action *Action       `json:"action"`
	Gains  ExpectedGains `json:"gains"`
	Score  float64       `json:"score"`

	// Rationale is a short human-readable justification.
	Rationale string `json:"rationale,omitempty"`

	// Quality rates the recommendation 0-100, normalized against the
	// score range the search explored.
	Quality float64 `json:"quality"`

	// ConsumesBuff marks actions that spend an active timed buff.
	ConsumesBuff bool `json:"consumes_buff,omitempty"`

	// FollowUp is the projected next action after this one.
	FollowUp *Action `json:"follow_up,omitempty"`
}

// Metrics carries search diagnostics. A search that ran out of budget
// still returns a result; Exhausted and ExhaustedBy report the
// degradation.
type Metrics struct {
	NodesExplored int64  `json:"nodes_explored"`
	CacheHits     int64  `json:"cache_hits"`
	ElapsedMs     int64  `json:"elapsed_ms"`
	DepthReached  int    `json:"depth_reached"`
	Pruned        int64  `json:"pruned"`
	Exhausted     bool   `json:"exhausted,omitempty"`
	ExhaustedBy   string `json:"exhausted_by,omitempty"`
}

// SearchResult is the full output of one search invocation. Created
// fresh per call and never retained by the engine.
type SearchResult struct {
	// Best is the top recommendation (nil when no action is legal).
	Best *Recommendation `json:"best,omitempty"`

	// Alternatives are the remaining ranked recommendations.
	Alternatives []*Recommendation `json:"alternatives,omitempty"`

	// Rotation is the projected full action sequence, starting with
	// the best action.
	Rotation []string `json:"rotation,omitempty"`

	// FinalState is the projected state after the rotation.
	FinalState *State `json:"final_state,omitempty"`

	Metrics Metrics `json:"metrics"`
}
