// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alchemancy/cauldron/services/advisor/craft"
	"github.com/alchemancy/cauldron/services/advisor/journal"
	"github.com/alchemancy/cauldron/services/advisor/search"
)

// advisePayload is a minimal craft the engine can finish: two strikes
// reach the completion target, so plans are short and deterministic.
const advisePayload = `{
	"state": {"qi": 200, "stability": 60, "initial_max_stability": 70},
	"config": {"target_completion": 60, "target_perfection": 0, "control": 100, "intensity": 100},
	"catalog": [
		{"key": "strike", "category": "fusion", "qi_cost": 18, "stability_cost": 10, "completion_scale": {"value": 30}},
		{"key": "calm", "category": "stabilize", "qi_cost": 10, "stability_gain": {"value": 25}}
	],
	"condition": "neutral"
}`

func adviseRouter(jour *journal.Journal) *gin.Engine {
	router := gin.New()
	router.POST("/v1/advise", HandleAdvise(jour, search.DefaultConfig()))
	router.POST("/v1/rotation", HandleRotation(search.DefaultConfig()))
	return router
}

func postJSON(t *testing.T, router *gin.Engine, url, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", url, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestHandleAdvise_Lookahead(t *testing.T) {
	w := postJSON(t, adviseRouter(nil), "/v1/advise", advisePayload)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status string              `json:"status"`
		Result *craft.SearchResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)
	require.NotNil(t, resp.Result)
	require.NotNil(t, resp.Result.Best)

	assert.Equal(t, "strike", resp.Result.Best.Action.Key)
	assert.NotEmpty(t, resp.Result.Rotation)
	assert.Greater(t, resp.Result.Metrics.NodesExplored, int64(0))
}

func TestHandleAdvise_Greedy(t *testing.T) {
	w := postJSON(t, adviseRouter(nil), "/v1/advise?mode=greedy", advisePayload)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status string              `json:"status"`
		Result *craft.SearchResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)
	require.NotNil(t, resp.Result)
	assert.Equal(t, "strike", resp.Result.Best.Action.Key)
	assert.Equal(t, 1, resp.Result.Metrics.DepthReached)
}

func TestHandleAdvise_UnknownMode(t *testing.T) {
	w := postJSON(t, adviseRouter(nil), "/v1/advise?mode=frantic", advisePayload)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "mode must be greedy or lookahead")
}

func TestHandleAdvise_TargetsMet(t *testing.T) {
	done := `{
		"state": {"qi": 200, "stability": 60, "initial_max_stability": 70, "completion": 100},
		"config": {"target_completion": 60, "target_perfection": 0, "control": 100, "intensity": 100},
		"catalog": [
			{"key": "strike", "category": "fusion", "qi_cost": 18, "completion_scale": {"value": 30}}
		]
	}`

	w := postJSON(t, adviseRouter(nil), "/v1/advise", done)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "targets_met", resp["status"])
}

func TestHandleAdvise_InvalidPayload(t *testing.T) {
	w := postJSON(t, adviseRouter(nil), "/v1/advise", `{"state": 5}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "state")
}

func TestHandleAdvise_InvalidSnapshot(t *testing.T) {
	dup := `{
		"state": {"qi": 200, "stability": 60, "initial_max_stability": 70},
		"config": {"target_completion": 60, "target_perfection": 0, "control": 100, "intensity": 100},
		"catalog": [
			{"key": "strike", "category": "fusion", "completion_scale": {"value": 30}},
			{"key": "strike", "category": "refine", "perfection_scale": {"value": 25}}
		]
	}`

	w := postJSON(t, adviseRouter(nil), "/v1/advise", dup)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "duplicate action key")
}

func TestHandleAdvise_JournalsDecision(t *testing.T) {
	jour := newTestJournal(t)

	id := journal.NewSessionID()
	w := postJSON(t, adviseRouter(jour), "/v1/advise?session_id="+id, advisePayload)
	require.Equal(t, http.StatusOK, w.Code)

	entries, err := jour.Session(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	assert.Equal(t, "strike", entries[0].ActionKey)
	assert.Equal(t, 0, entries[0].Step)
	assert.Equal(t, "neutral", entries[0].Condition)
	assert.Len(t, entries[0].StateDigest, 64)
}

func TestHandleAdvise_BadSessionStillServes(t *testing.T) {
	// The journal rejects the malformed session id; advice still flows.
	w := postJSON(t, adviseRouter(newTestJournal(t)), "/v1/advise?session_id=not-a-uuid", advisePayload)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestHandleRotation(t *testing.T) {
	w := postJSON(t, adviseRouter(nil), "/v1/rotation", advisePayload)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status     string        `json:"status"`
		Rotation   []string      `json:"rotation"`
		Steps      int           `json:"steps"`
		FinalState *craft.State  `json:"final_state"`
		TargetsMet bool          `json:"targets_met"`
		Metrics    craft.Metrics `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)

	require.NotEmpty(t, resp.Rotation)
	assert.Equal(t, "strike", resp.Rotation[0])
	assert.Equal(t, len(resp.Rotation), resp.Steps)
	assert.True(t, resp.TargetsMet)

	require.NotNil(t, resp.FinalState)
	assert.GreaterOrEqual(t, resp.FinalState.Completion, 60.0)
}

func TestHandleRotation_InvalidSnapshot(t *testing.T) {
	w := postJSON(t, adviseRouter(nil), "/v1/rotation", `{"config": {}, "catalog": []}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
