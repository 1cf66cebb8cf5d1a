// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/alchemancy/cauldron/services/advisor/adapter"
	"github.com/alchemancy/cauldron/services/advisor/craft"
	"github.com/alchemancy/cauldron/services/advisor/journal"
	"github.com/alchemancy/cauldron/services/advisor/observability"
	"github.com/alchemancy/cauldron/services/advisor/search"
)

var advisorTracer = otel.Tracer("cauldron.advisor.handlers")

// decodeSnapshot reads and decodes the request body, writing the error
// response itself on failure: 400 for malformed payloads, 422 for
// payloads that decode but describe an unusable craft. Returns nil when
// a response was written.
func decodeSnapshot(c *gin.Context, span trace.Span, endpoint observability.Endpoint) *craft.Snapshot {
	data, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read request body"})
		return nil
	}

	snap, err := adapter.Decode(data)
	if err == nil {
		return snap
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	slog.Error("snapshot decode failed", "error", err)

	status := http.StatusBadRequest
	code := observability.ErrorCodeInvalidPayload
	if errors.Is(err, adapter.ErrInvalidSnapshot) {
		status = http.StatusUnprocessableEntity
		code = observability.ErrorCodeInvalidSnapshot
	}
	if m := observability.DefaultMetrics; m != nil {
		m.RecordError(endpoint, code)
		m.RecordRequest(endpoint, false)
	}
	c.JSON(status, gin.H{"error": err.Error()})
	return nil
}

// queryOptions folds per-request query overrides into the configured
// search options. Normalize inside search.New clamps whatever the
// client sends, so no range checks here.
func queryOptions(c *gin.Context, base search.Config) search.Config {
	if v, err := strconv.Atoi(c.Query("depth")); err == nil && v > 0 {
		base.Depth = v
	}
	if v, err := strconv.Atoi(c.Query("budget_ms")); err == nil && v > 0 {
		base.TimeBudgetMs = v
	}
	return base
}

// recordDecision journals the chosen action under the caller's session.
// Journal failures are logged and swallowed; the advice was already
// computed and must still be served.
func recordDecision(ctx context.Context, jour *journal.Journal, sessionID string, snap *craft.Snapshot, res *craft.SearchResult) {
	if jour == nil || sessionID == "" {
		return
	}

	entry := journal.Entry{
		SessionID:   sessionID,
		Step:        snap.State.Step,
		Condition:   string(snap.Tier()),
		ActionKey:   res.Best.Action.Key,
		Score:       res.Best.Score,
		Metrics:     res.Metrics,
		StateDigest: journal.StateDigest(snap.State),
	}
	if err := jour.Record(ctx, entry); err != nil {
		slog.Warn("failed to journal advisory decision", "session_id", sessionID, "error", err)
	}
}

// HandleAdvise runs one advisory search over the posted snapshot and
// returns the ranked recommendations.
//
// Query parameters: mode selects greedy or lookahead (the default),
// depth and budget_ms override the configured search options, and
// session_id journals the decision under that session.
func HandleAdvise(jour *journal.Journal, opts search.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := advisorTracer.Start(c.Request.Context(), "HandleAdvise")
		defer span.End()

		mode := c.DefaultQuery("mode", "lookahead")
		if mode != "greedy" && mode != "lookahead" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be greedy or lookahead"})
			return
		}

		snap := decodeSnapshot(c, span, observability.EndpointAdvise)
		if snap == nil {
			return
		}

		eng := search.New(snap.Catalog, snap.Config, queryOptions(c, opts))

		m := observability.DefaultMetrics
		if m != nil {
			m.SearchStarted()
		}
		var res *craft.SearchResult
		var err error
		if mode == "greedy" {
			res, err = eng.Greedy(ctx, snap.State, snap.Condition, snap.Forecast)
		} else {
			res, err = eng.Lookahead(ctx, snap.State, snap.Condition, snap.Forecast)
		}
		if m != nil {
			m.SearchEnded()
		}

		switch {
		case errors.Is(err, search.ErrTargetsMet):
			if m != nil {
				m.RecordRequest(observability.EndpointAdvise, true)
			}
			c.JSON(http.StatusOK, gin.H{"status": "targets_met"})
			return
		case errors.Is(err, search.ErrNoLegalActions):
			if m != nil {
				m.RecordRequest(observability.EndpointAdvise, true)
			}
			c.JSON(http.StatusOK, gin.H{"status": "no_legal_actions"})
			return
		case err != nil:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("advisory search failed", "mode", mode, "error", err)
			if m != nil {
				m.RecordError(observability.EndpointAdvise, observability.ErrorCodeInternal)
				m.RecordRequest(observability.EndpointAdvise, false)
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "advisory search failed"})
			return
		}

		span.SetAttributes(
			attribute.String("action", res.Best.Action.Key),
			attribute.Int64("nodes", res.Metrics.NodesExplored),
			attribute.Int("depth", res.Metrics.DepthReached),
		)
		if m != nil {
			m.RecordRequest(observability.EndpointAdvise, true)
			m.ObserveSearch(observability.EndpointAdvise, float64(res.Metrics.ElapsedMs)/1000, res.Metrics.NodesExplored)
			m.RecordExhaustion(observability.EndpointAdvise, res.Metrics.ExhaustedBy)
		}

		recordDecision(ctx, jour, c.Query("session_id"), snap, res)

		c.JSON(http.StatusOK, gin.H{"status": "ok", "result": res})
	}
}

// HandleRotation projects a full rotation from the posted snapshot:
// the action sequence the lookahead would commit turn by turn, with the
// simulated final state. Rotations are projections, not decisions, so
// they are never journaled.
//
// Query parameters: depth and budget_ms, as in HandleAdvise.
func HandleRotation(opts search.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := advisorTracer.Start(c.Request.Context(), "HandleRotation")
		defer span.End()

		snap := decodeSnapshot(c, span, observability.EndpointRotation)
		if snap == nil {
			return
		}

		eng := search.New(snap.Catalog, snap.Config, queryOptions(c, opts))

		m := observability.DefaultMetrics
		if m != nil {
			m.SearchStarted()
		}
		res, err := eng.Lookahead(ctx, snap.State, snap.Condition, snap.Forecast)
		if m != nil {
			m.SearchEnded()
		}

		switch {
		case errors.Is(err, search.ErrTargetsMet):
			if m != nil {
				m.RecordRequest(observability.EndpointRotation, true)
			}
			c.JSON(http.StatusOK, gin.H{"status": "targets_met", "rotation": []string{}, "steps": 0})
			return
		case errors.Is(err, search.ErrNoLegalActions):
			if m != nil {
				m.RecordRequest(observability.EndpointRotation, true)
			}
			c.JSON(http.StatusOK, gin.H{"status": "no_legal_actions", "rotation": []string{}, "steps": 0})
			return
		case err != nil:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("rotation search failed", "error", err)
			if m != nil {
				m.RecordError(observability.EndpointRotation, observability.ErrorCodeInternal)
				m.RecordRequest(observability.EndpointRotation, false)
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "rotation search failed"})
			return
		}

		span.SetAttributes(
			attribute.Int("steps", len(res.Rotation)),
			attribute.Int64("nodes", res.Metrics.NodesExplored),
		)
		if m != nil {
			m.RecordRequest(observability.EndpointRotation, true)
			m.ObserveSearch(observability.EndpointRotation, float64(res.Metrics.ElapsedMs)/1000, res.Metrics.NodesExplored)
			m.RecordExhaustion(observability.EndpointRotation, res.Metrics.ExhaustedBy)
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"rotation":    res.Rotation,
			"steps":       len(res.Rotation),
			"final_state": res.FinalState,
			"targets_met": snap.Config.TargetsMet(res.FinalState),
			"metrics":     res.Metrics,
		})
	}
}
