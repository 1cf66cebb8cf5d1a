// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"

	"github.com/alchemancy/cauldron/services/advisor/journal"
)

// ListSessions lists the journaled session ids, oldest first by id.
func ListSessions(jour *journal.Journal) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := advisorTracer.Start(c.Request.Context(), "ListSessions")
		defer span.End()

		ids, err := jour.Sessions(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("failed to list journal sessions", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list sessions"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"sessions": ids, "count": len(ids)})
	}
}

// GetSessionHistory replays one journaled session in step order.
func GetSessionHistory(jour *journal.Journal) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := advisorTracer.Start(c.Request.Context(), "GetSessionHistory")
		defer span.End()

		id := c.Param("sessionId")
		entries, err := jour.Session(ctx, id)
		switch {
		case errors.Is(err, journal.ErrBadSessionID):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		case err != nil:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("failed to replay journal session", "session_id", id, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to replay session"})
			return
		}
		if entries == nil {
			entries = []journal.Entry{}
		}

		c.JSON(http.StatusOK, gin.H{"session_id": id, "entries": entries, "count": len(entries)})
	}
}
