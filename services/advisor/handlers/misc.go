// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers implements the advisor's HTTP endpoints.
//
// Handlers are constructors that close over their dependencies and
// return gin.HandlerFunc, so routes wire them without globals. Search
// failures that are legitimate craft outcomes (targets already met, no
// legal action) map to 200 with a status field; only unexpected engine
// errors become 500.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthCheck reports liveness for container orchestration probes.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
