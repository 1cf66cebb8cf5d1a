// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alchemancy/cauldron/services/advisor/craft"
	"github.com/alchemancy/cauldron/services/advisor/handlers"
	"github.com/alchemancy/cauldron/services/advisor/journal"
	"github.com/alchemancy/cauldron/services/advisor/search"
)

// SetupRoutes registers all advisor endpoints. The journal and the
// configured recipe are both optional: without a journal the session
// inspection routes are not registered and decisions go unrecorded,
// without a recipe /v1/actions reports no catalog.
func SetupRoutes(router *gin.Engine, jour *journal.Journal, catalog []*craft.Action,
	cfg *craft.Config, opts search.Config) {

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	{
		v1.POST("/advise", handlers.HandleAdvise(jour, opts))
		v1.POST("/rotation", handlers.HandleRotation(opts))
		v1.GET("/actions", handlers.ListActions(catalog, cfg))

		// Journal inspection routes
		if jour != nil {
			sessions := v1.Group("/sessions")
			{
				sessions.GET("", handlers.ListSessions(jour))
				sessions.GET("/:sessionId/history", handlers.GetSessionHistory(jour))
			}
		}
	}
}
