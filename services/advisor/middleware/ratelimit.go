// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/alchemancy/cauldron/services/advisor/observability"
)

// RateLimit returns middleware that rejects requests above the limiter's
// sustained rate with 429. A nil limiter disables limiting entirely.
//
// The limiter is shared across all routes it is mounted on, so the rate
// bounds total search load rather than per-endpoint load.
func RateLimit(limiter *rate.Limiter) gin.HandlerFunc {
	if limiter == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		if !limiter.Allow() {
			if m := observability.DefaultMetrics; m != nil {
				// FullPath is the route pattern, so label cardinality
				// stays bounded by the registered routes.
				m.RecordError(observability.Endpoint(c.FullPath()), observability.ErrorCodeRateLimited)
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}

		c.Next()
	}
}
