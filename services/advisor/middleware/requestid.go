// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package middleware provides HTTP middleware for the advisor service.
//
// RequestID tags every request with a correlation id so a single advisory
// call can be traced through logs, spans, and journal entries. RateLimit
// protects the search engine from being flooded by a misbehaving client,
// since each /v1/advise call can burn a full search budget.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader is the header used to propagate correlation ids.
const RequestIDHeader = "X-Request-ID"

// requestIDKey is the Gin context key for the request id.
// Using a prefixed key prevents collisions with other context values.
const requestIDKey = "cauldron_request_id"

// RequestID returns middleware that ensures every request carries a
// correlation id. An id supplied by the client in X-Request-ID is kept,
// otherwise a fresh UUID is generated. The id is stored in the Gin
// context for handlers and echoed back on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(requestIDKey, id)
		c.Writer.Header().Set(RequestIDHeader, id)

		c.Next()
	}
}

// GetRequestID retrieves the request id set by RequestID. Returns an
// empty string when the middleware did not run.
func GetRequestID(c *gin.Context) string {
	if v, exists := c.Get(requestIDKey); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
