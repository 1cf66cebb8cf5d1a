// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package advisor assembles the crafting advisory service: telemetry,
// Prometheus metrics, the optional recipe catalog and decision journal,
// and the Gin router with all advisory routes.
//
// The recipe and the journal are optional dependencies. A service built
// without them still serves /v1/advise and /v1/rotation, because those
// endpoints carry their own catalog in the request payload; only the
// catalog echo and session replay routes need the server-side pieces.
package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/time/rate"

	"github.com/alchemancy/cauldron/services/advisor/adapter"
	"github.com/alchemancy/cauldron/services/advisor/craft"
	"github.com/alchemancy/cauldron/services/advisor/journal"
	"github.com/alchemancy/cauldron/services/advisor/middleware"
	"github.com/alchemancy/cauldron/services/advisor/observability"
	"github.com/alchemancy/cauldron/services/advisor/routes"
	"github.com/alchemancy/cauldron/services/advisor/search"
	"github.com/alchemancy/cauldron/services/advisor/telemetry"
)

// Service is the advisory service lifecycle. Run blocks until the
// server stops and must be called at most once; Router exposes the
// configured engine for integration tests.
type Service interface {
	Run() error
	Router() *gin.Engine
}

// Config holds advisor service settings. The zero value is usable:
// every field has a default applied by New.
type Config struct {
	// Port is the HTTP listen port. Default: 8089.
	Port int

	// GinMode sets the Gin framework mode ("debug", "release", "test").
	// Empty leaves the current mode untouched.
	GinMode string

	// RecipePath points at a recipe document with the action catalog
	// and craft configuration. Empty disables the catalog endpoints.
	RecipePath string

	// JournalPath is the directory for the decision journal. The
	// value ":memory:" opens an ephemeral in-memory journal. Empty
	// disables journaling and the session replay endpoints.
	JournalPath string

	// Search is the engine tuning applied to every request. Zero
	// values fall back to the documented defaults.
	Search search.Config

	// RateLimitRPS is the shared request budget per second. Zero
	// means the default of 50; negative disables rate limiting.
	RateLimitRPS float64

	// RateLimitBurst is the token bucket size. Default: 100.
	RateLimitBurst int

	// Telemetry configures tracing. The zero value uses
	// telemetry.DefaultConfig.
	Telemetry telemetry.Config
}

// service implements Service. All fields are read-only after New
// returns, so the type is safe for concurrent use.
type service struct {
	config            Config
	router            *gin.Engine
	journal           *journal.Journal
	catalog           []*craft.Action
	craftCfg          *craft.Config
	telemetryShutdown func(context.Context) error
}

// New builds a ready-to-run advisor service. Telemetry failures are
// fatal; a missing or broken recipe or journal is logged and skipped,
// and the routes that need them stay unregistered.
func New(cfg Config) (Service, error) {
	s := &service{config: applyConfigDefaults(cfg)}

	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}

	shutdown, err := telemetry.Init(context.Background(), s.config.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	s.telemetryShutdown = shutdown

	// InitMetrics panics on re-registration; keep the first one so
	// repeated constructions in tests share the registry.
	if observability.DefaultMetrics == nil {
		observability.InitMetrics()
		slog.Info("prometheus metrics registered")
	}

	s.initRecipe()
	s.initJournal()
	s.initRouter()

	return s, nil
}

// Run starts the HTTP server and blocks until it stops. Cleanup of the
// journal and the tracer happens on return.
func (s *service) Run() error {
	defer s.cleanup()

	slog.Info("starting advisor server", "port", s.config.Port)
	return s.router.Run(fmt.Sprintf(":%d", s.config.Port))
}

// Router returns the configured Gin engine for integration testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

// applyConfigDefaults fills in missing configuration values.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 8089
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 50
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 100
	}
	if cfg.Telemetry == (telemetry.Config{}) {
		cfg.Telemetry = telemetry.DefaultConfig()
	}
	cfg.Search.Normalize()
	return cfg
}

// initRecipe loads the server-side action catalog. Optional: failure
// leaves the catalog endpoints disabled but the service running.
func (s *service) initRecipe() {
	if s.config.RecipePath == "" {
		slog.Info("no recipe configured, catalog endpoints disabled")
		return
	}

	catalog, craftCfg, err := adapter.DecodeRecipeFile(s.config.RecipePath)
	if err != nil {
		slog.Warn("recipe load failed, catalog endpoints disabled",
			"path", s.config.RecipePath, "error", err)
		return
	}

	s.catalog = catalog
	s.craftCfg = craftCfg
	slog.Info("recipe loaded", "path", s.config.RecipePath, "actions", len(catalog))
}

// initJournal opens the decision journal. Optional: failure leaves
// journaling and session replay disabled but the service running.
func (s *service) initJournal() {
	if s.config.JournalPath == "" {
		slog.Info("no journal configured, decisions will not be recorded")
		return
	}

	var jcfg journal.Config
	if s.config.JournalPath == ":memory:" {
		jcfg = journal.InMemoryConfig()
	} else {
		jcfg = journal.DefaultConfig(s.config.JournalPath)
	}

	jour, err := journal.Open(jcfg)
	if err != nil {
		slog.Warn("journal open failed, decisions will not be recorded",
			"path", s.config.JournalPath, "error", err)
		return
	}

	s.journal = jour
	slog.Info("journal opened", "path", s.config.JournalPath)
}

// initRouter sets up the Gin engine, middleware, and all routes.
func (s *service) initRouter() {
	s.router = gin.Default()
	s.router.Use(otelgin.Middleware(s.config.Telemetry.ServiceName))
	s.router.Use(middleware.RequestID())

	var limiter *rate.Limiter
	if s.config.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.config.RateLimitRPS), s.config.RateLimitBurst)
	}
	s.router.Use(middleware.RateLimit(limiter))

	routes.SetupRoutes(s.router, s.journal, s.catalog, s.craftCfg, s.config.Search)
}

// cleanup releases the journal and flushes the tracer. Called when
// Run exits.
func (s *service) cleanup() {
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			slog.Warn("journal close error", "error", err)
		}
	}

	if s.telemetryShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.telemetryShutdown(ctx); err != nil {
			slog.Warn("telemetry shutdown error", "error", err)
		}
	}
}

var _ Service = (*service)(nil)
