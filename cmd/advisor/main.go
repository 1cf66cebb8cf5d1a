// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command advisor starts the cauldron advisory HTTP server.
//
// Configuration comes from environment variables:
//
//   - CAULDRON_PORT: HTTP server port (default: 8089)
//   - CAULDRON_RECIPE: path to a recipe document (optional)
//   - CAULDRON_JOURNAL: decision journal directory, or ":memory:" (optional)
//   - CAULDRON_CONFIG: search tuning file, YAML or JSON (optional)
//   - CAULDRON_RATE_LIMIT_RPS: shared request budget, negative disables
//   - CAULDRON_RATE_LIMIT_BURST: rate limiter bucket size
//   - CAULDRON_LOG_LEVEL: minimum log severity (default: info)
//   - CAULDRON_LOG_DIR: directory for JSON log files (optional)
//   - GIN_MODE: gin framework mode (debug, release, test)
//
// Search knobs also honor the CAULDRON_SEARCH_* variables, which
// override values from the CAULDRON_CONFIG file.
package main

import (
	"log"
	"log/slog"

	"github.com/caarlos0/env/v11"

	"github.com/alchemancy/cauldron/pkg/logging"
	"github.com/alchemancy/cauldron/services/advisor"
	"github.com/alchemancy/cauldron/services/advisor/search"
)

// advisorEnv holds raw environment values for the advisor server.
type advisorEnv struct {
	Port           int     `env:"CAULDRON_PORT" envDefault:"8089"`
	GinMode        string  `env:"GIN_MODE"`
	RecipePath     string  `env:"CAULDRON_RECIPE"`
	JournalPath    string  `env:"CAULDRON_JOURNAL"`
	SearchConfig   string  `env:"CAULDRON_CONFIG"`
	RateLimitRPS   float64 `env:"CAULDRON_RATE_LIMIT_RPS"`
	RateLimitBurst int     `env:"CAULDRON_RATE_LIMIT_BURST"`
	LogLevel       string  `env:"CAULDRON_LOG_LEVEL" envDefault:"info"`
	LogDir         string  `env:"CAULDRON_LOG_DIR"`
}

func main() {
	var raw advisorEnv
	if err := env.Parse(&raw); err != nil {
		log.Fatalf("Failed to parse environment: %v", err)
	}

	level, err := logging.ParseLevel(raw.LogLevel)
	if err != nil {
		log.Fatalf("Failed to parse CAULDRON_LOG_LEVEL: %v", err)
	}
	logger := logging.New(logging.Config{
		Level:   level,
		LogDir:  raw.LogDir,
		Service: "advisor",
		JSON:    true,
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	searchCfg, err := search.Load(raw.SearchConfig)
	if err != nil {
		log.Fatalf("Failed to load search config: %v", err)
	}

	cfg := advisor.Config{
		Port:           raw.Port,
		GinMode:        raw.GinMode,
		RecipePath:     raw.RecipePath,
		JournalPath:    raw.JournalPath,
		Search:         searchCfg,
		RateLimitRPS:   raw.RateLimitRPS,
		RateLimitBurst: raw.RateLimitBurst,
	}

	slog.Info("starting advisor",
		"port", cfg.Port,
		"recipe", cfg.RecipePath,
		"journal", cfg.JournalPath,
	)

	svc, err := advisor.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create advisor service: %v", err)
	}

	if err := svc.Run(); err != nil {
		log.Fatalf("Advisor server error: %v", err)
	}
}
