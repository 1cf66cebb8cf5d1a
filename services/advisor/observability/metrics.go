// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the advisor
// service: request counters by endpoint and status, search latency and
// node-count histograms, budget exhaustion counters, and an in-flight
// gauge. Metrics are exposed on /metrics; all operations are safe for
// concurrent use.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "cauldron"
	advisorSubsystem = "advisor"
)

// AdvisorMetrics holds all Prometheus metrics for advisory requests.
// Initialize once at startup via InitMetrics.
type AdvisorMetrics struct {
	// RequestsTotal counts requests by endpoint and status.
	// Labels: endpoint (advise, rotation, actions), status (ok, error)
	RequestsTotal *prometheus.CounterVec

	// SearchDurationSeconds measures search wall time per endpoint.
	SearchDurationSeconds *prometheus.HistogramVec

	// SearchNodes measures nodes explored per search invocation.
	SearchNodes *prometheus.HistogramVec

	// ExhaustionsTotal counts budget-exhausted searches.
	// Labels: endpoint, reason (time, nodes)
	ExhaustionsTotal *prometheus.CounterVec

	// ErrorsTotal counts failed requests by endpoint and error code.
	ErrorsTotal *prometheus.CounterVec

	// ActiveSearches tracks searches currently running.
	ActiveSearches prometheus.Gauge
}

// DefaultMetrics is the singleton instance, set by InitMetrics. Callers
// must nil-check it so handlers work without metrics in tests.
var DefaultMetrics *AdvisorMetrics

// InitMetrics registers all metrics with the default registry. Call
// once at startup; a second call panics on duplicate registration.
func InitMetrics() *AdvisorMetrics {
	DefaultMetrics = &AdvisorMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: advisorSubsystem,
				Name:      "requests_total",
				Help:      "Total advisory requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),

		SearchDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: advisorSubsystem,
				Name:      "search_duration_seconds",
				Help:      "Search wall time per invocation",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"endpoint"},
		),

		SearchNodes: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: advisorSubsystem,
				Name:      "search_nodes",
				Help:      "Nodes explored per search invocation",
				Buckets:   []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 400000},
			},
			[]string{"endpoint"},
		),

		ExhaustionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: advisorSubsystem,
				Name:      "exhaustions_total",
				Help:      "Searches that ran out of budget, by limit hit",
			},
			[]string{"endpoint", "reason"},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: advisorSubsystem,
				Name:      "errors_total",
				Help:      "Failed advisory requests by endpoint and error code",
			},
			[]string{"endpoint", "error_code"},
		),

		ActiveSearches: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: advisorSubsystem,
				Name:      "active_searches",
				Help:      "Searches currently in flight",
			},
		),
	}

	return DefaultMetrics
}

// ErrorCode categorizes a failed request for metrics.
type ErrorCode string

const (
	// ErrorCodeInvalidPayload marks syntactically broken payloads.
	ErrorCodeInvalidPayload ErrorCode = "invalid_payload"

	// ErrorCodeInvalidSnapshot marks semantically unplayable snapshots.
	ErrorCodeInvalidSnapshot ErrorCode = "invalid_snapshot"

	// ErrorCodeRateLimited marks requests refused by the limiter.
	ErrorCodeRateLimited ErrorCode = "rate_limited"

	// ErrorCodeInternal marks unexpected failures.
	ErrorCodeInternal ErrorCode = "internal"
)

// Endpoint labels a route for metrics.
type Endpoint string

const (
	EndpointAdvise   Endpoint = "advise"
	EndpointRotation Endpoint = "rotation"
	EndpointActions  Endpoint = "actions"
)

// RecordRequest records a completed request.
func (m *AdvisorMetrics) RecordRequest(endpoint Endpoint, success bool) {
	status := "ok"
	if !success {
		status = "error"
	}
	m.RequestsTotal.WithLabelValues(string(endpoint), status).Inc()
}

// RecordError records a failed request by category.
func (m *AdvisorMetrics) RecordError(endpoint Endpoint, code ErrorCode) {
	m.ErrorsTotal.WithLabelValues(string(endpoint), string(code)).Inc()
}

// ObserveSearch records one search invocation's cost.
func (m *AdvisorMetrics) ObserveSearch(endpoint Endpoint, seconds float64, nodes int64) {
	m.SearchDurationSeconds.WithLabelValues(string(endpoint)).Observe(seconds)
	m.SearchNodes.WithLabelValues(string(endpoint)).Observe(float64(nodes))
}

// RecordExhaustion records a budget-exhausted search by the limit hit.
func (m *AdvisorMetrics) RecordExhaustion(endpoint Endpoint, reason string) {
	if reason == "" {
		return
	}
	m.ExhaustionsTotal.WithLabelValues(string(endpoint), reason).Inc()
}

// SearchStarted increments the in-flight gauge.
func (m *AdvisorMetrics) SearchStarted() {
	m.ActiveSearches.Inc()
}

// SearchEnded decrements the in-flight gauge.
func (m *AdvisorMetrics) SearchEnded() {
	m.ActiveSearches.Dec()
}
