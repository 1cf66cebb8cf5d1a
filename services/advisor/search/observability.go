// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package search

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "cauldron.advisor.search"

// Tracer provides OpenTelemetry tracing for search runs.
//
// Thread Safety: Safe for concurrent use.
type Tracer struct {
	tracer  trace.Tracer
	logger  *slog.Logger
	enabled bool
}

// NewTracer creates a tracer.
//
// Inputs:
//   - logger: Logger for structured logging (can be nil for the default).
//   - enabled: Whether spans are emitted; when false every Start returns
//     a noop span.
//
// Outputs:
//   - *Tracer: Tracer instance.
func NewTracer(logger *slog.Logger, enabled bool) *Tracer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracer{
		tracer:  otel.Tracer(tracerName),
		logger:  logger,
		enabled: enabled,
	}
}

// StartRun starts a span for an entire search invocation.
//
// Inputs:
//   - ctx: Parent context.
//   - kind: "greedy" or "lookahead".
//   - opts: Search configuration in effect.
//
// Outputs:
//   - context.Context: Context with span.
//   - trace.Span: The created span (noop if tracing disabled).
func (t *Tracer) StartRun(ctx context.Context, kind string, opts Config) (context.Context, trace.Span) {
	if !t.enabled {
		return ctx, noop.Span{}
	}

	ctx, span := t.tracer.Start(ctx, "search.run",
		trace.WithAttributes(
			attribute.String("search.kind", kind),
			attribute.Int("search.depth", opts.Depth),
			attribute.Int("search.beam_width", opts.BeamWidth),
			attribute.Int("search.max_nodes", opts.MaxNodes),
			attribute.Int("search.time_budget_ms", opts.TimeBudgetMs),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)

	t.logger.DebugContext(ctx, "search started",
		slog.String("kind", kind),
		slog.Int("depth", opts.Depth),
		slog.Int("beam_width", opts.BeamWidth),
	)

	return ctx, span
}

// EndRun completes a search span.
//
// Inputs:
//   - span: The span to end.
//   - budget: Budget tracker with usage (can be nil).
//   - depthReached: Deepest completed iteration.
//   - err: Error if the run failed.
func (t *Tracer) EndRun(span trace.Span, budget *Budget, depthReached int, err error) {
	if !t.enabled || span == nil {
		return
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	if budget != nil {
		span.SetAttributes(
			attribute.Int64("search.result.nodes", budget.NodesExplored()),
			attribute.Int64("search.result.cache_hits", budget.CacheHits()),
			attribute.Int64("search.result.pruned", budget.Pruned()),
			attribute.String("search.result.elapsed", budget.Elapsed().String()),
			attribute.Bool("search.result.exhausted", budget.ExhaustedBy() != ""),
		)
	}
	span.SetAttributes(attribute.Int("search.result.depth_reached", depthReached))
	span.End()

	if budget != nil && t.logger != nil {
		t.logger.Debug("search completed",
			slog.Int64("nodes", budget.NodesExplored()),
			slog.Int64("cache_hits", budget.CacheHits()),
			slog.Int("depth_reached", depthReached),
			slog.Duration("elapsed", budget.Elapsed()),
		)
	}
}

// TraceDeepening starts a span for one iterative-deepening pass.
//
// Inputs:
//   - ctx: Parent context.
//   - depth: Target depth for this pass.
//
// Outputs:
//   - context.Context: Context with span.
//   - trace.Span: The created span.
func (t *Tracer) TraceDeepening(ctx context.Context, depth int) (context.Context, trace.Span) {
	if !t.enabled {
		return ctx, noop.Span{}
	}

	return t.tracer.Start(ctx, "search.deepening",
		trace.WithAttributes(
			attribute.Int("search.deepening.depth", depth),
		),
	)
}

// TraceBudgetExhaustion records budget exhaustion on the active span.
//
// Inputs:
//   - ctx: Context with span.
//   - budget: Budget tracker with current usage.
func (t *Tracer) TraceBudgetExhaustion(ctx context.Context, budget *Budget) {
	if t.enabled {
		span := trace.SpanFromContext(ctx)
		span.AddEvent("budget_exhausted",
			trace.WithAttributes(
				attribute.String("reason", budget.ExhaustedBy()),
				attribute.Int64("nodes_used", budget.NodesExplored()),
				attribute.String("elapsed", budget.Elapsed().String()),
			),
		)
	}

	if t.logger != nil {
		t.logger.Info("search budget exhausted",
			slog.String("reason", budget.ExhaustedBy()),
			slog.Int64("nodes_used", budget.NodesExplored()),
			slog.Duration("elapsed", budget.Elapsed()),
		)
	}
}

// LoggerWithTrace returns a logger annotated with the active trace.
//
// Inputs:
//   - ctx: Context that may contain trace information.
//   - logger: Base logger.
//
// Outputs:
//   - *slog.Logger: Logger with trace_id and span_id if available.
func LoggerWithTrace(ctx context.Context, logger *slog.Logger) *slog.Logger {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return logger
	}
	return logger.With(
		slog.String("trace_id", spanCtx.TraceID().String()),
		slog.String("span_id", spanCtx.SpanID().String()),
	)
}
