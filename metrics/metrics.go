/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package metrics records OpenTelemetry counters for completion API usage.
package metrics

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Usage provides token and request counters for summarization calls.
// Counter creation degrades gracefully: a counter that fails to initialize is
// replaced with a no-op rather than disabling the pipeline.
type Usage struct {
	inputTokens  metric.Int64Counter
	outputTokens metric.Int64Counter
	requests     metric.Int64Counter
}

// NewUsage creates a Usage metrics instance on the given meter name. The
// model name is a dimension on the recorded metrics, so one meter serves all
// providers.
func NewUsage(meterName string) *Usage {
	meter := otel.Meter(meterName, metric.WithInstrumentationVersion("1.0.0"))

	inputTokens, err := meter.Int64Counter("summarize.token.input",
		metric.WithDescription("The number of input tokens sent to the model"),
		metric.WithUnit("{tokens}"))
	if err != nil {
		slog.Warn("Failed to create input token counter, metrics will be disabled", "error", err, "meter", meterName)
		inputTokens = noop.Int64Counter{}
	}

	outputTokens, err := meter.Int64Counter("summarize.token.output",
		metric.WithDescription("The number of output tokens generated by the model"),
		metric.WithUnit("{tokens}"))
	if err != nil {
		slog.Warn("Failed to create output token counter, metrics will be disabled", "error", err, "meter", meterName)
		outputTokens = noop.Int64Counter{}
	}

	requests, err := meter.Int64Counter("summarize.requests",
		metric.WithDescription("The number of completion requests issued"),
		metric.WithUnit("{requests}"))
	if err != nil {
		slog.Warn("Failed to create request counter, metrics will be disabled", "error", err, "meter", meterName)
		requests = noop.Int64Counter{}
	}

	return &Usage{
		inputTokens:  inputTokens,
		outputTokens: outputTokens,
		requests:     requests,
	}
}

// RecordCall records one completion round-trip with its token usage.
func (u *Usage) RecordCall(ctx context.Context, model string, inputTokens, outputTokens int64) {
	attrs := metric.WithAttributes(attribute.String("model", model))
	u.requests.Add(ctx, 1, attrs)
	u.inputTokens.Add(ctx, inputTokens, attrs)
	u.outputTokens.Add(ctx, outputTokens, attrs)
}
