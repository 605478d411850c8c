// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ast

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for C++ parsing and feature extraction.
var (
	tracer = otel.Tracer("bloat.ast")
	meter  = otel.Meter("bloat.ast")
)

// Metrics for extraction operations.
var (
	extractLatency metric.Float64Histogram
	extractTotal   metric.Int64Counter
	tokenCounts    metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the instruments. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		extractLatency, err = meter.Float64Histogram(
			"bloat_extract_duration_seconds",
			metric.WithDescription("Duration of feature extraction per function"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		extractTotal, err = meter.Int64Counter(
			"bloat_extract_total",
			metric.WithDescription("Total number of feature extractions"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		tokenCounts, err = meter.Int64Histogram(
			"bloat_extract_tokens",
			metric.WithDescription("Token count of extracted functions"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordExtractMetrics records metrics for one extraction.
func recordExtractMetrics(ctx context.Context, duration time.Duration, fs *FeatureSet) {
	if err := initMetrics(); err != nil {
		return // Silently skip if metrics init failed
	}

	attrs := metric.WithAttributes(
		attribute.Bool("template", fs.IsTemplate),
	)

	extractLatency.Record(ctx, duration.Seconds(), attrs)
	extractTotal.Add(ctx, 1, attrs)
	tokenCounts.Record(ctx, int64(fs.TokenCount), attrs)
}

// startParseSpan creates a span for a translation-unit parse.
func startParseSpan(ctx context.Context, filePath string, contentSize int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "CppParser.Parse",
		trace.WithAttributes(
			attribute.String("ast.file", filePath),
			attribute.Int("ast.content_size", contentSize),
		),
	)
}

// startExtractSpan creates a span for a feature extraction.
func startExtractSpan(ctx context.Context, filePath, function string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Extractor.Extract",
		trace.WithAttributes(
			attribute.String("ast.file", filePath),
			attribute.String("ast.function", function),
		),
	)
}

// setExtractSpanResult sets the result attributes on an extraction span.
func setExtractSpanResult(span trace.Span, fs *FeatureSet) {
	span.SetAttributes(
		attribute.Int("ast.complexity", fs.CyclomaticComplexity),
		attribute.Int("ast.body_stmts", fs.BodySizeStmts),
		attribute.Int("ast.tokens", fs.TokenCount),
	)
}
