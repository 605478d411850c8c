// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package experiment

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/ashishh2/Predicting-Code-Bloat/services/bloat/manifest"
)

var (
	tracer = otel.Tracer("bloat.experiment")
	meter  = otel.Meter("bloat.experiment")
)

var (
	targetsTotal metric.Int64Counter
	runDuration  metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		targetsTotal, err = meter.Int64Counter(
			"bloat_targets_total",
			metric.WithDescription("Experiment targets by terminal status"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		runDuration, err = meter.Float64Histogram(
			"bloat_run_duration_seconds",
			metric.WithDescription("Duration of full experiment runs"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordTargetMetrics(ctx context.Context, status Status) {
	if err := initMetrics(); err != nil {
		return
	}
	targetsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", string(status))))
}

func recordRunMetrics(ctx context.Context, summary *Summary) {
	if err := initMetrics(); err != nil {
		return
	}
	runDuration.Record(ctx, summary.Duration.Seconds(),
		metric.WithAttributes(attribute.Int("targets", summary.Total)))
}

func startTargetSpan(ctx context.Context, target manifest.Target) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Driver.processTarget",
		trace.WithAttributes(
			attribute.String("experiment.file", target.FileName),
			attribute.String("experiment.function", target.FunctionName),
		),
	)
}

func setTargetSpanStatus(span trace.Span, status Status) {
	span.SetAttributes(attribute.String("experiment.status", string(status)))
}
