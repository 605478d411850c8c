// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package probe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("bloat.probe")
	meter  = otel.Meter("bloat.probe")
)

var (
	probeLatency metric.Float64Histogram
	probeTotal   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		probeLatency, err = meter.Float64Histogram(
			"bloat_probe_duration_seconds",
			metric.WithDescription("Duration of compile-size probes"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		probeTotal, err = meter.Int64Counter(
			"bloat_probe_total",
			metric.WithDescription("Total number of compile-size probes"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordProbeMetrics(ctx context.Context, duration time.Duration, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.Bool("success", success))
	probeLatency.Record(ctx, duration.Seconds(), attrs)
	probeTotal.Add(ctx, 1, attrs)
}

func startProbeSpan(ctx context.Context, compiler, sourcePath string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "CompileSizeProbe.Probe",
		trace.WithAttributes(
			attribute.String("probe.compiler", compiler),
			attribute.String("probe.source", sourcePath),
		),
	)
}

func setProbeSpanResult(span trace.Span, byteSize int64) {
	span.SetAttributes(attribute.Int64("probe.object_bytes", byteSize))
}
