// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ashishh2/Predicting-Code-Bloat/services/bloat/ast"
	"github.com/ashishh2/Predicting-Code-Bloat/services/bloat/manifest"
	"github.com/ashishh2/Predicting-Code-Bloat/services/bloat/mutate"
	"github.com/ashishh2/Predicting-Code-Bloat/services/bloat/probe"
)

// DefaultWorkers bounds simultaneous toolchain invocations. Compiles are
// CPU- and memory-hungry; an unbounded fan-out exhausts the machine long
// before it saturates throughput.
const DefaultWorkers = 4

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithWorkers sets the bound on concurrent targets (and therefore on
// concurrent toolchain invocations).
func WithWorkers(n int) DriverOption {
	return func(d *Driver) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithSourceDir sets the directory manifest file names resolve against.
func WithSourceDir(dir string) DriverOption {
	return func(d *Driver) {
		d.sourceDir = dir
	}
}

// Driver runs the experiment across a target list.
//
// Description:
//
//	Targets are independent, so the driver processes them on a bounded
//	worker pool. Every in-flight target gets its own scratch directory
//	under a run-scoped temp root; nothing is shared between workers and
//	no cross-target ordering is guaranteed in the output stream. Each
//	emitted record is atomically complete (the sink guarantees row
//	atomicity). A failure in one target transitions that target to a
//	terminal skip state and never aborts the run.
//
// Thread Safety: a Driver runs one Run at a time per instance.
type Driver struct {
	parser    *ast.CppParser
	mutator   *mutate.Mutator
	prober    probe.Prober
	sink      RecordSink
	sourceDir string
	workers   int

	mu      sync.Mutex
	results []TargetResult
}

// NewDriver creates a Driver.
//
// Inputs:
//   - prober: the compile-size probe (substitutable in tests)
//   - sink: receiver for completed impact records
//   - opts: WithWorkers, WithSourceDir
func NewDriver(prober probe.Prober, sink RecordSink, opts ...DriverOption) *Driver {
	d := &Driver{
		parser:  ast.NewCppParser(),
		mutator: mutate.NewMutator(),
		prober:  prober,
		sink:    sink,
		workers: DefaultWorkers,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run processes every target and returns the run summary.
//
// Description:
//
//	The scratch root is created up front and removed on every exit path.
//	Run returns an error only for setup failures or context cancellation
//	between targets; per-target failures are folded into the summary.
//	A canceled run leaves all previously flushed records valid.
func (d *Driver) Run(ctx context.Context, targets []manifest.Target) (*Summary, error) {
	start := time.Now()

	scratchRoot, err := os.MkdirTemp("", "bloatlab-run-*")
	if err != nil {
		return nil, fmt.Errorf("creating scratch root: %w", err)
	}
	defer os.RemoveAll(scratchRoot)

	d.mu.Lock()
	d.results = make([]TargetResult, 0, len(targets))
	d.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)

	for _, target := range targets {
		target := target
		g.Go(func() error {
			// A canceled context stops scheduling work; an individual
			// target failure never does.
			if err := gctx.Err(); err != nil {
				return err
			}
			d.record(d.processTarget(gctx, scratchRoot, target))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := &Summary{Duration: time.Since(start)}
	d.mu.Lock()
	summary.Results = d.results
	d.mu.Unlock()

	summary.Total = len(summary.Results)
	for _, r := range summary.Results {
		if r.Status == StatusRecorded {
			summary.Recorded++
		} else {
			summary.Skipped++
		}
	}

	recordRunMetrics(ctx, summary)
	return summary, nil
}

// processTarget walks one target through the state machine. It always
// returns a terminal result; errors are folded in, never propagated.
func (d *Driver) processTarget(ctx context.Context, scratchRoot string, target manifest.Target) TargetResult {
	ctx, span := startTargetSpan(ctx, target)
	defer span.End()

	res := TargetResult{Target: target, Status: StatusPending}

	source, err := os.ReadFile(filepath.Join(d.sourceDir, target.FileName))
	if err != nil {
		return d.skip(ctx, res, StatusSkipped, fmt.Errorf("reading source: %w", err))
	}

	// Locate the target in the syntax tree before touching the text: a
	// manifest entry that names nothing in the file is its own terminal
	// state, distinct from a mutation pattern miss.
	tu, err := d.parser.Parse(ctx, source, target.FileName)
	if err != nil {
		return d.skip(ctx, res, StatusSkipped, fmt.Errorf("parsing source: %w", err))
	}
	_, locErr := tu.Locate(target.FunctionName)
	tu.Close()
	if locErr != nil {
		return d.skip(ctx, res, StatusNotFound, locErr)
	}
	res.Status = StatusLocated

	baselineVar, err := d.mutator.Apply(string(source), target.FunctionName, mutate.ForceNoInline)
	if err != nil {
		return d.skip(ctx, res, StatusMutationFailed, err)
	}
	forcedVar, err := d.mutator.Apply(string(source), target.FunctionName, mutate.ForceInline)
	if err != nil {
		return d.skip(ctx, res, StatusMutationFailed, err)
	}
	res.Status = StatusMutated

	// Per-target scratch directory: concurrent probes must never share
	// source or object paths. Cleaned up on every exit path.
	dir := filepath.Join(scratchRoot, uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return d.skip(ctx, res, StatusSkipped, fmt.Errorf("creating scratch dir: %w", err))
	}
	defer os.RemoveAll(dir)

	baseline, err := d.probeVariant(ctx, dir, "baseline", baselineVar)
	if err != nil {
		return d.skip(ctx, res, StatusProbeFailed, err)
	}
	res.Status = StatusBaselineProbed
	res.BaselineSize = baseline.ByteSize

	forced, err := d.probeVariant(ctx, dir, "forced", forcedVar)
	if err != nil {
		return d.skip(ctx, res, StatusProbeFailed, err)
	}
	res.Status = StatusForcedProbed
	res.ForcedSize = forced.ByteSize

	rec, ok := ComputeImpact(target, baseline, forced)
	if !ok {
		return d.skip(ctx, res, StatusSkipped, fmt.Errorf("baseline size is zero"))
	}

	if err := d.sink.WriteImpact(*rec); err != nil {
		return d.skip(ctx, res, StatusSkipped, fmt.Errorf("writing record: %w", err))
	}

	res.Status = StatusRecorded
	res.Percent = rec.SizeIncreasePercent
	setTargetSpanStatus(span, res.Status)

	slog.Info("target recorded",
		slog.String("file", target.FileName),
		slog.String("function", target.FunctionName),
		slog.Int64("baseline_bytes", res.BaselineSize),
		slog.Int64("forced_bytes", res.ForcedSize),
		slog.Float64("impact_percent", res.Percent))

	return res
}

// probeVariant writes one source variant into the scratch dir and probes it.
func (d *Driver) probeVariant(ctx context.Context, dir, label string, v *mutate.SourceVariant) (*probe.CompiledArtifact, error) {
	sourcePath := filepath.Join(dir, label+".cpp")
	objectPath := filepath.Join(dir, label+".o")

	if err := os.WriteFile(sourcePath, []byte(v.Content), 0o644); err != nil {
		return nil, fmt.Errorf("writing %s variant: %w", label, err)
	}

	return d.prober.Probe(ctx, sourcePath, objectPath)
}

// skip finalizes a target in a terminal failure state. Failures are logged
// and isolated; the run continues.
func (d *Driver) skip(ctx context.Context, res TargetResult, status Status, err error) TargetResult {
	res.Status = status
	res.Err = err

	slog.Warn("target skipped",
		slog.String("file", res.Target.FileName),
		slog.String("function", res.Target.FunctionName),
		slog.String("status", string(status)),
		slog.Any("error", err))

	return res
}

// record appends a terminal result and bumps the per-status counter.
func (d *Driver) record(res TargetResult) {
	d.mu.Lock()
	d.results = append(d.results, res)
	d.mu.Unlock()

	recordTargetMetrics(context.Background(), res.Status)
}
