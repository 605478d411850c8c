// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package features runs feature extraction across a target manifest.
//
// Extraction is independent of the inlining experiment and always reads
// the unmodified source: the feature vector must describe the function as
// it exists in the corpus, not a mutated variant. The two datasets are
// joined downstream on (function_name, file_name).
package features

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashishh2/Predicting-Code-Bloat/services/bloat/ast"
	"github.com/ashishh2/Predicting-Code-Bloat/services/bloat/manifest"
)

// FeatureSink receives completed feature rows.
type FeatureSink interface {
	WriteFeatures(target manifest.Target, fs *ast.FeatureSet) error
}

// Summary aggregates one extraction run.
type Summary struct {
	Total    int
	Recorded int
	Skipped  int
	Duration time.Duration
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithSourceDir sets the directory manifest file names resolve against.
func WithSourceDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.sourceDir = dir
	}
}

// Runner extracts feature vectors for every manifest target.
//
// Each file is parsed once and every target inside it is located and
// extracted from that single translation unit. Per-target failures
// (missing file, locator miss) skip that target only.
type Runner struct {
	parser    *ast.CppParser
	extractor *ast.Extractor
	sourceDir string
}

// NewRunner creates a Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		parser:    ast.NewCppParser(),
		extractor: ast.NewExtractor(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run extracts features for every target and streams rows to the sink.
//
// Outputs:
//   - *Summary: per-run counts; skips are counted, never fatal
//   - error: non-nil only for context cancellation or a sink failure
func (r *Runner) Run(ctx context.Context, m *manifest.Manifest, sink FeatureSink) (*Summary, error) {
	start := time.Now()
	summary := &Summary{Total: m.Len()}

	for _, file := range m.Files() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := r.processFile(ctx, file, m.Functions(file), sink, summary); err != nil {
			return nil, err
		}
	}

	summary.Duration = time.Since(start)
	slog.Info("feature extraction complete",
		slog.Int("targets", summary.Total),
		slog.Int("recorded", summary.Recorded),
		slog.Int("skipped", summary.Skipped),
		slog.Duration("duration", summary.Duration))

	return summary, nil
}

// processFile parses one file and extracts every target inside it.
func (r *Runner) processFile(ctx context.Context, file string, funcs []string, sink FeatureSink, summary *Summary) error {
	content, err := os.ReadFile(filepath.Join(r.sourceDir, file))
	if err != nil {
		slog.Warn("skipping file",
			slog.String("file", file),
			slog.Any("error", err))
		summary.Skipped += len(funcs)
		return nil
	}

	tu, err := r.parser.Parse(ctx, content, file)
	if err != nil {
		slog.Warn("skipping unparseable file",
			slog.String("file", file),
			slog.Any("error", err))
		summary.Skipped += len(funcs)
		return nil
	}
	defer tu.Close()

	for _, name := range funcs {
		target := manifest.Target{FileName: file, FunctionName: name}

		fn, err := tu.Locate(name)
		if err != nil {
			slog.Warn("target not found",
				slog.String("file", file),
				slog.String("function", name))
			summary.Skipped++
			continue
		}

		fs, err := r.extractor.Extract(ctx, tu, fn)
		if err != nil {
			slog.Warn("extraction failed",
				slog.String("file", file),
				slog.String("function", name),
				slog.Any("error", err))
			summary.Skipped++
			continue
		}

		if err := sink.WriteFeatures(target, fs); err != nil {
			return fmt.Errorf("writing features for %s: %w", target.Key(), err)
		}
		summary.Recorded++
	}

	return nil
}
