// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package corpus emits a synthetic C++ training corpus plus the manifest
// naming the experiment targets inside it.
//
// Files are rendered from a small set of thematic templates (function
// templates, call-intensive loops, data pipelines, matrix classes) chosen
// round-robin. Generation is deterministic for a given seed, so corpora
// are reproducible across runs and machines.
package corpus

import (
	"bytes"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"text/template"

	"github.com/ashishh2/Predicting-Code-Bloat/services/bloat/manifest"
)

// theme couples a template with the target names it declares.
type theme struct {
	name      string
	tmpl      *template.Template
	functions func(index int) []string
}

var themes = []theme{
	{
		name: "templates",
		tmpl: templateTheme,
		functions: func(i int) []string {
			return []string{
				fmt.Sprintf("process_value_%d", i),
				fmt.Sprintf("standalone_function_%d", i),
			}
		},
	},
	{
		name: "call_intensive",
		tmpl: callIntensiveTheme,
		functions: func(i int) []string {
			return []string{
				fmt.Sprintf("simple_increment_%d", i),
				fmt.Sprintf("process_data_grid_%d", i),
			}
		},
	},
	{
		name: "pipeline",
		tmpl: pipelineTheme,
		functions: func(i int) []string {
			return []string{
				fmt.Sprintf("filter_active_records_%d", i),
				fmt.Sprintf("calculate_category_average_%d", i),
				fmt.Sprintf("run_processing_pipeline_%d", i),
			}
		},
	},
	{
		name: "graph",
		tmpl: graphTheme,
		functions: func(i int) []string {
			return []string{
				fmt.Sprintf("print_path_%d", i),
				fmt.Sprintf("dijkstra_shortest_path_%d", i),
			}
		},
	},
	{
		name: "matrix",
		tmpl: matrixTheme,
		functions: func(i int) []string {
			return []string{
				fmt.Sprintf("Matrix_%d::transpose", i),
				fmt.Sprintf("Matrix_%d::trace", i),
			}
		},
	},
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithSeed fixes the random seed (default 1).
func WithSeed(seed int64) GeneratorOption {
	return func(g *Generator) {
		g.seed = seed
	}
}

// Generator renders the corpus.
type Generator struct {
	seed int64
}

// NewGenerator creates a Generator.
func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{seed: 1}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate writes count source files into sourceDir and the covering
// manifest to manifestPath.
//
// Outputs:
//   - error: non-nil on the first render or I/O failure; the corpus is
//     regenerated from scratch on retry, so partial output is harmless
func (g *Generator) Generate(sourceDir, manifestPath string, count int) error {
	if count <= 0 {
		return fmt.Errorf("corpus size must be positive, got %d", count)
	}
	if err := os.MkdirAll(sourceDir, 0o755); err != nil {
		return fmt.Errorf("creating source dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(manifestPath), 0o755); err != nil {
		return fmt.Errorf("creating manifest dir: %w", err)
	}

	rng := rand.New(rand.NewSource(g.seed))
	files := make(map[string][]string, count)

	for i := 0; i < count; i++ {
		th := themes[i%len(themes)]

		params := themeParams{
			Index: i,
			Outer: 50 + rng.Intn(200),
			Inner: 50 + rng.Intn(200),
		}

		var buf bytes.Buffer
		if err := th.tmpl.Execute(&buf, params); err != nil {
			return fmt.Errorf("rendering %s file %d: %w", th.name, i, err)
		}

		fileName := fmt.Sprintf("%s_%d.cpp", th.name, i)
		if err := os.WriteFile(filepath.Join(sourceDir, fileName), buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", fileName, err)
		}

		files[fileName] = th.functions(i)
	}

	if err := manifest.Save(manifestPath, files); err != nil {
		return err
	}

	slog.Info("corpus generated",
		slog.Int("files", count),
		slog.String("source_dir", sourceDir),
		slog.String("manifest", manifestPath))

	return nil
}
