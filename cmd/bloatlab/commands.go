// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ashishh2/Predicting-Code-Bloat/cmd/bloatlab/config"
	"github.com/ashishh2/Predicting-Code-Bloat/pkg/logging"
	"github.com/ashishh2/Predicting-Code-Bloat/pkg/ux"
	"github.com/ashishh2/Predicting-Code-Bloat/services/bloat/ast"
	"github.com/ashishh2/Predicting-Code-Bloat/services/bloat/corpus"
	"github.com/ashishh2/Predicting-Code-Bloat/services/bloat/dataset"
	"github.com/ashishh2/Predicting-Code-Bloat/services/bloat/experiment"
	"github.com/ashishh2/Predicting-Code-Bloat/services/bloat/features"
	"github.com/ashishh2/Predicting-Code-Bloat/services/bloat/manifest"
	"github.com/ashishh2/Predicting-Code-Bloat/services/bloat/probe"
)

// Dataset file names, kept stable for the downstream training stage.
const (
	manifestFileName = "target_functions.json"
	featuresFileName = "features.csv"
	impactFileName   = "size_impact.csv"
)

var (
	cfgPath     string
	logLevel    string
	profileName string
	workers     int
	withMetrics bool

	cfg         *config.Config
	logCloser   *logging.Closer
	metricsStop func(context.Context) error

	rootCmd = &cobra.Command{
		Use:   "bloatlab",
		Short: "Build a dataset of AST features vs. inlining size impact",
		Long: `bloatlab measures how forcing a function inline changes the size of the
compiled object file, and pairs that label with structural features
extracted from the function's syntax tree.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRun: teardown,
	}

	generateCmd = &cobra.Command{
		Use:   "generate",
		Short: "Emit a synthetic C++ corpus and its target manifest",
		RunE:  runGenerate,
	}

	featuresCmd = &cobra.Command{
		Use:   "features",
		Short: "Extract per-function feature vectors into features.csv",
		RunE:  runFeatures,
	}

	impactCmd = &cobra.Command{
		Use:   "impact",
		Short: "Measure inlining size impact into size_impact.csv",
		RunE:  runImpact,
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Extract features, then measure impact, over the same manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runFeatures(cmd, args); err != nil {
				return err
			}
			return runImpact(cmd, args)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "bloatlab.yaml", "path to the config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")
	rootCmd.PersistentFlags().BoolVar(&withMetrics, "metrics", false, "periodically dump otel metrics to stdout")

	featuresCmd.Flags().StringVar(&profileName, "profile", "", "feature profile: minimal or calldensity")
	runCmd.Flags().StringVar(&profileName, "profile", "", "feature profile: minimal or calldensity")

	impactCmd.Flags().IntVar(&workers, "workers", 0, "override the configured worker count")
	runCmd.Flags().IntVar(&workers, "workers", 0, "override the configured worker count")

	rootCmd.AddCommand(generateCmd, featuresCmd, impactCmd, runCmd)
}

// setup loads configuration and installs logging and metrics before any
// subcommand runs.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgPath)
	if err != nil {
		return err
	}

	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}

	logCloser, err = logging.Setup(logging.Config{
		Level:   logging.ParseLevel(level),
		LogDir:  cfg.Logging.Dir,
		Service: "bloatlab",
	})
	if err != nil {
		return err
	}

	if withMetrics {
		metricsStop, err = setupMetrics()
		if err != nil {
			return err
		}
	}

	return nil
}

func teardown(cmd *cobra.Command, args []string) {
	if metricsStop != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsStop(shutdownCtx); err != nil {
			slog.Warn("metrics shutdown failed", slog.Any("error", err))
		}
	}
	if logCloser != nil {
		_ = logCloser.Close()
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	gen := corpus.NewGenerator(corpus.WithSeed(cfg.Experiment.Seed))
	return gen.Generate(cfg.Paths.SourceDir, manifestPath(), cfg.Experiment.CorpusSize)
}

func runFeatures(cmd *cobra.Command, args []string) error {
	m, err := manifest.Load(manifestPath())
	if err != nil {
		return err
	}

	name := cfg.Experiment.Profile
	if profileName != "" {
		name = profileName
	}
	profile, err := ast.ProfileByName(name)
	if err != nil {
		return fmt.Errorf("%w: %q", err, name)
	}

	out, err := createDataFile(featuresFileName)
	if err != nil {
		return err
	}
	defer out.Close()

	writer, err := dataset.NewFeatureWriter(out, profile)
	if err != nil {
		return err
	}

	runner := features.NewRunner(features.WithSourceDir(cfg.Paths.SourceDir))
	summary, err := runner.Run(cmd.Context(), m, writer)
	if err != nil {
		return err
	}

	ux.PrintSummary(ux.RunSummary{
		Stage:    "feature extraction (" + profile.Name() + ")",
		Total:    summary.Total,
		Recorded: summary.Recorded,
		Skipped:  summary.Skipped,
		Duration: summary.Duration,
	})
	return nil
}

func runImpact(cmd *cobra.Command, args []string) error {
	m, err := manifest.Load(manifestPath())
	if err != nil {
		return err
	}

	prober := probe.NewCompileSizeProbe(
		probe.WithCompiler(cfg.Compiler.Binary),
		probe.WithDialect(cfg.Compiler.Dialect),
		probe.WithOptLevel(cfg.Compiler.OptLevel),
		probe.WithTimeout(time.Duration(cfg.Compiler.TimeoutSeconds)*time.Second),
	)
	// A missing compiler fails the run before any target is touched.
	if err := prober.CheckAvailable(); err != nil {
		return err
	}

	out, err := createDataFile(impactFileName)
	if err != nil {
		return err
	}
	defer out.Close()

	sink, err := dataset.NewImpactWriter(out)
	if err != nil {
		return err
	}

	n := cfg.Experiment.Workers
	if workers > 0 {
		n = workers
	}

	driver := experiment.NewDriver(prober, sink,
		experiment.WithWorkers(n),
		experiment.WithSourceDir(cfg.Paths.SourceDir),
	)

	summary, err := driver.Run(cmd.Context(), m.Targets())
	if err != nil {
		return err
	}

	ux.PrintSummary(ux.RunSummary{
		Stage:    "inlining impact",
		Total:    summary.Total,
		Recorded: summary.Recorded,
		Skipped:  summary.Skipped,
		Duration: summary.Duration,
	})
	return nil
}

func manifestPath() string {
	return filepath.Join(cfg.Paths.DataDir, manifestFileName)
}

func createDataFile(name string) (*os.File, error) {
	if err := os.MkdirAll(cfg.Paths.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	path := filepath.Join(cfg.Paths.DataDir, name)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return f, nil
}
