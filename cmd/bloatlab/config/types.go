// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads and validates the bloatlab YAML configuration.
package config

// Config is the root bloatlab configuration.
type Config struct {
	Compiler   CompilerConfig   `yaml:"compiler"`
	Experiment ExperimentConfig `yaml:"experiment"`
	Paths      PathsConfig      `yaml:"paths"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// CompilerConfig pins the toolchain invocation. Dialect and optimization
// level hold for the whole run; varying them per target would make the
// size measurements incomparable.
type CompilerConfig struct {
	// Binary is the compiler executable, e.g. clang++ or g++.
	Binary string `yaml:"binary" validate:"required"`

	// Dialect is the -std value, e.g. c++17.
	Dialect string `yaml:"dialect" validate:"required"`

	// OptLevel is the optimization flag, e.g. -O2.
	OptLevel string `yaml:"opt_level" validate:"required"`

	// TimeoutSeconds bounds each compile invocation.
	TimeoutSeconds int `yaml:"timeout_seconds" validate:"gt=0"`
}

// ExperimentConfig shapes the measurement run.
type ExperimentConfig struct {
	// Workers bounds concurrent toolchain invocations.
	Workers int `yaml:"workers" validate:"gt=0,lte=64"`

	// Profile selects the feature dataset schema: minimal or calldensity.
	Profile string `yaml:"profile" validate:"oneof=minimal calldensity"`

	// CorpusSize is the number of files `bloatlab generate` emits.
	CorpusSize int `yaml:"corpus_size" validate:"gt=0"`

	// Seed makes corpus generation reproducible.
	Seed int64 `yaml:"seed"`
}

// PathsConfig locates the corpus and the emitted datasets.
type PathsConfig struct {
	// SourceDir holds the C++ corpus the manifest file names resolve
	// against.
	SourceDir string `yaml:"source_dir" validate:"required"`

	// DataDir receives the manifest and both CSV datasets.
	DataDir string `yaml:"data_dir" validate:"required"`
}

// LoggingConfig configures pkg/logging.
type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level"`

	// Dir enables file logging when set.
	Dir string `yaml:"dir"`
}

// Default returns the configuration written on first run.
func Default() *Config {
	return &Config{
		Compiler: CompilerConfig{
			Binary:         "clang++",
			Dialect:        "c++17",
			OptLevel:       "-O2",
			TimeoutSeconds: 30,
		},
		Experiment: ExperimentConfig{
			Workers:    4,
			Profile:    "minimal",
			CorpusSize: 250,
			Seed:       1,
		},
		Paths: PathsConfig{
			SourceDir: "src_generated",
			DataDir:   "data",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
