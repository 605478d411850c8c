// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package probe measures the compiled object size of a C++ source variant.
//
// A probe is a compile-only toolchain invocation (no link): object-file
// size is a closer, less noisy proxy for pure code-size impact than the
// final binary, because no link-time stripping or section merging has
// happened yet. The only signals consumed from the toolchain are its exit
// code and the object artifact on disk.
package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"
)

// DefaultTimeout bounds a single toolchain invocation.
const DefaultTimeout = 30 * time.Second

// Sentinel errors for probe failures.
var (
	// ErrToolchainUnavailable is returned by CheckAvailable when the
	// compiler binary is not on PATH. Fatal at startup, before any target
	// is processed.
	ErrToolchainUnavailable = errors.New("toolchain not available")

	// ErrCompileFailed is returned on a non-zero toolchain exit.
	ErrCompileFailed = errors.New("compilation failed")

	// ErrCompileTimeout is returned when an invocation exceeds the
	// configured timeout. Treated identically to a compile failure by the
	// experiment driver.
	ErrCompileTimeout = errors.New("compilation timed out")
)

// CompiledArtifact is the result of one successful probe. It is ephemeral:
// produced and consumed within one experiment step, never persisted.
type CompiledArtifact struct {
	// ByteSize is the object file's size. Always > 0.
	ByteSize int64
}

// Prober measures the object size of a source file. The experiment driver
// depends on this interface so tests can substitute deterministic sizes.
type Prober interface {
	Probe(ctx context.Context, sourcePath, objectPath string) (*CompiledArtifact, error)
}

// Option configures a CompileSizeProbe.
type Option func(*CompileSizeProbe)

// WithCompiler sets the compiler binary (default clang++).
func WithCompiler(compiler string) Option {
	return func(p *CompileSizeProbe) {
		if compiler != "" {
			p.compiler = compiler
		}
	}
}

// WithDialect sets the -std flag value (default c++17).
func WithDialect(std string) Option {
	return func(p *CompileSizeProbe) {
		if std != "" {
			p.std = std
		}
	}
}

// WithOptLevel sets the optimization flag (default -O2).
func WithOptLevel(opt string) Option {
	return func(p *CompileSizeProbe) {
		if opt != "" {
			p.opt = opt
		}
	}
}

// WithTimeout bounds each toolchain invocation.
func WithTimeout(d time.Duration) Option {
	return func(p *CompileSizeProbe) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// CompileSizeProbe compiles a source variant and reports the object size.
//
// The dialect and optimization level are pinned for the whole run so every
// measurement is comparable; per-target variation would invalidate the
// dataset.
//
// Thread Safety: safe for concurrent use as long as callers give each
// in-flight probe its own source and object paths.
type CompileSizeProbe struct {
	compiler string
	std      string
	opt      string
	timeout  time.Duration
}

// NewCompileSizeProbe creates a probe with the given options.
func NewCompileSizeProbe(opts ...Option) *CompileSizeProbe {
	p := &CompileSizeProbe{
		compiler: "clang++",
		std:      "c++17",
		opt:      "-O2",
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckAvailable probes PATH for the configured compiler.
//
// Outputs:
//   - error: ErrToolchainUnavailable (wrapped with the binary name) when
//     the compiler cannot be found; nil otherwise
func (p *CompileSizeProbe) CheckAvailable() error {
	if _, err := exec.LookPath(p.compiler); err != nil {
		return fmt.Errorf("%w: %s", ErrToolchainUnavailable, p.compiler)
	}
	return nil
}

// Probe compiles sourcePath to objectPath and returns the object size.
//
// Inputs:
//   - ctx: Context for cancellation; a per-invocation timeout is layered
//     on top.
//   - sourcePath: path of the source variant to compile.
//   - objectPath: where the object artifact is written. Must be unique per
//     in-flight probe; the probe never shares scratch paths itself.
//
// Outputs:
//   - *CompiledArtifact: non-nil on success, ByteSize > 0
//   - error: ErrCompileFailed, ErrCompileTimeout, or a context error.
//     Probe errors carry the toolchain's stderr in the message; they are
//     recoverable per-target conditions, not batch-fatal.
func (p *CompileSizeProbe) Probe(ctx context.Context, sourcePath, objectPath string) (*CompiledArtifact, error) {
	ctx, span := startProbeSpan(ctx, p.compiler, sourcePath)
	defer span.End()
	start := time.Now()

	cmdCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, p.compiler,
		"-std="+p.std, p.opt, "-c", sourcePath, "-o", objectPath)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()

	if cmdCtx.Err() == context.DeadlineExceeded {
		recordProbeMetrics(ctx, time.Since(start), false)
		return nil, fmt.Errorf("%w after %s: %s", ErrCompileTimeout, p.timeout, sourcePath)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		recordProbeMetrics(ctx, time.Since(start), false)
		slog.Debug("compile failed",
			slog.String("source", sourcePath),
			slog.String("stderr", stderr.String()))
		return nil, fmt.Errorf("%w: %s: %s", ErrCompileFailed, sourcePath, firstLine(stderr.String()))
	}

	info, err := os.Stat(objectPath)
	if err != nil {
		recordProbeMetrics(ctx, time.Since(start), false)
		return nil, fmt.Errorf("%w: object artifact missing: %v", ErrCompileFailed, err)
	}

	recordProbeMetrics(ctx, time.Since(start), true)
	setProbeSpanResult(span, info.Size())

	return &CompiledArtifact{ByteSize: info.Size()}, nil
}

// firstLine trims toolchain stderr to its first line for error messages;
// full output is available at debug level.
func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}

// Compile-time interface compliance check.
var _ Prober = (*CompileSizeProbe)(nil)
