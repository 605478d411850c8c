// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package probe

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeStubCompiler writes an executable shell script standing in for the
// toolchain. body runs after the -o argument has been parsed into $out.
func writeStubCompiler(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub compiler requires a POSIX shell")
	}

	script := `#!/bin/sh
out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "-o" ]; then out="$2"; shift; fi
  shift
done
` + body + "\n"

	path := filepath.Join(t.TempDir(), "stubcc")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func scratchPaths(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "variant.cpp")
	require.NoError(t, os.WriteFile(src, []byte("int main() { return 0; }\n"), 0o644))
	return src, filepath.Join(dir, "variant.o")
}

func TestProbe_ReportsObjectSize(t *testing.T) {
	compiler := writeStubCompiler(t, `printf 'OBJECT' > "$out"`)
	src, obj := scratchPaths(t)

	p := NewCompileSizeProbe(WithCompiler(compiler))
	artifact, err := p.Probe(context.Background(), src, obj)
	require.NoError(t, err)

	assert.Equal(t, int64(6), artifact.ByteSize)
}

func TestProbe_CompileFailure(t *testing.T) {
	compiler := writeStubCompiler(t, `echo "variant.cpp:3:1: error: expected expression" >&2
exit 1`)
	src, obj := scratchPaths(t)

	p := NewCompileSizeProbe(WithCompiler(compiler))
	_, err := p.Probe(context.Background(), src, obj)

	require.ErrorIs(t, err, ErrCompileFailed)
	// The first stderr line is carried in the error message.
	assert.Contains(t, err.Error(), "expected expression")
}

func TestProbe_MissingArtifact(t *testing.T) {
	// Exit 0 without writing the object: compilers should never do this,
	// but the probe must not report success on a phantom artifact.
	compiler := writeStubCompiler(t, `exit 0`)
	src, obj := scratchPaths(t)

	p := NewCompileSizeProbe(WithCompiler(compiler))
	_, err := p.Probe(context.Background(), src, obj)

	assert.ErrorIs(t, err, ErrCompileFailed)
}

func TestProbe_Timeout(t *testing.T) {
	compiler := writeStubCompiler(t, `sleep 5
printf 'OBJECT' > "$out"`)
	src, obj := scratchPaths(t)

	p := NewCompileSizeProbe(WithCompiler(compiler), WithTimeout(100*time.Millisecond))
	_, err := p.Probe(context.Background(), src, obj)

	assert.ErrorIs(t, err, ErrCompileTimeout)
}

func TestProbe_CanceledContext(t *testing.T) {
	compiler := writeStubCompiler(t, `printf 'OBJECT' > "$out"`)
	src, obj := scratchPaths(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewCompileSizeProbe(WithCompiler(compiler))
	_, err := p.Probe(ctx, src, obj)
	assert.Error(t, err)
}

func TestCheckAvailable(t *testing.T) {
	missing := NewCompileSizeProbe(WithCompiler("no-such-compiler-binary"))
	assert.ErrorIs(t, missing.CheckAvailable(), ErrToolchainUnavailable)

	// A shell is always on PATH in the test environment.
	present := NewCompileSizeProbe(WithCompiler("sh"))
	assert.NoError(t, present.CheckAvailable())
}

func TestOptions(t *testing.T) {
	p := NewCompileSizeProbe(
		WithCompiler("g++"),
		WithDialect("c++20"),
		WithOptLevel("-O3"),
		WithTimeout(5*time.Second),
	)

	assert.Equal(t, "g++", p.compiler)
	assert.Equal(t, "c++20", p.std)
	assert.Equal(t, "-O3", p.opt)
	assert.Equal(t, 5*time.Second, p.timeout)

	// Zero values must not override defaults.
	d := NewCompileSizeProbe(WithCompiler(""), WithTimeout(0))
	assert.Equal(t, "clang++", d.compiler)
	assert.Equal(t, DefaultTimeout, d.timeout)
}
