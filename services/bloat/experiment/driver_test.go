// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package experiment

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashishh2/Predicting-Code-Bloat/services/bloat/manifest"
	"github.com/ashishh2/Predicting-Code-Bloat/services/bloat/probe"
)

const driverTestSource = `int add_one(int a) {
    return a + 1;
}

int double_it(int a) {
    return a * 2;
}

int pick(int a) {
    return a;
}

int pick(long b) {
    return 0;
}
`

// fakeProber returns fixed sizes keyed on the variant label in the source
// path, without invoking any toolchain.
type fakeProber struct {
	baselineSize int64
	forcedSize   int64
	err          error

	mu    sync.Mutex
	calls int
}

func (f *fakeProber) Probe(_ context.Context, sourcePath, _ string) (*probe.CompiledArtifact, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	if strings.HasSuffix(sourcePath, "baseline.cpp") {
		return &probe.CompiledArtifact{ByteSize: f.baselineSize}, nil
	}
	return &probe.CompiledArtifact{ByteSize: f.forcedSize}, nil
}

// memorySink collects records under a mutex so concurrent workers can share it.
type memorySink struct {
	mu      sync.Mutex
	records []ImpactRecord
	err     error
}

func (s *memorySink) WriteImpact(rec ImpactRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *memorySink) all() []ImpactRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ImpactRecord(nil), s.records...)
}

func writeSourceDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sample.cpp"), []byte(driverTestSource), 0o644))
	return dir
}

func TestDriver_RecordsImpact(t *testing.T) {
	dir := writeSourceDir(t)
	prober := &fakeProber{baselineSize: 1000, forcedSize: 1100}
	sink := &memorySink{}

	d := NewDriver(prober, sink, WithSourceDir(dir))
	summary, err := d.Run(context.Background(), []manifest.Target{
		{FileName: "sample.cpp", FunctionName: "add_one"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 1, summary.Recorded)
	assert.Equal(t, 0, summary.Skipped)

	records := sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, "add_one", records[0].FunctionName)
	assert.Equal(t, "sample.cpp", records[0].FileName)
	assert.InDelta(t, 10.0, records[0].SizeIncreasePercent, 1e-9)

	res := summary.Results[0]
	assert.Equal(t, StatusRecorded, res.Status)
	assert.Equal(t, int64(1000), res.BaselineSize)
	assert.Equal(t, int64(1100), res.ForcedSize)
	assert.NoError(t, res.Err)
}

func TestDriver_FailuresAreIsolated(t *testing.T) {
	dir := writeSourceDir(t)
	prober := &fakeProber{baselineSize: 1000, forcedSize: 900}
	sink := &memorySink{}

	d := NewDriver(prober, sink, WithSourceDir(dir))
	summary, err := d.Run(context.Background(), []manifest.Target{
		{FileName: "sample.cpp", FunctionName: "add_one"},
		{FileName: "sample.cpp", FunctionName: "no_such_function"},
		// pick is overloaded: the locator resolves it (first match), but
		// the mutator refuses the ambiguous text pattern.
		{FileName: "sample.cpp", FunctionName: "pick"},
		{FileName: "missing.cpp", FunctionName: "add_one"},
	})
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 1, summary.Recorded)
	assert.Equal(t, 3, summary.Skipped)
	require.Len(t, sink.all(), 1)

	byStatus := map[Status]int{}
	for _, r := range summary.Results {
		byStatus[r.Status]++
	}
	assert.Equal(t, 1, byStatus[StatusRecorded])
	assert.Equal(t, 1, byStatus[StatusNotFound])
	assert.Equal(t, 1, byStatus[StatusMutationFailed])
	assert.Equal(t, 1, byStatus[StatusSkipped])
}

func TestDriver_ProbeFailure(t *testing.T) {
	dir := writeSourceDir(t)
	prober := &fakeProber{err: fmt.Errorf("%w: boom", probe.ErrCompileFailed)}
	sink := &memorySink{}

	d := NewDriver(prober, sink, WithSourceDir(dir))
	summary, err := d.Run(context.Background(), []manifest.Target{
		{FileName: "sample.cpp", FunctionName: "add_one"},
	})
	require.NoError(t, err)

	require.Len(t, summary.Results, 1)
	assert.Equal(t, StatusProbeFailed, summary.Results[0].Status)
	assert.ErrorIs(t, summary.Results[0].Err, probe.ErrCompileFailed)
	assert.Empty(t, sink.all())
}

func TestDriver_ZeroBaselineSkips(t *testing.T) {
	dir := writeSourceDir(t)
	prober := &fakeProber{baselineSize: 0, forcedSize: 100}
	sink := &memorySink{}

	d := NewDriver(prober, sink, WithSourceDir(dir))
	summary, err := d.Run(context.Background(), []manifest.Target{
		{FileName: "sample.cpp", FunctionName: "add_one"},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusSkipped, summary.Results[0].Status)
	assert.Empty(t, sink.all())
}

func TestDriver_SinkFailureSkips(t *testing.T) {
	dir := writeSourceDir(t)
	prober := &fakeProber{baselineSize: 1000, forcedSize: 1100}
	sink := &memorySink{err: errors.New("disk full")}

	d := NewDriver(prober, sink, WithSourceDir(dir))
	summary, err := d.Run(context.Background(), []manifest.Target{
		{FileName: "sample.cpp", FunctionName: "add_one"},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusSkipped, summary.Results[0].Status)
}

func TestDriver_ConcurrentTargets(t *testing.T) {
	dir := writeSourceDir(t)
	prober := &fakeProber{baselineSize: 500, forcedSize: 600}
	sink := &memorySink{}

	var targets []manifest.Target
	for i := 0; i < 24; i++ {
		name := "add_one"
		if i%2 == 1 {
			name = "double_it"
		}
		targets = append(targets, manifest.Target{FileName: "sample.cpp", FunctionName: name})
	}

	d := NewDriver(prober, sink, WithSourceDir(dir), WithWorkers(8))
	summary, err := d.Run(context.Background(), targets)
	require.NoError(t, err)

	assert.Equal(t, 24, summary.Total)
	assert.Equal(t, 24, summary.Recorded)
	assert.Len(t, sink.all(), 24)

	// Two probes per target, none elided.
	assert.Equal(t, 48, prober.calls)
}

func TestDriver_CanceledContext(t *testing.T) {
	dir := writeSourceDir(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDriver(&fakeProber{baselineSize: 1, forcedSize: 1}, &memorySink{}, WithSourceDir(dir))
	_, err := d.Run(ctx, []manifest.Target{
		{FileName: "sample.cpp", FunctionName: "add_one"},
	})
	assert.Error(t, err)
}
