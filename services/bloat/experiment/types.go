// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package experiment sequences the inlining experiment: mutate each target
// function into a baseline (noinline) and a forced (always_inline) source
// variant, compile both, and record the object-size impact.
package experiment

import (
	"time"

	"github.com/ashishh2/Predicting-Code-Bloat/services/bloat/manifest"
)

// Status is the per-target state in the experiment state machine.
//
// Transitions:
//
//	PENDING → LOCATED | NOT_FOUND
//	LOCATED → MUTATED | MUTATION_FAILED
//	MUTATED → BASELINE_PROBED → FORCED_PROBED | PROBE_FAILED
//	FORCED_PROBED → RECORDED | SKIPPED
//
// Every failure state is terminal for its target only; the driver always
// advances to the next target.
type Status string

const (
	StatusPending        Status = "PENDING"
	StatusLocated        Status = "LOCATED"
	StatusNotFound       Status = "NOT_FOUND"
	StatusMutated        Status = "MUTATED"
	StatusMutationFailed Status = "MUTATION_FAILED"
	StatusBaselineProbed Status = "BASELINE_PROBED"
	StatusForcedProbed   Status = "FORCED_PROBED"
	StatusProbeFailed    Status = "PROBE_FAILED"
	StatusRecorded       Status = "RECORDED"
	StatusSkipped        Status = "SKIPPED"
)

// ImpactRecord is the supervised-learning label for one target: the
// percentage change in object size caused by forcing inlining. Written at
// most once per target, and only when both probes succeeded and the
// baseline size was nonzero.
type ImpactRecord struct {
	FunctionName        string
	FileName            string
	SizeIncreasePercent float64
}

// RecordSink receives completed impact records. Implementations must make
// each write atomically complete: a record is either fully emitted or not
// at all, even with concurrent writers.
type RecordSink interface {
	WriteImpact(rec ImpactRecord) error
}

// TargetResult is the terminal outcome for one target.
type TargetResult struct {
	Target manifest.Target
	Status Status

	// Err is the isolating failure, nil for RECORDED targets.
	Err error

	// Sizes and percent are populated for RECORDED targets.
	BaselineSize int64
	ForcedSize   int64
	Percent      float64
}

// Summary aggregates one experiment run.
type Summary struct {
	Total    int
	Recorded int
	Skipped  int
	Duration time.Duration
	Results  []TargetResult
}
