// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package dataset persists the feature and impact datasets as CSV.
//
// Both writers stream: rows are written as they arrive and flushed
// immediately, so a run stopped between targets leaves every previously
// written row valid and loadable. Row writes are mutex-guarded, making
// each row atomically complete even with concurrent experiment workers.
// The two datasets are joined downstream on (function_name, file_name).
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/ashishh2/Predicting-Code-Bloat/services/bloat/ast"
	"github.com/ashishh2/Predicting-Code-Bloat/services/bloat/experiment"
	"github.com/ashishh2/Predicting-Code-Bloat/services/bloat/manifest"
)

// keyColumns prefix every dataset row; they are the external join key.
var keyColumns = []string{"function_name", "file_name"}

// FeatureWriter streams feature rows under a fixed profile. The profile is
// chosen at construction and fixed for the file's lifetime: the two
// profiles are mutually exclusive schemas and must never be mixed.
type FeatureWriter struct {
	mu      sync.Mutex
	w       *csv.Writer
	profile ast.FeatureProfile
}

// NewFeatureWriter creates a writer and emits the header row.
func NewFeatureWriter(w io.Writer, profile ast.FeatureProfile) (*FeatureWriter, error) {
	fw := &FeatureWriter{
		w:       csv.NewWriter(w),
		profile: profile,
	}

	header := append(append([]string{}, keyColumns...), profile.Columns()...)
	if err := fw.w.Write(header); err != nil {
		return nil, fmt.Errorf("writing feature header: %w", err)
	}
	fw.w.Flush()

	return fw, fw.w.Error()
}

// WriteFeatures emits one feature row for a target.
func (fw *FeatureWriter) WriteFeatures(target manifest.Target, fs *ast.FeatureSet) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	row := append([]string{target.FunctionName, target.FileName}, fw.profile.Row(fs)...)
	if err := fw.w.Write(row); err != nil {
		return fmt.Errorf("writing feature row for %s: %w", target.Key(), err)
	}
	fw.w.Flush()
	return fw.w.Error()
}

// ImpactWriter streams impact records. It implements experiment.RecordSink.
type ImpactWriter struct {
	mu sync.Mutex
	w  *csv.Writer
}

// NewImpactWriter creates a writer and emits the header row.
func NewImpactWriter(w io.Writer) (*ImpactWriter, error) {
	iw := &ImpactWriter{w: csv.NewWriter(w)}

	header := append(append([]string{}, keyColumns...), "size_increase_percent")
	if err := iw.w.Write(header); err != nil {
		return nil, fmt.Errorf("writing impact header: %w", err)
	}
	iw.w.Flush()

	return iw, iw.w.Error()
}

// WriteImpact emits one impact record as a complete row.
func (iw *ImpactWriter) WriteImpact(rec experiment.ImpactRecord) error {
	iw.mu.Lock()
	defer iw.mu.Unlock()

	row := []string{
		rec.FunctionName,
		rec.FileName,
		strconv.FormatFloat(rec.SizeIncreasePercent, 'f', 6, 64),
	}
	if err := iw.w.Write(row); err != nil {
		return fmt.Errorf("writing impact row for %s@%s: %w", rec.FunctionName, rec.FileName, err)
	}
	iw.w.Flush()
	return iw.w.Error()
}

// Compile-time interface compliance check.
var _ experiment.RecordSink = (*ImpactWriter)(nil)
