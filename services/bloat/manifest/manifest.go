// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package manifest loads the experiment target manifest: a JSON mapping
// from source-file name to the ordered list of function identifiers to
// measure in that file. The manifest is produced by the corpus generator
// (or written by hand) and is the join key space for the feature and
// impact datasets.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Sentinel errors for manifest loading.
var (
	// ErrManifestMissing is returned when the manifest file does not
	// exist. Fatal at startup: no targets, no run.
	ErrManifestMissing = errors.New("manifest not found")

	// ErrManifestInvalid is returned for unparseable or empty manifests.
	ErrManifestInvalid = errors.New("manifest invalid")
)

// Target identifies one (file, function) experiment subject. FunctionName
// may be qualified as Class::method. Targets are immutable and are the
// identity key joining feature rows to impact rows.
type Target struct {
	FileName     string
	FunctionName string
}

// Key returns the join key used by the downstream training stage.
func (t Target) Key() string {
	return t.FunctionName + "@" + t.FileName
}

// Manifest is a loaded target manifest.
type Manifest struct {
	files map[string][]string
}

// Load reads and validates a manifest file.
//
// Outputs:
//   - *Manifest: the parsed manifest
//   - error: ErrManifestMissing when the file does not exist,
//     ErrManifestInvalid for malformed JSON, empty manifests, or blank
//     function names
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrManifestMissing, path)
		}
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	var files map[string][]string
	if err := json.Unmarshal(data, &files); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrManifestInvalid, path, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s: no entries", ErrManifestInvalid, path)
	}

	for file, funcs := range files {
		if strings.TrimSpace(file) == "" {
			return nil, fmt.Errorf("%w: blank file name", ErrManifestInvalid)
		}
		for _, fn := range funcs {
			if strings.TrimSpace(fn) == "" {
				return nil, fmt.Errorf("%w: blank function in %s", ErrManifestInvalid, file)
			}
		}
	}

	return &Manifest{files: files}, nil
}

// Save writes a manifest for the given per-file function lists.
func Save(path string, files map[string][]string) error {
	data, err := json.MarshalIndent(files, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest %s: %w", path, err)
	}
	return nil
}

// Files returns the manifest's file names in sorted order.
func (m *Manifest) Files() []string {
	names := make([]string, 0, len(m.files))
	for name := range m.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Functions returns the ordered function list for one file.
func (m *Manifest) Functions(file string) []string {
	return m.files[file]
}

// Targets flattens the manifest into a deterministic target list: files in
// sorted order, functions in manifest order within each file.
func (m *Manifest) Targets() []Target {
	var targets []Target
	for _, file := range m.Files() {
		for _, fn := range m.files[file] {
			targets = append(targets, Target{FileName: file, FunctionName: fn})
		}
	}
	return targets
}

// Len returns the total number of targets.
func (m *Manifest) Len() int {
	n := 0
	for _, funcs := range m.files {
		n += len(funcs)
	}
	return n
}
