// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ast parses C++ translation units with tree-sitter and extracts
// structural features from individual function definitions.
//
// The package provides three capabilities used by the inlining experiment:
//
//   - CppParser: parse a translation unit into a navigable syntax tree
//   - TranslationUnit.Locate: find a function (or Class::method) by name
//   - Extractor: compute a FeatureSet bounded to the function's byte extent
//
// Feature extraction is a pure function of the unmodified source text and
// the target name: extracting twice from identical input yields identical
// results. All types in this package are created fresh per target and hold
// no cross-target state.
package ast

import (
	"errors"
	"strconv"
	"strings"
)

// Sentinel errors for parsing and location failures.
var (
	// ErrTargetNotFound is returned when no function with the requested
	// name exists among the translation unit's top-level declarations
	// (or, for qualified names, among the class's immediate members).
	ErrTargetNotFound = errors.New("target function not found")

	// ErrInvalidContent is returned when input is not valid UTF-8.
	ErrInvalidContent = errors.New("invalid content")

	// ErrFileTooLarge is returned when input exceeds the parser's size limit.
	ErrFileTooLarge = errors.New("file exceeds maximum size limit")

	// ErrUnknownProfile is returned by ProfileByName for an unrecognized name.
	ErrUnknownProfile = errors.New("unknown feature profile")
)

// FeatureSet holds the structural features of one function.
//
// All counters are computed from a preorder walk of the syntax tree,
// restricted to nodes whose byte extent is fully contained in the
// function's extent. Callables physically defined inside the body (e.g.
// lambdas) are inside that extent, so their statements count toward the
// enclosing function. This mirrors the behavior of the extraction the
// downstream model was trained against and is intentional.
type FeatureSet struct {
	// CyclomaticComplexity starts at 1 (a single linear path) and
	// increases by one per decision point: conditional branches, loops,
	// switch-case labels, and ternary expressions.
	CyclomaticComplexity int

	// ParameterCount is the number of formal parameters.
	ParameterCount int

	// LocalVariableCount is the number of local variable declarators.
	LocalVariableCount int

	// BodySizeStmts counts statement nodes, excluding compound-statement
	// wrappers.
	BodySizeStmts int

	// TokenCount is the number of lexical tokens spanning the function's
	// extent, a size proxy independent of tree shape.
	TokenCount int

	// IsComplexReturn is true unless the return type's spelling contains
	// one of the primitive type names (void, int, float, ...).
	IsComplexReturn bool

	// IsTemplate is true iff the located declaration is a function
	// template rather than a plain function or method.
	IsTemplate bool

	// CallSiteCount is the number of call expressions in the body.
	CallSiteCount int
}

// FeatureProfile selects a named column subset of FeatureSet for dataset
// emission. The two profiles are mutually exclusive output schemas; rows
// produced under one profile must never be mixed with the other.
type FeatureProfile interface {
	// Name returns the profile identifier used in config and CLI flags.
	Name() string

	// Columns returns the CSV column names, in emission order.
	Columns() []string

	// Row renders a FeatureSet into values aligned with Columns.
	Row(fs *FeatureSet) []string
}

// MinimalProfile is the six-column structural profile.
type MinimalProfile struct{}

// Name implements FeatureProfile.
func (MinimalProfile) Name() string { return "minimal" }

// Columns implements FeatureProfile.
func (MinimalProfile) Columns() []string {
	return []string{
		"cyclomatic_complexity",
		"parameter_count",
		"local_variable_count",
		"body_size_stmts",
		"token_count",
		"is_complex_return",
	}
}

// Row implements FeatureProfile.
func (MinimalProfile) Row(fs *FeatureSet) []string {
	return []string{
		strconv.Itoa(fs.CyclomaticComplexity),
		strconv.Itoa(fs.ParameterCount),
		strconv.Itoa(fs.LocalVariableCount),
		strconv.Itoa(fs.BodySizeStmts),
		strconv.Itoa(fs.TokenCount),
		boolCell(fs.IsComplexReturn),
	}
}

// CallDensityProfile is the four-column profile that tracks call density
// instead of the finer-grained structural counters.
type CallDensityProfile struct{}

// Name implements FeatureProfile.
func (CallDensityProfile) Name() string { return "calldensity" }

// Columns implements FeatureProfile.
func (CallDensityProfile) Columns() []string {
	return []string{
		"is_template",
		"cyclomatic_complexity",
		"call_site_count",
		"body_size_stmts",
	}
}

// Row implements FeatureProfile.
func (CallDensityProfile) Row(fs *FeatureSet) []string {
	return []string{
		boolCell(fs.IsTemplate),
		strconv.Itoa(fs.CyclomaticComplexity),
		strconv.Itoa(fs.CallSiteCount),
		strconv.Itoa(fs.BodySizeStmts),
	}
}

// ProfileByName resolves a profile identifier to its implementation.
//
// Outputs:
//   - FeatureProfile: the profile, nil on error
//   - error: ErrUnknownProfile for unrecognized names
func ProfileByName(name string) (FeatureProfile, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "minimal", "":
		return MinimalProfile{}, nil
	case "calldensity", "call-density", "call_density":
		return CallDensityProfile{}, nil
	default:
		return nil, ErrUnknownProfile
	}
}

// boolCell renders a bool the way the datasets encode flags (1/0).
func boolCell(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// simpleReturnTypes are the primitive spellings that mark a return type as
// non-complex. Matching is substring-based on the type's textual spelling,
// so "unsigned long long" and "const char *" both count as simple.
var simpleReturnTypes = []string{
	"void", "int", "float", "double", "char", "bool", "short", "long",
}

// isComplexReturnSpelling reports whether a return-type spelling names
// something beyond the primitive set. An empty spelling (constructors,
// destructors) is treated as complex.
func isComplexReturnSpelling(spelling string) bool {
	for _, st := range simpleReturnTypes {
		if strings.Contains(spelling, st) {
			return false
		}
	}
	return true
}
