// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package mutate rewrites C++ source text to force or forbid inlining of a
// single function.
//
// The rewrite is pattern-anchored, not AST-anchored: a regular expression
// matches the declaration site and the compiler attribute is spliced into
// the text. This is inherently fragile (it can in principle match inside
// comments or strings), which is why the package enforces an exactly-one-
// match invariant: zero matches and multiple matches are both hard errors,
// never a silent no-op or an arbitrary pick.
package mutate

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// Directive is the compiler annotation injected at the declaration site.
type Directive string

// The two experiment directives. ForceNoInline produces the baseline
// variant; ForceInline the forced variant.
const (
	ForceNoInline Directive = "__attribute__((noinline))"
	ForceInline   Directive = "__attribute__((always_inline))"
)

// Sentinel errors for mutation failures.
var (
	// ErrMutationNotFound is returned when the target function's
	// declaration site cannot be matched in the source text.
	ErrMutationNotFound = errors.New("target not found in source text")

	// ErrMutationAmbiguous is returned when the pattern matches more than
	// one site. The caller must disambiguate the manifest entry rather
	// than let the experiment label the wrong definition.
	ErrMutationAmbiguous = errors.New("target matches multiple sites in source text")

	// ErrInvalidTarget is returned for names that are not C++ identifiers.
	ErrInvalidTarget = errors.New("invalid target name")
)

// identRe validates the unqualified function name before it is embedded in
// a pattern.
var identRe = regexp.MustCompile(`^[A-Za-z_]\w*$`)

// SourceVariant is a full copy of a translation unit's text with exactly
// one function site altered.
type SourceVariant struct {
	// Content is the complete modified source text.
	Content string

	// FunctionName is the unqualified name of the altered function.
	FunctionName string

	// Directive is the annotation that was injected.
	Directive Directive
}

// Mutator injects inlining directives at function declaration sites.
//
// Thread Safety: Mutator is stateless and safe for concurrent use.
type Mutator struct{}

// NewMutator creates a Mutator.
func NewMutator() *Mutator {
	return &Mutator{}
}

// Apply returns a new source text with the directive inserted immediately
// before the target's declaration, or immediately after its template
// header when the target is a function template.
//
// Inputs:
//   - source: full translation-unit text; never modified in place
//   - functionName: plain name or Class::method; only the final segment
//     anchors the pattern, the class qualifier is matched optionally so
//     out-of-class definitions are covered
//   - directive: ForceNoInline or ForceInline
//
// Outputs:
//   - *SourceVariant: the altered copy
//   - error: ErrMutationNotFound (zero matches), ErrMutationAmbiguous
//     (more than one match), or ErrInvalidTarget
//
// Template declarations are tried first: their plain-function suffix would
// otherwise also satisfy the plain pattern and the directive has to land
// after the template header, not before it.
func (m *Mutator) Apply(source, functionName string, directive Directive) (*SourceVariant, error) {
	name := functionName
	if idx := strings.LastIndex(name, "::"); idx >= 0 {
		name = name[idx+2:]
	}
	if !identRe.MatchString(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTarget, functionName)
	}

	quoted := regexp.QuoteMeta(name)

	// A return type is one or more type tokens. A token is an identifier,
	// optionally scope-qualified (std::vector), templated (<int>), or
	// reference/pointer-suffixed. "::" must be a full scope separator so a
	// lone ":" (e.g. an access specifier) never reads as part of a type.
	typeToken := `[A-Za-z_]\w*(?:::[A-Za-z_]\w*)*(?:<[^<>]*>)?[&*]?\s+`
	signature := `((?:` + typeToken + `)+(?:[A-Za-z_]\w*::)?` + quoted + `\s*\([^)]*\))\s*\{`

	tmplRe := regexp.MustCompile(`(template\s*<[^>]*>\s*)` + signature)
	plainRe := regexp.MustCompile(signature)

	if matches := tmplRe.FindAllStringSubmatchIndex(source, -1); len(matches) > 0 {
		if len(matches) > 1 {
			return nil, fmt.Errorf("%w: %q (%d template sites)", ErrMutationAmbiguous, functionName, len(matches))
		}
		loc := matches[0]
		content := source[:loc[3]] + string(directive) + " " + source[loc[4]:loc[5]] + " {" + source[loc[1]:]
		return m.variant(content, name, directive, "template"), nil
	}

	matches := plainRe.FindAllStringSubmatchIndex(source, -1)
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %q", ErrMutationNotFound, functionName)
	case 1:
		// fall through
	default:
		return nil, fmt.Errorf("%w: %q (%d sites)", ErrMutationAmbiguous, functionName, len(matches))
	}

	idx := matches[0]
	content := source[:idx[2]] + string(directive) + " " + source[idx[2]:idx[3]] + " {" + source[idx[1]:]
	return m.variant(content, name, directive, "plain"), nil
}

func (m *Mutator) variant(content, name string, directive Directive, shape string) *SourceVariant {
	slog.Debug("applied inlining directive",
		slog.String("function", name),
		slog.String("directive", string(directive)),
		slog.String("shape", shape))

	return &SourceVariant{
		Content:      content,
		FunctionName: name,
		Directive:    directive,
	}
}
