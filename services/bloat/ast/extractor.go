// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ast

import (
	"context"
	"fmt"
	"time"

	sitter "github.com/smacker/go-tree-sitter"
)

// decisionKinds are node types that add a linearly independent path:
// conditional branches, loops, switch-case labels, and ternaries.
var decisionKinds = map[string]bool{
	"if_statement":           true,
	"for_statement":          true,
	"for_range_loop":         true,
	"while_statement":        true,
	"do_statement":           true,
	"case_statement":         true,
	"conditional_expression": true,
}

// statementKinds are node types counted toward body size. Compound
// statements are wrappers, not statements, and are excluded everywhere,
// not just at the top level of the body.
var statementKinds = map[string]bool{
	"expression_statement": true,
	"declaration":          true,
	"if_statement":         true,
	"for_statement":        true,
	"for_range_loop":       true,
	"while_statement":      true,
	"do_statement":         true,
	"switch_statement":     true,
	"case_statement":       true,
	"return_statement":     true,
	"break_statement":      true,
	"continue_statement":   true,
	"goto_statement":       true,
	"labeled_statement":    true,
	"try_statement":        true,
	"throw_statement":      true,
}

// declaratorKinds are the per-variable declarator shapes inside a
// declaration node. `int a, b;` holds two declarators and counts as two
// local variables, matching how the original dataset was produced.
var declaratorKinds = map[string]bool{
	"identifier":           true,
	"init_declarator":      true,
	"pointer_declarator":   true,
	"reference_declarator": true,
	"array_declarator":     true,
}

// parameterKinds are the formal-parameter node types in a parameter list.
var parameterKinds = map[string]bool{
	"parameter_declaration":          true,
	"optional_parameter_declaration": true,
	"variadic_parameter_declaration": true,
}

// Extractor computes a FeatureSet for a located function.
//
// Description:
//
//	The extractor walks the tree in preorder starting at the translation
//	unit root and discards every node whose byte extent is not fully
//	contained in the target function's [start, end) extent. This bounds
//	the walk to exactly the target even though the traversal covers the
//	whole file. Callables physically defined inside the body (lambdas,
//	local structs with methods) fall inside that extent, so their internal
//	statements count toward the enclosing function; this quirk is kept
//	deliberately for dataset compatibility.
//
// Thread Safety: Extractor is stateless and safe for concurrent use.
type Extractor struct{}

// NewExtractor creates an Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract computes the feature vector for a located function.
//
// Inputs:
//   - ctx: Context, used for tracing and metric attribution only; the
//     walk itself is not interruptible.
//   - tu: The translation unit the function was located in.
//   - fn: The located function.
//
// Outputs:
//   - *FeatureSet: the computed features, never nil on success
//   - error: non-nil only for malformed inputs
//
// The result is a pure function of (tu contents, fn): extracting twice
// yields identical feature sets.
func (e *Extractor) Extract(ctx context.Context, tu *TranslationUnit, fn *Function) (*FeatureSet, error) {
	if tu == nil || fn == nil || fn.Node == nil {
		return nil, fmt.Errorf("%w: nil translation unit or function", ErrInvalidContent)
	}

	ctx, span := startExtractSpan(ctx, tu.FilePath, fn.Name)
	defer span.End()
	start := time.Now()

	funcStart := fn.Node.StartByte()
	funcEnd := fn.Node.EndByte()

	fs := &FeatureSet{
		CyclomaticComplexity: 1,
		IsTemplate:           fn.IsTemplate,
	}

	if typeNode := fn.Definition.ChildByFieldName("type"); typeNode != nil {
		fs.IsComplexReturn = isComplexReturnSpelling(tu.Text(typeNode))
	} else {
		// Constructors and destructors have no return type spelling.
		fs.IsComplexReturn = true
	}

	fs.ParameterCount = countParameters(fn.Definition)

	walkContained(tu.Root(), funcStart, funcEnd, func(n *sitter.Node) {
		kind := n.Type()

		if decisionKinds[kind] {
			fs.CyclomaticComplexity++
		}
		if kind == "declaration" {
			fs.LocalVariableCount += countDeclarators(n)
		}
		if statementKinds[kind] {
			fs.BodySizeStmts++
		}
		if kind == "call_expression" {
			fs.CallSiteCount++
		}
	})

	fs.TokenCount = countTokens(tu.Root(), funcStart, funcEnd)

	recordExtractMetrics(ctx, time.Since(start), fs)
	setExtractSpanResult(span, fs)

	return fs, nil
}

// countParameters returns the number of formal parameters of a definition.
func countParameters(def *sitter.Node) int {
	fd := functionDeclarator(def)
	if fd == nil {
		return 0
	}
	params := fd.ChildByFieldName("parameters")
	if params == nil {
		return 0
	}

	count := 0
	for i := 0; i < int(params.NamedChildCount()); i++ {
		if parameterKinds[params.NamedChild(i).Type()] {
			count++
		}
	}
	return count
}

// countDeclarators counts the per-variable declarators of a declaration.
func countDeclarators(decl *sitter.Node) int {
	count := 0
	for i := 0; i < int(decl.NamedChildCount()); i++ {
		if declaratorKinds[decl.NamedChild(i).Type()] {
			count++
		}
	}
	return count
}

// walkContained visits, in preorder, every named node whose extent is fully
// contained in [start, end). Subtrees with no overlap are pruned.
func walkContained(n *sitter.Node, start, end uint32, visit func(*sitter.Node)) {
	if n.EndByte() <= start || n.StartByte() >= end {
		return
	}

	if n.IsNamed() && n.StartByte() >= start && n.EndByte() <= end {
		visit(n)
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		walkContained(n.Child(i), start, end, visit)
	}
}

// countTokens counts the lexical tokens (tree leaves, anonymous included)
// within [start, end).
func countTokens(n *sitter.Node, start, end uint32) int {
	if n.EndByte() <= start || n.StartByte() >= end {
		return 0
	}

	if n.ChildCount() == 0 {
		if n.StartByte() >= start && n.EndByte() <= end {
			return 1
		}
		return 0
	}

	count := 0
	for i := 0; i < int(n.ChildCount()); i++ {
		count += countTokens(n.Child(i), start, end)
	}
	return count
}
