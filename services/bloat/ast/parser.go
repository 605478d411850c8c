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
	"log/slog"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"
)

// File size limits for parser input.
const (
	// DefaultMaxFileSize is the maximum source size the parser accepts (10MB).
	DefaultMaxFileSize = 10 * 1024 * 1024

	// WarnFileSize is the threshold at which a warning is logged (1MB).
	WarnFileSize = 1 * 1024 * 1024
)

// CppParserOption configures a CppParser instance.
type CppParserOption func(*CppParser)

// WithMaxFileSize sets the maximum source size the parser will accept.
func WithMaxFileSize(bytes int64) CppParserOption {
	return func(p *CppParser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

// CppParser parses C++ source into a TranslationUnit.
//
// Description:
//
//	CppParser uses the tree-sitter C++ grammar. The parse is error-tolerant:
//	syntactically invalid source still yields a tree, with error nodes where
//	recovery happened. We only need structural shape and byte extents, so a
//	full semantic analysis (includes, overload resolution) is deliberately
//	out of scope; each file is parsed standalone.
//
// Thread Safety:
//
//	CppParser is safe for concurrent use. Each Parse call creates its own
//	tree-sitter parser instance internally.
type CppParser struct {
	maxFileSize int64
}

// NewCppParser creates a CppParser with the given options.
func NewCppParser(opts ...CppParserOption) *CppParser {
	p := &CppParser{maxFileSize: DefaultMaxFileSize}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse parses one C++ source file into a TranslationUnit.
//
// Inputs:
//   - ctx: Context for cancellation. Checked before and after parsing;
//     tree-sitter cannot be interrupted mid-parse.
//   - content: Raw source bytes. Must be valid UTF-8.
//   - filePath: Path used for logging and feature/impact record keys.
//
// Outputs:
//   - *TranslationUnit: Parsed unit. Caller must call Close when done.
//   - error: ErrFileTooLarge, ErrInvalidContent, or a wrapped parse error.
func (p *CppParser) Parse(ctx context.Context, content []byte, filePath string) (*TranslationUnit, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled before start: %w", err)
	}

	if int64(len(content)) > p.maxFileSize {
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, len(content), p.maxFileSize)
	}

	if len(content) > WarnFileSize {
		slog.Warn("parsing large file",
			slog.String("file", filePath),
			slog.Int("size_bytes", len(content)))
	}

	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: content is not valid UTF-8", ErrInvalidContent)
	}

	ctx, span := startParseSpan(ctx, filePath, len(content))
	defer span.End()

	parser := sitter.NewParser()
	parser.SetLanguage(cpp.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}

	if err := ctx.Err(); err != nil {
		tree.Close()
		return nil, fmt.Errorf("parse canceled after tree-sitter: %w", err)
	}

	tu := &TranslationUnit{
		FilePath: filePath,
		content:  content,
		tree:     tree,
	}

	if root := tree.RootNode(); root != nil && root.HasError() {
		// Generated corpus files occasionally trip the grammar; extraction
		// still works on well-formed regions, so this is not fatal.
		slog.Warn("source contains syntax errors",
			slog.String("file", filePath))
	}

	return tu, nil
}

// TranslationUnit is one parsed C++ source file.
//
// A TranslationUnit owns its tree-sitter tree and must be closed to release
// the underlying C memory. It is read-only after Parse and safe for
// concurrent reads.
type TranslationUnit struct {
	// FilePath is the path the unit was parsed from.
	FilePath string

	content []byte
	tree    *sitter.Tree
}

// Root returns the translation unit's root node.
func (tu *TranslationUnit) Root() *sitter.Node {
	return tu.tree.RootNode()
}

// Content returns the raw source bytes the unit was parsed from.
func (tu *TranslationUnit) Content() []byte {
	return tu.content
}

// Text returns the source text spanned by a node.
func (tu *TranslationUnit) Text(n *sitter.Node) string {
	return n.Content(tu.content)
}

// Close releases the tree-sitter tree. The unit must not be used afterwards.
func (tu *TranslationUnit) Close() {
	if tu.tree != nil {
		tu.tree.Close()
		tu.tree = nil
	}
}
