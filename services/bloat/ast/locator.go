// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ast

import (
	"fmt"
	"log/slog"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Function is a located function, method, or function template.
type Function struct {
	// Node is the node whose extent covers the whole declaration. For
	// templates this is the template_declaration, so the extent (and
	// therefore the token count) includes the template header.
	Node *sitter.Node

	// Definition is the function_definition node itself.
	Definition *sitter.Node

	// Name is the unqualified name the function was located by.
	Name string

	// IsTemplate is true iff the declaration is a function template.
	IsTemplate bool
}

// Locate finds a function by name among the translation unit's top-level
// declarations.
//
// Description:
//
//	Plain names match free functions and function templates that are
//	immediate children of the translation unit root. Qualified names of the
//	form "Class::method" first locate the class or struct by name among the
//	top-level declarations, then match the method among the class body's
//	immediate members (i.e. methods defined in-class).
//
//	Overloads are not disambiguated: when several top-level declarations
//	share the name, the first in source order wins and a warning is logged.
//	Manifests that need a specific overload must avoid overloaded names.
//
// Outputs:
//   - *Function: the located declaration
//   - error: ErrTargetNotFound when no match exists; never a panic
func (tu *TranslationUnit) Locate(name string) (*Function, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty target name", ErrTargetNotFound)
	}

	if strings.Contains(name, "::") {
		parts := strings.SplitN(name, "::", 2)
		return tu.locateMethod(parts[0], parts[1])
	}

	var matches []*Function

	root := tu.Root()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)

		switch child.Type() {
		case "function_definition":
			if tu.declaredName(child) == name {
				matches = append(matches, &Function{
					Node:       child,
					Definition: child,
					Name:       name,
				})
			}
		case "template_declaration":
			def := templatedDefinition(child)
			if def != nil && tu.declaredName(def) == name {
				matches = append(matches, &Function{
					Node:       child,
					Definition: def,
					Name:       name,
					IsTemplate: true,
				})
			}
		}
	}

	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrTargetNotFound, name)
	}
	if len(matches) > 1 {
		slog.Warn("ambiguous target, using first match in source order",
			slog.String("file", tu.FilePath),
			slog.String("function", name),
			slog.Int("candidates", len(matches)))
	}
	return matches[0], nil
}

// locateMethod finds a method defined inside a top-level class or struct.
func (tu *TranslationUnit) locateMethod(className, methodName string) (*Function, error) {
	root := tu.Root()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		class := classSpecifier(root.NamedChild(i))
		if class == nil {
			continue
		}

		nameNode := class.ChildByFieldName("name")
		if nameNode == nil || tu.Text(nameNode) != className {
			continue
		}

		body := class.ChildByFieldName("body")
		if body == nil {
			continue
		}

		for j := 0; j < int(body.NamedChildCount()); j++ {
			member := body.NamedChild(j)
			if member.Type() != "function_definition" {
				continue
			}
			if tu.declaredName(member) == methodName {
				return &Function{
					Node:       member,
					Definition: member,
					Name:       methodName,
				}, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: %s::%s", ErrTargetNotFound, className, methodName)
}

// declaredName returns the unqualified declared name of a function
// definition, or "" when the declarator shape is unrecognized.
func (tu *TranslationUnit) declaredName(def *sitter.Node) string {
	fd := functionDeclarator(def)
	if fd == nil {
		return ""
	}

	id := fd.ChildByFieldName("declarator")
	if id == nil {
		return ""
	}

	name := tu.Text(id)
	// Out-of-class definitions carry a scope qualifier in the declarator.
	if idx := strings.LastIndex(name, "::"); idx >= 0 {
		name = name[idx+2:]
	}
	return name
}

// functionDeclarator descends through pointer/reference declarators to the
// function_declarator of a definition (e.g. `int *f()` wraps the
// function_declarator in a pointer_declarator).
func functionDeclarator(def *sitter.Node) *sitter.Node {
	d := def.ChildByFieldName("declarator")
	for d != nil && d.Type() != "function_declarator" {
		next := d.ChildByFieldName("declarator")
		if next == nil {
			return nil
		}
		d = next
	}
	return d
}

// templatedDefinition returns the function_definition directly inside a
// template_declaration, or nil for class templates and bare declarations.
func templatedDefinition(tmpl *sitter.Node) *sitter.Node {
	for i := 0; i < int(tmpl.NamedChildCount()); i++ {
		child := tmpl.NamedChild(i)
		if child.Type() == "function_definition" {
			return child
		}
	}
	return nil
}

// classSpecifier unwraps a top-level node to its class or struct specifier.
// Handles both a bare `class A {...};` and the `class A {...} a;` shape
// where the specifier sits inside a declaration.
func classSpecifier(n *sitter.Node) *sitter.Node {
	switch n.Type() {
	case "class_specifier", "struct_specifier":
		return n
	case "declaration":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			if child.Type() == "class_specifier" || child.Type() == "struct_specifier" {
				return child
			}
		}
	}
	return nil
}
