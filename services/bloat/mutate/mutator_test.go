// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package mutate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const plainSource = `#include <vector>

int add_one(int a) {
    return a + 1;
}

int use_it(int n) {
    int total = 0;
    for (int i = 0; i < n; ++i) {
        total += add_one(i);
    }
    return total;
}
`

const templateSource = `template<typename T>
T process_value(T input) {
    T result = input;
    for (int i = 0; i < 3; ++i) {
        result = result + input;
    }
    return result;
}

int standalone(int x) {
    return process_value(x) + process_value(x * 2);
}
`

const methodSource = `class Widget {
public:
    void draw() {
        refresh_count++;
    }
private:
    int refresh_count;
};
`

func TestApply_PlainFunction(t *testing.T) {
	v, err := NewMutator().Apply(plainSource, "add_one", ForceNoInline)
	require.NoError(t, err)

	assert.Contains(t, v.Content, "__attribute__((noinline)) int add_one(int a) {")
	assert.Equal(t, "add_one", v.FunctionName)
	assert.Equal(t, ForceNoInline, v.Directive)

	// Exactly one insertion, and call sites are untouched.
	assert.Equal(t, 1, strings.Count(v.Content, "noinline"))
	assert.Contains(t, v.Content, "total += add_one(i);")
}

func TestApply_ForcedVariant(t *testing.T) {
	v, err := NewMutator().Apply(plainSource, "add_one", ForceInline)
	require.NoError(t, err)

	assert.Contains(t, v.Content, "__attribute__((always_inline)) int add_one(int a) {")
	assert.NotContains(t, v.Content, "noinline")
}

func TestApply_TemplateDirectiveAfterHeader(t *testing.T) {
	v, err := NewMutator().Apply(templateSource, "process_value", ForceInline)
	require.NoError(t, err)

	// The attribute must land between the template header and the
	// declaration, never in front of the template keyword.
	headerIdx := strings.Index(v.Content, "template<typename T>")
	attrIdx := strings.Index(v.Content, "__attribute__((always_inline))")
	declIdx := strings.Index(v.Content, "T process_value(T input)")

	require.GreaterOrEqual(t, headerIdx, 0)
	require.Greater(t, attrIdx, headerIdx)
	require.Greater(t, declIdx, attrIdx)
	assert.Equal(t, 1, strings.Count(v.Content, "always_inline"))
}

func TestApply_Method(t *testing.T) {
	v, err := NewMutator().Apply(methodSource, "Widget::draw", ForceNoInline)
	require.NoError(t, err)

	assert.Contains(t, v.Content, "__attribute__((noinline)) void draw() {")
	assert.Equal(t, "draw", v.FunctionName)
}

func TestApply_NotFound(t *testing.T) {
	_, err := NewMutator().Apply(plainSource, "missing_function", ForceNoInline)
	assert.ErrorIs(t, err, ErrMutationNotFound)
}

func TestApply_AmbiguousOverloads(t *testing.T) {
	const overloaded = `int pick(int a) {
    return a;
}

int pick(long b) {
    return 0;
}
`
	_, err := NewMutator().Apply(overloaded, "pick", ForceNoInline)
	assert.ErrorIs(t, err, ErrMutationAmbiguous)
}

func TestApply_InvalidTarget(t *testing.T) {
	for _, name := range []string{"", "123abc", "a b", "x;rm"} {
		_, err := NewMutator().Apply(plainSource, name, ForceNoInline)
		assert.ErrorIs(t, err, ErrInvalidTarget, "name %q", name)
	}
}

func TestApply_SourceUnmodified(t *testing.T) {
	before := plainSource
	_, err := NewMutator().Apply(plainSource, "add_one", ForceNoInline)
	require.NoError(t, err)
	assert.Equal(t, before, plainSource)
}

func TestApply_BothVariantsIndependent(t *testing.T) {
	m := NewMutator()

	base, err := m.Apply(plainSource, "add_one", ForceNoInline)
	require.NoError(t, err)
	forced, err := m.Apply(plainSource, "add_one", ForceInline)
	require.NoError(t, err)

	assert.NotEqual(t, base.Content, forced.Content)
	assert.NotContains(t, forced.Content, string(ForceNoInline))
	assert.NotContains(t, base.Content, string(ForceInline))
}
