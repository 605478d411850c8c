// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ast

import (
	"context"
	"reflect"
	"testing"
)

// Test source samples (embedded, no file I/O).
const (
	// Two decision points (if, while), 3 parameters, 2 locals.
	testCppTwoBranch = `int compute_total(int a, int b, int c) {
    int total = 0;
    int step = 2;
    if (a > b) {
        total = a;
    }
    while (step < c) {
        total += step;
        step = step * 2;
    }
    return total;
}
`

	// A straight-line function: complexity must stay at its floor of 1.
	testCppLinear = `void touch(int x) {
    x = x + 1;
}
`

	// A decision-heavy sibling next to a simple target: extent filtering
	// must keep the sibling's branches out of the target's counts.
	testCppSiblings = `int pick(int a) {
    if (a > 0) {
        return 1;
    }
    return 0;
}

int noisy(int a) {
    if (a > 1) { a++; }
    if (a > 2) { a++; }
    if (a > 3) { a++; }
    if (a > 4) { a++; }
    return a;
}
`

	// Template and non-template siblings with the same body.
	testCppTemplatePair = `template<typename T>
T scaled(T value) {
    T result = value * 2;
    return result;
}

int scaled_int(int value) {
    int result = value * 2;
    return result;
}
`

	testCppReturns = `#include <string>

std::string make_label(int id) {
    return std::to_string(id);
}

double ratio(int a, int b) {
    return (double)a / b;
}
`

	testCppCalls = `int helper(int x) {
    return x + 1;
}

int caller(int x) {
    int a = helper(x);
    int b = helper(a);
    return a + b;
}
`

	testCppMethod = `class Counter {
public:
    int bump(int by) {
        if (by > 0) {
            value += by;
        }
        return value;
    }
private:
    int value;
};
`

	testCppTernary = `int clamp_sign(int a) {
    return (a > 0) ? 1 : -1;
}
`
)

func mustExtract(t *testing.T, source, name string) *FeatureSet {
	t.Helper()

	tu, fn := mustLocate(t, source, name)
	defer tu.Close()

	fs, err := NewExtractor().Extract(context.Background(), tu, fn)
	if err != nil {
		t.Fatalf("Extract(%q): %v", name, err)
	}
	return fs
}

func TestExtract_TwoBranchFunction(t *testing.T) {
	fs := mustExtract(t, testCppTwoBranch, "compute_total")

	if fs.CyclomaticComplexity != 3 {
		t.Errorf("expected complexity 3, got %d", fs.CyclomaticComplexity)
	}
	if fs.ParameterCount != 3 {
		t.Errorf("expected 3 parameters, got %d", fs.ParameterCount)
	}
	if fs.LocalVariableCount != 2 {
		t.Errorf("expected 2 locals, got %d", fs.LocalVariableCount)
	}
	if fs.BodySizeStmts != 8 {
		t.Errorf("expected 8 body statements, got %d", fs.BodySizeStmts)
	}
	if fs.TokenCount == 0 {
		t.Error("expected nonzero token count")
	}
	if fs.IsComplexReturn {
		t.Error("int return must not be complex")
	}
	if fs.IsTemplate {
		t.Error("plain function must not be a template")
	}
}

func TestExtract_ComplexityFloor(t *testing.T) {
	fs := mustExtract(t, testCppLinear, "touch")

	if fs.CyclomaticComplexity != 1 {
		t.Errorf("expected complexity 1 for straight-line code, got %d", fs.CyclomaticComplexity)
	}
	if fs.BodySizeStmts < 1 {
		t.Errorf("expected at least 1 statement, got %d", fs.BodySizeStmts)
	}
}

func TestExtract_ExtentBoundsToTarget(t *testing.T) {
	fs := mustExtract(t, testCppSiblings, "pick")

	// The noisy sibling's four branches must not leak into pick's counts.
	if fs.CyclomaticComplexity != 2 {
		t.Errorf("expected complexity 2, got %d", fs.CyclomaticComplexity)
	}
}

func TestExtract_TemplateFlag(t *testing.T) {
	tmpl := mustExtract(t, testCppTemplatePair, "scaled")
	plain := mustExtract(t, testCppTemplatePair, "scaled_int")

	if !tmpl.IsTemplate {
		t.Error("function template must be flagged is_template")
	}
	if plain.IsTemplate {
		t.Error("non-template sibling must not be flagged is_template")
	}
	// The template's extent includes its header, so it lexes longer.
	if tmpl.TokenCount <= plain.TokenCount {
		t.Errorf("expected template token count (%d) > plain (%d)", tmpl.TokenCount, plain.TokenCount)
	}
}

func TestExtract_ComplexReturn(t *testing.T) {
	if fs := mustExtract(t, testCppReturns, "make_label"); !fs.IsComplexReturn {
		t.Error("std::string return must be complex")
	}
	if fs := mustExtract(t, testCppReturns, "ratio"); fs.IsComplexReturn {
		t.Error("double return must not be complex")
	}
}

func TestExtract_CallSites(t *testing.T) {
	fs := mustExtract(t, testCppCalls, "caller")

	if fs.CallSiteCount != 2 {
		t.Errorf("expected 2 call sites, got %d", fs.CallSiteCount)
	}
}

func TestExtract_Ternary(t *testing.T) {
	fs := mustExtract(t, testCppTernary, "clamp_sign")

	if fs.CyclomaticComplexity != 2 {
		t.Errorf("expected ternary to count as a decision point, got complexity %d", fs.CyclomaticComplexity)
	}
}

func TestExtract_Method(t *testing.T) {
	fs := mustExtract(t, testCppMethod, "Counter::bump")

	if fs.CyclomaticComplexity != 2 {
		t.Errorf("expected complexity 2, got %d", fs.CyclomaticComplexity)
	}
	if fs.ParameterCount != 1 {
		t.Errorf("expected 1 parameter, got %d", fs.ParameterCount)
	}
}

func TestExtract_Idempotent(t *testing.T) {
	first := mustExtract(t, testCppTwoBranch, "compute_total")
	second := mustExtract(t, testCppTwoBranch, "compute_total")

	if !reflect.DeepEqual(first, second) {
		t.Errorf("extraction is not idempotent: %+v vs %+v", first, second)
	}
}

func TestProfiles(t *testing.T) {
	fs := &FeatureSet{
		CyclomaticComplexity: 3,
		ParameterCount:       3,
		LocalVariableCount:   2,
		BodySizeStmts:        8,
		TokenCount:           42,
		IsComplexReturn:      false,
		IsTemplate:           true,
		CallSiteCount:        5,
	}

	minimal := MinimalProfile{}
	if got := len(minimal.Columns()); got != 6 {
		t.Fatalf("minimal profile must have 6 columns, got %d", got)
	}
	wantMinimal := []string{"3", "3", "2", "8", "42", "0"}
	if got := minimal.Row(fs); !reflect.DeepEqual(got, wantMinimal) {
		t.Errorf("minimal row = %v, want %v", got, wantMinimal)
	}

	density := CallDensityProfile{}
	if got := len(density.Columns()); got != 4 {
		t.Fatalf("calldensity profile must have 4 columns, got %d", got)
	}
	wantDensity := []string{"1", "3", "5", "8"}
	if got := density.Row(fs); !reflect.DeepEqual(got, wantDensity) {
		t.Errorf("calldensity row = %v, want %v", got, wantDensity)
	}

	if _, err := ProfileByName("minimal"); err != nil {
		t.Errorf("minimal profile must resolve: %v", err)
	}
	if _, err := ProfileByName("calldensity"); err != nil {
		t.Errorf("calldensity profile must resolve: %v", err)
	}
	if _, err := ProfileByName("bogus"); err == nil {
		t.Error("bogus profile must not resolve")
	}
}
