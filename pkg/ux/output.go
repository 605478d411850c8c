// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides terminal output styling for the bloatlab CLI.
package ux

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Semantic colors.
var (
	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
	ColorMuted   = lipgloss.Color("#2C4A54")
)

// Styles provides pre-configured lipgloss styles.
var Styles = struct {
	Title   lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(ColorSuccess),
	Bold:    lipgloss.NewStyle().Bold(true),
	Muted:   lipgloss.NewStyle().Foreground(ColorMuted),
	Success: lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning: lipgloss.NewStyle().Foreground(ColorWarning),
	Error:   lipgloss.NewStyle().Foreground(ColorError),
}

// IsTTY reports whether stdout is an interactive terminal. Styling is
// suppressed when output is piped so downstream tools see plain text.
func IsTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// RunSummary is the end-of-run report shown for a stage.
type RunSummary struct {
	Stage    string
	Total    int
	Recorded int
	Skipped  int
	Duration time.Duration
}

// PrintSummary renders a stage summary to stdout, styled when interactive.
func PrintSummary(s RunSummary) {
	if !IsTTY() {
		fmt.Printf("%s: %d targets, %d recorded, %d skipped in %s\n",
			s.Stage, s.Total, s.Recorded, s.Skipped, s.Duration.Round(time.Millisecond))
		return
	}

	fmt.Println(Styles.Title.Render(s.Stage))
	fmt.Printf("  %s %d\n", Styles.Muted.Render("targets "), s.Total)
	fmt.Printf("  %s %s\n", Styles.Muted.Render("recorded"), Styles.Success.Render(fmt.Sprintf("%d", s.Recorded)))

	skipped := fmt.Sprintf("%d", s.Skipped)
	if s.Skipped > 0 {
		skipped = Styles.Warning.Render(skipped)
	}
	fmt.Printf("  %s %s\n", Styles.Muted.Render("skipped "), skipped)
	fmt.Printf("  %s %s\n", Styles.Muted.Render("duration"), s.Duration.Round(time.Millisecond))
}
