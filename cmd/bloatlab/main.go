// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command bloatlab builds a labeled dataset correlating AST-derived
// function features with the binary-size impact of forced inlining.
//
// Pipeline:
//
//	bloatlab generate   # emit a synthetic C++ corpus + target manifest
//	bloatlab features   # extract per-function feature vectors (CSV)
//	bloatlab impact     # compile baseline/forced variants, measure sizes (CSV)
//	bloatlab run        # features then impact over the same manifest
//
// The two CSV datasets are joined downstream on (function_name, file_name)
// by the model-training stage, which is a separate project.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
