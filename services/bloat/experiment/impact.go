// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package experiment

import (
	"github.com/ashishh2/Predicting-Code-Bloat/services/bloat/manifest"
	"github.com/ashishh2/Predicting-Code-Bloat/services/bloat/probe"
)

// ComputeImpact combines the two probe results for one target into the
// percentage impact record.
//
// Description:
//
//	percent = (forced - baseline) / baseline * 100
//
//	The result may be negative: forcing inlining can shrink code by
//	eliminating call/return overhead. Negative is valid output, not an
//	error.
//
// Outputs:
//   - *ImpactRecord: the label row, nil when no record should be emitted
//   - bool: false when either artifact is missing or the baseline size is
//     zero (guards division by zero); no partial record is ever produced
func ComputeImpact(target manifest.Target, baseline, forced *probe.CompiledArtifact) (*ImpactRecord, bool) {
	if baseline == nil || forced == nil || baseline.ByteSize == 0 {
		return nil, false
	}

	percent := float64(forced.ByteSize-baseline.ByteSize) / float64(baseline.ByteSize) * 100

	return &ImpactRecord{
		FunctionName:        target.FunctionName,
		FileName:            target.FileName,
		SizeIncreasePercent: percent,
	}, true
}
