// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package analysis

import (
	"github.com/aclements/go-moremath/stats"
)

// Summary is a compact distribution summary over a set of uint64
// counts or sizes (SPEC_FULL.md §4.11's supplemental "Summary statistics"
// component — not present in the distilled spec, added because every
// profile view it does describe wants a quick numeric sense of shape
// alongside the full profile).
type Summary struct {
	N      int
	Min    float64
	Max    float64
	Mean   float64
	P50    float64
	P90    float64
	P99    float64
}

// Summarize computes a Summary over xs, role-equivalent to the
// teacher's cmd/memlat histogram but reported as plain percentiles
// instead of a rendered histogram, since rendering is explicitly out
// of scope here (spec.md Non-goals).
func Summarize(xs []uint64) Summary {
	if len(xs) == 0 {
		return Summary{}
	}
	fs := make([]float64, len(xs))
	for i, x := range xs {
		fs[i] = float64(x)
	}
	sample := stats.Sample{Xs: fs}

	lo, hi := sample.Bounds()
	return Summary{
		N:    len(xs),
		Min:  lo,
		Max:  hi,
		Mean: sample.Mean(),
		P50:  sample.Percentile(0.50),
		P90:  sample.Percentile(0.90),
		P99:  sample.Percentile(0.99),
	}
}

// SummarizeAllocationSizes summarizes a slice of per-event allocation
// sizes, such as the Size values of an AllocationInfo.Individual list
// (the core decoder never populates Individual itself, so this is only
// useful for callers who built AllocationEvent detail out-of-band).
func SummarizeAllocationSizes(sizes []uint64) Summary {
	return Summarize(sizes)
}
