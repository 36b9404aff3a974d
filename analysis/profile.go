// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package analysis

import (
	"sort"
	"time"

	"github.com/aclements/go-nettrace/eventpipe"
)

// MethodProfile rolls up one method's share of a sample or allocation
// population (spec.md §3/§4.9): Inclusive counts every sample whose
// stack passes through the method at any depth; Exclusive counts only
// samples where the method is the leaf (the frame actually executing,
// or actually allocating). InclusiveTime/ExclusiveTime are the same
// counts converted to estimated wall-clock time (count × sampling
// interval, spec.md §3); Stats summarizes the multiset of per-stack
// exclusive sample counts that contributed to this method (SPEC_FULL.md
// §4.11).
type MethodProfile struct {
	Method        *eventpipe.MethodRecord
	Inclusive     uint64
	Exclusive     uint64
	InclusiveTime time.Duration
	ExclusiveTime time.Duration
	Stats         Summary
}

// BuildCPUProfile aggregates result.CPUSamples into a per-method
// profile, resolving each sample's stack through r (spec.md §4.9/§4.6).
func BuildCPUProfile(result *eventpipe.ParseResult, r *Resolver) []*MethodProfile {
	return buildProfile(result, r, func(add func(stackID uint32, weight uint64)) {
		for stackID, count := range result.CPUSamples {
			add(stackID, count)
		}
	})
}

// BuildAllocationProfile aggregates result.AllocationSamples (bytes
// allocated, grouped by the stack responsible) into a per-method
// profile keyed by allocated byte count rather than sample count
// (spec.md §4.9/§4.8).
func BuildAllocationProfile(result *eventpipe.ParseResult, r *Resolver) []*MethodProfile {
	return buildProfile(result, r, func(add func(stackID uint32, weight uint64)) {
		for stackID, samples := range result.AllocationSamples {
			add(stackID, samples.TotalSize)
		}
	})
}

// samplingInterval derives the per-sample wall-clock duration from
// TraceInfo.CPUSamplingRate (interpreted as samples per second, spec.md
// §3), or zero if the trace never set a rate.
func samplingInterval(result *eventpipe.ParseResult) time.Duration {
	if result.Trace == nil || result.Trace.CPUSamplingRate == 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / float64(result.Trace.CPUSamplingRate))
}

func buildProfile(result *eventpipe.ParseResult, r *Resolver, walk func(add func(stackID uint32, weight uint64))) []*MethodProfile {
	byMethod := make(map[string]*MethodProfile)
	exclusiveWeights := make(map[string][]uint64)

	get := func(m *eventpipe.MethodRecord) *MethodProfile {
		key := m.FullName()
		mp, ok := byMethod[key]
		if !ok {
			mp = &MethodProfile{Method: m}
			byMethod[key] = mp
		}
		return mp
	}

	walk(func(stackID uint32, weight uint64) {
		stack, ok := result.Stacks[stackID]
		if !ok || len(stack.Addresses) == 0 {
			return
		}
		resolved := r.ResolveStack(stack.Addresses)

		leafKey := resolved[0].FullName()
		get(resolved[0]).Exclusive += weight
		exclusiveWeights[leafKey] = append(exclusiveWeights[leafKey], weight)

		seen := make(map[string]bool, len(resolved))
		for _, m := range resolved {
			key := m.FullName()
			if seen[key] {
				continue // a method recursing in its own stack counts once (spec.md §4.9)
			}
			seen[key] = true
			get(m).Inclusive += weight
		}
	})

	interval := samplingInterval(result)
	out := make([]*MethodProfile, 0, len(byMethod))
	for key, mp := range byMethod {
		mp.InclusiveTime = time.Duration(mp.Inclusive) * interval
		mp.ExclusiveTime = time.Duration(mp.Exclusive) * interval
		mp.Stats = Summarize(exclusiveWeights[key])
		out = append(out, mp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Inclusive != out[j].Inclusive {
			return out[i].Inclusive > out[j].Inclusive
		}
		return out[i].Method.FullName() < out[j].Method.FullName()
	})
	return out
}

// AllocationProfile pairs an eventpipe.AllocationInfo with a Stats
// summary over its retained individual event sizes (spec.md §3
// supplement, SPEC_FULL.md §4.11). Defined here rather than as a field
// on eventpipe.AllocationInfo itself because Stats depends on this
// package's Summary type, and eventpipe must not import analysis.
type AllocationProfile struct {
	*eventpipe.AllocationInfo
	Stats Summary
}

// BuildAllocationStats wraps every per-type AllocationInfo in result
// with a Stats summary computed over info.Individual's event sizes
// (SPEC_FULL.md §4.11). Types for which no individual events were
// retained get a zero Summary, matching Summarize's empty-input
// behavior.
func BuildAllocationStats(result *eventpipe.ParseResult) []*AllocationProfile {
	out := make([]*AllocationProfile, 0, len(result.Allocations))
	for _, info := range result.Allocations {
		sizes := make([]uint64, len(info.Individual))
		for i, ev := range info.Individual {
			sizes[i] = ev.Size
		}
		out = append(out, &AllocationProfile{AllocationInfo: info, Stats: Summarize(sizes)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TypeName < out[j].TypeName })
	return out
}
