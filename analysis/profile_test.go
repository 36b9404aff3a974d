// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aclements/go-nettrace/eventpipe"
)

// buildTestResult constructs a ParseResult with two methods and one
// stack ([leaf=Inner, caller=Outer]) sampled twice, for profile and
// flame tests.
func buildTestResult() *eventpipe.ParseResult {
	result := eventpipe.NewParseResult()
	result.AddMethod(&eventpipe.MethodRecord{MethodID: 1, StartAddress: 0x1000, Size: 0x10, Name: "Outer"})
	result.AddMethod(&eventpipe.MethodRecord{MethodID: 2, StartAddress: 0x2000, Size: 0x10, Name: "Inner"})
	result.Stacks[1] = &eventpipe.StackRecord{StackID: 1, Addresses: []uint64{0x2005, 0x1005}}
	result.CPUSamples[1] = 2
	return result
}

func TestBuildCPUProfileInclusiveExclusive(t *testing.T) {
	result := buildTestResult()
	r := NewResolver(result)
	profs := BuildCPUProfile(result, r)

	require.Len(t, profs, 2)

	byName := make(map[string]*MethodProfile)
	for _, p := range profs {
		byName[p.Method.FullName()] = p
	}

	require.Contains(t, byName, "Inner")
	assert.EqualValues(t, 2, byName["Inner"].Inclusive)
	assert.EqualValues(t, 2, byName["Inner"].Exclusive)

	require.Contains(t, byName, "Outer")
	assert.EqualValues(t, 2, byName["Outer"].Inclusive)
	assert.EqualValues(t, 0, byName["Outer"].Exclusive, "Outer is never the leaf frame")
}

func TestBuildAllocationProfileWeightsByBytes(t *testing.T) {
	result := eventpipe.NewParseResult()
	result.AddMethod(&eventpipe.MethodRecord{MethodID: 1, StartAddress: 0x1000, Size: 0x10, Name: "Alloc"})
	result.Stacks[9] = &eventpipe.StackRecord{StackID: 9, Addresses: []uint64{0x1005}}
	result.AllocationSamples[9] = &eventpipe.AllocationSamples{StackID: 9, TotalSize: 4096}

	r := NewResolver(result)
	profs := BuildAllocationProfile(result, r)
	require.Len(t, profs, 1)
	assert.EqualValues(t, 4096, profs[0].Inclusive)
}

func TestBuildCPUProfileMissingStackIsSkipped(t *testing.T) {
	result := eventpipe.NewParseResult()
	result.CPUSamples[404] = 5 // no corresponding entry in result.Stacks
	r := NewResolver(result)
	profs := BuildCPUProfile(result, r)
	assert.Empty(t, profs)
}

func TestBuildCPUProfileComputesTimeAndStats(t *testing.T) {
	result := buildTestResult()
	result.Trace = &eventpipe.TraceInfo{CPUSamplingRate: 100} // 10ms/sample

	r := NewResolver(result)
	profs := BuildCPUProfile(result, r)

	byName := make(map[string]*MethodProfile)
	for _, p := range profs {
		byName[p.Method.FullName()] = p
	}

	inner := byName["Inner"]
	assert.Equal(t, 20*time.Millisecond, inner.InclusiveTime)
	assert.Equal(t, 20*time.Millisecond, inner.ExclusiveTime)
	require.Equal(t, 1, inner.Stats.N, "one stack (weight 2) contributed to Inner's exclusive count")
	assert.Equal(t, 2.0, inner.Stats.Mean)

	outer := byName["Outer"]
	assert.Zero(t, outer.ExclusiveTime, "Outer is never the leaf frame")
	assert.Zero(t, outer.Stats.N)
}

func TestBuildCPUProfileZeroSamplingRateLeavesTimesZero(t *testing.T) {
	result := buildTestResult() // no Trace set
	r := NewResolver(result)
	profs := BuildCPUProfile(result, r)
	for _, p := range profs {
		assert.Zero(t, p.InclusiveTime)
		assert.Zero(t, p.ExclusiveTime)
	}
}

func TestBuildAllocationStatsSummarizesIndividualSizes(t *testing.T) {
	result := eventpipe.NewParseResult()
	result.Allocations["Widget"] = &eventpipe.AllocationInfo{
		TypeName:  "Widget",
		Count:     3,
		TotalSize: 60,
		Individual: []eventpipe.AllocationEvent{
			{TypeName: "Widget", Size: 10},
			{TypeName: "Widget", Size: 20},
			{TypeName: "Widget", Size: 30},
		},
	}
	result.Allocations["Gadget"] = &eventpipe.AllocationInfo{TypeName: "Gadget", Count: 1, TotalSize: 5}

	profs := BuildAllocationStats(result)
	require.Len(t, profs, 2)

	assert.Equal(t, "Gadget", profs[0].TypeName)
	assert.Zero(t, profs[0].Stats.N, "no individual events retained")

	assert.Equal(t, "Widget", profs[1].TypeName)
	require.Equal(t, 3, profs[1].Stats.N)
	assert.Equal(t, 10.0, profs[1].Stats.Min)
	assert.Equal(t, 30.0, profs[1].Stats.Max)
}
