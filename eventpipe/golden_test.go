// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eventpipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeUncompressedEvent appends one fixed-width-header event/pseudo-event
// frame (spec.md §4.5) to the block content being built, including the
// trailing 4-byte pad.
func (b *traceBuilder) writeUncompressedEvent(metadataID, stackID uint32, payload []byte) {
	var hdr traceBuilder
	hdr.u32(metadataID)
	hdr.u32(0)             // sequenceNumber
	hdr.u64(0)             // threadId
	hdr.u64(0)             // captureThreadId
	hdr.u32(0)             // processorNumber
	hdr.u32(stackID)       // stackId
	hdr.u64(0)             // timestamp
	hdr.raw(make([]byte, 16)) // activityId
	hdr.raw(make([]byte, 16)) // relatedActivityId
	hdr.u32(uint32(len(payload)))
	full := append(hdr.bytes(), payload...)

	start := b.buf.Len()
	b.u32(uint32(len(full)))
	b.raw(full)
	consumed := b.buf.Len() - start
	pad := (4 - consumed%4) % 4
	for i := 0; i < pad; i++ {
		b.u8(0)
	}
}

func allocationTickPayload(amount uint32, size64 uint64, pointerSize int, typeName string) []byte {
	var p traceBuilder
	p.u32(amount)
	p.u32(0) // allocationKind
	p.u16(0) // clrInstanceId
	p.u64(size64)
	p.raw(make([]byte, pointerSize)) // typeId
	p.utf16String(typeName)
	return p.bytes()
}

func metadataSchemaPayload(metadataID uint32, provider string, eventID uint32, eventName string, version uint32) []byte {
	var p traceBuilder
	p.u32(metadataID)
	p.utf16String(provider)
	p.u32(eventID)
	p.utf16String(eventName)
	p.u64(0) // keywords
	p.u32(version)
	p.u32(0) // level
	p.u32(0) // fieldCount
	return p.bytes()
}

func TestParseMinimalValidFile(t *testing.T) {
	b := newTraceBuilder()
	b.magicAndHeader()
	b.writeTraceObject(TraceInfo{
		Year: 2024, Month: 1, Day: 1, Hour: 0, Minute: 0, Second: 0,
		PointerSize: 8, ProcessID: 42, ProcessorCount: 4,
	})

	result := Parse(b.bytes())

	require.Empty(t, result.Errors)
	require.NotNil(t, result.Trace)
	assert.Equal(t, 8, result.Trace.PointerSize)
	assert.EqualValues(t, 42, result.Trace.ProcessID)
	assert.Empty(t, result.Schemas)
	assert.Empty(t, result.Stacks)
	assert.Empty(t, result.Allocations)
	assert.Zero(t, result.TotalEvents)
}

func TestParseOneMetadataOneEventOneStack(t *testing.T) {
	const pointerSize = 8

	b := newTraceBuilder()
	b.magicAndHeader()
	b.writeTraceObject(TraceInfo{PointerSize: pointerSize, ProcessID: 1, ProcessorCount: 1})

	var metaContent traceBuilder
	metaContent.i16(4) // header size
	metaContent.i16(0) // flags: uncompressed
	metaContent.writeUncompressedEvent(0, 0,
		metadataSchemaPayload(1, providerCLRRuntime, eventGCAllocationTick, "GCAllocationTick", 2))
	b.writeBlockObject("MetadataBlock", metaContent.bytes())

	var eventContent traceBuilder
	eventContent.i16(20) // header size: 4 (sz+flags) + 16 (min/max time)
	eventContent.i16(0)  // flags: uncompressed
	eventContent.i64(0)  // minTime
	eventContent.i64(0)  // maxTime
	eventContent.writeUncompressedEvent(1, 1,
		allocationTickPayload(128, 128, pointerSize, "MyType"))
	b.writeBlockObject("EventBlock", eventContent.bytes())

	var stackContent traceBuilder
	stackContent.u32(1) // firstId
	stackContent.u32(1) // count
	stackContent.u32(pointerSize)
	stackContent.u64(0x1000)
	b.writeBlockObject("StackBlock", stackContent.bytes())

	result := Parse(b.bytes())

	require.Empty(t, result.Errors)
	require.Contains(t, result.Allocations, "MyType")
	assert.EqualValues(t, 1, result.Allocations["MyType"].Count)
	assert.EqualValues(t, 128, result.Allocations["MyType"].TotalSize)

	require.Contains(t, result.AllocationSamples, uint32(1))
	samples := result.AllocationSamples[1]
	require.Contains(t, samples.Types, "MyType")
	assert.EqualValues(t, 1, samples.Types["MyType"].Count)
	assert.EqualValues(t, 128, samples.Types["MyType"].Size)

	require.Contains(t, result.Stacks, uint32(1))
	assert.Equal(t, []uint64{0x1000}, result.Stacks[1].Addresses)
}

func TestParseUnknownTypeTolerated(t *testing.T) {
	b := newTraceBuilder()
	b.magicAndHeader()
	b.writeTraceObject(TraceInfo{PointerSize: 8, ProcessID: 7})
	// An object of a type this driver has never heard of: it defines
	// the type, then carries an opaque blob the container doesn't
	// understand the length of, so recovery scans to the next
	// boundary tag rather than aborting the whole parse.
	b.writeTypeTag("SomeFutureBlockKind")
	b.raw([]byte{0xAA, 0xBB, 0xCC})
	b.u8(dialectClassic.endObject)
	// A well-formed Trace-ish trailing object proves the walk
	// resynchronized and kept going. We reuse StackBlock as a minimal
	// well-understood block with empty content (count=0).
	var stackContent traceBuilder
	stackContent.u32(0)
	stackContent.u32(0)
	b.writeBlockObject("StackBlock", stackContent.bytes())

	result := Parse(b.bytes())

	assert.NotNil(t, result.Trace)
	assert.EqualValues(t, 7, result.Trace.ProcessID)
	assert.Empty(t, result.Stacks)
}

func TestParseTruncatedBlockRecovers(t *testing.T) {
	b := newTraceBuilder()
	b.magicAndHeader()
	b.writeTraceObject(TraceInfo{PointerSize: 8, ProcessID: 99})

	// A StackBlock that declares a size larger than the bytes actually
	// present: the block-level error is recorded, and the walk
	// resumes at the EndObject tag this test appends by hand after the
	// short content.
	b.writeTypeTag("StackBlock")
	b.i32(1000) // declared size, far larger than what follows
	b.raw([]byte{1, 2, 3, 4})
	b.u8(dialectClassic.endObject)

	result := Parse(b.bytes())

	require.NotEmpty(t, result.Errors)
	assert.NotNil(t, result.Trace)
	assert.EqualValues(t, 99, result.Trace.ProcessID)
}
