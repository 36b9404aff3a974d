// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eventpipe

import (
	"bytes"
	"encoding/binary"
	"unicode/utf16"
)

// traceBuilder hand-assembles a nettrace byte stream for tests. It is
// the write-side mirror of the decoder above: every helper here
// produces exactly the bytes the corresponding decoder function
// consumes.
type traceBuilder struct {
	buf     bytes.Buffer
	typeIdx map[string]uint32
}

func newTraceBuilder() *traceBuilder {
	return &traceBuilder{typeIdx: make(map[string]uint32)}
}

func (b *traceBuilder) bytes() []byte { return b.buf.Bytes() }

func (b *traceBuilder) u8(v byte)     { b.buf.WriteByte(v) }
func (b *traceBuilder) u16(v uint16)  { binary.Write(&b.buf, binary.LittleEndian, v) }
func (b *traceBuilder) i16(v int16)   { binary.Write(&b.buf, binary.LittleEndian, v) }
func (b *traceBuilder) u32(v uint32)  { binary.Write(&b.buf, binary.LittleEndian, v) }
func (b *traceBuilder) i32(v int32)   { binary.Write(&b.buf, binary.LittleEndian, v) }
func (b *traceBuilder) u64(v uint64)  { binary.Write(&b.buf, binary.LittleEndian, v) }
func (b *traceBuilder) i64(v int64)   { binary.Write(&b.buf, binary.LittleEndian, v) }
func (b *traceBuilder) raw(p []byte)  { b.buf.Write(p) }

func (b *traceBuilder) asciiString(s string) {
	b.u32(uint32(len(s)))
	b.buf.WriteString(s)
}

func (b *traceBuilder) utf16String(s string) {
	units := utf16.Encode([]rune(s))
	for _, u := range units {
		b.u16(u)
	}
	b.u16(0)
}

func (b *traceBuilder) uvarint(v uint64) {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b.u8(c | 0x80)
		} else {
			b.u8(c)
			return
		}
	}
}

func (b *traceBuilder) svarint(v int64) {
	more := true
	for more {
		c := byte(v & 0x7f)
		v >>= 7
		signBitSet := c&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			more = false
		} else {
			c |= 0x80
		}
		b.u8(c)
	}
}

func (b *traceBuilder) magicAndHeader() {
	b.buf.WriteString("Nettrace")
	b.asciiString("!FastSerialization.1")
}

// writeTypeTag emits the BeginPrivateObject-rooted type resolution
// prefix for typeName: a full type definition the first time it's
// seen, a bare back-reference index thereafter (spec.md §4.2).
func (b *traceBuilder) writeTypeTag(typeName string) {
	b.u8(tagBeginPrivateObject)
	if idx, ok := b.typeIdx[typeName]; ok {
		b.uvarint(uint64(idx))
		return
	}
	idx := uint32(len(b.typeIdx))
	b.typeIdx[typeName] = idx
	b.u8(tagBeginPrivateObject)
	b.u8(tagNullReference)
	b.i32(0) // version
	b.i32(0) // minReaderVersion
	b.asciiString(typeName)
	b.u8(dialectClassic.endObject)
}

// writeObject wraps a fixed-layout payload (just the Trace record) in
// the tagged-object framing.
func (b *traceBuilder) writeObject(typeName string, payload []byte) {
	b.writeTypeTag(typeName)
	b.raw(payload)
	b.u8(dialectClassic.endObject)
}

func (b *traceBuilder) writeTraceObject(info TraceInfo) {
	var p traceBuilder
	p.u16(uint16(info.Year))
	p.u16(uint16(info.Month))
	p.u16(0) // day of week, ignored
	p.u16(uint16(info.Day))
	p.u16(uint16(info.Hour))
	p.u16(uint16(info.Minute))
	p.u16(uint16(info.Second))
	p.u16(uint16(info.Millisecond))
	p.u64(info.SyncTimeTicks)
	p.u64(info.TickFrequency)
	p.i32(int32(info.PointerSize))
	p.i32(int32(info.ProcessID))
	p.i32(int32(info.ProcessorCount))
	p.i32(int32(info.CPUSamplingRate))
	b.writeObject("Trace", p.bytes())
}

// writeBlockObject wraps content in a block object: type tag, int32
// size, file-absolute 4-byte alignment, content, EndObject. Alignment
// is computed from this builder's actual current length, matching the
// decoder's "measured from the start of the file" rule exactly.
func (b *traceBuilder) writeBlockObject(typeName string, content []byte) {
	b.writeTypeTag(typeName)
	b.i32(int32(len(content)))
	pos := b.buf.Len()
	pad := (4 - pos%4) % 4
	for i := 0; i < pad; i++ {
		b.u8(0)
	}
	b.raw(content)
	b.u8(dialectClassic.endObject)
}
