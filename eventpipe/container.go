// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eventpipe

import "strings"

const (
	magic            = "Nettrace"
	serializationTag = "!FastSerialization.1"
)

// Tag byte values common to both historical dialects (spec.md §9).
const (
	tagNullReference      = 1
	tagBeginObject        = 4
	tagBeginPrivateObject = 5
)

// dialect resolves the dialect-dependent tag values. Two historical
// numbering schemes exist (spec.md §9); classic is "2=EndObject,
// 6=Blob", modern is "2=ObjectReference, 6=EndObject, 14=Blob". We
// default to classic and lock onto modern the first time the EndObject
// check that closes a type reference (expectEndObject) fails against 2
// but succeeds against 6 — the "probe the first object" strategy
// spec.md §9 recommends. A tag byte of 14 on its own does not switch
// the dialect.
type dialect struct {
	endObject byte
	blob      byte
}

var dialectClassic = dialect{endObject: 2, blob: 6}
var dialectModern = dialect{endObject: 6, blob: 14}

// objectBudget caps total top-level iterations as a defense against
// pathological or adversarial inputs (spec.md §4.2).
const objectBudget = 10_000_000

type parser struct {
	c        *cursor
	result   *ParseResult
	registry typeRegistry
	dia      dialect
	locked   bool
}

// Parse decodes a complete nettrace byte stream into a ParseResult.
// bytes must be a fully buffered trace (spec.md §6); there is no
// streaming API.
func Parse(data []byte) *ParseResult {
	result := newParseResult()
	c := newCursor(data)

	magicBytes, err := c.bytes(len(magic))
	if err != nil || string(magicBytes) != magic {
		result.addError(errf(KindInvalidMagic, "missing or invalid %q magic", magic))
		return result
	}

	header, err := c.asciiString()
	if err != nil || !strings.HasPrefix(header, serializationTag) {
		result.addError(errf(KindInvalidSerializationHeader, "invalid serialization header %q", header))
		return result
	}

	p := &parser{c: c, result: result, dia: dialectClassic}
	p.walkObjects()
	return result
}

func (p *parser) walkObjects() {
	for i := 0; i < objectBudget; i++ {
		if p.c.eof() {
			return
		}
		tag, err := p.c.u8()
		if err != nil {
			return
		}

		switch {
		case tag == tagNullReference:
			// no-op

		case tag == p.dia.endObject:
			// no-op

		case tag == tagBeginPrivateObject:
			if err := p.handleObject(); err != nil {
				p.result.addError(err)
				p.recover()
			}

		case tag == p.dia.blob || tag == tagBeginObject:
			// Neither carries a payload this driver interprets;
			// scan forward like any other unrecognized object.
			p.recover()

		default:
			// Possibly the other dialect's EndObject/Blob byte
			// before we've locked on; otherwise just an unknown
			// tag we tolerate by resyncing.
			if !p.locked && tag == altDialect(p.dia).endObject {
				p.dia = altDialect(p.dia)
				p.locked = true
				continue
			}
		}
	}
}

func altDialect(d dialect) dialect {
	if d == dialectClassic {
		return dialectModern
	}
	return dialectClassic
}

// recover scans forward to the next EndObject or BeginPrivateObject
// tag so the outer walk can resume (spec.md §4.2: "An unrecognized
// type causes the driver to scan forward to the next
// EndObject/BeginPrivateObject"). The boundary tag itself is left
// unconsumed so the main loop processes it normally.
func (p *parser) recover() {
	for !p.c.eof() {
		b, err := p.c.peek()
		if err != nil {
			return
		}
		if b == p.dia.endObject || b == tagBeginPrivateObject {
			return
		}
		p.c.skip(1)
	}
}

// handleObject implements the BeginPrivateObject-rooted type
// resolution algorithm from spec.md §4.2, then dispatches to the
// typed payload reader.
func (p *parser) handleObject() error {
	next, err := p.c.peek()
	if err != nil {
		return err
	}

	var name string
	switch next {
	case tagBeginPrivateObject:
		p.c.skip(1)
		inner, err := p.c.peek()
		if err != nil {
			return err
		}
		if inner == tagNullReference {
			p.c.skip(1)
			td, err := p.readTypeDef()
			if err != nil {
				return err
			}
			name = td.name
		} else {
			idx, err := p.c.uvarint32()
			if err != nil {
				return err
			}
			td, ok := p.registry.lookup(idx)
			if !ok {
				return errf(KindUnknownTypeIndex, "unknown type index %d", idx)
			}
			name = td.name
		}
		if err := p.expectEndObject(); err != nil {
			return err
		}

	case tagNullReference:
		p.c.skip(1)
		td, err := p.readTypeDef()
		if err != nil {
			return err
		}
		name = td.name

	default:
		idx, err := p.c.uvarint32()
		if err != nil {
			return err
		}
		td, ok := p.registry.lookup(idx)
		if !ok {
			return errf(KindUnknownTypeIndex, "unknown type index %d", idx)
		}
		name = td.name
	}

	return p.readPayload(name)
}

func (p *parser) readTypeDef() (*typeDef, error) {
	version, err := p.c.i32()
	if err != nil {
		return nil, err
	}
	minReaderVersion, err := p.c.i32()
	if err != nil {
		return nil, err
	}
	name, err := p.c.asciiString()
	if err != nil {
		return nil, err
	}
	return p.registry.define(version, minReaderVersion, name), nil
}

func (p *parser) expectEndObject() error {
	tag, err := p.c.u8()
	if err != nil {
		return err
	}
	if tag == p.dia.endObject {
		return nil
	}
	if !p.locked {
		alt := altDialect(p.dia)
		if tag == alt.endObject {
			p.dia = alt
			p.locked = true
			return nil
		}
	}
	return errf(KindMalformedBlock, "expected EndObject tag, got %d", tag)
}

// blockTypeNames are the four block kinds framed with the generic
// int32-size + alignment + content wrapper (spec.md §4.2). Trace is
// the fifth block kind but carries a fixed 48-byte payload instead.
var blockTypeNames = map[string]bool{
	"MetadataBlock": true,
	"EventBlock":    true,
	"StackBlock":    true,
	"SPBlock":       true,
}

func (p *parser) readPayload(typeName string) error {
	switch {
	case typeName == "Trace":
		return p.readTraceObject()

	case blockTypeNames[typeName]:
		return p.readBlockObject(typeName)

	default:
		// Unknown object type: we don't know its length, so
		// fall back to the same forward scan used for
		// unrecognized tags.
		p.recover()
		return nil
	}
}

func (p *parser) readTraceObject() error {
	const traceRecordSize = 48
	sub, err := p.c.sub(traceRecordSize)
	if err != nil {
		return errf(KindMalformedBlock, "truncated Trace record: %v", err)
	}

	info := &TraceInfo{}
	year, _ := sub.u16()
	month, _ := sub.u16()
	sub.skip(2) // day-of-week, ignored per spec.md §3
	day, _ := sub.u16()
	hour, _ := sub.u16()
	minute, _ := sub.u16()
	second, _ := sub.u16()
	ms, _ := sub.u16()
	syncTicks, _ := sub.u64()
	tickFreq, _ := sub.u64()
	ptrSize, _ := sub.i32()
	pid, _ := sub.i32()
	procCount, _ := sub.i32()
	sampleRate, _ := sub.i32()

	info.Year = int(year)
	info.Month = int(month)
	info.Day = int(day)
	info.Hour = int(hour)
	info.Minute = int(minute)
	info.Second = int(second)
	info.Millisecond = int(ms)
	info.SyncTimeTicks = syncTicks
	info.TickFrequency = tickFreq
	info.PointerSize = int(ptrSize)
	info.ProcessID = uint32(pid)
	info.ProcessorCount = uint32(procCount)
	info.CPUSamplingRate = uint32(sampleRate)

	p.result.Trace = info
	return nil
}

func (p *parser) readBlockObject(typeName string) error {
	blockSize, err := p.c.i32()
	if err != nil {
		return errf(KindMalformedBlock, "reading %s size: %v", typeName, err)
	}
	if blockSize < 0 {
		return errf(KindMalformedBlock, "%s has negative size %d", typeName, blockSize)
	}

	// Align to the file's 4-byte grid (spec.md §6), measured from
	// the start of the file — i.e. from absolute cursor offset 0.
	p.c.alignFrom(0)

	content, err := p.c.sub(int(blockSize))
	if err != nil {
		return errf(KindMalformedBlock, "%s declares size %d but only %d bytes remain", typeName, blockSize, p.c.remaining())
	}

	switch typeName {
	case "MetadataBlock":
		decodeMetadataBlock(content, p.result)
	case "EventBlock":
		decodeEventBlock(content, p.result)
	case "StackBlock":
		decodeStackBlock(content, p.result)
	case "SPBlock":
		// Recognized but not further decoded (spec.md §2/§4.2):
		// no operation in this spec consumes SPBlock content.
	}
	return nil
}
