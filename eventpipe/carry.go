// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eventpipe

// Compressed per-event header flag bits (spec.md §4.5).
const (
	flagMetadataID       = 0x01
	flagSequenceNumber   = 0x02
	flagThreadID         = 0x04
	flagStackID          = 0x08
	flagActivityID       = 0x10
	flagRelatedActivityID = 0x20
	flagSorted           = 0x40
	flagPayloadSize      = 0x80
)

// eventHeader is the fully-resolved per-event header, after applying
// whichever encoding (fixed or compressed) produced it.
type eventHeader struct {
	metadataID      uint32
	sequenceNumber  uint32
	captureThreadID uint64
	threadID        uint64
	processorNumber uint32
	stackID         uint32
	timestamp       uint64
	payloadSize     uint32
	sorted          bool
}

// carryState is the small mutable bag of per-event header fields that
// persists across events within a single block (spec.md §4.5/§9: "a
// pure approach... is equivalent and preferable where mutation is
// discouraged; either is conformant"). A fresh carryState is used for
// each block (spec.md §4.5: "not shared across blocks") and is shared
// between the metadata-block decoder and the event-block decoder,
// since both use the same two header encodings (spec.md §4.4).
type carryState struct {
	metadataID      uint32
	sequenceNumber  uint32
	captureThreadID uint64
	threadID        uint64
	processorNumber uint32
	stackID         uint32
	timestamp       uint64
	payloadSize     uint32
}

// readCompressedHeader decodes one flag-driven varint-compressed event
// header, updating carry in place and returning the resolved header
// (spec.md §4.5). This mirrors the shape of the teacher's
// SampleFormat-bit-driven optional-field decoding in
// perffile/records.go:parseSample, generalized from a fixed bitset of
// fields to LEB128-encoded values.
func readCompressedHeader(c *cursor, carry *carryState) (eventHeader, error) {
	flags, err := c.u8()
	if err != nil {
		return eventHeader{}, errf(KindMalformedEvent, "reading flags byte: %v", err)
	}

	if flags&flagMetadataID != 0 {
		v, err := c.uvarint32()
		if err != nil {
			return eventHeader{}, errf(KindMalformedEvent, "reading metadataId: %v", err)
		}
		carry.metadataID = v
	}

	if flags&flagSequenceNumber != 0 {
		delta, err := c.uvarint32()
		if err != nil {
			return eventHeader{}, errf(KindMalformedEvent, "reading sequence delta: %v", err)
		}
		carry.sequenceNumber += delta + 1

		capTid, err := c.svarint64()
		if err != nil {
			return eventHeader{}, errf(KindMalformedEvent, "reading captureThreadId: %v", err)
		}
		carry.captureThreadID = uint64(capTid)

		proc, err := c.uvarint32()
		if err != nil {
			return eventHeader{}, errf(KindMalformedEvent, "reading processorNumber: %v", err)
		}
		carry.processorNumber = proc
	} else if carry.metadataID != 0 {
		// spec.md §4.5: "If bit 0x02 is clear and the metadata id
		// is nonzero, sequence number is incremented by one."
		carry.sequenceNumber++
	}

	if flags&flagThreadID != 0 {
		tid, err := c.svarint64()
		if err != nil {
			return eventHeader{}, errf(KindMalformedEvent, "reading threadId: %v", err)
		}
		carry.threadID = uint64(tid)
	}

	if flags&flagStackID != 0 {
		sid, err := c.uvarint32()
		if err != nil {
			return eventHeader{}, errf(KindMalformedEvent, "reading stackId: %v", err)
		}
		carry.stackID = sid
	}

	if flags&flagActivityID != 0 {
		if _, err := c.bytes(16); err != nil {
			return eventHeader{}, errf(KindMalformedEvent, "reading activityId: %v", err)
		}
	}

	if flags&flagRelatedActivityID != 0 {
		if _, err := c.bytes(16); err != nil {
			return eventHeader{}, errf(KindMalformedEvent, "reading relatedActivityId: %v", err)
		}
	}

	if flags&flagPayloadSize != 0 {
		ps, err := c.uvarint32()
		if err != nil {
			return eventHeader{}, errf(KindMalformedEvent, "reading payloadSize: %v", err)
		}
		carry.payloadSize = ps
	}

	// Always present (spec.md §4.5).
	delta, err := c.uvarint64()
	if err != nil {
		return eventHeader{}, errf(KindMalformedEvent, "reading timestamp delta: %v", err)
	}
	carry.timestamp += delta

	return eventHeader{
		metadataID:      carry.metadataID,
		sequenceNumber:  carry.sequenceNumber,
		captureThreadID: carry.captureThreadID,
		threadID:        carry.threadID,
		processorNumber: carry.processorNumber,
		stackID:         carry.stackID,
		timestamp:       carry.timestamp,
		payloadSize:     carry.payloadSize,
		sorted:          flags&flagSorted != 0,
	}, nil
}

// readUncompressedHeader decodes one fixed-layout event header
// (spec.md §4.5). Unlike the compressed encoding, every field is
// present on every event, so there is no carry state to update.
func readUncompressedHeader(c *cursor) (eventHeader, error) {
	var h eventHeader

	metaRaw, err := c.u32()
	if err != nil {
		return h, errf(KindMalformedEvent, "reading metadataId: %v", err)
	}
	h.metadataID = metaRaw & 0x7fffffff // low 31 bits, per spec.md §4.5

	h.sequenceNumber, err = c.u32()
	if err != nil {
		return h, errf(KindMalformedEvent, "reading sequenceNumber: %v", err)
	}
	h.threadID, err = c.u64()
	if err != nil {
		return h, errf(KindMalformedEvent, "reading threadId: %v", err)
	}
	h.captureThreadID, err = c.u64()
	if err != nil {
		return h, errf(KindMalformedEvent, "reading captureThreadId: %v", err)
	}
	h.processorNumber, err = c.u32()
	if err != nil {
		return h, errf(KindMalformedEvent, "reading processorNumber: %v", err)
	}
	h.stackID, err = c.u32()
	if err != nil {
		return h, errf(KindMalformedEvent, "reading stackId: %v", err)
	}
	h.timestamp, err = c.u64()
	if err != nil {
		return h, errf(KindMalformedEvent, "reading timestamp: %v", err)
	}
	if _, err := c.bytes(16); err != nil { // activityId
		return h, errf(KindMalformedEvent, "reading activityId: %v", err)
	}
	if _, err := c.bytes(16); err != nil { // relatedActivityId
		return h, errf(KindMalformedEvent, "reading relatedActivityId: %v", err)
	}
	h.payloadSize, err = c.u32()
	if err != nil {
		return h, errf(KindMalformedEvent, "reading payloadSize: %v", err)
	}
	return h, nil
}
