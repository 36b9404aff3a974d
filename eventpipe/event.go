// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eventpipe

// decodeFrame decodes one event's header and payload, advancing c
// past it (including uncompressed-format padding), using whichever of
// the two header encodings the block selected (spec.md §4.5). It is
// shared by the metadata-block decoder and the event-block decoder
// since both carry events framed the same way (spec.md §4.4).
func decodeFrame(c *cursor, compressed bool, carry *carryState) (eventHeader, []byte, error) {
	if compressed {
		hdr, err := readCompressedHeader(c, carry)
		if err != nil {
			return eventHeader{}, nil, err
		}
		payload, err := c.bytes(int(hdr.payloadSize))
		if err != nil {
			return eventHeader{}, nil, errf(KindMalformedEvent, "reading payload (%d bytes): %v", hdr.payloadSize, err)
		}
		return hdr, payload, nil
	}

	start := c.off
	size, err := c.u32()
	if err != nil {
		return eventHeader{}, nil, errf(KindMalformedEvent, "reading event size: %v", err)
	}
	sub, err := c.sub(int(size))
	if err != nil {
		return eventHeader{}, nil, errf(KindMalformedEvent, "event declares size %d: %v", size, err)
	}
	hdr, err := readUncompressedHeader(sub)
	if err != nil {
		return eventHeader{}, nil, err
	}
	payload, err := sub.bytes(int(hdr.payloadSize))
	if err != nil {
		return eventHeader{}, nil, errf(KindMalformedEvent, "reading payload (%d bytes): %v", hdr.payloadSize, err)
	}

	// Pad to a 4-byte boundary relative to the event's own start
	// (spec.md §4.5).
	consumed := c.off - start
	if pad := (4 - consumed%4) % 4; pad > 0 {
		c.skip(pad)
	}

	return hdr, payload, nil
}

// decodeEventBlock decodes an EventBlock's event stream, dispatching
// each successfully-decoded event to the event dispatcher (spec.md
// §4.5/§4.6). Errors while decoding a single event are recorded and
// processing of the block stops there — the carry state that would be
// needed to resynchronize with the next event is gone once a header
// fails to decode.
func decodeEventBlock(content *cursor, result *ParseResult) {
	header, err := readBlockHeader(content, true)
	if err != nil {
		result.addError(errf(KindMalformedBlock, "EventBlock: %v", err))
		return
	}

	carry := &carryState{}
	for content.remaining() > 0 {
		hdr, payload, err := decodeFrame(content, header.compressed(), carry)
		if err != nil {
			result.addError(errf(KindMalformedBlock, "EventBlock: %v", err))
			return
		}
		dispatchEvent(result, hdr, payload)
	}
}
