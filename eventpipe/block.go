// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eventpipe

// blockFlagCompressed is bit 0 of a block's flag word: when set, the
// block's events use the compressed (flag-driven varint) per-event
// header encoding instead of the fixed-width encoding (spec.md §4.3).
const blockFlagCompressed = 0x1

// blockHeader is the common prologue shared by all block kinds
// (spec.md §4.3).
type blockHeader struct {
	headerSize int16
	flags      int16
	minTime    int64
	maxTime    int64
}

func (h *blockHeader) compressed() bool {
	return h.flags&blockFlagCompressed != 0
}

// readBlockHeader parses the block prologue and positions c at the
// start of the event stream. hasTimestamps is true for EventBlock,
// which carries an extra int64 min/max timestamp pair that
// MetadataBlock and StackBlock do not (spec.md §4.3).
func readBlockHeader(c *cursor, hasTimestamps bool) (*blockHeader, error) {
	start := c.off
	h := &blockHeader{}

	sz, err := c.i16()
	if err != nil {
		return nil, errf(KindMalformedBlock, "reading header size: %v", err)
	}
	h.headerSize = sz

	flags, err := c.i16()
	if err != nil {
		return nil, errf(KindMalformedBlock, "reading flags: %v", err)
	}
	h.flags = flags

	if hasTimestamps {
		minT, err := c.i64()
		if err != nil {
			return nil, errf(KindMalformedBlock, "reading min timestamp: %v", err)
		}
		maxT, err := c.i64()
		if err != nil {
			return nil, errf(KindMalformedBlock, "reading max timestamp: %v", err)
		}
		h.minTime, h.maxTime = minT, maxT
	}

	// Skip whatever's left of the declared header so newer, larger
	// headers remain forward compatible (spec.md §4.3).
	consumed := c.off - start
	if extra := int(h.headerSize) - consumed; extra > 0 {
		c.skip(extra)
	}

	return h, nil
}
