// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eventpipe

// decodeStackBlock decodes a contiguous run of stack address arrays
// keyed by a running stack id (spec.md §4.7).
func decodeStackBlock(content *cursor, result *ParseResult) {
	firstID, err := content.u32()
	if err != nil {
		result.addError(errf(KindMalformedBlock, "StackBlock: reading firstId: %v", err))
		return
	}
	count, err := content.u32()
	if err != nil {
		result.addError(errf(KindMalformedBlock, "StackBlock: reading count: %v", err))
		return
	}

	pointerSize := 0
	if result.Trace != nil {
		pointerSize = result.Trace.PointerSize
	}
	validPointerSize := pointerSize == 4 || pointerSize == 8

	id := firstID
	for i := uint32(0); i < count; i, id = i+1, id+1 {
		size, err := content.u32()
		if err != nil {
			result.addError(errf(KindMalformedBlock, "StackBlock: reading entry %d size: %v", i, err))
			return
		}
		if size == 0 {
			// Entries with size 0 terminate the block (spec.md §4.7).
			return
		}
		raw, err := content.bytes(int(size))
		if err != nil {
			result.addError(errf(KindMalformedBlock, "StackBlock: entry %d declares %d bytes: %v", i, size, err))
			return
		}

		if !validPointerSize {
			result.addError(errf(KindMalformedBlock, "StackBlock: unsupported pointer size %d for stack %d", pointerSize, id))
			continue
		}

		n := int(size) / pointerSize
		addrs := make([]uint64, n)
		ac := newCursor(raw)
		for j := 0; j < n; j++ {
			if pointerSize == 8 {
				v, _ := ac.u64()
				addrs[j] = v
			} else {
				v, _ := ac.u32()
				addrs[j] = uint64(v)
			}
		}
		result.Stacks[id] = &StackRecord{StackID: id, Addresses: addrs}
	}
}
