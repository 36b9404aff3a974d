// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eventpipe

// decodeMetadataBlock decodes a sequence of metadata pseudo-events,
// each describing one EventSchema (spec.md §4.4). Carry state for the
// shared header encoding persists across pseudo-events within this
// block, exactly as it does for ordinary events in an EventBlock.
func decodeMetadataBlock(content *cursor, result *ParseResult) {
	header, err := readBlockHeader(content, false)
	if err != nil {
		result.addError(errf(KindMalformedBlock, "MetadataBlock: %v", err))
		return
	}

	carry := &carryState{}
	for content.remaining() > 0 {
		hdr, payload, err := decodeFrame(content, header.compressed(), carry)
		if err != nil {
			result.addError(errf(KindMalformedBlock, "MetadataBlock: %v", err))
			return
		}
		if schema, err := decodeEventSchema(payload); err != nil {
			result.addError(errf(KindMalformedPayload, "metadata id %d: %v", hdr.metadataID, err))
			// Malformed descriptors are skipped; decoding
			// continues with the next pseudo-event (spec.md §4.4).
		} else {
			result.Schemas[schema.MetadataID] = schema
		}
	}
}

func decodeEventSchema(payload []byte) (*EventSchema, error) {
	c := newCursor(payload)

	metadataID, err := c.u32()
	if err != nil {
		return nil, err
	}
	providerName, err := c.utf16String()
	if err != nil {
		return nil, err
	}
	eventID, err := c.u32()
	if err != nil {
		return nil, err
	}
	eventName, err := c.utf16String()
	if err != nil {
		return nil, err
	}
	keywords, err := c.u64()
	if err != nil {
		return nil, err
	}
	version, err := c.u32()
	if err != nil {
		return nil, err
	}
	level, err := c.u32()
	if err != nil {
		return nil, err
	}
	fieldCount, err := c.u32()
	if err != nil {
		return nil, err
	}

	fields := make([]EventField, 0, fieldCount)
	for i := uint32(0); i < fieldCount; i++ {
		typeCode, err := c.i32()
		if err != nil {
			return nil, err
		}
		field := EventField{TypeCode: typeCode}
		if typeCode == typeCodeArray {
			elemType, err := c.i32()
			if err != nil {
				return nil, err
			}
			field.ElementTypeCode = elemType
		}
		name, err := c.utf16String()
		if err != nil {
			return nil, err
		}
		field.Name = name
		fields = append(fields, field)
	}

	return &EventSchema{
		MetadataID:   metadataID,
		ProviderName: providerName,
		EventID:      eventID,
		EventName:    eventName,
		Keywords:     keywords,
		Version:      version,
		Level:        level,
		Fields:       fields,
	}, nil
}
