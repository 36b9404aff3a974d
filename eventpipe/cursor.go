// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eventpipe

import (
	"encoding/binary"
	"unicode/utf16"
)

// cursor is a bounds-checked reader over an immutable byte slice. Every
// fixed-width read that would run past the end of buf fails with
// errUnexpectedEnd and leaves off unchanged, so a caller that ignores
// the error and keeps going simply keeps re-failing at the same
// position rather than reading garbage. Multi-step reads (varints,
// strings) keep whatever bytes they consumed before the failing step.
//
// This generalizes the teacher's bufDecoder (perffile/bufdecoder.go),
// which advanced a slice with no bounds checks at all; spec.md §4.1
// requires every primitive read to fail cleanly on underflow instead
// of panicking, since a single truncated block must not take down the
// rest of the trace.
type cursor struct {
	buf []byte
	off int
}

func newCursor(buf []byte) *cursor {
	return &cursor{buf: buf}
}

// remaining returns the number of unread bytes.
func (c *cursor) remaining() int {
	return len(c.buf) - c.off
}

func (c *cursor) eof() bool {
	return c.off >= len(c.buf)
}

func (c *cursor) need(n int) error {
	if n < 0 || c.off+n > len(c.buf) {
		return errUnexpectedEnd
	}
	return nil
}

// bytes reads n raw bytes and advances the cursor.
func (c *cursor) bytes(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b, nil
}

func (c *cursor) u8() (byte, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	b := c.buf[c.off]
	c.off++
	return b, nil
}

// peek returns the next byte without advancing the cursor.
func (c *cursor) peek() (byte, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	return c.buf[c.off], nil
}

func (c *cursor) u16() (uint16, error) {
	if err := c.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(c.buf[c.off:])
	c.off += 2
	return v, nil
}

func (c *cursor) i16() (int16, error) {
	v, err := c.u16()
	return int16(v), err
}

func (c *cursor) u32() (uint32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(c.buf[c.off:])
	c.off += 4
	return v, nil
}

func (c *cursor) i32() (int32, error) {
	v, err := c.u32()
	return int32(v), err
}

func (c *cursor) u64() (uint64, error) {
	if err := c.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(c.buf[c.off:])
	c.off += 8
	return v, nil
}

func (c *cursor) i64() (int64, error) {
	v, err := c.u64()
	return int64(v), err
}

// skip advances the cursor by n bytes, saturating at the end of the
// buffer rather than failing — used for forward-compatible "skip the
// rest of this header/field" logic where running off the end just
// means there was nothing more to skip.
func (c *cursor) skip(n int) {
	c.off += n
	if c.off > len(c.buf) {
		c.off = len(c.buf)
	}
}

// asciiString reads a length-prefixed (uint32) ASCII string, as used by
// the container's type-definition records (spec.md §4.2).
func (c *cursor) asciiString() (string, error) {
	n, err := c.u32()
	if err != nil {
		return "", err
	}
	b, err := c.bytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// utf16String reads a null-terminated UTF-16LE string, as used by event
// payload fields (spec.md §4.1). The terminator is a zero 16-bit code
// unit; unpaired surrogates are passed through as the replacement
// character by utf16.Decode.
func (c *cursor) utf16String() (string, error) {
	units := make([]uint16, 0, 16)
	for {
		u, err := c.u16()
		if err != nil {
			// A terminator that straddles EOF: return what
			// decoded so far and surface UnexpectedEnd, per
			// spec.md §8's boundary-behavior requirement.
			return utf16ToString(units), err
		}
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return utf16ToString(units), nil
}

func utf16ToString(units []uint16) string {
	return string(utf16.Decode(units))
}

// alignFrom advances the cursor up to the next 4-byte boundary of
// base+off, where base is the file offset of this cursor's buffer
// start (spec.md §4.2's "aligned to the file's 4-byte grid measured
// from the start of the file").
func (c *cursor) alignFrom(base int) {
	pos := base + c.off
	pad := (4 - pos%4) % 4
	c.skip(pad)
}

// uvarint reads an unsigned LEB128 varint of up to 35 encoded bits into
// a uint32 result (spec.md §4.1). Mirrors the shape of
// other_examples' cstockton-go-trace decodeUleb: seven payload bits per
// byte, continuation bit in the high bit, capped iteration count.
func (c *cursor) uvarint32() (uint32, error) {
	var v uint32
	for shift := uint(0); shift < 35; shift += 7 {
		b, err := c.u8()
		if err != nil {
			return 0, err
		}
		v |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, nil
		}
	}
	return 0, errf(KindMalformedEvent, "varint32 exceeded 35 bits")
}

// uvarint64 reads an unsigned LEB128 varint of up to 70 encoded bits
// into a uint64 result (spec.md §4.1).
func (c *cursor) uvarint64() (uint64, error) {
	var v uint64
	for shift := uint(0); shift < 70; shift += 7 {
		b, err := c.u8()
		if err != nil {
			return 0, err
		}
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, nil
		}
	}
	return 0, errf(KindMalformedEvent, "varint64 exceeded 70 bits")
}

// svarint64 reads a signed LEB128 varint (zig-zag-free, sign-extended
// from the final partial byte — the standard LEB128 signed encoding).
func (c *cursor) svarint64() (int64, error) {
	var v int64
	var shift uint
	for {
		b, err := c.u8()
		if err != nil {
			return 0, err
		}
		v |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			if shift < 64 && b&0x40 != 0 {
				v |= -1 << shift
			}
			return v, nil
		}
		if shift >= 70 {
			return 0, errf(KindMalformedEvent, "signed varint exceeded 70 bits")
		}
	}
}

// sub returns a new cursor scoped to the next n bytes of this cursor,
// and advances this cursor past them.
func (c *cursor) sub(n int) (*cursor, error) {
	b, err := c.bytes(n)
	if err != nil {
		return nil, err
	}
	return newCursor(b), nil
}
