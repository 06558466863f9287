// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package snmpcore

import (
	"fmt"
)

// BERClass is the top two bits of a BER tag byte.
type BERClass byte

// The four ASN.1 tag classes. This core only ever needs single-byte tags,
// so a tag number above 30 is never produced or accepted.
const (
	ClassUniversal       BERClass = 0x00
	ClassApplication     BERClass = 0x40
	ClassContextSpecific BERClass = 0x80
	ClassPrivate         BERClass = 0xC0
)

// constructedFlag is OR'd into a tag byte (bit 5) for a TLV whose value is
// itself a sequence of TLVs.
const constructedFlag byte = 0x20

// Universal and application-class tag numbers this codec knows about.
// PDU container tags (context-specific, constructed) live in pdu.go.
const (
	tagInteger          byte = 0x02
	tagOctetString      byte = 0x04
	tagNull             byte = 0x05
	tagObjectIdentifier byte = 0x06
	tagSequence         byte = 0x30 // universal + constructed

	tagIPAddress  byte = byte(ClassApplication) | 0x00
	tagCounter32  byte = byte(ClassApplication) | 0x01
	tagGauge32    byte = byte(ClassApplication) | 0x02
	tagTimeTicks  byte = byte(ClassApplication) | 0x03
	tagOpaque     byte = byte(ClassApplication) | 0x04
	tagCounter64  byte = byte(ClassApplication) | 0x06

	tagNoSuchObject   byte = byte(ClassContextSpecific) | 0x00
	tagNoSuchInstance byte = byte(ClassContextSpecific) | 0x01
	tagEndOfMibView   byte = byte(ClassContextSpecific) | 0x02
)

// cursor is an immutable, position-tracking view over a decode buffer. It
// never reads past its own slice; every read method advances pos and
// returns a *ParseError wrapping a sentinel on failure.
type cursor struct {
	buf []byte
	pos int
}

func newCursor(buf []byte) *cursor { return &cursor{buf: buf} }

func (c *cursor) remaining() int { return len(c.buf) - c.pos }

func (c *cursor) peekTag() (byte, error) {
	if c.remaining() < 1 {
		return 0, &ParseError{Op: "peekTag", Err: errTruncatedField}
	}
	return c.buf[c.pos], nil
}

// readTLV reads one tag-length-value triplet, returning the tag byte and a
// slice of exactly length bytes (a sub-slice of the decoder's own buffer,
// not a copy — callers that need to retain it past further decoding should
// copy).
func (c *cursor) readTLV() (tag byte, value []byte, err error) {
	if c.remaining() < 1 {
		return 0, nil, &ParseError{Op: "readTLV", Err: errTruncatedField}
	}
	tag = c.buf[c.pos]
	c.pos++

	length, err := c.readLength()
	if err != nil {
		return 0, nil, err
	}
	if c.remaining() < length {
		return 0, nil, &ParseError{Op: "readTLV", Err: errTruncatedField}
	}
	value = c.buf[c.pos : c.pos+length]
	c.pos += length
	return tag, value, nil
}

// readLength decodes a BER length field (short or long form) starting at
// the cursor and advances past it.
func (c *cursor) readLength() (int, error) {
	if c.remaining() < 1 {
		return 0, &ParseError{Op: "readLength", Err: errTruncatedField}
	}
	first := c.buf[c.pos]
	c.pos++

	if first&0x80 == 0 {
		return int(first), nil
	}

	n := int(first & 0x7F)
	if n == 0 {
		// Indefinite length form; SNMP forbids it.
		return 0, &ParseError{Op: "readLength", Err: errBadLength}
	}
	if n > 4 {
		// A length needing more than 4 octets cannot fit a UDP datagram
		// (max 65507 bytes) and indicates corruption.
		return 0, &ParseError{Op: "readLength", Err: errBadLength}
	}
	if c.remaining() < n {
		return 0, &ParseError{Op: "readLength", Err: errTruncatedField}
	}
	length := 0
	for i := 0; i < n; i++ {
		length = length<<8 | int(c.buf[c.pos])
		c.pos++
	}
	if length < 0 {
		return 0, &ParseError{Op: "readLength", Err: errBadLength}
	}
	return length, nil
}

// marshalLength returns the minimal BER encoding of a length value. n is
// always a slice length in this codec and so is never negative.
func marshalLength(n int) []byte {
	if n < 0x80 {
		return []byte{byte(n)}
	}
	var octets []byte
	for v := n; v > 0; v >>= 8 {
		octets = append([]byte{byte(v)}, octets...)
	}
	return append([]byte{0x80 | byte(len(octets))}, octets...)
}

// encodeTLV emits tag, minimal length, value as a single contiguous slice.
func encodeTLV(tag byte, value []byte) []byte {
	lenBytes := marshalLength(len(value))
	out := make([]byte, 0, 1+len(lenBytes)+len(value))
	out = append(out, tag)
	out = append(out, lenBytes...)
	out = append(out, value...)
	return out
}

// marshalInteger encodes n as a two's-complement, big-endian, shortest-form
// BER INTEGER body (without tag/length).
func marshalInteger(n int64) []byte {
	if n == 0 {
		return []byte{0x00}
	}

	var octets []byte
	if n > 0 {
		v := uint64(n)
		for v > 0 {
			octets = append([]byte{byte(v)}, octets...)
			v >>= 8
		}
		if octets[0]&0x80 != 0 {
			octets = append([]byte{0x00}, octets...)
		}
		return octets
	}

	// Negative: two's complement in the smallest number of octets that
	// keeps the sign bit set and has no redundant leading 0xFF.
	v := n
	for {
		octets = append([]byte{byte(v)}, octets...)
		if v >= -128 && v <= -1 {
			break
		}
		v >>= 8
	}
	for len(octets) > 1 && octets[0] == 0xFF && octets[1]&0x80 != 0 {
		octets = octets[1:]
	}
	return octets
}

// unmarshalInteger decodes a two's-complement big-endian BER INTEGER body.
func unmarshalInteger(body []byte) (int64, error) {
	if len(body) == 0 {
		return 0, &ParseError{Op: "unmarshalInteger", Err: errBadInteger}
	}
	if len(body) > 8 {
		return 0, &ParseError{Op: "unmarshalInteger", Err: errBadInteger}
	}
	negative := body[0]&0x80 != 0
	var v int64
	if negative {
		v = -1
	}
	for _, b := range body {
		v = v<<8 | int64(b)
	}
	return v, nil
}

// marshalUint32 encodes an unsigned 32-bit value as a BER INTEGER body
// (prepending a sign octet when the MSB would otherwise be mistaken for a
// two's-complement negative number).
func marshalUint32(v uint32) []byte {
	return marshalInteger(int64(v))
}

// marshalOID encodes a validated Oid per X.690 §8.19: the first two
// sub-identifiers combine into a single value (40*sub[0]+sub[1]) which,
// like every other sub-identifier, is base-128 continuation encoded, most
// significant group first. This collapses to a single octet for the
// common 1.3.6... / 2.x prefixes, but extends to multiple
// octets when the combined value exceeds 127 — e.g. a large second
// sub-identifier under the 2.x arc.
func marshalOID(oid Oid) ([]byte, error) {
	if err := oid.Validate(); err != nil {
		return nil, err
	}

	out := encodeBase128(uint64(oid[0])*40 + uint64(oid[1]))
	for _, sub := range oid[2:] {
		out = append(out, encodeBase128(uint64(sub))...)
	}
	return out, nil
}

func encodeBase128(v uint64) []byte {
	if v == 0 {
		return []byte{0x00}
	}
	var groups []byte
	for v > 0 {
		groups = append([]byte{byte(v & 0x7F)}, groups...)
		v >>= 7
	}
	for i := 0; i < len(groups)-1; i++ {
		groups[i] |= 0x80
	}
	return groups
}

// unmarshalOID decodes a BER OBJECT IDENTIFIER body into an Oid, enforcing
// the first/second sub-identifier invariants and rejecting overflow.
func unmarshalOID(body []byte) (Oid, error) {
	if len(body) == 0 {
		return nil, &ParseError{Op: "unmarshalOID", Err: errBadOid}
	}

	i := 0
	readGroup := func() (uint64, error) {
		var v uint64
		n := 0
		for {
			if i >= len(body) {
				return 0, &ParseError{Op: "unmarshalOID", Err: errTruncatedField}
			}
			b := body[i]
			i++
			v = v<<7 | uint64(b&0x7F)
			n++
			if n > 5 {
				return 0, &ParseError{Op: "unmarshalOID", Err: errBadOid}
			}
			if b&0x80 == 0 {
				return v, nil
			}
		}
	}

	combined, err := readGroup()
	if err != nil {
		return nil, err
	}

	first := combined / 40
	second := combined % 40
	if first > 2 {
		first = 2
		second = combined - 80
	}
	if first > 0xFFFFFFFF || second > 0xFFFFFFFF {
		return nil, &ParseError{Op: "unmarshalOID", Err: errBadOid}
	}

	oid := Oid{uint32(first), uint32(second)}

	for i < len(body) {
		v, err := readGroup()
		if err != nil {
			return nil, err
		}
		if v > 0xFFFFFFFF {
			return nil, &ParseError{Op: "unmarshalOID", Err: errBadOid}
		}
		oid = append(oid, uint32(v))
	}

	if err := oid.Validate(); err != nil {
		return nil, err
	}
	return oid, nil
}

func tagName(tag byte) string {
	return fmt.Sprintf("0x%02x", tag)
}
