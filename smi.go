// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package snmpcore

import "fmt"

// SmiKind discriminates the variant held by a SmiValue: a single struct
// carrying a Kind and the one field relevant to it, with dispatch a
// switch on Kind.
type SmiKind int

const (
	KindInteger SmiKind = iota
	KindOctetString
	KindNull
	KindObjectIdentifier
	KindIPAddress
	KindCounter32
	KindGauge32
	KindTimeTicks
	KindOpaque
	KindCounter64
	KindNoSuchObject
	KindNoSuchInstance
	KindEndOfMibView
	KindSequence
)

// SmiValue is the tagged union over every primitive and application SNMP
// data type plus Sequence. Only the field matching Kind is meaningful.
type SmiValue struct {
	Kind     SmiKind
	Int      int64    // KindInteger
	Bytes    []byte   // KindOctetString, KindIPAddress (exactly 4 bytes), KindOpaque
	Oid      Oid      // KindObjectIdentifier
	Uint32   uint32   // KindCounter32, KindGauge32, KindTimeTicks
	Uint64   uint64   // KindCounter64
	Sequence []SmiValue
}

// Tag returns the BER tag byte this variant encodes under.
func (v SmiValue) Tag() byte {
	switch v.Kind {
	case KindInteger:
		return tagInteger
	case KindOctetString:
		return tagOctetString
	case KindNull:
		return tagNull
	case KindObjectIdentifier:
		return tagObjectIdentifier
	case KindIPAddress:
		return tagIPAddress
	case KindCounter32:
		return tagCounter32
	case KindGauge32:
		return tagGauge32
	case KindTimeTicks:
		return tagTimeTicks
	case KindOpaque:
		return tagOpaque
	case KindCounter64:
		return tagCounter64
	case KindNoSuchObject:
		return tagNoSuchObject
	case KindNoSuchInstance:
		return tagNoSuchInstance
	case KindEndOfMibView:
		return tagEndOfMibView
	case KindSequence:
		return tagSequence
	default:
		return 0
	}
}

func (v SmiValue) String() string {
	switch v.Kind {
	case KindInteger:
		return fmt.Sprintf("Integer(%d)", v.Int)
	case KindOctetString:
		return fmt.Sprintf("OctetString(%q)", v.Bytes)
	case KindNull:
		return "Null"
	case KindObjectIdentifier:
		return fmt.Sprintf("Oid(%s)", v.Oid.String())
	case KindIPAddress:
		return fmt.Sprintf("IpAddress(%v)", v.Bytes)
	case KindCounter32:
		return fmt.Sprintf("Counter32(%d)", v.Uint32)
	case KindGauge32:
		return fmt.Sprintf("Gauge32(%d)", v.Uint32)
	case KindTimeTicks:
		return fmt.Sprintf("TimeTicks(%d)", v.Uint32)
	case KindOpaque:
		return fmt.Sprintf("Opaque(%d bytes)", len(v.Bytes))
	case KindCounter64:
		return fmt.Sprintf("Counter64(%d)", v.Uint64)
	case KindNoSuchObject:
		return "NoSuchObject"
	case KindNoSuchInstance:
		return "NoSuchInstance"
	case KindEndOfMibView:
		return "EndOfMibView"
	case KindSequence:
		return fmt.Sprintf("Sequence(%d)", len(v.Sequence))
	default:
		return "Unknown"
	}
}

// Constructors for each variant.

func Integer(n int64) SmiValue                { return SmiValue{Kind: KindInteger, Int: n} }
func OctetString(b []byte) SmiValue           { return SmiValue{Kind: KindOctetString, Bytes: b} }
func OctetStringFromString(s string) SmiValue { return SmiValue{Kind: KindOctetString, Bytes: []byte(s)} }
func Null() SmiValue                          { return SmiValue{Kind: KindNull} }
func ObjectIdentifier(o Oid) SmiValue         { return SmiValue{Kind: KindObjectIdentifier, Oid: o} }
func Counter32(v uint32) SmiValue             { return SmiValue{Kind: KindCounter32, Uint32: v} }
func Gauge32(v uint32) SmiValue               { return SmiValue{Kind: KindGauge32, Uint32: v} }
func TimeTicks(v uint32) SmiValue             { return SmiValue{Kind: KindTimeTicks, Uint32: v} }
func Counter64(v uint64) SmiValue             { return SmiValue{Kind: KindCounter64, Uint64: v} }
func Opaque(b []byte) SmiValue                { return SmiValue{Kind: KindOpaque, Bytes: b} }
func NoSuchObject() SmiValue                  { return SmiValue{Kind: KindNoSuchObject} }
func NoSuchInstance() SmiValue                { return SmiValue{Kind: KindNoSuchInstance} }
func EndOfMibView() SmiValue                  { return SmiValue{Kind: KindEndOfMibView} }

// IPAddress validates and constructs a 4-octet IpAddress value.
func IPAddress(b []byte) (SmiValue, error) {
	if len(b) != 4 {
		return SmiValue{}, &ParseError{Op: "IPAddress", Err: fmt.Errorf("ip address must be 4 octets, got %d", len(b))}
	}
	cp := make([]byte, 4)
	copy(cp, b)
	return SmiValue{Kind: KindIPAddress, Bytes: cp}, nil
}

// EncodeSmiValue emits the tag-length-value encoding of v, recursing for
// KindSequence.
func EncodeSmiValue(v SmiValue) ([]byte, error) {
	switch v.Kind {
	case KindInteger:
		return encodeTLV(tagInteger, marshalInteger(v.Int)), nil
	case KindOctetString, KindOpaque:
		return encodeTLV(v.Tag(), v.Bytes), nil
	case KindNull, KindNoSuchObject, KindNoSuchInstance, KindEndOfMibView:
		return encodeTLV(v.Tag(), nil), nil
	case KindObjectIdentifier:
		body, err := marshalOID(v.Oid)
		if err != nil {
			return nil, err
		}
		return encodeTLV(tagObjectIdentifier, body), nil
	case KindIPAddress:
		if len(v.Bytes) != 4 {
			return nil, &ParseError{Op: "EncodeSmiValue", Err: fmt.Errorf("ip address must be 4 octets")}
		}
		return encodeTLV(tagIPAddress, v.Bytes), nil
	case KindCounter32, KindGauge32, KindTimeTicks:
		return encodeTLV(v.Tag(), marshalUint32(v.Uint32)), nil
	case KindCounter64:
		return encodeTLV(tagCounter64, marshalUint64(v.Uint64)), nil
	case KindSequence:
		var body []byte
		for _, child := range v.Sequence {
			enc, err := EncodeSmiValue(child)
			if err != nil {
				return nil, err
			}
			body = append(body, enc...)
		}
		return encodeTLV(tagSequence, body), nil
	default:
		return nil, &ParseError{Op: "EncodeSmiValue", Err: errUnsupportedTag}
	}
}

// marshalUint64 mirrors marshalInteger for 64-bit unsigned application
// types (Counter64).
func marshalUint64(v uint64) []byte {
	if v == 0 {
		return []byte{0x00}
	}
	var octets []byte
	for v > 0 {
		octets = append([]byte{byte(v)}, octets...)
		v >>= 8
	}
	if octets[0]&0x80 != 0 {
		octets = append([]byte{0x00}, octets...)
	}
	return octets
}

func unmarshalUint64(body []byte) (uint64, error) {
	if len(body) == 0 || len(body) > 9 {
		return 0, &ParseError{Op: "unmarshalUint64", Err: errBadInteger}
	}
	var v uint64
	for _, b := range body {
		v = v<<8 | uint64(b)
	}
	return v, nil
}

// DecodeSmiValue dispatches on the tag byte at the cursor's current
// position and decodes the corresponding variant.
func DecodeSmiValue(c *cursor) (SmiValue, error) {
	tag, body, err := c.readTLV()
	if err != nil {
		return SmiValue{}, err
	}
	return decodeSmiValueFrom(tag, body)
}

func decodeSmiValueFrom(tag byte, body []byte) (SmiValue, error) {
	switch tag {
	case tagInteger:
		n, err := unmarshalInteger(body)
		if err != nil {
			return SmiValue{}, err
		}
		return Integer(n), nil
	case tagOctetString:
		return OctetString(append([]byte(nil), body...)), nil
	case tagOpaque:
		return Opaque(append([]byte(nil), body...)), nil
	case tagNull:
		return Null(), nil
	case tagObjectIdentifier:
		oid, err := unmarshalOID(body)
		if err != nil {
			return SmiValue{}, err
		}
		return ObjectIdentifier(oid), nil
	case tagIPAddress:
		return IPAddress(body)
	case tagCounter32:
		n, err := unmarshalInteger(body)
		if err != nil {
			return SmiValue{}, err
		}
		return Counter32(uint32(n)), nil
	case tagGauge32:
		n, err := unmarshalInteger(body)
		if err != nil {
			return SmiValue{}, err
		}
		return Gauge32(uint32(n)), nil
	case tagTimeTicks:
		n, err := unmarshalInteger(body)
		if err != nil {
			return SmiValue{}, err
		}
		return TimeTicks(uint32(n)), nil
	case tagCounter64:
		n, err := unmarshalUint64(body)
		if err != nil {
			return SmiValue{}, err
		}
		return Counter64(n), nil
	case tagNoSuchObject:
		return NoSuchObject(), nil
	case tagNoSuchInstance:
		return NoSuchInstance(), nil
	case tagEndOfMibView:
		return EndOfMibView(), nil
	case tagSequence:
		inner := newCursor(body)
		var children []SmiValue
		for inner.remaining() > 0 {
			child, err := DecodeSmiValue(inner)
			if err != nil {
				return SmiValue{}, err
			}
			children = append(children, child)
		}
		return SmiValue{Kind: KindSequence, Sequence: children}, nil
	default:
		return SmiValue{}, &ParseError{Op: "DecodeSmiValue", Err: fmt.Errorf("%w: %s", errUnsupportedTag, tagName(tag))}
	}
}

// Varbind pairs an Oid with its SmiValue.
type Varbind struct {
	Oid   Oid
	Value SmiValue
}

// VarbindList is an ordered sequence of varbinds.
type VarbindList []Varbind

func encodeVarbind(vb Varbind) ([]byte, error) {
	oidEnc, err := EncodeSmiValue(ObjectIdentifier(vb.Oid))
	if err != nil {
		return nil, err
	}
	valEnc, err := EncodeSmiValue(vb.Value)
	if err != nil {
		return nil, err
	}
	return encodeTLV(tagSequence, append(oidEnc, valEnc...)), nil
}

func decodeVarbind(c *cursor) (Varbind, error) {
	tag, body, err := c.readTLV()
	if err != nil {
		return Varbind{}, err
	}
	if tag != tagSequence {
		return Varbind{}, &ParseError{Op: "decodeVarbind", Err: errUnexpectedTag}
	}
	inner := newCursor(body)
	oidVal, err := DecodeSmiValue(inner)
	if err != nil {
		return Varbind{}, err
	}
	if oidVal.Kind != KindObjectIdentifier {
		return Varbind{}, &ParseError{Op: "decodeVarbind", Err: errUnexpectedTag}
	}
	val, err := DecodeSmiValue(inner)
	if err != nil {
		return Varbind{}, err
	}
	return Varbind{Oid: oidVal.Oid, Value: val}, nil
}

func encodeVarbindList(vbl VarbindList) ([]byte, error) {
	var body []byte
	for _, vb := range vbl {
		enc, err := encodeVarbind(vb)
		if err != nil {
			return nil, err
		}
		body = append(body, enc...)
	}
	return encodeTLV(tagSequence, body), nil
}

func decodeVarbindList(c *cursor) (VarbindList, error) {
	tag, body, err := c.readTLV()
	if err != nil {
		return nil, err
	}
	if tag != tagSequence {
		return nil, &ParseError{Op: "decodeVarbindList", Err: errUnexpectedTag}
	}
	inner := newCursor(body)
	var vbl VarbindList
	for inner.remaining() > 0 {
		vb, err := decodeVarbind(inner)
		if err != nil {
			return nil, err
		}
		vbl = append(vbl, vb)
	}
	return vbl, nil
}
