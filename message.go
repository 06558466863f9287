// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package snmpcore

import "fmt"

// SnmpVersion is the msgVersion/version field shared by every SNMP message.
type SnmpVersion int32

const (
	Version1  SnmpVersion = 0
	Version2c SnmpVersion = 1
	Version3  SnmpVersion = 3
)

func (v SnmpVersion) String() string {
	switch v {
	case Version1:
		return "1"
	case Version2c:
		return "2c"
	case Version3:
		return "3"
	default:
		return fmt.Sprintf("SnmpVersion(%d)", int32(v))
	}
}

// MsgFlags is the single-octet msgFlags field of a v3 header (RFC 3412).
type MsgFlags byte

const (
	FlagAuth       MsgFlags = 0x1
	FlagPriv       MsgFlags = 0x2
	FlagReportable MsgFlags = 0x4
)

func (f MsgFlags) HasAuth() bool       { return f&FlagAuth != 0 }
func (f MsgFlags) HasPriv() bool       { return f&FlagPriv != 0 }
func (f MsgFlags) Reportable() bool    { return f&FlagReportable != 0 }
func (f MsgFlags) SecurityLevel() byte { return byte(f & (FlagAuth | FlagPriv)) }

// SecurityModel identifies the v3 security subsystem in use. USM (3) is the
// only model this core implements.
type SecurityModel int32

const UserSecurityModel SecurityModel = 3

// Message is a decoded SNMP message of any version. For v1/v2c, Community
// and PDU are populated and V3 is nil; for v3, V3 carries the header,
// security parameters, and scoped PDU, and PDU aliases V3.ScopedPDU.PDU
// once decryption/parsing has completed.
type Message struct {
	Version   SnmpVersion
	Community string
	PDU       PDU
	V3        *V3Message
}

// V3Header is the msgGlobalData HeaderData sequence (RFC 3412 §6).
type V3Header struct {
	MsgID         int32
	MaxSize       int32
	Flags         MsgFlags
	SecurityModel SecurityModel
}

// UsmSecurityParameters is the USM msgSecurityParameters payload, itself
// BER-encoded and carried inside an OCTET STRING at the message level.
type UsmSecurityParameters struct {
	AuthoritativeEngineID   string
	AuthoritativeEngineBoots int32
	AuthoritativeEngineTime  int32
	UserName                 string
	AuthenticationParameters []byte
	PrivacyParameters        []byte
}

// ScopedPDU is the (contextEngineID, contextName, pdu) tuple that, for
// authPriv messages, is encrypted as a single OCTET STRING.
type ScopedPDU struct {
	ContextEngineID string
	ContextName     string
	PDU             PDU
}

// V3Message holds everything specific to SNMPv3 framing. EncryptedPDU
// holds the ciphertext form of the scoped PDU when privacy is engaged and
// decryption has not yet (or could not) run; ScopedPDU is valid once
// plaintext is available.
type V3Message struct {
	Header             V3Header
	SecurityParameters UsmSecurityParameters
	ScopedPDU          ScopedPDU
	EncryptedPDU       []byte
}

// maxMessageSize is the maxMsgSize this core advertises: large enough for
// any message that could arrive over UDP.
const maxMessageSize = 65507

// EncodeMessage emits the v1/v2c message framing: SEQUENCE { version,
// community, pdu }.
func EncodeMessage(version SnmpVersion, community string, pdu PDU) ([]byte, error) {
	var body []byte
	body = append(body, encodeTLV(tagInteger, marshalInteger(int64(version)))...)
	body = append(body, encodeTLV(tagOctetString, []byte(community))...)

	pduBytes, err := EncodePDU(pdu)
	if err != nil {
		return nil, err
	}
	body = append(body, pduBytes...)

	return encodeTLV(tagSequence, body), nil
}

// DecodeMessage reads a v1/v2c or v3 message, dispatching on msgVersion.
// For v3 messages whose scoped PDU is still encrypted, PDU is left zero
// and V3.EncryptedPDU carries the ciphertext for the caller to decrypt
// (DecryptScopedPDU in usm_priv.go) and re-parse via
// DecodeScopedPDUFromBytes.
func DecodeMessage(packet []byte) (Message, error) {
	c := newCursor(packet)
	tag, body, err := c.readTLV()
	if err != nil {
		return Message{}, err
	}
	if tag != tagSequence {
		return Message{}, &ParseError{Op: "DecodeMessage", Err: errUnexpectedTag}
	}

	inner := newCursor(body)
	verVal, err := DecodeSmiValue(inner)
	if err != nil {
		return Message{}, err
	}
	if verVal.Kind != KindInteger {
		return Message{}, &ParseError{Op: "DecodeMessage", Err: errUnexpectedTag}
	}
	version := SnmpVersion(verVal.Int)

	if version == Version3 {
		return decodeV3Message(version, inner)
	}
	return decodeCommunityMessage(version, inner)
}

func decodeCommunityMessage(version SnmpVersion, inner *cursor) (Message, error) {
	commVal, err := DecodeSmiValue(inner)
	if err != nil {
		return Message{}, err
	}
	if commVal.Kind != KindOctetString {
		return Message{}, &ParseError{Op: "decodeCommunityMessage", Err: errUnexpectedTag}
	}

	pdu, err := DecodePDU(inner)
	if err != nil {
		return Message{}, err
	}

	return Message{
		Version:   version,
		Community: string(commVal.Bytes),
		PDU:       pdu,
	}, nil
}

// EncodeMessageV3 emits the full v3 message. It returns the encoded bytes
// along with the byte offset at which the zero-filled
// authenticationParameters field begins, so the caller (usm.go) can
// compute the HMAC over the whole message and patch it in place.
func EncodeMessageV3(hdr V3Header, usm UsmSecurityParameters, authProtocol AuthProtocol, scopedPDUPlaintext []byte, encryptedScopedPDU []byte) ([]byte, int, error) {
	var out []byte
	out = append(out, encodeTLV(tagInteger, marshalInteger(int64(Version3)))...)

	headerBytes, err := encodeV3Header(hdr)
	if err != nil {
		return nil, 0, err
	}
	out = append(out, headerBytes...)

	secParamBytes, authOffsetInSecParam, err := encodeUsmSecurityParameters(usm, hdr.Flags.HasAuth(), authProtocol)
	if err != nil {
		return nil, 0, err
	}
	secParamTLV := encodeTLV(tagOctetString, secParamBytes)

	// authOffsetInSecParam is relative to the start of secParamBytes; the
	// absolute offset adds everything written so far plus the OCTET
	// STRING tag+length header wrapping secParamBytes.
	secParamTLVHeaderLen := len(secParamTLV) - len(secParamBytes)
	authParamStart := len(out) + secParamTLVHeaderLen + authOffsetInSecParam
	out = append(out, secParamTLV...)

	if encryptedScopedPDU != nil {
		out = append(out, encodeTLV(tagOctetString, encryptedScopedPDU)...)
	} else {
		out = append(out, scopedPDUPlaintext...)
	}

	msg := encodeTLV(tagSequence, out)
	// authParamStart must shift by the outer SEQUENCE's own tag+length
	// header, which was prepended after computing the inner offset.
	authParamStart += len(msg) - len(out)
	return msg, authParamStart, nil
}

func encodeV3Header(hdr V3Header) ([]byte, error) {
	var body []byte
	body = append(body, encodeTLV(tagInteger, marshalInteger(int64(hdr.MsgID)))...)
	body = append(body, encodeTLV(tagInteger, marshalInteger(int64(hdr.MaxSize)))...)
	body = append(body, encodeTLV(tagOctetString, []byte{byte(hdr.Flags)})...)
	body = append(body, encodeTLV(tagInteger, marshalInteger(int64(hdr.SecurityModel)))...)
	return encodeTLV(tagSequence, body), nil
}

// encodeUsmSecurityParameters returns the BER encoding of the USM
// parameters sequence along with the byte offset, within that returned
// slice, at which the authenticationParameters OCTET STRING value begins
// (i.e. just past its own tag+length octets).
func encodeUsmSecurityParameters(usm UsmSecurityParameters, authEnabled bool, authProtocol AuthProtocol) ([]byte, int, error) {
	var body []byte
	body = append(body, encodeTLV(tagOctetString, []byte(usm.AuthoritativeEngineID))...)
	body = append(body, encodeTLV(tagInteger, marshalInteger(int64(usm.AuthoritativeEngineBoots)))...)
	body = append(body, encodeTLV(tagInteger, marshalInteger(int64(usm.AuthoritativeEngineTime)))...)
	body = append(body, encodeTLV(tagOctetString, []byte(usm.UserName))...)

	var authParams []byte
	if authEnabled {
		authParams = zeroAuthParamPlaceholder(authProtocol)
	}
	authTLV := encodeTLV(tagOctetString, authParams)
	authOffsetInBody := len(body) + (len(authTLV) - len(authParams))
	body = append(body, authTLV...)

	privTLV := encodeTLV(tagOctetString, usm.PrivacyParameters)
	body = append(body, privTLV...)

	seq := encodeTLV(tagSequence, body)
	seqHeaderLen := len(seq) - len(body)
	return seq, seqHeaderLen + authOffsetInBody, nil
}

func decodeV3Message(version SnmpVersion, inner *cursor) (Message, error) {
	hdr, err := decodeV3Header(inner)
	if err != nil {
		return Message{}, err
	}

	secTag, secBody, err := inner.readTLV()
	if err != nil {
		return Message{}, err
	}
	if secTag != tagOctetString {
		return Message{}, &ParseError{Op: "decodeV3Message", Err: errUnexpectedTag}
	}

	var usm UsmSecurityParameters
	if hdr.SecurityModel == UserSecurityModel {
		usm, err = decodeUsmSecurityParameters(secBody)
		if err != nil {
			return Message{}, err
		}
	}

	v3 := &V3Message{Header: hdr, SecurityParameters: usm}

	dataTag, err := inner.peekTag()
	if err != nil {
		return Message{}, err
	}
	switch dataTag {
	case tagSequence:
		scoped, err := DecodeScopedPDU(inner)
		if err != nil {
			return Message{}, err
		}
		v3.ScopedPDU = scoped
		return Message{Version: version, V3: v3, PDU: scoped.PDU}, nil
	case tagOctetString:
		_, encrypted, err := inner.readTLV()
		if err != nil {
			return Message{}, err
		}
		v3.EncryptedPDU = append([]byte(nil), encrypted...)
		return Message{Version: version, V3: v3}, nil
	default:
		return Message{}, &ParseError{Op: "decodeV3Message", Err: errUnexpectedTag}
	}
}

func decodeV3Header(c *cursor) (V3Header, error) {
	tag, body, err := c.readTLV()
	if err != nil {
		return V3Header{}, err
	}
	if tag != tagSequence {
		return V3Header{}, &ParseError{Op: "decodeV3Header", Err: errUnexpectedTag}
	}
	inner := newCursor(body)

	idVal, err := DecodeSmiValue(inner)
	if err != nil {
		return V3Header{}, err
	}
	sizeVal, err := DecodeSmiValue(inner)
	if err != nil {
		return V3Header{}, err
	}
	flagsVal, err := DecodeSmiValue(inner)
	if err != nil {
		return V3Header{}, err
	}
	if flagsVal.Kind != KindOctetString || len(flagsVal.Bytes) != 1 {
		return V3Header{}, &ParseError{Op: "decodeV3Header", Err: errUnexpectedTag}
	}
	modelVal, err := DecodeSmiValue(inner)
	if err != nil {
		return V3Header{}, err
	}

	return V3Header{
		MsgID:         int32(idVal.Int),
		MaxSize:       int32(sizeVal.Int),
		Flags:         MsgFlags(flagsVal.Bytes[0]),
		SecurityModel: SecurityModel(modelVal.Int),
	}, nil
}

func decodeUsmSecurityParameters(body []byte) (UsmSecurityParameters, error) {
	c := newCursor(body)
	tag, seqBody, err := c.readTLV()
	if err != nil {
		return UsmSecurityParameters{}, err
	}
	if tag != tagSequence {
		return UsmSecurityParameters{}, &ParseError{Op: "decodeUsmSecurityParameters", Err: errUnexpectedTag}
	}
	inner := newCursor(seqBody)

	engineIDVal, err := DecodeSmiValue(inner)
	if err != nil {
		return UsmSecurityParameters{}, err
	}
	bootsVal, err := DecodeSmiValue(inner)
	if err != nil {
		return UsmSecurityParameters{}, err
	}
	timeVal, err := DecodeSmiValue(inner)
	if err != nil {
		return UsmSecurityParameters{}, err
	}
	userVal, err := DecodeSmiValue(inner)
	if err != nil {
		return UsmSecurityParameters{}, err
	}
	authVal, err := DecodeSmiValue(inner)
	if err != nil {
		return UsmSecurityParameters{}, err
	}
	privVal, err := DecodeSmiValue(inner)
	if err != nil {
		return UsmSecurityParameters{}, err
	}

	return UsmSecurityParameters{
		AuthoritativeEngineID:    string(engineIDVal.Bytes),
		AuthoritativeEngineBoots: int32(bootsVal.Int),
		AuthoritativeEngineTime:  int32(timeVal.Int),
		UserName:                 string(userVal.Bytes),
		AuthenticationParameters: append([]byte(nil), authVal.Bytes...),
		PrivacyParameters:        append([]byte(nil), privVal.Bytes...),
	}, nil
}

// EncodeScopedPDU emits the plaintext ScopedPDU sequence; usm_priv.go
// encrypts the result when privacy is engaged.
func EncodeScopedPDU(s ScopedPDU) ([]byte, error) {
	var body []byte
	body = append(body, encodeTLV(tagOctetString, []byte(s.ContextEngineID))...)
	body = append(body, encodeTLV(tagOctetString, []byte(s.ContextName))...)

	pduBytes, err := EncodePDU(s.PDU)
	if err != nil {
		return nil, err
	}
	body = append(body, pduBytes...)

	return encodeTLV(tagSequence, body), nil
}

// DecodeScopedPDU reads a plaintext ScopedPDU from the cursor.
func DecodeScopedPDU(c *cursor) (ScopedPDU, error) {
	tag, body, err := c.readTLV()
	if err != nil {
		return ScopedPDU{}, err
	}
	if tag != tagSequence {
		return ScopedPDU{}, &ParseError{Op: "DecodeScopedPDU", Err: errUnexpectedTag}
	}
	inner := newCursor(body)

	engineIDVal, err := DecodeSmiValue(inner)
	if err != nil {
		return ScopedPDU{}, err
	}
	nameVal, err := DecodeSmiValue(inner)
	if err != nil {
		return ScopedPDU{}, err
	}
	pdu, err := DecodePDU(inner)
	if err != nil {
		return ScopedPDU{}, err
	}

	return ScopedPDU{
		ContextEngineID: string(engineIDVal.Bytes),
		ContextName:     string(nameVal.Bytes),
		PDU:             pdu,
	}, nil
}

// DecodeScopedPDUFromBytes decodes a standalone ScopedPDU buffer, as
// produced by decrypting a V3Message.EncryptedPDU.
func DecodeScopedPDUFromBytes(buf []byte) (ScopedPDU, error) {
	return DecodeScopedPDU(newCursor(buf))
}
