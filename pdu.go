// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package snmpcore

import "fmt"

// PDUType identifies which SNMP protocol data unit variant a PDU tag
// represents: the context-specific, constructed tags 0xA0-0xA8.
type PDUType byte

const (
	GetRequest     PDUType = 0xA0
	GetNextRequest PDUType = 0xA1
	GetResponse    PDUType = 0xA2
	SetRequest     PDUType = 0xA3
	TrapV1         PDUType = 0xA4
	GetBulkRequest PDUType = 0xA5
	InformRequest  PDUType = 0xA6
	TrapV2         PDUType = 0xA7
	Report         PDUType = 0xA8
)

func (t PDUType) String() string {
	switch t {
	case GetRequest:
		return "GetRequest"
	case GetNextRequest:
		return "GetNextRequest"
	case GetResponse:
		return "GetResponse"
	case SetRequest:
		return "SetRequest"
	case TrapV1:
		return "TrapV1"
	case GetBulkRequest:
		return "GetBulkRequest"
	case InformRequest:
		return "InformRequest"
	case TrapV2:
		return "TrapV2"
	case Report:
		return "Report"
	default:
		return fmt.Sprintf("PDUType(0x%02x)", byte(t))
	}
}

// ErrorStatus is the error-status field of a response PDU (RFC 3416 §3).
type ErrorStatus int32

const (
	NoError             ErrorStatus = 0
	TooBig              ErrorStatus = 1
	NoSuchName          ErrorStatus = 2
	BadValue            ErrorStatus = 3
	ReadOnly            ErrorStatus = 4
	GenErr              ErrorStatus = 5
	NoAccess            ErrorStatus = 6
	WrongType           ErrorStatus = 7
	WrongLength         ErrorStatus = 8
	WrongEncoding       ErrorStatus = 9
	WrongValue          ErrorStatus = 10
	NoCreation          ErrorStatus = 11
	InconsistentValue   ErrorStatus = 12
	ResourceUnavailable ErrorStatus = 13
	CommitFailed        ErrorStatus = 14
	UndoFailed          ErrorStatus = 15
	AuthorizationError  ErrorStatus = 16
	NotWritable         ErrorStatus = 17
	InconsistentName    ErrorStatus = 18
)

func (e ErrorStatus) String() string {
	names := map[ErrorStatus]string{
		NoError: "NoError", TooBig: "TooBig", NoSuchName: "NoSuchName",
		BadValue: "BadValue", ReadOnly: "ReadOnly", GenErr: "GenErr",
		NoAccess: "NoAccess", WrongType: "WrongType", WrongLength: "WrongLength",
		WrongEncoding: "WrongEncoding", WrongValue: "WrongValue", NoCreation: "NoCreation",
		InconsistentValue: "InconsistentValue", ResourceUnavailable: "ResourceUnavailable",
		CommitFailed: "CommitFailed", UndoFailed: "UndoFailed",
		AuthorizationError: "AuthorizationError", NotWritable: "NotWritable",
		InconsistentName: "InconsistentName",
	}
	if n, ok := names[e]; ok {
		return n
	}
	return fmt.Sprintf("ErrorStatus(%d)", int32(e))
}

// PDU is a tagged union over the request/response and bulk/trap variants.
// Every variant except TrapV1 carries (RequestID, field2, field3,
// Varbinds); for GetBulkRequest field2/field3 are NonRepeaters/
// MaxRepetitions, otherwise they are ErrorStatus/ErrorIndex.
type PDU struct {
	Type      PDUType
	RequestID int32

	// ErrorStatus/ErrorIndex apply to every variant except GetBulkRequest.
	ErrorStatus ErrorStatus
	ErrorIndex  int32

	// NonRepeaters/MaxRepetitions apply only to GetBulkRequest, aliasing
	// the same wire position as ErrorStatus/ErrorIndex.
	NonRepeaters   int32
	MaxRepetitions int32

	Varbinds VarbindList

	// TrapV1Data is populated only when Type == TrapV1; the rest of the
	// struct's fields are unused for that variant.
	TrapV1Data *TrapV1PDU
}

// TrapV1PDU carries the distinct v1 trap fields (RFC 1157 §4.1.6).
type TrapV1PDU struct {
	Enterprise   Oid
	AgentAddress [4]byte
	GenericTrap  int32
	SpecificTrap int32
	Uptime       uint32
	Varbinds     VarbindList
}

// TrapV2Varbinds builds the varbind list for a v2c/v3 trap or inform:
// sysUpTime.0 and snmpTrapOID.0 first, as RFC 3416 §4.2.6 requires, then
// any caller-supplied payload varbinds.
func TrapV2Varbinds(uptime uint32, trapOID Oid, rest ...Varbind) VarbindList {
	vbl := make(VarbindList, 0, 2+len(rest))
	vbl = append(vbl,
		Varbind{Oid: OidSysUpTime, Value: TimeTicks(uptime)},
		Varbind{Oid: OidSnmpTrapOID, Value: ObjectIdentifier(trapOID)},
	)
	return append(vbl, rest...)
}

// EncodePDU emits the full tagged PDU (tag, length, body).
func EncodePDU(p PDU) ([]byte, error) {
	if p.Type == TrapV1 {
		return encodeTrapV1(p)
	}

	var body []byte
	body = append(body, encodeTLV(tagInteger, marshalInteger(int64(p.RequestID)))...)

	if p.Type == GetBulkRequest {
		body = append(body, encodeTLV(tagInteger, marshalInteger(int64(p.NonRepeaters)))...)
		body = append(body, encodeTLV(tagInteger, marshalInteger(int64(p.MaxRepetitions)))...)
	} else {
		body = append(body, encodeTLV(tagInteger, marshalInteger(int64(p.ErrorStatus)))...)
		body = append(body, encodeTLV(tagInteger, marshalInteger(int64(p.ErrorIndex)))...)
	}

	vbl, err := encodeVarbindList(p.Varbinds)
	if err != nil {
		return nil, err
	}
	body = append(body, vbl...)

	return encodeTLV(byte(p.Type), body), nil
}

func encodeTrapV1(p PDU) ([]byte, error) {
	t := p.TrapV1Data
	if t == nil {
		return nil, &ParseError{Op: "encodeTrapV1", Err: fmt.Errorf("TrapV1Data is nil")}
	}
	var body []byte
	enc, err := EncodeSmiValue(ObjectIdentifier(t.Enterprise))
	if err != nil {
		return nil, err
	}
	body = append(body, enc...)

	ipVal, err := IPAddress(t.AgentAddress[:])
	if err != nil {
		return nil, err
	}
	enc, err = EncodeSmiValue(ipVal)
	if err != nil {
		return nil, err
	}
	body = append(body, enc...)

	body = append(body, encodeTLV(tagInteger, marshalInteger(int64(t.GenericTrap)))...)
	body = append(body, encodeTLV(tagInteger, marshalInteger(int64(t.SpecificTrap)))...)
	body = append(body, encodeTLV(tagTimeTicks, marshalUint32(t.Uptime))...)

	vbl, err := encodeVarbindList(t.Varbinds)
	if err != nil {
		return nil, err
	}
	body = append(body, vbl...)

	return encodeTLV(byte(TrapV1), body), nil
}

// DecodePDU reads one PDU starting at the cursor, dispatching on its tag.
func DecodePDU(c *cursor) (PDU, error) {
	tag, body, err := c.readTLV()
	if err != nil {
		return PDU{}, err
	}
	pduType := PDUType(tag)
	switch pduType {
	case GetRequest, GetNextRequest, GetResponse, SetRequest,
		GetBulkRequest, InformRequest, TrapV2, Report:
		return decodeStandardPDU(pduType, body)
	case TrapV1:
		return decodeTrapV1(body)
	default:
		return PDU{}, &ParseError{Op: "DecodePDU", Err: fmt.Errorf("%w: %s", errUnsupportedPdu, tagName(tag))}
	}
}

func decodeStandardPDU(pduType PDUType, body []byte) (PDU, error) {
	inner := newCursor(body)

	reqIDVal, err := DecodeSmiValue(inner)
	if err != nil {
		return PDU{}, err
	}
	if reqIDVal.Kind != KindInteger {
		return PDU{}, &ParseError{Op: "decodeStandardPDU", Err: errUnexpectedTag}
	}

	field2Val, err := DecodeSmiValue(inner)
	if err != nil {
		return PDU{}, err
	}
	field3Val, err := DecodeSmiValue(inner)
	if err != nil {
		return PDU{}, err
	}
	if field2Val.Kind != KindInteger || field3Val.Kind != KindInteger {
		return PDU{}, &ParseError{Op: "decodeStandardPDU", Err: errUnexpectedTag}
	}

	vbl, err := decodeVarbindList(inner)
	if err != nil {
		return PDU{}, err
	}

	p := PDU{
		Type:      pduType,
		RequestID: int32(reqIDVal.Int),
		Varbinds:  vbl,
	}
	if pduType == GetBulkRequest {
		p.NonRepeaters = int32(field2Val.Int)
		p.MaxRepetitions = int32(field3Val.Int)
	} else {
		p.ErrorStatus = ErrorStatus(field2Val.Int)
		p.ErrorIndex = int32(field3Val.Int)
	}
	return p, nil
}

func decodeTrapV1(body []byte) (PDU, error) {
	inner := newCursor(body)

	entVal, err := DecodeSmiValue(inner)
	if err != nil {
		return PDU{}, err
	}
	if entVal.Kind != KindObjectIdentifier {
		return PDU{}, &ParseError{Op: "decodeTrapV1", Err: errUnexpectedTag}
	}

	agentVal, err := DecodeSmiValue(inner)
	if err != nil {
		return PDU{}, err
	}
	if agentVal.Kind != KindIPAddress || len(agentVal.Bytes) != 4 {
		return PDU{}, &ParseError{Op: "decodeTrapV1", Err: errUnexpectedTag}
	}
	var agentAddr [4]byte
	copy(agentAddr[:], agentVal.Bytes)

	genVal, err := DecodeSmiValue(inner)
	if err != nil {
		return PDU{}, err
	}
	specVal, err := DecodeSmiValue(inner)
	if err != nil {
		return PDU{}, err
	}
	upVal, err := DecodeSmiValue(inner)
	if err != nil {
		return PDU{}, err
	}
	if upVal.Kind != KindTimeTicks {
		return PDU{}, &ParseError{Op: "decodeTrapV1", Err: errUnexpectedTag}
	}

	vbl, err := decodeVarbindList(inner)
	if err != nil {
		return PDU{}, err
	}

	return PDU{
		Type: TrapV1,
		TrapV1Data: &TrapV1PDU{
			Enterprise:   entVal.Oid,
			AgentAddress: agentAddr,
			GenericTrap:  int32(genVal.Int),
			SpecificTrap: int32(specVal.Int),
			Uptime:       upVal.Uint32,
			Varbinds:     vbl,
		},
	}, nil
}
