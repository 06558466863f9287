// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package snmpcore

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPDURoundTripGetRequest(t *testing.T) {
	p := PDU{
		Type:      GetRequest,
		RequestID: 12345,
		Varbinds: VarbindList{
			{Oid: Oid{1, 3, 6, 1, 2, 1, 1, 1, 0}, Value: Null()},
		},
	}
	enc, err := EncodePDU(p)
	require.NoError(t, err)

	c := newCursor(enc)
	got, err := DecodePDU(c)
	require.NoError(t, err)
	if diff := cmp.Diff(p, got); diff != "" {
		t.Errorf("pdu round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestPDURoundTripGetBulkRequest(t *testing.T) {
	p := PDU{
		Type:           GetBulkRequest,
		RequestID:      7,
		NonRepeaters:   1,
		MaxRepetitions: 10,
		Varbinds: VarbindList{
			{Oid: Oid{1, 3, 6, 1, 2, 1, 2, 2}, Value: Null()},
		},
	}
	enc, err := EncodePDU(p)
	require.NoError(t, err)

	c := newCursor(enc)
	got, err := DecodePDU(c)
	require.NoError(t, err)
	assert.Equal(t, p.NonRepeaters, got.NonRepeaters)
	assert.Equal(t, p.MaxRepetitions, got.MaxRepetitions)
}

func TestPDURoundTripTrapV1(t *testing.T) {
	p := PDU{
		Type: TrapV1,
		TrapV1Data: &TrapV1PDU{
			Enterprise:   Oid{1, 3, 6, 1, 4, 1, 8072},
			AgentAddress: [4]byte{192, 0, 2, 1},
			GenericTrap:  6,
			SpecificTrap: 1,
			Uptime:       99,
			Varbinds: VarbindList{
				{Oid: OidSysUpTime, Value: TimeTicks(99)},
			},
		},
	}
	enc, err := EncodePDU(p)
	require.NoError(t, err)

	c := newCursor(enc)
	got, err := DecodePDU(c)
	require.NoError(t, err)
	require.NotNil(t, got.TrapV1Data)
	assert.Equal(t, p.TrapV1Data.Enterprise, got.TrapV1Data.Enterprise)
	assert.Equal(t, p.TrapV1Data.AgentAddress, got.TrapV1Data.AgentAddress)
	assert.Equal(t, p.TrapV1Data.GenericTrap, got.TrapV1Data.GenericTrap)
	assert.Equal(t, p.TrapV1Data.Uptime, got.TrapV1Data.Uptime)
}

func TestTrapV2VarbindsMandatoryPrefix(t *testing.T) {
	trapOID := Oid{1, 3, 6, 1, 6, 3, 1, 1, 5, 4}
	vbl := TrapV2Varbinds(4200, trapOID, Varbind{Oid: Oid{1, 3, 6, 1, 2, 1, 2, 2, 1, 1, 3}, Value: Integer(3)})

	require.Len(t, vbl, 3)
	assert.True(t, vbl[0].Oid.Equal(OidSysUpTime))
	assert.Equal(t, TimeTicks(4200), vbl[0].Value)
	assert.True(t, vbl[1].Oid.Equal(OidSnmpTrapOID))
	assert.True(t, vbl[1].Value.Oid.Equal(trapOID))

	p := PDU{Type: TrapV2, RequestID: 11, Varbinds: vbl}
	enc, err := EncodePDU(p)
	require.NoError(t, err)

	c := newCursor(enc)
	got, err := DecodePDU(c)
	require.NoError(t, err)
	if diff := cmp.Diff(p, got); diff != "" {
		t.Errorf("trap pdu round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodePDURejectsUnknownTag(t *testing.T) {
	c := newCursor([]byte{0x9F, 0x00})
	_, err := DecodePDU(c)
	assert.Error(t, err)
}

func TestMessageRoundTripV2c(t *testing.T) {
	pdu := PDU{
		Type:      GetResponse,
		RequestID: 1,
		Varbinds: VarbindList{
			{Oid: Oid{1, 3, 6, 1, 2, 1, 1, 1, 0}, Value: OctetStringFromString("Test System Description")},
		},
	}
	enc, err := EncodeMessage(Version2c, "public", pdu)
	require.NoError(t, err)

	msg, err := DecodeMessage(enc)
	require.NoError(t, err)
	assert.Equal(t, Version2c, msg.Version)
	assert.Equal(t, "public", msg.Community)
	assert.Equal(t, pdu.RequestID, msg.PDU.RequestID)
	assert.Equal(t, pdu.Varbinds[0].Value, msg.PDU.Varbinds[0].Value)
}

func TestMessageRoundTripV1(t *testing.T) {
	pdu := PDU{Type: GetNextRequest, RequestID: 2, Varbinds: VarbindList{{Oid: Oid{1, 3, 6, 1}, Value: Null()}}}
	enc, err := EncodeMessage(Version1, "private", pdu)
	require.NoError(t, err)

	msg, err := DecodeMessage(enc)
	require.NoError(t, err)
	assert.Equal(t, Version1, msg.Version)
	assert.Equal(t, "private", msg.Community)
}

func TestScopedPDURoundTrip(t *testing.T) {
	scoped := ScopedPDU{
		ContextEngineID: "\x80\x00\x13\x70\x01\x02\x03\x04",
		ContextName:     "",
		PDU: PDU{
			Type:      GetRequest,
			RequestID: 99,
			Varbinds:  VarbindList{{Oid: Oid{1, 3, 6, 1, 2, 1, 1, 1, 0}, Value: Null()}},
		},
	}
	enc, err := EncodeScopedPDU(scoped)
	require.NoError(t, err)

	got, err := DecodeScopedPDUFromBytes(enc)
	require.NoError(t, err)
	assert.Equal(t, scoped.ContextEngineID, got.ContextEngineID)
	assert.Equal(t, scoped.PDU.RequestID, got.PDU.RequestID)
}

func TestEncodeMessageV3PlaintextRoundTrip(t *testing.T) {
	hdr := V3Header{MsgID: 42, MaxSize: maxMessageSize, Flags: FlagReportable, SecurityModel: UserSecurityModel}
	usm := UsmSecurityParameters{AuthoritativeEngineID: "engine1", UserName: "alice"}
	scoped := ScopedPDU{PDU: PDU{Type: GetRequest, RequestID: 1, Varbinds: VarbindList{{Oid: Oid{1, 3, 6, 1}, Value: Null()}}}}
	plaintext, err := EncodeScopedPDU(scoped)
	require.NoError(t, err)

	packet, _, err := EncodeMessageV3(hdr, usm, AuthNone, plaintext, nil)
	require.NoError(t, err)

	msg, err := DecodeMessage(packet)
	require.NoError(t, err)
	require.NotNil(t, msg.V3)
	assert.Equal(t, hdr.MsgID, msg.V3.Header.MsgID)
	assert.Equal(t, "engine1", msg.V3.SecurityParameters.AuthoritativeEngineID)
	assert.Equal(t, "alice", msg.V3.SecurityParameters.UserName)
	assert.Equal(t, int32(1), msg.PDU.RequestID)
}

func TestEncodeMessageV3EncryptedLeavesScopedPDUForLater(t *testing.T) {
	hdr := V3Header{MsgID: 7, MaxSize: maxMessageSize, Flags: FlagAuth | FlagPriv, SecurityModel: UserSecurityModel}
	usm := UsmSecurityParameters{AuthoritativeEngineID: "engine1", UserName: "bob", PrivacyParameters: []byte{1, 2, 3, 4, 5, 6, 7, 8}}
	ciphertext := []byte{0xAA, 0xBB, 0xCC, 0xDD}

	packet, _, err := EncodeMessageV3(hdr, usm, AuthSHA1, nil, ciphertext)
	require.NoError(t, err)

	msg, err := DecodeMessage(packet)
	require.NoError(t, err)
	assert.Equal(t, ciphertext, msg.V3.EncryptedPDU)
	assert.Equal(t, PDU{}, msg.PDU, "PDU stays zero until the caller decrypts and re-parses it")
}

func TestMsgFlags(t *testing.T) {
	f := FlagAuth | FlagPriv
	assert.True(t, f.HasAuth())
	assert.True(t, f.HasPriv())
	assert.False(t, f.Reportable())

	f |= FlagReportable
	assert.True(t, f.Reportable())
}
