// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package snmpcore

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SHA-1 localization of a known password/engineID pair yields a fixed
// 20-byte key, per RFC 3414 §2.6.
func TestKeyLocalizationDeterminism(t *testing.T) {
	engineID, err := hex.DecodeString("8000137001020304")
	require.NoError(t, err)

	key, err := genLocalKey(AuthSHA1, "password12345678", string(engineID))
	require.NoError(t, err)
	assert.Len(t, key, 20)

	again, err := genLocalKey(AuthSHA1, "password12345678", string(engineID))
	require.NoError(t, err)
	assert.Equal(t, key, again, "identical inputs must yield identical localized key bytes")
}

func TestKeyLocalizationLengthsPerProtocol(t *testing.T) {
	cases := []struct {
		proto AuthProtocol
		want  int
	}{
		{AuthMD5, 16},
		{AuthSHA1, 20},
		{AuthSHA224, 28},
		{AuthSHA256, 32},
		{AuthSHA384, 48},
		{AuthSHA512, 64},
	}
	for _, c := range cases {
		key, err := genLocalKey(c.proto, "testpassword1234", "engine-under-test")
		require.NoError(t, err)
		assert.Lenf(t, key, c.want, "protocol %v", c.proto)
	}
}

func TestDigestLengthsPerRFC7860(t *testing.T) {
	cases := map[AuthProtocol]int{
		AuthMD5:    12,
		AuthSHA1:   12,
		AuthSHA224: 16,
		AuthSHA256: 24,
		AuthSHA384: 32,
		AuthSHA512: 48,
	}
	for proto, want := range cases {
		assert.Equal(t, want, proto.DigestLength())
	}
}

func TestAuthenticateAndVerifyDigestRoundTrip(t *testing.T) {
	for _, proto := range []AuthProtocol{AuthMD5, AuthSHA1, AuthSHA256, AuthSHA384, AuthSHA512} {
		t.Run(proto.String(), func(t *testing.T) {
			key, err := genLocalKey(proto, "averylongpassword", "engine-xyz")
			require.NoError(t, err)

			hdr := V3Header{MsgID: 1, MaxSize: maxMessageSize, Flags: FlagAuth, SecurityModel: UserSecurityModel}
			usm := UsmSecurityParameters{AuthoritativeEngineID: "engine-xyz", UserName: "alice"}
			scoped := ScopedPDU{PDU: PDU{Type: GetRequest, RequestID: 5, Varbinds: VarbindList{{Oid: Oid{1, 3, 6, 1}, Value: Null()}}}}
			plaintext, err := EncodeScopedPDU(scoped)
			require.NoError(t, err)

			packet, authStart, err := EncodeMessageV3(hdr, usm, proto, plaintext, nil)
			require.NoError(t, err)

			require.NoError(t, Authenticate(packet, authStart, proto, key))

			msg, err := DecodeMessage(packet)
			require.NoError(t, err)

			ok, err := VerifyDigest(packet, proto, key, msg.V3.SecurityParameters.AuthenticationParameters)
			require.NoError(t, err)
			assert.True(t, ok)

			// Tampering with the packet must break verification.
			tampered := append([]byte(nil), packet...)
			tampered[len(tampered)-1] ^= 0xFF
			ok, err = VerifyDigest(tampered, proto, key, msg.V3.SecurityParameters.AuthenticationParameters)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

// A request whose engine time differs from the authoritative time by 151
// seconds must be rejected as not-in-time-window; 150 seconds must still
// be accepted (RFC 3414 §3.2).
func TestTimelinessWindow(t *testing.T) {
	e := NewEngineState("engine-1")
	localTime := e.Time()

	assert.True(t, e.WithinTimeWindow(e.Boots(), localTime+150))
	assert.False(t, e.WithinTimeWindow(e.Boots(), localTime+151))
	assert.False(t, e.WithinTimeWindow(e.Boots(), localTime-151))
}

func TestTimelinessRejectsStaleBoots(t *testing.T) {
	e := NewEngineState("engine-1")
	e.IncrementBoots()
	assert.False(t, e.WithinTimeWindow(e.Boots()-1, e.Time()))
}

// TestTimelinessRejectsNewerBoots confirms strict boots equality: a
// claimed engine boots greater than this engine's own authoritative value
// is forged or stale, never accepted as "the peer rebooted more
// recently".
func TestTimelinessRejectsNewerBoots(t *testing.T) {
	e := NewEngineState("engine-1")
	assert.False(t, e.WithinTimeWindow(e.Boots()+1, e.Time()))
}

func TestPasswordCachingRoundTrip(t *testing.T) {
	PasswordCaching(true)
	defer PasswordCaching(true)

	k1, err := cachedStretchPassword(AuthSHA1, "cache-me-please1")
	require.NoError(t, err)
	k2, err := cachedStretchPassword(AuthSHA1, "cache-me-please1")
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
}

func TestLegacyLocalKeyEntryPoints(t *testing.T) {
	m, err := md5HMAC("password12345678", "engine-legacy")
	require.NoError(t, err)
	assert.Len(t, m, 16)

	s, err := shaHMAC("password12345678", "engine-legacy")
	require.NoError(t, err)
	assert.Len(t, s, 20)
}

func TestStretchPasswordRejectsEmpty(t *testing.T) {
	_, err := genLocalKey(AuthSHA1, "", "engine")
	assert.Error(t, err)
}
