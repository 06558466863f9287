// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package snmpcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrivacyRoundTripAES128(t *testing.T) {
	key, err := genLocalPrivKey(PrivAES128, AuthSHA1, "privpassword123", "engine-aes")
	require.NoError(t, err)
	assert.Len(t, key, 16)

	plaintext := []byte("a scoped pdu body of arbitrary length, not block-aligned")
	salt := []byte{0, 0, 0, 1, 0, 0, 0, 2}

	cipher, err := EncryptScopedPDU(PrivAES128, key, 1, 100, salt, plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, cipher)

	got, err := DecryptScopedPDU(PrivAES128, key, 1, 100, salt, cipher)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestPrivacyRoundTripDES(t *testing.T) {
	key, err := genLocalPrivKey(PrivDES, AuthMD5, "despassword1234", "engine-des")
	require.NoError(t, err)
	assert.Len(t, key, 16)

	plaintext := []byte("short")
	salt := []byte{0, 0, 0, 7, 0, 0, 0, 9}

	cipher, err := EncryptScopedPDU(PrivDES, key, 7, 0, salt, plaintext)
	require.NoError(t, err)
	assert.Equal(t, 0, len(cipher)%8, "DES-CBC ciphertext is block-aligned")

	got, err := DecryptScopedPDU(PrivDES, key, 7, 0, salt, cipher)
	require.NoError(t, err)
	// DES zero-pads to the block boundary rather than PKCS#7, so the
	// decrypted plaintext may carry trailing zero bytes beyond the
	// original length; DecodeScopedPDU tolerates this via its own BER
	// length prefix.
	assert.Equal(t, plaintext, got[:len(plaintext)])
}

func TestPrivacyKeyExtensionReederVsBlumenthal(t *testing.T) {
	reeder, err := extendKeyReeder(AuthSHA1, "extendmepassword", "engine-ext")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(reeder), 32)

	blumenthal, err := extendKeyBlumenthal(AuthSHA1, "extendmepassword", "engine-ext")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(blumenthal), 32)

	assert.NotEqual(t, reeder, blumenthal, "the two drafts extend the key differently")
}

func TestGenLocalPrivKeyAES256Variants(t *testing.T) {
	reeder, err := genLocalPrivKey(PrivAES256Reeder, AuthSHA256, "a256passwordvalue", "engine-256")
	require.NoError(t, err)
	assert.Len(t, reeder, 32)

	blumenthal, err := genLocalPrivKey(PrivAES256, AuthSHA256, "a256passwordvalue", "engine-256")
	require.NoError(t, err)
	assert.Len(t, blumenthal, 32)

	assert.NotEqual(t, reeder, blumenthal)
}

func TestEngineSaltsMonotonicallyIncrease(t *testing.T) {
	e := NewEngineState("engine-salt")
	s1 := e.NextAESSalt()
	s2 := e.NextAESSalt()
	assert.NotEqual(t, s1, s2)

	d1 := e.NextDESSalt()
	d2 := e.NextDESSalt()
	assert.NotEqual(t, d1, d2)
}
