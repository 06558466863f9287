// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package snmpcore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"encoding/binary"
	"fmt"
)

// PrivProtocol identifies the USM privacy (encryption) algorithm.
// PrivAES192/PrivAES256 use the Blumenthal draft key extension;
// PrivAES192Reeder/PrivAES256Reeder use the Reeder extension that most
// real deployments (Cisco and others) actually implement. Both are
// carried; pick the variant matching the peer.
type PrivProtocol uint8

const (
	PrivNone PrivProtocol = iota + 1
	PrivDES
	PrivAES128
	PrivAES192
	PrivAES256
	PrivAES192Reeder
	PrivAES256Reeder
)

func (p PrivProtocol) String() string {
	switch p {
	case PrivNone:
		return "NoPriv"
	case PrivDES:
		return "DES"
	case PrivAES128:
		return "AES128"
	case PrivAES192:
		return "AES192-Blumenthal"
	case PrivAES256:
		return "AES256-Blumenthal"
	case PrivAES192Reeder:
		return "AES192-Reeder"
	case PrivAES256Reeder:
		return "AES256-Reeder"
	default:
		return fmt.Sprintf("PrivProtocol(%d)", uint8(p))
	}
}

func (p PrivProtocol) keyLength() int {
	switch p {
	case PrivAES192, PrivAES192Reeder:
		return 24
	case PrivAES256, PrivAES256Reeder:
		return 32
	default:
		return 16 // AES128, DES
	}
}

func (p PrivProtocol) isAES() bool {
	switch p {
	case PrivAES128, PrivAES192, PrivAES256, PrivAES192Reeder, PrivAES256Reeder:
		return true
	default:
		return false
	}
}

// extendKeyReeder implements the Reeder AES key-extension draft
// (draft-reeder-snmpv3-usm-3desede §4.2): the localized key is chained
// through the auth key-localization function a second time, and the
// result concatenated to the original to reach the AES192/256 length.
func extendKeyReeder(protocol AuthProtocol, passphrase string, engineID string) ([]byte, error) {
	key, err := genLocalKey(protocol, passphrase, engineID)
	if err != nil {
		return nil, err
	}
	more, err := genLocalKey(protocol, string(key), engineID)
	if err != nil {
		return nil, err
	}
	return append(key, more...), nil
}

// extendKeyBlumenthal implements the Blumenthal AES key-extension draft
// (draft-blumenthal-aes-usm-04 §3.1.2.1): the extension bytes are a plain
// hash of the localized key, not a second localization pass.
func extendKeyBlumenthal(protocol AuthProtocol, passphrase string, engineID string) ([]byte, error) {
	key, err := genLocalKey(protocol, passphrase, engineID)
	if err != nil {
		return nil, err
	}
	h := protocol.HashType().New()
	h.Write(key)
	return append(key, h.Sum(nil)...), nil
}

// genLocalPrivKey derives the privacy key, extending it to the protocol's
// required length for AES192/256 using whichever draft extension the
// protocol variant selects.
func genLocalPrivKey(privProtocol PrivProtocol, authProtocol AuthProtocol, passphrase string, engineID string) ([]byte, error) {
	var key []byte
	var err error

	switch privProtocol {
	case PrivAES192Reeder, PrivAES256Reeder:
		key, err = extendKeyReeder(authProtocol, passphrase, engineID)
	case PrivAES192, PrivAES256:
		key, err = extendKeyBlumenthal(authProtocol, passphrase, engineID)
	default:
		key, err = genLocalKey(authProtocol, passphrase, engineID)
	}
	if err != nil {
		return nil, err
	}

	keyLen := privProtocol.keyLength()
	if len(key) < keyLen {
		return nil, &AuthError{Reason: fmt.Sprintf("localized privacy key too short for %s: have %d bytes, need %d", privProtocol, len(key), keyLen)}
	}
	return key[:keyLen], nil
}

// EncryptScopedPDU encrypts plaintext (a marshalled ScopedPDU) under
// privKey, returning the ciphertext to be carried as the msgData OCTET
// STRING. salt is the caller-maintained, per-message privacy parameter
// (the incrementing DES/AES salt counter from engine.go).
func EncryptScopedPDU(privProtocol PrivProtocol, privKey []byte, engineBoots, engineTime uint32, salt []byte, plaintext []byte) ([]byte, error) {
	if privProtocol.isAES() {
		var iv [16]byte
		binary.BigEndian.PutUint32(iv[0:4], engineBoots)
		binary.BigEndian.PutUint32(iv[4:8], engineTime)
		copy(iv[8:], salt)

		block, err := aes.NewCipher(privKey)
		if err != nil {
			return nil, &AuthError{Reason: "aes cipher init", Err: err}
		}
		stream := cipher.NewCFBEncrypter(block, iv[:])
		ciphertext := make([]byte, len(plaintext))
		stream.XORKeyStream(ciphertext, plaintext)
		return ciphertext, nil
	}

	// DES-CBC: IV is privKey's last 8 bytes XOR'd with the salt.
	if len(privKey) < 16 {
		return nil, &AuthError{Reason: "des privacy key too short"}
	}
	preIV := privKey[8:16]
	var iv [8]byte
	for i := range iv {
		iv[i] = preIV[i] ^ salt[i]
	}
	block, err := des.NewCipher(privKey[:8])
	if err != nil {
		return nil, &AuthError{Reason: "des cipher init", Err: err}
	}
	mode := cipher.NewCBCEncrypter(block, iv[:])

	padded := plaintext
	if rem := len(padded) % des.BlockSize; rem != 0 {
		padded = append(append([]byte(nil), padded...), make([]byte, des.BlockSize-rem)...)
	}
	ciphertext := make([]byte, len(padded))
	mode.CryptBlocks(ciphertext, padded)
	return ciphertext, nil
}

// DecryptScopedPDU reverses EncryptScopedPDU. The returned plaintext may
// carry DES zero-padding beyond the inner ScopedPDU's own BER length,
// which DecodeScopedPDU tolerates by trusting its own length prefix.
func DecryptScopedPDU(privProtocol PrivProtocol, privKey []byte, engineBoots, engineTime uint32, salt []byte, ciphertext []byte) ([]byte, error) {
	if privProtocol.isAES() {
		var iv [16]byte
		binary.BigEndian.PutUint32(iv[0:4], engineBoots)
		binary.BigEndian.PutUint32(iv[4:8], engineTime)
		copy(iv[8:], salt)

		block, err := aes.NewCipher(privKey)
		if err != nil {
			return nil, &AuthError{Reason: "aes cipher init", Err: err}
		}
		stream := cipher.NewCFBDecrypter(block, iv[:])
		plaintext := make([]byte, len(ciphertext))
		stream.XORKeyStream(plaintext, ciphertext)
		return plaintext, nil
	}

	if len(privKey) < 16 {
		return nil, &AuthError{Reason: "des privacy key too short"}
	}
	if len(ciphertext)%des.BlockSize != 0 {
		return nil, &AuthError{Reason: "decrypting scoped pdu: not a multiple of the des block size"}
	}
	preIV := privKey[8:16]
	var iv [8]byte
	for i := range iv {
		iv[i] = preIV[i] ^ salt[i]
	}
	block, err := des.NewCipher(privKey[:8])
	if err != nil {
		return nil, &AuthError{Reason: "des cipher init", Err: err}
	}
	mode := cipher.NewCBCDecrypter(block, iv[:])
	plaintext := make([]byte, len(ciphertext))
	mode.CryptBlocks(plaintext, ciphertext)
	return plaintext, nil
}
