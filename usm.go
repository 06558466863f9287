// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package snmpcore

import (
	"bytes"
	"crypto"
	"crypto/hmac"
	_ "crypto/md5"    // registers MD5
	_ "crypto/sha1"   // registers SHA1
	_ "crypto/sha256" // registers SHA224, SHA256
	_ "crypto/sha512" // registers SHA384, SHA512
	"crypto/subtle"
	"fmt"
	"hash"
	"sync"
)

// AuthProtocol identifies the USM authentication algorithm.
type AuthProtocol uint8

const (
	AuthNone AuthProtocol = iota + 1
	AuthMD5
	AuthSHA1
	AuthSHA224
	AuthSHA256
	AuthSHA384
	AuthSHA512
)

func (p AuthProtocol) String() string {
	switch p {
	case AuthNone:
		return "NoAuth"
	case AuthMD5:
		return "MD5"
	case AuthSHA1:
		return "SHA1"
	case AuthSHA224:
		return "SHA224"
	case AuthSHA256:
		return "SHA256"
	case AuthSHA384:
		return "SHA384"
	case AuthSHA512:
		return "SHA512"
	default:
		return fmt.Sprintf("AuthProtocol(%d)", uint8(p))
	}
}

// HashType maps the protocol to its crypto.Hash.
func (p AuthProtocol) HashType() crypto.Hash {
	switch p {
	case AuthSHA1:
		return crypto.SHA1
	case AuthSHA224:
		return crypto.SHA224
	case AuthSHA256:
		return crypto.SHA256
	case AuthSHA384:
		return crypto.SHA384
	case AuthSHA512:
		return crypto.SHA512
	default:
		return crypto.MD5
	}
}

// DigestLength is the wire length of the truncated authentication digest
// for this protocol: 12 octets for the RFC 3414 (MD5/SHA1) algorithms, and
// the RFC 7860 §4.2.2 lengths for the SHA-2 family (16, 24, 32 and 48
// octets for SHA-224, SHA-256, SHA-384 and SHA-512).
func (p AuthProtocol) DigestLength() int {
	switch p {
	case AuthMD5, AuthSHA1:
		return 12
	case AuthSHA224:
		return 16
	case AuthSHA256:
		return 24
	case AuthSHA384:
		return 32
	case AuthSHA512:
		return 48
	default:
		return 0
	}
}

// isRFC7860 reports whether this protocol authenticates with a plain HMAC
// (RFC 7860) rather than the original RFC 3414 double-hash construction.
func (p AuthProtocol) isRFC7860() bool {
	switch p {
	case AuthSHA224, AuthSHA256, AuthSHA384, AuthSHA512:
		return true
	default:
		return false
	}
}

var (
	passwordKeyCache      = make(map[string][]byte)
	passwordKeyCacheMutex sync.RWMutex
	passwordCacheEnabled  = true
)

// PasswordCaching enables or disables memoization of the expensive
// password-to-key stretch. Disabling clears the existing cache.
func PasswordCaching(enable bool) {
	passwordKeyCacheMutex.Lock()
	defer passwordKeyCacheMutex.Unlock()
	passwordCacheEnabled = enable
	if !enable {
		passwordKeyCache = make(map[string][]byte)
	}
}

// stretchPassword implements the RFC 3414 §A.2/A.3 password-to-key
// algorithm: the passphrase is repeated to fill exactly 1,048,576 bytes,
// which are fed through h in 64-byte chunks.
func stretchPassword(h hash.Hash, password string) ([]byte, error) {
	if len(password) == 0 {
		return nil, &AuthError{Reason: "authentication passphrase is empty"}
	}
	var pi int
	chunk := make([]byte, 64)
	for i := 0; i < 1048576; i += 64 {
		for e := range chunk {
			chunk[e] = password[pi%len(password)]
			pi++
		}
		if _, err := h.Write(chunk); err != nil {
			return nil, err
		}
	}
	return h.Sum(nil), nil
}

func passwordCacheKey(protocol AuthProtocol, password string) string {
	var sb bytes.Buffer
	sb.WriteByte(byte(protocol))
	sb.WriteString(password)
	return sb.String()
}

func cachedStretchPassword(protocol AuthProtocol, password string) ([]byte, error) {
	key := passwordCacheKey(protocol, password)

	passwordKeyCacheMutex.RLock()
	enabled := passwordCacheEnabled
	if enabled {
		if v, ok := passwordKeyCache[key]; ok {
			passwordKeyCacheMutex.RUnlock()
			return v, nil
		}
	}
	passwordKeyCacheMutex.RUnlock()

	hashed, err := stretchPassword(protocol.HashType().New(), password)
	if err != nil {
		return nil, err
	}

	if enabled {
		passwordKeyCacheMutex.Lock()
		passwordKeyCache[key] = hashed
		passwordKeyCacheMutex.Unlock()
	}
	return hashed, nil
}

// genLocalKey implements RFC 3414 §2.6's key localization: Ku is the
// password-stretched key, and the localized key is
// H(Ku || snmpEngineID || Ku).
func genLocalKey(protocol AuthProtocol, passphrase string, engineID string) ([]byte, error) {
	stretched, err := cachedStretchPassword(protocol, passphrase)
	if err != nil {
		return nil, err
	}

	h := protocol.HashType().New()
	h.Write(stretched)
	h.Write([]byte(engineID))
	h.Write(stretched)
	return h.Sum(nil), nil
}

// digestRFC3414 computes the MD5/SHA1 HMAC-like digest per RFC 3414
// §6.3.2/§7.3.2: HMAC with 64-byte ipad/opad blocks built by hand, because
// that RFC predates crypto/hmac's generalized construction being wired to
// these exact key sizes in this codebase's ancestry.
func digestRFC3414(protocol AuthProtocol, packet []byte, key []byte) []byte {
	var extKey [64]byte
	copy(extKey[:], key)

	var ipad, opad [64]byte
	for i := range extKey {
		ipad[i] = extKey[i] ^ 0x36
		opad[i] = extKey[i] ^ 0x5c
	}

	inner := protocol.HashType().New()
	inner.Write(ipad[:])
	inner.Write(packet)
	d1 := inner.Sum(nil)

	outer := protocol.HashType().New()
	outer.Write(opad[:])
	outer.Write(d1)
	return outer.Sum(nil)
}

// digestRFC7860 computes the HMAC-SHA2 digest per RFC 7860 §4.2.2.
func digestRFC7860(protocol AuthProtocol, packet []byte, key []byte) []byte {
	mac := hmac.New(protocol.HashType().New, key)
	mac.Write(packet)
	return mac.Sum(nil)
}

func calcDigest(protocol AuthProtocol, packet []byte, key []byte) []byte {
	var full []byte
	if protocol.isRFC7860() {
		full = digestRFC7860(protocol, packet, key)
	} else {
		full = digestRFC3414(protocol, packet, key)
	}
	return full[:protocol.DigestLength()]
}

// locateAuthParamField finds the byte offset, within packet, of the value
// octets of the authenticationParameters OCTET STRING carrying
// authParams — i.e. just past its own tag/length header. The digest is
// patched into the already BER-encoded buffer rather than re-encoding
// after computing it.
func locateAuthParamField(packet []byte, authParams []byte) (int, error) {
	needle := append([]byte{tagOctetString, byte(len(authParams))}, authParams...)
	idx := bytes.Index(packet, needle)
	if idx < 0 {
		return 0, &AuthError{Reason: "cannot locate authenticationParameters field to authenticate"}
	}
	return idx + 2, nil
}

// Authenticate computes the authentication digest over the fully encoded
// v3 message (with the authenticationParameters value octets still
// zero-filled placeholders, as EncodeMessageV3 leaves them) and patches
// the real digest into place at authParamStart.
func Authenticate(packet []byte, authParamStart int, protocol AuthProtocol, key []byte) error {
	digestLen := protocol.DigestLength()
	if authParamStart+digestLen > len(packet) {
		return &AuthError{Reason: "authenticationParameters field does not fit in packet"}
	}
	digest := calcDigest(protocol, packet, key)
	copy(packet[authParamStart:authParamStart+digestLen], digest)
	return nil
}

// VerifyDigest authenticates an incoming message: it locates the received
// authenticationParameters field, zeroes it in a working copy, recomputes
// the digest over that copy, and compares in constant time against the
// digest that was actually received.
func VerifyDigest(packet []byte, protocol AuthProtocol, key []byte, receivedDigest []byte) (bool, error) {
	offset, err := locateAuthParamField(packet, receivedDigest)
	if err != nil {
		return false, err
	}
	digestLen := protocol.DigestLength()
	if len(receivedDigest) != digestLen {
		return false, nil
	}

	working := make([]byte, len(packet))
	copy(working, packet)
	for i := 0; i < digestLen; i++ {
		working[offset+i] = 0
	}

	computed := calcDigest(protocol, working, key)
	return subtle.ConstantTimeCompare(computed, receivedDigest) == 1, nil
}

// zeroAuthParamPlaceholder returns a digestLen-byte slice of zeros, used
// by the encoder to reserve space for the digest before it can be
// computed (the digest covers the whole message, including itself as
// zeros, per RFC 3414 §6.3.1 step 4 / RFC 7860 §4.2.2).
func zeroAuthParamPlaceholder(protocol AuthProtocol) []byte {
	if protocol <= AuthNone {
		return nil
	}
	return make([]byte, protocol.DigestLength())
}

// md5HMAC and shaHMAC are direct entry points for the two original
// RFC 3414 protocols; both route through the shared stretch+localize
// pipeline above.
func md5HMAC(password string, engineID string) ([]byte, error) {
	return genLocalKey(AuthMD5, password, engineID)
}

func shaHMAC(password string, engineID string) ([]byte, error) {
	return genLocalKey(AuthSHA1, password, engineID)
}
