// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package snmpcore

import (
	"encoding/binary"
	"sync/atomic"
	"time"
)

// timeWindow is the RFC 3414 §3.2 step 7 replay window: an incoming
// message is rejected if its claimed engineTime differs from the local
// notion of authoritative engine time by more than this many seconds.
const timeWindow = 150 * time.Second

// EngineState tracks an authoritative SNMP engine's identity, boot
// counter, and uptime-since-boot (the snmpEngineID/snmpEngineBoots/
// snmpEngineTime triple of RFC 3411), and the per-message privacy salt
// counters used when this engine originates authPriv traffic.
type EngineState struct {
	EngineID string

	boots        int32
	startInstant time.Time

	desSalt uint32
	aesSalt uint64
}

// NewEngineState creates engine state with boots=1 and the clock started
// now. A discovered (non-authoritative) engine should instead be
// populated via SetDiscovered once a discovery Report arrives.
func NewEngineState(engineID string) *EngineState {
	return &EngineState{
		EngineID:     engineID,
		boots:        1,
		startInstant: time.Now(),
	}
}

// Boots returns the current snmpEngineBoots value.
func (e *EngineState) Boots() int32 { return atomic.LoadInt32(&e.boots) }

// Time returns the current snmpEngineTime value: whole seconds elapsed
// since startInstant, which itself resets to "now" on every boots
// increment (RFC 3414 §1.2).
func (e *EngineState) Time() int32 {
	return int32(time.Since(e.startInstant).Seconds())
}

// IncrementBoots bumps snmpEngineBoots and resets the uptime clock,
// per RFC 3414 §2.3's requirement that boots increases monotonically
// across restarts and engineTime resets to zero when it does.
func (e *EngineState) IncrementBoots() int32 {
	e.startInstant = time.Now()
	return atomic.AddInt32(&e.boots, 1)
}

// SetDiscovered overwrites this engine's boots/time with values learned
// from a discovery Report, for the non-authoritative (client) side of a
// v3 exchange that has just completed engine discovery.
func (e *EngineState) SetDiscovered(boots int32, engineTime int32) {
	atomic.StoreInt32(&e.boots, boots)
	e.startInstant = time.Now().Add(-time.Duration(engineTime) * time.Second)
}

// WithinTimeWindow reports whether a received (msgBoots, msgTime) pair is
// acceptable per RFC 3414 §3.2 step 7: msgBoots must equal the local,
// authoritative boots value exactly, and msgTime must be within
// timeWindow of the local time in either direction. Called against this
// engine's own authoritative EngineState, e.Boots() is ground truth, so
// any msgBoots that disagrees — higher or lower — is rejected rather than
// treated as "the peer rebooted more recently"; a claimed boots value
// greater than the agent's own is forged or stale, never legitimate.
func (e *EngineState) WithinTimeWindow(msgBoots, msgTime int32) bool {
	if msgBoots != e.Boots() {
		return false
	}
	localTime := e.Time()
	delta := localTime - msgTime
	if delta < 0 {
		delta = -delta
	}
	return time.Duration(delta)*time.Second <= timeWindow
}

// NextDESSalt returns the next DES privacy parameter: engineBoots in the
// high 4 octets, an incrementing per-message counter in the low 4,
// per RFC 3414 §8.1.1.1.
func (e *EngineState) NextDESSalt() []byte {
	counter := atomic.AddUint32(&e.desSalt, 1)
	salt := make([]byte, 8)
	binary.BigEndian.PutUint32(salt[0:4], uint32(e.Boots()))
	binary.BigEndian.PutUint32(salt[4:8], counter)
	return salt
}

// NextAESSalt returns the next 8-octet AES privacy parameter: an
// incrementing 64-bit counter that starts from the value given to
// SeedAESSalt, or from zero if SeedAESSalt is never called (Agent and
// Client do not call it). EngineState itself does not read crypto/rand.
func (e *EngineState) NextAESSalt() []byte {
	counter := atomic.AddUint64(&e.aesSalt, 1)
	salt := make([]byte, 8)
	binary.BigEndian.PutUint64(salt, counter)
	return salt
}

// SeedAESSalt sets the starting point for the AES salt counter; call once
// at startup with a cryptographically random 64-bit value.
func (e *EngineState) SeedAESSalt(seed uint64) {
	atomic.StoreUint64(&e.aesSalt, seed)
}
