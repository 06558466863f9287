// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package snmpcore

import "fmt"

// ParseError reports malformed bytes at the BER, PDU, or message level.
type ParseError struct {
	Op  string
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("snmpcore: parse error in %s: %v", e.Op, e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// AuthError reports a USM security-layer failure: unknown user, bad
// digest, decryption failure, or a timeliness-window violation.
type AuthError struct {
	Reason string
	OID    Oid // USM stats counter OID to report, if any
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("snmpcore: auth error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("snmpcore: auth error: %s", e.Reason)
}
func (e *AuthError) Unwrap() error { return e.Err }

// ProtocolError reports an unexpected PDU type or unsupported version.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string { return fmt.Sprintf("snmpcore: protocol error: %s", e.Reason) }

// OperationError reports a per-varbind SNMP error status/index pair
// returned (or received) in a GetResponse.
type OperationError struct {
	Status ErrorStatus
	Index  int
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("snmpcore: operation error: %s at index %d", e.Status, e.Index)
}

// TransportError reports a timeout, closed socket, or unreachable peer.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("snmpcore: transport error during %s: %v", e.Op, e.Err)
}
func (e *TransportError) Unwrap() error { return e.Err }

// Sentinel decode failure modes, returned (wrapped in *ParseError) by the
// BER, SMI, PDU and message decoders.
var (
	errUnexpectedTag  = fmt.Errorf("unexpected tag")
	errTruncatedField = fmt.Errorf("truncated field")
	errBadLength      = fmt.Errorf("bad length")
	errBadInteger     = fmt.Errorf("bad integer")
	errBadOid         = fmt.Errorf("bad oid")
	errUnsupportedTag = fmt.Errorf("unsupported tag")
	errUnsupportedPdu = fmt.Errorf("unsupported pdu")
)
