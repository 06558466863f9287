// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package snmpcore

import (
	"fmt"
	"strconv"
	"strings"
)

// Oid is an ordered sequence of unsigned 32-bit sub-identifiers naming an
// MIB node. A well-formed Oid has length >= 2, first sub-identifier in
// {0,1,2}, and, when the first sub-identifier is less than 2, a second
// sub-identifier less than 40.
type Oid []uint32

// Validate checks the structural invariants X.660 imposes on every OID.
func (o Oid) Validate() error {
	if len(o) < 2 {
		return &ParseError{Op: "Oid.Validate", Err: errBadOid}
	}
	if o[0] > 2 {
		return &ParseError{Op: "Oid.Validate", Err: errBadOid}
	}
	if o[0] < 2 && o[1] >= 40 {
		return &ParseError{Op: "Oid.Validate", Err: errBadOid}
	}
	return nil
}

// ParseOid parses a dotted-decimal string ("1.3.6.1.2.1") into an Oid. A
// leading '.' is tolerated and stripped.
func ParseOid(s string) (Oid, error) {
	s = strings.TrimPrefix(s, ".")
	if s == "" {
		return nil, &ParseError{Op: "ParseOid", Err: errBadOid}
	}
	parts := strings.Split(s, ".")
	oid := make(Oid, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, &ParseError{Op: "ParseOid", Err: err}
		}
		oid = append(oid, uint32(v))
	}
	if err := oid.Validate(); err != nil {
		return nil, err
	}
	return oid, nil
}

// String renders the Oid in dotted-decimal form with a leading dot, e.g.
// ".1.3.6.1.2.1.1.1.0".
func (o Oid) String() string {
	var sb strings.Builder
	for _, sub := range o {
		sb.WriteByte('.')
		sb.WriteString(strconv.FormatUint(uint64(sub), 10))
	}
	return sb.String()
}

// Clone returns an independent copy, since Oid values are meant to be
// treated as immutable once constructed.
func (o Oid) Clone() Oid {
	c := make(Oid, len(o))
	copy(c, o)
	return c
}

// Compare implements the MIB tree's total order: componentwise
// comparison of shared sub-identifiers, and on an equal shared prefix the
// shorter Oid precedes the longer one (RFC 3416 §4.1.1).
func (o Oid) Compare(other Oid) int {
	n := len(o)
	if len(other) < n {
		n = len(other)
	}
	for i := 0; i < n; i++ {
		if o[i] != other[i] {
			if o[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(o) < len(other):
		return -1
	case len(o) > len(other):
		return 1
	default:
		return 0
	}
}

// Equal reports whether two Oids have identical sub-identifiers.
func (o Oid) Equal(other Oid) bool { return o.Compare(other) == 0 }

// Less reports o < other under Compare's total order.
func (o Oid) Less(other Oid) bool { return o.Compare(other) < 0 }

// IsPrefixOf reports whether o is a (non-strict) prefix of child — every
// sub-identifier of o matches child's leading sub-identifiers. A prefix is
// always <= its extensions under Compare.
func (o Oid) IsPrefixOf(child Oid) bool {
	if len(o) > len(child) {
		return false
	}
	for i := range o {
		if o[i] != child[i] {
			return false
		}
	}
	return true
}

// NextLex returns the immediate lexicographic successor of o: itself with
// a trailing 0 sub-identifier appended — the successor of any OID with
// finite sub-identifiers is "self concatenated with 0", since no shorter
// OID sharing o's prefix can sort between o and o.0 under Compare. The
// agent's GETNEXT handling does not call it; providers' GetNext find
// successors directly.
func (o Oid) NextLex() Oid {
	out := make(Oid, len(o)+1)
	copy(out, o)
	out[len(o)] = 0
	return out
}

// Parent drops the last sub-identifier, returning (parent, true), or
// (nil, false) if o is already at the minimum valid length.
func (o Oid) Parent() (Oid, bool) {
	if len(o) <= 2 {
		return nil, false
	}
	return o[:len(o)-1].Clone(), true
}

// mustOid parses a dotted OID literal, panicking on malformed input. Used
// only for package-level well-known-OID constants below, never on
// untrusted data.
func mustOid(s string) Oid {
	oid, err := ParseOid(s)
	if err != nil {
		panic(fmt.Sprintf("snmpcore: invalid well-known oid %q: %v", s, err))
	}
	return oid
}

// Well-known USM statistics counter OIDs (RFC 3414 §5), reported in the
// varbind of a Report PDU when a v3 security check fails.
var (
	OidUsmStatsUnsupportedSecLevels = mustOid("1.3.6.1.6.3.15.1.1.1.0")
	OidUsmStatsNotInTimeWindows     = mustOid("1.3.6.1.6.3.15.1.1.2.0")
	OidUsmStatsUnknownUserNames     = mustOid("1.3.6.1.6.3.15.1.1.3.0")
	OidUsmStatsUnknownEngineIDs     = mustOid("1.3.6.1.6.3.15.1.1.4.0")
	OidUsmStatsWrongDigests         = mustOid("1.3.6.1.6.3.15.1.1.5.0")
	OidUsmStatsDecryptionErrors     = mustOid("1.3.6.1.6.3.15.1.1.6.0")

	OidSysUpTime   = mustOid("1.3.6.1.2.1.1.3.0")
	OidSnmpTrapOID = mustOid("1.3.6.1.6.3.1.1.4.1.0")

	// SNMP group counters (RFC 3418) the agent bumps on dropped datagrams.
	OidSnmpInBadCommunityNames = mustOid("1.3.6.1.2.1.11.4.0")
	OidSnmpInASNParseErrs      = mustOid("1.3.6.1.2.1.11.6.0")
)
