// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package snmpcore

// Counters is the telemetry seam for USM statistics and other wire-level
// counter events (the usmStats* family, plus the RFC 3418 snmp group
// counters bumped on dropped v1/v2c datagrams). Collecting and exposing
// these as actual MIB objects is an external collaborator's
// responsibility; this core only calls Incr at the point each event is
// detected.
type Counters interface {
	Incr(oid Oid)
}

// discardCounters drops every increment; the zero-value default so
// agent.go never needs a nil check.
type discardCounters struct{}

func (discardCounters) Incr(Oid) {}

// DiscardCounters is a Counters that records nothing.
var DiscardCounters Counters = discardCounters{}
