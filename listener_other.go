// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

//go:build !linux

package snmpcore

import (
	"context"
	"net"

	"golang.org/x/net/ipv4"
)

// listenReusablePort falls back to a plain listen outside Linux, where
// SO_REUSEPORT has no portable equivalent worth reaching for here.
func listenReusablePort(ctx context.Context, network, address string) (*net.UDPConn, error) {
	lc := net.ListenConfig{}
	conn, err := lc.ListenPacket(ctx, network, address)
	if err != nil {
		return nil, &TransportError{Op: "listen", Err: err}
	}
	return conn.(*net.UDPConn), nil
}

func packetConnWithControlMessages(conn *net.UDPConn) (*ipv4.PacketConn, error) {
	pc := ipv4.NewPacketConn(conn)
	if err := pc.SetControlMessage(ipv4.FlagDst|ipv4.FlagInterface, true); err != nil {
		return nil, &TransportError{Op: "set control message", Err: err}
	}
	return pc, nil
}
