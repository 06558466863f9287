// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

//go:build linux

package snmpcore

import (
	"context"
	"net"
	"syscall"

	"golang.org/x/net/ipv4"
	"golang.org/x/sys/unix"
)

// listenReusablePort opens a UDP socket with SO_REUSEPORT set before bind,
// so multiple Agent processes (or multiple listeners within one process)
// can share the same port and let the kernel load-balance datagrams
// across them. Grounded on the SetsockoptInt call style used for
// TCP_NODELAY elsewhere in the retrieval pack, applied here to the
// REUSEPORT socket option via net.ListenConfig's Control hook.
func listenReusablePort(ctx context.Context, network, address string) (*net.UDPConn, error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}
	conn, err := lc.ListenPacket(ctx, network, address)
	if err != nil {
		return nil, &TransportError{Op: "listen", Err: err}
	}
	return conn.(*net.UDPConn), nil
}

// packetConnWithControlMessages wraps conn in an ipv4.PacketConn so the
// agent can read the destination address of each inbound datagram (needed
// to answer correctly when the listener is bound to a wildcard address
// across multiple local interfaces), and enables the control-message
// flags that carry that data per datagram.
func packetConnWithControlMessages(conn *net.UDPConn) (*ipv4.PacketConn, error) {
	pc := ipv4.NewPacketConn(conn)
	if err := pc.SetControlMessage(ipv4.FlagDst|ipv4.FlagInterface, true); err != nil {
		return nil, &TransportError{Op: "set control message", Err: err}
	}
	return pc, nil
}
