// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package snmpcore

import (
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/require"
)

// TestWireCaptureRoundTrip builds a realistic Ethernet/IPv4/UDP capture
// around an encoded v2c GetRequest with gopacket, the way a packet-capture
// based test harness would, then decodes the UDP payload back into a
// Message to confirm the codec survives a trip through a full frame rather
// than a bare byte slice.
func TestWireCaptureRoundTrip(t *testing.T) {
	oid := mustOid("1.3.6.1.2.1.1.1.0")
	pdu := PDU{
		Type:      GetRequest,
		RequestID: 42,
		Varbinds: VarbindList{
			{Oid: oid, Value: SmiValue{Kind: KindNull}},
		},
	}

	payload, err := EncodeMessage(Version2c, "public", pdu)
	require.NoError(t, err)

	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x00, 0x1c, 0x42, 0x00, 0x00, 0x01},
		DstMAC:       net.HardwareAddr{0x00, 0x1c, 0x42, 0x00, 0x00, 0x02},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		IHL:      5,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IPv4(192, 0, 2, 10),
		DstIP:    net.IPv4(192, 0, 2, 20),
	}
	udp := &layers.UDP{
		SrcPort: layers.UDPPort(44321),
		DstPort: layers.UDPPort(161),
	}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(payload)))

	captured := gopacket.NewPacket(buf.Bytes(), layers.LayerTypeEthernet, gopacket.Default)
	udpLayer := captured.Layer(layers.LayerTypeUDP)
	require.NotNil(t, udpLayer)

	appLayer := captured.ApplicationLayer()
	require.NotNil(t, appLayer)

	msg, err := DecodeMessage(appLayer.Payload())
	require.NoError(t, err)
	require.Equal(t, Version2c, msg.Version)
	require.Equal(t, "public", msg.Community)
	require.Equal(t, int32(42), msg.PDU.RequestID)
	require.Len(t, msg.PDU.Varbinds, 1)
	require.True(t, oid.Equal(msg.PDU.Varbinds[0].Oid))
}
