package capture

import (
	"net"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	srcMAC = net.HardwareAddr{0xFF, 0xAA, 0xFA, 0xAA, 0xFF, 0xAA}
	dstMAC = net.HardwareAddr{0xBD, 0xBD, 0xBD, 0xBD, 0xBD, 0xBD}
	srcIP  = net.ParseIP("10.0.0.1").To4()
	dstIP  = net.ParseIP("10.0.0.2").To4()
)

func serialize(t *testing.T, ls ...gopacket.SerializableLayer) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, ls...))
	return buf.Bytes()
}

func tcpFrame(t *testing.T, srcPort, dstPort layers.TCPPort, payload []byte) []byte {
	eth := &layers.Ethernet{EthernetType: layers.EthernetTypeIPv4, SrcMAC: srcMAC, DstMAC: dstMAC}
	ip := &layers.IPv4{Version: 4, IHL: 5, TTL: 64, Protocol: layers.IPProtocolTCP, SrcIP: srcIP, DstIP: dstIP}
	tcp := &layers.TCP{SrcPort: srcPort, DstPort: dstPort, Seq: 1, Window: 1024}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))
	return serialize(t, eth, ip, tcp, gopacket.Payload(payload))
}

func udpFrame(t *testing.T, srcPort, dstPort layers.UDPPort, payload []byte) []byte {
	eth := &layers.Ethernet{EthernetType: layers.EthernetTypeIPv4, SrcMAC: srcMAC, DstMAC: dstMAC}
	ip := &layers.IPv4{Version: 4, IHL: 5, TTL: 64, Protocol: layers.IPProtocolUDP, SrcIP: srcIP, DstIP: dstIP}
	udp := &layers.UDP{SrcPort: srcPort, DstPort: dstPort}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
	return serialize(t, eth, ip, udp, gopacket.Payload(payload))
}

func TestDecodePacketTCP(t *testing.T) {
	data := tcpFrame(t, 51000, 443, []byte("hello"))

	p, err := DecodePacket(data, "eth0", time.Unix(1000, 0))
	require.NoError(t, err)

	assert.Equal(t, "TCP", p.Protocol)
	assert.Equal(t, "eth0", p.Interface)
	assert.Equal(t, srcIP.String(), p.SourceIP.String())
	assert.Equal(t, dstIP.String(), p.DestinationIP.String())
	require.NotNil(t, p.SourcePort)
	require.NotNil(t, p.DestinationPort)
	assert.Equal(t, uint16(51000), *p.SourcePort)
	assert.Equal(t, uint16(443), *p.DestinationPort)
	assert.Equal(t, []byte("hello"), p.Payload)
	assert.Contains(t, p.Headers, "ethernet")
	assert.Contains(t, p.Headers, "ipv4")
	assert.Contains(t, p.Headers, "tcp")
}

func TestDecodePacketUDPTaggedDNSOnPort53(t *testing.T) {
	data := udpFrame(t, 51000, 53, []byte("query"))

	p, err := DecodePacket(data, "eth0", time.Now())
	require.NoError(t, err)

	assert.Equal(t, "DNS", p.Protocol)
	assert.Equal(t, uint16(53), *p.DestinationPort)
}

func TestDecodePacketPlainUDP(t *testing.T) {
	data := udpFrame(t, 51000, 51001, []byte("payload"))

	p, err := DecodePacket(data, "eth0", time.Now())
	require.NoError(t, err)

	assert.Equal(t, "UDP", p.Protocol)
}

func TestDecodePacketICMP(t *testing.T) {
	eth := &layers.Ethernet{EthernetType: layers.EthernetTypeIPv4, SrcMAC: srcMAC, DstMAC: dstMAC}
	ip := &layers.IPv4{Version: 4, IHL: 5, TTL: 64, Protocol: layers.IPProtocolICMPv4, SrcIP: srcIP, DstIP: dstIP}
	icmp := &layers.ICMPv4{TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0)}
	data := serialize(t, eth, ip, icmp, gopacket.Payload([]byte("ping")))

	p, err := DecodePacket(data, "eth0", time.Now())
	require.NoError(t, err)

	assert.Equal(t, "ICMP", p.Protocol)
	assert.Equal(t, srcIP.String(), p.SourceIP.String())
}

func TestDecodePacketARP(t *testing.T) {
	eth := &layers.Ethernet{EthernetType: layers.EthernetTypeARP, SrcMAC: srcMAC, DstMAC: dstMAC}
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   srcMAC,
		SourceProtAddress: srcIP,
		DstHwAddress:      dstMAC,
		DstProtAddress:    dstIP,
	}
	data := serialize(t, eth, arp)

	p, err := DecodePacket(data, "eth0", time.Now())
	require.NoError(t, err)

	assert.Equal(t, "ARP", p.Protocol)
	assert.Contains(t, p.Headers, "arp")
	assert.Nil(t, p.SourceIP)
}

func TestDecodePacketTruncatedFrameErrors(t *testing.T) {
	_, err := DecodePacket([]byte{0x01, 0x02, 0x03}, "eth0", time.Now())
	require.Error(t, err)

	var decodeErr *DecodeError
	assert.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "ethernet", decodeErr.Layer)
}

func TestDecodePacketUnknownIPProtocolTaggedByNumber(t *testing.T) {
	eth := &layers.Ethernet{EthernetType: layers.EthernetTypeIPv4, SrcMAC: srcMAC, DstMAC: dstMAC}
	ip := &layers.IPv4{Version: 4, IHL: 5, TTL: 64, Protocol: layers.IPProtocolIGMP, SrcIP: srcIP, DstIP: dstIP}
	data := serialize(t, eth, ip, gopacket.Payload([]byte("igmp")))

	p, err := DecodePacket(data, "eth0", time.Now())
	require.NoError(t, err)

	assert.Equal(t, "IP(2)", p.Protocol)
}

func TestDecodePacketUnknownEthertypePassesThrough(t *testing.T) {
	eth := &layers.Ethernet{EthernetType: 0x88cc, SrcMAC: srcMAC, DstMAC: dstMAC, Length: 4}
	data := serialize(t, eth, gopacket.Payload([]byte("xxxx")))

	p, err := DecodePacket(data, "eth0", time.Now())
	require.NoError(t, err)
	assert.Contains(t, p.Protocol, "Other(")
}
