package capture

import (
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/pkg/errors"

	"github.com/netshark/netshark/model"
)

// DecodeError reports a layered-descent failure. It is always local: the
// processor loop counts it and never surfaces it to a caller.
type DecodeError struct {
	Layer  string
	Reason error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error in %s layer: %v", e.Layer, e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Reason }

// DecodePacket walks data (an Ethernet-II frame captured on ifaceName) and
// returns a fully populated Packet, or a *DecodeError if any layer along
// the descent fails. It never panics on truncated or malformed input.
func DecodePacket(data []byte, ifaceName string, capturedAt time.Time) (packet model.Packet, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &DecodeError{Layer: "ethernet", Reason: errors.Errorf("panic: %v", r)}
		}
	}()

	if len(data) < 14 {
		return model.Packet{}, &DecodeError{Layer: "ethernet", Reason: errors.New("frame shorter than 14 bytes")}
	}

	parsed := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.DecodeOptions{
		Lazy:   false,
		NoCopy: true,
	})
	// gopacket keeps dissecting past the headers read here (DNS or TLS by
	// port, LLDP by ethertype, IGMP by IP protocol, ...); a failure there is
	// not a decode error. A lost IP/ARP header is reported by the per-layer
	// checks below; a lost TCP/UDP/ICMP header is reported here.
	if errLayer := parsed.ErrorLayer(); errLayer != nil {
		switch proto := layers.IPProtocol(ipProtocolNumber(parsed)); proto {
		case layers.IPProtocolTCP, layers.IPProtocolUDP, layers.IPProtocolICMPv4, layers.IPProtocolICMPv6:
			if parsed.Layer(proto.LayerType()) == nil {
				return model.Packet{}, &DecodeError{Layer: proto.String(), Reason: errLayer.Error()}
			}
		}
	}

	ethLayer := parsed.Layer(layers.LayerTypeEthernet)
	if ethLayer == nil {
		return model.Packet{}, &DecodeError{Layer: "ethernet", Reason: errors.New("no Ethernet layer decoded")}
	}
	eth := ethLayer.(*layers.Ethernet)

	p := model.Packet{
		Timestamp:      capturedAt,
		Interface:      ifaceName,
		Length:         len(data),
		RawData:        data,
		SourceMAC:      eth.SrcMAC.String(),
		DestinationMAC: eth.DstMAC.String(),
		Headers:        map[string]map[string]interface{}{},
	}
	p.Headers["ethernet"] = map[string]interface{}{
		"source_mac":      eth.SrcMAC.String(),
		"destination_mac": eth.DstMAC.String(),
		"ethertype":       eth.EthernetType.String(),
	}

	switch eth.EthernetType {
	case layers.EthernetTypeIPv4:
		return decodeIPv4(parsed, p)
	case layers.EthernetTypeIPv6:
		return decodeIPv6(parsed, p)
	case layers.EthernetTypeARP:
		return decodeARP(parsed, p)
	default:
		p.Protocol = fmt.Sprintf("Other(%s)", eth.EthernetType.String())
		p.Payload = eth.Payload
		return p, nil
	}
}

func decodeARP(parsed gopacket.Packet, p model.Packet) (model.Packet, error) {
	layer := parsed.Layer(layers.LayerTypeARP)
	if layer == nil {
		return model.Packet{}, &DecodeError{Layer: "arp", Reason: errors.New("no ARP layer decoded")}
	}
	arp := layer.(*layers.ARP)
	p.Protocol = "ARP"
	p.Headers["arp"] = map[string]interface{}{
		"hardware_type":     arp.AddrType.String(),
		"protocol_type":     arp.Protocol.String(),
		"hw_addr_len":       arp.HwAddressSize,
		"proto_addr_len":    arp.ProtAddressSize,
		"operation":         arp.Operation,
		"sender_hw_addr":    fmtMAC(arp.SourceHwAddress),
		"sender_proto_addr": fmtIP(arp.SourceProtAddress),
		"target_hw_addr":    fmtMAC(arp.DstHwAddress),
		"target_proto_addr": fmtIP(arp.DstProtAddress),
	}
	return p, nil
}

func decodeIPv4(parsed gopacket.Packet, p model.Packet) (model.Packet, error) {
	layer := parsed.Layer(layers.LayerTypeIPv4)
	if layer == nil {
		return model.Packet{}, &DecodeError{Layer: "ipv4", Reason: errors.New("no IPv4 layer decoded")}
	}
	ip4 := layer.(*layers.IPv4)
	if ip4.IHL < 5 {
		return model.Packet{}, &DecodeError{Layer: "ipv4", Reason: errors.Errorf("invalid header length %d", ip4.IHL)}
	}

	p.SourceIP = ip4.SrcIP
	p.DestinationIP = ip4.DstIP
	p.Headers["ipv4"] = map[string]interface{}{
		"version":       ip4.Version,
		"header_length": ip4.IHL,
		"total_length":  ip4.Length,
		"ttl":           ip4.TTL,
		"protocol":      ip4.Protocol.String(),
		"checksum":      ip4.Checksum,
		"source_ip":     ip4.SrcIP.String(),
		"destination_ip": ip4.DstIP.String(),
	}
	return decodeTransport(parsed, p)
}

func decodeIPv6(parsed gopacket.Packet, p model.Packet) (model.Packet, error) {
	layer := parsed.Layer(layers.LayerTypeIPv6)
	if layer == nil {
		return model.Packet{}, &DecodeError{Layer: "ipv6", Reason: errors.New("no IPv6 layer decoded")}
	}
	ip6 := layer.(*layers.IPv6)

	p.SourceIP = ip6.SrcIP
	p.DestinationIP = ip6.DstIP
	p.Headers["ipv6"] = map[string]interface{}{
		"version":        ip6.Version,
		"traffic_class":  ip6.TrafficClass,
		"flow_label":     ip6.FlowLabel,
		"payload_length": ip6.Length,
		"next_header":    ip6.NextHeader.String(),
		"hop_limit":      ip6.HopLimit,
		"source":         ip6.SrcIP.String(),
		"destination":    ip6.DstIP.String(),
	}
	if p.Protocol == "" {
		p.Protocol = "IPv6"
	}
	return decodeTransport(parsed, p)
}

func decodeTransport(parsed gopacket.Packet, p model.Packet) (model.Packet, error) {
	if tcpLayer := parsed.Layer(layers.LayerTypeTCP); tcpLayer != nil {
		tcp := tcpLayer.(*layers.TCP)
		srcPort := uint16(tcp.SrcPort)
		dstPort := uint16(tcp.DstPort)
		p.SourcePort = &srcPort
		p.DestinationPort = &dstPort
		p.Protocol = "TCP"
		p.Headers["tcp"] = map[string]interface{}{
			"source_port":      srcPort,
			"destination_port": dstPort,
			"sequence":         tcp.Seq,
			"acknowledgement":  tcp.Ack,
			"data_offset":      tcp.DataOffset,
			"flags": map[string]bool{
				"ns":  tcp.NS,
				"cwr": tcp.CWR,
				"ece": tcp.ECE,
				"urg": tcp.URG,
				"ack": tcp.ACK,
				"psh": tcp.PSH,
				"rst": tcp.RST,
				"syn": tcp.SYN,
				"fin": tcp.FIN,
			},
			"window":      tcp.Window,
			"checksum":    tcp.Checksum,
			"urgent_ptr":  tcp.Urgent,
		}
		p.Payload = tcp.Payload
		return p, nil
	}

	if udpLayer := parsed.Layer(layers.LayerTypeUDP); udpLayer != nil {
		udp := udpLayer.(*layers.UDP)
		srcPort := uint16(udp.SrcPort)
		dstPort := uint16(udp.DstPort)
		p.SourcePort = &srcPort
		p.DestinationPort = &dstPort
		p.Protocol = "UDP"
		if srcPort == 53 || dstPort == 53 {
			p.Protocol = "DNS"
		}
		p.Headers["udp"] = map[string]interface{}{
			"source_port":      srcPort,
			"destination_port": dstPort,
			"length":           udp.Length,
			"checksum":         udp.Checksum,
		}
		p.Payload = udp.Payload
		return p, nil
	}

	if icmpLayer := parsed.Layer(layers.LayerTypeICMPv4); icmpLayer != nil {
		icmp := icmpLayer.(*layers.ICMPv4)
		p.Protocol = "ICMP"
		p.Headers["icmp"] = map[string]interface{}{
			"icmp_type": icmp.TypeCode.Type(),
			"icmp_code": icmp.TypeCode.Code(),
			"checksum":  icmp.Checksum,
		}
		p.Payload = icmp.Payload
		return p, nil
	}

	if icmp6Layer := parsed.Layer(layers.LayerTypeICMPv6); icmp6Layer != nil {
		icmp6 := icmp6Layer.(*layers.ICMPv6)
		p.Protocol = "ICMP"
		p.Headers["icmp"] = map[string]interface{}{
			"icmp_type": icmp6.TypeCode.Type(),
			"icmp_code": icmp6.TypeCode.Code(),
			"checksum":  icmp6.Checksum,
		}
		p.Payload = icmp6.Payload
		return p, nil
	}

	// No recognized transport layer: tag with the ipv4 protocol / ipv6
	// next-header number we already recorded and pass the remainder
	// through, whether or not gopacket classified it as a transport layer.
	protoNum := ipProtocolNumber(parsed)
	if protoNum < 0 {
		p.Protocol = "IP(unknown)"
		return p, nil
	}
	p.Protocol = fmt.Sprintf("IP(%d)", protoNum)
	if network := parsed.NetworkLayer(); network != nil {
		p.Payload = network.LayerPayload()
	}
	return p, nil
}

// ipProtocolNumber returns the numeric IPv4 protocol / IPv6 next-header
// value carried by parsed's network layer, for tagging a transport we
// didn't recognize by name.
func ipProtocolNumber(parsed gopacket.Packet) int {
	if layer := parsed.Layer(layers.LayerTypeIPv4); layer != nil {
		return int(layer.(*layers.IPv4).Protocol)
	}
	if layer := parsed.Layer(layers.LayerTypeIPv6); layer != nil {
		return int(layer.(*layers.IPv6).NextHeader)
	}
	return -1
}

func fmtMAC(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	out := make([]byte, 0, len(b)*3-1)
	const hex = "0123456789abcdef"
	for i, c := range b {
		if i > 0 {
			out = append(out, ':')
		}
		out = append(out, hex[c>>4], hex[c&0xf])
	}
	return string(out)
}

func fmtIP(b []byte) string {
	if len(b) == 4 {
		return fmt.Sprintf("%d.%d.%d.%d", b[0], b[1], b[2], b[3])
	}
	return fmtMAC(b)
}
