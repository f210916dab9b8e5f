// Package model holds the data types shared across the capture engine and
// its HTTP/WebSocket adapter.
package model

import (
	"net"
	"time"
)

// Packet is one decoded frame. id is assigned by the processor loop and is
// strictly increasing in insertion order; it is never reused, even across a
// stop/start of the same manager.
type Packet struct {
	ID                   uint64                       `json:"id"`
	Timestamp            time.Time                    `json:"timestamp"`
	Interface            string                       `json:"interface"`
	Length               int                           `json:"length"`
	Protocol             string                       `json:"protocol"`
	SourceIP             net.IP                       `json:"source_ip,omitempty"`
	DestinationIP        net.IP                       `json:"destination_ip,omitempty"`
	SourcePort           *uint16                      `json:"source_port,omitempty"`
	DestinationPort      *uint16                      `json:"destination_port,omitempty"`
	SourceMAC            string                       `json:"source_mac,omitempty"`
	DestinationMAC       string                       `json:"destination_mac,omitempty"`
	RawData              []byte                       `json:"-"`
	Headers              map[string]map[string]interface{} `json:"headers"`
	Payload              []byte                       `json:"payload,omitempty"`
}

// Summary projects a Packet down to the fields a list view needs.
type Summary struct {
	ID          uint64    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Protocol    string    `json:"protocol"`
	Source      string    `json:"source"`
	Destination string    `json:"destination"`
	Length      int       `json:"length"`
	Info        string    `json:"info"`
}

// ToSummary derives the list-view projection of p, including the
// well-known-port info tag described by the decoder's protocol rules.
func (p Packet) ToSummary() Summary {
	return Summary{
		ID:          p.ID,
		Timestamp:   p.Timestamp,
		Protocol:    p.Protocol,
		Source:      formatEndpoint(p.SourceIP, p.SourcePort, p.SourceMAC),
		Destination: formatEndpoint(p.DestinationIP, p.DestinationPort, p.DestinationMAC),
		Length:      p.Length,
		Info:        infoTag(p.Protocol, p.SourcePort, p.DestinationPort),
	}
}

func formatEndpoint(ip net.IP, port *uint16, mac string) string {
	if ip != nil {
		if port != nil {
			return ip.String() + ":" + portString(*port)
		}
		return ip.String()
	}
	if mac != "" {
		return mac
	}
	return "Unknown"
}

func portString(p uint16) string {
	const digits = "0123456789"
	if p == 0 {
		return "0"
	}
	var buf [5]byte
	i := len(buf)
	for p > 0 {
		i--
		buf[i] = digits[p%10]
		p /= 10
	}
	return string(buf[i:])
}

func isWellKnown(port *uint16, candidates ...uint16) bool {
	if port == nil {
		return false
	}
	for _, c := range candidates {
		if *port == c {
			return true
		}
	}
	return false
}

func infoTag(protocol string, srcPort, dstPort *uint16) string {
	switch protocol {
	case "TCP":
		if isWellKnown(dstPort, 80, 8080) {
			return "HTTP Request"
		}
		if isWellKnown(srcPort, 80, 8080) {
			return "HTTP Response"
		}
		if isWellKnown(srcPort, 443) || isWellKnown(dstPort, 443) {
			return "HTTPS Traffic"
		}
		return "TCP Segment"
	case "UDP":
		return "UDP Datagram"
	case "ICMP":
		return "ICMP Message"
	case "DNS":
		return "DNS Query/Response"
	case "ARP":
		return "ARP Request/Reply"
	default:
		return protocol + " Packet"
	}
}
