package model

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func uptr(p uint16) *uint16 { return &p }

func TestToSummaryInfoTag(t *testing.T) {
	testCases := []struct {
		name     string
		protocol string
		srcPort  *uint16
		dstPort  *uint16
		expected string
	}{
		{"https on dst 443", "TCP", nil, uptr(443), "HTTPS Traffic"},
		{"https on src 443", "TCP", uptr(443), nil, "HTTPS Traffic"},
		{"http request on dst 80", "TCP", uptr(51000), uptr(80), "HTTP Request"},
		{"http request on dst 8080", "TCP", uptr(51000), uptr(8080), "HTTP Request"},
		{"http response on src 80", "TCP", uptr(80), uptr(51000), "HTTP Response"},
		{"http request wins over https when dst is 80 and src is 443", "TCP", uptr(443), uptr(80), "HTTP Request"},
		{"plain tcp segment", "TCP", uptr(51000), uptr(51001), "TCP Segment"},
		{"udp datagram", "UDP", uptr(51000), uptr(51001), "UDP Datagram"},
		{"icmp message", "ICMP", nil, nil, "ICMP Message"},
		{"dns query", "DNS", uptr(51000), uptr(53), "DNS Query/Response"},
		{"arp request", "ARP", nil, nil, "ARP Request/Reply"},
		{"unknown protocol falls back", "Other(0x88cc)", nil, nil, "Other(0x88cc) Packet"},
	}
	for _, c := range testCases {
		got := infoTag(c.protocol, c.srcPort, c.dstPort)
		assert.Equal(t, c.expected, got, c.name)
	}
}

func TestToSummaryEndpoints(t *testing.T) {
	p := Packet{
		ID:              7,
		Timestamp:       time.Unix(0, 0),
		Protocol:        "TCP",
		SourceIP:        net.ParseIP("10.0.0.1"),
		SourcePort:      uptr(51000),
		DestinationIP:   net.ParseIP("10.0.0.2"),
		DestinationPort: uptr(80),
		Length:          64,
	}

	s := p.ToSummary()
	assert.Equal(t, uint64(7), s.ID)
	assert.Equal(t, "10.0.0.1:51000", s.Source)
	assert.Equal(t, "10.0.0.2:80", s.Destination)
	assert.Equal(t, "HTTP Request", s.Info)
	assert.Equal(t, 64, s.Length)
}

func TestToSummaryFallsBackToMAC(t *testing.T) {
	p := Packet{
		Protocol:       "ARP",
		SourceMAC:      "aa:bb:cc:dd:ee:ff",
		DestinationMAC: "ff:ff:ff:ff:ff:ff",
	}
	s := p.ToSummary()
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", s.Source)
	assert.Equal(t, "ff:ff:ff:ff:ff:ff", s.Destination)
}

func TestToSummaryUnknownEndpoint(t *testing.T) {
	p := Packet{Protocol: "Other(0x88cc)"}
	s := p.ToSummary()
	assert.Equal(t, "Unknown", s.Source)
	assert.Equal(t, "Unknown", s.Destination)
}

func TestPortStringAllDigitLengths(t *testing.T) {
	testCases := []struct {
		port     uint16
		expected string
	}{
		{0, "0"},
		{8, "8"},
		{80, "80"},
		{443, "443"},
		{8080, "8080"},
		{65535, "65535"},
	}
	for _, c := range testCases {
		assert.Equal(t, c.expected, portString(c.port))
	}
}
