// Package core defines core data structures with zero external dependencies.
package core

import "time"

// ParsedPacket is an immutable view of one captured IPv4/TCP frame.
// Payload aliases the capture buffer; copy it before keeping it past the
// next read.
type ParsedPacket struct {
	Timestamp time.Time
	IP        IPHeader
	TCP       TCPHeader
	Payload   []byte
}

// IsTCP reports whether the TCP header of p was decoded.
func (p *ParsedPacket) IsTCP() bool {
	return p.IP.Protocol == ProtocolTCP
}
