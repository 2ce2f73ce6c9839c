// Package core defines core types with zero external dependencies.
package core

import (
	"net/netip"
	"strings"
)

// IP protocol numbers used by the decoder.
const (
	ProtocolTCP uint8 = 6
	ProtocolUDP uint8 = 17
)

// IPHeader represents the fixed part of an IPv4 header.
type IPHeader struct {
	Version   uint8
	HeaderLen int // IHL * 4
	TotalLen  uint16
	TTL       uint8
	Protocol  uint8 // TCP=6, UDP=17
	SrcIP     netip.Addr
	DstIP     netip.Addr
}

// TCPHeader represents the fixed part of a TCP header.
type TCPHeader struct {
	SrcPort    uint16
	DstPort    uint16
	Seq        uint32
	Ack        uint32
	DataOffset int // data offset nibble * 4, i.e. header length including options
	Flags      TCPFlags
	Window     uint16
}

// TCPFlags is the low six bits of the TCP flags byte.
type TCPFlags uint8

const (
	FlagFIN TCPFlags = 1 << iota
	FlagSYN
	FlagRST
	FlagPSH
	FlagACK
	FlagURG
)

// Has reports whether every flag in f is set.
func (t TCPFlags) Has(f TCPFlags) bool { return t&f == f }

// Only reports whether exactly the flags in f are set and nothing else.
func (t TCPFlags) Only(f TCPFlags) bool { return t == f }

// IsSYN reports a connection-opening SYN (SYN without ACK).
func (t TCPFlags) IsSYN() bool { return t.Has(FlagSYN) && !t.Has(FlagACK) }

// IsTeardown reports FIN, FIN-ACK, RST or RST-ACK.
func (t TCPFlags) IsTeardown() bool {
	switch t &^ FlagPSH {
	case FlagFIN, FlagFIN | FlagACK, FlagRST, FlagRST | FlagACK:
		return true
	}
	return false
}

func (t TCPFlags) String() string {
	if t == 0 {
		return "."
	}
	names := []struct {
		flag TCPFlags
		name string
	}{
		{FlagSYN, "S"}, {FlagFIN, "F"}, {FlagRST, "R"},
		{FlagPSH, "P"}, {FlagACK, "A"}, {FlagURG, "U"},
	}
	var b strings.Builder
	for _, n := range names {
		if t.Has(n.flag) {
			b.WriteString(n.name)
		}
	}
	return b.String()
}
