// Package decoder implements protocol decoding.
package decoder

import (
	"encoding/binary"

	"firestige.xyz/hbtap/internal/core"
)

const tcpHeaderMinLen = 20

// decodeTCP decodes the fixed TCP header and skips options via data offset.
// Returns TCPHeader and the segment payload.
func decodeTCP(data []byte) (core.TCPHeader, []byte, error) {
	if len(data) < tcpHeaderMinLen {
		return core.TCPHeader{}, nil, core.ErrPacketTooShort
	}

	tcp := core.TCPHeader{
		SrcPort: binary.BigEndian.Uint16(data[0:2]),
		DstPort: binary.BigEndian.Uint16(data[2:4]),
		Seq:     binary.BigEndian.Uint32(data[4:8]),
		Ack:     binary.BigEndian.Uint32(data[8:12]),
		// Byte 13: | CWR | ECE | URG | ACK | PSH | RST | SYN | FIN |
		Flags:  core.TCPFlags(data[13] & 0x3F),
		Window: binary.BigEndian.Uint16(data[14:16]),
	}

	// Data Offset (upper 4 bits of byte 12), in 32-bit words
	tcp.DataOffset = int(data[12]>>4) * 4
	if tcp.DataOffset < tcpHeaderMinLen || len(data) < tcp.DataOffset {
		return tcp, nil, core.ErrPacketTooShort
	}

	return tcp, data[tcp.DataOffset:], nil
}
