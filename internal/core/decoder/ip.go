// Package decoder implements protocol decoding.
package decoder

import (
	"encoding/binary"
	"net/netip"

	"firestige.xyz/hbtap/internal/core"
)

const ipv4HeaderMinLen = 20

// decodeIPv4 decodes the fixed IPv4 header and skips options via IHL.
// Returns IPHeader and the transport payload, clipped to TotalLen when the
// frame carries trailing link-layer padding.
func decodeIPv4(data []byte) (core.IPHeader, []byte, error) {
	if len(data) < ipv4HeaderMinLen {
		return core.IPHeader{}, nil, core.ErrPacketTooShort
	}

	version := data[0] >> 4
	if version != 4 {
		return core.IPHeader{Version: version}, nil, core.ErrUnsupportedProto
	}

	// IHL (Internet Header Length) - lower 4 bits of first byte, in 32-bit words
	headerLen := int(data[0]&0x0F) * 4
	if headerLen < ipv4HeaderMinLen || len(data) < headerLen {
		return core.IPHeader{}, nil, core.ErrPacketTooShort
	}

	ip := core.IPHeader{
		Version:   4,
		HeaderLen: headerLen,
		TotalLen:  binary.BigEndian.Uint16(data[2:4]),
		TTL:       data[8],
		Protocol:  data[9],
		SrcIP:     netip.AddrFrom4([4]byte(data[12:16])),
		DstIP:     netip.AddrFrom4([4]byte(data[16:20])),
	}

	end := len(data)
	// Some stacks (and TSO captures) report TotalLen=0; keep the whole buffer then.
	if total := int(ip.TotalLen); total >= headerLen && total < end {
		end = total
	}
	return ip, data[headerLen:end], nil
}
