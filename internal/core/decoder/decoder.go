// Package decoder implements IPv4/TCP header parsing of raw frames.
package decoder

import (
	"errors"

	"firestige.xyz/hbtap/internal/core"
)

// Decode parses an IPv4 datagram (no link layer) into a ParsedPacket.
//
// Frames that are not TCP return the decoded IP header together with
// core.ErrNotTCP so callers can count and skip them. Truncated frames return
// core.ErrPacketTooShort. Decode never panics on untrusted input.
func Decode(data []byte) (core.ParsedPacket, error) {
	var pkt core.ParsedPacket

	ip, rest, err := decodeIPv4(data)
	if err != nil {
		return pkt, err
	}
	pkt.IP = ip

	if ip.Protocol != core.ProtocolTCP {
		return pkt, core.ErrNotTCP
	}

	tcp, payload, err := decodeTCP(rest)
	if err != nil {
		return pkt, err
	}
	pkt.TCP = tcp
	pkt.Payload = payload
	return pkt, nil
}

// Reason maps a Decode error to a short metrics label.
func Reason(err error) string {
	switch {
	case errors.Is(err, core.ErrPacketTooShort):
		return "too_short"
	case errors.Is(err, core.ErrUnsupportedProto):
		return "unsupported"
	case errors.Is(err, core.ErrNotTCP):
		return "not_tcp"
	default:
		return "other"
	}
}
