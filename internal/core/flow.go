package core

import (
	"fmt"
	"net/netip"
)

// FlowID identifies one direction of a TCP conversation.
// Comparable; used as a map key.
type FlowID struct {
	SrcAddr netip.Addr
	SrcPort uint16
	DstAddr netip.Addr
	DstPort uint16
}

// FlowOf returns the FlowID of the direction p travels in.
func FlowOf(p *ParsedPacket) FlowID {
	return FlowID{
		SrcAddr: p.IP.SrcIP,
		SrcPort: p.TCP.SrcPort,
		DstAddr: p.IP.DstIP,
		DstPort: p.TCP.DstPort,
	}
}

// Reverse returns the FlowID of the opposite direction.
func (f FlowID) Reverse() FlowID {
	return FlowID{
		SrcAddr: f.DstAddr,
		SrcPort: f.DstPort,
		DstAddr: f.SrcAddr,
		DstPort: f.SrcPort,
	}
}

func (f FlowID) String() string {
	return fmt.Sprintf("%s->%s",
		netip.AddrPortFrom(f.SrcAddr, f.SrcPort),
		netip.AddrPortFrom(f.DstAddr, f.DstPort))
}
