package sniffer

import (
	"errors"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"firestige.xyz/hbtap/internal/core"
)

var errNoLinkLayer = errors.New("sniffer: no link layer decoded")

// linkStripper removes link-layer framing and returns the IPv4 datagram.
// Only link layers are registered with the parser; decoding stops at the
// first network layer.
type linkStripper struct {
	raw     bool
	parser  *gopacket.DecodingLayerParser
	eth     layers.Ethernet
	dot1q   layers.Dot1Q
	loop    layers.Loopback
	sll     layers.LinuxSLL
	decoded []gopacket.LayerType
}

func newLinkStripper(lt layers.LinkType) (*linkStripper, error) {
	s := &linkStripper{decoded: make([]gopacket.LayerType, 0, 4)}

	var first gopacket.LayerType
	switch lt {
	case layers.LinkTypeEthernet:
		first = layers.LayerTypeEthernet
	case layers.LinkTypeNull, layers.LinkTypeLoop:
		first = layers.LayerTypeLoopback
	case layers.LinkTypeLinuxSLL:
		first = layers.LayerTypeLinuxSLL
	case layers.LinkTypeRaw, layers.LinkTypeIPv4:
		s.raw = true
		return s, nil
	default:
		return nil, fmt.Errorf("%w: link type %s", core.ErrUnsupportedProto, lt)
	}

	s.parser = gopacket.NewDecodingLayerParser(first, &s.eth, &s.dot1q, &s.loop, &s.sll)
	s.parser.IgnoreUnsupported = true
	return s, nil
}

// Strip returns the network-layer bytes of frame, aliasing frame.
func (s *linkStripper) Strip(frame []byte) ([]byte, error) {
	if s.raw {
		return frame, nil
	}
	if err := s.parser.DecodeLayers(frame, &s.decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrPacketTooShort, err)
	}
	if len(s.decoded) == 0 {
		return nil, errNoLinkLayer
	}

	var next gopacket.LayerType
	var payload []byte
	switch s.decoded[len(s.decoded)-1] {
	case layers.LayerTypeEthernet:
		next, payload = s.eth.NextLayerType(), s.eth.LayerPayload()
	case layers.LayerTypeDot1Q:
		next, payload = s.dot1q.NextLayerType(), s.dot1q.LayerPayload()
	case layers.LayerTypeLoopback:
		next, payload = s.loop.NextLayerType(), s.loop.LayerPayload()
	case layers.LayerTypeLinuxSLL:
		next, payload = s.sll.NextLayerType(), s.sll.LayerPayload()
	}
	if next != layers.LayerTypeIPv4 {
		return nil, fmt.Errorf("%w: network layer %s", core.ErrUnsupportedProto, next)
	}
	return payload, nil
}
