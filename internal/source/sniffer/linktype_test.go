package sniffer

import (
	"errors"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/hbtap/internal/core"
	"firestige.xyz/hbtap/internal/testutil"
)

func TestStripEthernet(t *testing.T) {
	seg := testutil.FromServer(1, "payload")
	s, err := newLinkStripper(layers.LinkTypeEthernet)
	require.NoError(t, err)

	ip, err := s.Strip(testutil.EthernetIPv4TCP(t, seg))
	require.NoError(t, err)
	assert.Equal(t, testutil.IPv4TCP(t, seg), ip)
}

func TestStripVLAN(t *testing.T) {
	seg := testutil.FromServer(1, "vlan")
	inner := testutil.IPv4TCP(t, seg)

	buf := gopacket.NewSerializeBuffer()
	err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{},
		&layers.Ethernet{
			SrcMAC:       []byte{2, 0, 0, 0, 0, 1},
			DstMAC:       []byte{2, 0, 0, 0, 0, 2},
			EthernetType: layers.EthernetTypeDot1Q,
		},
		&layers.Dot1Q{VLANIdentifier: 100, Type: layers.EthernetTypeIPv4},
		gopacket.Payload(inner),
	)
	require.NoError(t, err)

	s, err := newLinkStripper(layers.LinkTypeEthernet)
	require.NoError(t, err)
	ip, err := s.Strip(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, inner, ip)
}

func TestStripRaw(t *testing.T) {
	s, err := newLinkStripper(layers.LinkTypeRaw)
	require.NoError(t, err)
	frame := []byte{0x45, 0x00}
	ip, err := s.Strip(frame)
	require.NoError(t, err)
	assert.Equal(t, frame, ip)
}

func TestStripNonIPv4(t *testing.T) {
	buf := gopacket.NewSerializeBuffer()
	err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{},
		&layers.Ethernet{
			SrcMAC:       []byte{2, 0, 0, 0, 0, 1},
			DstMAC:       []byte{2, 0, 0, 0, 0, 2},
			EthernetType: layers.EthernetTypeIPv6,
		},
		gopacket.Payload(make([]byte, 40)),
	)
	require.NoError(t, err)

	s, err := newLinkStripper(layers.LinkTypeEthernet)
	require.NoError(t, err)
	_, err = s.Strip(buf.Bytes())
	assert.True(t, errors.Is(err, core.ErrUnsupportedProto))
}

func TestUnsupportedLinkType(t *testing.T) {
	_, err := newLinkStripper(layers.LinkTypeIEEE802_11)
	assert.True(t, errors.Is(err, core.ErrUnsupportedProto))
}
