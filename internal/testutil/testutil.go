// Package testutil provides shared test fixtures: serialized IPv4/TCP frames
// and pcap files built with gopacket.
package testutil

import (
	"net"
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"firestige.xyz/hbtap/internal/core"
)

// Segment describes one TCP segment to serialize.
type Segment struct {
	Src     netip.AddrPort
	Dst     netip.AddrPort
	Seq     uint32
	Ack     uint32
	Flags   core.TCPFlags
	Payload []byte
}

// Server and Client are the default endpoints of fixture conversations:
// the monitored device serves on port 8000.
var (
	Server = netip.MustParseAddrPort("127.0.0.1:8000")
	Client = netip.MustParseAddrPort("127.0.0.1:50123")
)

// FromServer returns a PSH-ACK data segment sent by Server to Client.
func FromServer(seq uint32, payload string) Segment {
	return Segment{
		Src:     Server,
		Dst:     Client,
		Seq:     seq,
		Flags:   core.FlagPSH | core.FlagACK,
		Payload: []byte(payload),
	}
}

// SYN returns the client's connection-opening SYN towards Server.
func SYN(isn uint32) Segment {
	return Segment{Src: Client, Dst: Server, Seq: isn, Flags: core.FlagSYN}
}

// IPv4TCP serializes s as a bare IPv4 datagram with valid checksums.
func IPv4TCP(t testing.TB, s Segment) []byte {
	t.Helper()
	return serialize(t, s, false)
}

// EthernetIPv4TCP serializes s inside an Ethernet II frame.
func EthernetIPv4TCP(t testing.TB, s Segment) []byte {
	t.Helper()
	return serialize(t, s, true)
}

func serialize(t testing.TB, s Segment, withEthernet bool) []byte {
	t.Helper()

	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    net.IP(s.Src.Addr().AsSlice()),
		DstIP:    net.IP(s.Dst.Addr().AsSlice()),
	}
	tcp := &layers.TCP{
		SrcPort: layers.TCPPort(s.Src.Port()),
		DstPort: layers.TCPPort(s.Dst.Port()),
		Seq:     s.Seq,
		Ack:     s.Ack,
		FIN:     s.Flags.Has(core.FlagFIN),
		SYN:     s.Flags.Has(core.FlagSYN),
		RST:     s.Flags.Has(core.FlagRST),
		PSH:     s.Flags.Has(core.FlagPSH),
		ACK:     s.Flags.Has(core.FlagACK),
		URG:     s.Flags.Has(core.FlagURG),
		Window:  65535,
	}
	if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
		t.Fatalf("set network layer: %v", err)
	}

	stack := []gopacket.SerializableLayer{ip, tcp, gopacket.Payload(s.Payload)}
	if withEthernet {
		eth := &layers.Ethernet{
			SrcMAC:       net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01},
			DstMAC:       net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02},
			EthernetType: layers.EthernetTypeIPv4,
		}
		stack = append([]gopacket.SerializableLayer{eth}, stack...)
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, stack...); err != nil {
		t.Fatalf("serialize segment: %v", err)
	}
	return buf.Bytes()
}

// WritePcap writes segments as Ethernet frames into a pcap file under
// t.TempDir and returns its path.
func WritePcap(t testing.TB, segments ...Segment) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "capture.pcap")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create pcap: %v", err)
	}
	defer f.Close()

	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(65535, layers.LinkTypeEthernet); err != nil {
		t.Fatalf("write pcap header: %v", err)
	}

	ts := time.Unix(1700000000, 0)
	for i, s := range segments {
		frame := EthernetIPv4TCP(t, s)
		ci := gopacket.CaptureInfo{
			Timestamp:     ts.Add(time.Duration(i) * time.Millisecond),
			CaptureLength: len(frame),
			Length:        len(frame),
		}
		if err := w.WritePacket(ci, frame); err != nil {
			t.Fatalf("write pcap packet: %v", err)
		}
	}
	return path
}
