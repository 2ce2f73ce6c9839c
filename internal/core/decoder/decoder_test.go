package decoder

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/hbtap/internal/core"
	"firestige.xyz/hbtap/internal/testutil"
)

func TestDecode(t *testing.T) {
	seg := testutil.FromServer(4242, "D.06-80-00\r\n")
	frame := testutil.IPv4TCP(t, seg)

	pkt, err := Decode(frame)
	require.NoError(t, err)

	assert.True(t, pkt.IsTCP())
	assert.Equal(t, testutil.Server.Addr(), pkt.IP.SrcIP)
	assert.Equal(t, testutil.Client.Addr(), pkt.IP.DstIP)
	assert.Equal(t, uint16(8000), pkt.TCP.SrcPort)
	assert.Equal(t, testutil.Client.Port(), pkt.TCP.DstPort)
	assert.Equal(t, uint32(4242), pkt.TCP.Seq)
	assert.Equal(t, core.FlagPSH|core.FlagACK, pkt.TCP.Flags)
	assert.Equal(t, "D.06-80-00\r\n", string(pkt.Payload))
}

func TestDecodeEmptyPayload(t *testing.T) {
	pkt, err := Decode(testutil.IPv4TCP(t, testutil.SYN(1)))
	require.NoError(t, err)
	assert.True(t, pkt.TCP.Flags.IsSYN())
	assert.Empty(t, pkt.Payload)
}

func TestDecodeNonTCP(t *testing.T) {
	data := make([]byte, 28)
	data[0] = 0x45
	data[3] = 28
	data[9] = core.ProtocolUDP

	pkt, err := Decode(data)
	assert.True(t, errors.Is(err, core.ErrNotTCP))
	assert.Equal(t, core.ProtocolUDP, pkt.IP.Protocol)
	assert.False(t, pkt.IsTCP())
}

func TestDecodeTruncated(t *testing.T) {
	frame := testutil.IPv4TCP(t, testutil.FromServer(1, "hello"))

	// Every cut inside the IP or TCP header must fail cleanly.
	for n := 0; n < 40; n++ {
		_, err := Decode(frame[:n])
		assert.ErrorIs(t, err, core.ErrPacketTooShort, "cut at %d", n)
	}
}

func BenchmarkDecode(b *testing.B) {
	frame := testutil.IPv4TCP(b, testutil.FromServer(1, "D.06-80-00-80-00-00-00-00-00\r\n"))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Decode(frame); err != nil {
			b.Fatal(err)
		}
	}
}

func TestReason(t *testing.T) {
	assert.Equal(t, "too_short", Reason(core.ErrPacketTooShort))
	assert.Equal(t, "unsupported", Reason(fmt.Errorf("wrapped: %w", core.ErrUnsupportedProto)))
	assert.Equal(t, "not_tcp", Reason(core.ErrNotTCP))
	assert.Equal(t, "other", Reason(io.EOF))
}
