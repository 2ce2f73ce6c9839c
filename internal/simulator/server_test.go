package simulator

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/hbtap/internal/config"
)

func startServer(t *testing.T) (*Server, context.CancelFunc, <-chan error) {
	t.Helper()
	srv := NewServer(config.SimulatorConfig{Listen: "127.0.0.1:0", SampleRate: 200}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, srv.Listen(ctx))

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ctx) }()
	return srv, cancel, errc
}

func TestStreamsAfterHello(t *testing.T) {
	srv, cancel, errc := startServer(t)

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("HELLO\r\n"))
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	r := bufio.NewReader(conn)
	for i := 0; i < 3; i++ {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		assert.Equal(t, "\r\n", line[len(line)-2:])
		_, err = ParseRecord(line)
		assert.NoError(t, err)
	}

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestSilentUntilHello(t *testing.T) {
	srv, cancel, _ := startServer(t)
	defer cancel()

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("PING\r\n"))
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	buf := make([]byte, 1)
	_, err = conn.Read(buf)
	var ne net.Error
	require.ErrorAs(t, err, &ne)
	assert.True(t, ne.Timeout())
}
