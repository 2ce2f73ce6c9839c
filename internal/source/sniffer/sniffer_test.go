package sniffer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/hbtap/internal/config"
	"firestige.xyz/hbtap/internal/core"
	"firestige.xyz/hbtap/internal/testutil"
)

func fileOptions(path string) Options {
	return Options{
		Capture: config.CaptureConfig{
			Engine:  config.EngineFile,
			File:    path,
			Filter:  "tcp port 8000",
			SnapLen: 65535,
		},
		MaxPending:   64,
		PollInterval: 5 * time.Millisecond,
	}
}

func waitDone(t *testing.T, s *Sniffer) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("capture loop did not finish")
	}
}

func TestReplayReordersStream(t *testing.T) {
	client := testutil.Segment{Src: testutil.Client, Dst: testutil.Server, Seq: 2, Flags: core.FlagPSH | core.FlagACK, Payload: []byte("HELLO\r\n")}
	fin := testutil.FromServer(1030, "")
	fin.Flags = core.FlagFIN | core.FlagACK

	path := testutil.WritePcap(t,
		testutil.FromServer(1, "before-syn"),
		testutil.SYN(1),
		client,
		testutil.FromServer(1000, "D.06-0001\r\n"),
		testutil.FromServer(1022, "D.06-0003\r\n"),
		testutil.FromServer(1011, "D.06-0002\r\n"),
		testutil.FromServer(1011, "D.06-0002\r\n"),
		fin,
		testutil.FromServer(1033, "after-fin"),
	)

	s := New(fileOptions(path), nil)
	require.NoError(t, s.Start())
	waitDone(t, s)

	assert.Equal(t, []string{"D.06-0001\r\n", "D.06-0002\r\n", "D.06-0003\r\n"}, toStrings(s.Drain()))
	assert.NoError(t, s.Stop())
}

func TestReadLineAndRead(t *testing.T) {
	path := testutil.WritePcap(t,
		testutil.SYN(1),
		testutil.FromServer(10, "a"),
		testutil.FromServer(11, "b"),
		testutil.FromServer(12, "c"),
	)
	s := New(fileOptions(path), nil)
	require.NoError(t, s.Start())
	defer s.Stop()
	waitDone(t, s)

	line, ok := s.ReadLine(context.Background())
	require.True(t, ok)
	assert.Equal(t, "a", string(line))
	assert.Equal(t, "b\r\nc", string(s.Read()))
}

func TestReplayAppliesFilter(t *testing.T) {
	path := testutil.WritePcap(t,
		testutil.SYN(1),
		testutil.FromServer(10, "filtered out"),
	)
	opts := fileOptions(path)
	opts.Capture.Filter = "tcp port 9999"

	s := New(opts, nil)
	require.NoError(t, s.Start())
	waitDone(t, s)
	assert.Empty(t, s.Drain())
	assert.NoError(t, s.Stop())
}

func TestStartTwice(t *testing.T) {
	s := New(fileOptions(testutil.WritePcap(t, testutil.SYN(1))), nil)
	require.NoError(t, s.Start())
	defer s.Stop()
	assert.True(t, errors.Is(s.Start(), core.ErrAlreadyStarted))
}

func TestStartMissingFile(t *testing.T) {
	s := New(fileOptions("/nonexistent/capture.pcap"), nil)
	assert.Error(t, s.Start())
	assert.NoError(t, s.Stop())
}

// idleHandle never yields a frame, like a quiet live interface.
type idleHandle struct {
	closed chan struct{}
}

func (h *idleHandle) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	time.Sleep(time.Millisecond)
	return nil, gopacket.CaptureInfo{}, errReadTimeout
}

func (h *idleHandle) LinkType() layers.LinkType { return layers.LinkTypeEthernet }

func (h *idleHandle) Close() { close(h.closed) }

func TestStopUnblocksReaders(t *testing.T) {
	h := &idleHandle{closed: make(chan struct{})}
	s := New(fileOptions(""), nil)
	s.open = func() (packetHandle, error) { return h, nil }
	require.NoError(t, s.Start())

	result := make(chan bool, 1)
	go func() {
		_, ok := s.ReadLine(context.Background())
		result <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	start := time.Now()
	require.NoError(t, s.Stop())
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	select {
	case ok := <-result:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("ReadLine still blocked after Stop")
	}
	<-h.closed

	// Reads after Stop return at once.
	_, ok := s.ReadLine(context.Background())
	assert.False(t, ok)
}

// failingHandle returns a hard error on first read.
type failingHandle struct{ idleHandle }

func (h *failingHandle) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	return nil, gopacket.CaptureInfo{}, errors.New("interface went down")
}

func TestLoopErrorReportedByStop(t *testing.T) {
	h := &failingHandle{idleHandle{closed: make(chan struct{})}}
	s := New(fileOptions(""), nil)
	s.open = func() (packetHandle, error) { return h, nil }
	require.NoError(t, s.Start())
	waitDone(t, s)
	assert.ErrorContains(t, s.Stop(), "interface went down")
}

func toStrings(chunks [][]byte) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = string(c)
	}
	return out
}
