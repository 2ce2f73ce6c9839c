// Package rawsock reads one TCP stream straight off an IPv4 raw socket.
//
// A Socket follows a single server port and feeds every matching segment
// into one implicit reassembly.Stream. Callers drive it with Poll.
package rawsock

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"firestige.xyz/hbtap/internal/config"
	"firestige.xyz/hbtap/internal/core"
	"firestige.xyz/hbtap/internal/core/decoder"
	"firestige.xyz/hbtap/internal/log"
	"firestige.xyz/hbtap/internal/metrics"
	"firestige.xyz/hbtap/internal/reassembly"
)

const sourceLabel = "raw_socket"

// maxDatagram is large enough for any IPv4 datagram.
const maxDatagram = 65535

// errWouldBlock reports that no datagram arrived within one wait slice.
var errWouldBlock = errors.New("rawsock: no datagram ready")

// packetConn is the datagram reader under a Socket.
type packetConn interface {
	// ReadPacket waits at most timeout for one IPv4 datagram.
	// It returns errWouldBlock when none arrived.
	ReadPacket(buf []byte, timeout time.Duration) (int, error)
	Close() error
}

// Socket is the raw-socket packet source.
type Socket struct {
	conn     packetConn
	port     uint16
	timeout  time.Duration
	interval time.Duration
	stream   *reassembly.Stream
	buf      []byte
	closed   bool
	log      log.Logger
}

// New opens the raw socket, binds it and enables header inclusion. Missing
// privileges are reported here as core.ErrPermissionDenied.
func New(cfg config.RawSocketConfig, opts reassembly.Options, logger log.Logger) (*Socket, error) {
	if logger == nil {
		logger = log.Discard()
	}
	conn, local, err := openConn(cfg, logger)
	if err != nil {
		return nil, err
	}
	return newSocket(conn, local, cfg, opts, logger), nil
}

func newSocket(conn packetConn, local netip.Addr, cfg config.RawSocketConfig, opts reassembly.Options, logger log.Logger) *Socket {
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	interval := cfg.ReadInterval
	if interval <= 0 || interval > timeout {
		interval = timeout
	}
	id := core.FlowID{SrcAddr: local, SrcPort: cfg.Port, DstAddr: local}
	logger = logger.WithField("port", cfg.Port)
	return &Socket{
		conn:     conn,
		port:     cfg.Port,
		timeout:  timeout,
		interval: interval,
		stream:   reassembly.NewStream(id, opts, logger),
		buf:      make([]byte, maxDatagram),
		log:      logger,
	}
}

// Poll reads datagrams until one from the configured source port arrives
// and returns what reassembly made of it. When nothing matches within the
// poll timeout it returns a NoData result wrapping core.ErrNoData; it never
// returns earlier than the timeout unless ctx ends or the socket fails.
func (s *Socket) Poll(ctx context.Context) reassembly.Result {
	if s.closed {
		return reassembly.Result{Kind: reassembly.NoData, Err: core.ErrStopped}
	}
	deadline := time.Now().Add(s.timeout)
	for {
		if err := ctx.Err(); err != nil {
			return reassembly.Result{Kind: reassembly.NoData, Err: err}
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			s.log.Debugf("no data available at port %d", s.port)
			return reassembly.Result{Kind: reassembly.NoData, Err: core.ErrNoData}
		}

		n, err := s.conn.ReadPacket(s.buf, min(s.interval, remaining))
		if errors.Is(err, errWouldBlock) {
			continue
		}
		if err != nil {
			s.log.WithError(err).Error("raw socket read failed")
			return reassembly.Result{Kind: reassembly.NoData, Err: fmt.Errorf("%w: %v", core.ErrSocketIO, err)}
		}
		metrics.CapturePacketsTotal.WithLabelValues(sourceLabel).Inc()

		pkt, err := decoder.Decode(s.buf[:n])
		if err != nil {
			if !errors.Is(err, core.ErrNotTCP) {
				metrics.ParseErrorsTotal.WithLabelValues(sourceLabel, decoder.Reason(err)).Inc()
				s.log.WithError(err).Debug("skipping malformed datagram")
			}
			continue
		}
		if pkt.TCP.SrcPort != s.port {
			continue
		}

		res := s.stream.Admit(pkt.TCP.Seq, pkt.Payload)
		metrics.RecordResult(res)
		return res
	}
}

// Expected exposes the reassembly baseline of the followed stream.
func (s *Socket) Expected() (uint32, bool) { return s.stream.Expected() }

// Stats returns the counters of the followed stream.
func (s *Socket) Stats() reassembly.Stats { return s.stream.Stats() }

// Close releases the socket. Later Poll calls return at once.
func (s *Socket) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}
