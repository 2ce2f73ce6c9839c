// Package sniffer is the capture-driven packet source. A background loop
// reads frames from a capture engine, strips the link layer and feeds a
// flow.Tracker whose ordered output lands in a sink.Queue.
package sniffer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/gopacket"

	"firestige.xyz/hbtap/internal/config"
	"firestige.xyz/hbtap/internal/core"
	"firestige.xyz/hbtap/internal/core/decoder"
	"firestige.xyz/hbtap/internal/flow"
	"firestige.xyz/hbtap/internal/log"
	"firestige.xyz/hbtap/internal/metrics"
	"firestige.xyz/hbtap/internal/reassembly"
	"firestige.xyz/hbtap/internal/sink"
)

// RecordSeparator joins records returned by Read.
var RecordSeparator = []byte("\r\n")

// Options configures a Sniffer.
type Options struct {
	Capture      config.CaptureConfig
	MaxPending   int
	PollInterval time.Duration
}

// Sniffer runs the capture loop. Start and Stop may be called from any
// goroutine; the Tracker is only touched by the loop.
type Sniffer struct {
	opts  Options
	queue *sink.Queue
	log   log.Logger
	open  func() (packetHandle, error)

	mu      sync.Mutex
	started bool
	stop    atomic.Bool
	done    chan struct{}
	err     error
}

// New creates a stopped Sniffer.
func New(opts Options, logger log.Logger) *Sniffer {
	if logger == nil {
		logger = log.Discard()
	}
	s := &Sniffer{
		opts:  opts,
		queue: sink.NewQueue(opts.PollInterval),
		log:   logger.WithField("engine", opts.Capture.Engine),
		done:  make(chan struct{}),
	}
	s.open = func() (packetHandle, error) { return openHandle(opts.Capture) }
	return s
}

// Start opens the capture engine and launches the loop. Engine errors,
// including missing privileges, are returned here.
func (s *Sniffer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return core.ErrAlreadyStarted
	}

	h, err := s.open()
	if err != nil {
		return err
	}
	strip, err := newLinkStripper(h.LinkType())
	if err != nil {
		h.Close()
		return err
	}

	s.started = true
	tracker := flow.NewTracker(s.queue, reassembly.Options{MaxPending: s.opts.MaxPending}, s.log)

	s.log.WithFields(map[string]interface{}{
		"interface": s.opts.Capture.Interface,
		"filter":    s.opts.Capture.Filter,
	}).Info("capture started")

	go s.run(h, strip, tracker)
	return nil
}

func (s *Sniffer) run(h packetHandle, strip *linkStripper, tracker *flow.Tracker) {
	defer close(s.done)
	defer h.Close()
	defer tracker.Reset()

	engine := s.opts.Capture.Engine
	for !s.stop.Load() {
		data, ci, err := h.ReadPacketData()
		if err != nil {
			if errors.Is(err, errReadTimeout) {
				continue
			}
			if errors.Is(err, io.EOF) {
				s.log.Info("capture file exhausted")
				return
			}
			if s.stop.Load() {
				return
			}
			s.log.WithError(err).Error("capture read failed")
			s.err = fmt.Errorf("capture read: %w", err)
			return
		}
		metrics.CapturePacketsTotal.WithLabelValues(engine).Inc()
		s.handleFrame(data, ci, strip, tracker)
	}
	s.log.Info("capture stopped")
}

// handleFrame never fails the loop; bad frames are counted and skipped.
func (s *Sniffer) handleFrame(data []byte, ci gopacket.CaptureInfo, strip *linkStripper, tracker *flow.Tracker) {
	engine := s.opts.Capture.Engine

	ip, err := strip.Strip(data)
	if err != nil {
		metrics.ParseErrorsTotal.WithLabelValues(engine, decoder.Reason(err)).Inc()
		return
	}
	pkt, err := decoder.Decode(ip)
	if err != nil {
		if !errors.Is(err, core.ErrNotTCP) {
			metrics.ParseErrorsTotal.WithLabelValues(engine, decoder.Reason(err)).Inc()
			if s.log.IsDebugEnabled() {
				s.log.WithError(err).Debug("skipping malformed frame")
			}
		}
		return
	}
	pkt.Timestamp = ci.Timestamp
	tracker.Handle(&pkt)
}

// Stop raises the stop flag, wakes blocked readers and waits for the loop
// to exit. Records already queued stay available to Drain. Stop returns the
// error that ended the loop, if any.
func (s *Sniffer) Stop() error {
	s.stop.Store(true)
	s.queue.Close()

	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return nil
	}
	<-s.done
	return s.err
}

// Done is closed when the capture loop has exited, either after Stop or at
// the end of a capture file.
func (s *Sniffer) Done() <-chan struct{} { return s.done }

// ReadLine blocks for the next record. It returns false once the Sniffer is
// stopped or ctx is done.
func (s *Sniffer) ReadLine(ctx context.Context) ([]byte, bool) {
	return s.queue.ReadOne(ctx)
}

// Drain returns every queued record without blocking.
func (s *Sniffer) Drain() [][]byte { return s.queue.Drain() }

// Read drains the queue and joins the records with RecordSeparator.
func (s *Sniffer) Read() []byte { return s.queue.ReadAll(RecordSeparator) }
