// Package flow maps observed TCP flows to their reassembly state.
package flow

import (
	"firestige.xyz/hbtap/internal/core"
	"firestige.xyz/hbtap/internal/log"
	"firestige.xyz/hbtap/internal/metrics"
	"firestige.xyz/hbtap/internal/reassembly"
)

// Sink receives ordered chunks.
type Sink interface {
	Push(chunk []byte)
}

// Tracker owns one reassembly.Stream per tracked flow. It is not safe for
// concurrent use; the capture loop is its only caller.
type Tracker struct {
	streams map[core.FlowID]*reassembly.Stream
	opts    reassembly.Options
	sink    Sink
	log     log.Logger
}

// NewTracker creates an empty Tracker that pushes ordered chunks to sink.
func NewTracker(sink Sink, opts reassembly.Options, logger log.Logger) *Tracker {
	if logger == nil {
		logger = log.Discard()
	}
	return &Tracker{
		streams: make(map[core.FlowID]*reassembly.Stream),
		opts:    opts,
		sink:    sink,
		log:     logger,
	}
}

// Handle processes one parsed TCP segment. The returned bool is false when
// the segment did not belong to a tracked flow.
func (t *Tracker) Handle(pkt *core.ParsedPacket) (reassembly.Result, bool) {
	id := core.FlowOf(pkt)
	flags := pkt.TCP.Flags

	// The opener's SYN names the reverse direction: the answering side is
	// the one whose payload is reassembled.
	if flags.IsSYN() {
		t.open(id.Reverse())
		return reassembly.Result{Kind: reassembly.NoPayload, Seq: pkt.TCP.Seq}, true
	}

	// Frames of the opening direction, and of untracked flows, are skipped.
	stream, ok := t.streams[id]
	if !ok {
		return reassembly.Result{}, false
	}

	res := stream.Admit(pkt.TCP.Seq, pkt.Payload)
	metrics.RecordResult(res)
	for _, c := range res.Chunks {
		t.sink.Push(c)
	}

	if flags.IsTeardown() {
		t.close(id)
	}
	return res, true
}

// Len returns the number of tracked flows.
func (t *Tracker) Len() int { return len(t.streams) }

// Stream returns the state tracked for id.
func (t *Tracker) Stream(id core.FlowID) (*reassembly.Stream, bool) {
	s, ok := t.streams[id]
	return s, ok
}

// Reset forgets every tracked flow.
func (t *Tracker) Reset() {
	for id := range t.streams {
		t.close(id)
	}
}

func (t *Tracker) open(id core.FlowID) {
	if _, exists := t.streams[id]; exists {
		t.log.WithField("flow", id.String()).Debug("repeated SYN, resetting stream")
	} else {
		metrics.ActiveConnections.Inc()
	}
	t.streams[id] = reassembly.NewStream(id, t.opts, t.log)
	t.log.WithField("flow", id.String()).Info("connection opened")
}

func (t *Tracker) close(id core.FlowID) {
	s, ok := t.streams[id]
	if !ok {
		return
	}
	delete(t.streams, id)
	metrics.ActiveConnections.Dec()

	st := s.Stats()
	t.log.WithFields(map[string]interface{}{
		"flow":    id.String(),
		"bytes":   st.EmittedBytes,
		"pending": s.Pending(),
	}).Info("connection closed")
}
