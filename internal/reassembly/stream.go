// Package reassembly rebuilds the ordered byte stream of one TCP direction.
package reassembly

import (
	"fmt"

	"firestige.xyz/hbtap/internal/core"
	"firestige.xyz/hbtap/internal/log"
)

// Options tune a Stream.
type Options struct {
	// MaxPending caps the number of buffered out-of-order segments.
	// Zero means unbounded.
	MaxPending int
}

// Stats counts what a Stream has done with the segments it was given.
type Stats struct {
	Segments      uint64
	InOrder       uint64
	Drained       uint64
	Future        uint64
	Past          uint64
	DroppedFuture uint64
	Pruned        uint64
	EmittedBytes  uint64
}

// Stream is the reassembly state of one flow. It is not safe for
// concurrent use; the owner serializes calls.
type Stream struct {
	id         core.FlowID
	expected   Seq
	anchored   bool
	pending    map[Seq][]byte
	maxPending int
	stats      Stats
	log        log.Logger
}

// NewStream returns a Stream with no baseline. The first payload anchors it.
func NewStream(id core.FlowID, opts Options, logger log.Logger) *Stream {
	if logger == nil {
		logger = log.Discard()
	}
	return &Stream{
		id:         id,
		pending:    make(map[Seq][]byte),
		maxPending: opts.MaxPending,
		log:        logger.WithField("flow", id.String()),
	}
}

// ID returns the flow this Stream reassembles.
func (s *Stream) ID() core.FlowID { return s.id }

// Expected returns the next deliverable sequence number, or false when no
// payload has been seen yet.
func (s *Stream) Expected() (uint32, bool) {
	return uint32(s.expected), s.anchored
}

// Anchor sets the baseline explicitly. It has no effect once anchored.
func (s *Stream) Anchor(seq uint32) {
	if s.anchored {
		return
	}
	s.expected = Seq(seq)
	s.anchored = true
}

// Pending returns the number of buffered out-of-order segments.
func (s *Stream) Pending() int { return len(s.pending) }

// Stats returns a copy of the counters.
func (s *Stream) Stats() Stats { return s.stats }

// Admit feeds one segment. The payload is copied when it has to be kept.
func (s *Stream) Admit(seq uint32, payload []byte) Result {
	if len(payload) == 0 {
		return Result{Kind: NoPayload, Seq: seq, Expected: uint32(s.expected)}
	}
	s.stats.Segments++

	if !s.anchored {
		s.Anchor(seq)
		s.log.Debugf("anchored at seq %d", seq)
	}

	cur := Seq(seq)
	switch diff := cur.Diff(s.expected); {
	case diff == 0:
		return s.deliver(cur, payload)
	case diff > 0:
		return s.buffer(cur, payload)
	default:
		s.stats.Past++
		s.log.WithError(core.ErrStaleSegment).Debugf("seq %d behind expected %d", seq, uint32(s.expected))
		return Result{Kind: PastSegment, Seq: seq, Expected: uint32(s.expected)}
	}
}

func (s *Stream) deliver(seq Seq, payload []byte) Result {
	chunks := [][]byte{clone(payload)}
	s.expected = seq.Add(len(payload))
	s.stats.InOrder++
	s.stats.EmittedBytes += uint64(len(payload))

	for {
		next, ok := s.pending[s.expected]
		if !ok {
			break
		}
		delete(s.pending, s.expected)
		chunks = append(chunks, next)
		s.expected = s.expected.Add(len(next))
		s.stats.Drained++
		s.stats.EmittedBytes += uint64(len(next))
	}
	if len(s.pending) > 0 {
		s.prune()
	}
	return Result{Kind: Data, Chunks: chunks, Seq: uint32(seq), Expected: uint32(s.expected)}
}

func (s *Stream) buffer(seq Seq, payload []byte) Result {
	res := Result{Kind: FutureSegment, Seq: uint32(seq), Expected: uint32(s.expected)}
	if _, dup := s.pending[seq]; dup {
		return res
	}
	if s.maxPending > 0 && len(s.pending) >= s.maxPending {
		s.stats.DroppedFuture++
		res.Err = fmt.Errorf("%w: %d segments buffered", core.ErrPendingOverrun, len(s.pending))
		s.log.WithError(res.Err).Warnf("dropping future seq %d", uint32(seq))
		return res
	}
	s.pending[seq] = clone(payload)
	s.stats.Future++
	return res
}

// prune removes buffered segments that now start behind expected. They can
// never be released by the chain because keys must match exactly.
func (s *Stream) prune() {
	for seq := range s.pending {
		if seq.Before(s.expected) {
			delete(s.pending, seq)
			s.stats.Pruned++
		}
	}
}

func clone(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
