// Package sink holds reassembled records until a consumer picks them up.
package sink

import (
	"bytes"
	"context"
	"sync"
	"time"

	"firestige.xyz/hbtap/internal/metrics"
)

const DefaultPollInterval = 100 * time.Millisecond

// Queue is an unbounded FIFO of records shared between one producer and
// any number of consumers.
type Queue struct {
	mu       sync.Mutex
	items    [][]byte
	interval time.Duration

	closeOnce sync.Once
	closed    chan struct{}
}

// NewQueue creates a Queue whose blocking reads re-check at interval.
func NewQueue(interval time.Duration) *Queue {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Queue{
		interval: interval,
		closed:   make(chan struct{}),
	}
}

// Push appends a record. Pushing after Close is allowed; the record can
// still be drained.
func (q *Queue) Push(chunk []byte) {
	q.mu.Lock()
	q.items = append(q.items, chunk)
	n := len(q.items)
	q.mu.Unlock()
	metrics.SinkDepth.Set(float64(n))
}

// Len returns the number of queued records.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain removes and returns every queued record in arrival order.
// It never blocks.
func (q *Queue) Drain() [][]byte {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()
	metrics.SinkDepth.Set(0)
	return items
}

// ReadAll drains the queue and joins the records with sep.
func (q *Queue) ReadAll(sep []byte) []byte {
	return bytes.Join(q.Drain(), sep)
}

// ReadOne waits for the next record. It returns false as soon as the queue
// is closed or ctx is done.
func (q *Queue) ReadOne(ctx context.Context) ([]byte, bool) {
	if item, ok := q.pop(); ok {
		return item, true
	}

	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, false
		case <-q.closed:
			return nil, false
		case <-ticker.C:
			if item, ok := q.pop(); ok {
				return item, true
			}
		}
	}
}

func (q *Queue) pop() ([]byte, bool) {
	select {
	case <-q.closed:
		return nil, false
	default:
	}

	q.mu.Lock()
	if len(q.items) == 0 {
		q.mu.Unlock()
		return nil, false
	}
	item := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	n := len(q.items)
	q.mu.Unlock()
	metrics.SinkDepth.Set(float64(n))
	return item, true
}

// Close raises the stop signal. Blocked and future ReadOne calls return
// immediately. Close is idempotent.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.closed) })
}

// Closed reports whether Close has been called.
func (q *Queue) Closed() bool {
	select {
	case <-q.closed:
		return true
	default:
		return false
	}
}
