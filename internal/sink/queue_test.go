package sink

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue(10 * time.Millisecond)
	q.Push([]byte("a"))
	q.Push([]byte("b"))
	q.Push([]byte("c"))
	assert.Equal(t, 3, q.Len())

	got, ok := q.ReadOne(context.Background())
	require.True(t, ok)
	assert.Equal(t, "a", string(got))

	assert.Equal(t, [][]byte{[]byte("b"), []byte("c")}, q.Drain())
	assert.Zero(t, q.Len())
	assert.Empty(t, q.Drain())
}

func TestQueueReadAll(t *testing.T) {
	q := NewQueue(0)
	q.Push([]byte("D.06-01"))
	q.Push([]byte("D.06-02"))
	assert.Equal(t, "D.06-01\r\nD.06-02", string(q.ReadAll([]byte("\r\n"))))
	assert.Empty(t, q.ReadAll([]byte("\r\n")))
}

func TestReadOneWaitsForPush(t *testing.T) {
	q := NewQueue(5 * time.Millisecond)

	go func() {
		time.Sleep(20 * time.Millisecond)
		q.Push([]byte("late"))
	}()

	got, ok := q.ReadOne(context.Background())
	require.True(t, ok)
	assert.Equal(t, "late", string(got))
}

func TestReadOneReturnsOnClose(t *testing.T) {
	q := NewQueue(time.Hour)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, ok := q.ReadOne(context.Background())
		assert.False(t, ok)
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ReadOne did not return after Close")
	}

	// Reads after Close return immediately even with queued records.
	q.Push([]byte("x"))
	start := time.Now()
	_, ok := q.ReadOne(context.Background())
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
	assert.True(t, q.Closed())
	q.Close()
}

func TestReadOneContextCancel(t *testing.T) {
	q := NewQueue(time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, ok := q.ReadOne(ctx)
	assert.False(t, ok)
}

func TestQueueConcurrentPush(t *testing.T) {
	q := NewQueue(time.Millisecond)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.Push([]byte{byte(j)})
			}
		}()
	}
	wg.Wait()
	assert.Len(t, q.Drain(), 800)
}
