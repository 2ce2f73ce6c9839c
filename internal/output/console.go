package output

import (
	"context"
	"io"
	"os"
	"sync"
)

// Console prints one record per line.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole writes to w, or stdout when w is nil.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = os.Stdout
	}
	return &Console{w: w}
}

func (c *Console) Name() string { return "console" }

func (c *Console) Write(_ context.Context, line []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.w.Write(line); err != nil {
		return err
	}
	_, err := io.WriteString(c.w, "\n")
	return err
}

func (c *Console) Close() error { return nil }
