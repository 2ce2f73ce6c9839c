//go:build linux

package sniffer

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRingSizes(t *testing.T) {
	page := os.Getpagesize()

	tests := []struct {
		snapLen, blockSize int
	}{
		{65535, 1 << 20},
		{1500, 1 << 20},
		{65535, 1000},
		{100, 3*page + 1},
	}
	for _, tt := range tests {
		frame, block := ringSizes(tt.snapLen, tt.blockSize)
		assert.GreaterOrEqual(t, frame, tt.snapLen)
		assert.Zero(t, frame%page, "frame %d not page aligned", frame)
		assert.Zero(t, block%frame, "block %d not a multiple of frame %d", block, frame)
		assert.GreaterOrEqual(t, block, tt.blockSize)
	}
}
