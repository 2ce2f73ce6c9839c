package reassembly

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeqCompare(t *testing.T) {
	tests := []struct {
		a, b   Seq
		diff   int32
		before bool
	}{
		{100, 100, 0, false},
		{100, 200, -100, true},
		{200, 100, 100, false},
		{5, math.MaxUint32 - 4, 10, false},
		{math.MaxUint32 - 4, 5, -10, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.diff, tt.a.Diff(tt.b), "%d - %d", tt.a, tt.b)
		assert.Equal(t, tt.before, tt.a.Before(tt.b), "%d before %d", tt.a, tt.b)
		assert.Equal(t, tt.diff > 0, tt.a.After(tt.b), "%d after %d", tt.a, tt.b)
	}
}

func TestSeqAddWraps(t *testing.T) {
	assert.Equal(t, Seq(4), Seq(math.MaxUint32-5).Add(10))
	assert.Equal(t, Seq(0), Seq(math.MaxUint32).Add(1))
}
