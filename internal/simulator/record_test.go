package simulator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatRecord(t *testing.T) {
	rec := FormatRecord(Sample{Left: 0x8000, Right: 0x01FF})
	assert.True(t, strings.HasPrefix(rec, "D.06-80-00-01-FF-00-"))
	assert.Len(t, strings.Split(rec, "-"), 36)
	assert.False(t, strings.HasSuffix(rec, "-"))
}

func TestParseRecord(t *testing.T) {
	want := Sample{Left: 0x1234, Right: 0xFEDC}
	got, err := ParseRecord(FormatRecord(want) + "\r\n")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	for _, bad := range []string{"", "D.06-00", "X.06" + FormatRecord(want)[4:], strings.Replace(FormatRecord(want), "12", "ZZ", 1)} {
		_, err := ParseRecord(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestDescaleEEG(t *testing.T) {
	assert.Equal(t, uint16(32768), DescaleEEG(0))
	assert.Equal(t, uint16(65535), DescaleEEG(10000))
	assert.Equal(t, uint16(0), DescaleEEG(-10000))
}
