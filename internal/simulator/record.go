package simulator

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// recordPrefix opens every sample line sent by the headband.
const recordPrefix = "D.06"

// recordFields is the number of byte fields after the prefix: two 16-bit
// EEG words followed by zeroed auxiliary channels.
const recordFields = 35

// eegRangeUV is the full-scale EEG range in microvolts.
const eegRangeUV = 3952

// Sample is one decoded record: raw 16-bit word values, no unit conversion.
type Sample struct {
	Left  uint16
	Right uint16
}

// DescaleEEG converts microvolts to the device word value.
func DescaleEEG(uv float64) uint16 {
	d := uv*65536/eegRangeUV + 32768
	return uint16(math.Max(0, math.Min(65535, d)))
}

// FormatRecord renders s as a record line without its terminator.
func FormatRecord(s Sample) string {
	var b strings.Builder
	b.Grow(len(recordPrefix) + recordFields*3)
	b.WriteString(recordPrefix)
	fmt.Fprintf(&b, "-%02X-%02X-%02X-%02X", s.Left>>8, s.Left&0xFF, s.Right>>8, s.Right&0xFF)
	for i := 4; i < recordFields; i++ {
		b.WriteString("-00")
	}
	return b.String()
}

// ParseRecord decodes a record line; a trailing "\r\n" is tolerated.
func ParseRecord(line string) (Sample, error) {
	line = strings.TrimRight(line, "\r\n")
	fields := strings.Split(line, "-")
	if len(fields) != recordFields+1 || fields[0] != recordPrefix {
		return Sample{}, fmt.Errorf("malformed record %q", line)
	}
	var raw [4]uint16
	for i := range raw {
		v, err := strconv.ParseUint(fields[i+1], 16, 8)
		if err != nil {
			return Sample{}, fmt.Errorf("malformed record field %d: %w", i+1, err)
		}
		raw[i] = uint16(v)
	}
	return Sample{Left: raw[0]<<8 | raw[1], Right: raw[2]<<8 | raw[3]}, nil
}
