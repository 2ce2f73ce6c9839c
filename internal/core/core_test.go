package core

import (
	"errors"
	"fmt"
	"net/netip"
	"testing"
)

// Test zero values of core structs
func TestStructZeroValues(t *testing.T) {
	t.Run("IPHeader", func(t *testing.T) {
		var ip IPHeader
		if ip.Version != 0 {
			t.Errorf("expected Version=0, got %d", ip.Version)
		}
		if ip.SrcIP.IsValid() {
			t.Errorf("expected invalid SrcIP, got %v", ip.SrcIP)
		}
		if ip.DstIP.IsValid() {
			t.Errorf("expected invalid DstIP, got %v", ip.DstIP)
		}
	})

	t.Run("ParsedPacket", func(t *testing.T) {
		var p ParsedPacket
		if p.IsTCP() {
			t.Error("expected zero packet not to be TCP")
		}
		if p.Payload != nil {
			t.Errorf("expected Payload=nil, got %v", p.Payload)
		}
	})
}

func TestTCPFlags(t *testing.T) {
	tests := []struct {
		flags    TCPFlags
		syn      bool
		teardown bool
		str      string
	}{
		{FlagSYN, true, false, "S"},
		{FlagSYN | FlagACK, false, false, "SA"},
		{FlagACK, false, false, "A"},
		{FlagPSH | FlagACK, false, false, "PA"},
		{FlagFIN, false, true, "F"},
		{FlagFIN | FlagACK, false, true, "FA"},
		{FlagFIN | FlagPSH | FlagACK, false, true, "FPA"},
		{FlagRST, false, true, "R"},
		{FlagRST | FlagACK, false, true, "RA"},
		{FlagFIN | FlagSYN, true, false, "SF"},
		{0, false, false, "."},
	}

	for _, tt := range tests {
		t.Run(tt.str, func(t *testing.T) {
			if got := tt.flags.IsSYN(); got != tt.syn {
				t.Errorf("IsSYN() = %v, expected %v", got, tt.syn)
			}
			if got := tt.flags.IsTeardown(); got != tt.teardown {
				t.Errorf("IsTeardown() = %v, expected %v", got, tt.teardown)
			}
			if got := tt.flags.String(); got != tt.str {
				t.Errorf("String() = %q, expected %q", got, tt.str)
			}
		})
	}
}

// Test sentinel errors
func TestSentinelErrors(t *testing.T) {
	t.Run("ErrorWrapping", func(t *testing.T) {
		wrapped := fmt.Errorf("open raw socket: %w", ErrPermissionDenied)
		if !errors.Is(wrapped, ErrPermissionDenied) {
			t.Error("errors.Is failed for wrapped error")
		}
		if errors.Is(wrapped, ErrSocketIO) {
			t.Error("wrapped permission error must not match ErrSocketIO")
		}
	})

	t.Run("ErrorMessages", func(t *testing.T) {
		tests := []struct {
			err     error
			message string
		}{
			{ErrPermissionDenied, "hbtap: permission denied"},
			{ErrPacketTooShort, "hbtap: packet too short"},
			{ErrNotTCP, "hbtap: not a tcp segment"},
			{ErrNoData, "hbtap: no data within poll timeout"},
			{ErrStaleSegment, "hbtap: stale segment"},
		}

		for _, tt := range tests {
			if tt.err.Error() != tt.message {
				t.Errorf("expected error message %q, got %q", tt.message, tt.err.Error())
			}
		}
	})
}

func TestFlowID(t *testing.T) {
	pkt := ParsedPacket{
		IP:  IPHeader{SrcIP: netip.MustParseAddr("10.0.0.1"), DstIP: netip.MustParseAddr("10.0.0.2")},
		TCP: TCPHeader{SrcPort: 8000, DstPort: 50123},
	}

	id := FlowOf(&pkt)
	if id.String() != "10.0.0.1:8000->10.0.0.2:50123" {
		t.Errorf("unexpected String(): %s", id)
	}

	rev := id.Reverse()
	if rev.SrcPort != 50123 || rev.DstPort != 8000 {
		t.Errorf("unexpected reverse ports: %+v", rev)
	}
	if rev.Reverse() != id {
		t.Error("Reverse() must be an involution")
	}

	m := map[FlowID]int{id: 1}
	if _, ok := m[rev]; ok {
		t.Error("reverse flow must be a distinct key")
	}
}
