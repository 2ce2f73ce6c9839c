// Package core defines sentinel errors.
package core

import "errors"

var (
	// Construction errors
	ErrPermissionDenied = errors.New("hbtap: permission denied")
	ErrConfigInvalid    = errors.New("hbtap: invalid configuration")

	// Packet decoding errors
	ErrPacketTooShort   = errors.New("hbtap: packet too short")
	ErrUnsupportedProto = errors.New("hbtap: unsupported protocol")
	ErrNotTCP           = errors.New("hbtap: not a tcp segment")

	// Transport errors
	ErrNoData   = errors.New("hbtap: no data within poll timeout")
	ErrSocketIO = errors.New("hbtap: socket read failed")

	// Reassembly errors
	ErrStaleSegment   = errors.New("hbtap: stale segment")
	ErrPendingOverrun = errors.New("hbtap: out-of-order buffer full")

	// Lifecycle errors
	ErrStopped        = errors.New("hbtap: source stopped")
	ErrAlreadyStarted = errors.New("hbtap: source already started")
)
