package reassembly

// Seq is a TCP sequence number. Comparisons are modulo 2^32.
type Seq uint32

// Diff returns the signed distance from b to a, positive when a is after b.
func (a Seq) Diff(b Seq) int32 {
	return int32(uint32(a) - uint32(b))
}

// Before reports whether a precedes b in sequence space.
func (a Seq) Before(b Seq) bool { return a.Diff(b) < 0 }

// After reports whether a follows b in sequence space.
func (a Seq) After(b Seq) bool { return a.Diff(b) > 0 }

// Add advances a by n bytes, wrapping at 2^32.
func (a Seq) Add(n int) Seq {
	return Seq(uint32(a) + uint32(n))
}
