package reassembly

import "bytes"

// Kind tags the outcome of feeding one segment, or of one Poll call.
type Kind int

const (
	// NoData means nothing matching arrived before the poll deadline.
	NoData Kind = iota
	// Data carries one or more ordered chunks.
	Data
	// FutureSegment means the segment was buffered ahead of the gap.
	FutureSegment
	// PastSegment means the segment was behind the stream and discarded.
	PastSegment
	// NoPayload means the segment carried no bytes.
	NoPayload
)

func (k Kind) String() string {
	switch k {
	case NoData:
		return "no_data"
	case Data:
		return "data"
	case FutureSegment:
		return "future_segment"
	case PastSegment:
		return "past_segment"
	case NoPayload:
		return "no_payload"
	default:
		return "unknown"
	}
}

// Result is the tagged outcome of admitting a segment.
type Result struct {
	Kind Kind
	// Chunks are the payloads released in stream order. Only set for Data.
	Chunks [][]byte
	// Seq is the sequence number of the segment that produced this result.
	Seq uint32
	// Expected is the next deliverable sequence number after admission.
	Expected uint32
	// Err explains a NoData result (socket failure) or a dropped segment.
	Err error
}

// Bytes concatenates all chunks.
func (r Result) Bytes() []byte {
	return bytes.Join(r.Chunks, nil)
}
