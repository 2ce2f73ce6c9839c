// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CapturePacketsTotal counts frames read by a packet source
	CapturePacketsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hbtap_capture_packets_total",
			Help: "Total number of frames read from a packet source",
		},
		[]string{"source"},
	)

	// ParseErrorsTotal counts frames that could not be parsed, by reason
	ParseErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hbtap_parse_errors_total",
			Help: "Total number of frames skipped by the header parser",
		},
		[]string{"source", "reason"},
	)

	// SegmentsTotal counts admitted segments by outcome
	SegmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hbtap_reassembly_segments_total",
			Help: "Total number of TCP segments admitted, by outcome",
		},
		[]string{"outcome"},
	)

	// EmittedBytesTotal counts bytes released in stream order
	EmittedBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hbtap_reassembly_emitted_bytes_total",
			Help: "Total number of payload bytes delivered in order",
		},
	)

	// DroppedFutureTotal counts future segments dropped because the buffer was full
	DroppedFutureTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hbtap_reassembly_dropped_future_total",
			Help: "Total number of out-of-order segments dropped on buffer overrun",
		},
	)

	// ActiveConnections tracks connections currently being reassembled
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hbtap_active_connections",
			Help: "Number of connections currently tracked",
		},
	)

	// SinkDepth tracks records waiting in the sink queue
	SinkDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hbtap_sink_depth",
			Help: "Number of records waiting to be consumed",
		},
	)

	// OutputRecordsTotal counts records forwarded by an output
	OutputRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hbtap_output_records_total",
			Help: "Total number of records written by an output",
		},
		[]string{"output"},
	)

	// OutputErrorsTotal counts output write failures
	OutputErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hbtap_output_errors_total",
			Help: "Total number of output write failures",
		},
		[]string{"output"},
	)
)
