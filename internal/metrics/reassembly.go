package metrics

import "firestige.xyz/hbtap/internal/reassembly"

// RecordResult counts one admitted segment by its reassembly outcome.
func RecordResult(res reassembly.Result) {
	switch res.Kind {
	case reassembly.Data:
		SegmentsTotal.WithLabelValues("in_order").Inc()
		if n := len(res.Chunks) - 1; n > 0 {
			SegmentsTotal.WithLabelValues("drained").Add(float64(n))
		}
		for _, c := range res.Chunks {
			EmittedBytesTotal.Add(float64(len(c)))
		}
	case reassembly.FutureSegment:
		if res.Err != nil {
			DroppedFutureTotal.Inc()
			return
		}
		SegmentsTotal.WithLabelValues("future").Inc()
	case reassembly.PastSegment:
		SegmentsTotal.WithLabelValues("past").Inc()
	}
}
