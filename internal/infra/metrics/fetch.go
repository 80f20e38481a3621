package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		ciFetchBytes,
		ciFetchLatencyMs,
	)
}

var (
	ciFetchBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ci_fetch_bytes_total",
			Help: "Sum of console log bytes fetched per HTTP status.",
		},
		[]string{"status"},
	)

	ciFetchLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ci_fetch_latency_ms",
			Help:    "Console log fetch latency distribution in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000, 10000},
		},
		[]string{"status"},
	)
)

// ObserveFetch records one console log fetch attempt. status is the HTTP
// status code, or 0 when the request never completed.
func ObserveFetch(status int, bytes int, latencyMs int64) {
	s := strconv.Itoa(status)
	ciFetchBytes.WithLabelValues(s).Add(float64(bytes))
	ciFetchLatencyMs.WithLabelValues(s).Observe(float64(latencyMs))
}
