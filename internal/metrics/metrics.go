// Package metrics defines the Prometheus instrumentation for the benchmark
// harness.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	EncodeRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retrievalbench",
			Name:      "encode_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"provider", "model", "status"},
	)

	EncodeRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "retrievalbench",
			Name:      "encode_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "model"},
	)

	EncodeCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retrievalbench",
			Name:      "encode_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	RetrievalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "retrievalbench",
			Name:      "retrieval_duration_seconds",
			Help:      "Corpus retrieval phase duration in seconds",
			Buckets:   []float64{1, 5, 15, 60, 300, 900, 3600},
		},
		[]string{"engine"},
	)

	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retrievalbench",
			Name:      "runs_total",
			Help:      "Total number of benchmark runs",
		},
		[]string{"task", "status"},
	)
)

var registered bool

// Register registers all benchmark metrics. Must be called once from main.
func Register() {
	if registered {
		return
	}
	prometheus.MustRegister(
		EncodeRequestsTotal,
		EncodeRequestDuration,
		EncodeCacheTotal,
		RetrievalDuration,
		RunsTotal,
	)
	registered = true
}
