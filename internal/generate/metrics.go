package generate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "vagledaren"

var (
	// requestsTotal counts generation calls.
	// Labels:
	//   - op: complete, stream
	//   - status: success, error
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "generation",
			Name:      "requests_total",
			Help:      "Total number of generation requests",
		},
		[]string{"op", "status"},
	)

	// requestDuration measures synchronous generation latency.
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "generation",
			Name:      "request_duration_seconds",
			Help:      "Duration of generation requests in seconds",
			Buckets:   []float64{0.5, 1, 2, 3, 5, 7, 10, 15, 20, 30, 45, 60, 90},
		},
		[]string{"op"},
	)

	// tokensTotal counts tokens reported by the generation service.
	// Labels:
	//   - kind: prompt, completion
	tokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "generation",
			Name:      "tokens_total",
			Help:      "Total number of tokens consumed",
		},
		[]string{"kind"},
	)
)
