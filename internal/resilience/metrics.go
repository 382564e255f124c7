package resilience

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	attemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vagledaren",
			Subsystem: "resilience",
			Name:      "attempts_total",
			Help:      "Wrapped call attempts by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)

	retriesExhaustedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vagledaren",
			Subsystem: "resilience",
			Name:      "retries_exhausted_total",
			Help:      "Calls that failed after the full attempt budget.",
		},
		[]string{"op"},
	)
)
