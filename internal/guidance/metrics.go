package guidance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vagledaren",
			Subsystem: "guidance",
			Name:      "requests_total",
			Help:      "Guidance requests by routed branch and outcome.",
		},
		[]string{"branch", "outcome"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vagledaren",
			Subsystem: "guidance",
			Name:      "request_duration_seconds",
			Help:      "End-to-end guidance request duration.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"branch"},
	)
)
