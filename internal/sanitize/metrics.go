package sanitize

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	inputRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vagledaren",
			Subsystem: "sanitize",
			Name:      "input_rejected_total",
			Help:      "User messages rejected before processing.",
		},
		[]string{"reason"},
	)

	suspiciousInputTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vagledaren",
			Subsystem: "sanitize",
			Name:      "suspicious_input_total",
			Help:      "User messages that matched a suspicious pattern.",
		},
	)

	outputScrubbedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vagledaren",
			Subsystem: "sanitize",
			Name:      "output_scrubbed_total",
			Help:      "Generated responses with leaked structural text removed.",
		},
	)
)
