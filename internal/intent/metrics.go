package intent

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var detectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "vagledaren",
		Subsystem: "intent",
		Name:      "detections_total",
		Help:      "Intent detection outcomes by result.",
	},
	[]string{"result"},
)
