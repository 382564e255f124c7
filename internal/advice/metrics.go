package advice

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var generationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "vagledaren",
		Subsystem: "advice",
		Name:      "generations_total",
		Help:      "Strategy invocations by kind and outcome.",
	},
	[]string{"kind", "outcome"},
)
