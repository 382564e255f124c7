package catalog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "vagledaren"

var (
	// cacheLookupsTotal counts lookups against the materialized collections.
	// Labels:
	//   - collection: schools, programs
	//   - result: hit, miss
	cacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "catalog",
			Name:      "cache_lookups_total",
			Help:      "Total number of catalog cache lookups",
		},
		[]string{"collection", "result"},
	)

	// buildDuration measures how long a full collection rebuild takes,
	// including the per-item detail fan-out.
	buildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "catalog",
			Name:      "build_duration_seconds",
			Help:      "Duration of full catalog collection builds in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"collection"},
	)

	// itemsDroppedTotal counts detail records dropped during a build
	// (fetch failure or missing required fields).
	itemsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "catalog",
			Name:      "items_dropped_total",
			Help:      "Total number of items dropped during catalog builds",
		},
		[]string{"collection", "reason"},
	)

	// refreshesTotal counts explicit refresh operations.
	// Labels:
	//   - collection: schools, programs
	//   - status: success, error
	refreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "catalog",
			Name:      "refreshes_total",
			Help:      "Total number of explicit catalog refreshes",
		},
		[]string{"collection", "status"},
	)
)
