// Package metrics registers the Prometheus collectors of the pack picker.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Simulation
	SimulationRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "packpicker_simulation_runs_total",
			Help: "Full refresh simulations by outcome",
		},
		[]string{"outcome"}, // "ok", "timeout", "error"
	)

	SimulationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "packpicker_simulation_duration_seconds",
			Help:    "Wall time of a full refresh simulation",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	CatalogInconsistencies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "packpicker_catalog_inconsistencies_total",
			Help: "Drop-rate rows that could not be used as configured",
		},
		[]string{"reason"},
	)

	// Snapshot cache
	SnapshotRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "packpicker_snapshot_requests_total",
			Help: "Pack picker reads by cache state",
		},
		[]string{"state"}, // "fresh", "stale", "rate_limited", "coalesced"
	)

	SnapshotWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "packpicker_snapshot_write_failures_total",
			Help: "Refresh results that could not be persisted",
		},
	)

	// HTTP
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "packpicker_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// ObserveHTTP records one request.
func ObserveHTTP(method, route string, status int, d time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
