package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Backend metrics
	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anvil_backend_requests_total",
			Help: "Total number of storage backend requests by method and status",
		},
		[]string{"method", "status"},
	)

	// Lifecycle metrics
	PhaseDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "anvil_phase_duration_seconds",
			Help:    "Lifecycle phase duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"phase"},
	)

	PhaseFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anvil_phase_failures_total",
			Help: "Total number of failed lifecycle phases",
		},
		[]string{"phase"},
	)

	// Reconciler metrics
	ResourcesEnsured = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anvil_resources_ensured_total",
			Help: "Total number of ensured resources by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	// Cleanup metrics
	OrphansCleaned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "anvil_orphans_cleaned_total",
			Help: "Total number of orphaned extents and targets deleted",
		},
	)

	OrphanCleanupFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "anvil_orphan_cleanup_failures_total",
			Help: "Total number of failed orphan deletions",
		},
	)
)

func init() {
	prometheus.MustRegister(BackendRequestsTotal)
	prometheus.MustRegister(PhaseDuration)
	prometheus.MustRegister(PhaseFailures)
	prometheus.MustRegister(ResourcesEnsured)
	prometheus.MustRegister(OrphansCleaned)
	prometheus.MustRegister(OrphanCleanupFailures)
}
