package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Auth status cache metrics
var (
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelpick",
			Subsystem: "auth_cache",
			Name:      "lookups_total",
			Help:      "Auth status cache lookups by result (hit, miss, shared)",
		},
		[]string{"result"},
	)

	CacheRefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "modelpick",
			Subsystem: "auth_cache",
			Name:      "refresh_duration_seconds",
			Help:      "Time spent recomputing an auth status",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	CacheInvalidationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "modelpick",
			Subsystem: "auth_cache",
			Name:      "invalidations_total",
			Help:      "Explicit auth status invalidations",
		},
	)
)

// Prober metrics
var (
	ProbeResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelpick",
			Subsystem: "prober",
			Name:      "results_total",
			Help:      "Per-provider probe outcomes (ok, error, timeout)",
		},
		[]string{"outcome"},
	)

	ProbeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "modelpick",
			Subsystem: "prober",
			Name:      "duration_seconds",
			Help:      "Wall-clock time of a full probe",
			Buckets:   []float64{0.1, 0.5, 1, 2, 3, 5, 10},
		},
	)
)

// Credential gateway metrics
var (
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelpick",
			Subsystem: "gateway",
			Name:      "authenticate_total",
			Help:      "Authenticate calls by provider and error kind (empty kind means success)",
		},
		[]string{"provider", "kind"},
	)

	DetectedCredentialsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelpick",
			Subsystem: "gateway",
			Name:      "detected_credentials_total",
			Help:      "Credentials persisted by auto-detect, by source",
		},
		[]string{"source"},
	)
)
