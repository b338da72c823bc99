package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProviderCalls counts provider searches by provider and outcome
	// (ok, transport_error, response_error, circuit_open, error).
	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobsight_provider_calls_total",
			Help: "Total number of provider searches",
		},
		[]string{"provider", "outcome"},
	)

	// ProviderDuration tracks wall time of a provider search including retries.
	ProviderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jobsight_provider_duration_seconds",
			Help:    "Duration of provider searches in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
		[]string{"provider"},
	)

	// BreakerState is 0 for closed, 1 for open and 2 for half-open.
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "jobsight_breaker_state",
			Help: "Circuit breaker state per provider (0 closed, 1 open, 2 half-open)",
		},
		[]string{"provider"},
	)

	// PostingsIngested counts postings inserted for the first time.
	PostingsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobsight_postings_ingested_total",
			Help: "Total number of newly stored postings",
		},
		[]string{"provider"},
	)

	// DuplicatesSkipped counts postings that were already stored.
	DuplicatesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jobsight_duplicates_skipped_total",
			Help: "Total number of postings skipped because they were already stored",
		},
	)

	// RunDuration tracks SearchAndStore runs end to end.
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "jobsight_aggregation_duration_seconds",
			Help:    "Duration of aggregation runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)
)
