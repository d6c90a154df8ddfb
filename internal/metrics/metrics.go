package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Packet flow metrics
	PacketsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dp_datalaster_inntekt_packets_total",
			Help: "Total number of packets read, by outcome",
		},
		[]string{"outcome"},
	)

	PacketsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dp_datalaster_inntekt_packets_skipped_total",
			Help: "Total number of ineligible packets, by rejecting predicate",
		},
		[]string{"reason"},
	)

	ProblemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dp_datalaster_inntekt_problems_total",
			Help: "Total number of problems attached to packets, by problem type",
		},
		[]string{"type"},
	)

	// Income service metrics
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dp_datalaster_inntekt_fetch_duration_seconds",
			Help:    "Duration of calls to dp-inntekt-api in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	// Log metrics
	PublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dp_datalaster_inntekt_publish_errors_total",
			Help: "Total number of failed republish attempts",
		},
	)

	DLQTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dp_datalaster_inntekt_dlq_total",
			Help: "Total number of messages written to the dead-letter stream",
		},
		[]string{"reason"},
	)

	TogglePaused = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dp_datalaster_inntekt_toggle_paused_total",
			Help: "Total number of packets deferred because the stage is toggled off",
		},
	)

	PartitionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dp_datalaster_inntekt_partitions_active",
			Help: "Number of partition workers currently consuming",
		},
	)
)

// Outcomes of a packet.
const (
	OutcomeEnriched = "enriched"
	OutcomeFailed   = "failed"
	OutcomeSkipped  = "skipped"
	OutcomeDeferred = "deferred"
	OutcomeDLQ      = "dlq"
	OutcomeRetry    = "retry"
)
