package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission, fee and governance counters, partitioned by chain.

var (
	// Fee oracle
	FeeSourceRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vaultops",
		Subsystem: "gasprice",
		Name:      "source_requests_total",
		Help:      "Fee-estimation source requests by outcome",
	}, []string{"source", "outcome"})

	FeeSourceLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vaultops",
		Subsystem: "gasprice",
		Name:      "source_duration_seconds",
		Help:      "Fee-estimation source request duration",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 1.6, 2.5, 5},
	}, []string{"source"})

	FeeNativeFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vaultops",
		Subsystem: "gasprice",
		Name:      "native_fallbacks_total",
		Help:      "Fee lookups answered by the ledger's own suggestion",
	}, []string{"chain"})

	// Submitter
	TxAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vaultops",
		Subsystem: "submitter",
		Name:      "attempts_total",
		Help:      "Signed transactions broadcast, including replacements",
	}, []string{"chain", "method"})

	TxReplacements = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vaultops",
		Subsystem: "submitter",
		Name:      "replacements_total",
		Help:      "Fee-bumped replacements broadcast after the pending deadline",
	}, []string{"chain", "method"})

	TxOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vaultops",
		Subsystem: "submitter",
		Name:      "outcomes_total",
		Help:      "Submission outcomes: success, reverted, failed",
	}, []string{"chain", "method", "outcome"})

	TxConfirmLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vaultops",
		Subsystem: "submitter",
		Name:      "confirm_duration_seconds",
		Help:      "Time from first broadcast to confirmation",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"chain"})

	// Timelock
	TimelockActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vaultops",
		Subsystem: "timelock",
		Name:      "actions_total",
		Help:      "Timelock actions by stage: scheduled, reused, executed",
	}, []string{"method", "stage"})

	// Migration
	MigrationDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vaultops",
		Subsystem: "migration",
		Name:      "decisions_total",
		Help:      "Migration plans by kind",
	}, []string{"kind"})
)
