// Package metrics exposes the Prometheus collectors recorded by the workflow service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesops_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "salesops_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Workflow metrics
var (
	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesops_workflow_decisions_total",
			Help: "Approval decisions committed, by stage and decision",
		},
		[]string{"stage", "decision"},
	)

	DecisionConflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesops_workflow_decision_conflicts_total",
			Help: "Decisions rejected because the stage was already decided",
		},
		[]string{"stage"},
	)

	RoutingOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesops_workflow_routing_outcomes_total",
			Help: "Technical recommendation approvals by routing outcome",
		},
		[]string{"outcome"},
	)

	ValidationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesops_workflow_validation_failures_total",
			Help: "Approval submissions blocked by validation",
		},
		[]string{"stage", "reason"},
	)

	ConvergencesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "salesops_workflow_convergences_total",
			Help: "RFQ items merged into a quotation waiting for them",
		},
	)
)

// Inventory metrics
var (
	InventoryLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesops_inventory_lookups_total",
			Help: "Inventory catalog lookups by source (cache, remote) and status",
		},
		[]string{"source", "status"},
	)

	InventoryLookupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "salesops_inventory_lookup_duration_seconds",
			Help:    "Latency of remote inventory catalog calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)
)

// Archive metrics
var (
	ArchiveWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesops_archive_writes_total",
			Help: "Decision snapshots written to object storage",
		},
		[]string{"driver", "status"},
	)

	ArchiveWriteBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "salesops_archive_write_bytes",
			Help:    "Size of archived decision snapshots",
			Buckets: []float64{256, 1024, 4096, 16384, 65536, 262144},
		},
	)
)

// RecordDecision counts a committed decision.
func RecordDecision(stage, decision string) {
	DecisionsTotal.WithLabelValues(stage, decision).Inc()
}

// RecordConflict counts a decision that lost the race for an open stage.
func RecordConflict(stage string) {
	DecisionConflictsTotal.WithLabelValues(stage).Inc()
}

// RecordRouting counts an approved recommendation by outcome (all_rfq, all_direct, mixed).
func RecordRouting(outcome string) {
	RoutingOutcomesTotal.WithLabelValues(outcome).Inc()
}

// RecordValidationFailure counts a blocked submission.
func RecordValidationFailure(stage, reason string) {
	ValidationFailuresTotal.WithLabelValues(stage, reason).Inc()
}

// RecordConvergence counts a merge of RFQ items into a waiting quotation.
func RecordConvergence() {
	ConvergencesTotal.Inc()
}

// RecordArchiveWrite counts an archive write and, when it succeeded, its size.
func RecordArchiveWrite(driver string, size int, err error) {
	if err != nil {
		ArchiveWritesTotal.WithLabelValues(driver, "error").Inc()
		return
	}
	ArchiveWritesTotal.WithLabelValues(driver, "success").Inc()
	ArchiveWriteBytes.Observe(float64(size))
}
