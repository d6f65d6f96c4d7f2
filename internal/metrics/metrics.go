// Waypointd - Location Event Ingestion and History
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypointd

// Package metrics provides Prometheus instrumentation for the ingestion
// pipeline: ingest outcomes, enrichment, storage, notification delivery,
// circuit breaker state, and the HTTP surface.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingest outcome label values.
const (
	OutcomeRecorded         = "recorded"
	OutcomeDuplicate        = "duplicate"
	OutcomeValidationError  = "validation_error"
	OutcomePersistenceError = "persistence_error"
)

var (
	// Ingestion pipeline metrics
	IngestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waypointd_ingests_total",
			Help: "Total number of ingestion requests by outcome",
		},
		[]string{"outcome"},
	)

	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "waypointd_ingest_duration_seconds",
			Help:    "End-to-end ingestion duration in seconds (excluding notification delivery)",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Address enrichment metrics
	EnrichmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waypointd_enrichments_total",
			Help: "Total number of reverse-geocoding enrichment attempts by result",
		},
		[]string{"result"}, // "success", "empty", "failure"
	)

	// History store metrics
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "waypointd_store_operation_duration_seconds",
			Help:    "Duration of history store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // "load", "save", "history"
	)

	BackupSnapshotsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "waypointd_backup_snapshots_total",
			Help: "Total number of pre-truncation backup snapshots written",
		},
	)

	MalformedRecordsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "waypointd_malformed_records_total",
			Help: "Total number of stored records replaced because they were unreadable",
		},
	)

	// Notification metrics
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waypointd_notifications_total",
			Help: "Total number of notification deliveries by result",
		},
		[]string{"result"}, // "sent", "failed", "dropped"
	)

	// Circuit breaker metrics (external collaborators)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "waypointd_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waypointd_circuit_breaker_requests_total",
			Help: "Total circuit breaker requests by result",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waypointd_circuit_breaker_transitions_total",
			Help: "Total circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waypointd_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "waypointd_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordAPIRequest records one completed API request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// ObserveStoreOperation records the duration of one store operation.
func ObserveStoreOperation(operation string, start time.Time) {
	StoreOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
