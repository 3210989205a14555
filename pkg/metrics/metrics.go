// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// UpdatesTotal tracks inbound chat updates by outcome.
	UpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_updates_total",
			Help: "Inbound chat updates by outcome",
		},
		[]string{"outcome"},
	)

	// UpdateDuration tracks how long handling one update takes.
	UpdateDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bot_update_duration_seconds",
			Help:    "Time spent handling one inbound update",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	// RateLimitedIdentities tracks identities held by the admission limiter.
	RateLimitedIdentities = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_ratelimit_identities",
			Help: "Identities with a live admission window",
		},
	)

	// ActiveSessions tracks conversation sessions outside the idle phase.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_sessions_active",
			Help: "Conversation sessions held in memory",
		},
	)

	// TransitionsTotal tracks conversation phase transitions.
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_transitions_total",
			Help: "Conversation phase transitions",
		},
		[]string{"from", "to"},
	)

	// CatalogFetchTotal tracks catalog fetch attempts.
	CatalogFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_fetch_total",
			Help: "Catalog fetch attempts by status",
		},
		[]string{"status"},
	)

	// CatalogFetchDuration tracks catalog fetch latency.
	CatalogFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalog_fetch_duration_seconds",
			Help:    "Catalog fetch duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	// CatalogComponents tracks the size of the current snapshot.
	CatalogComponents = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_components",
			Help: "Components in the current catalog snapshot",
		},
	)

	// SearchesTotal tracks searches by category and outcome.
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_queries_total",
			Help: "Component searches by category and outcome",
		},
		[]string{"category", "outcome"},
	)

	// SearchResults tracks result set sizes.
	SearchResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "search_results",
			Help:    "Number of components returned per search",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
	)

	// AuditBufferDepth tracks events waiting to be flushed.
	AuditBufferDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "audit_buffer_depth",
			Help: "Audit events waiting for flush",
		},
	)

	// AuditFlushTotal tracks flush attempts by trigger and status.
	AuditFlushTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_flush_total",
			Help: "Audit buffer flush attempts",
		},
		[]string{"trigger", "status"},
	)

	// AuditEventsFlushed tracks events written to the sink.
	AuditEventsFlushed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_events_flushed_total",
			Help: "Audit events written to the sink",
		},
	)

	// DispatchQueues tracks identities with queued or running updates.
	DispatchQueues = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_dispatch_queues",
			Help: "Identities with a live dispatch queue",
		},
	)

	// OutboundMessagesTotal tracks messages sent to the chat transport.
	OutboundMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_outbound_messages_total",
			Help: "Outbound chat messages by kind and status",
		},
		[]string{"kind", "status"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordUpdate records the outcome of one inbound update.
func RecordUpdate(outcome string) {
	UpdatesTotal.WithLabelValues(outcome).Inc()
}

// RecordTransition records a conversation phase change.
func RecordTransition(from, to string) {
	TransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordCatalogFetch records one catalog fetch attempt.
func RecordCatalogFetch(status string, duration float64, components int) {
	CatalogFetchTotal.WithLabelValues(status).Inc()
	CatalogFetchDuration.Observe(duration)
	if status == "success" {
		CatalogComponents.Set(float64(components))
	}
}

// RecordSearch records one search.
func RecordSearch(category string, results int) {
	outcome := "hit"
	if results == 0 {
		outcome = "miss"
	}
	SearchesTotal.WithLabelValues(category, outcome).Inc()
	SearchResults.Observe(float64(results))
}

// RecordAuditFlush records one flush attempt of the audit buffer.
func RecordAuditFlush(trigger, status string, events int) {
	AuditFlushTotal.WithLabelValues(trigger, status).Inc()
	if status == "success" {
		AuditEventsFlushed.Add(float64(events))
	}
}

// RecordOutbound records one outbound chat message.
func RecordOutbound(kind string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	OutboundMessagesTotal.WithLabelValues(kind, status).Inc()
}
