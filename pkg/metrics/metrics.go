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
			Name:    "cortex_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cortex_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// OperationsTotal tracks cortex engine operations by outcome.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cortex_operations_total",
			Help: "Total cortex operations",
		},
		[]string{"operation", "status"},
	)

	// RateLimitVerdicts tracks admission decisions per operation class.
	RateLimitVerdicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cortex_rate_limit_verdicts_total",
			Help: "Rate limiter admission verdicts",
		},
		[]string{"class", "verdict"},
	)

	// RecallResultSize tracks how many items each recall list returned.
	RecallResultSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cortex_recall_result_size",
			Help:    "Number of items returned per recall list",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
		[]string{"list"},
	)

	// MemoriesTotal tracks memories recorded.
	MemoriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cortex_memories_total",
			Help: "Total memories recorded",
		},
	)

	// FactsTotal tracks facts extracted.
	FactsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cortex_facts_total",
			Help: "Total facts stored",
		},
	)

	// IndexerEventsTotal tracks events published for the external semantic
	// indexer.
	IndexerEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cortex_indexer_events_total",
			Help: "Events published to the indexer stream",
		},
		[]string{"kind", "status"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordOperation records the outcome of one engine operation.
func RecordOperation(operation, status string) {
	OperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordRecallSizes records the sizes of the four recall lists.
func RecordRecallSizes(memories, facts, interactions, preferences int) {
	RecallResultSize.WithLabelValues("memories").Observe(float64(memories))
	RecallResultSize.WithLabelValues("facts").Observe(float64(facts))
	RecallResultSize.WithLabelValues("property_interactions").Observe(float64(interactions))
	RecallResultSize.WithLabelValues("suburb_preferences").Observe(float64(preferences))
}
