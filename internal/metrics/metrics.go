// Package metrics defines the Prometheus collectors of a search node and
// exposes an HTTP handler for scraping.
//
// Every node owns its registry, so several nodes can live in one process.
// All recording methods accept a nil *Metrics and do nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "facet_search"

// Metrics holds all Prometheus collectors for a node.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	SearchQueriesTotal  *prometheus.CounterVec
	SearchLatency       *prometheus.HistogramVec
	DocsIndexedTotal    *prometheus.CounterVec
	DocsDeletedTotal    *prometheus.CounterVec
	BulkItemsTotal      *prometheus.CounterVec
	ShardDocCount       *prometheus.GaugeVec
	JobsTotal           *prometheus.CounterVec
	JobsActive          prometheus.Gauge
}

// New creates and registers all Prometheus metrics on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests by method, route, and status.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_queries_total",
				Help:      "Total search queries by index and outcome (hit, zero_result, error).",
			},
			[]string{"index", "outcome"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_latency_seconds",
				Help:      "Search latency in seconds.",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"index"},
		),
		DocsIndexedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "docs_indexed_total",
				Help:      "Total documents indexed by index and result (created, updated).",
			},
			[]string{"index", "result"},
		),
		DocsDeletedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "docs_deleted_total",
				Help:      "Total documents deleted by index.",
			},
			[]string{"index"},
		),
		BulkItemsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bulk_items_total",
				Help:      "Total bulk items by index, kind, and outcome.",
			},
			[]string{"index", "kind", "outcome"},
		),
		ShardDocCount: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "shard_document_count",
				Help:      "Number of documents per shard.",
			},
			[]string{"index", "shard_id"},
		),
		JobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_total",
				Help:      "Total async jobs by type and final status.",
			},
			[]string{"type", "status"},
		),
		JobsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "jobs_active",
				Help:      "Number of async jobs currently running.",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.DocsIndexedTotal,
		m.DocsDeletedTotal,
		m.BulkItemsTotal,
		m.ShardDocCount,
		m.JobsTotal,
		m.JobsActive,
	)

	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus scrape HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveHTTPRequest records one served HTTP request.
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveSearch records one search and its outcome.
func (m *Metrics) ObserveSearch(index string, totalHits int, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "hit"
	switch {
	case err != nil:
		outcome = "error"
	case totalHits == 0:
		outcome = "zero_result"
	}
	m.SearchQueriesTotal.WithLabelValues(index, outcome).Inc()
	m.SearchLatency.WithLabelValues(index).Observe(d.Seconds())
}

// DocumentIndexed records an indexed document; created is false for a replace.
func (m *Metrics) DocumentIndexed(index string, created bool) {
	if m == nil {
		return
	}
	result := "updated"
	if created {
		result = "created"
	}
	m.DocsIndexedTotal.WithLabelValues(index, result).Inc()
}

// DocumentsDeleted records n deleted documents.
func (m *Metrics) DocumentsDeleted(index string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.DocsDeletedTotal.WithLabelValues(index).Add(float64(n))
}

// BulkItem records the outcome of one bulk item.
func (m *Metrics) BulkItem(index, kind, outcome string) {
	if m == nil {
		return
	}
	m.BulkItemsTotal.WithLabelValues(index, kind, outcome).Inc()
}

// SetShardDocCounts publishes the document count of each shard of an index.
func (m *Metrics) SetShardDocCounts(index string, counts []int) {
	if m == nil {
		return
	}
	for shardID, count := range counts {
		m.ShardDocCount.WithLabelValues(index, strconv.Itoa(shardID)).Set(float64(count))
	}
}

// ForgetIndex drops the per-index series of a deleted index.
func (m *Metrics) ForgetIndex(index string) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{"index": index}
	m.SearchQueriesTotal.DeletePartialMatch(labels)
	m.SearchLatency.DeletePartialMatch(labels)
	m.DocsIndexedTotal.DeletePartialMatch(labels)
	m.DocsDeletedTotal.DeletePartialMatch(labels)
	m.BulkItemsTotal.DeletePartialMatch(labels)
	m.ShardDocCount.DeletePartialMatch(labels)
}

// JobStarted marks a job as running.
func (m *Metrics) JobStarted() {
	if m == nil {
		return
	}
	m.JobsActive.Inc()
}

// JobFinished records a job's final status.
func (m *Metrics) JobFinished(jobType, status string) {
	if m == nil {
		return
	}
	m.JobsActive.Dec()
	m.JobsTotal.WithLabelValues(jobType, status).Inc()
}
