// Package metrics provides Prometheus metrics for xmlsql
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for xmlsql. Each instance owns its
// registry, so several engines can live in one process.
type Metrics struct {
	Registry *prometheus.Registry

	// API request metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Engine operation metrics
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	// Store contents
	DocumentsTotal  prometheus.Gauge
	NodesTotal      prometheus.Gauge
	AttributesTotal prometheus.Gauge
	SnapshotBytes   prometheus.Gauge

	// Query metrics
	QueryRowsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics on a fresh registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{Registry: reg}

	m.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xmlsql_http_requests_total",
			Help: "Total number of HTTP API requests",
		},
		[]string{"route", "status"},
	)

	m.HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "xmlsql_http_request_duration_seconds",
			Help:    "Duration of HTTP API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	m.HTTPRequestsInFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "xmlsql_http_requests_in_flight",
			Help: "Number of HTTP API requests currently being processed",
		},
	)

	m.OperationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xmlsql_operations_total",
			Help: "Total number of engine operations",
		},
		[]string{"operation", "status"},
	)

	m.OperationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "xmlsql_operation_duration_seconds",
			Help:    "Duration of engine operations in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	m.DocumentsTotal = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "xmlsql_documents",
			Help: "Number of documents in the store",
		},
	)

	m.NodesTotal = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "xmlsql_nodes",
			Help: "Number of nodes in the store",
		},
	)

	m.AttributesTotal = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "xmlsql_attributes",
			Help: "Number of attributes in the store",
		},
	)

	m.SnapshotBytes = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "xmlsql_snapshot_bytes",
			Help: "Size of the last exported or imported snapshot in bytes",
		},
	)

	m.QueryRowsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xmlsql_query_rows_total",
			Help: "Total number of rows returned by queries",
		},
		[]string{"kind"},
	)

	return m
}

// Handler serves this instance's registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// RecordHTTPRequest records an API request with its status code
func (m *Metrics) RecordHTTPRequest(route, status string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordOperation records an engine operation
func (m *Metrics) RecordOperation(operation string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.OperationsTotal.WithLabelValues(operation, status).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordRows counts rows returned by a query of the given kind.
func (m *Metrics) RecordRows(kind string, rows int) {
	m.QueryRowsTotal.WithLabelValues(kind).Add(float64(rows))
}

// UpdateStoreStats updates the store content gauges
func (m *Metrics) UpdateStoreStats(documents, nodes, attributes int64) {
	m.DocumentsTotal.Set(float64(documents))
	m.NodesTotal.Set(float64(nodes))
	m.AttributesTotal.Set(float64(attributes))
}
