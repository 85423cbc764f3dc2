// Package metrics holds the Prometheus collectors shared by the web layer
// and the core service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestTotal counts HTTP requests by method, route pattern and status.
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataplay_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	// RequestDuration is the latency of HTTP requests.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dataplay_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	// OperationsTotal counts engine and I/O operations (filter, aggregate,
	// join, upload, export, import).
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataplay_operations_total",
			Help: "Total number of table operations",
		},
		[]string{"operation", "status"},
	)
	// OperationDuration is the latency of table operations.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dataplay_operation_duration_seconds",
			Help:    "Table operation latency in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
		[]string{"operation"},
	)
	// RowsProcessed counts rows read into and written out of operations.
	RowsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataplay_rows_total",
			Help: "Rows read (direction=in) and produced (direction=out) by operations",
		},
		[]string{"operation", "direction"},
	)
	// UploadBytes counts bytes accepted by uploads.
	UploadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dataplay_upload_bytes_total",
			Help: "Total bytes of decoded uploads",
		},
	)
	// AuthRejections counts /api requests refused by key checking, by
	// reason (missing or invalid).
	AuthRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataplay_api_auth_rejections_total",
			Help: "API requests rejected for a missing or invalid key",
		},
		[]string{"reason"},
	)
	// ActiveSessions is the number of live browser sessions.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dataplay_active_sessions",
			Help: "Number of live sessions",
		},
	)
)

// ObserveOperation records one finished operation.
func ObserveOperation(op string, start time.Time, rowsIn, rowsOut int, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	OperationsTotal.WithLabelValues(op, status).Inc()
	OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err == nil {
		RowsProcessed.WithLabelValues(op, "in").Add(float64(rowsIn))
		RowsProcessed.WithLabelValues(op, "out").Add(float64(rowsOut))
	}
}
