// Package metrics provides Prometheus metrics for the document bridge.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docbridge_operations_total",
			Help: "Total number of bridge operations by result",
		},
		[]string{"operation", "result"},
	)

	operationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docbridge_operation_duration_seconds",
			Help:    "Bridge operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	bytesRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docbridge_bytes_read_total",
			Help: "Total bytes returned by readAll",
		},
	)

	bytesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docbridge_bytes_written_total",
			Help: "Total bytes written by writeAll",
		},
	)

	findResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docbridge_find_results_total",
			Help: "Find results emitted, by kind",
		},
		[]string{"kind"},
	)

	findSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docbridge_find_skipped_total",
			Help: "Children or subtrees skipped during enumeration after a failure",
		},
	)

	descriptorsExported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docbridge_descriptors_exported_total",
			Help: "Raw descriptors handed to callers, by export path",
		},
		[]string{"path"},
	)

	providerQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docbridge_provider_query_duration_seconds",
			Help:    "Provider child-listing query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	watcherChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docbridge_watcher_changes_total",
			Help: "Changes detected by change notifiers, by event",
		},
		[]string{"event"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordOperation records one bridge operation.
func RecordOperation(operation string, duration time.Duration, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	operationsTotal.WithLabelValues(operation, result).Inc()
	operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordRead records bytes returned to a caller.
func RecordRead(n int) {
	bytesRead.Add(float64(n))
}

// RecordWrite records bytes accepted from a caller.
func RecordWrite(n int) {
	bytesWritten.Add(float64(n))
}

// RecordFindResult records one emitted find result.
func RecordFindResult(directory bool) {
	kind := "file"
	if directory {
		kind = "directory"
	}
	findResultsTotal.WithLabelValues(kind).Inc()
}

// RecordFindSkipped records a child dropped from an enumeration.
func RecordFindSkipped() {
	findSkippedTotal.Inc()
}

// RecordDescriptorExport records a descriptor export ("detach" or "snapshot").
func RecordDescriptorExport(path string) {
	descriptorsExported.WithLabelValues(path).Inc()
}

// RecordProviderQuery records the latency of a child-listing query.
func RecordProviderQuery(provider string, duration time.Duration) {
	providerQueryDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordWatcherChange records a change notifier event.
func RecordWatcherChange(event string) {
	watcherChangesTotal.WithLabelValues(event).Inc()
}
