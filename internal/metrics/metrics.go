// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LatencyBuckets covers sub-second files up to the ten minute upload timeout.
var LatencyBuckets = []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}

var (
	// Files counts processed files by schema and result code ("ok" on success).
	Files = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "csvload_files_total",
		Help: "the number of files processed, by schema and result",
	}, []string{"schema", "result"})

	// Records counts records by schema and outcome (accepted or rejected).
	Records = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "csvload_records_total",
		Help: "the number of records validated, by schema and outcome",
	}, []string{"schema", "outcome"})

	// FileDuration observes the time spent processing one file.
	FileDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "csvload_file_seconds",
		Help:    "the time spent processing one file",
		Buckets: LatencyBuckets,
	}, []string{"schema"})

	// FileBytes observes the size of fetched files.
	FileBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "csvload_file_bytes",
		Help:    "the size of fetched files",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
	})

	// InFlight is the number of files currently being processed.
	InFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "csvload_files_in_flight",
		Help: "the number of files currently being processed",
	})

	// Messages counts trigger messages by source and result
	// (processed, skipped or failed).
	Messages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "csvload_trigger_messages_total",
		Help: "the number of trigger messages received, by source and result",
	}, []string{"source", "result"})

	// HTTPRequests observes HTTP request latency by method and status.
	HTTPRequests = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "csvload_http_request_seconds",
		Help:    "the time spent serving HTTP requests",
		Buckets: LatencyBuckets,
	}, []string{"method", "status"})

	// RetryCount counts retried operations.
	RetryCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "csvload_retry_count",
		Help: "the total number of times we are retrying an operation",
	}, []string{"operation"})
)
