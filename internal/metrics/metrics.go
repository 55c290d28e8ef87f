// Package metrics exposes Prometheus collectors for backups and remote calls.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BackupOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_backup_operations_total",
			Help: "Backup operations by type and outcome",
		},
		[]string{"operation", "status"},
	)

	BackupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "archive_backup_duration_seconds",
			Help:    "Duration of backup operations in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
		},
		[]string{"operation"},
	)

	BackupsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "archive_backups_in_flight",
			Help: "Backup operations currently running",
		},
	)

	FilesDownloaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "archive_files_downloaded_total",
			Help: "Files downloaded and recorded",
		},
	)

	FilesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "archive_files_skipped_total",
			Help: "Files skipped because they were already downloaded",
		},
	)

	FileFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_file_failures_total",
			Help: "Per-file download failures",
		},
		[]string{"reason"}, // "remote", "filesystem", "checksum"
	)

	BytesDownloaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "archive_bytes_downloaded_total",
			Help: "Bytes streamed to disk",
		},
	)

	RemoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_remote_requests_total",
			Help: "Requests to the remote catalog by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	RemoteRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "archive_remote_request_duration_seconds",
			Help:    "Latency of remote catalog requests until headers arrive",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "archive_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	SearchCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "archive_search_cache_hits_total",
			Help: "Remote search payloads served from the local cache",
		},
	)

	SearchCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "archive_search_cache_misses_total",
			Help: "Remote search payloads fetched because the cache had no entry",
		},
	)
)

// RecordBackup records the outcome of one backup operation.
func RecordBackup(operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	BackupOperations.WithLabelValues(operation, status).Inc()
	BackupDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordRemoteRequest records one remote call.
func RecordRemoteRequest(endpoint, outcome string, duration time.Duration) {
	RemoteRequests.WithLabelValues(endpoint, outcome).Inc()
	RemoteRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// TrackBackupInFlight increments or decrements the in-flight gauge.
func TrackBackupInFlight(inc bool) {
	if inc {
		BackupsInFlight.Inc()
	} else {
		BackupsInFlight.Dec()
	}
}
