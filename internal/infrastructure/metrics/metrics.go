package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Media-Storage Metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "media_storage",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jan",
			Subsystem: "media_storage",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)

	// Upload counters
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "media_storage",
			Name:      "uploads_total",
			Help:      "Total file uploads by category and outcome",
		},
		[]string{"category", "status"},
	)

	// Upload bytes counter
	UploadBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "media_storage",
			Name:      "upload_bytes_total",
			Help:      "Total bytes stored after transcoding",
		},
		[]string{"category"},
	)

	// Live catalog records per category
	StoredObjects = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "jan",
			Subsystem: "media_storage",
			Name:      "stored_objects",
			Help:      "Catalog records created minus records deleted by this process",
		},
		[]string{"category"},
	)

	// Image compression savings
	CompressionRatio = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "jan",
			Subsystem: "media_storage",
			Name:      "image_compression_ratio_percent",
			Help:      "Percentage of bytes saved by image transcoding",
			Buckets:   []float64{0, 10, 25, 50, 75, 90},
		},
	)

	// Object storage operations counter
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "media_storage",
			Name:      "s3_operations_total",
			Help:      "Total object storage operations",
		},
		[]string{"backend", "operation", "status"},
	)

	// Object storage operation duration
	StorageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jan",
			Subsystem: "media_storage",
			Name:      "s3_duration_seconds",
			Help:      "Object storage operation duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"backend", "operation"},
	)

	// Presign URL duration
	PresignDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "jan",
			Subsystem: "media_storage",
			Name:      "presign_duration_seconds",
			Help:      "Presigned URL generation duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	// Streaming responses
	StreamResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "media_storage",
			Name:      "stream_responses_total",
			Help:      "Streaming responses by category and status code",
		},
		[]string{"category", "status"},
	)

	// Reconciliation events
	ReconciliationEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "media_storage",
			Name:      "reconciliation_events_total",
			Help:      "Reconciliation events by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	// Catalog rows whose blob is missing
	ConsistencyViolationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "media_storage",
			Name:      "consistency_violations_total",
			Help:      "Catalog rows found without their blob",
		},
		[]string{"category"},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordUpload records a file upload
func RecordUpload(category, status string, bytes int64) {
	UploadsTotal.WithLabelValues(category, status).Inc()
	if status == "success" {
		UploadBytesTotal.WithLabelValues(category).Add(float64(bytes))
		StoredObjects.WithLabelValues(category).Inc()
	}
}

// RecordDelete records a catalog record removal.
func RecordDelete(category string) {
	StoredObjects.WithLabelValues(category).Dec()
}

// RecordCompression records the bytes saved by an image re-encode.
func RecordCompression(ratioPercent float64) {
	CompressionRatio.Observe(ratioPercent)
}

// RecordStorageOperation records an object storage operation
func RecordStorageOperation(backend, operation, status string, durationSec float64) {
	StorageOperationsTotal.WithLabelValues(backend, operation, status).Inc()
	StorageDuration.WithLabelValues(backend, operation).Observe(durationSec)
}

// RecordPresign records presigned URL generation
func RecordPresign(durationSec float64) {
	PresignDuration.Observe(durationSec)
}

// RecordStream records a streaming response status.
func RecordStream(category, status string) {
	StreamResponsesTotal.WithLabelValues(category, status).Inc()
}

// RecordReconciliation records a reconciliation event outcome.
func RecordReconciliation(kind, outcome string) {
	ReconciliationEventsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordConsistencyViolation records a catalog row whose blob is gone.
func RecordConsistencyViolation(category string) {
	ConsistencyViolationsTotal.WithLabelValues(category).Inc()
}
