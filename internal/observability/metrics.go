package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the reference import service.
// Metrics are organized by subsystem: batches, records, duplicate matching,
// and source API calls. All counters and histograms are registered via
// promauto for automatic registration with the default Prometheus registry.
type Metrics struct {
	// BatchesStarted counts the total number of import batches initiated.
	BatchesStarted prometheus.Counter

	// BatchesCompleted counts the total number of batches that finished,
	// whether or not individual records failed.
	BatchesCompleted prometheus.Counter

	// BatchesFailed counts batches that aborted before or during the write.
	BatchesFailed prometheus.Counter

	// BatchDuration observes end-to-end batch duration in seconds.
	BatchDuration prometheus.Histogram

	// RecordsProcessed counts processed records, labeled by terminal outcome
	// (added, skipped, warning, failed).
	RecordsProcessed *prometheus.CounterVec

	// RecordsPerBatch observes the distribution of record counts per batch.
	RecordsPerBatch prometheus.Histogram

	// DuplicatesDetected counts duplicate candidates, labeled by match tier.
	DuplicatesDetected *prometheus.CounterVec

	// DestinationNotFound counts batches aborted on destination resolution.
	DestinationNotFound prometheus.Counter

	// SourceRequestsTotal counts HTTP requests to external source APIs,
	// labeled by source.
	SourceRequestsTotal *prometheus.CounterVec

	// SourceRequestsFailed counts failed requests to external source APIs,
	// labeled by source.
	SourceRequestsFailed *prometheus.CounterVec

	// SourceRequestDuration observes source API request duration in seconds.
	SourceRequestDuration *prometheus.HistogramVec

	// LibraryWrites counts write calls to the reference manager, labeled
	// by result (ok, error).
	LibraryWrites *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		BatchesStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_started_total",
			Help:      "Total number of import batches started",
		}),
		BatchesCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_completed_total",
			Help:      "Total number of import batches completed",
		}),
		BatchesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_failed_total",
			Help:      "Total number of import batches that aborted",
		}),
		BatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Duration of import batches in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}),

		RecordsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_processed_total",
			Help:      "Total number of records processed by outcome",
		}, []string{"outcome"}),
		RecordsPerBatch: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "records_per_batch",
			Help:      "Number of records per import batch",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 200},
		}),

		DuplicatesDetected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_detected_total",
			Help:      "Total number of duplicate candidates by match tier",
		}, []string{"tier"}),
		DestinationNotFound: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "destination_not_found_total",
			Help:      "Total number of batches aborted on destination resolution",
		}),

		SourceRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_total",
			Help:      "Total number of requests to external source APIs",
		}, []string{"source"}),
		SourceRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_failed_total",
			Help:      "Total number of failed requests to external source APIs",
		}, []string{"source"}),
		SourceRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_request_duration_seconds",
			Help:      "Duration of external source API requests in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"source"}),

		LibraryWrites: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "library_writes_total",
			Help:      "Total number of write calls to the reference manager by result",
		}, []string{"result"}),
	}
}

// ObserveSourceRequest records one request to an external source API. The
// source clients call it through their shared HTTP client.
func (m *Metrics) ObserveSourceRequest(source string, duration time.Duration, failed bool) {
	m.SourceRequestsTotal.WithLabelValues(source).Inc()
	if failed {
		m.SourceRequestsFailed.WithLabelValues(source).Inc()
	}
	m.SourceRequestDuration.WithLabelValues(source).Observe(duration.Seconds())
}
