// Package observability provides logging and metrics support for the
// reference import service.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for batches, records, and source APIs
//   - Context helpers for propagating observability data
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:     "info",
//	    Format:    "json",
//	    Output:    "stdout",
//	    AddSource: true,
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger.Info().Str("batch_id", batchID).Msg("batch started")
//
// Add batch context to logger:
//
//	logger = observability.WithBatchContext(logger, batchID, destination)
//
// # Metrics
//
// Initialize metrics:
//
//	metrics := observability.NewMetrics("reference_import")
//
// Record metrics:
//
//	metrics.BatchesStarted.Inc()
//	metrics.RecordsProcessed.WithLabelValues("added").Inc()
//	metrics.DuplicatesDetected.WithLabelValues("exact-doi").Inc()
//
// # Context Helpers
//
// Store and retrieve request context:
//
//	ctx = observability.WithRequestID(ctx, requestID)
//	ctx = observability.WithBatchID(ctx, batchID)
//
//	reqID := observability.RequestIDFromContext(ctx)
//	batchID := observability.BatchIDFromContext(ctx)
//
// # Standard Fields
//
// Common fields used across the service:
//
//   - request_id: API request identifier
//   - batch_id: Import batch identifier
//   - destination: Resolved target collection name
//   - source: External source (pubmed, crossref, icite, library)
//   - title: Record title
//   - pmid: PubMed identifier
//
// # Thread Safety
//
// All components are safe for concurrent use from multiple goroutines.
package observability
