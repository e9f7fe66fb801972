// Package main provides the entry point for the reference import service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/refkeeper/reference-import-service/internal/config"
	"github.com/refkeeper/reference-import-service/internal/enrich"
	"github.com/refkeeper/reference-import-service/internal/importer"
	"github.com/refkeeper/reference-import-service/internal/library"
	"github.com/refkeeper/reference-import-service/internal/match"
	"github.com/refkeeper/reference-import-service/internal/observability"
	httpserver "github.com/refkeeper/reference-import-service/internal/server/http"
	"github.com/refkeeper/reference-import-service/internal/sources"
	"github.com/refkeeper/reference-import-service/internal/sources/crossref"
	"github.com/refkeeper/reference-import-service/internal/sources/icite"
	"github.com/refkeeper/reference-import-service/internal/sources/pubmed"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("reference-import-service starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metrics *observability.Metrics
	var observer sources.RequestObserver
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics("reference_import")
		observer = metrics
	}

	// Reference manager local API client; both the batch reader and writer.
	libraryClient := library.New(library.Config{
		BaseURL:   cfg.Library.BaseURL,
		Timeout:   cfg.Library.Timeout,
		ItemLimit: cfg.Library.SnapshotLimit,
		Observer:  observer,
	})

	// External source clients.
	pubmedClient := pubmed.New(pubmed.Config{
		BaseURL:   cfg.Sources.PubMed.BaseURL,
		APIKey:    cfg.Sources.PubMed.APIKey,
		RateLimit: cfg.Sources.PubMed.RateLimit,
		Timeout:   cfg.Sources.PubMed.Timeout,
		Observer:  observer,
	})
	crossrefClient := crossref.New(crossref.Config{
		BaseURL:   cfg.Sources.CrossRef.BaseURL,
		Email:     cfg.Sources.CrossRef.Email,
		RateLimit: cfg.Sources.CrossRef.RateLimit,
		Timeout:   cfg.Sources.CrossRef.Timeout,
		Observer:  observer,
	})

	var metricsProvider enrich.MetricsProvider
	if cfg.Sources.ICite.Enabled {
		metricsProvider = icite.New(icite.Config{
			BaseURL:   cfg.Sources.ICite.BaseURL,
			RateLimit: cfg.Sources.ICite.RateLimit,
			Timeout:   cfg.Sources.ICite.Timeout,
			Observer:  observer,
		})
	}

	enricher := enrich.New(metricsProvider, pubmedClient, crossrefClient, logger)

	imp := importer.New(libraryClient, libraryClient, importer.Options{
		Matcher: match.New(match.Config{
			TitleThreshold: cfg.Import.TitleThreshold,
			MaxCandidates:  cfg.Import.MaxCandidates,
		}),
		Enricher:      enricher,
		Metrics:       metrics,
		Logger:        logger,
		SnapshotLimit: cfg.Library.SnapshotLimit,
	})

	httpSrv := httpserver.NewServer(httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		SkipDuplicates:  cfg.Import.SkipDuplicates,
	}, imp, pubmedClient, logger)

	// Set up Prometheus metrics handler on a separate port if configured.
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress(),
			Handler:      metricsMux,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
	}

	// Channel to collect server errors.
	errCh := make(chan error, 2)

	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			logger.Info().Str("address", metricsServer.Addr).Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	readyLog := logger.Info().Str("http_address", cfg.Server.HTTPAddress())
	if metricsServer != nil {
		readyLog = readyLog.Str("metrics_address", metricsServer.Addr)
	}
	readyLog.Msg("reference-import-service is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	// Graceful shutdown.
	logger.Info().Msg("shutting down reference-import-service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	logger.Info().Msg("reference-import-service shutdown complete")
	return nil
}
