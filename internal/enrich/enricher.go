// Package enrich attaches citation metrics and fills metadata gaps on
// source records before they enter the import pipeline.
package enrich

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/refkeeper/reference-import-service/internal/domain"
	"github.com/refkeeper/reference-import-service/internal/mapper"
	"github.com/refkeeper/reference-import-service/internal/observability"
)

// MetricsProvider fetches citation metrics keyed by PMID.
type MetricsProvider interface {
	FetchMetrics(ctx context.Context, pmids []string) (map[string]domain.CitationMetrics, error)
}

// PubMedFetcher fetches full records by PMID.
type PubMedFetcher interface {
	FetchByPMIDs(ctx context.Context, pmids []string) ([]domain.SourceRecord, error)
}

// DOIFetcher fetches a full record by DOI.
type DOIFetcher interface {
	FetchByDOI(ctx context.Context, doi string) (*domain.SourceRecord, error)
}

// Result carries the outcome of a metrics fetch as a plain value. A batch
// never fails on metrics: the importer inspects Err, logs it, and moves on
// with whatever Metrics holds.
type Result struct {
	Metrics map[string]domain.CitationMetrics
	Err     error
}

// Lookup returns the metrics for a PMID, if the fetch produced any.
func (r Result) Lookup(pmid string) (domain.CitationMetrics, bool) {
	m, ok := r.Metrics[pmid]
	return m, ok
}

// Enricher coordinates the optional metadata providers. Any of the three
// may be nil, in which case the corresponding enrichment is a no-op.
type Enricher struct {
	metrics  MetricsProvider
	pubmed   PubMedFetcher
	crossref DOIFetcher
	logger   zerolog.Logger
}

// New creates an Enricher. Nil providers disable their enrichment.
func New(metrics MetricsProvider, pubmed PubMedFetcher, crossref DOIFetcher, logger zerolog.Logger) *Enricher {
	return &Enricher{
		metrics:  metrics,
		pubmed:   pubmed,
		crossref: crossref,
		logger:   logger,
	}
}

// FetchMetrics collects citation metrics for every record that carries a
// PMID. The returned Result is complete even on failure: Metrics is empty
// and Err says why.
func (e *Enricher) FetchMetrics(ctx context.Context, records []domain.SourceRecord) Result {
	if e == nil || e.metrics == nil {
		return Result{}
	}

	pmids := make([]string, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if rec.PMID == "" {
			continue
		}
		if _, dup := seen[rec.PMID]; dup {
			continue
		}
		seen[rec.PMID] = struct{}{}
		pmids = append(pmids, rec.PMID)
	}
	if len(pmids) == 0 {
		return Result{}
	}

	metrics, err := e.metrics.FetchMetrics(ctx, pmids)
	if err != nil {
		e.logger.Warn().Err(err).Int("pmids", len(pmids)).Msg("citation metrics fetch failed")
		return Result{Err: err}
	}

	return Result{Metrics: metrics}
}

// Apply attaches fetched metrics to each record that has them. Records are
// modified in place; records without a PMID or without metrics are left
// untouched.
func (r Result) Apply(records []domain.SourceRecord) {
	if len(r.Metrics) == 0 {
		return
	}
	for i := range records {
		if m, ok := r.Metrics[records[i].PMID]; ok {
			mcopy := m
			records[i].Metrics = &mcopy
		}
	}
}

// Autofill completes a sparse record from its identifier: PubMed by PMID
// first, then CrossRef by DOI. User-supplied fields always win; the fetch
// only fills gaps. A record with no usable identifier is returned as is.
func (e *Enricher) Autofill(ctx context.Context, rec domain.SourceRecord) (domain.SourceRecord, error) {
	if e == nil {
		return rec, nil
	}

	switch {
	case rec.PMID != "" && e.pubmed != nil:
		logger := observability.WithSourceContext(e.logger, "pubmed")
		fetched, err := e.pubmed.FetchByPMIDs(ctx, []string{rec.PMID})
		if err != nil {
			logger.Warn().Err(err).Str("pmid", rec.PMID).Msg("autofill fetch failed")
			return rec, err
		}
		if len(fetched) == 0 {
			return rec, domain.NewNotFoundError("pubmed record", rec.PMID)
		}
		logger.Debug().Str("pmid", rec.PMID).Msg("record autofilled")
		return *mapper.Merge(&rec, &fetched[0]), nil

	case rec.DOI != "" && e.crossref != nil:
		logger := observability.WithSourceContext(e.logger, "crossref")
		fetched, err := e.crossref.FetchByDOI(ctx, rec.DOI)
		if err != nil {
			logger.Warn().Err(err).Str("doi", rec.DOI).Msg("autofill fetch failed")
			return rec, err
		}
		logger.Debug().Str("doi", rec.DOI).Msg("record autofilled")
		return *mapper.Merge(&rec, fetched), nil
	}

	return rec, nil
}
