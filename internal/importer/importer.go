// Package importer orchestrates import batches: snapshot reads, duplicate
// matching, destination resolution, canonical mapping, and the single
// batch write to the reference manager.
package importer

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/refkeeper/reference-import-service/internal/collection"
	"github.com/refkeeper/reference-import-service/internal/domain"
	"github.com/refkeeper/reference-import-service/internal/enrich"
	"github.com/refkeeper/reference-import-service/internal/mapper"
	"github.com/refkeeper/reference-import-service/internal/match"
	"github.com/refkeeper/reference-import-service/internal/observability"
)

// DefaultSnapshotLimit bounds the library read used for duplicate matching.
const DefaultSnapshotLimit = 100

// LibraryReader reads snapshots from the reference manager's local API.
type LibraryReader interface {
	Items(ctx context.Context, limit int) ([]domain.ExistingItem, error)
	Collections(ctx context.Context) ([]domain.CollectionRef, error)
}

// LibraryWriter persists canonical items to the reference manager.
// The write is all-or-nothing from the caller's point of view: the
// endpoint reports no per-item detail.
type LibraryWriter interface {
	SaveItems(ctx context.Context, items []*domain.CanonicalItem) error
}

// BatchRequest describes one import batch.
type BatchRequest struct {
	// Records are the source records to import, already parsed and
	// (optionally) enriched upstream.
	Records []domain.SourceRecord

	// CollectionName and CollectionKey select the destination collection.
	// Key wins when both are set. Both empty means the library root.
	CollectionName string
	CollectionKey  string

	// Tags are appended to every imported item.
	Tags []string

	// SkipDuplicates skips records with duplicate candidates instead of
	// importing them with a warning.
	SkipDuplicates bool

	// FetchMetrics attaches citation metrics to records with PMIDs
	// before mapping. Failures never fail the batch.
	FetchMetrics bool
}

// Options carries the importer's collaborators. Zero-value fields fall
// back to defaults (a default matcher, no enrichment, no metrics).
type Options struct {
	Matcher       *match.Matcher
	Enricher      *enrich.Enricher
	Metrics       *observability.Metrics
	Logger        zerolog.Logger
	SnapshotLimit int
}

// Importer runs import batches against an injected reader and writer.
// It holds no per-batch state; one Importer serves concurrent batches.
type Importer struct {
	reader        LibraryReader
	writer        LibraryWriter
	matcher       *match.Matcher
	enricher      *enrich.Enricher
	metrics       *observability.Metrics
	logger        zerolog.Logger
	snapshotLimit int
}

// New creates an Importer.
func New(reader LibraryReader, writer LibraryWriter, opts Options) *Importer {
	if opts.Matcher == nil {
		opts.Matcher = match.New(match.Config{})
	}
	if opts.SnapshotLimit <= 0 {
		opts.SnapshotLimit = DefaultSnapshotLimit
	}
	return &Importer{
		reader:        reader,
		writer:        writer,
		matcher:       opts.Matcher,
		enricher:      opts.Enricher,
		metrics:       opts.Metrics,
		logger:        opts.Logger,
		snapshotLimit: opts.SnapshotLimit,
	}
}

// pendingItem is a mapped record buffered for the batch write. Its outcome
// is provisional until the write succeeds; a failed write flips every
// buffered record to Failed.
type pendingItem struct {
	item    *domain.CanonicalItem
	outcome domain.ImportOutcome
}

// RunBatch processes one batch end to end and returns its report. The
// report is always complete: per-record failures, a missing destination,
// or a failed write all land in the report rather than in the returned
// error. The error is reserved for infrastructure failures before any
// record was processed (snapshot reads).
func (imp *Importer) RunBatch(ctx context.Context, req BatchRequest) (*domain.BatchReport, error) {
	start := time.Now()
	report := &domain.BatchReport{BatchID: uuid.NewString()}
	logger := observability.WithBatchContext(imp.logger, report.BatchID, req.CollectionName)
	ctx = observability.WithBatchID(ctx, report.BatchID)

	if imp.metrics != nil {
		imp.metrics.BatchesStarted.Inc()
		imp.metrics.RecordsPerBatch.Observe(float64(len(req.Records)))
	}

	if len(req.Records) == 0 {
		report.Error = "no records to import"
		finish(report, start)
		imp.observeCompletion(report)
		return report, nil
	}

	logger.Info().Int("records", len(req.Records)).Bool("skip_duplicates", req.SkipDuplicates).Msg("batch started")

	items, collections, err := imp.fetchSnapshots(ctx)
	if err != nil {
		if imp.metrics != nil {
			imp.metrics.BatchesFailed.Inc()
		}
		return nil, fmt.Errorf("fetching library snapshot: %w", err)
	}
	snap := match.NewSnapshot(items)

	// Destination resolution happens before any record work: an
	// unresolvable destination aborts the batch with zero writes.
	if req.CollectionName != "" || req.CollectionKey != "" {
		resolved, notFound := collection.Resolve(req.CollectionName, req.CollectionKey, collections)
		if notFound != nil {
			logger.Warn().Str("attempted", notFound.Attempted).Msg("destination collection not found")
			if imp.metrics != nil {
				imp.metrics.DestinationNotFound.Inc()
			}
			report.DestinationFailure = notFound
			report.Error = fmt.Sprintf("collection %q not found", notFound.Attempted)
			finish(report, start)
			imp.observeCompletion(report)
			return report, nil
		}
		report.Destination = resolved
	} else {
		report.Warning = "no destination collection specified; items were imported to the library root"
	}

	records := req.Records
	if req.FetchMetrics {
		result := imp.enricher.FetchMetrics(ctx, records)
		if result.Err != nil {
			logger.Warn().Err(result.Err).Msg("continuing without citation metrics")
		}
		result.Apply(records)
	}

	var pending []pendingItem
	for i := range records {
		outcome, item := imp.processRecord(&records[i], snap, req, report.Destination, logger)
		if item != nil {
			pending = append(pending, pendingItem{item: item, outcome: outcome})
			continue
		}
		report.Record(outcome)
	}

	imp.flush(ctx, pending, report, logger)

	// Any failed record marks the whole batch unsuccessful, even when the
	// batch itself carried no error.
	report.Success = report.Error == "" && report.Failed == 0
	finish(report, start)
	imp.observeCompletion(report)

	logger.Info().
		Int("added", report.Added).
		Int("skipped", report.Skipped).
		Int("warnings", report.Warnings).
		Int("failed", report.Failed).
		Float64("elapsed", report.ElapsedTime).
		Msg("batch finished")

	return report, nil
}

// fetchSnapshots reads the item and collection snapshots concurrently.
func (imp *Importer) fetchSnapshots(ctx context.Context) ([]domain.ExistingItem, []domain.CollectionRef, error) {
	var (
		items       []domain.ExistingItem
		collections []domain.CollectionRef
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = imp.reader.Items(gctx, imp.snapshotLimit)
		return err
	})
	g.Go(func() error {
		var err error
		collections, err = imp.reader.Collections(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	return items, collections, nil
}

// processRecord decides the fate of one record. It returns either a
// terminal outcome (item nil) or a provisional outcome with the mapped
// item to buffer for the write.
func (imp *Importer) processRecord(rec *domain.SourceRecord, snap *match.Snapshot, req BatchRequest, dest *domain.ResolvedDestination, logger zerolog.Logger) (domain.ImportOutcome, *domain.CanonicalItem) {
	outcome := domain.ImportOutcome{
		Title: rec.Title,
		PMID:  rec.PMID,
		DOI:   rec.DOI,
	}
	recLogger := observability.WithRecordContext(logger, rec.Title, rec.PMID)

	if rec.Title == "" {
		recLogger.Debug().Msg("record rejected: no title")
		outcome.Action = domain.ActionFailed
		outcome.Error = "record has no title"
		return outcome, nil
	}

	duplicates := imp.matcher.FindDuplicates(rec, snap)
	if len(duplicates) > 0 {
		top := duplicates[0]
		if imp.metrics != nil {
			imp.metrics.DuplicatesDetected.WithLabelValues(string(top.Tier)).Inc()
		}
		reason := duplicateReason(top)
		if req.SkipDuplicates {
			recLogger.Debug().Str("match_key", top.Key).Msg("skipping duplicate")
			outcome.Action = domain.ActionSkipped
			outcome.Reason = reason
			return outcome, nil
		}
		outcome.Action = domain.ActionWarning
		outcome.Reason = reason
	} else {
		outcome.Action = domain.ActionAdded
	}

	item, err := mapper.ToCanonical(rec)
	if err != nil {
		recLogger.Warn().Err(err).Msg("mapping failed")
		outcome.Action = domain.ActionFailed
		outcome.Error = err.Error()
		return outcome, nil
	}

	var destKey string
	if dest != nil {
		destKey = dest.Key
	}
	mapper.AttachDestination(item, destKey, req.Tags)

	return outcome, item
}

// flush performs the single batch write and settles the buffered outcomes.
// A write error marks every buffered record Failed: the endpoint gives no
// per-item detail, so partial success cannot be assumed.
func (imp *Importer) flush(ctx context.Context, pending []pendingItem, report *domain.BatchReport, logger zerolog.Logger) {
	if len(pending) == 0 {
		return
	}

	items := make([]*domain.CanonicalItem, len(pending))
	for i, p := range pending {
		items[i] = p.item
	}

	if err := imp.writer.SaveItems(ctx, items); err != nil {
		logger.Error().Err(err).Int("items", len(items)).Msg("library write failed")
		if imp.metrics != nil {
			imp.metrics.LibraryWrites.WithLabelValues("error").Inc()
		}
		report.Error = fmt.Sprintf("library write failed: %v", err)
		for _, p := range pending {
			o := p.outcome
			o.Action = domain.ActionFailed
			o.Reason = ""
			o.Error = err.Error()
			report.Record(o)
		}
		return
	}

	if imp.metrics != nil {
		imp.metrics.LibraryWrites.WithLabelValues("ok").Inc()
	}
	for _, p := range pending {
		report.Record(p.outcome)
	}
}

// observeCompletion updates the batch and per-outcome metrics.
func (imp *Importer) observeCompletion(report *domain.BatchReport) {
	if imp.metrics == nil {
		return
	}
	if report.Error != "" {
		imp.metrics.BatchesFailed.Inc()
	} else {
		imp.metrics.BatchesCompleted.Inc()
	}
	imp.metrics.BatchDuration.Observe(report.ElapsedTime)
	imp.metrics.RecordsProcessed.WithLabelValues(string(domain.ActionAdded)).Add(float64(report.Added))
	imp.metrics.RecordsProcessed.WithLabelValues(string(domain.ActionSkipped)).Add(float64(report.Skipped))
	imp.metrics.RecordsProcessed.WithLabelValues(string(domain.ActionWarning)).Add(float64(report.Warnings))
	imp.metrics.RecordsProcessed.WithLabelValues(string(domain.ActionFailed)).Add(float64(report.Failed))
}

// finish stamps the elapsed time and renders the human summary.
func finish(report *domain.BatchReport, start time.Time) {
	report.ElapsedTime = math.Round(time.Since(start).Seconds()*100) / 100
	report.HumanSummary = RenderSummary(report)
}

// duplicateReason describes a duplicate candidate for a report entry.
func duplicateReason(c domain.MatchCandidate) string {
	if c.Tier.Exact() {
		return fmt.Sprintf("duplicate of %s (%s %s)", c.Key, c.Tier, c.Identifier)
	}
	return fmt.Sprintf("possible duplicate of %s (title similarity %d%%, %s confidence)",
		c.Key, c.Confidence, match.ConfidenceBucket(c))
}

// CheckDuplicates runs duplicate matching for one record against a fresh
// library snapshot. It backs the standalone duplicate-check operation.
func (imp *Importer) CheckDuplicates(ctx context.Context, rec *domain.SourceRecord) ([]domain.MatchCandidate, error) {
	items, err := imp.reader.Items(ctx, imp.snapshotLimit)
	if err != nil {
		return nil, fmt.Errorf("fetching library snapshot: %w", err)
	}
	return imp.matcher.FindDuplicates(rec, match.NewSnapshot(items)), nil
}

// Collections lists the library's collections.
func (imp *Importer) Collections(ctx context.Context) ([]domain.CollectionRef, error) {
	return imp.reader.Collections(ctx)
}

// SuggestCollections proposes destination collections for an item.
func (imp *Importer) SuggestCollections(ctx context.Context, input collection.SuggestInput) ([]collection.Suggestion, error) {
	collections, err := imp.reader.Collections(ctx)
	if err != nil {
		return nil, err
	}
	return collection.Suggest(input, collections), nil
}

// Enricher exposes the configured enricher for callers that autofill
// records before building a batch. May return nil.
func (imp *Importer) Enricher() *enrich.Enricher {
	return imp.enricher
}
