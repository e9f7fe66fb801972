package enrich

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refkeeper/reference-import-service/internal/domain"
)

type stubMetrics struct {
	metrics map[string]domain.CitationMetrics
	err     error
	gotIDs  []string
}

func (s *stubMetrics) FetchMetrics(_ context.Context, pmids []string) (map[string]domain.CitationMetrics, error) {
	s.gotIDs = pmids
	return s.metrics, s.err
}

type stubPubMed struct {
	records []domain.SourceRecord
	err     error
}

func (s *stubPubMed) FetchByPMIDs(_ context.Context, _ []string) ([]domain.SourceRecord, error) {
	return s.records, s.err
}

type stubCrossRef struct {
	record *domain.SourceRecord
	err    error
}

func (s *stubCrossRef) FetchByDOI(_ context.Context, _ string) (*domain.SourceRecord, error) {
	return s.record, s.err
}

func TestFetchMetricsDedupsPMIDs(t *testing.T) {
	stub := &stubMetrics{metrics: map[string]domain.CitationMetrics{
		"100": {CitationCount: 5},
	}}
	e := New(stub, nil, nil, zerolog.Nop())

	records := []domain.SourceRecord{
		{PMID: "100"},
		{PMID: "100"},
		{PMID: "200"},
		{Title: "no pmid"},
	}

	res := e.FetchMetrics(context.Background(), records)
	require.NoError(t, res.Err)
	assert.Equal(t, []string{"100", "200"}, stub.gotIDs)

	m, ok := res.Lookup("100")
	assert.True(t, ok)
	assert.Equal(t, 5, m.CitationCount)

	_, ok = res.Lookup("200")
	assert.False(t, ok)
}

func TestFetchMetricsNilProvider(t *testing.T) {
	e := New(nil, nil, nil, zerolog.Nop())
	res := e.FetchMetrics(context.Background(), []domain.SourceRecord{{PMID: "100"}})
	assert.NoError(t, res.Err)
	assert.Empty(t, res.Metrics)
}

func TestFetchMetricsNoPMIDs(t *testing.T) {
	stub := &stubMetrics{}
	e := New(stub, nil, nil, zerolog.Nop())

	res := e.FetchMetrics(context.Background(), []domain.SourceRecord{{Title: "x"}})
	assert.NoError(t, res.Err)
	assert.Nil(t, stub.gotIDs)
}

func TestFetchMetricsFailure(t *testing.T) {
	stub := &stubMetrics{err: errors.New("icite down")}
	e := New(stub, nil, nil, zerolog.Nop())

	res := e.FetchMetrics(context.Background(), []domain.SourceRecord{{PMID: "100"}})
	require.Error(t, res.Err)
	assert.Empty(t, res.Metrics)
}

func TestResultApply(t *testing.T) {
	res := Result{Metrics: map[string]domain.CitationMetrics{
		"100": {CitationCount: 7},
	}}

	records := []domain.SourceRecord{
		{PMID: "100"},
		{PMID: "999"},
		{Title: "no pmid"},
	}
	res.Apply(records)

	require.NotNil(t, records[0].Metrics)
	assert.Equal(t, 7, records[0].Metrics.CitationCount)
	assert.Nil(t, records[1].Metrics)
	assert.Nil(t, records[2].Metrics)

	// Each record gets its own copy.
	records[0].Metrics.CitationCount = 99
	assert.Equal(t, 7, res.Metrics["100"].CitationCount)
}

func TestAutofillPubMedPreferred(t *testing.T) {
	pubmed := &stubPubMed{records: []domain.SourceRecord{{
		Kind:     domain.SourceKindPubMed,
		Title:    "Fetched Title",
		Abstract: "fetched abstract",
		PMID:     "100",
		DOI:      "10.1/fetched",
	}}}
	crossref := &stubCrossRef{err: errors.New("should not be called")}
	e := New(nil, pubmed, crossref, zerolog.Nop())

	rec := domain.SourceRecord{
		Kind:  domain.SourceKindManual,
		Title: "User Title",
		PMID:  "100",
		DOI:   "10.1/user",
	}

	got, err := e.Autofill(context.Background(), rec)
	require.NoError(t, err)

	assert.Equal(t, "User Title", got.Title)
	assert.Equal(t, "10.1/user", got.DOI)
	assert.Equal(t, "fetched abstract", got.Abstract)
	assert.Equal(t, domain.SourceKindManual, got.Kind)
}

func TestAutofillPubMedUnknownPMID(t *testing.T) {
	e := New(nil, &stubPubMed{}, nil, zerolog.Nop())

	rec := domain.SourceRecord{Title: "x", PMID: "999"}
	got, err := e.Autofill(context.Background(), rec)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, rec, got)
}

func TestAutofillCrossRefByDOI(t *testing.T) {
	crossref := &stubCrossRef{record: &domain.SourceRecord{
		Kind:    domain.SourceKindCrossRef,
		Title:   "Fetched Title",
		Journal: "Nature",
		DOI:     "10.1/x",
	}}
	e := New(nil, nil, crossref, zerolog.Nop())

	got, err := e.Autofill(context.Background(), domain.SourceRecord{DOI: "10.1/x"})
	require.NoError(t, err)
	assert.Equal(t, "Fetched Title", got.Title)
	assert.Equal(t, "Nature", got.Journal)
}

func TestAutofillNoIdentifier(t *testing.T) {
	e := New(nil, &stubPubMed{}, &stubCrossRef{}, zerolog.Nop())

	rec := domain.SourceRecord{Title: "plain"}
	got, err := e.Autofill(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestAutofillNilEnricher(t *testing.T) {
	var e *Enricher
	rec := domain.SourceRecord{Title: "x", PMID: "1"}
	got, err := e.Autofill(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}
