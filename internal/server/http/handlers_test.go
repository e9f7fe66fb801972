package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refkeeper/reference-import-service/internal/domain"
	"github.com/refkeeper/reference-import-service/internal/importer"
)

// fakeLibrary backs the importer with an in-memory reader and writer.
type fakeLibrary struct {
	items       []domain.ExistingItem
	collections []domain.CollectionRef

	collectionsErr error

	saved [][]*domain.CanonicalItem
}

func (f *fakeLibrary) Items(_ context.Context, _ int) ([]domain.ExistingItem, error) {
	return f.items, nil
}

func (f *fakeLibrary) Collections(_ context.Context) ([]domain.CollectionRef, error) {
	return f.collections, f.collectionsErr
}

func (f *fakeLibrary) SaveItems(_ context.Context, items []*domain.CanonicalItem) error {
	f.saved = append(f.saved, items)
	return nil
}

// fakePubMed serves canned records for the PMID import endpoint.
type fakePubMed struct {
	records []domain.SourceRecord
	err     error
}

func (f *fakePubMed) FetchByPMIDs(_ context.Context, _ []string) ([]domain.SourceRecord, error) {
	return f.records, f.err
}

func newTestServer(lib *fakeLibrary, pubmed *fakePubMed) *Server {
	imp := importer.New(lib, lib, importer.Options{Logger: zerolog.Nop()})
	cfg := Config{Address: "127.0.0.1:0", SkipDuplicates: true}
	if pubmed == nil {
		return NewServer(cfg, imp, nil, zerolog.Nop())
	}
	return NewServer(cfg, imp, pubmed, zerolog.Nop())
}

func newDefaultLibrary() *fakeLibrary {
	return &fakeLibrary{
		items: []domain.ExistingItem{
			{Key: "EXIST111", Title: "An existing paper", DOI: "10.1/dup"},
		},
		collections: []domain.CollectionRef{
			{Key: "COLL1111", Name: "Papers", ItemCount: 4},
		},
	}
}

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	return rr
}

func TestHealthz(t *testing.T) {
	s := newTestServer(newDefaultLibrary(), nil)
	rr := doJSON(t, s, http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestReadyz(t *testing.T) {
	lib := newDefaultLibrary()
	s := newTestServer(lib, nil)

	rr := doJSON(t, s, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"ready"`)

	lib.collectionsErr = errors.New("connection refused")
	rr = doJSON(t, s, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), `"not_ready"`)
}

func TestRunImport(t *testing.T) {
	lib := newDefaultLibrary()
	s := newTestServer(lib, nil)

	rr := doJSON(t, s, http.MethodPost, "/api/v1/imports", `{
		"records": [{"title": "A fresh result", "doi": "10.1/new"}],
		"collection": "Papers"
	}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var report domain.BatchReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	assert.True(t, report.Success)
	assert.Equal(t, 1, report.Added)
	require.NotNil(t, report.Destination)
	assert.Equal(t, "COLL1111", report.Destination.Key)

	require.Len(t, lib.saved, 1)
}

func TestRunImportRISText(t *testing.T) {
	lib := newDefaultLibrary()
	s := newTestServer(lib, nil)

	body := `{"ris_text": "TY  - JOUR\nTI  - RIS sourced paper\nER  -\n"}`
	rr := doJSON(t, s, http.MethodPost, "/api/v1/imports", body)
	require.Equal(t, http.StatusOK, rr.Code)

	var report domain.BatchReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	assert.Equal(t, 1, report.Added)
}

func TestRunImportEmptyBatch(t *testing.T) {
	s := newTestServer(newDefaultLibrary(), nil)

	rr := doJSON(t, s, http.MethodPost, "/api/v1/imports", `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "records or ris_text is required")
}

func TestRunImportRejectsUnknownFields(t *testing.T) {
	s := newTestServer(newDefaultLibrary(), nil)

	rr := doJSON(t, s, http.MethodPost, "/api/v1/imports", `{"recordz": []}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid JSON request body")
}

func TestRunImportDestinationNotFound(t *testing.T) {
	lib := newDefaultLibrary()
	s := newTestServer(lib, nil)

	rr := doJSON(t, s, http.MethodPost, "/api/v1/imports", `{
		"records": [{"title": "A fresh result"}],
		"collection": "Nope"
	}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var report domain.BatchReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	assert.False(t, report.Success)
	require.NotNil(t, report.DestinationFailure)
	assert.Empty(t, lib.saved)
}

func TestRunImportSkipDefaultApplied(t *testing.T) {
	lib := newDefaultLibrary()
	s := newTestServer(lib, nil)

	// Server default is skip; the duplicate record is skipped, not warned.
	rr := doJSON(t, s, http.MethodPost, "/api/v1/imports", `{
		"records": [{"title": "Anything", "doi": "10.1/dup"}]
	}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var report domain.BatchReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	assert.Equal(t, 1, report.Skipped)

	// An explicit false overrides the default.
	rr = doJSON(t, s, http.MethodPost, "/api/v1/imports", `{
		"records": [{"title": "Anything", "doi": "10.1/dup"}],
		"skip_duplicates": false
	}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	assert.Equal(t, 1, report.Warnings)
}

func TestRunPubMedImport(t *testing.T) {
	lib := newDefaultLibrary()
	pubmed := &fakePubMed{records: []domain.SourceRecord{
		{Kind: domain.SourceKindPubMed, Title: "Fetched from PubMed", PMID: "33456789"},
	}}
	s := newTestServer(lib, pubmed)

	rr := doJSON(t, s, http.MethodPost, "/api/v1/imports/pubmed", `{
		"pmids": "33456789",
		"fetch_metrics": false
	}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var report domain.BatchReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	assert.Equal(t, 1, report.Added)
	require.Len(t, lib.saved, 1)
	assert.Equal(t, "Fetched from PubMed", lib.saved[0][0].Title)
}

func TestRunPubMedImportNotConfigured(t *testing.T) {
	s := newTestServer(newDefaultLibrary(), nil)

	rr := doJSON(t, s, http.MethodPost, "/api/v1/imports/pubmed", `{"pmids": "1"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "pubmed source is not configured")
}

func TestRunPubMedImportInvalidPMIDs(t *testing.T) {
	s := newTestServer(newDefaultLibrary(), &fakePubMed{})

	rr := doJSON(t, s, http.MethodPost, "/api/v1/imports/pubmed", `{"pmids": "123,abc"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "PMIDs must be numeric")
}

func TestRunPubMedImportNoRecords(t *testing.T) {
	s := newTestServer(newDefaultLibrary(), &fakePubMed{})

	rr := doJSON(t, s, http.MethodPost, "/api/v1/imports/pubmed", `{"pmids": "99999999"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "no records found")
}

func TestParsePMIDs(t *testing.T) {
	pmids, err := parsePMIDs(" 100, 200 ,100,, 300 ")
	require.NoError(t, err)
	assert.Equal(t, []string{"100", "200", "300"}, pmids)

	_, err = parsePMIDs("100,PMC200")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid PMID "PMC200"`)

	_, err = parsePMIDs(" , ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one PMID")
}

func TestCheckDuplicatesEndpoint(t *testing.T) {
	s := newTestServer(newDefaultLibrary(), nil)

	rr := doJSON(t, s, http.MethodPost, "/api/v1/duplicates", `{
		"record": {"title": "whatever", "doi": "10.1/dup"}
	}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Candidates []struct {
			Key        string `json:"key"`
			Tier       string `json:"tier"`
			Confidence int    `json:"confidence"`
			Bucket     string `json:"confidence_bucket"`
		} `json:"candidates"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Candidates, 1)
	assert.Equal(t, "EXIST111", resp.Candidates[0].Key)
	assert.Equal(t, "exact-doi", resp.Candidates[0].Tier)
	assert.Equal(t, 100, resp.Candidates[0].Confidence)
	assert.Equal(t, "high", resp.Candidates[0].Bucket)
}

func TestCheckDuplicatesRequiresIdentity(t *testing.T) {
	s := newTestServer(newDefaultLibrary(), nil)

	rr := doJSON(t, s, http.MethodPost, "/api/v1/duplicates", `{"record": {"title": ""}}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "title or an identifier")
}

func TestListCollections(t *testing.T) {
	s := newTestServer(newDefaultLibrary(), nil)

	rr := doJSON(t, s, http.MethodGet, "/api/v1/collections", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Collections []struct {
			Key       string `json:"key"`
			Name      string `json:"name"`
			ItemCount int    `json:"item_count"`
		} `json:"collections"`
		TotalCount int `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.TotalCount)
	require.Len(t, resp.Collections, 1)
	assert.Equal(t, "Papers", resp.Collections[0].Name)
	assert.Equal(t, 4, resp.Collections[0].ItemCount)
}

func TestSuggestCollectionsEndpoint(t *testing.T) {
	s := newTestServer(newDefaultLibrary(), nil)

	rr := doJSON(t, s, http.MethodPost, "/api/v1/collections/suggestions", `{
		"title": "New papers about everything"
	}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Suggestions []struct {
			Key    string `json:"key"`
			Score  int    `json:"score"`
			Reason string `json:"reason"`
		} `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Suggestions, 1)
	assert.Equal(t, "COLL1111", resp.Suggestions[0].Key)
	assert.Equal(t, 90, resp.Suggestions[0].Score)
	assert.Equal(t, "name in title", resp.Suggestions[0].Reason)
}

func TestSuggestCollectionsRequiresTitle(t *testing.T) {
	s := newTestServer(newDefaultLibrary(), nil)

	rr := doJSON(t, s, http.MethodPost, "/api/v1/collections/suggestions", `{"tags": ["x"]}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", domain.NewNotFoundError("work", "10.1/x"), http.StatusNotFound},
		{"validation", domain.NewValidationError("doi", "empty"), http.StatusBadRequest},
		{"rate limited", domain.ErrRateLimited, http.StatusTooManyRequests},
		{"unavailable", domain.ErrServiceUnavailable, http.StatusServiceUnavailable},
		{"external", domain.NewExternalAPIError("PubMed", 500, "boom", nil), http.StatusBadGateway},
		{"unknown", errors.New("mystery"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeDomainError(rr, tc.err)
			assert.Equal(t, tc.want, rr.Code)
		})
	}
}
