package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/refkeeper/reference-import-service/internal/collection"
	"github.com/refkeeper/reference-import-service/internal/domain"
	"github.com/refkeeper/reference-import-service/internal/importer"
	"github.com/refkeeper/reference-import-service/internal/match"
	"github.com/refkeeper/reference-import-service/internal/ris"
)

const (
	// maxRequestBody bounds request bodies; RIS payloads can be large
	// but not unbounded.
	maxRequestBody = 8 << 20

	// maxBatchRecords caps the records accepted in one batch.
	maxBatchRecords = 500
)

// pmidPattern matches a bare PMID: digits only.
var pmidPattern = regexp.MustCompile(`^\d+$`)

// runImport handles POST /api/v1/imports. The batch may carry structured
// records, RIS text, or both.
func (s *Server) runImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if !s.decode(w, r, &req) {
		return
	}

	records := req.Records
	if req.RISText != "" {
		records = append(records, ris.Parse(req.RISText)...)
	}
	if len(records) == 0 {
		writeError(w, http.StatusBadRequest, "records or ris_text is required")
		return
	}
	if len(records) > maxBatchRecords {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("batch exceeds %d records", maxBatchRecords))
		return
	}

	if req.Autofill {
		enricher := s.importer.Enricher()
		for i := range records {
			filled, err := enricher.Autofill(r.Context(), records[i])
			if err != nil {
				s.logger.Warn().Err(err).Str("title", records[i].Title).Msg("autofill failed, importing record as supplied")
				continue
			}
			records[i] = filled
		}
	}

	skip := s.defaultSkipDuplicates
	if req.SkipDuplicates != nil {
		skip = *req.SkipDuplicates
	}

	report, err := s.importer.RunBatch(r.Context(), importer.BatchRequest{
		Records:        records,
		CollectionName: req.Collection,
		CollectionKey:  req.CollectionKey,
		Tags:           req.Tags,
		SkipDuplicates: skip,
		FetchMetrics:   req.FetchMetrics,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// runPubMedImport handles POST /api/v1/imports/pubmed: fetch complete
// metadata for a PMID list, then run the standard batch pipeline.
func (s *Server) runPubMedImport(w http.ResponseWriter, r *http.Request) {
	if s.pubmed == nil {
		writeError(w, http.StatusServiceUnavailable, "pubmed source is not configured")
		return
	}

	var req pubmedImportRequest
	if !s.decode(w, r, &req) {
		return
	}

	pmids, err := parsePMIDs(req.PMIDs)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(pmids) > maxBatchRecords {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("batch exceeds %d records", maxBatchRecords))
		return
	}

	records, err := s.pubmed.FetchByPMIDs(r.Context(), pmids)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if len(records) == 0 {
		writeError(w, http.StatusNotFound, "no records found for the given PMIDs")
		return
	}

	skip := s.defaultSkipDuplicates
	if req.SkipDuplicates != nil {
		skip = *req.SkipDuplicates
	}
	fetchMetrics := true
	if req.FetchMetrics != nil {
		fetchMetrics = *req.FetchMetrics
	}

	report, err := s.importer.RunBatch(r.Context(), importer.BatchRequest{
		Records:        records,
		CollectionName: req.Collection,
		CollectionKey:  req.CollectionKey,
		Tags:           req.Tags,
		SkipDuplicates: skip,
		FetchMetrics:   fetchMetrics,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// checkDuplicates handles POST /api/v1/duplicates.
func (s *Server) checkDuplicates(w http.ResponseWriter, r *http.Request) {
	var req duplicatesRequest
	if !s.decode(w, r, &req) {
		return
	}

	rec := req.Record
	if rec.Title == "" && rec.DOI == "" && rec.ISBN == "" && rec.PMID == "" {
		writeError(w, http.StatusBadRequest, "record must have a title or an identifier")
		return
	}

	candidates, err := s.importer.CheckDuplicates(r.Context(), &rec)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := duplicatesResponse{Candidates: make([]candidateResponse, 0, len(candidates))}
	for _, c := range candidates {
		resp.Candidates = append(resp.Candidates, candidateResponse{
			Key:        c.Key,
			Title:      c.Title,
			Tier:       string(c.Tier),
			Confidence: c.Confidence,
			Identifier: c.Identifier,
			Bucket:     match.ConfidenceBucket(c),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// listCollections handles GET /api/v1/collections.
func (s *Server) listCollections(w http.ResponseWriter, r *http.Request) {
	collections, err := s.importer.Collections(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := listCollectionsResponse{
		Collections: make([]collectionResponse, 0, len(collections)),
		TotalCount:  len(collections),
	}
	for _, c := range collections {
		resp.Collections = append(resp.Collections, collectionResponse{
			Key:       c.Key,
			Name:      c.Name,
			ParentKey: c.ParentKey,
			ItemCount: c.ItemCount,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// suggestCollections handles POST /api/v1/collections/suggestions.
func (s *Server) suggestCollections(w http.ResponseWriter, r *http.Request) {
	var req suggestionsRequest
	if !s.decode(w, r, &req) {
		return
	}

	suggestions, err := s.importer.SuggestCollections(r.Context(), collection.SuggestInput{
		Title: req.Title,
		Tags:  req.Tags,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := listSuggestionsResponse{Suggestions: make([]suggestionResponse, 0, len(suggestions))}
	for _, sg := range suggestions {
		resp.Suggestions = append(resp.Suggestions, suggestionResponse{
			Key:    sg.Key,
			Name:   sg.Name,
			Score:  sg.Score,
			Reason: sg.Reason,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// decode reads, unmarshals, and validates a JSON request body. It writes
// the error response itself and reports whether decoding succeeded.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body: "+err.Error())
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// parsePMIDs splits and validates a comma-separated PMID list.
func parsePMIDs(raw string) ([]string, error) {
	parts := strings.Split(raw, ",")
	pmids := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}
		if !pmidPattern.MatchString(p) {
			return nil, fmt.Errorf("invalid PMID %q: PMIDs must be numeric", p)
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		pmids = append(pmids, p)
	}
	if len(pmids) == 0 {
		return nil, errors.New("pmids must contain at least one PMID")
	}
	return pmids, nil
}

// writeDomainError maps domain errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	var extErr *domain.ExternalAPIError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate limited by upstream service")
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, "upstream service unavailable")
	case errors.As(err, &extErr):
		writeError(w, http.StatusBadGateway, extErr.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
