package httpserver

import (
	"github.com/refkeeper/reference-import-service/internal/domain"
)

// Request types for JSON deserialization.

type importRequest struct {
	// Records are structured source records to import.
	Records []domain.SourceRecord `json:"records"`

	// RISText is raw RIS content; parsed records are appended to Records.
	RISText string `json:"ris_text"`

	Collection    string   `json:"collection"`
	CollectionKey string   `json:"collection_key"`
	Tags          []string `json:"tags" validate:"max=20"`

	// SkipDuplicates defaults to the server-wide setting when unset.
	SkipDuplicates *bool `json:"skip_duplicates"`

	// FetchMetrics attaches citation metrics before import.
	FetchMetrics bool `json:"fetch_metrics"`

	// Autofill completes sparse records from PubMed or CrossRef before
	// the batch runs.
	Autofill bool `json:"autofill"`
}

type pubmedImportRequest struct {
	// PMIDs is a comma-separated list of PubMed identifiers.
	PMIDs string `json:"pmids" validate:"required"`

	Collection     string   `json:"collection"`
	CollectionKey  string   `json:"collection_key"`
	Tags           []string `json:"tags" validate:"max=20"`
	SkipDuplicates *bool    `json:"skip_duplicates"`
	FetchMetrics   *bool    `json:"fetch_metrics"`
}

type duplicatesRequest struct {
	Record domain.SourceRecord `json:"record"`
}

type suggestionsRequest struct {
	Title string   `json:"title" validate:"required"`
	Tags  []string `json:"tags" validate:"max=50"`
}

// Response types for JSON serialization.

type candidateResponse struct {
	Key        string `json:"key"`
	Title      string `json:"title"`
	Tier       string `json:"tier"`
	Confidence int    `json:"confidence"`
	Identifier string `json:"identifier,omitempty"`
	Bucket     string `json:"confidence_bucket"`
}

type duplicatesResponse struct {
	Candidates []candidateResponse `json:"candidates"`
}

type collectionResponse struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	ParentKey string `json:"parent_key,omitempty"`
	ItemCount int    `json:"item_count"`
}

type listCollectionsResponse struct {
	Collections []collectionResponse `json:"collections"`
	TotalCount  int                  `json:"total_count"`
}

type suggestionResponse struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

type listSuggestionsResponse struct {
	Suggestions []suggestionResponse `json:"suggestions"`
}
