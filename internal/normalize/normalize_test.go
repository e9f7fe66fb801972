package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/refkeeper/reference-import-service/internal/domain"
)

func TestTitle(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"already normalized", "deep learning", "deep learning"},
		{"mixed case", "Deep Learning", "deep learning"},
		{"punctuation to spaces", "CRISPR-Cas9: a review!", "crispr cas9 a review"},
		{"collapses whitespace", "  a\t\tstudy   of   things ", "a study of things"},
		{"keeps digits and underscores", "GPT_4 beats 7 baselines", "gpt_4 beats 7 baselines"},
		{"unicode letters kept", "étude de cas", "étude de cas"},
		{"only punctuation", "?!...", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Title(tt.input))
		})
	}
}

func TestTitleIdempotent(t *testing.T) {
	inputs := []string{
		"Deep Learning: A Survey (2nd Edition)",
		"  spaced   out  ",
		"plain",
		"",
	}
	for _, in := range inputs {
		once := Title(in)
		assert.Equal(t, once, Title(once), "Title must be idempotent for %q", in)
	}
}

func TestRecordIdentifier(t *testing.T) {
	tests := []struct {
		name     string
		rec      domain.SourceRecord
		kind     domain.IdentifierKind
		expected string
	}{
		{
			name:     "dedicated DOI field wins",
			rec:      domain.SourceRecord{DOI: "10.1000/XYZ", Notes: "DOI: 10.9999/other"},
			kind:     domain.IdentifierDOI,
			expected: "10.1000/xyz",
		},
		{
			name:     "falls back to notes scan",
			rec:      domain.SourceRecord{Notes: "Retrieved from PubMed.\nPMID: 12345678\nSome note."},
			kind:     domain.IdentifierPMID,
			expected: "12345678",
		},
		{
			name:     "scan is case-insensitive",
			rec:      domain.SourceRecord{Notes: "pmid:  87654321"},
			kind:     domain.IdentifierPMID,
			expected: "87654321",
		},
		{
			name:     "absent everywhere",
			rec:      domain.SourceRecord{Notes: "no identifiers here"},
			kind:     domain.IdentifierISBN,
			expected: "",
		},
		{
			name:     "whitespace-only field treated as absent",
			rec:      domain.SourceRecord{DOI: "   ", Notes: "DOI: 10.1/a"},
			kind:     domain.IdentifierDOI,
			expected: "10.1/a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RecordIdentifier(&tt.rec, tt.kind))
		})
	}
}

func TestItemIdentifier(t *testing.T) {
	item := domain.ExistingItem{
		Key:   "ABCD1234",
		DOI:   "10.1000/j.cell.2020.01.001",
		Extra: "PMID: 31031031\nPMCID: PMC6000000\nCitations: 12",
	}

	assert.Equal(t, "10.1000/j.cell.2020.01.001", ItemIdentifier(&item, domain.IdentifierDOI))
	assert.Equal(t, "31031031", ItemIdentifier(&item, domain.IdentifierPMID))
	assert.Equal(t, "pmc6000000", ItemIdentifier(&item, domain.IdentifierPMCID))
	assert.Equal(t, "", ItemIdentifier(&item, domain.IdentifierISBN))
}

func TestFormatExtra(t *testing.T) {
	t.Run("drops empty values and preserves order", func(t *testing.T) {
		got := FormatExtra([]ExtraField{
			{Key: "PMID", Value: "123"},
			{Key: "PMCID", Value: ""},
			{Key: "Source", Value: "pubmed"},
		})
		assert.Equal(t, "PMID: 123\nSource: pubmed", got)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Equal(t, "", FormatExtra(nil))
	})
}

func TestParseExtra(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		fields := []ExtraField{
			{Key: "PMID", Value: "123"},
			{Key: "RCR", Value: "2.5"},
		}
		assert.Equal(t, fields, ParseExtra(FormatExtra(fields)))
	})

	t.Run("ignores malformed lines", func(t *testing.T) {
		got := ParseExtra("just a sentence\nPMID: 99\n\n:no key\n")
		assert.Equal(t, []ExtraField{{Key: "PMID", Value: "99"}}, got)
	})

	t.Run("value keeps internal colons", func(t *testing.T) {
		got := ParseExtra("DOI: 10.1000/a:b")
		assert.Equal(t, []ExtraField{{Key: "DOI", Value: "10.1000/a:b"}}, got)
	})
}
