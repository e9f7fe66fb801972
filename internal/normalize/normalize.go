// Package normalize canonicalizes bibliographic text and extracts structured
// identifiers from records and free-text annotation blobs.
//
// The target library schema has dedicated fields for DOI and ISBN but not for
// PMID or PMCID, which travel inside a single free-text "extra" blob using a
// line-oriented "KEY: value" grammar. This package is the only place that
// grammar is parsed or written.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/refkeeper/reference-import-service/internal/domain"
)

// Title canonicalizes a title for comparison: lower-case, every
// non-word/non-space character replaced by a space, whitespace runs collapsed
// to single spaces, leading and trailing whitespace trimmed. Empty input
// yields an empty string. Title is idempotent.
func Title(s string) string {
	if s == "" {
		return ""
	}

	s = strings.ToLower(s)

	var sb strings.Builder
	sb.Grow(len(s))
	pendingSpace := false

	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			if pendingSpace && sb.Len() > 0 {
				sb.WriteRune(' ')
			}
			pendingSpace = false
			sb.WriteRune(r)
		} else {
			pendingSpace = true
		}
	}

	return sb.String()
}

// extraPatterns matches "KEY: value" occurrences for each identifier kind,
// case-insensitive, colon optionally followed by whitespace.
var extraPatterns = map[domain.IdentifierKind]*regexp.Regexp{
	domain.IdentifierDOI:   regexp.MustCompile(`(?i)\bDOI:\s*(\S+)`),
	domain.IdentifierISBN:  regexp.MustCompile(`(?i)\bISBN:\s*(\S+)`),
	domain.IdentifierPMID:  regexp.MustCompile(`(?i)\bPMID:\s*(\S+)`),
	domain.IdentifierPMCID: regexp.MustCompile(`(?i)\bPMCID:\s*(\S+)`),
}

// identifier returns the dedicated field value if non-empty, otherwise scans
// the free-text blob for a "KIND: value" occurrence. The result is trimmed
// and lower-cased; "" means the identifier is absent.
func identifier(direct, freeText string, kind domain.IdentifierKind) string {
	if v := strings.TrimSpace(direct); v != "" {
		return strings.ToLower(v)
	}
	if freeText == "" {
		return ""
	}
	re, ok := extraPatterns[kind]
	if !ok {
		return ""
	}
	if m := re.FindStringSubmatch(freeText); m != nil {
		return strings.ToLower(strings.TrimSpace(m[1]))
	}
	return ""
}

// RecordIdentifier extracts an identifier from a source record, checking the
// dedicated field first and the free-text notes blob second.
func RecordIdentifier(rec *domain.SourceRecord, kind domain.IdentifierKind) string {
	var direct string
	switch kind {
	case domain.IdentifierDOI:
		direct = rec.DOI
	case domain.IdentifierISBN:
		direct = rec.ISBN
	case domain.IdentifierPMID:
		direct = rec.PMID
	case domain.IdentifierPMCID:
		direct = rec.PMCID
	}
	return identifier(direct, rec.Notes, kind)
}

// ItemIdentifier extracts an identifier from an existing library item,
// checking the dedicated field first and the extra blob second.
func ItemIdentifier(item *domain.ExistingItem, kind domain.IdentifierKind) string {
	var direct string
	switch kind {
	case domain.IdentifierDOI:
		direct = item.DOI
	case domain.IdentifierISBN:
		direct = item.ISBN
	}
	return identifier(direct, item.Extra, kind)
}

// ExtraField is one "KEY: value" line of the extra blob.
type ExtraField struct {
	Key   string
	Value string
}

// FormatExtra renders fields as the newline-separated "KEY: value" grammar.
// Fields with empty values are dropped. Order is preserved.
func FormatExtra(fields []ExtraField) string {
	var lines []string
	for _, f := range fields {
		if f.Key == "" || f.Value == "" {
			continue
		}
		lines = append(lines, f.Key+": "+f.Value)
	}
	return strings.Join(lines, "\n")
}

// extraLine matches one "KEY: value" line. Keys are single tokens without
// colons; everything after the first colon is the value.
var extraLine = regexp.MustCompile(`^([^:\s][^:]*):\s*(.+)$`)

// ParseExtra parses an extra blob back into its fields. Lines that do not
// match the grammar are ignored.
func ParseExtra(s string) []ExtraField {
	var fields []ExtraField
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := extraLine.FindStringSubmatch(line); m != nil {
			fields = append(fields, ExtraField{
				Key:   strings.TrimSpace(m[1]),
				Value: strings.TrimSpace(m[2]),
			})
		}
	}
	return fields
}
