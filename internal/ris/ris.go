// Package ris parses RIS-format bibliographic text into source records.
package ris

import (
	"regexp"
	"strings"

	"github.com/refkeeper/reference-import-service/internal/domain"
)

// tagLine matches one RIS line: a two-character tag, " - ", and the value.
var tagLine = regexp.MustCompile(`^([A-Z][A-Z0-9])\s+-\s*(.*)$`)

// pmidDigits extracts a run of digits from an N1 note that looks like a PMID.
var pmidDigits = regexp.MustCompile(`(\d+)`)

// typeMap translates RIS reference types to source item type hints.
var typeMap = map[string]string{
	"JOUR": "journal-article",
	"BOOK": "book",
	"CHAP": "book-chapter",
	"CONF": "conference-paper",
	"THES": "thesis",
	"RPRT": "report",
}

// Parse reads RIS text into source records. Records are delimited by TY/ER
// tags; a record without a title is dropped. Lines that do not match the RIS
// tag grammar are ignored.
func Parse(text string) []domain.SourceRecord {
	var records []domain.SourceRecord
	var cur *domain.SourceRecord

	flush := func() {
		if cur != nil && cur.Title != "" {
			records = append(records, *cur)
		}
		cur = nil
	}

	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)
		m := tagLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		tag, value := m[1], strings.TrimSpace(m[2])

		if tag == "TY" {
			flush()
			cur = &domain.SourceRecord{
				Kind:     domain.SourceKindRIS,
				ItemType: risType(value),
			}
			continue
		}
		if cur == nil {
			continue
		}

		switch tag {
		case "ER":
			flush()
		case "TI", "T1":
			cur.Title = value
		case "AU", "A1":
			cur.Authors = append(cur.Authors, domain.AuthorName{Full: value})
		case "PY", "Y1":
			cur.Year = parseYear(value)
		case "JO", "JF", "T2":
			cur.Journal = value
		case "VL":
			cur.Volume = value
		case "IS":
			cur.Issue = value
		case "SP":
			cur.Pages = value
		case "EP":
			if cur.Pages != "" {
				cur.Pages += "-" + value
			} else {
				cur.Pages = value
			}
		case "DO":
			cur.DOI = value
		case "SN":
			cur.ISSN = value
		case "AB", "N2":
			cur.Abstract = value
		case "KW":
			cur.Keywords = append(cur.Keywords, value)
		case "UR":
			cur.URL = value
		case "LA":
			cur.Language = value
		case "N1":
			// Notes frequently carry the PMID.
			if strings.Contains(strings.ToUpper(value), "PMID:") || isDigits(value) {
				if d := pmidDigits.FindString(value); d != "" {
					cur.PMID = d
				}
			}
			if cur.Notes == "" {
				cur.Notes = value
			} else {
				cur.Notes += "\n" + value
			}
		}
	}
	flush()

	return records
}

func risType(ty string) string {
	if t, ok := typeMap[ty]; ok {
		return t
	}
	return "journal-article"
}

// parseYear reads the year from a RIS PY/Y1 value, which may carry
// "YYYY/MM/DD" date parts after the year.
func parseYear(value string) int {
	year := strings.SplitN(value, "/", 2)[0]
	n := 0
	for _, r := range year {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
