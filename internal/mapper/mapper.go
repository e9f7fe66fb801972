// Package mapper converts source-specific bibliographic records into the
// canonical item representation consumed by the target library's write API.
//
// ToCanonical is a pure function: no I/O, and missing optional fields are
// omitted from the result rather than defaulted to placeholder values.
package mapper

import (
	"strconv"
	"strings"

	"github.com/refkeeper/reference-import-service/internal/domain"
	"github.com/refkeeper/reference-import-service/internal/normalize"
)

// DefaultItemType is used when a source record carries no recognizable
// item type hint.
const DefaultItemType = "journalArticle"

// itemTypeMap translates source-supplied type hints to the target schema's
// item type tags.
var itemTypeMap = map[string]string{
	"journal-article":  "journalArticle",
	"journalarticle":   "journalArticle",
	"article":          "journalArticle",
	"book":             "book",
	"book-chapter":     "bookSection",
	"conference-paper": "conferencePaper",
	"proceedings":      "conferencePaper",
	"thesis":           "thesis",
	"report":           "report",
	"preprint":         "preprint",
}

// ToCanonical converts one source record into a canonical item.
//
// It never fails on missing optional fields; the only error condition is a
// nil record. Identifiers and metrics without a first-class destination slot
// are assembled into the extra blob in a fixed order. Keyword and
// controlled-vocabulary term lists merge into the tag set without
// case-insensitive duplication.
func ToCanonical(rec *domain.SourceRecord) (*domain.CanonicalItem, error) {
	if rec == nil {
		return nil, domain.NewValidationError("record", "record is nil")
	}

	item := &domain.CanonicalItem{
		ItemType:            itemType(rec.ItemType),
		Title:               rec.Title,
		Creators:            flattenAuthors(rec.Authors),
		AbstractNote:        rec.Abstract,
		PublicationTitle:    rec.Journal,
		JournalAbbreviation: rec.JournalAbbrev,
		Volume:              rec.Volume,
		Issue:               rec.Issue,
		Pages:               rec.Pages,
		Date:                formatDate(rec.Year, rec.Month, rec.Day),
		DOI:                 cleanDOI(rec.DOI),
		ISBN:                strings.TrimSpace(rec.ISBN),
		ISSN:                strings.TrimSpace(rec.ISSN),
		Language:            rec.Language,
		Extra:               buildExtra(rec),
		Tags:                mergeTags(rec.Keywords, rec.MeshTerms),
	}

	item.URL = itemURL(rec, item.DOI)

	return item, nil
}

// AttachDestination sets the destination collection and appends extra tags,
// the only mutations permitted after creation. Extra tags that already exist
// case-insensitively are not duplicated.
func AttachDestination(item *domain.CanonicalItem, collectionKey string, tags []string) {
	if collectionKey != "" {
		item.Collections = []string{collectionKey}
	}
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || hasTag(item.Tags, tag) {
			continue
		}
		item.Tags = append(item.Tags, domain.ItemTag{Tag: tag})
	}
}

func itemType(hint string) string {
	hint = strings.ToLower(strings.TrimSpace(hint))
	if t, ok := itemTypeMap[hint]; ok {
		return t
	}
	return DefaultItemType
}

// flattenAuthors converts the source author shapes into a uniform creator
// list. Structured names are used directly; plain strings are split as
// "Last, First", "Last Initials" (trailing token of one or two characters),
// or "First Last".
func flattenAuthors(authors []domain.AuthorName) []domain.Creator {
	var creators []domain.Creator
	for _, a := range authors {
		c := flattenAuthor(a)
		if c.LastName == "" && c.FirstName == "" {
			continue
		}
		creators = append(creators, c)
	}
	return creators
}

func flattenAuthor(a domain.AuthorName) domain.Creator {
	if a.Family != "" || a.Given != "" {
		return domain.Creator{
			FirstName:   a.Given,
			LastName:    a.Family,
			CreatorType: "author",
		}
	}

	name := strings.TrimSpace(a.Full)
	if name == "" {
		return domain.Creator{}
	}

	if idx := strings.Index(name, ","); idx >= 0 {
		return domain.Creator{
			FirstName:   strings.TrimSpace(name[idx+1:]),
			LastName:    strings.TrimSpace(name[:idx]),
			CreatorType: "author",
		}
	}

	parts := strings.Fields(name)
	if len(parts) < 2 {
		return domain.Creator{LastName: name, CreatorType: "author"}
	}

	last := parts[len(parts)-1]
	if len(last) <= 2 {
		// "Smith J" style: trailing initials.
		return domain.Creator{
			FirstName:   last,
			LastName:    strings.Join(parts[:len(parts)-1], " "),
			CreatorType: "author",
		}
	}

	return domain.Creator{
		FirstName:   parts[0],
		LastName:    strings.Join(parts[1:], " "),
		CreatorType: "author",
	}
}

// buildExtra assembles the free-text extra blob in a fixed order: PMID,
// PMCID, arXiv, OpenAlex, S2, source, publication types, then citation
// metrics. Fields without values are omitted.
func buildExtra(rec *domain.SourceRecord) string {
	fields := []normalize.ExtraField{
		{Key: "PMID", Value: strings.TrimSpace(rec.PMID)},
		{Key: "PMCID", Value: pmcID(rec.PMCID)},
		{Key: "arXiv", Value: strings.TrimSpace(rec.ArXivID)},
		{Key: "OpenAlex", Value: strings.TrimSpace(rec.OpenAlexID)},
		{Key: "S2", Value: strings.TrimSpace(rec.S2ID)},
		{Key: "Source", Value: string(rec.Kind)},
	}

	if len(rec.PublicationTypes) > 0 {
		fields = append(fields, normalize.ExtraField{
			Key:   "Publication Type",
			Value: strings.Join(rec.PublicationTypes, ", "),
		})
	}

	if m := rec.Metrics; m != nil {
		if m.RelativeCitationRatio > 0 {
			fields = append(fields, normalize.ExtraField{Key: "RCR", Value: formatFloat(m.RelativeCitationRatio)})
		}
		if m.NIHPercentile > 0 {
			fields = append(fields, normalize.ExtraField{Key: "Percentile", Value: formatFloat(m.NIHPercentile)})
		}
		if m.APT > 0 {
			fields = append(fields, normalize.ExtraField{Key: "APT", Value: formatFloat(m.APT)})
		}
		if m.CitationCount > 0 {
			fields = append(fields, normalize.ExtraField{Key: "Citations", Value: strconv.Itoa(m.CitationCount)})
		}
	}

	return normalize.FormatExtra(fields)
}

// mergeTags merges keywords and controlled-vocabulary terms into the tag set
// without case-insensitive duplication, preserving first-seen order.
func mergeTags(keywords, meshTerms []string) []domain.ItemTag {
	var tags []domain.ItemTag
	for _, list := range [][]string{keywords, meshTerms} {
		for _, t := range list {
			t = strings.TrimSpace(t)
			if t == "" || hasTag(tags, t) {
				continue
			}
			tags = append(tags, domain.ItemTag{Tag: t})
		}
	}
	return tags
}

func hasTag(tags []domain.ItemTag, tag string) bool {
	for _, t := range tags {
		if strings.EqualFold(t.Tag, tag) {
			return true
		}
	}
	return false
}

// cleanDOI strips resolver URL prefixes from a DOI.
func cleanDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	doi = strings.TrimPrefix(doi, "https://doi.org/")
	doi = strings.TrimPrefix(doi, "http://doi.org/")
	doi = strings.TrimPrefix(doi, "https://dx.doi.org/")
	return doi
}

// pmcID normalizes a PMC identifier to carry the "PMC" prefix.
func pmcID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	if strings.HasPrefix(id, "PMC") {
		return id
	}
	return "PMC" + id
}

// itemURL picks the record URL, falling back to a DOI resolver URL and then
// a PubMed URL.
func itemURL(rec *domain.SourceRecord, doi string) string {
	if rec.URL != "" {
		return rec.URL
	}
	if doi != "" {
		return "https://doi.org/" + doi
	}
	if pmid := strings.TrimSpace(rec.PMID); pmid != "" {
		return "https://pubmed.ncbi.nlm.nih.gov/" + pmid + "/"
	}
	return ""
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
