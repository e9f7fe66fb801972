package mapper

import "github.com/refkeeper/reference-import-service/internal/domain"

// Merge combines a caller-supplied record with a fetched one. Caller values
// take priority; fetched values fill the gaps. This keeps explicit user input
// intact while recovering fields (especially the abstract) the caller did
// not have.
func Merge(user, fetched *domain.SourceRecord) *domain.SourceRecord {
	if fetched == nil {
		return user
	}
	if user == nil {
		return fetched
	}

	merged := *fetched
	merged.Kind = user.Kind
	if user.ItemType != "" {
		merged.ItemType = user.ItemType
	}
	if user.Title != "" {
		merged.Title = user.Title
	}
	if len(user.Authors) > 0 {
		merged.Authors = user.Authors
	}
	if user.Abstract != "" {
		merged.Abstract = user.Abstract
	}
	if user.Journal != "" {
		merged.Journal = user.Journal
	}
	if user.JournalAbbrev != "" {
		merged.JournalAbbrev = user.JournalAbbrev
	}
	if user.Volume != "" {
		merged.Volume = user.Volume
	}
	if user.Issue != "" {
		merged.Issue = user.Issue
	}
	if user.Pages != "" {
		merged.Pages = user.Pages
	}
	if user.Year != 0 {
		merged.Year = user.Year
		merged.Month = user.Month
		merged.Day = user.Day
	}
	if user.DOI != "" {
		merged.DOI = user.DOI
	}
	if user.PMID != "" {
		merged.PMID = user.PMID
	}
	if user.PMCID != "" {
		merged.PMCID = user.PMCID
	}
	if user.ISBN != "" {
		merged.ISBN = user.ISBN
	}
	if user.ISSN != "" {
		merged.ISSN = user.ISSN
	}
	if user.URL != "" {
		merged.URL = user.URL
	}
	if user.Language != "" {
		merged.Language = user.Language
	}
	if len(user.Keywords) > 0 {
		merged.Keywords = user.Keywords
	}
	if len(user.MeshTerms) > 0 {
		merged.MeshTerms = user.MeshTerms
	}
	if user.Notes != "" {
		merged.Notes = user.Notes
	}
	if user.Metrics != nil {
		merged.Metrics = user.Metrics
	}
	return &merged
}
