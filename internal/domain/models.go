// Package domain provides domain models and business logic for the reference import service.
package domain

// SourceKind identifies the origin of a source record. Each kind has its own
// adapter in the mapper package that feeds the canonical representation.
type SourceKind string

const (
	SourceKindPubMed   SourceKind = "pubmed"
	SourceKindCrossRef SourceKind = "crossref"
	SourceKindRIS      SourceKind = "ris"
	SourceKindManual   SourceKind = "manual"
)

// IdentifierKind is the type of a structured bibliographic identifier.
type IdentifierKind string

const (
	IdentifierDOI   IdentifierKind = "DOI"
	IdentifierISBN  IdentifierKind = "ISBN"
	IdentifierPMID  IdentifierKind = "PMID"
	IdentifierPMCID IdentifierKind = "PMCID"
)

// ExactMatchKinds is the fixed priority order for exact duplicate matching.
// Evaluation stops at the first kind that yields any match.
var ExactMatchKinds = []IdentifierKind{IdentifierDOI, IdentifierISBN, IdentifierPMID}

// AuthorName holds one author in whichever shape the source provided.
// Sources with structured names fill Given/Family; sources with plain
// name strings fill Full. At most one of the two shapes is populated.
type AuthorName struct {
	Full   string `json:"full,omitempty"`
	Given  string `json:"given,omitempty"`
	Family string `json:"family,omitempty"`
}

// CitationMetrics holds citation impact data from a metrics provider (iCite).
type CitationMetrics struct {
	RelativeCitationRatio float64 `json:"relative_citation_ratio,omitempty"`
	NIHPercentile         float64 `json:"nih_percentile,omitempty"`
	APT                   float64 `json:"apt,omitempty"`
	CitationCount         int     `json:"citation_count,omitempty"`
}

// SourceRecord is the canonical in-memory shape of an incoming bibliographic
// record, regardless of which source produced it. Adapters (PubMed client,
// CrossRef client, RIS parser, HTTP request decoding) each populate the fields
// they know about; absent fields stay zero-valued. A SourceRecord is owned by
// its producer and never mutated by the pipeline, except for enrichment
// attaching Metrics before mapping.
type SourceRecord struct {
	Kind     SourceKind   `json:"kind,omitempty"`
	ItemType string       `json:"item_type,omitempty"`
	Title    string       `json:"title"`
	Authors  []AuthorName `json:"authors,omitempty"`
	Abstract string       `json:"abstract,omitempty"`

	Journal       string `json:"journal,omitempty"`
	JournalAbbrev string `json:"journal_abbrev,omitempty"`
	Volume        string `json:"volume,omitempty"`
	Issue         string `json:"issue,omitempty"`
	Pages         string `json:"pages,omitempty"`

	// Date parts as supplied by the source. Month may be a number, a month
	// name, or a three-letter abbreviation.
	Year  int    `json:"year,omitempty"`
	Month string `json:"month,omitempty"`
	Day   int    `json:"day,omitempty"`

	DOI        string `json:"doi,omitempty"`
	PMID       string `json:"pmid,omitempty"`
	PMCID      string `json:"pmcid,omitempty"`
	ISBN       string `json:"isbn,omitempty"`
	ISSN       string `json:"issn,omitempty"`
	ArXivID    string `json:"arxiv_id,omitempty"`
	OpenAlexID string `json:"openalex_id,omitempty"`
	S2ID       string `json:"s2_id,omitempty"`

	URL      string `json:"url,omitempty"`
	Language string `json:"language,omitempty"`

	Keywords  []string `json:"keywords,omitempty"`
	MeshTerms []string `json:"mesh_terms,omitempty"`

	// Notes is a free-text blob that may carry identifiers in the
	// "KEY: value" sub-format when the source has no dedicated field.
	Notes string `json:"notes,omitempty"`

	// PublicationTypes are source-supplied type labels (e.g. "Review",
	// "Clinical Trial") carried into the canonical extra block.
	PublicationTypes []string `json:"publication_types,omitempty"`

	// Metrics is attached by enrichment when citation metrics were fetched.
	Metrics *CitationMetrics `json:"citation_metrics,omitempty"`
}

// Creator is an ordered author entry in the canonical item shape.
type Creator struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	CreatorType string `json:"creatorType"`
}

// ItemTag is a single tag on a canonical item.
type ItemTag struct {
	Tag string `json:"tag"`
}

// CanonicalItem is the library-API-ready representation produced by the
// mapper from exactly one SourceRecord. Field names follow the reference
// manager's JSON schema. A CanonicalItem is never mutated after creation
// except to attach the resolved destination collection and extra tags.
type CanonicalItem struct {
	ItemType            string    `json:"itemType"`
	Title               string    `json:"title"`
	Creators            []Creator `json:"creators,omitempty"`
	AbstractNote        string    `json:"abstractNote,omitempty"`
	PublicationTitle    string    `json:"publicationTitle,omitempty"`
	JournalAbbreviation string    `json:"journalAbbreviation,omitempty"`
	Volume              string    `json:"volume,omitempty"`
	Issue               string    `json:"issue,omitempty"`
	Pages               string    `json:"pages,omitempty"`
	Date                string    `json:"date,omitempty"`
	DOI                 string    `json:"DOI,omitempty"`
	ISBN                string    `json:"ISBN,omitempty"`
	ISSN                string    `json:"ISSN,omitempty"`
	URL                 string    `json:"url,omitempty"`
	Language            string    `json:"language,omitempty"`

	// Extra carries identifiers and metrics the target schema has no
	// dedicated slot for, in the "KEY: value" newline-separated grammar.
	Extra string `json:"extra,omitempty"`

	Tags        []ItemTag `json:"tags,omitempty"`
	Collections []string  `json:"collections,omitempty"`
}

// ExistingItem is a read-only snapshot row of an item already in the target
// library, as returned by the reference manager's local API. Identifiers
// without a dedicated field (PMID, PMCID) live in the Extra blob.
type ExistingItem struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	DOI   string `json:"DOI,omitempty"`
	ISBN  string `json:"ISBN,omitempty"`
	Extra string `json:"extra,omitempty"`
}

// CollectionRef is a read-only snapshot of a collection in the target library.
type CollectionRef struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	ParentKey string `json:"parent_key,omitempty"`
	ItemCount int    `json:"item_count"`
}

// MatchTier classifies how a duplicate candidate was matched.
type MatchTier string

const (
	TierExactDOI   MatchTier = "exact-doi"
	TierExactISBN  MatchTier = "exact-isbn"
	TierExactPMID  MatchTier = "exact-pmid"
	TierFuzzyTitle MatchTier = "fuzzy-title"
)

// Exact reports whether the tier is an exact identifier match.
func (t MatchTier) Exact() bool {
	return t == TierExactDOI || t == TierExactISBN || t == TierExactPMID
}

// MatchCandidate is a ranked duplicate candidate produced by the matcher.
// Candidates are transient; they are never persisted.
type MatchCandidate struct {
	Key        string    `json:"key"`
	Title      string    `json:"title"`
	Tier       MatchTier `json:"tier"`
	Confidence int       `json:"confidence"`
	Identifier string    `json:"identifier,omitempty"`
}
