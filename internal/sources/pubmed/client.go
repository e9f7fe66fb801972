package pubmed

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/refkeeper/reference-import-service/internal/domain"
	"github.com/refkeeper/reference-import-service/internal/sources"
)

const (
	// DefaultBaseURL is the base URL for NCBI E-utilities API.
	DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

	// DefaultRateLimit is the rate limit without an API key (3 requests/second).
	// With an API key, the limit increases to 10 requests/second.
	DefaultRateLimit = 3.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 3

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// MaxIDsPerFetch is the maximum number of PMIDs sent in a single
	// efetch request. Larger batches are split.
	MaxIDsPerFetch = 200

	// sourceName is the human-readable name for this source.
	sourceName = "PubMed"
)

// Config holds the configuration for the PubMed client.
type Config struct {
	// BaseURL is the base URL for the E-utilities API.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey is the NCBI API key for higher rate limits.
	// Optional but recommended for production use.
	APIKey string

	// Timeout is the request timeout.
	// Defaults to DefaultTimeout if zero.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	// Defaults to DefaultRateLimit (3 req/sec) if zero.
	// With an API key, you can increase this to 10 req/sec.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	// Defaults to DefaultBurstSize if zero.
	BurstSize int

	// Observer receives per-request metrics observations. Optional.
	Observer sources.RequestObserver
}

// applyDefaults applies default values to the config.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
}

// Client retrieves article records from PubMed by PMID.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
}

// New creates a new PubMed client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpCfg := sources.HTTPClientConfig{
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		Source:    "pubmed",
		Observer:  cfg.Observer,
	}

	return &Client{
		config:     cfg,
		httpClient: sources.NewHTTPClient(httpCfg),
	}
}

// NewWithHTTPClient creates a new PubMed client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *sources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// FetchByPMIDs retrieves full article records for the given PMIDs via
// efetch.fcgi. Batches larger than MaxIDsPerFetch are split into multiple
// requests. PMIDs unknown to PubMed are silently absent from the result;
// callers detect them by comparing against the requested set.
func (c *Client) FetchByPMIDs(ctx context.Context, pmids []string) ([]domain.SourceRecord, error) {
	if len(pmids) == 0 {
		return nil, nil
	}

	records := make([]domain.SourceRecord, 0, len(pmids))
	for start := 0; start < len(pmids); start += MaxIDsPerFetch {
		end := start + MaxIDsPerFetch
		if end > len(pmids) {
			end = len(pmids)
		}

		set, err := c.efetch(ctx, pmids[start:end])
		if err != nil {
			return nil, err
		}
		for _, article := range set.Articles {
			records = append(records, convertArticle(article))
		}
	}

	return records, nil
}

// efetch calls efetch.fcgi and decodes the article set.
func (c *Client) efetch(ctx context.Context, pmids []string) (*PubmedArticleSet, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("id", strings.Join(pmids, ","))
	params.Set("retmode", "xml")
	if c.config.APIKey != "" {
		params.Set("api_key", c.config.APIKey)
	}

	endpoint := c.config.BaseURL + "/efetch.fcgi?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building efetch request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewExternalAPIError(sourceName, 0, "efetch request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, strings.TrimSpace(string(body)), nil)
	}

	var set PubmedArticleSet
	if err := xml.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, "decoding efetch response", err)
	}

	return &set, nil
}

// convertArticle maps one PubMed article to the shared source record shape.
func convertArticle(article PubmedArticle) domain.SourceRecord {
	citation := article.MedlineCitation
	rec := domain.SourceRecord{
		Kind:  domain.SourceKindPubMed,
		Title: strings.TrimSpace(strings.TrimSuffix(citation.Article.ArticleTitle, ".")),
		PMID:  citation.PMID.Value,
	}

	if citation.Article.Abstract != nil {
		rec.Abstract = joinAbstract(citation.Article.Abstract)
	}

	if citation.Article.AuthorList != nil {
		for _, a := range citation.Article.AuthorList.Authors {
			rec.Authors = append(rec.Authors, convertAuthor(a))
		}
	}

	rec.Journal = citation.Article.Journal.Title
	rec.JournalAbbrev = citation.Article.Journal.ISOAbbreviation
	if citation.Article.Journal.ISSN != nil {
		rec.ISSN = citation.Article.Journal.ISSN.Value
	}
	rec.Volume = citation.Article.Journal.JournalIssue.Volume
	rec.Issue = citation.Article.Journal.JournalIssue.Issue
	rec.Pages = extractPages(citation.Article.Pagination)

	rec.Year, rec.Month, rec.Day = extractDateParts(citation.Article)
	rec.DOI = extractDOI(citation.Article, article.PubmedData)
	rec.PMCID = extractArticleID(article.PubmedData, "pmc")

	if len(citation.Article.Language) > 0 {
		rec.Language = citation.Article.Language[0]
	}

	if citation.KeywordList != nil {
		for _, kw := range citation.KeywordList.Keywords {
			if v := strings.TrimSpace(kw.Value); v != "" {
				rec.Keywords = append(rec.Keywords, v)
			}
		}
	}
	if citation.MeshHeadingList != nil {
		for _, mh := range citation.MeshHeadingList.MeshHeadings {
			if v := strings.TrimSpace(mh.DescriptorName.Value); v != "" {
				rec.MeshTerms = append(rec.MeshTerms, v)
			}
		}
	}

	if citation.Article.PublicationTypeList != nil {
		for _, pt := range citation.Article.PublicationTypeList.PublicationTypes {
			if pt.Value != "" && pt.Value != "Journal Article" {
				rec.PublicationTypes = append(rec.PublicationTypes, pt.Value)
			}
		}
	}

	return rec
}

// convertAuthor maps a PubMed author entry. Collective names (consortia,
// working groups) have no given/family split and go into Full.
func convertAuthor(a Author) domain.AuthorName {
	if a.CollectiveName != "" {
		return domain.AuthorName{Full: a.CollectiveName}
	}
	given := a.ForeName
	if given == "" {
		given = a.Initials
	}
	return domain.AuthorName{Given: given, Family: a.LastName}
}

// joinAbstract flattens a possibly structured abstract into one string,
// keeping section labels when present.
func joinAbstract(abs *Abstract) string {
	parts := make([]string, 0, len(abs.AbstractTexts))
	for _, at := range abs.AbstractTexts {
		text := strings.TrimSpace(at.Value)
		if text == "" {
			continue
		}
		if at.Label != "" {
			text = at.Label + ": " + text
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n")
}

// extractDOI extracts the DOI from article metadata.
// It checks ELocationID first (more reliable), then ArticleIdList.
func extractDOI(article Article, pubmedData PubmedData) string {
	for _, eloc := range article.ELocationID {
		if eloc.EIdType == "doi" && (eloc.Valid == "" || eloc.Valid == "Y") {
			return eloc.Value
		}
	}
	for _, aid := range pubmedData.ArticleIdList.ArticleIds {
		if aid.IdType == "doi" {
			return aid.Value
		}
	}
	return ""
}

// extractArticleID returns the first identifier of the given type from
// the PubmedData id list.
func extractArticleID(pubmedData PubmedData, idType string) string {
	for _, aid := range pubmedData.ArticleIdList.ArticleIds {
		if aid.IdType == idType {
			return aid.Value
		}
	}
	return ""
}

// extractPages derives a page range string from the pagination block.
func extractPages(p *Pagination) string {
	if p == nil {
		return ""
	}
	if p.MedlinePgn != "" {
		return p.MedlinePgn
	}
	if p.StartPage != "" && p.EndPage != "" {
		return p.StartPage + "-" + p.EndPage
	}
	return p.StartPage
}

// extractDateParts extracts year, month, and day from the article.
// ArticleDate (electronic publication) is preferred over the journal
// issue PubDate. The month is returned as supplied (name or number);
// the mapper normalizes it later.
func extractDateParts(article Article) (int, string, int) {
	for _, ad := range article.ArticleDate {
		if ad.DateType != "" && ad.DateType != "epublish" && ad.DateType != "Electronic" {
			continue
		}
		if year, ok := parseInt(ad.Year); ok {
			day, _ := parseInt(ad.Day)
			return year, ad.Month, day
		}
	}

	pubDate := article.Journal.JournalIssue.PubDate
	if pubDate.Year != "" {
		if year, ok := parseInt(pubDate.Year); ok {
			day, _ := parseInt(pubDate.Day)
			return year, pubDate.Month, day
		}
	}

	// MedlineDate format, e.g. "2020 Jan-Feb" or "1998 Dec-1999 Jan".
	if pubDate.MedlineDate != "" {
		fields := strings.Fields(pubDate.MedlineDate)
		if len(fields) > 0 {
			if year, ok := parseInt(fields[0]); ok {
				return year, "", 0
			}
		}
	}

	return 0, "", 0
}

func parseInt(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return n, true
}
