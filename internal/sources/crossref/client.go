package crossref

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/refkeeper/reference-import-service/internal/domain"
	"github.com/refkeeper/reference-import-service/internal/sources"
)

const (
	// DefaultBaseURL is the default CrossRef REST API base URL.
	DefaultBaseURL = "https://api.crossref.org"

	// DefaultRateLimit is the default rate limit for requests per second.
	// CrossRef's polite pool (with a mailto in the User-Agent) tolerates
	// substantially more, but lookups here are one-per-record.
	DefaultRateLimit = 10.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 10

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// sourceName is the human-readable name for this source.
	sourceName = "CrossRef"
)

// Config holds configuration for the CrossRef client.
type Config struct {
	// BaseURL is the CrossRef API base URL.
	// Defaults to https://api.crossref.org
	BaseURL string

	// Email is the contact email for the polite pool. Providing one puts
	// requests in the polite pool with better service levels.
	Email string

	// Timeout is the request timeout.
	// Defaults to 30 seconds.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// Observer receives per-request metrics observations. Optional.
	Observer sources.RequestObserver
}

// applyDefaults sets default values for unset configuration fields.
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

// Client looks up work records on CrossRef by DOI.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
}

// New creates a new CrossRef client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	userAgent := "RefKeeper-ImportService/1.0"
	if cfg.Email != "" {
		userAgent += " (mailto:" + cfg.Email + ")"
	}

	httpClient := sources.NewHTTPClient(sources.HTTPClientConfig{
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		UserAgent: userAgent,
		Source:    "crossref",
		Observer:  cfg.Observer,
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a new CrossRef client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *sources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// FetchByDOI retrieves one work record. A 404 from CrossRef maps to
// domain.ErrNotFound so callers can distinguish "unknown DOI" from
// transport failures.
func (c *Client) FetchByDOI(ctx context.Context, doi string) (*domain.SourceRecord, error) {
	doi = strings.TrimSpace(doi)
	if doi == "" {
		return nil, domain.NewValidationError("doi", "must not be empty")
	}

	endpoint := c.config.BaseURL + "/works/" + url.PathEscape(doi)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building works request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewExternalAPIError(sourceName, 0, "works request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.NewNotFoundError("work", doi)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, strings.TrimSpace(string(body)), nil)
	}

	var wr WorkResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, "decoding works response", err)
	}

	rec := convertWork(wr.Message)
	return &rec, nil
}

// convertWork maps one CrossRef work to the shared source record shape.
func convertWork(w Work) domain.SourceRecord {
	rec := domain.SourceRecord{
		Kind:     domain.SourceKindCrossRef,
		ItemType: w.Type,
		Title:    strings.TrimSpace(strings.Join(w.Title, " ")),
		Abstract: stripJATS(w.Abstract),
		Volume:   w.Volume,
		Issue:    w.Issue,
		Pages:    w.Page,
		DOI:      w.DOI,
		URL:      w.URL,
		Language: w.Language,
		Keywords: w.Subject,
	}

	if len(w.ContainerTitle) > 0 {
		rec.Journal = w.ContainerTitle[0]
	}
	if len(w.ShortContainer) > 0 {
		rec.JournalAbbrev = w.ShortContainer[0]
	}
	if len(w.ISSN) > 0 {
		rec.ISSN = w.ISSN[0]
	}
	if len(w.ISBN) > 0 {
		rec.ISBN = w.ISBN[0]
	}

	for _, p := range w.Author {
		if p.Name != "" && p.Given == "" && p.Family == "" {
			rec.Authors = append(rec.Authors, domain.AuthorName{Full: p.Name})
			continue
		}
		rec.Authors = append(rec.Authors, domain.AuthorName{Given: p.Given, Family: p.Family})
	}

	year, month, day := bestDate(w)
	rec.Year = year
	if month > 0 {
		rec.Month = strconv.Itoa(month)
	}
	rec.Day = day

	return rec
}

// bestDate prefers the print date, then the online date, then "issued".
func bestDate(w Work) (int, int, int) {
	if w.PublishedPrint != nil {
		if y, m, d := w.PublishedPrint.YMD(); y > 0 {
			return y, m, d
		}
	}
	if w.PublishedOnline != nil {
		if y, m, d := w.PublishedOnline.YMD(); y > 0 {
			return y, m, d
		}
	}
	return w.Issued.YMD()
}

// jatsTag matches the JATS XML markup CrossRef embeds in abstracts.
var jatsTag = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)

// stripJATS removes JATS markup from an abstract and collapses the
// resulting whitespace.
func stripJATS(s string) string {
	if s == "" {
		return ""
	}
	s = jatsTag.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}
