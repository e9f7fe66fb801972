// Package icite fetches citation impact metrics from the NIH iCite API.
//
// iCite serves per-article metrics (Relative Citation Ratio, NIH
// percentile, APT, citation counts) keyed by PMID. API documentation:
// https://icite.od.nih.gov/api
package icite

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/refkeeper/reference-import-service/internal/domain"
	"github.com/refkeeper/reference-import-service/internal/sources"
)

const (
	// DefaultBaseURL is the default iCite API base URL.
	DefaultBaseURL = "https://icite.od.nih.gov/api"

	// DefaultRateLimit is the default rate limit for requests per second.
	DefaultRateLimit = 5.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 5

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// MaxIDsPerRequest is the maximum number of PMIDs per /pubs call.
	MaxIDsPerRequest = 1000

	// sourceName is the human-readable name for this source.
	sourceName = "iCite"
)

// Config holds configuration for the iCite client.
type Config struct {
	// BaseURL is the iCite API base URL.
	// Defaults to https://icite.od.nih.gov/api
	BaseURL string

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

// pubsResponse is the envelope returned by the /pubs endpoint.
type pubsResponse struct {
	Data []publication `json:"data"`
}

// publication is a single iCite record. PMIDs come back as numbers.
type publication struct {
	PMID                  json.Number `json:"pmid"`
	RelativeCitationRatio *float64    `json:"relative_citation_ratio"`
	NIHPercentile         *float64    `json:"nih_percentile"`
	APT                   *float64    `json:"apt"`
	CitationCount         int         `json:"citation_count"`
}

// Client fetches citation metrics by PMID.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
}

// New creates a new iCite client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpClient := sources.NewHTTPClient(sources.HTTPClientConfig{
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		Source:    "icite",
		Observer:  cfg.Observer,
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a new iCite client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *sources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// FetchMetrics retrieves citation metrics for the given PMIDs. The result
// maps PMID to metrics; PMIDs iCite does not know are absent from the map.
func (c *Client) FetchMetrics(ctx context.Context, pmids []string) (map[string]domain.CitationMetrics, error) {
	metrics := make(map[string]domain.CitationMetrics, len(pmids))
	if len(pmids) == 0 {
		return metrics, nil
	}

	for start := 0; start < len(pmids); start += MaxIDsPerRequest {
		end := start + MaxIDsPerRequest
		if end > len(pmids) {
			end = len(pmids)
		}
		if err := c.fetchBatch(ctx, pmids[start:end], metrics); err != nil {
			return nil, err
		}
	}

	return metrics, nil
}

// fetchBatch calls /pubs for one slice of PMIDs and folds the results
// into the shared map.
func (c *Client) fetchBatch(ctx context.Context, pmids []string, out map[string]domain.CitationMetrics) error {
	params := url.Values{}
	params.Set("pmids", strings.Join(pmids, ","))
	params.Set("fl", "pmid,relative_citation_ratio,nih_percentile,apt,citation_count")

	endpoint := c.config.BaseURL + "/pubs?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building pubs request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewExternalAPIError(sourceName, 0, "pubs request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, strings.TrimSpace(string(body)), nil)
	}

	var pr pubsResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, "decoding pubs response", err)
	}

	for _, pub := range pr.Data {
		pmid := pub.PMID.String()
		if pmid == "" {
			continue
		}
		m := domain.CitationMetrics{CitationCount: pub.CitationCount}
		if pub.RelativeCitationRatio != nil {
			m.RelativeCitationRatio = *pub.RelativeCitationRatio
		}
		if pub.NIHPercentile != nil {
			m.NIHPercentile = *pub.NIHPercentile
		}
		if pub.APT != nil {
			m.APT = *pub.APT
		}
		out[pmid] = m
	}

	return nil
}
