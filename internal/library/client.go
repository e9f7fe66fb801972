// Package library talks to the reference manager's local HTTP API.
//
// The desktop application exposes a read API on localhost (items and
// collections, in the web-API envelope shape) and a connector-style
// write endpoint for saving new items. All calls are local and cheap,
// but the server is single-threaded, so reads are bounded and writes
// are batched into a single call per import.
package library

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/refkeeper/reference-import-service/internal/domain"
	"github.com/refkeeper/reference-import-service/internal/sources"
)

const (
	// DefaultBaseURL is where the desktop application listens.
	DefaultBaseURL = "http://localhost:23119"

	// DefaultTimeout is the default request timeout. Local, but large
	// libraries can take a while to serialize.
	DefaultTimeout = 60 * time.Second

	// DefaultItemLimit bounds the snapshot read when the caller does
	// not specify one.
	DefaultItemLimit = 100

	// sourceName is the label used in errors from this client.
	sourceName = "library"
)

// Config holds configuration for the library client.
type Config struct {
	// BaseURL is the local API base URL.
	// Defaults to http://localhost:23119
	BaseURL string

	// Timeout is the request timeout.
	Timeout time.Duration

	// ItemLimit is the maximum items fetched per snapshot read.
	ItemLimit int

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
	if c.ItemLimit == 0 {
		c.ItemLimit = DefaultItemLimit
	}
}

// Client is the local-API client. It satisfies the importer's reader and
// writer interfaces. Snapshot reads retry on transient failures; the
// connector write never does, because the write is at most once per
// batch and a resend after an ambiguous failure could store the same
// items twice.
type Client struct {
	config      Config
	readClient  *sources.HTTPClient
	writeClient *sources.HTTPClient
}

// New creates a new library client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	return &Client{
		config: cfg,
		readClient: sources.NewHTTPClient(sources.HTTPClientConfig{
			Timeout:  cfg.Timeout,
			Source:   sourceName,
			Observer: cfg.Observer,
		}),
		writeClient: sources.NewHTTPClient(sources.HTTPClientConfig{
			Timeout:    cfg.Timeout,
			MaxRetries: sources.NoRetries,
			Source:     sourceName,
			Observer:   cfg.Observer,
		}),
	}
}

// NewWithHTTPClient creates a new library client with a custom HTTP client,
// used for both reads and writes. This is useful for testing with mock
// servers.
func NewWithHTTPClient(cfg Config, httpClient *sources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{
		config:      cfg,
		readClient:  httpClient,
		writeClient: httpClient,
	}
}

// itemEnvelope is the web-API item shape served by the local endpoint.
type itemEnvelope struct {
	Key  string `json:"key"`
	Data struct {
		Key      string `json:"key"`
		ItemType string `json:"itemType"`
		Title    string `json:"title"`
		DOI      string `json:"DOI"`
		ISBN     string `json:"ISBN"`
		Extra    string `json:"extra"`
	} `json:"data"`
}

// collectionEnvelope is the web-API collection shape.
type collectionEnvelope struct {
	Key  string `json:"key"`
	Meta struct {
		NumItems int `json:"numItems"`
	} `json:"meta"`
	Data struct {
		Name             string    `json:"name"`
		ParentCollection parentKey `json:"parentCollection"`
	} `json:"data"`
}

// parentKey decodes the parentCollection field, which is the literal
// false for top-level collections and a key string otherwise.
type parentKey string

func (p *parentKey) UnmarshalJSON(b []byte) error {
	if string(b) == "false" || string(b) == "null" {
		*p = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*p = parentKey(s)
	return nil
}

// Items fetches one bounded snapshot of the library, newest first. Notes
// and attachments are excluded; the snapshot is for duplicate matching,
// not for display.
func (c *Client) Items(ctx context.Context, limit int) ([]domain.ExistingItem, error) {
	if limit <= 0 {
		limit = c.config.ItemLimit
	}

	endpoint := c.config.BaseURL + "/api/users/0/items?itemType=-attachment%20%7C%7C%20note&sort=dateAdded&direction=desc&limit=" + strconv.Itoa(limit)
	var envelopes []itemEnvelope
	if err := c.getJSON(ctx, endpoint, &envelopes); err != nil {
		return nil, err
	}

	items := make([]domain.ExistingItem, 0, len(envelopes))
	for _, env := range envelopes {
		key := env.Key
		if key == "" {
			key = env.Data.Key
		}
		items = append(items, domain.ExistingItem{
			Key:   key,
			Title: env.Data.Title,
			DOI:   env.Data.DOI,
			ISBN:  env.Data.ISBN,
			Extra: env.Data.Extra,
		})
	}

	return items, nil
}

// Collections fetches all collections in the library.
func (c *Client) Collections(ctx context.Context) ([]domain.CollectionRef, error) {
	endpoint := c.config.BaseURL + "/api/users/0/collections"
	var envelopes []collectionEnvelope
	if err := c.getJSON(ctx, endpoint, &envelopes); err != nil {
		return nil, err
	}

	refs := make([]domain.CollectionRef, 0, len(envelopes))
	for _, env := range envelopes {
		refs = append(refs, domain.CollectionRef{
			Key:       env.Key,
			Name:      env.Data.Name,
			ParentKey: string(env.Data.ParentCollection),
			ItemCount: env.Meta.NumItems,
		})
	}

	return refs, nil
}

// saveRequest is the connector-endpoint payload for writing items.
type saveRequest struct {
	Items []*domain.CanonicalItem `json:"items"`
}

// SaveItems writes the batch in a single call. Any non-2xx status is a
// write error for the whole batch; the endpoint reports no per-item
// detail, so callers must not assume partial success.
func (c *Client) SaveItems(ctx context.Context, items []*domain.CanonicalItem) error {
	if len(items) == 0 {
		return nil
	}

	body, err := json.Marshal(saveRequest{Items: items})
	if err != nil {
		return fmt.Errorf("encoding save request: %w", err)
	}

	endpoint := c.config.BaseURL + "/connector/saveItems"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building save request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.writeClient.Do(req)
	if err != nil {
		return domain.NewExternalAPIError(sourceName, 0, "save request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, strings.TrimSpace(string(detail)), nil)
	}

	return nil
}

// getJSON issues a GET and decodes a JSON response into out.
func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := c.readClient.Do(req)
	if err != nil {
		return domain.NewExternalAPIError(sourceName, 0, "request failed; is the reference manager running?", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, strings.TrimSpace(string(detail)), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, "decoding response", err)
	}

	return nil
}
