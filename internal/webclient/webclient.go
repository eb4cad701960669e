// Package webclient talks to an external web search API. The wire format
// is a small JSON contract shared by the search providers we deploy
// against; provider quirks stay behind this package.
package webclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/rankd/internal/retrieval"
)

// ErrInvalidConfig indicates invalid configuration.
var ErrInvalidConfig = errors.New("invalid configuration")

const (
	// DefaultTimeout bounds a single search request.
	DefaultTimeout = 10 * time.Second

	// DefaultRateLimit is requests per second against the provider.
	DefaultRateLimit = 5

	dateLayout = "2006-01-02"
)

// Config holds web search client settings.
type Config struct {
	// BaseURL is the search endpoint, e.g. "https://search.internal/v1/search".
	BaseURL string

	// APIKey is sent as a bearer token when set.
	APIKey string

	Timeout time.Duration

	// RateLimit caps outgoing requests per second; burst is the same value.
	RateLimit float64
}

func (c Config) normalize() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit <= 0 {
		c.RateLimit = DefaultRateLimit
	}
	return c
}

// Client is a rate-limited web search client.
type Client struct {
	config  Config
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient creates a Client. A nil logger disables logging.
func NewClient(config Config, logger *zap.Logger) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, fmt.Errorf("%w: parsing base URL: %v", ErrInvalidConfig, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	config = config.normalize()
	return &Client{
		config:  config,
		http:    &http.Client{Timeout: config.Timeout},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), int(config.RateLimit)),
		logger:  logger,
	}, nil
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	PublishedDate string  `json:"published_date,omitempty"`
	Author        string  `json:"author,omitempty"`
	Score         float64 `json:"score"`
}

// Search queries the provider. Filters map to query parameters; zero-valued
// filters are omitted.
func (c *Client) Search(ctx context.Context, query string, filters retrieval.WebFilters) ([]retrieval.WebHit, error) {
	if query == "" {
		return nil, nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	req, err := c.buildRequest(ctx, query, filters)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search returned status %d: %s", resp.StatusCode, body)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	c.logger.Debug("web search completed",
		zap.String("query", query),
		zap.Int("results", len(parsed.Results)),
		zap.Duration("duration", time.Since(start)),
	)
	return c.toHits(parsed.Results), nil
}

func (c *Client) buildRequest(ctx context.Context, query string, filters retrieval.WebFilters) (*http.Request, error) {
	u, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	params := u.Query()
	params.Set("q", query)
	if filters.Topic != "" {
		params.Set("topic", filters.Topic)
	}
	if filters.Country != "" {
		params.Set("country", filters.Country)
	}
	if !filters.DateFrom.IsZero() {
		params.Set("date_from", filters.DateFrom.Format(dateLayout))
	}
	if !filters.DateTo.IsZero() {
		params.Set("date_to", filters.DateTo.Format(dateLayout))
	}
	if filters.MaxResults > 0 {
		params.Set("max_results", strconv.Itoa(filters.MaxResults))
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}
	return req, nil
}

func (c *Client) toHits(results []searchResult) []retrieval.WebHit {
	hits := make([]retrieval.WebHit, 0, len(results))
	for _, r := range results {
		if r.URL == "" {
			continue
		}
		hit := retrieval.WebHit{
			Title:   r.Title,
			URL:     r.URL,
			Content: r.Content,
			Author:  r.Author,
			Score:   r.Score,
		}
		if r.PublishedDate != "" {
			if ts, err := time.Parse(dateLayout, r.PublishedDate); err == nil {
				hit.PublishedDate = &ts
			} else if ts, err := time.Parse(time.RFC3339, r.PublishedDate); err == nil {
				hit.PublishedDate = &ts
			}
		}
		hits = append(hits, hit)
	}
	return hits
}
