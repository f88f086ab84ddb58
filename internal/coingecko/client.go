// Package coingecko fetches spot prices from the CoinGecko simple price API.
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coinpulse/coinpulse/internal/models"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultBaseURL is the public CoinGecko v3 API root.
	DefaultBaseURL = "https://api.coingecko.com/api/v3"

	httpTimeout      = 30 * time.Second
	maxConcurrent    = 4
	defaultBatchSize = 50
	maxBodyBytes     = 4 * 1024 * 1024
	userAgent        = "coinpulse/1.0 (+https://github.com/coinpulse/coinpulse)"
)

// StatusError is returned when CoinGecko answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("coingecko: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("coingecko: HTTP %d: %s", e.StatusCode, e.Body)
}

// Options configures a Client. Zero values select the defaults.
type Options struct {
	BaseURL    string
	APIKey     string
	BatchSize  int
	HTTPClient *http.Client
}

// Client queries CoinGecko for simple USD prices.
type Client struct {
	baseURL   string
	batchSize int
	client    *http.Client
}

// NewClient creates a Client. When opts.HTTPClient is nil, a client with a
// 30-second timeout and the coinpulse User-Agent is used.
func NewClient(opts Options) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		batchSize: opts.BatchSize,
		client:    opts.HTTPClient,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.batchSize <= 0 {
		c.batchSize = defaultBatchSize
	}
	if c.client == nil {
		c.client = &http.Client{
			Timeout: httpTimeout,
			Transport: &headerTransport{
				base:   http.DefaultTransport,
				apiKey: opts.APIKey,
			},
		}
	}
	return c
}

// headerTransport wraps an http.RoundTripper to inject the User-Agent and,
// when configured, the CoinGecko demo API key on every request.
type headerTransport struct {
	base   http.RoundTripper
	apiKey string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if t.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", t.apiKey)
	}
	return t.base.RoundTrip(req)
}

// SimplePrice returns the USD price, 24h change and last update time for each
// of the given coin ids. Ids are split into batches that are fetched
// concurrently; any failed batch fails the whole call. Ids unknown to
// CoinGecko are simply absent from the result.
func (c *Client) SimplePrice(ctx context.Context, ids []string) (map[string]models.PriceInfo, error) {
	result := make(map[string]models.PriceInfo, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	for _, batch := range chunk(ids, c.batchSize) {
		g.Go(func() error {
			prices, err := c.fetchBatch(ctx, batch)
			if err != nil {
				return err
			}

			mu.Lock()
			for name, info := range prices {
				result[name] = info
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetching simple prices: %w", err)
	}

	return result, nil
}

// fetchBatch issues a single simple/price request for up to batchSize ids.
func (c *Client) fetchBatch(ctx context.Context, ids []string) (map[string]models.PriceInfo, error) {
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", "usd")
	q.Set("include_24hr_change", "true")
	q.Set("include_last_updated_at", "true")
	endpoint := c.baseURL + "/simple/price?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %q: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
	}

	slog.Debug("coingecko response", "ids", len(ids), "body", string(body))

	var prices map[string]models.PriceInfo
	if err := json.Unmarshal(body, &prices); err != nil {
		return nil, fmt.Errorf("decoding simple price response: %w", err)
	}
	return prices, nil
}

// chunk splits ids into consecutive slices of at most size elements.
func chunk(ids []string, size int) [][]string {
	var batches [][]string
	for len(ids) > size {
		batches = append(batches, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		batches = append(batches, ids)
	}
	return batches
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
