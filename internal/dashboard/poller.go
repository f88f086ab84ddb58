// Package dashboard polls a CoinPulse price endpoint and renders one card
// per asset onto a Surface, and owns the dashboard page and its persisted
// light/dark theme.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/coinpulse/coinpulse/internal/models"
)

// DefaultInterval is the time between poll cycles.
const DefaultInterval = 60 * time.Second

// Surface is a place cards are rendered. ReplaceCards always receives the
// complete set for one cycle.
type Surface interface {
	ReplaceCards(cards []Card)
}

// Poller fetches the price endpoint on a fixed interval and replaces the
// surface's cards after every successful fetch.
type Poller struct {
	endpoint string
	interval time.Duration
	surface  Surface
	client   *http.Client
}

// NewPoller creates a Poller for endpoint. A non-positive interval selects
// DefaultInterval.
func NewPoller(endpoint string, surface Surface, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		endpoint: endpoint,
		interval: interval,
		surface:  surface,
		client:   &http.Client{},
	}
}

// SetHTTPClient replaces the client used for polling.
func (p *Poller) SetHTTPClient(c *http.Client) {
	p.client = c
}

// Run polls once immediately and then on every tick until ctx is cancelled.
// Failed cycles are logged and leave the surface untouched; the next tick
// tries again.
func (p *Poller) Run(ctx context.Context) {
	slog.Info("dashboard poller started", "endpoint", p.endpoint, "interval", p.interval.String())

	p.pollAndLog(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("dashboard poller stopped")
			return
		case <-ticker.C:
			p.pollAndLog(ctx)
		}
	}
}

func (p *Poller) pollAndLog(ctx context.Context) {
	if _, err := p.Poll(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		slog.Error("failed to load crypto data", "endpoint", p.endpoint, "error", err)
	}
}

// Poll runs one cycle: GET the endpoint, decode it and replace the surface's
// cards. On any failure it returns a *RequestError and the surface is not
// touched.
func (p *Poller) Poll(ctx context.Context) ([]Card, error) {
	quotes, err := p.fetch(ctx)
	if err != nil {
		return nil, err
	}

	cards := BuildCards(quotes)
	p.surface.ReplaceCards(cards)
	return cards, nil
}

// wireQuote mirrors models.Quote with usd as a pointer so a missing price can
// be told apart from zero.
type wireQuote struct {
	USD           *float64 `json:"usd"`
	USD24hChange  *float64 `json:"usd_24h_change"`
	LastUpdatedAt string   `json:"last_updated_at"`
}

func (p *Poller) fetch(ctx context.Context) (map[string]models.Quote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint, nil)
	if err != nil {
		return nil, &RequestError{Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &RequestError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RequestError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestError{Err: fmt.Errorf("reading response body: %w", err)}
	}

	var wire map[string]wireQuote
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, &RequestError{Err: fmt.Errorf("decoding response body: %w", err)}
	}
	if wire == nil {
		return nil, &RequestError{Err: errors.New("decoding response body: null price map")}
	}

	slog.Debug("received crypto data", "assets", len(wire), "body", string(body))

	quotes := make(map[string]models.Quote, len(wire))
	for name, w := range wire {
		if w.USD == nil {
			return nil, &RequestError{Err: fmt.Errorf("asset %q has no usd price", name)}
		}
		quotes[name] = models.Quote{
			USD:           *w.USD,
			USD24hChange:  w.USD24hChange,
			LastUpdatedAt: w.LastUpdatedAt,
		}
	}
	return quotes, nil
}
