package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/coinpulse/coinpulse/internal/config"
	"github.com/coinpulse/coinpulse/internal/dashboard"
	"github.com/coinpulse/coinpulse/internal/models"
	"github.com/coinpulse/coinpulse/internal/storage"
)

type fixedSource struct {
	prices map[string]models.PriceInfo
}

func (s fixedSource) SimplePrice(ctx context.Context, ids []string) (map[string]models.PriceInfo, error) {
	return s.prices, nil
}

// newTestServer wires the router to an in-memory store, a fixed price source
// and the default dashboard page.
func newTestServer(t *testing.T) (*httptest.Server, *dashboard.Page) {
	t.Helper()

	db, err := storage.OpenDatabase(":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.RunMigrations(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	store := storage.NewStore(db)

	page, err := dashboard.NewDefaultPage(context.Background(), store)
	if err != nil {
		t.Fatalf("creating page: %v", err)
	}

	change := -1.234
	src := fixedSource{prices: map[string]models.PriceInfo{
		"bitcoin": {USD: 50000.5, USD24hChange: &change},
	}}

	cfg := &config.Config{Prices: config.PricesConfig{Coins: []string{"bitcoin"}}}
	srv := httptest.NewServer(NewRouter(store, src, nil, page, cfg))
	t.Cleanup(srv.Close)
	return srv, page
}

func TestRouterDashboardEndToEnd(t *testing.T) {
	srv, page := newTestServer(t)

	poller := dashboard.NewPoller(srv.URL+"/api/crypto", page, 0)
	if _, err := poller.Poll(context.Background()); err != nil {
		t.Fatalf("Poll() error: %v", err)
	}

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		t.Fatalf("parsing page: %v", err)
	}

	cards := doc.Find("#crypto-list .crypto-card")
	if cards.Length() != 1 {
		t.Fatalf("got %d cards, want 1", cards.Length())
	}
	if got := cards.Find("h3").Text(); got != "BITCOIN" {
		t.Errorf("title = %q, want BITCOIN", got)
	}
	if got := cards.Find(".price-change.down").Text(); got != "-1.23%" {
		t.Errorf("change = %q, want -1.23%%", got)
	}
}

func TestRouterThemeToggleForm(t *testing.T) {
	srv, _ := newTestServer(t)

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Post(srv.URL+"/theme/toggle", "application/x-www-form-urlencoded", nil)
	if err != nil {
		t.Fatalf("POST /theme/toggle: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("got status %d, want %d", resp.StatusCode, http.StatusSeeOther)
	}

	resp, err = http.Get(srv.URL + "/api/theme")
	if err != nil {
		t.Fatalf("GET /api/theme: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding theme: %v", err)
	}
	if body["theme"] != "dark" {
		t.Errorf("theme = %q, want dark", body["theme"])
	}
}

func TestRouterServesStylesheet(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/static/style.css")
	if err != nil {
		t.Fatalf("GET /static/style.css: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d, want %d", resp.StatusCode, http.StatusOK)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), ".dark-theme") {
		t.Error("stylesheet missing dark theme rules")
	}
}

func TestRouterUnknownAPIRoute(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/nope")
	if err != nil {
		t.Fatalf("GET /api/nope: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("got status %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}
