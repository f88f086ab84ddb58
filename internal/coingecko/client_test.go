package coingecko

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func TestSimplePrice(t *testing.T) {
	var gotQuery, gotUA, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/simple/price" {
			t.Errorf("got path %q, want /api/v3/simple/price", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		gotUA = r.Header.Get("User-Agent")
		gotKey = r.Header.Get("x-cg-demo-api-key")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"bitcoin":{"usd":50000.5,"usd_24h_change":-1.234,"last_updated_at":1700000000},"dogecoin":{"usd":0.08}}`)
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL + "/api/v3/", APIKey: "demo-key"})

	prices, err := c.SimplePrice(context.Background(), []string{"bitcoin", "dogecoin"})
	if err != nil {
		t.Fatalf("SimplePrice() error: %v", err)
	}

	if len(prices) != 2 {
		t.Fatalf("got %d prices, want 2", len(prices))
	}

	btc := prices["bitcoin"]
	if btc.USD != 50000.5 {
		t.Errorf("bitcoin usd = %v, want 50000.5", btc.USD)
	}
	if btc.USD24hChange == nil || *btc.USD24hChange != -1.234 {
		t.Errorf("bitcoin usd_24h_change = %v, want -1.234", btc.USD24hChange)
	}
	if btc.LastUpdatedAt == nil || *btc.LastUpdatedAt != 1700000000 {
		t.Errorf("bitcoin last_updated_at = %v, want 1700000000", btc.LastUpdatedAt)
	}

	doge := prices["dogecoin"]
	if doge.USD24hChange != nil {
		t.Errorf("dogecoin usd_24h_change = %v, want nil", *doge.USD24hChange)
	}

	for _, want := range []string{"ids=bitcoin%2Cdogecoin", "vs_currencies=usd", "include_24hr_change=true", "include_last_updated_at=true"} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query %q missing %q", gotQuery, want)
		}
	}
	if !strings.HasPrefix(gotUA, "coinpulse/") {
		t.Errorf("User-Agent = %q, want coinpulse/ prefix", gotUA)
	}
	if gotKey != "demo-key" {
		t.Errorf("x-cg-demo-api-key = %q, want %q", gotKey, "demo-key")
	}
}

func TestSimplePriceBatches(t *testing.T) {
	var (
		mu      sync.Mutex
		batches []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids := r.URL.Query().Get("ids")
		mu.Lock()
		batches = append(batches, ids)
		mu.Unlock()

		var parts []string
		for _, id := range strings.Split(ids, ",") {
			parts = append(parts, fmt.Sprintf("%q:{\"usd\":1}", id))
		}
		fmt.Fprint(w, "{"+strings.Join(parts, ",")+"}")
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, BatchSize: 2})

	ids := []string{"a", "b", "c", "d", "e"}
	prices, err := c.SimplePrice(context.Background(), ids)
	if err != nil {
		t.Fatalf("SimplePrice() error: %v", err)
	}

	if len(prices) != len(ids) {
		t.Errorf("got %d prices, want %d", len(prices), len(ids))
	}
	if len(batches) != 3 {
		t.Errorf("got %d requests, want 3 (batches: %v)", len(batches), batches)
	}
}

func TestSimplePriceStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL})

	_, err := c.SimplePrice(context.Background(), []string{"bitcoin"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %T: %v", err, err)
	}
	if se.StatusCode != http.StatusTooManyRequests {
		t.Errorf("StatusCode = %d, want %d", se.StatusCode, http.StatusTooManyRequests)
	}
}

func TestSimplePriceInvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>maintenance</html>")
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL})

	if _, err := c.SimplePrice(context.Background(), []string{"bitcoin"}); err == nil {
		t.Fatal("expected decode error, got nil")
	}
}

func TestSimplePriceNoIDs(t *testing.T) {
	c := NewClient(Options{BaseURL: "http://127.0.0.1:0"})

	prices, err := c.SimplePrice(context.Background(), nil)
	if err != nil {
		t.Fatalf("SimplePrice(nil) error: %v", err)
	}
	if len(prices) != 0 {
		t.Errorf("got %d prices, want 0", len(prices))
	}
}

func TestChunk(t *testing.T) {
	tests := []struct {
		name string
		ids  []string
		size int
		want int
	}{
		{name: "empty", ids: nil, size: 3, want: 0},
		{name: "smaller than size", ids: []string{"a", "b"}, size: 3, want: 1},
		{name: "exact multiple", ids: []string{"a", "b", "c", "d"}, size: 2, want: 2},
		{name: "remainder", ids: []string{"a", "b", "c", "d", "e"}, size: 2, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := chunk(tt.ids, tt.size)
			if len(got) != tt.want {
				t.Errorf("chunk() returned %d batches, want %d", len(got), tt.want)
			}
			var total int
			for _, b := range got {
				if len(b) > tt.size {
					t.Errorf("batch %v exceeds size %d", b, tt.size)
				}
				total += len(b)
			}
			if total != len(tt.ids) {
				t.Errorf("batches hold %d ids, want %d", total, len(tt.ids))
			}
		})
	}
}
