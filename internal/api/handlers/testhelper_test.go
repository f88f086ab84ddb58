package handlers

import (
	"context"
	"testing"

	"github.com/coinpulse/coinpulse/internal/dashboard"
	"github.com/coinpulse/coinpulse/internal/models"
	"github.com/coinpulse/coinpulse/internal/storage"
)

// newTestStore creates an in-memory SQLite store with migrations applied. It
// registers a cleanup function to close the database when the test completes.
func newTestStore(t *testing.T) *storage.Store {
	t.Helper()

	db, err := storage.OpenDatabase(":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := storage.RunMigrations(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	return storage.NewStore(db)
}

// newTestPage builds the default dashboard page backed by store.
func newTestPage(t *testing.T, store *storage.Store) *dashboard.Page {
	t.Helper()

	page, err := dashboard.NewDefaultPage(context.Background(), store)
	if err != nil {
		t.Fatalf("creating dashboard page: %v", err)
	}
	return page
}

// stubSource is a PriceSource returning fixed prices or an error.
type stubSource struct {
	prices map[string]models.PriceInfo
	err    error
}

func (s *stubSource) SimplePrice(ctx context.Context, ids []string) (map[string]models.PriceInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string]models.PriceInfo)
	for _, id := range ids {
		if p, ok := s.prices[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func float64Ptr(v float64) *float64 { return &v }
func int64Ptr(v int64) *int64       { return &v }
