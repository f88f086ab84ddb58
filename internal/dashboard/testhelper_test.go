package dashboard

import (
	"context"
	"testing"

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

// newTestPage builds the default page backed by store.
func newTestPage(t *testing.T, store PreferenceStore) *Page {
	t.Helper()

	page, err := NewDefaultPage(context.Background(), store)
	if err != nil {
		t.Fatalf("NewDefaultPage() error: %v", err)
	}
	return page
}
