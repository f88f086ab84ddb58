package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/coinpulse/coinpulse/internal/models"
)

const timeLayout = "2006-01-02 15:04:05"

// SaveCoinData upserts the latest quote for every coin in prices. Existing
// rows for the same coin name are overwritten. All rows are written in a
// single transaction.
func (s *Store) SaveCoinData(ctx context.Context, prices map[string]models.PriceInfo) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	now := time.Now().UTC().Format(timeLayout)
	for _, name := range sortedNames(prices) {
		info := prices[name]
		_, err := tx.ExecContext(ctx,
			`INSERT INTO coins (name, price, last_updated, last_24h_change, recorded_at)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(name) DO UPDATE SET
				price           = excluded.price,
				last_updated    = excluded.last_updated,
				last_24h_change = excluded.last_24h_change,
				recorded_at     = excluded.recorded_at`,
			name, info.USD, nullableInt64(info.LastUpdatedAt), nullableFloat(info.USD24hChange), now,
		)
		if err != nil {
			return fmt.Errorf("saving coin %q: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing coin data: %w", err)
	}
	return nil
}

// LoadCoinData returns the latest stored quote for every coin, ordered by name.
func (s *Store) LoadCoinData(ctx context.Context) ([]models.CoinSnapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, price, last_updated, last_24h_change, recorded_at
		 FROM coins ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying coins: %w", err)
	}
	defer rows.Close()

	coins := []models.CoinSnapshot{}
	for rows.Next() {
		c, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning coin row: %w", err)
		}
		coins = append(coins, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating coin rows: %w", err)
	}
	return coins, nil
}

// GetCoin returns the latest stored quote for a single coin.
// Returns nil, ErrNotFound if the coin has never been saved.
func (s *Store) GetCoin(ctx context.Context, name string) (*models.CoinSnapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, price, last_updated, last_24h_change, recorded_at
		 FROM coins WHERE name = ?`, name)

	c, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting coin %q: %w", name, err)
	}
	return c, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanSnapshot reads a row with the column order
// id, name, price, last_updated, last_24h_change, recorded_at.
func scanSnapshot(sc scanner) (*models.CoinSnapshot, error) {
	var (
		c           models.CoinSnapshot
		lastUpdated sql.NullInt64
		change      sql.NullFloat64
		recordedAt  string
	)
	if err := sc.Scan(&c.ID, &c.Name, &c.Price, &lastUpdated, &change, &recordedAt); err != nil {
		return nil, err
	}

	if lastUpdated.Valid {
		t := time.Unix(lastUpdated.Int64, 0).UTC()
		c.LastUpdated = &t
	}
	if change.Valid {
		v := change.Float64
		c.Change24h = &v
	}
	c.RecordedAt = parseTime(recordedAt)
	return &c, nil
}

func sortedNames(prices map[string]models.PriceInfo) []string {
	names := make([]string, 0, len(prices))
	for name := range prices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func nullableInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
