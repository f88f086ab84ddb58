package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/coinpulse/coinpulse/internal/models"
)

// RecordHistory appends one price_history row per coin in prices, stamped
// with at. It returns the number of rows written.
func (s *Store) RecordHistory(ctx context.Context, prices map[string]models.PriceInfo, at time.Time) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	stamp := at.UTC().Format(timeLayout)
	names := sortedNames(prices)
	for _, name := range names {
		info := prices[name]
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO price_history (name, price, last_updated, last_24h_change, recorded_at)
			 VALUES (?, ?, ?, ?, ?)`,
			name, info.USD, nullableInt64(info.LastUpdatedAt), nullableFloat(info.USD24hChange), stamp,
		); err != nil {
			return 0, fmt.Errorf("recording history for %q: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing history: %w", err)
	}
	return len(names), nil
}

// GetHistory returns up to limit history rows for a coin, newest first.
func (s *Store) GetHistory(ctx context.Context, name string, limit int) ([]models.CoinSnapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, price, last_updated, last_24h_change, recorded_at
		 FROM price_history
		 WHERE name = ?
		 ORDER BY recorded_at DESC, id DESC
		 LIMIT ?`, name, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history for %q: %w", name, err)
	}
	defer rows.Close()

	history := []models.CoinSnapshot{}
	for rows.Next() {
		c, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		history = append(history, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history rows: %w", err)
	}
	return history, nil
}

// PruneHistory deletes history rows recorded before the cutoff and returns
// how many were removed.
func (s *Store) PruneHistory(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM price_history WHERE recorded_at < ?`,
		before.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned rows: %w", err)
	}
	return n, nil
}
