package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/coinpulse/coinpulse/internal/models"
)

// GetPreference retrieves a preference by key and JSON-unmarshals it into dest.
// Returns ErrNotFound if the key does not exist.
func (s *Store) GetPreference(ctx context.Context, key string, dest any) error {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM preferences WHERE key = ?`, key,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("getting preference %q: %w", key, err)
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return fmt.Errorf("unmarshaling preference %q: %w", key, err)
	}
	return nil
}

// SetPreference JSON-marshals value and stores it under the given key. If the
// key already exists, its value and updated_at are overwritten.
func (s *Store) SetPreference(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling preference %q: %w", key, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO preferences (key, value, updated_at)
		 VALUES (?, ?, datetime('now'))
		 ON CONFLICT(key) DO UPDATE SET
			value      = excluded.value,
			updated_at = excluded.updated_at`,
		key, string(data),
	)
	if err != nil {
		return fmt.Errorf("setting preference %q: %w", key, err)
	}
	return nil
}

// SetPreferences stores every raw JSON value in prefs under its key in a
// single transaction. Values must already be valid JSON.
func (s *Store) SetPreferences(ctx context.Context, prefs map[string]json.RawMessage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	for key, value := range prefs {
		if !json.Valid(value) {
			return fmt.Errorf("preference %q: value is not valid JSON", key)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO preferences (key, value, updated_at)
			 VALUES (?, ?, datetime('now'))
			 ON CONFLICT(key) DO UPDATE SET
				value      = excluded.value,
				updated_at = excluded.updated_at`,
			key, string(value),
		); err != nil {
			return fmt.Errorf("setting preference %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing preferences: %w", err)
	}
	return nil
}

// DeletePreference removes a preference. Returns ErrNotFound if the key does
// not exist.
func (s *Store) DeletePreference(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM preferences WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("deleting preference %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting preference %q: %w", key, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetPreferenceEntry returns the stored preference for key together with its
// last write time. It returns ErrNotFound if the key does not exist.
func (s *Store) GetPreferenceEntry(ctx context.Context, key string) (*models.Preference, error) {
	var value, updatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT value, updated_at FROM preferences WHERE key = ?`, key,
	).Scan(&value, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying preference %q: %w", key, err)
	}

	return &models.Preference{
		Key:       key,
		Value:     json.RawMessage(value),
		UpdatedAt: parseTime(updatedAt),
	}, nil
}

// GetAllPreferences returns every preference as a map of key to raw JSON value.
func (s *Store) GetAllPreferences(ctx context.Context) (map[string]json.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM preferences`)
	if err != nil {
		return nil, fmt.Errorf("querying all preferences: %w", err)
	}
	defer rows.Close()

	prefs := make(map[string]json.RawMessage)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scanning preference row: %w", err)
		}
		prefs[key] = json.RawMessage(value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating preference rows: %w", err)
	}
	return prefs, nil
}
