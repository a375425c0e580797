// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prefs persists client-local preferences: the saved-filter
// list and the current filter selection. This state is keyed
// independently of session data and survives restarts.
package prefs

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/sagedesk/sage-tui/internal/model"
)

var (
	// ErrFilterNotFound indicates no saved filter with the given name.
	ErrFilterNotFound = errors.New("saved filter not found")
)

const schema = `
CREATE TABLE IF NOT EXISTS saved_filters (
    name       TEXT PRIMARY KEY,
    filter     TEXT NOT NULL,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

const currentFilterKey = "current_filter"

// Store is the SQLite-backed preference store.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the preference database location under the user's
// home directory.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to find home directory: %w", err)
	}
	return filepath.Join(home, ".sage", "prefs.db"), nil
}

// Open opens or creates the store at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create preference directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open preference database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// SAVED FILTERS
// =============================================================================

// SaveFilter inserts or replaces a named filter.
func (s *Store) SaveFilter(name string, f model.Filter) error {
	if name == "" {
		return errors.New("filter name cannot be empty")
	}
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to encode filter: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO saved_filters (name, filter, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET
			filter = excluded.filter,
			updated_at = CURRENT_TIMESTAMP`,
		name, string(data))
	if err != nil {
		return fmt.Errorf("failed to save filter: %w", err)
	}
	return nil
}

// GetFilter loads one saved filter by name.
func (s *Store) GetFilter(name string) (model.Filter, error) {
	var data string
	err := s.db.QueryRow(
		"SELECT filter FROM saved_filters WHERE name = ?", name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Filter{}, ErrFilterNotFound
	}
	if err != nil {
		return model.Filter{}, fmt.Errorf("failed to load filter: %w", err)
	}

	var f model.Filter
	if err := json.Unmarshal([]byte(data), &f); err != nil {
		return model.Filter{}, fmt.Errorf("failed to decode filter: %w", err)
	}
	return f, nil
}

// ListFilters returns all saved filters ordered by name.
func (s *Store) ListFilters() ([]model.SavedFilter, error) {
	rows, err := s.db.Query(
		"SELECT name, filter FROM saved_filters ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list filters: %w", err)
	}
	defer rows.Close()

	var out []model.SavedFilter
	for rows.Next() {
		var name, data string
		if err := rows.Scan(&name, &data); err != nil {
			return nil, fmt.Errorf("failed to scan filter row: %w", err)
		}
		var f model.Filter
		if err := json.Unmarshal([]byte(data), &f); err != nil {
			// Skip rows written by an incompatible future version.
			continue
		}
		out = append(out, model.SavedFilter{Name: name, Filter: f})
	}
	return out, rows.Err()
}

// DeleteFilter removes a saved filter. Deleting a missing name is not
// an error.
func (s *Store) DeleteFilter(name string) error {
	_, err := s.db.Exec("DELETE FROM saved_filters WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to delete filter: %w", err)
	}
	return nil
}

// =============================================================================
// CURRENT SELECTION
// =============================================================================

// SetCurrentFilter persists the active filter selection.
func (s *Store) SetCurrentFilter(f model.Filter) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to encode filter: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		currentFilterKey, string(data))
	if err != nil {
		return fmt.Errorf("failed to store current filter: %w", err)
	}
	return nil
}

// CurrentFilter returns the persisted selection, or the zero filter
// when none was ever set.
func (s *Store) CurrentFilter() (model.Filter, error) {
	var data string
	err := s.db.QueryRow(
		"SELECT value FROM settings WHERE key = ?", currentFilterKey).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Filter{}, nil
	}
	if err != nil {
		return model.Filter{}, fmt.Errorf("failed to load current filter: %w", err)
	}

	var f model.Filter
	if err := json.Unmarshal([]byte(data), &f); err != nil {
		return model.Filter{}, fmt.Errorf("failed to decode current filter: %w", err)
	}
	return f, nil
}
