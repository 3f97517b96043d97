/*-------------------------------------------------------------------------
 *
 * pgEdge Schema Documenter - Manual Override Store
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package overrides

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"pgedge-schema-doc/internal/metadata"
)

// Override is one human-reviewed description. Column is empty for an
// entity-level override.
type Override struct {
	Entity      string    `json:"entity"`
	Column      string    `json:"column,omitempty"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store manages manual override persistence using SQLite. Overrides
// survive across runs so a review pass is never repeated.
type Store struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string
}

// NewStore opens (or creates) the override database under dataDir
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "overrides.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrent access
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{
		db:   db,
		path: dbPath,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the overrides table. Names are stored lowercased so
// lookups stay case-insensitive; the original spelling is kept alongside
// for display.
func (s *Store) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS overrides (
        entity_key TEXT NOT NULL,
        column_key TEXT NOT NULL DEFAULT '',
        entity TEXT NOT NULL,
        column_name TEXT NOT NULL DEFAULT '',
        description TEXT NOT NULL,
        updated_at DATETIME NOT NULL,
        PRIMARY KEY (entity_key, column_key)
    );

    CREATE INDEX IF NOT EXISTS idx_overrides_entity
        ON overrides(entity_key);
    `

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the location of the underlying database file
func (s *Store) Path() string {
	return s.path
}

// Set records an override, replacing any previous value for the same
// target. An empty column sets the entity-level description.
func (s *Store) Set(entity, column, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(entity) == "" {
		return fmt.Errorf("entity name is required")
	}
	if strings.TrimSpace(description) == "" {
		return fmt.Errorf("description is required")
	}

	_, err := s.db.Exec(
		`INSERT INTO overrides (entity_key, column_key, entity, column_name, description, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(entity_key, column_key) DO UPDATE SET
             entity = excluded.entity,
             column_name = excluded.column_name,
             description = excluded.description,
             updated_at = excluded.updated_at`,
		strings.ToLower(entity), strings.ToLower(column),
		entity, column, description, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to store override: %w", err)
	}

	return nil
}

// Unset removes an override. It is an error to remove an override that
// does not exist.
func (s *Store) Unset(entity, column string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec(
		"DELETE FROM overrides WHERE entity_key = ? AND column_key = ?",
		strings.ToLower(entity), strings.ToLower(column),
	)
	if err != nil {
		return fmt.Errorf("failed to delete override: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("override not found")
	}

	return nil
}

// List returns every stored override ordered by entity then column, with
// the entity-level override first within each entity.
func (s *Store) List() ([]Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT entity, column_name, description, updated_at
         FROM overrides
         ORDER BY entity_key, column_key`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query overrides: %w", err)
	}
	defer rows.Close()

	var overrides []Override
	for rows.Next() {
		var o Override
		if err := rows.Scan(&o.Entity, &o.Column, &o.Description, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		overrides = append(overrides, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return overrides, nil
}

// Load materializes the stored overrides as metadata entities, one per
// overridden entity, carrying only the overridden columns. Every
// description is marked manual at full confidence.
func (s *Store) Load() ([]*metadata.Entity, error) {
	overrides, err := s.List()
	if err != nil {
		return nil, err
	}

	byEntity := make(map[string]*metadata.Entity)
	var order []string

	for _, o := range overrides {
		key := strings.ToLower(o.Entity)
		e, ok := byEntity[key]
		if !ok {
			e = &metadata.Entity{Name: o.Entity}
			byEntity[key] = e
			order = append(order, key)
		}

		if o.Column == "" {
			e.Description = o.Description
			continue
		}
		e.Columns = append(e.Columns, metadata.Column{
			Name:        o.Column,
			Description: o.Description,
			Confidence:  1.0,
			Source:      metadata.SourceManual,
		})
	}

	entities := make([]*metadata.Entity, 0, len(order))
	for _, key := range order {
		entities = append(entities, byEntity[key])
	}
	return entities, nil
}
