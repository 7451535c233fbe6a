// Package blobregistry implements a persistent blob-hash -> point-id
// set for cross-commit deduplication, backed by an embedded SQLite
// database with the same WAL/busy-timeout configuration the reference
// vector store uses.
package blobregistry

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// Registry is a persistent key-value set over (blob_hash, point_id).
type Registry struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens (creating if absent) the registry database at path, with
// write-ahead logging, a 5-second busy timeout, and normal sync (spec
// §4.2), matching the reference vector store's connection string.
func Open(path string) (*Registry, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("blobregistry: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS blobs (
			blob_hash TEXT NOT NULL,
			point_id  TEXT NOT NULL,
			PRIMARY KEY (blob_hash, point_id)
		);
		CREATE INDEX IF NOT EXISTS idx_blobs_hash ON blobs(blob_hash);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("blobregistry: create schema: %w", err)
	}

	return &Registry{db: db}, nil
}

// Register inserts (blob_hash, point_id) if absent. Idempotent.
func (r *Registry) Register(blobHash, pointID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT OR IGNORE INTO blobs (blob_hash, point_id) VALUES (?, ?)`, blobHash, pointID)
	if err != nil {
		return fmt.Errorf("blobregistry: register: %w", err)
	}
	return nil
}

// HasBlob reports whether at least one row exists for blobHash.
func (r *Registry) HasBlob(blobHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var exists int
	err := r.db.QueryRow(`SELECT 1 FROM blobs WHERE blob_hash = ? LIMIT 1`, blobHash).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("blobregistry: has_blob: %w", err)
	}
	return true, nil
}

// GetPointIDs returns all point-ids registered for blobHash.
func (r *Registry) GetPointIDs(blobHash string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT point_id FROM blobs WHERE blob_hash = ?`, blobHash)
	if err != nil {
		return nil, fmt.Errorf("blobregistry: get_point_ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("blobregistry: scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Count returns the number of distinct blob hashes registered.
func (r *Registry) Count() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int
	if err := r.db.QueryRow(`SELECT COUNT(DISTINCT blob_hash) FROM blobs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("blobregistry: count: %w", err)
	}
	return n, nil
}

// Clear removes all rows.
func (r *Registry) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.db.Exec(`DELETE FROM blobs`); err != nil {
		return fmt.Errorf("blobregistry: clear: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (r *Registry) Close() error {
	return r.db.Close()
}
