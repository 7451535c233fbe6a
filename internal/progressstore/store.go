// Package progressstore implements a persistent set of completed
// commit hashes plus a JSON manifest rewritten atomically at the end
// of an indexing run.
package progressstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/spetr/codeindexer/pkg/types"
)

// Store persists the completed-commit set durably and the progress
// manifest via a temp-file + rename dance.
type Store struct {
	mu           sync.Mutex
	db           *sql.DB
	manifestPath string
}

// Open opens the completed-set database at dbPath and records
// manifestPath as the sidecar JSON manifest location.
func Open(dbPath, manifestPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("progressstore: open %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS completed_commits (hash TEXT PRIMARY KEY)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("progressstore: create schema: %w", err)
	}

	return &Store{db: db, manifestPath: manifestPath}, nil
}

// LoadCompleted returns the set of completed commit hashes.
func (s *Store) LoadCompleted() (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT hash FROM completed_commits`)
	if err != nil {
		return nil, fmt.Errorf("progressstore: load_completed: %w", err)
	}
	defer rows.Close()

	set := make(map[string]struct{})
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("progressstore: scan: %w", err)
		}
		set[h] = struct{}{}
	}
	return set, rows.Err()
}

// SaveCompleted records hash as completed; idempotent and durable
// before returning (synchronous=NORMAL with WAL still fsyncs on
// checkpoint boundaries; the insert itself is transactional).
func (s *Store) SaveCompleted(hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`INSERT OR IGNORE INTO completed_commits (hash) VALUES (?)`, hash); err != nil {
		return fmt.Errorf("progressstore: save_completed: %w", err)
	}
	return nil
}

// SaveManifest rewrites the sidecar JSON manifest via a temp-file +
// rename dance so a crash mid-write never leaves a truncated manifest.
func (s *Store) SaveManifest(manifest *types.ProgressManifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("progressstore: marshal manifest: %w", err)
	}

	dir := filepath.Dir(s.manifestPath)
	tmp, err := os.CreateTemp(dir, ".tmp-manifest-*")
	if err != nil {
		return fmt.Errorf("progressstore: create temp manifest: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("progressstore: write temp manifest: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("progressstore: sync temp manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("progressstore: close temp manifest: %w", err)
	}

	if err := os.Rename(tmpPath, s.manifestPath); err != nil {
		return fmt.Errorf("progressstore: rename manifest: %w", err)
	}
	return nil
}

// LoadManifest reads the sidecar JSON manifest, if present.
func (s *Store) LoadManifest() (*types.ProgressManifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.manifestPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("progressstore: read manifest: %w", err)
	}

	var manifest types.ProgressManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("progressstore: unmarshal manifest: %w", err)
	}
	return &manifest, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
