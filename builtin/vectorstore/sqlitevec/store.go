// Package sqlitevec implements the VectorStore contract using
// sqlite-vec for ANN search, with a per-collection directory layout
// that satisfies the on-disk sidecar contract reconciliation depends
// on.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/spetr/codeindexer/pkg/provider"
	"github.com/spetr/codeindexer/pkg/types"
)

var vecAutoOnce sync.Once

// SchemaVersion is incremented when the points/points_vec schema changes.
const SchemaVersion = 1

// Sidecar file names, per the on-disk layout contract (pkg/types).
// hnswIndexFile is the actual sqlite-vec database backing ANN search;
// naming it this way lets reconciliation's four-file deletion rule
// apply to a real index file instead of an invented placeholder.
const (
	collectionMetaFile   = types.CollectionMetaFile
	projectionMatrixFile = types.ProjectionMatrixFile
	hnswIndexFile        = types.HNSWIndexFile
	idIndexFile          = types.IDIndexFile
)

// collectionMeta is the contents of collection_meta.json.
type collectionMeta struct {
	Name          string    `json:"name"`
	Dimensions    int       `json:"dimensions"`
	SchemaVersion int       `json:"schema_version"`
	CreatedAt     time.Time `json:"created_at"`
}

// collection holds the open handle and cached dimension for one
// collection directory.
type collection struct {
	dir string
	db  *sql.DB
	dim int
}

// Store implements provider.VectorStore. Each collection lives in its
// own subdirectory of basePath; the sqlite-vec database file is named
// hnsw_index.bin so it lines up with the sidecar contract reconciliation
// enforces.
type Store struct {
	basePath string

	mu          sync.Mutex
	collections map[string]*collection
}

// New creates a store rooted at cfg.Path.
func New(cfg provider.VectorStoreConfig) (*Store, error) {
	vecAutoOnce.Do(func() {
		sqlite_vec.Auto()
	})

	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlitevec: path is required")
	}
	if err := os.MkdirAll(cfg.Path, 0755); err != nil {
		return nil, fmt.Errorf("sqlitevec: create base path: %w", err)
	}
	return &Store{
		basePath:    cfg.Path,
		collections: make(map[string]*collection),
	}, nil
}

// BasePath returns the on-disk root collections are stored under.
func (s *Store) BasePath() string {
	return s.basePath
}

func (s *Store) collectionDir(name string) string {
	return filepath.Join(s.basePath, name)
}

// CollectionExists reports whether name has a collection_meta.json.
func (s *Store) CollectionExists(ctx context.Context, name string) (bool, error) {
	_, err := os.Stat(filepath.Join(s.collectionDir(name), collectionMetaFile))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlitevec: stat collection meta: %w", err)
	}
	return true, nil
}

// CreateCollection creates the collection directory, its sqlite-vec
// database, and the sidecar files enumerated in the on-disk layout
// contract. Idempotent: calling it again for an existing collection
// with the same dimension is a no-op.
func (s *Store) CreateCollection(ctx context.Context, name string, dim int) error {
	dir := s.collectionDir(name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("sqlitevec: create collection dir: %w", err)
	}

	exists, err := s.CollectionExists(ctx, name)
	if err != nil {
		return err
	}

	db, err := s.open(name)
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS points (
			id TEXT PRIMARY KEY,
			payload_json TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("sqlitevec: create points table: %w", err)
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS points_vec USING vec0(
			id TEXT PRIMARY KEY,
			embedding float[%d]
		)
	`, dim)); err != nil {
		return fmt.Errorf("sqlitevec: create vec table: %w", err)
	}

	s.mu.Lock()
	s.collections[name].dim = dim
	s.mu.Unlock()

	if exists {
		return nil
	}

	meta := collectionMeta{
		Name:          name,
		Dimensions:    dim,
		SchemaVersion: SchemaVersion,
		CreatedAt:     time.Now().UTC(),
	}
	if err := writeJSONFile(filepath.Join(dir, collectionMetaFile), meta); err != nil {
		return err
	}
	if err := writeIfAbsent(filepath.Join(dir, projectionMatrixFile), projectionMatrixPlaceholder(dim)); err != nil {
		return err
	}
	if err := writeJSONFile(filepath.Join(dir, idIndexFile), []string{}); err != nil {
		return err
	}

	return nil
}

// open returns the cached db handle for name, opening it if needed.
func (s *Store) open(name string) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.collections[name]; ok {
		return c.db, nil
	}

	dir := s.collectionDir(name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("sqlitevec: create collection dir: %w", err)
	}

	dbPath := filepath.Join(dir, hnswIndexFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlitevec: open %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("SELECT vec_version()"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitevec: extension not available: %w", err)
	}

	s.collections[name] = &collection{dir: dir, db: db}
	return db, nil
}

// UpsertPoints writes points into collection, refreshing both the
// sqlite-vec index and the append-only per-point JSON sidecar files
// reconciliation scans.
func (s *Store) UpsertPoints(ctx context.Context, coll string, points []*types.Point) error {
	if len(points) == 0 {
		return nil
	}
	db, err := s.open(coll)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlitevec: begin tx: %w", err)
	}
	defer tx.Rollback()

	pointStmt, err := tx.Prepare(`INSERT OR REPLACE INTO points (id, payload_json) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer pointStmt.Close()

	vecStmt, err := tx.Prepare(`INSERT OR REPLACE INTO points_vec (id, embedding) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer vecStmt.Close()

	dir := s.collectionDir(coll)

	for _, p := range points {
		payloadJSON, err := json.Marshal(p.Payload)
		if err != nil {
			return fmt.Errorf("sqlitevec: marshal payload for %s: %w", p.ID, err)
		}
		if _, err := pointStmt.ExecContext(ctx, p.ID, string(payloadJSON)); err != nil {
			return fmt.Errorf("sqlitevec: upsert point %s: %w", p.ID, err)
		}
		if _, err := vecStmt.ExecContext(ctx, p.ID, floatsToBytes(p.Vector)); err != nil {
			return fmt.Errorf("sqlitevec: upsert vector %s: %w", p.ID, err)
		}
		if err := writeVectorSidecar(dir, p); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Search runs an ANN query, applying Filter store-side via
// json_extract against the payload column.
func (s *Store) Search(ctx context.Context, q provider.SearchQuery) ([]provider.RawResult, error) {
	db, err := s.open(q.Collection)
	if err != nil {
		return nil, err
	}

	where, args := filterSQL(q.Filter)
	query := `
		SELECT pv.id, vec_distance_cosine(pv.embedding, ?) as distance, p.payload_json
		FROM points_vec pv
		JOIN points p ON p.id = pv.id
	`
	allArgs := append([]any{floatsToBytes(q.QueryVector)}, args...)
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY distance ASC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		allArgs = append(allArgs, q.Limit)
	}

	rows, err := db.QueryContext(ctx, query, allArgs...)
	if err != nil {
		return nil, fmt.Errorf("sqlitevec: search: %w", err)
	}
	defer rows.Close()

	var results []provider.RawResult
	for rows.Next() {
		var id string
		var distance float64
		var payloadJSON string
		if err := rows.Scan(&id, &distance, &payloadJSON); err != nil {
			return nil, fmt.Errorf("sqlitevec: scan search row: %w", err)
		}
		var payload types.Payload
		if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
			return nil, fmt.Errorf("sqlitevec: unmarshal payload for %s: %w", id, err)
		}
		results = append(results, provider.RawResult{
			ID:      id,
			Score:   float32(1 - distance),
			Payload: &payload,
		})
	}
	return results, rows.Err()
}

// ScrollPoints walks a collection's points matching filter, paged by
// a lexicographic id cursor.
func (s *Store) ScrollPoints(ctx context.Context, coll string, filter *provider.Filter, limit int, cursor string) ([]provider.RawResult, string, error) {
	db, err := s.open(coll)
	if err != nil {
		return nil, "", err
	}
	if limit <= 0 {
		limit = 1000
	}

	where, args := filterSQL(filter)
	conds := []string{"id > ?"}
	allArgs := append([]any{cursor}, args...)
	if where != "" {
		conds = append(conds, where)
	}

	query := `SELECT id, payload_json FROM points WHERE ` + strings.Join(conds, " AND ") + ` ORDER BY id LIMIT ?`
	allArgs = append(allArgs, limit)

	rows, err := db.QueryContext(ctx, query, allArgs...)
	if err != nil {
		return nil, "", fmt.Errorf("sqlitevec: scroll: %w", err)
	}
	defer rows.Close()

	var results []provider.RawResult
	var lastID string
	for rows.Next() {
		var id, payloadJSON string
		if err := rows.Scan(&id, &payloadJSON); err != nil {
			return nil, "", fmt.Errorf("sqlitevec: scan scroll row: %w", err)
		}
		var payload types.Payload
		if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
			return nil, "", fmt.Errorf("sqlitevec: unmarshal payload for %s: %w", id, err)
		}
		results = append(results, provider.RawResult{ID: id, Payload: &payload})
		lastID = id
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(results) == limit {
		nextCursor = lastID
	}
	return results, nextCursor, nil
}

// BeginIndexing is a no-op marker; sqlite's WAL mode already tolerates
// concurrent bulk writes without an explicit bracket.
func (s *Store) BeginIndexing(ctx context.Context, coll string) error {
	_, err := s.open(coll)
	return err
}

// EndIndexing rebuilds the id-index sidecar from the points table.
// The sqlite-vec database (hnsw_index.bin) is already durable by
// virtue of every UpsertPoints call committing a transaction.
func (s *Store) EndIndexing(ctx context.Context, coll string) error {
	db, err := s.open(coll)
	if err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `SELECT id FROM points ORDER BY id`)
	if err != nil {
		return fmt.Errorf("sqlitevec: end_indexing list ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	return writeJSONFile(filepath.Join(s.collectionDir(coll), idIndexFile), ids)
}

// Close releases all open collection database handles.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for name, c := range s.collections {
		if err := c.db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("sqlitevec: close %s: %w", name, err)
		}
	}
	return firstErr
}

// Ensure Store implements the VectorStore interface.
var _ provider.VectorStore = (*Store)(nil)

func floatsToBytes(floats []float32) []byte {
	b := make([]byte, len(floats)*4)
	for i, f := range floats {
		bits := math.Float32bits(f)
		b[i*4] = byte(bits)
		b[i*4+1] = byte(bits >> 8)
		b[i*4+2] = byte(bits >> 16)
		b[i*4+3] = byte(bits >> 24)
	}
	return b
}
