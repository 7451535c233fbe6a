package sqlitevec

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spetr/codeindexer/pkg/types"
)

// vectorRecord is the on-disk shape of a vector_*.json sidecar file:
// at least {id, vector, payload} per the on-disk layout contract.
type vectorRecord struct {
	ID      string    `json:"id"`
	Vector  []float32 `json:"vector"`
	Payload *types.Payload `json:"payload"`
}

// writeVectorSidecar writes the append-only per-point JSON record
// reconciliation scans for stale diff point-ids. Written via a
// temp-file + rename dance so a crash mid-write never leaves a
// truncated record reconciliation would misread.
func writeVectorSidecar(dir string, p *types.Point) error {
	path := filepath.Join(dir, "vector_"+sanitizeID(p.ID)+".json")
	return writeJSONFile(path, vectorRecord{ID: p.ID, Vector: p.Vector, Payload: p.Payload})
}

// sanitizeID maps a point id to a filesystem-safe token. Point ids
// contain ':' separators (temporal ids) that are invalid on some
// filesystems.
func sanitizeID(id string) string {
	r := strings.NewReplacer(":", "_", "/", "_")
	return r.Replace(id)
}

// writeJSONFile marshals v and writes it to path atomically.
func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("sqlitevec: marshal %s: %w", path, err)
	}
	return writeFileAtomic(path, data)
}

// writeIfAbsent writes data to path only if it does not already
// exist, used for sidecars that must never be rewritten once created
// (the projection matrix's randomness is part of the quantization
// contract).
func writeIfAbsent(path string, data []byte) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return writeFileAtomic(path, data)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-sidecar-*")
	if err != nil {
		return fmt.Errorf("sqlitevec: create temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("sqlitevec: write temp file for %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sqlitevec: sync temp file for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("sqlitevec: close temp file for %s: %w", path, err)
	}
	return os.Rename(tmpPath, path)
}

// projectionMatrixPlaceholder deterministically seeds projection_matrix.npy.
// The real random-projection matrix used for quantization is an
// implementation detail of the ANN index itself (sqlite-vec manages
// it internally); this file is retained purely so reconciliation's
// never-delete contract has a concrete artifact to preserve.
func projectionMatrixPlaceholder(dim int) []byte {
	header := fmt.Sprintf("CODEINDEXER-PROJECTION-MATRIX-V1 dim=%d\n", dim)
	return []byte(header)
}
