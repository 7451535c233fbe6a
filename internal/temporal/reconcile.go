// Package temporal implements the temporal indexer and reconciliation:
// walking git history into the temporal collection, and recovering a
// correct "what's already indexed" view after an interrupted run.
package temporal

import (
	"encoding/json"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"github.com/spetr/codeindexer/pkg/types"
)

// diffPointIDPattern matches the `project:diff:<hash>:<path>:<index>`
// id shape; group 1 is the commit hash.
var diffPointIDPattern = regexp.MustCompile(`^[^:]+:diff:([0-9a-fA-F]+):`)

// staleSidecars are deleted by Reconcile before the directory walk, so
// an interrupted prior run can never leave a misleading index or
// progress file behind. collection_meta.json and projection_matrix.npy
// are never touched.
var staleSidecars = []string{
	types.HNSWIndexFile,
	types.IDIndexFile,
	types.TemporalMetaFile,
	types.TemporalProgressFile,
}

// vectorRecordID is the minimal shape needed to read a vector_*.json
// sidecar's id field without depending on any specific VectorStore
// implementation.
type vectorRecordID struct {
	ID string `json:"id"`
}

// Reconcile computes the set of commits not yet represented in the
// temporal collection on disk, deleting the four stale sidecars first
// so a prior interrupted run's half-written secondary indexes never
// mislead the caller. Idempotent: safe to call on every run.
func Reconcile(basePath string, allCommits []types.Commit, collectionName string) ([]types.Commit, error) {
	collectionDir := filepath.Join(basePath, collectionName)

	for _, name := range staleSidecars {
		path := filepath.Join(collectionDir, name)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}

	indexed, err := scanIndexedCommits(collectionDir)
	if err != nil {
		return nil, err
	}

	missing := make([]types.Commit, 0, len(allCommits))
	for _, c := range allCommits {
		if _, ok := indexed[c.Hash]; !ok {
			missing = append(missing, c)
		}
	}
	return missing, nil
}

// scanIndexedCommits walks collectionDir for vector_*.json records and
// extracts the commit hash from every temporal diff point-id found.
// Corrupted files are counted and skipped, never raised.
func scanIndexedCommits(collectionDir string) (map[string]struct{}, error) {
	indexed := make(map[string]struct{})

	if _, statErr := os.Stat(collectionDir); os.IsNotExist(statErr) {
		return indexed, nil
	}

	corrupted := 0
	err := filepath.WalkDir(collectionDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d == nil {
			return nil
		}
		if d.IsDir() || !isVectorRecordFile(d.Name()) {
			return nil
		}

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			corrupted++
			return nil
		}
		var rec vectorRecordID
		if jsonErr := json.Unmarshal(data, &rec); jsonErr != nil {
			corrupted++
			return nil
		}

		if m := diffPointIDPattern.FindStringSubmatch(rec.ID); m != nil {
			indexed[m[1]] = struct{}{}
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if corrupted > 0 {
		slog.Warn("reconcile: skipped unreadable vector records", "dir", collectionDir, "count", corrupted)
	}
	return indexed, nil
}

func isVectorRecordFile(name string) bool {
	return len(name) > len("vector_.json") && name[:7] == "vector_" && filepath.Ext(name) == ".json"
}
