package temporal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spetr/codeindexer/pkg/types"
)

func TestReconcileReturnsOnlyMissingCommits(t *testing.T) {
	base := t.TempDir()
	collDir := filepath.Join(base, "temporal")
	if err := os.MkdirAll(collDir, 0755); err != nil {
		t.Fatal(err)
	}

	writeIDRecord(t, collDir, "proj:diff:aaa:file.go:0")
	writeIDRecord(t, collDir, "proj:diff:bbb:other.go:0")

	for _, name := range []string{types.HNSWIndexFile, types.IDIndexFile, types.TemporalMetaFile, types.TemporalProgressFile} {
		if err := os.WriteFile(filepath.Join(collDir, name), []byte("stale"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	// never-delete sidecars must survive
	if err := os.WriteFile(filepath.Join(collDir, types.CollectionMetaFile), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	commits := []types.Commit{{Hash: "aaa"}, {Hash: "bbb"}, {Hash: "ccc"}}
	missing, err := Reconcile(base, commits, "temporal")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(missing) != 1 || missing[0].Hash != "ccc" {
		t.Fatalf("expected only ccc missing, got %+v", missing)
	}

	for _, name := range []string{types.HNSWIndexFile, types.IDIndexFile, types.TemporalMetaFile, types.TemporalProgressFile} {
		if _, err := os.Stat(filepath.Join(collDir, name)); !os.IsNotExist(err) {
			t.Fatalf("expected %s to be deleted", name)
		}
	}
	if _, err := os.Stat(filepath.Join(collDir, types.CollectionMetaFile)); err != nil {
		t.Fatalf("collection_meta.json should survive reconciliation: %v", err)
	}
}

func writeIDRecord(t *testing.T, dir, id string) {
	t.Helper()
	data, err := json.Marshal(vectorRecordID{ID: id})
	if err != nil {
		t.Fatal(err)
	}
	name := "vector_" + sanitize(id) + ".json"
	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
		t.Fatal(err)
	}
}

func sanitize(id string) string {
	out := make([]byte, 0, len(id))
	for i := 0; i < len(id); i++ {
		c := id[i]
		if c == ':' || c == '/' {
			c = '_'
		}
		out = append(out, c)
	}
	return string(out)
}

func TestReconcileIsIdempotent(t *testing.T) {
	base := t.TempDir()
	collDir := filepath.Join(base, "temporal")
	if err := os.MkdirAll(collDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeIDRecord(t, collDir, "proj:diff:aaa:file.go:0")

	commits := []types.Commit{{Hash: "aaa"}, {Hash: "bbb"}}

	first, err := Reconcile(base, commits, "temporal")
	if err != nil {
		t.Fatalf("first reconcile: %v", err)
	}
	second, err := Reconcile(base, commits, "temporal")
	if err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	if len(first) != len(second) || first[0].Hash != second[0].Hash {
		t.Fatalf("expected idempotent results, got %+v then %+v", first, second)
	}
}
