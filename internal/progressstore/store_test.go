package progressstore

import (
	"path/filepath"
	"testing"

	"github.com/spetr/codeindexer/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "progress.db"), filepath.Join(dir, "temporal_meta.json"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveCompletedIdempotent(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveCompleted("abc"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SaveCompleted("abc"); err != nil {
		t.Fatalf("re-save: %v", err)
	}

	set, err := s.LoadCompleted()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(set) != 1 {
		t.Fatalf("expected 1 completed commit, got %d", len(set))
	}
	if _, ok := set["abc"]; !ok {
		t.Fatal("expected abc in completed set")
	}
}

func TestManifestRoundTrip(t *testing.T) {
	s := newTestStore(t)

	m := &types.ProgressManifest{
		LastCommit:         "deadbeef",
		TotalCommits:       5,
		TotalBlobs:         10,
		NewBlobsIndexed:    7,
		DeduplicationRatio: 0.3,
		IndexedBranches:    []string{"main"},
		IndexingMode:       "single-branch",
		IndexedAt:          "2026-07-30T00:00:00Z",
	}
	if err := s.SaveManifest(m); err != nil {
		t.Fatalf("save manifest: %v", err)
	}

	got, err := s.LoadManifest()
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	if got == nil || got.LastCommit != m.LastCommit || got.TotalCommits != m.TotalCommits {
		t.Fatalf("manifest round-trip mismatch: got %+v", got)
	}
}

func TestLoadManifestMissingReturnsNil(t *testing.T) {
	s := newTestStore(t)
	m, err := s.LoadManifest()
	if err != nil {
		t.Fatalf("expected no error for missing manifest, got %v", err)
	}
	if m != nil {
		t.Fatalf("expected nil manifest, got %+v", m)
	}
}
