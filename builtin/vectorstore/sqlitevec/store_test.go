package sqlitevec

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spetr/codeindexer/pkg/provider"
	"github.com/spetr/codeindexer/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := New(provider.VectorStoreConfig{Path: dir})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateCollectionWritesSidecars(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateCollection(ctx, "live", 4); err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}

	exists, err := s.CollectionExists(ctx, "live")
	if err != nil || !exists {
		t.Fatalf("expected collection to exist, err=%v exists=%v", err, exists)
	}

	dir := filepath.Join(s.BasePath(), "live")
	for _, f := range []string{collectionMetaFile, projectionMatrixFile, hnswIndexFile, idIndexFile} {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			t.Fatalf("expected sidecar %s: %v", f, err)
		}
	}
}

func TestUpsertAndSearchReturnsNearest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateCollection(ctx, "live", 2); err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}

	points := []*types.Point{
		{ID: "a", Vector: []float32{1, 0}, Payload: &types.Payload{Path: "a.go", ProjectID: "p"}},
		{ID: "b", Vector: []float32{0, 1}, Payload: &types.Payload{Path: "b.go", ProjectID: "p"}},
	}
	if err := s.UpsertPoints(ctx, "live", points); err != nil {
		t.Fatalf("UpsertPoints: %v", err)
	}

	results, err := s.Search(ctx, provider.SearchQuery{Collection: "live", QueryVector: []float32{1, 0}, Limit: 2})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "a" {
		t.Fatalf("expected closest result to be 'a', got %q", results[0].ID)
	}
}

func TestUpsertWritesVectorSidecarFiles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.CreateCollection(ctx, "temporal", 2); err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}

	point := &types.Point{ID: "p:diff:abc123:file.go:0", Vector: []float32{0.1, 0.2}, Payload: &types.Payload{}}
	if err := s.UpsertPoints(ctx, "temporal", []*types.Point{point}); err != nil {
		t.Fatalf("UpsertPoints: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(s.BasePath(), "temporal"))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	found := false
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".json" && e.Name() != collectionMetaFile {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a vector_*.json sidecar file, got entries: %v", entries)
	}
}

func TestScrollPointsPagesByCursor(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.CreateCollection(ctx, "live", 2); err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}

	points := []*types.Point{
		{ID: "a", Vector: []float32{1, 0}, Payload: &types.Payload{}},
		{ID: "b", Vector: []float32{0, 1}, Payload: &types.Payload{}},
		{ID: "c", Vector: []float32{1, 1}, Payload: &types.Payload{}},
	}
	if err := s.UpsertPoints(ctx, "live", points); err != nil {
		t.Fatalf("UpsertPoints: %v", err)
	}

	page1, cursor1, err := s.ScrollPoints(ctx, "live", nil, 2, "")
	if err != nil {
		t.Fatalf("ScrollPoints page1: %v", err)
	}
	if len(page1) != 2 || cursor1 == "" {
		t.Fatalf("expected a full page with a continuation cursor, got %d results cursor=%q", len(page1), cursor1)
	}

	page2, cursor2, err := s.ScrollPoints(ctx, "live", nil, 2, cursor1)
	if err != nil {
		t.Fatalf("ScrollPoints page2: %v", err)
	}
	if len(page2) != 1 || cursor2 != "" {
		t.Fatalf("expected final partial page with no cursor, got %d results cursor=%q", len(page2), cursor2)
	}
}

func TestEndIndexingRebuildsIDIndex(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.CreateCollection(ctx, "live", 2); err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	if err := s.BeginIndexing(ctx, "live"); err != nil {
		t.Fatalf("BeginIndexing: %v", err)
	}
	if err := s.UpsertPoints(ctx, "live", []*types.Point{{ID: "a", Vector: []float32{1, 0}, Payload: &types.Payload{}}}); err != nil {
		t.Fatalf("UpsertPoints: %v", err)
	}
	if err := s.EndIndexing(ctx, "live"); err != nil {
		t.Fatalf("EndIndexing: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(s.BasePath(), "live", idIndexFile))
	if err != nil {
		t.Fatalf("read id index: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected non-empty id index")
	}
}
