package blobregistry

import (
	"path/filepath"
	"testing"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blobs.db")
	r, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRegisterHasBlobIdempotent(t *testing.T) {
	r := newTestRegistry(t)

	if err := r.Register("abc123", "point-1"); err != nil {
		t.Fatalf("register: %v", err)
	}
	has, err := r.HasBlob("abc123")
	if err != nil || !has {
		t.Fatalf("expected has_blob true, got %v err=%v", has, err)
	}

	before, _ := r.Count()
	if err := r.Register("abc123", "point-1"); err != nil {
		t.Fatalf("re-register: %v", err)
	}
	after, _ := r.Count()
	if before != after {
		t.Fatalf("expected count unchanged on re-register, before=%d after=%d", before, after)
	}
}

func TestGetPointIDs(t *testing.T) {
	r := newTestRegistry(t)
	r.Register("h1", "p1")
	r.Register("h1", "p2")
	r.Register("h2", "p3")

	ids, err := r.GetPointIDs("h1")
	if err != nil {
		t.Fatalf("get_point_ids: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 point ids for h1, got %v", ids)
	}
}

func TestCountDistinctBlobs(t *testing.T) {
	r := newTestRegistry(t)
	r.Register("h1", "p1")
	r.Register("h1", "p2")
	r.Register("h2", "p3")

	n, err := r.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 distinct blobs, got %d", n)
	}
}

func TestClear(t *testing.T) {
	r := newTestRegistry(t)
	r.Register("h1", "p1")
	if err := r.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	n, _ := r.Count()
	if n != 0 {
		t.Fatalf("expected 0 after clear, got %d", n)
	}
}
