package temporal

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spetr/codeindexer/internal/blobregistry"
	"github.com/spetr/codeindexer/internal/progressstore"
	"github.com/spetr/codeindexer/pkg/provider"
	"github.com/spetr/codeindexer/pkg/types"
)

type fakeGit struct {
	log   []provider.LogEntry
	diffs map[string][]provider.DiffEntry
}

func (g *fakeGit) IsRepo(dir string) bool { return true }
func (g *fakeGit) Log(ctx context.Context, allBranches bool, since int64, maxCommits int) ([]provider.LogEntry, error) {
	return g.log, nil
}
func (g *fakeGit) HeadCommit(ctx context.Context) (string, error)          { return "head", nil }
func (g *fakeGit) CurrentBranch(ctx context.Context) (string, error)       { return "main", nil }
func (g *fakeGit) BranchesContaining(ctx context.Context, hash string) ([]string, error) {
	return []string{"main"}, nil
}
func (g *fakeGit) LsTree(ctx context.Context, commit string) ([]provider.TreeEntry, error) {
	return nil, nil
}
func (g *fakeGit) CatFileBlob(ctx context.Context, hash string) ([]byte, error) { return nil, nil }
func (g *fakeGit) Show(ctx context.Context, revision, path string) ([]byte, error) {
	return nil, nil
}
func (g *fakeGit) DiffTree(ctx context.Context, commit string) ([]provider.DiffEntry, error) {
	return g.diffs[commit], nil
}

type fakeEmbedding struct{ dim int }

func (f *fakeEmbedding) Name() string { return "fake" }
func (f *fakeEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, f.dim)
		v[0] = float32(len(texts[i]))
		out[i] = v
	}
	return out, nil
}
func (f *fakeEmbedding) Dimensions() int                  { return f.dim }
func (f *fakeEmbedding) MaxBatchSize() int                { return 100 }
func (f *fakeEmbedding) MaxTokens() int                   { return 8000 }
func (f *fakeEmbedding) CountTokens(text string) int      { return len(text) / 4 }
func (f *fakeEmbedding) Warmup(ctx context.Context) error { return nil }
func (f *fakeEmbedding) Close() error                     { return nil }

type fakeChunker struct{}

func (c *fakeChunker) Name() string { return "fake" }
func (c *fakeChunker) ChunkFile(file *types.SourceFile) ([]*types.Chunk, error) {
	return []*types.Chunk{{Text: string(file.Content), ChunkIndex: 0, CharEnd: len(file.Content), LineEnd: 1}}, nil
}
func (c *fakeChunker) ChunkText(text, language string) ([]*types.Chunk, error) {
	if text == "" {
		return nil, nil
	}
	return []*types.Chunk{{Text: text, ChunkIndex: 0, CharEnd: len(text), LineEnd: 1}}, nil
}
func (c *fakeChunker) Close() error { return nil }

type fakeStore struct {
	points map[string][]*types.Point
}

func newFakeStore() *fakeStore { return &fakeStore{points: map[string][]*types.Point{}} }

func (s *fakeStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	_, ok := s.points[name]
	return ok, nil
}
func (s *fakeStore) CreateCollection(ctx context.Context, name string, dim int) error {
	s.points[name] = nil
	return nil
}
func (s *fakeStore) UpsertPoints(ctx context.Context, collection string, points []*types.Point) error {
	s.points[collection] = append(s.points[collection], points...)
	return nil
}
func (s *fakeStore) Search(ctx context.Context, q provider.SearchQuery) ([]provider.RawResult, error) {
	return nil, nil
}
func (s *fakeStore) ScrollPoints(ctx context.Context, collection string, filter *provider.Filter, limit int, cursor string) ([]provider.RawResult, string, error) {
	return nil, "", nil
}
func (s *fakeStore) BeginIndexing(ctx context.Context, collection string) error { return nil }
func (s *fakeStore) EndIndexing(ctx context.Context, collection string) error   { return nil }
func (s *fakeStore) BasePath() string                                          { return "" }
func (s *fakeStore) Close() error                                              { return nil }

func newTestProgressStore(t *testing.T) *progressstore.Store {
	t.Helper()
	dir := t.TempDir()
	ps, err := progressstore.Open(filepath.Join(dir, "progress.db"), filepath.Join(dir, "meta.json"))
	if err != nil {
		t.Fatalf("open progress store: %v", err)
	}
	t.Cleanup(func() { ps.Close() })
	return ps
}

func newTestBlobRegistry(t *testing.T) *blobregistry.Registry {
	t.Helper()
	dir := t.TempDir()
	reg, err := blobregistry.Open(filepath.Join(dir, "blobs.db"))
	if err != nil {
		t.Fatalf("open blob registry: %v", err)
	}
	t.Cleanup(func() { reg.Close() })
	return reg
}

func baseGit() *fakeGit {
	return &fakeGit{
		log: []provider.LogEntry{
			{Hash: "aaa1111", Timestamp: 1000, AuthorName: "a", AuthorEmail: "a@x.com", Subject: "first commit"},
			{Hash: "bbb2222", Timestamp: 2000, AuthorName: "b", AuthorEmail: "b@x.com", Subject: "second commit", Parents: []string{"aaa1111"}},
		},
		diffs: map[string][]provider.DiffEntry{
			"aaa1111": {{Path: "a.go", Status: "A", Body: "+package a\n+func A() {}\n+func A2() {}\n+func A3() {}\n+func A4() {}\n+func A5() {}\n+func A6() {}\n+func A7() {}\n+func A8() {}\n+func A9() {}\n+func A10() {}\n"}},
			"bbb2222": {{Path: "a.go", Status: "M", Body: "-func A() {}\n+func A() { return }\n+1\n+2\n+3\n+4\n+5\n+6\n+7\n+8\n+9\n"}},
		},
	}
}

func TestRunIndexesAllCommits(t *testing.T) {
	store := newFakeStore()
	ix := New(Config{
		ProjectID:     "proj",
		Collection:    "temporal",
		Git:           baseGit(),
		Store:         store,
		Embedding:     &fakeEmbedding{dim: 4},
		Chunker:       &fakeChunker{},
		ProgressStore: newTestProgressStore(t),
		GitConfig: types.GitIndexConfig{
			EmbedDiffs:          true,
			EmbedCommitMessages: true,
			MinDiffLines:        1,
			MaxDiffLines:        0,
		},
		Threads: 2,
	})

	result, err := ix.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.CommitsTotal != 2 || result.CommitsProcessed != 2 {
		t.Fatalf("got %+v", result)
	}
	if len(store.points["temporal"]) == 0 {
		t.Fatalf("expected temporal points to be upserted")
	}
}

func TestRunSkipsCompletedCommits(t *testing.T) {
	store := newFakeStore()
	progress := newTestProgressStore(t)
	if err := progress.SaveCompleted("aaa1111"); err != nil {
		t.Fatalf("seed progress: %v", err)
	}

	ix := New(Config{
		ProjectID:     "proj",
		Collection:    "temporal",
		Git:           baseGit(),
		Store:         store,
		Embedding:     &fakeEmbedding{dim: 4},
		Chunker:       &fakeChunker{},
		ProgressStore: progress,
		GitConfig: types.GitIndexConfig{
			EmbedDiffs:          true,
			EmbedCommitMessages: true,
			MinDiffLines:        1,
		},
		Threads: 1,
	})

	result, err := ix.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.CommitsProcessed != 1 {
		t.Fatalf("expected only the uncompleted commit to be processed, got %+v", result)
	}
}

func TestRunEmitsCompletionCallback(t *testing.T) {
	var lastInfo string
	store := newFakeStore()
	ix := New(Config{
		ProjectID:     "proj",
		Collection:    "temporal",
		Git:           baseGit(),
		Store:         store,
		Embedding:     &fakeEmbedding{dim: 4},
		Chunker:       &fakeChunker{},
		ProgressStore: newTestProgressStore(t),
		GitConfig: types.GitIndexConfig{
			EmbedDiffs:          true,
			EmbedCommitMessages: true,
			MinDiffLines:        1,
		},
		Threads: 1,
		OnProgress: func(p types.CommitProgress) string {
			lastInfo = p.Info
			return ""
		},
	})

	if _, err := ix.Run(context.Background(), false); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if lastInfo != "✅ Completed" {
		t.Fatalf("expected final callback to report completion, got %q", lastInfo)
	}
}

func TestRunSkipsAlreadyIndexedPoints(t *testing.T) {
	store := newFakeStore()
	registry := newTestBlobRegistry(t)

	newIndexer := func() *Indexer {
		return New(Config{
			ProjectID:     "proj",
			Collection:    "temporal",
			Git:           baseGit(),
			Store:         store,
			Embedding:     &fakeEmbedding{dim: 4},
			Chunker:       &fakeChunker{},
			ProgressStore: newTestProgressStore(t), // fresh per run: simulates a crashed run with no saved completion
			BlobRegistry:  registry,
			GitConfig: types.GitIndexConfig{
				EmbedDiffs:          true,
				EmbedCommitMessages: true,
				MinDiffLines:        1,
			},
			Threads: 1,
		})
	}

	if _, err := newIndexer().Run(context.Background(), false); err != nil {
		t.Fatalf("first run: %v", err)
	}
	firstPoints := len(store.points["temporal"])
	if firstPoints == 0 {
		t.Fatalf("expected points from first run")
	}

	if _, err := newIndexer().Run(context.Background(), false); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if got := len(store.points["temporal"]); got != firstPoints {
		t.Fatalf("expected second run to add no new points via the blob registry, got %d want %d", got, firstPoints)
	}
}
