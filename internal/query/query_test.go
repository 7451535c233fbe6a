package query

import (
	"context"
	"errors"

	"github.com/spetr/codeindexer/pkg/provider"
	"github.com/spetr/codeindexer/pkg/types"
)

var errNotFound = errors.New("blob not found")

type fakeStore struct {
	exists  map[string]bool
	results []provider.RawResult
	err     error
}

func (s *fakeStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	return s.exists[name], nil
}
func (s *fakeStore) CreateCollection(ctx context.Context, name string, dim int) error { return nil }
func (s *fakeStore) UpsertPoints(ctx context.Context, collection string, points []*types.Point) error {
	return nil
}
func (s *fakeStore) Search(ctx context.Context, q provider.SearchQuery) ([]provider.RawResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}
func (s *fakeStore) ScrollPoints(ctx context.Context, collection string, filter *provider.Filter, limit int, cursor string) ([]provider.RawResult, string, error) {
	return nil, "", nil
}
func (s *fakeStore) BeginIndexing(ctx context.Context, collection string) error { return nil }
func (s *fakeStore) EndIndexing(ctx context.Context, collection string) error   { return nil }
func (s *fakeStore) BasePath() string                                          { return "" }
func (s *fakeStore) Close() error                                              { return nil }

type fakeEmbedding struct {
	dim int
	err error
}

func (f *fakeEmbedding) Name() string { return "fake" }
func (f *fakeEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
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

type fakeGit struct {
	blobs map[string][]byte
	err   error
}

func (g *fakeGit) IsRepo(dir string) bool { return true }
func (g *fakeGit) Log(ctx context.Context, allBranches bool, since int64, maxCommits int) ([]provider.LogEntry, error) {
	return nil, nil
}
func (g *fakeGit) HeadCommit(ctx context.Context) (string, error)    { return "head", nil }
func (g *fakeGit) CurrentBranch(ctx context.Context) (string, error) { return "main", nil }
func (g *fakeGit) BranchesContaining(ctx context.Context, hash string) ([]string, error) {
	return nil, nil
}
func (g *fakeGit) LsTree(ctx context.Context, commit string) ([]provider.TreeEntry, error) {
	return nil, nil
}
func (g *fakeGit) CatFileBlob(ctx context.Context, hash string) ([]byte, error) { return nil, nil }
func (g *fakeGit) Show(ctx context.Context, revision, path string) ([]byte, error) {
	if g.err != nil {
		return nil, g.err
	}
	key := revision + ":" + path
	if data, ok := g.blobs[key]; ok {
		return data, nil
	}
	return nil, errNotFound
}
func (g *fakeGit) DiffTree(ctx context.Context, commit string) ([]provider.DiffEntry, error) {
	return nil, nil
}
