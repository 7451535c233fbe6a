package embedpool

import (
	"context"
	"testing"
	"time"
)

type fakeEmbedder struct {
	dims int
}

func (f *fakeEmbedder) Name() string { return "fake" }
func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dims)
	}
	return out, nil
}
func (f *fakeEmbedder) Dimensions() int                          { return f.dims }
func (f *fakeEmbedder) MaxBatchSize() int                        { return 100 }
func (f *fakeEmbedder) MaxTokens() int                           { return 120000 }
func (f *fakeEmbedder) CountTokens(text string) int              { return len(text) }
func (f *fakeEmbedder) Warmup(ctx context.Context) error         { return nil }
func (f *fakeEmbedder) Close() error                             { return nil }

func TestSubmitBatchReturnsExactCount(t *testing.T) {
	p := New(&fakeEmbedder{dims: 4}, 2)
	defer p.Close()

	future := p.SubmitBatch([]string{"a", "b", "c"}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	res, err := future.Get(ctx)
	if err != nil {
		t.Fatalf("future.Get error: %v", err)
	}
	if res.Err != nil {
		t.Fatalf("embedding error: %v", res.Err)
	}
	if len(res.Embeddings) != 3 {
		t.Fatalf("expected 3 embeddings, got %d", len(res.Embeddings))
	}
}

func TestCancelStopsNewWork(t *testing.T) {
	p := New(&fakeEmbedder{dims: 4}, 1)
	defer p.Close()
	p.Cancel()

	future := p.SubmitBatch([]string{"a"}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	res, err := future.Get(ctx)
	if err != nil {
		t.Fatalf("future.Get error: %v", err)
	}
	if res.Err == nil {
		t.Fatal("expected cancellation error")
	}
}
