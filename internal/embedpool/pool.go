// Package embedpool implements the embedding worker pool: bounded
// parallel submission of batches to the embedding provider, returning
// futures, with a shared cancellation flag checked before and after
// each request.
package embedpool

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/spetr/codeindexer/internal/batchplan"
	"github.com/spetr/codeindexer/internal/retry"
	"github.com/spetr/codeindexer/pkg/provider"
	"github.com/spetr/codeindexer/pkg/types"
)

// Result is a submitted batch's outcome.
type Result struct {
	Embeddings [][]float32
	Err        error
}

// Future resolves to a Result once the batch completes.
type Future struct {
	ch chan Result
}

// Get blocks until the result is available or ctx is done.
func (f *Future) Get(ctx context.Context) (Result, error) {
	select {
	case r := <-f.ch:
		return r, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Pool is a bounded worker pool over an EmbeddingProvider. It is a
// context-managed resource with guaranteed shutdown via Close.
type Pool struct {
	embedding provider.EmbeddingProvider
	degree    int
	tasks     chan task
	done      chan struct{}
	cancelled atomic.Bool
}

type task struct {
	texts    []string
	metadata any
	future   *Future
}

// DefaultDegree is the default parallel_requests value.
const DefaultDegree = 8

// New starts a pool of `degree` workers (default DefaultDegree, typical
// range 4-16) submitting batches to embedding.
func New(embedding provider.EmbeddingProvider, degree int) *Pool {
	if degree <= 0 {
		degree = DefaultDegree
	}
	p := &Pool{
		embedding: embedding,
		degree:    degree,
		tasks:     make(chan task, degree*2),
		done:      make(chan struct{}),
	}
	for i := 0; i < degree; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	for {
		select {
		case <-p.done:
			return
		case t, ok := <-p.tasks:
			if !ok {
				return
			}
			t.future.ch <- p.run(t.texts)
		}
	}
}

func (p *Pool) run(texts []string) Result {
	if p.cancelled.Load() {
		return Result{Err: types.NewKindError(types.KindCancelled, fmt.Errorf("embedding pool cancelled"))}
	}

	var embeddings [][]float32
	err := retry.Do(context.Background(), func(ctx context.Context) error {
		e, embedErr := p.embedding.Embed(ctx, texts)
		if embedErr != nil {
			return embedErr
		}
		embeddings = e
		return nil
	})
	if err != nil {
		return Result{Err: err}
	}

	if p.cancelled.Load() {
		return Result{Err: types.NewKindError(types.KindCancelled, fmt.Errorf("embedding pool cancelled"))}
	}

	// The pool guarantees len(embeddings) == len(texts) exactly on
	// success; on mismatch, a fatal InvariantViolation is raised.
	if len(embeddings) != len(texts) {
		return Result{Err: types.NewKindError(types.KindInvariantViolation,
			fmt.Errorf("embedding count mismatch: submitted %d texts, received %d embeddings", len(texts), len(embeddings)))}
	}

	return Result{Embeddings: embeddings}
}

// SubmitBatch submits a batch's texts for embedding and returns a
// future for its result.
func (p *Pool) SubmitBatch(texts []string, metadata any) *Future {
	f := &Future{ch: make(chan Result, 1)}
	p.tasks <- task{texts: texts, metadata: metadata, future: f}
	return f
}

// SubmitPlanned submits every batch produced by batchplan.Plan and
// returns one future per batch, in order.
func (p *Pool) SubmitPlanned(batches []batchplan.Batch) []*Future {
	futures := make([]*Future, len(batches))
	for i, b := range batches {
		texts := make([]string, len(b.Entries))
		for j, e := range b.Entries {
			texts[j] = e.Text
		}
		futures[i] = p.SubmitBatch(texts, nil)
	}
	return futures
}

// Cancel sets the shared cancellation flag; in-flight work finishes
// but no new submissions progress past their first flag check.
func (p *Pool) Cancel() {
	p.cancelled.Store(true)
}

// Cancelled reports whether Cancel has been called.
func (p *Pool) Cancelled() bool {
	return p.cancelled.Load()
}

// Close shuts the pool down, guaranteed even under cancellation.
func (p *Pool) Close() {
	close(p.done)
}
