// Package pipeline implements the live-indexing path: it scans the
// working tree, chunks changed files, submits them to the embedding
// worker pool, and upserts the resulting points into the vector store
// under a bounded-concurrency slot tracker.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spetr/codeindexer/internal/batchplan"
	"github.com/spetr/codeindexer/internal/blobregistry"
	"github.com/spetr/codeindexer/internal/config"
	"github.com/spetr/codeindexer/internal/embedpool"
	"github.com/spetr/codeindexer/internal/ratewindow"
	"github.com/spetr/codeindexer/internal/slot"
	"github.com/spetr/codeindexer/pkg/provider"
	"github.com/spetr/codeindexer/pkg/types"
)

// rateWindowSpan is the rolling window files/s and KB/s are computed
// over.
const rateWindowSpan = 30 * time.Second

// interruptSentinel is the exact string a progress callback returns to
// request cancellation.
const interruptSentinel = "INTERRUPT"

// Config configures one pipeline run.
type Config struct {
	ProjectDir string
	ProjectID  string
	Collection string // vector store collection name, e.g. "live"

	Index  config.IndexConfig
	Limits config.LimitsConfig

	Store     provider.VectorStore
	Embedding provider.EmbeddingProvider
	Chunker   provider.Chunker
	Git       provider.GitAdapter // nil when the project is not a git repo

	// BlobRegistry records which (blob-or-content-hash) signatures have
	// already been embedded, letting incremental runs (force=false)
	// skip files unchanged since the last run. Optional; nil disables
	// incremental skipping and every file is always reprocessed.
	BlobRegistry *blobregistry.Registry

	// OnProgress is invoked after every file completes (success or
	// failure). Returning interruptSentinel stops further submission
	// after the current file boundary.
	OnProgress func(types.IndexProgress) string
}

// Result summarizes one pipeline run.
type Result struct {
	FilesScanned   int
	FilesProcessed int
	FilesFailed    int
	ChunksIndexed  int
}

// Pipeline runs live indexing for a single project.
type Pipeline struct {
	cfg Config

	slots *slot.Tracker
	pool  *embedpool.Pool

	doneCount   atomic.Int64
	interrupted atomic.Bool
	fileRate    *ratewindow.Window
	byteRate    *ratewindow.Window

	mu           sync.Mutex
	filesFailedN int
	filesOKN     int
	chunksN      int
}

// New constructs a Pipeline. Callers must call Run exactly once.
func New(cfg Config) *Pipeline {
	threads := cfg.Limits.Workers
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	return &Pipeline{
		cfg:      cfg,
		slots:    slot.New(threads),
		pool:     embedpool.New(cfg.Embedding, threads),
		fileRate: ratewindow.New(rateWindowSpan),
		byteRate: ratewindow.New(rateWindowSpan),
	}
}

// Run scans the project, indexes every file that needs it (all files
// if force is true, else only files whose content hash changed since
// the last run per blobHashes/signature resolution), and returns
// aggregate counters.
func (p *Pipeline) Run(ctx context.Context, force bool) (*Result, error) {
	defer p.pool.Close()

	collection := p.cfg.Collection
	if collection == "" {
		collection = "live"
	}

	files, err := scanFiles(ctx, p.cfg.ProjectDir, p.cfg.Index, p.cfg.Limits)
	if err != nil {
		return nil, fmt.Errorf("pipeline: scan: %w", err)
	}

	blobHashes, gitMeta := p.resolveGitContext(ctx)

	filesToProcess := files
	if !force && p.cfg.BlobRegistry != nil {
		filesToProcess = p.filterUnchanged(files, blobHashes)
	}

	exists, err := p.cfg.Store.CollectionExists(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("pipeline: collection exists: %w", err)
	}
	if !exists {
		if err := p.cfg.Store.CreateCollection(ctx, collection, p.cfg.Embedding.Dimensions()); err != nil {
			return nil, fmt.Errorf("pipeline: create collection: %w", err)
		}
	}

	if err := p.cfg.Store.BeginIndexing(ctx, collection); err != nil {
		return nil, fmt.Errorf("pipeline: begin indexing: %w", err)
	}

	total := len(filesToProcess)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	limit := p.slots.Capacity() - 2
	if limit < 1 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(runCtx)
	g.SetLimit(limit)

	for _, f := range filesToProcess {
		f := f
		if p.interrupted.Load() {
			break
		}
		g.Go(func() error {
			if p.interrupted.Load() || gctx.Err() != nil {
				return nil
			}
			sig := f.Hash
			if bh, ok := blobHashes[f.Path]; ok {
				sig = bh
			}
			fc := fileContext{
				projectID:    p.cfg.ProjectID,
				signature:    sig,
				gitAvailable: gitMeta.gitAvailable,
				commitHash:   gitMeta.commitHash,
				branch:       gitMeta.branch,
				blobHash:     blobHashes[f.Path],
			}
			p.processFile(gctx, collection, f, fc, total)
			return nil
		})
	}
	_ = g.Wait()

	if err := p.cfg.Store.EndIndexing(ctx, collection); err != nil {
		return nil, fmt.Errorf("pipeline: end indexing: %w", err)
	}

	p.mu.Lock()
	result := &Result{
		FilesScanned:   len(files),
		FilesProcessed: p.filesOKN,
		FilesFailed:    p.filesFailedN,
		ChunksIndexed:  p.chunksN,
	}
	p.mu.Unlock()

	if p.cfg.OnProgress != nil {
		p.cfg.OnProgress(types.IndexProgress{
			Done:  total,
			Total: total,
			Info:  "✅ Completed",
		})
	}

	return result, nil
}

func (p *Pipeline) processFile(ctx context.Context, collection string, f *types.SourceFile, fc fileContext, total int) {
	slotID := p.slots.AcquireSlot(f.Path, int64(len(f.Content)))
	defer p.slots.ReleaseSlot(slotID)

	err := p.indexOneFile(ctx, collection, f, fc, slotID)

	now := time.Now()
	p.fileRate.Add(1, now)
	p.byteRate.Add(int64(len(f.Content)), now)
	done := int(p.doneCount.Add(1))

	p.mu.Lock()
	if err != nil {
		p.filesFailedN++
		filesFailed.Inc()
		slog.Error("file indexing failed", "path", f.Path, "error", err)
	} else {
		p.filesOKN++
		filesProcessed.Inc()
	}
	p.mu.Unlock()

	p.emitProgress(done, total, f.Path, now)
}

func (p *Pipeline) indexOneFile(ctx context.Context, collection string, f *types.SourceFile, fc fileContext, slotID int) error {
	if err := p.slots.UpdateSlot(slotID, slot.StatusChunking, f.Path, int64(len(f.Content))); err != nil {
		return err
	}

	chunks, err := p.cfg.Chunker.ChunkFile(f)
	if err != nil {
		return fmt.Errorf("chunk %s: %w", f.Path, err)
	}
	if len(chunks) == 0 {
		return nil
	}

	if err := p.slots.UpdateSlot(slotID, slot.StatusVectorizing, f.Path, 0); err != nil {
		return err
	}

	entries := make([]batchplan.Entry, len(chunks))
	for i, c := range chunks {
		entries[i] = batchplan.Entry{Text: c.Text, Metadata: c}
	}
	batches := batchplan.Plan(entries, p.cfg.Embedding.MaxTokens(), p.cfg.Embedding.CountTokens)
	futures := p.pool.SubmitPlanned(batches)

	embeddings := make([][]float32, 0, len(chunks))
	for _, fut := range futures {
		res, err := fut.Get(ctx)
		if err != nil {
			return fmt.Errorf("embed %s: %w", f.Path, err)
		}
		if res.Err != nil {
			return fmt.Errorf("embed %s: %w", f.Path, res.Err)
		}
		embeddings = append(embeddings, res.Embeddings...)
	}

	if err := p.slots.UpdateSlot(slotID, slot.StatusProcessing, f.Path, 0); err != nil {
		return err
	}

	points, err := buildPoints(f, chunks, embeddings, fc)
	if err != nil {
		return types.NewKindError(types.KindInvariantViolation, err)
	}

	if err := p.cfg.Store.UpsertPoints(ctx, collection, points); err != nil {
		return fmt.Errorf("upsert %s: %w", f.Path, err)
	}

	if p.cfg.BlobRegistry != nil {
		for _, pt := range points {
			if err := p.cfg.BlobRegistry.Register(fc.signature, pt.ID); err != nil {
				slog.Warn("blob registry update failed", "path", f.Path, "error", err)
			}
		}
	}

	p.mu.Lock()
	p.chunksN += len(points)
	p.mu.Unlock()
	chunksIndexed.Add(float64(len(points)))

	return p.slots.UpdateSlot(slotID, slot.StatusComplete, f.Path, 0)
}

func (p *Pipeline) emitProgress(done, total int, path string, now time.Time) {
	if p.cfg.OnProgress == nil {
		return
	}

	pct := 0.0
	if total > 0 {
		pct = float64(done) / float64(total) * 100
	}
	filesPerSec := p.fileRate.Rate(now)
	kbPerSec := p.byteRate.Rate(now) / 1024.0
	active := len(p.slots.GetConcurrentFilesData())

	info := fmt.Sprintf("%d/%d files (%.1f%%) | %.1f files/s | %.1f KB/s | %d threads | %s",
		done, total, pct, filesPerSec, kbPerSec, active, path)

	concurrent := make([]types.ConcurrentFile, 0, active)
	for _, e := range p.slots.GetConcurrentFilesData() {
		concurrent = append(concurrent, types.ConcurrentFile{
			SlotID:   e.SlotID,
			Filename: e.Filename,
			FileSize: e.FileSize,
			Status:   string(e.Status),
		})
	}

	if p.cfg.OnProgress(types.IndexProgress{
		Done:            done,
		Total:           total,
		Path:            path,
		Info:            info,
		ConcurrentFiles: concurrent,
	}) == interruptSentinel {
		p.interrupted.Store(true)
		p.pool.Cancel()
	}
}

// gitContext carries the repo-wide provenance shared by every file in
// one run.
type gitContext struct {
	gitAvailable bool
	commitHash   string
	branch       string
}

// resolveGitContext resolves HEAD/branch and a path -> blob hash index
// once per run, used both for provenance fields and change detection.
func (p *Pipeline) resolveGitContext(ctx context.Context) (map[string]string, gitContext) {
	if p.cfg.Git == nil || !p.cfg.Git.IsRepo(p.cfg.ProjectDir) {
		return nil, gitContext{}
	}

	head, err := p.cfg.Git.HeadCommit(ctx)
	if err != nil {
		return nil, gitContext{}
	}
	branch, _ := p.cfg.Git.CurrentBranch(ctx)

	entries, err := p.cfg.Git.LsTree(ctx, head)
	if err != nil {
		return nil, gitContext{gitAvailable: true, commitHash: head, branch: branch}
	}

	blobHashes := make(map[string]string, len(entries))
	for _, e := range entries {
		blobHashes[e.Path] = e.BlobHash
	}
	return blobHashes, gitContext{gitAvailable: true, commitHash: head, branch: branch}
}

// filterUnchanged drops files whose signature (git blob hash if
// tracked, else content hash) is already registered in the blob
// registry, i.e. unchanged since the last run that indexed them.
func (p *Pipeline) filterUnchanged(files []*types.SourceFile, blobHashes map[string]string) []*types.SourceFile {
	changed := make([]*types.SourceFile, 0, len(files))
	for _, f := range files {
		sig := f.Hash
		if bh, ok := blobHashes[f.Path]; ok {
			sig = bh
		}
		known, err := p.cfg.BlobRegistry.HasBlob(sig)
		if err != nil || !known {
			changed = append(changed, f)
		}
	}
	return changed
}
