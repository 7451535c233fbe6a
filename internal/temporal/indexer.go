package temporal

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spetr/codeindexer/internal/batchplan"
	"github.com/spetr/codeindexer/internal/blobregistry"
	"github.com/spetr/codeindexer/internal/embedpool"
	"github.com/spetr/codeindexer/internal/progressstore"
	"github.com/spetr/codeindexer/internal/ratewindow"
	"github.com/spetr/codeindexer/internal/slot"
	"github.com/spetr/codeindexer/pkg/provider"
	"github.com/spetr/codeindexer/pkg/types"
)

// interruptSentinel mirrors the live pipeline's cancellation contract:
// a progress callback returning this string stops further commit
// submission after the current boundary.
const interruptSentinel = "INTERRUPT"

// rateWindowSpan is the rolling window the commits/s figure is
// computed over, matching the file pipeline's window.
const rateWindowSpan = 30 * time.Second

// Config configures one temporal indexer run.
type Config struct {
	ProjectDir string
	ProjectID  string
	Collection string // vector store collection name, e.g. "temporal"

	Git       provider.GitAdapter
	Store     provider.VectorStore
	Embedding provider.EmbeddingProvider
	Chunker   provider.Chunker

	BlobRegistry  *blobregistry.Registry
	ProgressStore *progressstore.Store

	GitConfig  types.GitIndexConfig
	Threads    int
	Reconcile  bool
	OnProgress func(types.CommitProgress) string
}

// Result summarizes one temporal indexing run.
type Result struct {
	CommitsTotal     int
	CommitsProcessed int
	CommitsFailed    int
	PointsIndexed    int
}

// Indexer walks git history into the temporal collection.
type Indexer struct {
	cfg Config

	slots   *slot.Tracker
	pool    *embedpool.Pool
	threads int

	doneCount   atomic.Int64
	interrupted atomic.Bool
	commitRate  *ratewindow.Window

	mu             sync.Mutex
	commitsFailedN int
	commitsOKN     int
	pointsN        int
}

// New constructs an Indexer. Callers must call Run exactly once.
func New(cfg Config) *Indexer {
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	return &Indexer{
		cfg:        cfg,
		slots:      slot.New(threads),
		pool:       embedpool.New(cfg.Embedding, threads),
		threads:    threads,
		commitRate: ratewindow.New(rateWindowSpan),
	}
}

// Run collects the commit list, optionally reconciles it against what
// is already on disk, pre-populates the full work queue, and then
// drains it with exactly cfg.Threads worker goroutines: the queue must
// be fully populated before any worker starts, to avoid the
// thread-count ramping up gradually as commits trickle in.
func (ix *Indexer) Run(ctx context.Context, allBranches bool) (*Result, error) {
	defer ix.pool.Close()

	collection := ix.cfg.Collection
	if collection == "" {
		collection = "temporal"
	}

	entries, err := ix.cfg.Git.Log(ctx, allBranches, 0, ix.cfg.GitConfig.MaxCommits)
	if err != nil {
		return nil, fmt.Errorf("temporal: git log: %w", err)
	}
	commits := make([]types.Commit, len(entries))
	for i, e := range entries {
		commits[i] = types.Commit{
			Hash:         e.Hash,
			Timestamp:    e.Timestamp,
			AuthorName:   e.AuthorName,
			AuthorEmail:  e.AuthorEmail,
			Message:      e.Subject,
			ParentHashes: e.Parents,
		}
	}

	if ix.cfg.Reconcile {
		commits, err = Reconcile(ix.cfg.Store.BasePath(), commits, collection)
		if err != nil {
			return nil, fmt.Errorf("temporal: reconcile: %w", err)
		}
	}

	completed, err := ix.cfg.ProgressStore.LoadCompleted()
	if err != nil {
		return nil, fmt.Errorf("temporal: load progress: %w", err)
	}
	pending := make([]types.Commit, 0, len(commits))
	for _, c := range commits {
		if _, done := completed[c.Hash]; !done {
			pending = append(pending, c)
		}
	}

	exists, err := ix.cfg.Store.CollectionExists(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("temporal: collection exists: %w", err)
	}
	if !exists {
		if err := ix.cfg.Store.CreateCollection(ctx, collection, ix.cfg.Embedding.Dimensions()); err != nil {
			return nil, fmt.Errorf("temporal: create collection: %w", err)
		}
	}
	if err := ix.cfg.Store.BeginIndexing(ctx, collection); err != nil {
		return nil, fmt.Errorf("temporal: begin indexing: %w", err)
	}

	total := len(pending)
	queue := make(chan types.Commit, total)
	for _, c := range pending {
		queue <- c
	}
	close(queue)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := ix.threads
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for c := range queue {
				if ix.interrupted.Load() || runCtx.Err() != nil {
					continue
				}
				ix.processCommit(runCtx, collection, c, total)
			}
		}()
	}
	wg.Wait()

	if err := ix.cfg.Store.EndIndexing(ctx, collection); err != nil {
		return nil, fmt.Errorf("temporal: end indexing: %w", err)
	}

	ix.mu.Lock()
	result := &Result{
		CommitsTotal:     len(commits),
		CommitsProcessed: ix.commitsOKN,
		CommitsFailed:    ix.commitsFailedN,
		PointsIndexed:    ix.pointsN,
	}
	ix.mu.Unlock()

	if ix.cfg.OnProgress != nil {
		ix.cfg.OnProgress(types.CommitProgress{Done: total, Total: total, Info: "✅ Completed"})
	}

	return result, nil
}

// processCommit indexes a single commit's diffs and message.
// Exceptions are logged at error level with the commit's short hash
// and propagated into the aggregate failure count; they are never
// swallowed silently.
func (ix *Indexer) processCommit(ctx context.Context, collection string, commit types.Commit, total int) {
	slotID := ix.slots.AcquireSlot(commit.ShortHash(), 0)
	defer ix.slots.ReleaseSlot(slotID)

	err := ix.indexOneCommit(ctx, collection, commit, slotID)

	now := time.Now()
	ix.commitRate.Add(1, now)
	done := int(ix.doneCount.Add(1))

	ix.mu.Lock()
	if err != nil {
		ix.commitsFailedN++
		slog.Error("commit indexing failed", "commit", commit.ShortHash(), "error", err)
	} else {
		ix.commitsOKN++
		if err := ix.cfg.ProgressStore.SaveCompleted(commit.Hash); err != nil {
			slog.Error("saving commit progress failed", "commit", commit.ShortHash(), "error", err)
		}
	}
	ix.mu.Unlock()

	ix.emitProgress(done, total, commit, now)
}

func (ix *Indexer) indexOneCommit(ctx context.Context, collection string, commit types.Commit, slotID int) error {
	if err := ix.slots.UpdateSlot(slotID, slot.StatusChunking, commit.ShortHash(), 0); err != nil {
		return err
	}

	diffs, err := ix.cfg.Git.DiffTree(ctx, commit.Hash)
	if err != nil {
		return fmt.Errorf("diff-tree %s: %w", commit.ShortHash(), err)
	}

	chunkText := func(text, lang string) ([]*types.Chunk, error) {
		return ix.cfg.Chunker.ChunkText(text, lang)
	}

	var entries []chunkEntry
	totalByFile := make(map[string]int)

	if ix.cfg.GitConfig.EmbedDiffs {
		for _, d := range diffs {
			if d.IsBinary || d.Body == "" {
				continue
			}
			lineCount := countLines(d.Body)
			if lineCount < ix.cfg.GitConfig.MinDiffLines || (ix.cfg.GitConfig.MaxDiffLines > 0 && lineCount > ix.cfg.GitConfig.MaxDiffLines) {
				continue
			}

			parent := ""
			if len(commit.ParentHashes) > 0 {
				parent = commit.ParentHashes[0]
			}
			info := diffInfo{
				Path:             d.Path,
				Type:             statusToDiffType(d.Status, d.IsBinary),
				Body:             d.Body,
				ParentCommitHash: parent,
			}
			diffEntries, err := diffChunkEntries(commit, info, chunkText, ix.cfg.ProjectID)
			if err != nil {
				return err
			}
			totalByFile[d.Path] = len(diffEntries)
			entries = append(entries, diffEntries...)
		}
	}

	totalMessage := 0
	if ix.cfg.GitConfig.EmbedCommitMessages {
		msgEntries, err := commitMessageChunkEntries(commit, chunkText, ix.cfg.ProjectID)
		if err != nil {
			return err
		}
		totalMessage = len(msgEntries)
		entries = append(entries, msgEntries...)
	}

	if len(entries) == 0 {
		return ix.slots.UpdateSlot(slotID, slot.StatusComplete, commit.ShortHash(), 0)
	}

	if ix.cfg.BlobRegistry != nil {
		entries = ix.filterAlreadyIndexed(entries)
		if len(entries) == 0 {
			return ix.slots.UpdateSlot(slotID, slot.StatusComplete, commit.ShortHash(), 0)
		}
	}

	if err := ix.slots.UpdateSlot(slotID, slot.StatusVectorizing, commit.ShortHash(), 0); err != nil {
		return err
	}

	planEntries := make([]batchplan.Entry, len(entries))
	for i, e := range entries {
		planEntries[i] = batchplan.Entry{Text: e.text, Metadata: e}
	}
	batches := batchplan.Plan(planEntries, ix.cfg.Embedding.MaxTokens(), ix.cfg.Embedding.CountTokens)
	futures := ix.pool.SubmitPlanned(batches)

	embeddings := make([][]float32, 0, len(entries))
	for _, fut := range futures {
		res, err := fut.Get(ctx)
		if err != nil {
			return fmt.Errorf("embed %s: %w", commit.ShortHash(), err)
		}
		if res.Err != nil {
			return fmt.Errorf("embed %s: %w", commit.ShortHash(), res.Err)
		}
		embeddings = append(embeddings, res.Embeddings...)
	}

	if err := ix.slots.UpdateSlot(slotID, slot.StatusProcessing, commit.ShortHash(), 0); err != nil {
		return err
	}

	points, err := buildTemporalPoints(commit, entries, embeddings, ix.cfg.ProjectID, totalByFile, totalMessage)
	if err != nil {
		return types.NewKindError(types.KindInvariantViolation, err)
	}

	if err := ix.cfg.Store.UpsertPoints(ctx, collection, points); err != nil {
		return fmt.Errorf("upsert %s: %w", commit.ShortHash(), err)
	}

	if ix.cfg.BlobRegistry != nil {
		for _, pt := range points {
			if err := ix.cfg.BlobRegistry.Register(pt.ID, pt.ID); err != nil {
				slog.Warn("blob registry update failed", "commit", commit.ShortHash(), "error", err)
			}
		}
	}

	ix.mu.Lock()
	ix.pointsN += len(points)
	ix.mu.Unlock()

	return ix.slots.UpdateSlot(slotID, slot.StatusComplete, commit.ShortHash(), 0)
}

// filterAlreadyIndexed drops chunk entries whose own deterministic
// point id is already present in the blob registry, collapsing the
// spec's two point-id pre-filter layers (per-diff and per-chunk) into
// one pass over the final chunk set.
func (ix *Indexer) filterAlreadyIndexed(entries []chunkEntry) []chunkEntry {
	fresh := make([]chunkEntry, 0, len(entries))
	for _, e := range entries {
		known, err := ix.cfg.BlobRegistry.HasBlob(e.pointID)
		if err != nil || !known {
			fresh = append(fresh, e)
		}
	}
	return fresh
}

func (ix *Indexer) emitProgress(done, total int, commit types.Commit, now time.Time) {
	if ix.cfg.OnProgress == nil {
		return
	}

	pct := 0.0
	if total > 0 {
		pct = float64(done) / float64(total) * 100
	}
	commitsPerSec := ix.commitRate.Rate(now)
	active := len(ix.slots.GetConcurrentFilesData())

	info := fmt.Sprintf("%d/%d commits (%.1f%%) | %.1f commits/s | %d threads | \U0001F4DD %s - %s",
		done, total, pct, commitsPerSec, active, commit.ShortHash(), commit.Message)

	concurrent := make([]types.ConcurrentFile, 0, active)
	for _, e := range ix.slots.GetConcurrentFilesData() {
		concurrent = append(concurrent, types.ConcurrentFile{
			SlotID:   e.SlotID,
			Filename: e.Filename,
			FileSize: e.FileSize,
			Status:   string(e.Status),
		})
	}

	if ix.cfg.OnProgress(types.CommitProgress{
		Done:            done,
		Total:           total,
		ShortHash:       commit.ShortHash(),
		Filename:        commit.Message,
		Info:            info,
		ConcurrentFiles: concurrent,
	}) == interruptSentinel {
		ix.interrupted.Store(true)
		ix.pool.Cancel()
	}
}

func countLines(s string) int {
	n := 1
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			n++
		}
	}
	return n
}
