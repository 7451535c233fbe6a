// Package watch implements a live fsnotify-driven re-index trigger for
// the file pipeline: it watches a project tree for writes,
// creates, and removes, debounces bursts of changes, and re-runs
// internal/pipeline on whatever settled, rather than re-deriving the
// pipeline's chunk/embed/upsert path itself.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/spetr/codeindexer/internal/config"
	"github.com/spetr/codeindexer/internal/pipeline"
)

// Watcher watches a project directory and re-runs a pipeline.Pipeline
// whenever included files settle after a debounce window.
type Watcher struct {
	projectDir   string
	index        config.IndexConfig
	pipelineCfg  pipeline.Config

	fs           *fsnotify.Watcher
	onReindex    func(paths []string)
	debounceTime time.Duration

	pendingMu    sync.Mutex
	pendingFiles map[string]time.Time
}

// Config configures a Watcher. PipelineConfig is reused to construct a
// fresh pipeline.Pipeline per debounced batch, since a Pipeline's Run
// may only be called once.
type Config struct {
	ProjectDir     string
	Index          config.IndexConfig
	PipelineConfig pipeline.Config
	DebounceTime   time.Duration // default 500ms
	OnReindex      func(paths []string)
}

// New constructs a Watcher over cfg.
func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	debounce := cfg.DebounceTime
	if debounce == 0 {
		debounce = 500 * time.Millisecond
	}

	return &Watcher{
		projectDir:   cfg.ProjectDir,
		index:        cfg.Index,
		pipelineCfg:  cfg.PipelineConfig,
		fs:           fsw,
		onReindex:    cfg.OnReindex,
		debounceTime: debounce,
		pendingFiles: make(map[string]time.Time),
	}, nil
}

// Watch blocks until ctx is cancelled, re-running the pipeline every
// time a batch of included files settles.
func (w *Watcher) Watch(ctx context.Context) error {
	if err := w.addWatchDirs(); err != nil {
		return err
	}

	slog.Info("watching for file changes", "dir", w.projectDir)

	go w.processDebounced(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("stopping watcher")
			return w.fs.Close()

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "error", err)
		}
	}
}

// Close releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

func (w *Watcher) addWatchDirs() error {
	return filepath.WalkDir(w.projectDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}

		relPath, _ := filepath.Rel(w.projectDir, path)
		relPath = filepath.ToSlash(relPath)
		for _, pattern := range w.index.Exclude {
			if pipeline.MatchGlob(pattern, relPath+"/") {
				return filepath.SkipDir
			}
		}
		if strings.HasPrefix(d.Name(), ".") && d.Name() != "." {
			return filepath.SkipDir
		}

		if err := w.fs.Add(path); err != nil {
			slog.Warn("failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) {
		return
	}

	path := event.Name
	relPath, err := filepath.Rel(w.projectDir, path)
	if err != nil {
		return
	}
	relPath = filepath.ToSlash(relPath)

	included := false
	for _, pattern := range w.index.Include {
		if pipeline.MatchGlob(pattern, relPath) {
			included = true
			break
		}
	}
	if !included {
		return
	}
	for _, pattern := range w.index.Exclude {
		if pipeline.MatchGlob(pattern, relPath) {
			return
		}
	}

	w.pendingMu.Lock()
	w.pendingFiles[path] = time.Now()
	w.pendingMu.Unlock()

	slog.Debug("file changed", "path", relPath, "op", event.Op.String())
}

func (w *Watcher) processDebounced(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.flushSettled(ctx)
		}
	}
}

func (w *Watcher) flushSettled(ctx context.Context) {
	now := time.Now()
	var settled []string

	w.pendingMu.Lock()
	for path, changedAt := range w.pendingFiles {
		if now.Sub(changedAt) >= w.debounceTime {
			settled = append(settled, path)
			delete(w.pendingFiles, path)
		}
	}
	w.pendingMu.Unlock()

	if len(settled) == 0 {
		return
	}

	slog.Info("re-indexing changed files", "count", len(settled))
	p := pipeline.New(w.pipelineCfg)
	if _, err := p.Run(ctx, false); err != nil {
		slog.Warn("watch re-index failed", "error", err)
		return
	}
	if w.onReindex != nil {
		w.onReindex(settled)
	}
}
