// codeindexer is a CLI front end over the File Pipeline, Temporal
// Indexer, Reconciliation, and Query Coordinator: index a project,
// keep it live with a watcher, and query it semantically or
// temporally.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/spetr/codeindexer/builtin/chunking/simple"
	"github.com/spetr/codeindexer/builtin/embedding/openai"
	"github.com/spetr/codeindexer/builtin/vectorstore/sqlitevec"
	"github.com/spetr/codeindexer/internal/blobregistry"
	"github.com/spetr/codeindexer/internal/config"
	"github.com/spetr/codeindexer/internal/gitadapter"
	"github.com/spetr/codeindexer/internal/pipeline"
	"github.com/spetr/codeindexer/internal/progressstore"
	"github.com/spetr/codeindexer/internal/query"
	"github.com/spetr/codeindexer/internal/temporal"
	"github.com/spetr/codeindexer/internal/watch"
	"github.com/spetr/codeindexer/pkg/provider"
	"github.com/spetr/codeindexer/pkg/types"
)

var (
	version   = "0.1.0"
	logLevel  string
	logFormat string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "codeindexer",
	Short: "Semantic and temporal code search engine",
	Long: `codeindexer scans a repository into a vector index, embeds both
live file content and git commit history, and serves semantic and
time-scoped queries against the result.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "text, json")

	indexCmd.Flags().Bool("force", false, "reprocess every file, ignoring the blob registry")
	rootCmd.AddCommand(indexCmd)

	indexCommitsCmd.Flags().Bool("all-branches", false, "walk commits reachable from every branch, not just HEAD")
	rootCmd.AddCommand(indexCommitsCmd)

	watchCmd.Flags().Int("debounce-ms", 500, "milliseconds to wait for a file to settle before re-indexing")
	rootCmd.AddCommand(watchCmd)

	queryCmd.Flags().Int("limit", 10, "maximum results")
	queryCmd.Flags().Float32("min-score", 0, "minimum similarity score")
	queryCmd.Flags().String("language", "", "restrict to files of this language")
	queryCmd.Flags().String("path", "", "restrict to paths matching this glob")
	rootCmd.AddCommand(queryCmd)

	queryTemporalCmd.Flags().Int("limit", 10, "maximum results")
	queryTemporalCmd.Flags().Float32("min-score", 0, "minimum similarity score")
	queryTemporalCmd.Flags().String("start", "", "start date, YYYY-MM-DD (required)")
	queryTemporalCmd.Flags().String("end", "", "end date, YYYY-MM-DD (required)")
	queryTemporalCmd.Flags().StringSlice("diff-types", nil, "restrict to these diff types (added, modified, deleted, renamed, binary)")
	queryTemporalCmd.Flags().String("author", "", "substring match against author name or email")
	queryTemporalCmd.Flags().String("chunk-type", "", "restrict to this point type (content, commit_diff, commit_message)")
	rootCmd.AddCommand(queryTemporalCmd)

	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("codeindexer %s\n", version)
	},
}

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index live file content",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		force, _ := cmd.Flags().GetBool("force")
		runIndex(projectPath(args), force)
	},
}

var indexCommitsCmd = &cobra.Command{
	Use:   "index-commits [path]",
	Short: "Index git commit history into the temporal collection",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		allBranches, _ := cmd.Flags().GetBool("all-branches")
		runIndexCommits(projectPath(args), allBranches)
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Watch a project and re-index files as they change",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		debounceMs, _ := cmd.Flags().GetInt("debounce-ms")
		runWatch(projectPath(args), debounceMs)
	},
}

var queryCmd = &cobra.Command{
	Use:   "query <text> [path]",
	Short: "Run a semantic query against the live collection",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		minScore, _ := cmd.Flags().GetFloat32("min-score")
		language, _ := cmd.Flags().GetString("language")
		path, _ := cmd.Flags().GetString("path")
		projectArg := ""
		if len(args) > 1 {
			projectArg = args[1]
		}
		runQuery(projectArg, args[0], limit, minScore, language, path)
	},
}

var queryTemporalCmd = &cobra.Command{
	Use:   "query-temporal <text> [path]",
	Short: "Run a time-scoped query against the temporal collection",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		minScore, _ := cmd.Flags().GetFloat32("min-score")
		start, _ := cmd.Flags().GetString("start")
		end, _ := cmd.Flags().GetString("end")
		diffTypes, _ := cmd.Flags().GetStringSlice("diff-types")
		author, _ := cmd.Flags().GetString("author")
		chunkType, _ := cmd.Flags().GetString("chunk-type")
		projectArg := ""
		if len(args) > 1 {
			projectArg = args[1]
		}
		runQueryTemporal(projectArg, args[0], limit, minScore, start, end, diffTypes, author, chunkType)
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile [path]",
	Short: "Print where reconciliation happens (at the start of every index-commits run)",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runReconcile(projectPath(args))
	},
}

var statusCmd = &cobra.Command{
	Use:   "status [path]",
	Short: "Show index status for a project",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runStatus(projectPath(args))
	},
}

func projectPath(args []string) string {
	p := "."
	if len(args) > 0 {
		p = args[0]
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}

func setupLogging() {
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if logFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// projectID derives a stable project identifier from the absolute
// project path, the way config.Config.Hash derives a config
// fingerprint.
func projectID(absPath string) string {
	h := sha256.Sum256([]byte(absPath))
	return hex.EncodeToString(h[:])[:16]
}

func loadConfig(projectDir string) *config.Config {
	cfg, warnings, err := config.Load(projectDir)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	for _, w := range warnings {
		slog.Warn(w)
	}
	return cfg
}

func createStore(cfg *config.Config) provider.VectorStore {
	store, err := sqlitevec.New(provider.VectorStoreConfig{
		Provider: cfg.VectorStore.Provider,
		Path:     cfg.VectorStore.Path,
	})
	if err != nil {
		slog.Error("failed to create vector store", "error", err)
		os.Exit(1)
	}
	return store
}

func createEmbedding(cfg *config.Config) provider.EmbeddingProvider {
	return openai.New(openai.Config{
		Model:     cfg.Embedding.Model,
		APIKey:    cfg.Embedding.APIKey,
		BaseURL:   cfg.Embedding.Endpoint,
		BatchSize: cfg.Embedding.BatchSize,
	})
}

func createChunker(cfg *config.Config) provider.Chunker {
	return simple.New(simple.Config{
		MaxChunkSize: cfg.Chunking.MaxChunkSize,
		Overlap:      cfg.Chunking.Overlap,
	})
}

func runIndex(projectDir string, force bool) {
	cfg := loadConfig(projectDir)
	store := createStore(cfg)
	embedding := createEmbedding(cfg)
	chunker := createChunker(cfg)
	defer store.Close()
	defer embedding.Close()
	defer chunker.Close()

	blobDBPath := filepath.Join(config.ConfigDir(projectDir), "blobs.db")
	registry, err := blobregistry.Open(blobDBPath)
	if err != nil {
		slog.Error("failed to open blob registry", "error", err)
		os.Exit(1)
	}
	defer registry.Close()

	var git provider.GitAdapter
	adapter := gitadapter.New(projectDir)
	if adapter.IsRepo(projectDir) {
		git = adapter
	}

	ctx, cancel := withSignalCancel()
	defer cancel()

	start := time.Now()
	p := pipeline.New(pipeline.Config{
		ProjectDir: projectDir,
		ProjectID:  projectID(projectDir),
		Collection: "live",
		Index:      cfg.Index,
		Limits:     cfg.Limits,
		Store:      store,
		Embedding:  embedding,
		Chunker:    chunker,
		Git:        git,
		BlobRegistry: registry,
		OnProgress: func(p types.IndexProgress) string {
			fmt.Printf("\r%s %d/%d files", p.Info, p.Done, p.Total)
			return ""
		},
	})

	result, err := p.Run(ctx, force)
	if err != nil {
		slog.Error("indexing failed", "error", err)
		os.Exit(1)
	}
	fmt.Println()
	fmt.Printf("indexed %d/%d files (%d failed), %d chunks in %s\n",
		result.FilesProcessed, result.FilesScanned, result.FilesFailed, result.ChunksIndexed,
		humanize.RelTime(start, time.Now(), "", ""))
}

func runIndexCommits(projectDir string, allBranches bool) {
	cfg := loadConfig(projectDir)
	store := createStore(cfg)
	embedding := createEmbedding(cfg)
	chunker := createChunker(cfg)
	defer store.Close()
	defer embedding.Close()
	defer chunker.Close()

	adapter := gitadapter.New(projectDir)
	if !adapter.IsRepo(projectDir) {
		slog.Error("not a git repository", "dir", projectDir)
		os.Exit(1)
	}

	blobDBPath := filepath.Join(config.ConfigDir(projectDir), "temporal_blobs.db")
	registry, err := blobregistry.Open(blobDBPath)
	if err != nil {
		slog.Error("failed to open blob registry", "error", err)
		os.Exit(1)
	}
	defer registry.Close()

	progress, err := progressstore.Open(
		filepath.Join(config.ConfigDir(projectDir), "temporal_progress.db"),
		filepath.Join(config.ConfigDir(projectDir), "temporal_meta.json"),
	)
	if err != nil {
		slog.Error("failed to open progress store", "error", err)
		os.Exit(1)
	}
	defer progress.Close()

	ctx, cancel := withSignalCancel()
	defer cancel()

	gitCfg := types.GitIndexConfig{
		TieredSampling:      cfg.Temporal.TieredSampling,
		FullHistoryDays:     cfg.Temporal.FullHistoryDays,
		SampledHistoryDays:  cfg.Temporal.SampledHistoryDays,
		SampleRate:          cfg.Temporal.SampleRate,
		OnlyTags:            cfg.Temporal.OnlyTags,
		EmbedCommitMessages: cfg.Temporal.EmbedCommitMessages,
		EmbedDiffs:          cfg.Temporal.EmbedDiffs,
		MinDiffLines:        cfg.Temporal.MinDiffLines,
		MaxDiffLines:        cfg.Temporal.MaxDiffLines,
		MaxCommits:          cfg.Temporal.MaxCommits,
	}

	ix := temporal.New(temporal.Config{
		ProjectDir:    projectDir,
		ProjectID:     projectID(projectDir),
		Collection:    "temporal",
		Git:           adapter,
		Store:         store,
		Embedding:     embedding,
		Chunker:       chunker,
		BlobRegistry:  registry,
		ProgressStore: progress,
		GitConfig:     gitCfg,
		Threads:       cfg.Limits.Workers,
		Reconcile:     true,
		OnProgress: func(p types.CommitProgress) string {
			fmt.Printf("\r%s %d/%d commits", p.Info, p.Done, p.Total)
			return ""
		},
	})

	result, err := ix.Run(ctx, allBranches)
	if err != nil {
		slog.Error("commit indexing failed", "error", err)
		os.Exit(1)
	}
	fmt.Println()
	fmt.Printf("indexed %d/%d commits (%d failed), %d points\n",
		result.CommitsProcessed, result.CommitsTotal, result.CommitsFailed, result.PointsIndexed)
}

func runWatch(projectDir string, debounceMs int) {
	cfg := loadConfig(projectDir)
	store := createStore(cfg)
	embedding := createEmbedding(cfg)
	chunker := createChunker(cfg)
	defer store.Close()
	defer embedding.Close()
	defer chunker.Close()

	blobDBPath := filepath.Join(config.ConfigDir(projectDir), "blobs.db")
	registry, err := blobregistry.Open(blobDBPath)
	if err != nil {
		slog.Error("failed to open blob registry", "error", err)
		os.Exit(1)
	}
	defer registry.Close()

	var git provider.GitAdapter
	adapter := gitadapter.New(projectDir)
	if adapter.IsRepo(projectDir) {
		git = adapter
	}

	w, err := watch.New(watch.Config{
		ProjectDir: projectDir,
		Index:      cfg.Index,
		PipelineConfig: pipeline.Config{
			ProjectDir:   projectDir,
			ProjectID:    projectID(projectDir),
			Collection:   "live",
			Index:        cfg.Index,
			Limits:       cfg.Limits,
			Store:        store,
			Embedding:    embedding,
			Chunker:      chunker,
			Git:          git,
			BlobRegistry: registry,
		},
		DebounceTime: time.Duration(debounceMs) * time.Millisecond,
		OnReindex: func(paths []string) {
			fmt.Printf("re-indexed %d changed file(s)\n", len(paths))
		},
	})
	if err != nil {
		slog.Error("failed to create watcher", "error", err)
		os.Exit(1)
	}
	defer w.Close()

	ctx, cancel := withSignalCancel()
	defer cancel()

	fmt.Printf("watching %s for changes (press Ctrl+C to stop)\n", projectDir)
	if err := w.Watch(ctx); err != nil && ctx.Err() == nil {
		slog.Error("watcher error", "error", err)
		os.Exit(1)
	}
}

func runQuery(projectArg, text string, limit int, minScore float32, language, pathFilter string) {
	projectDir := projectPath([]string{firstNonEmpty(projectArg, ".")})
	cfg := loadConfig(projectDir)
	store := createStore(cfg)
	embedding := createEmbedding(cfg)
	defer store.Close()
	defer embedding.Close()

	svc := query.NewService(store, embedding, nil)
	coord := query.NewCoordinator(svc)

	resp, err := coord.Query(context.Background(), query.Request{
		QueryText: text,
		Limit:     limit,
		MinScore:  &minScore,
		Filters:   query.Filters{Language: language, PathFilter: pathFilter},
		Repositories: []query.Repository{
			{Alias: filepath.Base(projectDir), Collection: "live"},
		},
	})
	if err != nil {
		slog.Error("query failed", "error", err)
		os.Exit(1)
	}
	printResults(resp)
}

func runQueryTemporal(projectArg, text string, limit int, minScore float32, start, end string, diffTypes []string, author, chunkType string) {
	projectDir := projectPath([]string{firstNonEmpty(projectArg, ".")})
	cfg := loadConfig(projectDir)
	store := createStore(cfg)
	embedding := createEmbedding(cfg)
	defer store.Close()
	defer embedding.Close()

	git := gitadapter.New(projectDir)

	svc := query.NewService(store, embedding, git)
	coord := query.NewCoordinator(svc)

	resp, err := coord.Query(context.Background(), query.Request{
		QueryText: text,
		Limit:     limit,
		MinScore:  &minScore,
		Temporal:  true,
		StartDate: start,
		EndDate:   end,
		DiffTypes: diffTypes,
		Author:    author,
		ChunkType: chunkType,
		Repositories: []query.Repository{
			{Alias: filepath.Base(projectDir), TemporalCollection: "temporal"},
		},
	})
	if err != nil {
		slog.Error("temporal query failed", "error", err)
		os.Exit(1)
	}
	for _, w := range resp.Warnings {
		fmt.Println("warning:", w)
	}
	printResults(resp)
}

func printResults(resp *query.Response) {
	if len(resp.Results) == 0 {
		fmt.Println("no results")
		return
	}
	for i, r := range resp.Results {
		fmt.Printf("\n=== %d. %s (score %.3f, repo %s) ===\n", i+1, r.Path, r.Score, r.RepositoryAlias)
		fmt.Println(truncate(r.Content, 500))
	}
	fmt.Printf("\n%d results in %dms across %d repositories\n",
		len(resp.Results), resp.ExecutionTimeMs, resp.RepositoriesSearched)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

func runReconcile(projectDir string) {
	cfg := loadConfig(projectDir)
	store := createStore(cfg)
	defer store.Close()

	fmt.Printf("reconciliation runs automatically at the start of the next index-commits run for %s\n", projectDir)
}

func runStatus(projectDir string) {
	cfg := loadConfig(projectDir)
	store := createStore(cfg)
	defer store.Close()

	ctx := context.Background()
	for _, collection := range []string{"live", "temporal"} {
		exists, err := store.CollectionExists(ctx, collection)
		if err != nil {
			slog.Warn("failed to check collection", "collection", collection, "error", err)
			continue
		}
		fmt.Printf("%s: exists=%v\n", collection, exists)
	}
	fmt.Printf("store path: %s\n", store.BasePath())
}

func withSignalCancel() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()
	return ctx, cancel
}
