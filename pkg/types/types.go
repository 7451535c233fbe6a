// Package types holds the data model shared across the indexing
// pipeline, the temporal indexer, and the query path.
package types

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// SourceFile is a file read from the working tree for live indexing.
type SourceFile struct {
	Path     string
	Content  []byte
	Language string
	Hash     string
}

// ComputeHash fills Hash with the SHA-256 of Content.
func (f *SourceFile) ComputeHash() string {
	sum := sha256.Sum256(f.Content)
	f.Hash = hex.EncodeToString(sum[:])
	return f.Hash
}

// Chunk is produced by the chunker from file content, a diff body, or
// a commit message. The chunker itself is out of scope; this is the
// contract it must satisfy.
type Chunk struct {
	Text       string
	CharStart  int
	CharEnd    int
	LineStart  int
	LineEnd    int
	ChunkIndex int
}

// ChunkWithEmbedding pairs a Chunk with its embedding vector.
type ChunkWithEmbedding struct {
	Chunk     *Chunk
	Embedding []float32
}

// DiffType enumerates the kinds of per-file change within a commit.
type DiffType string

const (
	DiffAdded    DiffType = "added"
	DiffModified DiffType = "modified"
	DiffDeleted  DiffType = "deleted"
	DiffRenamed  DiffType = "renamed"
	DiffBinary   DiffType = "binary"
)

// Commit is one git commit observed by the temporal indexer.
// Immutable once observed.
type Commit struct {
	Hash         string
	Timestamp    int64 // unix seconds
	AuthorName   string
	AuthorEmail  string
	Message      string // first line only
	ParentHashes []string
	Branches     []string
}

// ShortHash returns the conventional 8-character abbreviation.
func (c *Commit) ShortHash() string {
	if len(c.Hash) <= 8 {
		return c.Hash
	}
	return c.Hash[:8]
}

// Diff is a single (commit, file_path) change record. Its lifetime is
// bounded by the commit being processed; it is never persisted as-is.
type Diff struct {
	CommitHash       string
	FilePath         string
	OldPath          string // set when Type == DiffRenamed
	Type             DiffType
	Body             string // unified diff text; empty for binary/renamed
	ParentCommitHash string // commit the file previously existed in, if known
}

// PointType enumerates the temporal payload's `type` field.
type PointType string

const (
	PointTypeContent       PointType = "content"
	PointTypeCommitDiff    PointType = "commit_diff"
	PointTypeCommitMessage PointType = "commit_message"
)

// Payload is the flat attribute map carried by every indexed Point.
// json tags match the on-disk vector record schema.
type Payload struct {
	// identity
	Path        string `json:"path"`
	ChunkIndex  int    `json:"chunk_index"`
	TotalChunks int    `json:"total_chunks"`
	PointID     string `json:"point_id"`
	UniqueKey   string `json:"unique_key"`

	// content
	Content   string `json:"content,omitempty"`
	Language  string `json:"language,omitempty"`
	ChunkText string `json:"chunk_text,omitempty"`

	// size and time
	FileSize         int64 `json:"file_size,omitempty"`
	IndexedTimestamp int64 `json:"indexed_timestamp"`
	IndexedAt        string `json:"indexed_at"`

	// provenance
	ProjectID       string `json:"project_id"`
	FileHash        string `json:"file_hash,omitempty"`
	GitAvailable    bool   `json:"git_available"`
	GitCommitHash   string `json:"git_commit_hash,omitempty"`
	GitBranch       string `json:"git_branch,omitempty"`
	GitBlobHash     string `json:"git_blob_hash,omitempty"`
	FilesystemMtime int64  `json:"filesystem_mtime,omitempty"`
	FilesystemSize  int64  `json:"filesystem_size,omitempty"`

	// temporal
	Type               PointType `json:"type,omitempty"`
	CommitHash         string    `json:"commit_hash,omitempty"`
	CommitTimestamp    int64     `json:"commit_timestamp,omitempty"`
	CommitDate         string    `json:"commit_date,omitempty"`
	CommitMessage      string    `json:"commit_message,omitempty"`
	AuthorName         string    `json:"author_name,omitempty"`
	AuthorEmail        string    `json:"author_email,omitempty"`
	DiffType           string    `json:"diff_type,omitempty"`
	ParentCommitHash   string    `json:"parent_commit_hash,omitempty"`
	ReconstructFromGit bool      `json:"reconstruct_from_git,omitempty"`
	FilePath           string    `json:"file_path,omitempty"`
}

// EffectivePath returns Path, falling back to the legacy FilePath field
// on read. Per the design notes, writers must always set Path.
func (p *Payload) EffectivePath() string {
	if p.Path != "" {
		return p.Path
	}
	return p.FilePath
}

// Point is one indexed record: a vector plus its Payload.
type Point struct {
	ID      string
	Vector  []float32
	Payload *Payload
}

// IndexMetadata summarizes the current state of the live index.
type IndexMetadata struct {
	ProjectID   string    `json:"project_id"`
	LastIndexed time.Time `json:"last_indexed"`
	FileCount   int       `json:"file_count"`
	ChunkCount  int       `json:"chunk_count"`
	ConfigHash  string    `json:"config_hash"`
}

// StoreStats reports aggregate counters for a vector store.
type StoreStats struct {
	TotalPoints int64 `json:"total_points"`
	TotalFiles  int64 `json:"total_files"`
	SizeBytes   int64 `json:"size_bytes"`
}

// IndexProgress is the payload of a live-indexing progress callback.
type IndexProgress struct {
	Done            int
	Total           int
	Path            string
	Info            string
	ConcurrentFiles []ConcurrentFile
}

// ConcurrentFile mirrors one Slot Tracker snapshot entry for display.
type ConcurrentFile struct {
	SlotID   int
	Filename string
	FileSize int64
	Status   string
}

// CommitProgress is the payload of a temporal-indexing progress
// callback.
type CommitProgress struct {
	Done            int
	Total           int
	ShortHash       string
	Filename        string
	Info            string
	ConcurrentFiles []ConcurrentFile
}

// GitIndexConfig tunes how much of history the temporal indexer walks
// and what it embeds per commit. The indexer reads MaxCommits, the
// Embed* flags and the diff-line bounds; the sampling fields
// (TieredSampling, FullHistoryDays, SampledHistoryDays, SampleRate,
// OnlyTags) are carried but not read, so every commit is walked
// whatever their values.
type GitIndexConfig struct {
	TieredSampling      bool
	FullHistoryDays     int
	SampledHistoryDays  int
	SampleRate          float64
	OnlyTags            bool
	EmbedCommitMessages bool
	EmbedDiffs          bool
	MinDiffLines        int
	MaxDiffLines        int
	MaxCommits          int
}

// DefaultGitIndexConfig returns the default tiered-sampling settings.
func DefaultGitIndexConfig() GitIndexConfig {
	return GitIndexConfig{
		TieredSampling:      false,
		FullHistoryDays:     30,
		SampledHistoryDays:  365,
		SampleRate:          0.2,
		OnlyTags:            true,
		EmbedCommitMessages: true,
		EmbedDiffs:          true,
		MinDiffLines:        10,
		MaxDiffLines:        500,
		MaxCommits:          10000,
	}
}

// ProgressManifest is the temporal_meta.json sidecar.
type ProgressManifest struct {
	LastCommit         string   `json:"last_commit"`
	TotalCommits       int      `json:"total_commits"`
	TotalBlobs         int      `json:"total_blobs"`
	NewBlobsIndexed    int      `json:"new_blobs_indexed"`
	DeduplicationRatio float64  `json:"deduplication_ratio"`
	IndexedBranches    []string `json:"indexed_branches"`
	IndexingMode       string   `json:"indexing_mode"` // "single-branch" | "all-branches"
	IndexedAt          string   `json:"indexed_at"`
}

// ProgressCompletedSet is the temporal_progress.json sidecar.
type ProgressCompletedSet struct {
	CompletedCommits []string `json:"completed_commits"`
}

// On-disk sidecar file names within a collection directory.
// CollectionMetaFile and ProjectionMatrixFile are never deleted by
// reconciliation; the other four are.
const (
	CollectionMetaFile    = "collection_meta.json"
	ProjectionMatrixFile  = "projection_matrix.npy"
	HNSWIndexFile         = "hnsw_index.bin"
	IDIndexFile           = "id_index.bin"
	TemporalMetaFile      = "temporal_meta.json"
	TemporalProgressFile  = "temporal_progress.json"
)
