package provider

import "context"

// GitAdapter is the small injectable adapter over the git subprocess
// commands listed below. Implementations serialize invocations per repository and
// bound each call with a short timeout.
type GitAdapter interface {
	// IsRepo reports whether dir is inside a git working tree.
	IsRepo(dir string) bool

	// Log returns commits in `--reverse` (oldest-first) order.
	// since and maxCommits are optional (zero value means unset).
	Log(ctx context.Context, allBranches bool, since int64, maxCommits int) ([]LogEntry, error)

	// HeadCommit returns `git rev-parse HEAD`.
	HeadCommit(ctx context.Context) (string, error)

	// CurrentBranch returns `git branch --show-current`.
	CurrentBranch(ctx context.Context) (string, error)

	// BranchesContaining returns `git branch --contains <hash>`.
	BranchesContaining(ctx context.Context, hash string) ([]string, error)

	// LsTree returns `git ls-tree -r -l <commit>` entries for the
	// temporal blob scan: path and blob hash per tracked file.
	LsTree(ctx context.Context, commit string) ([]TreeEntry, error)

	// CatFileBlob reads a blob's content by hash.
	CatFileBlob(ctx context.Context, hash string) ([]byte, error)

	// Show reconstructs a file's content at a revision:path, for
	// query-time content reconstruction.
	Show(ctx context.Context, revision, path string) ([]byte, error)

	// DiffTree returns the per-file changes introduced by a commit,
	// feeding the temporal indexer's diff discovery.
	DiffTree(ctx context.Context, commit string) ([]DiffEntry, error)
}

// LogEntry is one parsed `git log` record.
type LogEntry struct {
	Hash        string
	Timestamp   int64
	AuthorName  string
	AuthorEmail string
	Subject     string
	Parents     []string
}

// TreeEntry is one parsed `git ls-tree -r -l` record.
type TreeEntry struct {
	Path     string
	BlobHash string
	Size     int64
}

// DiffEntry is one per-file change parsed from `git diff-tree`.
type DiffEntry struct {
	Path     string
	OldPath  string // set for renames
	Status   string // "A", "M", "D", "R", "C"
	Body     string // unified diff text; empty for binary/renamed
	IsBinary bool
}
