// Package gitadapter implements a small injectable contract wrapping
// seven git subcommands: `log`, `rev-parse`, `branch`, `ls-tree`,
// `cat-file`, `show`, and `diff-tree`, in the same exec.Command style as
// internal/analysis/githistory.go. Invocations are serialized per
// repository by a single lock and bounded by a short timeout.
package gitadapter

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spetr/codeindexer/pkg/provider"
)

// DefaultTimeout bounds every git subprocess invocation (typically 5-10s).
const DefaultTimeout = 8 * time.Second

// Adapter implements provider.GitAdapter by shelling out to the git
// binary. Invocations are serialized per repository to avoid index
// contention.
type Adapter struct {
	dir     string
	timeout time.Duration
	mu      sync.Mutex
}

// New returns an Adapter rooted at dir.
func New(dir string) *Adapter {
	return &Adapter{dir: dir, timeout: DefaultTimeout}
}

var _ provider.GitAdapter = (*Adapter)(nil)

func (a *Adapter) run(ctx context.Context, args ...string) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = a.dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// IsRepo reports whether dir is inside a git working tree.
func (a *Adapter) IsRepo(dir string) bool {
	cmd := exec.Command("git", "rev-parse", "--git-dir")
	cmd.Dir = dir
	return cmd.Run() == nil
}

// Log returns commits oldest-first (`--reverse`).
func (a *Adapter) Log(ctx context.Context, allBranches bool, since int64, maxCommits int) ([]provider.LogEntry, error) {
	args := []string{"log", "--format=%H|%at|%an|%ae|%s|%P", "--reverse"}
	if allBranches {
		args = append(args, "--all")
	}
	if since > 0 {
		args = append(args, "--since="+strconv.FormatInt(since, 10))
	}
	if maxCommits > 0 {
		args = append(args, fmt.Sprintf("-n%d", maxCommits))
	}

	out, err := a.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return parseLog(string(out)), nil
}

func parseLog(output string) []provider.LogEntry {
	var entries []provider.LogEntry
	scanner := bufio.NewScanner(strings.NewReader(output))
	buf := make([]byte, 0, 1024*1024)
	scanner.Buffer(buf, 16*1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 6)
		if len(parts) < 6 {
			continue
		}
		ts, _ := strconv.ParseInt(parts[1], 10, 64)
		var parents []string
		if parts[5] != "" {
			parents = strings.Fields(parts[5])
		}
		entries = append(entries, provider.LogEntry{
			Hash:        parts[0],
			Timestamp:   ts,
			AuthorName:  parts[2],
			AuthorEmail: parts[3],
			Subject:     parts[4],
			Parents:     parents,
		})
	}
	return entries
}

// HeadCommit returns `git rev-parse HEAD`.
func (a *Adapter) HeadCommit(ctx context.Context) (string, error) {
	out, err := a.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// CurrentBranch returns `git branch --show-current`.
func (a *Adapter) CurrentBranch(ctx context.Context) (string, error) {
	out, err := a.run(ctx, "branch", "--show-current")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// BranchesContaining returns `git branch --contains <hash>`.
func (a *Adapter) BranchesContaining(ctx context.Context, hash string) ([]string, error) {
	out, err := a.run(ctx, "branch", "--contains", hash, "--format=%(refname:short)")
	if err != nil {
		return nil, err
	}
	var branches []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(line, "*"))
		line = strings.TrimSpace(line)
		if line != "" {
			branches = append(branches, line)
		}
	}
	return branches, nil
}

// LsTree returns `git ls-tree -r -l <commit>` entries: path and blob
// hash per tracked file, feeding the temporal blob scan.
func (a *Adapter) LsTree(ctx context.Context, commit string) ([]provider.TreeEntry, error) {
	out, err := a.run(ctx, "ls-tree", "-r", "-l", commit)
	if err != nil {
		return nil, err
	}

	var entries []provider.TreeEntry
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		// "<mode> <type> <hash> <size>\t<path>"
		tabIdx := strings.IndexByte(line, '\t')
		if tabIdx < 0 {
			continue
		}
		meta := strings.Fields(line[:tabIdx])
		if len(meta) < 4 {
			continue
		}
		size, _ := strconv.ParseInt(meta[3], 10, 64)
		entries = append(entries, provider.TreeEntry{
			Path:     line[tabIdx+1:],
			BlobHash: meta[2],
			Size:     size,
		})
	}
	return entries, nil
}

// CatFileBlob reads a blob's content by hash.
func (a *Adapter) CatFileBlob(ctx context.Context, hash string) ([]byte, error) {
	return a.run(ctx, "cat-file", "blob", hash)
}

// Show reconstructs a file's content at revision:path.
func (a *Adapter) Show(ctx context.Context, revision, path string) ([]byte, error) {
	return a.run(ctx, "show", fmt.Sprintf("%s:%s", revision, path))
}

// DiffTree returns the per-file changes introduced by a commit via
// `git diff-tree -p --no-commit-id -r -M <hash>`; binary files are
// detected from the patch's "Binary files ... differ" lines.
func (a *Adapter) DiffTree(ctx context.Context, commit string) ([]provider.DiffEntry, error) {
	out, err := a.run(ctx, "diff-tree", "-p", "--no-commit-id", "-r", "-M", commit)
	if err != nil {
		return nil, err
	}
	return parseDiffTree(string(out)), nil
}
