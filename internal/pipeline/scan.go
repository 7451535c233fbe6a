package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spetr/codeindexer/builtin/chunking/simple"
	"github.com/spetr/codeindexer/internal/config"
	"github.com/spetr/codeindexer/pkg/types"
)

// scanFiles discovers candidate source files under projectDir, preferring
// `git ls-files` (so ignored/untracked-but-ignored files are skipped for
// free) and falling back to a filesystem walk, per include/exclude globs.
func scanFiles(ctx context.Context, projectDir string, idx config.IndexConfig, limits config.LimitsConfig) ([]*types.SourceFile, error) {
	if idx.UseGitIgnore {
		if files, err := scanWithGit(ctx, projectDir, idx, limits); err == nil && len(files) > 0 {
			return files, nil
		}
	}
	return scanWithWalk(ctx, projectDir, idx, limits)
}

func scanWithWalk(ctx context.Context, projectDir string, idx config.IndexConfig, limits config.LimitsConfig) ([]*types.SourceFile, error) {
	var files []*types.SourceFile

	err := filepath.WalkDir(projectDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		relPath, _ := filepath.Rel(projectDir, path)

		if d.IsDir() {
			for _, pattern := range idx.Exclude {
				if matchGlob(pattern, relPath+"/") {
					return filepath.SkipDir
				}
			}
			return nil
		}

		if !includedPath(relPath, idx) {
			return nil
		}

		file, err := readSourceFile(path, limits.MaxFileSize)
		if err != nil {
			return nil
		}
		file.Path = relPath
		files = append(files, file)

		if limits.MaxFiles > 0 && len(files) >= limits.MaxFiles {
			return fmt.Errorf("max files limit reached: %d", limits.MaxFiles)
		}
		return nil
	})
	return files, err
}

func scanWithGit(ctx context.Context, projectDir string, idx config.IndexConfig, limits config.LimitsConfig) ([]*types.SourceFile, error) {
	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = projectDir

	out, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	var files []*types.SourceFile
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !includedPath(line, idx) {
			continue
		}

		file, err := readSourceFile(filepath.Join(projectDir, line), limits.MaxFileSize)
		if err != nil {
			continue
		}
		file.Path = line
		files = append(files, file)

		if limits.MaxFiles > 0 && len(files) >= limits.MaxFiles {
			break
		}
	}
	return files, nil
}

func includedPath(relPath string, idx config.IndexConfig) bool {
	included := false
	for _, pattern := range idx.Include {
		if matchGlob(pattern, relPath) {
			included = true
			break
		}
	}
	if !included {
		return false
	}
	for _, pattern := range idx.Exclude {
		if matchGlob(pattern, relPath) {
			return false
		}
	}
	return true
}

func readSourceFile(path, maxSize string) (*types.SourceFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if limit := parseSize(maxSize); limit > 0 && info.Size() > limit {
		return nil, fmt.Errorf("file too large: %d > %d", info.Size(), limit)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	file := &types.SourceFile{
		Path:     path,
		Content:  content,
		Language: simple.DetectLanguage(path),
	}
	file.ComputeHash()
	return file, nil
}

// MatchGlob exposes matchGlob to other packages (internal/watch reuses
// the same include/exclude matching the scanner applies here, so a
// watched file and a scanned file are never filtered inconsistently).
func MatchGlob(pattern, path string) bool {
	return matchGlob(pattern, path)
}

// matchGlob matches a `**`-aware glob pattern against a slash-separated
// relative path.
func matchGlob(pattern, path string) bool {
	if strings.Contains(pattern, "**") {
		parts := strings.Split(pattern, "**")
		if len(parts) == 3 && parts[0] == "" && parts[2] == "" {
			// "**/dir/**": dir appears as a whole path segment anywhere.
			mid := strings.Trim(parts[1], "/")
			return strings.HasPrefix(path, mid+"/") || strings.Contains(path, "/"+mid+"/")
		}
		if len(parts) == 2 {
			prefix := strings.TrimSuffix(parts[0], "/")
			suffix := strings.TrimPrefix(parts[1], "/")

			if prefix != "" && !strings.HasPrefix(path, prefix) {
				return false
			}
			if suffix == "" {
				return true
			}
			if strings.Contains(suffix, "*") {
				base := filepath.Base(path)
				if matched, _ := filepath.Match(suffix, base); matched {
					return true
				}
				remaining := path
				if prefix != "" {
					remaining = strings.TrimPrefix(path, prefix)
					remaining = strings.TrimPrefix(remaining, "/")
				}
				matched, _ := filepath.Match(suffix, remaining)
				return matched
			}
			return strings.HasSuffix(path, suffix) || strings.Contains(path, suffix)
		}
	}

	matched, _ := filepath.Match(pattern, path)
	if matched {
		return true
	}
	return matched
}

// parseSize parses a human size string ("1MB", "512KB") into bytes.
// Returns 0 (no limit) if s is empty or unparsable.
func parseSize(s string) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0
	}

	multiplier := int64(1)
	switch {
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		s = strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		s = strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		s = strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "B"):
		s = strings.TrimSuffix(s, "B")
	}

	var value int64
	if _, err := fmt.Sscanf(s, "%d", &value); err != nil {
		return 0
	}
	return value * multiplier
}
