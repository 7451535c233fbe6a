package gitadapter

import (
	"regexp"
	"strings"

	"github.com/spetr/codeindexer/pkg/provider"
)

var (
	diffHeaderRegex = regexp.MustCompile(`^diff --git a/(.+) b/(.+)$`)
	newFileRegex    = regexp.MustCompile(`^new file mode`)
	deletedFileRegex = regexp.MustCompile(`^deleted file mode`)
	renameFromRegex = regexp.MustCompile(`^rename from (.+)$`)
	binaryFileRegex = regexp.MustCompile(`^Binary files `)
)

// parseDiffTree parses `git diff-tree -p --no-commit-id -r -M <hash>`
// output into one DiffEntry per touched file, grounded on the
// teacher's analysis.GitHistoryAnalyzer.parseChanges regex approach.
func parseDiffTree(diffOutput string) []provider.DiffEntry {
	var entries []provider.DiffEntry
	order := make([]string, 0)
	byPath := make(map[string]*provider.DiffEntry)

	currentPath := ""
	var body strings.Builder

	flush := func() {
		if currentPath == "" {
			return
		}
		if e, ok := byPath[currentPath]; ok {
			e.Body = body.String()
		}
	}

	for _, line := range strings.Split(diffOutput, "\n") {
		if matches := diffHeaderRegex.FindStringSubmatch(line); matches != nil {
			flush()

			currentPath = matches[2]
			body.Reset()

			if _, ok := byPath[currentPath]; !ok {
				e := provider.DiffEntry{Path: currentPath, Status: "M"}
				byPath[currentPath] = &e
				order = append(order, currentPath)
			}
			body.WriteString(line + "\n")
			continue
		}

		if currentPath == "" {
			continue
		}

		switch {
		case newFileRegex.MatchString(line):
			byPath[currentPath].Status = "A"
		case deletedFileRegex.MatchString(line):
			byPath[currentPath].Status = "D"
		case binaryFileRegex.MatchString(line):
			byPath[currentPath].IsBinary = true
		default:
			if m := renameFromRegex.FindStringSubmatch(line); m != nil {
				byPath[currentPath].Status = "R"
				byPath[currentPath].OldPath = m[1]
			}
		}

		body.WriteString(line + "\n")
	}
	flush()

	for _, p := range order {
		entries = append(entries, *byPath[p])
	}
	return entries
}
