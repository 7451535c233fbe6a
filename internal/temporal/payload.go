package temporal

import (
	"fmt"
	"time"

	"github.com/spetr/codeindexer/builtin/chunking/simple"
	"github.com/spetr/codeindexer/pkg/pointid"
	"github.com/spetr/codeindexer/pkg/types"
)

// chunkEntry is one to-be-embedded unit produced by either a file diff
// or a commit message, carrying enough context to build its Point once
// the embedding returns.
type chunkEntry struct {
	text       string
	pointID    string
	chunkIndex int

	// diff-specific; zero values for commit-message entries.
	filePath         string
	diffType         types.DiffType
	parentCommitHash string
	isMessage        bool
}

// statusToDiffType maps a `git diff-tree` status letter to the
// DiffType enum.
func statusToDiffType(status string, isBinary bool) types.DiffType {
	if isBinary {
		return types.DiffBinary
	}
	switch status {
	case "A":
		return types.DiffAdded
	case "D":
		return types.DiffDeleted
	case "R", "C":
		return types.DiffRenamed
	default:
		return types.DiffModified
	}
}

// diffChunkEntries chunks one diff's body and tags every resulting
// chunk with its point id and diff metadata.
func diffChunkEntries(commit types.Commit, diff diffInfo, chunker chunkerFunc, projectID string) ([]chunkEntry, error) {
	chunks, err := chunker(diff.Body, simple.DetectLanguage(diff.Path))
	if err != nil {
		return nil, fmt.Errorf("temporal: chunk diff %s@%s: %w", diff.Path, commit.ShortHash(), err)
	}

	entries := make([]chunkEntry, len(chunks))
	for i, c := range chunks {
		entries[i] = chunkEntry{
			text:             c.Text,
			pointID:          pointid.Diff(projectID, commit.Hash, diff.Path, c.ChunkIndex),
			chunkIndex:       c.ChunkIndex,
			filePath:         diff.Path,
			diffType:         diff.Type,
			parentCommitHash: diff.ParentCommitHash,
		}
	}
	return entries, nil
}

// commitMessageChunkEntries produces exactly one chunk stream for
// commit.Message: the chunker decides how many chunks that becomes,
// and the text reaches it untruncated. commit.Message holds only the
// subject line (git log's %s), so the message body is not indexed.
func commitMessageChunkEntries(commit types.Commit, chunker chunkerFunc, projectID string) ([]chunkEntry, error) {
	if commit.Message == "" {
		return nil, nil
	}
	chunks, err := chunker(commit.Message, "")
	if err != nil {
		return nil, fmt.Errorf("temporal: chunk commit message %s: %w", commit.ShortHash(), err)
	}

	entries := make([]chunkEntry, len(chunks))
	for i, c := range chunks {
		entries[i] = chunkEntry{
			text:       c.Text,
			pointID:    pointid.CommitMessage(projectID, commit.Hash, c.ChunkIndex),
			chunkIndex: c.ChunkIndex,
			isMessage:  true,
		}
	}
	return entries, nil
}

// chunkerFunc adapts provider.Chunker.ChunkText to a plain function so
// diff/message chunking share one code path.
type chunkerFunc func(text, language string) ([]*types.Chunk, error)

// diffInfo is the subset of provider.DiffEntry plus resolved parent
// hash the payload builder needs.
type diffInfo struct {
	Path             string
	Type             types.DiffType
	Body             string
	ParentCommitHash string
}

// buildTemporalPoints turns a commit's chunk entries and their
// embeddings (in the same order) into Points, per the payload schema
// and the added/deleted/modified construction rules.
func buildTemporalPoints(commit types.Commit, entries []chunkEntry, embeddings [][]float32, projectID string, totalByFile map[string]int, totalMessage int) ([]*types.Point, error) {
	if len(embeddings) != len(entries) {
		return nil, fmt.Errorf("temporal: chunk/embedding count mismatch for %s: %d entries, %d embeddings", commit.ShortHash(), len(entries), len(embeddings))
	}

	now := time.Now().UTC()
	commitDate := time.Unix(commit.Timestamp, 0).UTC().Format("2006-01-02")
	points := make([]*types.Point, len(entries))

	for i, e := range entries {
		payload := &types.Payload{
			PointID:          e.pointID,
			ChunkIndex:       e.chunkIndex,
			IndexedTimestamp: now.Unix(),
			IndexedAt:        now.Format(time.RFC3339),
			ProjectID:        projectID,
			GitAvailable:     true,
			GitCommitHash:    commit.Hash,
			CommitHash:       commit.Hash,
			CommitTimestamp:  commit.Timestamp,
			CommitDate:       commitDate,
			CommitMessage:    commit.Message,
			AuthorName:       commit.AuthorName,
			AuthorEmail:      commit.AuthorEmail,
		}

		if e.isMessage {
			payload.Type = types.PointTypeCommitMessage
			payload.TotalChunks = totalMessage
			payload.UniqueKey = fmt.Sprintf("%s:message:%d", commit.Hash, e.chunkIndex)
			payload.ChunkText = e.text
		} else {
			payload.Type = types.PointTypeCommitDiff
			payload.Path = e.filePath
			payload.FilePath = e.filePath
			payload.Language = simple.DetectLanguage(e.filePath)
			payload.DiffType = string(e.diffType)
			payload.TotalChunks = totalByFile[e.filePath]
			payload.UniqueKey = fmt.Sprintf("%s:%s:%d", commit.Hash, e.filePath, e.chunkIndex)

			switch e.diffType {
			case types.DiffAdded:
				payload.ReconstructFromGit = true
			case types.DiffDeleted:
				payload.ReconstructFromGit = true
				payload.ParentCommitHash = e.parentCommitHash
			default:
				payload.ChunkText = e.text
			}
		}

		points[i] = &types.Point{ID: e.pointID, Vector: embeddings[i], Payload: payload}
	}
	return points, nil
}
