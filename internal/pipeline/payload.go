package pipeline

import (
	"fmt"
	"time"

	"github.com/spetr/codeindexer/pkg/pointid"
	"github.com/spetr/codeindexer/pkg/types"
)

// buildPoints turns one file's chunks and their embeddings into Points
// ready for a single batched upsert.
func buildPoints(file *types.SourceFile, chunks []*types.Chunk, embeddings [][]float32, ctx fileContext) ([]*types.Point, error) {
	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("pipeline: chunk/embedding count mismatch for %s: %d chunks, %d embeddings", file.Path, len(chunks), len(embeddings))
	}

	now := time.Now().UTC()
	points := make([]*types.Point, len(chunks))

	for i, c := range chunks {
		id := pointid.Live(ctx.projectID, ctx.signature, c.ChunkIndex)
		payload := &types.Payload{
			Path:             file.Path,
			ChunkIndex:       c.ChunkIndex,
			TotalChunks:      len(chunks),
			PointID:          id,
			UniqueKey:        fmt.Sprintf("%s:%d", file.Path, c.ChunkIndex),
			Content:          c.Text,
			Language:         file.Language,
			FileSize:         int64(len(file.Content)),
			IndexedTimestamp: now.Unix(),
			IndexedAt:        now.Format(time.RFC3339),
			ProjectID:        ctx.projectID,
			FileHash:         file.Hash,
			GitAvailable:     ctx.gitAvailable,
			GitCommitHash:    ctx.commitHash,
			GitBranch:        ctx.branch,
			GitBlobHash:      ctx.blobHash,
			Type:             types.PointTypeContent,
		}

		points[i] = &types.Point{
			ID:      id,
			Vector:  embeddings[i],
			Payload: payload,
		}
	}
	return points, nil
}

// fileContext carries the per-run git provenance fields shared by every
// point built for a given file.
type fileContext struct {
	projectID    string
	signature    string // git blob hash if tracked, else file.Hash
	gitAvailable bool
	commitHash   string
	branch       string
	blobHash     string
}
