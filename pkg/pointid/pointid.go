// Package pointid computes the deterministic point identifiers used
// by both the live file pipeline and the temporal indexer, per the
// data model's Point entity.
package pointid

import (
	"fmt"

	"github.com/google/uuid"
)

// Live returns the id for a live file-content point: a UUIDv5 of the
// DNS namespace over "project_id:signature:chunk_index", where
// signature is the git blob hash if tracked, else a content hash.
func Live(projectID, signature string, chunkIndex int) string {
	name := fmt.Sprintf("%s:%s:%d", projectID, signature, chunkIndex)
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(name)).String()
}

// Diff returns the id for a temporal diff-chunk point.
func Diff(projectID, commitHash, filePath string, chunkIndex int) string {
	return fmt.Sprintf("%s:diff:%s:%s:%d", projectID, commitHash, filePath, chunkIndex)
}

// CommitMessage returns the id for a temporal commit-message chunk point.
func CommitMessage(projectID, commitHash string, chunkIndex int) string {
	return fmt.Sprintf("%s:commit:%s:%d", projectID, commitHash, chunkIndex)
}
