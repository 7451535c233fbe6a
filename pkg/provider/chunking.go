package provider

import (
	"github.com/spetr/codeindexer/pkg/types"
)

// Chunker splits source text into chunks. Implementations are free to
// choose their own internal splitting strategy; this is the contract
// they must satisfy: yield `{text, char_start, char_end, line_start,
// line_end}` records with contiguous chunk_index within each (source,
// commit) pair.
type Chunker interface {
	// Name returns the chunker name (e.g., "simple").
	Name() string

	// ChunkFile splits a source file's content into chunks.
	ChunkFile(file *types.SourceFile) ([]*types.Chunk, error)

	// ChunkText splits arbitrary text (a diff body, a commit message)
	// into chunks. language may be empty.
	ChunkText(text, language string) ([]*types.Chunk, error)

	// Close releases any resources.
	Close() error
}

// ChunkingConfig contains configuration for chunking strategies.
type ChunkingConfig struct {
	Strategy     string // "simple"
	MaxChunkSize int    // max characters per chunk
	Overlap      int    // characters of overlap between adjacent chunks
}

// LanguageDetector detects the programming language of a file.
type LanguageDetector interface {
	// DetectLanguage returns the language for a file path.
	// Returns empty string if unknown.
	DetectLanguage(filePath string) string
}
