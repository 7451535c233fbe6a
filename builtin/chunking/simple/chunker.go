// Package simple implements a line-based chunking strategy that works
// for any language without a parser.
package simple

import (
	"strings"

	"github.com/spetr/codeindexer/pkg/provider"
	"github.com/spetr/codeindexer/pkg/types"
)

// Default values.
const (
	DefaultMaxChunkSize = 2000 // chars
	DefaultOverlap      = 200  // chars
	DefaultMinChunkSize = 100  // minimum chars before a boundary is honored
)

// Config contains configuration for simple chunking.
type Config struct {
	MaxChunkSize int // maximum chunk size in characters
	Overlap      int // characters of trailing context carried into the next chunk
	MinChunkSize int // minimum chars before a blank-line or definition boundary splits
}

// Chunker implements line-based chunking with paragraph and
// definition-boundary heuristics.
type Chunker struct {
	config Config
}

// New creates a new simple chunker.
func New(cfg Config) *Chunker {
	if cfg.MaxChunkSize == 0 {
		cfg.MaxChunkSize = DefaultMaxChunkSize
	}
	if cfg.Overlap == 0 {
		cfg.Overlap = DefaultOverlap
	}
	if cfg.MinChunkSize == 0 {
		cfg.MinChunkSize = DefaultMinChunkSize
	}
	return &Chunker{config: cfg}
}

// Name returns the strategy name.
func (c *Chunker) Name() string {
	return "simple"
}

// ChunkFile splits a source file's content into chunks.
func (c *Chunker) ChunkFile(file *types.SourceFile) ([]*types.Chunk, error) {
	return c.chunk(string(file.Content), file.Language), nil
}

// ChunkText splits arbitrary text (a diff body or commit message) into
// chunks. language may be empty.
func (c *Chunker) ChunkText(text, language string) ([]*types.Chunk, error) {
	return c.chunk(text, language), nil
}

// Close releases resources. The simple chunker holds none.
func (c *Chunker) Close() error {
	return nil
}

type lineSpan struct {
	text      string
	charStart int
	charEnd   int
	lineNum   int
}

// chunk walks the text line by line, tracking character offsets, and
// splits on blank lines, definition boundaries, or the max size cap.
// Each chunk after the first carries c.config.Overlap characters of
// trailing context from the previous chunk.
func (c *Chunker) chunk(content, language string) []*types.Chunk {
	if content == "" {
		return nil
	}

	spans := splitLines(content)

	var chunks []*types.Chunk
	var cur []lineSpan
	var curChars int

	flush := func() {
		if len(cur) == 0 || curChars < c.config.MinChunkSize {
			return
		}
		chunks = append(chunks, spansToChunk(cur, len(chunks)))
	}

	for _, span := range spans {
		lineLen := len(span.text)

		shouldSplit := false
		if strings.TrimSpace(span.text) == "" && curChars > c.config.MinChunkSize {
			shouldSplit = true
		}
		if curChars+lineLen > c.config.MaxChunkSize && curChars > 0 {
			shouldSplit = true
		}
		if curChars > c.config.MinChunkSize && looksLikeDefinition(span.text, language) {
			shouldSplit = true
		}

		if shouldSplit {
			flush()
			cur = overlapTail(cur, c.config.Overlap)
			curChars = 0
			for _, s := range cur {
				curChars += len(s.text) + 1
			}
		}

		cur = append(cur, span)
		curChars += lineLen + 1
	}
	flush()

	if len(chunks) == 0 {
		chunks = append(chunks, spansToChunk(spans, 0))
	}

	return chunks
}

// overlapTail returns the trailing lines of cur whose combined length
// is closest to, without exceeding, overlap characters.
func overlapTail(cur []lineSpan, overlap int) []lineSpan {
	if overlap <= 0 || len(cur) == 0 {
		return nil
	}
	total := 0
	start := len(cur)
	for start > 0 {
		next := len(cur[start-1].text) + 1
		if total+next > overlap {
			break
		}
		total += next
		start--
	}
	tail := make([]lineSpan, len(cur)-start)
	copy(tail, cur[start:])
	return tail
}

func spansToChunk(spans []lineSpan, index int) *types.Chunk {
	if len(spans) == 0 {
		return &types.Chunk{ChunkIndex: index}
	}
	var b strings.Builder
	for i, s := range spans {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(s.text)
	}
	return &types.Chunk{
		Text:       b.String(),
		CharStart:  spans[0].charStart,
		CharEnd:    spans[len(spans)-1].charEnd,
		LineStart:  spans[0].lineNum,
		LineEnd:    spans[len(spans)-1].lineNum,
		ChunkIndex: index,
	}
}

// splitLines breaks content into lines, tracking the character offset
// range each line occupies in the original text (newline excluded).
func splitLines(content string) []lineSpan {
	var spans []lineSpan
	offset := 0
	lineNum := 1
	for {
		idx := strings.IndexByte(content[offset:], '\n')
		if idx < 0 {
			if offset < len(content) {
				spans = append(spans, lineSpan{
					text:      content[offset:],
					charStart: offset,
					charEnd:   len(content),
					lineNum:   lineNum,
				})
			}
			break
		}
		end := offset + idx
		spans = append(spans, lineSpan{
			text:      content[offset:end],
			charStart: offset,
			charEnd:   end,
			lineNum:   lineNum,
		})
		offset = end + 1
		lineNum++
	}
	return spans
}

// looksLikeDefinition checks if a line looks like a function/class
// definition, used as a chunk boundary heuristic.
func looksLikeDefinition(line, language string) bool {
	trimmed := strings.TrimSpace(line)

	switch language {
	case "go":
		return strings.HasPrefix(trimmed, "func ") ||
			strings.HasPrefix(trimmed, "type ")
	case "python":
		return strings.HasPrefix(trimmed, "def ") ||
			strings.HasPrefix(trimmed, "class ") ||
			strings.HasPrefix(trimmed, "async def ")
	case "javascript", "typescript", "jsx", "tsx":
		return strings.HasPrefix(trimmed, "function ") ||
			strings.HasPrefix(trimmed, "class ") ||
			strings.HasPrefix(trimmed, "export function ") ||
			strings.HasPrefix(trimmed, "export class ") ||
			strings.HasPrefix(trimmed, "export default function ") ||
			(strings.HasPrefix(trimmed, "const ") && strings.Contains(trimmed, "= function")) ||
			(strings.HasPrefix(trimmed, "const ") && strings.Contains(trimmed, "=>"))
	case "rust":
		return strings.HasPrefix(trimmed, "fn ") ||
			strings.HasPrefix(trimmed, "pub fn ") ||
			strings.HasPrefix(trimmed, "impl ") ||
			strings.HasPrefix(trimmed, "struct ") ||
			strings.HasPrefix(trimmed, "pub struct ") ||
			strings.HasPrefix(trimmed, "enum ") ||
			strings.HasPrefix(trimmed, "pub enum ")
	case "java":
		return strings.Contains(trimmed, "class ") ||
			strings.Contains(trimmed, "interface ") ||
			(strings.Contains(trimmed, "(") && strings.Contains(trimmed, "{") &&
				!strings.HasPrefix(trimmed, "if") &&
				!strings.HasPrefix(trimmed, "for") &&
				!strings.HasPrefix(trimmed, "while"))
	case "c", "cpp", "h":
		return strings.Contains(trimmed, "(") &&
			strings.HasSuffix(trimmed, "{") &&
			!strings.HasPrefix(trimmed, "if") &&
			!strings.HasPrefix(trimmed, "for") &&
			!strings.HasPrefix(trimmed, "while")
	}

	return false
}

// DetectLanguage detects language from file extension.
func DetectLanguage(path string) string {
	ext := strings.ToLower(extOf(path))
	base := strings.ToLower(baseOf(path))

	if base == "dockerfile" {
		return "dockerfile"
	}

	switch ext {
	case ".go":
		return "go"
	case ".py":
		return "python"
	case ".js":
		return "javascript"
	case ".ts":
		return "typescript"
	case ".jsx":
		return "jsx"
	case ".tsx":
		return "tsx"
	case ".rs":
		return "rust"
	case ".java":
		return "java"
	case ".c":
		return "c"
	case ".cpp", ".cc", ".cxx":
		return "cpp"
	case ".h", ".hpp":
		return "h"
	case ".rb":
		return "ruby"
	case ".php":
		return "php"
	case ".swift":
		return "swift"
	case ".kt", ".kts":
		return "kotlin"
	case ".scala", ".sc":
		return "scala"
	case ".cs":
		return "csharp"
	case ".lua":
		return "lua"
	case ".sql":
		return "sql"
	case ".dart":
		return "dart"
	case ".r":
		return "r"
	case ".ex", ".exs":
		return "elixir"
	case ".elm":
		return "elm"
	case ".groovy", ".gradle":
		return "groovy"
	case ".ml", ".mli":
		return "ocaml"
	case ".html", ".htm", ".xhtml":
		return "html"
	case ".css":
		return "css"
	case ".svelte":
		return "svelte"
	case ".md", ".markdown":
		return "markdown"
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	case ".toml":
		return "toml"
	case ".proto":
		return "proto"
	case ".sh", ".bash":
		return "bash"
	case ".ps1", ".psm1", ".psd1":
		return "powershell"
	case ".tf", ".hcl":
		return "hcl"
	case ".hs":
		return "haskell"
	case ".erl":
		return "erlang"
	case ".pl", ".pm":
		return "perl"
	case ".jl":
		return "julia"
	default:
		return "text"
	}
}

func extOf(path string) string {
	for i := len(path) - 1; i >= 0 && path[i] != '/'; i-- {
		if path[i] == '.' {
			return path[i:]
		}
	}
	return ""
}

func baseOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}

// Ensure Chunker implements the Chunker interface.
var _ provider.Chunker = (*Chunker)(nil)
