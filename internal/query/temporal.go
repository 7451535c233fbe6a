package query

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spetr/codeindexer/pkg/provider"
	"github.com/spetr/codeindexer/pkg/types"
)

const dateLayout = "2006-01-02"

// Service holds the dependencies the temporal and semantic search
// paths both need: the vector store, an embedding provider to turn
// query text into a vector, and a git adapter for on-demand content
// reconstruction.
type Service struct {
	Store     provider.VectorStore
	Embedding provider.EmbeddingProvider
	Git       provider.GitAdapter
}

// NewService constructs a Service.
func NewService(store provider.VectorStore, embedding provider.EmbeddingProvider, git provider.GitAdapter) *Service {
	return &Service{Store: store, Embedding: embedding, Git: git}
}

// TemporalParams is one query_temporal request.
type TemporalParams struct {
	Collection string
	QueryText  string
	StartDate  string // YYYY-MM-DD
	EndDate    string // YYYY-MM-DD
	DiffTypes  []string
	Author     string
	ChunkType  string
	Limit      int
	MinScore   float32
	Filters    Filters
}

// TemporalResult is the temporal search response envelope.
type TemporalResult struct {
	Results     []Result
	Query       string
	FilterType  string
	FilterValue [2]string
	TotalFound  int
	Performance Performance
	Warning     string
}

// overfetchMultiplier returns the size-calibrated over-fetch factor
// for a requested limit.
func overfetchMultiplier(limit int) int {
	switch {
	case limit <= 5:
		return 20
	case limit <= 10:
		return 15
	case limit <= 20:
		return 10
	default:
		return 5
	}
}

// QueryTemporal fuses semantic vector search over the temporal
// collection with time-range/author/diff-type/chunk-type post-filters
// and on-demand git content reconstruction.
func (s *Service) QueryTemporal(ctx context.Context, p TemporalParams) (*TemporalResult, error) {
	start := time.Now()

	startTS, endTS, err := parseDateRange(p.StartDate, p.EndDate)
	if err != nil {
		return nil, types.NewKindError(types.KindInputInvalid, err)
	}

	collection := p.Collection
	if collection == "" {
		collection = "temporal"
	}
	exists, err := s.Store.CollectionExists(ctx, collection)
	if err != nil {
		return nil, types.NewKindError(types.KindIOError, err)
	}
	if !exists {
		return &TemporalResult{
			Query:       p.QueryText,
			FilterType:  "time_range",
			FilterValue: [2]string{p.StartDate, p.EndDate},
			Warning:     "Temporal index not available",
		}, nil
	}

	filter := buildBaseFilter(p.Filters)

	semanticStart := time.Now()
	vectors, err := s.Embedding.Embed(ctx, []string{p.QueryText})
	if err != nil {
		return nil, types.NewKindError(types.KindTransientProviderError, err)
	}
	if len(vectors) != 1 {
		return nil, types.NewKindError(types.KindInvariantViolation, fmt.Errorf("expected 1 query embedding, got %d", len(vectors)))
	}

	limit := p.Limit
	if limit <= 0 {
		limit = 10
	}
	overfetchLimit := limit * overfetchMultiplier(limit)

	raw, err := s.Store.Search(ctx, provider.SearchQuery{
		Collection:  collection,
		QueryVector: vectors[0],
		Filter:      filter,
		Limit:       overfetchLimit,
	})
	if err != nil {
		return nil, types.NewKindError(types.KindIOError, err)
	}
	semanticMs := time.Since(semanticStart).Milliseconds()

	temporalStart := time.Now()
	survivors := make([]provider.RawResult, 0, len(raw))
	for _, r := range raw {
		if r.Payload == nil || r.Payload.CommitTimestamp < startTS || r.Payload.CommitTimestamp > endTS {
			continue
		}
		survivors = append(survivors, r)
	}
	survivors = applyPostFilters(survivors, p)
	temporalMs := time.Since(temporalStart).Milliseconds()

	totalFound := len(survivors)

	sort.SliceStable(survivors, func(i, j int) bool {
		return survivors[i].Payload.CommitTimestamp > survivors[j].Payload.CommitTimestamp
	})
	if len(survivors) > limit {
		survivors = survivors[:limit]
	}

	blobStart := time.Now()
	results := make([]Result, len(survivors))
	for i, r := range survivors {
		content, err := s.reconstructContent(ctx, r.Payload)
		if err != nil {
			return nil, err
		}
		results[i] = Result{
			ID:      r.ID,
			Score:   r.Score,
			Path:    r.Payload.EffectivePath(),
			Content: content,
			Payload: r.Payload,
		}
	}
	blobMs := time.Since(blobStart).Milliseconds()

	return &TemporalResult{
		Results:     results,
		Query:       p.QueryText,
		FilterType:  "time_range",
		FilterValue: [2]string{p.StartDate, p.EndDate},
		TotalFound:  totalFound,
		Performance: Performance{
			SemanticSearchMs: semanticMs,
			TemporalFilterMs: temporalMs,
			BlobFetchMs:      blobMs,
			TotalMs:          time.Since(start).Milliseconds(),
		},
	}, nil
}

// parseDateRange validates the strict YYYY-MM-DD..YYYY-MM-DD shape
// (zero-padded, end >= start) and returns the inclusive unix-second
// bounds, with end_ts set to the end date's end-of-day.
func parseDateRange(startDate, endDate string) (int64, int64, error) {
	start, err := time.Parse(dateLayout, startDate)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid start date %q: %w", startDate, err)
	}
	end, err := time.Parse(dateLayout, endDate)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid end date %q: %w", endDate, err)
	}
	if end.Before(start) {
		return 0, 0, fmt.Errorf("end date %q is before start date %q", endDate, startDate)
	}
	endOfDay := end.Add(23*time.Hour + 59*time.Minute + 59*time.Second)
	return start.Unix(), endOfDay.Unix(), nil
}

// applyPostFilters applies min_score, diff_types, author, and
// chunk_type, in that order.
func applyPostFilters(in []provider.RawResult, p TemporalParams) []provider.RawResult {
	out := in[:0]
	for _, r := range in {
		if r.Score < p.MinScore {
			continue
		}
		if len(p.DiffTypes) > 0 && !containsString(p.DiffTypes, r.Payload.DiffType) {
			continue
		}
		if p.Author != "" && !authorMatches(r.Payload, p.Author) {
			continue
		}
		if p.ChunkType != "" && string(r.Payload.Type) != p.ChunkType {
			continue
		}
		out = append(out, r)
	}
	return out
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func authorMatches(p *types.Payload, needle string) bool {
	needle = strings.ToLower(needle)
	return strings.Contains(strings.ToLower(p.AuthorName), needle) ||
		strings.Contains(strings.ToLower(p.AuthorEmail), needle)
}

// reconstructContent resolves display content for one survivor. Git
// I/O failures downgrade to a placeholder string rather than
// propagating as errors.
func (s *Service) reconstructContent(ctx context.Context, p *types.Payload) (string, error) {
	if p.DiffType == string(types.DiffBinary) && p.ChunkText == "" {
		return fmt.Sprintf("[Binary file - %s]", strings.TrimPrefix(filepath.Ext(p.EffectivePath()), ".")), nil
	}

	if !p.ReconstructFromGit {
		if p.ChunkText == "" {
			return "", types.NewKindError(types.KindInvariantViolation, fmt.Errorf("optimization contract violated: missing chunk_text for point %s", p.PointID))
		}
		return p.ChunkText, nil
	}

	switch p.DiffType {
	case string(types.DiffDeleted):
		if p.ParentCommitHash == "" {
			return "[Content unavailable - parent commit not tracked]", nil
		}
		data, err := s.Git.Show(ctx, p.ParentCommitHash, p.EffectivePath())
		if err != nil {
			return "[Content unavailable - parent commit not tracked]", nil
		}
		return string(data), nil
	default: // added
		data, err := s.Git.Show(ctx, p.CommitHash, p.EffectivePath())
		if err != nil {
			return "[Content unavailable - reconstruction failed]", nil
		}
		return string(data), nil
	}
}
