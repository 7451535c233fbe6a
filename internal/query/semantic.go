package query

import (
	"context"

	"github.com/spetr/codeindexer/pkg/provider"
	"github.com/spetr/codeindexer/pkg/types"
)

// SemanticParams is a non-temporal query against the live collection.
type SemanticParams struct {
	Collection string
	QueryText  string
	Limit      int
	MinScore   float32
	Filters    Filters
}

// QuerySemantic runs a plain similarity search over the live
// collection, the path the coordinator delegates to for non-temporal
// queries.
func (s *Service) QuerySemantic(ctx context.Context, p SemanticParams) ([]Result, error) {
	collection := p.Collection
	if collection == "" {
		collection = "live"
	}

	vectors, err := s.Embedding.Embed(ctx, []string{p.QueryText})
	if err != nil {
		return nil, types.NewKindError(types.KindTransientProviderError, err)
	}
	if len(vectors) != 1 {
		return nil, types.NewKindError(types.KindInvariantViolation, types.ErrInvariantViolation)
	}

	limit := p.Limit
	if limit <= 0 {
		limit = 10
	}

	raw, err := s.Store.Search(ctx, provider.SearchQuery{
		Collection:  collection,
		QueryVector: vectors[0],
		Filter:      buildBaseFilter(p.Filters),
		Limit:       limit,
	})
	if err != nil {
		return nil, types.NewKindError(types.KindIOError, err)
	}

	results := make([]Result, 0, len(raw))
	for _, r := range raw {
		if r.Score < p.MinScore {
			continue
		}
		path := ""
		content := ""
		if r.Payload != nil {
			path = r.Payload.EffectivePath()
			content = r.Payload.Content
		}
		results = append(results, Result{
			ID:      r.ID,
			Score:   r.Score,
			Path:    path,
			Content: content,
			Payload: r.Payload,
		})
	}
	return results, nil
}
