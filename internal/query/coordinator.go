package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spetr/codeindexer/pkg/types"
)

// maxResultsPerQuery is the hard cap on results a single query can return.
const maxResultsPerQuery = 100

// Coordinator is the per-user, per-repo query dispatcher: it validates
// input, restricts the search scope to the caller's activated
// repositories, and delegates to the semantic or temporal search path.
type Coordinator struct {
	Service *Service
}

// NewCoordinator constructs a Coordinator over svc.
func NewCoordinator(svc *Service) *Coordinator {
	return &Coordinator{Service: svc}
}

// Request is one coordinator query. Repositories is the caller's
// already-resolved activation list; authentication and multi-tenant
// activation are out of this module's scope, so the coordinator only
// enforces the scope it is given.
type Request struct {
	QueryText    string
	Repositories []Repository
	Limit        int
	MinScore     *float32
	Filters      Filters

	Temporal  bool
	StartDate string
	EndDate   string
	DiffTypes []string
	Author    string
	ChunkType string
}

// Response is the coordinator's envelope: results plus dispatch
// metadata (execution_time_ms, repositories_searched).
type Response struct {
	Results              []Result
	ExecutionTimeMs      int64
	RepositoriesSearched int
	Warnings             []string
}

// Query validates req, searches every activated repository, and
// returns the merged, capped result set.
func (c *Coordinator) Query(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	if err := validate(req); err != nil {
		return nil, types.NewKindError(types.KindInputInvalid, err)
	}

	limit := req.Limit
	if limit > maxResultsPerQuery {
		limit = maxResultsPerQuery
	}

	filters := req.Filters
	if len(req.Filters.FileExtensions) > 0 {
		filters.FileExtensions = req.Filters.FileExtensions
	}

	var results []Result
	var warnings []string

	for _, repo := range req.Repositories {
		repoResults, warning, err := c.queryRepository(ctx, repo, req, filters, limit)
		if err != nil {
			return nil, err
		}
		if warning != "" {
			warnings = append(warnings, warning)
		}
		results = append(results, repoResults...)
	}

	for i := range results {
		if results[i].LineNumber == 0 {
			results[i].LineNumber = 1
		}
	}

	if len(results) > maxResultsPerQuery {
		results = results[:maxResultsPerQuery]
	}

	return &Response{
		Results:              results,
		ExecutionTimeMs:      time.Since(start).Milliseconds(),
		RepositoriesSearched: len(req.Repositories),
		Warnings:             warnings,
	}, nil
}

func (c *Coordinator) queryRepository(ctx context.Context, repo Repository, req Request, filters Filters, limit int) ([]Result, string, error) {
	minScore := float32(0)
	if req.MinScore != nil {
		minScore = *req.MinScore
	}

	if req.Temporal {
		res, err := c.Service.QueryTemporal(ctx, TemporalParams{
			Collection: repo.TemporalCollection,
			QueryText:  req.QueryText,
			StartDate:  req.StartDate,
			EndDate:    req.EndDate,
			DiffTypes:  req.DiffTypes,
			Author:     req.Author,
			ChunkType:  req.ChunkType,
			Limit:      limit,
			MinScore:   minScore,
			Filters:    filters,
		})
		if err != nil {
			return nil, "", err
		}
		return withRepositoryAlias(res.Results, repo.Alias), res.Warning, nil
	}

	res, err := c.Service.QuerySemantic(ctx, SemanticParams{
		Collection: repo.Collection,
		QueryText:  req.QueryText,
		Limit:      limit,
		MinScore:   minScore,
		Filters:    filters,
	})
	if err != nil {
		return nil, "", err
	}
	return withRepositoryAlias(res, repo.Alias), "", nil
}

func withRepositoryAlias(results []Result, alias string) []Result {
	for i := range results {
		results[i].RepositoryAlias = alias
	}
	return results
}

// validate enforces the coordinator's input checks: non-empty trimmed
// query text, a positive limit, and min_score in [0, 1] when set.
func validate(req Request) error {
	if strings.TrimSpace(req.QueryText) == "" {
		return fmt.Errorf("query text must not be empty")
	}
	if req.Limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", req.Limit)
	}
	if req.MinScore != nil && (*req.MinScore < 0.0 || *req.MinScore > 1.0) {
		return fmt.Errorf("min_score must be within [0.0, 1.0], got %v", *req.MinScore)
	}
	if req.Temporal && (req.StartDate == "" || req.EndDate == "") {
		return fmt.Errorf("temporal queries require both start and end dates")
	}
	return nil
}
