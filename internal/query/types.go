// Package query implements the temporal search service and the query
// coordinator: the read path that turns a natural-language query into
// scored, content-bearing results, fusing semantic vector search with
// time-range/author/chunk-type post-filtering and on-demand git
// content reconstruction.
package query

import "github.com/spetr/codeindexer/pkg/types"

// Repository is one of the caller's activated repositories. Per-user
// isolation works by listing only the user's activated repositories;
// authentication and activation themselves are out of scope here — the
// coordinator only restricts its search scope to whatever list the
// caller already resolved.
type Repository struct {
	Alias              string
	ProjectID          string
	Collection         string // live collection name
	TemporalCollection string
}

// Filters composes the language/path conditions shared by both the
// semantic and temporal search paths.
type Filters struct {
	Language        string
	ExcludeLanguage string
	PathFilter      string
	ExcludePath     string
	FileExtensions  []string // composed as an OR language filter
}

// Result is one scored, content-resolved hit, wrapped with the
// metadata the coordinator adds: a default line_number and the
// repository_alias it was found under.
type Result struct {
	ID              string
	Score           float32
	Path            string
	Content         string
	LineNumber      int
	RepositoryAlias string
	Payload         *types.Payload
}

// Performance reports the stage timings a temporal query accumulates.
type Performance struct {
	SemanticSearchMs int64
	TemporalFilterMs int64
	BlobFetchMs      int64
	TotalMs          int64
}
