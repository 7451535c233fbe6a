package query

import (
	"github.com/spetr/codeindexer/internal/filterbuilder"
	"github.com/spetr/codeindexer/pkg/provider"
)

// buildBaseFilter compiles f into the store-level filter the vector
// store's query path supports: language/path only. diff-type, author,
// and chunk-type are post-filters applied after the over-fetch, not
// here.
func buildBaseFilter(f Filters) *provider.Filter {
	b := filterbuilder.New().
		IncludeLanguage(f.Language).
		ExcludeLanguage(f.ExcludeLanguage).
		IncludePath(f.PathFilter).
		ExcludePath(f.ExcludePath).
		IncludeAnyLanguage(f.FileExtensions)
	return b.Build()
}
