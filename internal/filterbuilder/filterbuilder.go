// Package filterbuilder composes vector-store filter trees from
// language/path/exclude inputs, grounded directly on the original
// path_filter_builder.py's normalization and validation rules.
package filterbuilder

import (
	"fmt"
	"strings"

	"github.com/spetr/codeindexer/pkg/provider"
)

// NormalizePathPattern normalizes backslashes to forward slashes, the
// same transform the original path filter builder applies before
// compiling a pattern into a condition.
func NormalizePathPattern(pattern string) string {
	return strings.ReplaceAll(pattern, "\\", "/")
}

// Builder accumulates must/must_not/should conditions and renders a
// provider.Filter.
type Builder struct {
	must    []provider.Condition
	mustNot []provider.Condition
	should  []provider.Condition
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{}
}

// IncludeLanguage adds a must condition matching the file extension.
func (b *Builder) IncludeLanguage(ext string) *Builder {
	if ext == "" {
		return b
	}
	b.must = append(b.must, provider.Condition{Key: "language", Match: provider.Match{Value: ext}})
	return b
}

// ExcludeLanguage adds a must_not condition matching the extension.
func (b *Builder) ExcludeLanguage(ext string) *Builder {
	if ext == "" {
		return b
	}
	b.mustNot = append(b.mustNot, provider.Condition{Key: "language", Match: provider.Match{Value: ext}})
	return b
}

// IncludeAnyLanguage adds should conditions matching any of exts,
// composing a file_extensions filter as an OR rather than
// IncludeLanguage's AND.
func (b *Builder) IncludeAnyLanguage(exts []string) *Builder {
	for _, ext := range exts {
		if ext == "" {
			continue
		}
		b.should = append(b.should, provider.Condition{Key: "language", Match: provider.Match{Value: ext}})
	}
	return b
}

// IncludePath adds a must condition matching a path glob.
func (b *Builder) IncludePath(pattern string) *Builder {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return b
	}
	b.must = append(b.must, provider.Condition{Key: "path", Match: provider.Match{Text: pattern}})
	return b
}

// ExcludePath adds a must_not condition matching a normalized path
// glob. Empty or whitespace-only patterns are dropped, matching the
// original build_exclusion_filter behavior exactly.
func (b *Builder) ExcludePath(pattern string) *Builder {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return b
	}
	normalized := NormalizePathPattern(pattern)
	b.mustNot = append(b.mustNot, provider.Condition{Key: "path", Match: provider.Match{Text: normalized}})
	return b
}

// ExcludePaths applies ExcludePath to every pattern, in order.
func (b *Builder) ExcludePaths(patterns []string) *Builder {
	for _, p := range patterns {
		b.ExcludePath(p)
	}
	return b
}

// Build renders the accumulated conditions into a filter tree. Returns
// nil if no condition was ever added, mirroring the original's `{}`
// (no-op filter) return for an all-empty input.
func (b *Builder) Build() *provider.Filter {
	if len(b.must) == 0 && len(b.mustNot) == 0 && len(b.should) == 0 {
		return nil
	}
	return &provider.Filter{Must: b.must, MustNot: b.mustNot, Should: b.should}
}

// BuildExclusionFilter is the original's standalone
// build_exclusion_filter(patterns): a must_not-only filter over
// normalized, non-empty path patterns.
func BuildExclusionFilter(patterns []string) *provider.Filter {
	return New().ExcludePaths(patterns).Build()
}

// Validate checks that every condition in f has a key and exactly one
// of Match.Value / Match.Text set. The top-level must/must_not/should
// shape is fixed by the provider.Filter type and needs no check here.
func Validate(f *provider.Filter) error {
	if f == nil {
		return nil
	}
	for _, group := range [][]provider.Condition{f.Must, f.MustNot, f.Should} {
		for _, c := range group {
			if c.Key == "" {
				return fmt.Errorf("filterbuilder: condition missing key: %+v", c)
			}
			if c.Match.Value == "" && c.Match.Text == "" {
				return fmt.Errorf("filterbuilder: condition %q missing match.value or match.text", c.Key)
			}
			if c.Match.Value != "" && c.Match.Text != "" {
				return fmt.Errorf("filterbuilder: condition %q sets both match.value and match.text", c.Key)
			}
		}
	}
	return nil
}
