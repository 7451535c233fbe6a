package provider

import (
	"context"

	"github.com/spetr/codeindexer/pkg/types"
)

// Filter is the uniform filter tree compiled by the filter builder:
// {must, must_not, should?}, each a list of Conditions.
type Filter struct {
	Must    []Condition `json:"must,omitempty"`
	MustNot []Condition `json:"must_not,omitempty"`
	Should  []Condition `json:"should,omitempty"`
}

// IsEmpty reports whether the filter has no conditions at all.
func (f *Filter) IsEmpty() bool {
	return f == nil || (len(f.Must) == 0 && len(f.MustNot) == 0 && len(f.Should) == 0)
}

// Condition is one filter leaf: a payload key matched either by exact
// value or by text (substring/glob, store-specific).
type Condition struct {
	Key   string `json:"key"`
	Match Match  `json:"match"`
}

// Match holds exactly one of Value or Text, mirroring the payload
// match variants the store's query language supports.
type Match struct {
	Value string `json:"value,omitempty"`
	Text  string `json:"text,omitempty"`
}

// SearchQuery is a vector-store search request.
type SearchQuery struct {
	Collection   string
	QueryVector  []float32
	Filter       *Filter
	Limit        int
	ReturnTiming bool
}

// RawResult is one vector-store search hit before any post-filtering.
type RawResult struct {
	ID      string
	Score   float32
	Payload *types.Payload
}

// VectorStore is the opaque ANN index with payloads and filters;
// implementations are free to choose their own internal design. This
// is the contract the upsert path, the search path, and
// reconciliation all depend on.
type VectorStore interface {
	// CollectionExists reports whether a named collection has been created.
	CollectionExists(ctx context.Context, name string) (bool, error)

	// CreateCollection creates a collection with the given vector dimension.
	CreateCollection(ctx context.Context, name string, dim int) error

	// UpsertPoints writes points into a collection in one call.
	UpsertPoints(ctx context.Context, collection string, points []*types.Point) error

	// Search runs an ANN query against a collection, applying Filter
	// store-side where possible.
	Search(ctx context.Context, q SearchQuery) ([]RawResult, error)

	// ScrollPoints walks a collection's points matching filter, in
	// pages, for reconciliation and maintenance use.
	ScrollPoints(ctx context.Context, collection string, filter *Filter, limit int, cursor string) ([]RawResult, string, error)

	// BeginIndexing/EndIndexing bracket a bulk write; EndIndexing
	// rebuilds secondary indexes (HNSW, id-index) unconditionally.
	BeginIndexing(ctx context.Context, collection string) error
	EndIndexing(ctx context.Context, collection string) error

	// BasePath returns the on-disk root the store persists collections
	// under, used by reconciliation to locate sidecar files.
	BasePath() string

	// Close releases resources and connections.
	Close() error
}

// VectorStoreConfig contains configuration for vector stores.
type VectorStoreConfig struct {
	Provider string // "sqlitevec"
	Path     string // Path to database file / directory root
}
