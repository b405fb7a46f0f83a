package db

import "github.com/kura-media/clipdex/internal/domain/search/filter"

// KNNQuery describes a vector similarity probe against one vector field.
type KNNQuery struct {
	IndexName string
	// Field is the index attribute alias of the vector column to probe
	// (summary_embedding, keyword_embedding, thumbnail_N_embedding).
	Field   string
	Vector  []float32
	K       int
	Filters filter.Filters
	// ExcludeID drops the given clip id in the query pre-filter, so the
	// source row of a similarity search never reaches the candidate set.
	ExcludeID    string
	ReturnFields []string
}

// TextQuery describes a BM25 full-text search over one TEXT field.
type TextQuery struct {
	IndexName    string
	Field        string
	Query        string
	Filters      filter.Filters
	TopK         int
	ReturnFields []string
}

// ListQuery describes a filtered, sorted, paginated listing.
type ListQuery struct {
	IndexName    string
	Filters      filter.Filters
	SortBy       string
	Ascending    bool
	Offset       int
	Limit        int
	ReturnFields []string
}

// SearchEntry is one matched document.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

// SearchResult is a parsed FT.SEARCH reply.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}
