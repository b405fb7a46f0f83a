// Package search issues the single-signal probes (BM25, per-field KNN) the
// fusion usecases are built from.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/kura-media/clipdex/internal/db"
	"github.com/kura-media/clipdex/internal/domain/search/filter"
	"github.com/kura-media/clipdex/internal/domain/search/result"
	repoclip "github.com/kura-media/clipdex/internal/repository/clip"
)

// store is the consumer interface for search probes (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

// Repo implements the probe side of usecase/search and usecase/similar.
type Repo struct {
	store store
}

// New creates a search repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// FullText performs a BM25 search over the searchable content field.
func (r *Repo) FullText(ctx context.Context, query string, f filter.Filters, topK int) ([]result.Hit, error) {
	sr, err := r.store.SearchBM25(ctx, &db.TextQuery{
		IndexName:    repoclip.IndexName,
		Field:        repoclip.FieldSearchableContent,
		Query:        query,
		Filters:      f,
		TopK:         topK,
		ReturnFields: []string{"id"},
	})
	if err != nil {
		return nil, fmt.Errorf("search fulltext: %w", err)
	}
	return parseHits(sr), nil
}

// SummaryKNN probes the summary-embedding vector attribute.
func (r *Repo) SummaryKNN(
	ctx context.Context, vector []float32, f filter.Filters, excludeID string, k int,
) ([]result.Hit, error) {
	return r.knn(ctx, repoclip.FieldSummaryEmbedding, vector, f, excludeID, k)
}

// KeywordKNN probes the keyword-embedding vector attribute.
func (r *Repo) KeywordKNN(
	ctx context.Context, vector []float32, f filter.Filters, excludeID string, k int,
) ([]result.Hit, error) {
	return r.knn(ctx, repoclip.FieldKeywordEmbedding, vector, f, excludeID, k)
}

// ThumbnailKNN probes the thumbnail vector attribute of one target slot.
// A full visual comparison probes every slot, because slot positions carry
// no meaning across clips.
func (r *Repo) ThumbnailKNN(
	ctx context.Context, slot int, vector []float32, f filter.Filters, excludeID string, k int,
) ([]result.Hit, error) {
	return r.knn(ctx, repoclip.ThumbnailEmbeddingField(slot), vector, f, excludeID, k)
}

// knn probes one vector attribute. excludeID, when set, keeps that clip out
// of the candidate set at the query level.
func (r *Repo) knn(
	ctx context.Context, field string, vector []float32,
	f filter.Filters, excludeID string, k int,
) ([]result.Hit, error) {
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    repoclip.IndexName,
		Field:        field,
		Vector:       vector,
		K:            k,
		Filters:      f,
		ExcludeID:    excludeID,
		ReturnFields: []string{"id"},
	})
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", field, err)
	}
	return parseHits(sr), nil
}

func parseHits(sr *db.SearchResult) []result.Hit {
	if sr == nil || sr.Total == 0 {
		return nil
	}

	hits := make([]result.Hit, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		id := entry.Fields["id"]
		if id == "" {
			id = strings.TrimPrefix(entry.Key, repoclip.DocPrefix)
		}
		hits = append(hits, result.Hit{ID: id, Score: entry.Score})
	}
	return hits
}
