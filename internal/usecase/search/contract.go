package search

import (
	"context"

	"github.com/kura-media/clipdex/internal/domain"
	"github.com/kura-media/clipdex/internal/domain/clip"
	"github.com/kura-media/clipdex/internal/domain/search/filter"
	"github.com/kura-media/clipdex/internal/domain/search/result"
)

// Prober issues the single-signal searches fusion is built from.
type Prober interface {
	FullText(ctx context.Context, query string, f filter.Filters, topK int) ([]result.Hit, error)
	SummaryKNN(ctx context.Context, vector []float32, f filter.Filters, excludeID string, k int) ([]result.Hit, error)
	KeywordKNN(ctx context.Context, vector []float32, f filter.Filters, excludeID string, k int) ([]result.Hit, error)
}

// ClipReader fetches clip rows to attach display fields to ranked ids.
type ClipReader interface {
	GetByIDs(ctx context.Context, ids []string) ([]clip.Clip, error)
}

// Embedder vectorizes query text into the text space.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
