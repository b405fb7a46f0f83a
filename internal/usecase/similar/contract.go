package similar

import (
	"context"

	"github.com/kura-media/clipdex/internal/domain/clip"
	"github.com/kura-media/clipdex/internal/domain/search/filter"
	"github.com/kura-media/clipdex/internal/domain/search/result"
)

// Prober issues the per-field KNN probes similarity scoring is built from.
type Prober interface {
	SummaryKNN(ctx context.Context, vector []float32, f filter.Filters, excludeID string, k int) ([]result.Hit, error)
	KeywordKNN(ctx context.Context, vector []float32, f filter.Filters, excludeID string, k int) ([]result.Hit, error)
	ThumbnailKNN(ctx context.Context, slot int, vector []float32, f filter.Filters, excludeID string, k int) ([]result.Hit, error)
}

// ClipReader fetches the source clip and the matched candidates.
type ClipReader interface {
	Get(ctx context.Context, id string) (clip.Clip, error)
	GetByIDs(ctx context.Context, ids []string) ([]clip.Clip, error)
}
