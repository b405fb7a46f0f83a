package catalog

import (
	"context"

	"github.com/kura-media/clipdex/internal/domain"
	"github.com/kura-media/clipdex/internal/domain/clip"
	"github.com/kura-media/clipdex/internal/domain/search/filter"
)

// Repository defines the storage contract for catalog rows.
type Repository interface {
	Put(ctx context.Context, c *clip.Clip) (created bool, err error)
	FindByChecksum(ctx context.Context, checksum string) (id string, createdAt int64, err error)
	Get(ctx context.Context, id string) (clip.Clip, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f filter.Filters, sortBy string, ascending bool, offset, limit int) ([]clip.Clip, int, error)
	Count(ctx context.Context) (int, error)
}

// Embedder vectorizes text into the text space.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// ImageEmbedder vectorizes thumbnail images into the visual space.
type ImageEmbedder interface {
	EmbedImage(ctx context.Context, dataURI string) (domain.EmbeddingResult, error)
}
