// Package catalog handles clip ingest and catalog CRUD. Ingest is idempotent
// on the content checksum: re-ingesting the same file updates the existing
// row instead of creating a duplicate.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kura-media/clipdex/internal/domain"
	"github.com/kura-media/clipdex/internal/domain/clip"
	"github.com/kura-media/clipdex/internal/domain/search/filter"
	"github.com/kura-media/clipdex/internal/logger"
)

// IngestInput carries the analyzed clip fields delivered by the ingestion
// pipeline. Embeddings are optional: the pipeline may supply them directly,
// and missing text-space vectors are computed here from the text fields.
type IngestInput struct {
	Checksum string

	FileName    string
	FilePath    string
	SizeBytes   int64
	DurationSec float64
	CameraMake  string
	CameraModel string
	Category    string

	ContentSummary    string
	TranscriptPreview string
	Tags              []string
	Thumbnails        []clip.Thumbnail

	SummaryEmbedding []float32
	KeywordEmbedding []float32
	ThumbEmbeddings  [clip.ThumbnailSlots][]float32
	// ThumbImages are base64 data URIs aligned by slot, vectorized here when
	// the slot's embedding is absent.
	ThumbImages [clip.ThumbnailSlots]string

	ProcessedAt int64
}

// Service handles clip ingest and catalog reads.
type Service struct {
	repo     Repository
	embed    Embedder
	embedImg ImageEmbedder
	dims     clip.Dims
	now      func() time.Time
}

// New creates a catalog service. embedImg can be nil when no visual
// vectorizer is configured.
func New(repo Repository, embed Embedder, embedImg ImageEmbedder, dims clip.Dims) *Service {
	return &Service{repo: repo, embed: embed, embedImg: embedImg, dims: dims, now: time.Now}
}

// Ingest stores an analyzed clip. The checksum decides identity: a known
// checksum keeps its id and created_at, an unknown one gets a fresh id.
// A failing embedding provider degrades the row (stored without the affected
// vector, still reachable through the remaining signals) rather than
// rejecting the ingest. Returns the stored clip and whether it was created.
func (s *Service) Ingest(ctx context.Context, in *IngestInput) (clip.Clip, bool, error) {
	if in.Checksum == "" {
		return clip.Clip{}, false, fmt.Errorf("%w: checksum is required", domain.ErrInvalidArgument)
	}
	if in.FileName == "" {
		return clip.Clip{}, false, fmt.Errorf("%w: file name is required", domain.ErrInvalidArgument)
	}

	nowMs := s.now().UnixMilli()

	id, createdAt, err := s.repo.FindByChecksum(ctx, in.Checksum)
	switch {
	case err == nil:
		// existing row, keep identity
	case errors.Is(err, domain.ErrClipNotFound):
		id = uuid.NewString()
		createdAt = nowMs
	default:
		return clip.Clip{}, false, fmt.Errorf("resolve checksum: %w", err)
	}
	if createdAt == 0 {
		createdAt = nowMs
	}

	s.fillTextEmbeddings(ctx, in)
	s.fillThumbEmbeddings(ctx, in)

	c, err := clip.New(clip.Params{
		ID:                id,
		Checksum:          in.Checksum,
		FileName:          in.FileName,
		FilePath:          in.FilePath,
		SizeBytes:         in.SizeBytes,
		DurationSec:       in.DurationSec,
		CameraMake:        in.CameraMake,
		CameraModel:       in.CameraModel,
		Category:          in.Category,
		ContentSummary:    in.ContentSummary,
		TranscriptPreview: in.TranscriptPreview,
		Tags:              in.Tags,
		Thumbnails:        in.Thumbnails,
		SummaryEmbedding:  in.SummaryEmbedding,
		KeywordEmbedding:  in.KeywordEmbedding,
		ThumbEmbeddings:   in.ThumbEmbeddings,
		CreatedAt:         createdAt,
		ProcessedAt:       in.ProcessedAt,
		UpdatedAt:         nowMs,
	}, s.dims)
	if err != nil {
		return clip.Clip{}, false, err
	}

	created, err := s.repo.Put(ctx, &c)
	if err != nil {
		return clip.Clip{}, false, fmt.Errorf("store clip: %w", err)
	}
	return c, created, nil
}

// fillTextEmbeddings computes missing text-space vectors from the summary
// and keyword text. Provider failures leave the vector absent.
func (s *Service) fillTextEmbeddings(ctx context.Context, in *IngestInput) {
	if s.embed == nil {
		return
	}
	if len(in.SummaryEmbedding) == 0 && strings.TrimSpace(in.ContentSummary) != "" {
		in.SummaryEmbedding = s.embedOrSkip(ctx, "summary", in.ContentSummary)
	}

	if len(in.KeywordEmbedding) == 0 {
		if keywords := keywordText(in.Tags, in.Category); keywords != "" {
			in.KeywordEmbedding = s.embedOrSkip(ctx, "keyword", keywords)
		}
	}
}

// fillThumbEmbeddings vectorizes supplied thumbnail images for slots that
// arrived without a vector. Provider failures leave the slot vector absent.
func (s *Service) fillThumbEmbeddings(ctx context.Context, in *IngestInput) {
	if s.embedImg == nil {
		return
	}
	for i := range in.ThumbImages {
		if len(in.ThumbEmbeddings[i]) > 0 || in.ThumbImages[i] == "" {
			continue
		}
		res, err := s.embedImg.EmbedImage(ctx, in.ThumbImages[i])
		if err != nil {
			logger.FromContext(ctx).Warn("ingest thumbnail embedding skipped",
				zap.Int("slot", i+1), zap.Error(err))
			continue
		}
		in.ThumbEmbeddings[i] = res.Embedding
	}
}

func (s *Service) embedOrSkip(ctx context.Context, field, text string) []float32 {
	res, err := s.embed.Embed(ctx, text)
	if err != nil {
		logger.FromContext(ctx).Warn("ingest embedding skipped",
			zap.String("field", field), zap.Error(err))
		return nil
	}
	return res.Embedding
}

// keywordText joins tags and category into the keyword embedding source text.
func keywordText(tags []string, category string) string {
	parts := make([]string, 0, len(tags)+1)
	for _, t := range tags {
		if strings.TrimSpace(t) != "" {
			parts = append(parts, t)
		}
	}
	if strings.TrimSpace(category) != "" {
		parts = append(parts, category)
	}
	return strings.Join(parts, " ")
}

// Get retrieves a clip by id.
func (s *Service) Get(ctx context.Context, id string) (clip.Clip, error) {
	if id == "" {
		return clip.Clip{}, fmt.Errorf("%w: clip id is required", domain.ErrInvalidArgument)
	}
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return clip.Clip{}, fmt.Errorf("get clip: %w", err)
	}
	return c, nil
}

// Delete removes a clip.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: clip id is required", domain.ErrInvalidArgument)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete clip: %w", err)
	}
	return nil
}

// sortableFields are the numeric columns a listing may sort on.
var sortableFields = map[string]struct{}{
	"created_at":   {},
	"updated_at":   {},
	"duration_sec": {},
	"size_bytes":   {},
}

// ListOptions controls listing sort and pagination.
// Defaults: sort by created_at, newest first, limit 20.
type ListOptions struct {
	SortBy    string
	Ascending bool
	Offset    int
	Limit     int
}

// List returns clips matching the filters plus the total match count.
func (s *Service) List(ctx context.Context, f filter.Filters, opts ListOptions) ([]clip.Clip, int, error) {
	if opts.Offset < 0 {
		return nil, 0, fmt.Errorf("%w: offset must be non-negative", domain.ErrInvalidArgument)
	}
	if opts.SortBy == "" {
		opts.SortBy = "created_at"
	}
	if _, ok := sortableFields[opts.SortBy]; !ok {
		return nil, 0, fmt.Errorf("%w: unsortable field %q", domain.ErrInvalidArgument, opts.SortBy)
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}

	clips, total, err := s.repo.List(ctx, f, opts.SortBy, opts.Ascending, opts.Offset, opts.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list clips: %w", err)
	}
	return clips, total, nil
}

// Count returns the catalog size.
func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count clips: %w", err)
	}
	return n, nil
}
