package request

import (
	"fmt"

	"github.com/kura-media/clipdex/internal/domain"
	"github.com/kura-media/clipdex/internal/domain/clip"
	"github.com/kura-media/clipdex/internal/domain/search/mode"
)

// SimilarWeights holds the per-field weights for "find similar" scoring.
//
// Thumbnail weights are indexed by source slot (1..3). In visual and combined
// modes each available source thumbnail is compared against all three target
// slots (max taken), and the per-slot contributions are combined as a
// weighted average so the score stays on a cosine-like scale regardless of
// how many source thumbnails exist.
//
// TextFactor and VisualFactor blend the two components in combined mode;
// they typically sum to 1.0 but that is a convention, not a constraint.
type SimilarWeights struct {
	Summary      float64
	Keyword      float64
	Thumbnails   [clip.ThumbnailSlots]float64
	TextFactor   float64
	VisualFactor float64
}

// DefaultSimilarWeights returns the deployment defaults: equal text fields,
// thumbnail weights decaying with analysis rank, 50/50 combined blend.
func DefaultSimilarWeights() SimilarWeights {
	return SimilarWeights{
		Summary:      1,
		Keyword:      1,
		Thumbnails:   [clip.ThumbnailSlots]float64{1, 0.8, 0.6},
		TextFactor:   0.5,
		VisualFactor: 0.5,
	}
}

func (w *SimilarWeights) validate() error {
	if w.Summary < 0 || w.Keyword < 0 || w.TextFactor < 0 || w.VisualFactor < 0 {
		return fmt.Errorf("%w: similar weights must be non-negative", domain.ErrInvalidArgument)
	}
	for _, t := range w.Thumbnails {
		if t < 0 {
			return fmt.Errorf("%w: thumbnail weights must be non-negative", domain.ErrInvalidArgument)
		}
	}
	return nil
}

// SimilarRequest is a validated "find similar clip" query.
type SimilarRequest struct {
	sourceID string
	mode     mode.SimilarMode
	limit    int
	minScore float64
	weights  SimilarWeights
}

// NewSimilar validates and normalizes similar request parameters.
// Defaults: mode=combined, limit=20.
func NewSimilar(
	sourceID string,
	m mode.SimilarMode,
	limit int,
	minScore float64,
	weights SimilarWeights,
) (SimilarRequest, error) {
	if sourceID == "" {
		return SimilarRequest{}, fmt.Errorf("%w: source clip id is required", domain.ErrInvalidArgument)
	}
	if m == "" {
		m = mode.SimilarCombined
	}
	if !m.IsValid() {
		return SimilarRequest{}, fmt.Errorf("%w: invalid similar mode %q", domain.ErrInvalidArgument, m)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if minScore < 0 || minScore > 1 {
		return SimilarRequest{}, fmt.Errorf("%w: min_score must be between 0 and 1", domain.ErrInvalidArgument)
	}
	if (weights == SimilarWeights{}) {
		weights = DefaultSimilarWeights()
	}
	if err := weights.validate(); err != nil {
		return SimilarRequest{}, err
	}

	return SimilarRequest{
		sourceID: sourceID,
		mode:     m,
		limit:    limit,
		minScore: minScore,
		weights:  weights,
	}, nil
}

// SourceID returns the clip whose embeddings seed the comparison.
func (r *SimilarRequest) SourceID() string { return r.sourceID }

// Mode returns the similarity strategy.
func (r *SimilarRequest) Mode() mode.SimilarMode { return r.mode }

// Limit returns the maximum results to return.
func (r *SimilarRequest) Limit() int { return r.limit }

// OverFetch returns the candidate pool size for each KNN probe.
func (r *SimilarRequest) OverFetch() int { return r.limit * OverFetchFactor }

// MinScore returns the minimum combined-similarity threshold.
func (r *SimilarRequest) MinScore() float64 { return r.minScore }

// Weights returns the per-field similarity weights.
func (r *SimilarRequest) Weights() SimilarWeights { return r.weights }
