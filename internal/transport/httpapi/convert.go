package httpapi

import (
	"fmt"

	"github.com/kura-media/clipdex/internal/domain/clip"
	"github.com/kura-media/clipdex/internal/domain/search/filter"
	"github.com/kura-media/clipdex/internal/domain/search/mode"
	"github.com/kura-media/clipdex/internal/domain/search/request"
	"github.com/kura-media/clipdex/internal/domain/search/result"
	cataloguc "github.com/kura-media/clipdex/internal/usecase/catalog"
)

func ingestInputFromAPI(req *IngestRequest) (*cataloguc.IngestInput, error) {
	if len(req.ThumbnailEmbeddings) > clip.ThumbnailSlots {
		return nil, fmt.Errorf("at most %d thumbnail embeddings are supported", clip.ThumbnailSlots)
	}
	if len(req.ThumbnailImages) > clip.ThumbnailSlots {
		return nil, fmt.Errorf("at most %d thumbnail images are supported", clip.ThumbnailSlots)
	}

	in := &cataloguc.IngestInput{
		Checksum:          req.Checksum,
		FileName:          req.FileName,
		FilePath:          req.FilePath,
		SizeBytes:         req.SizeBytes,
		DurationSec:       req.DurationSec,
		CameraMake:        req.CameraMake,
		CameraModel:       req.CameraModel,
		Category:          req.Category,
		ContentSummary:    req.ContentSummary,
		TranscriptPreview: req.TranscriptPreview,
		Tags:              req.Tags,
		SummaryEmbedding:  req.SummaryEmbedding,
		KeywordEmbedding:  req.KeywordEmbedding,
		ProcessedAt:       req.ProcessedAt,
	}

	for _, t := range req.Thumbnails {
		in.Thumbnails = append(in.Thumbnails, clip.Thumbnail{
			Path:      t.Path,
			Timestamp: t.Timestamp,
			Rank:      t.Rank,
			Reason:    t.Reason,
		})
	}
	for i, vec := range req.ThumbnailEmbeddings {
		in.ThumbEmbeddings[i] = vec
	}
	for i, img := range req.ThumbnailImages {
		in.ThumbImages[i] = img
	}

	return in, nil
}

func clipToAPI(c *clip.Clip) Clip {
	out := Clip{
		ID:                 c.ID(),
		Checksum:           c.Checksum(),
		FileName:           c.FileName(),
		FilePath:           c.FilePath(),
		SizeBytes:          c.SizeBytes(),
		DurationSec:        c.DurationSec(),
		CameraMake:         c.CameraMake(),
		CameraModel:        c.CameraModel(),
		Category:           c.Category(),
		ContentSummary:     c.ContentSummary(),
		TranscriptPreview:  c.TranscriptPreview(),
		Tags:               c.Tags(),
		HasTextEmbedding:   c.HasTextEmbedding(),
		HasVisualEmbedding: c.HasVisualEmbedding(),
		CreatedAt:          c.CreatedAt(),
		UpdatedAt:          c.UpdatedAt(),
		ProcessedAt:        c.ProcessedAt(),
	}

	for _, t := range c.Thumbnails() {
		out.Thumbnails = append(out.Thumbnails, Thumbnail{
			Path:      t.Path,
			Timestamp: t.Timestamp,
			Rank:      t.Rank,
			Reason:    t.Reason,
		})
	}

	return out
}

func filtersFromAPI(f *Filters) filter.Filters {
	if f == nil {
		return filter.Filters{}
	}
	return filter.Filters{
		Category:    f.Category,
		CameraMake:  f.CameraMake,
		CameraModel: f.CameraModel,
		Tags:        f.Tags,
	}
}

// hybridWeightsFromAPI merges caller overrides onto the deployment defaults.
func hybridWeightsFromAPI(w *HybridWeights, base request.HybridWeights) request.HybridWeights {
	weights := base
	if w == nil {
		return weights
	}
	if w.FullText != nil {
		weights.FullText = *w.FullText
	}
	if w.Summary != nil {
		weights.Summary = *w.Summary
	}
	if w.Keyword != nil {
		weights.Keyword = *w.Keyword
	}
	if w.RRFK != nil {
		weights.RRFK = *w.RRFK
	}
	return weights
}

func searchRequestFromAPI(req *SearchRequest, base request.HybridWeights) (request.Request, error) {
	return request.New(
		req.Query,
		mode.Mode(req.Mode),
		filtersFromAPI(req.Filters),
		req.Limit,
		req.MinScore,
		hybridWeightsFromAPI(req.Weights, base),
	)
}

// similarWeightsFromAPI merges caller overrides onto the deployment defaults.
func similarWeightsFromAPI(w *SimilarWeights, base request.SimilarWeights) (request.SimilarWeights, error) {
	weights := base
	if w == nil {
		return weights, nil
	}
	if w.Summary != nil {
		weights.Summary = *w.Summary
	}
	if w.Keyword != nil {
		weights.Keyword = *w.Keyword
	}
	if len(w.Thumbnails) > 0 {
		if len(w.Thumbnails) > clip.ThumbnailSlots {
			return request.SimilarWeights{},
				fmt.Errorf("at most %d thumbnail weights are supported", clip.ThumbnailSlots)
		}
		for i, t := range w.Thumbnails {
			weights.Thumbnails[i] = t
		}
	}
	if w.TextFactor != nil {
		weights.TextFactor = *w.TextFactor
	}
	if w.VisualFactor != nil {
		weights.VisualFactor = *w.VisualFactor
	}
	return weights, nil
}

func similarRequestFromAPI(sourceID string, req *SimilarRequest, base request.SimilarWeights) (request.SimilarRequest, error) {
	weights, err := similarWeightsFromAPI(req.Weights, base)
	if err != nil {
		return request.SimilarRequest{}, err
	}
	return request.NewSimilar(
		sourceID,
		mode.SimilarMode(req.Mode),
		req.Limit,
		req.MinScore,
		weights,
	)
}

func resultToAPI(r *result.Result) SearchResultItem {
	d := r.Display()
	sc := r.Scores()
	return SearchResultItem{
		ID:                r.ID(),
		FileName:          d.FileName,
		ContentSummary:    d.ContentSummary,
		TranscriptPreview: d.TranscriptPreview,
		Tags:              d.Tags,
		DurationSec:       d.DurationSec,
		SizeBytes:         d.SizeBytes,
		CameraMake:        d.CameraMake,
		CameraModel:       d.CameraModel,
		Category:          d.Category,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
		Scores: Scores{
			FTSScore:           sc.FTSScore,
			SummarySimilarity:  sc.SummarySimilarity,
			KeywordSimilarity:  sc.KeywordSimilarity,
			CombinedSimilarity: sc.CombinedSimilarity,
			SimilarityScore:    sc.SimilarityScore,
			SearchRank:         sc.SearchRank,
		},
	}
}
