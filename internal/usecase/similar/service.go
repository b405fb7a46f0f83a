// Package similar finds catalog clips resembling a source clip by comparing
// its stored embeddings against the rest of the catalog.
package similar

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/kura-media/clipdex/internal/domain"
	"github.com/kura-media/clipdex/internal/domain/clip"
	"github.com/kura-media/clipdex/internal/domain/search/filter"
	"github.com/kura-media/clipdex/internal/domain/search/mode"
	"github.com/kura-media/clipdex/internal/domain/search/request"
	"github.com/kura-media/clipdex/internal/domain/search/result"
	"github.com/kura-media/clipdex/internal/logger"
	"github.com/kura-media/clipdex/internal/metrics"
)

// Service handles "find similar clip" queries.
type Service struct {
	probes Prober
	clips  ClipReader
}

// New creates a similarity service.
func New(probes Prober, clips ClipReader) *Service {
	return &Service{probes: probes, clips: clips}
}

// Similar ranks catalog clips by their similarity to the source clip. An
// unknown source id is an error; a source that lacks every embedding the
// requested mode needs yields an empty result, never a fallback to another
// mode. The source clip itself is excluded at the query level.
func (s *Service) Similar(ctx context.Context, req *request.SimilarRequest) ([]result.Result, error) {
	source, err := s.clips.Get(ctx, req.SourceID())
	if err != nil {
		return nil, fmt.Errorf("get source clip: %w", err)
	}

	var (
		results []result.Result
		runErr  error
	)
	switch req.Mode() {
	case mode.SimilarText:
		results, runErr = s.similarText(ctx, &source, req)
	case mode.SimilarVisual:
		results, runErr = s.similarVisual(ctx, &source, req)
	case mode.SimilarCombined:
		results, runErr = s.similarCombined(ctx, &source, req)
	default:
		runErr = fmt.Errorf("%w: unsupported similar mode %q", domain.ErrInvalidArgument, req.Mode())
	}

	status := "ok"
	if runErr != nil {
		status = "error"
	}
	metrics.SearchRequestsTotal.WithLabelValues("similar_"+string(req.Mode()), status).Inc()

	return results, runErr
}

func (s *Service) similarText(
	ctx context.Context, source *clip.Clip, req *request.SimilarRequest,
) ([]result.Result, error) {
	scores, attempted, err := s.textComponent(ctx, source, req)
	if err != nil {
		return nil, err
	}
	if !attempted {
		return []result.Result{}, nil
	}
	return s.finalize(ctx, scores, req)
}

func (s *Service) similarVisual(
	ctx context.Context, source *clip.Clip, req *request.SimilarRequest,
) ([]result.Result, error) {
	scores, attempted, err := s.visualComponent(ctx, source, req)
	if err != nil {
		return nil, err
	}
	if !attempted {
		return []result.Result{}, nil
	}
	return s.finalize(ctx, scores, req)
}

// similarCombined blends the text and visual components. A component the
// source has no vectors for contributes nothing; the other component is
// still scaled by its blend factor rather than renormalized, so a text-only
// clip cannot outscore clips matched on both components.
func (s *Service) similarCombined(
	ctx context.Context, source *clip.Clip, req *request.SimilarRequest,
) ([]result.Result, error) {
	w := req.Weights()

	textScores, textAttempted, textErr := s.textComponent(ctx, source, req)
	visualScores, visualAttempted, visualErr := s.visualComponent(ctx, source, req)

	if !textAttempted && !visualAttempted {
		return []result.Result{}, nil
	}
	if textErr != nil && visualErr != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAllSignalsFailed, errors.Join(textErr, visualErr))
	}
	if textErr != nil && !visualAttempted {
		return nil, textErr
	}
	if visualErr != nil && !textAttempted {
		return nil, visualErr
	}
	degradeOnErr(ctx, "text", textErr)
	degradeOnErr(ctx, "visual", visualErr)

	combined := make(map[string]float64)
	if textErr == nil {
		for id, sc := range textScores {
			combined[id] += w.TextFactor * sc
		}
	}
	if visualErr == nil {
		for id, sc := range visualScores {
			combined[id] += w.VisualFactor * sc
		}
	}

	return s.finalize(ctx, combined, req)
}

// textComponent scores candidates against the source's summary and keyword
// vectors as a weighted sum over the vectors the source actually has; a
// summary-only source scores candidates on the summary contribution alone,
// with no renormalization. attempted is false when the source carries no
// usable text vector.
func (s *Service) textComponent(
	ctx context.Context, source *clip.Clip, req *request.SimilarRequest,
) (map[string]float64, bool, error) {
	w := req.Weights()
	k := req.OverFetch()
	exclude := source.ID()

	var (
		wg               sync.WaitGroup
		sumHits, keyHits []result.Hit
		sumErr, keyErr   error
	)

	probeSummary := w.Summary > 0 && len(source.SummaryEmbedding()) > 0
	probeKeyword := w.Keyword > 0 && len(source.KeywordEmbedding()) > 0
	if !probeSummary && !probeKeyword {
		return nil, false, nil
	}

	if probeSummary {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sumHits, sumErr = s.probes.SummaryKNN(ctx, source.SummaryEmbedding(), filter.Filters{}, exclude, k)
		}()
	}
	if probeKeyword {
		wg.Add(1)
		go func() {
			defer wg.Done()
			keyHits, keyErr = s.probes.KeywordKNN(ctx, source.KeywordEmbedding(), filter.Filters{}, exclude, k)
		}()
	}
	wg.Wait()

	if probeSummary && probeKeyword && sumErr != nil && keyErr != nil {
		return nil, true, fmt.Errorf("%w: %w", domain.ErrAllSignalsFailed, errors.Join(sumErr, keyErr))
	}
	if probeSummary && !probeKeyword && sumErr != nil {
		return nil, true, fmt.Errorf("search summary: %w", sumErr)
	}
	if probeKeyword && !probeSummary && keyErr != nil {
		return nil, true, fmt.Errorf("search keyword: %w", keyErr)
	}
	degradeOnErr(ctx, "summary", sumErr)
	degradeOnErr(ctx, "keyword", keyErr)

	scores := make(map[string]float64)
	for _, h := range sumHits {
		scores[h.ID] += w.Summary * h.Score
	}
	for _, h := range keyHits {
		scores[h.ID] += w.Keyword * h.Score
	}

	return scores, true, nil
}

// visualComponent scores candidates by cross-slot thumbnail comparison.
// Slot positions carry no meaning across clips (slot 1 is "best frame of
// this clip", not "same kind of frame"), so every available source thumbnail
// is probed against all three target slots and the best match per candidate
// is kept. Per-slot bests are then blended as a weighted average over the
// source slots that exist, keeping the score on a cosine-like scale whether
// the source has one thumbnail or three.
func (s *Service) visualComponent(
	ctx context.Context, source *clip.Clip, req *request.SimilarRequest,
) (map[string]float64, bool, error) {
	w := req.Weights()
	k := req.OverFetch()
	exclude := source.ID()

	type probeOut struct {
		hits []result.Hit
		err  error
	}
	var outs [clip.ThumbnailSlots][clip.ThumbnailSlots]probeOut

	var wg sync.WaitGroup
	attempted := false
	for src := 1; src <= clip.ThumbnailSlots; src++ {
		vec := source.ThumbnailEmbedding(src)
		if len(vec) == 0 || w.Thumbnails[src-1] <= 0 {
			continue
		}
		attempted = true
		for tgt := 1; tgt <= clip.ThumbnailSlots; tgt++ {
			wg.Add(1)
			go func(src, tgt int, vec []float32) {
				defer wg.Done()
				hits, err := s.probes.ThumbnailKNN(ctx, tgt, vec, filter.Filters{}, exclude, k)
				outs[src-1][tgt-1] = probeOut{hits: hits, err: err}
			}(src, tgt, vec)
		}
	}
	wg.Wait()

	if !attempted {
		return nil, false, nil
	}

	// Per source slot: best similarity per candidate across target slots.
	// A slot whose probes all failed is dropped from the blend.
	scores := make(map[string]float64)
	weightSum := 0.0
	var probeErrs []error
	anyProbeOK := false

	for src := 1; src <= clip.ThumbnailSlots; src++ {
		vec := source.ThumbnailEmbedding(src)
		if len(vec) == 0 || w.Thumbnails[src-1] <= 0 {
			continue
		}

		best := make(map[string]float64)
		slotOK := false
		for tgt := 1; tgt <= clip.ThumbnailSlots; tgt++ {
			out := outs[src-1][tgt-1]
			if out.err != nil {
				probeErrs = append(probeErrs, out.err)
				degradeOnErr(ctx, fmt.Sprintf("thumbnail_%d", tgt), out.err)
				continue
			}
			slotOK = true
			for _, h := range out.hits {
				if h.Score > best[h.ID] {
					best[h.ID] = h.Score
				}
			}
		}
		if !slotOK {
			continue
		}

		anyProbeOK = true
		weight := w.Thumbnails[src-1]
		weightSum += weight
		for id, sim := range best {
			scores[id] += weight * sim
		}
	}

	if !anyProbeOK {
		return nil, true, fmt.Errorf("%w: %w", domain.ErrAllSignalsFailed, errors.Join(probeErrs...))
	}

	for id := range scores {
		scores[id] /= weightSum
	}

	return scores, true, nil
}

// finalize applies the threshold, orders by score (id ascending on ties),
// truncates, and attaches display fields.
func (s *Service) finalize(
	ctx context.Context, scores map[string]float64, req *request.SimilarRequest,
) ([]result.Result, error) {
	hits := make([]result.Hit, 0, len(scores))
	for id, sc := range scores {
		if sc < req.MinScore() {
			continue
		}
		hits = append(hits, result.Hit{ID: id, Score: sc})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > req.Limit() {
		hits = hits[:req.Limit()]
	}
	if len(hits) == 0 {
		return []result.Result{}, nil
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}

	clips, err := s.clips.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch clips: %w", err)
	}

	byID := make(map[string]*clip.Clip, len(clips))
	for i := range clips {
		byID[clips[i].ID()] = &clips[i]
	}

	results := make([]result.Result, 0, len(hits))
	rank := 0
	for _, h := range hits {
		c, ok := byID[h.ID]
		if !ok {
			continue
		}
		rank++
		results = append(results, result.FromClip(c, result.Scores{
			CombinedSimilarity: result.F64(h.Score),
			SearchRank:         result.Int(rank),
		}))
	}
	return results, nil
}

func degradeOnErr(ctx context.Context, signal string, err error) {
	if err == nil {
		return
	}
	metrics.SearchDegradedSignalsTotal.WithLabelValues(signal).Inc()
	logger.FromContext(ctx).Warn("similarity signal degraded",
		zap.String("signal", signal), zap.Error(err))
}
