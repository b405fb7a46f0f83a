// Package search executes catalog searches: BM25 full-text, semantic KNN
// over the text-space vectors, and their weighted RRF fusion.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/kura-media/clipdex/internal/domain"
	"github.com/kura-media/clipdex/internal/domain/clip"
	"github.com/kura-media/clipdex/internal/domain/search/mode"
	"github.com/kura-media/clipdex/internal/domain/search/request"
	"github.com/kura-media/clipdex/internal/domain/search/result"
	"github.com/kura-media/clipdex/internal/logger"
	"github.com/kura-media/clipdex/internal/metrics"
)

// Service handles catalog search across fulltext, semantic, and hybrid modes.
type Service struct {
	probes Prober
	clips  ClipReader
	embed  Embedder
}

// New creates a search service.
func New(probes Prober, clips ClipReader, embed Embedder) *Service {
	return &Service{probes: probes, clips: clips, embed: embed}
}

// Search executes a catalog search. An empty query yields an empty result in
// every mode: there is nothing to rank by, and "no criteria" must not decay
// into "return everything".
func (s *Service) Search(ctx context.Context, req *request.Request) ([]result.Result, error) {
	if req.IsEmptyQuery() {
		metrics.SearchRequestsTotal.WithLabelValues(string(req.Mode()), "ok").Inc()
		return []result.Result{}, nil
	}

	var (
		results []result.Result
		err     error
	)
	switch req.Mode() {
	case mode.FullText:
		results, err = s.searchFullText(ctx, req)
	case mode.Semantic:
		results, err = s.searchSemantic(ctx, req)
	case mode.Hybrid:
		results, err = s.searchHybrid(ctx, req)
	default:
		err = fmt.Errorf("%w: unsupported search mode %q", domain.ErrInvalidArgument, req.Mode())
	}

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.SearchRequestsTotal.WithLabelValues(string(req.Mode()), status).Inc()

	return results, err
}

// searchFullText runs a plain BM25 search.
func (s *Service) searchFullText(ctx context.Context, req *request.Request) ([]result.Result, error) {
	hits, err := s.probes.FullText(ctx, req.Query(), req.Filters(), req.Limit())
	if err != nil {
		return nil, fmt.Errorf("search fulltext: %w", err)
	}
	hits = dropZeroScores(hits)

	return s.assemble(ctx, hits, func(h result.Hit, rank int) result.Scores {
		return result.Scores{
			FTSScore:   result.F64(h.Score),
			SearchRank: result.Int(rank),
		}
	})
}

// searchSemantic embeds the query once and probes both text-space vector
// columns with it. Per-row contributions are summed with their weights; a row
// missing a column contributes only from the columns it has, and the sum is
// not renormalized, so rows matching both columns rank above single-column
// matches and the threshold compares against the raw weighted sum.
func (s *Service) searchSemantic(ctx context.Context, req *request.Request) ([]result.Result, error) {
	queryVector, err := s.embedQuery(ctx, req.Query())
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	w := req.Weights()
	k := req.OverFetch()

	var (
		wg               sync.WaitGroup
		sumHits, keyHits []result.Hit
		sumErr, keyErr   error
	)

	if w.Summary > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sumHits, sumErr = s.probes.SummaryKNN(ctx, queryVector, req.Filters(), "", k)
		}()
	}
	if w.Keyword > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			keyHits, keyErr = s.probes.KeywordKNN(ctx, queryVector, req.Filters(), "", k)
		}()
	}
	wg.Wait()

	if sumErr != nil && keyErr != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAllSignalsFailed, errors.Join(sumErr, keyErr))
	}
	degradeOnErr(ctx, "summary", sumErr)
	degradeOnErr(ctx, "keyword", keyErr)

	activeSignals := 0
	if w.Summary > 0 && sumErr == nil {
		activeSignals++
	}
	if w.Keyword > 0 && keyErr == nil {
		activeSignals++
	}
	if activeSignals == 0 {
		return []result.Result{}, nil
	}

	type contrib struct {
		summary, keyword *float64
	}
	contribs := make(map[string]*contrib)
	for i := range sumHits {
		contribs[sumHits[i].ID] = &contrib{summary: &sumHits[i].Score}
	}
	for i := range keyHits {
		c, ok := contribs[keyHits[i].ID]
		if !ok {
			c = &contrib{}
			contribs[keyHits[i].ID] = c
		}
		c.keyword = &keyHits[i].Score
	}

	hits := make([]result.Hit, 0, len(contribs))
	for id, c := range contribs {
		combined := 0.0
		if c.summary != nil {
			combined += w.Summary * *c.summary
		}
		if c.keyword != nil {
			combined += w.Keyword * *c.keyword
		}

		if combined < req.MinScore() {
			continue
		}
		hits = append(hits, result.Hit{ID: id, Score: combined})
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

	return s.assemble(ctx, hits, func(h result.Hit, rank int) result.Scores {
		scores := result.Scores{
			CombinedSimilarity: result.F64(h.Score),
			SearchRank:         result.Int(rank),
		}
		if c, ok := contribs[h.ID]; ok {
			scores.SummarySimilarity = c.summary
			scores.KeywordSimilarity = c.keyword
		}
		return scores
	})
}

// searchHybrid runs the full-text probe and both semantic probes in parallel
// and fuses their rankings via weighted RRF. A failing signal degrades the
// result instead of failing the request; only all signals failing is an error.
func (s *Service) searchHybrid(ctx context.Context, req *request.Request) ([]result.Result, error) {
	w := req.Weights()
	k := req.OverFetch()

	var queryVector []float32
	if w.Summary > 0 || w.Keyword > 0 {
		vec, err := s.embedQuery(ctx, req.Query())
		if err != nil {
			degradeOnErr(ctx, "semantic", err)
		} else {
			queryVector = vec
		}
	}

	var (
		wg                        sync.WaitGroup
		ftsHits, sumHits, keyHits []result.Hit
		ftsErr, sumErr, keyErr    error
	)

	attempted := 0
	if w.FullText > 0 {
		attempted++
		wg.Add(1)
		go func() {
			defer wg.Done()
			ftsHits, ftsErr = s.probes.FullText(ctx, req.Query(), req.Filters(), k)
		}()
	}
	if w.Summary > 0 && queryVector != nil {
		attempted++
		wg.Add(1)
		go func() {
			defer wg.Done()
			sumHits, sumErr = s.probes.SummaryKNN(ctx, queryVector, req.Filters(), "", k)
		}()
	}
	if w.Keyword > 0 && queryVector != nil {
		attempted++
		wg.Add(1)
		go func() {
			defer wg.Done()
			keyHits, keyErr = s.probes.KeywordKNN(ctx, queryVector, req.Filters(), "", k)
		}()
	}
	wg.Wait()

	failed := 0
	for _, e := range []error{ftsErr, sumErr, keyErr} {
		if e != nil {
			failed++
		}
	}
	if attempted > 0 && failed == attempted {
		return nil, fmt.Errorf("%w: %w", domain.ErrAllSignalsFailed, errors.Join(ftsErr, sumErr, keyErr))
	}
	degradeOnErr(ctx, "fulltext", ftsErr)
	degradeOnErr(ctx, "summary", sumErr)
	degradeOnErr(ctx, "keyword", keyErr)

	lists := make([]RankedList, 0, 3)
	if ftsErr == nil {
		lists = append(lists, RankedList{Weight: w.FullText, Hits: dropZeroScores(ftsHits)})
	}
	if sumErr == nil {
		lists = append(lists, RankedList{Weight: w.Summary, Hits: sumHits})
	}
	if keyErr == nil {
		lists = append(lists, RankedList{Weight: w.Keyword, Hits: keyHits})
	}

	fused := fuseRRF(lists, w.RRFK, req.Limit())

	return s.assemble(ctx, fused, func(h result.Hit, rank int) result.Scores {
		return result.Scores{
			SimilarityScore: result.F64(h.Score),
			SearchRank:      result.Int(rank),
		}
	})
}

// assemble fetches the matched clips in one batch and attaches display
// fields, preserving hit order. Rows deleted between probe and fetch are
// skipped; ranks stay contiguous over what remains.
func (s *Service) assemble(
	ctx context.Context, hits []result.Hit,
	scores func(h result.Hit, rank int) result.Scores,
) ([]result.Result, error) {
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
		results = append(results, result.FromClip(c, scores(h, rank)))
	}
	return results, nil
}

// embedQuery vectorizes the query text. A deployment without a text
// vectorizer reports the provider sentinel so callers degrade or fail the
// same way they do on a provider outage.
func (s *Service) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if s.embed == nil {
		return nil, fmt.Errorf("no text vectorizer configured: %w", domain.ErrEmbeddingProviderError)
	}
	emb, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return emb.Embedding, nil
}

// dropZeroScores removes BM25 rows with zero relevance (stopword-only
// matches); they carry no ranking signal and would pollute fusion.
func dropZeroScores(hits []result.Hit) []result.Hit {
	out := hits[:0]
	for _, h := range hits {
		if h.Score > 0 {
			out = append(out, h)
		}
	}
	return out
}

func degradeOnErr(ctx context.Context, signal string, err error) {
	if err == nil {
		return
	}
	metrics.SearchDegradedSignalsTotal.WithLabelValues(signal).Inc()
	logger.FromContext(ctx).Warn("search signal degraded",
		zap.String("signal", signal), zap.Error(err))
}
