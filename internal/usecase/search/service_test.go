package search

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/kura-media/clipdex/internal/domain"
	"github.com/kura-media/clipdex/internal/domain/clip"
	"github.com/kura-media/clipdex/internal/domain/search/filter"
	"github.com/kura-media/clipdex/internal/domain/search/mode"
	"github.com/kura-media/clipdex/internal/domain/search/request"
	"github.com/kura-media/clipdex/internal/domain/search/result"
)

// --- Mocks ---

type mockProber struct {
	ftsHits []result.Hit
	ftsErr  error
	sumHits []result.Hit
	sumErr  error
	keyHits []result.Hit
	keyErr  error

	ftsCalled bool
	sumCalled bool
	keyCalled bool
}

func (m *mockProber) FullText(_ context.Context, _ string, _ filter.Filters, _ int) ([]result.Hit, error) {
	m.ftsCalled = true
	return m.ftsHits, m.ftsErr
}

func (m *mockProber) SummaryKNN(_ context.Context, _ []float32, _ filter.Filters, _ string, _ int) ([]result.Hit, error) {
	m.sumCalled = true
	return m.sumHits, m.sumErr
}

func (m *mockProber) KeywordKNN(_ context.Context, _ []float32, _ filter.Filters, _ string, _ int) ([]result.Hit, error) {
	m.keyCalled = true
	return m.keyHits, m.keyErr
}

type mockClips struct {
	missing map[string]bool
	err     error
}

func (m *mockClips) GetByIDs(_ context.Context, ids []string) ([]clip.Clip, error) {
	if m.err != nil {
		return nil, m.err
	}
	clips := make([]clip.Clip, 0, len(ids))
	for _, id := range ids {
		if m.missing[id] {
			continue
		}
		clips = append(clips, clip.Reconstruct(clip.Params{ID: id, FileName: id + ".mp4"}))
	}
	return clips, nil
}

type mockEmbedder struct {
	vec    []float32
	err    error
	called bool
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.called = true
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec}, nil
}

func makeRequest(t *testing.T, query string, m mode.Mode, minScore float64) *request.Request {
	t.Helper()
	r, err := request.New(query, m, filter.Filters{}, 10, minScore, request.DefaultHybridWeights())
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	return &r
}

func newTestService(probes *mockProber, embed *mockEmbedder) *Service {
	return New(probes, &mockClips{}, embed)
}

// --- Tests ---

func TestSearch_EmptyQuery(t *testing.T) {
	for _, m := range []mode.Mode{mode.FullText, mode.Semantic, mode.Hybrid} {
		t.Run(string(m), func(t *testing.T) {
			probes := &mockProber{}
			embed := &mockEmbedder{vec: []float32{0.1}}
			svc := newTestService(probes, embed)

			results, err := svc.Search(context.Background(), makeRequest(t, "   ", m, 0))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(results) != 0 {
				t.Fatalf("expected 0 results, got %d", len(results))
			}
			if probes.ftsCalled || probes.sumCalled || probes.keyCalled {
				t.Error("no probe should run for an empty query")
			}
			if embed.called {
				t.Error("Embed should not be called for an empty query")
			}
		})
	}
}

func TestSearchFullText(t *testing.T) {
	probes := &mockProber{
		ftsHits: []result.Hit{
			{ID: "a", Score: 2.5},
			{ID: "b", Score: 0}, // stopword-only match
			{ID: "c", Score: 1.1},
		},
	}
	svc := newTestService(probes, &mockEmbedder{})

	results, err := svc.Search(context.Background(), makeRequest(t, "sunset drone", mode.FullText, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results (zero-score dropped), got %d", len(results))
	}
	if results[0].ID() != "a" || results[1].ID() != "c" {
		t.Errorf("unexpected order: %s, %s", results[0].ID(), results[1].ID())
	}

	sc := results[0].Scores()
	if sc.FTSScore == nil || *sc.FTSScore != 2.5 {
		t.Errorf("expected fts score 2.5, got %v", sc.FTSScore)
	}
	if sc.SearchRank == nil || *sc.SearchRank != 1 {
		t.Errorf("expected rank 1, got %v", sc.SearchRank)
	}
	if sc.SimilarityScore != nil || sc.CombinedSimilarity != nil {
		t.Error("fulltext mode must not set similarity scores")
	}
}

func TestSearchFullText_ProbeError(t *testing.T) {
	probes := &mockProber{ftsErr: errors.New("index gone")}
	svc := newTestService(probes, &mockEmbedder{})

	_, err := svc.Search(context.Background(), makeRequest(t, "q", mode.FullText, 0))
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestSearchSemantic_WeightedSum(t *testing.T) {
	probes := &mockProber{
		sumHits: []result.Hit{{ID: "a", Score: 0.8}},
		keyHits: []result.Hit{{ID: "a", Score: 0.6}, {ID: "b", Score: 0.4}},
	}
	embed := &mockEmbedder{vec: []float32{0.1, 0.2}}
	svc := newTestService(probes, embed)

	results, err := svc.Search(context.Background(), makeRequest(t, "q", mode.Semantic, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !embed.called {
		t.Error("expected Embed to be called")
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	// a: 1*0.8 + 1*0.6 = 1.4; b: 1*0.4 = 0.4 — no renormalization
	if results[0].ID() != "a" {
		t.Fatalf("expected 'a' first, got %s", results[0].ID())
	}
	if got := *results[0].Scores().CombinedSimilarity; math.Abs(got-1.4) > 1e-10 {
		t.Errorf("expected combined 1.4, got %f", got)
	}
	if got := *results[1].Scores().CombinedSimilarity; math.Abs(got-0.4) > 1e-10 {
		t.Errorf("expected combined 0.4, got %f", got)
	}

	sc := results[0].Scores()
	if sc.SummarySimilarity == nil || *sc.SummarySimilarity != 0.8 {
		t.Errorf("expected summary contribution 0.8, got %v", sc.SummarySimilarity)
	}
	if sc.KeywordSimilarity == nil || *sc.KeywordSimilarity != 0.6 {
		t.Errorf("expected keyword contribution 0.6, got %v", sc.KeywordSimilarity)
	}
	if results[1].Scores().SummarySimilarity != nil {
		t.Error("'b' was not in the summary top-K, contribution must be nil")
	}
}

func TestSearchSemantic_SingleColumnHitKeepsFullContribution(t *testing.T) {
	// A clip carrying only a summary vector is scored on the summary
	// contribution alone; the missing keyword column must not dilute it
	// below the threshold.
	probes := &mockProber{
		sumHits: []result.Hit{{ID: "clip-a", Score: 0.95}},
	}
	svc := newTestService(probes, &mockEmbedder{vec: []float32{0.1}})

	results, err := svc.Search(context.Background(), makeRequest(t, "q", mode.Semantic, 0.9))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].ID() != "clip-a" {
		t.Fatalf("expected clip-a above threshold, got %d results", len(results))
	}
	if got := *results[0].Scores().CombinedSimilarity; math.Abs(got-0.95) > 1e-10 {
		t.Errorf("expected combined 0.95, got %f", got)
	}
}

func TestSearchSemantic_MinScoreFilter(t *testing.T) {
	probes := &mockProber{
		sumHits: []result.Hit{{ID: "a", Score: 0.9}, {ID: "b", Score: 0.1}},
		keyHits: []result.Hit{{ID: "a", Score: 0.9}},
	}
	svc := newTestService(probes, &mockEmbedder{vec: []float32{0.1}})

	results, err := svc.Search(context.Background(), makeRequest(t, "q", mode.Semantic, 0.5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].ID() != "a" {
		t.Fatalf("expected only 'a' above threshold, got %d results", len(results))
	}
}

func TestSearchSemantic_EmbedFailureIsFatal(t *testing.T) {
	probes := &mockProber{}
	embed := &mockEmbedder{err: errors.New("provider down")}
	svc := newTestService(probes, embed)

	_, err := svc.Search(context.Background(), makeRequest(t, "q", mode.Semantic, 0))
	if err == nil {
		t.Fatal("expected error")
	}
	if probes.sumCalled || probes.keyCalled {
		t.Error("no probe should run when the query cannot be vectorized")
	}
}

func TestSearchSemantic_NoEmbedderConfigured(t *testing.T) {
	svc := New(&mockProber{}, &mockClips{}, nil)

	_, err := svc.Search(context.Background(), makeRequest(t, "q", mode.Semantic, 0))
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
}

func TestSearchSemantic_OneSignalDegrades(t *testing.T) {
	probes := &mockProber{
		sumErr:  errors.New("summary index broken"),
		keyHits: []result.Hit{{ID: "a", Score: 0.6}},
	}
	svc := newTestService(probes, &mockEmbedder{vec: []float32{0.1}})

	results, err := svc.Search(context.Background(), makeRequest(t, "q", mode.Semantic, 0))
	if err != nil {
		t.Fatalf("expected degraded success, got %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	// surviving signal contributes its weighted score: 1*0.6
	if got := *results[0].Scores().CombinedSimilarity; math.Abs(got-0.6) > 1e-10 {
		t.Errorf("expected combined 0.6, got %f", got)
	}
}

func TestSearchSemantic_AllSignalsFailed(t *testing.T) {
	probes := &mockProber{
		sumErr: errors.New("down"),
		keyErr: errors.New("also down"),
	}
	svc := newTestService(probes, &mockEmbedder{vec: []float32{0.1}})

	_, err := svc.Search(context.Background(), makeRequest(t, "q", mode.Semantic, 0))
	if !errors.Is(err, domain.ErrAllSignalsFailed) {
		t.Fatalf("expected ErrAllSignalsFailed, got %v", err)
	}
}

func TestSearchHybrid(t *testing.T) {
	probes := &mockProber{
		ftsHits: []result.Hit{{ID: "a", Score: 3.2}, {ID: "b", Score: 1.5}},
		sumHits: []result.Hit{{ID: "b", Score: 0.9}},
		keyHits: []result.Hit{{ID: "c", Score: 0.7}},
	}
	embed := &mockEmbedder{vec: []float32{0.1}}
	svc := newTestService(probes, embed)

	results, err := svc.Search(context.Background(), makeRequest(t, "q", mode.Hybrid, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !probes.ftsCalled || !probes.sumCalled || !probes.keyCalled {
		t.Error("expected all three probes to run")
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	// "b" is in two lists and must rank first
	if results[0].ID() != "b" {
		t.Errorf("expected 'b' first, got %s", results[0].ID())
	}
	sc := results[0].Scores()
	if sc.SimilarityScore == nil {
		t.Fatal("hybrid mode must set the fused score")
	}
	if sc.SearchRank == nil || *sc.SearchRank != 1 {
		t.Errorf("expected rank 1, got %v", sc.SearchRank)
	}
	if sc.FTSScore != nil || sc.CombinedSimilarity != nil {
		t.Error("hybrid mode must not set per-signal scores")
	}
}

func TestSearchHybrid_EmbedFailureDegradesToFullText(t *testing.T) {
	probes := &mockProber{
		ftsHits: []result.Hit{{ID: "a", Score: 2.0}},
	}
	embed := &mockEmbedder{err: errors.New("provider down")}
	svc := newTestService(probes, embed)

	results, err := svc.Search(context.Background(), makeRequest(t, "q", mode.Hybrid, 0))
	if err != nil {
		t.Fatalf("expected degraded success, got %v", err)
	}
	if probes.sumCalled || probes.keyCalled {
		t.Error("semantic probes should be skipped without a query vector")
	}
	if len(results) != 1 || results[0].ID() != "a" {
		t.Fatalf("expected the full-text hit, got %d results", len(results))
	}
}

func TestSearchHybrid_AllSignalsFailed(t *testing.T) {
	probes := &mockProber{
		ftsErr: errors.New("down"),
		sumErr: errors.New("down"),
		keyErr: errors.New("down"),
	}
	svc := newTestService(probes, &mockEmbedder{vec: []float32{0.1}})

	_, err := svc.Search(context.Background(), makeRequest(t, "q", mode.Hybrid, 0))
	if !errors.Is(err, domain.ErrAllSignalsFailed) {
		t.Fatalf("expected ErrAllSignalsFailed, got %v", err)
	}
}

func TestSearchHybrid_PartialFailureDegrades(t *testing.T) {
	probes := &mockProber{
		ftsErr:  errors.New("down"),
		sumHits: []result.Hit{{ID: "a", Score: 0.9}},
		keyHits: []result.Hit{{ID: "b", Score: 0.8}},
	}
	svc := newTestService(probes, &mockEmbedder{vec: []float32{0.1}})

	results, err := svc.Search(context.Background(), makeRequest(t, "q", mode.Hybrid, 0))
	if err != nil {
		t.Fatalf("expected degraded success, got %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}

func TestAssemble_DeletedClipSkipped(t *testing.T) {
	probes := &mockProber{
		ftsHits: []result.Hit{{ID: "a", Score: 3}, {ID: "gone", Score: 2}, {ID: "c", Score: 1}},
	}
	svc := New(probes, &mockClips{missing: map[string]bool{"gone": true}}, &mockEmbedder{})

	results, err := svc.Search(context.Background(), makeRequest(t, "q", mode.FullText, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	// ranks stay contiguous over what remains
	if *results[1].Scores().SearchRank != 2 {
		t.Errorf("expected rank 2 for 'c', got %d", *results[1].Scores().SearchRank)
	}
}
