package similar

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
	sumHits []result.Hit
	sumErr  error
	keyHits []result.Hit
	keyErr  error

	// thumbHits[tgt-1] is returned for every probe against target slot tgt.
	thumbHits [clip.ThumbnailSlots][]result.Hit
	thumbErr  [clip.ThumbnailSlots]error

	sumCalled   bool
	keyCalled   bool
	lastExclude string
}

func (m *mockProber) SummaryKNN(_ context.Context, _ []float32, _ filter.Filters, excludeID string, _ int) ([]result.Hit, error) {
	m.sumCalled = true
	m.lastExclude = excludeID
	return m.sumHits, m.sumErr
}

func (m *mockProber) KeywordKNN(_ context.Context, _ []float32, _ filter.Filters, excludeID string, _ int) ([]result.Hit, error) {
	m.keyCalled = true
	return m.keyHits, m.keyErr
}

func (m *mockProber) ThumbnailKNN(_ context.Context, slot int, _ []float32, _ filter.Filters, _ string, _ int) ([]result.Hit, error) {
	return m.thumbHits[slot-1], m.thumbErr[slot-1]
}

type mockClips struct {
	source    clip.Clip
	sourceErr error
}

func (m *mockClips) Get(_ context.Context, _ string) (clip.Clip, error) {
	return m.source, m.sourceErr
}

func (m *mockClips) GetByIDs(_ context.Context, ids []string) ([]clip.Clip, error) {
	clips := make([]clip.Clip, 0, len(ids))
	for _, id := range ids {
		clips = append(clips, clip.Reconstruct(clip.Params{ID: id, FileName: id + ".mp4"}))
	}
	return clips, nil
}

func textOnlySource() clip.Clip {
	return clip.Reconstruct(clip.Params{
		ID:               "src",
		SummaryEmbedding: []float32{0.1, 0.2},
		KeywordEmbedding: []float32{0.3, 0.4},
	})
}

func visualSource(slots ...int) clip.Clip {
	p := clip.Params{ID: "src"}
	for _, s := range slots {
		p.ThumbEmbeddings[s-1] = []float32{0.1, 0.2}
	}
	return clip.Reconstruct(p)
}

func makeSimilarRequest(t *testing.T, m mode.SimilarMode) *request.SimilarRequest {
	t.Helper()
	r, err := request.NewSimilar("src", m, 10, 0, request.DefaultSimilarWeights())
	if err != nil {
		t.Fatalf("request.NewSimilar: %v", err)
	}
	return &r
}

// --- Tests ---

func TestSimilar_UnknownSource(t *testing.T) {
	svc := New(&mockProber{}, &mockClips{sourceErr: domain.ErrClipNotFound})

	_, err := svc.Similar(context.Background(), makeSimilarRequest(t, mode.SimilarText))
	if !errors.Is(err, domain.ErrClipNotFound) {
		t.Fatalf("expected ErrClipNotFound, got %v", err)
	}
}

func TestSimilarText_WeightedSum(t *testing.T) {
	probes := &mockProber{
		sumHits: []result.Hit{{ID: "a", Score: 0.8}},
		keyHits: []result.Hit{{ID: "a", Score: 0.6}, {ID: "b", Score: 0.4}},
	}
	svc := New(probes, &mockClips{source: textOnlySource()})

	results, err := svc.Similar(context.Background(), makeSimilarRequest(t, mode.SimilarText))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if probes.lastExclude != "src" {
		t.Errorf("expected source id in the probe exclusion, got %q", probes.lastExclude)
	}

	// a: 1*0.8 + 1*0.6 = 1.4; b: 1*0.4 = 0.4 — no renormalization
	if results[0].ID() != "a" {
		t.Fatalf("expected 'a' first, got %s", results[0].ID())
	}
	if got := *results[0].Scores().CombinedSimilarity; math.Abs(got-1.4) > 1e-10 {
		t.Errorf("expected 1.4, got %f", got)
	}
	if got := *results[1].Scores().CombinedSimilarity; math.Abs(got-0.4) > 1e-10 {
		t.Errorf("expected 0.4, got %f", got)
	}
}

func TestSimilarText_SourceWithoutTextVectors(t *testing.T) {
	probes := &mockProber{}
	svc := New(probes, &mockClips{source: visualSource(1)})

	results, err := svc.Similar(context.Background(), makeSimilarRequest(t, mode.SimilarText))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty result (no mode fallback), got %d", len(results))
	}
	if probes.sumCalled || probes.keyCalled {
		t.Error("no probe should run for a source without text vectors")
	}
}

func TestSimilarText_SummaryOnlySource(t *testing.T) {
	source := clip.Reconstruct(clip.Params{
		ID:               "src",
		SummaryEmbedding: []float32{0.1},
	})
	probes := &mockProber{
		sumHits: []result.Hit{{ID: "a", Score: 0.9}},
	}
	svc := New(probes, &mockClips{source: source})

	results, err := svc.Similar(context.Background(), makeSimilarRequest(t, mode.SimilarText))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if probes.keyCalled {
		t.Error("keyword probe should be skipped without a keyword vector")
	}
	// the sole summary contribution is kept undiluted: 1*0.9
	if got := *results[0].Scores().CombinedSimilarity; math.Abs(got-0.9) > 1e-10 {
		t.Errorf("expected 0.9, got %f", got)
	}
}

func TestSimilarText_AllProbesFailed(t *testing.T) {
	probes := &mockProber{
		sumErr: errors.New("down"),
		keyErr: errors.New("down"),
	}
	svc := New(probes, &mockClips{source: textOnlySource()})

	_, err := svc.Similar(context.Background(), makeSimilarRequest(t, mode.SimilarText))
	if !errors.Is(err, domain.ErrAllSignalsFailed) {
		t.Fatalf("expected ErrAllSignalsFailed, got %v", err)
	}
}

func TestSimilarVisual_CrossSlotMax(t *testing.T) {
	// Source has one thumbnail; candidate "a" matches target slot 2 best.
	probes := &mockProber{}
	probes.thumbHits[0] = []result.Hit{{ID: "a", Score: 0.3}}
	probes.thumbHits[1] = []result.Hit{{ID: "a", Score: 0.9}}
	probes.thumbHits[2] = []result.Hit{{ID: "a", Score: 0.5}, {ID: "b", Score: 0.4}}

	svc := New(probes, &mockClips{source: visualSource(1)})

	results, err := svc.Similar(context.Background(), makeSimilarRequest(t, mode.SimilarVisual))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	// a: max(0.3, 0.9, 0.5) = 0.9 with slot weight 1 / weightSum 1
	if results[0].ID() != "a" {
		t.Fatalf("expected 'a' first, got %s", results[0].ID())
	}
	if got := *results[0].Scores().CombinedSimilarity; math.Abs(got-0.9) > 1e-10 {
		t.Errorf("expected 0.9, got %f", got)
	}
	if got := *results[1].Scores().CombinedSimilarity; math.Abs(got-0.4) > 1e-10 {
		t.Errorf("expected 0.4, got %f", got)
	}
}

func TestSimilarVisual_SlotWeightedAverage(t *testing.T) {
	// Source slots 1 and 2 carry weights 1 and 0.8. Only target slot 1
	// returns a hit, so each source slot's best for "a" is 0.9.
	probes := &mockProber{}
	probes.thumbHits[0] = []result.Hit{{ID: "a", Score: 0.9}}

	svc := New(probes, &mockClips{source: visualSource(1, 2)})

	results, err := svc.Similar(context.Background(), makeSimilarRequest(t, mode.SimilarVisual))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	// Both source slots see best=0.9: (1*0.9 + 0.8*0.9)/(1+0.8) = 0.9
	if got := *results[0].Scores().CombinedSimilarity; math.Abs(got-0.9) > 1e-10 {
		t.Errorf("expected 0.9, got %f", got)
	}
}

func TestSimilarVisual_SourceWithoutThumbnails(t *testing.T) {
	svc := New(&mockProber{}, &mockClips{source: textOnlySource()})

	results, err := svc.Similar(context.Background(), makeSimilarRequest(t, mode.SimilarVisual))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty result (no mode fallback), got %d", len(results))
	}
}

func TestSimilarVisual_AllProbesFailed(t *testing.T) {
	probes := &mockProber{}
	for i := range probes.thumbErr {
		probes.thumbErr[i] = errors.New("down")
	}
	svc := New(probes, &mockClips{source: visualSource(1)})

	_, err := svc.Similar(context.Background(), makeSimilarRequest(t, mode.SimilarVisual))
	if !errors.Is(err, domain.ErrAllSignalsFailed) {
		t.Fatalf("expected ErrAllSignalsFailed, got %v", err)
	}
}

func TestSimilarCombined_BlendsComponents(t *testing.T) {
	source := clip.Reconstruct(clip.Params{
		ID:               "src",
		SummaryEmbedding: []float32{0.1},
		KeywordEmbedding: []float32{0.2},
		ThumbEmbeddings:  [clip.ThumbnailSlots][]float32{{0.3}},
	})
	probes := &mockProber{
		sumHits: []result.Hit{{ID: "a", Score: 0.8}},
		keyHits: []result.Hit{{ID: "a", Score: 0.6}},
	}
	probes.thumbHits[0] = []result.Hit{{ID: "a", Score: 0.5}}

	svc := New(probes, &mockClips{source: source})

	results, err := svc.Similar(context.Background(), makeSimilarRequest(t, mode.SimilarCombined))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	// text: 0.8+0.6 = 1.4; visual: 0.5; combined: 0.5*1.4 + 0.5*0.5 = 0.95
	if got := *results[0].Scores().CombinedSimilarity; math.Abs(got-0.95) > 1e-10 {
		t.Errorf("expected 0.95, got %f", got)
	}
}

func TestSimilarCombined_TextOnlySourceNotRenormalized(t *testing.T) {
	probes := &mockProber{
		sumHits: []result.Hit{{ID: "a", Score: 0.8}},
	}
	svc := New(probes, &mockClips{source: textOnlySource()})

	results, err := svc.Similar(context.Background(), makeSimilarRequest(t, mode.SimilarCombined))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	// The missing visual component does not inflate the text one:
	// 0.5 * 0.8, not 0.8.
	if got := *results[0].Scores().CombinedSimilarity; math.Abs(got-0.4) > 1e-10 {
		t.Errorf("expected 0.4, got %f", got)
	}
}

func TestSimilarCombined_NoVectorsAtAll(t *testing.T) {
	source := clip.Reconstruct(clip.Params{ID: "src"})
	svc := New(&mockProber{}, &mockClips{source: source})

	results, err := svc.Similar(context.Background(), makeSimilarRequest(t, mode.SimilarCombined))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty result, got %d", len(results))
	}
}

func TestSimilarCombined_OneComponentFails(t *testing.T) {
	source := clip.Reconstruct(clip.Params{
		ID:               "src",
		SummaryEmbedding: []float32{0.1},
		ThumbEmbeddings:  [clip.ThumbnailSlots][]float32{{0.3}},
	})
	probes := &mockProber{
		sumErr: errors.New("text index down"),
	}
	probes.thumbHits[0] = []result.Hit{{ID: "a", Score: 0.5}}

	svc := New(probes, &mockClips{source: source})

	results, err := svc.Similar(context.Background(), makeSimilarRequest(t, mode.SimilarCombined))
	if err != nil {
		t.Fatalf("expected degraded success, got %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	// visual only: 0.5 * 0.5 = 0.25
	if got := *results[0].Scores().CombinedSimilarity; math.Abs(got-0.25) > 1e-10 {
		t.Errorf("expected 0.25, got %f", got)
	}
}
