// Package result defines the uniform search hit shape returned by every
// search and similarity path.
package result

import "github.com/kura-media/clipdex/internal/domain/clip"

// Hit is one scored row from a single ranked signal, before fusion and
// before display fields are attached. BM25 hits carry raw BM25 scores, KNN
// hits carry cosine similarity in [0,1]; the scales are never compared
// directly.
type Hit struct {
	ID    string
	Score float64
}

// Display carries the caller-facing fields of a matched clip.
type Display struct {
	FileName          string
	ContentSummary    string
	TranscriptPreview string
	Tags              []string
	DurationSec       float64
	SizeBytes         int64
	CameraMake        string
	CameraModel       string
	Category          string
	CreatedAt         int64
	UpdatedAt         int64
}

// Scores is the mode-tagged score block. Only the fields produced by the
// executed search mode are set; nil means "this signal did not score the row"
// (distinct from a zero score).
type Scores struct {
	FTSScore           *float64 // full-text BM25 relevance
	SummarySimilarity  *float64 // semantic: summary-vector cosine contribution
	KeywordSimilarity  *float64 // semantic: keyword-vector cosine contribution
	CombinedSimilarity *float64 // semantic/similar: weighted combined score
	SimilarityScore    *float64 // hybrid: fused RRF score
	SearchRank         *int     // hybrid/similar: 1-based final rank
}

// Result is a single search hit. The identifier is the only field a caller
// can use to fetch full details afterwards and is never dropped or rewritten
// by any formatting path.
type Result struct {
	id      string
	display Display
	scores  Scores
}

// New creates a search result.
func New(id string, display Display, scores Scores) Result {
	return Result{id: id, display: display, scores: scores}
}

// FromClip builds a result for the given clip with the supplied score block.
func FromClip(c *clip.Clip, scores Scores) Result {
	return New(c.ID(), Display{
		FileName:          c.FileName(),
		ContentSummary:    c.ContentSummary(),
		TranscriptPreview: c.TranscriptPreview(),
		Tags:              c.Tags(),
		DurationSec:       c.DurationSec(),
		SizeBytes:         c.SizeBytes(),
		CameraMake:        c.CameraMake(),
		CameraModel:       c.CameraModel(),
		Category:          c.Category(),
		CreatedAt:         c.CreatedAt(),
		UpdatedAt:         c.UpdatedAt(),
	}, scores)
}

// ID returns the clip identifier.
func (r *Result) ID() string { return r.id }

// Display returns the caller-facing display fields.
func (r *Result) Display() Display { return r.display }

// Scores returns the mode-tagged score block.
func (r *Result) Scores() Scores { return r.scores }

// Score returns the primary ranking score for the mode that produced this
// result, in precedence order: fused, combined, full-text.
func (r *Result) Score() float64 {
	switch {
	case r.scores.SimilarityScore != nil:
		return *r.scores.SimilarityScore
	case r.scores.CombinedSimilarity != nil:
		return *r.scores.CombinedSimilarity
	case r.scores.FTSScore != nil:
		return *r.scores.FTSScore
	default:
		return 0
	}
}

// F64 returns a pointer to v, for building score blocks.
func F64(v float64) *float64 { return &v }

// Int returns a pointer to v, for building score blocks.
func Int(v int) *int { return &v }
