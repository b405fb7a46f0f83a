// Package request defines validated search and similarity queries.
package request

import (
	"fmt"
	"strings"

	"github.com/kura-media/clipdex/internal/domain"
	"github.com/kura-media/clipdex/internal/domain/search/filter"
	"github.com/kura-media/clipdex/internal/domain/search/mode"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	DefaultLimit   = 20
	MaxLimit       = 100
	// DefaultRRFK is the Reciprocal Rank Fusion constant (Cormack et al. 2009).
	DefaultRRFK = 60
	// OverFetchFactor is how many candidates each hybrid sub-search retrieves
	// relative to the final limit, to give the fusion ranking headroom.
	OverFetchFactor = 2
)

// HybridWeights holds the per-source fusion weights and the RRF constant.
// Weights scale each source's rank-based contribution; a zero weight removes
// that source from fusion entirely.
type HybridWeights struct {
	FullText float64
	Summary  float64
	Keyword  float64
	RRFK     int
}

// DefaultHybridWeights returns the deployment defaults: all sources equal.
func DefaultHybridWeights() HybridWeights {
	return HybridWeights{FullText: 1, Summary: 1, Keyword: 1, RRFK: DefaultRRFK}
}

func (w *HybridWeights) validate() error {
	if w.FullText < 0 || w.Summary < 0 || w.Keyword < 0 {
		return fmt.Errorf("%w: hybrid weights must be non-negative", domain.ErrInvalidArgument)
	}
	if w.FullText == 0 && w.Summary == 0 && w.Keyword == 0 {
		return fmt.Errorf("%w: at least one hybrid weight must be positive", domain.ErrInvalidArgument)
	}
	if w.RRFK <= 0 {
		w.RRFK = DefaultRRFK
	}
	return nil
}

// Request is a validated catalog search query.
type Request struct {
	query    string
	mode     mode.Mode
	filters  filter.Filters
	limit    int
	minScore float64
	weights  HybridWeights
}

// New validates and normalizes search parameters.
// Defaults: mode=hybrid, limit=20, weights all 1, rrf k=60.
// An empty or whitespace-only query is legal and yields an empty result.
func New(
	query string,
	m mode.Mode,
	filters filter.Filters,
	limit int,
	minScore float64,
	weights HybridWeights,
) (Request, error) {
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidArgument, MaxQueryLength)
	}
	if m == "" {
		m = mode.Hybrid
	}
	if !m.IsValid() {
		return Request{}, fmt.Errorf("%w: invalid search mode %q", domain.ErrInvalidArgument, m)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if minScore < 0 || minScore > 1 {
		return Request{}, fmt.Errorf("%w: min_score must be between 0 and 1", domain.ErrInvalidArgument)
	}
	if (weights == HybridWeights{}) {
		weights = DefaultHybridWeights()
	}
	if err := weights.validate(); err != nil {
		return Request{}, err
	}

	return Request{
		query:    strings.TrimSpace(query),
		mode:     m,
		filters:  filters,
		limit:    limit,
		minScore: minScore,
		weights:  weights,
	}, nil
}

// Query returns the trimmed search query text.
func (r *Request) Query() string { return r.query }

// IsEmptyQuery reports whether the query is empty after trimming.
func (r *Request) IsEmptyQuery() bool { return r.query == "" }

// Mode returns the search strategy.
func (r *Request) Mode() mode.Mode { return r.mode }

// Filters returns the pre-filter.
func (r *Request) Filters() filter.Filters { return r.filters }

// Limit returns the maximum results to return.
func (r *Request) Limit() int { return r.limit }

// OverFetch returns the candidate pool size for each hybrid sub-search.
func (r *Request) OverFetch() int { return r.limit * OverFetchFactor }

// MinScore returns the minimum similarity threshold (semantic mode only).
func (r *Request) MinScore() float64 { return r.minScore }

// Weights returns the hybrid fusion weights.
func (r *Request) Weights() HybridWeights { return r.weights }
