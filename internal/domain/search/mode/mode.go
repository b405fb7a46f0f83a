// Package mode enumerates the search and similarity strategies.
package mode

// Mode is the catalog search strategy.
type Mode string

// Search mode constants.
const (
	// FullText ranks by BM25 relevance over the indexed text fields.
	FullText Mode = "fulltext"
	// Semantic ranks by weighted cosine similarity over the text-space vectors.
	Semantic Mode = "semantic"
	// Hybrid fuses the full-text and semantic rankings via weighted RRF.
	Hybrid Mode = "hybrid"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == FullText || m == Semantic || m == Hybrid
}

// SimilarMode selects which embeddings a "find similar" query compares.
// Mode selection is the caller's explicit intent: a source clip lacking every
// embedding the mode needs yields an empty result, never a silent fallback.
type SimilarMode string

// Similar mode constants.
const (
	// SimilarText compares the stored summary/keyword text vectors.
	SimilarText SimilarMode = "text"
	// SimilarVisual cross-compares the thumbnail vectors across slots.
	SimilarVisual SimilarMode = "visual"
	// SimilarCombined blends the text and visual components.
	SimilarCombined SimilarMode = "combined"
)

// IsValid checks if the similar mode is one of the supported values.
func (m SimilarMode) IsValid() bool {
	return m == SimilarText || m == SimilarVisual || m == SimilarCombined
}
