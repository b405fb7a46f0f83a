package domain

import "context"

// Two vector spaces exist side by side: free text (summaries, keyword text)
// and visuals (thumbnail frames). Vectors from different spaces are never
// comparable; each space has its own fixed dimension.

// TextEmbedder vectorizes free text into the text space.
type TextEmbedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// ImageEmbedder vectorizes an image (base64 data URI) into the visual space.
type ImageEmbedder interface {
	EmbedImage(ctx context.Context, dataURI string) (EmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the
// decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}
