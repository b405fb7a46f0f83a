// Package embedding decorates embedding providers with observability.
package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kura-media/clipdex/internal/domain"
	"github.com/kura-media/clipdex/internal/metrics"
)

// InstrumentedEmbedder wraps a TextEmbedder with metrics and logging.
type InstrumentedEmbedder struct {
	inner  domain.TextEmbedder
	space  string
	model  string
	logger *zap.Logger
}

// NewInstrumented wraps a text embedder with observability.
func NewInstrumented(inner domain.TextEmbedder, model string, logger *zap.Logger) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{inner: inner, space: "text", model: model, logger: logger}
}

// Embed delegates to the inner embedder and records request metrics.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()

	result, err := p.inner.Embed(ctx, text)

	duration := time.Since(start)
	metrics.EmbeddingRequestDuration.WithLabelValues(p.space, p.model).Observe(duration.Seconds())

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(p.space, p.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(p.space, p.model, "provider").Inc()
		p.logger.Error("Embedding request failed",
			zap.String("space", p.space),
			zap.String("model", p.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(p.space, p.model, "ok").Inc()
	if result.PromptTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(p.space, p.model, "prompt").Add(float64(result.PromptTokens))
	}
	if result.TotalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(p.space, p.model, "total").Add(float64(result.TotalTokens))
	}

	p.logger.Debug("Embedding request completed",
		zap.String("space", p.space),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return result, nil
}

// InstrumentedImageEmbedder wraps an ImageEmbedder with metrics and logging.
type InstrumentedImageEmbedder struct {
	inner  domain.ImageEmbedder
	space  string
	model  string
	logger *zap.Logger
}

// NewInstrumentedImage wraps an image embedder with observability.
func NewInstrumentedImage(inner domain.ImageEmbedder, model string, logger *zap.Logger) *InstrumentedImageEmbedder {
	return &InstrumentedImageEmbedder{inner: inner, space: "visual", model: model, logger: logger}
}

// EmbedImage delegates to the inner embedder and records request metrics.
func (p *InstrumentedImageEmbedder) EmbedImage(ctx context.Context, dataURI string) (domain.EmbeddingResult, error) {
	start := time.Now()

	result, err := p.inner.EmbedImage(ctx, dataURI)

	duration := time.Since(start)
	metrics.EmbeddingRequestDuration.WithLabelValues(p.space, p.model).Observe(duration.Seconds())

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(p.space, p.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(p.space, p.model, "provider").Inc()
		p.logger.Error("Image embedding request failed",
			zap.String("space", p.space),
			zap.String("model", p.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed image: %w", err)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(p.space, p.model, "ok").Inc()
	if result.TotalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(p.space, p.model, "total").Add(float64(result.TotalTokens))
	}

	p.logger.Debug("Image embedding request completed",
		zap.String("space", p.space),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
	)

	return result, nil
}
