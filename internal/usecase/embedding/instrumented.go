// Package embedding decorates query embedders.
package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/oceanq/internal/domain"
	"github.com/kailas-cloud/oceanq/internal/logger"
)

// SlowThreshold marks embedding calls worth a warning.
const SlowThreshold = 2 * time.Second

// InstrumentedEmbedder wraps an Embedder with request logging.
// Transport metrics (requests, duration, tokens) are recorded in transport/openai.
type InstrumentedEmbedder struct {
	inner    domain.Embedder
	provider string
	model    string
	logger   *zap.Logger
}

// NewInstrumentedEmbedder wraps an embedder. The request-scoped logger from ctx
// takes precedence over the base logger when present.
func NewInstrumentedEmbedder(inner domain.Embedder, provider, model string, base *zap.Logger) *InstrumentedEmbedder {
	if base == nil {
		base = zap.NewNop()
	}
	return &InstrumentedEmbedder{inner: inner, provider: provider, model: model, logger: base}
}

// Embed delegates to the inner embedder and logs the outcome.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	log := logger.FromContextOr(ctx, p.logger).With(zap.String("provider", p.provider), zap.String("model", p.model))
	start := time.Now()

	result, err := p.inner.Embed(ctx, text)
	duration := time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			log.Debug("Embedding request cancelled", zap.Duration("duration", duration))
			return domain.EmbeddingResult{}, ctx.Err()
		}
		log.Warn("Embedding request failed", zap.Duration("duration", duration), zap.Error(err))
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	fields := []zap.Field{
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("total_tokens", result.TotalTokens),
	}
	if duration > SlowThreshold {
		log.Warn("Slow embedding request", fields...)
	} else {
		log.Debug("Embedding request completed", fields...)
	}
	return result, nil
}
