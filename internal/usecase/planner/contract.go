package planner

import (
	"context"

	"github.com/kailas-cloud/oceanq/internal/domain"
)

// Embedder vectorizes the question text for the similarity plan.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
