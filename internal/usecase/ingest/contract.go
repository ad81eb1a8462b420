package ingest

import (
	"context"

	"github.com/kailas-cloud/oceanq/internal/domain"
	"github.com/kailas-cloud/oceanq/internal/domain/profile"
)

// Store persists profile metadata and its optional embedding.
type Store interface {
	Upsert(ctx context.Context, c profile.Candidate, contentText string, embedding []float32) error
}

// Archive reads measurement arrays for the content summary.
type Archive interface {
	ReadVariables(ctx context.Context, handle string, vars []domain.Variable) (map[domain.Variable]profile.Series, error)
}

// Embedder vectorizes content text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
