package selector

import (
	"context"

	"github.com/kailas-cloud/oceanq/internal/domain/plan"
	"github.com/kailas-cloud/oceanq/internal/domain/profile"
)

// Store is the metadata store contract. QueryStructured orders newest first;
// SampleStructured uses a stable order spread across the whole match set.
type Store interface {
	QueryStructured(ctx context.Context, p plan.StructuredPlan, limit int) ([]profile.Candidate, error)
	SampleStructured(ctx context.Context, p plan.StructuredPlan, limit int) ([]profile.Candidate, error)
	CountStructured(ctx context.Context, p plan.StructuredPlan) (int, error)
	QueryBySimilarity(ctx context.Context, embedding []float32, threshold float64, limit int) ([]profile.Candidate, error)
}
