package health

import (
	"context"

	"github.com/kailas-cloud/oceanq/internal/domain/plan"
)

// Pinger checks metadata store or cache availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// CoverageSource reports the stored dataset extent. ok is false for an empty store.
type CoverageSource interface {
	Extent(ctx context.Context) (ext plan.Extent, ok bool, err error)
}
