package chi

import (
	"context"

	"github.com/kailas-cloud/oceanq/internal/domain/response"
	healthuc "github.com/kailas-cloud/oceanq/internal/usecase/health"
)

// AnswerService answers questions and manages the answer cache.
type AnswerService interface {
	Answer(ctx context.Context, question string) (response.Response, error)
	Fingerprint(question string) string
	Invalidate(ctx context.Context, fingerprint string) error
	InvalidateAll(ctx context.Context) (int, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
