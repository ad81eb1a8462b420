package oceanq

import (
	"context"

	"github.com/kailas-cloud/oceanq/internal/domain/response"
	healthuc "github.com/kailas-cloud/oceanq/internal/usecase/health"
)

// --- answerUseCase mock ---

type mockAnswerUC struct {
	answerFn        func(ctx context.Context, question string) (response.Response, error)
	invalidateFn    func(ctx context.Context, fingerprint string) error
	invalidateAllFn func(ctx context.Context) (int, error)
}

func (m *mockAnswerUC) Answer(ctx context.Context, question string) (response.Response, error) {
	return m.answerFn(ctx, question)
}

func (m *mockAnswerUC) Fingerprint(question string) string {
	return "fp:" + question
}

func (m *mockAnswerUC) Invalidate(ctx context.Context, fingerprint string) error {
	return m.invalidateFn(ctx, fingerprint)
}

func (m *mockAnswerUC) InvalidateAll(ctx context.Context) (int, error) {
	return m.invalidateAllFn(ctx)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report {
	return m.report
}

// --- Embedder mock ---

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}
