package answer

import (
	"context"
	"time"

	"github.com/kailas-cloud/oceanq/internal/domain"
	"github.com/kailas-cloud/oceanq/internal/domain/intent"
	"github.com/kailas-cloud/oceanq/internal/domain/plan"
	"github.com/kailas-cloud/oceanq/internal/domain/profile"
	"github.com/kailas-cloud/oceanq/internal/domain/response"
	"github.com/kailas-cloud/oceanq/internal/domain/stats"
	"github.com/kailas-cloud/oceanq/internal/repository/querycache"
	"github.com/kailas-cloud/oceanq/internal/usecase/sampler"
	"github.com/kailas-cloud/oceanq/internal/usecase/selector"
)

// Extractor parses question text.
type Extractor interface {
	Extract(text string) intent.QueryIntent
}

// Planner builds fetch plans.
type Planner interface {
	Plan(ctx context.Context, qi intent.QueryIntent) (plan.FetchPlan, []string)
}

// Selector executes fetch plans.
type Selector interface {
	Select(ctx context.Context, fp plan.FetchPlan) (selector.Selection, error)
}

// Sampler loads measurement arrays.
type Sampler interface {
	Load(ctx context.Context, cands []profile.Candidate, vars []domain.Variable, sampleK int) (sampler.Result, error)
}

// Aggregator pools samples into statistics.
type Aggregator interface {
	Aggregate(samples []profile.MeasurementSample) map[domain.Variable]*stats.AggregateStat
}

// Cache memoizes responses by fingerprint. It is the only state shared across calls.
type Cache interface {
	Get(ctx context.Context, fingerprint string) (querycache.Entry, bool, error)
	Put(ctx context.Context, fingerprint string, resp response.Response, ttl time.Duration) error
	Invalidate(ctx context.Context, fingerprint string) error
	InvalidateAll(ctx context.Context) (int, error)
}
