// Package planner turns query intents into bounded fetch plans.
package planner

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/kailas-cloud/oceanq/internal/domain/geo"
	"github.com/kailas-cloud/oceanq/internal/domain/intent"
	"github.com/kailas-cloud/oceanq/internal/domain/plan"
	"github.com/kailas-cloud/oceanq/internal/logger"
	"github.com/kailas-cloud/oceanq/internal/metrics"
)

// Caveats surfaced when the similarity plan is dropped.
const (
	CaveatEmbeddingFailed = "similarity search skipped: the question could not be embedded"
)

// Options configures plan bounds.
type Options struct {
	Limit               int
	SimilarityLimit     int
	SimilarityThreshold float64
}

// Planner builds fetch plans. Embedder may be nil, which disables similarity plans.
type Planner struct {
	embedder Embedder
	opts     Options
}

// New creates a planner.
func New(embedder Embedder, opts Options) *Planner {
	if opts.Limit <= 0 {
		opts.Limit = 2000
	}
	if opts.SimilarityLimit <= 0 {
		opts.SimilarityLimit = 100
	}
	return &Planner{embedder: embedder, opts: opts}
}

// Plan always returns a structured plan and adds a similarity plan when the
// intent's strong filters are weak and the text carries descriptive language.
// Unset region and time stay unbounded so the plan covers the whole dataset,
// including profiles ingested after startup.
func (p *Planner) Plan(ctx context.Context, qi intent.QueryIntent) (plan.FetchPlan, []string) {
	sp := plan.StructuredPlan{
		BBox:         geo.World(),
		DepthRange:   qi.DepthRange(),
		Variables:    qi.Variables(),
		KeywordTerms: qi.KeywordTerms(),
		Limit:        p.opts.Limit,
	}
	if r := qi.Region(); r != nil {
		sp.BBox = r.BBox
	}
	if tr := qi.TimeRange(); tr != nil {
		sp.TimeRange = *tr
	}

	fp := plan.FetchPlan{Structured: sp}
	if !NeedsSimilarity(qi) {
		return fp, nil
	}
	if p.embedder == nil {
		metrics.SimilarityPlansTotal.WithLabelValues("skipped").Inc()
		return fp, nil
	}

	res, err := p.embedder.Embed(ctx, qi.RawText())
	if err != nil || len(res.Embedding) == 0 {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fp, nil
		}
		metrics.SimilarityPlansTotal.WithLabelValues("failed").Inc()
		logger.FromContext(ctx).Warn("similarity plan dropped", zap.Error(err))
		return fp, []string{CaveatEmbeddingFailed}
	}

	metrics.SimilarityPlansTotal.WithLabelValues("built").Inc()
	fp.Similarity = &plan.SimilarityPlan{
		QueryText:           qi.RawText(),
		Embedding:           res.Embedding,
		Dimensions:          len(res.Embedding),
		SimilarityThreshold: p.opts.SimilarityThreshold,
		Limit:               p.opts.SimilarityLimit,
	}
	return fp, nil
}

// NeedsSimilarity reports whether fewer than two of region, time and depth are
// set and the text has descriptive terms left over.
func NeedsSimilarity(qi intent.QueryIntent) bool {
	return qi.StrongFilterCount() < 2 && len(qi.DescriptiveTerms()) > 0
}
