// Package answer orchestrates the question-answering pipeline.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/oceanq/internal/domain"
	"github.com/kailas-cloud/oceanq/internal/domain/response"
	"github.com/kailas-cloud/oceanq/internal/logger"
	"github.com/kailas-cloud/oceanq/internal/metrics"
	"github.com/kailas-cloud/oceanq/internal/repository/querycache"
	"github.com/kailas-cloud/oceanq/internal/usecase/compose"
)

// Outcome labels.
const (
	outcomeOK          = "ok"
	outcomeCached      = "cached"
	outcomeUnavailable = "unavailable"
	outcomeInvalid     = "invalid"
	outcomeCancelled   = "cancelled"
	outcomeError       = "error"
)

// Options bounds one invocation.
type Options struct {
	SampleK        int
	CacheTTL       time.Duration
	MaxQuestionLen int
}

// Deps groups the pipeline stages.
type Deps struct {
	Extractor  Extractor
	Planner    Planner
	Selector   Selector
	Sampler    Sampler
	Aggregator Aggregator
	Cache      Cache
}

// Service answers questions.
type Service struct {
	deps  Deps
	opts  Options
	now   func() time.Time
	newID func() string
}

// New creates the answer service. A nil cache disables caching.
func New(deps Deps, opts Options) *Service {
	if opts.SampleK <= 0 {
		opts.SampleK = 200
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Hour
	}
	if opts.MaxQuestionLen <= 0 {
		opts.MaxQuestionLen = 1000
	}
	return &Service{deps: deps, opts: opts, now: time.Now, newID: uuid.NewString}
}

// Answer runs extract, cache lookup, plan, select, sample, aggregate and compose.
// Only domain.ErrRetrievalUnavailable, domain.ErrInvalidQuestion and context
// errors are returned.
func (s *Service) Answer(ctx context.Context, question string) (response.Response, error) {
	start := s.now()
	question = strings.TrimSpace(question)
	if question == "" || utf8.RuneCountInString(question) > s.opts.MaxQuestionLen {
		metrics.AnswersTotal.WithLabelValues(outcomeInvalid).Inc()
		return response.Response{}, fmt.Errorf("%w: length must be between 1 and %d characters",
			domain.ErrInvalidQuestion, s.opts.MaxQuestionLen)
	}

	reqID := s.newID()
	ctx = logger.With(ctx, zap.String("answer_id", reqID))
	log := logger.FromContext(ctx)

	t := time.Now()
	qi := s.deps.Extractor.Extract(question)
	metrics.ObserveStage(metrics.StageIntent, t)
	fp := qi.Fingerprint()

	if entry, ok := s.cacheGet(ctx, fp); ok {
		resp := entry.Response
		cachedAt := entry.CreatedAt
		resp.Meta = response.Meta{
			Fingerprint: fp,
			RequestID:   reqID,
			Cached:      true,
			HitCount:    entry.HitCount,
			CachedAt:    &cachedAt,
			ElapsedMS:   s.now().Sub(start).Milliseconds(),
		}
		metrics.AnswersTotal.WithLabelValues(outcomeCached).Inc()
		log.Debug("answer served from cache", zap.String("fingerprint", fp), zap.Int64("hits", entry.HitCount))
		return resp, nil
	}

	t = time.Now()
	fetchPlan, caveats := s.deps.Planner.Plan(ctx, qi)
	metrics.ObserveStage(metrics.StagePlan, t)

	t = time.Now()
	sel, err := s.deps.Selector.Select(ctx, fetchPlan)
	metrics.ObserveStage(metrics.StageSelect, t)
	if err != nil {
		return response.Response{}, s.fail(ctx, "select", err)
	}

	t = time.Now()
	loaded, err := s.deps.Sampler.Load(ctx, sel.Candidates, qi.Variables(), s.opts.SampleK)
	metrics.ObserveStage(metrics.StageSample, t)
	if err != nil {
		return response.Response{}, s.fail(ctx, "sample", err)
	}

	t = time.Now()
	aggregates := s.deps.Aggregator.Aggregate(loaded.Samples)
	metrics.ObserveStage(metrics.StageAggregate, t)

	t = time.Now()
	resp := compose.Compose(compose.Input{
		Intent:      qi,
		Plan:        fetchPlan,
		Candidates:  sel.Candidates,
		MatchCount:  sel.MatchCount,
		Limit:       sel.Limit,
		Loaded:      loaded.Loaded,
		Aggregates:  aggregates,
		SkipCount:   loaded.SkipCount,
		SkipReasons: loaded.SkipReasons,
		Caveats:     append(caveats, sel.Caveats...),
	})
	metrics.ObserveStage(metrics.StageCompose, t)

	if err := ctx.Err(); err != nil {
		return response.Response{}, s.fail(ctx, "compose", err)
	}
	s.cachePut(ctx, fp, resp)

	resp.Meta.RequestID = reqID
	resp.Meta.ElapsedMS = s.now().Sub(start).Milliseconds()
	metrics.AnswersTotal.WithLabelValues(outcomeOK).Inc()
	metrics.ConfidenceScore.Observe(resp.Confidence)
	log.Info("answer composed",
		zap.String("fingerprint", fp),
		zap.Int("candidates", len(sel.Candidates)),
		zap.Int("sampled", len(loaded.Loaded)),
		zap.Int("skipped", loaded.SkipCount),
		zap.Float64("confidence", resp.Confidence),
	)
	return resp, nil
}

// Invalidate drops one cached answer.
func (s *Service) Invalidate(ctx context.Context, fingerprint string) error {
	if s.deps.Cache == nil {
		return nil
	}
	if err := s.deps.Cache.Invalidate(ctx, fingerprint); err != nil {
		return fmt.Errorf("invalidate %s: %w", fingerprint, err)
	}
	return nil
}

// InvalidateAll drops every cached answer, for use after a data refresh.
func (s *Service) InvalidateAll(ctx context.Context) (int, error) {
	if s.deps.Cache == nil {
		return 0, nil
	}
	n, err := s.deps.Cache.InvalidateAll(ctx)
	if err != nil {
		return n, fmt.Errorf("invalidate all: %w", err)
	}
	logger.FromContext(ctx).Info("answer cache invalidated", zap.Int("entries", n))
	return n, nil
}

// Fingerprint exposes the cache key a question maps to.
func (s *Service) Fingerprint(question string) string {
	return s.deps.Extractor.Extract(strings.TrimSpace(question)).Fingerprint()
}

func (s *Service) cacheGet(ctx context.Context, fp string) (querycache.Entry, bool) {
	if s.deps.Cache == nil {
		return querycache.Entry{}, false
	}
	entry, ok, err := s.deps.Cache.Get(ctx, fp)
	if err != nil {
		metrics.QueryCacheTotal.WithLabelValues("error").Inc()
		logger.FromContext(ctx).Warn("query cache read failed", zap.Error(err))
		return querycache.Entry{}, false
	}
	if !ok {
		metrics.QueryCacheTotal.WithLabelValues("miss").Inc()
		return querycache.Entry{}, false
	}
	metrics.QueryCacheTotal.WithLabelValues("hit").Inc()
	return entry, true
}

func (s *Service) cachePut(ctx context.Context, fp string, resp response.Response) {
	if s.deps.Cache == nil {
		return
	}
	if err := s.deps.Cache.Put(ctx, fp, resp, s.opts.CacheTTL); err != nil {
		logger.FromContext(ctx).Warn("query cache write failed", zap.Error(err))
	}
}

func (s *Service) fail(ctx context.Context, stage string, err error) error {
	log := logger.FromContext(ctx)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		metrics.AnswersTotal.WithLabelValues(outcomeCancelled).Inc()
		log.Debug("answer cancelled", zap.String("stage", stage), zap.Error(err))
	case errors.Is(err, domain.ErrRetrievalUnavailable):
		metrics.AnswersTotal.WithLabelValues(outcomeUnavailable).Inc()
		log.Error("metadata store unavailable", zap.String("stage", stage), zap.Error(err))
	default:
		metrics.AnswersTotal.WithLabelValues(outcomeError).Inc()
		log.Error("answer failed", zap.String("stage", stage), zap.Error(err))
	}
	return err
}
