// Package health reports component availability.
package health

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/oceanq/internal/domain/plan"
	"github.com/kailas-cloud/oceanq/internal/logger"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional component failed; answers still work.
	Degraded Status = "degraded"
	// Unhealthy indicates the metadata store is down and no answer can be built.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names.
const (
	ComponentMetadata  = "metadata"
	ComponentCache     = "cache"
	ComponentEmbedding = "embedding"
)

// Report aggregates health check results.
// Coverage is nil when the store is empty, down or has no coverage source.
type Report struct {
	Status   Status
	Checks   map[string]CheckResult
	Coverage *plan.Extent
}

// Service coordinates health checks.
type Service struct {
	metadata  Pinger
	cache     Pinger
	embedding EmbeddingChecker
	coverage  CoverageSource
}

// New creates a Service. cache and embedding can be nil.
func New(metadata Pinger, cache Pinger, embedding EmbeddingChecker) *Service {
	return &Service{metadata: metadata, cache: cache, embedding: embedding}
}

// WithCoverage makes Check report the live dataset extent.
func (s *Service) WithCoverage(src CoverageSource) *Service {
	s.coverage = src
	return s
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	log := logger.FromContext(ctx)

	record := func(name string, err error) {
		if err != nil {
			log.Warn("health check failed", zap.String("component", name), zap.Error(err))
			checks[name] = CheckError
			return
		}
		checks[name] = CheckOK
	}

	record(ComponentMetadata, s.metadata.Ping(ctx))
	if s.cache != nil {
		record(ComponentCache, s.cache.Ping(ctx))
	}
	if s.embedding != nil {
		record(ComponentEmbedding, s.embedding.HealthCheck(ctx))
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if checks[ComponentMetadata] == CheckError {
		status = Unhealthy
	}

	report := Report{Status: status, Checks: checks}
	if s.coverage != nil && status != Unhealthy {
		ext, ok, err := s.coverage.Extent(ctx)
		switch {
		case err != nil:
			log.Warn("dataset coverage unavailable", zap.Error(err))
		case ok:
			report.Coverage = &ext
		}
	}
	return report
}
