// Package chi exposes the answer engine over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/kailas-cloud/oceanq/internal/domain/plan"
	"github.com/kailas-cloud/oceanq/internal/logger"
	"github.com/kailas-cloud/oceanq/internal/metrics"
	healthuc "github.com/kailas-cloud/oceanq/internal/usecase/health"
)

const maxBodyBytes = 64 << 10

// Options tunes request admission.
type Options struct {
	// MaxConcurrent bounds in-flight answers (default 16).
	MaxConcurrent int64
	// QueueTimeout is how long a request may wait for a slot (default 2s).
	QueueTimeout time.Duration
	// AnswerTimeout bounds one answer; zero means no extra deadline.
	AnswerTimeout time.Duration
	APIKeys       []string
}

// Server serves the answer API.
type Server struct {
	answers AnswerService
	health  HealthChecker
	slots   *semaphore.Weighted
	opts    Options
	logger  *zap.Logger
}

// AnswerRequest is the POST /v1/answer body.
type AnswerRequest struct {
	Question string `json:"question"`
}

// InvalidateRequest is the POST /v1/cache/invalidate body. Exactly one field is used:
// All wins over Fingerprint, which wins over Question.
type InvalidateRequest struct {
	All         bool   `json:"all,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Question    string `json:"question,omitempty"`
}

// InvalidateResponse reports dropped cache entries.
type InvalidateResponse struct {
	Invalidated int    `json:"invalidated"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status   healthuc.Status                 `json:"status"`
	Checks   map[string]healthuc.CheckResult `json:"checks"`
	Coverage *plan.Extent                    `json:"coverage,omitempty"`
}

// NewServer creates an HTTP API server.
func NewServer(answers AnswerService, health HealthChecker, opts Options, log *zap.Logger) *Server {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 16
	}
	if opts.QueueTimeout <= 0 {
		opts.QueueTimeout = 2 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		answers: answers,
		health:  health,
		slots:   semaphore.NewWeighted(opts.MaxConcurrent),
		opts:    opts,
		logger:  log,
	}
}

// Router builds the chi router with the full middleware chain.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(s.opts.APIKeys))
	r.Use(metrics.Middleware())

	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/v1", func(r chi.Router) {
		r.Post("/answer", s.Answer)
		r.Get("/answer", s.AnswerQuery)
		r.Post("/cache/invalidate", s.Invalidate)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeBadRequest, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})
	return r
}

// Answer handles POST /v1/answer.
func (s *Server) Answer(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body: "+err.Error())
		return
	}
	s.answer(w, r, req.Question)
}

// AnswerQuery handles GET /v1/answer?q=...
func (s *Server) AnswerQuery(w http.ResponseWriter, r *http.Request) {
	s.answer(w, r, r.URL.Query().Get("q"))
}

func (s *Server) answer(w http.ResponseWriter, r *http.Request, question string) {
	ctx := r.Context()

	waitCtx, cancelWait := context.WithTimeout(ctx, s.opts.QueueTimeout)
	err := s.slots.Acquire(waitCtx, 1)
	cancelWait()
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.FromContext(ctx).Warn("answer rejected: concurrency limit reached",
			zap.Int64("max_concurrent", s.opts.MaxConcurrent))
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusTooManyRequests, CodeOverloaded, "too many concurrent questions")
		return
	}
	defer s.slots.Release(1)

	if s.opts.AnswerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.AnswerTimeout)
		defer cancel()
	}

	resp, err := s.answers.Answer(ctx, question)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if resp.Meta.Cached {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	writeJSON(w, http.StatusOK, resp)
}

// Invalidate handles POST /v1/cache/invalidate.
func (s *Server) Invalidate(w http.ResponseWriter, r *http.Request) {
	var req InvalidateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body: "+err.Error())
		return
	}

	ctx := r.Context()
	if req.All {
		n, err := s.answers.InvalidateAll(ctx)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, InvalidateResponse{Invalidated: n})
		return
	}

	fp := req.Fingerprint
	if fp == "" && req.Question != "" {
		fp = s.answers.Fingerprint(req.Question)
	}
	if fp == "" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "one of all, fingerprint or question is required")
		return
	}
	if err := s.answers.Invalidate(ctx, fp); err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, InvalidateResponse{Invalidated: 1, Fingerprint: fp})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{
		Status:   report.Status,
		Checks:   report.Checks,
		Coverage: report.Coverage,
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errors.New("body too large")
		}
		return err
	}
	return nil
}
