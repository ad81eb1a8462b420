package oceanq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/oceanq/internal/app"
	"github.com/kailas-cloud/oceanq/internal/config"
	"github.com/kailas-cloud/oceanq/internal/domain"
	"github.com/kailas-cloud/oceanq/internal/domain/response"
)

// Internal interfaces, replaced in tests.
type answerUseCase interface {
	Answer(ctx context.Context, question string) (response.Response, error)
	Fingerprint(question string) string
	Invalidate(ctx context.Context, fingerprint string) error
	InvalidateAll(ctx context.Context) (int, error)
}

// Client is the oceanq SDK entry point. It is safe for concurrent use.
type Client struct {
	closer    func()
	answerSvc answerUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New creates a Client and connects to the metadata store and cache.
// The provided context bounds the initial readiness checks.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.dsn == "" {
		return nil, errors.New("oceanq: metadata store required (use WithPostgres or WithSQLite)")
	}
	if cfg.archiveRoot == "" {
		return nil, errors.New("oceanq: archive root required (use WithArchiveRoot)")
	}

	appCfg, err := cfg.appConfig()
	if err != nil {
		return nil, err
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	var emb domain.Embedder
	if cfg.embedder != nil {
		emb = &embedderAdapter{inner: cfg.embedder}
	}
	a, err := app.Build(ctx, appCfg, zap.NewNop(), app.Options{Embedder: emb})
	if err != nil {
		return nil, fmt.Errorf("oceanq: %w", err)
	}

	return &Client{
		closer:    a.Close,
		answerSvc: a.Answers,
		healthSvc: a.Health,
		obs:       obs,
	}, nil
}

// appConfig maps client options onto the service configuration.
func (c *clientConfig) appConfig() (config.Config, error) {
	cfg := config.Config{
		// Never served; the port only satisfies validation.
		HTTP:     config.HTTPConfig{Port: 8080},
		Metadata: config.MetadataConfig{Driver: c.metadataDriver, DSN: c.dsn},
		Cache: config.CacheConfig{
			Driver:     c.cacheDriver,
			Addrs:      c.cacheAddrs,
			Password:   c.cachePassword,
			Standalone: c.cacheStandalone,
			TTLSec:     c.cacheTTLSec,
		},
		Archive: config.ArchiveConfig{Root: c.archiveRoot},
		Pipeline: config.PipelineConfig{
			CandidateLimit: c.candidateLimit,
			SampleK:        c.sampleK,
		},
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("oceanq: %w", err)
	}
	return cfg, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.closer != nil {
		c.closer()
	}
}

// Ask answers one natural-language question. An empty match is not an error:
// the Response then carries zero counts and a caveat.
func (c *Client) Ask(ctx context.Context, question string) (resp Response, err error) {
	start := time.Now()
	defer func() {
		c.obs.observe("ask", start, err, "cached", resp.Meta.Cached, "matched", resp.Summary.MatchedProfiles)
	}()

	resp, err = c.answerSvc.Answer(ctx, question)
	if err != nil {
		return Response{}, fmt.Errorf("ask: %w", err)
	}
	return resp, nil
}

// Fingerprint returns the cache key Ask uses for question.
func (c *Client) Fingerprint(question string) string {
	return c.answerSvc.Fingerprint(question)
}

// Invalidate drops the cached answer for question and returns its fingerprint.
func (c *Client) Invalidate(ctx context.Context, question string) (fp string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("invalidate", start, err) }()

	fp = c.answerSvc.Fingerprint(question)
	if err = c.answerSvc.Invalidate(ctx, fp); err != nil {
		return "", fmt.Errorf("invalidate: %w", err)
	}
	return fp, nil
}

// InvalidateAll drops every cached answer and returns how many were removed.
func (c *Client) InvalidateAll(ctx context.Context) (n int, err error) {
	start := time.Now()
	defer func() { c.obs.observe("invalidate_all", start, err) }()

	n, err = c.answerSvc.InvalidateAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("invalidate all: %w", err)
	}
	return n, nil
}
