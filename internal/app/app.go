// Package app is the composition root shared by the CLI and the embeddable SDK.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/oceanq/internal/config"
	dbRedis "github.com/kailas-cloud/oceanq/internal/db/redis"
	"github.com/kailas-cloud/oceanq/internal/domain"
	"github.com/kailas-cloud/oceanq/internal/domain/profile"
	"github.com/kailas-cloud/oceanq/internal/metrics"
	"github.com/kailas-cloud/oceanq/internal/repository/archive"
	"github.com/kailas-cloud/oceanq/internal/repository/embcache"
	profilerepo "github.com/kailas-cloud/oceanq/internal/repository/profile"
	"github.com/kailas-cloud/oceanq/internal/repository/querycache"
	openaiEmb "github.com/kailas-cloud/oceanq/internal/transport/openai"
	"github.com/kailas-cloud/oceanq/internal/usecase/aggregate"
	"github.com/kailas-cloud/oceanq/internal/usecase/answer"
	embeddinguc "github.com/kailas-cloud/oceanq/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/oceanq/internal/usecase/health"
	intentuc "github.com/kailas-cloud/oceanq/internal/usecase/intent"
	"github.com/kailas-cloud/oceanq/internal/usecase/planner"
	"github.com/kailas-cloud/oceanq/internal/usecase/sampler"
	"github.com/kailas-cloud/oceanq/internal/usecase/selector"
)

// Store is everything the composition root needs from a profile store.
type Store interface {
	selector.Store
	healthuc.CoverageSource
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Upsert(ctx context.Context, c profile.Candidate, contentText string, embedding []float32) error
	Close()
}

// Options override parts of the configured wiring.
type Options struct {
	// Embedder replaces the configured provider chain. Health checks then skip embeddings.
	Embedder domain.Embedder
}

// App holds wired components and their cleanup.
type App struct {
	Config   config.Config
	Logger   *zap.Logger
	Store    Store
	Embedder domain.Embedder
	Answers  *answer.Service
	Health   *healthuc.Service
	Archive  *archive.Reader

	closers []func()
}

// Build opens every backend named in cfg and wires the answer pipeline.
// On error everything opened so far is closed.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}
	if err := a.wire(ctx, opts); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases backends in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	_ = a.Logger.Sync()
}

func (a *App) wire(ctx context.Context, opts Options) error {
	cfg, logger := a.Config, a.Logger

	metrics.RegisterPipelineMetrics()
	metrics.RegisterEmbeddingMetrics()

	store, err := openMetadata(ctx, cfg.Metadata)
	if err != nil {
		return err
	}
	a.Store = store
	a.closers = append(a.closers, store.Close)
	logger.Info("Connected to metadata store", zap.String("driver", cfg.Metadata.Driver))

	var (
		kv       *dbRedis.Store
		cache    answer.Cache
		cachePin healthuc.Pinger
	)
	switch cfg.Cache.Driver {
	case "redis":
		kv, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:      cfg.Cache.Addrs,
			Password:   cfg.Cache.Password,
			Standalone: cfg.Cache.Standalone,
		})
		if err != nil {
			return fmt.Errorf("create cache store: %w", err)
		}
		a.closers = append(a.closers, kv.Close)
		readiness := time.Duration(cfg.Cache.ReadinessTimeout) * time.Second
		if err := kv.WaitForReady(ctx, readiness); err != nil {
			return fmt.Errorf("cache not ready: %w", err)
		}
		cache = querycache.NewRedis(kv, cfg.Cache.KeyPrefix, logger)
		cachePin = kv
	case "memory":
		cache = querycache.NewMemory()
	default:
		cache = querycache.Noop{}
	}

	// Nil interfaces, not typed nil pointers, when no provider is configured.
	var (
		embChecker healthuc.EmbeddingChecker
		plannerEmb planner.Embedder
	)
	switch {
	case opts.Embedder != nil:
		a.Embedder = opts.Embedder
		plannerEmb = opts.Embedder
	default:
		if emb, base := buildEmbedder(cfg, kv, logger); emb != nil {
			a.Embedder = emb
			plannerEmb = emb
			embChecker = base
		}
	}

	a.Archive = archive.New(cfg.Archive.Root)

	p := cfg.Pipeline

	a.Answers = answer.New(answer.Deps{
		Extractor: intentuc.New(intentuc.Options{
			SurfaceMaxM:     p.SurfaceMaxM,
			ThermoclineMaxM: p.ThermoclineMaxM,
			Tagger:          intentuc.ProseTagger{},
		}),
		Planner: planner.New(plannerEmb, planner.Options{
			Limit:               p.CandidateLimit,
			SimilarityLimit:     p.SimilarityLimit,
			SimilarityThreshold: p.SimilarityThreshold,
		}),
		Selector: selector.New(store, selector.Options{MaxScan: p.MaxScan, CellDeg: p.GridCellDeg}),
		Sampler: sampler.New(a.Archive, sampler.Options{
			Workers: cfg.Archive.Workers,
			CellDeg: p.GridCellDeg,
		}),
		Aggregator: aggregate.New(aggregate.Options{
			SurfaceMaxM:     p.SurfaceMaxM,
			ThermoclineMaxM: p.ThermoclineMaxM,
			AnomalySigma:    p.AnomalySigma,
		}),
		Cache: cache,
	}, answer.Options{
		SampleK:        p.SampleK,
		CacheTTL:       time.Duration(cfg.Cache.TTLSec) * time.Second,
		MaxQuestionLen: p.MaxQuestionLen,
	})
	a.Health = healthuc.New(store, cachePin, embChecker).WithCoverage(store)
	return nil
}

func openMetadata(ctx context.Context, cfg config.MetadataConfig) (Store, error) {
	readiness := time.Duration(cfg.ReadinessTimeout) * time.Second
	switch cfg.Driver {
	case "sqlite":
		s, err := profilerepo.NewSQLite(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// Local databases are created on first use.
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		return s, nil
	default:
		connectCtx, cancel := context.WithTimeout(ctx, readiness)
		defer cancel()
		s, err := profilerepo.NewPostgres(connectCtx, cfg.DSN, profilerepo.PoolConfig{
			MaxConns: cfg.MaxConns,
			MinConns: cfg.MinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := s.Ping(connectCtx); err != nil {
			s.Close()
			return nil, fmt.Errorf("metadata store not ready: %w", err)
		}
		return s, nil
	}
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction.
// The bare provider is returned alongside for health checks. Both are nil when no
// provider is configured; similarity retrieval is then skipped.
func buildEmbedder(cfg config.Config, kv *dbRedis.Store, logger *zap.Logger) (domain.Embedder, *openaiEmb.Embedder) {
	ec := cfg.Embedding
	if ec.Provider == "" {
		return nil, nil
	}

	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:         ec.APIKey,
		BaseURL:        ec.BaseURL,
		Model:          ec.Model,
		Dimensions:     ec.Dimensions,
		Provider:       ec.Provider,
		RateLimitRPS:   ec.RateLimitRPS,
		RateLimitBurst: ec.RateLimitBurst,
		Logger:         logger,
	})

	var embedder domain.Embedder = base
	if kv != nil {
		embedder = embcache.New(base, kv, embcache.Options{
			KeyPrefix: cfg.Cache.KeyPrefix,
			Model:     ec.Model,
			TTL:       time.Duration(cfg.Cache.EmbeddingTTLSec) * time.Second,
		}, metrics.EmbeddingCacheTotal, logger)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, ec.Provider, ec.Model, logger)

	// Instruction prefix is outermost so the cache key includes it.
	if ec.QueryInstruction != "" {
		embedder = domain.NewInstructionEmbedder(embedder, ec.QueryInstruction)
	}
	return embedder, base
}
