package oceanq

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	metadataDriver string // "postgres" or "sqlite"
	dsn            string
	archiveRoot    string

	cacheDriver     string // "redis", "memory" or "none"
	cacheAddrs      []string
	cachePassword   string
	cacheStandalone bool
	cacheTTLSec     int

	embedder Embedder

	candidateLimit int
	sampleK        int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithPostgres reads profile metadata from a PostgreSQL database.
func WithPostgres(dsn string) Option {
	return optionFunc(func(c *clientConfig) {
		c.metadataDriver = "postgres"
		c.dsn = dsn
	})
}

// WithSQLite reads profile metadata from a SQLite file, creating the schema if needed.
func WithSQLite(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.metadataDriver = "sqlite"
		c.dsn = path
	})
}

// WithArchiveRoot sets the directory measurement paths are resolved against.
func WithArchiveRoot(root string) Option {
	return optionFunc(func(c *clientConfig) {
		c.archiveRoot = root
	})
}

// WithRedisCache stores answers in Redis. Embeddings are cached there too.
func WithRedisCache(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheDriver = "redis"
		c.cacheAddrs = []string{addr}
		c.cachePassword = password
	})
}

// WithStandalone disables cluster topology discovery for the Redis cache.
// Use for single-node Redis or Valkey instances.
func WithStandalone() Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheStandalone = true
	})
}

// WithMemoryCache keeps answers in process memory (default).
func WithMemoryCache() Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheDriver = "memory"
	})
}

// WithoutCache disables answer caching.
func WithoutCache() Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheDriver = "none"
	})
}

// WithCacheTTL sets how long answers stay cached, in seconds. Default: 3600.
func WithCacheTTL(seconds int) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheTTLSec = seconds
	})
}

// WithEmbedder enables similarity retrieval with the given text embedding provider.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithCandidateLimit caps the profiles selected per question. Default: 2000.
func WithCandidateLimit(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.candidateLimit = n
	})
}

// WithSampleK caps the profiles whose measurements are loaded per question. Default: 200.
func WithSampleK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.sampleK = k
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
