package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the oceanq service configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metadata  MetadataConfig  `yaml:"metadata"`
	Cache     CacheConfig     `yaml:"cache"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// MetadataConfig holds profile metadata store settings.
type MetadataConfig struct {
	Driver           string `yaml:"driver"` // postgres, sqlite (default: postgres)
	DSN              string `yaml:"dsn"`
	MaxConns         int32  `yaml:"max_conns"`
	MinConns         int32  `yaml:"min_conns"`
	ReadinessTimeout int    `yaml:"readiness_timeout_sec"`
}

// CacheConfig holds query cache settings.
type CacheConfig struct {
	Driver           string   `yaml:"driver"` // redis, memory, none (default: memory)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	Standalone       bool     `yaml:"standalone"` // skip cluster discovery
	KeyPrefix        string   `yaml:"key_prefix"`
	TTLSec           int      `yaml:"ttl_sec"`
	EmbeddingTTLSec  int      `yaml:"embedding_ttl_sec"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings. An empty provider disables similarity search.
type EmbeddingConfig struct {
	Provider         string  `yaml:"provider"` // openai or empty
	APIKey           string  `yaml:"api_key"`
	BaseURL          string  `yaml:"base_url"`
	Model            string  `yaml:"model"`
	Dimensions       int     `yaml:"dimensions"`
	QueryInstruction string  `yaml:"query_instruction"`
	RateLimitRPS     float64 `yaml:"rate_limit_rps"` // 0 = unlimited
	RateLimitBurst   int     `yaml:"rate_limit_burst"`
}

// ArchiveConfig holds measurement archive settings.
type ArchiveConfig struct {
	Root    string `yaml:"root"`
	Workers int    `yaml:"workers"`
}

// PipelineConfig holds retrieval and aggregation bounds.
type PipelineConfig struct {
	CandidateLimit      int     `yaml:"candidate_limit"`
	MaxScan             int     `yaml:"max_scan"`
	SampleK             int     `yaml:"sample_k"`
	SimilarityLimit     int     `yaml:"similarity_limit"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	GridCellDeg         float64 `yaml:"grid_cell_deg"`
	AnomalySigma        float64 `yaml:"anomaly_sigma"`
	SurfaceMaxM         float64 `yaml:"surface_max_m"`
	ThermoclineMaxM     float64 `yaml:"thermocline_max_m"`
	MaxConcurrent       int     `yaml:"max_concurrent"`
	MaxQuestionLen      int     `yaml:"max_question_len"`
	TimeoutSec          int     `yaml:"timeout_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML bytes, expands env variables, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	c.applyStoreDefaults()
	c.applyPipelineDefaults()
}

func (c *Config) applyStoreDefaults() {
	if c.Metadata.Driver == "" {
		c.Metadata.Driver = "postgres"
	}
	if c.Metadata.MaxConns <= 0 {
		c.Metadata.MaxConns = 10
	}
	if c.Metadata.MinConns <= 0 {
		c.Metadata.MinConns = 2
	}
	if c.Metadata.ReadinessTimeout <= 0 {
		c.Metadata.ReadinessTimeout = 10
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "memory"
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "oceanq:"
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 3600
	}
	if c.Cache.EmbeddingTTLSec <= 0 {
		c.Cache.EmbeddingTTLSec = 7 * 24 * 3600
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.Embedding.RateLimitBurst <= 0 {
		c.Embedding.RateLimitBurst = 1
	}
	if c.Archive.Workers <= 0 {
		c.Archive.Workers = 8
	}
}

func (c *Config) applyPipelineDefaults() {
	p := &c.Pipeline
	if p.CandidateLimit <= 0 {
		p.CandidateLimit = 2000
	}
	if p.MaxScan <= 0 {
		p.MaxScan = 10 * p.CandidateLimit
	}
	if p.SampleK <= 0 {
		p.SampleK = 200
	}
	if p.SimilarityLimit <= 0 {
		p.SimilarityLimit = 100
	}
	if p.SimilarityThreshold <= 0 {
		p.SimilarityThreshold = 0.3
	}
	if p.GridCellDeg <= 0 {
		p.GridCellDeg = 5
	}
	if p.AnomalySigma <= 0 {
		p.AnomalySigma = 3
	}
	if p.SurfaceMaxM <= 0 {
		p.SurfaceMaxM = 200
	}
	if p.ThermoclineMaxM <= 0 {
		p.ThermoclineMaxM = 1000
	}
	if p.MaxConcurrent <= 0 {
		p.MaxConcurrent = 32
	}
	if p.MaxQuestionLen <= 0 {
		p.MaxQuestionLen = 1000
	}
	if p.TimeoutSec <= 0 {
		p.TimeoutSec = 30
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Metadata.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("metadata.driver must be \"postgres\" or \"sqlite\", got %q", c.Metadata.Driver)
	}
	if c.Metadata.DSN == "" {
		return fmt.Errorf("metadata.dsn is required")
	}
	switch c.Cache.Driver {
	case "redis":
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("cache.addrs is required for the redis driver")
		}
	case "memory", "none":
	default:
		return fmt.Errorf("cache.driver must be \"redis\", \"memory\" or \"none\", got %q", c.Cache.Driver)
	}
	switch c.Embedding.Provider {
	case "":
	case "openai":
		if c.Embedding.Model == "" {
			return fmt.Errorf("embedding.model is required when embedding.provider is set")
		}
	default:
		return fmt.Errorf("embedding.provider must be \"openai\" or empty, got %q", c.Embedding.Provider)
	}
	if c.Archive.Root == "" {
		return fmt.Errorf("archive.root is required")
	}
	return c.Pipeline.validate()
}

func (p PipelineConfig) validate() error {
	if p.SimilarityThreshold > 1 {
		return fmt.Errorf("pipeline.similarity_threshold must be in (0, 1], got %g", p.SimilarityThreshold)
	}
	if p.SurfaceMaxM >= p.ThermoclineMaxM {
		return fmt.Errorf("pipeline.surface_max_m (%g) must be below pipeline.thermocline_max_m (%g)",
			p.SurfaceMaxM, p.ThermoclineMaxM)
	}
	if p.MaxScan < p.CandidateLimit {
		return fmt.Errorf("pipeline.max_scan (%d) must be at least pipeline.candidate_limit (%d)",
			p.MaxScan, p.CandidateLimit)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
