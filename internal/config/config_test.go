package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Metadata: MetadataConfig{Driver: "sqlite", DSN: "file::memory:"},
		Archive:  ArchiveConfig{Root: "/data/argo"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_UnknownMetadataDriver(t *testing.T) {
	cfg := validConfig()
	cfg.Metadata.Driver = "mysql"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}

	expected := `metadata.driver must be "postgres" or "sqlite", got "mysql"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_RedisRequiresAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.Driver = "redis"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing redis addrs")
	}

	cfg.Cache.Addrs = []string{"localhost:6379"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_EmbeddingProvider(t *testing.T) {
	tests := []struct {
		provider, model string
		wantErr         bool
	}{
		{"", "", false},
		{"openai", "text-embedding-3-small", false},
		{"openai", "", true},
		{"cohere", "embed", true},
	}
	for _, tc := range tests {
		t.Run("provider="+tc.provider, func(t *testing.T) {
			cfg := validConfig()
			cfg.Embedding.Provider = tc.provider
			cfg.Embedding.Model = tc.model

			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("wantErr=%v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestValidate_DepthBands(t *testing.T) {
	cfg := validConfig()
	cfg.Pipeline.SurfaceMaxM = 1000
	cfg.Pipeline.ThermoclineMaxM = 200

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for inverted depth bands")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Metadata.Driver != "postgres" {
		t.Errorf("expected postgres driver, got %q", cfg.Metadata.Driver)
	}
	if cfg.Cache.Driver != "memory" {
		t.Errorf("expected memory cache, got %q", cfg.Cache.Driver)
	}
	if cfg.Cache.TTLSec != 3600 {
		t.Errorf("expected TTLSec=3600, got %d", cfg.Cache.TTLSec)
	}
	if cfg.Cache.KeyPrefix != "oceanq:" {
		t.Errorf("expected KeyPrefix='oceanq:', got %q", cfg.Cache.KeyPrefix)
	}
	if cfg.Pipeline.CandidateLimit != 2000 {
		t.Errorf("expected CandidateLimit=2000, got %d", cfg.Pipeline.CandidateLimit)
	}
	if cfg.Pipeline.MaxScan != 20000 {
		t.Errorf("expected MaxScan=20000, got %d", cfg.Pipeline.MaxScan)
	}
	if cfg.Pipeline.AnomalySigma != 3 {
		t.Errorf("expected AnomalySigma=3, got %g", cfg.Pipeline.AnomalySigma)
	}
	if cfg.Pipeline.SurfaceMaxM != 200 || cfg.Pipeline.ThermoclineMaxM != 1000 {
		t.Errorf("unexpected depth bands %g/%g", cfg.Pipeline.SurfaceMaxM, cfg.Pipeline.ThermoclineMaxM)
	}
	if cfg.Pipeline.SimilarityThreshold != 0.3 {
		t.Errorf("expected SimilarityThreshold=0.3, got %g", cfg.Pipeline.SimilarityThreshold)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Cache:    CacheConfig{KeyPrefix: "custom:", TTLSec: 60},
		Pipeline: PipelineConfig{CandidateLimit: 500, SampleK: 50},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Cache.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Cache.KeyPrefix)
	}
	if cfg.Pipeline.MaxScan != 5000 {
		t.Errorf("expected MaxScan derived from limit, got %d", cfg.Pipeline.MaxScan)
	}
	if cfg.Pipeline.SampleK != 50 {
		t.Errorf("expected SampleK=50, got %d", cfg.Pipeline.SampleK)
	}
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("OCEANQ_TEST_DSN", "postgres://argo@db/argo")

	data := []byte(strings.Join([]string{
		"http:",
		"  port: ${OCEANQ_TEST_PORT:-9090}",
		"metadata:",
		"  dsn: ${OCEANQ_TEST_DSN}",
		"archive:",
		"  root: /srv/argo",
	}, "\n"))

	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("expected default port 9090, got %d", cfg.HTTP.Port)
	}
	if cfg.Metadata.DSN != "postgres://argo@db/argo" {
		t.Errorf("unexpected dsn %q", cfg.Metadata.DSN)
	}
}
