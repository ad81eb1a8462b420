package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kailas-cloud/oceanq/internal/app"
	"github.com/kailas-cloud/oceanq/internal/config"
	logpkg "github.com/kailas-cloud/oceanq/internal/logger"
)

func loadConfig() (config.Config, string, error) {
	env := envName
	if env == "" {
		env = config.GetEnv()
	}
	if configPath == "" {
		cfg, err := config.Load(env)
		return cfg, env, err //nolint:wrapcheck // Load already names the file
	}
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return config.Config{}, env, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	cfg, err := config.Parse(data)
	return cfg, env, err //nolint:wrapcheck // Parse errors are self-describing
}

// buildApp loads config, creates the logger and wires the application for a subcommand.
func buildApp(ctx context.Context) (*app.App, string, error) {
	cfg, env, err := loadConfig()
	if err != nil {
		return nil, env, err
	}
	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	logger, err := logpkg.NewLogger(env, level)
	if err != nil {
		return nil, env, fmt.Errorf("create logger: %w", err)
	}
	a, err := app.Build(ctx, cfg, logger, app.Options{})
	if err != nil {
		_ = logger.Sync()
		return nil, env, fmt.Errorf("wire application: %w", err)
	}
	return a, env, nil
}
