package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	logpkg "github.com/kailas-cloud/oceanq/internal/logger"
	"github.com/kailas-cloud/oceanq/internal/usecase/ingest"
)

var (
	ingestWorkers    int
	ingestNoEmbed    bool
	ingestKeepCached bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <manifest.jsonl|->",
	Short: "Load a JSON-lines profile manifest into the metadata store",
	Long: `Each manifest line is one profile: id, lat, lon, time, measurement_path and
optionally depth_min, depth_max, institution, platform_number,
variables_available and content_text. When an embedding provider is
configured the content text is embedded for similarity retrieval.
Cached answers are invalidated afterwards unless --keep-cache is set.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, _, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		ctx = logpkg.ContextWithLogger(ctx, a.Logger)

		var in io.Reader = cmd.InOrStdin()
		if args[0] != "-" {
			f, err := os.Open(filepath.Clean(args[0]))
			if err != nil {
				return fmt.Errorf("open manifest: %w", err)
			}
			defer func() { _ = f.Close() }()
			in = f
		}

		var emb ingest.Embedder
		if a.Embedder != nil && !ingestNoEmbed {
			emb = a.Embedder
		}
		svc := ingest.New(a.Store, a.Archive, emb, ingest.Options{Workers: ingestWorkers})

		stats, err := svc.Ingest(ctx, in)
		a.Logger.Info("Ingest finished",
			zap.Int("read", stats.Read),
			zap.Int("upserted", stats.Upserted),
			zap.Int("embedded", stats.Embedded),
			zap.Int("invalid", stats.Invalid),
			zap.Int("embed_failed", stats.EmbedFailed),
		)
		if err != nil {
			return fmt.Errorf("ingest: %w", err)
		}

		if !ingestKeepCached && stats.Upserted > 0 {
			if _, err := a.Answers.InvalidateAll(ctx); err != nil {
				a.Logger.Warn("Failed to invalidate answer cache", zap.Error(err))
			}
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		return enc.Encode(stats) //nolint:wrapcheck // stdout write
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create metadata tables and indexes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		a, _, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Store.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		a.Logger.Info("Metadata schema is up to date", zap.String("driver", a.Config.Metadata.Driver))
		return nil
	},
}

func init() {
	ingestCmd.Flags().IntVar(&ingestWorkers, "workers", 4, "Concurrent upserts")
	ingestCmd.Flags().BoolVar(&ingestNoEmbed, "no-embed", false, "Skip embedding even when a provider is configured")
	ingestCmd.Flags().BoolVar(&ingestKeepCached, "keep-cache", false, "Do not invalidate cached answers")
}
