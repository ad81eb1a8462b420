// Package ingest loads profile manifests into the metadata store.
package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/oceanq/internal/domain"
	"github.com/kailas-cloud/oceanq/internal/domain/profile"
	"github.com/kailas-cloud/oceanq/internal/logger"
)

const maxLineBytes = 1 << 20

// Record is one manifest line: a profile reference plus optional precomputed text.
type Record struct {
	profile.Candidate
	ContentText string `json:"content_text,omitempty"`
}

// Stats summarizes one ingest run.
type Stats struct {
	Read        int `json:"read"`
	Upserted    int `json:"upserted"`
	Embedded    int `json:"embedded"`
	Invalid     int `json:"invalid"`
	EmbedFailed int `json:"embed_failed"`
}

// Options tunes an ingest run.
type Options struct {
	Workers int
}

// Service ingests manifests. Archive and embedder are optional.
type Service struct {
	store    Store
	archive  Archive
	embedder Embedder
	opts     Options
}

// New creates an ingest service.
func New(store Store, archive Archive, embedder Embedder, opts Options) *Service {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	return &Service{store: store, archive: archive, embedder: embedder, opts: opts}
}

// Ingest reads JSON lines from r and upserts every valid record. Malformed lines
// and embedding failures are counted and skipped; a store failure aborts the run.
func (s *Service) Ingest(ctx context.Context, r io.Reader) (Stats, error) {
	log := logger.FromContext(ctx)
	var (
		stats              Stats
		upserted, embedded atomic.Int64
		embedFailed        atomic.Int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineBytes)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		stats.Read++
		rec, err := parseRecord([]byte(text))
		if err != nil {
			stats.Invalid++
			log.Warn("skipping manifest line", zap.Int("line", line), zap.Error(err))
			continue
		}
		if gctx.Err() != nil {
			break
		}
		ln := line
		g.Go(func() error {
			ok, err := s.ingestOne(gctx, rec)
			if err != nil {
				return fmt.Errorf("line %d (%s): %w", ln, rec.ID, err)
			}
			upserted.Add(1)
			switch {
			case ok:
				embedded.Add(1)
			case s.embedder != nil:
				embedFailed.Add(1)
			}
			return nil
		})
	}
	scanErr := sc.Err()
	err := g.Wait()

	stats.Upserted = int(upserted.Load())
	stats.Embedded = int(embedded.Load())
	stats.EmbedFailed = int(embedFailed.Load())
	if err != nil {
		return stats, err
	}
	if scanErr != nil {
		return stats, fmt.Errorf("read manifest: %w", scanErr)
	}
	return stats, ctx.Err()
}

// ingestOne upserts one record; the bool reports whether an embedding was stored.
func (s *Service) ingestOne(ctx context.Context, rec Record) (bool, error) {
	content := rec.ContentText
	if content == "" {
		content = ContentText(rec.Candidate, s.summarize(ctx, rec.Candidate))
	}

	var vec []float32
	if s.embedder != nil {
		res, err := s.embedder.Embed(ctx, content)
		switch {
		case err == nil:
			vec = res.Embedding
		case ctx.Err() != nil:
			return false, ctx.Err()
		default:
			logger.FromContext(ctx).Warn("embedding failed, storing profile without vector",
				zap.String("profile_id", rec.ID), zap.Error(err))
		}
	}

	if err := s.store.Upsert(ctx, rec.Candidate, content, vec); err != nil {
		return false, fmt.Errorf("upsert: %w", err)
	}
	return len(vec) > 0, nil
}

// summarize returns per-variable means of QC-passed values, or nil when the archive is unavailable.
func (s *Service) summarize(ctx context.Context, c profile.Candidate) map[domain.Variable]float64 {
	if s.archive == nil || c.MeasurementPath == "" {
		return nil
	}
	series, err := s.archive.ReadVariables(ctx, c.MeasurementPath, nil)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.FromContext(ctx).Debug("archive summary unavailable",
				zap.String("profile_id", c.ID), zap.Error(err))
		}
		return nil
	}
	means := make(map[domain.Variable]float64, len(series))
	for v, sr := range series {
		var sum float64
		var n int
		for i, val := range sr.Values {
			if i < len(sr.QCMask) && sr.QCMask[i] && !math.IsNaN(val) && !math.IsInf(val, 0) {
				sum += val
				n++
			}
		}
		if n > 0 {
			means[v] = sum / float64(n)
		}
	}
	return means
}

func parseRecord(data []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decode: %w", err)
	}
	c := &rec.Candidate
	switch {
	case c.ID == "":
		return Record{}, errors.New("id is required")
	case c.MeasurementPath == "":
		return Record{}, errors.New("measurement_path is required")
	case c.Time.IsZero():
		return Record{}, errors.New("time is required")
	case c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180:
		return Record{}, fmt.Errorf("position %g,%g out of range", c.Lat, c.Lon)
	}
	if c.DepthMin > c.DepthMax {
		c.DepthMin, c.DepthMax = c.DepthMax, c.DepthMin
	}
	c.VariablesAvailable = domain.SortVariables(c.VariablesAvailable)
	return rec, nil
}

// ContentText renders the text a profile is embedded from.
func ContentText(c profile.Candidate, means map[domain.Variable]float64) string {
	parts := []string{
		fmt.Sprintf("Oceanographic profile at latitude %.3f, longitude %.3f", c.Lat, c.Lon),
		"Date: " + c.Time.UTC().Format("2006-01-02"),
	}
	if c.Institution != "" {
		parts = append(parts, "Institution: "+c.Institution)
	}
	if c.PlatformNumber != "" {
		parts = append(parts, "Platform: "+c.PlatformNumber)
	}
	if c.DepthMax > 0 {
		parts = append(parts, fmt.Sprintf("Depth: %gm to %gm", c.DepthMin, c.DepthMax))
	}
	if len(c.VariablesAvailable) > 0 {
		names := make([]string, len(c.VariablesAvailable))
		for i, v := range c.VariablesAvailable {
			names[i] = string(v)
		}
		parts = append(parts, "Variables: "+strings.Join(names, ", "))
	}
	if len(means) > 0 {
		vars := make([]domain.Variable, 0, len(means))
		for v := range means {
			vars = append(vars, v)
		}
		sort.Slice(vars, func(i, j int) bool { return vars[i] < vars[j] })
		ms := make([]string, len(vars))
		for i, v := range vars {
			ms[i] = fmt.Sprintf("%s %.2f", v, means[v])
		}
		parts = append(parts, "Mean values: "+strings.Join(ms, ", "))
	}
	return strings.Join(parts, " | ")
}
