// Package sampler loads measurement arrays for a stratified subset of candidates.
package sampler

import (
	"context"
	"errors"
	"math"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/oceanq/internal/domain"
	"github.com/kailas-cloud/oceanq/internal/domain/profile"
	"github.com/kailas-cloud/oceanq/internal/domain/sampling"
	"github.com/kailas-cloud/oceanq/internal/logger"
	"github.com/kailas-cloud/oceanq/internal/metrics"
)

// Skip reasons.
const (
	SkipNotFound   = "not_found"
	SkipUnreadable = "unreadable"
	SkipError      = "error"
)

// Result holds loaded samples in candidate order.
type Result struct {
	Samples []profile.MeasurementSample
	// Loaded lists candidates that contributed at least one sample.
	Loaded      []string
	SkipCount   int
	SkipReasons map[string]int
}

// Options configures archive fan-out.
type Options struct {
	Workers int
	CellDeg float64
}

// Sampler reads measurement archives.
type Sampler struct {
	archive Archive
	opts    Options
}

// New creates a sampler.
func New(archive Archive, opts Options) *Sampler {
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	if opts.CellDeg <= 0 {
		opts.CellDeg = sampling.DefaultCellDeg
	}
	return &Sampler{archive: archive, opts: opts}
}

type outcome struct {
	samples []profile.MeasurementSample
	err     error
}

// Load reads up to sampleK candidates chosen by stratification. Missing and
// unreadable archives are skipped and counted; only cancellation is returned.
func (s *Sampler) Load(
	ctx context.Context,
	cands []profile.Candidate,
	vars []domain.Variable,
	sampleK int,
) (Result, error) {
	chosen := sampling.Stratify(cands, sampleK, s.opts.CellDeg)
	res := Result{SkipReasons: map[string]int{}}
	if len(chosen) == 0 {
		return res, ctx.Err()
	}

	outcomes := make([]outcome, len(chosen))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, c := range chosen {
		g.Go(func() error {
			series, err := s.archive.ReadVariables(gctx, c.MeasurementPath, vars)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				outcomes[i] = outcome{err: err}
				return nil
			}
			outcomes[i] = buildSamples(c.ID, series)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		return Result{}, err
	}

	log := logger.FromContext(ctx)
	for i, o := range outcomes {
		if o.err != nil {
			reason := skipReason(o.err)
			res.SkipCount++
			res.SkipReasons[reason]++
			metrics.ArchiveSkipsTotal.WithLabelValues(reason).Inc()
			log.Debug("archive skipped",
				zap.String("candidate_id", chosen[i].ID),
				zap.String("reason", reason),
				zap.Error(o.err),
			)
			continue
		}
		if len(o.samples) == 0 {
			continue
		}
		res.Samples = append(res.Samples, o.samples...)
		res.Loaded = append(res.Loaded, chosen[i].ID)
	}
	return res, nil
}

// buildSamples turns series into validated samples sorted by variable.
// Non-finite values are QC-failed.
func buildSamples(id string, series map[domain.Variable]profile.Series) outcome {
	vars := make([]domain.Variable, 0, len(series))
	for v := range series {
		vars = append(vars, v)
	}
	vars = domain.SortVariables(vars)

	out := make([]profile.MeasurementSample, 0, len(vars))
	for _, v := range vars {
		sr := series[v]
		smp := profile.MeasurementSample{
			CandidateID: id,
			Variable:    v,
			Values:      sr.Values,
			Depths:      sr.Depths,
			QCMask:      sr.QCMask,
		}
		if err := smp.Validate(); err != nil {
			return outcome{err: err}
		}
		mask := make([]bool, len(smp.QCMask))
		for j, ok := range smp.QCMask {
			val := smp.Values[j]
			mask[j] = ok && !math.IsNaN(val) && !math.IsInf(val, 0)
		}
		smp.QCMask = mask
		out = append(out, smp)
	}
	return outcome{samples: out}
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrArchiveNotFound):
		return SkipNotFound
	case errors.Is(err, domain.ErrArchiveUnreadable):
		return SkipUnreadable
	default:
		return SkipError
	}
}
