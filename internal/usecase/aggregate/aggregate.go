// Package aggregate computes pooled statistics over measurement samples.
package aggregate

import (
	"math"
	"sort"

	"github.com/kailas-cloud/oceanq/internal/domain"
	"github.com/kailas-cloud/oceanq/internal/domain/profile"
	"github.com/kailas-cloud/oceanq/internal/domain/stats"
)

// Options sets depth band edges and the anomaly threshold.
type Options struct {
	SurfaceMaxM     float64
	ThermoclineMaxM float64
	AnomalySigma    float64
}

// Aggregator pools QC-passed values per variable. It holds no state between calls.
type Aggregator struct {
	opts Options
}

// New creates an aggregator, defaulting to 200 m / 1000 m bands and 3 sigma.
func New(opts Options) *Aggregator {
	if opts.SurfaceMaxM <= 0 {
		opts.SurfaceMaxM = 200
	}
	if opts.ThermoclineMaxM <= opts.SurfaceMaxM {
		opts.ThermoclineMaxM = 1000
	}
	if opts.AnomalySigma <= 0 {
		opts.AnomalySigma = 3
	}
	return &Aggregator{opts: opts}
}

type pool struct {
	values   []float64
	bands    [3][]float64
	missing  int
	profiles map[string]struct{}
	samples  []profile.MeasurementSample
}

// Aggregate returns one stat per variable with at least one QC-passed value.
// Variables with none are absent from the map.
func (a *Aggregator) Aggregate(samples []profile.MeasurementSample) map[domain.Variable]*stats.AggregateStat {
	pools := make(map[domain.Variable]*pool)
	for _, s := range samples {
		if s.Validate() != nil {
			continue
		}
		p, ok := pools[s.Variable]
		if !ok {
			p = &pool{profiles: make(map[string]struct{})}
			pools[s.Variable] = p
		}
		p.samples = append(p.samples, s)
		for i, v := range s.Values {
			if !s.QCMask[i] || math.IsNaN(v) || math.IsInf(v, 0) {
				p.missing++
				continue
			}
			p.values = append(p.values, v)
			p.profiles[s.CandidateID] = struct{}{}
			if b, ok := a.band(s.Depths[i]); ok {
				p.bands[b] = append(p.bands[b], v)
			}
		}
	}

	out := make(map[domain.Variable]*stats.AggregateStat, len(pools))
	for v, p := range pools {
		if len(p.values) == 0 {
			continue
		}
		out[v] = a.summarize(v, p)
	}
	return out
}

func (a *Aggregator) summarize(v domain.Variable, p *pool) *stats.AggregateStat {
	mean, sd := meanStd(p.values)
	sorted := append([]float64(nil), p.values...)
	sort.Float64s(sorted)

	st := &stats.AggregateStat{
		Unit:         v.Unit(),
		Count:        len(sorted),
		MissingCount: p.missing,
		Mean:         mean,
		Min:          sorted[0],
		Max:          sorted[len(sorted)-1],
		StdDev:       sd,
		Percentiles: stats.Percentiles{
			P10: nearestRank(sorted, 10),
			P50: nearestRank(sorted, 50),
			P90: nearestRank(sorted, 90),
		},
		Surface:     layer(p.bands[0]),
		Thermocline: layer(p.bands[1]),
		Deep:        layer(p.bands[2]),
		Profiles:    len(p.profiles),
	}

	if sd > 0 {
		threshold := a.opts.AnomalySigma * sd
		for _, s := range p.samples {
			flagged := false
			for i, val := range s.Values {
				if !s.QCMask[i] || math.IsNaN(val) || math.IsInf(val, 0) {
					continue
				}
				if math.Abs(val-mean) > threshold {
					st.AnomalyCount++
					flagged = true
				}
			}
			if flagged {
				st.AnomalousProfiles++
			}
		}
	}
	return st
}

// band maps a depth to surface (0), thermocline (1) or deep (2).
// Negative depths are read as their magnitude; NaN depths fall in no band.
func (a *Aggregator) band(depth float64) (int, bool) {
	if math.IsNaN(depth) {
		return 0, false
	}
	d := math.Abs(depth)
	switch {
	case d < a.opts.SurfaceMaxM:
		return 0, true
	case d < a.opts.ThermoclineMaxM:
		return 1, true
	default:
		return 2, true
	}
}

func layer(vals []float64) *stats.LayerStat {
	if len(vals) == 0 {
		return nil
	}
	mean, sd := meanStd(vals)
	lo, hi := vals[0], vals[0]
	for _, v := range vals[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return &stats.LayerStat{Count: len(vals), Mean: mean, Min: lo, Max: hi, StdDev: sd}
}

// meanStd is a two-pass mean and population standard deviation.
func meanStd(vals []float64) (float64, float64) {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean := sum / float64(len(vals))
	var ss float64
	for _, v := range vals {
		d := v - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(len(vals)))
}

// nearestRank returns the p-th percentile of sorted values by the nearest-rank method.
func nearestRank(sorted []float64, p int) float64 {
	rank := (p*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}
