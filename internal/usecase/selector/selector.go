// Package selector executes fetch plans and returns a capped, stratified candidate list.
package selector

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/kailas-cloud/oceanq/internal/domain"
	"github.com/kailas-cloud/oceanq/internal/domain/plan"
	"github.com/kailas-cloud/oceanq/internal/domain/profile"
	"github.com/kailas-cloud/oceanq/internal/domain/sampling"
	"github.com/kailas-cloud/oceanq/internal/logger"
	"github.com/kailas-cloud/oceanq/internal/metrics"
)

// Selection is the ordered candidate list plus the population it was drawn from.
type Selection struct {
	Candidates []profile.Candidate
	// MatchCount is the unbounded structured match count plus similarity-only hits.
	MatchCount int
	Limit      int
	Caveats    []string
}

// Options bounds the structured scan.
type Options struct {
	// MaxScan caps how many structured rows are fetched for stratification.
	MaxScan int
	CellDeg float64
}

// Selector runs fetch plans against the metadata store.
type Selector struct {
	store Store
	opts  Options
}

// New creates a selector.
func New(store Store, opts Options) *Selector {
	if opts.CellDeg <= 0 {
		opts.CellDeg = sampling.DefaultCellDeg
	}
	return &Selector{store: store, opts: opts}
}

// Select executes the plan. Store failures return domain.ErrRetrievalUnavailable;
// cancellation returns the context error. An empty result is not an error.
func (s *Selector) Select(ctx context.Context, fp plan.FetchPlan) (Selection, error) {
	sp := fp.Structured
	limit := sp.Limit
	if limit <= 0 {
		return Selection{}, nil
	}

	count, err := s.store.CountStructured(ctx, sp)
	if err != nil {
		return Selection{}, storeError(ctx, "count structured", err)
	}

	sel := Selection{MatchCount: count, Limit: limit}

	var structured []profile.Candidate
	if count > 0 {
		fetch := limit
		if count > limit {
			fetch = min(count, max(s.opts.MaxScan, limit))
		}
		if count > fetch {
			// Spread the capped scan over every matching year.
			structured, err = s.store.SampleStructured(ctx, sp, fetch)
			if err != nil {
				return Selection{}, storeError(ctx, "sample structured", err)
			}
			sel.Caveats = append(sel.Caveats, fmt.Sprintf(
				"%d profiles matched; the sample was stratified from %d drawn across the whole match set",
				count, fetch))
		} else {
			structured, err = s.store.QueryStructured(ctx, sp, fetch)
			if err != nil {
				return Selection{}, storeError(ctx, "query structured", err)
			}
		}
		if len(structured) > limit {
			structured = sampling.Stratify(structured, limit, s.opts.CellDeg)
		}
	}

	var similar []profile.Candidate
	if sim := fp.Similarity; sim != nil && len(sim.Embedding) > 0 {
		similar, err = s.store.QueryBySimilarity(ctx, sim.Embedding, sim.SimilarityThreshold, sim.Limit)
		if err != nil {
			return Selection{}, storeError(ctx, "query by similarity", err)
		}
	}

	merged, simOnly := Merge(structured, similar)
	sel.MatchCount += simOnly
	if len(merged) > limit {
		merged = merged[:limit]
	}
	sel.Candidates = merged

	metrics.CandidatesSelected.Observe(float64(len(merged)))
	logger.FromContext(ctx).Debug("candidates selected",
		zap.Int("match_count", count),
		zap.Int("structured", len(structured)),
		zap.Int("similarity", len(similar)),
		zap.Int("selected", len(merged)),
	)
	return sel, nil
}

// Merge deduplicates by id, keeping the higher match score. Structured hits rank
// above similarity-only hits; each group is ordered by score desc, time desc, id asc.
// It returns the merged list and the number of similarity-only candidates.
func Merge(structured, similar []profile.Candidate) ([]profile.Candidate, int) {
	out := make([]profile.Candidate, 0, len(structured)+len(similar))
	pos := make(map[string]int, len(structured)+len(similar))

	for _, c := range structured {
		c.Source = profile.SourceStructured
		if i, ok := pos[c.ID]; ok {
			if c.MatchScore > out[i].MatchScore {
				out[i] = c
			}
			continue
		}
		pos[c.ID] = len(out)
		out = append(out, c)
	}
	nStructured := len(out)

	for _, c := range similar {
		if i, ok := pos[c.ID]; ok {
			if c.MatchScore > out[i].MatchScore {
				out[i].MatchScore = c.MatchScore
			}
			continue
		}
		c.Source = profile.SourceSimilarity
		pos[c.ID] = len(out)
		out = append(out, c)
	}

	sortGroup(out[:nStructured])
	sortGroup(out[nStructured:])
	return out, len(out) - nStructured
}

func sortGroup(cs []profile.Candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if a.MatchScore != b.MatchScore {
			return a.MatchScore > b.MatchScore
		}
		if !a.Time.Equal(b.Time) {
			return a.Time.After(b.Time)
		}
		return a.ID < b.ID
	})
}

func storeError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrRetrievalUnavailable, op, err)
}
