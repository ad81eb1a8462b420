package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/kailas-cloud/oceanq/internal/domain"
	"github.com/kailas-cloud/oceanq/internal/domain/plan"
	"github.com/kailas-cloud/oceanq/internal/domain/profile"
	"github.com/kailas-cloud/oceanq/internal/domain/response"
	"github.com/kailas-cloud/oceanq/internal/repository/querycache"
	"github.com/kailas-cloud/oceanq/internal/usecase/aggregate"
	intentx "github.com/kailas-cloud/oceanq/internal/usecase/intent"
	"github.com/kailas-cloud/oceanq/internal/usecase/planner"
	"github.com/kailas-cloud/oceanq/internal/usecase/sampler"
	"github.com/kailas-cloud/oceanq/internal/usecase/selector"
)

type mockSelector struct {
	selectFn func(ctx context.Context, fp plan.FetchPlan) (selector.Selection, error)
	calls    atomic.Int32
}

func (m *mockSelector) Select(ctx context.Context, fp plan.FetchPlan) (selector.Selection, error) {
	m.calls.Add(1)
	return m.selectFn(ctx, fp)
}

type mockSampler struct {
	loadFn func(ctx context.Context, cands []profile.Candidate, vars []domain.Variable, k int) (sampler.Result, error)
}

func (m *mockSampler) Load(
	ctx context.Context, cands []profile.Candidate, vars []domain.Variable, k int,
) (sampler.Result, error) {
	return m.loadFn(ctx, cands, vars, k)
}

type failingCache struct {
	querycache.Noop
	getErr, putErr error
	puts           int
}

func (f *failingCache) Get(context.Context, string) (querycache.Entry, bool, error) {
	return querycache.Entry{}, false, f.getErr
}

func (f *failingCache) Put(context.Context, string, response.Response, time.Duration) error {
	f.puts++
	return f.putErr
}

func testCandidates() []profile.Candidate {
	day := time.Date(2005, 6, 1, 0, 0, 0, 0, time.UTC)
	return []profile.Candidate{
		{ID: "p1", Lat: -10, Lon: 70, Time: day, Institution: "INCOIS", MeasurementPath: "p1.parquet"},
		{ID: "p2", Lat: -12, Lon: 75, Time: day.AddDate(0, 1, 0), Institution: "CSIRO", MeasurementPath: "p2.parquet"},
	}
}

func okSelector() *mockSelector {
	return &mockSelector{selectFn: func(_ context.Context, fp plan.FetchPlan) (selector.Selection, error) {
		return selector.Selection{Candidates: testCandidates(), MatchCount: 2, Limit: fp.Structured.Limit}, nil
	}}
}

func okSampler() *mockSampler {
	return &mockSampler{loadFn: func(
		_ context.Context, cands []profile.Candidate, vars []domain.Variable, _ int,
	) (sampler.Result, error) {
		res := sampler.Result{SkipReasons: map[string]int{}}
		for i, c := range cands {
			for _, v := range vars {
				res.Samples = append(res.Samples, profile.MeasurementSample{
					CandidateID: c.ID,
					Variable:    v,
					Values:      []float64{10 + float64(i), 12 + float64(i)},
					Depths:      []float64{5, 50},
					QCMask:      []bool{true, true},
				})
			}
			res.Loaded = append(res.Loaded, c.ID)
		}
		return res, nil
	}}
}

func newTestService(sel Selector, smp Sampler, cache Cache) *Service {
	ex := intentx.New(intentx.Options{
		Now: func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) },
	})
	pl := planner.New(nil, planner.Options{})
	svc := New(Deps{
		Extractor:  ex,
		Planner:    pl,
		Selector:   sel,
		Sampler:    smp,
		Aggregator: aggregate.New(aggregate.Options{}),
		Cache:      cache,
	}, Options{SampleK: 10, CacheTTL: time.Minute})
	var n atomic.Int32
	svc.newID = func() string { return fmt.Sprintf("req-%d", n.Add(1)) }
	return svc
}

const question = "average temperature in the Indian Ocean in 2005"

func TestAnswer_ComposesResponse(t *testing.T) {
	svc := newTestService(okSelector(), okSampler(), querycache.NewMemory())

	resp, err := svc.Answer(context.Background(), question)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Summary.MatchedProfiles != 2 || resp.Summary.SampledProfiles != 2 {
		t.Errorf("summary = %+v", resp.Summary)
	}
	st := resp.Measurements[string(domain.Temperature)]
	if st == nil {
		t.Fatalf("missing temperature stats: %v", resp.Measurements)
	}
	if st.Count != 4 || st.Mean != 11.5 {
		t.Errorf("temperature count=%d mean=%v, want 4 and 11.5", st.Count, st.Mean)
	}
	if resp.Meta.Cached || resp.Meta.RequestID != "req-1" || resp.Meta.Fingerprint == "" {
		t.Errorf("meta = %+v", resp.Meta)
	}
	if resp.Confidence <= 0 || resp.Confidence > 1 {
		t.Errorf("confidence = %v", resp.Confidence)
	}
}

func TestAnswer_SecondCallServedFromCache(t *testing.T) {
	sel := okSelector()
	svc := newTestService(sel, okSampler(), querycache.NewMemory())

	first, err := svc.Answer(context.Background(), question)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := svc.Answer(context.Background(), "  "+question+"  ")
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if got := sel.calls.Load(); got != 1 {
		t.Errorf("selector calls = %d, want 1", got)
	}
	if !second.Meta.Cached || second.Meta.HitCount != 1 || second.Meta.CachedAt == nil {
		t.Errorf("second meta = %+v", second.Meta)
	}
	if second.Meta.Fingerprint != first.Meta.Fingerprint {
		t.Errorf("fingerprint changed: %q vs %q", first.Meta.Fingerprint, second.Meta.Fingerprint)
	}
	if diff := cmp.Diff(first, second, cmpopts.IgnoreFields(response.Response{}, "Meta")); diff != "" {
		t.Errorf("cached body differs (-first +second):\n%s", diff)
	}
}

func TestAnswer_CallerMutationsDoNotReachCache(t *testing.T) {
	svc := newTestService(okSelector(), okSampler(), querycache.NewMemory())

	first, err := svc.Answer(context.Background(), question)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	first.Measurements[string(domain.Temperature)].Mean = -999
	first.FiltersApplied[0] = "mutated"

	second, err := svc.Answer(context.Background(), question)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if !second.Meta.Cached {
		t.Fatal("expected a cache hit")
	}
	if got := second.Measurements[string(domain.Temperature)].Mean; got != 11.5 {
		t.Errorf("cached mean = %v, want 11.5", got)
	}
	if second.FiltersApplied[0] == "mutated" {
		t.Error("cached filters share memory with the first caller")
	}
	second.Measurements[string(domain.Temperature)].Mean = -1

	third, err := svc.Answer(context.Background(), question)
	if err != nil {
		t.Fatalf("third: %v", err)
	}
	if got := third.Measurements[string(domain.Temperature)].Mean; got != 11.5 {
		t.Errorf("cached mean after hit mutation = %v, want 11.5", got)
	}
}

func TestAnswer_InvalidQuestion(t *testing.T) {
	sel := okSelector()
	svc := newTestService(sel, okSampler(), nil)

	for _, q := range []string{"", "   ", strings.Repeat("x", 1001)} {
		if _, err := svc.Answer(context.Background(), q); !errors.Is(err, domain.ErrInvalidQuestion) {
			t.Errorf("Answer(%.10q) error = %v, want ErrInvalidQuestion", q, err)
		}
	}
	if sel.calls.Load() != 0 {
		t.Error("selector must not run for invalid questions")
	}
}

func TestAnswer_RetrievalUnavailable(t *testing.T) {
	cache := &failingCache{}
	sel := &mockSelector{selectFn: func(context.Context, plan.FetchPlan) (selector.Selection, error) {
		return selector.Selection{}, fmt.Errorf("%w: count: connection refused", domain.ErrRetrievalUnavailable)
	}}
	svc := newTestService(sel, okSampler(), cache)

	_, err := svc.Answer(context.Background(), question)
	if !errors.Is(err, domain.ErrRetrievalUnavailable) {
		t.Fatalf("error = %v, want ErrRetrievalUnavailable", err)
	}
	if cache.puts != 0 {
		t.Error("failed answers must not be cached")
	}
}

func TestAnswer_CacheErrorsDegradeToMiss(t *testing.T) {
	cache := &failingCache{getErr: errors.New("redis down"), putErr: errors.New("redis down")}
	svc := newTestService(okSelector(), okSampler(), cache)

	resp, err := svc.Answer(context.Background(), question)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Meta.Cached {
		t.Error("response must not be marked cached")
	}
	if cache.puts != 1 {
		t.Errorf("puts = %d, want 1", cache.puts)
	}
}

func TestAnswer_CancelledSkipsCache(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	smp := &mockSampler{loadFn: func(
		ctx context.Context, _ []profile.Candidate, _ []domain.Variable, _ int,
	) (sampler.Result, error) {
		cancel()
		return sampler.Result{}, ctx.Err()
	}}
	cache := querycache.NewMemory()
	svc := newTestService(okSelector(), smp, cache)

	_, err := svc.Answer(ctx, question)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if cache.Len() != 0 {
		t.Errorf("cache has %d entries after cancellation", cache.Len())
	}
}

func TestAnswer_EmptyMatchIsNotAnError(t *testing.T) {
	sel := &mockSelector{selectFn: func(_ context.Context, fp plan.FetchPlan) (selector.Selection, error) {
		return selector.Selection{Limit: fp.Structured.Limit}, nil
	}}
	svc := newTestService(sel, okSampler(), nil)

	resp, err := svc.Answer(context.Background(), question)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Confidence != 0 || len(resp.Measurements) != 0 {
		t.Errorf("confidence=%v measurements=%v", resp.Confidence, resp.Measurements)
	}
	if len(resp.Caveats) == 0 {
		t.Error("expected a no-matches caveat")
	}
}

func TestInvalidate(t *testing.T) {
	cache := querycache.NewMemory()
	svc := newTestService(okSelector(), okSampler(), cache)

	resp, err := svc.Answer(context.Background(), question)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if got := svc.Fingerprint(question); got != resp.Meta.Fingerprint {
		t.Errorf("Fingerprint = %q, want %q", got, resp.Meta.Fingerprint)
	}
	if err := svc.Invalidate(context.Background(), resp.Meta.Fingerprint); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if cache.Len() != 0 {
		t.Errorf("cache len = %d, want 0", cache.Len())
	}

	if _, err := svc.Answer(context.Background(), question); err != nil {
		t.Fatalf("answer: %v", err)
	}
	n, err := svc.InvalidateAll(context.Background())
	if err != nil || n != 1 {
		t.Errorf("InvalidateAll = %d, %v; want 1, nil", n, err)
	}
}
