package sampler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/kailas-cloud/oceanq/internal/domain"
	"github.com/kailas-cloud/oceanq/internal/domain/profile"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type mockArchive struct {
	fn    func(ctx context.Context, handle string, vars []domain.Variable) (map[domain.Variable]profile.Series, error)
	calls atomic.Int32
}

func (m *mockArchive) ReadVariables(
	ctx context.Context, handle string, vars []domain.Variable,
) (map[domain.Variable]profile.Series, error) {
	m.calls.Add(1)
	return m.fn(ctx, handle, vars)
}

func series(vals ...float64) profile.Series {
	s := profile.Series{Values: vals}
	for i := range vals {
		s.Depths = append(s.Depths, float64(i*100))
		s.QCMask = append(s.QCMask, true)
	}
	return s
}

func candidates(n int) []profile.Candidate {
	out := make([]profile.Candidate, n)
	for i := range out {
		out[i] = profile.Candidate{
			ID:              fmt.Sprintf("c%03d", i),
			Time:            time.Date(2000+i%5, 6, 1, 0, 0, 0, 0, time.UTC),
			Lat:             float64(i % 30),
			Lon:             float64(i % 60),
			MeasurementPath: fmt.Sprintf("c%03d.json", i),
		}
	}
	return out
}

func TestLoad_PreservesCandidateOrder(t *testing.T) {
	arch := &mockArchive{fn: func(_ context.Context, handle string, _ []domain.Variable) (map[domain.Variable]profile.Series, error) {
		// Later candidates finish first.
		var idx int
		fmt.Sscanf(handle, "c%03d.json", &idx)
		time.Sleep(time.Duration(20-idx) * time.Millisecond)
		return map[domain.Variable]profile.Series{
			domain.Temperature: series(float64(idx)),
			domain.Salinity:    series(35),
		}, nil
	}}

	res, err := New(arch, Options{Workers: 20}).Load(context.Background(), candidates(20), nil, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Loaded) != 20 || len(res.Samples) != 40 {
		t.Fatalf("loaded %d, samples %d", len(res.Loaded), len(res.Samples))
	}
	for i, id := range res.Loaded {
		if want := fmt.Sprintf("c%03d", i); id != want {
			t.Fatalf("loaded[%d] = %s, want %s", i, id, want)
		}
	}
	for i := 0; i < len(res.Samples); i += 2 {
		if res.Samples[i].Variable != domain.Salinity || res.Samples[i+1].Variable != domain.Temperature {
			t.Fatalf("samples must be sorted by variable within a candidate")
		}
	}
}

func TestLoad_SampleKCapsReads(t *testing.T) {
	arch := &mockArchive{fn: func(context.Context, string, []domain.Variable) (map[domain.Variable]profile.Series, error) {
		return map[domain.Variable]profile.Series{domain.Temperature: series(10)}, nil
	}}
	s := New(arch, Options{Workers: 4})

	first, err := s.Load(context.Background(), candidates(50), nil, 7)
	if err != nil {
		t.Fatal(err)
	}
	if got := arch.calls.Load(); got != 7 {
		t.Errorf("opened %d archives, want 7", got)
	}
	second, _ := s.Load(context.Background(), candidates(50), nil, 7)
	if fmt.Sprint(first.Loaded) != fmt.Sprint(second.Loaded) {
		t.Errorf("selection is not deterministic: %v vs %v", first.Loaded, second.Loaded)
	}
}

func TestLoad_SkipsBadArchives(t *testing.T) {
	arch := &mockArchive{fn: func(_ context.Context, handle string, _ []domain.Variable) (map[domain.Variable]profile.Series, error) {
		switch handle {
		case "c000.json":
			return nil, fmt.Errorf("open: %w", domain.ErrArchiveNotFound)
		case "c001.json":
			return nil, fmt.Errorf("decode: %w", domain.ErrArchiveUnreadable)
		case "c002.json":
			bad := series(1, 2)
			bad.QCMask = bad.QCMask[:1]
			return map[domain.Variable]profile.Series{domain.Temperature: bad}, nil
		case "c003.json":
			return nil, errors.New("permission denied")
		}
		return map[domain.Variable]profile.Series{domain.Temperature: series(12)}, nil
	}}

	res, err := New(arch, Options{}).Load(context.Background(), candidates(6), nil, 10)
	if err != nil {
		t.Fatalf("archive failures must not fail the load: %v", err)
	}
	if res.SkipCount != 4 {
		t.Errorf("skip count = %d, want 4", res.SkipCount)
	}
	want := map[string]int{SkipNotFound: 1, SkipUnreadable: 2, SkipError: 1}
	for k, v := range want {
		if res.SkipReasons[k] != v {
			t.Errorf("skip reasons = %v, want %v", res.SkipReasons, want)
			break
		}
	}
	if fmt.Sprint(res.Loaded) != "[c004 c005]" {
		t.Errorf("loaded = %v", res.Loaded)
	}
}

func TestLoad_NonFiniteValuesFailQC(t *testing.T) {
	arch := &mockArchive{fn: func(context.Context, string, []domain.Variable) (map[domain.Variable]profile.Series, error) {
		return map[domain.Variable]profile.Series{domain.Temperature: series(1, math.NaN(), math.Inf(1))}, nil
	}}

	res, err := New(arch, Options{}).Load(context.Background(), candidates(1), nil, 1)
	if err != nil {
		t.Fatal(err)
	}
	mask := res.Samples[0].QCMask
	if !mask[0] || mask[1] || mask[2] {
		t.Errorf("qc mask = %v", mask)
	}
}

func TestLoad_PassesVariables(t *testing.T) {
	var mu sync.Mutex
	var got []domain.Variable
	arch := &mockArchive{fn: func(_ context.Context, _ string, vars []domain.Variable) (map[domain.Variable]profile.Series, error) {
		mu.Lock()
		got = vars
		mu.Unlock()
		return nil, nil
	}}

	res, err := New(arch, Options{}).Load(context.Background(), candidates(1), []domain.Variable{domain.Oxygen}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != domain.Oxygen {
		t.Errorf("variables = %v", got)
	}
	if len(res.Loaded) != 0 || res.SkipCount != 0 {
		t.Errorf("an archive without the variable is neither loaded nor skipped: %+v", res)
	}
}

func TestLoad_Empty(t *testing.T) {
	res, err := New(&mockArchive{}, Options{}).Load(context.Background(), nil, nil, 10)
	if err != nil || len(res.Samples) != 0 {
		t.Errorf("unexpected result %+v %v", res, err)
	}
}

func TestLoad_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{}, 10)
	arch := &mockArchive{fn: func(ctx context.Context, _ string, _ []domain.Variable) (map[domain.Variable]profile.Series, error) {
		started <- struct{}{}
		<-ctx.Done()
		return nil, fmt.Errorf("read: %w", ctx.Err())
	}}

	go func() {
		<-started
		cancel()
	}()

	_, err := New(arch, Options{Workers: 2}).Load(ctx, candidates(10), nil, 10)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
