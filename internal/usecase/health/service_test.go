package health

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/oceanq/internal/domain/geo"
	"github.com/kailas-cloud/oceanq/internal/domain/intent"
	"github.com/kailas-cloud/oceanq/internal/domain/plan"
)

// --- Mocks ---

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

type mockEmbeddingChecker struct {
	err error
}

func (m *mockEmbeddingChecker) HealthCheck(_ context.Context) error { return m.err }

type mockCoverage struct {
	ext   plan.Extent
	ok    bool
	err   error
	calls int
}

func (m *mockCoverage) Extent(_ context.Context) (plan.Extent, bool, error) {
	m.calls++
	return m.ext, m.ok, m.err
}

// --- Tests ---

func TestCheck(t *testing.T) {
	down := errors.New("down")
	tests := []struct {
		name      string
		metadata  error
		cache     Pinger
		embedding EmbeddingChecker
		want      Status
		checks    map[string]CheckResult
	}{
		{
			name:      "all healthy",
			cache:     &mockPinger{},
			embedding: &mockEmbeddingChecker{},
			want:      Healthy,
			checks: map[string]CheckResult{
				ComponentMetadata: CheckOK, ComponentCache: CheckOK, ComponentEmbedding: CheckOK,
			},
		},
		{
			name:     "metadata down is unhealthy",
			metadata: down,
			cache:    &mockPinger{},
			want:     Unhealthy,
			checks:   map[string]CheckResult{ComponentMetadata: CheckError, ComponentCache: CheckOK},
		},
		{
			name:   "cache down is degraded",
			cache:  &mockPinger{err: down},
			want:   Degraded,
			checks: map[string]CheckResult{ComponentMetadata: CheckOK, ComponentCache: CheckError},
		},
		{
			name:      "embedding down is degraded",
			embedding: &mockEmbeddingChecker{err: down},
			want:      Degraded,
			checks:    map[string]CheckResult{ComponentMetadata: CheckOK, ComponentEmbedding: CheckError},
		},
		{
			name:      "everything down",
			metadata:  down,
			cache:     &mockPinger{err: down},
			embedding: &mockEmbeddingChecker{err: down},
			want:      Unhealthy,
			checks: map[string]CheckResult{
				ComponentMetadata: CheckError, ComponentCache: CheckError, ComponentEmbedding: CheckError,
			},
		},
		{
			name:   "optional components absent",
			want:   Healthy,
			checks: map[string]CheckResult{ComponentMetadata: CheckOK},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := New(&mockPinger{err: tt.metadata}, tt.cache, tt.embedding)
			r := svc.Check(context.Background())

			if r.Status != tt.want {
				t.Errorf("status = %q, want %q", r.Status, tt.want)
			}
			if len(r.Checks) != len(tt.checks) {
				t.Errorf("checks = %v, want %v", r.Checks, tt.checks)
			}
			for k, v := range tt.checks {
				if r.Checks[k] != v {
					t.Errorf("check %s = %q, want %q", k, r.Checks[k], v)
				}
			}
		})
	}
}

func TestCheck_Coverage(t *testing.T) {
	stored := plan.Extent{BBox: geo.NewBBox(-10, 10, 60, 90), TimeRange: intent.Year(2010)}

	t.Run("reports live extent", func(t *testing.T) {
		cov := &mockCoverage{ext: stored, ok: true}
		r := New(&mockPinger{}, nil, nil).WithCoverage(cov).Check(context.Background())
		if r.Coverage == nil || *r.Coverage != stored {
			t.Fatalf("coverage = %+v, want %+v", r.Coverage, stored)
		}
	})

	t.Run("empty store", func(t *testing.T) {
		r := New(&mockPinger{}, nil, nil).WithCoverage(&mockCoverage{}).Check(context.Background())
		if r.Coverage != nil {
			t.Errorf("coverage = %+v, want nil", r.Coverage)
		}
	})

	t.Run("extent error keeps status", func(t *testing.T) {
		r := New(&mockPinger{}, nil, nil).
			WithCoverage(&mockCoverage{err: errors.New("slow")}).
			Check(context.Background())
		if r.Coverage != nil || r.Status != Healthy {
			t.Errorf("report = %+v", r)
		}
	})

	t.Run("metadata down skips extent", func(t *testing.T) {
		cov := &mockCoverage{ext: stored, ok: true}
		r := New(&mockPinger{err: errors.New("down")}, nil, nil).WithCoverage(cov).Check(context.Background())
		if cov.calls != 0 || r.Coverage != nil {
			t.Errorf("extent read while metadata is down")
		}
	})
}
