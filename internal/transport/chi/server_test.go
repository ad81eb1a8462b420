package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/oceanq/internal/domain"
	"github.com/kailas-cloud/oceanq/internal/domain/geo"
	"github.com/kailas-cloud/oceanq/internal/domain/intent"
	"github.com/kailas-cloud/oceanq/internal/domain/plan"
	"github.com/kailas-cloud/oceanq/internal/domain/response"
	healthuc "github.com/kailas-cloud/oceanq/internal/usecase/health"
)

// --- Mocks ---

type mockAnswers struct {
	answerFn        func(ctx context.Context, q string) (response.Response, error)
	invalidateFn    func(ctx context.Context, fp string) error
	invalidateAllFn func(ctx context.Context) (int, error)
}

func (m *mockAnswers) Answer(ctx context.Context, q string) (response.Response, error) {
	return m.answerFn(ctx, q)
}

func (m *mockAnswers) Fingerprint(q string) string { return "fp:" + strings.ToLower(q) }

func (m *mockAnswers) Invalidate(ctx context.Context, fp string) error {
	if m.invalidateFn == nil {
		return nil
	}
	return m.invalidateFn(ctx, fp)
}

func (m *mockAnswers) InvalidateAll(ctx context.Context) (int, error) {
	if m.invalidateAllFn == nil {
		return 0, nil
	}
	return m.invalidateAllFn(ctx)
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

func echoAnswers() *mockAnswers {
	return &mockAnswers{answerFn: func(_ context.Context, q string) (response.Response, error) {
		return response.Response{
			QueryUnderstanding: response.QueryUnderstanding{RawText: q},
			Meta:               response.Meta{Fingerprint: "fp:" + q},
		}, nil
	}}
}

func newTestRouter(answers AnswerService, opts Options) http.Handler {
	health := &mockHealth{report: healthuc.Report{
		Status: healthuc.Healthy,
		Checks: map[string]healthuc.CheckResult{healthuc.ComponentMetadata: healthuc.CheckOK},
	}}
	return NewServer(answers, health, opts, nil).Router()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&e); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return e
}

// --- Tests ---

func TestAnswer_Post(t *testing.T) {
	h := newTestRouter(echoAnswers(), Options{})

	rr := do(t, h, http.MethodPost, "/v1/answer", `{"question":"salinity in 2005"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body)
	}
	if rr.Header().Get("X-Cache") != "MISS" {
		t.Errorf("X-Cache = %q", rr.Header().Get("X-Cache"))
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	var resp response.Response
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.QueryUnderstanding.RawText != "salinity in 2005" {
		t.Errorf("raw text = %q", resp.QueryUnderstanding.RawText)
	}
}

func TestAnswer_GetQuery(t *testing.T) {
	answers := &mockAnswers{answerFn: func(_ context.Context, q string) (response.Response, error) {
		return response.Response{Meta: response.Meta{Cached: true, Fingerprint: q}}, nil
	}}
	h := newTestRouter(answers, Options{})

	rr := do(t, h, http.MethodGet, "/v1/answer?q=deep+oxygen", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if rr.Header().Get("X-Cache") != "HIT" {
		t.Errorf("X-Cache = %q", rr.Header().Get("X-Cache"))
	}
	if !strings.Contains(rr.Body.String(), `"fingerprint":"deep oxygen"`) {
		t.Errorf("body = %s", rr.Body)
	}
}

func TestAnswer_BadBody(t *testing.T) {
	h := newTestRouter(echoAnswers(), Options{})

	for _, body := range []string{`{`, `{"q":"x"}`, `[]`} {
		rr := do(t, h, http.MethodPost, "/v1/answer", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d", body, rr.Code)
		}
		if e := decodeError(t, rr); e.Code != CodeBadRequest {
			t.Errorf("body %s: code = %s", body, e.Code)
		}
	}
}

func TestAnswer_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   ErrorCode
	}{
		{
			name:   "invalid question",
			err:    fmt.Errorf("%w: length must be between 1 and 1000 characters", domain.ErrInvalidQuestion),
			status: http.StatusBadRequest,
			code:   CodeInvalidQuestion,
		},
		{
			name:   "store down",
			err:    fmt.Errorf("%w: count: dial tcp 10.0.0.5:5432", domain.ErrRetrievalUnavailable),
			status: http.StatusServiceUnavailable,
			code:   CodeRetrievalUnavailable,
		},
		{
			name:   "deadline",
			err:    context.DeadlineExceeded,
			status: http.StatusGatewayTimeout,
			code:   CodeTimeout,
		},
		{
			name:   "unexpected",
			err:    errors.New("boom"),
			status: http.StatusInternalServerError,
			code:   CodeInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answers := &mockAnswers{answerFn: func(context.Context, string) (response.Response, error) {
				return response.Response{}, tt.err
			}}
			rr := do(t, newTestRouter(answers, Options{}), http.MethodPost, "/v1/answer", `{"question":"x"}`)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d", rr.Code, tt.status)
			}
			e := decodeError(t, rr)
			if e.Code != tt.code {
				t.Errorf("code = %s, want %s", e.Code, tt.code)
			}
			if strings.Contains(e.Message, "10.0.0.5") {
				t.Errorf("message leaks internals: %q", e.Message)
			}
		})
	}
}

func TestAnswer_AppliesTimeout(t *testing.T) {
	answers := &mockAnswers{answerFn: func(ctx context.Context, _ string) (response.Response, error) {
		if _, ok := ctx.Deadline(); !ok {
			return response.Response{}, errors.New("no deadline")
		}
		return response.Response{}, nil
	}}
	rr := do(t, newTestRouter(answers, Options{AnswerTimeout: time.Second}), http.MethodGet, "/v1/answer?q=x", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body)
	}
}

func TestAnswer_ConcurrencyLimit(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	answers := &mockAnswers{answerFn: func(ctx context.Context, q string) (response.Response, error) {
		if q == "slow" {
			close(started)
			<-release
		}
		return response.Response{}, nil
	}}
	h := newTestRouter(answers, Options{MaxConcurrent: 1, QueueTimeout: 20 * time.Millisecond})

	var wg sync.WaitGroup
	wg.Add(1)
	var slowCode int
	go func() {
		defer wg.Done()
		slowCode = do(t, h, http.MethodGet, "/v1/answer?q=slow", "").Code
	}()
	<-started

	rr := do(t, h, http.MethodGet, "/v1/answer?q=fast", "")
	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}

	close(release)
	wg.Wait()
	if slowCode != http.StatusOK {
		t.Errorf("slow request status = %d", slowCode)
	}
	if rr := do(t, h, http.MethodGet, "/v1/answer?q=fast", ""); rr.Code != http.StatusOK {
		t.Errorf("after release status = %d", rr.Code)
	}
}

func TestInvalidate(t *testing.T) {
	var dropped []string
	answers := echoAnswers()
	answers.invalidateFn = func(_ context.Context, fp string) error {
		dropped = append(dropped, fp)
		return nil
	}
	answers.invalidateAllFn = func(context.Context) (int, error) { return 7, nil }
	h := newTestRouter(answers, Options{})

	tests := []struct {
		body   string
		status int
		want   InvalidateResponse
	}{
		{body: `{"all":true}`, status: http.StatusOK, want: InvalidateResponse{Invalidated: 7}},
		{body: `{"fingerprint":"abc"}`, status: http.StatusOK, want: InvalidateResponse{Invalidated: 1, Fingerprint: "abc"}},
		{body: `{"question":"Deep"}`, status: http.StatusOK, want: InvalidateResponse{Invalidated: 1, Fingerprint: "fp:deep"}},
		{body: `{}`, status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		rr := do(t, h, http.MethodPost, "/v1/cache/invalidate", tt.body)
		if rr.Code != tt.status {
			t.Errorf("%s: status = %d, want %d", tt.body, rr.Code, tt.status)
			continue
		}
		if tt.status != http.StatusOK {
			continue
		}
		var got InvalidateResponse
		if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got != tt.want {
			t.Errorf("%s: got %+v, want %+v", tt.body, got, tt.want)
		}
	}
	if len(dropped) != 2 || dropped[0] != "abc" || dropped[1] != "fp:deep" {
		t.Errorf("dropped = %v", dropped)
	}
}

func TestInvalidate_Error(t *testing.T) {
	answers := echoAnswers()
	answers.invalidateAllFn = func(context.Context) (int, error) { return 0, errors.New("redis down") }

	rr := do(t, newTestRouter(answers, Options{}), http.MethodPost, "/v1/cache/invalidate", `{"all":true}`)
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rr.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		status healthuc.Status
		want   int
	}{
		{healthuc.Healthy, http.StatusOK},
		{healthuc.Degraded, http.StatusOK},
		{healthuc.Unhealthy, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		health := &mockHealth{report: healthuc.Report{
			Status: tt.status,
			Checks: map[string]healthuc.CheckResult{healthuc.ComponentMetadata: healthuc.CheckOK},
		}}
		h := NewServer(echoAnswers(), health, Options{APIKeys: []string{"secret"}}, nil).Router()

		rr := do(t, h, http.MethodGet, "/health", "")
		if rr.Code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.status, rr.Code, tt.want)
		}
		var body HealthResponse
		if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Status != tt.status {
			t.Errorf("body status = %q", body.Status)
		}
	}
}

func TestHealthCheck_Coverage(t *testing.T) {
	ext := plan.Extent{BBox: geo.NewBBox(-10, 10, 60, 90), TimeRange: intent.Year(2024)}
	health := &mockHealth{report: healthuc.Report{
		Status:   healthuc.Healthy,
		Checks:   map[string]healthuc.CheckResult{healthuc.ComponentMetadata: healthuc.CheckOK},
		Coverage: &ext,
	}}
	rr := do(t, NewServer(echoAnswers(), health, Options{}, nil).Router(), http.MethodGet, "/health", "")

	var body HealthResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Coverage == nil || body.Coverage.BBox != ext.BBox || !body.Coverage.TimeRange.Start.Equal(ext.TimeRange.Start) {
		t.Errorf("coverage = %+v, want %+v", body.Coverage, ext)
	}
}

func TestRouter_AuthAndNotFound(t *testing.T) {
	h := newTestRouter(echoAnswers(), Options{APIKeys: []string{"secret"}})

	if rr := do(t, h, http.MethodGet, "/v1/answer?q=x", ""); rr.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d", rr.Code)
	}
	if rr := do(t, h, http.MethodGet, "/metrics", ""); rr.Code != http.StatusOK {
		t.Errorf("metrics status = %d", rr.Code)
	}

	h = newTestRouter(echoAnswers(), Options{})
	if rr := do(t, h, http.MethodGet, "/v2/nothing", ""); rr.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d", rr.Code)
	}
	if rr := do(t, h, http.MethodDelete, "/v1/answer", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("wrong method status = %d", rr.Code)
	}
}

func TestJSONRecoverer(t *testing.T) {
	answers := &mockAnswers{answerFn: func(context.Context, string) (response.Response, error) {
		panic("nil map write")
	}}
	rr := do(t, newTestRouter(answers, Options{}), http.MethodGet, "/v1/answer?q=x", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	if e := decodeError(t, rr); e.Code != CodeInternalError {
		t.Errorf("code = %s", e.Code)
	}
}
