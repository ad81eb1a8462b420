package querycache

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/oceanq/internal/db"
)

// fakeKV is an in-memory stand-in for the Redis KV facade.
type fakeKV struct {
	mu     sync.Mutex
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
	delErr error
	incrs  int
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (f *fakeKV) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	v, ok := f.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (f *fakeKV) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	f.ttls[key] = ttl
	return nil
}

func (f *fakeKV) IncrBy(_ context.Context, key string, val int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.incrs++
	n, _ := strconv.ParseInt(string(f.data[key]), 10, 64)
	n += val
	f.data[key] = []byte(strconv.FormatInt(n, 10))
	return n, nil
}

func (f *fakeKV) Expire(_ context.Context, key string, ttl time.Duration, nx bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, has := f.ttls[key]; nx && has {
		return nil
	}
	f.ttls[key] = ttl
	return nil
}

func (f *fakeKV) Del(_ context.Context, keys ...string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return 0, f.delErr
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			n++
			delete(f.data, k)
			delete(f.ttls, k)
		}
	}
	return n, nil
}

func (f *fakeKV) Scan(_ context.Context, pattern string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var out []string
	for k := range f.data {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}

func newTestRedis(t *testing.T) (*Redis, *fakeKV) {
	t.Helper()
	kv := newFakeKV()
	return NewRedis(kv, "oceanq:", zap.NewNop()), kv
}
