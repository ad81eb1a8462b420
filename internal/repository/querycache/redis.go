package querycache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/oceanq/internal/db"
	"github.com/kailas-cloud/oceanq/internal/domain/response"
)

const delBatch = 500

// store is the consumer interface for the Redis cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
	Del(ctx context.Context, keys ...string) (int64, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Redis stores the entry body as JSON and its hit counter under a separate key.
// Hits only ever INCRBY the counter, so concurrent readers never rewrite the body.
type Redis struct {
	store  store
	prefix string
	logger *zap.Logger
	now    func() time.Time
}

// NewRedis creates a Redis-backed cache. prefix namespaces every key (e.g. "oceanq:").
func NewRedis(s store, prefix string, logger *zap.Logger) *Redis {
	return &Redis{store: s, prefix: prefix, logger: logger, now: time.Now}
}

func (r *Redis) bodyKey(fp string) string { return r.prefix + "answer:" + fp }
func (r *Redis) hitsKey(fp string) string { return r.prefix + "answer_hits:" + fp }
func (r *Redis) lastKey(fp string) string { return r.prefix + "answer_last:" + fp }

// Get returns the entry for fingerprint and advances its hit counter.
func (r *Redis) Get(ctx context.Context, fingerprint string) (Entry, bool, error) {
	data, err := r.store.Get(ctx, r.bodyKey(fingerprint))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("query cache get %s: %w", fingerprint, err)
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, false, fmt.Errorf("query cache decode %s: %w", fingerprint, err)
	}

	now := r.now()
	if e.Expired(now) {
		return Entry{}, false, nil
	}
	remaining := e.ExpiresAt.Sub(now)

	hits, err := r.store.IncrBy(ctx, r.hitsKey(fingerprint), 1)
	if err != nil {
		r.logger.Warn("Failed to count cache hit", zap.String("fingerprint", fingerprint), zap.Error(err))
	} else if err := r.store.Expire(ctx, r.hitsKey(fingerprint), remaining, true); err != nil {
		r.logger.Warn("Failed to expire hit counter", zap.String("fingerprint", fingerprint), zap.Error(err))
	}
	stamp := []byte(now.UTC().Format(time.RFC3339Nano))
	if err := r.store.SetWithTTL(ctx, r.lastKey(fingerprint), stamp, remaining); err != nil {
		r.logger.Warn("Failed to record last hit", zap.String("fingerprint", fingerprint), zap.Error(err))
	}

	e.HitCount = hits
	e.LastHit = now
	return e, true, nil
}

// Put writes the entry body and resets its hit counter.
func (r *Redis) Put(ctx context.Context, fingerprint string, resp response.Response, ttl time.Duration) error {
	if ttl < time.Second {
		return fmt.Errorf("query cache put %s: ttl %s below one second", fingerprint, ttl)
	}
	now := r.now()
	data, err := json.Marshal(Entry{
		Fingerprint: fingerprint,
		Response:    resp,
		CreatedAt:   now.UTC(),
		ExpiresAt:   now.Add(ttl).UTC(),
	})
	if err != nil {
		return fmt.Errorf("query cache encode %s: %w", fingerprint, err)
	}

	if err := r.store.SetWithTTL(ctx, r.bodyKey(fingerprint), data, ttl); err != nil {
		return fmt.Errorf("query cache put %s: %w", fingerprint, err)
	}
	if err := r.store.SetWithTTL(ctx, r.hitsKey(fingerprint), []byte("0"), ttl); err != nil {
		return fmt.Errorf("query cache reset hits %s: %w", fingerprint, err)
	}
	return nil
}

// Invalidate deletes one fingerprint's keys.
func (r *Redis) Invalidate(ctx context.Context, fingerprint string) error {
	keys := []string{r.bodyKey(fingerprint), r.hitsKey(fingerprint), r.lastKey(fingerprint)}
	if _, err := r.store.Del(ctx, keys...); err != nil {
		return fmt.Errorf("query cache invalidate %s: %w", fingerprint, err)
	}
	return nil
}

// InvalidateAll deletes every cached answer and returns the number of entries removed.
func (r *Redis) InvalidateAll(ctx context.Context) (int, error) {
	keys, err := r.store.Scan(ctx, r.prefix+"answer*")
	if err != nil {
		return 0, fmt.Errorf("query cache scan: %w", err)
	}

	bodies := 0
	bodyPrefix := r.prefix + "answer:"
	for _, k := range keys {
		if strings.HasPrefix(k, bodyPrefix) {
			bodies++
		}
	}

	for start := 0; start < len(keys); start += delBatch {
		end := min(start+delBatch, len(keys))
		if _, err := r.store.Del(ctx, keys[start:end]...); err != nil {
			return 0, fmt.Errorf("query cache invalidate all: %w", err)
		}
	}
	return bodies, nil
}
