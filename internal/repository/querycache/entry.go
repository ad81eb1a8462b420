// Package querycache memoizes composed answers by intent fingerprint.
package querycache

import (
	"context"
	"time"

	"github.com/kailas-cloud/oceanq/internal/domain/response"
)

// Entry is one cached answer.
type Entry struct {
	Fingerprint string            `json:"fingerprint"`
	Response    response.Response `json:"response"`
	CreatedAt   time.Time         `json:"created_at"`
	ExpiresAt   time.Time         `json:"expires_at"`
	HitCount    int64             `json:"-"`
	LastHit     time.Time         `json:"-"`
}

// Expired reports whether the entry is past its TTL at now.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Noop is a cache that never stores anything.
type Noop struct{}

// Get always misses.
func (Noop) Get(_ context.Context, _ string) (Entry, bool, error) { return Entry{}, false, nil }

// Put discards the response.
func (Noop) Put(_ context.Context, _ string, _ response.Response, _ time.Duration) error { return nil }

// Invalidate is a no-op.
func (Noop) Invalidate(_ context.Context, _ string) error { return nil }

// InvalidateAll is a no-op.
func (Noop) InvalidateAll(_ context.Context) (int, error) { return 0, nil }
