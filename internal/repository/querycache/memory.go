package querycache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/kailas-cloud/oceanq/internal/domain/response"
)

// Memory is an in-process cache guarded by a mutex. Responses are kept
// encoded, like the Redis driver, so callers never share maps or pointers
// with a stored entry.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*memEntry
	now     func() time.Time
}

type memEntry struct {
	body      []byte
	createdAt time.Time
	expiresAt time.Time
	hits      int64
	lastHit   time.Time
}

func (e *memEntry) expired(now time.Time) bool {
	return !now.Before(e.expiresAt)
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]*memEntry), now: time.Now}
}

// Get returns a live entry and records the hit.
func (m *Memory) Get(_ context.Context, fingerprint string) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[fingerprint]
	if !ok {
		return Entry{}, false, nil
	}
	now := m.now()
	if e.expired(now) {
		delete(m.entries, fingerprint)
		return Entry{}, false, nil
	}

	var resp response.Response
	if err := json.Unmarshal(e.body, &resp); err != nil {
		return Entry{}, false, fmt.Errorf("query cache decode %s: %w", fingerprint, err)
	}
	e.hits++
	e.lastHit = now
	return Entry{
		Fingerprint: fingerprint,
		Response:    resp,
		CreatedAt:   e.createdAt,
		ExpiresAt:   e.expiresAt,
		HitCount:    e.hits,
		LastHit:     e.lastHit,
	}, true, nil
}

// Put stores a response, replacing any previous entry for the fingerprint.
func (m *Memory) Put(_ context.Context, fingerprint string, resp response.Response, ttl time.Duration) error {
	body, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("query cache encode %s: %w", fingerprint, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.evictExpired(now)
	m.entries[fingerprint] = &memEntry{
		body:      body,
		createdAt: now,
		expiresAt: now.Add(ttl),
	}
	return nil
}

// Invalidate drops one fingerprint.
func (m *Memory) Invalidate(_ context.Context, fingerprint string) error {
	m.mu.Lock()
	delete(m.entries, fingerprint)
	m.mu.Unlock()
	return nil
}

// InvalidateAll drops every entry and returns how many were removed.
func (m *Memory) InvalidateAll(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.entries)
	m.entries = make(map[string]*memEntry)
	return n, nil
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memory) evictExpired(now time.Time) {
	for fp, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, fp)
		}
	}
}
