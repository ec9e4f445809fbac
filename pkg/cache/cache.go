// Package cache stores generated text keyed by a digest of its input. The
// summarizer uses it to skip re-summarizing documents it has already seen.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Cache is a string key-value store with optional expiry.
type Cache interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key.
	Set(ctx context.Context, key, value string) error
}

// Key returns prefix joined with the hex SHA-256 of text.
func Key(prefix, text string) string {
	sum := sha256.Sum256([]byte(text))
	return prefix + hex.EncodeToString(sum[:])
}

type entry struct {
	value   string
	expires time.Time
}

// Memory is an in-process Cache. A zero TTL keeps entries forever.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time
}

// NewMemory creates an empty Memory cache.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, entries: make(map[string]entry), now: time.Now}
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return "", false, nil
	}

	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.entries, key)
		return "", false, nil
	}

	return e.value, true, nil
}

// Set implements Cache.
func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := entry{value: value}
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}
	m.entries[key] = e

	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.entries)
}
