package cache

import (
	"bytes"
	"context"
	"sync"
	"time"
)

// MemoryBackend keeps entries in process memory, expiring them lazily on read.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
}

func (m *MemoryBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	if e.Expired(m.now()) {
		m.mu.Lock()
		if cur, ok := m.entries[key]; ok && cur.ExpiresAt.Equal(e.ExpiresAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false, nil
	}
	return bytes.Clone(e.Value), true, nil
}

func (m *MemoryBackend) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	m.entries[key] = Entry{Value: bytes.Clone(value), ExpiresAt: m.now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
