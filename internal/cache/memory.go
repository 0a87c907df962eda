package cache

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	payload  []byte
	expireAt int64 // unix nano
}

// MemoryStore is an in-process cache store for single-instance deployments.
// Entries are replaced on Set, never mutated; an optional janitor goroutine
// evicts expired keys to bound memory.
type MemoryStore struct {
	mu      sync.RWMutex
	items   map[string]memEntry
	stopCh  chan struct{}
	stopped bool
}

// NewMemoryStore creates a store. janitorEvery controls how often expired
// keys are collected; 0 disables the collector (reads still honor expiry).
func NewMemoryStore(janitorEvery time.Duration) *MemoryStore {
	m := &MemoryStore{
		items:  make(map[string]memEntry, 256),
		stopCh: make(chan struct{}),
	}

	if janitorEvery > 0 {
		go m.janitor(janitorEvery)
	}

	return m
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	now := time.Now().UnixNano()

	m.mu.RLock()
	defer m.mu.RUnlock()

	if e, ok := m.items[key]; ok && e.expireAt > now {
		return e.payload, true, nil
	}
	return nil, false, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	entry := memEntry{
		payload:  payload,
		expireAt: time.Now().Add(ttl).UnixNano(),
	}

	m.mu.Lock()
	m.items[key] = entry
	m.mu.Unlock()

	return nil
}

func (m *MemoryStore) janitor(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-t.C:
			now := time.Now().UnixNano()
			m.mu.Lock()
			for k, e := range m.items {
				if e.expireAt <= now {
					delete(m.items, k)
				}
			}
			m.mu.Unlock()
		}
	}
}

// Close stops the janitor (if running)
func (m *MemoryStore) Close() {
	m.mu.Lock()
	if !m.stopped {
		close(m.stopCh)
		m.stopped = true
	}
	m.mu.Unlock()
}
