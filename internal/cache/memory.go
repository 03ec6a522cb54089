package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// memoryStore is a thread-safe in-memory Store suitable for tests and local dev.
type memoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	sets    map[string]map[string]struct{}
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() Store {
	return &memoryStore{
		entries: make(map[string]memoryEntry),
		sets:    make(map[string]map[string]struct{}),
	}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return "", ErrCacheMiss
	}

	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return "", ErrCacheMiss
	}

	return entry.value, nil
}

func (m *memoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	for _, key := range keys {
		delete(m.entries, key)
		delete(m.sets, key)
	}
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) SAdd(_ context.Context, key, member string) error {
	m.mu.Lock()
	set, ok := m.sets[key]
	if !ok {
		set = make(map[string]struct{})
		m.sets[key] = set
	}
	set[member] = struct{}{}
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) SRem(_ context.Context, key, member string) error {
	m.mu.Lock()
	if set, ok := m.sets[key]; ok {
		delete(set, member)
		if len(set) == 0 {
			delete(m.sets, key)
		}
	}
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) SMembers(_ context.Context, key string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	set, ok := m.sets[key]
	if !ok {
		return nil, nil
	}

	members := make([]string, 0, len(set))
	for member := range set {
		members = append(members, member)
	}
	return members, nil
}
