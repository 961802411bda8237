// Package cache stores resolved snapshots keyed by actor state.
package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/louisbranch/statcore/internal/stat"
)

// Stats counts cache activity since creation.
type Stats struct {
	Hits      int64
	Misses    int64
	Entries   int64
	Evictions int64
}

// Store is the snapshot cache used by the aggregator. Implementations
// must be safe for concurrent use.
type Store interface {
	// Get returns the snapshot for key, or false on miss or expiry.
	Get(key string) (*stat.Snapshot, bool)
	// Set stores a snapshot under key with the given time to live.
	Set(key string, snapshot *stat.Snapshot, ttl time.Duration)
	// Delete removes a single key.
	Delete(key string)
	// DeletePrefix removes every key beginning with prefix and returns
	// how many entries were removed.
	DeletePrefix(prefix string) int
	// Clear removes every entry.
	Clear()
	// Stats returns a copy of the activity counters.
	Stats() Stats
}

type memoryEntry struct {
	snapshot  *stat.Snapshot
	expiresAt time.Time
}

// Memory is an in-process Store with per-entry expiry and a bounded
// entry count. When full, the entry closest to expiry is evicted.
type Memory struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	maxEntries int
	stats      Stats
	now        func() time.Time
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

// NewMemory creates a memory store holding at most maxEntries
// snapshots. maxEntries <= 0 means unbounded.
func NewMemory(maxEntries int, opts ...MemoryOption) *Memory {
	m := &Memory{
		entries:    map[string]memoryEntry{},
		maxEntries: maxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get implements Store.
func (m *Memory) Get(key string) (*stat.Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		m.stats.Misses++
		return nil, false
	}
	if m.now().After(e.expiresAt) {
		delete(m.entries, key)
		m.stats.Misses++
		return nil, false
	}
	m.stats.Hits++
	return e.snapshot, true
}

// Set implements Store. A non-positive ttl stores nothing.
func (m *Memory) Set(key string, snapshot *stat.Snapshot, ttl time.Duration) {
	if snapshot == nil || ttl <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; !exists && m.maxEntries > 0 && len(m.entries) >= m.maxEntries {
		m.evictSoonest()
	}
	m.entries[key] = memoryEntry{snapshot: snapshot, expiresAt: m.now().Add(ttl)}
}

// evictSoonest removes the entry closest to expiry. Callers hold mu.
func (m *Memory) evictSoonest() {
	var victim string
	var soonest time.Time
	first := true
	for key, e := range m.entries {
		if first || e.expiresAt.Before(soonest) {
			victim, soonest = key, e.expiresAt
			first = false
		}
	}
	if !first {
		delete(m.entries, victim)
		m.stats.Evictions++
	}
}

// Delete implements Store.
func (m *Memory) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

// DeletePrefix implements Store.
func (m *Memory) DeletePrefix(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// Clear implements Store.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = map[string]memoryEntry{}
}

// Stats implements Store.
func (m *Memory) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stats
	s.Entries = int64(len(m.entries))
	return s
}
