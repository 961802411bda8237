// Package registry holds the set of pluggable contribution sources.
//
// Priority convention: a lower Priority() value runs earlier and merges
// earlier. Ties are broken by registration order.
package registry

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"

	"github.com/louisbranch/statcore/internal/actor"
	"github.com/louisbranch/statcore/internal/platform/errors"
	"github.com/louisbranch/statcore/internal/stat"
)

// Subsystem is a pluggable contribution source. Implementations must be
// safe for concurrent Contribute calls and must honor ctx cancellation;
// the aggregator wraps every call with a per-call timeout.
type Subsystem interface {
	// SystemID returns the unique, stable identity of the subsystem.
	SystemID() string
	// Priority orders contribution merging; lower runs earlier.
	Priority() int64
	// Contribute computes the subsystem's output for one actor.
	Contribute(ctx context.Context, a *actor.Actor) (*stat.SubsystemOutput, error)
}

type entry struct {
	subsystem Subsystem
	seq       int // registration order, breaks priority ties
}

// Metrics counts registry operations.
type Metrics struct {
	Registered   int64
	Unregistered int64
	Lookups      int64
}

// Registry is an id-indexed, priority-ordered subsystem store. Mutation
// is serialized against concurrent reads with a reader-writer lock.
type Registry struct {
	mu      sync.RWMutex
	byID    map[string]entry
	nextSeq int
	metrics Metrics
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{byID: map[string]entry{}}
}

// Register adds a subsystem. A duplicate SystemID is an error.
func (r *Registry) Register(s Subsystem) error {
	if s == nil {
		return errors.New(errors.CodeSubsystemInvalid, "subsystem must not be nil")
	}
	id := s.SystemID()
	if id == "" {
		return errors.New(errors.CodeSubsystemInvalid, "subsystem id must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byID[id]; dup {
		return errors.WithMetadata(errors.CodeSubsystemDuplicate, "subsystem already registered", map[string]string{
			"system_id": id,
		})
	}
	r.byID[id] = entry{subsystem: s, seq: r.nextSeq}
	r.nextSeq++
	r.metrics.Registered++
	return nil
}

// Unregister removes a subsystem by id.
func (r *Registry) Unregister(systemID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[systemID]; !ok {
		return errors.WithMetadata(errors.CodeSubsystemUnknown, "subsystem not registered", map[string]string{
			"system_id": systemID,
		})
	}
	delete(r.byID, systemID)
	r.metrics.Unregistered++
	return nil
}

// GetByID returns a subsystem by identity.
func (r *Registry) GetByID(systemID string) (Subsystem, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics.Lookups++
	e, ok := r.byID[systemID]
	if !ok {
		return nil, false
	}
	return e.subsystem, true
}

// GetByPriority returns subsystems sorted by priority ascending, ties
// broken by registration order. The returned slice is a copy.
func (r *Registry) GetByPriority() []Subsystem {
	r.mu.RLock()
	entries := make([]entry, 0, len(r.byID))
	for _, e := range r.byID {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		pi, pj := entries[i].subsystem.Priority(), entries[j].subsystem.Priority()
		if pi != pj {
			return pi < pj
		}
		return entries[i].seq < entries[j].seq
	})

	out := make([]Subsystem, len(entries))
	for i, e := range entries {
		out[i] = e.subsystem
	}
	return out
}

// IsRegistered reports whether a subsystem id is present.
func (r *Registry) IsRegistered(systemID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byID[systemID]
	return ok
}

// Count returns the number of registered subsystems.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// ValidateAll checks every registered subsystem still satisfies
// structural invariants: a non-empty id matching its index key.
func (r *Registry) ValidateAll() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, e := range r.byID {
		current := e.subsystem.SystemID()
		if current == "" {
			return errors.New(errors.CodeSubsystemInvalid, "subsystem id must not be empty")
		}
		if current != id {
			return errors.WithMetadata(errors.CodeSubsystemInvalid, "subsystem id changed after registration", map[string]string{
				"registered": id,
				"current":    current,
			})
		}
	}
	return nil
}

// Fingerprint hashes the ordered subsystem ids. The aggregator folds it
// into cache keys so registry changes invalidate cached snapshots.
func (r *Registry) Fingerprint() uint64 {
	h := fnv.New64a()
	for _, s := range r.GetByPriority() {
		h.Write([]byte(s.SystemID()))
		h.Write([]byte{0})
	}
	return h.Sum64()
}

// Metrics returns a copy of the operation counters.
func (r *Registry) Metrics() Metrics {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.metrics
}
