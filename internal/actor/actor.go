// Package actor defines the read-only entity the stat engine resolves
// snapshots for. The engine never mutates an Actor; callers bump Version
// on every stat-relevant change so cached snapshots invalidate correctly.
package actor

import (
	"slices"

	"github.com/louisbranch/statcore/internal/platform/id"
)

// SubsystemRef records that a subsystem is attached to an actor.
type SubsystemRef struct {
	SystemID string
	Priority int64
	Enabled  bool
}

// Actor is a character or entity whose effective stats are resolved.
type Actor struct {
	ID      string
	Name    string
	Version int64

	Subsystems []SubsystemRef
	Buffs      []string
	Data       map[string]any
}

// New creates an actor with a generated identifier at version 1.
func New(name string) (*Actor, error) {
	actorID, err := id.NewID()
	if err != nil {
		return nil, err
	}
	return &Actor{
		ID:      actorID,
		Name:    name,
		Version: 1,
		Data:    map[string]any{},
	}, nil
}

// IsValid reports whether the actor satisfies structural invariants.
func (a *Actor) IsValid() bool {
	return a != nil && a.ID != "" && a.Version > 0
}

// Touch bumps the version counter. Every mutation helper calls it so a
// stale snapshot can never be served for the new state.
func (a *Actor) Touch() {
	a.Version++
}

// AddSubsystemRef attaches a subsystem reference and bumps the version.
func (a *Actor) AddSubsystemRef(ref SubsystemRef) {
	a.Subsystems = append(a.Subsystems, ref)
	a.Touch()
}

// RemoveSubsystemRef detaches a subsystem reference by id. It returns
// false when the actor has no such subsystem.
func (a *Actor) RemoveSubsystemRef(systemID string) bool {
	for i, ref := range a.Subsystems {
		if ref.SystemID == systemID {
			a.Subsystems = slices.Delete(a.Subsystems, i, i+1)
			a.Touch()
			return true
		}
	}
	return false
}

// HasSubsystemRef reports whether a subsystem is attached.
func (a *Actor) HasSubsystemRef(systemID string) bool {
	for _, ref := range a.Subsystems {
		if ref.SystemID == systemID {
			return true
		}
	}
	return false
}

// AddBuff records a buff and bumps the version. Duplicate buff ids are
// ignored without a version bump.
func (a *Actor) AddBuff(buffID string) {
	if a.HasBuff(buffID) {
		return
	}
	a.Buffs = append(a.Buffs, buffID)
	a.Touch()
}

// RemoveBuff removes a buff and bumps the version. It returns false when
// the buff was not present.
func (a *Actor) RemoveBuff(buffID string) bool {
	for i, b := range a.Buffs {
		if b == buffID {
			a.Buffs = slices.Delete(a.Buffs, i, i+1)
			a.Touch()
			return true
		}
	}
	return false
}

// HasBuff reports whether a buff is active.
func (a *Actor) HasBuff(buffID string) bool {
	return slices.Contains(a.Buffs, buffID)
}

// ClearBuffs removes all buffs. The version is bumped only when at least
// one buff was present.
func (a *Actor) ClearBuffs() {
	if len(a.Buffs) == 0 {
		return
	}
	a.Buffs = nil
	a.Touch()
}
