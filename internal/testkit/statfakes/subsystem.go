// Package statfakes provides fake subsystems for engine tests.
package statfakes

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/louisbranch/statcore/internal/actor"
	"github.com/louisbranch/statcore/internal/stat"
)

// Subsystem is a configurable fake contribution source.
type Subsystem struct {
	ID  string
	Pri int64

	// Output is returned by Contribute when ContributeFn is nil.
	Output *stat.SubsystemOutput
	// Err is returned instead of Output when set.
	Err error
	// Delay is waited before returning, honoring ctx cancellation.
	Delay time.Duration
	// ContributeFn overrides the default behavior entirely.
	ContributeFn func(ctx context.Context, a *actor.Actor) (*stat.SubsystemOutput, error)

	calls atomic.Int64
}

// SystemID implements registry.Subsystem.
func (s *Subsystem) SystemID() string { return s.ID }

// Priority implements registry.Subsystem.
func (s *Subsystem) Priority() int64 { return s.Pri }

// Contribute implements registry.Subsystem.
func (s *Subsystem) Contribute(ctx context.Context, a *actor.Actor) (*stat.SubsystemOutput, error) {
	s.calls.Add(1)

	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.ContributeFn != nil {
		return s.ContributeFn(ctx, a)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Output != nil {
		return s.Output, nil
	}
	return stat.NewSubsystemOutput(s.ID, s.Pri), nil
}

// Calls returns how many times Contribute ran.
func (s *Subsystem) Calls() int64 {
	return s.calls.Load()
}

// Contributing builds a fake that emits the given contributions.
func Contributing(id string, priority int64, contribs ...stat.Contribution) *Subsystem {
	out := stat.NewSubsystemOutput(id, priority)
	for _, c := range contribs {
		out.AddContribution(c)
	}
	return &Subsystem{ID: id, Pri: priority, Output: out}
}
