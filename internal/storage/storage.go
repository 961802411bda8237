// Package storage defines persistence contracts for resolution telemetry.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// ResolutionEvent records one aggregator resolution for offline analysis.
type ResolutionEvent struct {
	ActorID          string
	Version          int64
	CacheHit         bool
	Duration         time.Duration
	Subsystems       int
	FailedSubsystems int
	Timestamp        time.Time
}

// TelemetryStore persists resolution events.
type TelemetryStore interface {
	AppendResolutionEvent(ctx context.Context, event ResolutionEvent) error
}
