// Package telemetry records resolution events to a telemetry store.
package telemetry

import (
	"context"
	"log"
	"time"

	"github.com/louisbranch/statcore/internal/storage"
)

// Emitter writes resolution events. A nil Emitter or one without a
// store drops events silently, so callers never guard emission.
type Emitter struct {
	store storage.TelemetryStore
	now   func() time.Time
}

// New creates an emitter backed by store. A nil store is allowed.
func New(store storage.TelemetryStore) *Emitter {
	return &Emitter{store: store, now: time.Now}
}

// Emit records one resolution event. Persistence failures are logged
// and never propagate to the resolution path.
func (e *Emitter) Emit(ctx context.Context, event storage.ResolutionEvent) {
	if e == nil || e.store == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = e.now().UTC()
	}
	if err := e.store.AppendResolutionEvent(ctx, event); err != nil {
		log.Printf("telemetry: append resolution event: %v", err)
	}
}
