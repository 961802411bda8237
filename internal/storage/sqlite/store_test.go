package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/statcore/internal/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "telemetry.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(" "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestAppendAndListResolutionEvents(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	events := []storage.ResolutionEvent{
		{ActorID: "actor-1", Version: 1, CacheHit: false, Duration: 1500 * time.Microsecond, Subsystems: 3, Timestamp: base},
		{ActorID: "actor-1", Version: 1, CacheHit: true, Duration: 20 * time.Microsecond, Subsystems: 3, Timestamp: base.Add(time.Second)},
		{ActorID: "actor-2", Version: 4, CacheHit: false, Duration: 900 * time.Microsecond, Subsystems: 2, FailedSubsystems: 1, Timestamp: base},
	}
	for _, e := range events {
		if err := s.AppendResolutionEvent(ctx, e); err != nil {
			t.Fatalf("append event: %v", err)
		}
	}

	got, err := s.ListResolutionEvents(ctx, "actor-1", 10)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if !got[0].CacheHit || got[1].CacheHit {
		t.Fatalf("expected most recent event first, got %+v", got)
	}
	if got[0].Duration != 20*time.Microsecond {
		t.Fatalf("expected duration round trip, got %v", got[0].Duration)
	}
	if !got[0].Timestamp.Equal(base.Add(time.Second)) {
		t.Fatalf("expected timestamp round trip, got %v", got[0].Timestamp)
	}

	other, err := s.ListResolutionEvents(ctx, "actor-2", 10)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(other) != 1 || other[0].FailedSubsystems != 1 {
		t.Fatalf("expected one failed-subsystem event, got %+v", other)
	}
}

func TestAppendValidatesActorID(t *testing.T) {
	s := openTestStore(t)
	err := s.AppendResolutionEvent(context.Background(), storage.ResolutionEvent{ActorID: " "})
	if err == nil {
		t.Fatal("expected error for empty actor id")
	}
}

func TestListValidatesArguments(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.ListResolutionEvents(context.Background(), "", 10); err == nil {
		t.Fatal("expected error for empty actor id")
	}
	if _, err := s.ListResolutionEvents(context.Background(), "actor-1", 0); err == nil {
		t.Fatal("expected error for non-positive limit")
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.db")
	first, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	second, err := Open(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer second.Close()

	if err := second.AppendResolutionEvent(context.Background(), storage.ResolutionEvent{
		ActorID: "actor-1", Version: 1, Subsystems: 1,
	}); err != nil {
		t.Fatalf("append after reopen: %v", err)
	}
}
