// Package sqlite provides a SQLite-backed telemetry store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/louisbranch/statcore/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/statcore/internal/storage"
	"github.com/louisbranch/statcore/internal/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists resolution telemetry in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite telemetry store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// AppendResolutionEvent inserts one resolution record.
func (s *Store) AppendResolutionEvent(ctx context.Context, event storage.ResolutionEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	actorID := strings.TrimSpace(event.ActorID)
	if actorID == "" {
		return fmt.Errorf("actor id is required")
	}
	createdAt := event.Timestamp.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	cacheHit := 0
	if event.CacheHit {
		cacheHit = 1
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO resolution_events (
		   actor_id,
		   version,
		   cache_hit,
		   duration_us,
		   subsystems,
		   failed_subsystems,
		   created_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		actorID,
		event.Version,
		cacheHit,
		event.Duration.Microseconds(),
		event.Subsystems,
		event.FailedSubsystems,
		toMillis(createdAt),
	)
	if err != nil {
		return fmt.Errorf("append resolution event: %w", err)
	}
	return nil
}

// ListResolutionEvents returns up to limit events for one actor, most
// recent first.
func (s *Store) ListResolutionEvents(ctx context.Context, actorID string, limit int) ([]storage.ResolutionEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return nil, fmt.Errorf("actor id is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT actor_id, version, cache_hit, duration_us,
		        subsystems, failed_subsystems, created_at
		   FROM resolution_events
		  WHERE actor_id = ?
		  ORDER BY created_at DESC, id DESC
		  LIMIT ?`,
		actorID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list resolution events: %w", err)
	}
	defer rows.Close()

	var events []storage.ResolutionEvent
	for rows.Next() {
		var event storage.ResolutionEvent
		var cacheHit int
		var durationUS int64
		var createdAt int64
		if err := rows.Scan(
			&event.ActorID,
			&event.Version,
			&cacheHit,
			&durationUS,
			&event.Subsystems,
			&event.FailedSubsystems,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("list resolution events: %w", err)
		}
		event.CacheHit = cacheHit != 0
		event.Duration = time.Duration(durationUS) * time.Microsecond
		event.Timestamp = fromMillis(createdAt)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list resolution events: %w", err)
	}
	return events, nil
}

var _ storage.TelemetryStore = (*Store)(nil)
