package sqlitemigrate

import (
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "migrate.db")
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return sqlDB
}

func TestApplyRunsMigrationsInOrder(t *testing.T) {
	sqlDB := openTestDB(t)

	fsys := fstest.MapFS{
		"0001_base.sql": {Data: []byte("CREATE TABLE widgets (id TEXT PRIMARY KEY);")},
		"0002_more.sql": {Data: []byte("ALTER TABLE widgets ADD COLUMN label TEXT;")},
	}

	if err := Apply(sqlDB, fsys); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	if _, err := sqlDB.Exec("INSERT INTO widgets (id, label) VALUES ('a', 'b')"); err != nil {
		t.Fatalf("expected both migrations applied: %v", err)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	sqlDB := openTestDB(t)

	fsys := fstest.MapFS{
		"0001_base.sql": {Data: []byte("CREATE TABLE widgets (id TEXT PRIMARY KEY);")},
	}

	if err := Apply(sqlDB, fsys); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if err := Apply(sqlDB, fsys); err != nil {
		t.Fatalf("second apply: %v", err)
	}

	var count int
	if err := sqlDB.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 recorded migration, got %d", count)
	}
}

func TestApplyRejectsBrokenSQL(t *testing.T) {
	sqlDB := openTestDB(t)

	fsys := fstest.MapFS{
		"0001_bad.sql": {Data: []byte("CREATE TABL broken")},
	}

	if err := Apply(sqlDB, fsys); err == nil {
		t.Fatal("expected error for broken migration")
	}
}
