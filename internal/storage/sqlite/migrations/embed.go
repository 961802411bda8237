package migrations

import "embed"

// FS contains embedded SQLite migrations for resolution telemetry.
//
//go:embed *.sql
var FS embed.FS
