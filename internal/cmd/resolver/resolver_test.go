package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/statcore/internal/stat"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("resolver", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Workers != 4 {
		t.Fatalf("expected default workers 4, got %d", cfg.Workers)
	}
	if cfg.CacheTTL != 30*time.Second {
		t.Fatalf("expected default cache ttl 30s, got %v", cfg.CacheTTL)
	}
	if cfg.Input != "" {
		t.Fatalf("expected empty input, got %q", cfg.Input)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	fs := flag.NewFlagSet("resolver", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-input", "doc.json", "-workers", "8", "-cache-ttl", "1m"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Input != "doc.json" {
		t.Fatalf("expected input override, got %q", cfg.Input)
	}
	if cfg.Workers != 8 {
		t.Fatalf("expected workers 8, got %d", cfg.Workers)
	}
	if cfg.CacheTTL != time.Minute {
		t.Fatalf("expected cache ttl 1m, got %v", cfg.CacheTTL)
	}
}

func writeDocument(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write document: %v", err)
	}
	return path
}

func TestRunResolvesDocument(t *testing.T) {
	path := writeDocument(t, `{
  "actor": {"id": "hero-1", "name": "Hero"},
  "policy": "strict",
  "layers": [
    {"name": "base", "priority": 0, "mode": "baseline"},
    {"name": "equipment", "priority": 10, "mode": "hard_max"}
  ],
  "subsystems": [
    {
      "id": "base",
      "priority": 0,
      "contributions": [
        {"dimension": "strength", "bucket": "flat", "value": 100}
      ]
    },
    {
      "id": "equipment",
      "priority": 10,
      "contributions": [
        {"dimension": "strength", "bucket": "flat", "value": 20},
        {"dimension": "strength", "bucket": "mult", "value": 1.1}
      ],
      "caps": [
        {"layer": "equipment", "dimension": "strength", "caps": {"min": 0, "max": 130}}
      ]
    }
  ]
}`)

	var out bytes.Buffer
	if err := Run(context.Background(), Config{Input: path, Workers: 2, CacheTTL: time.Second}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}

	var snap stat.Snapshot
	if err := json.Unmarshal(out.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.ActorID != "hero-1" || snap.Version != 1 {
		t.Fatalf("unexpected snapshot identity: %+v", snap)
	}
	// (100 + 20) * 1.1 = 132, clamped to 130.
	if snap.Primary["strength"] != 130 {
		t.Fatalf("expected 130, got %v", snap.Primary["strength"])
	}
}

func TestRunClassifiesDerivedDimensions(t *testing.T) {
	path := writeDocument(t, `{
  "actor": {"id": "hero-1"},
  "layers": [{"name": "base", "priority": 0, "mode": "baseline"}],
  "subsystems": [
    {
      "id": "base",
      "contributions": [
        {"dimension": "strength", "bucket": "flat", "value": 10},
        {"dimension": "attack_power", "bucket": "flat", "value": 25}
      ]
    }
  ],
  "derived": ["attack_power"]
}`)

	var out bytes.Buffer
	if err := Run(context.Background(), Config{Input: path, Workers: 2, CacheTTL: time.Second}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}

	var snap stat.Snapshot
	if err := json.Unmarshal(out.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Derived["attack_power"] != 25 {
		t.Fatalf("expected derived attack_power 25, got %+v", snap)
	}
	if _, ok := snap.Primary["attack_power"]; ok {
		t.Fatal("derived dimension must not appear in primary")
	}
}

func TestRunRejectsMissingInput(t *testing.T) {
	if err := Run(context.Background(), Config{}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error without input document")
	}
}

func TestRunRejectsActorWithoutID(t *testing.T) {
	path := writeDocument(t, `{"actor": {"name": "Nameless"}}`)
	if err := Run(context.Background(), Config{Input: path}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for actor without id")
	}
}

func TestRunWithTelemetryStore(t *testing.T) {
	path := writeDocument(t, `{
  "actor": {"id": "hero-1"},
  "layers": [{"name": "base", "priority": 0, "mode": "baseline"}],
  "subsystems": [
    {"id": "base", "contributions": [{"dimension": "strength", "bucket": "flat", "value": 10}]}
  ]
}`)
	db := filepath.Join(t.TempDir(), "telemetry.db")

	var out bytes.Buffer
	err := Run(context.Background(), Config{Input: path, TelemetryDB: db, Workers: 2, CacheTTL: time.Second}, &out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, statErr := os.Stat(db); statErr != nil {
		t.Fatalf("expected telemetry db created: %v", statErr)
	}
}
