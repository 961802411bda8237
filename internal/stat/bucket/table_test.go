package bucket

import (
	stderrors "errors"
	"testing"

	apperrors "github.com/louisbranch/statcore/internal/platform/errors"
	"github.com/louisbranch/statcore/internal/stat"
)

func TestCoreProcessingOrder(t *testing.T) {
	order := NewTable().ProcessingOrder()
	want := []stat.Bucket{stat.BucketFlat, stat.BucketMult, stat.BucketPostAdd, stat.BucketOverride}
	if len(order) != len(want) {
		t.Fatalf("expected %d kinds, got %d", len(want), len(order))
	}
	for i, kind := range want {
		if order[i] != kind {
			t.Fatalf("order[%d] = %q, want %q", i, order[i], kind)
		}
	}
}

func TestExtendedProcessingOrder(t *testing.T) {
	table := NewTable()
	if err := table.EnableExtended(); err != nil {
		t.Fatalf("enable extended: %v", err)
	}
	order := table.ProcessingOrder()
	want := []stat.Bucket{
		stat.BucketFlat, stat.BucketMult, stat.BucketPostAdd, stat.BucketOverride,
		stat.BucketExponential, stat.BucketLogarithmic, stat.BucketConditional,
	}
	for i, kind := range want {
		if order[i] != kind {
			t.Fatalf("order[%d] = %q, want %q", i, order[i], kind)
		}
	}
}

func TestRegisterDuplicateKind(t *testing.T) {
	table := NewTable()
	err := table.Register(stat.BucketFlat, func(v float64, c stat.Contribution) float64 { return v })
	if err == nil {
		t.Fatal("expected duplicate registration error")
	}
	if !stderrors.Is(err, apperrors.New(apperrors.CodeBucketDuplicate, "")) {
		t.Fatalf("expected BUCKET_DUPLICATE, got %v", err)
	}
}

func TestRegisterCustomKind(t *testing.T) {
	table := NewTable()
	const squared stat.Bucket = "squared"
	if err := table.Register(squared, func(v float64, c stat.Contribution) float64 {
		return v * v
	}); err != nil {
		t.Fatalf("register custom kind: %v", err)
	}
	if !table.Supports(squared) {
		t.Fatal("expected custom kind supported")
	}

	value, diags := Process(table, "power", []stat.Contribution{
		{Dimension: "power", Bucket: stat.BucketFlat, Value: 3, System: "base"},
		{Dimension: "power", Bucket: squared, Value: 0, System: "relic"},
	}, 0, nil)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %+v", diags)
	}
	// Custom kinds fold after the core order: (0+3)^2 = 9.
	if value != 9 {
		t.Fatalf("expected 9, got %v", value)
	}
}

func TestRegisterRejectsNilOp(t *testing.T) {
	table := NewTable()
	if err := table.Register("shifted", nil); err == nil {
		t.Fatal("expected error for nil operator")
	}
}
