// Package bucket folds ordered contributions for one stat dimension into
// a scalar. Bucket kinds resolve through an open operator table so new
// kinds can be registered at configuration time without touching the fold.
package bucket

import (
	"math"

	"github.com/louisbranch/statcore/internal/platform/errors"
	"github.com/louisbranch/statcore/internal/stat"
)

// Op applies one contribution to the running value. Ops must be pure.
type Op func(value float64, c stat.Contribution) float64

type opEntry struct {
	kind stat.Bucket
	op   Op
}

// Table maps bucket kinds to fold operators in a fixed processing order.
// The zero value is unusable; construct with NewTable.
type Table struct {
	entries []opEntry
	index   map[stat.Bucket]int
}

// NewTable returns a table with the four core kinds registered in the
// canonical order: flat, mult, post_add, override.
func NewTable() *Table {
	t := &Table{index: map[stat.Bucket]int{}}
	// Registration of the core kinds cannot collide.
	_ = t.Register(stat.BucketFlat, func(v float64, c stat.Contribution) float64 {
		return v + c.Value
	})
	_ = t.Register(stat.BucketMult, func(v float64, c stat.Contribution) float64 {
		return v * c.Value
	})
	_ = t.Register(stat.BucketPostAdd, func(v float64, c stat.Contribution) float64 {
		return v + c.Value
	})
	_ = t.Register(stat.BucketOverride, func(_ float64, c stat.Contribution) float64 {
		return c.Value
	})
	return t
}

// Register appends a bucket kind with its operator to the processing
// order. Registering a kind twice is an error.
func (t *Table) Register(kind stat.Bucket, op Op) error {
	if kind == "" {
		return errors.New(errors.CodeBucketUnknown, "bucket kind must not be empty")
	}
	if op == nil {
		return errors.WithMetadata(errors.CodeConfigInvalid, "bucket operator must not be nil", map[string]string{
			"bucket": string(kind),
		})
	}
	if _, dup := t.index[kind]; dup {
		return errors.WithMetadata(errors.CodeBucketDuplicate, "bucket kind already registered", map[string]string{
			"bucket": string(kind),
		})
	}
	t.index[kind] = len(t.entries)
	t.entries = append(t.entries, opEntry{kind: kind, op: op})
	return nil
}

// EnableExtended registers the extended kinds in their declared order:
// exponential, logarithmic, conditional.
func (t *Table) EnableExtended() error {
	if err := t.Register(stat.BucketExponential, func(v float64, c stat.Contribution) float64 {
		return v * (1 + c.Value)
	}); err != nil {
		return err
	}
	if err := t.Register(stat.BucketLogarithmic, func(v float64, c stat.Contribution) float64 {
		// ln is undefined for v <= 0; the contribution becomes a no-op
		// instead of poisoning the fold with NaN.
		if v <= 0 {
			return v
		}
		return v + c.Value*math.Log(v)
	}); err != nil {
		return err
	}
	return t.Register(stat.BucketConditional, func(v float64, c stat.Contribution) float64 {
		return v + c.Value
	})
}

// Supports reports whether the table has an operator for kind.
func (t *Table) Supports(kind stat.Bucket) bool {
	_, ok := t.index[kind]
	return ok
}

// ProcessingOrder returns the bucket kinds in fold order.
func (t *Table) ProcessingOrder() []stat.Bucket {
	order := make([]stat.Bucket, len(t.entries))
	for i, e := range t.entries {
		order[i] = e.kind
	}
	return order
}

// GetBucketProcessingOrder returns the canonical order of a fresh core
// table. Useful for offline analysis without constructing a Table.
func GetBucketProcessingOrder() []stat.Bucket {
	return NewTable().ProcessingOrder()
}
