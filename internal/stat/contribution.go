// Package stat defines the pure value types of the stat aggregation
// engine: contributions, caps, subsystem outputs, and snapshots.
package stat

import "math"

// Bucket identifies the arithmetic role a contribution plays. The set is
// open: the bucket processor resolves kinds through an operator table, so
// new kinds are configuration, not code changes.
type Bucket string

const (
	// BucketFlat adds to the running value before multipliers.
	BucketFlat Bucket = "flat"
	// BucketMult multiplies the running value.
	BucketMult Bucket = "mult"
	// BucketPostAdd adds to the running value after multipliers.
	BucketPostAdd Bucket = "post_add"
	// BucketOverride replaces the running value outright.
	BucketOverride Bucket = "override"

	// Extended kinds, registered on demand.

	// BucketExponential scales the running value by (1 + contribution).
	BucketExponential Bucket = "exponential"
	// BucketLogarithmic adds value * ln(running) when running > 0.
	BucketLogarithmic Bucket = "logarithmic"
	// BucketConditional adds to the running value when its condition
	// holds; without a condition source it behaves like a flat add.
	BucketConditional Bucket = "conditional"
)

// CapMode describes how a cap layer merges the caps proposed for it.
type CapMode string

const (
	// CapModeBaseline establishes the starting range; proposals merge by union.
	CapModeBaseline CapMode = "baseline"
	// CapModeAdditive expands the range; proposals merge by union.
	CapModeAdditive CapMode = "additive"
	// CapModeHardMax narrows the range; proposals merge by intersection.
	CapModeHardMax CapMode = "hard_max"
	// CapModeSoftMax is advisory; the highest-priority proposer wins.
	CapModeSoftMax CapMode = "soft_max"
)

// Contribution is a single stat modifier produced by a subsystem.
type Contribution struct {
	// Dimension is the stat the contribution targets, e.g. "strength".
	Dimension string `json:"dimension"`
	// Bucket is the arithmetic role of the contribution.
	Bucket Bucket `json:"bucket"`
	// Value is the operand; it must be finite.
	Value float64 `json:"value"`
	// System records provenance, e.g. "equipment:sword_01".
	System string `json:"system"`
	// Priority breaks ties among same-bucket contributions, descending.
	Priority int64 `json:"priority,omitempty"`
	// PenaltyTolerant marks a contribution that accepts downstream
	// penalties in exchange for exceeding soft-exceedable cap layers.
	// Hard caps still clamp it.
	PenaltyTolerant bool `json:"penalty_tolerant,omitempty"`
}

// IsValid reports whether the contribution may enter bucket processing.
// Non-finite values and empty dimension or system are rejected; callers
// filter invalid contributions and record them as validation diagnostics.
func (c Contribution) IsValid() bool {
	if c.Dimension == "" || c.System == "" {
		return false
	}
	if math.IsNaN(c.Value) || math.IsInf(c.Value, 0) {
		return false
	}
	return true
}
