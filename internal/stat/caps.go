package stat

import "math"

// Caps constrains a stat dimension to an inclusive [Min, Max] range.
// A Caps value is valid when Min <= Max; an intersection of disjoint
// ranges produces an invalid value that callers must check.
type Caps struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Unbounded returns a Caps that admits every finite value.
func Unbounded() Caps {
	return Caps{Min: math.Inf(-1), Max: math.Inf(1)}
}

// IsValid reports whether Min <= Max.
func (c Caps) IsValid() bool {
	return c.Min <= c.Max
}

// Clamp forces v into the [Min, Max] range.
func (c Caps) Clamp(v float64) float64 {
	return math.Max(c.Min, math.Min(c.Max, v))
}

// Contains reports whether v lies inside the range.
func (c Caps) Contains(v float64) bool {
	return c.Min <= v && v <= c.Max
}

// Union returns the smallest range containing both ranges.
func (c Caps) Union(other Caps) Caps {
	return Caps{
		Min: math.Min(c.Min, other.Min),
		Max: math.Max(c.Max, other.Max),
	}
}

// Intersection returns the overlap of both ranges. The result is invalid
// when the ranges are disjoint.
func (c Caps) Intersection(other Caps) Caps {
	return Caps{
		Min: math.Max(c.Min, other.Min),
		Max: math.Min(c.Max, other.Max),
	}
}
