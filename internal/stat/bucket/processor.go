package bucket

import (
	"fmt"
	"sort"

	"github.com/louisbranch/statcore/internal/stat"
)

// ValidateContributions splits contributions into processable ones and a
// diagnostic per dropped contribution. One malformed contribution must
// never abort a dimension's resolution, so validation filters instead of
// failing.
func ValidateContributions(contributions []stat.Contribution) ([]stat.Contribution, []stat.Diagnostic) {
	valid := make([]stat.Contribution, 0, len(contributions))
	var dropped []stat.Diagnostic
	for _, c := range contributions {
		if c.IsValid() {
			valid = append(valid, c)
			continue
		}
		dropped = append(dropped, stat.Diagnostic{
			Severity:  stat.SeverityWarn,
			Code:      "CONTRIBUTION_INVALID",
			Dimension: c.Dimension,
			System:    c.System,
			Message:   fmt.Sprintf("dropped contribution %q bucket=%s value=%v", c.Dimension, c.Bucket, c.Value),
		})
	}
	return valid, dropped
}

// GroupContributionsByBucket partitions contributions by bucket kind,
// preserving input order within each partition.
func GroupContributionsByBucket(contributions []stat.Contribution) map[stat.Bucket][]stat.Contribution {
	groups := make(map[stat.Bucket][]stat.Contribution)
	for _, c := range contributions {
		groups[c.Bucket] = append(groups[c.Bucket], c)
	}
	return groups
}

// sortDeterministic orders contributions inside one bucket: priority
// descending, then original insertion order. The stable sort is what
// keeps snapshots byte-identical when contribution lists are assembled
// from concurrently returned subsystem outputs.
func sortDeterministic(contribs []stat.Contribution) {
	sort.SliceStable(contribs, func(i, j int) bool {
		return contribs[i].Priority > contribs[j].Priority
	})
}

// ProcessContributionsInOrder folds contributions into a scalar using the
// table's processing order, starting from initial. Invalid contributions
// are dropped with diagnostics; contributions whose bucket kind has no
// operator are likewise dropped. When clamp is non-nil the final value is
// clamped after all buckets have been applied.
func ProcessContributionsInOrder(t *Table, contributions []stat.Contribution, initial float64, clamp *stat.Caps) (float64, []stat.Diagnostic) {
	valid, diags := ValidateContributions(contributions)
	groups := GroupContributionsByBucket(valid)

	value := initial
	for _, entry := range t.entries {
		contribs := groups[entry.kind]
		if len(contribs) == 0 {
			continue
		}
		delete(groups, entry.kind)
		sortDeterministic(contribs)
		for _, c := range contribs {
			value = entry.op(value, c)
		}
	}

	// Whatever is left has no operator in the table.
	for kind, contribs := range groups {
		for _, c := range contribs {
			diags = append(diags, stat.Diagnostic{
				Severity:  stat.SeverityWarn,
				Code:      "BUCKET_UNKNOWN",
				Dimension: c.Dimension,
				System:    c.System,
				Message:   fmt.Sprintf("no operator registered for bucket %q", kind),
			})
		}
	}

	if clamp != nil {
		value = clamp.Clamp(value)
	}
	return value, diags
}

// Process folds the contributions of one dimension. It is the public
// entry point the aggregator uses; dimension only labels diagnostics.
func Process(t *Table, dimension string, contributions []stat.Contribution, initial float64, clamp *stat.Caps) (float64, []stat.Diagnostic) {
	value, diags := ProcessContributionsInOrder(t, contributions, initial, clamp)
	for i := range diags {
		if diags[i].Dimension == "" {
			diags[i].Dimension = dimension
		}
	}
	return value, diags
}
