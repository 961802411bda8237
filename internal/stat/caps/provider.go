// Package caps resolves the effective [min, max] constraint for every
// stat dimension by merging subsystem cap proposals per layer and then
// combining layers under a configurable across-layer policy.
package caps

import (
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/louisbranch/statcore/internal/actor"
	"github.com/louisbranch/statcore/internal/platform/errors"
	"github.com/louisbranch/statcore/internal/stat"
)

// Layer is one named, prioritized source of cap constraints. Layers are
// loaded once at startup from configuration and are immutable afterwards.
// A lower Priority value means higher authority: it is merged first and
// wins under the Lenient policy.
type Layer struct {
	Name     string
	Priority int64
	Mode     stat.CapMode
	// SoftExceedable marks a soft_max layer whose caps may be exceeded
	// by penalty-tolerant contributions. It has no effect on other modes.
	SoftExceedable bool
}

// AcrossPolicy selects how per-layer caps combine into the final range.
type AcrossPolicy string

const (
	// PolicyStrict intersects every layer's constraint; a disjoint
	// result is a per-dimension conflict.
	PolicyStrict AcrossPolicy = "strict"
	// PolicyLenient keeps only the highest-priority layer's constraint
	// per dimension; all other layers are advisory.
	PolicyLenient AcrossPolicy = "lenient"
	// PolicyCustom delegates merging to a configured MergeFunc.
	PolicyCustom AcrossPolicy = "custom"
)

// LayerCaps is one layer's merged caps for a dimension, handed to custom
// merge functions in layer priority order.
type LayerCaps struct {
	Layer    string
	Priority int64
	Caps     stat.Caps
}

// MergeFunc combines per-layer caps for one dimension. Returning ok=false
// leaves the dimension uncapped.
type MergeFunc func(dimension string, layers []LayerCaps) (caps stat.Caps, ok bool, err error)

// Provider computes effective caps from layer configuration.
type Provider struct {
	layers []Layer // sorted by priority ascending, ties by declaration order
	policy AcrossPolicy
	merge  MergeFunc
	byName map[string]Layer
}

// Option configures a Provider.
type Option func(*Provider)

// WithMergeFunc supplies the merge function required by PolicyCustom.
func WithMergeFunc(fn MergeFunc) Option {
	return func(p *Provider) { p.merge = fn }
}

// NewProvider validates the layer configuration and returns a provider.
func NewProvider(layers []Layer, policy AcrossPolicy, opts ...Option) (*Provider, error) {
	p := &Provider{
		layers: make([]Layer, len(layers)),
		policy: policy,
		byName: make(map[string]Layer, len(layers)),
	}
	copy(p.layers, layers)
	for _, opt := range opts {
		opt(p)
	}

	for _, l := range p.layers {
		if l.Name == "" {
			return nil, errors.New(errors.CodeConfigInvalid, "cap layer name must not be empty")
		}
		if _, dup := p.byName[l.Name]; dup {
			return nil, errors.WithMetadata(errors.CodeConfigInvalid, "duplicate cap layer", map[string]string{
				"layer": l.Name,
			})
		}
		switch l.Mode {
		case stat.CapModeBaseline, stat.CapModeAdditive, stat.CapModeHardMax, stat.CapModeSoftMax:
		default:
			return nil, errors.WithMetadata(errors.CodeConfigInvalid, "unknown cap layer mode", map[string]string{
				"layer": l.Name,
				"mode":  string(l.Mode),
			})
		}
		p.byName[l.Name] = l
	}

	switch policy {
	case PolicyStrict, PolicyLenient:
	case PolicyCustom:
		if p.merge == nil {
			return nil, errors.New(errors.CodePolicyInvalid, "custom across-layer policy requires a merge function")
		}
	default:
		return nil, errors.WithMetadata(errors.CodePolicyInvalid, "unknown across-layer policy", map[string]string{
			"policy": string(policy),
		})
	}

	sort.SliceStable(p.layers, func(i, j int) bool {
		return p.layers[i].Priority < p.layers[j].Priority
	})
	return p, nil
}

// LayerOrder returns layer names in priority order.
func (p *Provider) LayerOrder() []string {
	names := make([]string, len(p.layers))
	for i, l := range p.layers {
		names[i] = l.Name
	}
	return names
}

// Policy returns the configured across-layer policy.
func (p *Provider) Policy() AcrossPolicy {
	return p.policy
}

// Fingerprint hashes the layer configuration and policy. The aggregator
// folds it into cache keys so a configuration change never serves stale
// snapshots.
func (p *Provider) Fingerprint() uint64 {
	h := fnv.New64a()
	for _, l := range p.layers {
		fmt.Fprintf(h, "%s|%d|%s|%t;", l.Name, l.Priority, l.Mode, l.SoftExceedable)
	}
	fmt.Fprintf(h, "policy=%s", p.policy)
	return h.Sum64()
}

// EffectiveCapsWithinLayer merges all caps proposed for one named layer
// across the given subsystem outputs. Outputs must be in subsystem
// priority order; the layer's mode selects the merge rule:
// hard_max intersects, baseline and additive union, soft_max keeps the
// last writer in subsystem priority order.
func (p *Provider) EffectiveCapsWithinLayer(a *actor.Actor, outputs []*stat.SubsystemOutput, layerName string) (map[string]stat.Caps, error) {
	_ = a // caps are currently actor-independent; the actor stays in the contract

	layer, ok := p.byName[layerName]
	if !ok {
		return nil, errors.WithMetadata(errors.CodeCapLayerUnknown, "cap layer not configured", map[string]string{
			"layer": layerName,
		})
	}

	merged := make(map[string]stat.Caps)
	for _, out := range outputs {
		if out == nil {
			continue
		}
		for _, proposal := range out.Caps {
			if proposal.Layer != layerName {
				continue
			}
			if !proposal.Caps.IsValid() {
				continue
			}
			current, seen := merged[proposal.Dimension]
			if !seen {
				merged[proposal.Dimension] = proposal.Caps
				continue
			}
			switch layer.Mode {
			case stat.CapModeHardMax:
				merged[proposal.Dimension] = current.Intersection(proposal.Caps)
			case stat.CapModeBaseline, stat.CapModeAdditive:
				merged[proposal.Dimension] = current.Union(proposal.Caps)
			case stat.CapModeSoftMax:
				// Outputs arrive in subsystem priority order, so the
				// last proposal seen is the highest-priority writer.
				merged[proposal.Dimension] = proposal.Caps
			}
		}
	}
	return merged, nil
}

// EffectiveCaps is the final per-dimension cap mapping.
type EffectiveCaps map[string]stat.Caps

// EffectiveCapsAcrossLayers iterates configured layers in priority order
// and combines each layer's merged caps under the across-layer policy.
// Per-dimension conflicts under PolicyStrict are reported as diagnostics;
// the dimension is omitted from the result and resolution continues.
func (p *Provider) EffectiveCapsAcrossLayers(a *actor.Actor, outputs []*stat.SubsystemOutput) (EffectiveCaps, []stat.Diagnostic, error) {
	perLayer := make(map[string][]LayerCaps)
	for _, layer := range p.layers {
		caps, err := p.EffectiveCapsWithinLayer(a, outputs, layer.Name)
		if err != nil {
			return nil, nil, err
		}
		for dimension, c := range caps {
			perLayer[dimension] = append(perLayer[dimension], LayerCaps{
				Layer:    layer.Name,
				Priority: layer.Priority,
				Caps:     c,
			})
		}
	}

	final := make(EffectiveCaps, len(perLayer))
	var diags []stat.Diagnostic
	for dimension, layered := range perLayer {
		switch p.policy {
		case PolicyStrict:
			merged := layered[0].Caps
			for _, lc := range layered[1:] {
				merged = merged.Intersection(lc.Caps)
			}
			if !merged.IsValid() {
				diags = append(diags, stat.Diagnostic{
					Severity:  stat.SeverityError,
					Code:      string(errors.CodeCapConflict),
					Dimension: dimension,
					Message:   fmt.Sprintf("strict cap intersection is empty: min=%v max=%v", merged.Min, merged.Max),
				})
				continue
			}
			final[dimension] = merged
		case PolicyLenient:
			// layered is in layer priority order; the first entry is the
			// highest-priority layer and the only authoritative one.
			final[dimension] = layered[0].Caps
		case PolicyCustom:
			merged, ok, err := p.merge(dimension, layered)
			if err != nil {
				return nil, nil, errors.Wrap(errors.CodePolicyInvalid, "custom cap merge failed", err)
			}
			if !ok {
				continue
			}
			if !merged.IsValid() {
				diags = append(diags, stat.Diagnostic{
					Severity:  stat.SeverityError,
					Code:      string(errors.CodeCapConflict),
					Dimension: dimension,
					Message:   fmt.Sprintf("custom merge produced invalid caps: min=%v max=%v", merged.Min, merged.Max),
				})
				continue
			}
			final[dimension] = merged
		}
	}
	return final, diags, nil
}

// CapsForDimension computes the across-layer caps and projects a single
// dimension. The second return value is false when the dimension has no
// registered cap layer or its caps were dropped by a conflict.
func (p *Provider) CapsForDimension(dimension string, a *actor.Actor, outputs []*stat.SubsystemOutput) (stat.Caps, bool, error) {
	final, _, err := p.EffectiveCapsAcrossLayers(a, outputs)
	if err != nil {
		return stat.Caps{}, false, err
	}
	c, ok := final[dimension]
	return c, ok, nil
}

// SoftExceedable reports whether a layer tolerates penalty-tolerant
// contributions exceeding its soft caps.
func (p *Provider) SoftExceedable(layerName string) bool {
	l, ok := p.byName[layerName]
	return ok && l.Mode == stat.CapModeSoftMax && l.SoftExceedable
}
