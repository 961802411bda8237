// Package aggregator resolves an actor's full stat snapshot by fanning
// out to registered subsystems, merging their outputs deterministically
// and caching the result keyed by actor version and configuration.
package aggregator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/louisbranch/statcore/internal/actor"
	"github.com/louisbranch/statcore/internal/platform/errors"
	"github.com/louisbranch/statcore/internal/platform/requestctx"
	"github.com/louisbranch/statcore/internal/stat"
	"github.com/louisbranch/statcore/internal/stat/bucket"
	"github.com/louisbranch/statcore/internal/stat/cache"
	"github.com/louisbranch/statcore/internal/stat/caps"
	"github.com/louisbranch/statcore/internal/stat/registry"
	"github.com/louisbranch/statcore/internal/storage"
	"github.com/louisbranch/statcore/internal/telemetry"
)

const (
	defaultWorkers          = 4
	defaultSubsystemTimeout = 2 * time.Second
	defaultCacheTTL         = 30 * time.Second
)

// StatClass labels where a resolved dimension lands in the snapshot.
type StatClass string

const (
	ClassPrimary StatClass = "primary"
	ClassDerived StatClass = "derived"
)

// Options tunes resolution behavior. The zero value is usable.
type Options struct {
	// Workers bounds concurrent subsystem calls per resolution.
	Workers int
	// SubsystemTimeout bounds each individual Contribute call.
	SubsystemTimeout time.Duration
	// CacheTTL bounds snapshot staleness against external invalidation.
	CacheTTL time.Duration
	// Classifier routes a dimension into Primary or Derived. Unset means
	// every dimension is primary.
	Classifier func(dimension string) StatClass
	// Emitter records resolution events; nil disables telemetry.
	Emitter *telemetry.Emitter
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = defaultWorkers
	}
	if o.SubsystemTimeout <= 0 {
		o.SubsystemTimeout = defaultSubsystemTimeout
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = defaultCacheTTL
	}
	if o.Classifier == nil {
		o.Classifier = func(string) StatClass { return ClassPrimary }
	}
	return o
}

// Aggregator is the resolution entry point. It is safe for concurrent
// use; concurrent resolutions of the same actor version collapse into a
// single computation.
type Aggregator struct {
	registry *registry.Registry
	caps     *caps.Provider
	table    *bucket.Table
	cache    cache.Store
	opts     Options

	group  singleflight.Group
	stats  counters
	tracer trace.Tracer
}

// New wires an aggregator from its collaborators.
func New(reg *registry.Registry, capsProvider *caps.Provider, table *bucket.Table, store cache.Store, opts Options) (*Aggregator, error) {
	if reg == nil {
		return nil, errors.New(errors.CodeConfigInvalid, "registry is required")
	}
	if capsProvider == nil {
		return nil, errors.New(errors.CodeConfigInvalid, "caps provider is required")
	}
	if table == nil {
		return nil, errors.New(errors.CodeConfigInvalid, "bucket table is required")
	}
	if store == nil {
		return nil, errors.New(errors.CodeCacheUnavailable, "cache store is required")
	}
	return &Aggregator{
		registry: reg,
		caps:     capsProvider,
		table:    table,
		cache:    store,
		opts:     opts.withDefaults(),
		tracer:   otel.Tracer("statcore/aggregator"),
	}, nil
}

// cacheKey identifies one resolution: the actor at a version under the
// current registry membership and cap configuration. Any of the four
// changing yields a fresh key, so stale snapshots are unreachable rather
// than invalidated.
func (ag *Aggregator) cacheKey(a *actor.Actor) string {
	return fmt.Sprintf("%s:%d:%x:%x", a.ID, a.Version, ag.registry.Fingerprint(), ag.caps.Fingerprint())
}

// Resolve returns the actor's stat snapshot, from cache when possible.
func (ag *Aggregator) Resolve(ctx context.Context, a *actor.Actor) (*stat.Snapshot, error) {
	if a == nil || !a.IsValid() {
		return nil, errors.New(errors.CodeContributionInvalid, "actor is invalid")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := ag.cacheKey(a)
	if snap, ok := ag.cachedAt(key, a.Version); ok {
		ag.stats.cacheHits.Add(1)
		ag.opts.Emitter.Emit(ctx, storage.ResolutionEvent{
			ActorID:    a.ID,
			Version:    a.Version,
			CacheHit:   true,
			Subsystems: len(snap.SubsystemsProcessed),
		})
		return snap, nil
	}
	ag.stats.cacheMisses.Add(1)

	result, err, _ := ag.group.Do(key, func() (any, error) {
		// A concurrent caller may have populated the cache while this
		// call waited on the flight group.
		if snap, ok := ag.cachedAt(key, a.Version); ok {
			return snap, nil
		}
		return ag.resolveUncached(ctx, a, key)
	})
	if err != nil {
		return nil, err
	}
	return result.(*stat.Snapshot), nil
}

// cachedAt returns a cached snapshot only when it matches the expected
// actor version.
func (ag *Aggregator) cachedAt(key string, version int64) (*stat.Snapshot, bool) {
	snap, ok := ag.cache.Get(key)
	if !ok || snap.Version != version {
		return nil, false
	}
	return snap, true
}

func (ag *Aggregator) resolveUncached(ctx context.Context, a *actor.Actor, key string) (*stat.Snapshot, error) {
	ctx, span := ag.tracer.Start(ctx, "aggregator.Resolve",
		trace.WithAttributes(
			attribute.String("actor.id", a.ID),
			attribute.Int64("actor.version", a.Version),
		),
	)
	defer span.End()

	start := time.Now()
	subsystems := ag.registry.GetByPriority()

	outputs, failures := ag.contributeAll(ctx, a, subsystems)

	var diags []stat.Diagnostic
	processed := make([]string, 0, len(outputs))
	kept := make([]*stat.SubsystemOutput, 0, len(outputs))
	failed := 0
	for i, s := range subsystems {
		if failures[i] != nil {
			failed++
			diags = append(diags, stat.Diagnostic{
				Severity: stat.SeverityError,
				Code:     "SUBSYSTEM_FAILED",
				System:   s.SystemID(),
				Message:  failures[i].Error(),
			})
			continue
		}
		if outputs[i] == nil {
			continue
		}
		processed = append(processed, s.SystemID())
		kept = append(kept, outputs[i])
	}
	ag.stats.subsystemFailures.Add(int64(failed))
	if len(subsystems) > 0 && failed == len(subsystems) {
		return nil, errors.WithMetadata(errors.CodeAllSubsystemsFailed, "every subsystem failed to contribute", map[string]string{
			"actor_id": a.ID,
		})
	}

	capsUsed, capDiags, err := ag.caps.EffectiveCapsAcrossLayers(a, kept)
	if err != nil {
		return nil, err
	}
	diags = append(diags, capDiags...)

	// A dimension's caps are exceedable only when every layer proposing
	// them tolerates it.
	exceedable := map[string]bool{}
	for _, out := range kept {
		for _, proposal := range out.Caps {
			soft := ag.caps.SoftExceedable(proposal.Layer)
			if current, seen := exceedable[proposal.Dimension]; seen {
				exceedable[proposal.Dimension] = current && soft
			} else {
				exceedable[proposal.Dimension] = soft
			}
		}
	}

	snap := stat.NewSnapshot(a.ID, a.Version)
	snap.SubsystemsProcessed = processed

	perDimension := map[string][]stat.Contribution{}
	for _, out := range kept {
		for _, c := range out.Contributions {
			perDimension[c.Dimension] = append(perDimension[c.Dimension], c)
		}
	}
	dimensions := make([]string, 0, len(perDimension))
	for d := range perDimension {
		dimensions = append(dimensions, d)
	}
	sort.Strings(dimensions)

	for _, dimension := range dimensions {
		var clamp *stat.Caps
		if c, ok := capsUsed[dimension]; ok {
			clamped := c
			clamp = &clamped
			snap.CapsUsed[dimension] = c
			if exceedable[dimension] && anyPenaltyTolerant(perDimension[dimension]) {
				clamp = nil
			}
		}
		value, bucketDiags := bucket.Process(ag.table, dimension, perDimension[dimension], 0, clamp)
		diags = append(diags, bucketDiags...)
		switch ag.opts.Classifier(dimension) {
		case ClassDerived:
			snap.Derived[dimension] = value
		default:
			snap.Primary[dimension] = value
		}
	}

	snap.Diagnostics = diags
	snap.ProcessingTime = time.Since(start)

	ag.stats.totalResolutions.Add(1)
	ag.stats.observe(snap.ProcessingTime)
	span.SetAttributes(
		attribute.Int("subsystems.total", len(subsystems)),
		attribute.Int("subsystems.failed", failed),
		attribute.Int("dimensions", len(dimensions)),
	)

	ag.cache.Set(key, snap, ag.opts.CacheTTL)
	ag.opts.Emitter.Emit(ctx, storage.ResolutionEvent{
		ActorID:          a.ID,
		Version:          a.Version,
		Duration:         snap.ProcessingTime,
		Subsystems:       len(subsystems),
		FailedSubsystems: failed,
	})
	return snap, nil
}

func anyPenaltyTolerant(contributions []stat.Contribution) bool {
	for _, c := range contributions {
		if c.PenaltyTolerant {
			return true
		}
	}
	return false
}

// contributeAll runs every subsystem concurrently with a bounded worker
// count and a per-call timeout. Results and failures are indexed by the
// subsystem's position so merge order never depends on completion order.
func (ag *Aggregator) contributeAll(ctx context.Context, a *actor.Actor, subsystems []registry.Subsystem) ([]*stat.SubsystemOutput, []error) {
	outputs := make([]*stat.SubsystemOutput, len(subsystems))
	failures := make([]error, len(subsystems))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ag.opts.Workers)
	for i, s := range subsystems {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, ag.opts.SubsystemTimeout)
			defer cancel()
			out, err := s.Contribute(callCtx, a)
			if err != nil {
				failures[i] = err
				return nil
			}
			outputs[i] = out
			return nil
		})
	}
	_ = g.Wait()
	return outputs, failures
}

// ResolveWithContext resolves with free-form resolution context made
// available to subsystems through their ctx argument.
func (ag *Aggregator) ResolveWithContext(ctx context.Context, a *actor.Actor, values map[string]any) (*stat.Snapshot, error) {
	return ag.Resolve(requestctx.WithResolutionContext(ctx, values), a)
}

// ResolveBatch resolves several actors, bounded by the worker count.
// Snapshots and errors are indexed like actors; one actor failing never
// aborts the rest of the batch.
func (ag *Aggregator) ResolveBatch(ctx context.Context, actors []*actor.Actor) ([]*stat.Snapshot, []error) {
	snapshots := make([]*stat.Snapshot, len(actors))
	errs := make([]error, len(actors))
	var g errgroup.Group
	g.SetLimit(ag.opts.Workers)
	for i, a := range actors {
		g.Go(func() error {
			snapshots[i], errs[i] = ag.Resolve(ctx, a)
			return nil
		})
	}
	_ = g.Wait()
	return snapshots, errs
}

// InvalidateActor drops every cached snapshot for one actor.
func (ag *Aggregator) InvalidateActor(actorID string) int {
	return ag.cache.DeletePrefix(actorID + ":")
}

// ClearCache drops every cached snapshot.
func (ag *Aggregator) ClearCache() {
	ag.cache.Clear()
}

// Metrics returns a copy of the resolution counters.
func (ag *Aggregator) Metrics() Metrics {
	return ag.stats.snapshot()
}
