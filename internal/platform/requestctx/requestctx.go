// Package requestctx carries per-resolution request values through context.
package requestctx

import "context"

// resolutionContextKey is the context key for resolution context values.
type resolutionContextKey struct{}

// WithResolutionContext stores free-form resolution context in ctx.
// Subsystems may read it to adjust their contributions (for example a
// "combat" flag or an encounter identifier). The values never participate
// in stat arithmetic directly.
func WithResolutionContext(ctx context.Context, values map[string]any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, resolutionContextKey{}, values)
}

// ResolutionContextFrom returns the resolution context stored in ctx,
// or nil when none was set.
func ResolutionContextFrom(ctx context.Context) map[string]any {
	if ctx == nil {
		return nil
	}
	values, _ := ctx.Value(resolutionContextKey{}).(map[string]any)
	return values
}
