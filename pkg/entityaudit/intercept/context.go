package intercept

import "context"

type suppressKey struct{}

// WithDefaultEventsDisabled returns a context in which lifecycle interceptions
// emit nothing (disabled=true) or emit as usual (disabled=false). The setting
// lasts as long as the returned context is in use.
func WithDefaultEventsDisabled(ctx context.Context, disabled bool) context.Context {
	return context.WithValue(ctx, suppressKey{}, disabled)
}

// DefaultEventsDisabled reports whether lifecycle events are suppressed in ctx.
func DefaultEventsDisabled(ctx context.Context) bool {
	disabled, _ := ctx.Value(suppressKey{}).(bool)
	return disabled
}

// Detached returns a context for work that outlives the current call: the
// suppression flag is reset, values and cancellation are otherwise kept.
func Detached(ctx context.Context) context.Context {
	if !DefaultEventsDisabled(ctx) {
		return ctx
	}
	return WithDefaultEventsDisabled(ctx, false)
}
