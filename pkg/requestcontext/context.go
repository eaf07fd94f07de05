// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Middleware sets the values; the audit interception layer and services read them
// without importing net/http.
//
//	ctx = requestcontext.WithInitiatorID(ctx, "user-42")
//	initiator := requestcontext.InitiatorID(ctx)
//	now := requestcontext.Now(ctx)
package requestcontext

import (
	"context"
	"time"
)

// Context key types (unexported for encapsulation).
type (
	initiatorIDKey struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyInitiatorID = initiatorIDKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// InitiatorID retrieves the id of whoever triggered the current request.
// Returns "" when not set.
func InitiatorID(ctx context.Context) string {
	if initiator, ok := ctx.Value(ContextKeyInitiatorID).(string); ok {
		return initiator
	}
	return ""
}

// WithInitiatorID injects the initiator id into the context.
func WithInitiatorID(ctx context.Context, initiatorID string) context.Context {
	return context.WithValue(ctx, ContextKeyInitiatorID, initiatorID)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (workers, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
// Useful for tests that need deterministic event timestamps.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
