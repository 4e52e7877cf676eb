// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Middleware sets the values; services read them without importing net/http.
//
//	ownerID := requestcontext.OwnerID(ctx)
//	requestID := requestcontext.RequestID(ctx)
//	now := requestcontext.Now(ctx)
//
// Tests inject them directly:
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	id "pixkeys/pkg/domain"
)

type (
	ownerIDKey     struct{}
	clientIPKey    struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// OwnerID retrieves the authenticated owner from the context.
// Returns the zero value (nil UUID) if not set.
func OwnerID(ctx context.Context) id.OwnerID {
	if ownerID, ok := ctx.Value(ownerIDKey{}).(id.OwnerID); ok {
		return ownerID
	}
	return id.OwnerID{}
}

// WithOwnerID injects the authenticated owner into the context.
func WithOwnerID(ctx context.Context, ownerID id.OwnerID) context.Context {
	return context.WithValue(ctx, ownerIDKey{}, ownerID)
}

// ClientIP retrieves the client IP address from the context.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok {
		return ip
	}
	return ""
}

// WithClientIP injects the client IP into the context.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// RequestID retrieves the correlation id from the context.
func RequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return requestID
	}
	return ""
}

// WithRequestID injects a correlation id into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now returns the request-scoped time, or time.Now() when none was captured.
// Every timestamp written while handling one request uses the same instant.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a fixed request time.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
