// Package requestcontext carries request-scoped values from middleware to
// services without either side importing net/http.
//
// Middleware sets values:
//
//	ctx = requestcontext.WithIdentity(ctx, identity)
//	ctx = requestcontext.WithRequestID(ctx, requestID)
//
// Services read them:
//
//	caller := requestcontext.Identity(ctx)
//	now := requestcontext.Now(ctx)
//
// Tests and the scheduler inject them directly with WithTime and
// WithClientMetadata.
package requestcontext

import (
	"context"
	"time"

	id "ringside/pkg/domain"
)

type (
	identityKey    struct{}
	clientIPKey    struct{}
	userAgentKey   struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

func value[T any](ctx context.Context, key any) (T, bool) {
	v, ok := ctx.Value(key).(T)
	return v, ok
}

// Identity is the verified caller, or nil for anonymous requests and
// scheduler-driven work.
func Identity(ctx context.Context) *id.Identity {
	identity, _ := value[*id.Identity](ctx, identityKey{})
	return identity
}

func WithIdentity(ctx context.Context, identity *id.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

func ClientIP(ctx context.Context) string {
	ip, _ := value[string](ctx, clientIPKey{})
	return ip
}

func UserAgent(ctx context.Context) string {
	ua, _ := value[string](ctx, userAgentKey{})
	return ua
}

// WithClientMetadata records the caller's address and User-Agent.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, clientIP)
	return context.WithValue(ctx, userAgentKey{}, userAgent)
}

func RequestID(ctx context.Context) string {
	reqID, _ := value[string](ctx, requestIDKey{})
	return reqID
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now is the request-scoped time. Without one it falls back to the wall clock.
func Now(ctx context.Context) time.Time {
	if t, ok := value[time.Time](ctx, requestTimeKey{}); ok {
		return t
	}
	return time.Now()
}

// WithTime pins Now for the rest of the request. The expiry sweep uses it so
// one batch shares a single cutoff.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
