// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// This package defines context keys and getter/setter functions for values that are
// typically set by middleware but consumed by the gateway pipeline and audit recorder.
// By keeping this package free of net/http dependencies, services can import only
// what they need without pulling in HTTP-related code.
//
// Usage in the pipeline (read values):
//
//	correlationID := requestcontext.CorrelationID(ctx)
//	ip := requestcontext.ClientIP(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithCorrelationID(ctx, id)
//	ctx = requestcontext.WithClientMetadata(ctx, ip, userAgent, clientApp)
package requestcontext

import (
	"context"
	"time"
)

// Context key types (unexported for encapsulation).
type (
	correlationIDKey struct{}
	clientIPKey      struct{}
	userAgentKey     struct{}
	clientAppKey     struct{}
	requestTimeKey   struct{}
	gatewaySourceKey struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyCorrelationID = correlationIDKey{}
	ContextKeyClientIP      = clientIPKey{}
	ContextKeyUserAgent     = userAgentKey{}
	ContextKeyClientApp     = clientAppKey{}
	ContextKeyRequestTime   = requestTimeKey{}
	ContextKeyGatewaySource = gatewaySourceKey{}
)

// -----------------------------------------------------------------------------
// Correlation
// -----------------------------------------------------------------------------

// CorrelationID retrieves the request correlation ID from the context.
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeyCorrelationID).(string); ok {
		return id
	}
	return ""
}

// WithCorrelationID injects a correlation ID into the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeyCorrelationID, id)
}

// GatewaySource retrieves the gateway identification tag from the context.
func GatewaySource(ctx context.Context) string {
	if src, ok := ctx.Value(ContextKeyGatewaySource).(string); ok {
		return src
	}
	return ""
}

// WithGatewaySource injects the gateway identification tag into the context.
func WithGatewaySource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, ContextKeyGatewaySource, source)
}

// -----------------------------------------------------------------------------
// Client metadata (IP, User-Agent, client application)
// -----------------------------------------------------------------------------

// ClientIP retrieves the client IP address from the context.
// Returns "unknown" if not set so audit records never carry an empty IP.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(ContextKeyClientIP).(string); ok && ip != "" {
		return ip
	}
	return "unknown"
}

// UserAgent retrieves the raw User-Agent from the context.
func UserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(ContextKeyUserAgent).(string); ok {
		return ua
	}
	return ""
}

// ClientApplication retrieves the parsed client application ("browser/version"
// or an API client name) from the context.
func ClientApplication(ctx context.Context) string {
	if app, ok := ctx.Value(ContextKeyClientApp).(string); ok {
		return app
	}
	return ""
}

// WithClientMetadata injects client IP, User-Agent, and the derived client
// application into a context.
// Useful for service unit tests that don't run the full HTTP middleware chain.
func WithClientMetadata(ctx context.Context, clientIP, userAgent, clientApp string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyClientIP, clientIP)
	ctx = context.WithValue(ctx, ContextKeyUserAgent, userAgent)
	ctx = context.WithValue(ctx, ContextKeyClientApp, clientApp)
	return ctx
}

// -----------------------------------------------------------------------------
// Request time
// -----------------------------------------------------------------------------

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (for non-HTTP contexts like workers, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
// Useful for:
//   - Service unit tests that don't run the full HTTP middleware chain
//   - Workers that need consistent time within a batch operation
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
