// Package metadata extracts client-supplied request metadata (IP address,
// User-Agent) into the request context for the pipeline and audit recorder.
package metadata

import (
	"context"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"healthdir/pkg/requestcontext"
)

// ClientMetadata extracts client IP address and User-Agent from the request
// and adds them to the context for use by the pipeline stages.
// This middleware should be applied early in the chain.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIPFromRequest(r)
		ua := r.Header.Get("User-Agent")

		ctx := requestcontext.WithClientMetadata(r.Context(), ip, ua, ClientApplication(ua))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithClientMetadata injects client metadata into a context.
// Useful for service unit tests that don't run the full HTTP middleware chain.
func WithClientMetadata(ctx context.Context, clientIP, ua string) context.Context {
	return requestcontext.WithClientMetadata(ctx, clientIP, ua, ClientApplication(ua))
}

// ClientApplication derives a short client identifier ("Firefox/131.0",
// "curl") from a raw User-Agent string for the audit trail. Unparseable
// agents are passed through truncated so forensics never lose the raw value
// class.
func ClientApplication(rawUA string) string {
	if rawUA == "" {
		return "unknown"
	}
	parsed := useragent.New(rawUA)
	name, version := parsed.Browser()
	if name == "" {
		if len(rawUA) > 64 {
			return rawUA[:64]
		}
		return rawUA
	}
	if version == "" {
		return name
	}
	return name + "/" + version
}

// ClientIPFromRequest extracts the real client IP from the request, handling proxies and load balancers.
func ClientIPFromRequest(r *http.Request) string {
	// Check X-Forwarded-For header first (standard for proxied requests)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// X-Forwarded-For can contain multiple IPs (client, proxy1, proxy2, ...)
		// Take the first IP which is the original client
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	// Check X-Real-IP header (used by nginx and other proxies)
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// Fall back to RemoteAddr (direct connection)
	// RemoteAddr is in format "ip:port", so we need to strip the port
	if addr := r.RemoteAddr; addr != "" {
		// For IPv6, format is [::1]:port
		// For IPv4, format is 127.0.0.1:port
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return addr[:idx]
		}
		return addr
	}

	return "unknown"
}
