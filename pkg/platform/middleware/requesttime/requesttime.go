// Package requesttime provides middleware and utilities for request-scoped time.
// All pipeline stages within a single HTTP request use the same "now" timestamp,
// ensuring consistency across audit entries and rate-limit window computation.
package requesttime

import (
	"net/http"
	"time"

	"healthdir/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request
// and stores it in the context for consistent time references throughout the request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()
		ctx := requestcontext.WithTime(r.Context(), now)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
