// Package correlation propagates the X-Correlation-ID header across the
// request's full call chain. A well-formed inbound ID is reused verbatim so
// traces started upstream survive the gateway hop; otherwise a new UUID is
// generated.
package correlation

import (
	"net/http"

	"github.com/google/uuid"

	"healthdir/pkg/requestcontext"
)

const (
	// HeaderCorrelationID carries the correlation ID on requests and responses.
	HeaderCorrelationID = "X-Correlation-ID"
	// HeaderGatewaySource identifies which gateway handled the request.
	HeaderGatewaySource = "X-Gateway-Source"

	// maxInboundIDLength bounds attacker-controlled header data persisted to
	// the audit trail.
	maxInboundIDLength = 128
)

// Middleware returns correlation middleware for the named gateway. The
// correlation and gateway-source response headers are set before the handler
// runs so every response carries them: success, rejection, or upstream
// failure alike.
func Middleware(gatewaySource string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderCorrelationID)
			if !wellFormed(id) {
				id = uuid.NewString()
			}

			w.Header().Set(HeaderCorrelationID, id)
			w.Header().Set(HeaderGatewaySource, gatewaySource)

			ctx := requestcontext.WithCorrelationID(r.Context(), id)
			ctx = requestcontext.WithGatewaySource(ctx, gatewaySource)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// wellFormed accepts any printable-ASCII token of bounded length. Correlation
// IDs are opaque; restricting to UUIDs would break upstream tracers that use
// their own formats.
func wellFormed(id string) bool {
	if id == "" || len(id) > maxInboundIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if c <= ' ' || c > '~' {
			return false
		}
	}
	return true
}
