// Package httptransport wires the middleware chain, health surface, and
// pipeline for one gateway instance.
package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"healthdir/internal/gateway"
	"healthdir/internal/identity"
	"healthdir/pkg/platform/middleware/correlation"
	"healthdir/pkg/platform/middleware/metadata"
	"healthdir/pkg/platform/middleware/requesttime"
)

// Deps carries everything a gateway router needs.
type Deps struct {
	Pipeline  *gateway.Pipeline
	Forwarder http.Handler
	Principal func(http.Handler) http.Handler

	// Health reports dependency health; nil means always healthy.
	Health http.HandlerFunc

	// ExposeMetrics mounts /metrics (admin gateway only; the public gateway
	// must not leak operational telemetry).
	ExposeMetrics bool
}

// NewRouter builds the chi router for one gateway. Middleware order matters:
// request time and client metadata first so correlation and principal
// extraction (and everything downstream) see them.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(correlation.Middleware(deps.Pipeline.Policy().Source()))
	r.Use(deps.Principal)

	r.Get("/healthz", deps.healthHandler())
	if deps.ExposeMetrics {
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	}

	// Everything else flows through the policy pipeline to the backend.
	r.Handle("/*", deps.Pipeline.Handler(deps.Forwarder))

	return r
}

func (d Deps) healthHandler() http.HandlerFunc {
	if d.Health != nil {
		return d.Health
	}
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

// NoopPrincipal attaches the anonymous principal; used when no token
// validator is configured (tests, development without an IdP).
func NoopPrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(identity.WithPrincipal(r.Context(), identity.Anonymous)))
	})
}
