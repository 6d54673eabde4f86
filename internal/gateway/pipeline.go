package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"healthdir/internal/audit"
	"healthdir/internal/identity"
	ratelimitmodels "healthdir/internal/ratelimit/models"
	"healthdir/pkg/platform/httputil"
	"healthdir/pkg/requestcontext"
)

// Rate-limit telemetry headers, present whenever the limiter produced a
// window state.
const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
	HeaderRateLimitStatus    = "X-RateLimit-Status"
)

// Limiter checks the fixed-window quota for one partition key.
type Limiter interface {
	Check(ctx context.Context, partitionKey string, limit int) (*ratelimitmodels.Result, error)
}

// Pipeline applies a gateway Policy to every inbound request. It assumes the
// middleware chain already attached correlation ID, client metadata,
// request time, and the (possibly anonymous) principal to the context.
type Pipeline struct {
	policy   Policy
	limiter  Limiter
	recorder audit.Recorder
	roles    *identity.RoutePolicy
	logger   *slog.Logger
}

// Option configures the Pipeline.
type Option func(*Pipeline)

// WithRoutePolicy enables per-route authorization after authentication.
// Without it the pipeline authenticates but never returns 403.
func WithRoutePolicy(roles *identity.RoutePolicy) Option {
	return func(p *Pipeline) {
		p.roles = roles
	}
}

// New constructs a pipeline for the given policy.
func New(policy Policy, limiter Limiter, recorder audit.Recorder, logger *slog.Logger, opts ...Option) (*Pipeline, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{
		policy:   policy,
		limiter:  limiter,
		recorder: recorder,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Policy returns the pipeline's immutable policy.
func (p *Pipeline) Policy() Policy {
	return p.policy
}

// Handler wraps the forwarder with the policy gates. Every request produces
// at least one audit entry regardless of which gate rejects it, and every
// response carries the correlation headers stamped by the middleware chain.
func (p *Pipeline) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		rec := newStatusRecorder(w)

		p.recorder.Record(ctx, audit.NewEntry(ctx, audit.ActionRequestStart, r.Method, r.URL.String(), ""))

		// Authentication gate. On the public gateway every request passes,
		// including ones carrying an invalid credential, which the principal
		// middleware already reduced to anonymous.
		if p.policy.RequireAuthentication {
			if done := p.enforceAuth(rec, r); done {
				return
			}
		}

		// Rate limiter. Runs after the auth gate, so admin requests are
		// partitioned by the authenticated user id and a 401 never touches a
		// counter.
		decision := p.enforceRateLimit(rec, r)
		if decision.Outcome == OutcomeRateLimited {
			return
		}

		next.ServeHTTP(rec, r)

		p.auditCompletion(ctx, r, rec.status)
		requestsTotal.WithLabelValues(string(p.policy.Type), string(OutcomeAllowed)).Inc()
	})
}

// enforceAuth rejects requests without a sufficient validated principal.
// Returns true when the request was terminated here.
func (p *Pipeline) enforceAuth(w http.ResponseWriter, r *http.Request) bool {
	ctx := r.Context()
	principal := identity.FromContext(ctx)

	if principal.IsAnonymous() {
		p.recorder.Record(ctx, audit.NewEntry(ctx, audit.ActionAuthFailure, r.Method, r.URL.String(), "missing or invalid credential"))
		requestsTotal.WithLabelValues(string(p.policy.Type), string(OutcomeUnauthenticated)).Inc()
		p.logger.WarnContext(ctx, "request rejected: authentication required",
			"gateway", p.policy.Type,
			"correlation_id", requestcontext.CorrelationID(ctx),
		)
		w.Header().Set("WWW-Authenticate", `Bearer realm="healthdir"`)
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized", "Valid authentication is required")
		return true
	}

	if p.roles != nil {
		required := p.roles.RequiredRole(r.URL.Path)
		if !principal.HasRole(required) {
			p.recorder.Record(ctx, audit.NewEntry(ctx, audit.ActionAuthzDenied, r.Method, r.URL.String(),
				"requires role "+string(required)))
			requestsTotal.WithLabelValues(string(p.policy.Type), string(OutcomeForbidden)).Inc()
			p.logger.WarnContext(ctx, "request rejected: insufficient role",
				"gateway", p.policy.Type,
				"required_role", string(required),
				"user_id", principal.UserID,
				"correlation_id", requestcontext.CorrelationID(ctx),
			)
			httputil.WriteError(w, http.StatusForbidden, "forbidden", "Insufficient permissions for this operation")
			return true
		}
	}

	return false
}

// enforceRateLimit runs the limiter for the policy's partition and writes the
// 429 response on violation. Store unavailability fails open with a degraded
// marker: blocking all traffic on a dependency outage is the worse failure.
func (p *Pipeline) enforceRateLimit(w http.ResponseWriter, r *http.Request) Decision {
	ctx := r.Context()
	key := p.partitionKey(ctx)

	result, err := p.limiter.Check(ctx, key, p.policy.RateLimitPerMinute)
	if err != nil {
		p.recorder.Record(ctx, audit.NewEntry(ctx, audit.ActionRateLimitDegraded, r.Method, r.URL.String(),
			"counter store unavailable, failing open"))
		w.Header().Set(HeaderRateLimitStatus, "degraded")
		return Decision{Outcome: OutcomeAllowed, Degraded: true}
	}

	// Telemetry headers accompany every outcome, including rejections.
	w.Header().Set(HeaderRateLimitLimit, strconv.Itoa(result.Limit))
	w.Header().Set(HeaderRateLimitRemaining, strconv.Itoa(result.Remaining))
	w.Header().Set(HeaderRateLimitReset, strconv.FormatInt(int64(result.ResetAt.Sub(requestcontext.Now(ctx)).Seconds()), 10))

	if !result.Allowed {
		p.recorder.Record(ctx, audit.NewEntry(ctx, audit.ActionRateLimitViolation, r.Method, r.URL.String(),
			"partition "+key))
		requestsTotal.WithLabelValues(string(p.policy.Type), string(OutcomeRateLimited)).Inc()
		p.logger.WarnContext(ctx, "request rejected: rate limit exceeded",
			"gateway", p.policy.Type,
			"partition", key,
			"limit", result.Limit,
			"correlation_id", requestcontext.CorrelationID(ctx),
		)
		w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
		httputil.WriteJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":       "rate_limit_exceeded",
			"message":     "Too many requests. Please try again later.",
			"retry_after": result.RetryAfter,
		})
		return Decision{Outcome: OutcomeRateLimited, RateLimit: result}
	}

	return Decision{Outcome: OutcomeAllowed, RateLimit: result}
}

func (p *Pipeline) partitionKey(ctx context.Context) string {
	switch p.policy.PartitionStrategy {
	case PartitionByUserID:
		principal := identity.FromContext(ctx)
		if principal.UserID != "" {
			return ratelimitmodels.UserKey(principal.UserID)
		}
		// Unreachable when RequireAuthentication holds; IP keeps anonymous
		// traffic bounded if a policy ever combines user partitioning with
		// anonymous access.
		return ratelimitmodels.IPKey(requestcontext.ClientIP(ctx))
	default:
		return ratelimitmodels.IPKey(requestcontext.ClientIP(ctx))
	}
}

// auditCompletion records how the forwarded request ended. Upstream failures
// (the forwarder's 502/504) get their own action so SIEM queries can separate
// backend incidents from gateway rejections.
func (p *Pipeline) auditCompletion(ctx context.Context, r *http.Request, status int) {
	detail := "status " + strconv.Itoa(status)
	if status == http.StatusBadGateway || status == http.StatusGatewayTimeout {
		p.recorder.Record(ctx, audit.NewEntry(ctx, audit.ActionUpstreamFailure, r.Method, r.URL.String(), detail))
		upstreamFailures.WithLabelValues(string(p.policy.Type)).Inc()
		return
	}
	p.recorder.Record(ctx, audit.NewEntry(ctx, audit.ActionRequestComplete, r.Method, r.URL.String(), detail))
}
