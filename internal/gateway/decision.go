package gateway

import "healthdir/internal/ratelimit/models"

// Outcome classifies what the pipeline decided for a request.
type Outcome string

const (
	OutcomeAllowed         Outcome = "allowed"
	OutcomeRateLimited     Outcome = "rate_limited"
	OutcomeUnauthenticated Outcome = "unauthenticated"
	OutcomeForbidden       Outcome = "forbidden"
)

// Decision is the transient result of the pipeline gates, carrying what the
// response header stamping needs.
type Decision struct {
	Outcome   Outcome
	RateLimit *models.Result // nil until the limiter ran, and when degraded
	Degraded  bool           // limiter store was unavailable; request failed open
}
