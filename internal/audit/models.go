// Package audit persists one immutable record per gateway request lifecycle
// event. Entries are append-only; nothing in this package mutates a persisted
// entry.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"healthdir/internal/identity"
	"healthdir/pkg/requestcontext"
)

// Action identifies the request lifecycle event an entry records.
type Action string

const (
	ActionRequestStart       Action = "GATEWAY_REQUEST_START"
	ActionRequestComplete    Action = "GATEWAY_REQUEST_COMPLETE"
	ActionAuthFailure        Action = "AUTH_FAILURE"
	ActionAuthzDenied        Action = "AUTHZ_DENIED"
	ActionRateLimitViolation Action = "RATE_LIMIT_VIOLATION"
	ActionRateLimitDegraded  Action = "RATE_LIMIT_DEGRADED"
	ActionUpstreamFailure    Action = "UPSTREAM_FAILURE"
)

// Severity levels for audit entries, used for SIEM routing downstream.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// actionTraits maps each action to its severity and critical flag.
// Security and policy violations are always critical: the zero-loss
// durability contract applies to them unconditionally.
var actionTraits = map[Action]struct {
	severity Severity
	critical bool
}{
	ActionRequestStart:       {SeverityInfo, false},
	ActionRequestComplete:    {SeverityInfo, false},
	ActionAuthFailure:        {SeverityCritical, true},
	ActionAuthzDenied:        {SeverityCritical, true},
	ActionRateLimitViolation: {SeverityCritical, true},
	ActionRateLimitDegraded:  {SeverityWarning, false},
	ActionUpstreamFailure:    {SeverityWarning, false},
}

// SeverityFor returns the severity for an action. Unknown actions are info.
func SeverityFor(a Action) Severity {
	if t, ok := actionTraits[a]; ok {
		return t.severity
	}
	return SeverityInfo
}

// IsCritical reports whether the action is a critical security/policy event.
func IsCritical(a Action) bool {
	if t, ok := actionTraits[a]; ok {
		return t.critical
	}
	return false
}

// Entry is an immutable append-only audit record.
type Entry struct {
	// EventID is assigned once at creation and reused across write retries,
	// so at-least-once delivery never duplicates the logical event.
	EventID uuid.UUID

	EntityType string
	EntityID   string
	Action     Action

	UserID   string // empty for anonymous callers
	UserName string

	CorrelationID string
	TraceID       string

	RequestURL        string
	RequestMethod     string
	RequestIP         string
	UserAgent         string
	ClientApplication string
	AppVersion        string
	SessionID         string

	AuditTimestamp   time.Time
	IsCriticalAction bool
	Severity         Severity

	// Detail carries action-specific context (rejection reason, upstream
	// status). Free-form, never parsed.
	Detail string
}

// AppVersion is stamped onto every entry. Set from build info at startup.
var AppVersion = "dev"

// NewEntry builds an entry for the given action from the request context.
// Identity, correlation, client metadata, and request-scoped time must
// already be attached by the middleware chain; missing values degrade to
// best-effort defaults rather than failing.
func NewEntry(ctx context.Context, action Action, method, url, detail string) Entry {
	principal := identity.FromContext(ctx)

	e := Entry{
		EventID:    uuid.New(),
		EntityType: "gateway_request",
		EntityID:   requestcontext.CorrelationID(ctx),
		Action:     action,

		UserID:   principal.UserID,
		UserName: principal.UserName,

		CorrelationID: requestcontext.CorrelationID(ctx),

		RequestURL:        url,
		RequestMethod:     method,
		RequestIP:         requestcontext.ClientIP(ctx),
		UserAgent:         requestcontext.UserAgent(ctx),
		ClientApplication: requestcontext.ClientApplication(ctx),
		AppVersion:        AppVersion,
		SessionID:         principal.SessionID,

		AuditTimestamp:   requestcontext.Now(ctx),
		IsCriticalAction: IsCritical(action),
		Severity:         SeverityFor(action),

		Detail: detail,
	}

	if span := trace.SpanContextFromContext(ctx); span.HasTraceID() {
		e.TraceID = span.TraceID().String()
	}

	return e
}

// Store is the durable audit sink. Batch writes must preserve slice order so
// entries sharing a correlation ID stay retrievable in insertion order.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	AppendBatch(ctx context.Context, entries []Entry) error
	ListByCorrelation(ctx context.Context, correlationID string) ([]Entry, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
