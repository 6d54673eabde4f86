package audit

import (
	"context"
	"log/slog"
)

// Recorder accepts audit entries from the pipeline. Implementations must
// never fail the caller: audit failure degrades observability, not
// availability, so Record returns nothing.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

// LogRecorder is the best-effort recorder: structured log emission only, no
// database round-trip. Used by the public gateway.
type LogRecorder struct {
	logger *slog.Logger
}

// NewLogRecorder builds a best-effort recorder over the given logger.
func NewLogRecorder(logger *slog.Logger) *LogRecorder {
	return &LogRecorder{logger: logger}
}

func (r *LogRecorder) Record(ctx context.Context, entry Entry) {
	entriesRecorded.WithLabelValues("best_effort", string(entry.Action)).Inc()
	r.logger.LogAttrs(ctx, levelFor(entry.Severity), "audit",
		slog.String("event_id", entry.EventID.String()),
		slog.String("action", string(entry.Action)),
		slog.String("severity", string(entry.Severity)),
		slog.Bool("critical", entry.IsCriticalAction),
		slog.String("correlation_id", entry.CorrelationID),
		slog.String("trace_id", entry.TraceID),
		slog.String("user_id", entry.UserID),
		slog.String("method", entry.RequestMethod),
		slog.String("url", entry.RequestURL),
		slog.String("ip", entry.RequestIP),
		slog.String("client_app", entry.ClientApplication),
		slog.String("detail", entry.Detail),
	)
}

func levelFor(s Severity) slog.Level {
	switch s {
	case SeverityCritical:
		return slog.LevelError
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
