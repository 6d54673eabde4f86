// Package postgres persists audit entries in PostgreSQL.
//
// The table carries a bigserial seq column so entries sharing a correlation
// ID are retrievable in insertion order, and the primary key is the caller
// assigned event ID so retried batches are idempotent.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"healthdir/internal/audit"
)

// Schema creates the audit table. Applied by EnsureSchema at startup; kept
// here rather than a migration tool because this is the repo's only table.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_log (
	id                 UUID PRIMARY KEY,
	seq                BIGSERIAL,
	entity_type        TEXT NOT NULL,
	entity_id          TEXT NOT NULL,
	action             TEXT NOT NULL,
	user_id            TEXT,
	user_name          TEXT,
	correlation_id     TEXT NOT NULL,
	trace_id           TEXT,
	request_url        TEXT NOT NULL,
	request_method     TEXT NOT NULL,
	request_ip         TEXT NOT NULL,
	user_agent         TEXT,
	client_application TEXT,
	app_version        TEXT,
	session_id         TEXT,
	audit_timestamp    TIMESTAMPTZ NOT NULL,
	is_critical_action BOOLEAN NOT NULL,
	severity           TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS audit_log_correlation_idx ON audit_log (correlation_id, seq);
CREATE INDEX IF NOT EXISTS audit_log_timestamp_idx ON audit_log (audit_timestamp);
`

const insertQuery = `
	INSERT INTO audit_log (
		id, entity_type, entity_id, action,
		user_id, user_name, correlation_id, trace_id,
		request_url, request_method, request_ip,
		user_agent, client_application, app_version, session_id,
		audit_timestamp, is_critical_action, severity
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	ON CONFLICT (id) DO NOTHING
`

// Store implements audit.Store on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a PostgreSQL audit store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the audit table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

// Append inserts one entry. Duplicate event IDs are ignored so write retries
// never duplicate the logical event.
func (s *Store) Append(ctx context.Context, entry audit.Entry) error {
	if _, err := s.pool.Exec(ctx, insertQuery, insertArgs(entry)...); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// AppendBatch inserts entries in slice order within one pipelined batch.
// Inserts run sequentially on one connection, so seq assignment preserves the
// batch's ordering.
func (s *Store) AppendBatch(ctx context.Context, entries []audit.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, entry := range entries {
		batch.Queue(insertQuery, insertArgs(entry)...)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := range entries {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert audit entry %d of %d: %w", i+1, len(entries), err)
		}
	}
	return nil
}

// ListByCorrelation returns all entries for a correlation ID in the order
// they were inserted.
func (s *Store) ListByCorrelation(ctx context.Context, correlationID string) ([]audit.Entry, error) {
	query := `
		SELECT id, entity_type, entity_id, action,
			   user_id, user_name, correlation_id, trace_id,
			   request_url, request_method, request_ip,
			   user_agent, client_application, app_version, session_id,
			   audit_timestamp, is_critical_action, severity
		FROM audit_log
		WHERE correlation_id = $1
		ORDER BY seq ASC
	`

	rows, err := s.pool.Query(ctx, query, correlationID)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var (
			e        audit.Entry
			action   string
			severity string
			userID   *string
			userName *string
			traceID  *string
		)
		err := rows.Scan(
			&e.EventID, &e.EntityType, &e.EntityID, &action,
			&userID, &userName, &e.CorrelationID, &traceID,
			&e.RequestURL, &e.RequestMethod, &e.RequestIP,
			&e.UserAgent, &e.ClientApplication, &e.AppVersion, &e.SessionID,
			&e.AuditTimestamp, &e.IsCriticalAction, &severity,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Action = audit.Action(action)
		e.Severity = audit.Severity(severity)
		if userID != nil {
			e.UserID = *userID
		}
		if userName != nil {
			e.UserName = *userName
		}
		if traceID != nil {
			e.TraceID = *traceID
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

// DeleteOlderThan removes entries past the retention window and returns how
// many were deleted.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM audit_log WHERE audit_timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired audit entries: %w", err)
	}
	return tag.RowsAffected(), nil
}

func insertArgs(e audit.Entry) []any {
	return []any{
		e.EventID, e.EntityType, e.EntityID, string(e.Action),
		nullable(e.UserID), nullable(e.UserName), e.CorrelationID, nullable(e.TraceID),
		e.RequestURL, e.RequestMethod, e.RequestIP,
		e.UserAgent, e.ClientApplication, e.AppVersion, e.SessionID,
		e.AuditTimestamp, e.IsCriticalAction, string(e.Severity),
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
