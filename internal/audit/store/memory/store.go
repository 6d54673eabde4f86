// Package memory is the in-memory audit store used by tests and development
// mode. It mirrors the Postgres store's ordering and idempotence contract.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"healthdir/internal/audit"
)

// Store keeps entries in insertion order behind a mutex.
type Store struct {
	mu      sync.RWMutex
	entries []audit.Entry
	seen    map[uuid.UUID]struct{}
}

// New creates an empty in-memory audit store.
func New() *Store {
	return &Store{seen: make(map[uuid.UUID]struct{})}
}

// Append stores one entry. Duplicate event IDs are ignored, matching the
// Postgres store's ON CONFLICT DO NOTHING semantics.
func (s *Store) Append(_ context.Context, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.append(entry)
	return nil
}

// AppendBatch stores entries preserving slice order.
func (s *Store) AppendBatch(_ context.Context, entries []audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.append(e)
	}
	return nil
}

func (s *Store) append(entry audit.Entry) {
	if _, dup := s.seen[entry.EventID]; dup {
		return
	}
	s.seen[entry.EventID] = struct{}{}
	s.entries = append(s.entries, entry)
}

// ListByCorrelation returns entries for a correlation ID in insertion order.
func (s *Store) ListByCorrelation(_ context.Context, correlationID string) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.Entry
	for _, e := range s.entries {
		if e.CorrelationID == correlationID {
			out = append(out, e)
		}
	}
	return out, nil
}

// ListAll returns every stored entry in insertion order.
func (s *Store) ListAll(_ context.Context) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Entry{}, s.entries...), nil
}

// DeleteOlderThan removes entries older than cutoff.
func (s *Store) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	var deleted int64
	for _, e := range s.entries {
		if e.AuditTimestamp.Before(cutoff) {
			delete(s.seen, e.EventID)
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return deleted, nil
}
