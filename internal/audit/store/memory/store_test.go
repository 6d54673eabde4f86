package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"healthdir/internal/audit"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *Store
	ctx   context.Context
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = New()
	s.ctx = context.Background()
}

func (s *MemoryStoreSuite) entry(correlationID string, action audit.Action) audit.Entry {
	ctx := context.Background()
	e := audit.NewEntry(ctx, action, "GET", "/api/services", "")
	e.CorrelationID = correlationID
	return e
}

func (s *MemoryStoreSuite) TestOrderingByCorrelation() {
	first := s.entry("corr-1", audit.ActionRequestStart)
	other := s.entry("corr-2", audit.ActionRequestStart)
	second := s.entry("corr-1", audit.ActionRateLimitViolation)

	s.Require().NoError(s.store.Append(s.ctx, first))
	s.Require().NoError(s.store.Append(s.ctx, other))
	s.Require().NoError(s.store.Append(s.ctx, second))

	entries, err := s.store.ListByCorrelation(s.ctx, "corr-1")
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(audit.ActionRequestStart, entries[0].Action)
	s.Equal(audit.ActionRateLimitViolation, entries[1].Action)
}

func (s *MemoryStoreSuite) TestBatchPreservesOrder() {
	batch := []audit.Entry{
		s.entry("corr-1", audit.ActionRequestStart),
		s.entry("corr-1", audit.ActionAuthFailure),
		s.entry("corr-1", audit.ActionRequestComplete),
	}
	s.Require().NoError(s.store.AppendBatch(s.ctx, batch))

	entries, err := s.store.ListByCorrelation(s.ctx, "corr-1")
	s.Require().NoError(err)
	s.Require().Len(entries, 3)
	for i, e := range batch {
		s.Equal(e.EventID, entries[i].EventID)
	}
}

func (s *MemoryStoreSuite) TestDuplicateEventIDsIgnored() {
	e := s.entry("corr-1", audit.ActionAuthFailure)

	// A retried batch replays the same entries with the same event IDs.
	s.Require().NoError(s.store.AppendBatch(s.ctx, []audit.Entry{e}))
	s.Require().NoError(s.store.AppendBatch(s.ctx, []audit.Entry{e}))

	entries, err := s.store.ListByCorrelation(s.ctx, "corr-1")
	s.Require().NoError(err)
	s.Len(entries, 1)
}

func (s *MemoryStoreSuite) TestDeleteOlderThan() {
	old := s.entry("corr-old", audit.ActionRequestStart)
	old.AuditTimestamp = time.Now().AddDate(-8, 0, 0)
	recent := s.entry("corr-new", audit.ActionRequestStart)

	s.Require().NoError(s.store.Append(s.ctx, old))
	s.Require().NoError(s.store.Append(s.ctx, recent))

	deleted, err := s.store.DeleteOlderThan(s.ctx, time.Now().AddDate(-7, 0, 0))
	s.Require().NoError(err)
	s.Equal(int64(1), deleted)

	remaining, err := s.store.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(remaining, 1)
	s.Equal("corr-new", remaining[0].CorrelationID)
}
