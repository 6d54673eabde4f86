package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"healthdir/internal/ratelimit/store/memory"
	"healthdir/pkg/platform/sentinel"
	"healthdir/pkg/requestcontext"
)

const testLimit = 10

type ServiceSuite struct {
	suite.Suite
	svc *Service
	ctx context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.svc = New(memory.New())
	// Pin the request time so every check lands in one fixed window.
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, 5, 1, 10, 0, 30, 0, time.UTC))
}

func (s *ServiceSuite) TestCheck() {
	s.Run("requests up to the limit are allowed with decreasing remaining", func() {
		for i := 1; i <= testLimit; i++ {
			result, err := s.svc.Check(s.ctx, "ip:1.2.3.4", testLimit)
			s.Require().NoError(err)
			s.True(result.Allowed)
			s.Equal(testLimit, result.Limit)
			s.Equal(testLimit-i, result.Remaining)
		}
	})

	s.Run("request over the limit is rejected with retry-after", func() {
		result, err := s.svc.Check(s.ctx, "ip:1.2.3.4", testLimit)
		s.Require().NoError(err)
		s.False(result.Allowed)
		s.Equal(0, result.Remaining)
		s.Equal(30, result.RetryAfter) // 30s into the window, 30s to the boundary
	})

	s.Run("violations still count toward the window", func() {
		// The rejected request above was not rolled back, so the next one is
		// rejected too even though only limit+1 requests were "admitted".
		result, err := s.svc.Check(s.ctx, "ip:1.2.3.4", testLimit)
		s.Require().NoError(err)
		s.False(result.Allowed)
	})

	s.Run("distinct partitions have independent counters", func() {
		result, err := s.svc.Check(s.ctx, "ip:5.6.7.8", testLimit)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(testLimit-1, result.Remaining)
	})
}

func (s *ServiceSuite) TestWindowReset() {
	for i := 0; i < testLimit+1; i++ {
		_, err := s.svc.Check(s.ctx, "user:u1", testLimit)
		s.Require().NoError(err)
	}

	// Next fixed window: counter starts over.
	nextWindow := requestcontext.WithTime(context.Background(), time.Date(2026, 5, 1, 10, 1, 5, 0, time.UTC))
	result, err := s.svc.Check(nextWindow, "user:u1", testLimit)
	s.Require().NoError(err)
	s.True(result.Allowed)
	s.Equal(testLimit-1, result.Remaining)
}

func (s *ServiceSuite) TestResetAtIsWindowBoundary() {
	result, err := s.svc.Check(s.ctx, "ip:1.2.3.4", testLimit)
	s.Require().NoError(err)
	s.Equal(time.Date(2026, 5, 1, 10, 1, 0, 0, time.UTC), result.ResetAt)
}

type failingStore struct{ err error }

func (f *failingStore) Incr(context.Context, string, time.Duration) (int64, error) {
	return 0, f.err
}

func (s *ServiceSuite) TestStoreUnavailable() {
	svc := New(&failingStore{err: errors.New("connection refused")})

	result, err := svc.Check(s.ctx, "ip:1.2.3.4", testLimit)
	s.Require().ErrorIs(err, sentinel.ErrUnavailable)
	s.Nil(result)
}
