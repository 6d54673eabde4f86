// Package service implements the fixed-window rate limit check on top of a
// pluggable counter store.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"healthdir/internal/ratelimit/metrics"
	"healthdir/internal/ratelimit/models"
	"healthdir/pkg/platform/sentinel"
	"healthdir/pkg/requestcontext"
)

// Store is the shared atomic counter store. Incr must increment the counter
// for key and attach ttl in a single atomic operation; the post-increment
// value is returned.
type Store interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Service checks fixed-window rate limits for one partition key at a time.
type Service struct {
	store  Store
	logger *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets a logger for degraded-mode reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New constructs a rate limit service over the given counter store.
func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check increments the counter for partitionKey in the current fixed window
// and decides whether the request is allowed. The increment is never rolled
// back on rejection: a violating request still counts, so hammering a
// saturated partition cannot reset it.
//
// On store failure Check returns a wrapped sentinel.ErrUnavailable and no
// result; the caller decides the fail-open policy.
func (s *Service) Check(ctx context.Context, partitionKey string, limit int) (*models.Result, error) {
	start := time.Now()
	defer func() {
		metrics.ObserveCheckDuration(time.Since(start).Seconds())
	}()

	now := requestcontext.Now(ctx)
	windowStart := models.WindowStart(now)
	resetAt := windowStart.Add(models.Window)
	key := models.WindowKey(partitionKey, windowStart.Unix())

	count, err := s.store.Incr(ctx, key, models.Window)
	if err != nil {
		metrics.IncStoreError()
		s.logger.ErrorContext(ctx, "rate limit store unavailable, failing open",
			"error", err,
			"partition", partitionKey,
			"correlation_id", requestcontext.CorrelationID(ctx),
		)
		return nil, fmt.Errorf("rate limit check for %s: %w", partitionKey, sentinel.ErrUnavailable)
	}

	remaining := int64(limit) - count
	if remaining < 0 {
		remaining = 0
	}

	result := &models.Result{
		Allowed:   count <= int64(limit),
		Limit:     limit,
		Remaining: int(remaining),
		ResetAt:   resetAt,
	}
	if !result.Allowed {
		retryAfter := int(resetAt.Sub(now).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		result.RetryAfter = retryAfter
		metrics.IncRejected()
		return result, nil
	}

	metrics.IncAllowed()
	return result, nil
}
