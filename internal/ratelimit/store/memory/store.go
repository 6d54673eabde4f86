// Package memory implements the counter store in process memory. It is used
// by tests and single-instance deployments where no shared store is
// configured; counters are not shared across processes.
package memory

import (
	"context"
	"sync"
	"time"
)

type counter struct {
	count     int64
	expiresAt time.Time
}

// Store is a mutex-guarded in-memory counter store with TTL semantics
// matching the Redis implementation.
type Store struct {
	mu       sync.Mutex
	counters map[string]*counter
	now      func() time.Time
}

// New creates an empty in-memory counter store.
func New() *Store {
	return &Store{
		counters: make(map[string]*counter),
		now:      time.Now,
	}
}

// Incr increments the counter for key, creating it with the given TTL if
// absent or expired. The whole read-modify-write runs under one lock so
// concurrent callers cannot both observe the pre-increment value.
func (s *Store) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	c, ok := s.counters[key]
	if !ok || now.After(c.expiresAt) {
		c = &counter{expiresAt: now.Add(ttl)}
		s.counters[key] = c
	}
	c.count++

	// Opportunistic sweep keeps the map bounded without a cleanup goroutine.
	if len(s.counters) > 1 && len(s.counters)%4096 == 0 {
		for k, v := range s.counters {
			if now.After(v.expiresAt) {
				delete(s.counters, k)
			}
		}
	}

	return c.count, nil
}

// SetNow overrides the clock. Test hook.
func (s *Store) SetNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}
