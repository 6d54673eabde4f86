// Package redis implements the shared fixed-window counter store on Redis.
// Multiple gateway instances behind a load balancer share these counters, so
// the increment must be a single atomic round-trip.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrScript atomically increments the window counter and attaches the TTL on
// first increment. Doing both in one script closes the INCR-then-EXPIRE gap
// where a crash would leave an immortal counter.
var incrScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// Store is a Redis-backed counter store.
type Store struct {
	client redis.Scripter
}

// New constructs a Redis counter store. Any go-redis client (single node,
// cluster, ring) satisfies redis.Scripter.
func New(client redis.Scripter) *Store {
	return &Store{client: client}
}

// Incr atomically increments the counter for key and returns the
// post-increment value. The TTL is set once, when the counter is created.
func (s *Store) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := incrScript.Run(ctx, s.client, []string{key}, ttl.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("increment rate limit counter: %w", err)
	}
	return count, nil
}
