// Package models holds the rate limiter's shared value types.
package models

import "time"

// Window is the fixed rate-limit window length. Counters reset at window
// boundaries (floor(now/window)*window), not on a sliding average.
const Window = time.Minute

// Result represents the outcome of a rate limit check.
type Result struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}

// WindowStart returns the fixed window boundary containing t.
func WindowStart(t time.Time) time.Time {
	return t.Truncate(Window)
}
