package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeKeySegment(t *testing.T) {
	assert.Equal(t, "user_admin", SanitizeKeySegment("user:admin"))
	assert.Equal(t, "plain", SanitizeKeySegment("plain"))
}

func TestKeyNamespaces(t *testing.T) {
	// An attacker-chosen user id must not collide with an IP bucket.
	assert.NotEqual(t, IPKey("1.2.3.4"), UserKey("1.2.3.4"))
	assert.Equal(t, "ip:__1_5", IPKey("::1:5"))
}

func TestWindowStart(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 30, 45, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 14, 12, 30, 0, 0, time.UTC), WindowStart(now))
}

func TestWindowKey(t *testing.T) {
	assert.Equal(t, "rl:ip:1.2.3.4:1700000000", WindowKey("ip:1.2.3.4", 1700000000))
}
