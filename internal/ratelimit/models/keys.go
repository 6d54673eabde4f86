package models

import (
	"fmt"
	"strings"
)

// SanitizeKeySegment escapes delimiter characters in rate limit key segments
// to prevent key collision attacks where user-controlled identifiers containing
// ':' could manipulate adjacent rate limit buckets.
//
// Example: An identifier "user:admin" would become "user_admin", preventing
// it from being interpreted as a separate key segment.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// IPKey builds the counter key for an IP partition.
// The "ip:"/"user:" prefixes keep the two namespaces from colliding.
func IPKey(ip string) string {
	return "ip:" + SanitizeKeySegment(ip)
}

// UserKey builds the counter key for a user-id partition.
func UserKey(userID string) string {
	return "user:" + SanitizeKeySegment(userID)
}

// WindowKey scopes a partition key to one fixed window so expired windows
// simply age out via TTL with no cleanup job.
func WindowKey(partitionKey string, windowStartUnix int64) string {
	return fmt.Sprintf("rl:%s:%d", partitionKey, windowStartUnix)
}
