// Package gateway implements the request pipeline shared by the Public and
// Admin gateways: identity/correlation extraction happens in the middleware
// chain, then this package applies the per-gateway policy (authentication
// enforcement, partitioned rate limiting, audit emission, and response
// header stamping) before handing allowed requests to the forwarder.
//
// The two gateway variants are a single pipeline parameterized by Policy,
// not separate implementations.
package gateway

import (
	"fmt"

	"healthdir/internal/platform/config"
)

// GatewayType distinguishes the two gateway variants.
type GatewayType string

const (
	GatewayPublic GatewayType = "public"
	GatewayAdmin  GatewayType = "admin"
)

// PartitionStrategy selects the rate-limit counter dimension.
type PartitionStrategy string

const (
	PartitionByIP     PartitionStrategy = "by_ip"
	PartitionByUserID PartitionStrategy = "by_user_id"
)

// AuditDurability selects the audit persistence contract.
type AuditDurability string

const (
	AuditBestEffort AuditDurability = "best_effort"
	AuditZeroLoss   AuditDurability = "zero_loss"
)

// Policy is the static per-gateway-instance configuration.
// Immutable for the process lifetime.
type Policy struct {
	Type                  GatewayType
	RequireAuthentication bool
	RateLimitPerMinute    int
	PartitionStrategy     PartitionStrategy
	AuditDurability       AuditDurability
}

// PolicyFromConfig translates a validated gateway config block into a Policy.
func PolicyFromConfig(cfg config.GatewayConfig) Policy {
	return Policy{
		Type:                  GatewayType(cfg.Type),
		RequireAuthentication: cfg.RequireAuthentication,
		RateLimitPerMinute:    cfg.RateLimitPerMinute,
		PartitionStrategy:     PartitionStrategy(cfg.PartitionStrategy),
		AuditDurability:       AuditDurability(cfg.AuditDurability),
	}
}

// Validate rejects policies the pipeline cannot honor.
func (p Policy) Validate() error {
	if p.Type != GatewayPublic && p.Type != GatewayAdmin {
		return fmt.Errorf("unknown gateway type %q", p.Type)
	}
	if p.RateLimitPerMinute <= 0 {
		return fmt.Errorf("rate limit must be positive, got %d", p.RateLimitPerMinute)
	}
	if p.PartitionStrategy == PartitionByUserID && !p.RequireAuthentication {
		// User-id partitioning needs a user id; the auth gate runs first and
		// guarantees one exists by the time the limiter sees the request.
		return fmt.Errorf("user-id partitioning requires authentication")
	}
	return nil
}

// Source is the gateway identification tag stamped onto responses and audit
// entries.
func (p Policy) Source() string {
	return "healthdir-" + string(p.Type)
}
