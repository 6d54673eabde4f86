// Package config builds process configuration from the environment so main
// stays lean. Every knob has a development-safe default; production deploys
// override via environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Gateway types recognized by the pipeline.
const (
	GatewayPublic = "public"
	GatewayAdmin  = "admin"
)

// Partition strategies for rate-limit counters.
const (
	PartitionByIP     = "by_ip"
	PartitionByUserID = "by_user_id"
)

// Audit durability modes.
const (
	AuditBestEffort = "best_effort"
	AuditZeroLoss   = "zero_loss"
)

// GatewayConfig captures one gateway instance's static policy and wiring.
// Immutable for the process lifetime.
type GatewayConfig struct {
	Type                  string
	Addr                  string
	BackendURL            string
	RequireAuthentication bool
	RateLimitPerMinute    int
	PartitionStrategy     string
	AuditDurability       string
}

// RedisConfig captures Redis connection settings for the shared counter store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Config is the full process configuration.
type Config struct {
	Public GatewayConfig
	Admin  GatewayConfig

	Redis       RedisConfig
	DatabaseURL string

	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string

	RetentionDays  int
	AuditQueueSize int

	ForwardTimeout time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Public: GatewayConfig{
			Type:                  GatewayPublic,
			Addr:                  getEnv("HEALTHDIR_PUBLIC_ADDR", ":8080"),
			BackendURL:            getEnv("HEALTHDIR_PUBLIC_BACKEND_URL", "http://localhost:9080"),
			RequireAuthentication: false,
			RateLimitPerMinute:    getEnvInt("HEALTHDIR_PUBLIC_RATE_LIMIT", 1000),
			PartitionStrategy:     PartitionByIP,
			AuditDurability:       AuditBestEffort,
		},
		Admin: GatewayConfig{
			Type:                  GatewayAdmin,
			Addr:                  getEnv("HEALTHDIR_ADMIN_ADDR", ":8081"),
			BackendURL:            getEnv("HEALTHDIR_ADMIN_BACKEND_URL", "http://localhost:9081"),
			RequireAuthentication: true,
			RateLimitPerMinute:    getEnvInt("HEALTHDIR_ADMIN_RATE_LIMIT", 100),
			PartitionStrategy:     PartitionByUserID,
			AuditDurability:       AuditZeroLoss,
		},
		Redis: RedisConfig{
			URL:          os.Getenv("HEALTHDIR_REDIS_URL"),
			PoolSize:     getEnvInt("HEALTHDIR_REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("HEALTHDIR_REDIS_MIN_IDLE", 2),
			DialTimeout:  getEnvDuration("HEALTHDIR_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("HEALTHDIR_REDIS_READ_TIMEOUT", 500*time.Millisecond),
			WriteTimeout: getEnvDuration("HEALTHDIR_REDIS_WRITE_TIMEOUT", 500*time.Millisecond),
		},
		DatabaseURL: os.Getenv("HEALTHDIR_DATABASE_URL"),

		JWTSigningKey: getEnv("HEALTHDIR_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:     getEnv("HEALTHDIR_JWT_ISSUER", "healthdir"),
		JWTAudience:   getEnv("HEALTHDIR_JWT_AUDIENCE", "healthdir-gateway"),

		RetentionDays:  getEnvInt("HEALTHDIR_AUDIT_RETENTION_DAYS", 2555),
		AuditQueueSize: getEnvInt("HEALTHDIR_AUDIT_QUEUE_SIZE", 4096),

		ForwardTimeout: getEnvDuration("HEALTHDIR_FORWARD_TIMEOUT", 30*time.Second),
	}
}

// Validate rejects configurations the pipeline cannot honor.
func (c Config) Validate() error {
	for _, gw := range []GatewayConfig{c.Public, c.Admin} {
		if gw.RateLimitPerMinute <= 0 {
			return fmt.Errorf("gateway %s: rate limit must be positive, got %d", gw.Type, gw.RateLimitPerMinute)
		}
		if gw.PartitionStrategy != PartitionByIP && gw.PartitionStrategy != PartitionByUserID {
			return fmt.Errorf("gateway %s: unknown partition strategy %q", gw.Type, gw.PartitionStrategy)
		}
		if gw.PartitionStrategy == PartitionByUserID && !gw.RequireAuthentication {
			return fmt.Errorf("gateway %s: user-id partitioning requires authentication", gw.Type)
		}
	}
	if c.RetentionDays <= 0 {
		return fmt.Errorf("retention days must be positive, got %d", c.RetentionDays)
	}
	if c.AuditQueueSize <= 0 {
		return fmt.Errorf("audit queue size must be positive, got %d", c.AuditQueueSize)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
