package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_FromEnv_Defaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Public.Addr)
	assert.Equal(t, GatewayPublic, cfg.Public.Type)
	assert.False(t, cfg.Public.RequireAuthentication)
	assert.Equal(t, 1000, cfg.Public.RateLimitPerMinute)
	assert.Equal(t, PartitionByIP, cfg.Public.PartitionStrategy)
	assert.Equal(t, AuditBestEffort, cfg.Public.AuditDurability)

	assert.Equal(t, ":8081", cfg.Admin.Addr)
	assert.True(t, cfg.Admin.RequireAuthentication)
	assert.Equal(t, 100, cfg.Admin.RateLimitPerMinute)
	assert.Equal(t, PartitionByUserID, cfg.Admin.PartitionStrategy)
	assert.Equal(t, AuditZeroLoss, cfg.Admin.AuditDurability)

	assert.Equal(t, 2555, cfg.RetentionDays)
	assert.Equal(t, 4096, cfg.AuditQueueSize)
	assert.Equal(t, 30*time.Second, cfg.ForwardTimeout)

	require.NoError(t, cfg.Validate())
}

func Test_FromEnv_Overrides(t *testing.T) {
	t.Setenv("HEALTHDIR_PUBLIC_RATE_LIMIT", "250")
	t.Setenv("HEALTHDIR_ADMIN_ADDR", ":9999")
	t.Setenv("HEALTHDIR_FORWARD_TIMEOUT", "10s")
	t.Setenv("HEALTHDIR_REDIS_URL", "redis://localhost:6379/0")

	cfg := FromEnv()

	assert.Equal(t, 250, cfg.Public.RateLimitPerMinute)
	assert.Equal(t, ":9999", cfg.Admin.Addr)
	assert.Equal(t, 10*time.Second, cfg.ForwardTimeout)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
}

func Test_FromEnv_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("HEALTHDIR_PUBLIC_RATE_LIMIT", "not-a-number")
	t.Setenv("HEALTHDIR_FORWARD_TIMEOUT", "soon")

	cfg := FromEnv()

	assert.Equal(t, 1000, cfg.Public.RateLimitPerMinute)
	assert.Equal(t, 30*time.Second, cfg.ForwardTimeout)
}

func Test_Validate(t *testing.T) {
	base := FromEnv()
	require.NoError(t, base.Validate())

	t.Run("non-positive rate limit", func(t *testing.T) {
		cfg := base
		cfg.Public.RateLimitPerMinute = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown partition strategy", func(t *testing.T) {
		cfg := base
		cfg.Admin.PartitionStrategy = "by_tenant"
		assert.Error(t, cfg.Validate())
	})

	t.Run("user partitioning without authentication", func(t *testing.T) {
		cfg := base
		cfg.Public.PartitionStrategy = PartitionByUserID
		assert.Error(t, cfg.Validate())
	})

	t.Run("non-positive retention", func(t *testing.T) {
		cfg := base
		cfg.RetentionDays = 0
		assert.Error(t, cfg.Validate())
	})
}
