package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medhaven/portal-auth/internal/config"
)

func newTestLimiter(t *testing.T, cfg config.RateLimitConfig) (*AttemptLimiter, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewAttemptLimiter(client, cfg, zap.NewNop()), server
}

func TestAttemptLimiter_AllowsUpToMax(t *testing.T) {
	limiter, _ := newTestLimiter(t, config.RateLimitConfig{
		LoginMaxAttempts: 3, LoginCooldownSeconds: 60,
	})

	for i := 0; i < 3; i++ {
		assert.NoError(t, limiter.EnforceLogin(context.Background(), "pat@example.com"))
	}
	err := limiter.EnforceLogin(context.Background(), "pat@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many attempts")
}

func TestAttemptLimiter_KeysAreCaseInsensitivePerEmail(t *testing.T) {
	limiter, _ := newTestLimiter(t, config.RateLimitConfig{
		LoginMaxAttempts: 1, LoginCooldownSeconds: 60,
	})

	require.NoError(t, limiter.EnforceLogin(context.Background(), "pat@example.com"))
	assert.Error(t, limiter.EnforceLogin(context.Background(), "PAT@EXAMPLE.COM"))
}

func TestAttemptLimiter_ResetClearsCounter(t *testing.T) {
	limiter, _ := newTestLimiter(t, config.RateLimitConfig{
		LoginMaxAttempts: 1, LoginCooldownSeconds: 60,
	})

	require.NoError(t, limiter.EnforceLogin(context.Background(), "pat@example.com"))
	limiter.ResetLogin(context.Background(), "pat@example.com")
	assert.NoError(t, limiter.EnforceLogin(context.Background(), "pat@example.com"))
}

func TestAttemptLimiter_CooldownExpiry(t *testing.T) {
	limiter, server := newTestLimiter(t, config.RateLimitConfig{
		TwoFactorMaxAttempts: 1, TwoFactorCooldownSeconds: 30,
	})

	require.NoError(t, limiter.EnforceTwoFactor(context.Background(), "u1"))
	require.Error(t, limiter.EnforceTwoFactor(context.Background(), "u1"))

	server.FastForward(31 * time.Second)
	assert.NoError(t, limiter.EnforceTwoFactor(context.Background(), "u1"))
}

func TestAttemptLimiter_FailsOpenWhenRedisDown(t *testing.T) {
	limiter, server := newTestLimiter(t, config.RateLimitConfig{
		LoginMaxAttempts: 1, LoginCooldownSeconds: 60,
	})
	server.Close()

	assert.NoError(t, limiter.EnforceLogin(context.Background(), "pat@example.com"))
	assert.NoError(t, limiter.EnforceLogin(context.Background(), "pat@example.com"))
}

func TestAttemptLimiter_NilClientDisablesThrottling(t *testing.T) {
	limiter := NewAttemptLimiter(nil, config.RateLimitConfig{LoginMaxAttempts: 1}, zap.NewNop())

	for i := 0; i < 5; i++ {
		assert.NoError(t, limiter.EnforceLogin(context.Background(), "pat@example.com"))
	}
}
