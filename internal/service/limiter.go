package service

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/medhaven/portal-auth/internal/config"
	apperrors "github.com/medhaven/portal-auth/pkg/util"
)

// AttemptLimiter throttles repeated login and code-submission attempts with
// per-key INCR+EXPIRE counters. When Redis is unavailable the limiter fails
// open: verification still runs, the miss is only logged. Availability of
// the auth core wins over throttling.
type AttemptLimiter struct {
	redis  *redis.Client
	cfg    config.RateLimitConfig
	logger *zap.Logger
}

// NewAttemptLimiter builds the limiter. A nil client disables throttling
// (development mode without Redis).
func NewAttemptLimiter(client *redis.Client, cfg config.RateLimitConfig, logger *zap.Logger) *AttemptLimiter {
	return &AttemptLimiter{redis: client, cfg: cfg, logger: logger}
}

// EnforceLogin counts a login attempt for the given email.
func (l *AttemptLimiter) EnforceLogin(ctx context.Context, email string) error {
	return l.enforce(ctx, loginKey(email), l.cfg.LoginMaxAttempts, time.Duration(l.cfg.LoginCooldownSeconds)*time.Second)
}

// ResetLogin clears the counter after a successful login.
func (l *AttemptLimiter) ResetLogin(ctx context.Context, email string) {
	l.reset(ctx, loginKey(email))
}

// EnforceTwoFactor counts a code submission for the given session subject.
func (l *AttemptLimiter) EnforceTwoFactor(ctx context.Context, principalID string) error {
	return l.enforce(ctx, twoFactorKey(principalID), l.cfg.TwoFactorMaxAttempts, time.Duration(l.cfg.TwoFactorCooldownSeconds)*time.Second)
}

// ResetTwoFactor clears the counter after a successful verification.
func (l *AttemptLimiter) ResetTwoFactor(ctx context.Context, principalID string) {
	l.reset(ctx, twoFactorKey(principalID))
}

func (l *AttemptLimiter) enforce(ctx context.Context, key string, max int, cooldown time.Duration) error {
	if l.redis == nil || max <= 0 {
		return nil
	}

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		l.logger.Warn("attempt limiter unavailable", zap.String("key", key), zap.Error(err))
		return nil
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, cooldown).Err(); err != nil {
			l.logger.Warn("attempt limiter expire failed", zap.String("key", key), zap.Error(err))
		}
	}
	if count > int64(max) {
		return apperrors.NewRateLimited("too many attempts, try again later")
	}
	return nil
}

func (l *AttemptLimiter) reset(ctx context.Context, key string) {
	if l.redis == nil {
		return
	}
	if err := l.redis.Del(ctx, key).Err(); err != nil {
		l.logger.Warn("attempt limiter reset failed", zap.String("key", key), zap.Error(err))
	}
}

func loginKey(email string) string {
	return "auth:login:" + strings.ToLower(strings.TrimSpace(email))
}

func twoFactorKey(principalID string) string {
	return "auth:2fa:" + principalID
}
