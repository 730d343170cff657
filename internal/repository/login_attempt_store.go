package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// LoginAttemptStore counts consecutive failed logins per username inside a
// sliding window. The throttle fails open: a nil client or an unreachable
// Redis disables counting rather than blocking logins.
type LoginAttemptStore struct {
	client *redis.Client
	window time.Duration
	logger *zap.Logger
}

// NewLoginAttemptStore builds a redis-backed attempt counter.
func NewLoginAttemptStore(client *redis.Client, window time.Duration, logger *zap.Logger) *LoginAttemptStore {
	if window <= 0 {
		window = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoginAttemptStore{client: client, window: window, logger: logger}
}

func attemptKey(username string) string {
	return "auth:login_failures:" + username
}

// RecordFailure increments the failure counter and returns the new count.
// The window expiry is refreshed on every failure. Redis errors are logged
// and swallowed so an outage never turns into a login failure.
func (s *LoginAttemptStore) RecordFailure(ctx context.Context, username string) (int64, error) {
	if s == nil || s.client == nil {
		return 0, nil
	}
	key := attemptKey(username)
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		s.logger.Warn("login throttle unavailable; skipping failure count", zap.Error(err))
		return 0, nil
	}
	if err := s.client.Expire(ctx, key, s.window).Err(); err != nil {
		s.logger.Warn("login throttle unavailable; skipping window refresh", zap.Error(err))
	}
	return count, nil
}

// Failures returns the current failure count for the username, or zero when
// Redis cannot be reached.
func (s *LoginAttemptStore) Failures(ctx context.Context, username string) (int64, error) {
	if s == nil || s.client == nil {
		return 0, nil
	}
	count, err := s.client.Get(ctx, attemptKey(username)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		s.logger.Warn("login throttle unavailable; treating as zero failures", zap.Error(err))
		return 0, nil
	}
	return count, nil
}

// Reset clears the counter after a successful login. Redis errors are logged
// and swallowed; a stale counter expires with its window.
func (s *LoginAttemptStore) Reset(ctx context.Context, username string) error {
	if s == nil || s.client == nil {
		return nil
	}
	if err := s.client.Del(ctx, attemptKey(username)).Err(); err != nil {
		s.logger.Warn("login throttle unavailable; skipping counter reset", zap.Error(err))
	}
	return nil
}
