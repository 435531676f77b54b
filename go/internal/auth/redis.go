package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "courtside:auth"

// RedisLimiter shares lockout counters between API replicas.
type RedisLimiter struct {
	client      *redis.Client
	maxAttempts int
	lockout     time.Duration
}

func NewRedisLimiter(client *redis.Client, maxAttempts int, lockout time.Duration) *RedisLimiter {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if lockout <= 0 {
		lockout = DefaultLockout
	}
	return &RedisLimiter{client: client, maxAttempts: maxAttempts, lockout: lockout}
}

var _ Limiter = (*RedisLimiter)(nil)

func attemptsKey(key string) string { return fmt.Sprintf("%s:attempts:%s", redisKeyPrefix, key) }
func lockKey(key string) string     { return fmt.Sprintf("%s:lock:%s", redisKeyPrefix, key) }

func (l *RedisLimiter) Locked(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := l.client.TTL(ctx, lockKey(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read lock ttl: %w", err)
	}
	// missing keys report negative sentinels
	if ttl <= 0 {
		return 0, nil
	}
	return ttl, nil
}

func (l *RedisLimiter) Fail(ctx context.Context, key string) (int, time.Duration, error) {
	if remaining, err := l.Locked(ctx, key); err != nil || remaining > 0 {
		return l.maxAttempts, remaining, err
	}

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, attemptsKey(key))
	// a quiet window of one lockout forgets old failures
	pipe.Expire(ctx, attemptsKey(key), l.lockout)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("failed to count login attempt: %w", err)
	}

	attempts := int(incr.Val())
	if attempts < l.maxAttempts {
		return attempts, 0, nil
	}

	pipe = l.client.TxPipeline()
	pipe.Set(ctx, lockKey(key), "1", l.lockout)
	pipe.Del(ctx, attemptsKey(key))
	if _, err := pipe.Exec(ctx); err != nil {
		return attempts, 0, fmt.Errorf("failed to set lockout: %w", err)
	}
	return attempts, l.lockout, nil
}

func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, attemptsKey(key), lockKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to reset login attempts: %w", err)
	}
	return nil
}
