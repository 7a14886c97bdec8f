package ratelimit

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

const (
	failKeyPrefix = "login:fail:"
	lockKeyPrefix = "login:lock:"
)

// RedisLimiter is a Limiter backed by Redis, so the lockout state is shared
// across server instances and survives restarts.
type RedisLimiter struct {
	client *redis.Client
	policy Policy
}

// NewRedisLimiter constructs a RedisLimiter over an existing client.
func NewRedisLimiter(client *redis.Client, policy Policy) *RedisLimiter {
	return &RedisLimiter{client: client, policy: policy}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	_, err := l.client.Get(ctx, lockKeyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

func (l *RedisLimiter) RecordFailure(ctx context.Context, key string) error {
	failKey := failKeyPrefix + key

	count, err := l.client.Incr(ctx, failKey).Result()
	if err != nil {
		return err
	}
	if count == 1 {
		if err := l.client.Expire(ctx, failKey, l.policy.Window).Err(); err != nil {
			return err
		}
	}
	if count >= int64(l.policy.MaxFailures) {
		if err := l.client.Set(ctx, lockKeyPrefix+key, "1", l.policy.LockDuration).Err(); err != nil {
			return err
		}
		return l.client.Del(ctx, failKey).Err()
	}
	return nil
}

func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, failKeyPrefix+key, lockKeyPrefix+key).Err()
}
