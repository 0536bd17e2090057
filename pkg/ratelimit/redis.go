package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a fixed-window limiter backed by INCR and PEXPIRE so that every
// instance sharing the server sees the same windows.
type Redis struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedis wraps an existing client. Keys are stored as prefix + key.
func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix, now: time.Now}
}

// NewRedisFromURL connects using a redis:// URL and verifies the connection.
func NewRedisFromURL(ctx context.Context, url, prefix string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedis(client, prefix), nil
}

// Allow implements Limiter.
func (r *Redis) Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	redisKey := r.prefix + key

	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}
	if count == 1 {
		if err := r.client.PExpire(ctx, redisKey, window).Err(); err != nil {
			return Decision{}, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	if count <= int64(limit) {
		return Decision{Allowed: true}, nil
	}

	ttl, err := r.client.PTTL(ctx, redisKey).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("failed to read rate limit window: %w", err)
	}
	if ttl < 0 {
		// counter lost its expiry; restart the window
		if err := r.client.PExpire(ctx, redisKey, window).Err(); err != nil {
			return Decision{}, fmt.Errorf("failed to set rate limit window: %w", err)
		}
		ttl = window
	}

	return Decision{Allowed: false, RetryAt: r.now().Add(ttl)}, nil
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
