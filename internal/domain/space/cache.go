package space

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ListCache stores raw space list bodies by query.
type ListCache interface {
	// Get returns nil without error on a miss.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, body []byte, ttl time.Duration) error
}

// RedisCache is a ListCache backed by Redis.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache returns nil when client is nil so callers can pass it straight through.
func NewRedisCache(client *redis.Client) ListCache {
	if client == nil {
		return nil
	}
	return &RedisCache{client: client, prefix: "spacebook:spaces:"}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	body, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, body []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.prefix+key, body, ttl).Err()
}
