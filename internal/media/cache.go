package media

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultURLTTL = time.Hour

// URLCache keeps resolved storage URLs in Redis.
type URLCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewURLCache(client *redis.Client, ttl time.Duration) *URLCache {
	if ttl <= 0 {
		ttl = defaultURLTTL
	}
	return &URLCache{client: client, ttl: ttl}
}

func (c *URLCache) key(name string) string {
	return "media:url:" + name
}

func (c *URLCache) Get(ctx context.Context, name string) (string, bool, error) {
	u, err := c.client.Get(ctx, c.key(name)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return u, true, nil
}

func (c *URLCache) Set(ctx context.Context, name, u string) error {
	return c.client.Set(ctx, c.key(name), u, c.ttl).Err()
}
