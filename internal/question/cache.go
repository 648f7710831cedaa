package question

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 5 * time.Minute

// Cache provides Redis-backed question pool caching to offload the database.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ PoolCache = (*Cache)(nil)

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) key(k PoolKey) string {
	kind := string(k.Kind)
	if kind == "" {
		kind = "all"
	}
	return strings.Join([]string{
		"questionpool",
		strings.ToUpper(k.License),
		k.Topic,
		kind,
	}, ":")
}

func (c *Cache) Get(ctx context.Context, k PoolKey) ([]Question, bool, error) {
	data, err := c.client.Get(ctx, c.key(k)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var qs []Question
	if err := json.Unmarshal(data, &qs); err != nil {
		return nil, false, err
	}
	return qs, true, nil
}

func (c *Cache) Set(ctx context.Context, k PoolKey, qs []Question) error {
	if qs == nil {
		qs = []Question{}
	}
	data, err := json.Marshal(qs)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(k), data, c.ttl).Err()
}
