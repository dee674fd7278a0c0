package contextengine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// SharedCache is the optional second cache tier shared between processes.
type SharedCache interface {
	Get(ctx context.Context, key string) (*Package, bool, error)
	Set(ctx context.Context, key string, p *Package, ttl time.Duration) error
}

type RedisCache struct {
	rdb    goredis.UniversalClient
	prefix string
}

func NewRedisCache(rdb goredis.UniversalClient, prefix string) *RedisCache {
	if prefix == "" {
		prefix = "devctx:context:"
	}
	return &RedisCache{rdb: rdb, prefix: prefix}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*Package, bool, error) {
	raw, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis cache get: %w", err)
	}
	var p Package
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, false, fmt.Errorf("redis cache decode: %w", err)
	}
	return &p, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, p *Package, ttl time.Duration) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("redis cache encode: %w", err)
	}
	if err := c.rdb.Set(ctx, c.prefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis cache set: %w", err)
	}
	return nil
}
