package redisdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/devcontext-backend/internal/platform/envutil"
	"github.com/yungbote/devcontext-backend/internal/platform/logger"
)

// NewFromEnv connects to REDIS_ADDR. It returns nil, nil when the address is
// unset; callers then run without the shared cache tier.
func NewFromEnv(log *logger.Logger) (*goredis.Client, error) {
	if log == nil {
		return nil, fmt.Errorf("redisdb: logger required")
	}
	addr := strings.TrimSpace(envutil.String("REDIS_ADDR", "", log))
	if addr == "" {
		return nil, nil
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     envutil.String("REDIS_PASSWORD", "", log),
		DB:           envutil.Int("REDIS_DB", 0, log),
		DialTimeout:  5 * time.Second,
		ReadTimeout:  envutil.Duration("REDIS_READ_TIMEOUT_MS", 500*time.Millisecond, time.Millisecond, log),
		WriteTimeout: envutil.Duration("REDIS_WRITE_TIMEOUT_MS", 500*time.Millisecond, time.Millisecond, log),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redisdb: ping: %w", err)
	}
	log.Info("redis connected", "addr", addr)
	return rdb, nil
}
