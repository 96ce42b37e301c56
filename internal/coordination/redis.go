package coordination

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ssebasarias/droptools/internal/logger"
)

type redisCoordinator struct {
	log *logger.Logger
	rdb *goredis.Client
}

// NewRedisCoordinator connects using REDIS_ADDR and verifies the connection
// with a ping before returning.
func NewRedisCoordinator(log *logger.Logger) (Coordinator, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisCoordinator{
		log: log.With("service", "RedisCoordinator"),
		rdb: rdb,
	}, nil
}

func (c *redisCoordinator) IncrCounter(ctx context.Context, key string) (int64, error) {
	if c == nil || c.rdb == nil {
		return 0, fmt.Errorf("redis coordinator not initialized")
	}
	return c.rdb.Incr(ctx, key).Result()
}

func (c *redisCoordinator) DecrCounter(ctx context.Context, key string) (int64, error) {
	if c == nil || c.rdb == nil {
		return 0, fmt.Errorf("redis coordinator not initialized")
	}
	v, err := c.rdb.Decr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if v < 0 {
		// Clamp back to zero; skew from crashed or double-releasing workers
		// must never push the counter negative.
		if err := c.rdb.Incr(ctx, key).Err(); err != nil {
			c.log.Warn("Counter clamp failed", "key", key, "error", err)
		}
		return 0, nil
	}
	return v, nil
}

func (c *redisCoordinator) ResetCounter(ctx context.Context, key string) error {
	if c == nil || c.rdb == nil {
		return fmt.Errorf("redis coordinator not initialized")
	}
	return c.rdb.Set(ctx, key, 0, 0).Err()
}

func (c *redisCoordinator) TryAcquireKey(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	if c == nil || c.rdb == nil {
		return false, fmt.Errorf("redis coordinator not initialized")
	}
	return c.rdb.SetNX(ctx, key, token, ttl).Result()
}

func (c *redisCoordinator) ReleaseKey(ctx context.Context, key string) error {
	if c == nil || c.rdb == nil {
		return fmt.Errorf("redis coordinator not initialized")
	}
	return c.rdb.Del(ctx, key).Err()
}
