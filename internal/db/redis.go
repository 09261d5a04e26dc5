package db

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hbagheri/mailflow/internal/config"
)

// NewRedis opens and pings a redis client. Used by the HTTP rate-limit
// middleware only; the dispatch engine itself has no redis dependency.
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	return rdb, nil
}
