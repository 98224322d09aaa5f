package redis_client

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"liveauction/internal/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Options maps the Redis settings onto client options. Every room
// subscription pins one extra connection, so the pool scales with CPUs.
func Options(cfg *config.Config) *redis.Options {
	maxPool := runtime.NumCPU() * 8
	if maxPool > 512 {
		maxPool = 512
	}
	return &redis.Options{
		Addr:       fmt.Sprintf("%s:%d", cfg.RedisAuctionsHost, cfg.RedisAuctionsPort),
		Password:   cfg.RedisAuctionsPassword,
		DB:         cfg.RedisAuctionsDb,
		ClientName: "liveauction",
		PoolSize:   maxPool,
	}
}

// NewRedisClient connects and enables the keyspace expiry events the
// auction watcher listens to.
func NewRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	rc := redis.NewClient(Options(cfg))

	pingCtx, cancelFunc := context.WithTimeout(ctx, 5*time.Second)
	defer cancelFunc()
	if err := rc.Ping(pingCtx).Err(); err != nil {
		rc.Close()
		zap.L().Error("redis_connect", zap.Error(err))
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	if err := rc.ConfigSet(pingCtx, "notify-keyspace-events", "Ex").Err(); err != nil {
		// Managed Redis often forbids CONFIG; the status sweeper still
		// covers transitions, only later.
		zap.L().Warn("redis_keyspace_events", zap.Error(err))
	}
	return rc, nil
}
