package ratelimit

import (
	"context"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "rl:"

// Redis is a GCRA limiter shared by every node through Redis.
type Redis struct {
	limiter *redis_rate.Limiter
	limit   redis_rate.Limit
}

func NewRedis(rdc *redis.Client, events int, per time.Duration) *Redis {
	return &Redis{
		limiter: redis_rate.NewLimiter(rdc),
		limit:   redis_rate.Limit{Rate: events, Burst: events, Period: per},
	}
}

func (r *Redis) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	res, err := r.limiter.Allow(ctx, redisKeyPrefix+key, r.limit)
	if err != nil {
		return false, 0, err
	}
	return res.Allowed > 0, res.RetryAfter, nil
}
