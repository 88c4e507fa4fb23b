package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisCounter keeps one sorted set per key, scored by request time,
// and counts the members still inside the trailing window.
type RedisCounter struct {
	RDB *redis.Client
}

func NewRedisCounter(addr string) *RedisCounter {
	return &RedisCounter{
		RDB: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

func (c *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	now := time.Now()
	cutoff := strconv.FormatInt(now.Add(-window).UnixNano(), 10)

	pipe := c.RDB.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", cutoff)
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: uuid.NewString(),
	})
	card := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return card.Val(), nil
}

func (c *RedisCounter) Close() error {
	return c.RDB.Close()
}
