package api

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisRateCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// fixedWindow 是以 Redis 计数器实现的固定窗口限流，多个 API 实例共享同一计数。
type fixedWindow struct {
	counter redisRateCounter
	prefix  string
	limit   int
	window  time.Duration
}

// allow 返回本次请求是否放行，以及被拒绝时距离窗口结束的时间。
func (w fixedWindow) allow(ctx context.Context, subject string, now time.Time) (bool, time.Duration, error) {
	start := now.Truncate(w.window)
	key := fmt.Sprintf("%s:%s:%d", w.prefix, subject, start.Unix())

	count, err := w.counter.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}
	if count == 1 {
		_ = w.counter.Expire(ctx, key, w.window).Err()
	}
	if count > int64(w.limit) {
		return false, start.Add(w.window).Sub(now), nil
	}
	return true, 0, nil
}
