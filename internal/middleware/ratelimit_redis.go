package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter は固定ウィンドウ方式でキーごとに制限する。
// カウンタをRedisに置くため、同じサービスの複数レプリカで上限を共有できる。
type RedisLimiter struct {
	client redis.Cmdable
	prefix string
	limit  int64
	window time.Duration
	now    func() time.Time
}

// NewRedisLimiter はwindowあたりlimit件を許可するRedisLimiterを生成する。
// prefixはサービスと制限種別ごとにキー空間を分けるために使う。
func NewRedisLimiter(client redis.Cmdable, prefix string, limit int, window time.Duration) *RedisLimiter {
	if limit < 1 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RedisLimiter{
		client: client,
		prefix: prefix,
		limit:  int64(limit),
		window: window,
		now:    time.Now,
	}
}

// Allow はkeyの現在ウィンドウのカウンタを1増やし、上限以内かを返す。
// INCRとPEXPIREは1回のMULTIで送る。
func (rl *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	now := rl.now()
	windowMs := rl.window.Milliseconds()
	slot := now.UnixMilli() / windowMs
	redisKey := fmt.Sprintf("ratelimit:%s:%s:%s", rl.prefix, key, strconv.FormatInt(slot, 10))

	var incr *redis.IntCmd
	_, err := rl.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.PExpire(ctx, redisKey, rl.window)
		return nil
	})
	if err != nil {
		return false, 0, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	if incr.Val() <= rl.limit {
		return true, 0, nil
	}
	windowEnd := time.UnixMilli((slot + 1) * windowMs)
	return false, windowEnd.Sub(now), nil
}

// SetClock は時刻関数を差し替える（テスト用）。
func (rl *RedisLimiter) SetClock(now func() time.Time) {
	rl.now = now
}
