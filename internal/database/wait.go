package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Pinger は疎通確認のインターフェース。*sql.DB が満たす。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// WaitConfig は起動時の接続待ちの設定。
type WaitConfig struct {
	Attempts       int           // 試行回数（1以上）
	InitialBackoff time.Duration // 初回の待ち時間
	MaxBackoff     time.Duration // 待ち時間の上限
}

// DefaultWaitConfig はコンテナ同時起動でDBの準備が遅れる場合を想定した既定値。
var DefaultWaitConfig = WaitConfig{
	Attempts:       6,
	InitialBackoff: 500 * time.Millisecond,
	MaxBackoff:     8 * time.Second,
}

// Backoff はn回目の失敗（0始まり）の後に待つ時間を返す。
// 初回InitialBackoff、2倍ずつ増加、最大MaxBackoff。
func (c WaitConfig) Backoff(n int) time.Duration {
	delay := c.InitialBackoff
	for i := 0; i < n; i++ {
		delay *= 2
		if delay > c.MaxBackoff {
			return c.MaxBackoff
		}
	}
	return delay
}

// WaitReady はPingが成功するまで指数バックオフで再試行する。
// Attempts回失敗するかctxが終了した場合は最後のエラーを返す。
func WaitReady(ctx context.Context, db Pinger, cfg WaitConfig) error {
	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for n := 0; n < attempts; n++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		if n == attempts-1 {
			break
		}

		delay := cfg.Backoff(n)
		slog.Warn("database not ready, retrying",
			slog.Int("attempt", n+1),
			slog.Duration("backoff", delay),
			slog.String("error", err.Error()),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("waiting for database: %w", ctx.Err())
		case <-timer.C:
		}
	}
	return fmt.Errorf("database not ready after %d attempts: %w", attempts, err)
}
