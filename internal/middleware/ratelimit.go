package middleware

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/hitoshi/redsocial/internal/model"
	"golang.org/x/time/rate"
)

// Limiter はキーごとのリクエスト数を制限する。
// Allow が false の場合、retryAfter は次に許可されるまでの推定時間。
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

// RateLimitRecorder はレート制限超過の記録インターフェース。
type RateLimitRecorder interface {
	RecordRateLimited(limitType string)
}

// KeyFunc はリクエストからレート制限のキーを導出する。
type KeyFunc func(r *http.Request) string

// UserOrIPKey は認証済みならユーザーID、未認証ならクライアントIPをキーにする。
func UserOrIPKey(r *http.Request) string {
	if userID, ok := UserIDFromContext(r.Context()); ok {
		return "user:" + strconv.FormatInt(userID, 10)
	}
	return "ip:" + clientIP(r)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// NewRateLimitMiddleware はlimiterでリクエストを制限するミドルウェアを返す。
// 超過時は429とRetry-Afterヘッダーを返す。
// limiterのエラー時はリクエストを通す（制限ストアの障害でAPIを止めない）。
// recorderはnilでもよい。
func NewRateLimitMiddleware(limiter Limiter, limitType string, keyFn KeyFunc, recorder RateLimitRecorder) func(next http.Handler) http.Handler {
	if keyFn == nil {
		keyFn = UserOrIPKey
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFn(r)
			allowed, retryAfter, err := limiter.Allow(r.Context(), key)
			if err != nil {
				slog.Warn("rate limiter unavailable, allowing request",
					slog.String("limit_type", limitType),
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				if recorder != nil {
					recorder.RecordRateLimited(limitType)
				}
				slog.Warn("rate limit exceeded",
					slog.String("key", key),
					slog.String("limit_type", limitType),
				)
				writeRateLimitResponse(w, retryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
// Retry-Afterヘッダーは秒単位に切り上げ、最低1秒とする。
func writeRateLimitResponse(w http.ResponseWriter, retryAfter time.Duration) {
	retryAfterSec := int(math.Ceil(retryAfter.Seconds()))
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	WriteErrorResponse(w, http.StatusTooManyRequests, model.NewRateLimitedError())
}

// keyLimiter はキーごとのレートリミッターとアクセス時刻を保持する。
type keyLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// MemoryLimiter はプロセス内のトークンバケットでキーごとに制限する。
// 1プロセス構成用。複数レプリカで共有する場合はRedisLimiterを使う。
type MemoryLimiter struct {
	perMinute       int
	rate            rate.Limit
	burst           int
	cleanupInterval time.Duration

	mu       sync.Mutex
	limiters map[string]*keyLimiter

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewMemoryLimiter は1分あたりperMinute件を許可するMemoryLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewMemoryLimiter(perMinute int, cleanupInterval time.Duration) *MemoryLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}
	ml := &MemoryLimiter{
		perMinute:       perMinute,
		rate:            rate.Limit(float64(perMinute) / 60.0),
		burst:           perMinute,
		cleanupInterval: cleanupInterval,
		limiters:        make(map[string]*keyLimiter),
		stopCh:          make(chan struct{}),
	}

	go ml.cleanupLoop()

	return ml
}

// Allow はkeyのリクエストを1件消費する。
func (ml *MemoryLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	limiter := ml.getOrCreate(key)
	if limiter.Allow() {
		return true, 0, nil
	}
	// 1トークンが補充されるまでの時間
	return false, time.Minute / time.Duration(ml.perMinute), nil
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。複数回呼んでもよい。
func (ml *MemoryLimiter) Stop() {
	ml.stopOnce.Do(func() { close(ml.stopCh) })
}

// Len は現在管理されているエントリ数を返す。テスト用。
func (ml *MemoryLimiter) Len() int {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	return len(ml.limiters)
}

func (ml *MemoryLimiter) getOrCreate(key string) *rate.Limiter {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	if kl, ok := ml.limiters[key]; ok {
		kl.lastAccess = time.Now()
		return kl.limiter
	}

	limiter := rate.NewLimiter(ml.rate, ml.burst)
	ml.limiters[key] = &keyLimiter{
		limiter:    limiter,
		lastAccess: time.Now(),
	}
	return limiter
}

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
func (ml *MemoryLimiter) cleanupLoop() {
	ticker := time.NewTicker(ml.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ml.cleanup(time.Now())
		case <-ml.stopCh:
			return
		}
	}
}

// cleanup は最終アクセス時刻がCleanupIntervalの2倍を超えたエントリを削除する。
func (ml *MemoryLimiter) cleanup(now time.Time) {
	ttl := ml.cleanupInterval * 2

	ml.mu.Lock()
	defer ml.mu.Unlock()
	for key, kl := range ml.limiters {
		if now.Sub(kl.lastAccess) > ttl {
			delete(ml.limiters, key)
		}
	}
}
