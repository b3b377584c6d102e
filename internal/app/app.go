package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hitoshi/redsocial/internal/auth"
	"github.com/hitoshi/redsocial/internal/config"
	"github.com/hitoshi/redsocial/internal/database"
	"github.com/hitoshi/redsocial/internal/handler"
	"github.com/hitoshi/redsocial/internal/like"
	"github.com/hitoshi/redsocial/internal/logger"
	"github.com/hitoshi/redsocial/internal/metrics"
	"github.com/hitoshi/redsocial/internal/middleware"
	"github.com/hitoshi/redsocial/internal/post"
	"github.com/hitoshi/redsocial/internal/repository"
	"github.com/hitoshi/redsocial/internal/security"
	"github.com/hitoshi/redsocial/internal/user"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// shutdownTimeout はグレースフルシャットダウンの待ち時間。
const shutdownTimeout = 30 * time.Second

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップしてから環境変数のConfigを読み込む。
// serviceはログの service 属性に使う。
func Init(w io.Writer, service string) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, service)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Serve は指定サービスのAPIサーバーを起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func Serve(ctx context.Context, cfg *config.Config, service Service) error {
	// 1. DB接続
	db, err := database.OpenWithPool(cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLife,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := database.WaitReady(ctx, db, database.DefaultWaitConfig); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. レートリミッター
	limiters, err := newLimiters(cfg, service)
	if err != nil {
		return err
	}
	defer limiters.Close()

	// 3. ルーターの構築
	router, err := buildRouter(cfg, service, db, limiters, prometheus.NewRegistry())
	if err != nil {
		return err
	}

	// 4. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.PortFor(string(service)),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
			slog.String("limiter", limiters.kind),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// signalContext はSIGINT/SIGTERMでキャンセルされるコンテキストを返す。
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// buildRouter はサービスごとのリポジトリ・サービス・ルーターを組み立てる。
// dbがnilの場合は /heart_check の疎通確認を行わない。
func buildRouter(cfg *config.Config, service Service, db *sql.DB, limiters *limiterSet, reg *prometheus.Registry) (http.Handler, error) {
	issuer, err := auth.NewTokenIssuer(auth.TokenConfig{
		Secret:      []byte(cfg.TokenSecret),
		TTL:         cfg.TokenTTL,
		RefreshHint: cfg.TokenRefreshHint,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create token issuer: %w", err)
	}

	collector := metrics.NewCollector(reg, string(service))

	deps := &handler.RouterDeps{
		Service:           string(service),
		Logger:            slog.Default(),
		Verifier:          issuer,
		Metrics:           collector,
		Gatherer:          reg,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		GeneralLimiter:    limiters.general,
	}
	if db != nil {
		deps.Pinger = db
	}

	userRepo := repository.NewPostgresUserRepo(db)
	postRepo := repository.NewPostgresPostRepo(db)

	switch service {
	case ServiceAuth:
		return handler.NewAuthRouter(deps, auth.NewService(userRepo, issuer)), nil
	case ServiceLike:
		likeRepo := repository.NewPostgresLikeRepo(db)
		svc := like.NewService(postRepo, likeRepo, collector)
		return handler.NewLikeRouter(deps, svc, limiters.like), nil
	case ServicePost:
		svc := post.NewService(postRepo, userRepo, security.NewMessageSanitizer())
		return handler.NewPostRouter(deps, svc), nil
	case ServiceUser:
		return handler.NewUserRouter(deps, user.NewService(userRepo)), nil
	default:
		return nil, fmt.Errorf("unknown service %q", service)
	}
}

// limiterSet は全般用といいね用のレートリミッターをまとめたもの。
type limiterSet struct {
	general middleware.Limiter
	like    middleware.Limiter
	kind    string // memory または redis
	closers []func()
}

// Close はリミッターが保持するリソースを解放する。
func (l *limiterSet) Close() {
	for _, c := range l.closers {
		c()
	}
}

// newLimiters はREDIS_URLが設定されていればRedis、なければプロセス内メモリでリミッターを作る。
// Redisはレプリカ間で制限を共有する場合に使う。キーはサービスごとに分ける。
func newLimiters(cfg *config.Config, service Service) (*limiterSet, error) {
	if cfg.RedisURL == "" {
		general := middleware.NewMemoryLimiter(cfg.RateLimitGeneral, 5*time.Minute)
		likeLimiter := middleware.NewMemoryLimiter(cfg.RateLimitLike, 5*time.Minute)
		return &limiterSet{
			general: general,
			like:    likeLimiter,
			kind:    "memory",
			closers: []func(){general.Stop, likeLimiter.Stop},
		}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	return &limiterSet{
		general: middleware.NewRedisLimiter(client, string(service)+":general", cfg.RateLimitGeneral, time.Minute),
		like:    middleware.NewRedisLimiter(client, string(service)+":like", cfg.RateLimitLike, time.Minute),
		kind:    "redis",
		closers: []func(){func() { _ = client.Close() }},
	}, nil
}

// Migrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func Migrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// Rollback はstepsだけマイグレーションを戻す。0以下はすべて戻す。
func Rollback(cfg *config.Config, steps int) error {
	slog.Warn("rolling back database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		slog.Int("steps", steps),
	)

	if err := database.RollbackMigrations(cfg.DatabaseURL, steps); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}

	slog.Info("database rollback completed")
	return nil
}

// MigrationStatus は適用済みのマイグレーションバージョンをログに出す。
func MigrationStatus(cfg *config.Config) error {
	version, dirty, err := database.MigrationVersion(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	slog.Info("migration status",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
	return nil
}

// Healthcheck は /heart_check にHTTPリクエストを送り、200以外ならエラーを返す。
// distroless環境でのDockerヘルスチェック用。
func Healthcheck(ctx context.Context, baseURL string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/heart_check", nil)
	if err != nil {
		return fmt.Errorf("failed to build health check request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
