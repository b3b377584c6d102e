package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/redsocial/internal/metrics"
	"github.com/hitoshi/redsocial/internal/middleware"
	"github.com/hitoshi/redsocial/internal/model"
	"github.com/prometheus/client_golang/prometheus"
)

// APIPrefix は全サービス共通のパスプレフィックス。
const APIPrefix = "/api/v1"

// RouterDeps は全サービスのルーターに共通する依存関係をまとめた構造体。
type RouterDeps struct {
	Service string // auth, like, post, user

	// ミドルウェア依存
	Logger            *slog.Logger
	Verifier          middleware.TokenVerifier
	Metrics           metrics.MetricsCollector
	Gatherer          prometheus.Gatherer
	CORSAllowedOrigin string
	GeneralLimiter    middleware.Limiter

	// ヘルスチェック
	Pinger Pinger
}

func (d *RouterDeps) metrics() metrics.MetricsCollector {
	if d.Metrics == nil {
		return metrics.NopCollector{}
	}
	return d.Metrics
}

// newBaseRouter は全サービス共通のミドルウェアと /heart_check, /metrics を設定したルーターを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Logging → Recovery → SecurityHeaders → CORS → Metrics
func newBaseRouter(deps *RouterDeps) chi.Router {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewRecoveryMiddleware(deps.metrics()))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewMetricsMiddleware(deps.metrics()))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteErrorResponse(w, http.StatusNotFound, &model.APIError{
			Code:     "ROUTE_NOT_FOUND",
			Message:  "ruta no encontrada",
			Category: model.CategoryNotFound,
		})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteErrorResponse(w, http.StatusMethodNotAllowed, &model.APIError{
			Code:     "METHOD_NOT_ALLOWED",
			Message:  "método no permitido",
			Category: model.CategoryValidation,
		})
	})

	r.Get("/heart_check", NewHeartCheckHandler(deps.Service, deps.Pinger))
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}
	return r
}

// guarded は認証と全般レート制限を適用するミドルウェアを返す。
// レート制限は認証済みユーザーIDをキーにするため、認証の後に置く。
func guarded(deps *RouterDeps) []func(http.Handler) http.Handler {
	mws := []func(http.Handler) http.Handler{
		middleware.NewAuthMiddleware(deps.Verifier, deps.metrics()),
	}
	if deps.GeneralLimiter != nil {
		mws = append(mws, middleware.NewRateLimitMiddleware(deps.GeneralLimiter, "general", middleware.UserOrIPKey, deps.metrics()))
	}
	return mws
}

// NewAuthRouter は認証サービスのルーターを返す。
// ログインは未認証で呼ばれるため、クライアントIPで全般レート制限をかける。
func NewAuthRouter(deps *RouterDeps, service AuthServiceInterface) http.Handler {
	r := newBaseRouter(deps)
	h := NewAuthHandler(service, deps.metrics())

	r.Route(APIPrefix+"/auth", func(r chi.Router) {
		login := r.With()
		if deps.GeneralLimiter != nil {
			login = r.With(middleware.NewRateLimitMiddleware(deps.GeneralLimiter, "login", middleware.UserOrIPKey, deps.metrics()))
		}
		login.Post("/login", h.Login)

		r.With(guarded(deps)...).Get("/relogin", h.Relogin)
	})
	return r
}

// NewLikeRouter はいいねサービスのルーターを返す。
// トグルには全般とは別にlikeLimiterでの制限をかける。likeLimiterはnilでもよい。
func NewLikeRouter(deps *RouterDeps, service LikeServiceInterface, likeLimiter middleware.Limiter) http.Handler {
	r := newBaseRouter(deps)
	h := NewLikeHandler(service)

	r.Route(APIPrefix+"/like", func(r chi.Router) {
		r.Use(guarded(deps)...)

		toggle := r.With()
		if likeLimiter != nil {
			toggle = r.With(middleware.NewRateLimitMiddleware(likeLimiter, "like", middleware.UserOrIPKey, deps.metrics()))
		}
		toggle.Post("/create-or-delete-like", h.ToggleLike)

		r.Get("/post/{postId}/users", h.GetLikers)
	})
	return r
}

// NewPostRouter は投稿サービスのルーターを返す。
func NewPostRouter(deps *RouterDeps, service PostServiceInterface) http.Handler {
	r := newBaseRouter(deps)
	h := NewPostHandler(service)

	r.Route(APIPrefix+"/post", func(r chi.Router) {
		r.Use(guarded(deps)...)

		r.Get("/get-all-posts", h.GetAll)
		r.Get("/get-posts-paginated", h.GetPaginated)
		r.Get("/get-posts-by-user/{userId}", h.GetByUser)
		r.Get("/get-post/{postId}", h.GetPost)
		r.Post("/create-post", h.CreatePost)
	})
	return r
}

// NewUserRouter はユーザーサービスのルーターを返す。
func NewUserRouter(deps *RouterDeps, service UserServiceInterface) http.Handler {
	r := newBaseRouter(deps)
	h := NewUserHandler(service)

	r.Route(APIPrefix+"/user", func(r chi.Router) {
		r.Use(guarded(deps)...)

		r.Get("/get-all-users", h.List)
		r.Get("/get-user/{userId}", h.Get)
		r.Get("/search-users", h.Search)
	})
	return r
}
