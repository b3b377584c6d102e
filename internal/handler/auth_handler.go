package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/hitoshi/redsocial/internal/auth"
	"github.com/hitoshi/redsocial/internal/middleware"
	"github.com/hitoshi/redsocial/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password string) (*auth.Session, error)
	Relogin(ctx context.Context, current model.Identity) (*auth.Session, error)
}

// LoginRecorder はログイン結果の記録インターフェース。
type LoginRecorder interface {
	RecordLogin(result string)
}

// AuthHandler はログイン・再ログインのHTTPハンドラー。
type AuthHandler struct {
	service  AuthServiceInterface
	recorder LoginRecorder
}

// NewAuthHandler はAuthHandlerを生成する。recorderはnilでもよい。
func NewAuthHandler(service AuthServiceInterface, recorder LoginRecorder) *AuthHandler {
	return &AuthHandler{
		service:  service,
		recorder: recorder,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login はメールアドレスとパスワードでトークンを発行する。
// POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.record("invalid")
		handleServiceError(w, r, err)
		return
	}

	session, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.record(loginResult(err))
		handleServiceError(w, r, err)
		return
	}

	h.record("success")
	middleware.WriteSuccess(w, http.StatusOK, toSessionResponse(session, "Login exitoso"))
}

// Relogin は有効なトークンのユーザーに新しいトークンを発行する。
// GET /api/v1/auth/relogin
func (h *AuthHandler) Relogin(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewMissingTokenError())
		return
	}

	session, err := h.service.Relogin(r.Context(), identity)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	middleware.WriteSuccess(w, http.StatusOK, toSessionResponse(session, "Token validado con exito"))
}

func (h *AuthHandler) record(result string) {
	if h.recorder != nil {
		h.recorder.RecordLogin(result)
	}
}

func loginResult(err error) string {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		return "error"
	}
	switch apiErr.Category {
	case model.CategoryValidation:
		return "invalid"
	case model.CategoryAuth:
		return "rejected"
	default:
		return "error"
	}
}
