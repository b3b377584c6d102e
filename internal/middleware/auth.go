// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/redsocial/internal/auth"
	"github.com/hitoshi/redsocial/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// identityContextKey はリクエストコンテキストに検証済みユーザーを格納するためのキー。
var identityContextKey = contextKey("identity")

// TokenVerifier はトークン検証に必要なインターフェース。
type TokenVerifier interface {
	Verify(token string) (*auth.VerifiedToken, error)
}

// TokenRejectionRecorder はトークン拒否の記録インターフェース。
type TokenRejectionRecorder interface {
	RecordTokenRejected(reason string)
}

// NewAuthMiddleware は Authorization: Bearer <token> を検証するミドルウェアを返す。
// 検証済みユーザーをリクエストコンテキストに注入する。
// ヘッダー無し・形式不正・署名不一致・期限切れはいずれも401を返し、後続には進まない。
// recorderはnilでもよい。
func NewAuthMiddleware(verifier TokenVerifier, recorder TokenRejectionRecorder) func(next http.Handler) http.Handler {
	reject := func(w http.ResponseWriter, r *http.Request, reason string, apiErr *model.APIError) {
		if recorder != nil {
			recorder.RecordTokenRejected(reason)
		}
		slog.Info("token rejected",
			slog.String("reason", reason),
			slog.String("path", r.URL.Path),
		)
		WriteErrorResponse(w, http.StatusUnauthorized, apiErr)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				reject(w, r, "missing", model.NewMissingTokenError())
				return
			}

			token, ok := bearerToken(header)
			if !ok {
				reject(w, r, "malformed_header", model.NewInvalidTokenError())
				return
			}

			verified, err := verifier.Verify(token)
			if err != nil {
				if errors.Is(err, auth.ErrTokenExpired) {
					reject(w, r, "expired", model.NewTokenExpiredError())
					return
				}
				reject(w, r, "invalid", model.NewInvalidTokenError())
				return
			}

			setRequestUser(r.Context(), verified.Identity.ID)
			ctx := ContextWithIdentity(r.Context(), verified.Identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken は "Bearer <token>" からトークン部分を取り出す。スキーム名の大文字小文字は区別しない。
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

// IdentityFromContext はリクエストコンテキストから検証済みユーザーを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(model.Identity)
	if !ok || identity.ID == 0 {
		return model.Identity{}, false
	}
	return identity, true
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (int64, bool) {
	identity, ok := IdentityFromContext(ctx)
	if !ok {
		return 0, false
	}
	return identity.ID, true
}

// ContextWithIdentity はコンテキストに検証済みユーザーを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithIdentity(ctx context.Context, identity model.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}
