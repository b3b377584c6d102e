package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/redsocial/internal/model"
)

// Envelope は全レスポンス共通のフォーマット。
// 成功時は Errores が空文字、失敗時は Data が空オブジェクトになる。
type Envelope struct {
	Errores string `json:"errores"`
	Data    any    `json:"data"`
}

// WriteJSON はvをJSONとして書き込む。
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// WriteSuccess は成功レスポンスをエンベロープに包んで書き込む。
func WriteSuccess(w http.ResponseWriter, statusCode int, data any) {
	if data == nil {
		data = struct{}{}
	}
	WriteJSON(w, statusCode, Envelope{Data: data})
}

// WriteErrorResponse はエラーメッセージをエンベロープに包んで書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	WriteJSON(w, statusCode, Envelope{
		Errores: apiErr.Message,
		Data:    struct{}{},
	})
}

// WriteInternalServerError は内部サーバーエラーのレスポンスを書き込む。
// 詳細はログのみに記録し、利用者には一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}

// StatusForCategory はエラーカテゴリに対応するHTTPステータスを返す。
func StatusForCategory(category string) int {
	switch category {
	case model.CategoryValidation:
		return http.StatusUnprocessableEntity
	case model.CategoryAuth:
		return http.StatusUnauthorized
	case model.CategoryForbidden:
		return http.StatusForbidden
	case model.CategoryNotFound:
		return http.StatusNotFound
	case model.CategoryConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
