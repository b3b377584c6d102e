// Package handler はHTTPハンドラーを提供する。
// 4つのサービス（auth, like, post, user）のルーターもここで組み立てる。
package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/redsocial/internal/middleware"
	"github.com/hitoshi/redsocial/internal/model"
)

// maxBodyBytes はリクエストボディの上限。
const maxBodyBytes = 1 << 20

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, middleware.StatusForCategory(apiErr.Category), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error",
		slog.String("error", err.Error()),
		slog.String("path", r.URL.Path),
		slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
	)
	middleware.WriteInternalServerError(w)
}

// decodeJSON はリクエストボディをvにデコードする。
// 不正なJSONは ValidationError として返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return model.NewValidationError("el cuerpo de la solicitud es requerido")
		}
		return model.NewValidationError("el cuerpo de la solicitud no es un JSON válido")
	}
	return nil
}

// flexInt は数値または数字だけの文字列として送られる整数を受け付ける。
type flexInt struct {
	Value int64
	Set   bool
}

// UnmarshalJSON はnumberと"123"形式のstringを受け付ける。
func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(strings.TrimSpace(s))
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("not an integer: %s", data)
	}
	f.Value = n
	f.Set = true
	return nil
}

// pathInt64 はURLパラメータを正の整数として読み取る。
func pathInt64(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 1 {
		return 0, model.NewValidationError(fmt.Sprintf("%s debe ser un entero positivo", name))
	}
	return n, nil
}

// queryInt はクエリパラメータを整数として読み取る。未指定の場合はdefaultValを返す。
func queryInt(r *http.Request, name string, defaultVal int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, model.NewValidationError(fmt.Sprintf("%s debe ser un entero", name))
	}
	return n, nil
}

// queryString はクエリパラメータを読み取る。未指定の場合はdefaultValを返す。
func queryString(r *http.Request, name, defaultVal string) string {
	if v := strings.TrimSpace(r.URL.Query().Get(name)); v != "" {
		return v
	}
	return defaultVal
}

// viewerID は認証済みユーザーIDを返す。認証ミドルウェアの内側でのみ呼ぶ。
func viewerID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewMissingTokenError())
		return 0, false
	}
	return id, true
}

// requireSelf は本文のuserIdがトークンの利用者と一致するかを確認する。
// 正でないuserIdはサービス側の入力検証に任せる。
func requireSelf(w http.ResponseWriter, r *http.Request, userID int64) bool {
	viewer, ok := viewerID(w, r)
	if !ok {
		return false
	}
	if userID > 0 && userID != viewer {
		middleware.WriteErrorResponse(w, http.StatusForbidden, model.NewUserMismatchError())
		return false
	}
	return true
}
