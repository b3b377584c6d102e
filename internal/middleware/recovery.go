package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

// PanicRecorder は回復したpanicの記録インターフェース。
type PanicRecorder interface {
	RecordPanic()
}

// NewRecoveryMiddleware はハンドラーのpanicを回復し、500のエンベロープを返すミドルウェアを生成する。
// http.ErrAbortHandler は接続の中断を意味するため再送出する。
// recorderはnilでもよい。
func NewRecoveryMiddleware(recorder PanicRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				if recorder != nil {
					recorder.RecordPanic()
				}

				attrs := []any{
					slog.Any("panic", rec),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("request_id", RequestIDFromContext(r.Context())),
					slog.String("stack", string(debug.Stack())),
				}
				if st, ok := r.Context().Value(requestStateContextKey).(*requestState); ok && st.userID != 0 {
					attrs = append(attrs, slog.Int64("user_id", st.userID))
				}
				slog.Error("panic recovered", attrs...)

				WriteInternalServerError(w)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
