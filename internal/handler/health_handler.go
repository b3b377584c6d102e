package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/redsocial/internal/middleware"
)

// Pinger は依存先の疎通確認インターフェース。*sql.DB が満たす。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// pingTimeout はヘルスチェック時のDB疎通確認の上限時間。
const pingTimeout = 2 * time.Second

type heartCheckResponse struct {
	Message string `json:"message"`
}

// NewHeartCheckHandler は稼働確認ハンドラーを返す。
// pingerがnilでなければDBへの疎通も確認し、失敗時は503を返す。
func NewHeartCheckHandler(service string, pinger Pinger) http.HandlerFunc {
	message := fmt.Sprintf("Servidor (%s) en línea.", strings.ToUpper(service))
	return func(w http.ResponseWriter, r *http.Request) {
		if pinger != nil {
			ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
			defer cancel()
			if err := pinger.PingContext(ctx); err != nil {
				slog.Error("heart check failed",
					slog.String("service", service),
					slog.String("error", err.Error()),
				)
				middleware.WriteJSON(w, http.StatusServiceUnavailable, heartCheckResponse{
					Message: fmt.Sprintf("Servidor (%s) sin conexión a la base de datos.", strings.ToUpper(service)),
				})
				return
			}
		}
		middleware.WriteJSON(w, http.StatusOK, heartCheckResponse{Message: message})
	}
}
