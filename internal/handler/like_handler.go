package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/redsocial/internal/like"
	"github.com/hitoshi/redsocial/internal/middleware"
	"github.com/hitoshi/redsocial/internal/model"
)

// LikeServiceInterface はいいねハンドラーが必要とするサービスインターフェース。
type LikeServiceInterface interface {
	ToggleLike(ctx context.Context, postID, userID int64) (*model.ToggleResult, error)
	GetLikers(ctx context.Context, postID int64, limit int) ([]model.Liker, error)
}

// LikeHandler はいいねのHTTPハンドラー。
type LikeHandler struct {
	service LikeServiceInterface
}

// NewLikeHandler はLikeHandlerを生成する。
func NewLikeHandler(service LikeServiceInterface) *LikeHandler {
	return &LikeHandler{service: service}
}

type toggleLikeRequest struct {
	PostID flexInt `json:"postId"`
	UserID flexInt `json:"userId"`
}

// ToggleLike はいいねを追加または削除する。
// POST /api/v1/like/create-or-delete-like
func (h *LikeHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	var req toggleLikeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	if !req.PostID.Set {
		middleware.WriteErrorResponse(w, http.StatusUnprocessableEntity, model.NewValidationError("postId es requerido"))
		return
	}
	if !req.UserID.Set {
		middleware.WriteErrorResponse(w, http.StatusUnprocessableEntity, model.NewValidationError("userId es requerido"))
		return
	}
	if !requireSelf(w, r, req.UserID.Value) {
		return
	}

	result, err := h.service.ToggleLike(r.Context(), req.PostID.Value, req.UserID.Value)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	middleware.WriteSuccess(w, http.StatusOK, toToggleResponse(result))
}

// GetLikers は投稿にいいねしたユーザーを返す。
// GET /api/v1/like/post/{postId}/users?limit=
func (h *LikeHandler) GetLikers(w http.ResponseWriter, r *http.Request) {
	postID, err := pathInt64(r, "postId")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", like.DefaultLikersLimit)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	likers, err := h.service.GetLikers(r.Context(), postID, limit)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	middleware.WriteSuccess(w, http.StatusOK, toLikersResponse(likers))
}
