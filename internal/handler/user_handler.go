package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/redsocial/internal/middleware"
	"github.com/hitoshi/redsocial/internal/model"
	"github.com/hitoshi/redsocial/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	List(ctx context.Context, q user.ListQuery) ([]user.Profile, error)
	Get(ctx context.Context, id int64) (*user.Profile, error)
	Search(ctx context.Context, term string, limit int) ([]*model.UserWithCounts, error)
}

// UserHandler はユーザーのHTTPハンドラー。全ルートが認証必須。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// List はユーザー一覧を返す。
// GET /api/v1/user/get-all-users?search&sortBy&order
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	q := user.ListQuery{
		Search: queryString(r, "search", ""),
		SortBy: queryString(r, "sortBy", string(model.UserSortByName)),
		Order:  queryString(r, "order", user.OrderAsc),
	}

	profiles, err := h.service.List(r.Context(), q)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	middleware.WriteSuccess(w, http.StatusOK, toUserListResponse(profiles, q))
}

// Get はユーザーを統計付きで返す。
// GET /api/v1/user/get-user/{userId}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt64(r, "userId")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	profile, err := h.service.Get(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	middleware.WriteSuccess(w, http.StatusOK, toSingleUserResponse(profile))
}

// Search はユーザーを検索する。
// GET /api/v1/user/search-users?q&limit
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	term := queryString(r, "q", "")
	limit, err := queryInt(r, "limit", user.DefaultSearchLimit)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	users, err := h.service.Search(r.Context(), term, limit)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	middleware.WriteSuccess(w, http.StatusOK, toSearchResponse(users, term))
}
