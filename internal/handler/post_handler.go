package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/redsocial/internal/middleware"
	"github.com/hitoshi/redsocial/internal/model"
	"github.com/hitoshi/redsocial/internal/post"
)

// PostServiceInterface は投稿ハンドラーが必要とするサービスインターフェース。
type PostServiceInterface interface {
	GetAll(ctx context.Context, viewerID int64) ([]*model.Post, error)
	GetPaginated(ctx context.Context, viewerID int64, q post.PageQuery) (*post.Page, error)
	GetByUser(ctx context.Context, viewerID, userID int64, limit int) ([]*model.Post, error)
	GetPost(ctx context.Context, viewerID, postID int64) (*model.Post, error)
	CreatePost(ctx context.Context, viewerID int64, in model.NewPost) (*model.Post, error)
}

// PostHandler は投稿のHTTPハンドラー。全ルートが認証必須。
type PostHandler struct {
	service PostServiceInterface
}

// NewPostHandler はPostHandlerを生成する。
func NewPostHandler(service PostServiceInterface) *PostHandler {
	return &PostHandler{service: service}
}

// GetAll は全投稿を新しい順に返す。
// GET /api/v1/post/get-all-posts
func (h *PostHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	viewer, ok := viewerID(w, r)
	if !ok {
		return
	}

	posts, err := h.service.GetAll(r.Context(), viewer)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	middleware.WriteSuccess(w, http.StatusOK, postListResponse{
		Posts:      toPostResponses(posts),
		TotalPosts: len(posts),
		Message:    "Posts obtenidos exitosamente",
	})
}

// GetPaginated は投稿を1ページ分返す。
// GET /api/v1/post/get-posts-paginated?page&limit&userId&sortBy&order
func (h *PostHandler) GetPaginated(w http.ResponseWriter, r *http.Request) {
	viewer, ok := viewerID(w, r)
	if !ok {
		return
	}

	page, err := queryInt(r, "page", post.DefaultPage)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", post.DefaultPageLimit)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	userID, err := queryInt(r, "userId", 0)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	result, err := h.service.GetPaginated(r.Context(), viewer, post.PageQuery{
		Page:   page,
		Limit:  limit,
		UserID: int64(userID),
		SortBy: queryString(r, "sortBy", string(model.PostSortByCreatedAt)),
		Order:  queryString(r, "order", post.OrderDesc),
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	middleware.WriteSuccess(w, http.StatusOK, toPaginatedPostsResponse(result))
}

// GetByUser は指定ユーザーの投稿を返す。
// GET /api/v1/post/get-posts-by-user/{userId}?limit
func (h *PostHandler) GetByUser(w http.ResponseWriter, r *http.Request) {
	viewer, ok := viewerID(w, r)
	if !ok {
		return
	}

	userID, err := pathInt64(r, "userId")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", post.DefaultUserPostsLimit)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	posts, err := h.service.GetByUser(r.Context(), viewer, userID, limit)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	middleware.WriteSuccess(w, http.StatusOK, userPostsResponse{
		Posts:      toPostResponses(posts),
		User:       postOwnerResponse{ID: userID},
		TotalPosts: len(posts),
		Message:    "Posts del usuario obtenidos exitosamente",
	})
}

// GetPost は指定IDの投稿を返す。
// GET /api/v1/post/get-post/{postId}
func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	viewer, ok := viewerID(w, r)
	if !ok {
		return
	}

	postID, err := pathInt64(r, "postId")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	p, err := h.service.GetPost(r.Context(), viewer, postID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	middleware.WriteSuccess(w, http.StatusOK, singlePostResponse{
		Post:    toPostResponse(p),
		Message: "Post obtenido exitosamente",
	})
}

type createPostImageRequest struct {
	NameServer string  `json:"nameServer"`
	NameClient string  `json:"nameClient"`
	Ext        string  `json:"ext"`
	Size       flexInt `json:"size"`
}

type createPostRequest struct {
	Message string                   `json:"message"`
	UserID  flexInt                  `json:"userId"`
	Images  []createPostImageRequest `json:"images"`
}

// CreatePost は投稿を作成する。
// POST /api/v1/post/create-post
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	viewer, ok := viewerID(w, r)
	if !ok {
		return
	}

	var req createPostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	if !requireSelf(w, r, req.UserID.Value) {
		return
	}

	in := model.NewPost{
		Message: req.Message,
		UserID:  req.UserID.Value,
	}
	for _, img := range req.Images {
		in.Images = append(in.Images, model.NewPostImage{
			NameServer: img.NameServer,
			NameClient: img.NameClient,
			Ext:        img.Ext,
			Size:       img.Size.Value,
		})
	}

	created, err := h.service.CreatePost(r.Context(), viewer, in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	middleware.WriteSuccess(w, http.StatusCreated, singlePostResponse{
		Post:    toPostResponse(created),
		Message: "Publicación creada exitosamente",
	})
}
