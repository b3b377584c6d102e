// Package post は投稿の取得・ページング・作成を提供する。
package post

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/hitoshi/redsocial/internal/model"
	"github.com/hitoshi/redsocial/internal/repository"
)

const (
	// MaxMessageLength は投稿本文の最大文字数（サニタイズ後）。
	MaxMessageLength = 2000
	// DefaultUserPostsLimit はユーザー別投稿一覧の既定件数。
	DefaultUserPostsLimit = 10
	// MaxUserPostsLimit はユーザー別投稿一覧の最大件数。
	MaxUserPostsLimit = 50
)

// 並び順
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// UserFinder はユーザーの存在確認に使うインターフェース。
type UserFinder interface {
	FindByID(ctx context.Context, id int64) (*model.User, error)
}

// Sanitizer は投稿本文のサニタイズインターフェース。
type Sanitizer interface {
	Sanitize(raw string) string
}

// PageQuery はページング取得の条件。
// 既定値の補完は呼び出し側で行い、ここでは範囲だけを検証する。
type PageQuery struct {
	Page   int
	Limit  int
	UserID int64 // 0なら全ユーザー
	SortBy string
	Order  string
}

// Filters はページング取得に適用された条件。
type Filters struct {
	UserID int64
	SortBy model.PostSortField
	Order  string
}

// Page はページング取得の結果。
type Page struct {
	Posts      []*model.Post
	Pagination Pagination
	Filters    Filters
}

// Service は投稿のサービス層。
type Service struct {
	posts     repository.PostRepository
	users     UserFinder
	sanitizer Sanitizer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(posts repository.PostRepository, users UserFinder, sanitizer Sanitizer) *Service {
	return &Service{
		posts:     posts,
		users:     users,
		sanitizer: sanitizer,
	}
}

// GetAll は全投稿を新しい順に返す。
func (s *Service) GetAll(ctx context.Context, viewerID int64) ([]*model.Post, error) {
	posts, err := s.posts.List(ctx, model.PostListQuery{
		SortBy: model.PostSortByCreatedAt,
		Desc:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	markLiked(posts, viewerID)
	return posts, nil
}

// GetPaginated は条件に一致する投稿を1ページ分返す。
func (s *Service) GetPaginated(ctx context.Context, viewerID int64, q PageQuery) (*Page, error) {
	if q.Page < 1 {
		return nil, model.NewValidationError("page debe ser un entero mayor o igual a 1")
	}
	if q.Limit < 1 || q.Limit > MaxPageLimit {
		return nil, model.NewValidationError(fmt.Sprintf("limit debe estar entre 1 y %d", MaxPageLimit))
	}
	if !pageInRange(q.Page, q.Limit) {
		return nil, model.NewValidationError("page fuera de rango")
	}
	if q.UserID < 0 {
		return nil, model.NewValidationError("userId debe ser un entero positivo")
	}
	sortBy, err := parseSortField(q.SortBy)
	if err != nil {
		return nil, err
	}
	order, err := parseOrder(q.Order)
	if err != nil {
		return nil, err
	}

	total, err := s.posts.Count(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to count posts: %w", err)
	}

	posts, err := s.posts.List(ctx, model.PostListQuery{
		UserID: q.UserID,
		SortBy: sortBy,
		Desc:   order == OrderDesc,
		Limit:  q.Limit,
		Offset: offsetFor(q.Page, q.Limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	markLiked(posts, viewerID)

	return &Page{
		Posts:      posts,
		Pagination: newPagination(total, q.Page, q.Limit),
		Filters: Filters{
			UserID: q.UserID,
			SortBy: sortBy,
			Order:  order,
		},
	}, nil
}

// GetByUser は指定ユーザーの投稿を新しい順に最大limit件返す。
func (s *Service) GetByUser(ctx context.Context, viewerID, userID int64, limit int) ([]*model.Post, error) {
	if userID < 1 {
		return nil, model.NewValidationError("userId debe ser un entero positivo")
	}
	if limit < 1 || limit > MaxUserPostsLimit {
		return nil, model.NewValidationError(fmt.Sprintf("limit debe estar entre 1 y %d", MaxUserPostsLimit))
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(userID)
	}

	posts, err := s.posts.List(ctx, model.PostListQuery{
		UserID: userID,
		SortBy: model.PostSortByCreatedAt,
		Desc:   true,
		Limit:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	markLiked(posts, viewerID)
	return posts, nil
}

// GetPost は指定IDの投稿を返す。
func (s *Service) GetPost(ctx context.Context, viewerID, postID int64) (*model.Post, error) {
	if postID < 1 {
		return nil, model.NewValidationError("postId debe ser un entero positivo")
	}

	p, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	if p == nil {
		return nil, model.NewPostNotFoundError(postID)
	}
	markLiked([]*model.Post{p}, viewerID)
	return p, nil
}

// CreatePost は投稿を画像メタデータとともに作成する。
// 本文はHTMLを除去してから長さを検証する。
func (s *Service) CreatePost(ctx context.Context, viewerID int64, in model.NewPost) (*model.Post, error) {
	in.Message = s.sanitizer.Sanitize(strings.TrimSpace(in.Message))
	if err := validateNewPost(in); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewValidationError(fmt.Sprintf("el usuario %d no existe", in.UserID))
	}

	created, err := s.posts.Create(ctx, in)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrDuplicate):
		return nil, model.NewConflictError("ya existe una imagen con ese nameServer")
	case errors.Is(err, repository.ErrForeignKey):
		// 存在確認の後にユーザーが削除された場合
		return nil, model.NewValidationError(fmt.Sprintf("el usuario %d no existe", in.UserID))
	default:
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	markLiked([]*model.Post{created}, viewerID)

	slog.Info("post created",
		slog.Int64("post_id", created.ID),
		slog.Int64("user_id", created.UserID),
		slog.Int("images", len(created.Images)),
	)
	return created, nil
}

func validateNewPost(in model.NewPost) error {
	if in.Message == "" {
		return model.NewValidationError("message es requerido")
	}
	if utf8.RuneCountInString(in.Message) > MaxMessageLength {
		return model.NewValidationError(fmt.Sprintf("message no puede superar %d caracteres", MaxMessageLength))
	}
	if in.UserID < 1 {
		return model.NewValidationError("userId debe ser un entero positivo")
	}
	for i, img := range in.Images {
		switch {
		case strings.TrimSpace(img.NameServer) == "":
			return model.NewValidationError(fmt.Sprintf("images[%d].nameServer es requerido", i))
		case strings.TrimSpace(img.NameClient) == "":
			return model.NewValidationError(fmt.Sprintf("images[%d].nameClient es requerido", i))
		case strings.TrimSpace(img.Ext) == "":
			return model.NewValidationError(fmt.Sprintf("images[%d].ext es requerido", i))
		case img.Size < 1:
			return model.NewValidationError(fmt.Sprintf("images[%d].size debe ser mayor o igual a 1", i))
		}
	}
	return nil
}

func parseSortField(v string) (model.PostSortField, error) {
	switch f := model.PostSortField(v); f {
	case model.PostSortByCreatedAt, model.PostSortByLikeCount, model.PostSortByID:
		return f, nil
	default:
		return "", model.NewValidationError("sortBy debe ser createdAt, likeCount o id")
	}
}

func parseOrder(v string) (string, error) {
	switch o := strings.ToLower(v); o {
	case OrderAsc, OrderDesc:
		return o, nil
	default:
		return "", model.NewValidationError("order debe ser asc o desc")
	}
}

// markLiked は閲覧ユーザーがいいね済みかどうかを各投稿に設定する。
func markLiked(posts []*model.Post, viewerID int64) {
	for _, p := range posts {
		p.UserHasLiked = false
		for _, l := range p.Likes {
			if l.UserID == viewerID {
				p.UserHasLiked = true
				break
			}
		}
	}
}
