// Package user はユーザーの一覧・詳細・検索を提供する。
package user

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/redsocial/internal/model"
	"github.com/hitoshi/redsocial/internal/repository"
)

const (
	// DefaultSearchLimit は検索結果の既定件数。
	DefaultSearchLimit = 20
	// MaxSearchLimit は検索結果の最大件数。
	MaxSearchLimit = 50
)

// 並び順
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// ListQuery はユーザー一覧の取得条件。
// 既定値の補完は呼び出し側で行う。
type ListQuery struct {
	Search string
	SortBy string
	Order  string
}

// Profile は年齢を付与したユーザー。
// Age は生年月日が無い場合nil。
type Profile struct {
	model.UserWithCounts
	Age *int
}

// Service はユーザーのサービス層。
type Service struct {
	users repository.UserRepository
	now   func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(users repository.UserRepository) *Service {
	return &Service{
		users: users,
		now:   time.Now,
	}
}

// SetClock は年齢計算に使う時刻関数を差し替える（テスト用）。
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// List は条件に一致するユーザーを投稿数・いいね数・年齢付きで返す。
func (s *Service) List(ctx context.Context, q ListQuery) ([]Profile, error) {
	sortBy, err := parseSortField(q.SortBy)
	if err != nil {
		return nil, err
	}
	order, err := parseOrder(q.Order)
	if err != nil {
		return nil, err
	}

	users, err := s.users.ListWithCounts(ctx, model.UserListQuery{
		Search: strings.TrimSpace(q.Search),
		SortBy: sortBy,
		Desc:   order == OrderDesc,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	now := s.now()
	profiles := make([]Profile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, toProfile(u, now))
	}
	return profiles, nil
}

// Get は指定IDのユーザーを統計付きで返す。
func (s *Service) Get(ctx context.Context, id int64) (*Profile, error) {
	if id < 1 {
		return nil, model.NewValidationError("userId debe ser un entero positivo")
	}

	u, err := s.users.FindWithCounts(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if u == nil {
		return nil, model.NewUserNotFoundError(id)
	}
	p := toProfile(u, s.now())
	return &p, nil
}

// Search は名前・エイリアス・メールアドレスの部分一致でユーザーを検索する。
// 検索語は必須。
func (s *Service) Search(ctx context.Context, term string, limit int) ([]*model.UserWithCounts, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, model.NewValidationError("q es requerido")
	}
	if limit < 1 || limit > MaxSearchLimit {
		return nil, model.NewValidationError(fmt.Sprintf("limit debe estar entre 1 y %d", MaxSearchLimit))
	}

	users, err := s.users.Search(ctx, term, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return users, nil
}

func toProfile(u *model.UserWithCounts, now time.Time) Profile {
	return Profile{
		UserWithCounts: *u,
		Age:            u.AgeAt(now),
	}
}

func parseSortField(v string) (model.UserSortField, error) {
	switch f := model.UserSortField(v); f {
	case model.UserSortByName, model.UserSortByAlias, model.UserSortByCreatedAt, model.UserSortByID:
		return f, nil
	default:
		return "", model.NewValidationError("sortBy debe ser name, alias, createdAt o id")
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
