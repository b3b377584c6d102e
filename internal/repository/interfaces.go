// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/redsocial/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindWithCounts は投稿数・いいね数付きでユーザーを取得する。見つからない場合はnilを返す。
	FindWithCounts(ctx context.Context, id int64) (*model.UserWithCounts, error)

	// ListWithCounts は条件に一致するユーザーを投稿数・いいね数付きで返す。
	ListWithCounts(ctx context.Context, q model.UserListQuery) ([]*model.UserWithCounts, error)

	// Search は名前・エイリアス・メールアドレスの部分一致でユーザーを検索する。
	Search(ctx context.Context, term string, limit int) ([]*model.UserWithCounts, error)
}

// PostRepository は投稿データの永続化インターフェース。
// 返す投稿には投稿者・いいね・画像・いいね数が埋め込まれている。
type PostRepository interface {
	// Exists は指定IDの投稿が存在するかを返す。
	Exists(ctx context.Context, id int64) (bool, error)

	// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Post, error)

	// List は条件に一致する投稿を返す。Limit が0の場合は全件。
	List(ctx context.Context, q model.PostListQuery) ([]*model.Post, error)

	// Count は投稿数を返す。userIDが0の場合は全件数。
	Count(ctx context.Context, userID int64) (int64, error)

	// Create は投稿と画像を同一トランザクションで作成し、作成後の投稿を読み直して返す。
	Create(ctx context.Context, p model.NewPost) (*model.Post, error)
}

// LikeRepository はいいねデータの永続化インターフェース。
type LikeRepository interface {
	// Find は (userID, postID) のいいねをユーザー要約付きで取得する。見つからない場合はnilを返す。
	Find(ctx context.Context, userID, postID int64) (*model.Like, error)

	// Create はいいねを作成し、ユーザー要約を埋め込んで返す。
	// 組の一意制約に違反した場合は ErrDuplicate、参照先が無い場合は ErrForeignKey を返す。
	Create(ctx context.Context, userID, postID int64) (*model.Like, error)

	// Delete は (userID, postID) のいいねを削除する。削除した行があればtrueを返す。
	Delete(ctx context.Context, userID, postID int64) (bool, error)

	// CountByPost は投稿のいいね数を返す。
	CountByPost(ctx context.Context, postID int64) (int64, error)

	// ListLikers は投稿にいいねしたユーザーを新しい順に最大limit件返す。
	ListLikers(ctx context.Context, postID int64, limit int) ([]model.Liker, error)
}
