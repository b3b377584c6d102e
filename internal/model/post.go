package model

import "time"

// Post は投稿を表す。
// LikeCount と UserHasLiked は保存されない派生値で、読み出し時に計算する。
type Post struct {
	ID        int64
	Message   string
	UserID    int64
	CreatedAt time.Time

	Author       UserSummary
	Likes        []Like
	Images       []PostImage
	LikeCount    int64
	UserHasLiked bool
}

// PostImage は投稿に添付された画像のメタデータを表す。
// ファイル本体は扱わない。
type PostImage struct {
	ID         int64
	NameServer string
	NameClient string
	Ext        string
	Size       int64
	PostID     int64
	CreatedAt  time.Time
}

// NewPost は投稿作成時の入力。
type NewPost struct {
	Message string
	UserID  int64
	Images  []NewPostImage
}

// NewPostImage は投稿作成時に添付する画像メタデータ。
type NewPostImage struct {
	NameServer string
	NameClient string
	Ext        string
	Size       int64
}

// PostSortField は投稿一覧の並び替えキー。
type PostSortField string

const (
	PostSortByCreatedAt PostSortField = "createdAt"
	PostSortByLikeCount PostSortField = "likeCount"
	PostSortByID        PostSortField = "id"
)

// PostListQuery は投稿のページング取得条件。
// UserID が0の場合は全ユーザーが対象。
type PostListQuery struct {
	UserID int64
	SortBy PostSortField
	Desc   bool
	Limit  int
	Offset int
}
