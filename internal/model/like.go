package model

import "time"

// LikeAction はいいねトグルの結果として実行された操作。
type LikeAction string

const (
	LikeActionAdded   LikeAction = "added"
	LikeActionRemoved LikeAction = "removed"
)

// Like は (UserID, PostID) の組につき高々1件だけ存在するいいねを表す。
// 一意性はDBのユニーク制約で保証する。
type Like struct {
	ID        int64
	UserID    int64
	PostID    int64
	CreatedAt time.Time
	User      *UserSummary
}

// Liker は投稿にいいねしたユーザーと、いいねした時刻。
type Liker struct {
	ID      int64
	Name    string
	Email   string
	LikedAt time.Time
}

// ToggleResult はいいねトグルの結果。
// Action が removed の場合 Like はnil。
// LikeCount は変更後の件数。
type ToggleResult struct {
	Action    LikeAction
	Like      *Like
	LikeCount int64
}
