// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// PasswordHash はbcryptハッシュで、トークンやレスポンスには含めない。
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Name         string
	Alias        string
	BirthDate    *time.Time
	CreatedAt    time.Time
}

// Identity はトークンに埋め込む公開可能なユーザー情報のスナップショット。
// User からパスワードハッシュを除いたもの。
type Identity struct {
	ID        int64
	Email     string
	Name      string
	Alias     string
	BirthDate *time.Time
	CreatedAt time.Time
}

// Identity はパスワードハッシュを除いたスナップショットを返す。
func (u *User) Identity() Identity {
	return Identity{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Alias:     u.Alias,
		BirthDate: u.BirthDate,
		CreatedAt: u.CreatedAt,
	}
}

// UserSummary は投稿やいいねに埋め込むユーザーの要約。
type UserSummary struct {
	ID    int64
	Email string
	Name  string
}

// UserWithCounts は一覧表示用に投稿数・いいね数を付与したユーザー。
type UserWithCounts struct {
	User
	PostCount int64
	LikeCount int64
}

// UserSortField はユーザー一覧の並び替えキー。
type UserSortField string

const (
	UserSortByName      UserSortField = "name"
	UserSortByAlias     UserSortField = "alias"
	UserSortByCreatedAt UserSortField = "createdAt"
	UserSortByID        UserSortField = "id"
)

// UserListQuery はユーザー一覧取得の条件。
type UserListQuery struct {
	Search string
	SortBy UserSortField
	Desc   bool
}

// AgeAt は基準時刻における満年齢を返す。生年月日が未設定の場合はnil。
func (u *User) AgeAt(now time.Time) *int {
	if u.BirthDate == nil {
		return nil
	}
	b := u.BirthDate.UTC()
	n := now.UTC()
	age := n.Year() - b.Year()
	if n.Month() < b.Month() || (n.Month() == b.Month() && n.Day() < b.Day()) {
		age--
	}
	if age < 0 {
		age = 0
	}
	return &age
}
