package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/hitoshi/redsocial/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `u.id, u.email, u.password, u.name, u.alias, u.birth_date, u.created_at`

// userCountsSelect は投稿数・いいね数（受け取ったいいねではなく、本人が付けたいいね）を付与するSELECT句。
const userCountsSelect = `SELECT ` + userColumns + `,
	(SELECT count(*) FROM posts p WHERE p.user_id = u.id) AS post_count,
	(SELECT count(*) FROM likes l WHERE l.user_id = u.id) AS like_count
FROM users u`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner, extra ...any) (*model.User, error) {
	user := &model.User{}
	var birth sql.NullTime
	dest := append([]any{&user.ID, &user.Email, &user.PasswordHash, &user.Name, &user.Alias, &birth, &user.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if birth.Valid {
		b := birth.Time
		user.BirthDate = &b
	}
	return user, nil
}

func scanUserWithCounts(row rowScanner) (*model.UserWithCounts, error) {
	var postCount, likeCount int64
	user, err := scanUser(row, &postCount, &likeCount)
	if err != nil {
		return nil, err
	}
	return &model.UserWithCounts{User: *user, PostCount: postCount, LikeCount: likeCount}, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users u WHERE u.id = $1`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByEmail はメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
// 比較は小文字化したアドレス同士で行う。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users u WHERE lower(u.email) = lower($1)`,
		email,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

// FindWithCounts は投稿数・いいね数付きでユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindWithCounts(ctx context.Context, id int64) (*model.UserWithCounts, error) {
	user, err := scanUserWithCounts(r.db.QueryRowContext(ctx,
		userCountsSelect+` WHERE u.id = $1`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user with counts: %w", err)
	}
	return user, nil
}

// userOrderColumns は並び替えキーとSQL式の対応。ここに無いキーはnameとして扱う。
var userOrderColumns = map[model.UserSortField]string{
	model.UserSortByName:      "u.name",
	model.UserSortByAlias:     "u.alias",
	model.UserSortByCreatedAt: "u.created_at",
	model.UserSortByID:        "u.id",
}

// ListWithCounts は条件に一致するユーザーを投稿数・いいね数付きで返す。
func (r *PostgresUserRepo) ListWithCounts(ctx context.Context, q model.UserListQuery) ([]*model.UserWithCounts, error) {
	var (
		where string
		args  []any
	)
	if term := strings.TrimSpace(q.Search); term != "" {
		where = ` WHERE u.name ILIKE $1 ESCAPE '\' OR u.alias ILIKE $1 ESCAPE '\' OR u.email ILIKE $1 ESCAPE '\'`
		args = append(args, containsPattern(term))
	}

	col, ok := userOrderColumns[q.SortBy]
	if !ok {
		col = userOrderColumns[model.UserSortByName]
	}
	query := userCountsSelect + where + ` ORDER BY ` + col + ` ` + direction(q.Desc) + `, u.id ASC`

	return r.queryUsersWithCounts(ctx, "list users", query, args...)
}

// Search は名前・エイリアス・メールアドレスの部分一致でユーザーを検索する。
// 名前順に最大limit件を返す。
func (r *PostgresUserRepo) Search(ctx context.Context, term string, limit int) ([]*model.UserWithCounts, error) {
	query := userCountsSelect +
		` WHERE u.name ILIKE $1 ESCAPE '\' OR u.alias ILIKE $1 ESCAPE '\' OR u.email ILIKE $1 ESCAPE '\'` +
		` ORDER BY u.name ASC, u.id ASC LIMIT $2`
	return r.queryUsersWithCounts(ctx, "search users", query, containsPattern(term), limit)
}

func (r *PostgresUserRepo) queryUsersWithCounts(ctx context.Context, op, query string, args ...any) ([]*model.UserWithCounts, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	defer rows.Close()

	var users []*model.UserWithCounts
	for rows.Next() {
		user, err := scanUserWithCounts(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

// containsPattern はILIKE用の部分一致パターンを作る。
// 検索語中のワイルドカード文字はリテラルとして扱う。
func containsPattern(term string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.TrimSpace(term))
	return "%" + escaped + "%"
}

func direction(desc bool) string {
	if desc {
		return "DESC"
	}
	return "ASC"
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
