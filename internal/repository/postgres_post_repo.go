package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/redsocial/internal/model"
	"github.com/lib/pq"
)

// PostgresPostRepo はPostgreSQLを使用した投稿リポジトリ。
type PostgresPostRepo struct {
	db *sql.DB
}

// NewPostgresPostRepo はPostgresPostRepoを生成する。
func NewPostgresPostRepo(db *sql.DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

// postSelect は投稿者といいね数を含むSELECT句。
const postSelect = `SELECT p.id, p.message, p.user_id, p.created_at,
	u.id, u.email, u.name,
	(SELECT count(*) FROM likes l WHERE l.post_id = p.id) AS like_count
FROM posts p
JOIN users u ON u.id = p.user_id`

// queryer は *sql.DB と *sql.Tx の共通部分。
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanPost(row rowScanner) (*model.Post, error) {
	p := &model.Post{}
	err := row.Scan(&p.ID, &p.Message, &p.UserID, &p.CreatedAt,
		&p.Author.ID, &p.Author.Email, &p.Author.Name,
		&p.LikeCount,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Exists は指定IDの投稿が存在するかを返す。
func (r *PostgresPostRepo) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM posts WHERE id = $1)`,
		id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check post existence: %w", err)
	}
	return exists, nil
}

// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
func (r *PostgresPostRepo) FindByID(ctx context.Context, id int64) (*model.Post, error) {
	post, err := findPost(ctx, r.db, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find post by ID: %w", err)
	}
	return post, nil
}

func findPost(ctx context.Context, q queryer, id int64) (*model.Post, error) {
	post, err := scanPost(q.QueryRowContext(ctx, postSelect+` WHERE p.id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := attachRelations(ctx, q, []*model.Post{post}); err != nil {
		return nil, err
	}
	return post, nil
}

// postOrderExprs は並び替えキーとSQL式の対応。ここに無いキーはcreatedAtとして扱う。
var postOrderExprs = map[model.PostSortField]string{
	model.PostSortByCreatedAt: "p.created_at",
	model.PostSortByLikeCount: "like_count",
	model.PostSortByID:        "p.id",
}

// List は条件に一致する投稿を返す。Limit が0の場合は全件。
func (r *PostgresPostRepo) List(ctx context.Context, q model.PostListQuery) ([]*model.Post, error) {
	var (
		where string
		args  []any
	)
	if q.UserID > 0 {
		args = append(args, q.UserID)
		where = fmt.Sprintf(` WHERE p.user_id = $%d`, len(args))
	}

	expr, ok := postOrderExprs[q.SortBy]
	if !ok {
		expr = postOrderExprs[model.PostSortByCreatedAt]
	}
	dir := direction(q.Desc)
	// 同値のときの順序を安定させるためidを第2キーにする
	query := postSelect + where + ` ORDER BY ` + expr + ` ` + dir + `, p.id ` + dir

	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if q.Offset > 0 {
		args = append(args, q.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var posts []*model.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}

	if err := attachRelations(ctx, r.db, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// Count は投稿数を返す。userIDが0の場合は全件数。
func (r *PostgresPostRepo) Count(ctx context.Context, userID int64) (int64, error) {
	var count int64
	var err error
	if userID > 0 {
		err = r.db.QueryRowContext(ctx, `SELECT count(*) FROM posts WHERE user_id = $1`, userID).Scan(&count)
	} else {
		err = r.db.QueryRowContext(ctx, `SELECT count(*) FROM posts`).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return count, nil
}

// Create は投稿と画像を同一トランザクションで作成し、作成後の投稿を読み直して返す。
// 制約違反は ErrDuplicate / ErrForeignKey に変換する。
func (r *PostgresPostRepo) Create(ctx context.Context, p model.NewPost) (*model.Post, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var postID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO posts (message, user_id) VALUES ($1, $2) RETURNING id`,
		p.Message, p.UserID,
	).Scan(&postID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert post: %w", classifyError(err))
	}

	for _, img := range p.Images {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO post_images (name_server, name_client, ext, size, post_id)
			 VALUES ($1, $2, $3, $4, $5)`,
			img.NameServer, img.NameClient, img.Ext, img.Size, postID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert post image: %w", classifyError(err))
		}
	}

	post, err := findPost(ctx, tx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload created post: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return post, nil
}

// attachRelations は投稿群にいいねと画像をまとめて読み込む。
// 投稿1件ごとにクエリを発行しないよう、ID配列で一括取得する。
func attachRelations(ctx context.Context, q queryer, posts []*model.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]int64, len(posts))
	byID := make(map[int64]*model.Post, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
		byID[p.ID] = p
		p.Likes = []model.Like{}
		p.Images = []model.PostImage{}
	}

	likeRows, err := q.QueryContext(ctx,
		`SELECT l.id, l.user_id, l.post_id, l.created_at, u.id, u.email, u.name
		 FROM likes l
		 JOIN users u ON u.id = l.user_id
		 WHERE l.post_id = ANY($1)
		 ORDER BY l.created_at DESC, l.id DESC`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("failed to load likes: %w", err)
	}
	defer likeRows.Close()
	for likeRows.Next() {
		var l model.Like
		var u model.UserSummary
		if err := likeRows.Scan(&l.ID, &l.UserID, &l.PostID, &l.CreatedAt, &u.ID, &u.Email, &u.Name); err != nil {
			return fmt.Errorf("failed to scan like: %w", err)
		}
		l.User = &u
		if p, ok := byID[l.PostID]; ok {
			p.Likes = append(p.Likes, l)
		}
	}
	if err := likeRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate likes: %w", err)
	}

	imageRows, err := q.QueryContext(ctx,
		`SELECT id, name_server, name_client, ext, size, post_id, created_at
		 FROM post_images
		 WHERE post_id = ANY($1)
		 ORDER BY id ASC`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("failed to load post images: %w", err)
	}
	defer imageRows.Close()
	for imageRows.Next() {
		var img model.PostImage
		if err := imageRows.Scan(&img.ID, &img.NameServer, &img.NameClient, &img.Ext, &img.Size, &img.PostID, &img.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan post image: %w", err)
		}
		if p, ok := byID[img.PostID]; ok {
			p.Images = append(p.Images, img)
		}
	}
	if err := imageRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate post images: %w", err)
	}
	return nil
}

// compile-time interface check
var _ PostRepository = (*PostgresPostRepo)(nil)
