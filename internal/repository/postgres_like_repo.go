package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/redsocial/internal/model"
)

// PostgresLikeRepo はPostgreSQLを使用したいいねリポジトリ。
type PostgresLikeRepo struct {
	db *sql.DB
}

// NewPostgresLikeRepo はPostgresLikeRepoを生成する。
func NewPostgresLikeRepo(db *sql.DB) *PostgresLikeRepo {
	return &PostgresLikeRepo{db: db}
}

// Find は (userID, postID) のいいねをユーザー要約付きで取得する。見つからない場合はnilを返す。
func (r *PostgresLikeRepo) Find(ctx context.Context, userID, postID int64) (*model.Like, error) {
	like := &model.Like{}
	user := &model.UserSummary{}
	err := r.db.QueryRowContext(ctx,
		`SELECT l.id, l.user_id, l.post_id, l.created_at, u.id, u.email, u.name
		 FROM likes l
		 JOIN users u ON u.id = l.user_id
		 WHERE l.user_id = $1 AND l.post_id = $2`,
		userID, postID,
	).Scan(&like.ID, &like.UserID, &like.PostID, &like.CreatedAt, &user.ID, &user.Email, &user.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find like: %w", err)
	}
	like.User = user
	return like, nil
}

// Create はいいねを作成し、ユーザー要約を埋め込んで返す。
// INSERTとユーザー要約の読み出しを1文で行う。
func (r *PostgresLikeRepo) Create(ctx context.Context, userID, postID int64) (*model.Like, error) {
	like := &model.Like{}
	user := &model.UserSummary{}
	err := r.db.QueryRowContext(ctx,
		`WITH inserted AS (
			INSERT INTO likes (user_id, post_id) VALUES ($1, $2)
			RETURNING id, user_id, post_id, created_at
		)
		SELECT i.id, i.user_id, i.post_id, i.created_at, u.id, u.email, u.name
		FROM inserted i
		JOIN users u ON u.id = i.user_id`,
		userID, postID,
	).Scan(&like.ID, &like.UserID, &like.PostID, &like.CreatedAt, &user.ID, &user.Email, &user.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to insert like: %w", classifyError(err))
	}
	like.User = user
	return like, nil
}

// Delete は (userID, postID) のいいねを削除する。削除した行があればtrueを返す。
func (r *PostgresLikeRepo) Delete(ctx context.Context, userID, postID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM likes WHERE user_id = $1 AND post_id = $2`,
		userID, postID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete like: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// CountByPost は投稿のいいね数を返す。
func (r *PostgresLikeRepo) CountByPost(ctx context.Context, postID int64) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM likes WHERE post_id = $1`,
		postID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count likes: %w", err)
	}
	return count, nil
}

// ListLikers は投稿にいいねしたユーザーを新しい順に最大limit件返す。
func (r *PostgresLikeRepo) ListLikers(ctx context.Context, postID int64, limit int) ([]model.Liker, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT u.id, u.name, u.email, l.created_at
		 FROM likes l
		 JOIN users u ON u.id = l.user_id
		 WHERE l.post_id = $1
		 ORDER BY l.created_at DESC, l.id DESC
		 LIMIT $2`,
		postID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list likers: %w", err)
	}
	defer rows.Close()

	likers := []model.Liker{}
	for rows.Next() {
		var l model.Liker
		if err := rows.Scan(&l.ID, &l.Name, &l.Email, &l.LikedAt); err != nil {
			return nil, fmt.Errorf("failed to scan liker: %w", err)
		}
		likers = append(likers, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate likers: %w", err)
	}
	return likers, nil
}

// compile-time interface check
var _ LikeRepository = (*PostgresLikeRepo)(nil)
