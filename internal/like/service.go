// Package like はいいねのトグルといいねしたユーザーの一覧を提供する。
package like

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/redsocial/internal/model"
	"github.com/hitoshi/redsocial/internal/repository"
)

const (
	// DefaultLikersLimit はいいねユーザー一覧の既定件数。
	DefaultLikersLimit = 20
	// MaxLikersLimit はいいねユーザー一覧の最大件数。
	MaxLikersLimit = 100
)

// PostChecker は投稿の存在確認インターフェース。
type PostChecker interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// ToggleRecorder はトグル結果の記録インターフェース。
type ToggleRecorder interface {
	RecordLikeToggle(action string)
}

// Service はいいねのサービス層。
type Service struct {
	posts    PostChecker
	likes    repository.LikeRepository
	recorder ToggleRecorder
}

// NewService はServiceの新しいインスタンスを生成する。
// recorderはnilでもよい。
func NewService(posts PostChecker, likes repository.LikeRepository, recorder ToggleRecorder) *Service {
	return &Service{
		posts:    posts,
		likes:    likes,
		recorder: recorder,
	}
}

// ToggleLike は (postID, userID) のいいねが無ければ作成し、あれば削除する。
// 返すいいね数は変更後の件数。
//
// 存在確認から変更までは1つのトランザクションではないため、同じ組への同時トグルが起こりうる。
// 作成が一意制約で失敗した場合は既にいいね済みとみなし、added として成功を返す。
// 削除対象が既に消えていた場合も removed として成功を返す。
func (s *Service) ToggleLike(ctx context.Context, postID, userID int64) (*model.ToggleResult, error) {
	if postID < 1 {
		return nil, model.NewValidationError("postId debe ser un entero positivo")
	}
	if userID < 1 {
		return nil, model.NewValidationError("userId debe ser un entero positivo")
	}

	if err := s.ensurePost(ctx, postID); err != nil {
		return nil, err
	}

	existing, err := s.likes.Find(ctx, userID, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to find like: %w", err)
	}

	result := &model.ToggleResult{}
	if existing != nil {
		deleted, err := s.likes.Delete(ctx, userID, postID)
		if err != nil {
			return nil, fmt.Errorf("failed to delete like: %w", err)
		}
		if !deleted {
			slog.Info("like already removed by concurrent toggle",
				slog.Int64("user_id", userID),
				slog.Int64("post_id", postID),
			)
		}
		result.Action = model.LikeActionRemoved
	} else {
		created, err := s.create(ctx, userID, postID)
		if err != nil {
			return nil, err
		}
		result.Action = model.LikeActionAdded
		result.Like = created
	}

	count, err := s.likes.CountByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to count likes: %w", err)
	}
	result.LikeCount = count

	if s.recorder != nil {
		s.recorder.RecordLikeToggle(string(result.Action))
	}
	slog.Info("like toggled",
		slog.Int64("user_id", userID),
		slog.Int64("post_id", postID),
		slog.String("action", string(result.Action)),
		slog.Int64("like_count", count),
	)
	return result, nil
}

// create はいいねを作成する。一意制約違反は既存のいいねを返して成功扱いにする。
func (s *Service) create(ctx context.Context, userID, postID int64) (*model.Like, error) {
	created, err := s.likes.Create(ctx, userID, postID)
	switch {
	case err == nil:
		return created, nil
	case errors.Is(err, repository.ErrDuplicate):
		slog.Info("like already added by concurrent toggle",
			slog.Int64("user_id", userID),
			slog.Int64("post_id", postID),
		)
		existing, findErr := s.likes.Find(ctx, userID, postID)
		if findErr != nil {
			return nil, fmt.Errorf("failed to reload like after conflict: %w", findErr)
		}
		if existing == nil {
			// 競合相手が直後に削除した場合。作成できなかったことを競合として返す
			return nil, model.NewConflictError("el like cambió mientras se procesaba, intenta de nuevo")
		}
		return existing, nil
	case errors.Is(err, repository.ErrForeignKey):
		// 投稿は確認済みなので、参照違反はユーザー不在とみなす
		return nil, model.NewUserNotFoundError(userID)
	default:
		return nil, fmt.Errorf("failed to create like: %w", err)
	}
}

// GetLikers は投稿にいいねしたユーザーを新しい順に返す。
// limitは1からMaxLikersLimitの範囲。
func (s *Service) GetLikers(ctx context.Context, postID int64, limit int) ([]model.Liker, error) {
	if postID < 1 {
		return nil, model.NewValidationError("postId debe ser un entero positivo")
	}
	if limit < 1 || limit > MaxLikersLimit {
		return nil, model.NewValidationError(fmt.Sprintf("limit debe estar entre 1 y %d", MaxLikersLimit))
	}

	if err := s.ensurePost(ctx, postID); err != nil {
		return nil, err
	}

	likers, err := s.likes.ListLikers(ctx, postID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list likers: %w", err)
	}
	return likers, nil
}

func (s *Service) ensurePost(ctx context.Context, postID int64) error {
	exists, err := s.posts.Exists(ctx, postID)
	if err != nil {
		return fmt.Errorf("failed to check post: %w", err)
	}
	if !exists {
		return model.NewPostNotFoundError(postID)
	}
	return nil
}
