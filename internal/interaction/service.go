// Package interaction はユーザーと映画のインタラクション管理を提供する。
package interaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/cinedex/internal/model"
	"github.com/hitoshi/cinedex/internal/repository"
)

// View はクライアントに公開するインタラクションのプロジェクション。
type View struct {
	ID              string    `json:"id"`
	MovieInternalID string    `json:"movie_internal_id"`
	MovieTitle      string    `json:"movie_title"`
	InteractionType string    `json:"interaction_type"`
	CreatedAt       time.Time `json:"created_at"`
}

// Service はインタラクション管理のサービス層。
type Service struct {
	interactionRepo repository.InteractionRepository
	movieRepo       repository.MovieRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	interactionRepo repository.InteractionRepository,
	movieRepo repository.MovieRepository,
) *Service {
	return &Service{
		interactionRepo: interactionRepo,
		movieRepo:       movieRepo,
	}
}

// List はユーザーの全インタラクションを返す。
func (s *Service) List(ctx context.Context, userID string) ([]View, error) {
	rows, err := s.interactionRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("インタラクション一覧の取得に失敗しました: %w", err)
	}

	views := make([]View, 0, len(rows))
	for _, row := range rows {
		views = append(views, View{
			ID:              row.ID,
			MovieInternalID: row.MovieID,
			MovieTitle:      row.MovieTitle,
			InteractionType: string(row.Type),
			CreatedAt:       row.CreatedAt,
		})
	}

	return views, nil
}

// Create はインタラクションを記録する。
// 映画はローカルカタログに存在している必要がある（内部IDで指定）。
// 同一の (user, movie, type) はDB制約で弾かれ、コンフリクトエラーになる。
func (s *Service) Create(ctx context.Context, userID, movieID, interactionType string) (*View, error) {
	typ, ok := model.ParseInteractionType(interactionType)
	if !ok {
		return nil, model.NewValidationError("インタラクション種別が不正です。", map[string]string{
			"interaction_type": "LIKED、BOOKMARKED、WATCHED のいずれかを指定してください。",
		})
	}

	if movieID == "" {
		return nil, model.NewValidationError("映画IDを指定してください。", map[string]string{
			"movie": "映画の内部IDが必要です。",
		})
	}

	movie, err := s.movieRepo.FindByID(ctx, movieID)
	if err != nil {
		return nil, fmt.Errorf("映画の検索に失敗しました: %w", err)
	}
	if movie == nil {
		return nil, model.NewMovieNotFoundError()
	}

	i := &model.Interaction{
		ID:      uuid.NewString(),
		UserID:  userID,
		MovieID: movie.ID,
		Type:    typ,
	}

	if err := s.interactionRepo.Create(ctx, i); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewDuplicateInteractionError()
		}
		return nil, fmt.Errorf("インタラクションの作成に失敗しました: %w", err)
	}

	return &View{
		ID:              i.ID,
		MovieInternalID: movie.ID,
		MovieTitle:      movie.Title,
		InteractionType: string(i.Type),
		CreatedAt:       i.CreatedAt,
	}, nil
}

// Delete は指定IDのインタラクションを削除する。
// 所有ユーザーのみ削除でき、他ユーザーのインタラクションは存在の有無を
// 漏らさないため未検出として扱う。
func (s *Service) Delete(ctx context.Context, userID, interactionID string) error {
	deleted, err := s.interactionRepo.DeleteByIDAndUser(ctx, interactionID, userID)
	if err != nil {
		return fmt.Errorf("インタラクションの削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewInteractionNotFoundError()
	}

	return nil
}
