// Package recommend はユーザーのインタラクション履歴に基づくレコメンド生成を提供する。
//
// アルゴリズムはジャンル重複ヒューリスティック: LIKEDした映画のジャンル集合と
// 交差する映画を人気度降順で返す。プロバイダは直接呼ばず、過去の同期パスで
// 蓄積済みのローカルカタログのみを読む。
package recommend

import (
	"context"
	"fmt"

	"github.com/hitoshi/cinedex/internal/catalog"
	"github.com/hitoshi/cinedex/internal/repository"
)

// maxRecommendations はレコメンド結果の上限数。
const maxRecommendations = 20

// TrendingProvider はLIKEDシグナルがない場合のフォールバック取得先。
type TrendingProvider interface {
	// Trending は週間トレンド映画の一覧を返す。
	Trending(ctx context.Context) ([]catalog.MovieView, error)
}

// Result はレコメンド結果とその由来を表す。
type Result struct {
	Movies []catalog.MovieView
	// Fallback はLIKEDシグナルがなくトレンドにフォールバックした場合にtrue。
	// レスポンスのペイロード形状はトレンドエンドポイントと同一で、メッセージのみ異なる。
	Fallback bool
}

// Service はレコメンド生成のサービス層。
type Service struct {
	interactionRepo repository.InteractionRepository
	movieRepo       repository.MovieRepository
	trending        TrendingProvider
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	interactionRepo repository.InteractionRepository,
	movieRepo repository.MovieRepository,
	trending TrendingProvider,
) *Service {
	return &Service{
		interactionRepo: interactionRepo,
		movieRepo:       movieRepo,
		trending:        trending,
	}
}

// ForUser はユーザー向けのレコメンド一覧を生成する。
//
// LIKEDした映画のジャンル集合が空の場合はトレンド一覧をそのまま返す。
// それ以外はジャンルが交差する映画を人気度降順・上位20件で返す。
// ユーザーが何らかのインタラクション（LIKED/BOOKMARKED/WATCHED）を持つ映画は
// 種別を問わず除外する。
func (s *Service) ForUser(ctx context.Context, userID string) (*Result, error) {
	likedGenreIDs, err := s.interactionRepo.ListLikedGenreIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("LIKEDジャンルの取得に失敗しました: %w", err)
	}

	if len(likedGenreIDs) == 0 {
		movies, err := s.trending.Trending(ctx)
		if err != nil {
			return nil, err
		}
		return &Result{Movies: movies, Fallback: true}, nil
	}

	excludeMovieIDs, err := s.interactionRepo.ListMovieIDsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("インタラクション済み映画の取得に失敗しました: %w", err)
	}

	movies, err := s.movieRepo.ListByGenresExcluding(ctx, likedGenreIDs, excludeMovieIDs, maxRecommendations)
	if err != nil {
		return nil, fmt.Errorf("レコメンド候補の取得に失敗しました: %w", err)
	}

	views := make([]catalog.MovieView, 0, len(movies))
	for _, m := range movies {
		views = append(views, catalog.ToMovieView(m))
	}

	return &Result{Movies: views, Fallback: false}, nil
}
