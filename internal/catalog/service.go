// Package catalog は映画カタログの同期オーケストレーションを提供する。
//
// 読み取りはキャッシュ（高速パス）→ ローカルストア（中速パス）→
// 外部プロバイダ（低速パス、取得後にストアとキャッシュへ反映）の順に解決する。
// プロバイダ由来レコードのUPSERTはtmdb_idの一意制約で競合解決されるため、
// 同一IDへの同時同期は分散ロックなしで安全に収束する。
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/cinedex/internal/cache"
	"github.com/hitoshi/cinedex/internal/model"
	"github.com/hitoshi/cinedex/internal/repository"
	"github.com/hitoshi/cinedex/internal/security"
	"github.com/hitoshi/cinedex/internal/tmdb"
)

// TMDBClient はシンクロナイザが必要とするプロバイダクライアントのインターフェース。
type TMDBClient interface {
	// GetMovie は映画詳細をTMDb IDで取得する。
	GetMovie(ctx context.Context, tmdbID int) (*tmdb.MoviePayload, error)
	// GetTrending は週間トレンド映画の一覧を取得する。
	GetTrending(ctx context.Context) ([]tmdb.MoviePayload, error)
	// GetRecommendations は指定映画のレコメンド一覧を取得する。
	GetRecommendations(ctx context.Context, tmdbID int) ([]tmdb.MoviePayload, error)
	// SearchMovies はクエリ文字列で映画を検索する。
	SearchMovies(ctx context.Context, query string) ([]tmdb.MoviePayload, error)
	// ListGenres は公式ジャンル一覧を取得する。
	ListGenres(ctx context.Context) ([]tmdb.GenrePayload, error)
}

// MetricsRecorder はシンクロナイザが記録するメトリクスのインターフェース。
type MetricsRecorder interface {
	RecordCacheHit(family string)
	RecordCacheMiss(family string)
	RecordMoviesUpserted(count int)
	RecordProviderError(endpoint string)
}

// CacheTTL はキーファミリーごとのキャッシュTTL設定。
type CacheTTL struct {
	Trending time.Duration
	Detail   time.Duration
	Search   time.Duration
}

// DefaultCacheTTL は各キーファミリーの標準TTLを返す。
func DefaultCacheTTL() CacheTTL {
	return CacheTTL{
		Trending: time.Hour,
		Detail:   24 * time.Hour,
		Search:   10 * time.Minute,
	}
}

// errMissingTMDBID はプロバイダペイロードに使用可能な外部IDがないことを表す。
// アップサートは即座に失敗し、部分書き込みは発生しない。
var errMissingTMDBID = errors.New("catalog: payload has no usable tmdb id")

// Service は映画カタログのシンクロナイザ。
// キャッシュ・ローカルストア・プロバイダの3層を1つの取得パイプラインに束ねる。
type Service struct {
	movieRepo repository.MovieRepository
	genreRepo repository.GenreRepository
	cache     cache.Store
	client    TMDBClient
	sanitizer security.TextSanitizerService
	metrics   MetricsRecorder
	logger    *slog.Logger
	ttl       CacheTTL
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	movieRepo repository.MovieRepository,
	genreRepo repository.GenreRepository,
	cacheStore cache.Store,
	client TMDBClient,
	sanitizer security.TextSanitizerService,
	metrics MetricsRecorder,
	logger *slog.Logger,
	ttl CacheTTL,
) *Service {
	return &Service{
		movieRepo: movieRepo,
		genreRepo: genreRepo,
		cache:     cacheStore,
		client:    client,
		sanitizer: sanitizer,
		metrics:   metrics,
		logger:    logger,
		ttl:       ttl,
	}
}

// Trending は週間トレンド映画の一覧を返す。
// キャッシュミス時はプロバイダから取得し、全件をローカルストアへUPSERTした上で
// シリアライズ済みの結果をキャッシュする。プロバイダ利用不可の場合は
// ローカルフォールバックを持たないため503相当のエラーを返す。
func (s *Service) Trending(ctx context.Context) ([]MovieView, error) {
	if views, ok := s.cacheGetList(ctx, cache.TrendingKey, "trending"); ok {
		return views, nil
	}

	payloads, err := s.client.GetTrending(ctx)
	if err != nil {
		s.recordProviderError("trending")
		return nil, model.NewTMDBUnavailableError()
	}

	views := s.upsertAll(ctx, payloads)
	s.cacheSetList(ctx, cache.TrendingKey, "trending", views, s.ttl.Trending)

	return views, nil
}

// GetByTMDBID は映画詳細をTMDb IDで取得する。
// キャッシュ → ローカルストア → プロバイダの順に解決し、
// 低速パスで取得した結果はストアとキャッシュの両方に反映する。
// プロバイダ障害と「存在しない」は意図的に区別せず、どちらも未検出として返す。
func (s *Service) GetByTMDBID(ctx context.Context, tmdbID int) (*MovieView, error) {
	key := cache.DetailKey(tmdbID)
	if view, ok := s.cacheGetOne(ctx, key, "detail"); ok {
		return view, nil
	}

	movie, err := s.movieRepo.FindByTMDBID(ctx, tmdbID)
	if err != nil {
		return nil, fmt.Errorf("ローカルストアの検索に失敗しました: %w", err)
	}
	if movie != nil {
		view := ToMovieView(movie)
		s.cacheSetOne(ctx, key, "detail", &view, s.ttl.Detail)
		return &view, nil
	}

	payload, err := s.client.GetMovie(ctx, tmdbID)
	if err != nil {
		s.recordProviderError("detail")
		return nil, model.NewMovieNotFoundError()
	}

	movie, err = s.upsertFromPayload(ctx, payload)
	if err != nil {
		s.logger.Warn("プロバイダペイロードのUPSERTに失敗しました",
			slog.Int("tmdb_id", tmdbID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewMovieNotFoundError()
	}

	view := ToMovieView(movie)
	s.cacheSetOne(ctx, key, "detail", &view, s.ttl.Detail)

	return &view, nil
}

// GetByID は映画詳細を内部IDで取得する。ローカルストアのみを参照する。
func (s *Service) GetByID(ctx context.Context, id string) (*MovieView, error) {
	movie, err := s.movieRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ローカルストアの検索に失敗しました: %w", err)
	}
	if movie == nil {
		return nil, model.NewMovieNotFoundError()
	}

	view := ToMovieView(movie)
	return &view, nil
}

// RecommendationsForMovie は指定映画（内部ID）のプロバイダレコメンドを返す。
// プロバイダ利用不可・結果なしはどちらも空リストとして返す（エラーにしない）。
// 結果はローカルストアへUPSERTされるが、このパスではキャッシュしない。
func (s *Service) RecommendationsForMovie(ctx context.Context, movieID string) ([]MovieView, error) {
	movie, err := s.movieRepo.FindByID(ctx, movieID)
	if err != nil {
		return nil, fmt.Errorf("ローカルストアの検索に失敗しました: %w", err)
	}
	if movie == nil {
		return nil, model.NewMovieNotFoundError()
	}

	payloads, err := s.client.GetRecommendations(ctx, movie.TMDBID)
	if err != nil {
		s.recordProviderError("recommendations")
		s.logger.Warn("レコメンド取得に失敗したため空リストを返します",
			slog.String("movie_id", movieID),
			slog.Int("tmdb_id", movie.TMDBID),
		)
		return []MovieView{}, nil
	}

	return s.upsertAll(ctx, payloads), nil
}

// Search は映画をクエリ文字列で検索する。
// 空白のみのクエリはプロバイダを呼ばずにバリデーションエラーを返す。
// プロバイダ利用不可と0件ヒットはどちらも空リストとして返す（区別はログのみ）。
func (s *Service) Search(ctx context.Context, query string) ([]MovieView, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, model.NewMissingQueryError()
	}

	key := cache.SearchKey(trimmed)
	if views, ok := s.cacheGetList(ctx, key, "search"); ok {
		return views, nil
	}

	payloads, err := s.client.SearchMovies(ctx, trimmed)
	if err != nil {
		s.recordProviderError("search")
		s.logger.Warn("映画検索に失敗したため空リストを返します",
			slog.String("query", trimmed),
		)
		return []MovieView{}, nil
	}

	views := s.upsertAll(ctx, payloads)
	s.cacheSetList(ctx, key, "search", views, s.ttl.Search)

	return views, nil
}

// SeedGenres は公式ジャンル一覧をプロバイダから取得してローカルストアへ反映する。
// 映画同期の前に実行すること。未知ジャンルのスキップ方針はこの事前シードを前提とする。
// 反映したジャンル数を返す。
func (s *Service) SeedGenres(ctx context.Context) (int, error) {
	genres, err := s.client.ListGenres(ctx)
	if err != nil {
		s.recordProviderError("genres")
		return 0, model.NewTMDBUnavailableError()
	}

	count := 0
	for _, g := range genres {
		if err := s.genreRepo.Upsert(ctx, &model.Genre{ID: g.ID, Name: g.Name}); err != nil {
			return count, fmt.Errorf("ジャンルのシードに失敗しました: %w", err)
		}
		count++
	}

	s.logger.Info("ジャンルのシードが完了しました", slog.Int("count", count))

	return count, nil
}

// upsertAll はプロバイダペイロード群をローカルストアへUPSERTし、
// 成功した分だけをプロバイダ返却順のままプロジェクションにして返す。
// 個別の失敗はログに記録してスキップする。
func (s *Service) upsertAll(ctx context.Context, payloads []tmdb.MoviePayload) []MovieView {
	views := make([]MovieView, 0, len(payloads))
	upserted := 0

	for i := range payloads {
		movie, err := s.upsertFromPayload(ctx, &payloads[i])
		if err != nil {
			s.logger.Warn("プロバイダペイロードのUPSERTに失敗したためスキップします",
				slog.Int("tmdb_id", payloads[i].ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		views = append(views, ToMovieView(movie))
		upserted++
	}

	if s.metrics != nil && upserted > 0 {
		s.metrics.RecordMoviesUpserted(upserted)
	}

	return views
}

// upsertFromPayload は正規化済みプロバイダレコード1件をローカルストアへUPSERTする。
//
// ジャンルリンクの方針: genresテーブルに存在するIDのみをリンクし、
// 未知のIDは警告ログを残してスキップする。プレースホルダー名の捏造はしない
// （ジャンルはSeedGenresで事前シードされている前提）。
// リンクは和集合で、プロバイダが報告しなくなったジャンルのリンク解除は行わない。
func (s *Service) upsertFromPayload(ctx context.Context, p *tmdb.MoviePayload) (*model.Movie, error) {
	if p == nil || p.ID == 0 {
		return nil, errMissingTMDBID
	}

	movie := &model.Movie{
		ID:          uuid.NewString(),
		TMDBID:      p.ID,
		Title:       s.sanitizer.Sanitize(p.Title),
		Overview:    s.sanitizer.Sanitize(p.Overview),
		PosterPath:  p.PosterPath,
		ReleaseDate: parseReleaseDate(p.ReleaseDate),
		Popularity:  p.Popularity,
		VoteAverage: p.VoteAverage,
	}

	if err := s.movieRepo.Upsert(ctx, movie); err != nil {
		return nil, err
	}

	genreIDs := p.GenreIDSet()
	if len(genreIDs) > 0 {
		known, err := s.genreRepo.FilterKnown(ctx, genreIDs)
		if err != nil {
			return nil, err
		}

		if unknown := diffInts(genreIDs, known); len(unknown) > 0 {
			s.logger.Warn("未シードのジャンルIDをスキップします",
				slog.Int("tmdb_id", p.ID),
				slog.Any("genre_ids", unknown),
			)
		}

		if err := s.movieRepo.LinkGenres(ctx, movie.ID, known); err != nil {
			return nil, err
		}
	}

	// リンク済みジャンル（名前付き）を含む最新状態を読み直す
	saved, err := s.movieRepo.FindByID(ctx, movie.ID)
	if err != nil {
		return nil, err
	}
	if saved == nil {
		return nil, fmt.Errorf("UPSERT直後の映画の再取得に失敗しました: tmdb_id=%d", p.ID)
	}

	return saved, nil
}

// --- キャッシュ入出力 ---
// キャッシュ障害は性能劣化として扱い、エラーは伝播させずログに記録して低速パスへ進む。

func (s *Service) cacheGetOne(ctx context.Context, key, family string) (*MovieView, bool) {
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("キャッシュの取得に失敗しました", slog.String("key", key), slog.String("error", err.Error()))
		return nil, false
	}
	if !ok {
		s.recordCacheMiss(family)
		return nil, false
	}

	var view MovieView
	if err := json.Unmarshal(data, &view); err != nil {
		s.logger.Warn("キャッシュ値のパースに失敗しました", slog.String("key", key), slog.String("error", err.Error()))
		return nil, false
	}

	s.recordCacheHit(family)
	return &view, true
}

func (s *Service) cacheSetOne(ctx context.Context, key, family string, view *MovieView, ttl time.Duration) {
	data, err := json.Marshal(view)
	if err != nil {
		s.logger.Warn("キャッシュ値のシリアライズに失敗しました", slog.String("key", key), slog.String("error", err.Error()))
		return
	}
	if err := s.cache.Set(ctx, key, data, ttl); err != nil {
		s.logger.Warn("キャッシュの保存に失敗しました", slog.String("key", key), slog.String("error", err.Error()))
	}
}

func (s *Service) cacheGetList(ctx context.Context, key, family string) ([]MovieView, bool) {
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("キャッシュの取得に失敗しました", slog.String("key", key), slog.String("error", err.Error()))
		return nil, false
	}
	if !ok {
		s.recordCacheMiss(family)
		return nil, false
	}

	var views []MovieView
	if err := json.Unmarshal(data, &views); err != nil {
		s.logger.Warn("キャッシュ値のパースに失敗しました", slog.String("key", key), slog.String("error", err.Error()))
		return nil, false
	}

	s.recordCacheHit(family)
	return views, true
}

func (s *Service) cacheSetList(ctx context.Context, key, family string, views []MovieView, ttl time.Duration) {
	data, err := json.Marshal(views)
	if err != nil {
		s.logger.Warn("キャッシュ値のシリアライズに失敗しました", slog.String("key", key), slog.String("error", err.Error()))
		return
	}
	if err := s.cache.Set(ctx, key, data, ttl); err != nil {
		s.logger.Warn("キャッシュの保存に失敗しました", slog.String("key", key), slog.String("error", err.Error()))
	}
}

func (s *Service) recordCacheHit(family string) {
	if s.metrics != nil {
		s.metrics.RecordCacheHit(family)
	}
}

func (s *Service) recordCacheMiss(family string) {
	if s.metrics != nil {
		s.metrics.RecordCacheMiss(family)
	}
}

func (s *Service) recordProviderError(endpoint string) {
	if s.metrics != nil {
		s.metrics.RecordProviderError(endpoint)
	}
}

// parseReleaseDate はプロバイダの公開日文字列をパースする。
// 空文字列・パース不能な値はnil（NULL保存）として扱う。
func parseReleaseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(releaseDateFormat, s)
	if err != nil {
		return nil
	}
	return &t
}

// diffInts はaに含まれbに含まれない要素を返す。
func diffInts(a, b []int) []int {
	inB := make(map[int]struct{}, len(b))
	for _, v := range b {
		inB[v] = struct{}{}
	}

	var diff []int
	for _, v := range a {
		if _, ok := inB[v]; !ok {
			diff = append(diff, v)
		}
	}
	return diff
}
