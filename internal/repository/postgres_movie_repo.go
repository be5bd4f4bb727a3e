package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/cinedex/internal/model"
)

// PostgresMovieRepo はPostgreSQLを使用した映画リポジトリ。
type PostgresMovieRepo struct {
	db *sql.DB
}

// NewPostgresMovieRepo はPostgresMovieRepoを生成する。
func NewPostgresMovieRepo(db *sql.DB) *PostgresMovieRepo {
	return &PostgresMovieRepo{db: db}
}

// FindByID は指定内部IDの映画をジャンル付きで取得する。見つからない場合はnilを返す。
func (r *PostgresMovieRepo) FindByID(ctx context.Context, id string) (*model.Movie, error) {
	return r.findOne(ctx,
		`SELECT id, tmdb_id, title, overview, poster_path, release_date,
		        popularity, vote_average, created_at, updated_at
		 FROM movies WHERE id = $1`,
		id,
	)
}

// FindByTMDBID は指定TMDb IDの映画をジャンル付きで取得する。見つからない場合はnilを返す。
func (r *PostgresMovieRepo) FindByTMDBID(ctx context.Context, tmdbID int) (*model.Movie, error) {
	return r.findOne(ctx,
		`SELECT id, tmdb_id, title, overview, poster_path, release_date,
		        popularity, vote_average, created_at, updated_at
		 FROM movies WHERE tmdb_id = $1`,
		tmdbID,
	)
}

func (r *PostgresMovieRepo) findOne(ctx context.Context, query string, arg any) (*model.Movie, error) {
	m := &model.Movie{}
	var overview, posterPath sql.NullString
	var releaseDate sql.NullTime

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&m.ID, &m.TMDBID, &m.Title, &overview, &posterPath, &releaseDate,
		&m.Popularity, &m.VoteAverage, &m.CreatedAt, &m.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("映画の取得に失敗しました: %w", err)
	}

	m.Overview = overview.String
	m.PosterPath = posterPath.String
	if releaseDate.Valid {
		m.ReleaseDate = &releaseDate.Time
	}

	genres, err := r.loadGenres(ctx, []string{m.ID})
	if err != nil {
		return nil, err
	}
	m.Genres = genres[m.ID]
	if m.Genres == nil {
		m.Genres = []model.Genre{}
	}

	return m, nil
}

// Upsert はtmdb_idをキーに映画をUPSERTする。
// 競合はtmdb_idの一意制約（ON CONFLICT）で解決するため、同時実行でも行は重複しない。
// 空のoverview・poster_pathはNULLとして保存する。
func (r *PostgresMovieRepo) Upsert(ctx context.Context, m *model.Movie) error {
	var releaseDate sql.NullTime
	if m.ReleaseDate != nil {
		releaseDate = sql.NullTime{Time: *m.ReleaseDate, Valid: true}
	}

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO movies (id, tmdb_id, title, overview, poster_path, release_date,
		                     popularity, vote_average, created_at, updated_at)
		 VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, now(), now())
		 ON CONFLICT (tmdb_id) DO UPDATE SET
		   title = EXCLUDED.title,
		   overview = EXCLUDED.overview,
		   poster_path = EXCLUDED.poster_path,
		   release_date = EXCLUDED.release_date,
		   popularity = EXCLUDED.popularity,
		   vote_average = EXCLUDED.vote_average,
		   updated_at = now()
		 RETURNING id, created_at, updated_at`,
		m.ID, m.TMDBID, m.Title, m.Overview, m.PosterPath, releaseDate,
		m.Popularity, m.VoteAverage,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("映画のUPSERTに失敗しました: %w", err)
	}

	return nil
}

// LinkGenres は映画にジャンルを追加リンクする（和集合。既存リンクは解除しない）。
// genresテーブルに存在しないIDはSELECTの結合条件で自然に除外される。
func (r *PostgresMovieRepo) LinkGenres(ctx context.Context, movieID string, genreIDs []int) error {
	if len(genreIDs) == 0 {
		return nil
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO movie_genres (movie_id, genre_id)
		 SELECT $1::uuid, g.id FROM genres g WHERE g.id = ANY($2)
		 ON CONFLICT DO NOTHING`,
		movieID, pq.Array(genreIDs),
	)
	if err != nil {
		return fmt.Errorf("映画とジャンルのリンクに失敗しました: %w", err)
	}

	return nil
}

// ListByGenresExcluding はジャンル集合と交差する映画を人気度降順で返す。
// excludeMovieIDsに含まれる映画は除外し、重複なくlimit件まで取得する。
func (r *PostgresMovieRepo) ListByGenresExcluding(ctx context.Context, genreIDs []int, excludeMovieIDs []string, limit int) ([]*model.Movie, error) {
	if len(genreIDs) == 0 {
		return []*model.Movie{}, nil
	}
	if excludeMovieIDs == nil {
		excludeMovieIDs = []string{}
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT m.id, m.tmdb_id, m.title, m.overview, m.poster_path,
		        m.release_date, m.popularity, m.vote_average, m.created_at, m.updated_at
		 FROM movies m
		 JOIN movie_genres mg ON mg.movie_id = m.id
		 WHERE mg.genre_id = ANY($1)
		   AND NOT (m.id = ANY($2::uuid[]))
		 ORDER BY m.popularity DESC
		 LIMIT $3`,
		pq.Array(genreIDs), pq.Array(excludeMovieIDs), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("ジャンル別映画一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var movies []*model.Movie
	var movieIDs []string
	for rows.Next() {
		m := &model.Movie{}
		var overview, posterPath sql.NullString
		var releaseDate sql.NullTime

		if err := rows.Scan(
			&m.ID, &m.TMDBID, &m.Title, &overview, &posterPath,
			&releaseDate, &m.Popularity, &m.VoteAverage, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("映画行のスキャンに失敗しました: %w", err)
		}

		m.Overview = overview.String
		m.PosterPath = posterPath.String
		if releaseDate.Valid {
			m.ReleaseDate = &releaseDate.Time
		}
		m.Genres = []model.Genre{}

		movies = append(movies, m)
		movieIDs = append(movieIDs, m.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("映画一覧の読み取りに失敗しました: %w", err)
	}

	if len(movies) == 0 {
		return []*model.Movie{}, nil
	}

	genres, err := r.loadGenres(ctx, movieIDs)
	if err != nil {
		return nil, err
	}
	for _, m := range movies {
		if g, ok := genres[m.ID]; ok {
			m.Genres = g
		}
	}

	return movies, nil
}

// loadGenres は指定映画群のジャンルを一括取得し、映画IDごとのマップで返す。
func (r *PostgresMovieRepo) loadGenres(ctx context.Context, movieIDs []string) (map[string][]model.Genre, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT mg.movie_id, g.id, g.name
		 FROM movie_genres mg
		 JOIN genres g ON g.id = mg.genre_id
		 WHERE mg.movie_id = ANY($1::uuid[])
		 ORDER BY g.id`,
		pq.Array(movieIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("映画のジャンル取得に失敗しました: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]model.Genre)
	for rows.Next() {
		var movieID string
		var g model.Genre
		if err := rows.Scan(&movieID, &g.ID, &g.Name); err != nil {
			return nil, fmt.Errorf("ジャンル行のスキャンに失敗しました: %w", err)
		}
		result[movieID] = append(result[movieID], g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ジャンル一覧の読み取りに失敗しました: %w", err)
	}

	return result, nil
}
