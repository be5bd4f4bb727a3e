package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/cinedex/internal/model"
)

// PostgresGenreRepo はPostgreSQLを使用したジャンルリポジトリ。
type PostgresGenreRepo struct {
	db *sql.DB
}

// NewPostgresGenreRepo はPostgresGenreRepoを生成する。
func NewPostgresGenreRepo(db *sql.DB) *PostgresGenreRepo {
	return &PostgresGenreRepo{db: db}
}

// Upsert はジャンルをIDをキーにUPSERTする。
func (r *PostgresGenreRepo) Upsert(ctx context.Context, g *model.Genre) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO genres (id, name)
		 VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`,
		g.ID, g.Name,
	)
	if err != nil {
		return fmt.Errorf("ジャンルのUPSERTに失敗しました: %w", err)
	}

	return nil
}

// FilterKnown は渡されたIDのうちgenresテーブルに存在するものだけを返す。
func (r *PostgresGenreRepo) FilterKnown(ctx context.Context, ids []int) ([]int, error) {
	if len(ids) == 0 {
		return []int{}, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM genres WHERE id = ANY($1) ORDER BY id`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("既知ジャンルの選別に失敗しました: %w", err)
	}
	defer rows.Close()

	known := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ジャンルIDのスキャンに失敗しました: %w", err)
		}
		known = append(known, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("既知ジャンルの読み取りに失敗しました: %w", err)
	}

	return known, nil
}

// List は全ジャンルをID昇順で返す。
func (r *PostgresGenreRepo) List(ctx context.Context) ([]model.Genre, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM genres ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("ジャンル一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	genres := []model.Genre{}
	for rows.Next() {
		var g model.Genre
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, fmt.Errorf("ジャンル行のスキャンに失敗しました: %w", err)
		}
		genres = append(genres, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ジャンル一覧の読み取りに失敗しました: %w", err)
	}

	return genres, nil
}
