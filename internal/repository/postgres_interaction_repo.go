package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/cinedex/internal/model"
)

// uniqueViolation はPostgreSQLの一意制約違反のエラーコード。
const uniqueViolation = "23505"

// isUniqueViolation はエラーが一意制約違反かどうかを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// PostgresInteractionRepo はPostgreSQLを使用したインタラクションリポジトリ。
type PostgresInteractionRepo struct {
	db *sql.DB
}

// NewPostgresInteractionRepo はPostgresInteractionRepoを生成する。
func NewPostgresInteractionRepo(db *sql.DB) *PostgresInteractionRepo {
	return &PostgresInteractionRepo{db: db}
}

// Create はインタラクションを作成する。
// (user_id, movie_id, interaction_type) の一意制約違反はErrDuplicateに変換する。
func (r *PostgresInteractionRepo) Create(ctx context.Context, i *model.Interaction) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO interactions (id, user_id, movie_id, interaction_type, created_at)
		 VALUES ($1, $2, $3, $4, now())
		 RETURNING created_at`,
		i.ID, i.UserID, i.MovieID, string(i.Type),
	).Scan(&i.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("インタラクションの作成に失敗しました: %w", err)
	}

	return nil
}

// ListByUserID はユーザーの全インタラクションを映画タイトル付きで作成順に返す。
func (r *PostgresInteractionRepo) ListByUserID(ctx context.Context, userID string) ([]model.InteractionWithMovie, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT i.id, i.user_id, i.movie_id, i.interaction_type, i.created_at, m.title
		 FROM interactions i
		 JOIN movies m ON m.id = i.movie_id
		 WHERE i.user_id = $1
		 ORDER BY i.created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("インタラクション一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	result := []model.InteractionWithMovie{}
	for rows.Next() {
		var iw model.InteractionWithMovie
		var typ string
		if err := rows.Scan(&iw.ID, &iw.UserID, &iw.MovieID, &typ, &iw.CreatedAt, &iw.MovieTitle); err != nil {
			return nil, fmt.Errorf("インタラクション行のスキャンに失敗しました: %w", err)
		}
		iw.Type = model.InteractionType(typ)
		result = append(result, iw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("インタラクション一覧の読み取りに失敗しました: %w", err)
	}

	return result, nil
}

// DeleteByIDAndUser は指定IDのインタラクションを所有ユーザー一致の条件付きで削除する。
// 他ユーザー所有の行はWHERE句で弾かれるため、存在の有無は呼び出し元に漏れない。
func (r *PostgresInteractionRepo) DeleteByIDAndUser(ctx context.Context, id, userID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM interactions WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("インタラクションの削除に失敗しました: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除行数の取得に失敗しました: %w", err)
	}

	return affected > 0, nil
}

// ListMovieIDsByUser はユーザーが何らかのインタラクションを持つ映画IDの集合を返す。
func (r *PostgresInteractionRepo) ListMovieIDsByUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT movie_id FROM interactions WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("インタラクション済み映画IDの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("映画IDのスキャンに失敗しました: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("映画ID一覧の読み取りに失敗しました: %w", err)
	}

	return ids, nil
}

// ListLikedGenreIDs はユーザーがLIKEDした映画に付与されたジャンルIDの集合（重複なし）を返す。
func (r *PostgresInteractionRepo) ListLikedGenreIDs(ctx context.Context, userID string) ([]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT mg.genre_id
		 FROM interactions i
		 JOIN movie_genres mg ON mg.movie_id = i.movie_id
		 WHERE i.user_id = $1 AND i.interaction_type = 'LIKED'`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("LIKEDジャンルの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ジャンルIDのスキャンに失敗しました: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("LIKEDジャンル一覧の読み取りに失敗しました: %w", err)
	}

	return ids, nil
}
