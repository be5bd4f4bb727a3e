package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/cinedex/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// Create はユーザーとロール付与を同一トランザクションで作成する。
// ユーザー名またはメールアドレスの一意制約違反はErrDuplicateに変換する。
func (r *PostgresUserRepo) Create(ctx context.Context, u *model.User) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	var dob sql.NullTime
	if u.DateOfBirth != nil {
		dob = sql.NullTime{Time: *u.DateOfBirth, Valid: true}
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, date_of_birth, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now(), now())
		 RETURNING created_at, updated_at`,
		u.ID, u.Username, u.Email, u.PasswordHash, dob,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	for _, role := range u.Roles {
		if err := assignRoleTx(ctx, tx, u.ID, role); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}

	return nil
}

// FindByID は指定IDのユーザーをロール付きで取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx,
		`SELECT id, username, email, password_hash, date_of_birth, created_at, updated_at
		 FROM users WHERE id = $1`,
		id,
	)
}

// FindByUsername は指定ユーザー名のユーザーをロール付きで取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findOne(ctx,
		`SELECT id, username, email, password_hash, date_of_birth, created_at, updated_at
		 FROM users WHERE username = $1`,
		username,
	)
}

func (r *PostgresUserRepo) findOne(ctx context.Context, query string, arg any) (*model.User, error) {
	u := &model.User{}
	var dob sql.NullTime

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &dob, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}

	if dob.Valid {
		u.DateOfBirth = &dob.Time
	}

	roles, err := r.loadRoles(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	u.Roles = roles

	return u, nil
}

// List は全ユーザーをユーザー名昇順・ロール付きで返す。
func (r *PostgresUserRepo) List(ctx context.Context) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, username, email, password_hash, date_of_birth, created_at, updated_at
		 FROM users ORDER BY username`,
	)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	users := []*model.User{}
	for rows.Next() {
		u := &model.User{}
		var dob sql.NullTime
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &dob, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ユーザー行のスキャンに失敗しました: %w", err)
		}
		if dob.Valid {
			u.DateOfBirth = &dob.Time
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ユーザー一覧の読み取りに失敗しました: %w", err)
	}

	for _, u := range users {
		roles, err := r.loadRoles(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		u.Roles = roles
	}

	return users, nil
}

// DeleteByID は指定IDのユーザーを削除する。
// 関連するuser_roles、interactionsはCASCADE削除される。
func (r *PostgresUserRepo) DeleteByID(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除行数の取得に失敗しました: %w", err)
	}

	return affected > 0, nil
}

// AssignRole はユーザーにロールを付与する。ロール行が存在しない場合は作成する。
func (r *PostgresUserRepo) AssignRole(ctx context.Context, userID, roleName string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	if err := assignRoleTx(ctx, tx, userID, roleName); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}

	return nil
}

// HasRole はユーザーが指定ロールを保持しているかをrolesテーブルで判定する。
func (r *PostgresUserRepo) HasRole(ctx context.Context, userID, roleName string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM user_roles ur
		   JOIN roles ro ON ro.id = ur.role_id
		   WHERE ur.user_id = $1 AND ro.name = $2
		 )`,
		userID, roleName,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ロールの判定に失敗しました: %w", err)
	}

	return exists, nil
}

// loadRoles は指定ユーザーのロール名一覧を返す。
func (r *PostgresUserRepo) loadRoles(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT ro.name FROM user_roles ur
		 JOIN roles ro ON ro.id = ur.role_id
		 WHERE ur.user_id = $1
		 ORDER BY ro.name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("ユーザーロールの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	roles := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("ロール名のスキャンに失敗しました: %w", err)
		}
		roles = append(roles, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ロール一覧の読み取りに失敗しました: %w", err)
	}

	return roles, nil
}

// assignRoleTx はトランザクション内でロール付与を行う。
// ロール行がなければ作成し、付与済みの場合は何もしない（冪等）。
func assignRoleTx(ctx context.Context, tx *sql.Tx, userID, roleName string) error {
	var roleID int
	err := tx.QueryRowContext(ctx,
		`INSERT INTO roles (name) VALUES ($1)
		 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id`,
		roleName,
	).Scan(&roleID)
	if err != nil {
		return fmt.Errorf("ロールの取得・作成に失敗しました: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		userID, roleID,
	)
	if err != nil {
		return fmt.Errorf("ロールの付与に失敗しました: %w", err)
	}

	return nil
}
