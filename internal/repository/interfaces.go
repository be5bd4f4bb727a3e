// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/cinedex/internal/model"
)

// ErrDuplicate は一意制約違反を表すセンチネルエラー。
// インタラクションの3つ組重複やユーザー名・メールアドレスの重複時に返される。
// サービス層がerrors.Isで検出し、コンフリクトエラーに変換する。
var ErrDuplicate = errors.New("repository: duplicate key")

// MovieRepository は映画データの永続化インターフェース。
type MovieRepository interface {
	// FindByID は指定内部IDの映画をジャンル付きで取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Movie, error)

	// FindByTMDBID は指定TMDb IDの映画をジャンル付きで取得する。見つからない場合はnilを返す。
	FindByTMDBID(ctx context.Context, tmdbID int) (*model.Movie, error)

	// Upsert はtmdb_idをキーに映画をUPSERTする。
	// 既存行があればスカラーフィールドを上書きし、なければ渡されたIDで新規作成する。
	// 競合解決はtmdb_idの一意制約（ON CONFLICT）で行うため、同時実行でも行は重複しない。
	// 反映後のID・created_at・updated_atをmに書き戻す。
	Upsert(ctx context.Context, m *model.Movie) error

	// LinkGenres は映画にジャンルを追加リンクする（和集合。既存リンクは解除しない）。
	// genreIDsはgenresテーブルに存在するIDのみを渡すこと。
	LinkGenres(ctx context.Context, movieID string, genreIDs []int) error

	// ListByGenresExcluding はジャンル集合と交差する映画を人気度降順で返す。
	// excludeMovieIDsに含まれる映画は除外し、重複なくlimit件まで取得する。
	ListByGenresExcluding(ctx context.Context, genreIDs []int, excludeMovieIDs []string, limit int) ([]*model.Movie, error)
}

// GenreRepository はジャンルデータの永続化インターフェース。
type GenreRepository interface {
	// Upsert はジャンルをIDをキーにUPSERTする。
	Upsert(ctx context.Context, g *model.Genre) error

	// FilterKnown は渡されたIDのうちgenresテーブルに存在するものだけを返す。
	// 映画アップサート時のリンク対象の選別に使用する。
	FilterKnown(ctx context.Context, ids []int) ([]int, error)

	// List は全ジャンルをID昇順で返す。
	List(ctx context.Context) ([]model.Genre, error)
}

// InteractionRepository はインタラクションデータの永続化インターフェース。
type InteractionRepository interface {
	// Create はインタラクションを作成する。
	// (user_id, movie_id, interaction_type) が重複する場合はErrDuplicateを返す。
	Create(ctx context.Context, i *model.Interaction) error

	// ListByUserID はユーザーの全インタラクションを映画タイトル付きで返す。
	ListByUserID(ctx context.Context, userID string) ([]model.InteractionWithMovie, error)

	// DeleteByIDAndUser は指定IDのインタラクションを所有ユーザー一致の条件付きで削除する。
	// 削除対象が存在しない（または他ユーザー所有の）場合はfalseを返す。
	DeleteByIDAndUser(ctx context.Context, id, userID string) (bool, error)

	// ListMovieIDsByUser はユーザーが何らかのインタラクションを持つ映画IDの集合を返す。
	ListMovieIDsByUser(ctx context.Context, userID string) ([]string, error)

	// ListLikedGenreIDs はユーザーがLIKEDした映画に付与されたジャンルIDの集合（重複なし）を返す。
	ListLikedGenreIDs(ctx context.Context, userID string) ([]int, error)
}

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// Create はユーザーを作成し、rolesで指定されたロールを付与する。
	// ロール行が存在しない場合は作成する。
	// ユーザー名またはメールアドレスが重複する場合はErrDuplicateを返す。
	Create(ctx context.Context, u *model.User) error

	// FindByID は指定IDのユーザーをロール付きで取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername は指定ユーザー名のユーザーをロール付きで取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// List は全ユーザーをユーザー名昇順・ロール付きで返す。
	List(ctx context.Context) ([]*model.User, error)

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するuser_roles、interactionsはCASCADE削除される。
	// 削除対象が存在しない場合はfalseを返す。
	DeleteByID(ctx context.Context, id string) (bool, error)

	// AssignRole はユーザーにロールを付与する。ロール行が存在しない場合は作成する。
	// 既に付与済みの場合は何もしない（冪等）。
	AssignRole(ctx context.Context, userID, roleName string) error

	// HasRole はユーザーが指定ロールを保持しているかをrolesテーブルで判定する。
	// 管理者判定の唯一の真実源。
	HasRole(ctx context.Context, userID, roleName string) (bool, error)
}
