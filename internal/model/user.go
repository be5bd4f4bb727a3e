package model

import "time"

// User はサービス利用ユーザーを表す。
// PasswordHashはbcryptハッシュで、APIレスポンスには一切含めない。
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	DateOfBirth  *time.Time
	Roles        []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ロール名の定義。
const (
	// RoleUser は登録時に自動付与される基本ロール。
	RoleUser = "user"
	// RoleAdmin は管理エンドポイントへのアクセスを許可するロール。
	// 管理者判定はrolesテーブルのみを真実源とする。
	RoleAdmin = "admin"
)

// HasRole はユーザーが指定ロールを保持しているかを返す。
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
