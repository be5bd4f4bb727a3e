// Package admin はユーザー管理とロール付与の管理機能を提供する。
// すべての操作は管理者ロールを前提とする（判定はミドルウェア側で行う）。
package admin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/cinedex/internal/model"
	"github.com/hitoshi/cinedex/internal/repository"
)

// UserView は管理者向けのユーザープロジェクション。パスワードハッシュは含めない。
type UserView struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
}

// RoleAssignment はロール付与結果のプロジェクション。
type RoleAssignment struct {
	User string `json:"user"`
	Role string `json:"role"`
}

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo repository.UserRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository) *Service {
	return &Service{userRepo: userRepo}
}

// ListUsers は全ユーザーをユーザー名昇順で返す。
func (s *Service) ListUsers(ctx context.Context) ([]UserView, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}

	views := make([]UserView, 0, len(users))
	for _, u := range users {
		roles := u.Roles
		if roles == nil {
			roles = []string{}
		}
		views = append(views, UserView{
			ID:        u.ID,
			Username:  u.Username,
			Email:     u.Email,
			Roles:     roles,
			CreatedAt: u.CreatedAt,
		})
	}

	return views, nil
}

// DeleteUser は指定ユーザーを削除する。
// 操作者自身のアカウントは削除できない（管理者の自己ロックアウト防止）。
func (s *Service) DeleteUser(ctx context.Context, actingUserID, targetUserID string) error {
	if actingUserID == targetUserID {
		return model.NewSelfDeleteForbiddenError()
	}

	deleted, err := s.userRepo.DeleteByID(ctx, targetUserID)
	if err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewUserNotFoundError()
	}

	return nil
}

// AssignRole は指定ユーザーにロールを付与する。ロール行がなければ作成する。
func (s *Service) AssignRole(ctx context.Context, userID, roleName string) (*RoleAssignment, error) {
	roleName = strings.TrimSpace(roleName)
	details := make(map[string]string)
	if userID == "" {
		details["user_id"] = "ユーザーIDを指定してください。"
	}
	if roleName == "" {
		details["role_name"] = "ロール名を指定してください。"
	}
	if len(details) > 0 {
		return nil, model.NewValidationError("ロール付与の入力内容に誤りがあります。", details)
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	if err := s.userRepo.AssignRole(ctx, user.ID, roleName); err != nil {
		return nil, fmt.Errorf("ロールの付与に失敗しました: %w", err)
	}

	return &RoleAssignment{User: user.Username, Role: roleName}, nil
}
