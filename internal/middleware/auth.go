package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/hitoshi/cinedex/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
var userIDContextKey = contextKey("user_id")

// TokenParser はアクセストークンの検証に必要なインターフェース。
// auth.Serviceの部分集合として定義する。
type TokenParser interface {
	// ParseToken はトークンを検証し、主体のユーザーIDを返す。
	ParseToken(tokenString string) (string, error)
}

// RoleChecker は認可判定に必要なインターフェース。
// repository.UserRepositoryの部分集合として定義する。
// 「ユーザーXがロールRを保持するか」の判定はこのインターフェース経由に一本化する。
type RoleChecker interface {
	HasRole(ctx context.Context, userID, roleName string) (bool, error)
}

// NewAuthMiddleware はAuthorizationヘッダのBearerトークンを検証し、
// 認証済みユーザーIDをリクエストコンテキストに注入するミドルウェアを返す。
// 未認証リクエストには401を返す。
func NewAuthMiddleware(parser TokenParser) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				WriteError(w, model.NewUnauthorizedError())
				return
			}

			userID, err := parser.ParseToken(token)
			if err != nil {
				WriteError(w, model.NewUnauthorizedError())
				return
			}

			ctx := context.WithValue(r.Context(), userIDContextKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewRequireRoleMiddleware は認証済みユーザーが指定ロールを保持することを要求する
// ミドルウェアを返す。NewAuthMiddlewareの内側で使用すること。
// ロール未保持の場合は403を返す。
func NewRequireRoleMiddleware(checker RoleChecker, roleName string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := UserIDFromContext(r.Context())
			if err != nil {
				WriteError(w, model.NewUnauthorizedError())
				return
			}

			ok, err := checker.HasRole(r.Context(), userID, roleName)
			if err != nil {
				WriteError(w, model.NewServerError())
				return
			}
			if !ok {
				WriteError(w, model.NewForbiddenError("この操作には管理者権限が必要です。"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// WithUserID はユーザーIDを注入したコンテキストを返す。テスト用。
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
