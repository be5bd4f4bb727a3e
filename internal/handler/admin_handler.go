package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/cinedex/internal/admin"
	"github.com/hitoshi/cinedex/internal/middleware"
	"github.com/hitoshi/cinedex/internal/model"
)

// AdminServiceInterface は管理ハンドラーが必要とするサービスインターフェース。
type AdminServiceInterface interface {
	// ListUsers は全ユーザーの一覧を返す。
	ListUsers(ctx context.Context) ([]admin.UserView, error)
	// DeleteUser は指定ユーザーを削除する。操作者自身は削除できない。
	DeleteUser(ctx context.Context, actingUserID, targetUserID string) error
	// AssignRole は指定ユーザーにロールを付与する。
	AssignRole(ctx context.Context, userID, roleName string) (*admin.RoleAssignment, error)
}

// AdminHandler はユーザー管理のHTTPハンドラー。
// ルーティング側で管理者ロールのミドルウェアを通過した後に呼ばれる。
type AdminHandler struct {
	service AdminServiceInterface
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(service AdminServiceInterface) *AdminHandler {
	return &AdminHandler{service: service}
}

// assignRoleRequest はロール付与リクエストのボディ。
type assignRoleRequest struct {
	UserID   string `json:"user_id"`
	RoleName string `json:"role_name"`
}

// ListUsers は全ユーザーの一覧を取得する。
// GET /admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.ListUsers(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "ユーザー一覧を取得しました。", views)
}

// DeleteUser は指定ユーザーを削除する。
// DELETE /admin/users/{id}
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actingUserID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIError(w, model.NewUnauthorizedError())
		return
	}

	targetUserID := chi.URLParam(r, "id")

	if err := h.service.DeleteUser(r.Context(), actingUserID, targetUserID); err != nil {
		handleServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "ユーザーを削除しました。", nil)
}

// AssignRole は指定ユーザーにロールを付与する。
// POST /admin/roles/assign
func (h *AdminHandler) AssignRole(w http.ResponseWriter, r *http.Request) {
	var req assignRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, model.NewValidationError("リクエストボディのパースに失敗しました。", nil))
		return
	}

	assignment, err := h.service.AssignRole(r.Context(), req.UserID, req.RoleName)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "ロールを付与しました。", assignment)
}
