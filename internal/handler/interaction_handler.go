package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/cinedex/internal/interaction"
	"github.com/hitoshi/cinedex/internal/middleware"
	"github.com/hitoshi/cinedex/internal/model"
)

// InteractionServiceInterface はインタラクションハンドラーが必要とするサービスインターフェース。
type InteractionServiceInterface interface {
	// List は認証済みユーザーのインタラクション一覧を返す。
	List(ctx context.Context, userID string) ([]interaction.View, error)
	// Create はインタラクションを記録する。
	Create(ctx context.Context, userID, movieID, interactionType string) (*interaction.View, error)
	// Delete は本人所有のインタラクションを削除する。
	Delete(ctx context.Context, userID, interactionID string) error
}

// InteractionHandler はインタラクション管理のHTTPハンドラー。
type InteractionHandler struct {
	service InteractionServiceInterface
}

// NewInteractionHandler はInteractionHandlerを生成する。
func NewInteractionHandler(service InteractionServiceInterface) *InteractionHandler {
	return &InteractionHandler{service: service}
}

// interactionRequest はインタラクション記録リクエストのボディ。
type interactionRequest struct {
	MovieID         string `json:"movie_id"`
	InteractionType string `json:"interaction_type"`
}

// List は認証済みユーザーのインタラクション一覧を取得する。
// GET /user/interactions
func (h *InteractionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIError(w, model.NewUnauthorizedError())
		return
	}

	views, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "インタラクション一覧を取得しました。", views)
}

// Create はインタラクションを記録する。
// POST /user/interactions
func (h *InteractionHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIError(w, model.NewUnauthorizedError())
		return
	}

	var req interactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, model.NewValidationError("リクエストボディのパースに失敗しました。", nil))
		return
	}

	view, err := h.service.Create(r.Context(), userID, req.MovieID, req.InteractionType)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "インタラクションを記録しました。", view)
}

// Delete は本人所有のインタラクションを削除する。
// 他ユーザー所有のIDを指定した場合は未検出として扱う。
// DELETE /user/interactions/{id}
func (h *InteractionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIError(w, model.NewUnauthorizedError())
		return
	}

	interactionID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), userID, interactionID); err != nil {
		handleServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "インタラクションを削除しました。", nil)
}
