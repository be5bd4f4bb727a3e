package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/cinedex/internal/middleware"
	"github.com/hitoshi/cinedex/internal/model"
	"github.com/hitoshi/cinedex/internal/recommend"
)

// RecommendServiceInterface はレコメンドハンドラーが必要とするサービスインターフェース。
type RecommendServiceInterface interface {
	// ForUser は認証済みユーザー向けのレコメンド一覧を返す。
	ForUser(ctx context.Context, userID string) (*recommend.Result, error)
}

// RecommendHandler はユーザー向けレコメンドのHTTPハンドラー。
type RecommendHandler struct {
	service RecommendServiceInterface
}

// NewRecommendHandler はRecommendHandlerを生成する。
func NewRecommendHandler(service RecommendServiceInterface) *RecommendHandler {
	return &RecommendHandler{service: service}
}

// ForUser は認証済みユーザー向けのレコメンド一覧を取得する。
// LIKEDシグナルがない場合はトレンドにフォールバックし、メッセージで区別する。
// GET /user/recommendations
func (h *RecommendHandler) ForUser(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIError(w, model.NewUnauthorizedError())
		return
	}

	result, err := h.service.ForUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	message := "おすすめ映画を取得しました。"
	if result.Fallback {
		message = "「いいね」した映画がまだないため、トレンド映画を表示します。"
	}

	writeSuccess(w, http.StatusOK, message, result.Movies)
}
