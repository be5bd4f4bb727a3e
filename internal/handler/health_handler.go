package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/cinedex/internal/model"
)

// HealthChecker はヘルスチェックが必要とする依存のインターフェース。
// *sql.DBがそのまま満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// HealthHandler はヘルスチェックのHTTPハンドラー。
type HealthHandler struct {
	db HealthChecker
}

// NewHealthHandler はHealthHandlerを生成する。
func NewHealthHandler(db HealthChecker) *HealthHandler {
	return &HealthHandler{db: db}
}

// Check はデータベース接続を確認してサービスの生存状態を返す。
// キャッシュは任意依存のため確認対象に含めない。
// GET /healthz
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		writeAPIError(w, &model.APIError{
			Code:    model.ErrCodeServerError,
			Message: "データベースに接続できません。",
			Status:  http.StatusServiceUnavailable,
		})
		return
	}

	writeSuccess(w, http.StatusOK, "ok", nil)
}
