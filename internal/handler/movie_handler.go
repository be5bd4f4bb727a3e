package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hitoshi/cinedex/internal/catalog"
	"github.com/hitoshi/cinedex/internal/model"
)

// MovieServiceInterface は映画ハンドラーが必要とするサービスインターフェース。
type MovieServiceInterface interface {
	// Trending は週間トレンド映画の一覧を返す。
	Trending(ctx context.Context) ([]catalog.MovieView, error)
	// Search は映画をクエリ文字列で検索する。
	Search(ctx context.Context, query string) ([]catalog.MovieView, error)
	// GetByID は映画詳細を内部IDで取得する。
	GetByID(ctx context.Context, id string) (*catalog.MovieView, error)
	// GetByTMDBID は映画詳細をTMDb IDで取得する。
	GetByTMDBID(ctx context.Context, tmdbID int) (*catalog.MovieView, error)
	// RecommendationsForMovie は指定映画のプロバイダレコメンドを返す。
	RecommendationsForMovie(ctx context.Context, movieID string) ([]catalog.MovieView, error)
}

// MovieHandler は映画カタログのHTTPハンドラー。
type MovieHandler struct {
	service MovieServiceInterface
}

// NewMovieHandler はMovieHandlerを生成する。
func NewMovieHandler(service MovieServiceInterface) *MovieHandler {
	return &MovieHandler{service: service}
}

// Trending は週間トレンド映画一覧を取得する。
// GET /movies/trending
func (h *MovieHandler) Trending(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.Trending(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "トレンド映画を取得しました。", views)
}

// Search は映画をクエリ文字列で検索する。
// GET /movies/search?query=xxx
func (h *MovieHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")

	views, err := h.service.Search(r.Context(), query)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "検索結果を取得しました。", views)
}

// GetByID は映画詳細を内部ID（UUID）で取得する。
// GET /movies/{id}
func (h *MovieHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeAPIError(w, model.NewMovieNotFoundError())
		return
	}

	view, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "映画の詳細を取得しました。", view)
}

// GetByTMDBID は映画詳細をTMDb IDで取得する。
// GET /movies/tmdb/{tmdbID}
func (h *MovieHandler) GetByTMDBID(w http.ResponseWriter, r *http.Request) {
	tmdbID, err := strconv.Atoi(chi.URLParam(r, "tmdbID"))
	if err != nil || tmdbID <= 0 {
		writeAPIError(w, model.NewValidationError("TMDb IDは正の整数で指定してください。", map[string]string{
			"tmdb_id": "正の整数で指定してください。",
		}))
		return
	}

	view, err := h.service.GetByTMDBID(r.Context(), tmdbID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "映画の詳細を取得しました。", view)
}

// Recommendations は指定映画のレコメンド一覧を取得する。
// GET /movies/{id}/recommendations
func (h *MovieHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeAPIError(w, model.NewMovieNotFoundError())
		return
	}

	views, err := h.service.RecommendationsForMovie(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "レコメンド映画を取得しました。", views)
}
