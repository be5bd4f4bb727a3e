package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/cinedex/internal/middleware"
	"github.com/hitoshi/cinedex/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenParser       middleware.TokenParser
	RoleChecker       middleware.RoleChecker
	RateLimiter       *middleware.RateLimiter
	CORSAllowedOrigin string
	RequestMetrics    middleware.RequestMetrics
	Logger            *slog.Logger

	// サービス依存
	AuthService        AuthServiceInterface
	MovieService       MovieServiceInterface
	InteractionService InteractionServiceInterface
	RecommendService   RecommendServiceInterface
	AdminService       AdminServiceInterface

	// 運用系
	HealthChecker  HealthChecker
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → リクエストログ → パニックリカバリ → (認証 → レート制限) ※認証グループのみ
//
// 映画カタログの読み取りルートと認証ルート（登録・ログイン）は認証不要。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.RequestMetrics))
	r.Use(middleware.NewRecoveryMiddleware())

	authHandler := NewAuthHandler(deps.AuthService)
	movieHandler := NewMovieHandler(deps.MovieService)
	interactionHandler := NewInteractionHandler(deps.InteractionService)
	recommendHandler := NewRecommendHandler(deps.RecommendService)
	adminHandler := NewAdminHandler(deps.AdminService)
	healthHandler := NewHealthHandler(deps.HealthChecker)

	authMiddleware := middleware.NewAuthMiddleware(deps.TokenParser)

	// --- 認証不要のルート ---

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)

		// プロフィールのみ認証が必要
		r.With(authMiddleware).Get("/profile", authHandler.Profile)
	})

	// 映画カタログ（読み取り専用・認証不要）
	r.Route("/movies", func(r chi.Router) {
		r.Get("/trending", movieHandler.Trending)
		r.Get("/search", movieHandler.Search)
		r.Get("/tmdb/{tmdbID}", movieHandler.GetByTMDBID)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", movieHandler.GetByID)
			r.Get("/recommendations", movieHandler.Recommendations)
		})
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/user", func(r chi.Router) {
			r.Route("/interactions", func(r chi.Router) {
				r.Get("/", interactionHandler.List)
				// POST /user/interactions - 書き込み専用レート制限を追加
				r.With(deps.RateLimiter.WriteMiddleware()).Post("/", interactionHandler.Create)
				r.Delete("/{id}", interactionHandler.Delete)
			})

			r.Get("/recommendations", recommendHandler.ForUser)
		})

		// 管理者専用ルート
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.NewRequireRoleMiddleware(deps.RoleChecker, model.RoleAdmin))

			r.Get("/users", adminHandler.ListUsers)
			r.Delete("/users/{id}", adminHandler.DeleteUser)
			r.Post("/roles/assign", adminHandler.AssignRole)
		})
	})

	// --- 運用系ルート ---

	r.Get("/healthz", healthHandler.Check)
	r.Handle("/metrics", deps.MetricsHandler)

	return r
}
