// Package app はアプリケーションの起動と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/cinedex/internal/admin"
	"github.com/hitoshi/cinedex/internal/auth"
	"github.com/hitoshi/cinedex/internal/cache"
	"github.com/hitoshi/cinedex/internal/catalog"
	"github.com/hitoshi/cinedex/internal/config"
	"github.com/hitoshi/cinedex/internal/database"
	"github.com/hitoshi/cinedex/internal/handler"
	"github.com/hitoshi/cinedex/internal/interaction"
	"github.com/hitoshi/cinedex/internal/logger"
	"github.com/hitoshi/cinedex/internal/metrics"
	"github.com/hitoshi/cinedex/internal/middleware"
	"github.com/hitoshi/cinedex/internal/recommend"
	"github.com/hitoshi/cinedex/internal/repository"
	"github.com/hitoshi/cinedex/internal/security"
	"github.com/hitoshi/cinedex/internal/tmdb"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandSeedGenres:
		return runSeedGenres(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. キャッシュ接続
	// Redisが落ちていてもサービスは起動する（キャッシュ層は性能最適化でありデータの正ではない）
	redisStore := cache.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword)
	defer redisStore.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 3*time.Second)
	if err := redisStore.Ping(pingCtx); err != nil {
		slog.Warn("redis unreachable, continuing without warm cache",
			slog.String("addr", cfg.RedisAddr),
			slog.String("error", err.Error()),
		)
	} else {
		slog.Info("redis connection established")
	}
	cancelPing()

	// 3. リポジトリの初期化
	movieRepo := repository.NewPostgresMovieRepo(db)
	genreRepo := repository.NewPostgresGenreRepo(db)
	interactionRepo := repository.NewPostgresInteractionRepo(db)
	userRepo := repository.NewPostgresUserRepo(db)

	// 4. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 5. ドメインサービスの初期化
	sanitizer := security.NewTextSanitizer()

	tmdbClient := tmdb.NewClient(
		&http.Client{Timeout: cfg.TMDBTimeout},
		slog.Default(),
		cfg.TMDBAPIKey,
	)
	tmdbClient.SetBaseURL(cfg.TMDBBaseURL)

	catalogService := catalog.NewService(
		movieRepo, genreRepo, redisStore, tmdbClient,
		sanitizer, collector, slog.Default(),
		catalog.CacheTTL{
			Trending: cfg.TrendingCacheTTL,
			Detail:   cfg.DetailCacheTTL,
			Search:   cfg.SearchCacheTTL,
		},
	)

	interactionService := interaction.NewService(interactionRepo, movieRepo)
	recommendService := recommend.NewService(interactionRepo, movieRepo, catalogService)
	authService := auth.NewService(userRepo, auth.ServiceConfig{
		JWTSecret:      cfg.JWTSecret,
		AccessTokenTTL: cfg.AccessTokenTTL,
	})
	adminService := admin.NewService(userRepo)

	// 6. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitWrite),
	)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		TokenParser:       authService,
		RoleChecker:       userRepo,
		RateLimiter:       rateLimiter,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RequestMetrics:    collector,
		Logger:            slog.Default(),

		AuthService:        authService,
		MovieService:       catalogService,
		InteractionService: interactionService,
		RecommendService:   recommendService,
		AdminService:       adminService,

		HealthChecker:  db,
		MetricsHandler: metrics.Handler(registry),
	}

	router := handler.NewRouter(deps)

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runSeedGenres はTMDbの公式ジャンル一覧をローカルDBへシードする。
// 映画同期時の未知ジャンルスキップ方針はこの事前シードを前提とする。
func runSeedGenres(cfg *config.Config) error {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	movieRepo := repository.NewPostgresMovieRepo(db)
	genreRepo := repository.NewPostgresGenreRepo(db)

	redisStore := cache.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword)
	defer redisStore.Close()

	tmdbClient := tmdb.NewClient(
		&http.Client{Timeout: cfg.TMDBTimeout},
		slog.Default(),
		cfg.TMDBAPIKey,
	)
	tmdbClient.SetBaseURL(cfg.TMDBBaseURL)

	catalogService := catalog.NewService(
		movieRepo, genreRepo, redisStore, tmdbClient,
		security.NewTextSanitizer(), nil, slog.Default(),
		catalog.DefaultCacheTTL(),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := catalogService.SeedGenres(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed genres: %w", err)
	}

	slog.Info("genre seed completed", slog.Int("count", count))
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /healthz エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/healthz", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
