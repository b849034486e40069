package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hitoshi/samkitchen/internal/middleware"
	"github.com/hitoshi/samkitchen/internal/recipe"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRF              middleware.CSRFConfig
	StatusRecorder    middleware.StatusRecorder

	// 生成
	Generator recipe.Generator
	Submitter Submitter

	// 設定
	Settings         SettingsReader
	SettingsSource   DocumentSource
	SettingsEndpoint SettingsEndpointConfig
	Saver            SettingsSaver
	Sanitizer        AdminAdSanitizer
	Importer         AdImporter

	// 管理者
	Auth        AdminAuthenticator
	AdminConfig AdminHandlerConfig

	// 購読
	Subscriptions SubscriptionMarker

	// ページ
	Renderer PageRenderer
	Static   http.Handler

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → AdminSession → RateLimit(General)
//
// 生成系のルートには生成専用のレート制限を追加し、
// 管理API・HTMLフォームにはボディサイズ上限とCSRF検証を追加する。
// /health と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger, deps.StatusRecorder))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	generateHandler := NewGenerateHandler(deps.Generator, logger)
	settingsHandler := NewSettingsHandler(deps.SettingsSource, deps.SettingsEndpoint, deps.Settings, deps.Sanitizer, logger)
	recipeHandler := NewRecipeHandler(deps.Submitter)
	subHandler := NewSubscriptionHandler(deps.Subscriptions)
	adminHandler := NewAdminHandler(deps.Auth, deps.Settings, deps.Saver, deps.Importer, deps.Sanitizer, deps.AdminConfig, logger)
	pageHandler := NewPageHandler(PageHandlerDeps{
		Renderer:  deps.Renderer,
		Submitter: deps.Submitter,
		Auth:      deps.Auth,
		Settings:  deps.Settings,
		Saver:     deps.Saver,
		Importer:  deps.Importer,
		Sanitizer: deps.Sanitizer,
		Config:    deps.AdminConfig,
		Logger:    logger,
	})
	csrf := middleware.NewCSRFMiddleware(deps.CSRF)

	// --- レート制限の外 ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker, logger))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}
	if deps.Static != nil {
		r.Handle("/static/*", deps.Static)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAdminSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/api", func(r chi.Router) {
			// プロキシモードの生成エンドポイント（メソッド判定はハンドラー内で行う）
			r.With(deps.RateLimiter.GenerationMiddleware()).Handle("/generate", generateHandler)
			r.Get("/get-settings", settingsHandler.GetSettings)
			r.Get("/settings", settingsHandler.PublicSettings)
			r.Post("/subscribe", subHandler.Subscribe)
			r.With(deps.RateLimiter.GenerationMiddleware()).Post("/recipes", recipeHandler.Create)
			r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRF))

			// 管理API
			r.Route("/admin", func(r chi.Router) {
				r.Use(chimw.RequestSize(maxAdminFormSize))
				r.Use(csrf)
				r.Post("/login", adminHandler.Login)
				r.Post("/logout", adminHandler.Logout)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAdmin)
					r.Get("/settings", adminHandler.GetSettings)
					r.Put("/settings", adminHandler.UpdateSettings)
					r.Post("/settings/import", adminHandler.ImportSettings)
					r.Post("/ads/import", adminHandler.ImportAds)
				})
			})
		})

		// HTMLページ（公開フォーム）
		r.Group(func(r chi.Router) {
			r.Use(chimw.RequestSize(maxPublicFormSize))
			r.Use(csrf)
			r.Get("/", pageHandler.Index)
			r.With(deps.RateLimiter.GenerationMiddleware()).Post("/", pageHandler.Generate)
			r.Post("/subscribe", subHandler.SubscribeAndRedirect)

			r.Get("/admin/login", pageHandler.LoginPage)
			r.Post("/admin/login", pageHandler.Login)
			r.Post("/admin/logout", pageHandler.Logout)
		})

		// HTMLページ（管理画面）。フォーム解析より前に管理者であることを確認する
		r.Group(func(r chi.Router) {
			r.Use(chimw.RequestSize(maxAdminFormSize))
			r.Use(RequireAdminPage)
			r.Use(csrf)
			r.Get("/admin", pageHandler.Admin)
			r.Post("/admin", pageHandler.SaveSettings)
			r.Post("/admin/ads/import", pageHandler.ImportAds)
			r.Post("/admin/settings/import", pageHandler.ImportSettings)
		})
	})

	return r
}
