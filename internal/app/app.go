package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/samkitchen/internal/adfeed"
	"github.com/hitoshi/samkitchen/internal/auth"
	"github.com/hitoshi/samkitchen/internal/config"
	"github.com/hitoshi/samkitchen/internal/database"
	"github.com/hitoshi/samkitchen/internal/gist"
	"github.com/hitoshi/samkitchen/internal/handler"
	"github.com/hitoshi/samkitchen/internal/kitchen"
	"github.com/hitoshi/samkitchen/internal/logger"
	"github.com/hitoshi/samkitchen/internal/metrics"
	"github.com/hitoshi/samkitchen/internal/middleware"
	"github.com/hitoshi/samkitchen/internal/model"
	"github.com/hitoshi/samkitchen/internal/recipe"
	"github.com/hitoshi/samkitchen/internal/repository"
	"github.com/hitoshi/samkitchen/internal/security"
	"github.com/hitoshi/samkitchen/internal/settings"
	"github.com/hitoshi/samkitchen/internal/subscription"
	"github.com/hitoshi/samkitchen/internal/view"
	"github.com/hitoshi/samkitchen/internal/worker/cleanup"
)

const (
	dbConnectTimeout = 10 * time.Second
	shutdownTimeout  = 30 * time.Second
)

// Init はアプリケーションの初期化を行う。
// 環境変数（と.env）からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルを反映する
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))

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
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandMigrate:
		action, steps := ParseMigrateAction(args[1:])
		return runMigrate(cfg, action, steps)
	case CommandGenerate:
		baseURL := cfg.BaseURL
		if len(args) > 1 {
			baseURL = args[1]
		}
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		client := &http.Client{Timeout: 2 * time.Minute}
		return runGenerate(ctx, client, baseURL, os.Stdin, os.Stdout, slog.Default())
	default:
		return runServe(cfg)
	}
}

// Server はワイヤリング済みのHTTPハンドラーとその背後のサービス群を保持する。
type Server struct {
	Handler http.Handler

	store       *settings.Store
	resolver    *settings.Resolver
	rateLimiter *middleware.RateLimiter
	cleanupJob  *cleanup.CleanupJob
	db          *sql.DB
	logger      *slog.Logger
}

// NewServer は設定から全依存関係を構築する。
// DATABASE_URLが設定されていればPostgreSQLをキャッシュとセッションの保存先にし、
// 未設定ならローカルファイルとメモリを使う。
func NewServer(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Server, error) {
	if log == nil {
		log = slog.Default()
	}

	// 1. ストレージ
	var (
		db          *sql.DB
		cache       repository.CacheRepository
		sessionRepo repository.SessionRepository
		purger      cleanup.SessionPurger
	)
	if cfg.UsesDatabase() {
		conn, err := database.Connect(ctx, cfg.DatabaseURL, dbConnectTimeout)
		if err != nil {
			return nil, err
		}
		db = conn
		cache = repository.NewPostgresCacheRepo(db)
		pgSessions := repository.NewPostgresSessionRepo(db)
		sessionRepo, purger = pgSessions, pgSessions
		log.Info("database connection established")
	} else {
		cache = repository.NewFileCacheRepo(cfg.CacheFile)
		memSessions := repository.NewMemorySessionRepo()
		sessionRepo, purger = memSessions, memSessions
		log.Info("using local cache file", slog.String("path", cfg.CacheFile))
	}

	// 2. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	// 3. 生成
	var models recipe.ContentGenerator
	if cfg.GeminiAPIKey != "" {
		client, err := recipe.NewGenAIClient(ctx, cfg.GeminiAPIKey, cfg.GeminiBaseURL, nil)
		if err != nil {
			closeDB(db)
			return nil, err
		}
		models = client.Models
	}
	generator := recipe.NewGeminiGenerator(models, cfg.GeminiModel, log, collector)
	if !generator.Configured() {
		log.Warn("GEMINI_API_KEY is not set; recipe generation will fail")
	}

	// 4. リモートアクセス
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewAdSanitizer()
	gistClient := gist.NewClient(
		ssrfGuard.NewSafeClient(cfg.RemoteFetchTimeout, cfg.RemoteMaxSize),
		cfg.GistAPIBaseURL,
		log,
	)
	gistClient.SetMaxBodySize(cfg.RemoteMaxSize)
	importer := adfeed.NewImporter(ssrfGuard, sanitizer, collector, log)

	// 5. ドメインサービス
	store := settings.NewStore()
	resolver := settings.NewResolver(store, cache, gistClient, log, collector)
	synchronizer := settings.NewSynchronizer(store, cache, gistClient, log, collector)
	authService := auth.NewService(store, sessionRepo, log)
	gate := subscription.NewGate(store, subscription.CookieOptions{
		Secure: cfg.CookieSecure,
		Domain: cfg.CookieDomain,
	})
	controller := kitchen.NewController(generator, gate, log)

	renderer, err := view.NewRenderer()
	if err != nil {
		closeDB(db)
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	// 6. ルーター
	rateLimiter := middleware.NewRateLimiter(
		middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral, cfg.RateLimitGenerate),
	)

	deps := &handler.RouterDeps{
		Logger:            log,
		SessionFinder:     authService,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		CSRF: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		StatusRecorder: collector,

		Generator: generator,
		Submitter: controller,

		Settings:       store,
		SettingsSource: gistClient,
		SettingsEndpoint: handler.SettingsEndpointConfig{
			GistID: cfg.SettingsGistID,
			File:   cfg.SettingsGistFile,
			Token:  cfg.SettingsGistToken,
		},
		Saver:     synchronizer,
		Sanitizer: sanitizer,
		Importer:  importer,

		Auth: authService,
		AdminConfig: handler.AdminHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		Subscriptions: gate,

		Renderer: renderer,
		Static:   view.StaticHandler(),

		MetricsHandler: metrics.Handler(reg),
	}
	if db != nil {
		deps.HealthChecker = db
	}

	return &Server{
		Handler:     handler.NewRouter(deps),
		store:       store,
		resolver:    resolver,
		rateLimiter: rateLimiter,
		cleanupJob:  cleanup.NewCleanupJob(purger, time.Duration(cfg.SessionMaxAge)*time.Second, log),
		db:          db,
		logger:      log,
	}, nil
}

// ResolveSettings は既定値、ローカルキャッシュ、リモートの順に設定を解決する。
func (s *Server) ResolveSettings(ctx context.Context) settings.Resolution {
	return s.resolver.Resolve(ctx)
}

// Settings は現在の有効な設定を返す。
func (s *Server) Settings() model.Settings {
	return s.store.Current()
}

// StartSessionCleanup は期限切れ管理者セッションの定期削除を開始する。
// コンテキストがキャンセルされるまでブロックする。
func (s *Server) StartSessionCleanup(ctx context.Context) {
	s.cleanupJob.Start(ctx, cleanup.DefaultInterval)
}

// Close はバックグラウンド処理とDB接続を解放する。
func (s *Server) Close() error {
	s.rateLimiter.Stop()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func closeDB(db *sql.DB) {
	if db != nil {
		db.Close()
	}
}

// runServe はWebサーバーモードで起動する。
// 設定の解決はバックグラウンドで行い、解決前のリクエストには既定値で応答する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := NewServer(ctx, cfg, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to build server: %w", err)
	}
	defer srv.Close()

	go srv.ResolveSettings(ctx)
	go srv.StartSessionCleanup(ctx)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      srv.Handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
func runMigrate(cfg *config.Config, action MigrateAction, steps int) error {
	if !cfg.UsesDatabase() {
		return fmt.Errorf("DATABASE_URL is required for migrate")
	}

	slog.Info("running database migrations",
		slog.String("action", string(action)),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	switch action {
	case MigrateDown:
		if err := database.RollbackMigrations(cfg.DatabaseURL, steps); err != nil {
			return fmt.Errorf("migration rollback failed: %w", err)
		}
		slog.Info("database migrations rolled back", slog.Int("steps", steps))
	case MigrateVersion:
		version, dirty, err := database.MigrationVersion(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to read migration version: %w", err)
		}
		slog.Info("database migration version",
			slog.Uint64("version", uint64(version)),
			slog.Bool("dirty", dirty),
		)
	default:
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		slog.Info("database migrations completed successfully")
	}
	return nil
}

// runGenerate は標準入力のFilterInputを稼働中のサーバーへ送り、生成されたレシピをJSONで書き出す。
func runGenerate(ctx context.Context, client *http.Client, baseURL string, in io.Reader, out io.Writer, log *slog.Logger) error {
	input := model.NewFilterInput()
	if err := json.NewDecoder(in).Decode(&input); err != nil {
		return fmt.Errorf("failed to decode filter input: %w", err)
	}

	proxy := recipe.NewProxyClient(client, baseURL, log)
	generated, err := proxy.Generate(ctx, kitchen.Normalize(input))
	if err != nil {
		return fmt.Errorf("recipe generation failed: %w", err)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(generated); err != nil {
		return fmt.Errorf("failed to write recipe: %w", err)
	}
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
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
