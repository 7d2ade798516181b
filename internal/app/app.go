package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/subsense/internal/config"
	"github.com/hitoshi/subsense/internal/database"
	"github.com/hitoshi/subsense/internal/handler"
	"github.com/hitoshi/subsense/internal/logger"
	"github.com/hitoshi/subsense/internal/metrics"
	"github.com/hitoshi/subsense/internal/middleware"
	"github.com/hitoshi/subsense/internal/repository"
	"github.com/hitoshi/subsense/internal/security"
	"github.com/hitoshi/subsense/internal/snooze"
	"github.com/hitoshi/subsense/internal/subscription"
	"github.com/hitoshi/subsense/internal/user"
	"github.com/hitoshi/subsense/internal/vendor"
	"github.com/hitoshi/subsense/internal/worker/cleanup"
	"github.com/hitoshi/subsense/internal/worker/rescan"
)

const (
	connectTimeout  = 10 * time.Second
	shutdownTimeout = 30 * time.Second
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 設定読み込み前にログを使えるようにする
	logger.SetupDefault(w, slog.LevelInfo)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))
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
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.DatabaseURL, connectTimeout)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	slog.Info("database connection established")

	redisClient, err := openRedis(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// リポジトリ
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	subRepo := repository.NewPostgresSubscriptionRepo(db)
	vendorRepo := repository.NewPostgresVendorRepo(db)
	snoozes := snooze.NewStore(redisClient, db)

	// メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	// ドメインサービス
	prober := vendor.NewLinkProber(security.NewSSRFGuard(), cfg.LinkProbeTimeout, cfg.LinkProbeMaxSize)
	vendorService := vendor.NewService(vendorRepo, prober, collector, slog.Default())
	subService := subscription.NewService(
		subRepo, userRepo, snoozes, vendorService, security.NewTextSanitizer(), collector,
		subscription.Options{
			FreePlanLimit: cfg.FreePlanSubscriptionLimit,
			SnoozeDays:    cfg.SnoozeDefaultDays,
		},
	)
	userService := user.NewService(userRepo, sessionRepo, subRepo, snoozes)

	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitFeedback),
	)
	defer rateLimiter.Stop()

	subAdapter := handler.NewSubscriptionServiceAdapter(subService)
	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		SessionFinder:     sessionRepo,
		SessionCookieName: cfg.SessionCookieName,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		RateLimiter: rateLimiter,

		HealthChecker:   db,
		MetricsGatherer: reg,
		StatusRecorder:  collector,

		SubscriptionService: subAdapter,
		ActionService:       subAdapter,
		DashboardService:    subAdapter,
		VendorService:       handler.NewVendorServiceAdapter(vendorService),
		UserService:         handler.NewUserServiceAdapter(userService),
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 再スコアリングのスケジューラと期限切れデータのクリーンアップを実行する。
func runWorker(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.DatabaseURL, connectTimeout)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	slog.Info("database connection established (worker)")

	redisClient, err := openRedis(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	subRepo := repository.NewPostgresSubscriptionRepo(db)
	snoozes := snooze.NewStore(redisClient, db)

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           metrics.SetupMetricsRoute(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("worker metrics server failed", slog.String("error", err.Error()))
		}
	}()
	defer metricsServer.Close()

	scheduler := rescan.NewScheduler(subRepo, collector, slog.Default(), cfg.RescanMaxConcurrent)
	cleanupJob := cleanup.NewCleanupJob(db, snoozes, slog.Default())

	slog.Info("worker starting",
		slog.Duration("rescan_interval", cfg.RescanInterval),
		slog.Int("max_concurrent", cfg.RescanMaxConcurrent),
		slog.Duration("cleanup_interval", cfg.SnoozeCleanupInterval),
	)

	go cleanupJob.Start(ctx, cfg.SnoozeCleanupInterval)

	// スケジューラはメインgoroutineで実行する（ブロッキング）
	scheduler.Start(ctx, cfg.RescanInterval)

	slog.Info("worker stopped gracefully")
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

// openRedis はREDIS_URLが設定されていればRedisに接続する。
// 未設定の場合はnilを返し、スヌーズはPostgreSQLに保存される。
func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	if rawURL == "" {
		slog.Info("REDIS_URL is not set, snoozes are stored in PostgreSQL")
		return nil, nil
	}
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	slog.Info("redis connection established", slog.String("addr", opts.Addr))
	return client, nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	target := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(target)
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
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	u.RawQuery = ""
	return u.Redacted()
}

// compile-time check: *sql.DBはヘルスチェックとクリーンアップの両方に使われる
var (
	_ handler.HealthChecker = (*sql.DB)(nil)
	_ cleanup.Executor      = (*sql.DB)(nil)
)
