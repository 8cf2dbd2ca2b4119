// Package app はプロセスの起動と依存関係のワイヤリングを行う。
package app

import (
	"context"
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
	"github.com/redis/go-redis/v9"

	"github.com/planeats/web/internal/auth"
	"github.com/planeats/web/internal/backend"
	"github.com/planeats/web/internal/config"
	"github.com/planeats/web/internal/handler"
	"github.com/planeats/web/internal/logger"
	"github.com/planeats/web/internal/metrics"
	"github.com/planeats/web/internal/middleware"
	"github.com/planeats/web/internal/security"
	"github.com/planeats/web/internal/session"
	"github.com/planeats/web/internal/view"
	"github.com/planeats/web/internal/worker/cleanup"
)

// shutdownTimeout はグレースフルシャットダウンの待ち時間。
const shutdownTimeout = 30 * time.Second

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップしてから環境変数のConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	logger.SetupDefault(w)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "3000"
		}
		return runHealthcheck(fmt.Sprintf("http://localhost:%s/health", port))
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
		slog.String("backend_url", cfg.BackendURL),
	)

	return runServe(cfg)
}

// Server はワイヤリング済みのHTTPハンドラーと、停止時に解放するリソースを保持する。
type Server struct {
	Handler http.Handler

	rateLimiter *middleware.RateLimiter
	scheduler   *cleanup.Scheduler
	redis       *redis.Client
}

// NewServer は設定から全ての依存関係を構築する。
// REDIS_URLが設定されていれば失効リストをRedisに置き、なければプロセス内に保持して定期削除する。
func NewServer(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Server, error) {
	srv := &Server{}

	// 1. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// 2. セッション失効リスト
	var store session.RevocationStore
	if cfg.RedisURL != "" {
		client, err := session.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		srv.redis = client
		store = session.NewRedisRevocationStore(client)
		log.Info("revocation store: redis")
	} else {
		memory := session.NewMemoryRevocationStore()
		store = memory

		job := cleanup.NewCleanupJob(memory, collector, log)
		scheduler, err := cleanup.NewScheduler(job, cfg.RevocationSweepSpec)
		if err != nil {
			return nil, err
		}
		srv.scheduler = scheduler
		log.Info("revocation store: memory", slog.String("sweep_spec", cfg.RevocationSweepSpec))
	}

	sessions := session.NewManager(session.Config{
		Secret:       []byte(cfg.SessionSecret),
		MaxAge:       time.Duration(cfg.SessionMaxAge) * time.Second,
		CookieSecure: cfg.CookieSecure,
		CookieDomain: cfg.CookieDomain,
	}, store, log)

	// 3. バックエンドクライアントと資格情報交換
	client := backend.NewClient(backend.ClientConfig{
		BaseURL:   cfg.BackendURL,
		Timeout:   cfg.BackendTimeout,
		AITimeout: cfg.AIBackendTimeout,
	}, middleware.ContextTokenSource{}, log, collector)
	exchanger := auth.NewExchanger(client, collector, log)

	// 4. 表示とセキュリティ
	sanitizer := security.NewContentSanitizer()
	pages, err := view.NewRenderer(sanitizer)
	if err != nil {
		srv.Close(ctx)
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	fetcher := security.NewImageFetcher(security.NewSSRFGuard(), cfg.ImageProxyTimeout, cfg.ImageProxyMaxSize)

	// 5. ルーター
	srv.rateLimiter = middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitAI),
		collector,
	)

	srv.Handler = handler.NewRouter(&handler.RouterDeps{
		Logger:            log,
		Sessions:          sessions,
		Exchanger:         exchanger,
		Backend:           client,
		Pages:             pages,
		ImageFetcher:      fetcher,
		RateLimiter:       srv.rateLimiter,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CSRF: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		GateRecorder:   collector,
		ImageRecorder:  collector,
		MetricsHandler: metrics.Handler(registry),
	})

	if srv.scheduler != nil {
		srv.scheduler.Start()
	}
	return srv, nil
}

// Close はバックグラウンド処理を停止し、外部接続を閉じる。
func (s *Server) Close(ctx context.Context) {
	if s.scheduler != nil {
		s.scheduler.Stop(ctx)
	}
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			slog.Error("failed to close redis", slog.String("error", err.Error()))
		}
	}
}

// runServe はWebサーバーモードで起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	srv, err := NewServer(context.Background(), cfg, slog.Default())
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           srv.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// AIレシピ生成の応答待ちを含むため、バックエンドのタイムアウトより長くする
		WriteTimeout: cfg.AIBackendTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("web server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serveErr:
		srv.Close(context.Background())
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down web server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	shutdownErr := server.Shutdown(ctx)
	srv.Close(ctx)
	if shutdownErr != nil {
		return fmt.Errorf("server shutdown failed: %w", shutdownErr)
	}

	slog.Info("web server stopped gracefully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
func runHealthcheck(url string) error {
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
