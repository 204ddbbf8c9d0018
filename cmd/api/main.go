package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bryanwahyu/insight-bridge/internal/application"
	appanalysis "github.com/bryanwahyu/insight-bridge/internal/application/analysis"
	"github.com/bryanwahyu/insight-bridge/internal/config"
	domain "github.com/bryanwahyu/insight-bridge/internal/domain/analysis"
	"github.com/bryanwahyu/insight-bridge/internal/domain/reports"
	"github.com/bryanwahyu/insight-bridge/internal/infra/ai/openai"
	"github.com/bryanwahyu/insight-bridge/internal/infra/db/memory"
	mysqlp "github.com/bryanwahyu/insight-bridge/internal/infra/db/mysql"
	"github.com/bryanwahyu/insight-bridge/internal/infra/db/postgres"
	"github.com/bryanwahyu/insight-bridge/internal/infra/db/sqlite"
	"github.com/bryanwahyu/insight-bridge/internal/infra/engine/enginehttp"
	"github.com/bryanwahyu/insight-bridge/internal/infra/httpserver"
	minioStore "github.com/bryanwahyu/insight-bridge/internal/infra/storage"
	"github.com/bryanwahyu/insight-bridge/internal/logging"
	"github.com/bryanwahyu/insight-bridge/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		slog.Error("config load error", "path", path, "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := openReports(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	ready := map[string]middleware.HealthChecker{"database": middleware.CheckFunc(repo.Ping)}

	var archive reports.ArtifactStore
	if cfg.MinioEnabled() {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			return fmt.Errorf("minio init: %w", err)
		}
		archive = store
		ready["storage"] = middleware.CheckFunc(store.Ping)
	}

	metrics := middleware.NewMetrics()

	svc := &appanalysis.Service{
		Engine:         newEngine(cfg),
		Reports:        repo,
		Archive:        archive,
		ArchiveTimeout: cfg.Minio.Timeout,
		Clock:          application.SystemClock{},
		Logger:         logger,
		Observe: func(kind domain.SourceKind, outcome string, engine time.Duration) {
			metrics.ObserveAnalysis(string(kind), outcome, engine)
		},
	}

	limiter, err := newLimiter(ctx, cfg, logger)
	if err != nil {
		return err
	}

	handler := httpserver.NewRouter(svc, httpserver.Options{
		APIKeys:        cfg.Auth.APIKeys,
		JWT:            middleware.NewJWTVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer),
		Limiter:        limiter,
		Metrics:        metrics,
		Logger:         logger,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		MaxUploadMB:    cfg.Server.MaxUploadMB,
		Ready:          ready,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		// an upload may wait the archive ceiling plus the whole engine timeout before answering
		WriteTimeout: cfg.Minio.Timeout + cfg.Engine.Timeout*time.Duration(cfg.Engine.Retries+1) + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr, "db", cfg.Database.Driver, "engine", cfg.Engine.Provider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openReports picks the report store for cfg.Database.Driver.
func openReports(ctx context.Context, cfg *config.Config) (reports.Repository, func(), error) {
	var (
		db  *sql.DB
		err error
	)
	switch cfg.Database.Driver {
	case "memory":
		return memory.NewReportRepository(), func() {}, nil
	case "mysql":
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN(), mysqlp.Pool{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("mysql connect: %w", err)
		}
		return mysqlp.NewReportRepository(db), func() { _ = db.Close() }, nil
	case "postgres":
		db, err = postgres.Connect(ctx, cfg.PostgresDSN(), postgres.Pool{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("postgres connect: %w", err)
		}
		return postgres.NewReportRepository(db), func() { _ = db.Close() }, nil
	case "sqlite":
		db, err = sqlite.Open(ctx, cfg.Database.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite open: %w", err)
		}
		return sqlite.NewReportRepository(db), func() { _ = db.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
}

func newEngine(cfg *config.Config) domain.Engine {
	if cfg.Engine.Provider == "openai" {
		return openai.NewClient(cfg.Engine.APIKey, cfg.Engine.URL, cfg.Engine.Model, cfg.Engine.Timeout)
	}
	return enginehttp.New(enginehttp.Options{
		BaseURL:      cfg.Engine.URL,
		APIKey:       cfg.Engine.APIKey,
		Timeout:      cfg.Engine.Timeout,
		Retries:      cfg.Engine.Retries,
		RetryWait:    cfg.Engine.RetryWait,
		RetryMaxWait: cfg.Engine.RetryMaxWait,
	})
}

// newLimiter returns nil when rate limiting is off.
func newLimiter(ctx context.Context, cfg *config.Config, logger *slog.Logger) (middleware.Limiter, error) {
	rl := cfg.RateLimit
	if rl.RequestsPerSecond <= 0 {
		return nil, nil
	}
	if rl.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: rl.RedisAddr, Password: rl.RedisPassword})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		logger.Info("rate limiting via redis", "addr", rl.RedisAddr, "rps", rl.RequestsPerSecond, "burst", rl.Burst)
		return middleware.NewRedisLimiter(client, rl.RequestsPerSecond, rl.Burst), nil
	}
	local := middleware.NewLocalLimiter(rl.RequestsPerSecond, rl.Burst)
	go local.RunCleanup(ctx, time.Minute)
	return local, nil
}
