package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/maksim/chatpulse/internal/cache"
	"github.com/maksim/chatpulse/internal/config"
	httpcontroller "github.com/maksim/chatpulse/internal/controller/http"
	"github.com/maksim/chatpulse/internal/database"
	"github.com/maksim/chatpulse/internal/domain/analytics/dao"
	"github.com/maksim/chatpulse/internal/domain/analytics/policy"
	"github.com/maksim/chatpulse/internal/domain/analytics/scheduler"
	"github.com/maksim/chatpulse/internal/domain/analytics/service"
	"github.com/maksim/chatpulse/internal/httpx/upstream/pachka"
	"github.com/maksim/chatpulse/internal/storage"
)

// App is the main application container
type App struct {
	cfg        config.Config
	httpServer *http.Server
	router     *chi.Mux
	logger     *slog.Logger

	pg          *pgxpool.Pool
	redisClient *redis.Client

	analyticsService *service.Service
	analyticsPolicy  *policy.Policy

	scheduler *scheduler.Scheduler
}

// NewApp creates and initializes the application
func NewApp(ctx context.Context, cfg config.Config) (*App, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	// Large ranges mean many upstream round trips; the request timeout has to
	// cover a whole run.
	r.Use(middleware.Timeout(cfg.Server.WriteTimeout))

	app := &App{
		cfg:    cfg,
		router: r,
		logger: logger,
	}

	if err := app.initInfrastructure(ctx); err != nil {
		return nil, fmt.Errorf("initializing infrastructure: %w", err)
	}

	if err := app.initDomains(ctx); err != nil {
		return nil, fmt.Errorf("initializing domains: %w", err)
	}

	app.registerRoutes()

	app.httpServer = &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      app.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	if cfg.Scheduler.Enabled {
		app.scheduler = scheduler.New(app.analyticsPolicy, cfg.Scheduler.Interval, logger)
	}

	return app, nil
}

// initInfrastructure initializes the database pool and the optional Redis
// client.
func (a *App) initInfrastructure(ctx context.Context) error {
	pool, err := database.NewPostgresPool(ctx, a.cfg.Database.PostgresDSN, database.PoolOptions{
		MaxConns:     a.cfg.Database.MaxOpenConns,
		MinConns:     a.cfg.Database.MaxIdleConns,
		ConnLifetime: a.cfg.Database.ConnLifetime,
	})
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	a.pg = pool

	if a.cfg.Redis.Addr != "" {
		a.redisClient = redis.NewClient(&redis.Options{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		if err := a.redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("pinging redis: %w", err)
		}
	}

	return nil
}

// initDomains initializes domain layers (DAO, Service, Policy)
func (a *App) initDomains(ctx context.Context) error {
	pachkaClient := pachka.New(a.cfg.Pachka.Token,
		pachka.WithBaseURL(a.cfg.Pachka.BaseURL),
	)

	a.analyticsService = service.New(pachkaClient,
		service.WithFetchConcurrency(a.cfg.Analytics.FetchConcurrency),
		service.WithLogger(a.logger),
	)

	reportsRepo := dao.NewReportPostgres(a.pg)
	schedulesRepo := dao.NewSchedulePostgres(a.pg)

	a.analyticsPolicy = policy.New(a.analyticsService, reportsRepo, schedulesRepo, a.logger)

	if a.redisClient != nil {
		a.analyticsPolicy.WithCache(cache.NewAnalyticsCache(a.redisClient, a.cfg.Redis.TTL))
	}

	if a.cfg.S3.Bucket != "" {
		s3Storage, err := storage.NewS3Storage(storage.S3Config{
			Endpoint:        a.cfg.S3.Endpoint,
			AccessKeyID:     a.cfg.S3.AccessKeyID,
			SecretAccessKey: a.cfg.S3.SecretAccessKey,
			Bucket:          a.cfg.S3.Bucket,
			Region:          a.cfg.S3.Region,
			PublicURL:       a.cfg.S3.PublicURL,
		})
		if err != nil {
			return fmt.Errorf("initializing export storage: %w", err)
		}
		a.analyticsPolicy.WithExportStorage(&exportStorageAdapter{storage: s3Storage})
	}

	return nil
}

// registerRoutes registers all HTTP routes
func (a *App) registerRoutes() {
	// Health check
	a.router.Get("/healthz", a.healthHandler)
	a.router.Get("/readyz", a.readyHandler)

	// API v1
	a.router.Route("/api/v1", func(r chi.Router) {
		httpcontroller.NewAnalyticsHandler(a.analyticsPolicy).RegisterRoutes(r)
		httpcontroller.NewReportHandler(a.analyticsPolicy).RegisterRoutes(r)
		httpcontroller.NewScheduleHandler(a.analyticsPolicy).RegisterRoutes(r)
		httpcontroller.NewChatHandler(a.analyticsService).RegisterRoutes(r)
	})
}

// healthHandler handles health check requests
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// readyHandler handles readiness check requests
func (a *App) readyHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.pg.Ping(r.Context()); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"database unavailable"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

// Run starts the application and blocks until shutdown signal
func (a *App) Run(ctx context.Context) error {
	if a.scheduler != nil {
		a.scheduler.Start(ctx)
	}

	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", "addr", a.cfg.Server.Address())
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		a.logger.Info("context cancelled")
	}

	return a.Shutdown(context.Background())
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down...")

	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down HTTP server: %w", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("closing redis client", "error", err)
		}
	}
	if a.pg != nil {
		a.pg.Close()
	}

	a.logger.Info("shutdown complete")
	return nil
}

// exportStorageAdapter adapts storage.S3Storage to policy.ExportStorage
type exportStorageAdapter struct {
	storage *storage.S3Storage
}

func (a *exportStorageAdapter) Upload(ctx context.Context, in policy.StorageUploadInput) (*policy.StorageUploadOutput, error) {
	out, err := a.storage.Upload(ctx, storage.UploadInput{
		Reader:      in.Body,
		ContentType: in.ContentType,
		Size:        int64(in.Body.Len()),
		Filename:    in.Filename,
	})
	if err != nil {
		return nil, err
	}
	return &policy.StorageUploadOutput{
		Key: out.Key,
		URL: out.URL,
	}, nil
}
