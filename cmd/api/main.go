// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/edig/bibliotheque/internal/activity"
	"github.com/edig/bibliotheque/internal/admin"
	"github.com/edig/bibliotheque/internal/auth"
	"github.com/edig/bibliotheque/internal/catalog"
	"github.com/edig/bibliotheque/internal/config"
	"github.com/edig/bibliotheque/internal/core"
	"github.com/edig/bibliotheque/internal/dashboard"
	"github.com/edig/bibliotheque/internal/health"
	"github.com/edig/bibliotheque/internal/middleware"
	"github.com/edig/bibliotheque/internal/profile"
	"github.com/edig/bibliotheque/internal/realtime"
	"github.com/edig/bibliotheque/internal/role"
	"github.com/edig/bibliotheque/internal/server"
	"github.com/edig/bibliotheque/internal/session"
	"github.com/edig/bibliotheque/internal/storage"
	"github.com/edig/bibliotheque/internal/user"
)

const (
	drainDelay    = 5 * time.Second
	pruneInterval = time.Hour
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.GetKeyID(),
	)

	startedAt := time.Now()

	profileRepo := profile.NewRepository(db.DB)
	resolver := role.NewResolver(profile.NewFinder(profileRepo, logger), logger)

	userSvc := user.NewService(user.ServiceDeps{
		Repo:     user.NewRepository(db.DB),
		Profiles: profileRepo,
		Logger:   logger,
	})
	sessions := session.NewManager(
		userSvc,
		resolver,
		redis.Client,
		cfg.Session.RoleCacheTTL,
		logger,
	)
	userSvc.SetSessions(sessions)
	userHandler := user.NewHandler(userSvc)
	sessionHandler := session.NewHandler(sessions, logger)

	authSvc := auth.NewService(auth.ServiceDeps{
		Repo:      auth.NewRepository(db.DB),
		JWT:       jwtManager,
		Users:     userSvc,
		Sessions:  sessions,
		Redis:     redis.Client,
		AccessTTL: cfg.JWT.AccessTokenExpire,
		Logger:    logger,
	})
	authHandler := auth.NewHandler(authSvc)

	activityLog := activity.NewRedisLog(
		redis.Client,
		cfg.Activity.KeyPrefix,
		cfg.Activity.Capacity,
		logger,
	)
	publisher := realtime.NewPublisher(redis.Client, cfg.Realtime.ChannelPrefix)
	subscriber := realtime.NewSubscriber(
		redis.Client,
		cfg.Realtime.ChannelPrefix,
		cfg.Realtime.RetryDelay,
		logger,
	)

	var (
		uploader    catalog.Uploader
		storagePing func(context.Context) error
		storageChk  health.Checker
	)
	if cfg.StorageEnabled() {
		bucket, bucketErr := storage.NewBucket(cfg.Storage)
		if bucketErr != nil {
			return bucketErr
		}
		uploader = bucket
		storagePing = bucket.Ping
		storageChk = bucket
		logger.Info("cover storage configured",
			"endpoint", cfg.Storage.Endpoint,
			"bucket", cfg.Storage.Bucket,
		)
	} else {
		logger.Warn("cover storage not configured, uploads disabled")
	}

	manualRepo := catalog.NewRepository(db.DB)
	catalogSvc := catalog.NewService(catalog.ServiceDeps{
		Manuals:   manualRepo,
		Levels:    catalog.NewLevelRepository(db.DB),
		Recorder:  activity.NewRecorder(activityLog, logger),
		Publisher: publisher,
		Uploader:  uploader,
		Config:    cfg.Catalog,
		Logger:    logger,
	})
	catalogHandler := catalog.NewHandler(catalogSvc, cfg.Storage.MaxUploadSize)

	dashboardHandler := dashboard.NewHandler(dashboard.NewService(dashboard.ServiceDeps{
		Manuals: manualRepo,
		Signins: authSvc,
		Log:     activityLog,
		Changes: subscriber,
		Recent:  cfg.Catalog.DashboardRecent,
		Logger:  logger,
	}), logger)

	healthChecks := []health.Check{
		{Name: "database", Checker: db},
		{Name: "redis", Checker: redis},
	}
	if storageChk != nil {
		healthChecks = append(healthChecks, health.Check{
			Name:     "storage",
			Checker:  storageChk,
			Optional: true,
		})
	}
	healthHandler := health.NewHandler(healthChecks...)

	adminHandler := admin.NewHandler(
		admin.NewService(admin.NewRepository(db.DB), logger),
		admin.SystemConfig{
			DBStats:     db.Stats,
			RedisStats:  redis.PoolStats,
			DBPing:      db.Ping,
			RedisPing:   redis.Ping,
			StoragePing: storagePing,
			Version:     cfg.App.Version,
			StartedAt:   startedAt,
		},
	)

	go pruneTokens(ctx, authSvc, logger)

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.PerMinute(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
			),
			FailOpen: true,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())

	authenticator := middleware.Authenticator(authSvc)
	adminOnly := middleware.RequireAdmin(sessions)

	router.Route("/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r, authenticator, adminOnly)

		r.Post("/users", authHandler.Register)

		sessionHandler.RegisterRoutes(r, authenticator)
		userHandler.RegisterRoutes(r, authenticator)
		userHandler.RegisterAdminRoutes(r, authenticator, adminOnly)
		catalogHandler.RegisterRoutes(r)
		catalogHandler.RegisterAdminRoutes(r, authenticator, adminOnly)
		dashboardHandler.RegisterRoutes(r, authenticator, adminOnly)
		adminHandler.RegisterRoutes(r, authenticator, adminOnly)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

// pruneTokens drops expired refresh tokens until ctx is cancelled.
func pruneTokens(ctx context.Context, svc *auth.Service, logger *slog.Logger) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.PruneExpired(ctx)
			if err != nil {
				logger.Warn("prune refresh tokens failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("pruned expired refresh tokens", "count", n)
			}
		}
	}
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
