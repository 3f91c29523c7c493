package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/asafe/user-service/internal/api/http"
	"github.com/asafe/user-service/internal/api/http/handlers"
	"github.com/asafe/user-service/internal/auth"
	"github.com/asafe/user-service/internal/config"
	"github.com/asafe/user-service/internal/events"
	"github.com/asafe/user-service/internal/notification"
	"github.com/asafe/user-service/internal/observability"
	"github.com/asafe/user-service/internal/persistence"
	"github.com/asafe/user-service/internal/repository"
	"github.com/asafe/user-service/internal/service"
	"github.com/asafe/user-service/internal/storage"
	"github.com/asafe/user-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()
	readiness := map[string]handlers.Pinger{}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var userRepo repository.UserRepository
	if pg.Configured() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		userRepo = repository.NewUserRepository(pg.PoolHandle())
		readiness["postgres"] = pg
	} else {
		userRepo = repository.NewMemoryUserRepository()
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()
	if redis.Available() {
		userRepo = repository.NewCachedUserRepository(userRepo, redis.Handle(), cfg.Cache.UserTTL(), logger)
		readiness["redis"] = redis
	}

	dispatcher := events.NewInMemoryDispatcher(logger)
	hasher := auth.NewHasher(cfg.Auth.BcryptCost, cfg.Auth.HashConcurrency)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:   userRepo,
		Hasher:     hasher,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	if cfg.Auth.AdminEmail != "" {
		if err := authService.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword, cfg.Auth.AdminName); err != nil {
			logger.Fatal("failed to bootstrap admin", zap.Error(err))
		}
	}
	userService := service.NewUserService(userRepo, hasher, dispatcher)

	var store *storage.S3Store
	if cfg.Storage.Enabled() {
		if store, err = storage.NewS3Store(ctx, cfg.Storage); err != nil {
			logger.Fatal("failed to init object storage", zap.Error(err))
		}
	} else {
		logger.Warn("AWS_BUCKET_NAME not provided; profile uploads will fail")
	}
	uploadService := service.NewUploadService(store, int64(cfg.Storage.MaxUploadBytes), logger)

	registry := notification.NewRegistry(logger, cfg.Notification.SendTimeout(), notification.Hooks{
		OnConnect: func(conn notification.Conn) {
			metrics.ConnectionOpened()
			logger.Debug("notification subscriber connected", zap.String("conn_id", conn.ID()))
		},
		OnClose: func(conn notification.Conn) {
			metrics.ConnectionClosed()
			logger.Debug("notification subscriber disconnected", zap.String("conn_id", conn.ID()))
		},
		OnSend: func(conn notification.Conn, err error) {
			if err != nil {
				logger.Warn("notification send failed", zap.String("conn_id", conn.ID()), zap.Error(err))
			}
		},
	})
	notificationService := service.NewNotificationService(registry, dispatcher, metrics, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService, cfg.Notification, logger)

	tokens := authService.TokenManager()

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    cfg.App.BodyLimitBytes,
		ErrorHandler: httptransport.ErrorHandler(logger),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, readiness, logger),
		Auth:           handlers.NewAuthHandler(authService),
		Users:          handlers.NewUsersHandler(userService),
		Uploads:        handlers.NewUploadHandler(uploadService),
		Notifications:  handlers.NewNotificationHandler(registry, notificationService, tokens, cfg.Notification.RequireAuth, logger),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
		Metrics:        metrics,

		PublicBroadcast: cfg.Notification.PublicBroadcast,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	registry.CloseAll()
	if err := app.Shutdown(); err != nil {
		logger.Warn("fiber shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
