package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/binkeyit/storefront/internal/api/http"
	"github.com/binkeyit/storefront/internal/api/http/handlers"
	"github.com/binkeyit/storefront/internal/auth"
	"github.com/binkeyit/storefront/internal/config"
	"github.com/binkeyit/storefront/internal/events"
	"github.com/binkeyit/storefront/internal/observability"
	"github.com/binkeyit/storefront/internal/persistence"
	"github.com/binkeyit/storefront/internal/repository"
	"github.com/binkeyit/storefront/internal/service"
	"github.com/binkeyit/storefront/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), persistence.DefaultMigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	userRepo := repository.NewUserRepository(pg.PoolHandle())
	resetRepo := repository.NewPasswordResetRepository(redis.Client)

	dispatcher := events.NewInMemoryDispatcher()
	notifications := service.NewNotificationService(dispatcher, service.NewLogEmailSender(logger), logger, cfg.Notification)
	worker.StartNotificationWorker(notifications)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:          userRepo,
		PasswordResetRepo: resetRepo,
		Dispatcher:        dispatcher,
		Metrics:           metrics,
		Logger:            logger,
	})
	authMiddleware := auth.NewAuthMiddleware(authService.TokenIssuer(), userRepo)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, httptransport.MiddlewareConfig{
		RequestTimeout: cfg.App.RequestTimeout(),
		AllowOrigin:    cfg.App.FrontendURL,
	})

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
		"postgres": pg,
		"redis":    redis,
	})
	usersHandler := handlers.NewUsersHandler(authService, cfg.Auth.CookieSecure)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         healthHandler,
		Users:          usersHandler,
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
