package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	httptransport "github.com/revmak/marketplace-api/internal/api/http"
	"github.com/revmak/marketplace-api/internal/api/http/handlers"
	"github.com/revmak/marketplace-api/internal/auth"
	"github.com/revmak/marketplace-api/internal/config"
	"github.com/revmak/marketplace-api/internal/events"
	"github.com/revmak/marketplace-api/internal/i18n"
	"github.com/revmak/marketplace-api/internal/observability"
	"github.com/revmak/marketplace-api/internal/persistence"
	"github.com/revmak/marketplace-api/internal/repository"
	"github.com/revmak/marketplace-api/internal/service"
	"github.com/revmak/marketplace-api/internal/session"
	"github.com/revmak/marketplace-api/internal/storage"
	"github.com/revmak/marketplace-api/internal/upload"
	"github.com/revmak/marketplace-api/internal/worker"
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	catalog := i18n.NewCatalog(cfg.App.Locale)

	accountRepo := repository.NewAccountRepository(pg.PoolHandle())
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL())
	cache := session.NewCache(cfg.Session.TTL(), cfg.Session.MaxEntries)

	dispatcher := events.NewAccountBus()
	worker.StartSessionInvalidation(dispatcher, cache, logger)

	gateway := auth.NewGateway(tokens, cache, accountRepo, auth.GatewayConfig{
		CookieName:    cfg.Auth.CookieName,
		LoaderTimeout: cfg.Auth.LoaderTimeout(),
	}, catalog, logger, metrics)
	accountService := service.NewAccountService(accountRepo, tokens, dispatcher, logger, cfg.Auth.BcryptCost)

	if err := os.MkdirAll(cfg.Upload.Dir, 0o755); err != nil {
		logger.Fatal("failed to create upload dir", zap.Error(err))
	}
	disk := storage.NewDisk(afero.NewOsFs(), cfg.Upload.Dir, cfg.Upload.PublicPrefix)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    cfg.Upload.BodyLimitBytes,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics, catalog),
	})
	httptransport.RegisterMiddlewares(app, httptransport.MiddlewareConfig{
		Logger:     logger,
		Metrics:    metrics,
		Catalog:    catalog,
		Timeout:    cfg.App.RequestTimeout(),
		CORSOrigin: cfg.HTTP.CORSOrigin,
	})

	var rateLimiter fiber.Handler
	if cfg.RateLimit.Enabled {
		rateLimiter = httptransport.RateLimit(redis, cfg.RateLimit.Max, cfg.RateLimit.Window(), logger)
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version,
			handlers.Dependency{Name: "postgres", Pinger: pg},
			handlers.Dependency{Name: "redis", Pinger: redis},
		),
		Auth: handlers.NewAuthHandler(accountService, tokens, handlers.CookieConfig{
			Name:   cfg.Auth.CookieName,
			Secure: cfg.Auth.CookieSecure,
		}, cfg.Auth.ExpiryWarning()),
		Accounts:      handlers.NewAccountsHandler(accountService),
		Upload:        handlers.NewUploadHandler(upload.NewPolicy(cfg.Upload), disk),
		Metrics:       handlers.NewMetricsHandler(metrics, cache),
		Gateway:       gateway,
		Classifier:    upload.NewClassifier(catalog, logger),
		RateLimiter:   rateLimiter,
		StorageDir:    cfg.Upload.Dir,
		StoragePrefix: cfg.Upload.PublicPrefix,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
