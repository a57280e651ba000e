package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/revmak/marketplace-api/internal/api/http/handlers"
	"github.com/revmak/marketplace-api/internal/auth"
	"github.com/revmak/marketplace-api/internal/domain"
	"github.com/revmak/marketplace-api/internal/upload"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health      *handlers.HealthHandler
	Auth        *handlers.AuthHandler
	Accounts    *handlers.AccountsHandler
	Upload      *handlers.UploadHandler
	Metrics     *handlers.MetricsHandler
	Gateway     *auth.Gateway
	Classifier  *upload.Classifier
	RateLimiter fiber.Handler

	StorageDir    string
	StoragePrefix string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	if cfg.StorageDir != "" && cfg.StoragePrefix != "" {
		app.Static(cfg.StoragePrefix, cfg.StorageDir, fiber.Static{Browse: false})
	}

	api := app.Group("/api")
	if cfg.RateLimiter != nil {
		api.Use(cfg.RateLimiter)
	}

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", cfg.Auth.Logout)
	authGroup.Get("/me", cfg.Gateway.Handle, cfg.Auth.Me)
	authGroup.Get("/session", cfg.Gateway.Handle, cfg.Auth.Session)

	admin := []fiber.Handler{cfg.Gateway.Handle, auth.RequireRole(domain.RoleAdmin)}
	api.Patch("/users/:id/status", append(admin, cfg.Accounts.UpdateStatus)...)
	api.Patch("/users/:id/role", append(admin, cfg.Accounts.UpdateRole)...)
	api.Get("/internal/metrics", append(admin, cfg.Metrics.Show)...)

	api.Post("/upload", cfg.Classifier.Middleware(), cfg.Gateway.Handle, cfg.Upload.Upload)
}
