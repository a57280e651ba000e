package http

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/revmak/marketplace-api/internal/i18n"
	"github.com/revmak/marketplace-api/internal/observability"
	apperrors "github.com/revmak/marketplace-api/pkg/util"
)

// MiddlewareConfig bundles dependencies of the global middleware chain.
type MiddlewareConfig struct {
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Catalog    *i18n.Catalog
	Timeout    time.Duration
	CORSOrigin string
}

// RegisterMiddlewares attaches global middlewares such as security headers,
// error handling and logging.
func RegisterMiddlewares(app *fiber.App, cfg MiddlewareConfig) {
	app.Use(requestid.New())
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))
	if cfg.CORSOrigin != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigin,
			AllowCredentials: true,
			AllowHeaders:     "Origin, Content-Type, Accept, Accept-Language, Authorization",
		}))
	}
	app.Use(compress.New())
	if cfg.Timeout > 0 {
		app.Use(requestTimeoutMiddleware(cfg.Timeout))
	}
	app.Use(observability.RequestLogger(cfg.Logger, cfg.Metrics))
	app.Use(errorHandlingMiddleware(cfg.Logger, cfg.Metrics, cfg.Catalog))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// ErrorHandler renders errors that escape the middleware chain, such as
// oversized bodies rejected by the transport.
func ErrorHandler(logger *zap.Logger, metrics *observability.Metrics, catalog *i18n.Catalog) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		return renderError(c, err, logger, metrics, catalog)
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics, catalog *i18n.Catalog) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				err = renderError(c, err, logger, metrics, catalog)
			}
		}()
		return c.Next()
	}
}

func renderError(c *fiber.Ctx, err error, logger *zap.Logger, metrics *observability.Metrics, catalog *i18n.Catalog) error {
	domainErr := *apperrors.ToDomainError(err)
	if catalog != nil && (domainErr.Message == "" || domainErr.Kind.Sensitive()) {
		domainErr.Message = catalog.Message(c.Get(fiber.HeaderAcceptLanguage), domainErr.Kind)
	}
	if domainErr.Kind.Sensitive() {
		domainErr.Details = nil
	}

	metrics.RecordError(c.Path(), c.Method(), domainErr.Code)

	body := fiber.Map{
		"code":    domainErr.Code,
		"message": domainErr.Message,
	}
	if len(domainErr.Details) > 0 {
		body["details"] = domainErr.Details
	}
	if domainErr.HTTPStatus >= 500 {
		logger.Error("request failed",
			zap.String("kind", string(domainErr.Kind)),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}
	return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"error": body})
}
