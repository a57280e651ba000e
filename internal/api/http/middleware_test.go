package http

import (
	"encoding/json"
	"errors"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/revmak/marketplace-api/internal/i18n"
	"github.com/revmak/marketplace-api/internal/observability"
	apperrors "github.com/revmak/marketplace-api/pkg/util"
)

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func newMiddlewareApp(metrics *observability.Metrics) *fiber.App {
	logger := zap.NewNop()
	catalog := i18n.NewCatalog("pt-BR")
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger, metrics, catalog)})
	RegisterMiddlewares(app, MiddlewareConfig{Logger: logger, Metrics: metrics, Catalog: catalog, CORSOrigin: "http://localhost:3000"})

	app.Get("/forbidden", func(c *fiber.Ctx) error {
		return apperrors.NewKindError(apperrors.KindForbidden, "", nil, nil)
	})
	app.Get("/validation", func(c *fiber.Ctx) error {
		return apperrors.NewValidationError("name required", map[string]any{"field": "name"})
	})
	app.Get("/internal", func(c *fiber.Ctx) error {
		return errors.New("pq: password authentication failed")
	})
	app.Get("/panic", func(c *fiber.Ctx) error {
		panic("boom")
	})
	return app
}

func TestErrorHandlingMiddleware(t *testing.T) {
	metrics := observability.NewMetrics()
	app := newMiddlewareApp(metrics)

	tests := []struct {
		name     string
		path     string
		language string
		status   int
		code     string
		message  string
	}{
		{"localized default", "/forbidden", "", nethttp.StatusForbidden, "FORBIDDEN", "Você não tem permissão para acessar este recurso."},
		{"localized english", "/forbidden", "en", nethttp.StatusForbidden, "FORBIDDEN", "You do not have permission to access this resource."},
		{"explicit message kept", "/validation", "", nethttp.StatusBadRequest, "VALIDATION_FAILED", "name required"},
		{"internal error hidden", "/internal", "en", nethttp.StatusInternalServerError, "INTERNAL_ERROR", "Server error. Please try again later."},
		{"panic recovered", "/panic", "en", nethttp.StatusInternalServerError, "INTERNAL_ERROR", "Server error. Please try again later."},
		{"unknown route", "/missing", "en", nethttp.StatusNotFound, "NOT_FOUND", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(nethttp.MethodGet, tt.path, nil)
			if tt.language != "" {
				req.Header.Set(fiber.HeaderAcceptLanguage, tt.language)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			require.Equal(t, tt.status, resp.StatusCode)
			assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))

			var body errorEnvelope
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.code, body.Error.Code)
			if tt.message != "" {
				assert.Equal(t, tt.message, body.Error.Message)
			}
		})
	}

	snap := metrics.Snapshot()
	assert.Equal(t, int64(2), snap.Errors["/forbidden|GET|FORBIDDEN"])
}

func TestSecurityHeaders(t *testing.T) {
	app := newMiddlewareApp(nil)
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendString("ok") })

	req := httptest.NewRequest(nethttp.MethodGet, "/ok", nil)
	req.Header.Set(fiber.HeaderOrigin, "http://localhost:3000")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "nosniff", resp.Header.Get(fiber.HeaderXContentTypeOptions))
	assert.Equal(t, "http://localhost:3000", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
	assert.Equal(t, "true", resp.Header.Get(fiber.HeaderAccessControlAllowCredentials))
}
