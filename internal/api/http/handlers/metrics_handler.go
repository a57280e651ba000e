package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/revmak/marketplace-api/internal/observability"
	"github.com/revmak/marketplace-api/internal/session"
)

// MetricsHandler exposes in-process counters.
type MetricsHandler struct {
	metrics *observability.Metrics
	cache   *session.Cache
}

// NewMetricsHandler constructs handler.
func NewMetricsHandler(metrics *observability.Metrics, cache *session.Cache) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, cache: cache}
}

// Show handles GET /api/internal/metrics.
func (h *MetricsHandler) Show(c *fiber.Ctx) error {
	sessions := fiber.Map{}
	if h.cache != nil {
		sessions["entries"] = h.cache.Len()
		sessions["ttl_seconds"] = int(h.cache.TTL().Seconds())
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"counters":      h.metrics.Snapshot(),
			"session_cache": sessions,
		},
	})
}
