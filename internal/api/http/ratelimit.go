package http

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apperrors "github.com/revmak/marketplace-api/pkg/util"
)

const rateLimitKeyPrefix = "ratelimit:"

// WindowStore counts hits in fixed windows.
type WindowStore interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RateLimit allows max requests per client IP per window. When the store is
// unavailable requests are let through.
func RateLimit(store WindowStore, max int, window time.Duration, logger *zap.Logger) fiber.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := strconv.Itoa(max)

	return func(c *fiber.Ctx) error {
		count, ttl, err := store.Hit(c.UserContext(), rateLimitKeyPrefix+c.IP(), window)
		if err != nil {
			logger.Warn("rate limit store unavailable", zap.Error(err))
			return c.Next()
		}

		remaining := int64(max) - count
		if remaining < 0 {
			remaining = 0
		}
		resetSeconds := int(ttl.Round(time.Second) / time.Second)
		c.Set("X-RateLimit-Limit", limit)
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		c.Set("X-RateLimit-Reset", strconv.Itoa(resetSeconds))

		if count > int64(max) {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(resetSeconds))
			return apperrors.NewKindError(apperrors.KindRateLimited, "", map[string]any{
				"retry_after_seconds": resetSeconds,
			}, nil)
		}
		return c.Next()
	}
}
