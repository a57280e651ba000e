package http

import (
	"context"
	"errors"
	nethttp "net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/revmak/marketplace-api/internal/i18n"
)

type memoryWindowStore struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (s *memoryWindowStore) Hit(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, 0, s.err
	}
	if s.counts == nil {
		s.counts = map[string]int64{}
	}
	s.counts[key]++
	return s.counts[key], window, nil
}

func newRateLimitedApp(store WindowStore, max int) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zap.NewNop(), nil, i18n.NewCatalog("en"))})
	app.Use(RateLimit(store, max, 15*time.Minute, nil))
	app.Get("/api/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })
	return app
}

func TestRateLimit(t *testing.T) {
	app := newRateLimitedApp(&memoryWindowStore{}, 2)

	for i, want := range []int{nethttp.StatusOK, nethttp.StatusOK, nethttp.StatusTooManyRequests} {
		resp, err := app.Test(httptest.NewRequest(nethttp.MethodGet, "/api/ping", nil))
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, want, resp.StatusCode, "request %d", i+1)
		assert.Equal(t, "2", resp.Header.Get("X-RateLimit-Limit"))
		if want == nethttp.StatusTooManyRequests {
			assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))
			assert.Equal(t, "900", resp.Header.Get(fiber.HeaderRetryAfter))
		}
	}
}

func TestRateLimit_FailsOpen(t *testing.T) {
	app := newRateLimitedApp(&memoryWindowStore{err: errors.New("redis down")}, 1)

	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(nethttp.MethodGet, "/api/ping", nil))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	}
}
