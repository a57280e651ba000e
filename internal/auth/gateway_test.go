package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/revmak/marketplace-api/internal/domain"
	"github.com/revmak/marketplace-api/internal/i18n"
	"github.com/revmak/marketplace-api/internal/observability"
	"github.com/revmak/marketplace-api/internal/session"
	apperrors "github.com/revmak/marketplace-api/pkg/util"
)

type loaderMock struct {
	mock.Mock
}

func (m *loaderMock) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	args := m.Called(ctx, id)
	account, _ := args.Get(0).(*domain.Account)
	return account, args.Error(1)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type gatewayFixture struct {
	gateway *Gateway
	tokens  *TokenManager
	cache   *session.Cache
	loader  *loaderMock
	clock   *testClock
	metrics *observability.Metrics
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()
	clock := &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	tokens := NewTokenManager(testSecret, 24*time.Hour, WithTokenClock(clock.Now))
	cache := session.NewCache(15*time.Minute, 10, session.WithClock(clock.Now))
	loader := &loaderMock{}
	metrics := observability.NewMetrics()
	gateway := NewGateway(tokens, cache, loader, GatewayConfig{LoaderTimeout: 50 * time.Millisecond},
		i18n.NewCatalog("pt-BR"), nil, metrics)
	return &gatewayFixture{gateway: gateway, tokens: tokens, cache: cache, loader: loader, clock: clock, metrics: metrics}
}

func (f *gatewayFixture) token(t *testing.T, subject string) string {
	t.Helper()
	token, _, err := f.tokens.GenerateToken(subject)
	require.NoError(t, err)
	return token
}

func activeAccount(id string, role domain.Role) *domain.Account {
	return &domain.Account{ID: id, Name: "Maria", Email: id + "@example.com", Role: role, Active: true}
}

func TestGateway_AuthenticatesAndCaches(t *testing.T) {
	f := newGatewayFixture(t)
	f.loader.On("GetByID", mock.Anything, "acc-1").Return(activeAccount("acc-1", domain.RoleSeller), nil).Once()
	token := f.token(t, "acc-1")

	first := f.gateway.Authenticate(context.Background(), token)
	second := f.gateway.Authenticate(context.Background(), token)

	require.True(t, first.Authenticated())
	require.True(t, second.Authenticated())
	assert.Equal(t, &domain.Identity{AccountID: "acc-1", Role: domain.RoleSeller, Active: true}, first.Identity)
	assert.Equal(t, first.Identity, second.Identity)
	f.loader.AssertNumberOfCalls(t, "GetByID", 1)
	assert.Equal(t, 1, f.cache.Len())

	snap := f.metrics.Snapshot()
	assert.Equal(t, int64(1), snap.CacheHits)
	assert.Equal(t, int64(1), snap.CacheMisses)
}

func TestGateway_RejectsBeforeLoading(t *testing.T) {
	f := newGatewayFixture(t)
	now := f.clock.Now()
	expired := NewTokenManager(testSecret, time.Hour, WithTokenClock(func() time.Time { return now.Add(-2 * time.Hour) }))
	expiredToken, _, err := expired.GenerateToken("acc-9")
	require.NoError(t, err)
	foreign := NewTokenManager("other-secret", time.Hour, WithTokenClock(f.clock.Now))
	foreignToken, _, err := foreign.GenerateToken("acc-9")
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		kind    apperrors.Kind
		subject string
	}{
		{"no credentials", "", apperrors.KindNoCredentials, ""},
		{"malformed", "abc.def", apperrors.KindMalformedToken, ""},
		{"garbage segments", "x.y.z", apperrors.KindMalformedToken, ""},
		{"invalid signature", foreignToken, apperrors.KindInvalidSignature, ""},
		{"expired", expiredToken, apperrors.KindTokenExpired, "acc-9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := f.gateway.Authenticate(context.Background(), tt.token)
			assert.False(t, outcome.Authenticated())
			assert.Equal(t, tt.kind, outcome.Kind)
			assert.Equal(t, tt.subject, outcome.Subject)
		})
	}
	f.loader.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	assert.Zero(t, f.cache.Len())
}

func TestGateway_AccountMissing(t *testing.T) {
	f := newGatewayFixture(t)
	f.loader.On("GetByID", mock.Anything, "ghost").Return(nil, domain.ErrAccountNotFound).Once()

	outcome := f.gateway.Authenticate(context.Background(), f.token(t, "ghost"))

	assert.Equal(t, apperrors.KindAccountMissing, outcome.Kind)
	assert.Equal(t, "ghost", outcome.Subject)
	assert.Zero(t, f.cache.Len())
}

func TestGateway_LoaderTimeout(t *testing.T) {
	f := newGatewayFixture(t)
	f.loader.On("GetByID", mock.Anything, "acc-1").
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded).Once()

	outcome := f.gateway.Authenticate(context.Background(), f.token(t, "acc-1"))

	assert.Equal(t, apperrors.KindLoaderTimeout, outcome.Kind)
	assert.ErrorIs(t, outcome.Err, context.DeadlineExceeded)
	assert.Zero(t, f.cache.Len())
}

func TestGateway_LoaderErrorIsNotRetried(t *testing.T) {
	f := newGatewayFixture(t)
	f.loader.On("GetByID", mock.Anything, "acc-1").Return(nil, errors.New("connection reset")).Once()

	outcome := f.gateway.Authenticate(context.Background(), f.token(t, "acc-1"))

	assert.Equal(t, apperrors.KindLoaderTimeout, outcome.Kind)
	f.loader.AssertNumberOfCalls(t, "GetByID", 1)
}

func TestGateway_TTLExpiryReloadsOnce(t *testing.T) {
	f := newGatewayFixture(t)
	f.loader.On("GetByID", mock.Anything, "acc-1").Return(activeAccount("acc-1", domain.RoleUser), nil).Twice()
	token := f.token(t, "acc-1")

	require.True(t, f.gateway.Authenticate(context.Background(), token).Authenticated())
	f.clock.Advance(15*time.Minute + time.Second)
	require.True(t, f.gateway.Authenticate(context.Background(), token).Authenticated())
	require.True(t, f.gateway.Authenticate(context.Background(), token).Authenticated())

	f.loader.AssertNumberOfCalls(t, "GetByID", 2)
}

func TestGateway_DeactivationSelfHeals(t *testing.T) {
	f := newGatewayFixture(t)
	deactivated := activeAccount("acc-1", domain.RoleUser)
	deactivated.Active = false
	f.loader.On("GetByID", mock.Anything, "acc-1").Return(activeAccount("acc-1", domain.RoleUser), nil).Once()
	f.loader.On("GetByID", mock.Anything, "acc-1").Return(deactivated, nil)
	token := f.token(t, "acc-1")

	require.True(t, f.gateway.Authenticate(context.Background(), token).Authenticated())

	f.clock.Advance(16 * time.Minute)
	outcome := f.gateway.Authenticate(context.Background(), token)
	assert.Equal(t, apperrors.KindAccountDeactivated, outcome.Kind)
	assert.Zero(t, f.cache.Len())

	outcome = f.gateway.Authenticate(context.Background(), token)
	assert.Equal(t, apperrors.KindAccountDeactivated, outcome.Kind)
	f.loader.AssertNumberOfCalls(t, "GetByID", 3)
}

func TestGateway_OutOfBandInvalidation(t *testing.T) {
	f := newGatewayFixture(t)
	deactivated := activeAccount("acc-1", domain.RoleUser)
	deactivated.Active = false
	f.loader.On("GetByID", mock.Anything, "acc-1").Return(activeAccount("acc-1", domain.RoleUser), nil).Once()
	f.loader.On("GetByID", mock.Anything, "acc-1").Return(deactivated, nil).Once()
	token := f.token(t, "acc-1")

	require.True(t, f.gateway.Authenticate(context.Background(), token).Authenticated())
	f.cache.Invalidate("acc-1")

	outcome := f.gateway.Authenticate(context.Background(), token)
	assert.Equal(t, apperrors.KindAccountDeactivated, outcome.Kind)
	f.loader.AssertNumberOfCalls(t, "GetByID", 2)
}

func TestGateway_InactiveCachedEntryIsInvalidated(t *testing.T) {
	f := newGatewayFixture(t)
	f.cache.Put("acc-1", session.CachedAccount{DisplayName: "Maria", Role: domain.RoleUser, Active: false})

	outcome := f.gateway.Authenticate(context.Background(), f.token(t, "acc-1"))

	assert.Equal(t, apperrors.KindAccountDeactivated, outcome.Kind)
	_, ok := f.cache.Get("acc-1")
	assert.False(t, ok)
	f.loader.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func newGatewayApp(g *Gateway) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"error": fiber.Map{
				"code":    domainErr.Code,
				"message": domainErr.Message,
			}})
		},
	})
	app.Get("/me", g.Handle, func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return errors.New("identity missing from locals")
		}
		fromCtx, ok := IdentityFrom(c.UserContext())
		if !ok {
			return errors.New("identity missing from context")
		}
		return c.JSON(fiber.Map{"id": identity.AccountID, "role": identity.Role, "ctx_id": fromCtx.AccountID})
	})
	return app
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode[T any](t *testing.T, body io.Reader) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func TestGateway_Handle(t *testing.T) {
	f := newGatewayFixture(t)
	f.loader.On("GetByID", mock.Anything, "acc-1").Return(activeAccount("acc-1", domain.RoleAdmin), nil)
	app := newGatewayApp(f.gateway)
	valid := f.token(t, "acc-1")

	tests := []struct {
		name     string
		header   string
		cookie   string
		language string
		status   int
		code     string
		message  string
	}{
		{name: "bearer header", header: "Bearer " + valid, status: http.StatusOK},
		{name: "lowercase scheme", header: "bearer " + valid, status: http.StatusOK},
		{name: "cookie fallback", cookie: valid, status: http.StatusOK},
		{name: "header preferred over cookie", header: "Bearer " + valid, cookie: "garbage", status: http.StatusOK},
		{name: "bad header wins over good cookie", header: "Bearer garbage", cookie: valid, status: http.StatusUnauthorized, code: apperrors.CodeInvalidToken},
		{
			name: "no credentials", status: http.StatusUnauthorized, code: string(apperrors.KindNoCredentials),
			message: "Você não está autenticado. Por favor, faça login.",
		},
		{
			name: "english message", header: "Bearer a.b", language: "en", status: http.StatusUnauthorized,
			code: apperrors.CodeInvalidToken, message: "Invalid token. Please log in again.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: tt.cookie})
			}
			if tt.language != "" {
				req.Header.Set(fiber.HeaderAcceptLanguage, tt.language)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, tt.status, resp.StatusCode)

			if tt.status == http.StatusOK {
				body := decode[map[string]string](t, resp.Body)
				assert.Equal(t, "acc-1", body["id"])
				assert.Equal(t, "acc-1", body["ctx_id"])
				assert.Equal(t, "admin", body["role"])
				return
			}
			body := decode[errorBody](t, resp.Body)
			assert.Equal(t, tt.code, body.Error.Code)
			if tt.message != "" {
				assert.Equal(t, tt.message, body.Error.Message)
			}
		})
	}
}

func TestGateway_HandleHidesAccountState(t *testing.T) {
	f := newGatewayFixture(t)
	deactivated := activeAccount("acc-off", domain.RoleUser)
	deactivated.Active = false
	f.loader.On("GetByID", mock.Anything, "acc-missing").Return(nil, domain.ErrAccountNotFound)
	f.loader.On("GetByID", mock.Anything, "acc-off").Return(deactivated, nil)
	f.loader.On("GetByID", mock.Anything, "acc-down").Return(nil, errors.New("pool closed: secret dsn"))
	app := newGatewayApp(f.gateway)

	responses := map[string]errorBody{}
	for _, id := range []string{"acc-missing", "acc-off", "acc-down"} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+f.token(t, id))
		resp, err := app.Test(req)
		require.NoError(t, err)
		if id == "acc-down" {
			assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		} else {
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		}
		responses[id] = decode[errorBody](t, resp.Body)
		resp.Body.Close()
	}

	assert.Equal(t, responses["acc-missing"], responses["acc-off"])
	assert.Equal(t, apperrors.CodeUnauthenticated, responses["acc-off"].Error.Code)
	assert.Equal(t, apperrors.CodeInternal, responses["acc-down"].Error.Code)
	assert.NotContains(t, responses["acc-down"].Error.Message, "secret dsn")

	snap := f.metrics.Snapshot()
	assert.Equal(t, int64(1), snap.AuthOutcomes[string(apperrors.KindAccountMissing)])
	assert.Equal(t, int64(1), snap.AuthOutcomes[string(apperrors.KindAccountDeactivated)])
	assert.Equal(t, int64(1), snap.AuthOutcomes[string(apperrors.KindLoaderTimeout)])
}
