package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/revmak/marketplace-api/internal/domain"
	"github.com/revmak/marketplace-api/internal/i18n"
	"github.com/revmak/marketplace-api/internal/observability"
	"github.com/revmak/marketplace-api/internal/session"
	apperrors "github.com/revmak/marketplace-api/pkg/util"
)

const (
	DefaultCookieName    = "jwt"
	DefaultLoaderTimeout = 2 * time.Second

	bearerPrefix = "bearer "
)

// AccountLoader fetches an account by id. Implementations return
// domain.ErrAccountNotFound when no account exists.
type AccountLoader interface {
	GetByID(ctx context.Context, id string) (*domain.Account, error)
}

// Outcome is the result of authenticating one request. Exactly one of
// Identity or Kind is set.
type Outcome struct {
	Identity *domain.Identity
	Kind     apperrors.Kind
	Subject  string
	Err      error
}

// Authenticated reports whether an identity was resolved.
func (o Outcome) Authenticated() bool {
	return o.Identity != nil
}

// GatewayConfig holds transport settings of the gateway.
type GatewayConfig struct {
	CookieName    string
	LoaderTimeout time.Duration
}

// Gateway authenticates requests: token validation, cached account lookup
// and the active check.
type Gateway struct {
	tokens        *TokenManager
	cache         *session.Cache
	loader        AccountLoader
	cookieName    string
	loaderTimeout time.Duration
	catalog       *i18n.Catalog
	logger        *zap.Logger
	metrics       *observability.Metrics
}

// NewGateway constructs the gateway. A nil logger or catalog is replaced by a default.
func NewGateway(
	tokens *TokenManager,
	cache *session.Cache,
	loader AccountLoader,
	cfg GatewayConfig,
	catalog *i18n.Catalog,
	logger *zap.Logger,
	metrics *observability.Metrics,
) *Gateway {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	if cfg.LoaderTimeout <= 0 {
		cfg.LoaderTimeout = DefaultLoaderTimeout
	}
	if catalog == nil {
		catalog = i18n.NewCatalog("pt-BR")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		tokens:        tokens,
		cache:         cache,
		loader:        loader,
		cookieName:    cfg.CookieName,
		loaderTimeout: cfg.LoaderTimeout,
		catalog:       catalog,
		logger:        logger,
		metrics:       metrics,
	}
}

// Tokens exposes the token manager used by the gateway.
func (g *Gateway) Tokens() *TokenManager {
	return g.tokens
}

// CookieName is the cookie consulted when no bearer header is present.
func (g *Gateway) CookieName() string {
	return g.cookieName
}

// Authenticate runs the full decision for a raw token. Malformed and badly
// signed tokens never reach the cache or the loader.
func (g *Gateway) Authenticate(ctx context.Context, token string) Outcome {
	if token == "" {
		return Outcome{Kind: apperrors.KindNoCredentials}
	}

	validated := g.tokens.Validate(token)
	switch validated.Status {
	case TokenMalformed:
		return Outcome{Kind: apperrors.KindMalformedToken, Err: validated.Err}
	case TokenInvalidSignature:
		return Outcome{Kind: apperrors.KindInvalidSignature, Err: validated.Err}
	case TokenExpired:
		return Outcome{Kind: apperrors.KindTokenExpired, Subject: validated.Subject, Err: validated.Err}
	}

	subject := validated.Subject
	account, hit := g.cache.Get(subject)
	g.metrics.RecordCacheLookup(hit)
	if !hit {
		loaded, err := g.load(ctx, subject)
		if err != nil {
			if errors.Is(err, domain.ErrAccountNotFound) {
				return Outcome{Kind: apperrors.KindAccountMissing, Subject: subject, Err: err}
			}
			return Outcome{Kind: apperrors.KindLoaderTimeout, Subject: subject, Err: err}
		}
		account = g.cache.Put(subject, session.Snapshot(loaded))
	}

	if !account.Active {
		g.cache.Invalidate(subject)
		return Outcome{Kind: apperrors.KindAccountDeactivated, Subject: subject}
	}

	return Outcome{
		Identity: &domain.Identity{AccountID: subject, Role: account.Role, Active: true},
		Subject:  subject,
	}
}

func (g *Gateway) load(ctx context.Context, id string) (*domain.Account, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, g.loaderTimeout)
	defer cancel()

	account, err := g.loader.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrAccountNotFound
	}
	return account, nil
}

// Handle enforces authentication for protected routes.
func (g *Gateway) Handle(c *fiber.Ctx) error {
	outcome := g.Authenticate(c.UserContext(), ExtractToken(c, g.cookieName))
	g.metrics.RecordAuthOutcome(string(outcome.Kind))

	if !outcome.Authenticated() {
		g.logRejection(c, outcome)
		return g.catalog.Error(c.Get(fiber.HeaderAcceptLanguage), outcome.Kind, nil, outcome.Err)
	}

	SetIdentity(c, outcome.Identity)
	return c.Next()
}

func (g *Gateway) logRejection(c *fiber.Ctx, outcome Outcome) {
	fields := []zap.Field{
		zap.String("kind", string(outcome.Kind)),
		zap.String("path", c.Path()),
	}
	if outcome.Subject != "" {
		fields = append(fields, zap.String("subject", outcome.Subject))
	}
	if outcome.Err != nil {
		fields = append(fields, zap.Error(outcome.Err))
	}

	switch outcome.Kind {
	case apperrors.KindLoaderTimeout:
		g.logger.Error("account lookup failed", fields...)
	case apperrors.KindAccountMissing, apperrors.KindAccountDeactivated, apperrors.KindInvalidSignature:
		g.logger.Warn("authentication rejected", fields...)
	default:
		g.logger.Info("authentication rejected", fields...)
	}
}

// ExtractToken reads the bearer token from the Authorization header, falling
// back to the named cookie.
func ExtractToken(c *fiber.Ctx, cookieName string) string {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(header) > len(bearerPrefix) && strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		if token := strings.TrimSpace(header[len(bearerPrefix):]); token != "" {
			return token
		}
	}
	if cookieName == "" {
		return ""
	}
	return c.Cookies(cookieName)
}
