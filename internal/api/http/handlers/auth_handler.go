package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/revmak/marketplace-api/internal/api/dto"
	"github.com/revmak/marketplace-api/internal/auth"
	"github.com/revmak/marketplace-api/internal/service"
	apperrors "github.com/revmak/marketplace-api/pkg/util"
)

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

// AuthHandler exposes registration, login and session endpoints.
type AuthHandler struct {
	accounts      *service.AccountService
	tokens        *auth.TokenManager
	cookie        CookieConfig
	expiryWarning time.Duration
}

// NewAuthHandler constructs handler.
func NewAuthHandler(accounts *service.AccountService, tokens *auth.TokenManager, cookie CookieConfig, expiryWarning time.Duration) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = auth.DefaultCookieName
	}
	return &AuthHandler{accounts: accounts, tokens: tokens, cookie: cookie, expiryWarning: expiryWarning}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	sess, err := h.accounts.Register(c.UserContext(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		IsSeller: req.IsSeller,
	})
	if err != nil {
		return err
	}

	h.setSessionCookie(c, sess.Token, sess.ExpiresAt)
	return c.Status(http.StatusCreated).JSON(sessionBody(sess))
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	sess, err := h.accounts.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	h.setSessionCookie(c, sess.Token, sess.ExpiresAt)
	return c.JSON(sessionBody(sess))
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
	return c.SendStatus(http.StatusNoContent)
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("")
	}

	account, err := h.accounts.Get(c.UserContext(), identity.AccountID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAccountResponse(account)})
}

// Session handles GET /api/auth/session. The remaining lifetime is read
// from the token without verification and is only a hint for the client.
func (h *AuthHandler) Session(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("")
	}

	resp := dto.SessionResponse{AccountID: identity.AccountID, Role: identity.Role}
	token := auth.ExtractToken(c, h.cookie.Name)
	if remaining, known := h.tokens.RemainingValidity(token); known {
		resp.RemainingMinutes = int(remaining / time.Minute)
		resp.ExpiringSoon = remaining < h.expiryWarning
	}
	return c.JSON(fiber.Map{"data": resp})
}

func (h *AuthHandler) setSessionCookie(c *fiber.Ctx, token string, expiresAt time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

func sessionBody(sess *service.Session) fiber.Map {
	return fiber.Map{
		"data": fiber.Map{
			"user": dto.NewAccountResponse(sess.Account),
			"auth": dto.AuthResponse{Token: sess.Token, ExpiresAt: sess.ExpiresAt},
		},
	}
}
