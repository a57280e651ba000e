package auth

import (
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformedToken   = errors.New("malformed token")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrTokenExpired     = errors.New("token expired")
)

// TokenStatus classifies a validated token.
type TokenStatus int

const (
	TokenValid TokenStatus = iota
	TokenMalformed
	TokenInvalidSignature
	TokenExpired
)

func (s TokenStatus) String() string {
	switch s {
	case TokenValid:
		return "valid"
	case TokenMalformed:
		return "malformed"
	case TokenInvalidSignature:
		return "invalid_signature"
	case TokenExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// TokenOutcome is the result of Validate. Subject is set for valid and expired tokens.
type TokenOutcome struct {
	Status    TokenStatus
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Err       error
}

// Valid reports whether the token may be used to authenticate.
func (o TokenOutcome) Valid() bool {
	return o.Status == TokenValid
}

// Claims describes the JWT payload.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenManager issues and validates HS256 tokens. The secret is read-only after construction.
type TokenManager struct {
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
	parser  *jwt.Parser
	keyFunc jwt.Keyfunc
}

// TokenOption customizes a TokenManager.
type TokenOption func(*TokenManager)

// WithTokenClock overrides the time source used for issuing and expiry checks.
func WithTokenClock(now func() time.Time) TokenOption {
	return func(tm *TokenManager) {
		tm.now = now
	}
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttl time.Duration, opts ...TokenOption) *TokenManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	tm := &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
		// Expiry is checked against tm.now after the signature is verified.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}
	tm.keyFunc = func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	}
	for _, opt := range opts {
		opt(tm)
	}
	return tm
}

// GenerateToken builds and signs a JWT for the subject.
func (tm *TokenManager) GenerateToken(subjectID string) (string, time.Time, error) {
	now := tm.now()
	expiresAt := now.Add(tm.ttl)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// Validate verifies the token and classifies it. It performs no I/O.
// Tokens without three dot-separated segments are rejected before any
// cryptographic work.
func (tm *TokenManager) Validate(tokenStr string) TokenOutcome {
	if !wellFormed(tokenStr) {
		return TokenOutcome{Status: TokenMalformed, Err: ErrMalformedToken}
	}

	claims := &Claims{}
	if _, err := tm.parser.ParseWithClaims(tokenStr, claims, tm.keyFunc); err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return TokenOutcome{Status: TokenMalformed, Err: errors.Join(ErrMalformedToken, err)}
		}
		return TokenOutcome{Status: TokenInvalidSignature, Err: errors.Join(ErrInvalidSignature, err)}
	}

	if claims.Subject == "" || claims.ExpiresAt == nil {
		return TokenOutcome{Status: TokenMalformed, Err: ErrMalformedToken}
	}

	outcome := TokenOutcome{
		Subject:   claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		outcome.IssuedAt = claims.IssuedAt.Time
	}
	if outcome.ExpiresAt.Before(tm.now()) {
		outcome.Status = TokenExpired
		outcome.Err = ErrTokenExpired
		return outcome
	}
	outcome.Status = TokenValid
	return outcome
}

// RemainingValidity decodes the token WITHOUT verifying its signature and
// returns the time left until expiry, clamped at zero. The second result is
// false when the expiry cannot be determined.
//
// Advisory only: use it for "session expiring soon" hints, never to decide
// whether a request is authenticated.
func (tm *TokenManager) RemainingValidity(tokenStr string) (time.Duration, bool) {
	if !wellFormed(tokenStr) {
		return 0, false
	}
	claims := &Claims{}
	if _, _, err := tm.parser.ParseUnverified(tokenStr, claims); err != nil {
		return 0, false
	}
	if claims.ExpiresAt == nil {
		return 0, false
	}
	remaining := claims.ExpiresAt.Time.Sub(tm.now())
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// ExpiringSoon reports whether the token expires within threshold. Advisory only.
func (tm *TokenManager) ExpiringSoon(tokenStr string, threshold time.Duration) bool {
	remaining, ok := tm.RemainingValidity(tokenStr)
	if !ok {
		return false
	}
	return remaining < threshold
}

func wellFormed(tokenStr string) bool {
	return tokenStr != "" && strings.Count(tokenStr, ".") == 2
}
