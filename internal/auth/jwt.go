// Package auth issues and verifies bearer tokens, hashes passwords, talks to
// OAuth providers, and guards HTTP routes.
//
// TOKEN FLOW:
//  1. A service authenticates a principal (password or OAuth).
//  2. TokenService.Issue signs an HS256 JWT carrying the principal's id,
//     email, name and role. Lifetime depends on the role.
//  3. The client sends "Authorization: Bearer <token>" on later requests.
//  4. A Guard verifies the token and applies its policy (trust the claims,
//     or re-check the principal in storage).
//
// Verification needs only the secret. No storage access is involved in
// issuing or verifying a token.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/apperror"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/model"
)

const (
	DefaultIssuer   = "externship"
	DefaultUserTTL  = 7 * 24 * time.Hour
	DefaultAdminTTL = 30 * 24 * time.Hour
)

// TokenConfig is read once at startup and never changes afterwards.
type TokenConfig struct {
	Secret   string
	Issuer   string
	UserTTL  time.Duration
	AdminTTL time.Duration
}

// TokenService handles JWT creation and validation.
type TokenService struct {
	secret   []byte
	issuer   string
	userTTL  time.Duration
	adminTTL time.Duration
	now      func() time.Time
}

// TokenOption customises a TokenService.
type TokenOption func(*TokenService)

// WithClock replaces time.Now for both issuing and verifying.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

// NewTokenService creates a TokenService from cfg. Zero TTLs and an empty
// issuer fall back to the defaults.
func NewTokenService(cfg TokenConfig, opts ...TokenOption) (*TokenService, error) {
	if len(cfg.Secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}

	s := &TokenService{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		userTTL:  cfg.UserTTL,
		adminTTL: cfg.AdminTTL,
		now:      time.Now,
	}
	if s.issuer == "" {
		s.issuer = DefaultIssuer
	}
	if s.userTTL <= 0 {
		s.userTTL = DefaultUserTTL
	}
	if s.adminTTL <= 0 {
		s.adminTTL = DefaultAdminTTL
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Claims is the JWT payload. Subject holds the principal id.
type Claims struct {
	Email string     `json:"email"`
	Name  string     `json:"name"`
	Role  model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Principal rebuilds the principal the token was issued for.
func (c *Claims) Principal() model.Principal {
	return model.Principal{ID: c.Subject, Email: c.Email, Name: c.Name, Role: c.Role}
}

// TTL returns the token lifetime for a role.
func (s *TokenService) TTL(role model.Role) time.Duration {
	if role == model.RoleAdmin {
		return s.adminTTL
	}
	return s.userTTL
}

// Issue signs a token for p with the lifetime configured for p.Role.
func (s *TokenService) Issue(p model.Principal) (model.AccessToken, error) {
	if p.ID == "" {
		return model.AccessToken{}, errors.New("auth: principal has no id")
	}
	if !p.Role.Valid() {
		return model.AccessToken{}, fmt.Errorf("auth: unknown role %q", p.Role)
	}

	now := s.now()
	expiresAt := now.Add(s.TTL(p.Role))

	c := Claims{
		Email: p.Email,
		Name:  p.Name,
		Role:  p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return model.AccessToken{}, fmt.Errorf("auth: signing token: %w", err)
	}

	return model.AccessToken{Token: signed, ExpiresAt: expiresAt}, nil
}

// Verify parses and checks a token string.
//
// VALIDATION CHECKS:
//   - algorithm is HS256 (rejects "none" and algorithm confusion)
//   - signature matches the secret
//   - issuer matches
//   - exp is present and in the future
//   - subject is non-empty and role is known
//
// Every failure is reported as apperror.ErrInvalidToken. The underlying jwt
// error is kept in AppError.Cause for logging.
func (s *TokenService) Verify(tokenStr string) (*Claims, error) {
	var c Claims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&c,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, apperror.InvalidToken(err)
	}
	if !token.Valid {
		return nil, apperror.InvalidToken(errors.New("token not valid"))
	}
	if c.Subject == "" {
		return nil, apperror.InvalidToken(errors.New("token has no subject"))
	}
	if !c.Role.Valid() {
		return nil, apperror.InvalidToken(fmt.Errorf("token has unknown role %q", c.Role))
	}

	return &c, nil
}
