package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/apperror"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/model"
)

const bearerPrefix = "Bearer "

// GuardPolicy turns verified claims into the principal a route will see.
type GuardPolicy interface {
	Resolve(ctx context.Context, claims *Claims) (model.Principal, error)
}

// TrustClaims accepts the principal as described by the token, without any
// storage access. Tokens issued for another role are rejected.
type TrustClaims struct {
	Role model.Role
}

func (p TrustClaims) Resolve(_ context.Context, c *Claims) (model.Principal, error) {
	if c.Role != p.Role {
		return model.Principal{}, apperror.InvalidToken(fmt.Errorf("token role %q, want %q", c.Role, p.Role))
	}
	return c.Principal(), nil
}

// AdminLookup is the storage read ReverifyAgainstStore needs.
type AdminLookup interface {
	GetByID(ctx context.Context, id string) (*model.Admin, error)
}

// ReverifyAgainstStore re-fetches the admin named by the token on every
// request, so deleting an admin revokes their outstanding tokens. The
// returned principal carries the stored name and email, not the claimed ones.
type ReverifyAgainstStore struct {
	Admins AdminLookup
}

func (p ReverifyAgainstStore) Resolve(ctx context.Context, c *Claims) (model.Principal, error) {
	if c.Role != model.RoleAdmin {
		return model.Principal{}, apperror.PrincipalNotFound()
	}

	admin, err := p.Admins.GetByID(ctx, c.Subject)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return model.Principal{}, apperror.PrincipalNotFound()
		}
		return model.Principal{}, fmt.Errorf("auth: re-fetching admin %s: %w", c.Subject, err)
	}

	return admin.Principal(), nil
}

// RejectionObserver is told why a request was turned away. Reasons are
// "missing_token", "invalid_token", "principal_not_found" and "error".
type RejectionObserver interface {
	GuardRejected(guard, reason string)
}

// Guard authenticates inbound requests with one policy.
type Guard struct {
	name     string
	tokens   *TokenService
	policy   GuardPolicy
	logger   *slog.Logger
	observer RejectionObserver
}

// NewGuard creates a Guard. name labels log lines and metrics ("user",
// "admin"); observer may be nil.
func NewGuard(name string, tokens *TokenService, policy GuardPolicy, logger *slog.Logger, observer RejectionObserver) *Guard {
	return &Guard{
		name:     name,
		tokens:   tokens,
		policy:   policy,
		logger:   logger,
		observer: observer,
	}
}

// Authenticate checks a raw Authorization header value.
//
// DECISION ORDER:
//  1. no "Bearer " prefix, or nothing after it → MissingToken
//  2. token fails verification                → InvalidToken
//  3. policy rejects the claims               → InvalidToken / PrincipalNotFound
//
// Anything else (a storage failure during re-verification) is returned as a
// plain error and must be treated as a server fault.
func (g *Guard) Authenticate(ctx context.Context, header string) (model.Principal, error) {
	raw, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok || strings.TrimSpace(raw) == "" {
		return model.Principal{}, apperror.MissingToken()
	}

	claims, err := g.tokens.Verify(raw)
	if err != nil {
		return model.Principal{}, err
	}

	return g.policy.Resolve(ctx, claims)
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, apperror.ErrMissingToken):
		return "missing_token"
	case errors.Is(err, apperror.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, apperror.ErrPrincipalNotFound):
		return "principal_not_found"
	}
	return "error"
}
