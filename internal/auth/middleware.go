package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/apperror"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/model"
)

// contextKey is an unexported type so no other package can read or shadow
// the principal stored in a request context.
type contextKey string

const principalKey contextKey = "principal"

// Require is chi-compatible middleware that enforces the guard on a route
// group.
//
// On success the principal is stored in the request context. On failure the
// chain stops with 401 and a generic body; which check failed is only
// visible in logs and metrics. Unclassified failures return 500.
func (g *Guard) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := g.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			g.reject(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

func (g *Guard) reject(w http.ResponseWriter, r *http.Request, err error) {
	reason := rejectionReason(err)
	if g.observer != nil {
		g.observer.GuardRejected(g.name, reason)
	}

	if !errors.Is(err, apperror.ErrUnauthorized) {
		g.logger.Error("auth guard: authentication failed",
			slog.String("guard", g.name),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeGuardError(w, http.StatusInternalServerError, "internal_error", "An internal error occurred")
		return
	}

	attrs := []any{
		slog.String("guard", g.name),
		slog.String("reason", reason),
		slog.String("path", r.URL.Path),
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Cause != nil {
		attrs = append(attrs, slog.String("cause", appErr.Cause.Error()))
	}
	g.logger.Debug("auth guard: request rejected", attrs...)

	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	writeGuardError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
}

func writeGuardError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": kind, "message": message})
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p model.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the principal set by Require.
// Returns false on routes without a guard.
func PrincipalFromContext(ctx context.Context) (model.Principal, bool) {
	p, ok := ctx.Value(principalKey).(model.Principal)
	return p, ok && p.ID != ""
}
