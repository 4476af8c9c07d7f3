package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/xid"

	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/apperror"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/auth"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/model"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/service"
)

const (
	oauthStateCookie = "oauth_state"
	oauthStatePath   = "/api/auth/oauth"
	oauthStateMaxAge = 10 * time.Minute
)

// AuthHandler serves the intern credential endpoints and the OAuth
// redirect flow.
type AuthHandler struct {
	auth           *service.AuthService
	providers      auth.Providers
	redirectOrigin string
	logger         *slog.Logger
}

// NewAuthHandler creates an AuthHandler. redirectOrigin is the front-end
// URL the OAuth callback sends the browser back to.
func NewAuthHandler(svc *service.AuthService, providers auth.Providers, redirectOrigin string, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:           svc,
		providers:      providers,
		redirectOrigin: strings.TrimRight(redirectOrigin, "/"),
		logger:         logger,
	}
}

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

type authResponse struct {
	User      *model.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

func newAuthResponse(res *service.AuthResult) authResponse {
	return authResponse{User: res.User, Token: res.Token.Token, ExpiresAt: res.Token.ExpiresAt}
}

// HandleRegister creates a password account.
//
// HTTP: POST /api/auth/register
// REQUEST BODY: {"name": "...", "email": "...", "password": "..."}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.auth.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, newAuthResponse(res))
}

// HandleLogin checks an email and password.
//
// HTTP: POST /api/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, newAuthResponse(res))
}

// HandleMe returns the signed-in user.
//
// HTTP: GET /api/auth/me
// Auth: user guard
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.MissingToken())
		return
	}

	user, err := h.auth.Me(r.Context(), p.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// HandleChangePassword replaces the signed-in user's password.
//
// HTTP: POST /api/auth/change-password
// Auth: user guard
func (h *AuthHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.MissingToken())
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.auth.ChangePassword(r.Context(), p.ID, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// HandleOAuthStart redirects the browser to the provider's consent page.
//
// HTTP: GET /api/auth/oauth/{provider}
//
// CSRF PROTECTION VIA STATE:
// A random state value goes into a short-lived HttpOnly cookie and into the
// authorization URL. The callback only proceeds when the two match.
func (h *AuthHandler) HandleOAuthStart(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.provider(r)
	if !ok {
		writeError(w, h.logger, apperror.NotFound("oauth provider", chi.URLParam(r, "provider")))
		return
	}

	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     oauthStatePath,
		MaxAge:   int(oauthStateMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, provider.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleOAuthCallback completes the flow and sends the browser back to the
// front-end with either ?token=... or ?error=...
//
// HTTP: GET /api/auth/oauth/{provider}/callback?code=...&state=...
//
// ERROR CODES:
//
//	invalid_state  state cookie missing or mismatched
//	access_denied  the user declined at the provider
//	auth_failed    no code, or the code exchange failed
//	server_error   the identity could not be mapped to an account
func (h *AuthHandler) HandleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.provider(r)
	if !ok {
		writeError(w, h.logger, apperror.NotFound("oauth provider", chi.URLParam(r, "provider")))
		return
	}
	name := string(provider.Name())
	q := r.URL.Query()

	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || q.Get("state") != stateCookie.Value {
		h.logger.Warn("oauth callback: state mismatch", slog.String("provider", name))
		h.redirectWithError(w, r, "invalid_state")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Value: "", Path: oauthStatePath, MaxAge: -1})

	if errParam := q.Get("error"); errParam != "" {
		h.logger.Info("oauth callback: provider returned error",
			slog.String("provider", name),
			slog.String("error", errParam),
		)
		h.redirectWithError(w, r, "access_denied")
		return
	}

	code := q.Get("code")
	if code == "" {
		h.redirectWithError(w, r, "auth_failed")
		return
	}

	identity, err := provider.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Warn("oauth callback: exchange failed",
			slog.String("provider", name),
			slog.String("error", err.Error()),
		)
		h.redirectWithError(w, r, "auth_failed")
		return
	}

	res, outcome, err := h.auth.LoginWithOAuth(r.Context(), *identity)
	if err != nil {
		if !errors.Is(err, apperror.ErrIdentityResolution) {
			h.logger.Error("oauth callback: sign-in failed",
				slog.String("provider", name),
				slog.String("error", err.Error()),
			)
		}
		h.redirectWithError(w, r, "server_error")
		return
	}

	h.logger.Info("user signed in with provider",
		slog.String("provider", name),
		slog.String("userID", res.User.ID),
		slog.String("outcome", string(outcome)),
	)
	h.redirect(w, r, url.Values{"token": {res.Token.Token}})
}

func (h *AuthHandler) provider(r *http.Request) (auth.OAuthProvider, bool) {
	name, ok := model.ParseProvider(chi.URLParam(r, "provider"))
	if !ok {
		return nil, false
	}
	return h.providers.Get(name)
}

func (h *AuthHandler) redirectWithError(w http.ResponseWriter, r *http.Request, code string) {
	h.redirect(w, r, url.Values{"error": {code}})
}

func (h *AuthHandler) redirect(w http.ResponseWriter, r *http.Request, q url.Values) {
	http.Redirect(w, r, h.redirectOrigin+"?"+q.Encode(), http.StatusSeeOther)
}
