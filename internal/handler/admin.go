package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/apperror"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/auth"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/service"
)

// AdminHandler serves the staff console endpoints.
type AdminHandler struct {
	admins *service.AdminService
	logger *slog.Logger
}

func NewAdminHandler(svc *service.AdminService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{admins: svc, logger: logger}
}

type adminAuthResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func newAdminAuthResponse(res *service.AdminAuthResult) adminAuthResponse {
	return adminAuthResponse{
		ID:        res.Admin.ID,
		Name:      res.Admin.Name,
		Email:     res.Admin.Email,
		Token:     res.Token.Token,
		ExpiresAt: res.Token.ExpiresAt,
	}
}

type adminProfileResponse struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
	LegacyUserID string     `json:"legacyUserId,omitempty"`
}

// HandleRegister creates a staff account.
//
// HTTP: POST /api/admin/register
func (h *AdminHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.admins.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, newAdminAuthResponse(res))
}

// HandleLogin checks admin credentials and records the login.
//
// HTTP: POST /api/admin/login
func (h *AdminHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.admins.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, newAdminAuthResponse(res))
}

// HandleProfile returns the signed-in admin.
//
// HTTP: GET /api/admin/profile
// Auth: admin guard
func (h *AdminHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.MissingToken())
		return
	}

	view, err := h.admins.Profile(r.Context(), p.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp := adminProfileResponse{
		ID:        view.Admin.ID,
		Name:      view.Admin.Name,
		Email:     view.Admin.Email,
		CreatedAt: view.Admin.CreatedAt,
	}
	if view.Profile != nil {
		last := view.Profile.LastLoginAt
		resp.LastLoginAt = &last
		resp.LegacyUserID = view.Profile.LegacyUserID
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleLegacyUser returns the legacy account linked to the signed-in admin.
//
// HTTP: GET /api/admin/legacy-user
// Auth: admin guard
func (h *AdminHandler) HandleLegacyUser(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.MissingToken())
		return
	}

	id, err := h.admins.LinkedLegacyUser(r.Context(), p.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"legacyUserId": id})
}

// HandleListUsers returns a page of intern accounts, newest first.
//
// HTTP: GET /api/admin/users?limit=20&offset=0
// Auth: admin guard
func (h *AdminHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	users, err := h.admins.ListUsers(r.Context(), limit, offset)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

// HandleCountUsers returns the number of intern accounts.
//
// HTTP: GET /api/admin/users/count
// Auth: admin guard
func (h *AdminHandler) HandleCountUsers(w http.ResponseWriter, r *http.Request) {
	n, err := h.admins.CountUsers(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"totalUsers": n})
}

// queryInt reads an optional non-negative integer query parameter.
func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperror.ValidationFailed(key, key+" must be a non-negative integer")
	}
	return n, nil
}
