package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON or writeError so the API has one
// error shape:
//
//	{"error": "validation_error", "message": "email is required", "field": "email"}
//
// The "error" value is machine-readable; "message" is safe to show a user.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/apperror"
)

// ErrorResponse is the error body returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// writeJSON sends data with the given status. Headers must be set before
// WriteHeader, which is why the order here matters.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a service error to a status code.
//
// ERROR MAPPING:
//
//	ErrValidation   → 400
//	ErrUnauthorized → 401 (one generic message per kind, never the cause)
//	ErrNotFound     → 404
//	ErrConflict     → 409
//	anything else   → 500, logged with the full error chain
//
// Classification uses errors.Is, so services may wrap freely.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || !classified(err) {
		logger.Error("unhandled error", slog.String("error", err.Error()))
		if appErr != nil && appErr.Cause != nil {
			logger.Error("unhandled error cause", slog.String("cause", appErr.Cause.Error()))
		}
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	switch {
	case errors.Is(err, apperror.ErrValidation):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: appErr.Message, Field: appErr.Field})
	case errors.Is(err, apperror.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "invalid_credentials", Message: "invalid email or password"})
	case errors.Is(err, apperror.ErrUnauthorized):
		w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "authentication required"})
	case errors.Is(err, apperror.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not_found", Message: appErr.Message})
	case errors.Is(err, apperror.ErrEmailAlreadyRegistered):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: "email_already_registered", Message: appErr.Message, Field: appErr.Field})
	case errors.Is(err, apperror.ErrConflict):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: "conflict", Message: appErr.Message})
	}
}

func classified(err error) bool {
	for _, target := range []error{
		apperror.ErrValidation,
		apperror.ErrUnauthorized,
		apperror.ErrNotFound,
		apperror.ErrConflict,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
