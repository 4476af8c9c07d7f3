// Package apperror defines the error taxonomy shared by the service and
// HTTP layers.
//
// Services return *AppError values (or wrap them with fmt.Errorf("...: %w")).
// Handlers never inspect messages; they classify with errors.Is against the
// sentinels below and pick a status code.
//
// SENTINEL FAMILIES:
//
//	ErrUnauthorized ← ErrInvalidCredentials, ErrMissingToken,
//	                  ErrInvalidToken, ErrPrincipalNotFound
//	ErrConflict     ← ErrEmailAlreadyRegistered
//
// The specific sentinels wrap their family, so errors.Is(err, ErrUnauthorized)
// is true for every authentication failure while the specific kind remains
// available for logs and metrics.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("Validation Error")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")

	ErrInvalidCredentials     = fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
	ErrMissingToken           = fmt.Errorf("missing token: %w", ErrUnauthorized)
	ErrInvalidToken           = fmt.Errorf("invalid token: %w", ErrUnauthorized)
	ErrPrincipalNotFound      = fmt.Errorf("principal not found: %w", ErrUnauthorized)
	ErrEmailAlreadyRegistered = fmt.Errorf("email already registered: %w", ErrConflict)

	// ErrIdentityResolution is returned when an OAuth identity could not be
	// mapped to an account. It is never retried.
	ErrIdentityResolution = errors.New("identity resolution failed")
)

type AppError struct {
	Err     error  // sentinel used for classification
	Message string // Human-readable error message, safe to show to clients
	Field   string // Optional: field causing the error
	Cause   error  // Optional: underlying failure, for server-side logs only
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// InvalidCredentials is the single failure returned by password login,
// whether the account is missing, has no password, or the password is wrong.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: "invalid credentials",
	}
}

func EmailAlreadyRegistered() *AppError {
	return &AppError{
		Err:     ErrEmailAlreadyRegistered,
		Message: "email already registered",
		Field:   "email",
	}
}

func MissingToken() *AppError {
	return &AppError{
		Err:     ErrMissingToken,
		Message: "missing token",
	}
}

// InvalidToken covers bad signatures, expiry, wrong algorithm and malformed
// payloads alike. The cause is kept for logs only.
func InvalidToken(cause error) *AppError {
	return &AppError{
		Err:     ErrInvalidToken,
		Message: "invalid token",
		Cause:   cause,
	}
}

func PrincipalNotFound() *AppError {
	return &AppError{
		Err:     ErrPrincipalNotFound,
		Message: "not authorized",
	}
}

func IdentityResolutionFailed(cause error) *AppError {
	return &AppError{
		Err:     ErrIdentityResolution,
		Message: "could not sign in with this provider",
		Cause:   cause,
	}
}
