package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/apperror"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/model"
)

const maxPasswordBytes = 72

var validate = validator.New(validator.WithRequiredStructEnabled())

// registration is the cleaned-up input shared by user and admin
// registration.
type registration struct {
	Name     string `validate:"required,max=100"`
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required"`
}

// newRegistration trims the name, normalizes the email and validates all
// three fields. The password is taken as given.
func newRegistration(name, email, password string) (registration, error) {
	r := registration{
		Name:     strings.TrimSpace(name),
		Email:    model.NormalizeEmail(email),
		Password: password,
	}

	if err := validate.Struct(r); err != nil {
		return registration{}, validationError(err)
	}
	if err := checkPassword("password", r.Password); err != nil {
		return registration{}, err
	}
	return r, nil
}

func checkPassword(field, password string) error {
	if strings.TrimSpace(password) == "" {
		return apperror.ValidationFailed(field, field+" is required")
	}
	if len(password) > maxPasswordBytes {
		return apperror.ValidationFailed(field, fmt.Sprintf("%s must be %d bytes or fewer", field, maxPasswordBytes))
	}
	return nil
}

// validationError turns the first validator failure into an AppError.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("service: validating input: %w", err)
	}

	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return apperror.ValidationFailed(field, field+" is required")
	case "email":
		return apperror.ValidationFailed(field, "email is not a valid address")
	case "max":
		return apperror.ValidationFailed(field, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
	}
	return apperror.ValidationFailed(field, field+" is invalid")
}
