// Package service holds the business rules of the identity layer.
//
//	handler (HTTP) → service (rules) → repository (storage)
//	                          ↘ auth (tokens, passwords, providers)
//
// Services return apperror values and know nothing about HTTP.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/apperror"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/auth"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/metrics"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/model"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/repository"
)

const namespaceUser = "user"

// AuthService runs the credential flows for intern accounts.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	identity  *IdentityResolver
	metrics   metrics.Recorder
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	identity *IdentityResolver,
	recorder metrics.Recorder,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		identity:  identity,
		metrics:   recorder,
		logger:    logger,
	}
}

// AuthResult bundles the account with the token issued for it.
type AuthResult struct {
	User  *model.User
	Token model.AccessToken
}

// Register creates a password account and signs the new user in.
//
// An email that is already taken fails with EmailAlreadyRegistered, whether
// the pre-check sees it or a concurrent registration wins the insert.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	in, err := newRegistration(name, email, password)
	if err != nil {
		s.metrics.Registration(namespaceUser, "invalid")
		return nil, err
	}

	if _, err := s.users.FindByEmail(ctx, in.Email); err == nil {
		s.metrics.Registration(namespaceUser, "conflict")
		return nil, apperror.EmailAlreadyRegistered()
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: checking email: %w", err)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user := &model.User{Name: in.Name, Email: in.Email, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			s.metrics.Registration(namespaceUser, "conflict")
			return nil, apperror.EmailAlreadyRegistered()
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.metrics.Registration(namespaceUser, "success")
	s.logger.Info("user registered", slog.String("userID", user.ID))

	return s.signIn(user)
}

// Login checks an email and password.
//
// Unknown email, an account without a password, and a wrong password all
// return the same InvalidCredentials error after one bcrypt comparison.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, model.NormalizeEmail(email))
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		s.metrics.PasswordLogin(namespaceUser, "error")
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if user == nil || !user.HasPassword() {
		s.passwords.DummyVerify(password)
		s.metrics.PasswordLogin(namespaceUser, "invalid_credentials")
		return nil, apperror.InvalidCredentials()
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		s.metrics.PasswordLogin(namespaceUser, "invalid_credentials")
		return nil, apperror.InvalidCredentials()
	}

	s.metrics.PasswordLogin(namespaceUser, "success")
	return s.signIn(user)
}

// LoginWithOAuth resolves a provider identity to an account and signs it in.
func (s *AuthService) LoginWithOAuth(ctx context.Context, id auth.OAuthIdentity) (*AuthResult, Outcome, error) {
	user, outcome, err := s.identity.Resolve(ctx, id)
	if err != nil {
		return nil, "", err
	}

	res, err := s.signIn(user)
	if err != nil {
		return nil, "", err
	}
	return res, outcome, nil
}

// Me returns the stored account behind an authenticated user principal.
func (s *AuthService) Me(ctx context.Context, id string) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}

// ChangePassword replaces the password of a password account. Accounts that
// only sign in through a provider have no password to change.
func (s *AuthService) ChangePassword(ctx context.Context, id, current, next string) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}

	if !user.HasPassword() {
		return apperror.ValidationFailed("currentPassword", "this account signs in with an external provider and has no password")
	}
	if err := s.passwords.Verify(user.PasswordHash, current); err != nil {
		return apperror.InvalidCredentials()
	}
	if err := checkPassword("newPassword", next); err != nil {
		return err
	}

	hash, err := s.passwords.Hash(next)
	if err != nil {
		return fmt.Errorf("service/auth: %w", err)
	}
	user.PasswordHash = hash

	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("service/auth: updating user %s: %w", id, err)
	}

	s.logger.Info("password changed", slog.String("userID", id))
	return nil
}

func (s *AuthService) signIn(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.Principal())
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for user %s: %w", user.ID, err)
	}
	s.metrics.TokenIssued(string(model.RoleUser))

	return &AuthResult{User: user, Token: token}, nil
}
