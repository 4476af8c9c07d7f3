package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/apperror"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/auth"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/metrics"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/model"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/repository"
)

const (
	namespaceAdmin  = "admin"
	defaultPageSize = 20
	maxPageSize     = 100
)

// AdminService runs the staff credential flows and the console reads.
type AdminService struct {
	admins    repository.AdminRepository
	profiles  repository.AdminProfileRepository
	legacy    repository.LegacyUserDirectory // nil when no legacy store is configured
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	metrics   metrics.Recorder
	logger    *slog.Logger
	now       func() time.Time
}

// AdminDeps groups AdminService collaborators. Legacy may be nil.
type AdminDeps struct {
	Admins    repository.AdminRepository
	Profiles  repository.AdminProfileRepository
	Legacy    repository.LegacyUserDirectory
	Users     repository.UserRepository
	Tokens    *auth.TokenService
	Passwords *auth.PasswordService
	Metrics   metrics.Recorder
	Logger    *slog.Logger
}

func NewAdminService(d AdminDeps) *AdminService {
	return &AdminService{
		admins:    d.Admins,
		profiles:  d.Profiles,
		legacy:    d.Legacy,
		users:     d.Users,
		tokens:    d.Tokens,
		passwords: d.Passwords,
		metrics:   d.Metrics,
		logger:    d.Logger,
		now:       time.Now,
	}
}

// AdminAuthResult is returned by admin register and login.
type AdminAuthResult struct {
	Admin *model.Admin
	Token model.AccessToken
}

// Register creates a staff account. Admin emails are checked only against
// other admins.
func (s *AdminService) Register(ctx context.Context, name, email, password string) (*AdminAuthResult, error) {
	in, err := newRegistration(name, email, password)
	if err != nil {
		s.metrics.Registration(namespaceAdmin, "invalid")
		return nil, err
	}

	if _, err := s.admins.FindByEmail(ctx, in.Email); err == nil {
		s.metrics.Registration(namespaceAdmin, "conflict")
		return nil, apperror.EmailAlreadyRegistered()
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/admin: checking email: %w", err)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/admin: %w", err)
	}

	admin := &model.Admin{Name: in.Name, Email: in.Email, PasswordHash: hash}
	if err := s.admins.Create(ctx, admin); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			s.metrics.Registration(namespaceAdmin, "conflict")
			return nil, apperror.EmailAlreadyRegistered()
		}
		return nil, fmt.Errorf("service/admin: creating admin: %w", err)
	}

	s.metrics.Registration(namespaceAdmin, "success")
	s.logger.Info("admin registered", slog.String("adminID", admin.ID))

	return s.signIn(admin)
}

// Login checks admin credentials, refreshes the admin's profile record and
// issues an admin token.
func (s *AdminService) Login(ctx context.Context, email, password string) (*AdminAuthResult, error) {
	admin, err := s.admins.FindByEmail(ctx, model.NormalizeEmail(email))
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		s.metrics.PasswordLogin(namespaceAdmin, "error")
		return nil, fmt.Errorf("service/admin: looking up admin: %w", err)
	}

	if admin == nil {
		s.passwords.DummyVerify(password)
		s.metrics.PasswordLogin(namespaceAdmin, "invalid_credentials")
		return nil, apperror.InvalidCredentials()
	}
	if err := s.passwords.Verify(admin.PasswordHash, password); err != nil {
		s.metrics.PasswordLogin(namespaceAdmin, "invalid_credentials")
		return nil, apperror.InvalidCredentials()
	}

	profile := &model.AdminProfile{
		AdminID:      admin.ID,
		Name:         admin.Name,
		Email:        admin.Email,
		LegacyUserID: s.lookupLegacyUser(ctx, admin.Email),
		LastLoginAt:  s.now().UTC(),
	}
	if err := s.profiles.RecordLogin(ctx, profile); err != nil {
		s.metrics.PasswordLogin(namespaceAdmin, "error")
		return nil, fmt.Errorf("service/admin: recording login for %s: %w", admin.ID, err)
	}

	s.metrics.PasswordLogin(namespaceAdmin, "success")
	return s.signIn(admin)
}

// lookupLegacyUser returns the legacy account id for email, or "" when there
// is none or the lookup fails.
func (s *AdminService) lookupLegacyUser(ctx context.Context, email string) string {
	if s.legacy == nil {
		return ""
	}

	id, err := s.legacy.FindIDByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			s.logger.Warn("legacy user lookup failed", slog.String("error", err.Error()))
		}
		return ""
	}
	return id
}

// AdminProfileView is the console's view of the signed-in admin: the
// account itself plus the side record written at the last login, if any.
type AdminProfileView struct {
	Admin   *model.Admin
	Profile *model.AdminProfile // nil before the first login
}

// Profile returns the admin account and its login record.
func (s *AdminService) Profile(ctx context.Context, adminID string) (*AdminProfileView, error) {
	admin, err := s.admins.GetByID(ctx, adminID)
	if err != nil {
		return nil, fmt.Errorf("service/admin: fetching admin %s: %w", adminID, err)
	}

	view := &AdminProfileView{Admin: admin}
	p, err := s.profiles.GetByAdminID(ctx, adminID)
	switch {
	case err == nil:
		view.Profile = p
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/admin: fetching profile %s: %w", adminID, err)
	}
	return view, nil
}

// LinkedLegacyUser returns the legacy account id recorded for the admin.
// NotFound when the admin has no legacy account.
func (s *AdminService) LinkedLegacyUser(ctx context.Context, adminID string) (string, error) {
	p, err := s.profiles.GetByAdminID(ctx, adminID)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return "", fmt.Errorf("service/admin: fetching profile %s: %w", adminID, err)
	}
	if p == nil || p.LegacyUserID == "" {
		return "", apperror.NotFound("legacy user for admin", adminID)
	}
	return p.LegacyUserID, nil
}

// ListUsers returns intern accounts, newest first. limit defaults to 20 and
// is capped at 100.
func (s *AdminService) ListUsers(ctx context.Context, limit, offset int) ([]model.User, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	limit = min(limit, maxPageSize)
	offset = max(offset, 0)

	users, err := s.users.List(ctx, repository.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("service/admin: listing users: %w", err)
	}
	return users, nil
}

func (s *AdminService) CountUsers(ctx context.Context) (int, error) {
	n, err := s.users.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("service/admin: counting users: %w", err)
	}
	return n, nil
}

func (s *AdminService) signIn(admin *model.Admin) (*AdminAuthResult, error) {
	token, err := s.tokens.Issue(admin.Principal())
	if err != nil {
		return nil, fmt.Errorf("service/admin: issuing token for admin %s: %w", admin.ID, err)
	}
	s.metrics.TokenIssued(string(model.RoleAdmin))

	return &AdminAuthResult{Admin: admin, Token: token}, nil
}
