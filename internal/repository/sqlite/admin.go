package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/apperror"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/model"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/repository"
)

var (
	_ repository.AdminRepository        = (*AdminDB)(nil)
	_ repository.AdminProfileRepository = (*AdminProfileDB)(nil)
)

// AdminDB stores staff accounts.
type AdminDB struct {
	conn *sql.DB
}

func (a *AdminDB) Create(ctx context.Context, admin *model.Admin) error {
	now := time.Now().UTC()
	admin.ID = xid.New().String()
	admin.Email = model.NormalizeEmail(admin.Email)
	admin.CreatedAt = now
	admin.UpdatedAt = now

	_, err := a.conn.ExecContext(ctx,
		`INSERT INTO admins (id, name, email, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		admin.ID, admin.Name, admin.Email, admin.PasswordHash, admin.CreatedAt, admin.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("admin", admin.Email)
		}
		return fmt.Errorf("sqlite: inserting admin %s: %w", admin.Email, err)
	}
	return nil
}

func (a *AdminDB) GetByID(ctx context.Context, id string) (*model.Admin, error) {
	return a.getOne(ctx, `WHERE id = ?`, id)
}

func (a *AdminDB) FindByEmail(ctx context.Context, email string) (*model.Admin, error) {
	return a.getOne(ctx, `WHERE email = ?`, model.NormalizeEmail(email))
}

func (a *AdminDB) getOne(ctx context.Context, where string, arg string) (*model.Admin, error) {
	var admin model.Admin
	err := a.conn.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, created_at, updated_at FROM admins `+where, arg,
	).Scan(&admin.ID, &admin.Name, &admin.Email, &admin.PasswordHash, &admin.CreatedAt, &admin.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &apperror.AppError{Err: apperror.ErrNotFound, Message: "admin not found"}
		}
		return nil, fmt.Errorf("sqlite: getting admin: %w", err)
	}
	return &admin, nil
}

// AdminProfileDB stores one AdminProfile per admin.
type AdminProfileDB struct {
	conn *sql.DB
}

// RecordLogin inserts the profile or refreshes name, email, legacy id and
// last login on an existing one. created_at is kept from the first login.
// An empty LegacyUserID leaves a previously recorded one in place.
func (p *AdminProfileDB) RecordLogin(ctx context.Context, profile *model.AdminProfile) error {
	now := time.Now().UTC()
	if profile.LastLoginAt.IsZero() {
		profile.LastLoginAt = now
	}
	profile.Email = model.NormalizeEmail(profile.Email)

	_, err := p.conn.ExecContext(ctx,
		`INSERT INTO admin_profiles (admin_id, name, email, legacy_user_id, last_login_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(admin_id) DO UPDATE SET
		     name           = excluded.name,
		     email          = excluded.email,
		     legacy_user_id = COALESCE(excluded.legacy_user_id, admin_profiles.legacy_user_id),
		     last_login_at  = excluded.last_login_at,
		     updated_at     = excluded.updated_at`,
		profile.AdminID, profile.Name, profile.Email, nullString(profile.LegacyUserID),
		profile.LastLoginAt, now, now,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("admin", profile.AdminID)
		}
		return fmt.Errorf("sqlite: recording login of admin %s: %w", profile.AdminID, err)
	}
	return nil
}

func (p *AdminProfileDB) GetByAdminID(ctx context.Context, adminID string) (*model.AdminProfile, error) {
	var (
		profile model.AdminProfile
		legacy  sql.NullString
	)
	err := p.conn.QueryRowContext(ctx,
		`SELECT admin_id, name, email, legacy_user_id, last_login_at, created_at, updated_at
		 FROM admin_profiles WHERE admin_id = ?`, adminID,
	).Scan(&profile.AdminID, &profile.Name, &profile.Email, &legacy,
		&profile.LastLoginAt, &profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("admin profile", adminID)
		}
		return nil, fmt.Errorf("sqlite: getting profile of admin %s: %w", adminID, err)
	}
	profile.LegacyUserID = legacy.String
	return &profile, nil
}
