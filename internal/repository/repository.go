// Package repository declares the storage contracts used by the services.
//
// Lookups that find nothing return an error wrapping apperror.ErrNotFound.
// Writes that would break a uniqueness rule (email, provider link) return an
// error wrapping apperror.ErrConflict. Each method is a single statement or a
// single transaction.
package repository

import (
	"context"

	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// UserRepository stores intern accounts and their provider links.
type UserRepository interface {
	// Create inserts the user together with any ProviderLinks it carries.
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByProviderLink(ctx context.Context, provider model.Provider, subjectID string) (*model.User, error)
	// Update writes name, email, password hash and avatar.
	Update(ctx context.Context, user *model.User) error
	// AddProviderLink attaches a link and, when the user has no avatar yet,
	// stores avatarURL with it. An empty avatarURL changes no profile field.
	AddProviderLink(ctx context.Context, userID string, provider model.Provider, subjectID, avatarURL string) error
	List(ctx context.Context, opts ListOptions) ([]model.User, error)
	Count(ctx context.Context) (int, error)
}

// AdminRepository stores staff accounts.
type AdminRepository interface {
	Create(ctx context.Context, admin *model.Admin) error
	GetByID(ctx context.Context, id string) (*model.Admin, error)
	FindByEmail(ctx context.Context, email string) (*model.Admin, error)
}

// AdminProfileRepository stores the per-admin login side record.
type AdminProfileRepository interface {
	// RecordLogin upserts the profile keyed by AdminID.
	RecordLogin(ctx context.Context, profile *model.AdminProfile) error
	GetByAdminID(ctx context.Context, adminID string) (*model.AdminProfile, error)
}

// LegacyUserDirectory looks up accounts in the legacy user store.
type LegacyUserDirectory interface {
	FindIDByEmail(ctx context.Context, email string) (string, error)
}
