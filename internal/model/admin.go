package model

import "time"

// Admin is a staff account. Admins live in their own namespace: an admin
// email may also exist as a User email, and the two never collide.
type Admin struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (a *Admin) Principal() Principal {
	return Principal{ID: a.ID, Email: a.Email, Name: a.Name, Role: RoleAdmin}
}

// AdminProfile is the side record refreshed on every successful admin login.
// LegacyUserID cross-references the admin's account in the legacy user
// directory when one with the same email exists.
type AdminProfile struct {
	AdminID      string    `json:"adminId"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	LegacyUserID string    `json:"legacyUserId,omitempty"`
	LastLoginAt  time.Time `json:"lastLoginAt"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
