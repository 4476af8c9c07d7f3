// Package model defines the data structures used throughout the application.
package model

import (
	"strings"
	"time"
)

// Provider names an external OAuth identity provider.
type Provider string

const (
	ProviderGitHub Provider = "github"
	ProviderGoogle Provider = "google"
)

// ParseProvider maps a route parameter to a known Provider.
func ParseProvider(s string) (Provider, bool) {
	switch p := Provider(strings.ToLower(s)); p {
	case ProviderGitHub, ProviderGoogle:
		return p, true
	}
	return "", false
}

// DisplayName is the fallback account name used when a provider returns
// neither a display name nor a username.
func (p Provider) DisplayName() string {
	switch p {
	case ProviderGitHub:
		return "GitHub User"
	case ProviderGoogle:
		return "Google User"
	}
	return "User"
}

// User is an intern account.
//
// CREDENTIALS:
// A user may hold a password credential, one or more provider links, or both.
// PasswordHash is empty for accounts that were created through OAuth; such
// accounts can never pass a password login.
//
// ProviderLinks maps a provider to the subject id that provider asserted.
// Storage enforces that a (provider, subject) pair belongs to at most one user
// and that a user has at most one link per provider.
type User struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Email         string              `json:"email"`
	PasswordHash  string              `json:"-"`
	AvatarURL     string              `json:"avatarUrl,omitempty"`
	ProviderLinks map[Provider]string `json:"providers,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

// HasPassword reports whether the account holds a password credential.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// HasProviderLink reports whether any provider has been linked to the account.
func (u *User) HasProviderLink() bool {
	return len(u.ProviderLinks) > 0
}

func (u *User) Principal() Principal {
	return Principal{ID: u.ID, Email: u.Email, Name: u.Name, Role: RoleUser}
}

// NormalizeEmail trims and lower-cases an email address. Every lookup and
// every stored email goes through it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
