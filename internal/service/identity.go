package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/rs/xid"

	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/apperror"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/auth"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/metrics"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/model"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/repository"
)

// Outcome says which step of the resolution chain produced the account.
type Outcome string

const (
	OutcomeMatched Outcome = "matched" // provider link already existed
	OutcomeLinked  Outcome = "linked"  // link attached to an unlinked account with the same email
	OutcomeCreated Outcome = "created" // brand new account
)

// IdentityResolver maps a provider-asserted identity to exactly one User.
//
// RESOLUTION ORDER (first match wins):
//  1. a user already linked to (provider, subject) is returned unchanged,
//     whatever email the provider asserts now
//  2. a user with the asserted email and no provider link of any kind gets
//     the link attached
//  3. otherwise a new user is created carrying the link
//
// A user that already has any provider link is never linked by email, so an
// account linked to GitHub cannot be taken over through a Google account that
// claims the same address.
type IdentityResolver struct {
	users   repository.UserRepository
	metrics metrics.Recorder
	logger  *slog.Logger
}

func NewIdentityResolver(users repository.UserRepository, recorder metrics.Recorder, logger *slog.Logger) *IdentityResolver {
	return &IdentityResolver{users: users, metrics: recorder, logger: logger}
}

// identitySnapshot holds every lookup the decision needs, taken before
// deciding anything. placeholder is the free address a created account
// would get when the asserted email cannot be used.
type identitySnapshot struct {
	byLink      *model.User
	byEmail     *model.User
	placeholder string
}

type resolution struct {
	outcome Outcome
	user    *model.User
}

// Resolve runs the lookups, decides, and performs at most one write.
// Every failure, including losing a uniqueness race to a concurrent
// callback, is reported as apperror.ErrIdentityResolution.
func (r *IdentityResolver) Resolve(ctx context.Context, id auth.OAuthIdentity) (*model.User, Outcome, error) {
	user, outcome, err := r.resolve(ctx, id)
	if err != nil {
		r.metrics.OAuthResolved(string(id.Provider), "failed")
		r.logger.Error("identity resolution failed",
			slog.String("provider", string(id.Provider)),
			slog.String("subject", id.SubjectID),
			slog.String("error", err.Error()),
		)
		return nil, "", apperror.IdentityResolutionFailed(err)
	}

	r.metrics.OAuthResolved(string(id.Provider), string(outcome))
	r.logger.Info("oauth identity resolved",
		slog.String("provider", string(id.Provider)),
		slog.String("userID", user.ID),
		slog.String("outcome", string(outcome)),
	)
	return user, outcome, nil
}

func (r *IdentityResolver) resolve(ctx context.Context, id auth.OAuthIdentity) (*model.User, Outcome, error) {
	if _, ok := model.ParseProvider(string(id.Provider)); !ok {
		return nil, "", fmt.Errorf("unknown provider %q", id.Provider)
	}
	if strings.TrimSpace(id.SubjectID) == "" {
		return nil, "", errors.New("provider returned no subject id")
	}

	snap, err := r.snapshot(ctx, id)
	if err != nil {
		return nil, "", err
	}

	res := decide(id, snap)

	switch res.outcome {
	case OutcomeLinked:
		avatar := strings.TrimSpace(id.AvatarURL)
		if err := r.users.AddProviderLink(ctx, res.user.ID, id.Provider, id.SubjectID, avatar); err != nil {
			return nil, "", fmt.Errorf("linking %s to user %s: %w", id.Provider, res.user.ID, err)
		}
		links := maps.Clone(res.user.ProviderLinks)
		if links == nil {
			links = make(map[model.Provider]string, 1)
		}
		links[id.Provider] = id.SubjectID
		res.user.ProviderLinks = links
		if res.user.AvatarURL == "" {
			res.user.AvatarURL = avatar
		}
	case OutcomeCreated:
		if err := r.users.Create(ctx, res.user); err != nil {
			return nil, "", fmt.Errorf("creating user for %s subject %s: %w", id.Provider, id.SubjectID, err)
		}
	}

	return res.user, res.outcome, nil
}

func (r *IdentityResolver) snapshot(ctx context.Context, id auth.OAuthIdentity) (identitySnapshot, error) {
	var snap identitySnapshot

	u, err := r.users.FindByProviderLink(ctx, id.Provider, id.SubjectID)
	switch {
	case err == nil:
		snap.byLink = u
	case !errors.Is(err, apperror.ErrNotFound):
		return snap, fmt.Errorf("looking up provider link: %w", err)
	}

	email := model.NormalizeEmail(id.Email)
	if email != "" {
		u, err := r.users.FindByEmail(ctx, email)
		switch {
		case err == nil:
			snap.byEmail = u
		case !errors.Is(err, apperror.ErrNotFound):
			return snap, fmt.Errorf("looking up email: %w", err)
		}
	}

	needsPlaceholder := snap.byLink == nil &&
		(email == "" || (snap.byEmail != nil && snap.byEmail.HasProviderLink()))
	if !needsPlaceholder {
		return snap, nil
	}

	// A password account may already hold the noreply address.
	snap.placeholder = placeholderEmail(id)
	_, err = r.users.FindByEmail(ctx, snap.placeholder)
	switch {
	case err == nil:
		snap.placeholder = uniquePlaceholderEmail(snap.placeholder)
	case !errors.Is(err, apperror.ErrNotFound):
		return snap, fmt.Errorf("looking up placeholder email: %w", err)
	}

	return snap, nil
}

// decide is the pure part of resolution. It never touches storage.
func decide(id auth.OAuthIdentity, snap identitySnapshot) resolution {
	if snap.byLink != nil {
		return resolution{outcome: OutcomeMatched, user: snap.byLink}
	}

	if snap.byEmail != nil && !snap.byEmail.HasProviderLink() {
		return resolution{outcome: OutcomeLinked, user: snap.byEmail}
	}

	email := model.NormalizeEmail(id.Email)
	if email == "" || snap.byEmail != nil {
		email = snap.placeholder
	}

	return resolution{
		outcome: OutcomeCreated,
		user: &model.User{
			Name:          displayName(id),
			Email:         email,
			AvatarURL:     id.AvatarURL,
			ProviderLinks: map[model.Provider]string{id.Provider: id.SubjectID},
		},
	}
}

// placeholderEmail is used when the provider gave no email or the one it
// gave already belongs to another account. It is distinct for every
// (provider, subject) pair.
func placeholderEmail(id auth.OAuthIdentity) string {
	subject := placeholderSubject(id.SubjectID)
	switch id.Provider {
	case model.ProviderGitHub:
		if u := strings.ToLower(strings.TrimSpace(id.Username)); u != "" {
			return fmt.Sprintf("%s+%s@users.noreply.github.com", subject, u)
		}
		return subject + "@users.noreply.github.com"
	default:
		return fmt.Sprintf("%s@users.noreply.%s.com", subject, id.Provider)
	}
}

// placeholderSubject keeps subjects made of lower-case letters, digits, '_'
// and '-' as they are. Anything else is hex encoded behind an "h." prefix:
// emails compare case-insensitively, and '.' never appears in a kept
// subject, so two subjects never share a result.
func placeholderSubject(subject string) string {
	subject = strings.TrimSpace(subject)
	for _, c := range subject {
		if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_' || c == '-') {
			return "h." + hex.EncodeToString([]byte(subject))
		}
	}
	return subject
}

// uniquePlaceholderEmail adds a random xid to a placeholder that is already
// taken.
func uniquePlaceholderEmail(placeholder string) string {
	local, domain, _ := strings.Cut(placeholder, "@")
	return local + "." + xid.New().String() + "@" + domain
}

func displayName(id auth.OAuthIdentity) string {
	if n := strings.TrimSpace(id.DisplayName); n != "" {
		return n
	}
	if n := strings.TrimSpace(id.Username); n != "" {
		return n
	}
	return id.Provider.DisplayName()
}
