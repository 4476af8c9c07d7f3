package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"sync"
	"testing"
	"time"

	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/apperror"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/auth"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/metrics"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/model"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/repository"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

const testSecret = "test-secret-at-least-16-chars!!"

// fakeUserRepo is an in-memory repository.UserRepository. It enforces the
// same uniqueness rules as the SQLite store: one account per email, one
// owner per (provider, subject), one link per provider per account.
type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[string]*model.User
	order  []string
	nextID int

	// set to simulate storage failures
	lookupErr error
	createErr error
	linkErr   error

	creates int
	links   int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func cloneUser(u *model.User) *model.User {
	c := *u
	c.ProviderLinks = maps.Clone(u.ProviderLinks)
	return &c
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return f.createErr
	}

	user.Email = model.NormalizeEmail(user.Email)
	for _, existing := range f.users {
		if existing.Email == user.Email {
			return apperror.Conflict("user", user.Email)
		}
		for p, sub := range user.ProviderLinks {
			if existing.ProviderLinks[p] == sub {
				return apperror.Conflict("provider link", sub)
			}
		}
	}

	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	f.users[user.ID] = cloneUser(user)
	f.order = append(f.order, user.ID)
	f.creates++
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return cloneUser(u), nil
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	email = model.NormalizeEmail(email)
	for _, u := range f.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeUserRepo) FindByProviderLink(_ context.Context, provider model.Provider, subjectID string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	for _, u := range f.users {
		if sub, ok := u.ProviderLinks[provider]; ok && sub == subjectID {
			return cloneUser(u), nil
		}
	}
	return nil, apperror.NotFound("provider link", subjectID)
}

func (f *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	existing, ok := f.users[user.ID]
	if !ok {
		return apperror.NotFound("user", user.ID)
	}
	existing.Name = user.Name
	existing.Email = user.Email
	existing.PasswordHash = user.PasswordHash
	existing.AvatarURL = user.AvatarURL
	existing.UpdatedAt = time.Now()
	return nil
}

func (f *fakeUserRepo) AddProviderLink(_ context.Context, userID string, provider model.Provider, subjectID, avatarURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.linkErr != nil {
		return f.linkErr
	}
	u, ok := f.users[userID]
	if !ok {
		return apperror.NotFound("user", userID)
	}
	if _, taken := u.ProviderLinks[provider]; taken {
		return apperror.Conflict("provider link", string(provider))
	}
	for _, other := range f.users {
		if other.ProviderLinks[provider] == subjectID {
			return apperror.Conflict("provider link", subjectID)
		}
	}
	if u.ProviderLinks == nil {
		u.ProviderLinks = make(map[model.Provider]string)
	}
	u.ProviderLinks[provider] = subjectID
	if u.AvatarURL == "" {
		u.AvatarURL = avatarURL
	}
	f.links++
	return nil
}

func (f *fakeUserRepo) List(_ context.Context, opts repository.ListOptions) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []model.User
	for i := len(f.order) - 1; i >= 0; i-- {
		out = append(out, *cloneUser(f.users[f.order[i]]))
	}
	if opts.Offset >= len(out) {
		return []model.User{}, nil
	}
	out = out[opts.Offset:]
	if len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (f *fakeUserRepo) Count(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users), nil
}

type fakeAdminRepo struct {
	mu     sync.Mutex
	admins map[string]*model.Admin
	nextID int
}

func newFakeAdminRepo() *fakeAdminRepo {
	return &fakeAdminRepo{admins: make(map[string]*model.Admin)}
}

func (f *fakeAdminRepo) Create(_ context.Context, admin *model.Admin) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	admin.Email = model.NormalizeEmail(admin.Email)
	for _, existing := range f.admins {
		if existing.Email == admin.Email {
			return apperror.Conflict("admin", admin.Email)
		}
	}
	f.nextID++
	admin.ID = fmt.Sprintf("admin-%d", f.nextID)
	admin.CreatedAt = time.Now()
	admin.UpdatedAt = admin.CreatedAt
	c := *admin
	f.admins[admin.ID] = &c
	return nil
}

func (f *fakeAdminRepo) GetByID(_ context.Context, id string) (*model.Admin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.admins[id]
	if !ok {
		return nil, apperror.NotFound("admin", id)
	}
	c := *a
	return &c, nil
}

func (f *fakeAdminRepo) FindByEmail(_ context.Context, email string) (*model.Admin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, a := range f.admins {
		if a.Email == model.NormalizeEmail(email) {
			c := *a
			return &c, nil
		}
	}
	return nil, apperror.NotFound("admin", email)
}

type fakeProfileRepo struct {
	mu        sync.Mutex
	profiles  map[string]*model.AdminProfile
	recordErr error
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: make(map[string]*model.AdminProfile)}
}

func (f *fakeProfileRepo) RecordLogin(_ context.Context, p *model.AdminProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.recordErr != nil {
		return f.recordErr
	}
	c := *p
	if prev, ok := f.profiles[p.AdminID]; ok && c.LegacyUserID == "" {
		c.LegacyUserID = prev.LegacyUserID
	}
	f.profiles[p.AdminID] = &c
	return nil
}

func (f *fakeProfileRepo) GetByAdminID(_ context.Context, adminID string) (*model.AdminProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.profiles[adminID]
	if !ok {
		return nil, apperror.NotFound("admin profile", adminID)
	}
	c := *p
	return &c, nil
}

// fakeLegacyDirectory maps emails to legacy ids. err, when set, is
// returned for every lookup.
type fakeLegacyDirectory struct {
	ids map[string]string
	err error
}

func (f *fakeLegacyDirectory) FindIDByEmail(_ context.Context, email string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	id, ok := f.ids[email]
	if !ok {
		return "", apperror.NotFound("legacy user", email)
	}
	return id, nil
}

// recordingMetrics keeps OAuth outcomes and discards everything else.
type recordingMetrics struct {
	metrics.Nop
	mu    sync.Mutex
	oauth []string
}

func (r *recordingMetrics) OAuthResolved(provider, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.oauth = append(r.oauth, provider+":"+outcome)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestTokens(t *testing.T, opts ...auth.TokenOption) *auth.TokenService {
	t.Helper()
	ts, err := auth.NewTokenService(auth.TokenConfig{Secret: testSecret}, opts...)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

type authFixture struct {
	svc     *AuthService
	users   *fakeUserRepo
	tokens  *auth.TokenService
	metrics *recordingMetrics
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	users := newFakeUserRepo()
	tokens := newTestTokens(t)
	rec := &recordingMetrics{}
	// Cost 4 is bcrypt's minimum and keeps tests fast.
	passwords := auth.NewPasswordServiceForTest(4)
	resolver := NewIdentityResolver(users, rec, discardLogger())

	return &authFixture{
		svc:     NewAuthService(users, tokens, passwords, resolver, rec, discardLogger()),
		users:   users,
		tokens:  tokens,
		metrics: rec,
	}
}
