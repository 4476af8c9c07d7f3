package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/apperror"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/auth"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/metrics"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/model"
)

type adminFixture struct {
	svc      *AdminService
	admins   *fakeAdminRepo
	profiles *fakeProfileRepo
	legacy   *fakeLegacyDirectory
	users    *fakeUserRepo
	tokens   *auth.TokenService
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()

	f := &adminFixture{
		admins:   newFakeAdminRepo(),
		profiles: newFakeProfileRepo(),
		legacy:   &fakeLegacyDirectory{ids: map[string]string{"ops@x.com": "legacy-42"}},
		users:    newFakeUserRepo(),
		tokens:   newTestTokens(t),
	}
	f.svc = NewAdminService(AdminDeps{
		Admins:    f.admins,
		Profiles:  f.profiles,
		Legacy:    f.legacy,
		Users:     f.users,
		Tokens:    f.tokens,
		Passwords: auth.NewPasswordServiceForTest(4),
		Metrics:   metrics.Nop{},
		Logger:    discardLogger(),
	})
	return f
}

// ===== REGISTER + LOGIN =====

func TestAdminRegister(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	res, err := f.svc.Register(ctx, "Ops", "Ops@X.com", "admin-pass")
	require.NoError(t, err)
	assert.Equal(t, "ops@x.com", res.Admin.Email)

	claims, err := f.tokens.Verify(res.Token.Token)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, claims.Role)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), res.Token.ExpiresAt, time.Minute)

	_, err = f.svc.Register(ctx, "Ops 2", "ops@x.com", "other-pass")
	assert.ErrorIs(t, err, apperror.ErrEmailAlreadyRegistered)

	_, err = f.svc.Register(ctx, "", "bad", "")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestAdminRegister_IgnoresUserNamespace(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	require.NoError(t, f.users.Create(ctx, &model.User{Name: "Intern", Email: "ops@x.com"}))

	_, err := f.svc.Register(ctx, "Ops", "ops@x.com", "admin-pass")
	assert.NoError(t, err)
}

func TestAdminLogin_RecordsProfile(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	reg, err := f.svc.Register(ctx, "Ops", "ops@x.com", "admin-pass")
	require.NoError(t, err)

	loginAt := time.Date(2026, 5, 1, 8, 30, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return loginAt }

	res, err := f.svc.Login(ctx, "OPS@x.com", "admin-pass")
	require.NoError(t, err)
	assert.Equal(t, reg.Admin.ID, res.Admin.ID)

	view, err := f.svc.Profile(ctx, reg.Admin.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Profile)
	assert.Equal(t, loginAt, view.Profile.LastLoginAt)
	assert.Equal(t, "legacy-42", view.Profile.LegacyUserID)
	assert.Equal(t, "Ops", view.Admin.Name)

	legacyID, err := f.svc.LinkedLegacyUser(ctx, reg.Admin.ID)
	require.NoError(t, err)
	assert.Equal(t, "legacy-42", legacyID)
}

func TestAdminLogin_InvalidCredentials(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, "Ops", "ops@x.com", "admin-pass")
	require.NoError(t, err)

	_, missing := f.svc.Login(ctx, "nobody@x.com", "admin-pass")
	_, wrong := f.svc.Login(ctx, "ops@x.com", "nope")

	assert.ErrorIs(t, missing, apperror.ErrInvalidCredentials)
	assert.Equal(t, missing, wrong)
	assert.Empty(t, f.profiles.profiles, "failed logins record nothing")
}

func TestAdminLogin_LegacyFailureIsIgnored(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	reg, err := f.svc.Register(ctx, "Ops", "ops@x.com", "admin-pass")
	require.NoError(t, err)
	f.legacy.err = errors.New("legacy db unavailable")

	_, err = f.svc.Login(ctx, "ops@x.com", "admin-pass")
	require.NoError(t, err)

	_, err = f.svc.LinkedLegacyUser(ctx, reg.Admin.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestAdminLogin_WithoutLegacyDirectory(t *testing.T) {
	f := newAdminFixture(t)
	f.svc.legacy = nil
	ctx := context.Background()
	_, err := f.svc.Register(ctx, "Ops", "ops@x.com", "admin-pass")
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, "ops@x.com", "admin-pass")
	assert.NoError(t, err)
}

func TestAdminLogin_ProfileWriteFailureIsServerError(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, "Ops", "ops@x.com", "admin-pass")
	require.NoError(t, err)
	f.profiles.recordErr = errors.New("readonly database")

	res, err := f.svc.Login(ctx, "ops@x.com", "admin-pass")
	assert.Nil(t, res)
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperror.ErrUnauthorized)
}

// ===== CONSOLE READS =====

func TestAdminProfile_BeforeFirstLogin(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	reg, err := f.svc.Register(ctx, "Ops", "ops@x.com", "admin-pass")
	require.NoError(t, err)

	view, err := f.svc.Profile(ctx, reg.Admin.ID)
	require.NoError(t, err)
	assert.Nil(t, view.Profile)

	_, err = f.svc.LinkedLegacyUser(ctx, reg.Admin.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = f.svc.Profile(ctx, "gone")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestAdminListAndCountUsers(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	for i := 0; i < 130; i++ {
		require.NoError(t, f.users.Create(ctx, &model.User{Name: fmt.Sprintf("u%d", i), Email: fmt.Sprintf("u%d@x.com", i)}))
	}

	n, err := f.svc.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 130, n)

	tests := []struct {
		name          string
		limit, offset int
		wantLen       int
		wantFirst     string
	}{
		{"default page", 0, 0, 20, "u129"},
		{"capped page", 500, 0, 100, "u129"},
		{"second page", 10, 10, 10, "u119"},
		{"negative offset", 5, -3, 5, "u129"},
		{"past the end", 10, 200, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, err := f.svc.ListUsers(ctx, tt.limit, tt.offset)
			require.NoError(t, err)
			require.Len(t, users, tt.wantLen)
			if tt.wantFirst != "" {
				assert.Equal(t, tt.wantFirst, users[0].Name)
			}
		})
	}
}
