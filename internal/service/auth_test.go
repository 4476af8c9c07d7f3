package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/apperror"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/auth"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/model"
)

// =========================================================================
// REGISTER TESTS
// =========================================================================

func TestRegister_Success(t *testing.T) {
	f := newAuthFixture(t)

	res, err := f.svc.Register(context.Background(), "  Alice ", "alice@x.com", "pw123456")
	require.NoError(t, err)

	assert.Equal(t, "Alice", res.User.Name)
	assert.Equal(t, "alice@x.com", res.User.Email)
	assert.NotEqual(t, "pw123456", res.User.PasswordHash)
	assert.True(t, res.User.HasPassword())

	claims, err := f.tokens.Verify(res.Token.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.Subject)
	assert.Equal(t, model.RoleUser, claims.Role)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), res.Token.ExpiresAt, time.Minute)
}

func TestRegister_CaseInsensitiveDuplicate(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "Alice", "alice@x.com", "pw123456")
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, "Alice2", "ALICE@X.com", "other")
	assert.ErrorIs(t, err, apperror.ErrEmailAlreadyRegistered)
	assert.ErrorIs(t, err, apperror.ErrConflict)
	assert.Equal(t, 1, f.users.creates)
}

func TestRegister_StorageRaceMapsToEmailAlreadyRegistered(t *testing.T) {
	f := newAuthFixture(t)
	f.users.createErr = apperror.Conflict("user", "alice@x.com")

	_, err := f.svc.Register(context.Background(), "Alice", "alice@x.com", "pw123456")
	assert.ErrorIs(t, err, apperror.ErrEmailAlreadyRegistered)
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name      string
		userName  string
		email     string
		password  string
		wantField string
	}{
		{"empty name", "   ", "a@x.com", "pw", "name"},
		{"empty email", "A", "  ", "pw", "email"},
		{"malformed email", "A", "not-an-email", "pw", "email"},
		{"empty password", "A", "a@x.com", "", "password"},
		{"blank password", "A", "a@x.com", "    ", "password"},
		{"password over 72 bytes", "A", "a@x.com", strings.Repeat("p", 73), "password"},
		{"name too long", strings.Repeat("n", 101), "a@x.com", "pw", "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)

			_, err := f.svc.Register(context.Background(), tt.userName, tt.email, tt.password)
			require.ErrorIs(t, err, apperror.ErrValidation)

			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantField, appErr.Field)
			assert.Zero(t, f.users.creates)
		})
	}
}

func TestRegister_ConcurrentSameEmailOnlyOneWins(t *testing.T) {
	f := newAuthFixture(t)

	const racers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Register(context.Background(), fmt.Sprintf("racer-%d", i), "Race@X.com", "pw123456")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, apperror.ErrEmailAlreadyRegistered):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, racers-1, conflicts)
}

// =========================================================================
// LOGIN TESTS
// =========================================================================

func TestLogin_Success(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	reg, err := f.svc.Register(ctx, "Alice", "alice@x.com", "pw123456")
	require.NoError(t, err)

	res, err := f.svc.Login(ctx, " ALICE@x.com", "pw123456")
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, res.User.ID)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), res.Token.ExpiresAt, time.Minute)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, "Alice", "real@x.com", "pw123456")
	require.NoError(t, err)
	require.NoError(t, f.users.Create(ctx, &model.User{
		Name:          "Oauth Only",
		Email:         "oauth@x.com",
		ProviderLinks: map[model.Provider]string{model.ProviderGitHub: "gh-1"},
	}))

	_, missing := f.svc.Login(ctx, "nonexistent@x.com", "anything")
	_, wrong := f.svc.Login(ctx, "real@x.com", "wrongpassword")
	_, noPassword := f.svc.Login(ctx, "oauth@x.com", "anything")

	for name, err := range map[string]error{"missing": missing, "wrong": wrong, "no password": noPassword} {
		assert.ErrorIs(t, err, apperror.ErrInvalidCredentials, name)
		assert.ErrorIs(t, err, apperror.ErrUnauthorized, name)
	}
	assert.Equal(t, missing, wrong)
	assert.Equal(t, missing, noPassword)
}

func TestLogin_StorageErrorIsNotUnauthorized(t *testing.T) {
	f := newAuthFixture(t)
	f.users.lookupErr = errors.New("disk on fire")

	_, err := f.svc.Login(context.Background(), "alice@x.com", "pw")
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperror.ErrUnauthorized)
}

// =========================================================================
// ME + CHANGE PASSWORD TESTS
// =========================================================================

func TestMe(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	reg, err := f.svc.Register(ctx, "Alice", "alice@x.com", "pw123456")
	require.NoError(t, err)

	me, err := f.svc.Me(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", me.Email)

	_, err = f.svc.Me(ctx, "deleted")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestChangePassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	reg, err := f.svc.Register(ctx, "Alice", "alice@x.com", "old-pass")
	require.NoError(t, err)

	require.NoError(t, f.svc.ChangePassword(ctx, reg.User.ID, "old-pass", "new-pass"))

	_, err = f.svc.Login(ctx, "alice@x.com", "old-pass")
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "alice@x.com", "new-pass")
	assert.NoError(t, err)
}

func TestChangePassword_Rejections(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	reg, err := f.svc.Register(ctx, "Alice", "alice@x.com", "old-pass")
	require.NoError(t, err)
	oauthUser := &model.User{Name: "Bob", Email: "bob@x.com", ProviderLinks: map[model.Provider]string{model.ProviderGoogle: "g-1"}}
	require.NoError(t, f.users.Create(ctx, oauthUser))

	tests := []struct {
		name    string
		id      string
		current string
		next    string
		want    error
	}{
		{"wrong current password", reg.User.ID, "nope", "new-pass", apperror.ErrInvalidCredentials},
		{"empty new password", reg.User.ID, "old-pass", "", apperror.ErrValidation},
		{"new password too long", reg.User.ID, "old-pass", strings.Repeat("x", 73), apperror.ErrValidation},
		{"oauth-only account", oauthUser.ID, "", "new-pass", apperror.ErrValidation},
		{"unknown account", "ghost", "old-pass", "new-pass", apperror.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.svc.ChangePassword(ctx, tt.id, tt.current, tt.next)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err = f.svc.Login(ctx, "alice@x.com", "old-pass")
	assert.NoError(t, err, "rejected changes must leave the password alone")
}

// =========================================================================
// OAUTH LOGIN TESTS
// =========================================================================

func TestLoginWithOAuth_IssuesUserToken(t *testing.T) {
	f := newAuthFixture(t)

	res, outcome, err := f.svc.LoginWithOAuth(context.Background(), auth.OAuthIdentity{
		Provider:  model.ProviderGitHub,
		SubjectID: "gh-999",
		Email:     "bob@x.com",
		Username:  "bobby",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)

	claims, err := f.tokens.Verify(res.Token.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.Subject)
	assert.Equal(t, "bob@x.com", claims.Email)
}

func TestLoginWithOAuth_ResolutionFailure(t *testing.T) {
	f := newAuthFixture(t)
	f.users.createErr = errors.New("database is locked")

	res, _, err := f.svc.LoginWithOAuth(context.Background(), auth.OAuthIdentity{
		Provider:  model.ProviderGoogle,
		SubjectID: "g-1",
		Email:     "x@x.com",
	})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, apperror.ErrIdentityResolution)
	assert.NotContains(t, err.Error(), "database is locked")
}
