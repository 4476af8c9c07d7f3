package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "externship", cfg.JWTIssuer)
	assert.Equal(t, 7*24*time.Hour, cfg.UserTokenTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.AdminTokenTTL)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, 10, cfg.AuthRateLimit)
	assert.Empty(t, cfg.LegacyDBPath)
	assert.Equal(t, "http://localhost:8080/api/auth/oauth/github/callback", cfg.GitHub.CallbackURL)
	assert.Empty(t, cfg.GitHub.ClientID)
	assert.Empty(t, cfg.Google.ClientSecret)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("PORT", "9000")
	t.Setenv("JWT_EXPIRES_IN", "12h")
	t.Setenv("ADMIN_JWT_EXPIRES_IN", "2d")
	t.Setenv("SERVER_BASE_URL", "https://api.example.com/")
	t.Setenv("GOOGLE_CLIENT_ID", "gid")
	t.Setenv("GOOGLE_CLIENT_SECRET", "gsecret")
	t.Setenv("AUTH_RATE_LIMIT", "0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 12*time.Hour, cfg.UserTokenTTL)
	assert.Equal(t, 48*time.Hour, cfg.AdminTokenTTL)
	assert.Equal(t, "https://api.example.com", cfg.ServerBaseURL)
	assert.Equal(t, "https://api.example.com/api/auth/oauth/google/callback", cfg.Google.CallbackURL)
	assert.Equal(t, OAuthClient{
		ClientID:     "gid",
		ClientSecret: "gsecret",
		CallbackURL:  "https://api.example.com/api/auth/oauth/google/callback",
	}, cfg.Google)
	assert.Equal(t, 0, cfg.AuthRateLimit)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}},
		{"short secret", map[string]string{"JWT_SECRET": "short"}},
		{"bad duration", map[string]string{"JWT_SECRET": testSecret, "JWT_EXPIRES_IN": "forever"}},
		{"bad cost", map[string]string{"JWT_SECRET": testSecret, "BCRYPT_COST": "high"}},
		{"negative burst", map[string]string{"JWT_SECRET": testSecret, "AUTH_RATE_BURST": "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"7d", 7 * 24 * time.Hour, false},
		{"30d", 30 * 24 * time.Hour, false},
		{"90m", 90 * time.Minute, false},
		{" 1h ", time.Hour, false},
		{"0d", 0, true},
		{"-5m", 0, true},
		{"1.5d", 0, true},
		{"d", 0, true},
		{"", 0, true},
		{"106751d", 106751 * 24 * time.Hour, false},
		{"106752d", 0, true},
		{"999999d", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
