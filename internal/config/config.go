// Package config reads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// OAuthClient holds one provider's registered application. Leaving either
// credential empty disables the provider.
type OAuthClient struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

// Config holds all application configuration. It is built once by Load and
// not modified afterwards.
type Config struct {
	Port         string
	DBPath       string
	LegacyDBPath string // empty disables the legacy user lookup
	LogLevel     string
	LogFormat    string

	JWTSecret     string
	JWTIssuer     string
	UserTokenTTL  time.Duration
	AdminTokenTTL time.Duration
	BcryptCost    int

	ServerBaseURL       string
	OAuthRedirectOrigin string
	GitHub              OAuthClient
	Google              OAuthClient

	AuthRateLimit int // requests per minute per client IP; 0 disables
	AuthRateBurst int
}

// Load reads configuration from environment variables with defaults.
// A .env file in the working directory is loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var errs []error

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		DBPath:       getEnv("DB_PATH", "externship.db"),
		LegacyDBPath: getEnv("LEGACY_DB_PATH", ""),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "pretty"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTIssuer: getEnv("JWT_ISSUER", "externship"),

		ServerBaseURL:       strings.TrimRight(getEnv("SERVER_BASE_URL", "http://localhost:8080"), "/"),
		OAuthRedirectOrigin: strings.TrimRight(getEnv("OAUTH_REDIRECT_ORIGIN", "http://localhost:5173"), "/"),
	}

	if len(cfg.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be set to at least 16 characters"))
	}

	var err error
	if cfg.UserTokenTTL, err = getEnvDuration("JWT_EXPIRES_IN", 7*24*time.Hour); err != nil {
		errs = append(errs, err)
	}
	if cfg.AdminTokenTTL, err = getEnvDuration("ADMIN_JWT_EXPIRES_IN", 30*24*time.Hour); err != nil {
		errs = append(errs, err)
	}
	if cfg.BcryptCost, err = getEnvInt("BCRYPT_COST", 12); err != nil {
		errs = append(errs, err)
	}
	if cfg.AuthRateLimit, err = getEnvInt("AUTH_RATE_LIMIT", 10); err != nil {
		errs = append(errs, err)
	}
	if cfg.AuthRateBurst, err = getEnvInt("AUTH_RATE_BURST", 10); err != nil {
		errs = append(errs, err)
	}

	cfg.GitHub = OAuthClient{
		ClientID:     os.Getenv("GITHUB_CLIENT_ID"),
		ClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
		CallbackURL:  getEnv("GITHUB_CALLBACK_URL", cfg.ServerBaseURL+"/api/auth/oauth/github/callback"),
	}
	cfg.Google = OAuthClient{
		ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		CallbackURL:  getEnv("GOOGLE_CALLBACK_URL", cfg.ServerBaseURL+"/api/auth/oauth/google/callback"),
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s: %q is not a non-negative integer", key, v)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

const (
	day             = 24 * time.Hour
	maxDurationDays = math.MaxInt64 / int64(day)
)

// ParseDuration accepts time.ParseDuration syntax plus a whole-day form
// such as "7d". The result must be positive.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)

	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.ParseInt(days, 10, 64)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		if n > maxDurationDays {
			return 0, fmt.Errorf("duration %q is too long", s)
		}
		return time.Duration(n) * day, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration %q must be positive", s)
	}
	return d, nil
}
