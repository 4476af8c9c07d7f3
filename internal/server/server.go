// Package server is the composition root: it opens storage, builds the
// services and guards, and mounts every route.
//
// DEPENDENCY FLOW:
//
//	config.Config
//	   → sqlite.DB (+ optional legacy directory)
//	   → TokenService, PasswordService, OAuth providers
//	   → IdentityResolver, AuthService, AdminService
//	   → handlers, guards, rate limiter
//	   → chi router
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/auth"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/config"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/handler"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/metrics"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/middleware"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/model"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/repository"
	sqliteRepo "github.com/Shweta-Tech-creator/Externship-Webapp/internal/repository/sqlite"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/service"
)

// Server owns the router and every resource that must be released on
// shutdown.
type Server struct {
	router   *chi.Mux
	cfg      *config.Config
	logger   *slog.Logger
	db       *sqliteRepo.DB
	legacy   *sqliteRepo.LegacyDirectory // nil when LEGACY_DB_PATH is unset
	limiter  *middleware.RateLimiter     // nil when rate limiting is off
	registry *prometheus.Registry
}

// New opens storage and wires the whole dependency graph.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg.DBPath != sqliteRepo.MemoryPath {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:   chi.NewRouter(),
		cfg:      cfg,
		logger:   logger,
		db:       db,
		registry: prometheus.NewRegistry(),
	}

	if cfg.LegacyDBPath != "" {
		legacy, err := sqliteRepo.OpenLegacyDirectory(cfg.LegacyDBPath)
		if err != nil {
			logger.Warn("legacy user directory unavailable, admin logins will not be cross-referenced",
				slog.String("path", cfg.LegacyDBPath),
				slog.String("error", err.Error()),
			)
		} else {
			s.legacy = legacy
		}
	}

	if err := s.setupRoutes(); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) setupRoutes() error {
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(s.registry)

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret:   s.cfg.JWTSecret,
		Issuer:   s.cfg.JWTIssuer,
		UserTTL:  s.cfg.UserTokenTTL,
		AdminTTL: s.cfg.AdminTokenTTL,
	})
	if err != nil {
		return err
	}
	passwords, err := auth.NewPasswordService(s.cfg.BcryptCost)
	if err != nil {
		return err
	}

	providers := auth.NewProviders(
		auth.OAuthClientConfig{
			ClientID:     s.cfg.GitHub.ClientID,
			ClientSecret: s.cfg.GitHub.ClientSecret,
			CallbackURL:  s.cfg.GitHub.CallbackURL,
		},
		auth.OAuthClientConfig{
			ClientID:     s.cfg.Google.ClientID,
			ClientSecret: s.cfg.Google.ClientSecret,
			CallbackURL:  s.cfg.Google.CallbackURL,
		},
	)
	for _, p := range []model.Provider{model.ProviderGitHub, model.ProviderGoogle} {
		if _, ok := providers.Get(p); !ok {
			s.logger.Info("oauth provider disabled, no client credentials", slog.String("provider", string(p)))
		}
	}

	users := s.db.Users()
	var legacy repository.LegacyUserDirectory
	if s.legacy != nil {
		legacy = s.legacy
	}

	resolver := service.NewIdentityResolver(users, collector, s.logger)
	authService := service.NewAuthService(users, tokens, passwords, resolver, collector, s.logger)
	adminService := service.NewAdminService(service.AdminDeps{
		Admins:    s.db.Admins(),
		Profiles:  s.db.AdminProfiles(),
		Legacy:    legacy,
		Users:     users,
		Tokens:    tokens,
		Passwords: passwords,
		Metrics:   collector,
		Logger:    s.logger,
	})

	authHandler := handler.NewAuthHandler(authService, providers, s.cfg.OAuthRedirectOrigin, s.logger)
	adminHandler := handler.NewAdminHandler(adminService, s.logger)

	userGuard := auth.NewGuard("user", tokens, auth.TrustClaims{Role: model.RoleUser}, s.logger, collector)
	adminGuard := auth.NewGuard("admin", tokens, auth.ReverifyAgainstStore{Admins: s.db.Admins()}, s.logger, collector)

	// Credential endpoints are throttled per client IP.
	throttle := func(next http.Handler) http.Handler { return next }
	if s.cfg.AuthRateLimit > 0 {
		burst := s.cfg.AuthRateBurst
		if burst <= 0 {
			burst = s.cfg.AuthRateLimit
		}
		limits := middleware.DefaultRateLimiterConfig()
		limits.Rate = rate.Limit(float64(s.cfg.AuthRateLimit) / 60.0)
		limits.Burst = burst
		s.limiter = middleware.NewRateLimiter(limits, s.logger)
		throttle = s.limiter.Middleware
	}

	// RequestID must run before the logger, and RealIP before the limiter
	// keys on RemoteAddr.
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", metrics.Handler(s.registry))

	s.router.Route("/api/auth", func(r chi.Router) {
		r.With(throttle).Post("/register", authHandler.HandleRegister)
		r.With(throttle).Post("/login", authHandler.HandleLogin)

		r.Get("/oauth/{provider}", authHandler.HandleOAuthStart)
		r.Get("/oauth/{provider}/callback", authHandler.HandleOAuthCallback)

		r.Group(func(r chi.Router) {
			r.Use(userGuard.Require)
			r.Get("/me", authHandler.HandleMe)
			r.Post("/change-password", authHandler.HandleChangePassword)
		})
	})

	s.router.Route("/api/admin", func(r chi.Router) {
		r.With(throttle).Post("/register", adminHandler.HandleRegister)
		r.With(throttle).Post("/login", adminHandler.HandleLogin)

		r.Group(func(r chi.Router) {
			r.Use(adminGuard.Require)
			r.Get("/profile", adminHandler.HandleProfile)
			r.Get("/legacy-user", adminHandler.HandleLegacyUser)
			r.Get("/users", adminHandler.HandleListUsers)
			r.Get("/users/count", adminHandler.HandleCountUsers)
		})
	})

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the rate limiter and both databases.
func (s *Server) Close() error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	var errs []error
	if s.legacy != nil {
		errs = append(errs, s.legacy.Close())
	}
	errs = append(errs, s.db.Close())
	return errors.Join(errs...)
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for
// up to 30 seconds and closes storage.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.String("addr", srv.Addr),
			slog.String("database", s.cfg.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
