// Command create-admin bootstraps a staff account from the terminal.
//
//	create-admin -name "Ops" -email ops@example.com
//
// Missing flags are prompted for. The password is always read without echo
// when stdin is a terminal, or as the first line of stdin otherwise.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/apperror"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/auth"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/config"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/logger"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/metrics"
	sqliteRepo "github.com/Shweta-Tech-creator/Externship-Webapp/internal/repository/sqlite"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/service"
)

func main() {
	name := flag.String("name", "", "admin display name")
	email := flag.String("email", "", "admin email address")
	flag.Parse()

	if err := run(*name, *email); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(name, email string) error {
	// ─── Configuration ─────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}
	log := logger.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	// ─── Input ─────────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)
	if name == "" {
		if name, err = prompt(reader, "Name: "); err != nil {
			return err
		}
	}
	if email == "" {
		if email, err = prompt(reader, "Email: "); err != nil {
			return err
		}
	}
	password, err := readPassword(reader)
	if err != nil {
		return err
	}

	// ─── Storage and services ──────────────────────────────────────────
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		UserTTL:  cfg.UserTokenTTL,
		AdminTTL: cfg.AdminTokenTTL,
	})
	if err != nil {
		return err
	}
	passwords, err := auth.NewPasswordService(cfg.BcryptCost)
	if err != nil {
		return err
	}

	admins := service.NewAdminService(service.AdminDeps{
		Admins:    db.Admins(),
		Profiles:  db.AdminProfiles(),
		Users:     db.Users(),
		Tokens:    tokens,
		Passwords: passwords,
		Metrics:   metrics.Nop{},
		Logger:    log,
	})

	res, err := admins.Register(context.Background(), name, email, password)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.Cause == nil {
			return errors.New(appErr.Message)
		}
		return err
	}

	fmt.Printf("Admin %q (%s) created with id %s\n", res.Admin.Name, res.Admin.Email, res.Admin.ID)
	return nil
}

func prompt(r *bufio.Reader, label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading %s: %w", strings.TrimSuffix(label, ": "), err)
	}
	return strings.TrimSpace(line), nil
}

func readPassword(r *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := r.ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	fmt.Fprint(os.Stderr, "Confirm password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}
