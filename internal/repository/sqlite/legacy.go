package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/apperror"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/model"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/repository"
)

var _ repository.LegacyUserDirectory = (*LegacyDirectory)(nil)

// LegacyDirectory reads the users table of the legacy user database. The
// file is opened read-only and never migrated; it must already contain
// users(id, email).
type LegacyDirectory struct {
	conn *sql.DB
}

func OpenLegacyDirectory(path string) (*LegacyDirectory, error) {
	conn, err := sql.Open("sqlite", "file:"+path+"?mode=ro&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening legacy directory: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging legacy directory: %w", err)
	}
	return &LegacyDirectory{conn: conn}, nil
}

// FindIDByEmail returns the legacy account id registered under email.
func (l *LegacyDirectory) FindIDByEmail(ctx context.Context, email string) (string, error) {
	var id string
	err := l.conn.QueryRowContext(ctx,
		`SELECT id FROM users WHERE lower(email) = ? LIMIT 1`, model.NormalizeEmail(email),
	).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", &apperror.AppError{Err: apperror.ErrNotFound, Message: "legacy user not found"}
		}
		return "", fmt.Errorf("sqlite: looking up legacy user: %w", err)
	}
	return id, nil
}

func (l *LegacyDirectory) Close() error {
	return l.conn.Close()
}
