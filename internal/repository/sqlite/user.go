package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/apperror"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/model"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/repository"
)

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

// UserDB stores intern accounts in the users and user_provider_links tables.
type UserDB struct {
	conn *sql.DB
}

const userColumns = `id, name, email, password_hash, avatar_url, created_at, updated_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u    model.User
		hash sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &hash, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.PasswordHash = hash.String
	return &u, nil
}

// Create inserts user and its provider links in one transaction and fills
// in ID and timestamps. A duplicate email or an already-claimed provider
// link is reported as apperror.ErrConflict and nothing is written.
func (u *UserDB) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.Email = model.NormalizeEmail(user.Email)
	user.CreatedAt = now
	user.UpdatedAt = now

	tx, err := u.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning user insert: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Name, user.Email, nullString(user.PasswordHash), user.AvatarURL,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Email, err)
	}

	for provider, subject := range user.ProviderLinks {
		if err := insertLink(ctx, tx, user.ID, provider, subject, now); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing user insert: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertLink(ctx context.Context, ex execer, userID string, provider model.Provider, subject string, at time.Time) error {
	_, err := ex.ExecContext(ctx,
		`INSERT INTO user_provider_links (user_id, provider, subject_id, created_at) VALUES (?, ?, ?, ?)`,
		userID, string(provider), subject, at,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict(string(provider)+" link", subject)
		}
		if isForeignKeyViolation(err) {
			return apperror.NotFound("user", userID)
		}
		return fmt.Errorf("sqlite: linking %s to user %s: %w", provider, userID, err)
	}
	return nil
}

// GetByID retrieves a user with its provider links.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (u *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	return u.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, "id "+id, id)
}

// FindByEmail looks a user up by normalized email.
func (u *UserDB) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	email = model.NormalizeEmail(email)
	return u.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, "email "+email, email)
}

// FindByProviderLink returns the user a (provider, subject) pair is linked to.
func (u *UserDB) FindByProviderLink(ctx context.Context, provider model.Provider, subjectID string) (*model.User, error) {
	return u.getOne(ctx,
		`SELECT u.id, u.name, u.email, u.password_hash, u.avatar_url, u.created_at, u.updated_at
		 FROM users u
		 JOIN user_provider_links l ON l.user_id = u.id
		 WHERE l.provider = ? AND l.subject_id = ?`,
		string(provider)+" link "+subjectID,
		string(provider), subjectID,
	)
}

func (u *UserDB) getOne(ctx context.Context, query, what string, args ...any) (*model.User, error) {
	user, err := scanUser(u.conn.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &apperror.AppError{Err: apperror.ErrNotFound, Message: "user not found"}
		}
		return nil, fmt.Errorf("sqlite: getting user by %s: %w", what, err)
	}

	links, err := u.links(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.ProviderLinks = links
	return user, nil
}

func (u *UserDB) links(ctx context.Context, userID string) (map[model.Provider]string, error) {
	rows, err := u.conn.QueryContext(ctx,
		`SELECT provider, subject_id FROM user_provider_links WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing links of user %s: %w", userID, err)
	}
	defer rows.Close()

	var links map[model.Provider]string
	for rows.Next() {
		var provider, subject string
		if err := rows.Scan(&provider, &subject); err != nil {
			return nil, fmt.Errorf("sqlite: scanning link row: %w", err)
		}
		if links == nil {
			links = make(map[model.Provider]string, 2)
		}
		links[model.Provider(provider)] = subject
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating link rows: %w", err)
	}
	return links, nil
}

// Update writes the mutable profile fields and bumps updated_at.
func (u *UserDB) Update(ctx context.Context, user *model.User) error {
	user.Email = model.NormalizeEmail(user.Email)
	user.UpdatedAt = time.Now().UTC()

	result, err := u.conn.ExecContext(ctx,
		`UPDATE users SET name = ?, email = ?, password_hash = ?, avatar_url = ?, updated_at = ?
		 WHERE id = ?`,
		user.Name, user.Email, nullString(user.PasswordHash), user.AvatarURL, user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("user", user.ID)
	}
	return nil
}

// AddProviderLink attaches a provider link to an existing user. The link
// and the avatar fill-in commit together or not at all.
func (u *UserDB) AddProviderLink(ctx context.Context, userID string, provider model.Provider, subjectID, avatarURL string) error {
	now := time.Now().UTC()

	tx, err := u.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning link insert: %w", err)
	}
	defer tx.Rollback()

	if err := insertLink(ctx, tx, userID, provider, subjectID, now); err != nil {
		return err
	}

	if avatarURL != "" {
		_, err := tx.ExecContext(ctx,
			`UPDATE users SET avatar_url = ?, updated_at = ?
			 WHERE id = ? AND avatar_url = ''`,
			avatarURL, now, userID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: setting avatar for user %s: %w", userID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing link insert: %w", err)
	}
	return nil
}

// List returns users newest first.
//
// PAGINATION: limit defaults to 20 and is capped at 100; negative offsets
// are treated as 0. Provider links are not loaded.
func (u *UserDB) List(ctx context.Context, opts repository.ListOptions) ([]model.User, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := max(opts.Offset, 0)

	rows, err := u.conn.QueryContext(ctx,
		`SELECT `+userColumns+`
		 FROM users
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0, limit)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating user rows: %w", err)
	}

	return users, nil
}

func (u *UserDB) Count(ctx context.Context) (int, error) {
	var n int
	if err := u.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting users: %w", err)
	}
	return n, nil
}
