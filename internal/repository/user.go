package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/attec/attec-api/internal/model"
)

// Common errors for user repository operations.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailExists  = errors.New("email already exists")
)

const userColumns = `id::text, email, password_hash, name, role::text, active, last_login, created_at, updated_at`

// CreateUser inserts a new user into the database.
// The email is stored lower-cased.
func (r *Repository) CreateUser(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, name, role, active, last_login, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::user_role, $6, $7, $8, $9)
	`

	user.Email = model.NormalizeEmail(user.Email)
	now := r.now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}

	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Name,
		string(user.Role),
		user.Active,
		user.LastLogin,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUserByID retrieves a user by their ID.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if !validUUID(id) {
		return nil, ErrUserNotFound
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	return user, nil
}

// GetUserByEmail retrieves a user by email address, case-insensitively.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, model.NormalizeEmail(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// SaveUser writes the mutable fields of an existing user.
func (r *Repository) SaveUser(ctx context.Context, user *model.User) error {
	if !validUUID(user.ID) {
		return ErrUserNotFound
	}

	query := `
		UPDATE users
		SET name = $2, password_hash = $3, role = $4::user_role, active = $5, last_login = $6, updated_at = $7
		WHERE id = $1
	`

	user.UpdatedAt = r.now().UTC()

	tag, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Name,
		user.PasswordHash,
		string(user.Role),
		user.Active,
		user.LastLogin,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// TouchLastLogin sets last_login and nothing else, so a sign-in racing an
// admin edit never restores the old role or active flag.
func (r *Repository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	if !validUUID(id) {
		return ErrUserNotFound
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET last_login = $2, updated_at = $2 WHERE id = $1`,
		id, at,
	)
	if err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// GetOrCreateUser gets a user by email or creates one if not found.
// The second return value reports whether the user was created.
func (r *Repository) GetOrCreateUser(ctx context.Context, user *model.User) (*model.User, bool, error) {
	existing, err := r.GetUserByEmail(ctx, user.Email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, false, err
	}

	if err := r.CreateUser(ctx, user); err != nil {
		// Handle race condition - another process may have created it
		if errors.Is(err, ErrEmailExists) {
			existing, err := r.GetUserByEmail(ctx, user.Email)
			return existing, false, err
		}
		return nil, false, err
	}

	return user, true, nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var (
		user model.User
		role string
	)
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&role,
		&user.Active,
		&user.LastLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.Role, err = model.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("user %s has role %q: %w", user.ID, role, err)
	}

	return &user, nil
}
