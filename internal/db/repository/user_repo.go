package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

// Auth providers stored in users.provider.
const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
)

// User is a row of the users table.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash *string
	DisplayName  string
	Provider     string
	CreatedAt    time.Time
	LastLoginAt  *time.Time
}

// CreateUserParams holds the columns set on insert.
type CreateUserParams struct {
	Email        string
	PasswordHash *string
	DisplayName  string
	Provider     string
}

// UserRepository exposes typed DB operations required by auth flows.
type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `user_id, email, password_hash, display_name, provider, created_at, last_login_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.Provider, &u.CreatedAt, &u.LastLoginAt)
	return u, err
}

// Create inserts a new account. Emails are stored lowercased.
func (r *UserRepository) Create(ctx context.Context, params CreateUserParams) (User, error) {
	query := `
		INSERT INTO users (user_id, email, password_hash, display_name, provider)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRow(ctx, query,
		uuid.New(),
		normalizeEmail(params.Email),
		params.PasswordHash,
		params.DisplayName,
		params.Provider,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// GetByEmail fetches a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	u, err := scanUser(r.db.QueryRow(ctx, query, normalizeEmail(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// GetByID fetches a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, userID uuid.UUID) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`
	u, err := scanUser(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

// UpdateLogin records the last login timestamp.
func (r *UserRepository) UpdateLogin(ctx context.Context, userID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET last_login_at = now() WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("update login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
