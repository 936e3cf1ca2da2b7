package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jjenkins/classwatch/internal/model"
)

// UserStore handles database operations for user accounts
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a new UserStore
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// Create inserts a user and sets its ID. Returns ErrDuplicate when the username or
// email is taken.
func (s *UserStore) Create(ctx context.Context, u *model.User) error {
	query := `
		INSERT INTO users (username, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query, u.Username, u.Email, u.PasswordHash).Scan(&u.ID, &u.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create user %s: %w", u.Username, err)
	}

	return nil
}

// GetByUsername retrieves a user by username, or nil when none exists
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.getOne(ctx, `WHERE username = $1`, username)
}

// GetByID retrieves a user by id, or nil when none exists
func (s *UserStore) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return s.getOne(ctx, `WHERE id = $1`, id)
}

func (s *UserStore) getOne(ctx context.Context, where string, arg any) (*model.User, error) {
	query := `
		SELECT id, username, email, password_hash, created_at
		FROM users
	` + where

	var u model.User
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &u, nil
}

// CountUsers returns the number of registered users
func (s *UserStore) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}
